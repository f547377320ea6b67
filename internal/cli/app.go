package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"solana-token-launcher/internal/chain"
	"solana-token-launcher/internal/config"
	"solana-token-launcher/internal/events"
	"solana-token-launcher/internal/launch"
	"solana-token-launcher/internal/ledger"
	"solana-token-launcher/internal/logging"
	"solana-token-launcher/internal/observability"
	"solana-token-launcher/internal/provider"
	"solana-token-launcher/internal/solana"
	"solana-token-launcher/internal/storage"
	"solana-token-launcher/internal/storage/clickhouse"
	"solana-token-launcher/internal/storage/memory"
	"solana-token-launcher/internal/storage/migrations"
	"solana-token-launcher/internal/storage/postgres"
	"solana-token-launcher/internal/storage/sqlite"
)

// App is the wired launcher built from configuration.
type App struct {
	Config       *config.Config
	Orchestrator *launch.Orchestrator
	AttemptLog   storage.AttemptLog // nil unless attempt_log.clickhouse_dsn is set
	Logger       *slog.Logger

	closers []func() error
}

// OpenApp loads the env file and config, then connects every configured backend.
// Logs go to logOut.
func OpenApp(ctx context.Context, opts *RootOptions, logOut io.Writer) (*App, error) {
	if err := config.LoadEnvFile(opts.EnvFile); err != nil {
		return nil, WrapExitError(ExitUsage, "load env file", err)
	}
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, WrapExitError(ExitUsage, "load config", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, WrapExitError(ExitUsage, "invalid config", err)
	}

	logger := logging.Setup(cfg.Log, logOut)

	app := &App{Config: cfg, Logger: logger}
	if err := app.wire(ctx); err != nil {
		app.Close()
		return nil, err
	}
	return app, nil
}

func (a *App) wire(ctx context.Context) error {
	cfg := a.Config

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics("", reg)

	store, err := a.openStore(ctx, metrics)
	if err != nil {
		return err
	}

	var rpc solana.RPCClient
	if cfg.Ledger.RPCEndpoint != "" {
		rpc = solana.NewHTTPClient(cfg.Ledger.RPCEndpoint)
	}

	ledgerClient, err := a.openLedger(ctx, rpc)
	if err != nil {
		return err
	}

	registry, err := cfg.BuildRegistry(provider.Deps{
		HTTPClient: &http.Client{},
		RPC:        rpc,
	})
	if err != nil {
		return WrapExitError(ExitUsage, "build provider chains", err)
	}

	executor := chain.NewExecutor(chain.Options{
		AttemptTimeout: cfg.Chain.AttemptTimeout,
		Observers:      []chain.Observer{metrics},
		Logger:         a.Logger,
	})

	guard, err := a.openGuard(ctx)
	if err != nil {
		return err
	}

	if cfg.AttemptLog.ClickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.AttemptLog.ClickhouseDSN)
		if err != nil {
			return fmt.Errorf("open attempt log: %w", err)
		}
		a.closers = append(a.closers, conn.Close)
		a.AttemptLog = clickhouse.NewAttemptLog(conn)
	}

	publisher, err := a.openEvents()
	if err != nil {
		return err
	}

	if cfg.Metrics.Addr != "" {
		a.serveMetrics(cfg.Metrics.Addr, reg)
	}

	a.Orchestrator, err = launch.New(launch.Options{
		Store:      store,
		Ledger:     ledgerClient,
		Registry:   registry,
		Executor:   executor,
		Guard:      guard,
		AttemptLog: a.AttemptLog,
		Events:     publisher,
		Metrics:    metrics,
		Mint: launch.MintOptions{
			Decimals:      cfg.Ledger.Decimals,
			InitialSupply: cfg.Ledger.InitialSupply,
			Retries:       *cfg.Ledger.Retries,
			RetryDelay:    cfg.Ledger.RetryDelay,
			MaxDelay:      cfg.Ledger.MaxRetryDelay,
		},
		CredentialOptional: cfg.Ledger.Simulated,
		Logger:             a.Logger,
	})
	return err
}

func (a *App) openStore(ctx context.Context, metrics *observability.Metrics) (storage.TokenStore, error) {
	cfg := a.Config.Storage
	switch cfg.Driver {
	case config.StorageMemory:
		s := memory.NewTokenStore()
		s.OnConflict = metrics.RecordStoreConflict
		return s, nil

	case config.StorageSQLite:
		db, err := sqlite.Open(cfg.DSN)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		s := sqlite.NewTokenStore(db)
		s.OnConflict = metrics.RecordStoreConflict
		return s, nil

	case config.StoragePostgres:
		pool, err := postgres.NewPool(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() error { pool.Close(); return nil })
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			return nil, err
		}
		s := postgres.NewTokenStore(pool)
		s.OnConflict = metrics.RecordStoreConflict
		return s, nil
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
}

func (a *App) openLedger(ctx context.Context, rpc solana.RPCClient) (ledger.Client, error) {
	cfg := a.Config.Ledger
	if cfg.Simulated {
		return ledger.NewSimulatedClient(a.Logger), nil
	}

	var ws solana.WSClient
	if cfg.WSEndpoint != "" {
		client, err := solana.NewWSClient(ctx, cfg.WSEndpoint, nil)
		if err != nil {
			a.Logger.Warn("websocket unavailable, confirmation falls back to polling", "error", err)
		} else {
			a.closers = append(a.closers, client.Close)
			ws = client
		}
	}

	return ledger.NewRPCClient(ledger.RPCClientOptions{
		RPC:                rpc,
		WS:                 ws,
		MinBalanceLamports: cfg.MinBalanceLamports,
		ConfirmTimeout:     cfg.ConfirmTimeout,
		Logger:             a.Logger,
	}), nil
}

func (a *App) openGuard(ctx context.Context) (launch.Guard, error) {
	cfg := a.Config.Guard
	if cfg.Driver != config.GuardRedis {
		return launch.NewLocalGuard(), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	a.closers = append(a.closers, client.Close)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return launch.NewRedisGuard(client, launch.RedisGuardOptions{TTL: cfg.TTL, Logger: a.Logger}), nil
}

func (a *App) openEvents() (events.Publisher, error) {
	cfg := a.Config.Events
	var pubs events.Multi
	if cfg.Log {
		pubs = append(pubs, events.NewLogPublisher(a.Logger))
	}
	if cfg.AMQPURL != "" {
		p, err := events.NewAMQPPublisher(events.AMQPConfig{URL: cfg.AMQPURL, Exchange: cfg.Exchange})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, p.Close)
		pubs = append(pubs, p)
	}
	if len(pubs) == 0 {
		return events.Nop{}, nil
	}
	return pubs, nil
}

func (a *App) serveMetrics(addr string, reg *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler(reg))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		a.Logger.Info("metrics server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.Error("metrics server failed", "error", err)
		}
	}()

	a.closers = append(a.closers, func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	})
}

// Close releases every backend in reverse order of opening.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
