package observability

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-token-launcher/internal/domain"
)

func TestMetrics_ObserveAttempt(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics("test", reg)

	m.ObserveAttempt("pumpfun", domain.AttemptRecord{ProviderID: "a", Outcome: domain.OutcomeTimeout, DurationMs: 30000})
	m.ObserveAttempt("pumpfun", domain.AttemptRecord{ProviderID: "b", Outcome: domain.OutcomeSuccess, DurationMs: 120})
	m.ObserveAttempt("pumpfun", domain.AttemptRecord{ProviderID: "b", Outcome: domain.OutcomeSuccess, DurationMs: 80})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.AttemptsTotal.WithLabelValues("pumpfun", "a", "timeout")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.AttemptsTotal.WithLabelValues("pumpfun", "b", "success")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.AttemptDuration))
}

func TestMetrics_LaunchCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics("test", reg)

	m.RecordLaunch(LaunchResultCompleted)
	m.RecordLaunch(LaunchResultCompleted)
	m.RecordLaunch(LaunchResultMintFailed)
	m.RecordMintRetry()
	m.RecordStoreConflict("tok1")
	m.RecordMint(2 * time.Second)
	m.RecordPlatformResult("axiom", domain.PlatformStateUnsupported)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.LaunchesTotal.WithLabelValues(LaunchResultCompleted)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LaunchesTotal.WithLabelValues(LaunchResultMintFailed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.MintRetries))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StoreConflicts))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PlatformResults.WithLabelValues("axiom", "UNSUPPORTED")))
}

func TestHandler_ServesRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics("test", reg)
	m.RecordMintRetry()

	srv := httptest.NewServer(Handler(reg))
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "test_ledger_mint_retries_total 1")
}
