package solana

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// ErrWSClosed is returned by a closed client.
var ErrWSClosed = errors.New("websocket client closed")

// WSClientConfig configures the WebSocket client.
type WSClientConfig struct {
	ReconnectDelay    time.Duration // first reconnect delay, doubled per failure
	MaxReconnectDelay time.Duration
	PingInterval      time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	SubscribeTimeout  time.Duration // bound on the wait for a subscription id
	Logger            *slog.Logger
}

// DefaultWSConfig returns the default configuration.
func DefaultWSConfig() WSClientConfig {
	return WSClientConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
		SubscribeTimeout:  30 * time.Second,
	}
}

// WSConn implements WSClient over one gorilla/websocket connection that is re-dialled
// when it drops. Subscriptions do not survive a reconnect.
type WSConn struct {
	endpoint string
	cfg      WSClientConfig
	logger   *slog.Logger

	mu      sync.Mutex      // guards conn
	writeMu sync.Mutex      // gorilla allows one concurrent writer
	conn    *websocket.Conn // nil while reconnecting

	nextID atomic.Uint64
	closed atomic.Bool
	done   chan struct{}
	wg     sync.WaitGroup

	subsMu  sync.Mutex
	pending map[uint64]*signatureWaiter // by request id, until acknowledged
	active  map[int64]*signatureWaiter  // by subscription id
}

type signatureWaiter struct {
	signature string
	ack       chan error // receives nil or the subscribe error, then nothing
	out       chan SignatureNotification
}

// NewWSClient dials endpoint and starts the read and ping loops.
func NewWSClient(ctx context.Context, endpoint string, config *WSClientConfig) (*WSConn, error) {
	cfg := DefaultWSConfig()
	if config != nil {
		cfg = *config
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	c := &WSConn{
		endpoint: endpoint,
		cfg:      cfg,
		logger:   logger.With("component", "solana-ws"),
		done:     make(chan struct{}),
		pending:  make(map[uint64]*signatureWaiter),
		active:   make(map[int64]*signatureWaiter),
	}

	conn, err := c.dial(ctx)
	if err != nil {
		return nil, err
	}
	c.conn = conn

	c.wg.Add(2)
	go c.readLoop()
	go c.pingLoop()
	return c, nil
}

var _ WSClient = (*WSConn)(nil)

func (c *WSConn) dial(ctx context.Context) (*websocket.Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, c.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial: %w", err)
	}
	return conn, nil
}

// SubscribeSignature registers interest in signature reaching confirmed commitment.
func (c *WSConn) SubscribeSignature(ctx context.Context, signature string) (<-chan SignatureNotification, error) {
	if c.closed.Load() {
		return nil, ErrWSClosed
	}

	id := c.nextID.Add(1)
	w := &signatureWaiter{
		signature: signature,
		ack:       make(chan error, 1),
		out:       make(chan SignatureNotification, 1),
	}
	c.subsMu.Lock()
	c.pending[id] = w
	c.subsMu.Unlock()

	err := c.send(wsOutbound{
		JSONRPC: "2.0",
		ID:      id,
		Method:  "signatureSubscribe",
		Params:  []any{signature, map[string]string{"commitment": CommitmentConfirmed}},
	})
	if err != nil {
		c.forget(id)
		return nil, err
	}

	timer := time.NewTimer(c.cfg.SubscribeTimeout)
	defer timer.Stop()

	select {
	case err, ok := <-w.ack:
		if !ok {
			return nil, errors.New("connection lost before subscription was acknowledged")
		}
		if err != nil {
			return nil, err
		}
		return w.out, nil
	case <-timer.C:
		c.forget(id)
		return nil, fmt.Errorf("signatureSubscribe not acknowledged within %s", c.cfg.SubscribeTimeout)
	case <-ctx.Done():
		c.forget(id)
		return nil, ctx.Err()
	case <-c.done:
		return nil, ErrWSClosed
	}
}

func (c *WSConn) send(msg wsOutbound) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return errors.New("websocket not connected")
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	if err := conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("write %s: %w", msg.Method, err)
	}
	return nil
}

func (c *WSConn) forget(id uint64) {
	c.subsMu.Lock()
	delete(c.pending, id)
	c.subsMu.Unlock()
}

// Close stops the loops and closes every waiting channel. It is safe to call twice.
func (c *WSConn) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	close(c.done)

	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()
	if conn != nil {
		c.writeMu.Lock()
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.writeMu.Unlock()
		conn.Close()
	}

	c.abandonAll()
	c.wg.Wait()
	return nil
}

// abandonAll closes every waiter's channels. A closed channel without a value means
// the outcome is unknown and the caller should poll.
func (c *WSConn) abandonAll() {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()

	for id, w := range c.pending {
		close(w.ack)
		close(w.out)
		delete(c.pending, id)
	}
	for id, w := range c.active {
		close(w.out)
		delete(c.active, id)
	}
}

func (c *WSConn) readLoop() {
	defer c.wg.Done()

	retry := backoff{initial: c.cfg.ReconnectDelay, ceiling: c.cfg.MaxReconnectDelay}
	failures := 0

	for !c.closed.Load() {
		c.mu.Lock()
		conn := c.conn
		c.mu.Unlock()

		if conn == nil {
			failures++
			if c.redial(retry.delay(failures)) {
				failures = 0
			}
			continue
		}

		conn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout))
		_, data, err := conn.ReadMessage()
		if err != nil {
			if c.closed.Load() {
				return
			}
			c.logger.Warn("websocket read failed, reconnecting", "error", err)
			c.mu.Lock()
			if c.conn == conn {
				c.conn = nil
			}
			c.mu.Unlock()
			conn.Close()
			c.abandonAll()
			continue
		}

		c.dispatch(data)
	}
}

// redial waits delay and tries to reconnect. It reports whether a connection is up.
func (c *WSConn) redial(delay time.Duration) bool {
	timer := time.NewTimer(delay)
	select {
	case <-c.done:
		timer.Stop()
		return false
	case <-timer.C:
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	conn, err := c.dial(ctx)
	if err != nil {
		c.logger.Warn("websocket reconnect failed", "error", err)
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed.Load() {
		conn.Close()
		return false
	}
	c.conn = conn
	return true
}

func (c *WSConn) dispatch(data []byte) {
	var msg wsInbound
	if err := json.Unmarshal(data, &msg); err != nil {
		c.logger.Debug("ignoring malformed websocket message", "error", err)
		return
	}

	switch {
	case msg.ID != nil:
		c.acknowledge(*msg.ID, msg)
	case msg.Method == "signatureNotification":
		var params wsSignatureParams
		if err := json.Unmarshal(msg.Params, &params); err != nil {
			c.logger.Debug("ignoring malformed signature notification", "error", err)
			return
		}
		c.notify(params)
	}
}

// acknowledge activates the waiter before signalling it, so a notification that
// immediately follows the acknowledgement finds it.
func (c *WSConn) acknowledge(id uint64, msg wsInbound) {
	c.subsMu.Lock()
	w, ok := c.pending[id]
	if !ok {
		c.subsMu.Unlock()
		return
	}
	delete(c.pending, id)

	var ackErr error
	var subID int64
	switch {
	case msg.Error != nil:
		ackErr = msg.Error
	case json.Unmarshal(msg.Result, &subID) != nil:
		ackErr = fmt.Errorf("unexpected signatureSubscribe result %s", msg.Result)
	default:
		c.active[subID] = w
	}
	c.subsMu.Unlock()

	w.ack <- ackErr
}

// notify delivers the single notification of a signature subscription. The node drops
// the subscription after sending it.
func (c *WSConn) notify(p wsSignatureParams) {
	c.subsMu.Lock()
	w, ok := c.active[p.Subscription]
	delete(c.active, p.Subscription)
	c.subsMu.Unlock()
	if !ok {
		return
	}

	w.out <- SignatureNotification{
		Signature: w.signature,
		Slot:      p.Result.Context.Slot,
		Err:       p.Result.Value.Err,
	}
	close(w.out)
}

func (c *WSConn) pingLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.mu.Lock()
			conn := c.conn
			c.mu.Unlock()
			if conn == nil {
				continue
			}
			c.writeMu.Lock()
			conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
			// The read loop notices a dead connection.
			_ = conn.WriteMessage(websocket.PingMessage, nil)
			c.writeMu.Unlock()
		}
	}
}

type wsOutbound struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params,omitempty"`
}

// wsInbound is any server message: a response carries an id, a notification a method.
type wsInbound struct {
	ID     *uint64         `json:"id,omitempty"`
	Method string          `json:"method,omitempty"`
	Params json.RawMessage `json:"params,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *RPCError       `json:"error,omitempty"`
}

type wsSignatureParams struct {
	Subscription int64 `json:"subscription"`
	Result       struct {
		Context struct {
			Slot int64 `json:"slot"`
		} `json:"context"`
		Value struct {
			Err any `json:"err"`
		} `json:"value"`
	} `json:"result"`
}
