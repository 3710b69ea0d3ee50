package liveness

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hqv2016/salonpulse/pkg/logger"

	"github.com/hqv2016/salonpulse/internal/realtime"
)

// State describes the client's view of its realtime connection.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateReconnecting State = "reconnecting"
	StatePolling      State = "polling"
)

const (
	defaultHeartbeatInterval = 20 * time.Second
	defaultPollInterval      = 15 * time.Second
)

// Session is one live realtime connection.
type Session interface {
	Send(ctx context.Context, payload any) error
	Receive(ctx context.Context) (realtime.Message, error)
	Close() error
}

// Transport dials new sessions. Implementations wrap the WebSocket endpoint
// and carry authentication.
type Transport interface {
	Dial(ctx context.Context) (Session, error)
}

// EventHandler receives every server-pushed message in arrival order.
type EventHandler func(realtime.Message)

// StateHandler is invoked on every state transition.
type StateHandler func(State)

// SyncFunc pulls the full current state over HTTP, covering whatever was
// missed while disconnected.
type SyncFunc func(context.Context) error

// Option customises a Client.
type Option func(*Client)

// WithEventHandler sets the callback for incoming messages.
func WithEventHandler(fn EventHandler) Option {
	return func(c *Client) { c.onEvent = fn }
}

// WithStateHandler sets the callback for connection state transitions.
func WithStateHandler(fn StateHandler) Option {
	return func(c *Client) { c.onState = fn }
}

// WithResync sets the full-state refresh run after every successful connect.
func WithResync(fn SyncFunc) Option {
	return func(c *Client) { c.resync = fn }
}

// WithPoller sets the fallback refresh used while in the polling state.
func WithPoller(fn SyncFunc) Option {
	return func(c *Client) { c.poller = fn }
}

// WithHeartbeatInterval overrides the application-level ping cadence.
func WithHeartbeatInterval(d time.Duration) Option {
	return func(c *Client) { c.heartbeatInterval = d }
}

// WithPollInterval overrides the polling fallback cadence.
func WithPollInterval(d time.Duration) Option {
	return func(c *Client) { c.pollInterval = d }
}

// WithRand overrides the jitter source, mainly for tests.
func WithRand(rng *rand.Rand) Option {
	return func(c *Client) { c.rng = rng }
}

// WithMaxManualRetries overrides how many manual-schedule dials are attempted
// before the client falls back to polling.
func WithMaxManualRetries(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxManualRetries = n
		}
	}
}

// Client keeps a realtime connection alive on behalf of a UI client. It owns
// reconnection, heartbeats, group re-subscription and the polling fallback;
// the caller only consumes events and state transitions.
type Client struct {
	transport Transport
	log       *zap.Logger
	rng       *rand.Rand

	heartbeatInterval time.Duration
	pollInterval      time.Duration
	maxManualRetries  int

	onEvent EventHandler
	onState StateHandler
	resync  SyncFunc
	poller  SyncFunc

	connectRequests chan struct{}

	mu      sync.Mutex
	state   State
	groups  map[string]struct{}
	session Session
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewClient constructs a Client. Start must be called before events flow.
func NewClient(transport Transport, opts ...Option) (*Client, error) {
	if transport == nil {
		return nil, errors.New("liveness: transport is required")
	}

	c := &Client{
		transport:         transport,
		log:               logger.WithModule("liveness"),
		rng:               rand.New(rand.NewSource(time.Now().UnixNano())),
		heartbeatInterval: defaultHeartbeatInterval,
		pollInterval:      defaultPollInterval,
		maxManualRetries:  maxManualAttempts,
		connectRequests:   make(chan struct{}, 1),
		state:             StateDisconnected,
		groups:            make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Start launches the connection loop. It returns immediately; Stop tears the
// client down.
func (c *Client) Start(ctx context.Context) {
	c.mu.Lock()
	if c.cancel != nil {
		c.mu.Unlock()
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})
	c.mu.Unlock()

	go c.run(runCtx)
}

// Stop shuts the client down and waits for the loop to exit.
func (c *Client) Stop() {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.cancel = nil
	c.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// State returns the current connection state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// TriggerConnect requests an immediate connection attempt. It cancels any
// pending backoff wait and exits the polling fallback.
func (c *Client) TriggerConnect() {
	select {
	case c.connectRequests <- struct{}{}:
	default:
	}
}

// Join subscribes to groups. Desired membership is remembered and replayed
// after every reconnect, since the server forgets it on disconnect.
func (c *Client) Join(ctx context.Context, groups ...string) {
	c.mu.Lock()
	for _, group := range groups {
		if group != "" {
			c.groups[group] = struct{}{}
		}
	}
	session := c.session
	c.mu.Unlock()

	if session != nil {
		if err := session.Send(ctx, map[string]any{"action": "join", "groups": groups}); err != nil {
			c.log.Warn("join failed", zap.Error(err))
		}
	}
}

// Leave unsubscribes from groups.
func (c *Client) Leave(ctx context.Context, groups ...string) {
	c.mu.Lock()
	for _, group := range groups {
		delete(c.groups, group)
	}
	session := c.session
	c.mu.Unlock()

	if session != nil {
		if err := session.Send(ctx, map[string]any{"action": "leave", "groups": groups}); err != nil {
			c.log.Warn("leave failed", zap.Error(err))
		}
	}
}

func (c *Client) run(ctx context.Context) {
	defer close(c.done)
	defer c.setState(StateDisconnected)

	// The initial connect retries on the manual schedule; the automatic
	// schedule only applies after an established connection drops.
	attempt := 0
	manual := true

	for {
		delay, ok := c.nextDelay(attempt, manual)
		if !ok {
			if !manual {
				// Automatic schedule exhausted; run the manual schedule
				// before giving up on push.
				attempt, manual = 0, true
				continue
			}
			// Manual retries exhausted; poll until the user asks for a
			// reconnect.
			c.setState(StateDisconnected)
			if !c.pollLoop(ctx) {
				return
			}
			attempt, manual = 0, true
			continue
		}

		switch c.wait(ctx, delay) {
		case waitCancelled:
			return
		case waitInterrupted:
			// Manual request during backoff restarts the manual schedule.
			attempt, manual = 0, true
		case waitElapsed:
		}

		c.setState(StateConnecting)
		session, err := c.transport.Dial(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.log.Warn("dial failed", zap.Int("attempt", attempt), zap.Error(err))
			attempt++
			c.setState(StateReconnecting)
			continue
		}

		attempt, manual = 0, false
		c.onConnected(ctx, session)
		c.serve(ctx, session)
		if ctx.Err() != nil {
			return
		}

		// Connection dropped; the immediate retry is attempt zero again.
		c.setState(StateReconnecting)
	}
}

func (c *Client) nextDelay(attempt int, manual bool) (time.Duration, bool) {
	if manual {
		return manualDelay(attempt, c.maxManualRetries, c.rng)
	}
	return autoDelay(attempt)
}

type waitResult int

const (
	waitElapsed waitResult = iota
	waitInterrupted
	waitCancelled
)

func (c *Client) wait(ctx context.Context, delay time.Duration) waitResult {
	if delay <= 0 {
		return waitElapsed
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return waitCancelled
	case <-c.connectRequests:
		return waitInterrupted
	case <-timer.C:
		return waitElapsed
	}
}

// onConnected replays group membership and refreshes missed state. Order
// matters: subscriptions first so nothing slips between the sync and the
// first pushed event.
func (c *Client) onConnected(ctx context.Context, session Session) {
	c.mu.Lock()
	c.session = session
	groups := make([]string, 0, len(c.groups))
	for group := range c.groups {
		groups = append(groups, group)
	}
	c.mu.Unlock()

	c.setState(StateConnected)

	if len(groups) > 0 {
		if err := session.Send(ctx, map[string]any{"action": "join", "groups": groups}); err != nil {
			c.log.Warn("group rejoin failed", zap.Error(err))
		}
	}
	if c.resync != nil {
		if err := c.resync(ctx); err != nil {
			c.log.Warn("resync failed", zap.Error(err))
		}
	}
}

// serve pumps incoming messages and heartbeats until the session dies.
func (c *Client) serve(ctx context.Context, session Session) {
	defer func() {
		c.mu.Lock()
		c.session = nil
		c.mu.Unlock()
		_ = session.Close()
	}()

	stopHeartbeat := make(chan struct{})
	defer close(stopHeartbeat)

	go func() {
		ticker := time.NewTicker(c.heartbeatInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-stopHeartbeat:
				return
			case <-ticker.C:
				// A failed ping is logged only; the read loop notices real
				// transport closure.
				if err := session.Send(ctx, map[string]any{"action": "ping"}); err != nil {
					c.log.Warn("heartbeat failed", zap.Error(err))
				}
			}
		}
	}()

	for {
		message, err := session.Receive(ctx)
		if err != nil {
			if ctx.Err() == nil {
				c.log.Warn("connection lost", zap.Error(err))
			}
			return
		}
		if c.onEvent != nil {
			c.onEvent(message)
		}
	}
}

// pollLoop refreshes state over HTTP until a reconnect is requested. Returns
// false when the context is cancelled.
func (c *Client) pollLoop(ctx context.Context) bool {
	c.setState(StatePolling)
	c.log.Warn("reconnect attempts exhausted, falling back to polling")

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return false
		case <-c.connectRequests:
			return true
		case <-ticker.C:
			if c.poller != nil {
				if err := c.poller(ctx); err != nil {
					c.log.Warn("poll failed", zap.Error(err))
				}
			}
		}
	}
}

func (c *Client) setState(next State) {
	c.mu.Lock()
	if c.state == next {
		c.mu.Unlock()
		return
	}
	c.state = next
	handler := c.onState
	c.mu.Unlock()

	if handler != nil {
		handler(next)
	}
}
