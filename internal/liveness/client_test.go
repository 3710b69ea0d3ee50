package liveness

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hqv2016/salonpulse/internal/realtime"
)

type fakeSession struct {
	mu       sync.Mutex
	sent     []map[string]any
	incoming chan realtime.Message
	closed   chan struct{}
	once     sync.Once
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		incoming: make(chan realtime.Message, 8),
		closed:   make(chan struct{}),
	}
}

func (s *fakeSession) Send(ctx context.Context, payload any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if msg, ok := payload.(map[string]any); ok {
		s.sent = append(s.sent, msg)
	}
	return nil
}

func (s *fakeSession) Receive(ctx context.Context) (realtime.Message, error) {
	select {
	case <-ctx.Done():
		return realtime.Message{}, ctx.Err()
	case <-s.closed:
		return realtime.Message{}, errors.New("session closed")
	case message, ok := <-s.incoming:
		if !ok {
			return realtime.Message{}, errors.New("session closed")
		}
		return message, nil
	}
}

func (s *fakeSession) Close() error {
	s.once.Do(func() { close(s.closed) })
	return nil
}

func (s *fakeSession) sentActions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	actions := make([]string, 0, len(s.sent))
	for _, msg := range s.sent {
		if action, ok := msg["action"].(string); ok {
			actions = append(actions, action)
		}
	}
	return actions
}

type fakeTransport struct {
	mu       sync.Mutex
	failures int
	dials    int
	sessions chan *fakeSession
}

func newFakeTransport(failures int) *fakeTransport {
	return &fakeTransport{failures: failures, sessions: make(chan *fakeSession, 8)}
}

func (t *fakeTransport) Dial(ctx context.Context) (Session, error) {
	t.mu.Lock()
	t.dials++
	fail := t.dials <= t.failures
	t.mu.Unlock()

	if fail {
		return nil, errors.New("dial refused")
	}
	session := newFakeSession()
	t.sessions <- session
	return session, nil
}

func (t *fakeTransport) dialCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dials
}

type stateRecorder struct {
	mu     sync.Mutex
	states []State
	signal chan State
}

func newStateRecorder() *stateRecorder {
	return &stateRecorder{signal: make(chan State, 32)}
}

func (r *stateRecorder) record(state State) {
	r.mu.Lock()
	r.states = append(r.states, state)
	r.mu.Unlock()
	r.signal <- state
}

func (r *stateRecorder) waitFor(t *testing.T, want State) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case state := <-r.signal:
			if state == want {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for state %q", want)
		}
	}
}

func TestClientConnectsAndResubscribes(t *testing.T) {
	transport := newFakeTransport(0)
	states := newStateRecorder()

	var resyncs int
	var resyncMu sync.Mutex

	client, err := NewClient(transport,
		WithStateHandler(states.record),
		WithResync(func(ctx context.Context) error {
			resyncMu.Lock()
			resyncs++
			resyncMu.Unlock()
			return nil
		}),
	)
	require.NoError(t, err)

	ctx := context.Background()
	client.Join(ctx, "dashboard", "staff:staff-7")
	client.Start(ctx)
	defer client.Stop()

	session := <-transport.sessions
	states.waitFor(t, StateConnected)

	require.Eventually(t, func() bool {
		for _, action := range session.sentActions() {
			if action == "join" {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)

	resyncMu.Lock()
	require.Equal(t, 1, resyncs)
	resyncMu.Unlock()
}

func TestClientDeliversEvents(t *testing.T) {
	transport := newFakeTransport(0)
	events := make(chan realtime.Message, 8)

	client, err := NewClient(transport,
		WithEventHandler(func(message realtime.Message) { events <- message }),
	)
	require.NoError(t, err)

	client.Start(context.Background())
	defer client.Stop()

	session := <-transport.sessions
	session.incoming <- realtime.Message{Event: realtime.EventStaffOnline}

	select {
	case message := <-events:
		require.Equal(t, realtime.EventStaffOnline, message.Event)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestClientReconnectsAfterDrop(t *testing.T) {
	transport := newFakeTransport(0)
	states := newStateRecorder()

	client, err := NewClient(transport, WithStateHandler(states.record))
	require.NoError(t, err)

	client.Start(context.Background())
	defer client.Stop()

	first := <-transport.sessions
	states.waitFor(t, StateConnected)

	// Dropping the session triggers an immediate automatic reconnect.
	first.Close()
	states.waitFor(t, StateReconnecting)

	<-transport.sessions
	states.waitFor(t, StateConnected)
	require.GreaterOrEqual(t, transport.dialCount(), 2)
}

func TestClientFallsBackToPollingAndRecovers(t *testing.T) {
	// Every dial fails until the user triggers a reconnect.
	transport := newFakeTransport(1)
	states := newStateRecorder()
	polled := make(chan struct{}, 8)

	client, err := NewClient(transport,
		WithStateHandler(states.record),
		WithMaxManualRetries(1),
		WithPollInterval(10*time.Millisecond),
		WithPoller(func(ctx context.Context) error {
			select {
			case polled <- struct{}{}:
			default:
			}
			return nil
		}),
	)
	require.NoError(t, err)

	client.Start(context.Background())
	defer client.Stop()

	states.waitFor(t, StatePolling)

	select {
	case <-polled:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for poll")
	}

	// A manual trigger leaves polling and dials again, this time successfully.
	client.TriggerConnect()
	states.waitFor(t, StateConnected)
	require.Equal(t, StateConnected, client.State())
}

// dropOnceTransport hands out one good session and refuses every later dial.
type dropOnceTransport struct {
	mu       sync.Mutex
	dials    int
	sessions chan *fakeSession
}

func (t *dropOnceTransport) Dial(ctx context.Context) (Session, error) {
	t.mu.Lock()
	t.dials++
	first := t.dials == 1
	t.mu.Unlock()

	if !first {
		return nil, errors.New("dial refused")
	}
	session := newFakeSession()
	t.sessions <- session
	return session, nil
}

func (t *dropOnceTransport) dialCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dials
}

func TestClientRunsManualRetriesBeforePolling(t *testing.T) {
	originalSchedule := autoSchedule
	autoSchedule = []time.Duration{0, 0}
	defer func() { autoSchedule = originalSchedule }()

	transport := &dropOnceTransport{sessions: make(chan *fakeSession, 1)}
	states := newStateRecorder()

	client, err := NewClient(transport,
		WithStateHandler(states.record),
		WithMaxManualRetries(1),
		WithPollInterval(10*time.Millisecond),
	)
	require.NoError(t, err)

	client.Start(context.Background())
	defer client.Stop()

	session := <-transport.sessions
	states.waitFor(t, StateConnected)

	session.Close()
	states.waitFor(t, StatePolling)

	// One good dial, the whole automatic schedule, then the manual schedule;
	// only after both exhaust does the client settle into polling.
	require.Equal(t, 1+len(autoSchedule)+1, transport.dialCount())
}

func TestClientInitialConnectRetriesOnManualSchedule(t *testing.T) {
	originalSchedule := autoSchedule
	autoSchedule = []time.Duration{0, 0, 0}
	defer func() { autoSchedule = originalSchedule }()

	transport := newFakeTransport(1000)
	states := newStateRecorder()

	client, err := NewClient(transport,
		WithStateHandler(states.record),
		WithMaxManualRetries(1),
		WithPollInterval(10*time.Millisecond),
	)
	require.NoError(t, err)

	client.Start(context.Background())
	defer client.Stop()

	states.waitFor(t, StatePolling)

	// A failed initial connect counts against the manual cap; the automatic
	// schedule is reserved for dropped connections.
	require.Equal(t, 1, transport.dialCount())
}

func TestClientStopTransitionsToDisconnected(t *testing.T) {
	transport := newFakeTransport(0)
	states := newStateRecorder()

	client, err := NewClient(transport, WithStateHandler(states.record))
	require.NoError(t, err)

	client.Start(context.Background())
	states.waitFor(t, StateConnected)
	<-transport.sessions

	client.Stop()
	require.Equal(t, StateDisconnected, client.State())
}
