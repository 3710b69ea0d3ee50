package realtime

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/hqv2016/salonpulse/pkg/logger"
	"github.com/hqv2016/salonpulse/pkg/metrics"
)

const (
	defaultWriteWait   = 10 * time.Second
	defaultIdleTimeout = 60 * time.Second
	defaultSendBuffer  = 64

	maxMessageSize = 64 << 10 // 64 KiB; control frames and chat payloads only
)

// Message is the JSON payload delivered to realtime subscribers.
type Message struct {
	Event     string    `json:"event"`
	Data      any       `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Hub owns all live connections and the named broadcast groups they belong to.
// Group membership is transient: it exists only while the connection is open
// and must be rebuilt by each reconnecting client.
type Hub struct {
	registry *Registry
	upgrader websocket.Upgrader
	log      *zap.Logger

	writeWait   time.Duration
	idleTimeout time.Duration
	sendBuffer  int

	mu     sync.RWMutex
	conns  map[string]*connection
	groups map[string]map[*connection]struct{}
}

// HubOption customises a Hub.
type HubOption func(*Hub)

// WithWriteWait sets the per-write deadline on outbound frames.
func WithWriteWait(d time.Duration) HubOption {
	return func(h *Hub) {
		if d > 0 {
			h.writeWait = d
		}
	}
}

// WithIdleTimeout sets how long a connection may stay silent before the read
// side gives up. It must stay above the client heartbeat interval or healthy
// connections get reaped.
func WithIdleTimeout(d time.Duration) HubOption {
	return func(h *Hub) {
		if d > 0 {
			h.idleTimeout = d
		}
	}
}

// WithSendBuffer sets the per-connection outbound queue depth.
func WithSendBuffer(n int) HubOption {
	return func(h *Hub) {
		if n > 0 {
			h.sendBuffer = n
		}
	}
}

// NewHub constructs a realtime hub backed by the supplied registry.
func NewHub(registry *Registry, opts ...HubOption) *Hub {
	h := &Hub{
		registry:    registry,
		conns:       make(map[string]*connection),
		groups:      make(map[string]map[*connection]struct{}),
		log:         logger.WithModule("realtime"),
		writeWait:   defaultWriteWait,
		idleTimeout: defaultIdleTimeout,
		sendBuffer:  defaultSendBuffer,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Allow same-origin requests and explicit localhost development.
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				originHost := hostWithoutPort(origin)
				requestHost := hostWithoutPort(r.Host)
				return originHost == requestHost || isLoopback(originHost)
			},
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// pingPeriod is the transport ping cadence, kept inside the idle timeout so a
// healthy peer always answers before the read deadline expires.
func (h *Hub) pingPeriod() time.Duration {
	return h.idleTimeout * 9 / 10
}

// Serve upgrades the HTTP connection to a WebSocket and runs it until the
// transport closes. The identity is fixed for the connection's lifetime.
func (h *Hub) Serve(identity Identity, w http.ResponseWriter, r *http.Request) {
	socket, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("upgrade failed", zap.Error(err))
		return
	}

	conn := newConnection(h, socket, identity)
	h.register(conn)

	go conn.writeLoop()
	conn.readLoop()
}

// Broadcast delivers an event to every current member of the group. The member
// snapshot is taken at call time; connections joining afterwards do not receive
// the event and closed targets are dropped silently.
func (h *Hub) Broadcast(group, event string, data any) {
	group = normalizeGroup(group)
	if group == "" {
		return
	}

	message := Message{Event: event, Data: data, Timestamp: time.Now().UTC()}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for conn := range h.groups[group] {
		h.enqueue(conn, message)
	}
}

// BroadcastToOthers delivers an event to every member of the group except the
// supplied connection. Used for peer presence and typing signals.
func (h *Hub) BroadcastToOthers(connID, group, event string, data any) {
	group = normalizeGroup(group)
	if group == "" {
		return
	}

	message := Message{Event: event, Data: data, Timestamp: time.Now().UTC()}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for conn := range h.groups[group] {
		if conn.id == connID {
			continue
		}
		h.enqueue(conn, message)
	}
}

// SendTo delivers an event to a single connection, if it is still registered.
func (h *Hub) SendTo(connID, event string, data any) {
	message := Message{Event: event, Data: data, Timestamp: time.Now().UTC()}

	h.mu.RLock()
	defer h.mu.RUnlock()

	if conn, ok := h.conns[connID]; ok {
		h.enqueue(conn, message)
	}
}

// Join adds the connection to the named group. Joining a group the connection
// is already in is a no-op.
func (h *Hub) Join(connID, group string) {
	group = normalizeGroup(group)
	if group == "" {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	conn, ok := h.conns[connID]
	if !ok {
		return
	}
	h.joinLocked(conn, group)
}

// Leave removes the connection from the named group. Leaving a group the
// connection is not in is a no-op.
func (h *Hub) Leave(connID, group string) {
	group = normalizeGroup(group)
	if group == "" {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	conn, ok := h.conns[connID]
	if !ok {
		return
	}
	h.leaveLocked(conn, group)
}

// GroupSize returns the current member count of a group.
func (h *Hub) GroupSize(group string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.groups[normalizeGroup(group)])
}

// CloseStale force-closes connections whose heartbeat is older than maxAge.
// Returns the number of connections reaped.
func (h *Hub) CloseStale(maxAge time.Duration) int {
	stale := h.registry.StaleConnections(maxAge)

	h.mu.RLock()
	targets := make([]*connection, 0, len(stale))
	for _, connID := range stale {
		if conn, ok := h.conns[connID]; ok {
			targets = append(targets, conn)
		}
	}
	h.mu.RUnlock()

	for _, conn := range targets {
		h.log.Warn("closing stale connection",
			zap.String("conn_id", conn.id),
			zap.String("staff_id", conn.identity.StaffID))
		conn.close()
	}
	return len(targets)
}

func (h *Hub) register(conn *connection) {
	cameOnline := h.registry.Register(conn.id, conn.identity)

	h.mu.Lock()
	h.conns[conn.id] = conn

	// Every connection is auto-joined to its identity groups; the dashboard
	// group stays opt-in via join_admin.
	if conn.identity.UserID != "" {
		h.joinLocked(conn, GroupUser(conn.identity.UserID))
	}
	if conn.identity.Role != "" {
		h.joinLocked(conn, GroupRole(conn.identity.Role))
	}
	if conn.identity.StaffID != "" {
		h.joinLocked(conn, GroupStaff(conn.identity.StaffID))
	}
	h.mu.Unlock()

	if cameOnline {
		h.broadcastPresence(conn, EventStaffOnline)
	}
}

func (h *Hub) unregister(conn *connection) {
	h.mu.Lock()
	if _, ok := h.conns[conn.id]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.conns, conn.id)
	for group := range conn.groups {
		h.leaveLocked(conn, group)
	}
	h.mu.Unlock()

	_, wentOffline := h.registry.Unregister(conn.id)
	if wentOffline {
		h.broadcastPresence(conn, EventStaffOffline)
	}
}

// broadcastPresence pushes an online/offline transition to all connections
// other than the one that caused it.
func (h *Hub) broadcastPresence(conn *connection, event string) {
	message := Message{
		Event:     event,
		Data:      PresencePayload{StaffID: conn.identity.StaffID},
		Timestamp: time.Now().UTC(),
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, other := range h.conns {
		if other.id == conn.id {
			continue
		}
		h.enqueue(other, message)
	}
}

func (h *Hub) joinLocked(conn *connection, group string) {
	if _, exists := conn.groups[group]; exists {
		return
	}
	if h.groups[group] == nil {
		h.groups[group] = make(map[*connection]struct{})
	}
	h.groups[group][conn] = struct{}{}
	conn.groups[group] = struct{}{}
}

func (h *Hub) leaveLocked(conn *connection, group string) {
	members := h.groups[group]
	if members == nil {
		return
	}
	delete(members, conn)
	if len(members) == 0 {
		delete(h.groups, group)
	}
	delete(conn.groups, group)
}

// enqueue hands a message to the connection's writer without blocking. A full
// buffer means the peer is too slow or gone; the delivery is dropped, matching
// the at-most-once contract.
func (h *Hub) enqueue(conn *connection, message Message) {
	select {
	case conn.send <- message:
		metrics.BroadcastsSent.WithLabelValues(message.Event).Inc()
	default:
		metrics.DroppedDeliveries.Inc()
		h.log.Debug("dropping delivery to saturated connection",
			zap.String("conn_id", conn.id),
			zap.String("event", message.Event))
	}
}

func newConnection(h *Hub, socket *websocket.Conn, identity Identity) *connection {
	return &connection{
		id:       uuid.NewString(),
		hub:      h,
		socket:   socket,
		identity: identity,
		groups:   make(map[string]struct{}),
		send:     make(chan Message, h.sendBuffer),
	}
}

func hostWithoutPort(host string) string {
	host = strings.TrimSpace(host)
	if host == "" {
		return ""
	}

	if strings.HasPrefix(host, "http://") || strings.HasPrefix(host, "https://") {
		parsed, err := http.NewRequest(http.MethodGet, host, nil)
		if err == nil {
			return hostWithoutPort(parsed.URL.Host)
		}
	}

	if h, _, err := net.SplitHostPort(host); err == nil {
		return h
	}
	return host
}

func isLoopback(host string) bool {
	ip := net.ParseIP(host)
	if ip != nil {
		return ip.IsLoopback()
	}
	return strings.EqualFold(host, "localhost")
}
