package realtime

import (
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Control actions a connected client may invoke.
const (
	actionJoin        = "join"
	actionLeave       = "leave"
	actionPing        = "ping"
	actionJoinUser    = "join_user"
	actionJoinAdmin   = "join_admin"
	actionJoinStaff   = "join_staff"
	actionJoinRoom    = "join_room"
	actionLeaveRoom   = "leave_room"
	actionTyping      = "typing"
	actionStopTyping  = "stop_typing"
	actionOnlineStaff = "online_staff"
	actionIsOnline    = "is_online"
)

type controlMessage struct {
	Action  string   `json:"action"`
	Group   string   `json:"group,omitempty"`
	Groups  []string `json:"groups,omitempty"`
	UserID  string   `json:"user_id,omitempty"`
	StaffID string   `json:"staff_id,omitempty"`
	RoomID  string   `json:"room_id,omitempty"`
}

type connection struct {
	id       string
	hub      *Hub
	socket   *websocket.Conn
	identity Identity
	groups   map[string]struct{}
	send     chan Message
	once     sync.Once
}

func (c *connection) readLoop() {
	defer c.close()

	c.socket.SetReadLimit(maxMessageSize)
	_ = c.socket.SetReadDeadline(time.Now().Add(c.hub.idleTimeout))
	c.socket.SetPongHandler(func(string) error {
		_ = c.socket.SetReadDeadline(time.Now().Add(c.hub.idleTimeout))
		c.hub.registry.Touch(c.id)
		return nil
	})

	for {
		_, payload, err := c.socket.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.hub.log.Warn("unexpected close",
					zap.String("conn_id", c.id),
					zap.Error(err))
			}
			break
		}

		if len(payload) == 0 {
			continue
		}

		var ctrl controlMessage
		if err := json.Unmarshal(payload, &ctrl); err != nil {
			c.hub.log.Warn("invalid control payload",
				zap.String("conn_id", c.id),
				zap.Error(err))
			continue
		}

		c.handleControl(ctrl)
	}
}

func (c *connection) handleControl(ctrl controlMessage) {
	c.hub.registry.Touch(c.id)

	switch strings.ToLower(strings.TrimSpace(ctrl.Action)) {
	case actionPing:
		c.reply("pong", nil)

	case actionJoin:
		for _, group := range gatherGroups(ctrl) {
			if !canJoin(c.identity, group) {
				c.hub.log.Warn("rejected group join",
					zap.String("conn_id", c.id),
					zap.String("group", group))
				continue
			}
			c.hub.Join(c.id, group)
		}

	case actionLeave:
		for _, group := range gatherGroups(ctrl) {
			c.hub.Leave(c.id, group)
		}

	case actionJoinUser:
		group := GroupUser(strings.TrimSpace(ctrl.UserID))
		if canJoin(c.identity, group) {
			c.hub.Join(c.id, group)
		}

	case actionJoinAdmin:
		if c.identity.Role == RoleAdmin {
			c.hub.Join(c.id, GroupDashboard)
		}

	case actionJoinStaff:
		group := GroupStaff(strings.TrimSpace(ctrl.StaffID))
		if canJoin(c.identity, group) {
			c.hub.Join(c.id, group)
		}

	case actionJoinRoom:
		roomID := strings.TrimSpace(ctrl.RoomID)
		if roomID == "" || c.identity.StaffID == "" {
			return
		}
		group := GroupRoom(roomID)
		c.hub.Join(c.id, group)
		c.hub.BroadcastToOthers(c.id, group, EventUserJoinedChat,
			ChatPresencePayload{RoomID: roomID, StaffID: c.identity.StaffID})

	case actionLeaveRoom:
		roomID := strings.TrimSpace(ctrl.RoomID)
		if roomID == "" {
			return
		}
		group := GroupRoom(roomID)
		c.hub.BroadcastToOthers(c.id, group, EventUserLeftChat,
			ChatPresencePayload{RoomID: roomID, StaffID: c.identity.StaffID})
		c.hub.Leave(c.id, group)

	case actionTyping, actionStopTyping:
		roomID := strings.TrimSpace(ctrl.RoomID)
		if roomID == "" || c.identity.StaffID == "" {
			return
		}
		event := EventUserTyping
		if strings.EqualFold(ctrl.Action, actionStopTyping) {
			event = EventUserStoppedTyping
		}
		c.hub.BroadcastToOthers(c.id, GroupRoom(roomID), event,
			ChatPresencePayload{RoomID: roomID, StaffID: c.identity.StaffID})

	case actionOnlineStaff:
		c.reply("online_staff", c.hub.registry.OnlineStaff())

	case actionIsOnline:
		staffID := strings.TrimSpace(ctrl.StaffID)
		c.reply("staff_status", map[string]any{
			"staff_id": staffID,
			"online":   c.hub.registry.IsOnline(staffID),
		})

	default:
		c.hub.log.Warn("unsupported control action",
			zap.String("conn_id", c.id),
			zap.String("action", ctrl.Action))
	}
}

// reply enqueues a direct response to this connection only.
func (c *connection) reply(event string, data any) {
	message := Message{Event: event, Data: data, Timestamp: time.Now().UTC()}
	select {
	case c.send <- message:
	default:
	}
}

func (c *connection) writeLoop() {
	defer c.close()

	ticker := time.NewTicker(c.hub.pingPeriod())
	defer ticker.Stop()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.socket.SetWriteDeadline(time.Now().Add(c.hub.writeWait))
			if !ok {
				_ = c.socket.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.socket.WriteJSON(message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.socket.SetWriteDeadline(time.Now().Add(c.hub.writeWait))
			if err := c.socket.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// close tears the connection down exactly once: membership and presence are
// removed synchronously so no broadcast can target a dangling connection.
func (c *connection) close() {
	c.once.Do(func() {
		c.hub.unregister(c)
		close(c.send)
		_ = c.socket.Close()
	})
}

func gatherGroups(ctrl controlMessage) []string {
	seen := make(map[string]struct{}, len(ctrl.Groups)+1)
	var out []string

	add := func(group string) {
		group = normalizeGroup(group)
		if group == "" {
			return
		}
		if _, ok := seen[group]; ok {
			return
		}
		seen[group] = struct{}{}
		out = append(out, group)
	}

	add(ctrl.Group)
	for _, group := range ctrl.Groups {
		add(group)
	}
	return out
}
