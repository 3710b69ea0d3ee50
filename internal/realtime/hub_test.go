package realtime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// testConn builds a registered connection without a live socket so group and
// presence behaviour can be exercised through the send channel directly.
func testConn(t *testing.T, h *Hub, identity Identity) *connection {
	t.Helper()

	conn := newConnection(h, nil, identity)
	h.register(conn)
	return conn
}

func receive(t *testing.T, conn *connection) Message {
	t.Helper()

	select {
	case message := <-conn.send:
		return message
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
		return Message{}
	}
}

func requireNoMessage(t *testing.T, conn *connection) {
	t.Helper()

	select {
	case message := <-conn.send:
		t.Fatalf("unexpected message %q", message.Event)
	default:
	}
}

func TestHubBroadcastReachesGroupMembers(t *testing.T) {
	hub := NewHub(NewRegistry())

	admin := testConn(t, hub, Identity{UserID: "u1", Role: RoleAdmin})
	other := testConn(t, hub, Identity{UserID: "u2", Role: RoleCustomer})

	hub.Join(admin.id, GroupDashboard)
	hub.Broadcast(GroupDashboard, EventRefreshDashboard, nil)

	message := receive(t, admin)
	require.Equal(t, EventRefreshDashboard, message.Event)
	require.False(t, message.Timestamp.IsZero())
	requireNoMessage(t, other)
}

func TestHubJoinLeaveIdempotent(t *testing.T) {
	hub := NewHub(NewRegistry())
	conn := testConn(t, hub, Identity{UserID: "u1"})

	hub.Join(conn.id, "specials")
	hub.Join(conn.id, "specials")
	require.Equal(t, 1, hub.GroupSize("specials"))

	hub.Leave(conn.id, "specials")
	hub.Leave(conn.id, "specials")
	require.Zero(t, hub.GroupSize("specials"))
}

func TestHubBroadcastToOthersSkipsSender(t *testing.T) {
	hub := NewHub(NewRegistry())

	sender := testConn(t, hub, Identity{StaffID: "staff-5", Role: RoleStaff})
	peer := testConn(t, hub, Identity{StaffID: "staff-9", Role: RoleStaff})

	// Drain the presence announcements generated during registration.
	receive(t, sender)

	group := GroupRoom("room-1")
	hub.Join(sender.id, group)
	hub.Join(peer.id, group)

	hub.BroadcastToOthers(sender.id, group, EventUserTyping,
		ChatPresencePayload{RoomID: "room-1", StaffID: "staff-5"})

	message := receive(t, peer)
	require.Equal(t, EventUserTyping, message.Event)
	requireNoMessage(t, sender)
}

func TestHubPresenceScenario(t *testing.T) {
	registry := NewRegistry()
	hub := NewHub(registry)

	seven := testConn(t, hub, Identity{UserID: "u7", Role: RoleStaff, StaffID: "7"})
	twelve := testConn(t, hub, Identity{UserID: "u12", Role: RoleStaff, StaffID: "12"})

	// Staff 7 connected first, so it observes staff 12 coming online.
	online := receive(t, seven)
	require.Equal(t, EventStaffOnline, online.Event)
	require.Equal(t, PresencePayload{StaffID: "12"}, online.Data)

	require.Equal(t, []string{"12", "7"}, registry.OnlineStaff())

	hub.unregister(seven)

	offline := receive(t, twelve)
	require.Equal(t, EventStaffOffline, offline.Event)
	require.Equal(t, PresencePayload{StaffID: "7"}, offline.Data)
	require.Equal(t, []string{"12"}, registry.OnlineStaff())
}

func TestHubUnregisterRemovesAllMembership(t *testing.T) {
	hub := NewHub(NewRegistry())

	conn := testConn(t, hub, Identity{UserID: "u1", Role: RoleAdmin})
	hub.Join(conn.id, GroupDashboard)
	hub.Join(conn.id, GroupRoom("room-1"))

	hub.unregister(conn)

	require.Zero(t, hub.GroupSize(GroupDashboard))
	require.Zero(t, hub.GroupSize(GroupRoom("room-1")))

	// Broadcasts after unregister must not reach the closed connection.
	hub.Broadcast(GroupDashboard, EventRefreshDashboard, nil)
	requireNoMessage(t, conn)
}

func TestHubControlJoinRoomAnnouncesPeers(t *testing.T) {
	hub := NewHub(NewRegistry())

	alice := testConn(t, hub, Identity{StaffID: "staff-a", Role: RoleStaff})
	bob := testConn(t, hub, Identity{StaffID: "staff-b", Role: RoleStaff})
	receive(t, alice) // staff-b online announcement

	alice.handleControl(controlMessage{Action: actionJoinRoom, RoomID: "room-9"})
	bob.handleControl(controlMessage{Action: actionJoinRoom, RoomID: "room-9"})

	joined := receive(t, alice)
	require.Equal(t, EventUserJoinedChat, joined.Event)
	require.Equal(t, ChatPresencePayload{RoomID: "room-9", StaffID: "staff-b"}, joined.Data)

	bob.handleControl(controlMessage{Action: actionTyping, RoomID: "room-9"})
	typing := receive(t, alice)
	require.Equal(t, EventUserTyping, typing.Event)
}

func TestHubControlRejectsUnauthorizedJoins(t *testing.T) {
	hub := NewHub(NewRegistry())

	customer := testConn(t, hub, Identity{UserID: "cust-1", Role: RoleCustomer})

	customer.handleControl(controlMessage{Action: actionJoinAdmin})
	require.Zero(t, hub.GroupSize(GroupDashboard))

	customer.handleControl(controlMessage{Action: actionJoinUser, UserID: "someone-else"})
	require.Zero(t, hub.GroupSize(GroupUser("someone-else")))

	customer.handleControl(controlMessage{Action: actionJoinStaff, StaffID: "staff-1"})
	require.Zero(t, hub.GroupSize(GroupStaff("staff-1")))
}

func TestHubControlPresenceQueries(t *testing.T) {
	hub := NewHub(NewRegistry())

	staff := testConn(t, hub, Identity{StaffID: "staff-3", Role: RoleStaff})

	staff.handleControl(controlMessage{Action: actionOnlineStaff})
	reply := receive(t, staff)
	require.Equal(t, "online_staff", reply.Event)
	require.Equal(t, []string{"staff-3"}, reply.Data)

	staff.handleControl(controlMessage{Action: actionIsOnline, StaffID: "staff-3"})
	reply = receive(t, staff)
	require.Equal(t, "staff_status", reply.Event)
	require.Equal(t, map[string]any{"staff_id": "staff-3", "online": true}, reply.Data)
}

func TestHubOptions(t *testing.T) {
	hub := NewHub(NewRegistry(),
		WithIdleTimeout(30*time.Second),
		WithWriteWait(2*time.Second),
		WithSendBuffer(8),
	)

	require.Equal(t, 30*time.Second, hub.idleTimeout)
	require.Equal(t, 2*time.Second, hub.writeWait)
	require.Equal(t, 27*time.Second, hub.pingPeriod())

	conn := testConn(t, hub, Identity{StaffID: "staff-9", Role: RoleStaff})
	require.Equal(t, 8, cap(conn.send))

	// Zero values keep the defaults.
	fallback := NewHub(NewRegistry(), WithIdleTimeout(0), WithSendBuffer(0))
	require.Equal(t, defaultIdleTimeout, fallback.idleTimeout)
	require.Equal(t, defaultSendBuffer, fallback.sendBuffer)
}
