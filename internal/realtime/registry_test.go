package realtime

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRegistryPresenceTransitions(t *testing.T) {
	registry := NewRegistry()

	cameOnline := registry.Register("conn-1", Identity{UserID: "u1", Role: RoleStaff, StaffID: "staff-7"})
	require.True(t, cameOnline)
	require.True(t, registry.IsOnline("staff-7"))

	// Second connection for the same staff member must not re-announce.
	cameOnline = registry.Register("conn-2", Identity{UserID: "u1", Role: RoleStaff, StaffID: "staff-7"})
	require.False(t, cameOnline)
	require.Equal(t, 2, registry.Count())

	_, wentOffline := registry.Unregister("conn-1")
	require.False(t, wentOffline)
	require.True(t, registry.IsOnline("staff-7"))

	_, wentOffline = registry.Unregister("conn-2")
	require.True(t, wentOffline)
	require.False(t, registry.IsOnline("staff-7"))
	require.Empty(t, registry.OnlineStaff())
}

func TestRegistryIgnoresDuplicateAndUnknownIDs(t *testing.T) {
	registry := NewRegistry()

	require.True(t, registry.Register("conn-1", Identity{StaffID: "staff-1"}))
	require.False(t, registry.Register("conn-1", Identity{StaffID: "staff-1"}))
	require.Equal(t, 1, registry.Count())

	_, wentOffline := registry.Unregister("missing")
	require.False(t, wentOffline)
	require.Equal(t, 1, registry.Count())
}

func TestRegistryNonStaffConnectionsDoNotAffectPresence(t *testing.T) {
	registry := NewRegistry()

	require.False(t, registry.Register("conn-1", Identity{UserID: "customer-1", Role: RoleCustomer}))
	require.Empty(t, registry.OnlineStaff())

	_, wentOffline := registry.Unregister("conn-1")
	require.False(t, wentOffline)
}

func TestRegistryConcurrentConnectDisconnect(t *testing.T) {
	registry := NewRegistry()

	const workers = 64
	var wg sync.WaitGroup
	var onlineEvents, offlineEvents int64
	var counterMu sync.Mutex

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			connID := fmt.Sprintf("conn-%d", i)
			if registry.Register(connID, Identity{StaffID: "staff-9"}) {
				counterMu.Lock()
				onlineEvents++
				counterMu.Unlock()
			}
			if _, wentOffline := registry.Unregister(connID); wentOffline {
				counterMu.Lock()
				offlineEvents++
				counterMu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	require.Zero(t, registry.Count())
	require.False(t, registry.IsOnline("staff-9"))
	// Transitions may interleave arbitrarily, but every online announcement
	// must be paired with exactly one offline announcement.
	require.Equal(t, onlineEvents, offlineEvents)
	require.GreaterOrEqual(t, onlineEvents, int64(1))
}

func TestRegistryOnlineStaffSorted(t *testing.T) {
	registry := NewRegistry()

	registry.Register("c1", Identity{StaffID: "staff-12"})
	registry.Register("c2", Identity{StaffID: "staff-07"})
	registry.Register("c3", Identity{StaffID: "staff-07"})

	require.Equal(t, []string{"staff-07", "staff-12"}, registry.OnlineStaff())
}

func TestRegistryStaleConnections(t *testing.T) {
	registry := NewRegistry()
	current := time.Now()
	registry.now = func() time.Time { return current }

	registry.Register("conn-old", Identity{StaffID: "staff-1"})

	current = current.Add(2 * time.Minute)
	registry.Register("conn-fresh", Identity{StaffID: "staff-2"})

	stale := registry.StaleConnections(time.Minute)
	require.Equal(t, []string{"conn-old"}, stale)

	registry.Touch("conn-old")
	require.Empty(t, registry.StaleConnections(time.Minute))
}
