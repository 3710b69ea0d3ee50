package realtime

import "strings"

// GroupDashboard is the broadcast target for admin-wide notifications.
const GroupDashboard = "dashboard"

// Reserved group name prefixes. Joining these is validated against the
// connection identity; everything else is an open broadcast channel.
const (
	groupUserPrefix  = "user:"
	groupStaffPrefix = "staff:"
	groupRoomPrefix  = "room:"
	groupRolePrefix  = "role:"
)

// GroupUser returns the per-user group name.
func GroupUser(userID string) string {
	return groupUserPrefix + userID
}

// GroupStaff returns the per-staff group name.
func GroupStaff(staffID string) string {
	return groupStaffPrefix + staffID
}

// GroupRoom returns the per-chat-room group name.
func GroupRoom(roomID string) string {
	return groupRoomPrefix + roomID
}

// GroupRole returns the per-role group name.
func GroupRole(role string) string {
	return groupRolePrefix + strings.ToLower(role)
}

func normalizeGroup(group string) string {
	return strings.TrimSpace(group)
}

// canJoin reports whether a connection with the supplied identity may join the
// group. Admins may join anything; everyone else is limited to their own
// user/staff groups, their role group, and unreserved names. Room groups are
// open to any staff member since room membership is validated by the chat
// endpoints that hand out room ids.
func canJoin(identity Identity, group string) bool {
	if identity.Role == RoleAdmin {
		return true
	}

	switch {
	case group == GroupDashboard:
		return false
	case strings.HasPrefix(group, groupUserPrefix):
		return identity.UserID != "" && group == GroupUser(identity.UserID)
	case strings.HasPrefix(group, groupStaffPrefix):
		return identity.StaffID != "" && group == GroupStaff(identity.StaffID)
	case strings.HasPrefix(group, groupRolePrefix):
		return identity.Role != "" && group == GroupRole(identity.Role)
	case strings.HasPrefix(group, groupRoomPrefix):
		return identity.StaffID != ""
	default:
		return true
	}
}
