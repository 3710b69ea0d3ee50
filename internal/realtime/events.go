package realtime

// Well-known roles carried by connection identities.
const (
	RoleAdmin    = "admin"
	RoleStaff    = "staff"
	RoleCustomer = "customer"
)

// Business notification events pushed to clients.
const (
	EventNewOrder                 = "NewOrder"
	EventOrderStatusChanged       = "OrderStatusChanged"
	EventNewAppointment           = "NewAppointment"
	EventAppointmentStatusChanged = "AppointmentStatusChanged"
	EventStaffAssigned            = "StaffAssigned"
	EventLowStock                 = "LowStock"
	EventNewReview                = "NewReview"
	EventRefreshDashboard         = "RefreshDashboard"
	EventReceiveNotification      = "ReceiveNotification"
)

// Presence events.
const (
	EventStaffOnline  = "StaffOnline"
	EventStaffOffline = "StaffOffline"
)

// Chat events.
const (
	EventReceiveChatMessage = "ReceiveChatMessage"
	EventChatMessageRead    = "ChatMessageRead"
	EventChatMessageDeleted = "ChatMessageDeleted"
	EventUserJoinedChat     = "UserJoinedChat"
	EventUserLeftChat       = "UserLeftChat"
	EventUserTyping         = "UserTyping"
	EventUserStoppedTyping  = "UserStoppedTyping"
)

// PresencePayload accompanies StaffOnline/StaffOffline events.
type PresencePayload struct {
	StaffID string `json:"staff_id"`
}

// ChatPresencePayload accompanies the chat room join/leave/typing events.
type ChatPresencePayload struct {
	RoomID  string `json:"room_id"`
	StaffID string `json:"staff_id"`
}
