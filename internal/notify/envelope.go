package notify

import "time"

// Envelope is the normalized notification payload pushed to clients. Data
// carries exactly one of the typed payloads below, selected by Type.
type Envelope struct {
	Type      string    `json:"type"`
	Title     string    `json:"title,omitempty"`
	Message   string    `json:"message"`
	Data      any       `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewOrderData describes a freshly placed order.
type NewOrderData struct {
	OrderID      int64   `json:"order_id"`
	CustomerName string  `json:"customer_name"`
	TotalAmount  float64 `json:"total_amount"`
}

// OrderStatusData describes an order status transition for its customer.
type OrderStatusData struct {
	OrderID    int64  `json:"order_id"`
	CustomerID string `json:"customer_id"`
	Status     string `json:"status"`
}

// NewAppointmentData describes a freshly booked appointment.
type NewAppointmentData struct {
	AppointmentID int64     `json:"appointment_id"`
	CustomerName  string    `json:"customer_name"`
	ServiceName   string    `json:"service_name"`
	StartsAt      time.Time `json:"starts_at"`
	StaffID       string    `json:"staff_id,omitempty"`
}

// AppointmentStatusData describes an appointment status transition.
type AppointmentStatusData struct {
	AppointmentID int64  `json:"appointment_id"`
	CustomerID    string `json:"customer_id"`
	StaffID       string `json:"staff_id,omitempty"`
	Status        string `json:"status"`
}

// StaffAssignedData tells a staff member they were booked for an appointment.
type StaffAssignedData struct {
	AppointmentID int64     `json:"appointment_id"`
	StaffID       string    `json:"staff_id"`
	ServiceName   string    `json:"service_name"`
	StartsAt      time.Time `json:"starts_at"`
}

// LowStockData flags a product that fell below its reorder threshold.
type LowStockData struct {
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
	Threshold   int    `json:"threshold"`
}

// NewReviewData describes a review left for a staff member.
type NewReviewData struct {
	ReviewID     int64  `json:"review_id"`
	StaffID      string `json:"staff_id"`
	Rating       int    `json:"rating"`
	CustomerName string `json:"customer_name"`
}

// UserMessageData is the payload of a direct user notification.
type UserMessageData struct {
	UserID string `json:"user_id"`
}
