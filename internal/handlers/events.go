package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hqv2016/salonpulse/pkg/response"

	"github.com/hqv2016/salonpulse/internal/notify"
)

// EventHandler receives business events from the other platform services and
// hands them to the notification dispatcher. These routes are admin-only;
// regular clients never publish events.
type EventHandler struct {
	dispatcher *notify.Dispatcher
}

// NewEventHandler constructs an EventHandler.
func NewEventHandler(dispatcher *notify.Dispatcher) *EventHandler {
	return &EventHandler{dispatcher: dispatcher}
}

type newOrderEvent struct {
	OrderID      int64   `json:"order_id" validate:"required"`
	CustomerName string  `json:"customer_name" validate:"required"`
	TotalAmount  float64 `json:"total_amount"`
}

// NewOrder publishes a new-order notification.
func (h *EventHandler) NewOrder(c *gin.Context) {
	var event newOrderEvent
	if err := bindAndValidate(c, &event); err != nil {
		response.Error(c, err)
		return
	}

	h.dispatcher.NotifyNewOrder(c.Request.Context(), notify.NewOrderData{
		OrderID:      event.OrderID,
		CustomerName: event.CustomerName,
		TotalAmount:  event.TotalAmount,
	})
	response.Success(c, http.StatusAccepted, gin.H{"dispatched": true})
}

type orderStatusEvent struct {
	OrderID    int64  `json:"order_id" validate:"required"`
	CustomerID string `json:"customer_id" validate:"required"`
	Status     string `json:"status" validate:"required"`
}

// OrderStatusChanged publishes an order status transition.
func (h *EventHandler) OrderStatusChanged(c *gin.Context) {
	var event orderStatusEvent
	if err := bindAndValidate(c, &event); err != nil {
		response.Error(c, err)
		return
	}

	h.dispatcher.NotifyOrderStatusChanged(c.Request.Context(), notify.OrderStatusData{
		OrderID:    event.OrderID,
		CustomerID: event.CustomerID,
		Status:     event.Status,
	})
	response.Success(c, http.StatusAccepted, gin.H{"dispatched": true})
}

type newAppointmentEvent struct {
	AppointmentID int64     `json:"appointment_id" validate:"required"`
	CustomerName  string    `json:"customer_name" validate:"required"`
	ServiceName   string    `json:"service_name" validate:"required"`
	StartsAt      time.Time `json:"starts_at" validate:"required"`
	StaffID       string    `json:"staff_id"`
}

// NewAppointment publishes a new-appointment notification.
func (h *EventHandler) NewAppointment(c *gin.Context) {
	var event newAppointmentEvent
	if err := bindAndValidate(c, &event); err != nil {
		response.Error(c, err)
		return
	}

	h.dispatcher.NotifyNewAppointment(c.Request.Context(), notify.NewAppointmentData{
		AppointmentID: event.AppointmentID,
		CustomerName:  event.CustomerName,
		ServiceName:   event.ServiceName,
		StartsAt:      event.StartsAt,
		StaffID:       event.StaffID,
	})
	if event.StaffID != "" {
		h.dispatcher.NotifyStaffAssigned(c.Request.Context(), notify.StaffAssignedData{
			AppointmentID: event.AppointmentID,
			StaffID:       event.StaffID,
			ServiceName:   event.ServiceName,
			StartsAt:      event.StartsAt,
		})
	}
	response.Success(c, http.StatusAccepted, gin.H{"dispatched": true})
}

type appointmentStatusEvent struct {
	AppointmentID int64  `json:"appointment_id" validate:"required"`
	CustomerID    string `json:"customer_id" validate:"required"`
	StaffID       string `json:"staff_id"`
	Status        string `json:"status" validate:"required"`
}

// AppointmentStatusChanged publishes an appointment status transition.
func (h *EventHandler) AppointmentStatusChanged(c *gin.Context) {
	var event appointmentStatusEvent
	if err := bindAndValidate(c, &event); err != nil {
		response.Error(c, err)
		return
	}

	h.dispatcher.NotifyAppointmentStatusChanged(c.Request.Context(), notify.AppointmentStatusData{
		AppointmentID: event.AppointmentID,
		CustomerID:    event.CustomerID,
		StaffID:       event.StaffID,
		Status:        event.Status,
	})
	response.Success(c, http.StatusAccepted, gin.H{"dispatched": true})
}

type lowStockEvent struct {
	ProductID   int64  `json:"product_id" validate:"required"`
	ProductName string `json:"product_name" validate:"required"`
	Quantity    int    `json:"quantity"`
	Threshold   int    `json:"threshold"`
}

// LowStock publishes a low-stock warning.
func (h *EventHandler) LowStock(c *gin.Context) {
	var event lowStockEvent
	if err := bindAndValidate(c, &event); err != nil {
		response.Error(c, err)
		return
	}

	h.dispatcher.NotifyLowStock(c.Request.Context(), notify.LowStockData{
		ProductID:   event.ProductID,
		ProductName: event.ProductName,
		Quantity:    event.Quantity,
		Threshold:   event.Threshold,
	})
	response.Success(c, http.StatusAccepted, gin.H{"dispatched": true})
}

type newReviewEvent struct {
	ReviewID     int64  `json:"review_id" validate:"required"`
	StaffID      string `json:"staff_id" validate:"required"`
	Rating       int    `json:"rating" validate:"required,min=1,max=5"`
	CustomerName string `json:"customer_name" validate:"required"`
}

// NewReview publishes a new-review notification.
func (h *EventHandler) NewReview(c *gin.Context) {
	var event newReviewEvent
	if err := bindAndValidate(c, &event); err != nil {
		response.Error(c, err)
		return
	}

	h.dispatcher.NotifyNewReview(c.Request.Context(), notify.NewReviewData{
		ReviewID:     event.ReviewID,
		StaffID:      event.StaffID,
		Rating:       event.Rating,
		CustomerName: event.CustomerName,
	})
	response.Success(c, http.StatusAccepted, gin.H{"dispatched": true})
}

// RefreshDashboard asks every connected admin dashboard to re-pull aggregates.
func (h *EventHandler) RefreshDashboard(c *gin.Context) {
	h.dispatcher.RefreshDashboard(c.Request.Context())
	response.Success(c, http.StatusAccepted, gin.H{"dispatched": true})
}

type notifyUserEvent struct {
	Title   string `json:"title" validate:"required"`
	Message string `json:"message" validate:"required"`
}

// NotifyUser pushes a direct notification to one user.
func (h *EventHandler) NotifyUser(c *gin.Context) {
	var event notifyUserEvent
	if err := bindAndValidate(c, &event); err != nil {
		response.Error(c, err)
		return
	}

	h.dispatcher.NotifyUser(c.Request.Context(), c.Param("id"), event.Title, event.Message)
	response.Success(c, http.StatusAccepted, gin.H{"dispatched": true})
}
