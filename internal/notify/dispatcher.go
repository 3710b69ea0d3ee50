package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/hqv2016/salonpulse/internal/models"
	"github.com/hqv2016/salonpulse/internal/realtime"
	"github.com/hqv2016/salonpulse/pkg/logger"
	"github.com/hqv2016/salonpulse/pkg/metrics"
)

// Broadcaster is the slice of the realtime hub the dispatcher needs.
type Broadcaster interface {
	Broadcast(group, event string, data any)
}

// Dispatcher builds notification envelopes, persists the admin-facing ones and
// fans them out through the realtime hub. Pushes are best-effort: a failed
// durable write is logged and the live push still proceeds, and delivery to
// connections that are already gone is silently dropped by the hub.
type Dispatcher struct {
	db  *gorm.DB
	hub Broadcaster
	log *zap.Logger
	now func() time.Time
}

// NewDispatcher constructs a Dispatcher.
func NewDispatcher(db *gorm.DB, hub Broadcaster) (*Dispatcher, error) {
	if hub == nil {
		return nil, errors.New("notify: hub is required")
	}
	return &Dispatcher{
		db:  db,
		hub: hub,
		log: logger.WithModule("notify"),
		now: time.Now,
	}, nil
}

// NotifyNewOrder announces a new order on the admin dashboard.
func (d *Dispatcher) NotifyNewOrder(ctx context.Context, data NewOrderData) {
	envelope := Envelope{
		Type:      realtime.EventNewOrder,
		Title:     "New order",
		Message:   fmt.Sprintf("Order #%d placed by %s ($%.2f)", data.OrderID, data.CustomerName, data.TotalAmount),
		Data:      data,
		Timestamp: d.now().UTC(),
	}

	d.persist(ctx, envelope, strconv.FormatInt(data.OrderID, 10), "order", fmt.Sprintf("/admin/orders/%d", data.OrderID))
	d.hub.Broadcast(realtime.GroupDashboard, envelope.Type, envelope)
}

// NotifyOrderStatusChanged tells the customer their order moved to a new status.
func (d *Dispatcher) NotifyOrderStatusChanged(ctx context.Context, data OrderStatusData) {
	envelope := Envelope{
		Type:      realtime.EventOrderStatusChanged,
		Title:     "Order update",
		Message:   fmt.Sprintf("Order #%d is now %s", data.OrderID, data.Status),
		Data:      data,
		Timestamp: d.now().UTC(),
	}

	d.hub.Broadcast(realtime.GroupUser(data.CustomerID), envelope.Type, envelope)
}

// NotifyNewAppointment announces a new booking on the admin dashboard.
func (d *Dispatcher) NotifyNewAppointment(ctx context.Context, data NewAppointmentData) {
	envelope := Envelope{
		Type:      realtime.EventNewAppointment,
		Title:     "New appointment",
		Message:   fmt.Sprintf("%s booked %s for %s", data.CustomerName, data.ServiceName, data.StartsAt.Format("Jan 2 15:04")),
		Data:      data,
		Timestamp: d.now().UTC(),
	}

	d.persist(ctx, envelope, strconv.FormatInt(data.AppointmentID, 10), "appointment", fmt.Sprintf("/admin/appointments/%d", data.AppointmentID))
	d.hub.Broadcast(realtime.GroupDashboard, envelope.Type, envelope)
}

// NotifyAppointmentStatusChanged tells the customer (and the assigned staff
// member, if any) that an appointment changed status.
func (d *Dispatcher) NotifyAppointmentStatusChanged(ctx context.Context, data AppointmentStatusData) {
	envelope := Envelope{
		Type:      realtime.EventAppointmentStatusChanged,
		Title:     "Appointment update",
		Message:   fmt.Sprintf("Appointment #%d is now %s", data.AppointmentID, data.Status),
		Data:      data,
		Timestamp: d.now().UTC(),
	}

	d.hub.Broadcast(realtime.GroupUser(data.CustomerID), envelope.Type, envelope)
	if data.StaffID != "" {
		d.hub.Broadcast(realtime.GroupStaff(data.StaffID), envelope.Type, envelope)
	}
}

// NotifyStaffAssigned tells a staff member they were booked.
func (d *Dispatcher) NotifyStaffAssigned(ctx context.Context, data StaffAssignedData) {
	envelope := Envelope{
		Type:      realtime.EventStaffAssigned,
		Title:     "New assignment",
		Message:   fmt.Sprintf("You were assigned %s on %s", data.ServiceName, data.StartsAt.Format("Jan 2 15:04")),
		Data:      data,
		Timestamp: d.now().UTC(),
	}

	d.persist(ctx, envelope, strconv.FormatInt(data.AppointmentID, 10), "appointment", fmt.Sprintf("/admin/appointments/%d", data.AppointmentID))
	d.hub.Broadcast(realtime.GroupStaff(data.StaffID), envelope.Type, envelope)
}

// NotifyLowStock flags low inventory on the admin dashboard.
func (d *Dispatcher) NotifyLowStock(ctx context.Context, data LowStockData) {
	envelope := Envelope{
		Type:      realtime.EventLowStock,
		Title:     "Low stock",
		Message:   fmt.Sprintf("%s is down to %d (threshold %d)", data.ProductName, data.Quantity, data.Threshold),
		Data:      data,
		Timestamp: d.now().UTC(),
	}

	d.persist(ctx, envelope, strconv.FormatInt(data.ProductID, 10), "product", fmt.Sprintf("/admin/products/%d", data.ProductID))
	d.hub.Broadcast(realtime.GroupDashboard, envelope.Type, envelope)
}

// NotifyNewReview announces a review to the reviewed staff member and the
// admin dashboard.
func (d *Dispatcher) NotifyNewReview(ctx context.Context, data NewReviewData) {
	envelope := Envelope{
		Type:      realtime.EventNewReview,
		Title:     "New review",
		Message:   fmt.Sprintf("%s left a %d-star review", data.CustomerName, data.Rating),
		Data:      data,
		Timestamp: d.now().UTC(),
	}

	d.persist(ctx, envelope, strconv.FormatInt(data.ReviewID, 10), "review", fmt.Sprintf("/admin/reviews/%d", data.ReviewID))
	d.hub.Broadcast(realtime.GroupStaff(data.StaffID), envelope.Type, envelope)
	d.hub.Broadcast(realtime.GroupDashboard, envelope.Type, envelope)
}

// RefreshDashboard asks every admin dashboard to re-pull its aggregates.
func (d *Dispatcher) RefreshDashboard(ctx context.Context) {
	envelope := Envelope{
		Type:      realtime.EventRefreshDashboard,
		Message:   "refresh",
		Timestamp: d.now().UTC(),
	}

	d.hub.Broadcast(realtime.GroupDashboard, envelope.Type, envelope)
}

// NotifyUser pushes a direct notification to a single user's connections.
func (d *Dispatcher) NotifyUser(ctx context.Context, userID, title, message string) {
	envelope := Envelope{
		Type:      realtime.EventReceiveNotification,
		Title:     title,
		Message:   message,
		Data:      UserMessageData{UserID: userID},
		Timestamp: d.now().UTC(),
	}

	d.hub.Broadcast(realtime.GroupUser(userID), envelope.Type, envelope)
}

// persist writes the durable record for admin-facing notifications. Failures
// are logged and swallowed so the live push still goes out; the gap shows up
// in logs and the persistence failure counter, not as a client error.
func (d *Dispatcher) persist(ctx context.Context, envelope Envelope, relatedID, relatedType, actionURL string) {
	if d.db == nil {
		return
	}

	record := models.Notification{
		Type:              envelope.Type,
		Title:             envelope.Title,
		Content:           envelope.Message,
		ActionURL:         actionURL,
		RelatedEntityID:   relatedID,
		RelatedEntityType: relatedType,
	}

	if envelope.Data != nil {
		if data, err := json.Marshal(envelope.Data); err == nil {
			record.Data = datatypes.JSON(data)
		} else {
			d.log.Warn("marshal notification data", zap.String("type", envelope.Type), zap.Error(err))
		}
	}

	if err := d.db.WithContext(ctx).Create(&record).Error; err != nil {
		metrics.NotificationsPersisted.WithLabelValues("failure").Inc()
		d.log.Error("persist notification",
			zap.String("type", envelope.Type),
			zap.String("related_entity_id", relatedID),
			zap.Error(err))
		return
	}
	metrics.NotificationsPersisted.WithLabelValues("success").Inc()
}
