package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	apperrors "github.com/hqv2016/salonpulse/pkg/errors"

	"github.com/hqv2016/salonpulse/internal/models"
)

const (
	defaultNotificationPageSize = 20
	maxNotificationPageSize     = 100
)

// NotificationService exposes read and acknowledgement operations over the
// persisted notification feed.
type NotificationService struct {
	db *gorm.DB
}

// NewNotificationService constructs a NotificationService.
func NewNotificationService(db *gorm.DB) (*NotificationService, error) {
	if db == nil {
		return nil, errors.New("services: database handle is required")
	}
	return &NotificationService{db: db}, nil
}

// NotificationListParams filters and paginates the notification feed.
type NotificationListParams struct {
	Page       int
	PageSize   int
	UnreadOnly bool
}

// NotificationList is a page of the feed plus the counters the dashboard
// renders alongside it.
type NotificationList struct {
	Items       []models.Notification `json:"items"`
	Total       int64                 `json:"total"`
	UnreadCount int64                 `json:"unread_count"`
}

// List returns notifications newest first.
func (s *NotificationService) List(ctx context.Context, params NotificationListParams) (*NotificationList, error) {
	ctx = ensureContext(ctx)

	if params.Page < 1 {
		params.Page = 1
	}
	if params.PageSize < 1 {
		params.PageSize = defaultNotificationPageSize
	}
	if params.PageSize > maxNotificationPageSize {
		params.PageSize = maxNotificationPageSize
	}

	query := s.db.WithContext(ctx).Model(&models.Notification{}).Session(&gorm.Session{})
	if params.UnreadOnly {
		query = query.Where("is_read = ?", false)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, apperrors.Wrap(err, "failed to count notifications")
	}

	var items []models.Notification
	if err := query.
		Order("created_at DESC").
		Offset((params.Page - 1) * params.PageSize).
		Limit(params.PageSize).
		Find(&items).Error; err != nil {
		return nil, apperrors.Wrap(err, "failed to list notifications")
	}

	unread, err := s.UnreadCount(ctx)
	if err != nil {
		return nil, err
	}

	return &NotificationList{Items: items, Total: total, UnreadCount: unread}, nil
}

// UnreadCount returns the number of unread notifications.
func (s *NotificationService) UnreadCount(ctx context.Context) (int64, error) {
	ctx = ensureContext(ctx)

	var count int64
	if err := s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("is_read = ?", false).
		Count(&count).Error; err != nil {
		return 0, apperrors.Wrap(err, "failed to count unread notifications")
	}
	return count, nil
}

// MarkRead flips a single notification to read. Marking an already read
// notification is a no-op, not an error.
func (s *NotificationService) MarkRead(ctx context.Context, id string) (*models.Notification, error) {
	ctx = ensureContext(ctx)

	var notification models.Notification
	if err := s.db.WithContext(ctx).First(&notification, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.Wrap(err, "failed to load notification")
	}

	if notification.IsRead {
		return &notification, nil
	}

	now := time.Now().UTC()
	notification.IsRead = true
	notification.ReadAt = &now
	if err := s.db.WithContext(ctx).
		Model(&notification).
		Updates(map[string]any{"is_read": true, "read_at": now}).Error; err != nil {
		return nil, apperrors.Wrap(err, "failed to mark notification read")
	}
	return &notification, nil
}

// MarkAllRead flips every unread notification to read and returns how many
// rows changed.
func (s *NotificationService) MarkAllRead(ctx context.Context) (int64, error) {
	ctx = ensureContext(ctx)

	now := time.Now().UTC()
	result := s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("is_read = ?", false).
		Updates(map[string]any{"is_read": true, "read_at": now})
	if result.Error != nil {
		return 0, apperrors.Wrap(result.Error, "failed to mark notifications read")
	}
	return result.RowsAffected, nil
}
