package maintenance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/hqv2016/salonpulse/pkg/logger"

	"github.com/hqv2016/salonpulse/internal/models"
)

const (
	defaultSchedule              = "@hourly"
	defaultStaleAfter            = 5 * time.Minute
	defaultNotificationRetention = 30 * 24 * time.Hour
)

// StaleCloser reaps connections whose heartbeat stopped.
type StaleCloser interface {
	CloseStale(maxAge time.Duration) int
}

// Option customises a Cleaner.
type Option func(*Cleaner)

// WithSchedule overrides the cron schedule expression.
func WithSchedule(schedule string) Option {
	return func(c *Cleaner) { c.schedule = schedule }
}

// WithStaleAfter overrides how long a silent connection survives.
func WithStaleAfter(d time.Duration) Option {
	return func(c *Cleaner) { c.staleAfter = d }
}

// WithNotificationRetention overrides how long read notifications are kept.
func WithNotificationRetention(d time.Duration) Option {
	return func(c *Cleaner) { c.notificationRetention = d }
}

// Cleaner owns the periodic housekeeping: reaping dead connections and
// trimming old read notifications.
type Cleaner struct {
	db  *gorm.DB
	hub StaleCloser
	log *zap.Logger

	schedule              string
	staleAfter            time.Duration
	notificationRetention time.Duration

	cron *cron.Cron
}

// NewCleaner constructs a Cleaner.
func NewCleaner(db *gorm.DB, hub StaleCloser, opts ...Option) (*Cleaner, error) {
	if db == nil {
		return nil, errors.New("maintenance: database handle is required")
	}
	if hub == nil {
		return nil, errors.New("maintenance: stale closer is required")
	}

	c := &Cleaner{
		db:                    db,
		hub:                   hub,
		log:                   logger.WithModule("maintenance"),
		schedule:              defaultSchedule,
		staleAfter:            defaultStaleAfter,
		notificationRetention: defaultNotificationRetention,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Start schedules the cleanup job. Stop must be called on shutdown.
func (c *Cleaner) Start() error {
	if c.cron != nil {
		return errors.New("maintenance: cleaner already started")
	}

	runner := cron.New()
	if _, err := runner.AddFunc(c.schedule, func() {
		if err := c.RunOnce(context.Background()); err != nil {
			c.log.Error("cleanup run failed", zap.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("maintenance: schedule %q: %w", c.schedule, err)
	}

	c.cron = runner
	runner.Start()
	return nil
}

// Stop halts the schedule and waits for a running job to finish.
func (c *Cleaner) Stop() {
	if c.cron == nil {
		return
	}
	<-c.cron.Stop().Done()
	c.cron = nil
}

// RunOnce executes every cleanup task, collecting rather than short-circuiting
// on failure so one broken task does not starve the others.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	var errs error

	reaped := c.hub.CloseStale(c.staleAfter)
	if reaped > 0 {
		c.log.Info("reaped stale connections", zap.Int("count", reaped))
	}

	if err := c.trimNotifications(ctx); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("trim notifications: %w", err))
	}

	return errs
}

// trimNotifications deletes read notifications older than the retention
// window. Unread notifications are kept indefinitely.
func (c *Cleaner) trimNotifications(ctx context.Context) error {
	cutoff := time.Now().UTC().Add(-c.notificationRetention)

	result := c.db.WithContext(ctx).
		Where("is_read = ? AND created_at < ?", true, cutoff).
		Delete(&models.Notification{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		c.log.Info("trimmed notifications", zap.Int64("count", result.RowsAffected))
	}
	return nil
}
