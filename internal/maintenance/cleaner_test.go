package maintenance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hqv2016/salonpulse/internal/database/testutil"
	"github.com/hqv2016/salonpulse/internal/models"
)

type fakeCloser struct {
	calls  int
	maxAge time.Duration
}

func (f *fakeCloser) CloseStale(maxAge time.Duration) int {
	f.calls++
	f.maxAge = maxAge
	return 2
}

func TestRunOnceReapsAndTrims(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	closer := &fakeCloser{}

	cleaner, err := NewCleaner(db, closer,
		WithStaleAfter(90*time.Second),
		WithNotificationRetention(24*time.Hour),
	)
	require.NoError(t, err)

	old := models.Notification{Type: "NewOrder", Title: "old", IsRead: true}
	require.NoError(t, db.Create(&old).Error)
	require.NoError(t, db.Model(&old).
		Update("created_at", time.Now().UTC().Add(-48*time.Hour)).Error)

	// Unread entries survive no matter how old they are.
	oldUnread := models.Notification{Type: "NewOrder", Title: "old unread"}
	require.NoError(t, db.Create(&oldUnread).Error)
	require.NoError(t, db.Model(&oldUnread).
		Update("created_at", time.Now().UTC().Add(-48*time.Hour)).Error)

	fresh := models.Notification{Type: "NewOrder", Title: "fresh", IsRead: true}
	require.NoError(t, db.Create(&fresh).Error)

	require.NoError(t, cleaner.RunOnce(context.Background()))

	require.Equal(t, 1, closer.calls)
	require.Equal(t, 90*time.Second, closer.maxAge)

	var remaining []models.Notification
	require.NoError(t, db.Find(&remaining).Error)
	require.Len(t, remaining, 2)
	for _, n := range remaining {
		require.NotEqual(t, old.ID, n.ID)
	}
}

func TestCleanerRejectsBadSchedule(t *testing.T) {
	db := testutil.MustOpenTestDB(t)
	cleaner, err := NewCleaner(db, &fakeCloser{}, WithSchedule("not a schedule"))
	require.NoError(t, err)
	require.Error(t, cleaner.Start())
}
