package repository

import (
	"context"
	"time"

	"socialhub/domain/model"
)

// IScheduledPost is the persistence contract for the publish scheduler. All
// state transitions are conditional updates so any number of scheduler
// instances can run against the same database.
type IScheduledPost interface {
	Create(ctx context.Context, post *model.ScheduledPost) error
	GetByID(ctx context.Context, id string) (*model.ScheduledPost, error)
	List(ctx context.Context, status model.PostStatus, limit, offset int) ([]*model.ScheduledPost, error)
	// ClaimDue atomically moves up to limit due posts from scheduled to
	// publishing and returns the claimed rows. A post claimed by one caller
	// is never returned to another.
	ClaimDue(ctx context.Context, now time.Time, limit int) ([]*model.ScheduledPost, error)
	// ReleaseAbandoned reverts posts stuck in publishing longer than the
	// lease duration back to scheduled. Returns the number of rows released.
	ReleaseAbandoned(ctx context.Context, now time.Time, lease time.Duration) (int64, error)
	// MarkPublished finishes a claimed post. Only applies while publishing.
	MarkPublished(ctx context.Context, id string, at time.Time) error
	// MarkFailed finishes a claimed post with operator-readable detail.
	MarkFailed(ctx context.Context, id string, detail string) error
	// Cancel succeeds only while the post is still scheduled.
	Cancel(ctx context.Context, id string) error
	// Retry re-enters scheduled from failed (operator action).
	Retry(ctx context.Context, id string, scheduledTime time.Time) error
}
