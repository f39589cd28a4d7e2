package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"socialhub/domain/model"
)

// ScheduledPostRepositoryMSSQL implements scheduling persistence on
// Azure SQL / SQL Server. Claim exclusivity uses UPDATE TOP with READPAST so
// concurrent instances skip each other's locked rows.
type ScheduledPostRepositoryMSSQL struct{ db *sql.DB }

func NewScheduledPostRepositoryMSSQL(db *sql.DB) *ScheduledPostRepositoryMSSQL {
	return &ScheduledPostRepositoryMSSQL{db: db}
}

func (r *ScheduledPostRepositoryMSSQL) Create(ctx context.Context, post *model.ScheduledPost) error {
	now := time.Now().UTC()
	if post.CreatedAt.IsZero() {
		post.CreatedAt = now
	}
	post.UpdatedAt = now
	if post.Status == "" {
		post.Status = model.PostStatusScheduled
	}
	targets, err := json.Marshal(post.Targets)
	if err != nil {
		return err
	}
	content, err := json.Marshal(post.Content)
	if err != nil {
		return err
	}
	q := `INSERT INTO dbo.[scheduled_posts] (id, targets, content, scheduled_time, status, created_at, updated_at)
		  VALUES (@p1,@p2,@p3,@p4,@p5,@p6,@p7)`
	_, err = r.db.ExecContext(ctx, q, post.ID, string(targets), string(content), post.ScheduledTime, post.Status, post.CreatedAt, post.UpdatedAt)
	return err
}

func (r *ScheduledPostRepositoryMSSQL) GetByID(ctx context.Context, id string) (*model.ScheduledPost, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+scheduledPostColumns+` FROM dbo.[scheduled_posts] WHERE id=@p1`, id)
	post, err := scanScheduledPost(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return post, err
}

func (r *ScheduledPostRepositoryMSSQL) List(ctx context.Context, status model.PostStatus, limit, offset int) ([]*model.ScheduledPost, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if status == "" {
		rows, err = r.db.QueryContext(ctx,
			`SELECT `+scheduledPostColumns+` FROM dbo.[scheduled_posts] ORDER BY scheduled_time DESC OFFSET @p1 ROWS FETCH NEXT @p2 ROWS ONLY`, offset, limit)
	} else {
		rows, err = r.db.QueryContext(ctx,
			`SELECT `+scheduledPostColumns+` FROM dbo.[scheduled_posts] WHERE status=@p1 ORDER BY scheduled_time DESC OFFSET @p2 ROWS FETCH NEXT @p3 ROWS ONLY`, status, offset, limit)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectScheduledPosts(rows)
}

func (r *ScheduledPostRepositoryMSSQL) ClaimDue(ctx context.Context, now time.Time, limit int) ([]*model.ScheduledPost, error) {
	q := `UPDATE TOP (@p1) p
		  SET status='publishing', claimed_at=@p2, updated_at=@p2
		  OUTPUT inserted.id, inserted.targets, inserted.content, inserted.scheduled_time, inserted.status,
				 inserted.error_detail, inserted.published_at, inserted.claimed_at, inserted.created_at, inserted.updated_at
		  FROM dbo.[scheduled_posts] p WITH (READPAST, UPDLOCK, ROWLOCK)
		  WHERE p.status='scheduled' AND p.scheduled_time <= @p2`
	rows, err := r.db.QueryContext(ctx, q, limit, now.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectScheduledPosts(rows)
}

func (r *ScheduledPostRepositoryMSSQL) ReleaseAbandoned(ctx context.Context, now time.Time, lease time.Duration) (int64, error) {
	cutoff := now.UTC().Add(-lease)
	res, err := r.db.ExecContext(ctx,
		`UPDATE dbo.[scheduled_posts] SET status='scheduled', claimed_at=NULL, updated_at=@p1
		 WHERE status='publishing' AND claimed_at <= @p2`, now.UTC(), cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *ScheduledPostRepositoryMSSQL) MarkPublished(ctx context.Context, id string, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE dbo.[scheduled_posts] SET status='published', published_at=@p1, updated_at=@p1
		 WHERE id=@p2 AND status='publishing'`, at.UTC(), id)
	return affectedOne(res, err)
}

func (r *ScheduledPostRepositoryMSSQL) MarkFailed(ctx context.Context, id string, detail string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE dbo.[scheduled_posts] SET status='failed', error_detail=@p1, updated_at=@p2
		 WHERE id=@p3 AND status='publishing'`, detail, time.Now().UTC(), id)
	return affectedOne(res, err)
}

func (r *ScheduledPostRepositoryMSSQL) Cancel(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE dbo.[scheduled_posts] SET status='cancelled', updated_at=@p1
		 WHERE id=@p2 AND status='scheduled'`, time.Now().UTC(), id)
	return affectedOne(res, err)
}

func (r *ScheduledPostRepositoryMSSQL) Retry(ctx context.Context, id string, scheduledTime time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE dbo.[scheduled_posts] SET status='scheduled', error_detail=NULL, claimed_at=NULL, scheduled_time=@p1, updated_at=@p2
		 WHERE id=@p3 AND status='failed'`, scheduledTime.UTC(), time.Now().UTC(), id)
	return affectedOne(res, err)
}
