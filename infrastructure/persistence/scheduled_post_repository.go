package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"socialhub/domain/model"
)

var (
	// ErrNotFound is returned when a row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a conditional state transition did not
	// apply because the row was no longer in the expected state.
	ErrConflict = errors.New("state conflict")
)

// ScheduledPostRepository implements scheduling persistence on PostgreSQL.
type ScheduledPostRepository struct{ db *sql.DB }

func NewScheduledPostRepository(db *sql.DB) *ScheduledPostRepository {
	return &ScheduledPostRepository{db: db}
}

const scheduledPostColumns = `id, targets, content, scheduled_time, status, error_detail, published_at, claimed_at, created_at, updated_at`

func (r *ScheduledPostRepository) Create(ctx context.Context, post *model.ScheduledPost) error {
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
	q := `INSERT INTO scheduled_posts (id, targets, content, scheduled_time, status, created_at, updated_at)
		  VALUES ($1,$2,$3,$4,$5,$6,$7)`
	_, err = r.db.ExecContext(ctx, q, post.ID, targets, content, post.ScheduledTime, post.Status, post.CreatedAt, post.UpdatedAt)
	return err
}

func (r *ScheduledPostRepository) GetByID(ctx context.Context, id string) (*model.ScheduledPost, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+scheduledPostColumns+` FROM scheduled_posts WHERE id=$1`, id)
	post, err := scanScheduledPost(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return post, err
}

func (r *ScheduledPostRepository) List(ctx context.Context, status model.PostStatus, limit, offset int) ([]*model.ScheduledPost, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if status == "" {
		rows, err = r.db.QueryContext(ctx, `SELECT `+scheduledPostColumns+` FROM scheduled_posts ORDER BY scheduled_time DESC LIMIT $1 OFFSET $2`, limit, offset)
	} else {
		rows, err = r.db.QueryContext(ctx, `SELECT `+scheduledPostColumns+` FROM scheduled_posts WHERE status=$1 ORDER BY scheduled_time DESC LIMIT $2 OFFSET $3`, status, limit, offset)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectScheduledPosts(rows)
}

// ClaimDue transitions due rows from scheduled to publishing in one statement
// so that concurrent scheduler instances never claim the same post. SKIP
// LOCKED keeps instances from serializing on each other's candidate rows.
func (r *ScheduledPostRepository) ClaimDue(ctx context.Context, now time.Time, limit int) ([]*model.ScheduledPost, error) {
	q := `WITH due AS (
			SELECT id FROM scheduled_posts
			WHERE status='scheduled' AND scheduled_time <= $1
			ORDER BY scheduled_time
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		  )
		  UPDATE scheduled_posts p
		  SET status='publishing', claimed_at=$1, updated_at=$1
		  FROM due WHERE p.id = due.id
		  RETURNING p.id, p.targets, p.content, p.scheduled_time, p.status, p.error_detail, p.published_at, p.claimed_at, p.created_at, p.updated_at`
	rows, err := r.db.QueryContext(ctx, q, now.UTC(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectScheduledPosts(rows)
}

func (r *ScheduledPostRepository) ReleaseAbandoned(ctx context.Context, now time.Time, lease time.Duration) (int64, error) {
	cutoff := now.UTC().Add(-lease)
	res, err := r.db.ExecContext(ctx,
		`UPDATE scheduled_posts SET status='scheduled', claimed_at=NULL, updated_at=$1
		 WHERE status='publishing' AND claimed_at <= $2`, now.UTC(), cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *ScheduledPostRepository) MarkPublished(ctx context.Context, id string, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE scheduled_posts SET status='published', published_at=$1, updated_at=$1
		 WHERE id=$2 AND status='publishing'`, at.UTC(), id)
	return affectedOne(res, err)
}

func (r *ScheduledPostRepository) MarkFailed(ctx context.Context, id string, detail string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE scheduled_posts SET status='failed', error_detail=$1, updated_at=$2
		 WHERE id=$3 AND status='publishing'`, detail, time.Now().UTC(), id)
	return affectedOne(res, err)
}

func (r *ScheduledPostRepository) Cancel(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE scheduled_posts SET status='cancelled', updated_at=$1
		 WHERE id=$2 AND status='scheduled'`, time.Now().UTC(), id)
	return affectedOne(res, err)
}

func (r *ScheduledPostRepository) Retry(ctx context.Context, id string, scheduledTime time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE scheduled_posts SET status='scheduled', error_detail=NULL, claimed_at=NULL, scheduled_time=$1, updated_at=$2
		 WHERE id=$3 AND status='failed'`, scheduledTime.UTC(), time.Now().UTC(), id)
	return affectedOne(res, err)
}

func affectedOne(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConflict
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanScheduledPost(row rowScanner) (*model.ScheduledPost, error) {
	post := &model.ScheduledPost{}
	var (
		targets, content []byte
		errDetail        sql.NullString
		publishedAt      sql.NullTime
		claimedAt        sql.NullTime
	)
	if err := row.Scan(&post.ID, &targets, &content, &post.ScheduledTime, &post.Status,
		&errDetail, &publishedAt, &claimedAt, &post.CreatedAt, &post.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(targets, &post.Targets); err != nil {
		return nil, fmt.Errorf("decode targets for post %s: %w", post.ID, err)
	}
	if err := json.Unmarshal(content, &post.Content); err != nil {
		return nil, fmt.Errorf("decode content for post %s: %w", post.ID, err)
	}
	if errDetail.Valid {
		v := errDetail.String
		post.ErrorDetail = &v
	}
	if publishedAt.Valid {
		post.PublishedAt = &publishedAt.Time
	}
	if claimedAt.Valid {
		post.ClaimedAt = &claimedAt.Time
	}
	return post, nil
}

func collectScheduledPosts(rows *sql.Rows) ([]*model.ScheduledPost, error) {
	out := []*model.ScheduledPost{}
	for rows.Next() {
		post, err := scanScheduledPost(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, post)
	}
	return out, rows.Err()
}
