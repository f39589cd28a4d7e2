package persistence

import (
	"context"
	"database/sql"
	"time"

	"socialhub/domain/model"
)

// DispatchAttemptRepository is the append-only ledger on PostgreSQL. Rows are
// inserted, never updated or deleted.
type DispatchAttemptRepository struct{ db *sql.DB }

func NewDispatchAttemptRepository(db *sql.DB) *DispatchAttemptRepository {
	return &DispatchAttemptRepository{db: db}
}

const attemptColumns = `id, origin_kind, origin_id, occurrence_key, platform, account_ref, attempt_number, outcome, remote_id, error_detail, created_at`

// Record inserts one attempt. A duplicate occurrence key is swallowed by the
// partial unique index and reported as inserted=false; that is the
// idempotency signal the rule engine checks before re-firing.
func (r *DispatchAttemptRepository) Record(ctx context.Context, attempt *model.DispatchAttempt) (bool, error) {
	if attempt.CreatedAt.IsZero() {
		attempt.CreatedAt = time.Now().UTC()
	}
	var occurrence interface{}
	if attempt.OccurrenceKey != "" {
		occurrence = attempt.OccurrenceKey
	}
	q := `INSERT INTO dispatch_attempts (` + attemptColumns + `)
		  VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		  ON CONFLICT (occurrence_key) WHERE occurrence_key IS NOT NULL DO NOTHING`
	res, err := r.db.ExecContext(ctx, q,
		attempt.ID, attempt.OriginKind, attempt.OriginID, occurrence, attempt.Platform,
		attempt.AccountRef, attempt.AttemptNumber, attempt.Outcome, attempt.RemoteID,
		attempt.ErrorDetail, attempt.CreatedAt)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *DispatchAttemptRepository) ListByOrigin(ctx context.Context, kind model.OriginKind, originID string) ([]*model.DispatchAttempt, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+attemptColumns+` FROM dispatch_attempts WHERE origin_kind=$1 AND origin_id=$2 ORDER BY created_at`, kind, originID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []*model.DispatchAttempt{}
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *DispatchAttemptRepository) HasOccurrence(ctx context.Context, key string) (bool, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM dispatch_attempts WHERE occurrence_key=$1`, key)
	var one int
	if err := row.Scan(&one); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func scanAttempt(row rowScanner) (*model.DispatchAttempt, error) {
	a := &model.DispatchAttempt{}
	var (
		occurrence sql.NullString
		remoteID   sql.NullString
		errDetail  sql.NullString
	)
	if err := row.Scan(&a.ID, &a.OriginKind, &a.OriginID, &occurrence, &a.Platform,
		&a.AccountRef, &a.AttemptNumber, &a.Outcome, &remoteID, &errDetail, &a.CreatedAt); err != nil {
		return nil, err
	}
	if occurrence.Valid {
		a.OccurrenceKey = occurrence.String
	}
	if remoteID.Valid {
		v := remoteID.String
		a.RemoteID = &v
	}
	if errDetail.Valid {
		v := errDetail.String
		a.ErrorDetail = &v
	}
	return a, nil
}
