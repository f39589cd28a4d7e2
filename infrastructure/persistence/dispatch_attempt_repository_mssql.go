package persistence

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"socialhub/domain/model"
)

// DispatchAttemptRepositoryMSSQL is the append-only ledger on Azure SQL.
type DispatchAttemptRepositoryMSSQL struct{ db *sql.DB }

func NewDispatchAttemptRepositoryMSSQL(db *sql.DB) *DispatchAttemptRepositoryMSSQL {
	return &DispatchAttemptRepositoryMSSQL{db: db}
}

func (r *DispatchAttemptRepositoryMSSQL) Record(ctx context.Context, attempt *model.DispatchAttempt) (bool, error) {
	if attempt.CreatedAt.IsZero() {
		attempt.CreatedAt = time.Now().UTC()
	}
	var occurrence interface{}
	if attempt.OccurrenceKey != "" {
		occurrence = attempt.OccurrenceKey
	}
	q := `INSERT INTO dbo.[dispatch_attempts] (` + attemptColumns + `)
		  VALUES (@p1,@p2,@p3,@p4,@p5,@p6,@p7,@p8,@p9,@p10,@p11)`
	_, err := r.db.ExecContext(ctx, q,
		attempt.ID, attempt.OriginKind, attempt.OriginID, occurrence, attempt.Platform,
		attempt.AccountRef, attempt.AttemptNumber, attempt.Outcome, attempt.RemoteID,
		attempt.ErrorDetail, attempt.CreatedAt)
	if err != nil {
		// Duplicate occurrence key trips the filtered unique index; treat it
		// as the not-inserted idempotency signal, same as Postgres.
		if strings.Contains(err.Error(), "idx_dispatch_attempts_occurrence") {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *DispatchAttemptRepositoryMSSQL) ListByOrigin(ctx context.Context, kind model.OriginKind, originID string) ([]*model.DispatchAttempt, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+attemptColumns+` FROM dbo.[dispatch_attempts] WHERE origin_kind=@p1 AND origin_id=@p2 ORDER BY created_at`, kind, originID)
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

func (r *DispatchAttemptRepositoryMSSQL) HasOccurrence(ctx context.Context, key string) (bool, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM dbo.[dispatch_attempts] WHERE occurrence_key=@p1`, key)
	var one int
	if err := row.Scan(&one); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
