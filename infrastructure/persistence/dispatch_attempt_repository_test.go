package persistence

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"socialhub/domain/model"
)

func sampleAttempt() *model.DispatchAttempt {
	return &model.DispatchAttempt{
		ID:            "attempt-1",
		OriginKind:    model.OriginRule,
		OriginID:      "rule-1",
		OccurrenceKey: "rule:rule-1:time:2026-03-01T09:00:00Z",
		Platform:      "twitter",
		AccountRef:    "acct-a",
		AttemptNumber: 1,
		Outcome:       model.OutcomeSuccess,
		CreatedAt:     time.Date(2026, 3, 1, 9, 0, 1, 0, time.UTC),
	}
}

func TestDispatchAttemptRepository_Record(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repository := NewDispatchAttemptRepository(db)
	attempt := sampleAttempt()

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO dispatch_attempts`)).
		WithArgs(attempt.ID, attempt.OriginKind, attempt.OriginID, attempt.OccurrenceKey,
			attempt.Platform, attempt.AccountRef, attempt.AttemptNumber, attempt.Outcome,
			nil, nil, attempt.CreatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	inserted, err := repository.Record(context.Background(), attempt)
	require.NoError(t, err)
	require.True(t, inserted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDispatchAttemptRepository_Record_DuplicateOccurrence(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repository := NewDispatchAttemptRepository(db)
	attempt := sampleAttempt()

	// ON CONFLICT DO NOTHING reports zero rows affected for the duplicate.
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO dispatch_attempts`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	inserted, err := repository.Record(context.Background(), attempt)
	require.NoError(t, err)
	require.False(t, inserted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDispatchAttemptRepository_HasOccurrence(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repository := NewDispatchAttemptRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT 1 FROM dispatch_attempts WHERE occurrence_key=$1`)).
		WithArgs("known-key").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	found, err := repository.HasOccurrence(context.Background(), "known-key")
	require.NoError(t, err)
	require.True(t, found)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT 1 FROM dispatch_attempts WHERE occurrence_key=$1`)).
		WithArgs("unknown-key").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}))

	found, err = repository.HasOccurrence(context.Background(), "unknown-key")
	require.NoError(t, err)
	require.False(t, found)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDispatchAttemptRepository_ListByOrigin(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repository := NewDispatchAttemptRepository(db)
	created := time.Date(2026, 3, 1, 9, 0, 1, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM dispatch_attempts WHERE origin_kind=$1 AND origin_id=$2`)).
		WithArgs(model.OriginPost, "post-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "origin_kind", "origin_id", "occurrence_key", "platform",
			"account_ref", "attempt_number", "outcome", "remote_id", "error_detail", "created_at",
		}).
			AddRow("a-1", model.OriginPost, "post-1", nil, "twitter", "acct-a", 1, model.OutcomeTransient, nil, "transient: platform call failed", created).
			AddRow("a-2", model.OriginPost, "post-1", nil, "twitter", "acct-a", 2, model.OutcomeSuccess, "remote-1", nil, created.Add(time.Second)))

	attempts, err := repository.ListByOrigin(context.Background(), model.OriginPost, "post-1")
	require.NoError(t, err)
	require.Len(t, attempts, 2)
	require.Equal(t, 2, attempts[1].AttemptNumber)
	require.NotNil(t, attempts[1].RemoteID)
	require.Equal(t, "remote-1", *attempts[1].RemoteID)
	require.NotNil(t, attempts[0].ErrorDetail)
	require.NoError(t, mock.ExpectationsWereMet())
}
