package usecase

import (
	"context"

	"github.com/google/uuid"

	"socialhub/domain/model"
	"socialhub/domain/repository"
	"socialhub/infrastructure/logger"
	"socialhub/infrastructure/persistence"
)

// ILedger is the execution ledger the scheduler and rule engine write every
// attempt outcome to. Record must be durable before the caller treats the
// triggering operation as complete.
type ILedger interface {
	// Record appends one attempt. inserted=false means the occurrence key
	// was already recorded, which callers use as the already-fired signal.
	Record(ctx context.Context, attempt *model.DispatchAttempt) (inserted bool, err error)
	History(ctx context.Context, kind model.OriginKind, originID string) ([]*model.DispatchAttempt, error)
	HasOccurrence(ctx context.Context, key string) (bool, error)
}

type ledger struct {
	repo    repository.IDispatchAttempt
	archive persistence.IAttemptArchive
}

// NewLedger wraps the SQL attempt repository; archive may be nil. The SQL
// write is the durability barrier, the archive mirror is best effort for the
// analytics collaborators.
func NewLedger(repo repository.IDispatchAttempt, archive persistence.IAttemptArchive) ILedger {
	return &ledger{repo: repo, archive: archive}
}

func (l *ledger) Record(ctx context.Context, attempt *model.DispatchAttempt) (bool, error) {
	if attempt.ID == "" {
		attempt.ID = uuid.NewString()
	}
	inserted, err := l.repo.Record(ctx, attempt)
	if err != nil {
		return false, err
	}
	if inserted && l.archive != nil {
		l.archive.Archive(ctx, attempt)
	}
	if !inserted {
		logger.GetLogger().WithField("occurrence_key", attempt.OccurrenceKey).Debug("attempt already recorded")
	}
	return inserted, nil
}

func (l *ledger) History(ctx context.Context, kind model.OriginKind, originID string) ([]*model.DispatchAttempt, error) {
	return l.repo.ListByOrigin(ctx, kind, originID)
}

func (l *ledger) HasOccurrence(ctx context.Context, key string) (bool, error) {
	return l.repo.HasOccurrence(ctx, key)
}
