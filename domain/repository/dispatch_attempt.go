package repository

import (
	"context"

	"socialhub/domain/model"
)

// IDispatchAttempt is the append-only execution ledger. Record must be
// durable before the caller treats the triggering operation as complete.
type IDispatchAttempt interface {
	// Record inserts one attempt. When the attempt carries an occurrence key
	// that was already recorded it returns (false, nil) without inserting,
	// which is the idempotency signal the rule engine relies on.
	Record(ctx context.Context, attempt *model.DispatchAttempt) (inserted bool, err error)
	ListByOrigin(ctx context.Context, kind model.OriginKind, originID string) ([]*model.DispatchAttempt, error)
	// HasOccurrence reports whether a firing with this key was ever recorded.
	HasOccurrence(ctx context.Context, key string) (bool, error)
}

// ICredential is the credential-store contract. Credentials are mutated only
// by the credential manager, in place.
type ICredential interface {
	GetByID(ctx context.Context, id string) (*model.Credential, error)
	Save(ctx context.Context, cred *model.Credential) error
}
