package model

import "time"

type AttemptOutcome string

const (
	OutcomeSuccess       AttemptOutcome = "success"
	OutcomeAuthExpired   AttemptOutcome = "auth_expired"
	OutcomeRateLimited   AttemptOutcome = "rate_limited"
	OutcomeRejected      AttemptOutcome = "platform_rejected"
	OutcomeTransient     AttemptOutcome = "transient_error"
	OutcomeCredInvalid   AttemptOutcome = "credential_invalid"
)

type OriginKind string

const (
	OriginPost OriginKind = "post"
	OriginRule OriginKind = "rule"
)

// DispatchAttempt is an append-only ledger entry, one per platform call (or
// per rule firing for non-dispatch actions). Rows are never updated or
// deleted.
type DispatchAttempt struct {
	ID            string         `json:"id"`
	OriginKind    OriginKind     `json:"origin_kind"`
	OriginID      string         `json:"origin_id"`
	OccurrenceKey string         `json:"occurrence_key,omitempty"`
	Platform      string         `json:"platform"`
	AccountRef    string         `json:"account_ref"`
	AttemptNumber int            `json:"attempt_number"`
	Outcome       AttemptOutcome `json:"outcome"`
	RemoteID      *string        `json:"remote_id,omitempty"`
	ErrorDetail   *string        `json:"error_detail,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}
