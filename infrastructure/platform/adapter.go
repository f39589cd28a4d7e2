package platform

import (
	"context"
	"errors"
	"fmt"
	"time"

	"socialhub/domain/model"
)

// ErrorKind classifies an adapter failure for the retry policy upstream.
type ErrorKind string

const (
	KindAuthExpired ErrorKind = "auth_expired"
	KindRateLimited ErrorKind = "rate_limited"
	KindRejected    ErrorKind = "platform_rejected"
	KindTransient   ErrorKind = "transient"
)

// DispatchError is the only error type adapters surface. The scheduler and
// rule engine branch on Kind, never on platform specifics.
type DispatchError struct {
	Kind       ErrorKind
	Reason     string
	RetryAfter time.Duration
	cause      error
}

func (e *DispatchError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Reason, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

func (e *DispatchError) Unwrap() error { return e.cause }

func AuthExpired(reason string) *DispatchError {
	return &DispatchError{Kind: KindAuthExpired, Reason: reason}
}

func RateLimited(retryAfter time.Duration) *DispatchError {
	return &DispatchError{Kind: KindRateLimited, Reason: "rate limit exceeded", RetryAfter: retryAfter}
}

func Rejected(reason string) *DispatchError {
	return &DispatchError{Kind: KindRejected, Reason: reason}
}

func Transient(reason string, cause error) *DispatchError {
	return &DispatchError{Kind: KindTransient, Reason: reason, cause: cause}
}

// Classify coerces any error into a DispatchError. Deadline/cancellation and
// unknown failures are treated as transient and retried.
func Classify(err error) *DispatchError {
	var de *DispatchError
	if errors.As(err, &de) {
		return de
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Transient("deadline exceeded", err)
	}
	return Transient("platform call failed", err)
}

// Request is the normalized shape every capability call receives. Platform
// specifics never leak past this boundary.
type Request struct {
	AccountRef string
	Credential *model.Credential
	Content    model.PostContent
	// RemoteObjectID addresses the remote post/user for like, comment,
	// follow and share.
	RemoteObjectID string
	CommentText    string
	// IdempotencyKey is forwarded where the remote API supports it so
	// unknown-outcome retries are safe.
	IdempotencyKey string
}

// Adapter is the fixed capability set every platform implements. Each call
// returns the remote object id on success. Unsupported capabilities return a
// PlatformRejected failure rather than an untyped error.
type Adapter interface {
	Platform() string
	Publish(ctx context.Context, req Request) (string, error)
	Like(ctx context.Context, req Request) (string, error)
	Comment(ctx context.Context, req Request) (string, error)
	Follow(ctx context.Context, req Request) (string, error)
	Share(ctx context.Context, req Request) (string, error)
}
