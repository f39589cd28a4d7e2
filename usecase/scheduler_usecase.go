package usecase

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"socialhub/domain/model"
	"socialhub/domain/repository"
	"socialhub/infrastructure/logger"
	"socialhub/infrastructure/persistence"
	"socialhub/infrastructure/platform"
	"socialhub/infrastructure/servicebus"
)

// IAdapterRegistry is the slice of the platform registry the workers use.
type IAdapterRegistry interface {
	AdapterFor(platformID string) (platform.Adapter, error)
	Platforms() []string
}

// SchedulerConfig tunes the publish worker loop.
type SchedulerConfig struct {
	PollInterval    time.Duration
	ClaimBatchSize  int
	Lease           time.Duration
	MaxAttempts     int
	MaxConcurrent   int64
	DispatchTimeout time.Duration
	BackoffBase     time.Duration
	BackoffCap      time.Duration
}

func (c *SchedulerConfig) fillDefaults() {
	if c.PollInterval == 0 {
		c.PollInterval = 15 * time.Second
	}
	if c.ClaimBatchSize == 0 {
		c.ClaimBatchSize = 20
	}
	if c.Lease == 0 {
		c.Lease = 10 * time.Minute
	}
	if c.MaxAttempts == 0 {
		c.MaxAttempts = 5
	}
	if c.MaxConcurrent == 0 {
		c.MaxConcurrent = 32
	}
	if c.DispatchTimeout == 0 {
		c.DispatchTimeout = 30 * time.Second
	}
	if c.BackoffBase == 0 {
		c.BackoffBase = 2 * time.Second
	}
	if c.BackoffCap == 0 {
		c.BackoffCap = 2 * time.Minute
	}
}

// IPublishScheduler claims due posts and dispatches them to every target
// account through the adapter registry.
type IPublishScheduler interface {
	Run(ctx context.Context) error
	// Pass executes one claim-and-dispatch cycle; exposed for tests and the
	// operator API's manual trigger.
	Pass(ctx context.Context) error
}

type publishScheduler struct {
	posts    repository.IScheduledPost
	accounts repository.ITargetAccount
	registry IAdapterRegistry
	creds    ICredentialManager
	ledger   ILedger
	alerts   servicebus.IAlertSink
	cfg      SchedulerConfig
	sem      *semaphore.Weighted
	now      func() time.Time
	sleep    func(ctx context.Context, d time.Duration) error
}

func NewPublishScheduler(
	posts repository.IScheduledPost,
	accounts repository.ITargetAccount,
	registry IAdapterRegistry,
	creds ICredentialManager,
	ledger ILedger,
	alerts servicebus.IAlertSink,
	cfg SchedulerConfig,
) IPublishScheduler {
	cfg.fillDefaults()
	return &publishScheduler{
		posts:    posts,
		accounts: accounts,
		registry: registry,
		creds:    creds,
		ledger:   ledger,
		alerts:   alerts,
		cfg:      cfg,
		sem:      semaphore.NewWeighted(cfg.MaxConcurrent),
		now:      time.Now,
		sleep:    sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *publishScheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()
	logger.GetLogger().WithField("poll_interval", s.cfg.PollInterval.String()).Info("publish scheduler started")
	for {
		if err := s.Pass(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.GetLogger().WithField("error", err).Error("scheduler pass failed")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Pass runs one cycle: recover abandoned claims, claim due posts, dispatch.
func (s *publishScheduler) Pass(ctx context.Context) error {
	now := s.now().UTC()
	released, err := s.posts.ReleaseAbandoned(ctx, now, s.cfg.Lease)
	if err != nil {
		return fmt.Errorf("release abandoned claims: %w", err)
	}
	if released > 0 {
		logger.GetLogger().WithField("count", released).Warn("reclaimed abandoned publishing posts")
	}

	claimed, err := s.posts.ClaimDue(ctx, now, s.cfg.ClaimBatchSize)
	if err != nil {
		return fmt.Errorf("claim due posts: %w", err)
	}
	if len(claimed) == 0 {
		return nil
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, post := range claimed {
		post := post
		g.Go(func() error {
			s.process(ctx, post)
			return nil
		})
	}
	return g.Wait()
}

type targetResult struct {
	target model.TargetRef
	ok     bool
	// unresolved means the attempt outcome could not be recorded in the
	// ledger; the post must stay publishing so the lease recycles it.
	unresolved bool
	detail     string
}

// process dispatches one claimed post to all its targets in parallel and
// finishes the post-level state.
func (s *publishScheduler) process(ctx context.Context, post *model.ScheduledPost) {
	results := make([]targetResult, len(post.Targets))
	g, gctx := errgroup.WithContext(ctx)
	for i, target := range post.Targets {
		i, target := i, target
		g.Go(func() error {
			results[i] = s.dispatchTarget(gctx, post, target)
			return nil
		})
	}
	_ = g.Wait()

	if ctx.Err() != nil {
		// Shutdown mid-post: leave it publishing, the lease recovers it.
		return
	}

	allOK := true
	var failures []string
	for _, res := range results {
		if res.unresolved {
			logger.GetLogger().
				WithField("post_id", post.ID).
				WithField("detail", res.detail).
				Warn("post left publishing until the lease expires")
			return
		}
		if !res.ok {
			allOK = false
			failures = append(failures, res.detail)
		}
	}
	if allOK {
		if err := s.posts.MarkPublished(ctx, post.ID, s.now().UTC()); err != nil {
			logger.GetLogger().WithField("post_id", post.ID).WithField("error", err).Error("mark published failed")
		}
		return
	}
	detail := strings.Join(failures, "; ")
	if err := s.posts.MarkFailed(ctx, post.ID, detail); err != nil {
		logger.GetLogger().WithField("post_id", post.ID).WithField("error", err).Error("mark failed failed")
	}
	s.alerts.Send(ctx, servicebus.Alert{
		Kind:   "post_failed",
		PostID: post.ID,
		Detail: detail,
	})
}

// dispatchTarget runs the retry loop for one (post, target) pair. Every
// platform call produces exactly one ledger row before its outcome is acted
// upon.
func (s *publishScheduler) dispatchTarget(ctx context.Context, post *model.ScheduledPost, target model.TargetRef) targetResult {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return targetResult{target: target, detail: failDetail(target, "dispatch cancelled")}
	}
	defer s.sem.Release(1)

	account, err := s.accounts.GetByRef(ctx, target.Platform, target.AccountRef)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			detail := failDetail(target, "unknown target account")
			if s.record(ctx, post, target, 1, model.OutcomeRejected, nil, detail) != nil {
				return targetResult{target: target, unresolved: true, detail: detail}
			}
			return targetResult{target: target, detail: detail}
		}
		return targetResult{target: target, unresolved: true, detail: failDetail(target, "account lookup failed: "+err.Error())}
	}
	if !account.IsActive {
		detail := failDetail(target, "account deactivated")
		if s.record(ctx, post, target, 1, model.OutcomeRejected, nil, detail) != nil {
			return targetResult{target: target, unresolved: true, detail: detail}
		}
		return targetResult{target: target, detail: detail}
	}

	adapter, err := s.registry.AdapterFor(target.Platform)
	if err != nil {
		detail := failDetail(target, "no adapter registered")
		if s.record(ctx, post, target, 1, model.OutcomeRejected, nil, detail) != nil {
			return targetResult{target: target, unresolved: true, detail: detail}
		}
		return targetResult{target: target, detail: detail}
	}

	forceRefresh := false
	for attempt := 1; attempt <= s.cfg.MaxAttempts; attempt++ {
		cred, err := s.credential(ctx, target, forceRefresh)
		forceRefresh = false
		if err != nil {
			detail := failDetail(target, err.Error())
			if s.record(ctx, post, target, attempt, model.OutcomeCredInvalid, nil, detail) != nil {
				return targetResult{target: target, unresolved: true, detail: detail}
			}
			s.handleCredentialInvalid(ctx, target, detail)
			return targetResult{target: target, detail: detail}
		}

		callCtx, cancel := context.WithTimeout(ctx, s.cfg.DispatchTimeout)
		remoteID, callErr := adapter.Publish(callCtx, platform.Request{
			AccountRef:     target.AccountRef,
			Credential:     cred,
			Content:        post.Content,
			IdempotencyKey: fmt.Sprintf("%s:%s:%s", post.ID, target.Platform, target.AccountRef),
		})
		cancel()

		if callErr == nil {
			if s.recordSuccess(ctx, post, target, attempt, remoteID) != nil {
				// The platform accepted the content but the attempt row did
				// not land; the re-dispatch after the lease is safe under
				// the same idempotency key.
				return targetResult{target: target, unresolved: true, detail: failDetail(target, "ledger unavailable")}
			}
			return targetResult{target: target, ok: true}
		}

		de := platform.Classify(callErr)
		detail := failDetail(target, de.Error())
		if s.record(ctx, post, target, attempt, outcomeFor(de.Kind), nil, detail) != nil {
			return targetResult{target: target, unresolved: true, detail: detail}
		}

		switch de.Kind {
		case platform.KindRejected:
			return targetResult{target: target, detail: detail}
		case platform.KindAuthExpired:
			// One refresh, then the next attempt retries with a new token.
			forceRefresh = true
		case platform.KindRateLimited:
			delay := de.RetryAfter
			if delay <= 0 {
				delay = s.backoff(attempt)
			}
			if s.sleep(ctx, delay) != nil {
				return targetResult{target: target, detail: detail}
			}
		default:
			if s.sleep(ctx, s.backoff(attempt)) != nil {
				return targetResult{target: target, detail: detail}
			}
		}
	}
	return targetResult{target: target, detail: failDetail(target, fmt.Sprintf("retries exhausted after %d attempts", s.cfg.MaxAttempts))}
}

func (s *publishScheduler) credential(ctx context.Context, target model.TargetRef, force bool) (*model.Credential, error) {
	if force {
		return s.creds.ForceRefresh(ctx, target)
	}
	return s.creds.GetValidCredential(ctx, target)
}

func (s *publishScheduler) handleCredentialInvalid(ctx context.Context, target model.TargetRef, detail string) {
	if err := s.accounts.Deactivate(ctx, target.Platform, target.AccountRef); err != nil {
		logger.GetLogger().
			WithField("platform", target.Platform).
			WithField("account_ref", target.AccountRef).
			WithField("error", err).
			Error("deactivate account failed")
	}
	s.alerts.Send(ctx, servicebus.Alert{
		Kind:       "credential_invalid",
		Platform:   target.Platform,
		AccountRef: target.AccountRef,
		Detail:     detail,
	})
}

func (s *publishScheduler) recordSuccess(ctx context.Context, post *model.ScheduledPost, target model.TargetRef, attempt int, remoteID string) error {
	a := &model.DispatchAttempt{
		OriginKind:    model.OriginPost,
		OriginID:      post.ID,
		Platform:      target.Platform,
		AccountRef:    target.AccountRef,
		AttemptNumber: attempt,
		Outcome:       model.OutcomeSuccess,
		CreatedAt:     s.now().UTC(),
	}
	if remoteID != "" {
		a.RemoteID = &remoteID
	}
	if _, err := s.ledger.Record(ctx, a); err != nil {
		logger.GetLogger().WithField("post_id", post.ID).WithField("error", err).Error("ledger write failed")
		return err
	}
	return nil
}

func (s *publishScheduler) record(ctx context.Context, post *model.ScheduledPost, target model.TargetRef, attempt int, outcome model.AttemptOutcome, remoteID *string, detail string) error {
	a := &model.DispatchAttempt{
		OriginKind:    model.OriginPost,
		OriginID:      post.ID,
		Platform:      target.Platform,
		AccountRef:    target.AccountRef,
		AttemptNumber: attempt,
		Outcome:       outcome,
		RemoteID:      remoteID,
		ErrorDetail:   &detail,
		CreatedAt:     s.now().UTC(),
	}
	if _, err := s.ledger.Record(ctx, a); err != nil {
		logger.GetLogger().WithField("post_id", post.ID).WithField("error", err).Error("ledger write failed")
		return err
	}
	return nil
}

// backoff is exponential with full jitter, capped.
func (s *publishScheduler) backoff(attempt int) time.Duration {
	d := s.cfg.BackoffBase << uint(attempt-1)
	if d > s.cfg.BackoffCap || d <= 0 {
		d = s.cfg.BackoffCap
	}
	return time.Duration(rand.Int63n(int64(d)) + int64(d)/2)
}

func outcomeFor(kind platform.ErrorKind) model.AttemptOutcome {
	switch kind {
	case platform.KindAuthExpired:
		return model.OutcomeAuthExpired
	case platform.KindRateLimited:
		return model.OutcomeRateLimited
	case platform.KindRejected:
		return model.OutcomeRejected
	default:
		return model.OutcomeTransient
	}
}

func failDetail(target model.TargetRef, reason string) string {
	return fmt.Sprintf("%s/%s: %s", target.Platform, target.AccountRef, reason)
}
