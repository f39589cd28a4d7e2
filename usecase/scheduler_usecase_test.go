package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/semaphore"

	"socialhub/domain/model"
	"socialhub/infrastructure/platform"
	"socialhub/infrastructure/servicebus"
)

// Mock implementations
type MockScheduledPostRepo struct {
	mock.Mock
}

func (m *MockScheduledPostRepo) Create(ctx context.Context, post *model.ScheduledPost) error {
	args := m.Called(ctx, post)
	return args.Error(0)
}

func (m *MockScheduledPostRepo) GetByID(ctx context.Context, id string) (*model.ScheduledPost, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ScheduledPost), args.Error(1)
}

func (m *MockScheduledPostRepo) List(ctx context.Context, status model.PostStatus, limit, offset int) ([]*model.ScheduledPost, error) {
	args := m.Called(ctx, status, limit, offset)
	return args.Get(0).([]*model.ScheduledPost), args.Error(1)
}

func (m *MockScheduledPostRepo) ClaimDue(ctx context.Context, now time.Time, limit int) ([]*model.ScheduledPost, error) {
	args := m.Called(ctx, now, limit)
	return args.Get(0).([]*model.ScheduledPost), args.Error(1)
}

func (m *MockScheduledPostRepo) ReleaseAbandoned(ctx context.Context, now time.Time, lease time.Duration) (int64, error) {
	args := m.Called(ctx, now, lease)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockScheduledPostRepo) MarkPublished(ctx context.Context, id string, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

func (m *MockScheduledPostRepo) MarkFailed(ctx context.Context, id string, detail string) error {
	args := m.Called(ctx, id, detail)
	return args.Error(0)
}

func (m *MockScheduledPostRepo) Cancel(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockScheduledPostRepo) Retry(ctx context.Context, id string, scheduledTime time.Time) error {
	args := m.Called(ctx, id, scheduledTime)
	return args.Error(0)
}

type MockTargetAccountRepo struct {
	mock.Mock
}

func (m *MockTargetAccountRepo) GetByRef(ctx context.Context, platformName, accountRef string) (*model.TargetAccount, error) {
	args := m.Called(ctx, platformName, accountRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.TargetAccount), args.Error(1)
}

func (m *MockTargetAccountRepo) Deactivate(ctx context.Context, platformName, accountRef string) error {
	args := m.Called(ctx, platformName, accountRef)
	return args.Error(0)
}

type MockCredentialManager struct {
	mock.Mock
}

func (m *MockCredentialManager) GetValidCredential(ctx context.Context, target model.TargetRef) (*model.Credential, error) {
	args := m.Called(ctx, target)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Credential), args.Error(1)
}

func (m *MockCredentialManager) ForceRefresh(ctx context.Context, target model.TargetRef) (*model.Credential, error) {
	args := m.Called(ctx, target)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Credential), args.Error(1)
}

// fakeLedger keeps attempts in memory so flows can assert on what was
// recorded without scripting every call.
type fakeLedger struct {
	mu       sync.Mutex
	attempts []*model.DispatchAttempt
	seen     map[string]bool
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{seen: map[string]bool{}}
}

func (l *fakeLedger) Record(ctx context.Context, attempt *model.DispatchAttempt) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if attempt.OccurrenceKey != "" {
		if l.seen[attempt.OccurrenceKey] {
			return false, nil
		}
		l.seen[attempt.OccurrenceKey] = true
	}
	l.attempts = append(l.attempts, attempt)
	return true, nil
}

func (l *fakeLedger) History(ctx context.Context, kind model.OriginKind, originID string) ([]*model.DispatchAttempt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []*model.DispatchAttempt
	for _, a := range l.attempts {
		if a.OriginKind == kind && a.OriginID == originID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (l *fakeLedger) HasOccurrence(ctx context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.seen[key], nil
}

func (l *fakeLedger) outcomes() []model.AttemptOutcome {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]model.AttemptOutcome, len(l.attempts))
	for i, a := range l.attempts {
		out[i] = a.Outcome
	}
	return out
}

type fakeAlertSink struct {
	mu     sync.Mutex
	alerts []servicebus.Alert
}

func (s *fakeAlertSink) Send(ctx context.Context, alert servicebus.Alert) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts = append(s.alerts, alert)
}

// scriptedAdapter returns the queued errors in order, then succeeds.
type scriptedAdapter struct {
	name string
	mu   sync.Mutex
	errs map[string][]error
}

func (a *scriptedAdapter) Platform() string { return a.name }

func (a *scriptedAdapter) call(account string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	queue := a.errs[account]
	if len(queue) > 0 {
		err := queue[0]
		a.errs[account] = queue[1:]
		if err != nil {
			return "", err
		}
	}
	return "remote-" + account, nil
}

func (a *scriptedAdapter) Publish(ctx context.Context, req platform.Request) (string, error) {
	return a.call(req.AccountRef)
}
func (a *scriptedAdapter) Like(ctx context.Context, req platform.Request) (string, error) {
	return a.call(req.AccountRef)
}
func (a *scriptedAdapter) Comment(ctx context.Context, req platform.Request) (string, error) {
	return a.call(req.AccountRef)
}
func (a *scriptedAdapter) Follow(ctx context.Context, req platform.Request) (string, error) {
	return a.call(req.AccountRef)
}
func (a *scriptedAdapter) Share(ctx context.Context, req platform.Request) (string, error) {
	return a.call(req.AccountRef)
}

type fakeRegistry struct {
	adapters map[string]platform.Adapter
}

func (r *fakeRegistry) AdapterFor(platformID string) (platform.Adapter, error) {
	a, ok := r.adapters[platformID]
	if !ok {
		return nil, platform.ErrUnknownPlatform
	}
	return a, nil
}

func (r *fakeRegistry) Platforms() []string {
	out := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		out = append(out, name)
	}
	return out
}

func newTestScheduler(posts *MockScheduledPostRepo, accounts *MockTargetAccountRepo, registry IAdapterRegistry, creds *MockCredentialManager, ledger ILedger, alerts *fakeAlertSink) *publishScheduler {
	cfg := SchedulerConfig{MaxAttempts: 3}
	cfg.fillDefaults()
	accounts.On("GetByRef", mock.Anything, mock.Anything, mock.Anything).
		Return(&model.TargetAccount{IsActive: true}, nil).Maybe()
	return &publishScheduler{
		posts:    posts,
		accounts: accounts,
		registry: registry,
		creds:    creds,
		ledger:   ledger,
		alerts:   alerts,
		cfg:      cfg,
		sem:      semaphore.NewWeighted(cfg.MaxConcurrent),
		now:      func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) },
		sleep:    func(ctx context.Context, d time.Duration) error { return nil },
	}
}

func testCredential() *model.Credential {
	expiry := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
	return &model.Credential{
		ID:          "cred-1",
		AccessToken: "token",
		ExpiresAt:   &expiry,
	}
}

func TestPass_PublishesWhenAllTargetsSucceed(t *testing.T) {
	posts := new(MockScheduledPostRepo)
	accounts := new(MockTargetAccountRepo)
	creds := new(MockCredentialManager)
	ledger := newFakeLedger()
	alerts := &fakeAlertSink{}
	registry := &fakeRegistry{adapters: map[string]platform.Adapter{
		"twitter": &scriptedAdapter{name: "twitter"},
	}}

	post := &model.ScheduledPost{
		ID:     "post-1",
		Status: model.PostStatusPublishing,
		Targets: []model.TargetRef{
			{Platform: "twitter", AccountRef: "acct-a", CredentialID: "cred-1"},
			{Platform: "twitter", AccountRef: "acct-b", CredentialID: "cred-1"},
		},
		Content: model.PostContent{Text: "hello"},
	}

	posts.On("ReleaseAbandoned", mock.Anything, mock.Anything, mock.Anything).Return(int64(0), nil)
	posts.On("ClaimDue", mock.Anything, mock.Anything, mock.Anything).Return([]*model.ScheduledPost{post}, nil)
	posts.On("MarkPublished", mock.Anything, "post-1", mock.Anything).Return(nil)
	creds.On("GetValidCredential", mock.Anything, mock.Anything).Return(testCredential(), nil)

	s := newTestScheduler(posts, accounts, registry, creds, ledger, alerts)
	require.NoError(t, s.Pass(context.Background()))

	posts.AssertCalled(t, "MarkPublished", mock.Anything, "post-1", mock.Anything)
	posts.AssertNotCalled(t, "MarkFailed", mock.Anything, mock.Anything, mock.Anything)
	history, _ := ledger.History(context.Background(), model.OriginPost, "post-1")
	require.Len(t, history, 2)
	for _, attempt := range history {
		require.Equal(t, model.OutcomeSuccess, attempt.Outcome)
		require.NotNil(t, attempt.RemoteID)
	}
	require.Empty(t, alerts.alerts)
}

func TestPass_MarksFailedWhenOneTargetRejected(t *testing.T) {
	posts := new(MockScheduledPostRepo)
	accounts := new(MockTargetAccountRepo)
	creds := new(MockCredentialManager)
	ledger := newFakeLedger()
	alerts := &fakeAlertSink{}
	registry := &fakeRegistry{adapters: map[string]platform.Adapter{
		"twitter": &scriptedAdapter{name: "twitter", errs: map[string][]error{
			"acct-b": {platform.Rejected("content violates policy")},
		}},
	}}

	post := &model.ScheduledPost{
		ID:     "post-2",
		Status: model.PostStatusPublishing,
		Targets: []model.TargetRef{
			{Platform: "twitter", AccountRef: "acct-a", CredentialID: "cred-1"},
			{Platform: "twitter", AccountRef: "acct-b", CredentialID: "cred-1"},
		},
		Content: model.PostContent{Text: "hello"},
	}

	posts.On("ReleaseAbandoned", mock.Anything, mock.Anything, mock.Anything).Return(int64(0), nil)
	posts.On("ClaimDue", mock.Anything, mock.Anything, mock.Anything).Return([]*model.ScheduledPost{post}, nil)
	posts.On("MarkFailed", mock.Anything, "post-2", mock.MatchedBy(func(detail string) bool {
		return strings.Contains(detail, "acct-b")
	})).Return(nil)
	creds.On("GetValidCredential", mock.Anything, mock.Anything).Return(testCredential(), nil)

	s := newTestScheduler(posts, accounts, registry, creds, ledger, alerts)
	require.NoError(t, s.Pass(context.Background()))

	posts.AssertNotCalled(t, "MarkPublished", mock.Anything, mock.Anything, mock.Anything)
	posts.AssertCalled(t, "MarkFailed", mock.Anything, "post-2", mock.Anything)
	require.Len(t, alerts.alerts, 1)
	require.Equal(t, "post_failed", alerts.alerts[0].Kind)
}

func TestDispatchTarget_RetriesTransientThenSucceeds(t *testing.T) {
	posts := new(MockScheduledPostRepo)
	accounts := new(MockTargetAccountRepo)
	creds := new(MockCredentialManager)
	ledger := newFakeLedger()
	alerts := &fakeAlertSink{}
	registry := &fakeRegistry{adapters: map[string]platform.Adapter{
		"facebook": &scriptedAdapter{name: "facebook", errs: map[string][]error{
			"acct-a": {
				platform.Transient("server error", nil),
				platform.Transient("server error", nil),
			},
		}},
	}}
	creds.On("GetValidCredential", mock.Anything, mock.Anything).Return(testCredential(), nil)

	s := newTestScheduler(posts, accounts, registry, creds, ledger, alerts)
	post := &model.ScheduledPost{ID: "post-3", Content: model.PostContent{Text: "hi"}}
	target := model.TargetRef{Platform: "facebook", AccountRef: "acct-a", CredentialID: "cred-1"}

	res := s.dispatchTarget(context.Background(), post, target)
	require.True(t, res.ok)
	require.Equal(t, []model.AttemptOutcome{
		model.OutcomeTransient,
		model.OutcomeTransient,
		model.OutcomeSuccess,
	}, ledger.outcomes())
}

func TestDispatchTarget_ExhaustsRetries(t *testing.T) {
	posts := new(MockScheduledPostRepo)
	accounts := new(MockTargetAccountRepo)
	creds := new(MockCredentialManager)
	ledger := newFakeLedger()
	alerts := &fakeAlertSink{}
	registry := &fakeRegistry{adapters: map[string]platform.Adapter{
		"facebook": &scriptedAdapter{name: "facebook", errs: map[string][]error{
			"acct-a": {
				platform.Transient("server error", nil),
				platform.Transient("server error", nil),
				platform.Transient("server error", nil),
			},
		}},
	}}
	creds.On("GetValidCredential", mock.Anything, mock.Anything).Return(testCredential(), nil)

	s := newTestScheduler(posts, accounts, registry, creds, ledger, alerts)
	post := &model.ScheduledPost{ID: "post-4", Content: model.PostContent{Text: "hi"}}
	target := model.TargetRef{Platform: "facebook", AccountRef: "acct-a", CredentialID: "cred-1"}

	res := s.dispatchTarget(context.Background(), post, target)
	require.False(t, res.ok)
	require.Contains(t, res.detail, "retries exhausted")
	require.Len(t, ledger.outcomes(), 3)
}

func TestDispatchTarget_AuthExpiredForcesRefresh(t *testing.T) {
	posts := new(MockScheduledPostRepo)
	accounts := new(MockTargetAccountRepo)
	creds := new(MockCredentialManager)
	ledger := newFakeLedger()
	alerts := &fakeAlertSink{}
	registry := &fakeRegistry{adapters: map[string]platform.Adapter{
		"linkedin": &scriptedAdapter{name: "linkedin", errs: map[string][]error{
			"acct-a": {platform.AuthExpired("token expired")},
		}},
	}}
	creds.On("GetValidCredential", mock.Anything, mock.Anything).Return(testCredential(), nil).Once()
	creds.On("ForceRefresh", mock.Anything, mock.Anything).Return(testCredential(), nil).Once()

	s := newTestScheduler(posts, accounts, registry, creds, ledger, alerts)
	post := &model.ScheduledPost{ID: "post-5", Content: model.PostContent{Text: "hi"}}
	target := model.TargetRef{Platform: "linkedin", AccountRef: "acct-a", CredentialID: "cred-1"}

	res := s.dispatchTarget(context.Background(), post, target)
	require.True(t, res.ok)
	creds.AssertCalled(t, "ForceRefresh", mock.Anything, mock.Anything)
	require.Equal(t, []model.AttemptOutcome{
		model.OutcomeAuthExpired,
		model.OutcomeSuccess,
	}, ledger.outcomes())
}

func TestDispatchTarget_CredentialInvalidDeactivatesAccount(t *testing.T) {
	posts := new(MockScheduledPostRepo)
	accounts := new(MockTargetAccountRepo)
	creds := new(MockCredentialManager)
	ledger := newFakeLedger()
	alerts := &fakeAlertSink{}
	registry := &fakeRegistry{adapters: map[string]platform.Adapter{
		"instagram": &scriptedAdapter{name: "instagram"},
	}}
	creds.On("GetValidCredential", mock.Anything, mock.Anything).Return(nil, ErrCredentialInvalid)
	accounts.On("Deactivate", mock.Anything, "instagram", "acct-a").Return(nil)

	s := newTestScheduler(posts, accounts, registry, creds, ledger, alerts)
	post := &model.ScheduledPost{ID: "post-6", Content: model.PostContent{Text: "hi"}}
	target := model.TargetRef{Platform: "instagram", AccountRef: "acct-a", CredentialID: "cred-1"}

	res := s.dispatchTarget(context.Background(), post, target)
	require.False(t, res.ok)
	accounts.AssertCalled(t, "Deactivate", mock.Anything, "instagram", "acct-a")
	require.Len(t, alerts.alerts, 1)
	require.Equal(t, "credential_invalid", alerts.alerts[0].Kind)
	require.Equal(t, []model.AttemptOutcome{model.OutcomeCredInvalid}, ledger.outcomes())
}

func TestDispatchTarget_UnknownPlatformRejectsImmediately(t *testing.T) {
	posts := new(MockScheduledPostRepo)
	accounts := new(MockTargetAccountRepo)
	creds := new(MockCredentialManager)
	ledger := newFakeLedger()
	alerts := &fakeAlertSink{}
	registry := &fakeRegistry{adapters: map[string]platform.Adapter{}}

	s := newTestScheduler(posts, accounts, registry, creds, ledger, alerts)
	post := &model.ScheduledPost{ID: "post-7", Content: model.PostContent{Text: "hi"}}
	target := model.TargetRef{Platform: "myspace", AccountRef: "acct-a", CredentialID: "cred-1"}

	res := s.dispatchTarget(context.Background(), post, target)
	require.False(t, res.ok)
	require.Equal(t, []model.AttemptOutcome{model.OutcomeRejected}, ledger.outcomes())
	creds.AssertNotCalled(t, "GetValidCredential", mock.Anything, mock.Anything)
}

// failingLedger simulates a ledger outage: lookups succeed, writes fail.
type failingLedger struct{}

func (failingLedger) Record(ctx context.Context, attempt *model.DispatchAttempt) (bool, error) {
	return false, errors.New("ledger unavailable")
}

func (failingLedger) History(ctx context.Context, kind model.OriginKind, originID string) ([]*model.DispatchAttempt, error) {
	return nil, nil
}

func (failingLedger) HasOccurrence(ctx context.Context, key string) (bool, error) {
	return false, nil
}

func TestPass_LedgerFailureLeavesPostPublishing(t *testing.T) {
	posts := new(MockScheduledPostRepo)
	accounts := new(MockTargetAccountRepo)
	creds := new(MockCredentialManager)
	alerts := &fakeAlertSink{}
	registry := &fakeRegistry{adapters: map[string]platform.Adapter{
		"twitter": &scriptedAdapter{name: "twitter"},
	}}

	post := &model.ScheduledPost{
		ID:      "post-8",
		Status:  model.PostStatusPublishing,
		Targets: []model.TargetRef{{Platform: "twitter", AccountRef: "acct-a", CredentialID: "cred-1"}},
		Content: model.PostContent{Text: "hello"},
	}

	posts.On("ReleaseAbandoned", mock.Anything, mock.Anything, mock.Anything).Return(int64(0), nil)
	posts.On("ClaimDue", mock.Anything, mock.Anything, mock.Anything).Return([]*model.ScheduledPost{post}, nil)
	creds.On("GetValidCredential", mock.Anything, mock.Anything).Return(testCredential(), nil)

	s := newTestScheduler(posts, accounts, registry, creds, failingLedger{}, alerts)
	require.NoError(t, s.Pass(context.Background()))

	// Without an attempt row the post cannot be finalized; the lease
	// recycles it and the idempotency key makes the re-dispatch safe.
	posts.AssertNotCalled(t, "MarkPublished", mock.Anything, mock.Anything, mock.Anything)
	posts.AssertNotCalled(t, "MarkFailed", mock.Anything, mock.Anything, mock.Anything)
	require.Empty(t, alerts.alerts)
}

func TestDispatchTarget_InactiveAccountRejectedWithoutDispatch(t *testing.T) {
	posts := new(MockScheduledPostRepo)
	accounts := new(MockTargetAccountRepo)
	creds := new(MockCredentialManager)
	ledger := newFakeLedger()
	alerts := &fakeAlertSink{}
	registry := &fakeRegistry{adapters: map[string]platform.Adapter{
		"twitter": &scriptedAdapter{name: "twitter"},
	}}

	accounts.On("GetByRef", mock.Anything, "twitter", "acct-a").
		Return(&model.TargetAccount{Platform: "twitter", AccountRef: "acct-a", IsActive: false}, nil)

	s := newTestScheduler(posts, accounts, registry, creds, ledger, alerts)
	post := &model.ScheduledPost{ID: "post-9", Content: model.PostContent{Text: "hi"}}
	target := model.TargetRef{Platform: "twitter", AccountRef: "acct-a", CredentialID: "cred-1"}

	res := s.dispatchTarget(context.Background(), post, target)

	require.False(t, res.ok)
	require.Contains(t, res.detail, "account deactivated")
	require.Equal(t, []model.AttemptOutcome{model.OutcomeRejected}, ledger.outcomes())
	creds.AssertNotCalled(t, "GetValidCredential", mock.Anything, mock.Anything)
}
