package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"socialhub/domain/model"
	"socialhub/domain/repository"
	"socialhub/infrastructure/cache"
	"socialhub/infrastructure/logger"
	"socialhub/infrastructure/persistence"
	"socialhub/infrastructure/platform"
	"socialhub/infrastructure/servicebus"
)

// RuleEngineConfig tunes the evaluation loop.
type RuleEngineConfig struct {
	TickInterval    time.Duration
	DispatchTimeout time.Duration
}

// IRuleEngine evaluates active automation rules against time and the feed
// event stream, firing each logical trigger occurrence at most once.
type IRuleEngine interface {
	Run(ctx context.Context, events <-chan model.FeedEvent) error
	// EvaluateTimeRules runs one tick of schedule evaluation.
	EvaluateTimeRules(ctx context.Context) error
	// HandleEvent evaluates one feed event against all active rules.
	HandleEvent(ctx context.Context, event model.FeedEvent) error
}

type ruleEngine struct {
	rules    repository.IAutomationRule
	posts    repository.IScheduledPost
	accounts repository.ITargetAccount
	registry IAdapterRegistry
	creds    ICredentialManager
	ledger   ILedger
	state    cache.IRuleState
	alerts   servicebus.IAlertSink
	cfg      RuleEngineConfig
	parser   cron.Parser
	now      func() time.Time
}

func NewRuleEngine(
	rules repository.IAutomationRule,
	posts repository.IScheduledPost,
	accounts repository.ITargetAccount,
	registry IAdapterRegistry,
	creds ICredentialManager,
	ledger ILedger,
	state cache.IRuleState,
	alerts servicebus.IAlertSink,
	cfg RuleEngineConfig,
) IRuleEngine {
	if cfg.TickInterval == 0 {
		cfg.TickInterval = 30 * time.Second
	}
	if cfg.DispatchTimeout == 0 {
		cfg.DispatchTimeout = 30 * time.Second
	}
	return &ruleEngine{
		rules:    rules,
		posts:    posts,
		accounts: accounts,
		registry: registry,
		creds:    creds,
		ledger:   ledger,
		state:    state,
		alerts:   alerts,
		cfg:      cfg,
		parser:   cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow),
		now:      time.Now,
	}
}

func (e *ruleEngine) Run(ctx context.Context, events <-chan model.FeedEvent) error {
	ticker := time.NewTicker(e.cfg.TickInterval)
	defer ticker.Stop()
	logger.GetLogger().WithField("tick_interval", e.cfg.TickInterval.String()).Info("rule engine started")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := e.EvaluateTimeRules(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.GetLogger().WithField("error", err).Error("time rule evaluation failed")
			}
		case event, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if err := e.HandleEvent(ctx, event); err != nil && !errors.Is(err, context.Canceled) {
				logger.GetLogger().WithField("event_id", event.EventID).WithField("error", err).Error("event evaluation failed")
			}
		}
	}
}

// EvaluateTimeRules fires every time_based rule whose next occurrence since
// last_executed has passed.
func (e *ruleEngine) EvaluateTimeRules(ctx context.Context) error {
	rules, err := e.rules.FetchActive(ctx)
	if err != nil {
		return fmt.Errorf("fetch active rules: %w", err)
	}
	now := e.now().UTC()
	for _, rule := range rules {
		if rule.TriggerType != model.TriggerTimeBased {
			continue
		}
		sched, err := e.parser.Parse(rule.TriggerConfig.Schedule)
		if err != nil {
			// Activation validates the schedule, but rows can be edited
			// behind the engine's back.
			logger.GetLogger().WithField("rule_id", rule.ID).WithField("error", err).Warn("skipping rule with bad schedule")
			continue
		}
		base := rule.CreatedAt
		if rule.LastExecuted != nil {
			base = *rule.LastExecuted
		}
		occurrence := sched.Next(base.UTC())
		if occurrence.After(now) {
			continue
		}
		key := fmt.Sprintf("rule:%s:time:%s", rule.ID, occurrence.Format(time.RFC3339))
		e.fire(ctx, rule, key, nil)
	}
	return nil
}

// HandleEvent evaluates one feed event against every active rule of the
// matching trigger type.
func (e *ruleEngine) HandleEvent(ctx context.Context, event model.FeedEvent) error {
	rules, err := e.rules.FetchActive(ctx)
	if err != nil {
		return fmt.Errorf("fetch active rules: %w", err)
	}
	for _, rule := range rules {
		switch rule.TriggerType {
		case model.TriggerContentBased:
			if event.Kind != model.FeedEventContent || !matchesKeywords(event.Text, rule.TriggerConfig) {
				continue
			}
			first, err := e.state.MarkEventSeen(ctx, rule.ID, event.EventID)
			if err != nil || !first {
				continue
			}
			key := fmt.Sprintf("rule:%s:content:%s", rule.ID, event.EventID)
			e.fire(ctx, rule, key, &event)
		case model.TriggerHashtagBased:
			if event.Kind != model.FeedEventHashtag || !matchesHashtags(event.Hashtags, rule.TriggerConfig.Hashtags) {
				continue
			}
			first, err := e.state.MarkEventSeen(ctx, rule.ID, event.EventID)
			if err != nil || !first {
				continue
			}
			key := fmt.Sprintf("rule:%s:tag:%s", rule.ID, event.EventID)
			e.fire(ctx, rule, key, &event)
		case model.TriggerEngagementBased:
			if event.Kind != model.FeedEventEngagement || event.Metric != rule.TriggerConfig.Metric {
				continue
			}
			crossed, err := e.thresholdCrossed(ctx, rule, event)
			if err != nil {
				logger.GetLogger().WithField("rule_id", rule.ID).WithField("error", err).Warn("metric state unavailable")
				continue
			}
			if !crossed {
				continue
			}
			key := fmt.Sprintf("rule:%s:eng:%s:%s:%s", rule.ID, event.AccountRef, event.Metric, event.EventID)
			e.fire(ctx, rule, key, &event)
		}
	}
	return nil
}

// thresholdCrossed implements hysteresis: fire on the upward crossing only,
// not on every observation at or above the threshold.
func (e *ruleEngine) thresholdCrossed(ctx context.Context, rule *model.AutomationRule, event model.FeedEvent) (bool, error) {
	threshold := rule.TriggerConfig.Threshold
	prev, seen, err := e.state.LastMetricValue(ctx, rule.ID, event.AccountRef, event.Metric)
	if err != nil {
		return false, err
	}
	if err := e.state.SetMetricValue(ctx, rule.ID, event.AccountRef, event.Metric, event.Value); err != nil {
		return false, err
	}
	if event.Value < threshold {
		return false, nil
	}
	return !seen || prev < threshold, nil
}

// fire performs the rule's action exactly once per occurrence key. The
// ledger row is the idempotency record: it is checked before side effects
// and written before the rule-state update, so a crash in between leaves a
// record a restarted instance will observe instead of firing again.
func (e *ruleEngine) fire(ctx context.Context, rule *model.AutomationRule, key string, event *model.FeedEvent) {
	done, err := e.ledger.HasOccurrence(ctx, key)
	if err != nil {
		logger.GetLogger().WithField("rule_id", rule.ID).WithField("error", err).Error("occurrence lookup failed")
		return
	}
	if done {
		return
	}

	var recorded bool
	switch rule.ActionType {
	case model.ActionPost:
		recorded = e.firePost(ctx, rule, key)
	default:
		recorded = e.fireImmediate(ctx, rule, key, event)
	}
	if !recorded {
		// No ledger row means the occurrence is still open; the next tick
		// or event evaluation fires it again.
		return
	}

	prev := rule.LastExecuted
	executedAt := e.now().UTC()
	claimed, err := e.rules.ClaimExecution(ctx, rule.ID, prev, executedAt)
	if err != nil {
		logger.GetLogger().WithField("rule_id", rule.ID).WithField("error", err).Error("claim execution failed")
		return
	}
	if !claimed {
		// Another instance raced this occurrence; ledger rows already
		// prevented double dispatch.
		logger.GetLogger().WithField("rule_id", rule.ID).Debug("execution claim lost")
	}
}

// firePost hands the action to the publish scheduler by creating a scheduled
// post, keeping one dispatch path for all content. It reports whether the
// firing was recorded in the ledger; the occurrence stays open otherwise.
func (e *ruleEngine) firePost(ctx context.Context, rule *model.AutomationRule, key string) bool {
	content := rule.ActionConfig.Content
	if content == nil {
		logger.GetLogger().WithField("rule_id", rule.ID).Warn("post action without content")
		return false
	}
	post := &model.ScheduledPost{
		ID:            uuid.NewString(),
		Targets:       rule.Targets,
		Content:       *content,
		ScheduledTime: e.now().UTC().Add(time.Duration(rule.ActionConfig.DelayMinute) * time.Minute),
		Status:        model.PostStatusScheduled,
	}
	attempt := &model.DispatchAttempt{
		OriginKind:    model.OriginRule,
		OriginID:      rule.ID,
		OccurrenceKey: key,
		Platform:      "scheduler",
		AccountRef:    "-",
		AttemptNumber: 1,
		Outcome:       model.OutcomeSuccess,
		RemoteID:      &post.ID,
		CreatedAt:     e.now().UTC(),
	}
	inserted, err := e.ledger.Record(ctx, attempt)
	if err != nil {
		logger.GetLogger().WithField("rule_id", rule.ID).WithField("error", err).Error("ledger write failed")
		return false
	}
	if !inserted {
		// Another instance already recorded this occurrence.
		return true
	}
	if err := e.posts.Create(ctx, post); err != nil {
		logger.GetLogger().WithField("rule_id", rule.ID).WithField("post_id", post.ID).WithField("error", err).Error("create scheduled post failed")
	}
	return true
}

// fireImmediate invokes the adapter once per target for like, comment,
// follow and share actions. It reports whether every attempted target got
// its ledger row, so a partial ledger outage keeps the occurrence open.
func (e *ruleEngine) fireImmediate(ctx context.Context, rule *model.AutomationRule, key string, event *model.FeedEvent) bool {
	objectRef := ""
	if event != nil {
		objectRef = event.ObjectRef
	}
	recorded := true
	for _, target := range rule.Targets {
		targetKey := fmt.Sprintf("%s:%s:%s", key, target.Platform, target.AccountRef)
		done, err := e.ledger.HasOccurrence(ctx, targetKey)
		if err != nil {
			logger.GetLogger().WithField("rule_id", rule.ID).WithField("error", err).Error("occurrence lookup failed")
			recorded = false
			continue
		}
		if done {
			continue
		}
		outcome, remoteID, detail := e.invoke(ctx, rule, target, objectRef)
		attempt := &model.DispatchAttempt{
			OriginKind:    model.OriginRule,
			OriginID:      rule.ID,
			OccurrenceKey: targetKey,
			Platform:      target.Platform,
			AccountRef:    target.AccountRef,
			AttemptNumber: 1,
			Outcome:       outcome,
			CreatedAt:     e.now().UTC(),
		}
		if remoteID != "" {
			attempt.RemoteID = &remoteID
		}
		if detail != "" {
			attempt.ErrorDetail = &detail
		}
		if _, err := e.ledger.Record(ctx, attempt); err != nil {
			logger.GetLogger().WithField("rule_id", rule.ID).WithField("error", err).Error("ledger write failed")
			recorded = false
		}
	}
	return recorded
}

func (e *ruleEngine) invoke(ctx context.Context, rule *model.AutomationRule, target model.TargetRef, objectRef string) (model.AttemptOutcome, string, string) {
	account, err := e.accounts.GetByRef(ctx, target.Platform, target.AccountRef)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return model.OutcomeRejected, "", failDetail(target, "unknown target account")
		}
		return model.OutcomeTransient, "", failDetail(target, "account lookup failed: "+err.Error())
	}
	if !account.IsActive {
		return model.OutcomeRejected, "", failDetail(target, "account deactivated")
	}

	adapter, err := e.registry.AdapterFor(target.Platform)
	if err != nil {
		return model.OutcomeRejected, "", failDetail(target, "no adapter registered")
	}
	cred, err := e.creds.GetValidCredential(ctx, target)
	if err != nil {
		detail := failDetail(target, err.Error())
		if errors.Is(err, ErrCredentialInvalid) {
			if dErr := e.accounts.Deactivate(ctx, target.Platform, target.AccountRef); dErr != nil {
				logger.GetLogger().WithField("account_ref", target.AccountRef).WithField("error", dErr).Error("deactivate account failed")
			}
			e.alerts.Send(ctx, servicebus.Alert{
				Kind:       "credential_invalid",
				Platform:   target.Platform,
				AccountRef: target.AccountRef,
				Detail:     detail,
			})
		}
		return model.OutcomeCredInvalid, "", detail
	}

	req := platform.Request{
		AccountRef:     target.AccountRef,
		Credential:     cred,
		RemoteObjectID: objectRef,
		CommentText:    rule.ActionConfig.CommentText,
	}
	if rule.ActionType == model.ActionFollow {
		req.RemoteObjectID = rule.ActionConfig.FollowAccountRef
	}

	callCtx, cancel := context.WithTimeout(ctx, e.cfg.DispatchTimeout)
	defer cancel()
	var remoteID string
	switch rule.ActionType {
	case model.ActionLike:
		remoteID, err = adapter.Like(callCtx, req)
	case model.ActionComment:
		remoteID, err = adapter.Comment(callCtx, req)
	case model.ActionFollow:
		remoteID, err = adapter.Follow(callCtx, req)
	case model.ActionShare:
		remoteID, err = adapter.Share(callCtx, req)
	default:
		return model.OutcomeRejected, "", failDetail(target, "unsupported action "+string(rule.ActionType))
	}
	if err != nil {
		de := platform.Classify(err)
		return outcomeFor(de.Kind), "", failDetail(target, de.Error())
	}
	return model.OutcomeSuccess, remoteID, ""
}

func matchesKeywords(text string, cfg model.TriggerConfig) bool {
	if len(cfg.Keywords) == 0 {
		return false
	}
	lower := strings.ToLower(text)
	if strings.EqualFold(cfg.MatchMode, "all") {
		for _, kw := range cfg.Keywords {
			if !strings.Contains(lower, strings.ToLower(kw)) {
				return false
			}
		}
		return true
	}
	for _, kw := range cfg.Keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

func matchesHashtags(observed, monitored []string) bool {
	for _, tag := range observed {
		for _, want := range monitored {
			if strings.EqualFold(strings.TrimPrefix(tag, "#"), strings.TrimPrefix(want, "#")) {
				return true
			}
		}
	}
	return false
}
