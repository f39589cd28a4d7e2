package usecase

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"

	"socialhub/domain/model"
)

var (
	ruleValidator = validator.New()
	cronParser    = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

	validMetrics = map[string]bool{
		"likes":    true,
		"shares":   true,
		"comments": true,
		"views":    true,
	}
)

// ValidateRule checks that a rule's trigger and action configuration form a
// shape the engine can execute. Rules failing validation must not be
// activated.
func ValidateRule(rule *model.AutomationRule) error {
	if err := ruleValidator.Var(rule.Name, "required"); err != nil {
		return fmt.Errorf("name is required")
	}
	if len(rule.Targets) == 0 {
		return fmt.Errorf("at least one target is required")
	}
	for i, target := range rule.Targets {
		if err := ruleValidator.Var(target.Platform, "required"); err != nil {
			return fmt.Errorf("target %d: platform is required", i)
		}
		if err := ruleValidator.Var(target.AccountRef, "required"); err != nil {
			return fmt.Errorf("target %d: account_ref is required", i)
		}
	}

	switch rule.TriggerType {
	case model.TriggerTimeBased:
		if _, err := cronParser.Parse(rule.TriggerConfig.Schedule); err != nil {
			return fmt.Errorf("invalid schedule %q: %w", rule.TriggerConfig.Schedule, err)
		}
	case model.TriggerContentBased:
		if len(rule.TriggerConfig.Keywords) == 0 {
			return fmt.Errorf("content_based trigger requires at least one keyword")
		}
		if err := ruleValidator.Var(rule.TriggerConfig.MatchMode, "omitempty,oneof=any all"); err != nil {
			return fmt.Errorf("match_mode must be any or all")
		}
	case model.TriggerEngagementBased:
		if !validMetrics[rule.TriggerConfig.Metric] {
			return fmt.Errorf("unknown metric %q", rule.TriggerConfig.Metric)
		}
		if err := ruleValidator.Var(rule.TriggerConfig.Threshold, "gt=0"); err != nil {
			return fmt.Errorf("threshold must be greater than zero")
		}
	case model.TriggerHashtagBased:
		if len(rule.TriggerConfig.Hashtags) == 0 {
			return fmt.Errorf("hashtag_based trigger requires at least one hashtag")
		}
	default:
		return fmt.Errorf("unknown trigger type %q", rule.TriggerType)
	}

	switch rule.ActionType {
	case model.ActionPost:
		if rule.ActionConfig.Content == nil || rule.ActionConfig.Content.Text == "" {
			return fmt.Errorf("post action requires content")
		}
		if rule.ActionConfig.DelayMinute < 0 {
			return fmt.Errorf("delay_minute must not be negative")
		}
	case model.ActionComment:
		if err := ruleValidator.Var(rule.ActionConfig.CommentText, "required"); err != nil {
			return fmt.Errorf("comment action requires comment_text")
		}
	case model.ActionFollow:
		if err := ruleValidator.Var(rule.ActionConfig.FollowAccountRef, "required"); err != nil {
			return fmt.Errorf("follow action requires follow_account_ref")
		}
	case model.ActionLike, model.ActionShare:
		// nothing extra
	default:
		return fmt.Errorf("unknown action type %q", rule.ActionType)
	}

	// like, comment and share need an object from the triggering event;
	// a schedule supplies none.
	if rule.TriggerType == model.TriggerTimeBased {
		switch rule.ActionType {
		case model.ActionLike, model.ActionComment, model.ActionShare:
			return fmt.Errorf("%s action requires an event-based trigger", rule.ActionType)
		}
	}
	return nil
}
