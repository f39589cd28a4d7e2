package model

import "time"

type TriggerType string

const (
	TriggerTimeBased       TriggerType = "time_based"
	TriggerContentBased    TriggerType = "content_based"
	TriggerEngagementBased TriggerType = "engagement_based"
	TriggerHashtagBased    TriggerType = "hashtag_based"
)

type ActionType string

const (
	ActionPost    ActionType = "post"
	ActionLike    ActionType = "like"
	ActionComment ActionType = "comment"
	ActionFollow  ActionType = "follow"
	ActionShare   ActionType = "share"
)

// TriggerConfig carries the type-specific trigger parameters. Only the fields
// matching the rule's TriggerType are meaningful; validation enforces the
// shape before a rule may become active.
type TriggerConfig struct {
	// time_based
	Schedule string `json:"schedule,omitempty"` // cron expression, 5 fields

	// content_based
	Keywords  []string `json:"keywords,omitempty"`
	MatchMode string   `json:"match_mode,omitempty"` // any | all

	// engagement_based
	Metric    string  `json:"metric,omitempty"` // likes | shares | comments | views
	Threshold float64 `json:"threshold,omitempty"`

	// hashtag_based
	Hashtags []string `json:"hashtags,omitempty"`
}

// ActionConfig carries the type-specific action parameters.
type ActionConfig struct {
	// post
	Content     *PostContent `json:"content,omitempty"`
	DelayMinute int          `json:"delay_minute,omitempty"`

	// comment
	CommentText string `json:"comment_text,omitempty"`

	// follow
	FollowAccountRef string `json:"follow_account_ref,omitempty"`
}

// AutomationRule fires an action when its trigger condition is met. The core
// only mutates LastExecuted and ExecutionCount; everything else is owned by
// the authoring surface.
type AutomationRule struct {
	ID             string        `json:"id"`
	Name           string        `json:"name"`
	TriggerType    TriggerType   `json:"trigger_type"`
	TriggerConfig  TriggerConfig `json:"trigger_config"`
	ActionType     ActionType    `json:"action_type"`
	ActionConfig   ActionConfig  `json:"action_config"`
	Targets        []TargetRef   `json:"targets"`
	IsActive       bool          `json:"is_active"`
	LastExecuted   *time.Time    `json:"last_executed,omitempty"`
	ExecutionCount int           `json:"execution_count"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}
