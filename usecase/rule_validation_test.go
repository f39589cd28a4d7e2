package usecase

import (
	"testing"

	"github.com/stretchr/testify/require"

	"socialhub/domain/model"
)

func validBaseRule() *model.AutomationRule {
	return &model.AutomationRule{
		ID:          "rule-1",
		Name:        "daily digest",
		TriggerType: model.TriggerTimeBased,
		TriggerConfig: model.TriggerConfig{
			Schedule: "0 9 * * *",
		},
		ActionType: model.ActionPost,
		ActionConfig: model.ActionConfig{
			Content: &model.PostContent{Text: "digest"},
		},
		Targets: []model.TargetRef{{Platform: "twitter", AccountRef: "acct-a", CredentialID: "cred-1"}},
	}
}

func TestValidateRule(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*model.AutomationRule)
		wantErr string
	}{
		{
			name:   "valid time based post",
			mutate: func(r *model.AutomationRule) {},
		},
		{
			name:    "missing name",
			mutate:  func(r *model.AutomationRule) { r.Name = "" },
			wantErr: "name is required",
		},
		{
			name:    "no targets",
			mutate:  func(r *model.AutomationRule) { r.Targets = nil },
			wantErr: "at least one target",
		},
		{
			name: "bad cron expression",
			mutate: func(r *model.AutomationRule) {
				r.TriggerConfig.Schedule = "not a schedule"
			},
			wantErr: "invalid schedule",
		},
		{
			name: "content trigger without keywords",
			mutate: func(r *model.AutomationRule) {
				r.TriggerType = model.TriggerContentBased
				r.TriggerConfig = model.TriggerConfig{}
			},
			wantErr: "at least one keyword",
		},
		{
			name: "engagement trigger with unknown metric",
			mutate: func(r *model.AutomationRule) {
				r.TriggerType = model.TriggerEngagementBased
				r.TriggerConfig = model.TriggerConfig{Metric: "retweets", Threshold: 10}
			},
			wantErr: "unknown metric",
		},
		{
			name: "engagement trigger with zero threshold",
			mutate: func(r *model.AutomationRule) {
				r.TriggerType = model.TriggerEngagementBased
				r.TriggerConfig = model.TriggerConfig{Metric: "likes"}
			},
			wantErr: "threshold",
		},
		{
			name: "hashtag trigger without hashtags",
			mutate: func(r *model.AutomationRule) {
				r.TriggerType = model.TriggerHashtagBased
				r.TriggerConfig = model.TriggerConfig{}
			},
			wantErr: "at least one hashtag",
		},
		{
			name: "post action without content",
			mutate: func(r *model.AutomationRule) {
				r.ActionConfig.Content = nil
			},
			wantErr: "post action requires content",
		},
		{
			name: "comment action without text",
			mutate: func(r *model.AutomationRule) {
				r.TriggerType = model.TriggerContentBased
				r.TriggerConfig = model.TriggerConfig{Keywords: []string{"hi"}}
				r.ActionType = model.ActionComment
				r.ActionConfig = model.ActionConfig{}
			},
			wantErr: "comment_text",
		},
		{
			name: "follow action without account ref",
			mutate: func(r *model.AutomationRule) {
				r.TriggerType = model.TriggerContentBased
				r.TriggerConfig = model.TriggerConfig{Keywords: []string{"hi"}}
				r.ActionType = model.ActionFollow
				r.ActionConfig = model.ActionConfig{}
			},
			wantErr: "follow_account_ref",
		},
		{
			name: "like action on a schedule",
			mutate: func(r *model.AutomationRule) {
				r.ActionType = model.ActionLike
				r.ActionConfig = model.ActionConfig{}
			},
			wantErr: "requires an event-based trigger",
		},
		{
			name: "like action on an event trigger",
			mutate: func(r *model.AutomationRule) {
				r.TriggerType = model.TriggerHashtagBased
				r.TriggerConfig = model.TriggerConfig{Hashtags: []string{"#go"}}
				r.ActionType = model.ActionLike
				r.ActionConfig = model.ActionConfig{}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := validBaseRule()
			tt.mutate(rule)
			err := ValidateRule(rule)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
