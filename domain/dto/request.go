package dto

import (
	"time"

	"socialhub/domain/model"
)

// ReqCreatePost is the operator request to schedule a post.
type ReqCreatePost struct {
	Content       model.PostContent `json:"content"`
	Targets       []model.TargetRef `json:"targets"`
	ScheduledTime time.Time         `json:"scheduled_time"`
}

// ReqRetryPost optionally reschedules a failed post; a zero time means
// immediately.
type ReqRetryPost struct {
	ScheduledTime *time.Time `json:"scheduled_time,omitempty"`
}
