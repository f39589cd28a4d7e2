package model

import "time"

type FeedEventKind string

const (
	FeedEventContent    FeedEventKind = "content"
	FeedEventEngagement FeedEventKind = "engagement"
	FeedEventHashtag    FeedEventKind = "hashtag"
)

// FeedEvent is the normalized shape of content/engagement/hashtag
// observations delivered by the external feed collaborators.
type FeedEvent struct {
	Kind       FeedEventKind `json:"kind"`
	EventID    string        `json:"event_id"`
	Platform   string        `json:"platform"`
	AccountRef string        `json:"account_ref"`
	ObjectRef  string        `json:"object_ref,omitempty"`
	Text       string        `json:"text,omitempty"`
	Hashtags   []string      `json:"hashtags,omitempty"`
	Metric     string        `json:"metric,omitempty"`
	Value      float64       `json:"value,omitempty"`
	ObservedAt time.Time     `json:"observed_at"`
}
