package model

import "time"

type PostStatus string

const (
	PostStatusScheduled  PostStatus = "scheduled"
	PostStatusPublishing PostStatus = "publishing"
	PostStatusPublished  PostStatus = "published"
	PostStatusFailed     PostStatus = "failed"
	PostStatusCancelled  PostStatus = "cancelled"
)

// PostContent is the normalized payload dispatched to every target platform.
type PostContent struct {
	Text      string   `json:"text"`
	MediaURLs []string `json:"media_urls,omitempty"`
	LinkURL   string   `json:"link_url,omitempty"`
}

// TargetRef binds one destination account to a platform and its credential.
type TargetRef struct {
	Platform     string `json:"platform"`
	AccountRef   string `json:"account_ref"`
	CredentialID string `json:"credential_id"`
}

// ScheduledPost represents one piece of content due for publication on a set
// of target accounts. Status only moves forward (scheduled -> publishing ->
// published|failed), except cancellation while still scheduled and an
// operator retry that re-enters scheduled from failed.
type ScheduledPost struct {
	ID            string      `json:"id"`
	Targets       []TargetRef `json:"targets"`
	Content       PostContent `json:"content"`
	ScheduledTime time.Time   `json:"scheduled_time"`
	Status        PostStatus  `json:"status"`
	ErrorDetail   *string     `json:"error_detail,omitempty"`
	PublishedAt   *time.Time  `json:"published_at,omitempty"`
	ClaimedAt     *time.Time  `json:"claimed_at,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}
