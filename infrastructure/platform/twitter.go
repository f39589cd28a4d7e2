package platform

import (
	"context"
	"net/http"
	"net/url"
	"strings"
)

// TwitterAdapter targets the v2 JSON API.
type TwitterAdapter struct {
	httpAdapter
}

func NewTwitterAdapter(cfg PlatformConfig, client *http.Client) *TwitterAdapter {
	base := cfg.BaseURL
	if base == "" {
		base = "https://api.twitter.com"
	}
	return &TwitterAdapter{httpAdapter{
		name:    "twitter",
		baseURL: base,
		client:  client,
		limits:  newAccountLimiters(cfg.RatePerSecond, cfg.Burst),
		codes: map[int]ErrorKind{
			http.StatusUnauthorized:        KindAuthExpired,
			http.StatusForbidden:           KindRejected,
			http.StatusUnprocessableEntity: KindRejected,
			http.StatusTooManyRequests:     KindRateLimited,
		},
	}}
}

type tweetPayload struct {
	Text  string             `json:"text"`
	Reply *tweetReplyPayload `json:"reply,omitempty"`
}

type tweetReplyPayload struct {
	InReplyToTweetID string `json:"in_reply_to_tweet_id"`
}

func (a *TwitterAdapter) Publish(ctx context.Context, req Request) (string, error) {
	if err := a.allow(req.AccountRef); err != nil {
		return "", err
	}
	text := req.Content.Text
	if req.Content.LinkURL != "" {
		text = strings.TrimSpace(text + " " + req.Content.LinkURL)
	}
	header := map[string]string{}
	if req.IdempotencyKey != "" {
		header["X-Idempotency-Key"] = req.IdempotencyKey
	}
	return a.postTweet(ctx, req, tweetPayload{Text: text}, header)
}

func (a *TwitterAdapter) Like(ctx context.Context, req Request) (string, error) {
	if err := a.allow(req.AccountRef); err != nil {
		return "", err
	}
	payload := map[string]string{"tweet_id": req.RemoteObjectID}
	return a.postJSON(ctx, "/2/users/"+url.PathEscape(req.AccountRef)+"/likes", req.Credential.AccessToken, payload, nil)
}

func (a *TwitterAdapter) Comment(ctx context.Context, req Request) (string, error) {
	if err := a.allow(req.AccountRef); err != nil {
		return "", err
	}
	payload := tweetPayload{
		Text:  req.CommentText,
		Reply: &tweetReplyPayload{InReplyToTweetID: req.RemoteObjectID},
	}
	return a.postTweet(ctx, req, payload, nil)
}

func (a *TwitterAdapter) Follow(ctx context.Context, req Request) (string, error) {
	if err := a.allow(req.AccountRef); err != nil {
		return "", err
	}
	payload := map[string]string{"target_user_id": req.RemoteObjectID}
	return a.postJSON(ctx, "/2/users/"+url.PathEscape(req.AccountRef)+"/following", req.Credential.AccessToken, payload, nil)
}

func (a *TwitterAdapter) Share(ctx context.Context, req Request) (string, error) {
	if err := a.allow(req.AccountRef); err != nil {
		return "", err
	}
	payload := map[string]string{"tweet_id": req.RemoteObjectID}
	return a.postJSON(ctx, "/2/users/"+url.PathEscape(req.AccountRef)+"/retweets", req.Credential.AccessToken, payload, nil)
}

// postTweet unwraps the v2 envelope {"data": {"id": ...}}.
func (a *TwitterAdapter) postTweet(ctx context.Context, req Request, payload tweetPayload, header map[string]string) (string, error) {
	id, err := a.postJSONEnvelope(ctx, "/2/tweets", req.Credential.AccessToken, payload, header)
	return id, err
}
