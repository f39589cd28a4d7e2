package platform

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

// YouTubeAdapter drives engagement actions through the official Data API
// client. Video uploads are handled by the authoring surface, so Publish is
// not a capability here.
type YouTubeAdapter struct {
	name   string
	limits *accountLimiters
}

func NewYouTubeAdapter(cfg PlatformConfig) *YouTubeAdapter {
	return &YouTubeAdapter{
		name:   "youtube",
		limits: newAccountLimiters(cfg.RatePerSecond, cfg.Burst),
	}
}

func (a *YouTubeAdapter) Platform() string { return a.name }

func (a *YouTubeAdapter) allow(account string) error {
	if delay, ok := a.limits.take(account); !ok {
		return RateLimited(delay)
	}
	return nil
}

func (a *YouTubeAdapter) service(ctx context.Context, accessToken string) (*youtube.Service, error) {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken})
	svc, err := youtube.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, Transient("create youtube service", err)
	}
	return svc, nil
}

// classifyAPIError maps Data API errors onto the shared taxonomy.
func classifyAPIError(err error) error {
	if apiErr, ok := err.(*googleapi.Error); ok {
		switch apiErr.Code {
		case http.StatusUnauthorized:
			return AuthExpired(apiErr.Message)
		case http.StatusForbidden:
			// Quota exhaustion arrives as 403 with a rateLimitExceeded reason.
			for _, e := range apiErr.Errors {
				if e.Reason == "rateLimitExceeded" || e.Reason == "quotaExceeded" {
					return RateLimited(60 * time.Second)
				}
			}
			return Rejected(apiErr.Message)
		case http.StatusBadRequest, http.StatusNotFound:
			return Rejected(apiErr.Message)
		}
		if apiErr.Code >= 500 {
			return Transient(apiErr.Message, err)
		}
		return Rejected(apiErr.Message)
	}
	return Classify(err)
}

func (a *YouTubeAdapter) Publish(ctx context.Context, req Request) (string, error) {
	return "", Rejected("youtube uploads are handled by the authoring surface")
}

func (a *YouTubeAdapter) Like(ctx context.Context, req Request) (string, error) {
	if err := a.allow(req.AccountRef); err != nil {
		return "", err
	}
	svc, err := a.service(ctx, req.Credential.AccessToken)
	if err != nil {
		return "", err
	}
	if err := svc.Videos.Rate(req.RemoteObjectID, "like").Context(ctx).Do(); err != nil {
		return "", classifyAPIError(err)
	}
	return req.RemoteObjectID, nil
}

func (a *YouTubeAdapter) Comment(ctx context.Context, req Request) (string, error) {
	if err := a.allow(req.AccountRef); err != nil {
		return "", err
	}
	svc, err := a.service(ctx, req.Credential.AccessToken)
	if err != nil {
		return "", err
	}
	thread := &youtube.CommentThread{
		Snippet: &youtube.CommentThreadSnippet{
			VideoId: req.RemoteObjectID,
			TopLevelComment: &youtube.Comment{
				Snippet: &youtube.CommentSnippet{TextOriginal: req.CommentText},
			},
		},
	}
	created, err := svc.CommentThreads.Insert([]string{"snippet"}, thread).Context(ctx).Do()
	if err != nil {
		return "", classifyAPIError(err)
	}
	return created.Id, nil
}

func (a *YouTubeAdapter) Follow(ctx context.Context, req Request) (string, error) {
	if err := a.allow(req.AccountRef); err != nil {
		return "", err
	}
	svc, err := a.service(ctx, req.Credential.AccessToken)
	if err != nil {
		return "", err
	}
	sub := &youtube.Subscription{
		Snippet: &youtube.SubscriptionSnippet{
			ResourceId: &youtube.ResourceId{Kind: "youtube#channel", ChannelId: req.RemoteObjectID},
		},
	}
	created, err := svc.Subscriptions.Insert([]string{"snippet"}, sub).Context(ctx).Do()
	if err != nil {
		return "", classifyAPIError(err)
	}
	return created.Id, nil
}

func (a *YouTubeAdapter) Share(ctx context.Context, req Request) (string, error) {
	return "", Rejected("youtube does not support reshare")
}
