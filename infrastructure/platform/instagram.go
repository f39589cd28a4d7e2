package platform

import (
	"context"
	"net/http"
	"net/url"

	"github.com/google/go-querystring/query"
)

// InstagramAdapter drives the content-publishing flow of the Instagram Graph
// API: create a media container, then publish it.
type InstagramAdapter struct {
	httpAdapter
}

func NewInstagramAdapter(cfg PlatformConfig, client *http.Client) *InstagramAdapter {
	base := cfg.BaseURL
	if base == "" {
		base = "https://graph.facebook.com/v19.0"
	}
	return &InstagramAdapter{httpAdapter{
		name:    "instagram",
		baseURL: base,
		client:  client,
		limits:  newAccountLimiters(cfg.RatePerSecond, cfg.Burst),
		codes: map[int]ErrorKind{
			http.StatusUnauthorized:    KindAuthExpired,
			http.StatusForbidden:       KindRejected,
			http.StatusBadRequest:      KindRejected,
			http.StatusTooManyRequests: KindRateLimited,
		},
	}}
}

type igMediaParams struct {
	ImageURL    string `url:"image_url,omitempty"`
	VideoURL    string `url:"video_url,omitempty"`
	Caption     string `url:"caption,omitempty"`
	AccessToken string `url:"access_token"`
}

type igPublishParams struct {
	CreationID  string `url:"creation_id"`
	AccessToken string `url:"access_token"`
}

func (a *InstagramAdapter) Publish(ctx context.Context, req Request) (string, error) {
	if err := a.allow(req.AccountRef); err != nil {
		return "", err
	}
	if len(req.Content.MediaURLs) == 0 {
		return "", Rejected("instagram requires a media attachment")
	}
	params := igMediaParams{
		ImageURL:    req.Content.MediaURLs[0],
		Caption:     req.Content.Text,
		AccessToken: req.Credential.AccessToken,
	}
	form, err := query.Values(params)
	if err != nil {
		return "", Transient("encode media params", err)
	}
	containerID, err := a.postForm(ctx, "/"+url.PathEscape(req.AccountRef)+"/media", form)
	if err != nil {
		return "", err
	}
	publish, err := query.Values(igPublishParams{
		CreationID:  containerID,
		AccessToken: req.Credential.AccessToken,
	})
	if err != nil {
		return "", Transient("encode publish params", err)
	}
	return a.postForm(ctx, "/"+url.PathEscape(req.AccountRef)+"/media_publish", publish)
}

func (a *InstagramAdapter) Like(ctx context.Context, req Request) (string, error) {
	return "", Rejected("instagram graph api does not support likes")
}

func (a *InstagramAdapter) Comment(ctx context.Context, req Request) (string, error) {
	if err := a.allow(req.AccountRef); err != nil {
		return "", err
	}
	form := url.Values{}
	form.Set("message", req.CommentText)
	form.Set("access_token", req.Credential.AccessToken)
	return a.postForm(ctx, "/"+url.PathEscape(req.RemoteObjectID)+"/comments", form)
}

func (a *InstagramAdapter) Follow(ctx context.Context, req Request) (string, error) {
	return "", Rejected("instagram graph api does not support follow")
}

func (a *InstagramAdapter) Share(ctx context.Context, req Request) (string, error) {
	return "", Rejected("instagram graph api does not support reshare")
}
