package platform

import (
	"context"
	"net/http"
	"net/url"
	"strings"
)

// FacebookAdapter publishes through the Graph API page-feed endpoints.
type FacebookAdapter struct {
	httpAdapter
}

func NewFacebookAdapter(cfg PlatformConfig, client *http.Client) *FacebookAdapter {
	base := cfg.BaseURL
	if base == "" {
		base = "https://graph.facebook.com/v19.0"
	}
	return &FacebookAdapter{httpAdapter{
		name:    "facebook",
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

func (a *FacebookAdapter) Publish(ctx context.Context, req Request) (string, error) {
	if err := a.allow(req.AccountRef); err != nil {
		return "", err
	}
	message := req.Content.Text
	form := url.Values{}
	form.Set("message", message)
	if req.Content.LinkURL != "" {
		form.Set("link", req.Content.LinkURL)
	}
	if len(req.Content.MediaURLs) > 0 {
		// Graph accepts attached_media for photo posts; a single URL rides
		// along as the link preview.
		form.Set("link", req.Content.MediaURLs[0])
	}
	form.Set("access_token", req.Credential.AccessToken)
	return a.postForm(ctx, "/"+url.PathEscape(req.AccountRef)+"/feed", form)
}

func (a *FacebookAdapter) Like(ctx context.Context, req Request) (string, error) {
	if err := a.allow(req.AccountRef); err != nil {
		return "", err
	}
	form := url.Values{}
	form.Set("access_token", req.Credential.AccessToken)
	return a.postForm(ctx, "/"+url.PathEscape(req.RemoteObjectID)+"/likes", form)
}

func (a *FacebookAdapter) Comment(ctx context.Context, req Request) (string, error) {
	if err := a.allow(req.AccountRef); err != nil {
		return "", err
	}
	form := url.Values{}
	form.Set("message", req.CommentText)
	form.Set("access_token", req.Credential.AccessToken)
	return a.postForm(ctx, "/"+url.PathEscape(req.RemoteObjectID)+"/comments", form)
}

func (a *FacebookAdapter) Follow(ctx context.Context, req Request) (string, error) {
	// Pages cannot follow users via the Graph API.
	return "", Rejected("facebook does not support follow")
}

func (a *FacebookAdapter) Share(ctx context.Context, req Request) (string, error) {
	if err := a.allow(req.AccountRef); err != nil {
		return "", err
	}
	// Re-posting a link to the page feed is the Graph way to share.
	link := req.RemoteObjectID
	if !strings.HasPrefix(link, "http") {
		link = "https://www.facebook.com/" + link
	}
	form := url.Values{}
	form.Set("link", link)
	if req.Content.Text != "" {
		form.Set("message", req.Content.Text)
	}
	form.Set("access_token", req.Credential.AccessToken)
	return a.postForm(ctx, "/"+url.PathEscape(req.AccountRef)+"/feed", form)
}
