package platform

import (
	"context"
	"net/http"
	"net/url"
)

// LinkedInAdapter posts UGC shares on behalf of a member or organization urn.
type LinkedInAdapter struct {
	httpAdapter
}

func NewLinkedInAdapter(cfg PlatformConfig, client *http.Client) *LinkedInAdapter {
	base := cfg.BaseURL
	if base == "" {
		base = "https://api.linkedin.com"
	}
	return &LinkedInAdapter{httpAdapter{
		name:    "linkedin",
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

type linkedInShare struct {
	Author          string                    `json:"author"`
	LifecycleState  string                    `json:"lifecycleState"`
	SpecificContent linkedInSpecificContent   `json:"specificContent"`
	Visibility      map[string]string         `json:"visibility"`
}

type linkedInSpecificContent struct {
	ShareContent linkedInShareContent `json:"com.linkedin.ugc.ShareContent"`
}

type linkedInShareContent struct {
	ShareCommentary    map[string]string `json:"shareCommentary"`
	ShareMediaCategory string            `json:"shareMediaCategory"`
}

func (a *LinkedInAdapter) Publish(ctx context.Context, req Request) (string, error) {
	if err := a.allow(req.AccountRef); err != nil {
		return "", err
	}
	payload := linkedInShare{
		Author:         "urn:li:organization:" + req.AccountRef,
		LifecycleState: "PUBLISHED",
		SpecificContent: linkedInSpecificContent{
			ShareContent: linkedInShareContent{
				ShareCommentary:    map[string]string{"text": req.Content.Text},
				ShareMediaCategory: "NONE",
			},
		},
		Visibility: map[string]string{"com.linkedin.ugc.MemberNetworkVisibility": "PUBLIC"},
	}
	header := map[string]string{"X-Restli-Protocol-Version": "2.0.0"}
	return a.postJSON(ctx, "/v2/ugcPosts", req.Credential.AccessToken, payload, header)
}

func (a *LinkedInAdapter) Like(ctx context.Context, req Request) (string, error) {
	if err := a.allow(req.AccountRef); err != nil {
		return "", err
	}
	payload := map[string]interface{}{
		"actor":  "urn:li:organization:" + req.AccountRef,
		"object": req.RemoteObjectID,
	}
	return a.postJSON(ctx, "/v2/socialActions/"+url.PathEscape(req.RemoteObjectID)+"/likes", req.Credential.AccessToken, payload, nil)
}

func (a *LinkedInAdapter) Comment(ctx context.Context, req Request) (string, error) {
	if err := a.allow(req.AccountRef); err != nil {
		return "", err
	}
	payload := map[string]interface{}{
		"actor":   "urn:li:organization:" + req.AccountRef,
		"message": map[string]string{"text": req.CommentText},
	}
	return a.postJSON(ctx, "/v2/socialActions/"+url.PathEscape(req.RemoteObjectID)+"/comments", req.Credential.AccessToken, payload, nil)
}

func (a *LinkedInAdapter) Follow(ctx context.Context, req Request) (string, error) {
	return "", Rejected("linkedin api does not expose follow for third parties")
}

func (a *LinkedInAdapter) Share(ctx context.Context, req Request) (string, error) {
	if err := a.allow(req.AccountRef); err != nil {
		return "", err
	}
	payload := linkedInShare{
		Author:         "urn:li:organization:" + req.AccountRef,
		LifecycleState: "PUBLISHED",
		SpecificContent: linkedInSpecificContent{
			ShareContent: linkedInShareContent{
				ShareCommentary:    map[string]string{"text": req.Content.Text + " " + req.RemoteObjectID},
				ShareMediaCategory: "ARTICLE",
			},
		},
		Visibility: map[string]string{"com.linkedin.ugc.MemberNetworkVisibility": "PUBLIC"},
	}
	header := map[string]string{"X-Restli-Protocol-Version": "2.0.0"}
	return a.postJSON(ctx, "/v2/ugcPosts", req.Credential.AccessToken, payload, header)
}
