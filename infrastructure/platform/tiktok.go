package platform

import (
	"context"
	"net/http"
)

// TikTokAdapter posts through the Content Posting API. Engagement actions are
// not exposed by TikTok's open API, so only publish is supported.
type TikTokAdapter struct {
	httpAdapter
}

func NewTikTokAdapter(cfg PlatformConfig, client *http.Client) *TikTokAdapter {
	base := cfg.BaseURL
	if base == "" {
		base = "https://open.tiktokapis.com"
	}
	return &TikTokAdapter{httpAdapter{
		name:    "tiktok",
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

type tiktokPost struct {
	PostInfo   tiktokPostInfo   `json:"post_info"`
	SourceInfo tiktokSourceInfo `json:"source_info"`
}

type tiktokPostInfo struct {
	Title       string `json:"title"`
	PrivacyLevel string `json:"privacy_level"`
}

type tiktokSourceInfo struct {
	Source   string `json:"source"`
	VideoURL string `json:"video_url,omitempty"`
	PhotoURL string `json:"photo_url,omitempty"`
}

func (a *TikTokAdapter) Publish(ctx context.Context, req Request) (string, error) {
	if err := a.allow(req.AccountRef); err != nil {
		return "", err
	}
	if len(req.Content.MediaURLs) == 0 {
		return "", Rejected("tiktok requires a media attachment")
	}
	payload := tiktokPost{
		PostInfo: tiktokPostInfo{Title: req.Content.Text, PrivacyLevel: "PUBLIC_TO_EVERYONE"},
		SourceInfo: tiktokSourceInfo{
			Source:   "PULL_FROM_URL",
			VideoURL: req.Content.MediaURLs[0],
		},
	}
	return a.postJSON(ctx, "/v2/post/publish/video/init/", req.Credential.AccessToken, payload, nil)
}

func (a *TikTokAdapter) Like(ctx context.Context, req Request) (string, error) {
	return "", Rejected("tiktok api does not support likes")
}

func (a *TikTokAdapter) Comment(ctx context.Context, req Request) (string, error) {
	return "", Rejected("tiktok api does not support comments")
}

func (a *TikTokAdapter) Follow(ctx context.Context, req Request) (string, error) {
	return "", Rejected("tiktok api does not support follow")
}

func (a *TikTokAdapter) Share(ctx context.Context, req Request) (string, error) {
	return "", Rejected("tiktok api does not support reshare")
}
