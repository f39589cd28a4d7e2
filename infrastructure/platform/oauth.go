package platform

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/oauth2"

	"socialhub/domain/model"
)

// OAuthRefresher exchanges refresh tokens at each platform's token endpoint.
type OAuthRefresher struct {
	configs map[string]*oauth2.Config
}

func NewOAuthRefresher(cfg RegistryConfig) *OAuthRefresher {
	configs := make(map[string]*oauth2.Config, len(cfg))
	for name, pc := range cfg {
		if pc.TokenURL == "" {
			continue
		}
		configs[name] = &oauth2.Config{
			ClientID:     pc.ClientID,
			ClientSecret: pc.ClientSecret,
			Endpoint:     oauth2.Endpoint{TokenURL: pc.TokenURL},
		}
	}
	return &OAuthRefresher{configs: configs}
}

func (r *OAuthRefresher) Refresh(ctx context.Context, cred *model.Credential) (*model.Credential, error) {
	conf, ok := r.configs[cred.Platform]
	if !ok {
		return nil, fmt.Errorf("no token endpoint configured for platform %s", cred.Platform)
	}
	stale := &oauth2.Token{
		AccessToken:  cred.AccessToken,
		RefreshToken: cred.RefreshToken,
		// Force the token source to refresh instead of reusing.
		Expiry: time.Now().Add(-time.Minute),
	}
	fresh, err := conf.TokenSource(ctx, stale).Token()
	if err != nil {
		return nil, err
	}
	out := *cred
	out.AccessToken = fresh.AccessToken
	if fresh.RefreshToken != "" {
		out.RefreshToken = fresh.RefreshToken
	}
	if !fresh.Expiry.IsZero() {
		expiry := fresh.Expiry.UTC()
		out.ExpiresAt = &expiry
	}
	return &out, nil
}
