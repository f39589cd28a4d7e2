package platform

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ErrUnknownPlatform is returned for a platform no adapter is registered for.
var ErrUnknownPlatform = errors.New("unknown platform")

// Registry resolves a platform identifier to its adapter. It is built once at
// startup and read-only afterwards, so lookups need no locking.
type Registry struct {
	adapters map[string]Adapter
}

// RegistryConfig maps platform name to its knobs.
type RegistryConfig map[string]PlatformConfig

// NewRegistry builds adapters for every configured platform. Platforms
// without a config entry still get an adapter with default limits, so a
// missing config block degrades to conservative rate limiting rather than
// undispatchable posts.
func NewRegistry(cfg RegistryConfig, client *http.Client) *Registry {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	get := func(name string) PlatformConfig { return cfg[name] }
	r := &Registry{adapters: map[string]Adapter{
		"facebook":  NewFacebookAdapter(get("facebook"), client),
		"twitter":   NewTwitterAdapter(get("twitter"), client),
		"instagram": NewInstagramAdapter(get("instagram"), client),
		"linkedin":  NewLinkedInAdapter(get("linkedin"), client),
		"youtube":   NewYouTubeAdapter(get("youtube")),
		"tiktok":    NewTikTokAdapter(get("tiktok"), client),
	}}
	return r
}

// Register installs or replaces an adapter. Used by tests to inject fakes.
func (r *Registry) Register(adapter Adapter) {
	r.adapters[strings.ToLower(adapter.Platform())] = adapter
}

func (r *Registry) AdapterFor(platformID string) (Adapter, error) {
	adapter, ok := r.adapters[strings.ToLower(platformID)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPlatform, platformID)
	}
	return adapter, nil
}

// Platforms lists the registered platform identifiers.
func (r *Registry) Platforms() []string {
	out := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		out = append(out, name)
	}
	return out
}
