package platform

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistry_AdapterFor(t *testing.T) {
	registry := NewRegistry(RegistryConfig{
		"facebook": {RatePerSecond: 1, Burst: 1},
		"twitter":  {RatePerSecond: 1, Burst: 1},
	}, nil)

	adapter, err := registry.AdapterFor("facebook")
	require.NoError(t, err)
	require.Equal(t, "facebook", adapter.Platform())

	_, err = registry.AdapterFor("myspace")
	require.ErrorIs(t, err, ErrUnknownPlatform)
}

func TestRegistry_PlatformsListsAllBuiltins(t *testing.T) {
	registry := NewRegistry(RegistryConfig{}, nil)

	names := registry.Platforms()
	require.ElementsMatch(t, []string{"facebook", "twitter", "instagram", "linkedin", "youtube", "tiktok"}, names)
}

func TestRegistry_RegisterReplacesAdapter(t *testing.T) {
	registry := NewRegistry(RegistryConfig{}, nil)
	fake := NewFacebookAdapter(PlatformConfig{BaseURL: "http://fake.invalid"}, nil)
	registry.Register(fake)

	adapter, err := registry.AdapterFor("FACEBOOK")
	require.NoError(t, err)
	require.Same(t, fake, adapter)
}
