package platform

// PlatformConfig is the per-platform knob set the registry is built from.
// Kept free of the configuration package so adapters stay testable on their
// own.
type PlatformConfig struct {
	ClientID      string
	ClientSecret  string
	TokenURL      string
	BaseURL       string
	RatePerSecond float64
	Burst         int
}
