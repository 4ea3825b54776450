package analysis

import "time"

// Config holds orchestration settings. Field tags are read by envconfig when
// this struct is embedded in the application config.
type Config struct {
	// Threshold below which a diagnosis is refined.
	Threshold float64 `envconfig:"THRESHOLD" validate:"gte=0,lte=1"`

	// Variant selects the decision-rule tie-break policy.
	Variant string `envconfig:"VARIANT" validate:"oneof=ordered holistic"`

	// Enrich turns on the supplementary analytics call.
	Enrich         bool   `envconfig:"ENRICH"`
	AnalyticsFocus string `envconfig:"ANALYTICS_FOCUS"`

	MaxImageBytes int64 `envconfig:"MAX_IMAGE_BYTES" validate:"gt=0"`

	Cache CacheConfig `envconfig:"CACHE"`
}

// CacheConfig configures CachedAnalyzer.
type CacheConfig struct {
	Enabled    bool          `envconfig:"ENABLED"`
	MaxEntries int64         `envconfig:"MAX_ENTRIES" validate:"gt=0"`
	TTL        time.Duration `envconfig:"TTL" validate:"gt=0"`
}

// DefaultThreshold is the low-confidence cut-off.
const DefaultThreshold = 0.5

// DefaultConfig returns the defaults.
func DefaultConfig() Config {
	return Config{
		Threshold:     DefaultThreshold,
		Variant:       "ordered",
		MaxImageBytes: 20 << 20,
		Cache: CacheConfig{
			MaxEntries: 1024,
			TTL:        time.Hour,
		},
	}
}
