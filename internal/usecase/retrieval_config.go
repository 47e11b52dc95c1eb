package usecase

import "fmt"

// ThresholdProfile is a similarity cutoff table tuned for one
// language/domain. Embedding similarity distributions are not
// comparable across languages, so a single global cutoff would
// systematically over- or under-admit results for some profiles.
type ThresholdProfile struct {
	Excellent  float64
	Good       float64
	Acceptable float64
	// Minimum is the admission cutoff: candidates below it are dropped.
	// The comparison is inclusive.
	Minimum float64
}

// Validate checks the profile's cutoffs are ordered and in range.
func (p ThresholdProfile) Validate() error {
	cutoffs := []struct {
		name  string
		value float64
	}{
		{"excellent", p.Excellent},
		{"good", p.Good},
		{"acceptable", p.Acceptable},
		{"minimum", p.Minimum},
	}
	prev := 1.0
	for _, c := range cutoffs {
		if c.value < 0 || c.value > 1 {
			return fmt.Errorf("%s threshold must be in [0, 1], got %f", c.name, c.value)
		}
		if c.value > prev {
			return fmt.Errorf("%s threshold (%f) exceeds the next stricter cutoff (%f)", c.name, c.value, prev)
		}
		prev = c.value
	}
	return nil
}

// Profile names shipped with the default configuration.
const (
	ProfileDefault = "default"
	ProfileDanish  = "danish"
)

// RetrievalConfig holds the tunable parameters for one retrieval call.
// Resolved once by the caller and treated as immutable; the retrieval
// engine never reads configuration sources directly.
type RetrievalConfig struct {
	// EmbeddingModel identifies the model that embedded the stored
	// chunks. Queries must be embedded with the same model.
	EmbeddingModel string

	// Dimensions is the vector dimensionality of the embedding space.
	Dimensions int

	// TopK is the number of results returned to the consumer.
	TopK int

	// Profiles maps a language profile name to its threshold table.
	// A "default" profile must be present.
	Profiles map[string]ThresholdProfile

	// DefaultProfile is the profile applied when a request names none.
	DefaultProfile string
}

// DefaultRetrievalConfig returns the deployment defaults. The cutoff
// numbers are deployment tuning, retuned against each corpus; only the
// profile mechanism is a contract. The Danish profile sits lower
// because multilingual embedding similarities cluster lower for Danish
// technical text.
func DefaultRetrievalConfig() RetrievalConfig {
	return RetrievalConfig{
		EmbeddingModel: "voyage-multilingual-2",
		Dimensions:     1024,
		TopK:           5,
		Profiles: map[string]ThresholdProfile{
			ProfileDefault: {Excellent: 0.75, Good: 0.60, Acceptable: 0.40, Minimum: 0.25},
			ProfileDanish:  {Excellent: 0.65, Good: 0.50, Acceptable: 0.32, Minimum: 0.18},
		},
		DefaultProfile: ProfileDefault,
	}
}

// Profile resolves a profile by name. An empty name resolves to the
// configured DefaultProfile; unknown names fall back to the "default"
// table.
func (c RetrievalConfig) Profile(name string) ThresholdProfile {
	if name == "" {
		name = c.DefaultProfile
	}
	if p, ok := c.Profiles[name]; ok {
		return p
	}
	return c.Profiles[ProfileDefault]
}

// CandidateLimit is the raw candidate count requested from search
// tiers: twice TopK, leaving headroom for deduplication.
func (c RetrievalConfig) CandidateLimit() int {
	return 2 * c.TopK
}

// Validate checks the configuration values are usable.
func (c RetrievalConfig) Validate() error {
	if c.EmbeddingModel == "" {
		return fmt.Errorf("embedding model must be set")
	}
	if c.Dimensions <= 0 {
		return fmt.Errorf("dimensions must be positive, got %d", c.Dimensions)
	}
	if c.TopK <= 0 {
		return fmt.Errorf("topK must be positive, got %d", c.TopK)
	}
	if _, ok := c.Profiles[ProfileDefault]; !ok {
		return fmt.Errorf("a %q threshold profile is required", ProfileDefault)
	}
	if c.DefaultProfile != "" {
		if _, ok := c.Profiles[c.DefaultProfile]; !ok {
			return fmt.Errorf("default profile %q has no threshold table", c.DefaultProfile)
		}
	}
	for name, p := range c.Profiles {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("profile %q invalid: %w", name, err)
		}
	}
	return nil
}
