package engine

import (
	"bytes"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/engagekit/verity/internal/domain"
)

var validate = validator.New()

// Config defines the complete operating parameters for the verification
// engine: pass thresholds, dimension weights, corpus limits, and result
// cache behavior. Load it from YAML with LoadConfig or start from
// DefaultConfig and adjust fields.
type Config struct {
	// Thresholds are the default minimum scores a response must clear.
	// Individual requests may raise them but the engine ignores attempts
	// to lower them below these values.
	Thresholds domain.Thresholds `yaml:"thresholds" validate:"required"`
	// Weights control how much each scoring dimension contributes to the
	// combined score. They must be non-negative and sum to 1.0 within a
	// small tolerance.
	Weights domain.Weights `yaml:"weights" validate:"required"`
	// MaxCorpusSize caps how many existing responses are considered for
	// corpus novelty. Requests carrying larger corpora are truncated.
	MaxCorpusSize int `yaml:"max_corpus_size" validate:"min=1,max=1000"`
	// CacheTTLSeconds is how long a verification result stays valid in
	// the fingerprint cache.
	CacheTTLSeconds int `yaml:"cache_ttl_seconds" validate:"min=1,max=86400"`
	// KeywordMinLength is the minimum token length for relevance keyword
	// extraction.
	KeywordMinLength int `yaml:"keyword_min_length" validate:"min=2,max=10"`
	// LexiconPath optionally points at a YAML lexicon file overriding the
	// built-in phrase lists. Empty means use the defaults.
	LexiconPath string `yaml:"lexicon_path" validate:"omitempty,filepath"`
}

// DefaultConfig returns the engine defaults. These are the production
// settings and the baseline every deployment starts from.
func DefaultConfig() Config {
	return Config{
		Thresholds: domain.Thresholds{
			MinRelevance:      0.60,
			MinIrreducibility: 0.55,
			MinNovelty:        0.55,
			MinCoherence:      0.50,
			MinCombined:       0.55,
		},
		Weights: domain.Weights{
			Relevance:      0.20,
			Irreducibility: 0.20,
			Novelty:        0.20,
			Coherence:      0.15,
			Effort:         0.10,
			AIDetection:    0.15,
		},
		MaxCorpusSize:    100,
		CacheTTLSeconds:  3600,
		KeywordMinLength: 4,
	}
}

// CacheTTL returns the cache lifetime as a duration.
func (c Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// Validate checks the configuration for structural and semantic errors.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	if err := c.Weights.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

// LoadConfig reads a YAML configuration file, applies environment
// overrides, and validates the result. Unknown YAML fields are rejected
// to catch typos early. An empty path skips the file and uses defaults
// plus environment.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil {
			return Config{}, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyEnvOverrides lets a deployment tune individual settings without a
// config file. Only the operationally interesting knobs are exposed.
func applyEnvOverrides(cfg *Config) error {
	floats := []struct {
		key    string
		target *float64
	}{
		{"VERITY_MIN_RELEVANCE", &cfg.Thresholds.MinRelevance},
		{"VERITY_MIN_IRREDUCIBILITY", &cfg.Thresholds.MinIrreducibility},
		{"VERITY_MIN_NOVELTY", &cfg.Thresholds.MinNovelty},
		{"VERITY_MIN_COHERENCE", &cfg.Thresholds.MinCoherence},
		{"VERITY_MIN_COMBINED", &cfg.Thresholds.MinCombined},
	}
	for _, f := range floats {
		raw, ok := os.LookupEnv(f.key)
		if !ok {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", f.key, err)
		}
		*f.target = v
	}

	ints := []struct {
		key    string
		target *int
	}{
		{"VERITY_MAX_CORPUS_SIZE", &cfg.MaxCorpusSize},
		{"VERITY_CACHE_TTL_SECONDS", &cfg.CacheTTLSeconds},
	}
	for _, f := range ints {
		raw, ok := os.LookupEnv(f.key)
		if !ok {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", f.key, err)
		}
		*f.target = v
	}

	if path, ok := os.LookupEnv("VERITY_LEXICON_PATH"); ok {
		cfg.LexiconPath = path
	}
	return nil
}
