// Package config loads and validates service configuration. Every recognized
// option is an explicit typed field; unknown or out-of-range values are
// rejected at load time, not discovered mid-batch.
package config

import (
	"fmt"
	"math"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for the codification engine. Values come
// from a YAML file with environment variable overrides; env always wins.
type Config struct {
	Port string `yaml:"port" env:"PORT" env-default:"4000"`

	NATSURL     string `yaml:"nats_url" env:"NATS_URL" env-default:"nats://localhost:4222"`
	PostgresURL string `yaml:"postgres_url" env:"POSTGRES_URL" env-default:"postgres://localhost:5432/codauto"`

	Qdrant QdrantConfig `yaml:"qdrant"`
	Ollama OllamaConfig `yaml:"ollama"`

	Matching MatchingConfig `yaml:"matching"`

	// CommercialVehicleTypes are catalog vehicle_type values treated as
	// commercial for brand-based vehicle-type suggestion.
	CommercialVehicleTypes []string `yaml:"commercial_vehicle_types" env:"COMMERCIAL_VEHICLE_TYPES" env-default:"camioneta,camion,tractocamion,remolque"`

	// Abbreviations extend the built-in expansion dictionary. Keys are the
	// shorthand tokens as they appear after normalization.
	Abbreviations map[string]string `yaml:"abbreviations"`
}

// QdrantConfig locates the vector store.
type QdrantConfig struct {
	Addr   string `yaml:"addr" env:"QDRANT_ADDR" env-default:"localhost:6334"`
	Prefix string `yaml:"prefix" env:"QDRANT_PREFIX" env-default:"catalog"`
}

// OllamaConfig locates the embedding model server.
type OllamaConfig struct {
	URL   string  `yaml:"url" env:"OLLAMA_URL" env-default:"http://localhost:11434"`
	Model string  `yaml:"model" env:"OLLAMA_MODEL" env-default:"nomic-embed-text"`
	RPS   float64 `yaml:"rps" env:"OLLAMA_RPS" env-default:"0"` // 0 disables rate limiting
}

// MatchingConfig are the tunables of the matching pipeline.
type MatchingConfig struct {
	MinSimilarity  float64       `yaml:"min_similarity" env:"MATCH_MIN_SIMILARITY" env-default:"0.50"`
	THigh          float64       `yaml:"t_high" env:"MATCH_T_HIGH" env-default:"0.90"`
	TLow           float64       `yaml:"t_low" env:"MATCH_T_LOW" env-default:"0.70"`
	WEmbed         float64       `yaml:"w_embed" env:"MATCH_W_EMBED" env-default:"0.7"`
	WFuzzy         float64       `yaml:"w_fuzzy" env:"MATCH_W_FUZZY" env-default:"0.3"`
	MaxCandidates  int           `yaml:"max_candidates" env:"MATCH_MAX_CANDIDATES" env-default:"5"`
	FuzzyThreshold int           `yaml:"fuzzy_threshold" env:"MATCH_FUZZY_THRESHOLD" env-default:"80"`
	RowTimeout     time.Duration `yaml:"row_timeout" env:"MATCH_ROW_TIMEOUT" env-default:"10s"`
	Workers        int           `yaml:"workers" env:"MATCH_WORKERS" env-default:"8"`
}

// Load reads the given YAML file (skipped when the file does not exist) with
// environment overrides, then validates.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if _, err := os.Stat(path); err == nil {
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	} else {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("config: read env: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the pipeline cannot run with.
func (c *Config) Validate() error {
	m := c.Matching
	for _, v := range []struct {
		name string
		val  float64
	}{
		{"min_similarity", m.MinSimilarity},
		{"t_high", m.THigh},
		{"t_low", m.TLow},
		{"w_embed", m.WEmbed},
		{"w_fuzzy", m.WFuzzy},
	} {
		if v.val < 0 || v.val > 1 {
			return fmt.Errorf("config: %s = %v, must be in [0,1]", v.name, v.val)
		}
	}
	if m.TLow > m.THigh {
		return fmt.Errorf("config: t_low (%v) must not exceed t_high (%v)", m.TLow, m.THigh)
	}
	if math.Abs(m.WEmbed+m.WFuzzy-1.0) > 1e-9 {
		return fmt.Errorf("config: w_embed + w_fuzzy = %v, must sum to 1", m.WEmbed+m.WFuzzy)
	}
	if m.MaxCandidates <= 0 {
		return fmt.Errorf("config: max_candidates = %d, must be positive", m.MaxCandidates)
	}
	if m.FuzzyThreshold < 0 || m.FuzzyThreshold > 100 {
		return fmt.Errorf("config: fuzzy_threshold = %d, must be in [0,100]", m.FuzzyThreshold)
	}
	if m.RowTimeout <= 0 {
		return fmt.Errorf("config: row_timeout = %v, must be positive", m.RowTimeout)
	}
	if m.Workers <= 0 {
		return fmt.Errorf("config: workers = %d, must be positive", m.Workers)
	}
	if c.Ollama.RPS < 0 {
		return fmt.Errorf("config: ollama rps = %v, must not be negative", c.Ollama.RPS)
	}
	return nil
}
