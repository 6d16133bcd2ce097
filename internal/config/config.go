package config

import (
	"github.com/myrjola/caselink/internal/envstruct"
	"github.com/myrjola/caselink/internal/errors"
	"time"
)

// Config holds the settings of the case linking tools. See [Load].
type Config struct {
	SQLiteURL string `env:"CASELINK_SQLITE_URL" envDefault:"./caselink.sqlite"`

	// OpenAIAPIKey enables semantic similarity. Without it the semantic factor scores 0.
	OpenAIAPIKey       string        `env:"OPENAI_API_KEY" envDefault:""`
	OpenAIBaseURL      string        `env:"CASELINK_OPENAI_BASE_URL" envDefault:""`
	EmbeddingModel     string        `env:"CASELINK_EMBEDDING_MODEL" envDefault:"text-embedding-ada-002"`
	EmbeddingTimeout   time.Duration `env:"CASELINK_EMBEDDING_TIMEOUT" envDefault:"5s"`
	EmbeddingCacheSize int           `env:"CASELINK_EMBEDDING_CACHE_SIZE" envDefault:"1024"`

	CandidatePoolSize int     `env:"CASELINK_CANDIDATE_POOL" envDefault:"100"`
	AutoLinkThreshold float64 `env:"CASELINK_AUTOLINK_THRESHOLD" envDefault:"0.75"`

	MinGenerationScore         float64 `env:"CASELINK_MIN_SCORE" envDefault:"40"`
	IncrementalGenerationScore float64 `env:"CASELINK_INCREMENTAL_SCORE" envDefault:"20"`
}

// Load reads the configuration with lookupEnv, usually [os.LookupEnv].
func Load(lookupEnv func(string) (string, bool)) (Config, error) {
	var cfg Config
	if err := envstruct.Populate(&cfg, lookupEnv); err != nil {
		return Config{}, errors.Wrap(err, "populate config")
	}
	return cfg, nil
}
