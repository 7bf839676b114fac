// Package config loads memoforge settings. Precedence, highest first:
//
//  1. MEMOFORGE_* environment variables (MEMOFORGE_LLM_MODEL -> llm.model)
//  2. the YAML config file
//  3. Defaults()
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dusk-indust/memoforge/internal/llm"
	"github.com/dusk-indust/memoforge/internal/logging"
	"github.com/dusk-indust/memoforge/internal/orchestrator"
	"github.com/dusk-indust/memoforge/internal/retrieval"
	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix marks the environment variables that override file settings.
const EnvPrefix = "MEMOFORGE_"

const maxConfigFileSize = 1024 * 1024

// FileNames are searched, in order, by Find.
var FileNames = []string{"memoforge.yml", "memoforge.yaml"}

// Config holds every memoforge setting.
type Config struct {
	LLM          LLMConfig          `koanf:"llm"`
	Embedding    EmbeddingConfig    `koanf:"embedding"`
	Index        IndexConfig        `koanf:"index"`
	Orchestrator OrchestratorConfig `koanf:"orchestrator"`
	Validator    ValidatorConfig    `koanf:"validator"`
	Catalog      CatalogConfig      `koanf:"catalog"`
	Log          LogConfig          `koanf:"log"`
}

// LLMConfig selects the completion model.
type LLMConfig struct {
	Provider string `koanf:"provider" validate:"omitempty,oneof=openai anthropic"`
	Model    string `koanf:"model"`
	APIKey   string `koanf:"api_key"`
	BaseURL  string `koanf:"base_url" validate:"omitempty,url"`

	// Temperature overrides every document type's temperature when set.
	Temperature *float64      `koanf:"temperature" validate:"omitempty,min=0,max=2"`
	Timeout     time.Duration `koanf:"timeout" validate:"min=0"`
	RateLimit   float64       `koanf:"rate_limit" validate:"min=0"`
	Burst       int           `koanf:"burst" validate:"min=0"`
}

// EmbeddingConfig selects the OpenAI-compatible embedding endpoint.
type EmbeddingConfig struct {
	Model   string `koanf:"model"`
	BaseURL string `koanf:"base_url" validate:"omitempty,url"`
	APIKey  string `koanf:"api_key"`
}

// IndexConfig locates the passage index.
type IndexConfig struct {
	Path       string `koanf:"path"`
	Compress   bool   `koanf:"compress"`
	Collection string `koanf:"collection" validate:"required"`
	TopK       int    `koanf:"top_k" validate:"min=1,max=50"`
}

// OrchestratorConfig is the run policy.
type OrchestratorConfig struct {
	Retries      int           `koanf:"retries" validate:"min=0,max=10"`
	RetryBackoff time.Duration `koanf:"retry_backoff" validate:"min=0"`
	EventBuffer  int           `koanf:"event_buffer" validate:"min=1"`
}

// ValidatorConfig tunes the document checks.
type ValidatorConfig struct {
	RedundancyThreshold float64 `koanf:"redundancy_threshold" validate:"gt=0,lte=1"`
	MinParagraphChars   int     `koanf:"min_paragraph_chars" validate:"min=0"`
}

// CatalogConfig points at extra document type definitions.
type CatalogConfig struct {
	Dir string `koanf:"dir"`
}

// LogConfig selects log level and encoding.
type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=debug info warn error"`
	Format string `koanf:"format" validate:"oneof=json console"`
}

// Defaults returns the built-in settings.
func Defaults() Config {
	return Config{
		LLM: LLMConfig{
			Provider:  llm.ProviderOpenAI,
			Model:     "gpt-4o-mini",
			Timeout:   2 * time.Minute,
			RateLimit: 2,
			Burst:     4,
		},
		Index: IndexConfig{
			Collection: retrieval.DefaultCollection,
			TopK:       retrieval.DefaultTopK,
		},
		Orchestrator: OrchestratorConfig{
			Retries:      orchestrator.DefaultRetries,
			RetryBackoff: time.Second,
			EventBuffer:  orchestrator.DefaultEventBuffer,
		},
		Validator: ValidatorConfig{
			RedundancyThreshold: 0.3,
		},
		Log: LogConfig{
			Level:  "info",
			Format: logging.FormatConsole,
		},
	}
}

// Find returns the first config file from FileNames present in dir, or ""
// when there is none.
func Find(dir string) string {
	for _, name := range FileNames {
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}
	return ""
}

// Load reads path over Defaults() and applies environment overrides. An
// empty path or a missing file is not an error.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		content, err := readFile(path)
		if err != nil {
			return nil, err
		}
		if content != nil {
			if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("load config file %s: %w", path, err)
			}
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load environment variables: %w", err)
	}

	cfg := Defaults()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func readFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("stat config file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("config path %s is a directory", path)
	}
	if info.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config file %s too large: %d bytes (maximum %d)", path, info.Size(), maxConfigFileSize)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return content, nil
}

// envKey maps MEMOFORGE_SECTION_FIELD_NAME to section.field_name.
func envKey(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	section, field, ok := strings.Cut(lower, "_")
	if !ok {
		return lower
	}
	return section + "." + field
}

// Validate checks every field constraint.
func (c *Config) Validate() error {
	err := validator.New().Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate config: %w", err)
	}
	problems := make([]string, len(verrs))
	for i, fe := range verrs {
		problems[i] = fmt.Sprintf("%s: failed %q (value %v)", strings.TrimPrefix(fe.Namespace(), "Config."), fe.Tag(), fe.Value())
	}
	return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
}

// Client returns the completion client settings.
func (c LLMConfig) Client() llm.Config {
	return llm.Config{
		Provider:  c.Provider,
		Model:     c.Model,
		APIKey:    c.APIKey,
		BaseURL:   c.BaseURL,
		Timeout:   c.Timeout,
		RateLimit: c.RateLimit,
		Burst:     c.Burst,
	}
}

// Embedder returns the embedding client settings.
func (c EmbeddingConfig) Embedder() retrieval.EmbedderConfig {
	return retrieval.EmbedderConfig{
		BaseURL: c.BaseURL,
		Model:   c.Model,
		APIKey:  c.APIKey,
	}
}

// Chromem returns the index settings.
func (c IndexConfig) Chromem() retrieval.ChromemConfig {
	return retrieval.ChromemConfig{
		Path:       c.Path,
		Compress:   c.Compress,
		Collection: c.Collection,
	}
}

// Run returns the orchestrator run policy.
func (c OrchestratorConfig) Run() orchestrator.Config {
	return orchestrator.Config{
		Retries:      c.Retries,
		RetryBackoff: c.RetryBackoff,
		EventBuffer:  c.EventBuffer,
	}
}

// Logger returns the logging settings.
func (c LogConfig) Logger() logging.Config {
	return logging.Config{Level: c.Level, Format: c.Format}
}
