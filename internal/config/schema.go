package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackzampolin/pageindex/internal/pageindex"
)

// Config holds pageindex configuration.
// Stored at: {home}/config.yaml
type Config struct {
	Server    ServerCfg    `mapstructure:"server" yaml:"server" json:"server"`
	PageIndex PageIndexCfg `mapstructure:"pageindex" yaml:"pageindex" json:"pageindex"`
	Log       LogCfg       `mapstructure:"log" yaml:"log" json:"log"`
}

// ServerCfg configures the HTTP server.
type ServerCfg struct {
	Host           string `mapstructure:"host" yaml:"host" json:"host"`
	Port           string `mapstructure:"port" yaml:"port" json:"port"`
	MaxUploadBytes int64  `mapstructure:"max_upload_bytes" yaml:"max_upload_bytes" json:"max_upload_bytes"`
	RequestTimeout string `mapstructure:"request_timeout" yaml:"request_timeout" json:"request_timeout"` // Go duration, "0" disables
	Workers        int    `mapstructure:"workers" yaml:"workers" json:"workers"`                         // 0 means one per CPU
	StagingDir     string `mapstructure:"staging_dir" yaml:"staging_dir" json:"staging_dir"`             // empty means {home}/staging
}

// PageIndexCfg configures extraction.
type PageIndexCfg struct {
	Mode            string `mapstructure:"mode" yaml:"mode" json:"mode"` // "auto", "outline", "llm"
	Model           string `mapstructure:"model" yaml:"model" json:"model"`
	APIKey          string `mapstructure:"api_key" yaml:"api_key" json:"api_key"` // supports ${ENV_VAR} syntax
	BaseURL         string `mapstructure:"base_url" yaml:"base_url" json:"base_url"`
	TOCCheckPageNum int    `mapstructure:"toc_check_page_num" yaml:"toc_check_page_num" json:"toc_check_page_num"`
	MaxDepth        int    `mapstructure:"max_depth" yaml:"max_depth" json:"max_depth"`
	AddNodeID       bool   `mapstructure:"add_node_id" yaml:"add_node_id" json:"add_node_id"`
	AddEndPage      bool   `mapstructure:"add_end_page" yaml:"add_end_page" json:"add_end_page"`
	LLMMaxRetries   int    `mapstructure:"llm_max_retries" yaml:"llm_max_retries" json:"llm_max_retries"`
}

// LogCfg configures logging.
type LogCfg struct {
	Level  string `mapstructure:"level" yaml:"level" json:"level"`    // debug, info, warn, error
	Format string `mapstructure:"format" yaml:"format" json:"format"` // text or json
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	opts := pageindex.DefaultOptions()
	return &Config{
		Server: ServerCfg{
			Host:           "0.0.0.0",
			Port:           "8000",
			MaxUploadBytes: 100 << 20,
			RequestTimeout: "10m",
		},
		PageIndex: PageIndexCfg{
			Mode:            string(opts.Mode),
			Model:           opts.Model,
			APIKey:          "${OPENAI_API_KEY}",
			TOCCheckPageNum: opts.TOCCheckPageNum,
			MaxDepth:        opts.MaxDepth,
			AddNodeID:       opts.AddNodeID,
			AddEndPage:      opts.AddEndPage,
			LLMMaxRetries:   3,
		},
		Log: LogCfg{
			Level:  "info",
			Format: "text",
		},
	}
}

// Validate checks values that are not checked when they are used.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server.port is required")
	}
	if c.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("server.max_upload_bytes must be positive, got %d", c.Server.MaxUploadBytes)
	}
	if c.Server.Workers < 0 {
		return fmt.Errorf("server.workers must not be negative, got %d", c.Server.Workers)
	}
	if _, err := c.Server.Timeout(); err != nil {
		return err
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	_, err := c.PageIndex.ToOptions()
	return err
}

// Timeout parses RequestTimeout. Zero means no timeout.
func (s ServerCfg) Timeout() (time.Duration, error) {
	if s.RequestTimeout == "" || s.RequestTimeout == "0" {
		return 0, nil
	}
	d, err := time.ParseDuration(s.RequestTimeout)
	if err != nil {
		return 0, fmt.Errorf("invalid server.request_timeout %q: %w", s.RequestTimeout, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("server.request_timeout must not be negative, got %s", d)
	}
	return d, nil
}

// ToOptions builds the shared extraction options.
func (p PageIndexCfg) ToOptions() (*pageindex.Options, error) {
	return pageindex.LoadOptions(map[string]any{
		"mode":               p.Mode,
		"model":              p.Model,
		"toc_check_page_num": p.TOCCheckPageNum,
		"max_depth":          p.MaxDepth,
		"add_node_id":        p.AddNodeID,
		"add_end_page":       p.AddEndPage,
	})
}

// ToOpenAIConfig returns the LLM client configuration with ${ENV_VAR}
// references resolved. ok is false when no API key is available.
func (p PageIndexCfg) ToOpenAIConfig(logger *slog.Logger) (cfg pageindex.OpenAIConfig, ok bool) {
	apiKey := ResolveEnvVars(p.APIKey)
	if apiKey == "" {
		return pageindex.OpenAIConfig{}, false
	}
	return pageindex.OpenAIConfig{
		APIKey:     apiKey,
		Model:      p.Model,
		BaseURL:    ResolveEnvVars(p.BaseURL),
		MaxRetries: p.LLMMaxRetries,
		Logger:     logger,
	}, true
}

// SlogLevel parses Level.
func (l LogCfg) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(l.Level))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log.level %q: %w", l.Level, err)
	}
	return level, nil
}
