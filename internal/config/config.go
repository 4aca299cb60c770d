package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

// DirName is the per-project data directory.
const DirName = ".vybe"

// Config is the complete vybe configuration.
type Config struct {
	Store     StoreConfig     `mapstructure:"store" toml:"store"`
	Ollama    OllamaConfig    `mapstructure:"ollama" toml:"ollama"`
	Workspace WorkspaceConfig `mapstructure:"workspace" toml:"workspace"`
	Index     IndexConfig     `mapstructure:"index" toml:"index"`
	Assemble  AssembleConfig  `mapstructure:"assemble" toml:"assemble"`
	Overview  OverviewConfig  `mapstructure:"overview" toml:"overview"`
	Log       LogConfig       `mapstructure:"log" toml:"log"`
}

// StoreConfig locates the content store. An empty path means
// <project>/.vybe/index.db.
type StoreConfig struct {
	Path string `mapstructure:"path" toml:"path"`
}

// OllamaConfig configures the embedding and chat backends.
type OllamaConfig struct {
	URL            string `mapstructure:"url" toml:"url"`
	EmbedModel     string `mapstructure:"embed_model" toml:"embed_model"`
	ChatModel      string `mapstructure:"chat_model" toml:"chat_model"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" toml:"timeout_seconds"`
}

// WorkspaceConfig names the workspace and its root in the store.
// Empty values are derived from the project path.
type WorkspaceConfig struct {
	ID     string `mapstructure:"id" toml:"id"`
	RootID string `mapstructure:"root_id" toml:"root_id"`
}

// IndexConfig controls the indexing pipeline.
type IndexConfig struct {
	Workers     int      `mapstructure:"workers" toml:"workers"`
	MaxFileSize int64    `mapstructure:"max_file_size" toml:"max_file_size"`
	Ignore      []string `mapstructure:"ignore" toml:"ignore"`
}

// AssembleConfig holds the context assembly budgets and default ranking
// preferences.
type AssembleConfig struct {
	MaxChars         int  `mapstructure:"max_chars" toml:"max_chars"`
	MaxTokens        int  `mapstructure:"max_tokens" toml:"max_tokens"`
	Candidates       int  `mapstructure:"candidates" toml:"candidates"`
	TimeBudgetMs     int  `mapstructure:"time_budget_ms" toml:"time_budget_ms"`
	MinTruncateChars int  `mapstructure:"min_truncate_chars" toml:"min_truncate_chars"`
	PreferActive     bool `mapstructure:"prefer_active" toml:"prefer_active"`
	PreferIndexed    bool `mapstructure:"prefer_indexed" toml:"prefer_indexed"`
	PreferRecent     bool `mapstructure:"prefer_recent" toml:"prefer_recent"`
}

// TimeBudget returns the assembly wall-clock budget.
func (a AssembleConfig) TimeBudget() time.Duration {
	return time.Duration(a.TimeBudgetMs) * time.Millisecond
}

// OverviewConfig controls the repository overview aggregator.
type OverviewConfig struct {
	TimeBudgetMs int `mapstructure:"time_budget_ms" toml:"time_budget_ms"`
	RecentLimit  int `mapstructure:"recent_limit" toml:"recent_limit"`
}

// TimeBudget returns the overview wall-clock budget.
func (o OverviewConfig) TimeBudget() time.Duration {
	return time.Duration(o.TimeBudgetMs) * time.Millisecond
}

// LogConfig controls logging. File empty means stderr.
type LogConfig struct {
	Level  string `mapstructure:"level" toml:"level"`
	Format string `mapstructure:"format" toml:"format"`
	File   string `mapstructure:"file" toml:"file"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Ollama: OllamaConfig{
			URL:            "http://localhost:11434",
			EmbedModel:     "nomic-embed-text",
			ChatModel:      "qwen3:8b",
			TimeoutSeconds: 120,
		},
		Index: IndexConfig{
			Workers:     0,
			MaxFileSize: 1 << 20,
			Ignore: []string{
				".git", ".svn", ".hg", "node_modules", "vendor", "__pycache__",
				".idea", ".vscode", DirName, "dist", "build",
			},
		},
		Assemble: AssembleConfig{
			MaxChars:         50000,
			MaxTokens:        0,
			Candidates:       50,
			TimeBudgetMs:     5000,
			MinTruncateChars: 100,
		},
		Overview: OverviewConfig{
			TimeBudgetMs: 2000,
			RecentLimit:  50,
		},
		Log: LogConfig{
			Level:  "warn",
			Format: "text",
		},
	}
}

// DataDir returns <projectRoot>/.vybe.
func DataDir(projectRoot string) string {
	return filepath.Join(projectRoot, DirName)
}

// DefaultPath returns the config file location for a project.
func DefaultPath(projectRoot string) string {
	return filepath.Join(DataDir(projectRoot), "config.toml")
}

// DBPath resolves the store path for a project.
func (c *Config) DBPath(projectRoot string) string {
	if c.Store.Path == "" {
		return filepath.Join(DataDir(projectRoot), "index.db")
	}
	if filepath.IsAbs(c.Store.Path) {
		return c.Store.Path
	}
	return filepath.Join(projectRoot, c.Store.Path)
}

// Load reads configuration for projectRoot. explicitPath, when set, must
// exist; otherwise <projectRoot>/.vybe/config.toml is used if present.
// Environment variables VYBE_<SECTION>_<KEY> override file values.
func Load(projectRoot, explicitPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetEnvPrefix("VYBE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if explicitPath != "" {
		v.SetConfigFile(explicitPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(DataDir(projectRoot))
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicitPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("store.path", d.Store.Path)
	v.SetDefault("ollama.url", d.Ollama.URL)
	v.SetDefault("ollama.embed_model", d.Ollama.EmbedModel)
	v.SetDefault("ollama.chat_model", d.Ollama.ChatModel)
	v.SetDefault("ollama.timeout_seconds", d.Ollama.TimeoutSeconds)
	v.SetDefault("workspace.id", d.Workspace.ID)
	v.SetDefault("workspace.root_id", d.Workspace.RootID)
	v.SetDefault("index.workers", d.Index.Workers)
	v.SetDefault("index.max_file_size", d.Index.MaxFileSize)
	v.SetDefault("index.ignore", d.Index.Ignore)
	v.SetDefault("assemble.max_chars", d.Assemble.MaxChars)
	v.SetDefault("assemble.max_tokens", d.Assemble.MaxTokens)
	v.SetDefault("assemble.candidates", d.Assemble.Candidates)
	v.SetDefault("assemble.time_budget_ms", d.Assemble.TimeBudgetMs)
	v.SetDefault("assemble.min_truncate_chars", d.Assemble.MinTruncateChars)
	v.SetDefault("assemble.prefer_active", d.Assemble.PreferActive)
	v.SetDefault("assemble.prefer_indexed", d.Assemble.PreferIndexed)
	v.SetDefault("assemble.prefer_recent", d.Assemble.PreferRecent)
	v.SetDefault("overview.time_budget_ms", d.Overview.TimeBudgetMs)
	v.SetDefault("overview.recent_limit", d.Overview.RecentLimit)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.file", d.Log.File)
}

// Marshal encodes the configuration as TOML.
func (c *Config) Marshal() ([]byte, error) {
	return toml.Marshal(c)
}

// Save writes the configuration as TOML, creating the directory if needed.
func (c *Config) Save(path string) error {
	data, err := c.Marshal()
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	switch {
	case c.Assemble.MaxChars <= 0:
		return &ConfigError{Field: "assemble.max_chars", Message: "must be positive"}
	case c.Assemble.MaxTokens < 0:
		return &ConfigError{Field: "assemble.max_tokens", Message: "must not be negative"}
	case c.Assemble.Candidates <= 0:
		return &ConfigError{Field: "assemble.candidates", Message: "must be positive"}
	case c.Assemble.TimeBudgetMs <= 0:
		return &ConfigError{Field: "assemble.time_budget_ms", Message: "must be positive"}
	case c.Assemble.MinTruncateChars < 0:
		return &ConfigError{Field: "assemble.min_truncate_chars", Message: "must not be negative"}
	case c.Overview.TimeBudgetMs <= 0:
		return &ConfigError{Field: "overview.time_budget_ms", Message: "must be positive"}
	case c.Overview.RecentLimit <= 0:
		return &ConfigError{Field: "overview.recent_limit", Message: "must be positive"}
	case c.Index.Workers < 0:
		return &ConfigError{Field: "index.workers", Message: "must not be negative"}
	case c.Ollama.TimeoutSeconds <= 0:
		return &ConfigError{Field: "ollama.timeout_seconds", Message: "must be positive"}
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return &ConfigError{Field: "log.format", Message: fmt.Sprintf("unknown format %q", c.Log.Format)}
	}
	return nil
}

// ConfigError reports an invalid configuration field.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
