// Package config loads and validates StateBox configuration from a YAML file
// plus environment overrides. Credentials are never kept in the config file;
// they are resolved from the environment at load time.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Store   StoreConfig   `yaml:"store"`
	Retry   RetryConfig   `yaml:"retry,omitempty"`
	Journal JournalConfig `yaml:"journal,omitempty"`
	Notify  NotifyConfig  `yaml:"notify,omitempty"`
}

// StoreBackend enumerates supported document store backends.
type StoreBackend string

const (
	BackendGitHub StoreBackend = "github"
	BackendGit    StoreBackend = "git"
)

// StoreConfig selects and configures the versioned document store.
type StoreConfig struct {
	Backend StoreBackend `yaml:"backend"` // github|git

	// GitHub contents-API backend.
	APIURL   string `yaml:"api_url,omitempty"` // default https://api.github.com
	Owner    string `yaml:"owner,omitempty"`
	Repo     string `yaml:"repo,omitempty"`
	Branch   string `yaml:"branch,omitempty"`    // default main
	TokenEnv string `yaml:"token_env,omitempty"` // env var holding the bearer token, default STATEBOX_TOKEN

	// Local git backend.
	RepoPath string `yaml:"repo_path,omitempty"`

	// Path prefix for state documents inside the repository.
	PathPrefix string `yaml:"path_prefix,omitempty"` // default "releases"
}

// RetryConfig tunes the save conflict retry loop.
type RetryConfig struct {
	Backoff     RetryBackoffMode `yaml:"backoff,omitempty"`      // fixed|linear|exponential
	Initial     time.Duration    `yaml:"-"`                      // base delay
	Max         time.Duration    `yaml:"-"`                      // cap for growth
	MaxAttempts int              `yaml:"max_attempts,omitempty"` // total save attempts
}

// UnmarshalYAML accepts human-readable durations ("500ms", "10s") for the
// delay fields, which yaml.v3 does not decode into time.Duration natively.
func (r *RetryConfig) UnmarshalYAML(value *yaml.Node) error {
	var aux struct {
		Backoff     RetryBackoffMode `yaml:"backoff"`
		Initial     string           `yaml:"initial"`
		Max         string           `yaml:"max"`
		MaxAttempts int              `yaml:"max_attempts"`
	}
	if err := value.Decode(&aux); err != nil {
		return err
	}
	r.Backoff = aux.Backoff
	r.MaxAttempts = aux.MaxAttempts
	if aux.Initial != "" {
		d, err := time.ParseDuration(aux.Initial)
		if err != nil {
			return fmt.Errorf("retry.initial: %w", err)
		}
		r.Initial = d
	}
	if aux.Max != "" {
		d, err := time.ParseDuration(aux.Max)
		if err != nil {
			return fmt.Errorf("retry.max: %w", err)
		}
		r.Max = d
	}
	return nil
}

// JournalConfig enables the local SQLite audit journal.
type JournalConfig struct {
	Enabled bool   `yaml:"enabled"`
	DBPath  string `yaml:"db_path,omitempty"` // default statebox-journal.db
}

// NotifyConfig enables the NATS change notifier.
type NotifyConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url,omitempty"`     // default nats://127.0.0.1:4222
	Subject string `yaml:"subject,omitempty"` // default statebox.events
}

// Token resolves the store bearer token from the environment.
func (s StoreConfig) Token() string {
	env := s.TokenEnv
	if env == "" {
		env = "STATEBOX_TOKEN"
	}
	return os.Getenv(env)
}

// Load loads configuration from the specified file.
func Load(configPath string) (*Config, error) {
	// .env is optional; existing process environment wins.
	_ = godotenv.Load()

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// Expand environment variables in the YAML content.
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Store.Backend == "" {
		c.Store.Backend = BackendGitHub
	}
	if c.Store.APIURL == "" {
		c.Store.APIURL = "https://api.github.com"
	}
	if c.Store.Branch == "" {
		c.Store.Branch = "main"
	}
	if c.Store.PathPrefix == "" {
		c.Store.PathPrefix = "releases"
	}
	if c.Retry.Backoff == "" {
		c.Retry.Backoff = RetryBackoffExponential
	}
	if c.Retry.Initial <= 0 {
		c.Retry.Initial = 500 * time.Millisecond
	}
	if c.Retry.Max <= 0 {
		c.Retry.Max = 10 * time.Second
	}
	if c.Retry.MaxAttempts <= 0 {
		c.Retry.MaxAttempts = 5
	}
	if c.Journal.Enabled && c.Journal.DBPath == "" {
		c.Journal.DBPath = "statebox-journal.db"
	}
	if c.Notify.Enabled && c.Notify.URL == "" {
		c.Notify.URL = "nats://127.0.0.1:4222"
	}
	if c.Notify.Enabled && c.Notify.Subject == "" {
		c.Notify.Subject = "statebox.events"
	}
}

// Validate checks backend-specific required fields.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case BackendGitHub:
		if c.Store.Owner == "" || c.Store.Repo == "" {
			return fmt.Errorf("github store requires owner and repo")
		}
	case BackendGit:
		if c.Store.RepoPath == "" {
			return fmt.Errorf("git store requires repo_path")
		}
	default:
		return fmt.Errorf("unknown store backend: %s", c.Store.Backend)
	}
	if NormalizeRetryBackoff(string(c.Retry.Backoff)) == "" {
		return fmt.Errorf("unknown retry backoff mode: %s", c.Retry.Backoff)
	}
	return nil
}

// Init creates a new configuration file with example content.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}
	example := `# StateBox configuration
store:
  backend: github
  owner: example-org
  repo: release-state
  branch: main
  path_prefix: releases
  token_env: STATEBOX_TOKEN

retry:
  backoff: exponential
  initial: 500ms
  max: 10s
  max_attempts: 5

journal:
  enabled: false

notify:
  enabled: false
`
	return os.WriteFile(configPath, []byte(example), 0o644)
}
