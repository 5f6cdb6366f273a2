package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DefaultGitHubAPIURL is the public GitHub REST endpoint
const DefaultGitHubAPIURL = "https://api.github.com/"

// Config holds all configuration settings
type Config struct {
	GitHub    GitHubConfig    `yaml:"github" mapstructure:"github"`
	Discovery DiscoveryConfig `yaml:"discovery" mapstructure:"discovery"`
	Session   SessionConfig   `yaml:"session" mapstructure:"session"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

type GitHubConfig struct {
	Token     string        `yaml:"token" mapstructure:"token"`
	BaseURL   string        `yaml:"base_url" mapstructure:"base_url"`
	RateLimit float64       `yaml:"rate_limit" mapstructure:"rate_limit"` // Requests per second, 0 = unlimited
	Timeout   time.Duration `yaml:"timeout" mapstructure:"timeout"`       // 0 = no client timeout
}

// DiscoveryConfig tunes the similarity pass. The defaults give the
// standard feed: top 10 starred repos, 30 stargazers each, at least 2 shared.
type DiscoveryConfig struct {
	TopRepos          int `yaml:"top_repos" mapstructure:"top_repos"`
	StargazersPerRepo int `yaml:"stargazers_per_repo" mapstructure:"stargazers_per_repo"`
	MinShared         int `yaml:"min_shared" mapstructure:"min_shared"`
	MaxUsers          int `yaml:"max_users" mapstructure:"max_users"`
	MaxStarred        int `yaml:"max_starred" mapstructure:"max_starred"`
	ProfileRepos      int `yaml:"profile_repos" mapstructure:"profile_repos"`
}

type SessionConfig struct {
	TokenStore string `yaml:"token_store" mapstructure:"token_store"` // "auto", "keyring", "bolt"
	BoltPath   string `yaml:"bolt_path" mapstructure:"bolt_path"`
}

type ServerConfig struct {
	Addr           string   `yaml:"addr" mapstructure:"addr"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

type LogConfig struct {
	Level string `yaml:"level" mapstructure:"level"`
	File  string `yaml:"file" mapstructure:"file"`
	JSON  bool   `yaml:"json" mapstructure:"json"`
}

// Default returns default configuration
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	return &Config{
		GitHub: GitHubConfig{
			BaseURL: DefaultGitHubAPIURL,
		},
		Discovery: DiscoveryConfig{
			TopRepos:          10,
			StargazersPerRepo: 30,
			MinShared:         2,
			MaxUsers:          50,
			MaxStarred:        500,
			ProfileRepos:      50,
		},
		Session: SessionConfig{
			TokenStore: "auto",
			BoltPath:   filepath.Join(homeDir, ".stackmates", "session.db"),
		},
		Server: ServerConfig{
			Addr:           "127.0.0.1:8080",
			AllowedOrigins: []string{"http://localhost:5173", "http://localhost:8080"},
		},
		Log: LogConfig{
			Level: "warn",
		},
	}
}

// Load loads configuration from file, environment and .env files
func Load(path string) (*Config, error) {
	loadEnvFiles()

	v := viper.New()
	v.SetConfigType("yaml")

	setDefaults(v, Default())

	v.SetEnvPrefix("STACKMATES")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".stackmates")
		homeDir, _ := os.UserHomeDir()
		v.AddConfigPath(filepath.Join(homeDir, ".stackmates"))
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK, use defaults
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyEnvOverrides(cfg)
	cfg.Session.BoltPath = expandPath(cfg.Session.BoltPath)
	cfg.Log.File = expandPath(cfg.Log.File)

	return cfg, nil
}

// ConfigFileUsed reports which file Load would read, or "" when none exists
func ConfigFileUsed(path string) string {
	v := viper.New()
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".stackmates")
		homeDir, _ := os.UserHomeDir()
		v.AddConfigPath(filepath.Join(homeDir, ".stackmates"))
	}
	if err := v.ReadInConfig(); err != nil {
		return ""
	}
	return v.ConfigFileUsed()
}

// setDefaults registers every leaf key so AutomaticEnv can see it
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("github.token", cfg.GitHub.Token)
	v.SetDefault("github.base_url", cfg.GitHub.BaseURL)
	v.SetDefault("github.rate_limit", cfg.GitHub.RateLimit)
	v.SetDefault("github.timeout", cfg.GitHub.Timeout)

	v.SetDefault("discovery.top_repos", cfg.Discovery.TopRepos)
	v.SetDefault("discovery.stargazers_per_repo", cfg.Discovery.StargazersPerRepo)
	v.SetDefault("discovery.min_shared", cfg.Discovery.MinShared)
	v.SetDefault("discovery.max_users", cfg.Discovery.MaxUsers)
	v.SetDefault("discovery.max_starred", cfg.Discovery.MaxStarred)
	v.SetDefault("discovery.profile_repos", cfg.Discovery.ProfileRepos)

	v.SetDefault("session.token_store", cfg.Session.TokenStore)
	v.SetDefault("session.bolt_path", cfg.Session.BoltPath)

	v.SetDefault("server.addr", cfg.Server.Addr)
	v.SetDefault("server.allowed_origins", cfg.Server.AllowedOrigins)

	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.file", cfg.Log.File)
	v.SetDefault("log.json", cfg.Log.JSON)
}

// loadEnvFiles loads .env files in order of precedence
func loadEnvFiles() {
	envFiles := []string{
		".env.local", // Local overrides (highest precedence)
		".env",
	}

	for _, file := range envFiles {
		if _, err := os.Stat(file); err == nil {
			// godotenv.Load never overrides variables that are already set
			_ = godotenv.Load(file)
		}
	}

	homeDir, _ := os.UserHomeDir()
	homeEnvFile := filepath.Join(homeDir, ".stackmates", ".env")
	if _, err := os.Stat(homeEnvFile); err == nil {
		_ = godotenv.Load(homeEnvFile)
	}
}

// applyEnvOverrides applies the conventional GitHub variables on top of the
// STACKMATES_* ones viper already handled
func applyEnvOverrides(cfg *Config) {
	if cfg.GitHub.Token == "" {
		cfg.GitHub.Token = TokenFromEnv()
	}
	if url := os.Getenv("GITHUB_API_URL"); url != "" && os.Getenv("STACKMATES_GITHUB_BASE_URL") == "" {
		cfg.GitHub.BaseURL = url
	}
	if !strings.HasSuffix(cfg.GitHub.BaseURL, "/") {
		cfg.GitHub.BaseURL += "/"
	}
}

// expandPath expands ~ to home directory
func expandPath(path string) string {
	if path == "" {
		return path
	}
	if path[0] == '~' {
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, path[1:])
	}
	return path
}

// Save writes the configuration as YAML, leaving the token out
func (c *Config) Save(path string) error {
	v := viper.New()
	v.SetConfigType("yaml")

	v.Set("github.base_url", c.GitHub.BaseURL)
	v.Set("github.rate_limit", c.GitHub.RateLimit)
	v.Set("github.timeout", c.GitHub.Timeout.String())
	v.Set("discovery", c.Discovery)
	v.Set("session", c.Session)
	v.Set("server", c.Server)
	v.Set("log", c.Log)

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}
