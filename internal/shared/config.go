package shared

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Database    DatabaseConfig    `toml:"database"`
	Server      ServerConfig      `toml:"server"`
	Points      PointsConfig      `toml:"points"`
	Workflow    WorkflowConfig    `toml:"workflow"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Coze  CozeConfig  `toml:"coze"`
	OAuth OAuthConfig `toml:"oauth"`
}

// CozeConfig contains Coze workflow API credentials and endpoints.
//
// Extraction and rewrite run as separate workflows with separate tokens.
type CozeConfig struct {
	APIToken          string `toml:"api_token"`
	ExtractWorkflowID string `toml:"extract_workflow_id"`
	RewriteAPIToken   string `toml:"rewrite_api_token"`
	RewriteWorkflowID string `toml:"rewrite_workflow_id"`
	BaseURL           string `toml:"base_url"`
	ProxyURL          string `toml:"proxy_url"`
}

// OAuthConfig contains sign-in provider credentials for the CLI auth flow.
type OAuthConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	AuthURL      string `toml:"auth_url"`
	TokenURL     string `toml:"token_url"`
	RedirectURI  string `toml:"redirect_uri"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// PointsConfig contains the per-user point budget policy.
type PointsConfig struct {
	RewriteCost        int  `toml:"rewrite_cost"`
	DailyAllowance     int  `toml:"daily_allowance"`
	SignInBonus        int  `toml:"sign_in_bonus"`
	ShowOnDebitFailure bool `toml:"show_on_debit_failure"`
}

// WorkflowConfig tunes the rewrite pipeline: overall deadline, retry policy,
// request rate, and the minimum output length accepted by the stream parser.
type WorkflowConfig struct {
	TimeoutSeconds  int     `toml:"timeout_seconds"`
	MaxAttempts     int     `toml:"max_attempts"`
	BaseDelayMS     int     `toml:"base_delay_ms"`
	RateLimit       float64 `toml:"rate_limit"`
	MinOutputLength int     `toml:"min_output_length"`
}

// Timeout returns the overall pipeline deadline as a [time.Duration].
func (w WorkflowConfig) Timeout() time.Duration {
	if w.TimeoutSeconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(w.TimeoutSeconds) * time.Second
}

// BaseDelay returns the retry backoff base as a [time.Duration].
func (w WorkflowConfig) BaseDelay() time.Duration {
	if w.BaseDelayMS <= 0 {
		return 500 * time.Millisecond
	}
	return time.Duration(w.BaseDelayMS) * time.Millisecond
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	// Check if file already exists
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s: %w", path, err)
	}

	// Write the embedded example config to the file
	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
