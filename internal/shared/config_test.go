package shared

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Database.Path != "shuaigou.db" {
			t.Errorf("expected database path shuaigou.db, got %s", config.Database.Path)
		}

		if config.Server.Port != 3000 {
			t.Errorf("expected server port 3000, got %d", config.Server.Port)
		}

		if config.Credentials.Coze.BaseURL != "https://api.coze.com" {
			t.Errorf("expected base URL https://api.coze.com, got %s", config.Credentials.Coze.BaseURL)
		}

		if config.Credentials.Coze.ProxyURL != "http://localhost:3000/api/coze-proxy" {
			t.Errorf("expected proxy URL http://localhost:3000/api/coze-proxy, got %s", config.Credentials.Coze.ProxyURL)
		}

		if config.Points.RewriteCost != 30 {
			t.Errorf("expected rewrite cost 30, got %d", config.Points.RewriteCost)
		}

		if config.Points.DailyAllowance != 100 {
			t.Errorf("expected daily allowance 100, got %d", config.Points.DailyAllowance)
		}

		if config.Points.SignInBonus != 10 {
			t.Errorf("expected sign-in bonus 10, got %d", config.Points.SignInBonus)
		}

		if !config.Points.ShowOnDebitFailure {
			t.Error("expected show_on_debit_failure to default to true")
		}

		if config.Workflow.MaxAttempts != 3 {
			t.Errorf("expected max attempts 3, got %d", config.Workflow.MaxAttempts)
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		if _, err := os.Stat(configPath); err != nil {
			t.Fatalf("config file should exist: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		defaultConfig := DefaultConfig()
		if config.Database.Path != defaultConfig.Database.Path {
			t.Errorf("created config database path doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		content := `
[credentials.coze]
api_token = "token-1"
rewrite_api_token = "token-2"
rewrite_workflow_id = "wf-9"

[points]
rewrite_cost = 50

[workflow]
timeout_seconds = 30
`
		if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Credentials.Coze.APIToken != "token-1" {
			t.Errorf("api token = %s", config.Credentials.Coze.APIToken)
		}
		if config.Credentials.Coze.RewriteWorkflowID != "wf-9" {
			t.Errorf("rewrite workflow id = %s", config.Credentials.Coze.RewriteWorkflowID)
		}
		if config.Points.RewriteCost != 50 {
			t.Errorf("rewrite cost = %d", config.Points.RewriteCost)
		}
		if config.Workflow.Timeout() != 30*time.Second {
			t.Errorf("timeout = %v", config.Workflow.Timeout())
		}
	})

	t.Run("LoadConfigMissing", func(t *testing.T) {
		if _, err := LoadConfig("/nonexistent/config.toml"); err == nil {
			t.Error("loading a missing config should fail")
		}
	})

	t.Run("LoadConfigInvalid", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")
		if err := os.WriteFile(configPath, []byte("not [valid toml"), 0644); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}

		if _, err := LoadConfig(configPath); err == nil {
			t.Error("loading invalid TOML should fail")
		}
	})
}

func TestWorkflowConfigDefaults(t *testing.T) {
	var w WorkflowConfig

	if w.Timeout() != 60*time.Second {
		t.Errorf("zero timeout should default to 60s, got %v", w.Timeout())
	}
	if w.BaseDelay() != 500*time.Millisecond {
		t.Errorf("zero base delay should default to 500ms, got %v", w.BaseDelay())
	}

	w = WorkflowConfig{TimeoutSeconds: 10, BaseDelayMS: 250}
	if w.Timeout() != 10*time.Second {
		t.Errorf("timeout = %v", w.Timeout())
	}
	if w.BaseDelay() != 250*time.Millisecond {
		t.Errorf("base delay = %v", w.BaseDelay())
	}
}
