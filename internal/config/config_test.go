package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadUsesDefaultsAndYAMLOverrides(t *testing.T) {
	clearConfigEnv(t)

	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.yaml")
	yaml := `
http:
  addr: ":9090"
mongo:
  database: kspvpn_test
  call_timeout: 2s
limits:
  submit_per_minute: 20
retention:
  request_days: 7
  sweep_interval: 1h
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write temp config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.HTTP.Addr != ":9090" {
		t.Fatalf("unexpected http addr: %s", cfg.HTTP.Addr)
	}
	if cfg.Mongo.Database != "kspvpn_test" {
		t.Fatalf("unexpected mongo database: %s", cfg.Mongo.Database)
	}
	if cfg.Mongo.CallTimeout != 2*time.Second {
		t.Fatalf("unexpected mongo call timeout: %s", cfg.Mongo.CallTimeout)
	}
	if cfg.Limits.SubmitPerMinute != 20 {
		t.Fatalf("unexpected submit_per_minute: %d", cfg.Limits.SubmitPerMinute)
	}
	if cfg.Retention.RequestDays != 7 {
		t.Fatalf("unexpected retention request_days: %d", cfg.Retention.RequestDays)
	}
	if cfg.Retention.SweepInterval != time.Hour {
		t.Fatalf("unexpected sweep interval: %s", cfg.Retention.SweepInterval)
	}

	if cfg.Mongo.URI != "mongodb://localhost:27017" {
		t.Fatalf("mongo uri default should survive partial yaml: %s", cfg.Mongo.URI)
	}
	if cfg.Limits.SubmitPer10Sec != 3 {
		t.Fatalf("submit_per_10sec default should stay 3: %d", cfg.Limits.SubmitPer10Sec)
	}
	if cfg.Retention.AdminLogDays != 90 {
		t.Fatalf("admin_log_days default should stay 90: %d", cfg.Retention.AdminLogDays)
	}
}

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	clearConfigEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.Env != "dev" {
		t.Fatalf("unexpected default env: %s", cfg.Env)
	}
	if cfg.HTTP.Addr != ":8080" {
		t.Fatalf("unexpected default http addr: %s", cfg.HTTP.Addr)
	}
	if cfg.Mongo.CallTimeout != 5*time.Second {
		t.Fatalf("unexpected default mongo call timeout: %s", cfg.Mongo.CallTimeout)
	}
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("MONGO_URI", "mongodb://db:27017")
	t.Setenv("ADMIN_API_TOKEN", "secret-token")
	t.Setenv("SUBMIT_PER_MINUTE", "42")
	t.Setenv("RETENTION_SWEEP_INTERVAL", "30m")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.Mongo.URI != "mongodb://db:27017" {
		t.Fatalf("unexpected mongo uri: %s", cfg.Mongo.URI)
	}
	if cfg.Admin.APIToken != "secret-token" {
		t.Fatalf("unexpected admin token: %s", cfg.Admin.APIToken)
	}
	if cfg.Limits.SubmitPerMinute != 42 {
		t.Fatalf("unexpected submit_per_minute: %d", cfg.Limits.SubmitPerMinute)
	}
	if cfg.Retention.SweepInterval != 30*time.Minute {
		t.Fatalf("unexpected sweep interval: %s", cfg.Retention.SweepInterval)
	}
}

func TestLoadRejectsBadEnvValues(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("SUBMIT_PER_MINUTE", "not-a-number")

	if _, err := Load(""); err == nil {
		t.Fatal("expected an error for a non-numeric override")
	}
}

func clearConfigEnv(t *testing.T) {
	t.Helper()

	keys := []string{
		"APP_ENV",
		"HTTP_ADDR",
		"HTTP_READ_TIMEOUT",
		"HTTP_WRITE_TIMEOUT",
		"HTTP_IDLE_TIMEOUT",
		"LOG_LEVEL",
		"MONGO_URI",
		"MONGO_DATABASE",
		"MONGO_CALL_TIMEOUT",
		"REDIS_ADDR",
		"REDIS_PASSWORD",
		"REDIS_DB",
		"ADMIN_API_TOKEN",
		"SUBMIT_PER_MINUTE",
		"SUBMIT_PER_10SEC",
		"RETENTION_ADMIN_LOG_DAYS",
		"RETENTION_REQUEST_DAYS",
		"RETENTION_TOPUP_DAYS",
		"RETENTION_NOTIFICATION_DAYS",
		"RETENTION_SWEEP_INTERVAL",
	}
	for _, key := range keys {
		t.Setenv(key, "")
	}
}
