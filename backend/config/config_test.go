package config

import (
	"os"
	"testing"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	tmpFile, err := os.CreateTemp(t.TempDir(), "config-*.yaml")
	if err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}
	if _, err := tmpFile.WriteString(content); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	tmpFile.Close()
	return tmpFile.Name()
}

func TestLoad(t *testing.T) {
	path := writeTempConfig(t, `
server:
  port: 9090
store:
  path: "/var/lib/bettertender/data.db"
  busy_timeout_ms: 2000
  max_retries: 5
minio:
  endpoint: "localhost:9000"
  access_key: "minioadmin"
  secret_key: "minioadmin"
  bucket: "test-bucket"
  use_ssl: false
  expire_days: 14
auth:
  jwt_secret: "test-secret"
  token_expire_hours: 48
  bcrypt_cost: 4
log:
  level: "debug"
  format: "json"
lifecycle:
  submissions_require_published: true
rate_limit:
  requests: 10
  window_seconds: 30
users:
  - email: "issuer@example.com"
    full_name: "Issuer"
    password: "secret"
    role: "issuer"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Store.Path != "/var/lib/bettertender/data.db" {
		t.Errorf("Expected store path, got %s", cfg.Store.Path)
	}
	if cfg.Store.BusyTimeoutMs != 2000 {
		t.Errorf("Expected busy_timeout_ms 2000, got %d", cfg.Store.BusyTimeoutMs)
	}
	if cfg.Store.MaxRetries != 5 {
		t.Errorf("Expected max_retries 5, got %d", cfg.Store.MaxRetries)
	}
	if cfg.Minio.ExpireDays != 14 {
		t.Errorf("Expected expire_days 14, got %d", cfg.Minio.ExpireDays)
	}
	if cfg.Auth.TokenExpireHours != 48 {
		t.Errorf("Expected token_expire_hours 48, got %d", cfg.Auth.TokenExpireHours)
	}
	if cfg.Auth.BcryptCost != 4 {
		t.Errorf("Expected bcrypt_cost 4, got %d", cfg.Auth.BcryptCost)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Errorf("Unexpected log config %+v", cfg.Log)
	}
	if !cfg.Lifecycle.SubmissionsRequirePublished {
		t.Error("Expected submissions_require_published to be true")
	}
	if cfg.RateLimit.Requests != 10 || cfg.RateLimit.WindowSeconds != 30 {
		t.Errorf("Unexpected rate limit config %+v", cfg.RateLimit)
	}
	if len(cfg.Users) != 1 || cfg.Users[0].Role != "issuer" {
		t.Errorf("Unexpected users %+v", cfg.Users)
	}
}

func TestLoadDefaults(t *testing.T) {
	path := writeTempConfig(t, `
auth:
  jwt_secret: "only-secret"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Store.Path != "bettertender.db" {
		t.Errorf("Expected default store path, got %s", cfg.Store.Path)
	}
	if cfg.Store.BusyTimeoutMs != 5000 {
		t.Errorf("Expected default busy timeout 5000, got %d", cfg.Store.BusyTimeoutMs)
	}
	if cfg.Store.MaxRetries != 3 {
		t.Errorf("Expected default max retries 3, got %d", cfg.Store.MaxRetries)
	}
	if cfg.Minio.Bucket != "tender-documents" {
		t.Errorf("Expected default bucket, got %s", cfg.Minio.Bucket)
	}
	if cfg.Auth.TokenExpireHours != 1 {
		t.Errorf("Expected default token_expire_hours 1, got %d", cfg.Auth.TokenExpireHours)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "text" {
		t.Errorf("Unexpected default log config %+v", cfg.Log)
	}
	if cfg.Lifecycle.SubmissionsRequirePublished {
		t.Error("Expected submissions_require_published to default to false")
	}
	if cfg.RateLimit.Requests != 100 || cfg.RateLimit.WindowSeconds != 60 {
		t.Errorf("Unexpected default rate limit %+v", cfg.RateLimit)
	}
}

func TestLoadNonExistent(t *testing.T) {
	_, err := Load("nonexistent.yaml")
	if err == nil {
		t.Error("Expected error for non-existent file")
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := writeTempConfig(t, "invalid: yaml: content:")

	_, err := Load(path)
	if err == nil {
		t.Error("Expected error for invalid YAML")
	}
}
