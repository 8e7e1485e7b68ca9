package core

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jo-hoe/takziah/internal/backend/objectstore"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to create test config file: %v", err)
	}
	return configPath
}

func TestLoadConfig_Success(t *testing.T) {
	configPath := writeConfig(t, `port: 9090
persistence:
  mode: memory
  cacheTTL: 10m
render:
  svgFallbackWidth: 256
`)

	config, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if config.Port != 9090 {
		t.Errorf("Expected port to be 9090, got %d", config.Port)
	}
	if config.Persistence.Mode != "memory" {
		t.Errorf("Expected mode memory, got %q", config.Persistence.Mode)
	}
	if config.Persistence.CacheTTL != 10*time.Minute {
		t.Errorf("Expected cacheTTL 10m, got %v", config.Persistence.CacheTTL)
	}
	if config.Render.SVGFallbackWidth != 256 || config.Render.SVGFallbackHeight != 512 {
		t.Errorf("Expected SVG fallback 256x512, got %dx%d", config.Render.SVGFallbackWidth, config.Render.SVGFallbackHeight)
	}
	if config.Limits.MaxUploadBytes != 10<<20 {
		t.Errorf("Expected default upload limit, got %d", config.Limits.MaxUploadBytes)
	}
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	config, err := LoadConfig("/path/that/does/not/exist/config.yaml")
	if err == nil {
		t.Fatal("Expected error for non-existent file, got nil")
	}
	if config != nil {
		t.Error("Expected config to be nil when file doesn't exist")
	}
}

func TestLoadConfig_InvalidMode(t *testing.T) {
	if _, err := LoadConfig(writeConfig(t, "persistence:\n  mode: cloud\n")); err == nil {
		t.Fatal("Expected error for unknown persistence mode")
	}
}

func TestLoadConfig_RemoteRequiresConnectionSettings(t *testing.T) {
	t.Setenv(EnvEndpointURL, "")
	t.Setenv(EnvAccessKey, "")
	t.Setenv(EnvDatabaseDSN, "")

	_, err := LoadConfig(writeConfig(t, "persistence:\n  mode: remote\n"))
	if err == nil {
		t.Fatal("Expected error for remote mode without connection settings")
	}
	if !errors.Is(err, objectstore.ErrMissingEndpoint) || !errors.Is(err, objectstore.ErrMissingAccessKey) {
		t.Errorf("Expected both missing endpoint and access key, got %v", err)
	}
}

func TestLoadConfig_EnvironmentOverrides(t *testing.T) {
	t.Setenv(EnvEndpointURL, "http://minio:9000")
	t.Setenv(EnvAccessKey, "access")
	t.Setenv(EnvSecretKey, "secret")
	t.Setenv(EnvDatabaseDSN, "postgres://takziah@db/takziah")
	t.Setenv(EnvRedisAddress, "redis:6379")

	config, err := LoadConfig(writeConfig(t, `persistence:
  mode: remote
  storage:
    endpointURL: http://ignored:9000
`))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	p := config.PersistenceConfig()
	if p.S3.EndpointURL != "http://minio:9000" {
		t.Errorf("Expected endpoint from environment, got %q", p.S3.EndpointURL)
	}
	if p.S3.AccessKey != "access" || p.S3.SecretKey != "secret" {
		t.Errorf("Expected credentials from environment, got %q/%q", p.S3.AccessKey, p.S3.SecretKey)
	}
	if p.DatabaseDSN != "postgres://takziah@db/takziah" || p.RedisAddress != "redis:6379" {
		t.Errorf("Unexpected DSN or redis address: %q %q", p.DatabaseDSN, p.RedisAddress)
	}
	if p.S3.Bucket != "death-records-images" {
		t.Errorf("Expected default bucket, got %q", p.S3.Bucket)
	}
}
