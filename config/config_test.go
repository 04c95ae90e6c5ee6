package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "local", cfg.Input.Type)
	assert.Equal(t, "csv", cfg.Output.Format)
	assert.Equal(t, 1, cfg.Batch.Workers)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.Cache.Enable)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoad_FromFile(t *testing.T) {
	path := writeConfig(t, `
input:
  type: minio
  bucket: confirmations
  endpoint: localhost:9000
  prefix: 2024/
output:
  format: markdown
batch:
  workers: 4
log:
  level: debug
  format: json
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "minio", cfg.Input.Type)
	assert.Equal(t, "confirmations", cfg.Input.Bucket)
	assert.Equal(t, "2024/", cfg.Input.Prefix)
	assert.Equal(t, "markdown", cfg.Output.Format)
	assert.Equal(t, 4, cfg.Batch.Workers)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_EnvOverride(t *testing.T) {
	path := writeConfig(t, "batch:\n  workers: 2\n")
	t.Setenv("STOCKPLAN_BATCH_WORKERS", "8")
	t.Setenv("STOCKPLAN_OUTPUT_FORMAT", "html")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Batch.Workers)
	assert.Equal(t, "html", cfg.Output.Format)
}

func TestLoad_ExpandsSecrets(t *testing.T) {
	path := writeConfig(t, `
input:
  type: minio
  bucket: b
  endpoint: localhost:9000
  secret_key: ${TEST_MINIO_SECRET}
`)
	t.Setenv("TEST_MINIO_SECRET", "s3cr3t")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "s3cr3t", cfg.Input.SecretKey)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown input type", "input:\n  type: ftp\n"},
		{"bucket required", "input:\n  type: gcs\n"},
		{"workers", "batch:\n  workers: 0\n"},
		{"format", "output:\n  format: xlsx\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestLoad_MalformedFile(t *testing.T) {
	_, err := Load(writeConfig(t, "input: [unclosed"))
	assert.Error(t, err)
}
