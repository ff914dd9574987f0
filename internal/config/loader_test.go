package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoader_Load_MissingFileReturnsDefaults(t *testing.T) {
	loader := NewLoader(filepath.Join(t.TempDir(), "nope.json"))

	cfg, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Batch.Workers)
	assert.NotEmpty(t, cfg.Audit.DBPath)
	assert.NotEmpty(t, cfg.Logging.File)
}

func TestLoader_Load_FromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "toolpipe.json")
	content := `{
		"data_dir": "` + dir + `",
		"batch": {"workers": 8},
		"audit": {"excerpt_limit": 512},
		"redaction": {"enabled": true, "params": ["api_key"]}
	}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := NewLoader(path).Load()
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.Batch.Workers)
	assert.Equal(t, 512, cfg.Audit.ExcerptLimit)
	assert.Equal(t, []string{"api_key"}, cfg.Redaction.Params)
	assert.Equal(t, filepath.Join(dir, "audit.db"), cfg.Audit.DBPath)
}

func TestLoader_Load_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "toolpipe.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	_, err := NewLoader(path).Load()
	assert.Error(t, err)
}
