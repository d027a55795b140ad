package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFormat(t *testing.T) {
	for _, valid := range []string{"default", "simple", "json", "list", "domains"} {
		f, err := ParseFormat(valid)
		require.NoError(t, err, valid)
		assert.Equal(t, Format(valid), f)
	}

	for _, invalid := range []string{"", "yaml", "JSON", "domain"} {
		_, err := ParseFormat(invalid)
		assert.Error(t, err, invalid)
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 100, cfg.Concurrency)
	assert.Equal(t, FormatDefault, cfg.Format)
	assert.Equal(t, 30*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 2, cfg.RetryAttempts)
	assert.NotEmpty(t, cfg.UserAgent)
	assert.NotEmpty(t, cfg.Headers["Accept"])
}

func TestValidate_RequiresInput(t *testing.T) {
	cfg := Default()
	require.Error(t, cfg.Validate())

	cfg.PDFURLs = []string{"https://a.example/r.pdf"}
	require.NoError(t, cfg.Validate())
}

func TestValidate_Concurrency(t *testing.T) {
	cfg := Default()
	cfg.PDFURLs = []string{"https://a.example/r.pdf"}
	cfg.Concurrency = 0
	assert.Error(t, cfg.Validate())
}

func TestValidate_Format(t *testing.T) {
	cfg := Default()
	cfg.PDFURLs = []string{"https://a.example/r.pdf"}
	cfg.Format = Format("csv")
	assert.Error(t, cfg.Validate())
}

func TestValidate_InputFilesMustBeReadable(t *testing.T) {
	dir := t.TempDir()

	cfg := Default()
	cfg.ListPath = filepath.Join(dir, "missing.txt")
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.BatchPath = dir // a directory, not a file
	assert.Error(t, cfg.Validate())

	path := filepath.Join(dir, "urls.txt")
	require.NoError(t, os.WriteFile(path, []byte("https://a.example/r.pdf\n"), 0o644))
	cfg = Default()
	cfg.ListPath = path
	assert.NoError(t, cfg.Validate())
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("SUBPDF_USER_AGENT", "custom-agent/1.0")
	t.Setenv("SUBPDF_TIMEOUT", "90s")
	t.Setenv("SUBPDF_CONCURRENCY", "8")

	cfg := Default()
	cfg.ApplyEnvOverrides()
	assert.Equal(t, "custom-agent/1.0", cfg.UserAgent)
	assert.Equal(t, 90*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 8, cfg.Concurrency)
}

func TestApplyEnvOverrides_IgnoresInvalidValues(t *testing.T) {
	t.Setenv("SUBPDF_TIMEOUT", "soon")
	t.Setenv("SUBPDF_CONCURRENCY", "-3")

	cfg := Default()
	cfg.ApplyEnvOverrides()
	assert.Equal(t, 30*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 100, cfg.Concurrency)
}
