package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEphemeral_ReleaseDeletesBytes(t *testing.T) {
	m, err := NewEphemeral()
	require.NoError(t, err)
	defer m.Teardown()

	ref, err := m.Acquire("https://example.com/report.pdf")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(ref.Path, []byte("%PDF-1.4"), 0o644))

	m.Release(ref)
	_, err = os.Stat(ref.Path)
	assert.True(t, os.IsNotExist(err))
}

func TestEphemeral_TeardownRemovesEverything(t *testing.T) {
	m, err := NewEphemeral()
	require.NoError(t, err)

	// A failed task may leave a partial file behind without releasing it.
	ref, err := m.Acquire("https://example.com/partial.pdf")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(ref.Path, []byte("partial"), 0o644))

	require.NoError(t, m.Teardown())
	_, err = os.Stat(m.Dir())
	assert.True(t, os.IsNotExist(err))
}

func TestDurable_ReleaseKeepsBytes(t *testing.T) {
	dir := t.TempDir()
	m, err := NewDurable(filepath.Join(dir, "downloads"))
	require.NoError(t, err)

	ref, err := m.Acquire("https://example.com/keep.pdf")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(ref.Path, []byte("%PDF-1.4"), 0o644))

	m.Release(ref)
	require.NoError(t, m.Teardown())

	data, err := os.ReadFile(ref.Path)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(data))
}

func TestFileName_DeterministicAndCollisionFree(t *testing.T) {
	a := FileName("https://example.com/a/report.pdf")
	b := FileName("https://example.com/b/report.pdf")
	again := FileName("https://example.com/a/report.pdf")

	assert.Equal(t, a, again)
	assert.NotEqual(t, a, b, "same basename from different URLs must not collide")
	assert.True(t, strings.HasSuffix(a, "_report.pdf"))
}

func TestFileName_SanitizesAndDefaults(t *testing.T) {
	name := FileName("https://example.com/download?file=weird name.pdf")
	assert.NotContains(t, name, " ")
	assert.NotContains(t, name, "?")

	bare := FileName("https://example.com/")
	assert.True(t, strings.HasSuffix(bare, "_document.pdf"))
}

func TestAcquire_FailsWhenDirectoryGone(t *testing.T) {
	m, err := NewEphemeral()
	require.NoError(t, err)
	require.NoError(t, m.Teardown())

	_, err = m.Acquire("https://example.com/report.pdf")
	assert.Error(t, err)
}
