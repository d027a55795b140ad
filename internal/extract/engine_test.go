package extract

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/securezeron/SubPDF/internal/observability"
	"github.com/securezeron/SubPDF/internal/pdftest"
)

func TestEngine_ExtractAnnotationAndTextLinks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.pdf")
	pdftest.WriteFile(t, path,
		"Visit https://docs.example.com/guide and mail mailto:help@example.com today",
		[]string{"https://portal.example.co.uk/login"})

	engine := NewEngine(observability.Nop())
	links, err := engine.Extract(path)
	require.NoError(t, err)

	assert.Contains(t, links, "https://portal.example.co.uk/login")
	assert.Contains(t, links, "https://docs.example.com/guide")
	assert.Contains(t, links, "mailto:help@example.com")
}

func TestEngine_ExtractDeduplicatesWithinDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.pdf")
	pdftest.WriteFile(t, path,
		"See https://dup.example.com/x and again https://dup.example.com/x",
		[]string{"https://dup.example.com/x"})

	engine := NewEngine(observability.Nop())
	links, err := engine.Extract(path)
	require.NoError(t, err)

	count := 0
	for _, l := range links {
		if l == "https://dup.example.com/x" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestEngine_ExtractNoLinksIsValidData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.pdf")
	pdftest.WriteFile(t, path, "Nothing to see here", nil)

	engine := NewEngine(observability.Nop())
	links, err := engine.Extract(path)
	require.NoError(t, err)
	assert.Empty(t, links)
}

func TestEngine_ExtractRejectsMalformedDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.pdf")
	require.NoError(t, os.WriteFile(path, []byte("<html>not a pdf</html>"), 0o644))

	engine := NewEngine(observability.Nop())
	_, err := engine.Extract(path)
	assert.Error(t, err)
}

func TestEngine_ExtractRejectsEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.pdf")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	engine := NewEngine(observability.Nop())
	_, err := engine.Extract(path)
	assert.Error(t, err)
}

func TestTrimLink(t *testing.T) {
	assert.Equal(t, "https://example.com/a", trimLink("https://example.com/a."))
	assert.Equal(t, "https://example.com/a", trimLink("https://example.com/a),"))
	assert.Equal(t, "mailto:x@example.com", trimLink(" mailto:x@example.com; "))
}
