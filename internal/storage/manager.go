// Package storage governs where fetched documents are materialized and how
// they are cleaned up. Two policies exist: ephemeral (process-scoped temp
// directory, bytes deleted on release and at run teardown) and durable
// (caller-specified directory, bytes persist).
package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// Ref is an opaque handle to one task's backing file. It is owned by the
// worker that acquired it until released.
type Ref struct {
	Path      string
	ephemeral bool
}

// Manager hands out collision-free file paths for fetched documents.
type Manager struct {
	dir       string
	ephemeral bool
}

// NewEphemeral creates a manager backed by a fresh temp directory. Call
// Teardown when the run ends, including on interruption.
func NewEphemeral() (*Manager, error) {
	dir, err := os.MkdirTemp("", "subpdf-*")
	if err != nil {
		return nil, fmt.Errorf("create temp directory: %w", err)
	}
	return &Manager{dir: dir, ephemeral: true}, nil
}

// NewDurable creates a manager that stores documents under dir. Files are
// kept after the run; Release is a no-op.
func NewDurable(dir string) (*Manager, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create download directory: %w", err)
	}
	return &Manager{dir: dir}, nil
}

// Dir returns the backing directory.
func (m *Manager) Dir() string { return m.dir }

// Ephemeral reports whether stored bytes are deleted on release.
func (m *Manager) Ephemeral() bool { return m.ephemeral }

// Acquire derives the storage path for a task URL. The name embeds a hash of
// the full URL so two tasks never contend on the same file.
func (m *Manager) Acquire(sourceURL string) (*Ref, error) {
	info, err := os.Stat(m.dir)
	if err != nil {
		return nil, fmt.Errorf("storage directory unavailable: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage path %s is not a directory", m.dir)
	}

	name := FileName(sourceURL)
	return &Ref{
		Path:      filepath.Join(m.dir, name),
		ephemeral: m.ephemeral,
	}, nil
}

// Release disposes of a task's backing bytes. Under the ephemeral policy the
// file is removed unconditionally, also for tasks that failed mid-fetch.
func (m *Manager) Release(ref *Ref) {
	if ref == nil || !ref.ephemeral {
		return
	}
	_ = os.Remove(ref.Path)
}

// Teardown removes the temp directory of an ephemeral run. Durable managers
// keep everything.
func (m *Manager) Teardown() error {
	if !m.ephemeral {
		return nil
	}
	return os.RemoveAll(m.dir)
}

// FileName derives a deterministic, filesystem-safe name from a document URL:
// a short URL hash prefix plus the sanitized basename of the URL path.
func FileName(sourceURL string) string {
	sum := sha256.Sum256([]byte(sourceURL))
	prefix := hex.EncodeToString(sum[:])[:12]

	base := "document.pdf"
	if u, err := url.Parse(sourceURL); err == nil {
		if b := filepath.Base(u.Path); b != "" && b != "." && b != "/" {
			base = sanitize(b)
		}
	}
	if !strings.HasSuffix(strings.ToLower(base), ".pdf") {
		base += ".pdf"
	}
	return prefix + "_" + base
}

func sanitize(name string) string {
	replacer := strings.NewReplacer(
		":", "_",
		"\\", "_",
		"?", "_",
		"&", "_",
		"=", "_",
		"%", "_",
		" ", "_",
	)
	const maxLen = 120
	name = replacer.Replace(name)
	if len(name) > maxLen {
		name = name[len(name)-maxLen:]
	}
	return name
}
