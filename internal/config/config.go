// Package config holds the immutable run configuration for a subpdf invocation.
// Values come from CLI flags with optional .env / environment overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Format selects the output rendering of the final report.
type Format string

const (
	FormatDefault Format = "default"
	FormatSimple  Format = "simple"
	FormatJSON    Format = "json"
	FormatList    Format = "list"
	FormatDomains Format = "domains"
)

// ParseFormat validates a --format flag value.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatDefault, FormatSimple, FormatJSON, FormatList, FormatDomains:
		return Format(s), nil
	default:
		return "", fmt.Errorf("unknown output format %q (expected default|simple|json|list|domains)", s)
	}
}

// RunConfig is the complete, immutable configuration of one run. It is built
// once at startup and passed explicitly into every component constructor.
type RunConfig struct {
	// Input sources. At least one must be set.
	CrawlURLs []string // web pages crawled one hop for document links
	PDFURLs   []string // direct document URLs, taken as-is
	ListPath  string   // newline-delimited URL list file
	BatchPath string   // structured batch file (JSON or YAML)

	// Headers applied to every fetch in the run.
	Headers map[string]string

	// DownloadDir selects durable storage. Empty means ephemeral temp storage
	// with unconditional cleanup.
	DownloadDir string

	Concurrency int
	Format      Format
	OutputFile  string
	Debug       bool
	NoColor     bool

	// Fetch policy.
	UserAgent     string
	HTTPTimeout   time.Duration
	CrawlTimeout  time.Duration
	MaxBodySize   int64
	RetryAttempts int           // extra attempts after the first, network errors only
	RetryDelay    time.Duration // fixed delay between attempts
}

// DefaultHeaders mirror a mainstream browser so document servers behind
// anti-bot rules still answer.
func DefaultHeaders() map[string]string {
	return map[string]string{
		"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8",
		"Accept-Language":           "en-US,en;q=0.9",
		"Cache-Control":             "no-cache",
		"Pragma":                    "no-cache",
		"Referer":                   "https://www.google.com",
		"Upgrade-Insecure-Requests": "1",
	}
}

// Default returns a RunConfig with the defaults every flag starts from.
func Default() *RunConfig {
	return &RunConfig{
		Headers:       DefaultHeaders(),
		Concurrency:   100,
		Format:        FormatDefault,
		UserAgent:     "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/118.0.0.0 Safari/537.36",
		HTTPTimeout:   30 * time.Second,
		CrawlTimeout:  15 * time.Second,
		MaxBodySize:   100 * 1024 * 1024,
		RetryAttempts: 2,
		RetryDelay:    500 * time.Millisecond,
	}
}

// ApplyEnvOverrides loads an optional .env file and applies SUBPDF_* overrides.
func (c *RunConfig) ApplyEnvOverrides() {
	_ = godotenv.Load() // ignore error if .env doesn't exist

	if v := os.Getenv("SUBPDF_USER_AGENT"); v != "" {
		c.UserAgent = v
	}
	if v := os.Getenv("SUBPDF_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			c.HTTPTimeout = d
		}
	}
	if v := os.Getenv("SUBPDF_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Concurrency = n
		}
	}
}

// Validate checks for fatal configuration errors. These abort the run before
// any task is submitted.
func (c *RunConfig) Validate() error {
	if len(c.CrawlURLs) == 0 && len(c.PDFURLs) == 0 && c.ListPath == "" && c.BatchPath == "" {
		return fmt.Errorf("no input source given: provide --url, --pdf-url, --input-list or --input-json")
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be >= 1, got %d", c.Concurrency)
	}
	if _, err := ParseFormat(string(c.Format)); err != nil {
		return err
	}
	if c.ListPath != "" {
		if err := checkReadable(c.ListPath); err != nil {
			return fmt.Errorf("input list: %w", err)
		}
	}
	if c.BatchPath != "" {
		if err := checkReadable(c.BatchPath); err != nil {
			return fmt.Errorf("batch file: %w", err)
		}
	}
	return nil
}

func checkReadable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory, not a file", path)
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	return f.Close()
}
