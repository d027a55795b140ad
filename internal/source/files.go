package source

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// readList parses a newline-delimited URL file. Blank lines and lines
// starting with # are skipped.
func readList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input list %s: %w", path, err)
	}
	defer f.Close()

	var urls []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read input list %s: %w", path, err)
	}
	return urls, nil
}

// batchDocument is the named form of a structured batch file.
type batchDocument struct {
	URLs []string `json:"urls" yaml:"urls"`
}

// readBatch parses a structured batch file holding either a bare URL list or
// a named "urls" array. JSON is the default; .yaml/.yml files use YAML with
// the same shape.
func readBatch(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read batch file %s: %w", path, err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".yaml" || ext == ".yml" {
		return parseBatchYAML(path, data)
	}
	return parseBatchJSON(path, data)
}

func parseBatchJSON(path string, data []byte) ([]string, error) {
	var bare []string
	if err := json.Unmarshal(data, &bare); err == nil {
		return compact(bare), nil
	}

	var doc batchDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("batch file %s is neither a URL array nor an object with a urls array: %w", path, err)
	}
	if doc.URLs == nil {
		return nil, fmt.Errorf("batch file %s has no urls array", path)
	}
	return compact(doc.URLs), nil
}

func parseBatchYAML(path string, data []byte) ([]string, error) {
	var bare []string
	if err := yaml.Unmarshal(data, &bare); err == nil && bare != nil {
		return compact(bare), nil
	}

	var doc batchDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("batch file %s is neither a URL list nor a mapping with a urls list: %w", path, err)
	}
	if doc.URLs == nil {
		return nil, fmt.Errorf("batch file %s has no urls list", path)
	}
	return compact(doc.URLs), nil
}

func compact(urls []string) []string {
	out := urls[:0]
	for _, u := range urls {
		if u = strings.TrimSpace(u); u != "" {
			out = append(out, u)
		}
	}
	return out
}
