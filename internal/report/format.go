// Package report renders a finished run report into the requested output
// shape. Rendering is pure: the same report always produces the same bytes.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/securezeron/SubPDF/internal/config"
	"github.com/securezeron/SubPDF/internal/pipeline"
)

// Render produces the report in the given format.
func Render(rp *pipeline.Report, format config.Format) (string, error) {
	switch format {
	case config.FormatDefault:
		return renderDefault(rp), nil
	case config.FormatSimple:
		return renderSimple(rp), nil
	case config.FormatJSON:
		return renderJSON(rp)
	case config.FormatList:
		return renderList(rp), nil
	case config.FormatDomains:
		return renderDomains(rp), nil
	default:
		return "", fmt.Errorf("unknown output format %q", format)
	}
}

// Write sends rendered output to path, or stdout when path is empty.
func Write(output, path string) error {
	if path == "" {
		_, err := fmt.Println(output)
		return err
	}
	if err := os.WriteFile(path, []byte(output), 0o644); err != nil {
		return fmt.Errorf("write output file: %w", err)
	}
	return nil
}

// hostsOf returns a task's mined hosts: subdomain entries plus the domains
// that have no subdomain entry covering them, sorted.
func hostsOf(res *pipeline.TaskResult) []string {
	set := make(map[string]struct{}, len(res.Domains)+len(res.Subdomains))
	for d := range res.Domains {
		set[d] = struct{}{}
	}
	for s := range res.Subdomains {
		set[s] = struct{}{}
	}
	return pipeline.SortedKeys(set)
}

func renderDefault(rp *pipeline.Report) string {
	var sb strings.Builder
	sb.WriteString("\n========== Default Output ==========\n")
	for _, url := range rp.Order {
		res := rp.PerTask[url]
		fmt.Fprintf(&sb, "Source: %s\n", url)
		if res.Failed() {
			fmt.Fprintf(&sb, "  !! failed (%s): %s\n", res.Err.Kind, res.Err.Detail)
			continue
		}
		hosts := hostsOf(res)
		if len(hosts) == 0 {
			sb.WriteString("  -> (No domains/subdomains found)\n")
			continue
		}
		for _, h := range hosts {
			fmt.Fprintf(&sb, "  -> %s\n", h)
		}
	}
	return sb.String()
}

func renderSimple(rp *pipeline.Report) string {
	set := make(map[string]struct{})
	for _, res := range rp.PerTask {
		if res.Failed() {
			continue
		}
		for _, h := range hostsOf(res) {
			set[h] = struct{}{}
		}
	}
	return strings.Join(pipeline.SortedKeys(set), "\n") + "\n"
}

// jsonTaskEntry is the per-source shape of the json format.
type jsonTaskEntry struct {
	Status     string   `json:"status"`
	Domains    []string `json:"domains,omitempty"`
	Subdomains []string `json:"subdomains,omitempty"`
	ErrorKind  string   `json:"error_kind,omitempty"`
	Detail     string   `json:"detail,omitempty"`
}

type jsonReport struct {
	RunID   string                   `json:"run_id"`
	Results map[string]jsonTaskEntry `json:"results"`
	Totals  jsonTotals               `json:"totals"`
}

type jsonTotals struct {
	Domains    []string `json:"domains"`
	Subdomains []string `json:"subdomains"`
}

func renderJSON(rp *pipeline.Report) (string, error) {
	out := jsonReport{
		RunID:   rp.RunID,
		Results: make(map[string]jsonTaskEntry, len(rp.PerTask)),
		Totals: jsonTotals{
			Domains:    pipeline.SortedKeys(rp.Domains),
			Subdomains: pipeline.SortedKeys(rp.Subdomains),
		},
	}
	for url, res := range rp.PerTask {
		if res.Failed() {
			out.Results[url] = jsonTaskEntry{
				Status:    "failed",
				ErrorKind: string(res.Err.Kind),
				Detail:    res.Err.Detail,
			}
			continue
		}
		out.Results[url] = jsonTaskEntry{
			Status:     "success",
			Domains:    pipeline.SortedKeys(res.Domains),
			Subdomains: pipeline.SortedKeys(res.Subdomains),
		}
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal report: %w", err)
	}
	return string(data), nil
}

func renderList(rp *pipeline.Report) string {
	var sb strings.Builder
	sb.WriteString("\n========== List Format ==========\n")
	for _, url := range rp.Order {
		res := rp.PerTask[url]
		fmt.Fprintf(&sb, "* %s\n", url)
		if res.Failed() {
			fmt.Fprintf(&sb, "  - (failed: %s)\n", res.Err.Kind)
			continue
		}
		hosts := hostsOf(res)
		if len(hosts) == 0 {
			sb.WriteString("  - (No domains found)\n")
			continue
		}
		for _, h := range hosts {
			fmt.Fprintf(&sb, "  - %s\n", h)
		}
	}
	return sb.String()
}

// renderDomains folds subdomains away entirely: only the deduplicated
// registrable domains across all successful tasks, sorted.
func renderDomains(rp *pipeline.Report) string {
	var sb strings.Builder
	sb.WriteString("\n========== Domains Only ==========\n")
	for _, d := range pipeline.SortedKeys(rp.Domains) {
		sb.WriteString(d)
		sb.WriteString("\n")
	}
	return sb.String()
}
