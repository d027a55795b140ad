// Package pipeline runs the bounded-concurrency acquisition loop: workers
// fetch and mine documents, a single aggregator folds their results into the
// run report.
package pipeline

import (
	"sort"

	"github.com/securezeron/SubPDF/internal/source"
)

// ErrorKind is the closed set of per-task failure categories.
type ErrorKind string

const (
	KindNetwork ErrorKind = "network" // connection refused, DNS failure, timeout
	KindHTTP    ErrorKind = "http"    // non-2xx response status
	KindStorage ErrorKind = "storage" // storage directory or write failure
	KindParse   ErrorKind = "parse"   // document is not a well-formed PDF
)

// TaskError carries the category and human-readable detail of one task's
// failure.
type TaskError struct {
	Kind   ErrorKind
	Detail string
}

// TaskResult is the single outcome every submitted task produces: either a
// success with the mined domain/subdomain sets, or a categorized failure. An
// empty extraction is a success with empty sets, since no links is valid data.
type TaskResult struct {
	Task       source.AcquisitionTask
	Err        *TaskError
	Domains    map[string]struct{}
	Subdomains map[string]struct{}
	Dropped    int // raw links without a usable hostname
}

// Failed reports whether the task ended in a categorized failure.
func (r *TaskResult) Failed() bool { return r.Err != nil }

// Report is the aggregated outcome of a run, keyed by originating URL. It is
// written only by the aggregator goroutine and read-only once Run returns.
type Report struct {
	RunID      string
	PerTask    map[string]*TaskResult
	Order      []string // source URLs in completion-independent submission order
	Domains    map[string]struct{}
	Subdomains map[string]struct{}
}

// NewReport creates an empty report for a run.
func NewReport(runID string) *Report {
	return &Report{
		RunID:      runID,
		PerTask:    make(map[string]*TaskResult),
		Domains:    make(map[string]struct{}),
		Subdomains: make(map[string]struct{}),
	}
}

// merge folds one completed result into the report. Each URL appears at most
// once as a task, so there is never a second writer for a key.
func (rp *Report) merge(res *TaskResult) {
	url := res.Task.SourceURL
	if _, dup := rp.PerTask[url]; !dup {
		rp.Order = append(rp.Order, url)
	}
	rp.PerTask[url] = res

	if res.Failed() {
		return
	}
	for d := range res.Domains {
		rp.Domains[d] = struct{}{}
	}
	for s := range res.Subdomains {
		rp.Subdomains[s] = struct{}{}
	}
}

// Completed returns the number of per-task entries.
func (rp *Report) Completed() int { return len(rp.PerTask) }

// Failures returns the source URLs that ended in failure, in submission order.
func (rp *Report) Failures() []string {
	var urls []string
	for _, u := range rp.Order {
		if rp.PerTask[u].Failed() {
			urls = append(urls, u)
		}
	}
	return urls
}

// SortedKeys returns a set's members in lexical order.
func SortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
