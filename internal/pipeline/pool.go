package pipeline

import (
	"context"
	"sync"

	"github.com/securezeron/SubPDF/internal/extract"
	"github.com/securezeron/SubPDF/internal/fetch"
	"github.com/securezeron/SubPDF/internal/observability"
	"github.com/securezeron/SubPDF/internal/source"
	"github.com/securezeron/SubPDF/internal/storage"
)

// Progress is called by the aggregator after every merged result.
type Progress func(done, total int)

// Pool executes acquisition tasks with bounded concurrency. Tasks are
// I/O-bound, so the limit defaults high; it bounds open descriptors and
// memory, not CPU.
type Pool struct {
	workers int
	client  *fetch.Client
	store   *storage.Manager
	engine  *extract.Engine
	logger  *observability.Logger
}

// NewPool creates a worker pool over the shared fetch client, storage manager
// and extraction engine.
func NewPool(workers int, client *fetch.Client, store *storage.Manager, engine *extract.Engine, logger *observability.Logger) *Pool {
	if workers < 1 {
		workers = 1
	}
	return &Pool{
		workers: workers,
		client:  client,
		store:   store,
		engine:  engine,
		logger:  logger,
	}
}

// Run processes every task and returns the aggregated report. Results may
// complete in any order; a single aggregator goroutine serializes all merges,
// so no map is ever written concurrently. Cancelling ctx stops the hand-out
// of queued tasks, lets in-flight tasks finish or time out, and drains their
// results into a partial report.
func (p *Pool) Run(ctx context.Context, runID string, tasks []source.AcquisitionTask, progress Progress) *Report {
	total := len(tasks)
	taskCh := make(chan source.AcquisitionTask, total)
	for _, t := range tasks {
		taskCh <- t
	}
	close(taskCh)

	resultCh := make(chan *TaskResult, total)
	var wg sync.WaitGroup

	workers := p.workers
	if workers > total {
		workers = total
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for task := range taskCh {
				if ctx.Err() != nil {
					// Queued but never started: drain without a result so
					// in-flight siblings can still land theirs.
					continue
				}
				resultCh <- p.runTask(ctx, task)
			}
		}()
	}

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	// Single consumer: every merge happens here.
	report := NewReport(runID)
	for res := range resultCh {
		report.merge(res)
		if progress != nil {
			progress(report.Completed(), total)
		}
	}
	return report
}

// runTask performs one task end to end: acquire storage, fetch, extract,
// classify, release. Failures are isolated; nothing here cancels siblings.
func (p *Pool) runTask(ctx context.Context, task source.AcquisitionTask) *TaskResult {
	logger := p.logger.WithTask(task.SourceURL)
	res := &TaskResult{
		Task:       task,
		Domains:    make(map[string]struct{}),
		Subdomains: make(map[string]struct{}),
	}

	ref, err := p.store.Acquire(task.SourceURL)
	if err != nil {
		logger.Warn().Err(err).Msg("storage acquisition failed")
		res.Err = &TaskError{Kind: KindStorage, Detail: err.Error()}
		return res
	}
	defer p.store.Release(ref)

	size, err := p.client.Download(ctx, task.SourceURL, ref.Path)
	if err != nil {
		res.Err = classifyFetchError(err)
		logger.Warn().Str("kind", string(res.Err.Kind)).Err(err).Msg("document fetch failed")
		return res
	}
	logger.Debug().Int64("bytes", size).Str("path", ref.Path).Msg("document downloaded")

	rawURLs, err := p.engine.Extract(ref.Path)
	if err != nil {
		logger.Warn().Err(err).Msg("document parse failed")
		res.Err = &TaskError{Kind: KindParse, Detail: err.Error()}
		return res
	}

	for _, raw := range rawURLs {
		c, ok := extract.Classify(raw)
		if !ok {
			res.Dropped++
			continue
		}
		res.Domains[c.Domain] = struct{}{}
		if c.Subdomain != "" {
			res.Subdomains[c.Subdomain+"."+c.Domain] = struct{}{}
		}
	}

	logger.Debug().
		Int("links", len(rawURLs)).
		Int("domains", len(res.Domains)).
		Int("subdomains", len(res.Subdomains)).
		Int("dropped", res.Dropped).
		Msg("document mined")
	return res
}

func classifyFetchError(err error) *TaskError {
	if se, ok := fetch.IsStatusError(err); ok {
		return &TaskError{Kind: KindHTTP, Detail: se.Error()}
	}
	if fetch.IsStorageError(err) {
		return &TaskError{Kind: KindStorage, Detail: err.Error()}
	}
	return &TaskError{Kind: KindNetwork, Detail: err.Error()}
}
