package pipeline

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/securezeron/SubPDF/internal/config"
	"github.com/securezeron/SubPDF/internal/extract"
	"github.com/securezeron/SubPDF/internal/fetch"
	"github.com/securezeron/SubPDF/internal/observability"
	"github.com/securezeron/SubPDF/internal/pdftest"
	"github.com/securezeron/SubPDF/internal/source"
	"github.com/securezeron/SubPDF/internal/storage"
)

type poolHarness struct {
	pool  *Pool
	store *storage.Manager
}

func newPoolHarness(t *testing.T, workers int) *poolHarness {
	t.Helper()

	cfg := config.Default()
	cfg.Concurrency = workers
	cfg.HTTPTimeout = 5 * time.Second
	cfg.RetryAttempts = 0
	cfg.RetryDelay = 10 * time.Millisecond

	store, err := storage.NewEphemeral()
	require.NoError(t, err)
	t.Cleanup(func() { store.Teardown() })

	logger := observability.Nop()
	return &poolHarness{
		pool:  NewPool(workers, fetch.NewClient(cfg, logger), store, extract.NewEngine(logger), logger),
		store: store,
	}
}

func tasksFor(urls ...string) []source.AcquisitionTask {
	tasks := make([]source.AcquisitionTask, len(urls))
	for i, u := range urls {
		tasks[i] = source.AcquisitionTask{SourceURL: u}
	}
	return tasks
}

func TestPool_MixedBatchProducesOneResultPerTask(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/good.pdf", func(w http.ResponseWriter, r *http.Request) {
		w.Write(pdftest.Build("see https://docs.example.com/guide", []string{"https://example.com/home"}))
	})
	mux.HandleFunc("/gone.pdf", http.NotFound)
	mux.HandleFunc("/broken.pdf", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("this is not a pdf"))
	})

	tasks := tasksFor(srv.URL+"/good.pdf", srv.URL+"/gone.pdf", srv.URL+"/broken.pdf")
	h := newPoolHarness(t, 3)
	report := h.pool.Run(context.Background(), "run-1", tasks, nil)

	require.Len(t, report.PerTask, len(tasks))
	require.ElementsMatch(t, []string{
		srv.URL + "/good.pdf", srv.URL + "/gone.pdf", srv.URL + "/broken.pdf",
	}, report.Order)

	good := report.PerTask[srv.URL+"/good.pdf"]
	require.False(t, good.Failed())
	assert.Contains(t, good.Domains, "example.com")
	assert.Contains(t, good.Subdomains, "docs.example.com")

	gone := report.PerTask[srv.URL+"/gone.pdf"]
	require.True(t, gone.Failed())
	assert.Equal(t, KindHTTP, gone.Err.Kind)

	broken := report.PerTask[srv.URL+"/broken.pdf"]
	require.True(t, broken.Failed())
	assert.Equal(t, KindParse, broken.Err.Kind)

	// Failures contribute nothing to the totals.
	assert.Equal(t, []string{"example.com"}, SortedKeys(report.Domains))
	assert.Equal(t, []string{"docs.example.com"}, SortedKeys(report.Subdomains))
}

func TestPool_TotalsAreUnionOfSuccesses(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/a.pdf", func(w http.ResponseWriter, r *http.Request) {
		w.Write(pdftest.Build("", []string{"https://one.example.com/x", "https://shared.example.org/y"}))
	})
	mux.HandleFunc("/b.pdf", func(w http.ResponseWriter, r *http.Request) {
		w.Write(pdftest.Build("", []string{"https://two.example.com/z", "https://shared.example.org/y"}))
	})

	h := newPoolHarness(t, 2)
	report := h.pool.Run(context.Background(), "run-2", tasksFor(srv.URL+"/a.pdf", srv.URL+"/b.pdf"), nil)

	assert.Equal(t, []string{"example.com", "example.org"}, SortedKeys(report.Domains))
	assert.Equal(t, []string{"one.example.com", "shared.example.org", "two.example.com"}, SortedKeys(report.Subdomains))
}

func TestPool_EmptyExtractionIsSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(pdftest.Build("no links in here", nil))
	}))
	defer srv.Close()

	h := newPoolHarness(t, 1)
	report := h.pool.Run(context.Background(), "run-3", tasksFor(srv.URL+"/empty.pdf"), nil)

	res := report.PerTask[srv.URL+"/empty.pdf"]
	require.NotNil(t, res)
	assert.False(t, res.Failed())
	assert.Empty(t, res.Domains)
	assert.Empty(t, res.Subdomains)
	assert.Empty(t, report.Failures())
}

func TestPool_NetworkFailureIsolated(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(pdftest.Build("", []string{"https://ok.example.com/"}))
	}))
	defer srv.Close()

	h := newPoolHarness(t, 2)
	report := h.pool.Run(context.Background(), "run-4",
		tasksFor("http://127.0.0.1:1/dead.pdf", srv.URL+"/live.pdf"), nil)

	require.Len(t, report.PerTask, 2)
	dead := report.PerTask["http://127.0.0.1:1/dead.pdf"]
	require.True(t, dead.Failed())
	assert.Equal(t, KindNetwork, dead.Err.Kind)
	assert.False(t, report.PerTask[srv.URL+"/live.pdf"].Failed())
	assert.Equal(t, []string{"http://127.0.0.1:1/dead.pdf"}, report.Failures())
}

func TestPool_ProgressReachesTotal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(pdftest.Build("x", nil))
	}))
	defer srv.Close()

	var calls int32
	var lastDone, lastTotal int
	h := newPoolHarness(t, 4)
	h.pool.Run(context.Background(), "run-5",
		tasksFor(srv.URL+"/1.pdf", srv.URL+"/2.pdf", srv.URL+"/3.pdf"),
		func(done, total int) {
			atomic.AddInt32(&calls, 1)
			lastDone, lastTotal = done, total
		})

	assert.Equal(t, int32(3), calls)
	assert.Equal(t, 3, lastDone)
	assert.Equal(t, 3, lastTotal)
}

func TestPool_CancelledContextYieldsPartialReport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(pdftest.Build("x", nil))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	h := newPoolHarness(t, 1)
	report := h.pool.Run(ctx, "run-6", tasksFor(srv.URL+"/1.pdf", srv.URL+"/2.pdf"), nil)
	assert.Empty(t, report.PerTask, "queued tasks drain without results once cancelled")
}

func TestPool_DroppedLinksCounted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(pdftest.Build("", []string{"https://good.example.com/", "file:///etc/passwd"}))
	}))
	defer srv.Close()

	h := newPoolHarness(t, 1)
	report := h.pool.Run(context.Background(), "run-7", tasksFor(srv.URL+"/d.pdf"), nil)

	res := report.PerTask[srv.URL+"/d.pdf"]
	require.False(t, res.Failed())
	assert.Equal(t, 1, res.Dropped)
	assert.Equal(t, []string{"example.com"}, SortedKeys(res.Domains))
}

func TestReport_MergeKeepsSubmissionOrderStable(t *testing.T) {
	rp := NewReport("run-8")
	rp.merge(&TaskResult{
		Task:    source.AcquisitionTask{SourceURL: "https://a.example/1.pdf"},
		Domains: map[string]struct{}{"a.example": {}},
	})
	rp.merge(&TaskResult{
		Task: source.AcquisitionTask{SourceURL: "https://b.example/2.pdf"},
		Err:  &TaskError{Kind: KindNetwork, Detail: "refused"},
	})

	assert.Equal(t, []string{"https://a.example/1.pdf", "https://b.example/2.pdf"}, rp.Order)
	assert.Equal(t, 2, rp.Completed())
	assert.Equal(t, []string{"https://b.example/2.pdf"}, rp.Failures())
	assert.Equal(t, []string{"a.example"}, SortedKeys(rp.Domains))
}
