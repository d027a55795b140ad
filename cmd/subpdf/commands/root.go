// Package commands wires the subpdf CLI to the acquisition pipeline.
package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/securezeron/SubPDF/cmd/subpdf/ui"
	"github.com/securezeron/SubPDF/internal/config"
	"github.com/securezeron/SubPDF/internal/extract"
	"github.com/securezeron/SubPDF/internal/fetch"
	"github.com/securezeron/SubPDF/internal/observability"
	"github.com/securezeron/SubPDF/internal/pipeline"
	"github.com/securezeron/SubPDF/internal/report"
	"github.com/securezeron/SubPDF/internal/source"
	"github.com/securezeron/SubPDF/internal/storage"
)

var (
	flagCrawlURLs   []string
	flagPDFURLs     []string
	flagListPath    string
	flagBatchPath   string
	flagDownloadDir string
	flagHeaders     []string
	flagFormat      string
	flagOutputFile  string
	flagConcurrency int
	flagDebug       bool
	flagNoColor     bool
)

var rootCmd = &cobra.Command{
	Use:   "subpdf",
	Short: "Mine PDF documents for embedded links and fold them into domains and subdomains",
	Long: `subpdf discovers, downloads and mines PDF documents for embedded hyperlinks,
then reduces those links to a deduplicated set of registrable domains and
subdomains. Inputs can be a web page to crawl one hop for PDF links, direct
document URLs, a newline-delimited list file, or a structured batch file.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context())
	},
}

func init() {
	rootCmd.Flags().StringArrayVarP(&flagCrawlURLs, "url", "u", nil, "webpage URL to crawl for PDF links (repeatable)")
	rootCmd.Flags().StringArrayVarP(&flagPDFURLs, "pdf-url", "p", nil, "direct PDF URL to parse (repeatable)")
	rootCmd.Flags().StringVarP(&flagListPath, "input-list", "l", "", "text file with one URL per line")
	rootCmd.Flags().StringVarP(&flagBatchPath, "input-json", "j", "", "batch file with a URL array or a named urls array (JSON or YAML)")
	rootCmd.Flags().StringVarP(&flagDownloadDir, "download-dir", "d", "", "store PDFs permanently here; otherwise a temp area is cleaned up after the run")
	rootCmd.Flags().StringArrayVarP(&flagHeaders, "header", "H", nil, "custom HTTP header as 'Name: Value' (repeatable)")
	rootCmd.Flags().StringVar(&flagFormat, "format", "default", "output style: default | simple | json | list | domains")
	rootCmd.Flags().StringVarP(&flagOutputFile, "output-file", "o", "", "write final output to this file instead of stdout")
	rootCmd.Flags().IntVarP(&flagConcurrency, "concurrency", "t", 100, "number of concurrent document workers")
	rootCmd.Flags().BoolVar(&flagDebug, "debug", false, "enable verbose per-task tracing instead of the progress bar")
	rootCmd.Flags().BoolVar(&flagNoColor, "no-color", false, "disable colored output")
}

// Execute runs the root command under an interrupt-aware context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

// buildConfig assembles the immutable run configuration from flags and env.
func buildConfig() (*config.RunConfig, error) {
	cfg := config.Default()
	cfg.ApplyEnvOverrides()

	cfg.CrawlURLs = flagCrawlURLs
	cfg.PDFURLs = flagPDFURLs
	cfg.ListPath = flagListPath
	cfg.BatchPath = flagBatchPath
	cfg.DownloadDir = flagDownloadDir
	cfg.OutputFile = flagOutputFile
	cfg.Debug = flagDebug
	cfg.NoColor = flagNoColor
	if flagConcurrency != 0 {
		cfg.Concurrency = flagConcurrency
	}

	format, err := config.ParseFormat(flagFormat)
	if err != nil {
		return nil, err
	}
	cfg.Format = format

	for _, h := range flagHeaders {
		name, value, ok := strings.Cut(h, ":")
		if !ok {
			ui.Warning("skipping malformed header: %s", h)
			continue
		}
		cfg.Headers[strings.TrimSpace(name)] = strings.TrimSpace(value)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func run(ctx context.Context) error {
	cfg, err := buildConfig()
	if err != nil {
		return err
	}
	color.NoColor = cfg.NoColor

	runID := uuid.New().String()
	logger := observability.NewLogger(observability.LogConfig{
		Debug:   cfg.Debug,
		NoColor: cfg.NoColor,
		RunID:   runID,
	})

	// An unwritable output destination must fail before any task runs.
	if cfg.OutputFile != "" {
		if err := preflightOutput(cfg.OutputFile); err != nil {
			return err
		}
	}

	store, err := openStorage(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Teardown(); err != nil {
			logger.Warn().Err(err).Msg("failed to remove temporary storage")
		}
	}()

	client := fetch.NewClient(cfg, logger)

	// Resolve every input mode into the deduplicated task sequence.
	var spin *ui.Spinner
	if !cfg.Debug {
		spin = ui.NewSpinner("resolving document URLs...")
		spin.Start()
	}
	tasks, err := source.New(cfg, client, logger).Resolve(ctx)
	if spin != nil {
		spin.Stop()
	}
	if err != nil {
		return err
	}
	ui.Info("Resolved %d document(s), processing with up to %d workers...", len(tasks), cfg.Concurrency)

	var bar *ui.ProgressBar
	var progress pipeline.Progress
	if !cfg.Debug {
		bar = ui.NewProgressBar(int64(len(tasks)), "Processing documents")
		progress = func(done, total int) { bar.Set(int64(done)) }
	}

	engine := extract.NewEngine(logger)
	pool := pipeline.NewPool(cfg.Concurrency, client, store, engine, logger)
	rep := pool.Run(ctx, runID, tasks, progress)
	if bar != nil {
		bar.Finish()
	}

	if ctx.Err() != nil {
		ui.Warning("interrupted: reporting %d of %d task(s)", rep.Completed(), len(tasks))
	}
	if failures := rep.Failures(); len(failures) > 0 {
		ui.Warning("%d of %d task(s) failed; see report for details", len(failures), rep.Completed())
	}

	output, err := report.Render(rep, cfg.Format)
	if err != nil {
		return err
	}
	if err := report.Write(output, cfg.OutputFile); err != nil {
		return err
	}
	if cfg.OutputFile != "" {
		ui.Success("Output written to %s", cfg.OutputFile)
	}

	// Individual task failures do not fail the process; only configuration
	// errors reach main with a non-zero exit.
	return nil
}

func openStorage(cfg *config.RunConfig) (*storage.Manager, error) {
	if cfg.DownloadDir != "" {
		store, err := storage.NewDurable(cfg.DownloadDir)
		if err != nil {
			return nil, err
		}
		ui.Info("Using permanent folder: %s", cfg.DownloadDir)
		return store, nil
	}
	store, err := storage.NewEphemeral()
	if err != nil {
		return nil, err
	}
	ui.Info("Using temporary folder %s, PDFs will be deleted after extraction", store.Dir())
	return store, nil
}

func preflightOutput(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("output destination not writable: %w", err)
	}
	return f.Close()
}
