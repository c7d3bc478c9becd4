package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"msqc/adapters/archive"
	"msqc/adapters/history"
	"msqc/adapters/mqtxt"
	"msqc/adapters/mztab"
	"msqc/adapters/render"
	"msqc/app"
	"msqc/internal/config"
	"msqc/internal/watch"
	"msqc/ports"
)

var (
	flagReportIn      string
	flagReportOut     string
	flagReportConfig  string
	flagReportWatch   bool
	flagReportArchive string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Generate a quality report from MaxQuant txt output or an mzTab file",
	Long: `Reads the analysis source, runs every enabled metric unit, and writes
the report bundle into the output directory.

The source is detected from the input path: a directory is read as a
MaxQuant txt folder, a file as mzTab. With --watch the report is
regenerated whenever the source changes.`,
	RunE: runReport,
}

func init() {
	reportCmd.Flags().StringVarP(&flagReportIn, "in", "i", "", "input path: MaxQuant txt directory or mzTab file (required)")
	reportCmd.Flags().StringVarP(&flagReportOut, "out", "o", "", "output directory for the report bundle (required)")
	reportCmd.Flags().StringVarP(&flagReportConfig, "config", "c", "", "config file (default: report_config.yaml in the output directory)")
	reportCmd.Flags().BoolVarP(&flagReportWatch, "watch", "w", false, "keep running and regenerate on source changes")
	reportCmd.Flags().StringVar(&flagReportArchive, "archive", "", "publish the finished report to a directory or s3://bucket/prefix")
	_ = reportCmd.MarkFlagRequired("in")
	_ = reportCmd.MarkFlagRequired("out")
}

func runReport(cmd *cobra.Command, args []string) error {
	cfgPath := flagReportConfig
	if cfgPath == "" {
		cfgPath = filepath.Join(flagReportOut, config.File)
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	if err := initLogger(cfg.Logging); err != nil {
		return err
	}

	source, err := newSource(flagReportIn, logger)
	if err != nil {
		return err
	}

	opts, closers, err := buildRunOptions(cmd.Context(), cfg, flagReportOut)
	if err != nil {
		return err
	}
	defer func() {
		for _, c := range closers {
			_ = c.Close()
		}
	}()

	svc := app.NewRunService(source, opts...)
	req := app.RunRequest{OutDir: flagReportOut, Config: cfg, Log: logger}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		logger.Infow("shutdown signal received")
		cancel()
	}()

	res, err := svc.Run(ctx, req)
	if err != nil {
		if !flagReportWatch {
			return err
		}
		logger.Warnw("initial run failed, watching for changes", "error", err)
	} else {
		printRunResult(res)
	}

	if !flagReportWatch {
		return nil
	}

	debounce := time.Duration(cfg.Watch.DebounceMillis) * time.Millisecond
	w := watch.New(flagReportIn, debounce, func(ctx context.Context) error {
		res, err := svc.Run(ctx, req)
		if err != nil {
			return err
		}
		printRunResult(res)
		return nil
	}, logger)
	return w.Run(ctx)
}

// newSource picks the source adapter from the input path shape.
func newSource(in string, log *zap.SugaredLogger) (ports.SourcePort, error) {
	fi, err := os.Stat(in)
	if err != nil {
		return nil, fmt.Errorf("failed to access input path: %w", err)
	}
	if fi.IsDir() {
		return mqtxt.NewSource(in, log), nil
	}
	return mztab.NewSource(in, log), nil
}

type closer interface{ Close() error }

// buildRunOptions assembles renderers, history, and archive collaborators
// from configuration. History problems degrade to warnings; a requested
// archive with no destination is an error.
func buildRunOptions(ctx context.Context, cfg *config.Config, outDir string) ([]app.Option, []closer, error) {
	var opts []app.Option
	var closers []closer

	var renderers []ports.RenderPort
	for _, format := range cfg.Report.OutputFormats {
		switch format {
		case config.FormatHTML:
			r, err := render.NewHTML()
			if err != nil {
				return nil, nil, err
			}
			renderers = append(renderers, r)
		case config.FormatXLSX:
			renderers = append(renderers, render.NewXLSX())
		}
	}
	opts = append(opts, app.WithRenderers(renderers...))

	if cfg.History.Enabled {
		store, err := history.Open(cfg.HistoryPath(outDir))
		if err != nil {
			logger.Warnw("history disabled for this run", "error", err)
		} else {
			opts = append(opts, app.WithHistory(store))
			closers = append(closers, store)
		}
	}

	if flagReportArchive != "" || cfg.Archive.Enabled {
		acfg := cfg.Archive
		if flagReportArchive != "" {
			acfg = archiveDest(flagReportArchive, acfg)
		}
		publisher, err := newArchive(ctx, acfg)
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, app.WithArchive(publisher))
	}
	return opts, closers, nil
}

// archiveDest overrides the configured archive destination with the one
// given on the command line. An s3:// destination selects the S3 driver,
// anything else a local directory.
func archiveDest(dest string, cfg config.ArchiveConfig) config.ArchiveConfig {
	if after, ok := strings.CutPrefix(dest, "s3://"); ok {
		cfg.S3Bucket, cfg.S3Prefix, _ = strings.Cut(after, "/")
		cfg.LocalDir = ""
		return cfg
	}
	cfg.LocalDir = dest
	cfg.S3Bucket = ""
	return cfg
}

func newArchive(ctx context.Context, cfg config.ArchiveConfig) (ports.ArchivePort, error) {
	switch {
	case cfg.S3Bucket != "":
		return archive.NewS3(ctx, archive.S3Config{
			Bucket: cfg.S3Bucket,
			Prefix: cfg.S3Prefix,
			Region: cfg.Region,
		})
	case cfg.LocalDir != "":
		return archive.NewLocal(cfg.LocalDir), nil
	default:
		return nil, fmt.Errorf("archive requested but neither s3_bucket nor local_dir is configured")
	}
}

func printRunResult(res *app.RunResult) {
	fmt.Printf("run %s finished in %dms: %d metrics scored\n", res.RunID, res.RuntimeMs, res.ScoredUnits)
	for _, out := range res.Outputs {
		fmt.Println("  wrote", out)
	}
	for _, warning := range res.Warnings {
		fmt.Println("  warning:", warning)
	}
}
