package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/krm/centroidd/internal/dicom"
	"github.com/krm/centroidd/internal/journal"
	"github.com/krm/centroidd/internal/pair"
	"github.com/krm/centroidd/internal/pipeline"
	"github.com/krm/centroidd/internal/probe"
	"github.com/krm/centroidd/internal/watch"
)

// WatchOptions holds flags for the watch command.
type WatchOptions struct {
	*RootOptions
	ConfigPath  string
	OutputDir   string
	ArchiveDir  string
	JournalPath string
	Interactive bool

	ProbeTimeout  time.Duration
	ProbeInterval time.Duration
	ProbeSamples  int
}

// NewWatchCommand creates the watch command.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WatchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "watch [dir]",
		Short: "Watch a directory for structure/plan pairs",
		Long: `Watch a directory for paired RTSTRUCT and RTPLAN exports.

Each new or modified file is probed until it stops growing, classified,
and registered; when both halves of a pair are present the centroid
report is written and the inputs are moved to the archive directory.
Runs until interrupted.

Example:
  centroidd watch /var/lib/centroidd/incoming --journal /var/lib/centroidd/journal.db
  centroidd watch --config /etc/centroidd.yaml --verbose`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.ConfigPath, "config", "", "path to YAML config file")
	cmd.Flags().StringVar(&opts.OutputDir, "output-dir", "", "directory for centroid reports")
	cmd.Flags().StringVar(&opts.ArchiveDir, "archive-dir", "", "directory processed inputs are moved to")
	cmd.Flags().StringVar(&opts.JournalPath, "journal", "", "path to SQLite outcome journal (empty disables)")
	cmd.Flags().BoolVar(&opts.Interactive, "interactive", false, "prompt an operator when no candidate region matches")
	cmd.Flags().DurationVar(&opts.ProbeTimeout, "probe-timeout", 0, "max wait for a file to stabilize")
	cmd.Flags().DurationVar(&opts.ProbeInterval, "probe-interval", 0, "delay between stability samples")
	cmd.Flags().IntVar(&opts.ProbeSamples, "probe-samples", 0, "consecutive stable samples required")

	return cmd
}

func runWatch(opts *WatchOptions, args []string, cmd *cobra.Command) error {
	cfg, err := LoadConfig(opts.ConfigPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	applyWatchOverrides(&cfg, opts, cmd, args)

	probeCfg := probe.Config{
		Timeout:       time.Duration(cfg.Probe.Timeout),
		Interval:      time.Duration(cfg.Probe.Interval),
		StableSamples: cfg.Probe.StableSamples,
	}

	var resolver pipeline.RegionResolver = pipeline.AutoAbortResolver{}
	if cfg.Interactive {
		resolver = &TerminalResolver{In: cmd.InOrStdin(), Out: cmd.OutOrStdout()}
	}

	pipe := pipeline.New(pipeline.Config{
		Resolver:   resolver,
		OutputDir:  cfg.OutputDir,
		ArchiveDir: cfg.ArchiveDir,
	})

	var jnl *journal.Journal
	if cfg.Journal != "" {
		slog.Info("opening journal", "path", cfg.Journal)
		jnl, err = journal.Open(cfg.Journal)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open journal", err)
		}
		defer func() {
			if closeErr := jnl.Close(); closeErr != nil {
				slog.Error("error closing journal", "error", closeErr)
			}
		}()
		slog.Info("journal ready", "run_id", jnl.RunID())
	}

	registry := pair.NewRegistry(func(structure, plan pair.Half) {
		outcome := pipe.Run(structure.Path, plan.Path)
		if jnl == nil {
			return
		}
		entry := journal.Entry{
			PatientID:     outcome.PatientID,
			StructurePath: structure.Path,
			PlanPath:      plan.Path,
			Status:        string(outcome.Status),
			Reason:        outcome.Reason,
			ReportPath:    outcome.ReportPath,
		}
		if outcome.Err != nil {
			entry.Reason = outcome.Err.Error()
		}
		if err := jnl.Record(context.Background(), entry); err != nil {
			slog.Error("failed to journal outcome", "error", err)
		}
	})

	watcher, err := watch.New(watch.Config{
		Dir:       cfg.WatchDir,
		Probe:     probe.New(probeCfg),
		Extractor: dicom.NewFileExtractor(),
		Registry:  registry,
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid watch configuration", err)
	}

	// Graceful shutdown on interrupt: stop accepting events, let any
	// in-flight pair finish (completions run on the watch goroutine).
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	slog.Info("starting watch",
		"dir", cfg.WatchDir,
		"output_dir", cfg.OutputDir,
		"archive_dir", cfg.ArchiveDir,
		"interactive", cfg.Interactive,
	)
	fmt.Fprintf(cmd.OutOrStdout(), "Watching %s for structure/plan pairs.\n", cfg.WatchDir)
	fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl-C to stop.")

	if err := watcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return WrapExitError(ExitFailure, "watcher error", err)
	}

	slog.Info("watcher stopped gracefully")
	return nil
}

// applyWatchOverrides layers precedence: built-in defaults < config file <
// explicit flags, with the positional argument naming the watch dir.
func applyWatchOverrides(cfg *Config, opts *WatchOptions, cmd *cobra.Command, args []string) {
	if len(args) == 1 {
		cfg.WatchDir = args[0]
	}
	flags := cmd.Flags()
	if flags.Changed("output-dir") {
		cfg.OutputDir = opts.OutputDir
	}
	if flags.Changed("archive-dir") {
		cfg.ArchiveDir = opts.ArchiveDir
	}
	if flags.Changed("journal") {
		cfg.Journal = opts.JournalPath
	}
	if flags.Changed("interactive") {
		cfg.Interactive = opts.Interactive
	}
	if flags.Changed("probe-timeout") {
		cfg.Probe.Timeout = Duration(opts.ProbeTimeout)
	}
	if flags.Changed("probe-interval") {
		cfg.Probe.Interval = Duration(opts.ProbeInterval)
	}
	if flags.Changed("probe-samples") {
		cfg.Probe.StableSamples = opts.ProbeSamples
	}
}
