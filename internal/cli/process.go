package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/krm/centroidd/internal/pipeline"
	"github.com/krm/centroidd/internal/report"
)

// ProcessOptions holds flags for the process command.
type ProcessOptions struct {
	*RootOptions
	OutputDir   string
	ArchiveDir  string
	Interactive bool
	NoArchive   bool
}

// NewProcessCommand creates the process command: one pipeline run on an
// explicit structure/plan pair, no watching or pairing involved.
func NewProcessCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ProcessOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "process <structure.dcm> <plan.dcm>",
		Short: "Process one structure/plan pair",
		Long: `Run the centroid pipeline once on an explicit pair of files.

Example:
  centroidd process ./RS.1.2.dcm ./RP.1.2.dcm --output-dir ./out --archive-dir ./backup`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProcess(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.OutputDir, "output-dir", ".", "directory for the centroid report")
	cmd.Flags().StringVar(&opts.ArchiveDir, "archive-dir", "", "directory inputs are moved to after processing")
	cmd.Flags().BoolVar(&opts.Interactive, "interactive", false, "prompt when no candidate region matches")

	return cmd
}

// processResult is the JSON payload for the process command.
type processResult struct {
	Status     string `json:"status"`
	PatientID  string `json:"patient_id,omitempty"`
	ReportPath string `json:"report_path,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

func (r processResult) String() string {
	switch r.Status {
	case string(pipeline.StatusWritten):
		return fmt.Sprintf("Report written: %s", r.ReportPath)
	default:
		return fmt.Sprintf("Pair %s: %s", r.Status, r.Reason)
	}
}

func runProcess(opts *ProcessOptions, args []string, cmd *cobra.Command) error {
	var resolver pipeline.RegionResolver = pipeline.AutoAbortResolver{}
	if opts.Interactive {
		resolver = &TerminalResolver{In: cmd.InOrStdin(), Out: cmd.OutOrStdout()}
	}

	archiver := pipelineArchiver(opts.ArchiveDir)
	pipe := pipeline.New(pipeline.Config{
		Resolver:   resolver,
		Archiver:   archiver,
		OutputDir:  opts.OutputDir,
		ArchiveDir: opts.ArchiveDir,
	})

	outcome := pipe.Run(args[0], args[1])

	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	result := processResult{
		Status:     string(outcome.Status),
		PatientID:  outcome.PatientID,
		ReportPath: outcome.ReportPath,
	}
	switch outcome.Status {
	case pipeline.StatusWritten:
		if err := formatter.Success(result); err != nil {
			return err
		}
		return nil
	case pipeline.StatusSkipped:
		result.Reason = outcome.Reason
	case pipeline.StatusFailed:
		result.Reason = outcome.Err.Error()
	}
	_ = formatter.Error(result.String(), nil)
	return NewExitError(ExitFailure, result.String())
}

// pipelineArchiver returns a no-op archiver when no archive dir is set:
// unlike the watch daemon, a one-shot run must not move inputs the
// operator did not ask to move.
func pipelineArchiver(archiveDir string) report.Archiver {
	if archiveDir == "" {
		return noopArchiver{}
	}
	return nil // pipeline.New fills the production archiver
}

type noopArchiver struct{}

func (noopArchiver) Move(src, destDir string) error { return nil }
