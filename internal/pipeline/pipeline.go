// Package pipeline turns a completed structure/plan pair into a centroid
// report and archives the inputs.
//
// A run is a straight-line sequence of independently fallible steps with
// no internal retries: full parse of both halves, patient identity check,
// candidate region matching, centroid and isocenter extraction, report
// rendering and writing, then archival. A failure surfaces as a Skipped or
// Failed outcome and the pair is forgotten; a fresh pair of events is the
// only recovery path. Archival runs on every outcome so the watched
// directory always drains.
package pipeline

import (
	"fmt"
	"log/slog"

	"github.com/krm/centroidd/internal/dicom"
	"github.com/krm/centroidd/internal/report"
)

// Status classifies a pair-processing outcome.
type Status string

const (
	// StatusWritten means the report was produced.
	StatusWritten Status = "written"
	// StatusSkipped means the pair was discarded for a domain reason
	// (identity mismatch, no matching regions, wrong record kinds).
	StatusSkipped Status = "skipped"
	// StatusFailed means an I/O or parse error ended the run.
	StatusFailed Status = "failed"
)

// Outcome reports what a Run did.
type Outcome struct {
	Status     Status
	ReportPath string // set when Status == StatusWritten
	Reason     string // set when Status == StatusSkipped
	Err        error  // set when Status == StatusFailed
	PatientID  string // set once identity is known
}

// RegionResolver is consulted when no candidate region name matched.
// Implementations may prompt an operator to pick from the available region
// names; returning ok=false aborts the pair. The resolver runs outside the
// pairing registry's critical section, so blocking on operator input never
// stalls event registration.
type RegionResolver interface {
	Resolve(available []string) (chosen []string, ok bool)
}

// AutoAbortResolver is the non-interactive default: zero candidate matches
// means the pair is skipped.
type AutoAbortResolver struct{}

// Resolve always aborts.
func (AutoAbortResolver) Resolve([]string) ([]string, bool) { return nil, false }

// Config wires a Pipeline. Zero-value collaborators get production
// defaults.
type Config struct {
	Extractor  dicom.Extractor
	Sink       report.Sink
	Archiver   report.Archiver
	Resolver   RegionResolver
	OutputDir  string
	ArchiveDir string
}

// Pipeline processes completed pairs. Safe for repeated use; a Pipeline
// holds no per-pair state.
type Pipeline struct {
	extractor  dicom.Extractor
	sink       report.Sink
	archiver   report.Archiver
	resolver   RegionResolver
	outputDir  string
	archiveDir string
}

// New creates a Pipeline, filling in production collaborators for any nil
// Config field.
func New(cfg Config) *Pipeline {
	p := &Pipeline{
		extractor:  cfg.Extractor,
		sink:       cfg.Sink,
		archiver:   cfg.Archiver,
		resolver:   cfg.Resolver,
		outputDir:  cfg.OutputDir,
		archiveDir: cfg.ArchiveDir,
	}
	if p.extractor == nil {
		p.extractor = dicom.NewFileExtractor()
	}
	if p.sink == nil {
		p.sink = report.FileSink{}
	}
	if p.archiver == nil {
		p.archiver = report.DirArchiver{}
	}
	if p.resolver == nil {
		p.resolver = AutoAbortResolver{}
	}
	return p
}

// Run processes one structure/plan pair. Both inputs are archived before
// returning regardless of outcome; archival errors are logged but do not
// change the outcome.
func (p *Pipeline) Run(structurePath, planPath string) Outcome {
	outcome := p.process(structurePath, planPath)

	p.archive(structurePath)
	p.archive(planPath)

	switch outcome.Status {
	case StatusWritten:
		slog.Info("pair processed",
			"patient_id", outcome.PatientID,
			"report", outcome.ReportPath,
		)
	case StatusSkipped:
		slog.Warn("pair skipped",
			"patient_id", outcome.PatientID,
			"reason", outcome.Reason,
			"structure_path", structurePath,
			"plan_path", planPath,
		)
	case StatusFailed:
		slog.Error("pair failed",
			"patient_id", outcome.PatientID,
			"error", outcome.Err,
			"structure_path", structurePath,
			"plan_path", planPath,
		)
	}
	return outcome
}

func (p *Pipeline) process(structurePath, planPath string) Outcome {
	structure, err := p.extractor.Parse(structurePath)
	if err != nil {
		return Outcome{Status: StatusFailed, Err: fmt.Errorf("parse structure: %w", err)}
	}
	plan, err := p.extractor.Parse(planPath)
	if err != nil {
		return Outcome{Status: StatusFailed, Err: fmt.Errorf("parse plan: %w", err)}
	}

	if structure.Kind != dicom.KindStructure {
		return Outcome{Status: StatusSkipped, Reason: fmt.Sprintf("%s is not a structure record", structurePath)}
	}
	if plan.Kind != dicom.KindPlan {
		return Outcome{Status: StatusSkipped, Reason: fmt.Sprintf("%s is not a plan record", planPath)}
	}

	outcome := Outcome{PatientID: structure.PatientID}
	if structure.PatientID != plan.PatientID {
		outcome.Status = StatusSkipped
		outcome.Reason = fmt.Sprintf("patient ID mismatch: structure %q, plan %q",
			structure.PatientID, plan.PatientID)
		return outcome
	}

	lines, ok := p.matchRegions(structure)
	if !ok {
		outcome.Status = StatusSkipped
		outcome.Reason = "no matching regions found"
		return outcome
	}

	summary := report.Summary{
		PatientID:   structure.PatientID,
		PatientName: structure.DisplayName(),
		Regions:     lines,
		BeamNames:   plan.BeamNames(),
	}
	if iso, found := plan.Isocenter(); found {
		summary.Isocenter = &iso
	} else {
		slog.Warn("no isocenter in plan", "path", planPath, "patient_id", plan.PatientID)
	}

	outcome.ReportPath = report.OutputPath(p.outputDir, summary)
	if err := p.sink.Write(outcome.ReportPath, report.Render(summary)); err != nil {
		// Archival still proceeds; the inputs must not pile up in the
		// watched directory behind a full disk.
		outcome.Status = StatusFailed
		outcome.Err = fmt.Errorf("write report: %w", err)
		return outcome
	}

	outcome.Status = StatusWritten
	return outcome
}

func (p *Pipeline) archive(path string) {
	if err := p.archiver.Move(path, p.archiveDir); err != nil {
		slog.Error("archive failed", "path", path, "archive_dir", p.archiveDir, "error", err)
		return
	}
	slog.Debug("archived input", "path", path, "archive_dir", p.archiveDir)
}
