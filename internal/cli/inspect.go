package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/krm/centroidd/internal/dicom"
	"github.com/krm/centroidd/internal/geometry"
)

// InspectOptions holds flags for the inspect command.
type InspectOptions struct {
	*RootOptions
}

// NewInspectCommand creates the inspect command: a diagnostic dump of one
// file's kind, identity and structure/beam inventory.
func NewInspectCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InspectOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "inspect <file.dcm>",
		Short: "Show a DICOM file's kind, identity and inventory",
		Long: `Parse one file and list what the pairing pipeline would see: record
kind, patient identity, region names with point counts (structures), and
beams with isocenter presence (plans).

Example:
  centroidd inspect ./RS.1.2.dcm
  centroidd inspect ./RP.1.2.dcm --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(opts, args[0], cmd)
		},
	}

	return cmd
}

type inspectRegion struct {
	Name   string `json:"name"`
	Points int    `json:"points"`
}

type inspectBeam struct {
	Name      string           `json:"name"`
	Isocenter *geometry.Point3 `json:"isocenter_mm,omitempty"`
}

type inspectResult struct {
	Path        string          `json:"path"`
	Kind        string          `json:"kind"`
	PatientID   string          `json:"patient_id"`
	PatientName string          `json:"patient_name"`
	Regions     []inspectRegion `json:"regions,omitempty"`
	Beams       []inspectBeam   `json:"beams,omitempty"`
}

func (r inspectResult) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", r.Path)
	fmt.Fprintf(&b, "  kind:    %s\n", r.Kind)
	fmt.Fprintf(&b, "  patient: %s (%s)\n", r.PatientID, r.PatientName)
	for _, region := range r.Regions {
		fmt.Fprintf(&b, "  region:  %s (%d points)\n", region.Name, region.Points)
	}
	for _, beam := range r.Beams {
		if beam.Isocenter != nil {
			fmt.Fprintf(&b, "  beam:    %s (isocenter %s)\n", beam.Name, geometry.FormatCM(*beam.Isocenter))
		} else {
			fmt.Fprintf(&b, "  beam:    %s (no isocenter)\n", beam.Name)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func runInspect(opts *InspectOptions, path string, cmd *cobra.Command) error {
	rec, err := dicom.NewFileExtractor().Parse(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to parse file", err)
	}

	result := inspectResult{
		Path:        path,
		Kind:        rec.Kind.String(),
		PatientID:   rec.PatientID,
		PatientName: rec.DisplayName(),
	}
	for _, region := range rec.Regions {
		result.Regions = append(result.Regions, inspectRegion{Name: region.Name, Points: len(region.Points)})
	}
	for _, beam := range rec.Beams {
		result.Beams = append(result.Beams, inspectBeam{Name: beam.Name, Isocenter: beam.Isocenter})
	}

	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	return formatter.Success(result)
}
