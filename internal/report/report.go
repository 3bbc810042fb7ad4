// Package report renders centroid summaries into the fixed text artifact
// the downstream monitoring system ingests, and owns the two filesystem
// collaborators around it: the overwriting report sink and the archive
// mover.
package report

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/krm/centroidd/internal/geometry"
)

// Line is one matched region's rendered measurement.
type Line struct {
	Label string
	// Position is the region centroid in millimeters; conversion to
	// centimeters happens at render time only.
	Position geometry.Point3
}

// Summary is everything the artifact displays.
type Summary struct {
	PatientID   string
	PatientName string
	Regions     []Line
	// Isocenter is nil when the plan declared none; the artifact then
	// carries an explicit "not found" line rather than omitting it.
	Isocenter *geometry.Point3
	// BeamNames drive the output path; only the first two are used.
	BeamNames []string
}

// Render produces the artifact text. The format is consumed by an
// external system and is byte-exact:
//
//	line 1: patient ID
//	line 2: patient display name
//	one line per region: "<Label>, X= <v>, Y= <v>, Z= <v>" in cm
//	final line: isocenter in cm, or "No isocenter data found."
func Render(s Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", s.PatientID)
	fmt.Fprintf(&b, "%s\n", s.PatientName)
	for _, line := range s.Regions {
		fmt.Fprintf(&b, "%s, %s\n", line.Label, geometry.FormatCM(line.Position))
	}
	if s.Isocenter != nil {
		fmt.Fprintf(&b, "Isocenter (cm), %s\n", geometry.FormatCM(*s.Isocenter))
	} else {
		b.WriteString("No isocenter data found.\n")
	}
	return b.String()
}

// OutputPath returns the deterministic artifact location under outputDir:
//
//	<outputDir>/<pid>_BeamID_<b1>_<b2>/Centroid_<pid>_BeamID_<b1>_<b2>.txt
//
// falling back to the patient ID alone when fewer than two beam names
// exist.
func OutputPath(outputDir string, s Summary) string {
	base := s.PatientID
	if len(s.BeamNames) >= 2 {
		base = fmt.Sprintf("%s_BeamID_%s_%s", s.PatientID, s.BeamNames[0], s.BeamNames[1])
	}
	return filepath.Join(outputDir, base, fmt.Sprintf("Centroid_%s.txt", base))
}
