package pipeline

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krm/centroidd/internal/dicom"
	"github.com/krm/centroidd/internal/geometry"
)

// fakeExtractor serves canned records by path.
type fakeExtractor struct {
	records map[string]*dicom.Record
	errs    map[string]error
}

func (f *fakeExtractor) Parse(path string) (*dicom.Record, error) {
	if err, ok := f.errs[path]; ok {
		return nil, err
	}
	rec, ok := f.records[path]
	if !ok {
		return nil, &dicom.ParseError{Path: path, Class: dicom.ClassNotFound, Err: errors.New("no such record")}
	}
	return rec, nil
}

// memorySink captures writes; optionally fails.
type memorySink struct {
	writes map[string]string
	err    error
}

func (s *memorySink) Write(path, content string) error {
	if s.err != nil {
		return s.err
	}
	if s.writes == nil {
		s.writes = map[string]string{}
	}
	s.writes[path] = content
	return nil
}

// memoryArchiver records moved paths.
type memoryArchiver struct {
	moved []string
}

func (a *memoryArchiver) Move(src, destDir string) error {
	a.moved = append(a.moved, src)
	return nil
}

func structureRecord(patientID string, regions ...dicom.Region) *dicom.Record {
	return &dicom.Record{
		Kind:        dicom.KindStructure,
		PatientID:   patientID,
		PatientName: "Doe^Jane",
		Regions:     regions,
	}
}

func planRecord(patientID string, iso *geometry.Point3, beams ...string) *dicom.Record {
	rec := &dicom.Record{Kind: dicom.KindPlan, PatientID: patientID}
	for i, name := range beams {
		b := dicom.Beam{Name: name}
		if i == 0 {
			b.Isocenter = iso
		}
		rec.Beams = append(rec.Beams, b)
	}
	return rec
}

func newTestPipeline(x *fakeExtractor, sink *memorySink, arch *memoryArchiver) *Pipeline {
	return New(Config{
		Extractor:  x,
		Sink:       sink,
		Archiver:   arch,
		OutputDir:  "out",
		ArchiveDir: "backup",
	})
}

func TestRun_EndToEnd(t *testing.T) {
	iso := geometry.Point3{X: 5, Y: 5, Z: 5}
	x := &fakeExtractor{records: map[string]*dicom.Record{
		"s.dcm": structureRecord("P1",
			dicom.Region{Name: "seed1", Points: []geometry.Point3{{}, {X: 10}}},
			dicom.Region{Name: "seed2", Points: []geometry.Point3{{Y: 10}}},
		),
		"p.dcm": planRecord("P1", &iso, "01", "02"),
	}}
	sink := &memorySink{}
	arch := &memoryArchiver{}

	outcome := newTestPipeline(x, sink, arch).Run("s.dcm", "p.dcm")

	require.Equal(t, StatusWritten, outcome.Status)
	assert.Equal(t, "P1", outcome.PatientID)

	content := sink.writes[outcome.ReportPath]
	assert.Equal(t, "P1\nDoe,Jane\n"+
		"Seed1, X= 0.50, Y= 0.00, Z= 0.00\n"+
		"Seed2, X= 0.00, Y= 1.00, Z= 0.00\n"+
		"Isocenter (cm), X= 0.50, Y= 0.50, Z= 0.50\n",
		content)
	assert.Contains(t, outcome.ReportPath, "P1_BeamID_01_02")
	assert.Equal(t, []string{"s.dcm", "p.dcm"}, arch.moved)
}

func TestRun_CaseInsensitiveRegionMatch(t *testing.T) {
	tests := []string{"Seed1", "SEED 1", " seed1 ", "AU2"}
	for _, name := range tests {
		t.Run(name, func(t *testing.T) {
			x := &fakeExtractor{records: map[string]*dicom.Record{
				"s.dcm": structureRecord("P1",
					dicom.Region{Name: name, Points: []geometry.Point3{{X: 1}}},
				),
				"p.dcm": planRecord("P1", nil),
			}}
			sink := &memorySink{}
			outcome := newTestPipeline(x, sink, &memoryArchiver{}).Run("s.dcm", "p.dcm")
			assert.Equal(t, StatusWritten, outcome.Status, "region %q must match a candidate", name)
		})
	}
}

func TestRun_IdentityMismatchSkippedButArchived(t *testing.T) {
	x := &fakeExtractor{records: map[string]*dicom.Record{
		"s.dcm": structureRecord("P1", dicom.Region{Name: "seed1", Points: []geometry.Point3{{X: 1}}}),
		"p.dcm": planRecord("P2", nil),
	}}
	sink := &memorySink{}
	arch := &memoryArchiver{}

	outcome := newTestPipeline(x, sink, arch).Run("s.dcm", "p.dcm")

	require.Equal(t, StatusSkipped, outcome.Status)
	assert.Contains(t, outcome.Reason, "patient ID mismatch")
	assert.Empty(t, sink.writes, "no report on mismatch")
	// Chosen policy: mismatched inputs are archived anyway so the
	// watched directory drains.
	assert.Equal(t, []string{"s.dcm", "p.dcm"}, arch.moved)
}

func TestRun_NoMatchingRegionsSkippedByDefault(t *testing.T) {
	x := &fakeExtractor{records: map[string]*dicom.Record{
		"s.dcm": structureRecord("P1", dicom.Region{Name: "bladder", Points: []geometry.Point3{{X: 1}}}),
		"p.dcm": planRecord("P1", nil),
	}}
	sink := &memorySink{}

	outcome := newTestPipeline(x, sink, &memoryArchiver{}).Run("s.dcm", "p.dcm")

	require.Equal(t, StatusSkipped, outcome.Status)
	assert.Equal(t, "no matching regions found", outcome.Reason)
	assert.Empty(t, sink.writes)
}

type pickResolver struct {
	picked []string
}

func (r pickResolver) Resolve(available []string) ([]string, bool) {
	return r.picked, true
}

func TestRun_ResolverRescuesZeroMatches(t *testing.T) {
	x := &fakeExtractor{records: map[string]*dicom.Record{
		"s.dcm": structureRecord("P1", dicom.Region{Name: "Marker A", Points: []geometry.Point3{{X: 10}}}),
		"p.dcm": planRecord("P1", nil),
	}}
	sink := &memorySink{}
	p := New(Config{
		Extractor:  x,
		Sink:       sink,
		Archiver:   &memoryArchiver{},
		Resolver:   pickResolver{picked: []string{"marker a"}},
		OutputDir:  "out",
		ArchiveDir: "backup",
	})

	outcome := p.Run("s.dcm", "p.dcm")

	require.Equal(t, StatusWritten, outcome.Status)
	assert.Contains(t, sink.writes[outcome.ReportPath], "Marker A, X= 1.00, Y= 0.00, Z= 0.00\n")
}

func TestRun_MatchedRegionWithoutPointsDoesNotCount(t *testing.T) {
	x := &fakeExtractor{records: map[string]*dicom.Record{
		"s.dcm": structureRecord("P1", dicom.Region{Name: "seed1"}),
		"p.dcm": planRecord("P1", nil),
	}}

	outcome := newTestPipeline(x, &memorySink{}, &memoryArchiver{}).Run("s.dcm", "p.dcm")
	assert.Equal(t, StatusSkipped, outcome.Status)
}

func TestRun_MissingIsocenterStillWritten(t *testing.T) {
	x := &fakeExtractor{records: map[string]*dicom.Record{
		"s.dcm": structureRecord("P1", dicom.Region{Name: "au1", Points: []geometry.Point3{{Z: 30}}}),
		"p.dcm": planRecord("P1", nil, "01"),
	}}
	sink := &memorySink{}

	outcome := newTestPipeline(x, sink, &memoryArchiver{}).Run("s.dcm", "p.dcm")

	require.Equal(t, StatusWritten, outcome.Status)
	content := sink.writes[outcome.ReportPath]
	assert.Contains(t, content, "Au1, X= 0.00, Y= 0.00, Z= 3.00\n")
	assert.Contains(t, content, "No isocenter data found.\n")
	// Fewer than two beams: path falls back to patient ID alone.
	assert.Contains(t, outcome.ReportPath, "Centroid_P1.txt")
}

func TestRun_WriteFailureStillArchives(t *testing.T) {
	x := &fakeExtractor{records: map[string]*dicom.Record{
		"s.dcm": structureRecord("P1", dicom.Region{Name: "seed1", Points: []geometry.Point3{{X: 1}}}),
		"p.dcm": planRecord("P1", nil),
	}}
	sink := &memorySink{err: errors.New("disk full")}
	arch := &memoryArchiver{}

	outcome := newTestPipeline(x, sink, arch).Run("s.dcm", "p.dcm")

	require.Equal(t, StatusFailed, outcome.Status)
	assert.ErrorContains(t, outcome.Err, "disk full")
	assert.Equal(t, []string{"s.dcm", "p.dcm"}, arch.moved)
}

func TestRun_ParseFailure(t *testing.T) {
	x := &fakeExtractor{
		records: map[string]*dicom.Record{"p.dcm": planRecord("P1", nil)},
		errs:    map[string]error{"s.dcm": &dicom.ParseError{Path: "s.dcm", Class: dicom.ClassMalformed, Err: errors.New("bad preamble")}},
	}

	outcome := newTestPipeline(x, &memorySink{}, &memoryArchiver{}).Run("s.dcm", "p.dcm")

	require.Equal(t, StatusFailed, outcome.Status)
	var perr *dicom.ParseError
	assert.ErrorAs(t, outcome.Err, &perr)
}

func TestRun_SwappedKindsSkipped(t *testing.T) {
	x := &fakeExtractor{records: map[string]*dicom.Record{
		"s.dcm": planRecord("P1", nil),
		"p.dcm": structureRecord("P1"),
	}}

	outcome := newTestPipeline(x, &memorySink{}, &memoryArchiver{}).Run("s.dcm", "p.dcm")

	require.Equal(t, StatusSkipped, outcome.Status)
	assert.Contains(t, outcome.Reason, "not a structure record")
}

func TestCandidateNames(t *testing.T) {
	names := candidateNames()
	assert.Len(t, names, 12)
	assert.Equal(t, "seed1", names[0])
	assert.Contains(t, names, "seed 3")
	assert.Contains(t, names, "au2")
	assert.Contains(t, names, "au 1")
}

func TestDisplayLabel(t *testing.T) {
	assert.Equal(t, "Seed1", displayLabel("seed1"))
	assert.Equal(t, "Au 2", displayLabel("au 2"))
	assert.Equal(t, "", displayLabel(""))
}

func TestCanonicalName(t *testing.T) {
	for _, s := range []string{"Seed1", "SEED1", " seed1 ", "seed1"} {
		assert.Equal(t, "seed1", canonicalName(s), fmt.Sprintf("input %q", s))
	}
}
