// Package dicom extracts the fields this service needs from RTSTRUCT and
// RTPLAN files: record kind, patient identity, named contour regions with
// their 3D point sets, and beam isocenters.
//
// Parsing is delegated to github.com/suyashkumar/dicom. The free-form
// Modality tag is converted to the closed Kind enum here, at the boundary;
// nothing downstream re-inspects modality strings.
package dicom

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	dcm "github.com/suyashkumar/dicom"

	"github.com/krm/centroidd/internal/geometry"
)

// Kind classifies a parsed record.
type Kind int

const (
	// KindUnknown marks a readable DICOM file of a modality this
	// service does not handle. Unknown records are dropped upstream.
	KindUnknown Kind = iota
	// KindStructure is an RTSTRUCT record.
	KindStructure
	// KindPlan is an RTPLAN record.
	KindPlan
)

func (k Kind) String() string {
	switch k {
	case KindStructure:
		return "structure"
	case KindPlan:
		return "plan"
	default:
		return "unknown"
	}
}

// ErrorClass categorizes extraction failures.
type ErrorClass string

const (
	// ClassNotFound means the file disappeared before it could be read.
	ClassNotFound ErrorClass = "not_found"
	// ClassMalformed means the bytes could not be parsed as DICOM.
	ClassMalformed ErrorClass = "malformed"
	// ClassInvalid means the file parsed but lacks required fields.
	ClassInvalid ErrorClass = "invalid"
)

// ParseError reports why a file could not be extracted.
type ParseError struct {
	Path  string
	Class ErrorClass
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Class, e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Region is a named contour set from an RTSTRUCT record. Points are the
// concatenation of all contour items for the region, in millimeters.
type Region struct {
	Name   string
	Points []geometry.Point3
}

// Beam is one entry of an RTPLAN beam sequence.
type Beam struct {
	Name string
	// Isocenter is the first isocenter position found in the beam's
	// control point sequence, nil if the beam declares none.
	Isocenter *geometry.Point3
}

// Record is the extracted view of one RTSTRUCT or RTPLAN file.
type Record struct {
	Kind        Kind
	PatientID   string
	PatientName string // raw PN value, caret separators preserved
	Regions     []Region
	Beams       []Beam
}

// DisplayName renders the patient name with DICOM caret separators
// replaced by commas, matching the report format.
func (r *Record) DisplayName() string {
	return strings.ReplaceAll(r.PatientName, "^", ",")
}

// Isocenter returns the first isocenter position across the beam list in
// declared order.
func (r *Record) Isocenter() (geometry.Point3, bool) {
	for _, b := range r.Beams {
		if b.Isocenter != nil {
			return *b.Isocenter, true
		}
	}
	return geometry.Point3{}, false
}

// BeamNames returns the beam display names in declared order.
func (r *Record) BeamNames() []string {
	names := make([]string, 0, len(r.Beams))
	for _, b := range r.Beams {
		names = append(names, b.Name)
	}
	return names
}

// Extractor parses a file into a Record.
type Extractor interface {
	Parse(path string) (*Record, error)
}

// FileExtractor is the suyashkumar/dicom backed Extractor.
type FileExtractor struct{}

// NewFileExtractor returns the production extractor.
func NewFileExtractor() *FileExtractor { return &FileExtractor{} }

// Parse reads the file and extracts kind, identity, regions and beams.
// Failures are reported as *ParseError.
func (x *FileExtractor) Parse(path string) (*Record, error) {
	ds, err := dcm.ParseFile(path, nil, dcm.SkipPixelData())
	if err != nil {
		class := ClassMalformed
		if errors.Is(err, fs.ErrNotExist) {
			class = ClassNotFound
		}
		return nil, &ParseError{Path: path, Class: class, Err: err}
	}

	modality, ok := stringValue(&ds, tagModality)
	if !ok {
		return nil, &ParseError{Path: path, Class: ClassInvalid, Err: errors.New("missing Modality")}
	}

	rec := &Record{Kind: kindFromModality(modality)}
	rec.PatientID, _ = stringValue(&ds, tagPatientID)
	rec.PatientName, _ = stringValue(&ds, tagPatientName)

	switch rec.Kind {
	case KindStructure:
		rec.Regions = extractRegions(&ds)
	case KindPlan:
		rec.Beams = extractBeams(&ds)
	}

	return rec, nil
}

func kindFromModality(modality string) Kind {
	switch strings.ToUpper(strings.TrimSpace(modality)) {
	case "RTSTRUCT":
		return KindStructure
	case "RTPLAN":
		return KindPlan
	default:
		return KindUnknown
	}
}

// extractRegions joins StructureSetROISequence (number -> name, declared
// order) with ROIContourSequence (number -> contour data). Regions with no
// contour data are kept with an empty point set so diagnostics can list
// them; the pipeline skips empty regions.
func extractRegions(ds *dcm.Dataset) []Region {
	type roi struct {
		number int
		name   string
	}

	var rois []roi
	if el, err := ds.FindElementByTag(tagStructureSetROISeq); err == nil {
		for _, item := range sequenceItems(el) {
			num, ok := intValue(itemElement(item, tagROINumber))
			if !ok {
				continue
			}
			name, ok := elementString(itemElement(item, tagROIName))
			if !ok {
				continue
			}
			rois = append(rois, roi{number: num, name: name})
		}
	}

	points := map[int][]geometry.Point3{}
	if el, err := ds.FindElementByTag(tagROIContourSeq); err == nil {
		for _, item := range sequenceItems(el) {
			num, ok := intValue(itemElement(item, tagReferencedROINumber))
			if !ok {
				continue
			}
			contours := itemElement(item, tagContourSeq)
			if contours == nil {
				continue
			}
			for _, contour := range sequenceItems(contours) {
				data := itemElement(contour, tagContourData)
				points[num] = append(points[num], contourPoints(data)...)
			}
		}
	}

	regions := make([]Region, 0, len(rois))
	for _, r := range rois {
		regions = append(regions, Region{Name: r.name, Points: points[r.number]})
	}
	return regions
}

func extractBeams(ds *dcm.Dataset) []Beam {
	el, err := ds.FindElementByTag(tagBeamSeq)
	if err != nil {
		return nil
	}

	var beams []Beam
	for _, item := range sequenceItems(el) {
		beam := Beam{}
		beam.Name, _ = elementString(itemElement(item, tagBeamName))

		if cps := itemElement(item, tagControlPointSeq); cps != nil {
			for _, cp := range sequenceItems(cps) {
				iso := floatTriple(itemElement(cp, tagIsocenterPosition))
				if iso != nil {
					beam.Isocenter = iso
					break
				}
			}
		}
		beams = append(beams, beam)
	}
	return beams
}
