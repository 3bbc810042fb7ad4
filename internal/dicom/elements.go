package dicom

import (
	"strconv"
	"strings"

	dcm "github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"

	"github.com/krm/centroidd/internal/geometry"
)

// Tags are spelled out rather than looked up in the dictionary so the set
// of fields this service reads is visible in one place.
var (
	tagModality            = tag.Tag{Group: 0x0008, Element: 0x0060}
	tagPatientName         = tag.Tag{Group: 0x0010, Element: 0x0010}
	tagPatientID           = tag.Tag{Group: 0x0010, Element: 0x0020}
	tagStructureSetROISeq  = tag.Tag{Group: 0x3006, Element: 0x0020}
	tagROINumber           = tag.Tag{Group: 0x3006, Element: 0x0022}
	tagROIName             = tag.Tag{Group: 0x3006, Element: 0x0026}
	tagROIContourSeq       = tag.Tag{Group: 0x3006, Element: 0x0039}
	tagContourSeq          = tag.Tag{Group: 0x3006, Element: 0x0040}
	tagContourData         = tag.Tag{Group: 0x3006, Element: 0x0050}
	tagReferencedROINumber = tag.Tag{Group: 0x3006, Element: 0x0084}
	tagBeamSeq             = tag.Tag{Group: 0x300A, Element: 0x00B0}
	tagBeamName            = tag.Tag{Group: 0x300A, Element: 0x00C2}
	tagControlPointSeq     = tag.Tag{Group: 0x300A, Element: 0x0111}
	tagIsocenterPosition   = tag.Tag{Group: 0x300A, Element: 0x012C}
)

// sequenceItems flattens an SQ element into per-item element slices.
func sequenceItems(el *dcm.Element) [][]*dcm.Element {
	if el == nil {
		return nil
	}
	items, ok := el.Value.GetValue().([]*dcm.SequenceItemValue)
	if !ok {
		return nil
	}
	out := make([][]*dcm.Element, 0, len(items))
	for _, item := range items {
		if els, ok := item.GetValue().([]*dcm.Element); ok {
			out = append(out, els)
		}
	}
	return out
}

// itemElement finds a tag inside one sequence item.
func itemElement(els []*dcm.Element, t tag.Tag) *dcm.Element {
	for _, e := range els {
		if e.Tag == t {
			return e
		}
	}
	return nil
}

func stringValue(ds *dcm.Dataset, t tag.Tag) (string, bool) {
	el, err := ds.FindElementByTag(t)
	if err != nil {
		return "", false
	}
	return elementString(el)
}

func elementString(el *dcm.Element) (string, bool) {
	if el == nil {
		return "", false
	}
	vals, ok := el.Value.GetValue().([]string)
	if !ok || len(vals) == 0 {
		return "", false
	}
	return strings.TrimSpace(vals[0]), true
}

// intValue reads an IS element; the parser surfaces those either as ints
// or as decimal strings depending on the transfer syntax path.
func intValue(el *dcm.Element) (int, bool) {
	if el == nil {
		return 0, false
	}
	switch v := el.Value.GetValue().(type) {
	case []int:
		if len(v) > 0 {
			return v[0], true
		}
	case []string:
		if len(v) > 0 {
			n, err := strconv.Atoi(strings.TrimSpace(v[0]))
			if err == nil {
				return n, true
			}
		}
	}
	return 0, false
}

// floatValues reads a DS element as float64s.
func floatValues(el *dcm.Element) []float64 {
	if el == nil {
		return nil
	}
	switch v := el.Value.GetValue().(type) {
	case []float64:
		return v
	case []string:
		out := make([]float64, 0, len(v))
		for _, s := range v {
			f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
			if err != nil {
				return nil
			}
			out = append(out, f)
		}
		return out
	}
	return nil
}

// contourPoints decodes ContourData, a flat x/y/z triplet list in mm.
// A trailing partial triplet is discarded.
func contourPoints(el *dcm.Element) []geometry.Point3 {
	vals := floatValues(el)
	points := make([]geometry.Point3, 0, len(vals)/3)
	for i := 0; i+2 < len(vals); i += 3 {
		points = append(points, geometry.Point3{X: vals[i], Y: vals[i+1], Z: vals[i+2]})
	}
	return points
}

// floatTriple decodes a 3-component DS element such as IsocenterPosition.
func floatTriple(el *dcm.Element) *geometry.Point3 {
	vals := floatValues(el)
	if len(vals) != 3 {
		return nil
	}
	return &geometry.Point3{X: vals[0], Y: vals[1], Z: vals[2]}
}
