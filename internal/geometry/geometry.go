// Package geometry provides the small amount of 3D math the pipeline needs:
// centroids of contour point sets and millimeter→centimeter presentation.
//
// Everything here is pure. Stored measurements stay in millimeters (the
// DICOM patient coordinate unit); conversion to centimeters happens only
// when a value is rendered.
package geometry

import "fmt"

// Point3 is a position in the DICOM patient coordinate system, in millimeters.
type Point3 struct {
	X, Y, Z float64
}

// Centroid returns the coordinate-wise arithmetic mean of points.
//
// Returns (Point3{}, false) for an empty set. For a single point the
// centroid is that point.
func Centroid(points []Point3) (Point3, bool) {
	if len(points) == 0 {
		return Point3{}, false
	}

	var sum Point3
	for _, p := range points {
		sum.X += p.X
		sum.Y += p.Y
		sum.Z += p.Z
	}

	n := float64(len(points))
	return Point3{X: sum.X / n, Y: sum.Y / n, Z: sum.Z / n}, true
}

// MMToCM converts a millimeter value to centimeters.
func MMToCM(mm float64) float64 {
	return mm / 10.0
}

// FormatCM renders a millimeter point as the report's fixed-format
// centimeter triple: "X= <v>, Y= <v>, Z= <v>" with two decimals.
//
// Rounding is Go's %.2f behavior (round half to even at the boundary);
// the report format pins this, see the package tests.
func FormatCM(p Point3) string {
	return fmt.Sprintf("X= %.2f, Y= %.2f, Z= %.2f",
		MMToCM(p.X), MMToCM(p.Y), MMToCM(p.Z))
}
