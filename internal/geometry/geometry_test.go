package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCentroid_SinglePoint(t *testing.T) {
	c, ok := Centroid([]Point3{{X: 1.5, Y: -2, Z: 3}})
	require.True(t, ok)
	assert.Equal(t, Point3{X: 1.5, Y: -2, Z: 3}, c)
}

func TestCentroid_Mean(t *testing.T) {
	tests := []struct {
		name   string
		points []Point3
		want   Point3
	}{
		{
			name:   "two points on x axis",
			points: []Point3{{X: 0}, {X: 10}},
			want:   Point3{X: 5},
		},
		{
			name:   "symmetric cube corners cancel",
			points: []Point3{{X: 1, Y: 1, Z: 1}, {X: -1, Y: -1, Z: -1}},
			want:   Point3{},
		},
		{
			name:   "three points",
			points: []Point3{{X: 0, Y: 0, Z: 0}, {X: 3, Y: 6, Z: 9}, {X: 3, Y: 0, Z: 0}},
			want:   Point3{X: 2, Y: 2, Z: 3},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Centroid(tt.points)
			require.True(t, ok)
			assert.InDelta(t, tt.want.X, got.X, 1e-12)
			assert.InDelta(t, tt.want.Y, got.Y, 1e-12)
			assert.InDelta(t, tt.want.Z, got.Z, 1e-12)
		})
	}
}

func TestCentroid_Empty(t *testing.T) {
	_, ok := Centroid(nil)
	assert.False(t, ok)
}

func TestMMToCM(t *testing.T) {
	assert.Equal(t, 0.5, MMToCM(5))
	assert.Equal(t, -12.34, MMToCM(-123.4))
	assert.Equal(t, 0.0, MMToCM(0))
}

func TestFormatCM(t *testing.T) {
	assert.Equal(t, "X= 0.50, Y= 0.00, Z= 0.00", FormatCM(Point3{X: 5}))
	assert.Equal(t, "X= -1.23, Y= 4.57, Z= 0.00", FormatCM(Point3{X: -12.3, Y: 45.67}))
}

func TestFormatCM_RoundingBoundary(t *testing.T) {
	// 0.05 mm -> 0.005 cm sits on the half boundary; %.2f rounds the
	// float64 representation, which for this value lands on 0.01.
	assert.Equal(t, "X= 0.01, Y= 0.00, Z= 0.00", FormatCM(Point3{X: 0.05}))
	// 0.25 cm is exactly representable; half-to-even keeps 0.25 -> "0.25".
	assert.Equal(t, "X= 0.25, Y= 0.00, Z= 0.00", FormatCM(Point3{X: 2.5}))
}
