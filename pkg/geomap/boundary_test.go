package geomap

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildBoundarySegments(t *testing.T) {
	ring := []GeoPoint{{0, 0}, {10, 0}, {10, 10}, {0, 10}}

	buf := BuildBoundary([][]GeoPoint{ring})

	require.Equal(t, 3, buf.Segments())
	assert.Len(t, buf, 3*2*3)

	for i := 0; i < 3; i++ {
		a, b := buf.Segment(i)
		assertNear(t, Project(ring[i]), a)
		assertNear(t, Project(ring[i+1]), b)
	}
}

func TestBuildBoundaryEmpty(t *testing.T) {
	assert.Equal(t, 0, BuildBoundary(nil).Segments())
	assert.Equal(t, 0, BuildBoundary([][]GeoPoint{{}}).Segments())
	assert.Equal(t, 0, BuildBoundary([][]GeoPoint{{{5, 5}}}).Segments())
}

func TestBuildBoundaryRingsIndependent(t *testing.T) {
	a := []GeoPoint{{0, 0}, {1, 1}, {2, 2}}
	b := []GeoPoint{{50, 50}, {60, 60}}

	buf := BuildBoundary([][]GeoPoint{a, b})

	require.Equal(t, 3, buf.Segments())
	// No segment joins the last vertex of ring a to the first of ring b.
	for i := 0; i < buf.Segments(); i++ {
		from, to := buf.Segment(i)
		if near(from, Project(a[2])) {
			t.Fatalf("segment %d starts at the end of ring a and ends at %+v", i, to)
		}
	}
	third, _ := buf.Segment(2)
	assertNear(t, Project(b[0]), third)
}

func TestBuildBoundarySplitsAtNonFinite(t *testing.T) {
	ring := []GeoPoint{{0, 0}, {1, 0}, {math.NaN(), 0}, {2, 0}, {3, 0}}

	buf := BuildBoundary([][]GeoPoint{ring})

	require.Equal(t, 2, buf.Segments())
	for _, v := range buf {
		assert.False(t, math.IsNaN(float64(v)))
	}
}

func TestBuildBoundaryZ(t *testing.T) {
	buf := BuildBoundary([][]GeoPoint{{{0, 0}, {90, 45}}})
	require.Len(t, buf, 6)
	assert.Zero(t, buf[2])
	assert.Zero(t, buf[5])
}

func near(a, b PlanePoint) bool {
	return math.Abs(a.X-b.X) < 1e-6 && math.Abs(a.Y-b.Y) < 1e-6
}

func assertNear(t *testing.T, want, got PlanePoint) {
	t.Helper()
	if !near(want, got) {
		t.Errorf("got %+v; want %+v", got, want)
	}
}
