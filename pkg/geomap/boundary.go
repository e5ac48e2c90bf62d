package geomap

import "github.com/rs/zerolog/log"

// VertexBuffer is a flat list of line-segment vertices, three floats per
// vertex (x, y, z=0) and two vertices per segment.
type VertexBuffer []float32

const vertexStride = 3

// Segments returns the number of line segments in the buffer.
func (b VertexBuffer) Segments() int {
	return len(b) / (2 * vertexStride)
}

// Segment returns the two endpoints of segment i.
func (b VertexBuffer) Segment(i int) (PlanePoint, PlanePoint) {
	off := i * 2 * vertexStride
	a := PlanePoint{X: float64(b[off]), Y: float64(b[off+1])}
	c := PlanePoint{X: float64(b[off+3]), Y: float64(b[off+4])}
	return a, c
}

// BuildBoundary projects every ring and emits one segment per pair of
// consecutive vertices. Rings are not closed back to their first point and
// ring boundaries are implicit in the pairing. A non-finite vertex breaks the
// ring: no segment is emitted to or from it.
func BuildBoundary(rings [][]GeoPoint) VertexBuffer {
	total := 0
	for _, ring := range rings {
		if len(ring) > 1 {
			total += len(ring) - 1
		}
	}
	out := make(VertexBuffer, 0, total*2*vertexStride)

	skipped := 0
	for _, ring := range rings {
		var prev PlanePoint
		havePrev := false
		for _, gp := range ring {
			if !gp.Finite() {
				skipped++
				havePrev = false
				continue
			}
			p := Project(gp)
			if havePrev {
				out = append(out,
					float32(prev.X), float32(prev.Y), 0,
					float32(p.X), float32(p.Y), 0,
				)
			}
			prev, havePrev = p, true
		}
	}
	if skipped > 0 {
		log.Warn().Str("component", "boundary").Int("skipped", skipped).Msg("Skipped non-finite boundary vertices")
	}
	return out
}
