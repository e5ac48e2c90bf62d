package geomap

// ViewHeight is the plane height visible on screen. The world spans 1.8 of
// it, leaving a margin above and below for the ticker and market readout.
const ViewHeight = 2.2

// Viewport is an orthographic camera centered on the plane origin that
// converts plane units into screen pixels.
type Viewport struct {
	width, height int
	viewW, viewH  float64
	ppu           float64
}

func NewViewport(width, height int) Viewport {
	if width <= 0 {
		width = 1
	}
	if height <= 0 {
		height = 1
	}
	aspect := float64(width) / float64(height)
	return Viewport{
		width:  width,
		height: height,
		viewW:  ViewHeight * aspect,
		viewH:  ViewHeight,
		ppu:    float64(height) / ViewHeight,
	}
}

// ToScreen returns pixel coordinates with (0, 0) at the top-left corner.
func (v Viewport) ToScreen(p PlanePoint) (x, y float64) {
	x = (p.X + v.viewW/2) * v.ppu
	y = (v.viewH/2 - p.Y) * v.ppu
	return x, y
}

// PixelsPerUnit is the number of screen pixels covering one plane unit.
func (v Viewport) PixelsPerUnit() float64 { return v.ppu }

func (v Viewport) Size() (int, int) { return v.width, v.height }
