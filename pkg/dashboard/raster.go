package dashboard

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/sudorandom/georisk/pkg/geomap"
)

var (
	ColorBackground = color.RGBA{0, 0, 0, 255}
	ColorNews       = color.RGBA{0x66, 0xff, 0xee, 255}
	ColorFlight     = color.RGBA{0xff, 0x46, 0xbe, 255}
	ColorShip       = color.RGBA{0xff, 0x46, 0x46, 255}

	// CategoryColors is indexed by geomap.Category.
	CategoryColors = [geomap.NumCategories]color.RGBA{ColorNews, ColorFlight, ColorShip}
)

const (
	gridSize      = 8.0
	gridDivisions = 60
	gridOpacity   = 0.06
)

// rasterizeBackground paints the plane grid over a black background.
func rasterizeBackground(vp geomap.Viewport) *image.RGBA {
	w, h := vp.Size()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{ColorBackground}, image.Point{}, draw.Src)

	c := blendOver(ColorNews, ColorBackground, gridOpacity)
	half := gridSize / 2
	step := gridSize / gridDivisions
	for i := 0; i <= gridDivisions; i++ {
		v := -half + float64(i)*step
		drawPlaneLine(img, vp, geomap.PlanePoint{X: v, Y: -half}, geomap.PlanePoint{X: v, Y: half}, c)
		drawPlaneLine(img, vp, geomap.PlanePoint{X: -half, Y: v}, geomap.PlanePoint{X: half, Y: v}, c)
	}
	return img
}

// rasterizeOutline draws every boundary segment in the outline color on a
// transparent image. Opacity is applied when the image is drawn.
func rasterizeOutline(vp geomap.Viewport, buf geomap.VertexBuffer) *image.RGBA {
	w, h := vp.Size()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < buf.Segments(); i++ {
		a, b := buf.Segment(i)
		drawPlaneLine(img, vp, a, b, ColorNews)
	}
	return img
}

func drawPlaneLine(img *image.RGBA, vp geomap.Viewport, a, b geomap.PlanePoint, c color.RGBA) {
	x1, y1 := vp.ToScreen(a)
	x2, y2 := vp.ToScreen(b)
	w, h := vp.Size()
	// Skip segments far outside the image; Bresenham would walk every pixel.
	limit := 4 * float64(max(w, h))
	for _, v := range []float64{x1, y1, x2, y2} {
		if math.Abs(v) > limit {
			return
		}
	}
	drawLineFast(img, int(math.Round(x1)), int(math.Round(y1)), int(math.Round(x2)), int(math.Round(y2)), c)
}

func drawLineFast(img *image.RGBA, x1, y1, x2, y2 int, c color.RGBA) {
	width, height := img.Bounds().Dx(), img.Bounds().Dy()
	dx, dy := math.Abs(float64(x2-x1)), math.Abs(float64(y2-y1))
	sx, sy := -1, -1
	if x1 < x2 {
		sx = 1
	}
	if y1 < y2 {
		sy = 1
	}
	err := dx - dy
	for {
		if x1 >= 0 && x1 < width && y1 >= 0 && y1 < height {
			off := y1*img.Stride + x1*4
			img.Pix[off], img.Pix[off+1], img.Pix[off+2], img.Pix[off+3] = c.R, c.G, c.B, c.A
		}
		if x1 == x2 && y1 == y2 {
			break
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x1 += sx
		}
		if e2 < dx {
			err += dx
			y1 += sy
		}
	}
}

func blendOver(fg, bg color.RGBA, alpha float64) color.RGBA {
	mix := func(f, b uint8) uint8 {
		return uint8(math.Round(float64(f)*alpha + float64(b)*(1-alpha)))
	}
	return color.RGBA{mix(fg.R, bg.R), mix(fg.G, bg.G), mix(fg.B, bg.B), 255}
}

// discPixels is a white filled disc with a one pixel soft edge, as RGBA bytes.
func discPixels(size int) []byte {
	pixels := make([]byte, size*size*4)
	center, radius := float64(size)/2.0, float64(size)/2.0
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			dx, dy := float64(x)+0.5-center, float64(y)+0.5-center
			dist := math.Sqrt(dx*dx + dy*dy)
			val := math.Max(0, math.Min(1, radius-dist))
			a := uint8(val * 255)
			off := (y*size + x) * 4
			// premultiplied
			pixels[off], pixels[off+1], pixels[off+2], pixels[off+3] = a, a, a, a
		}
	}
	return pixels
}
