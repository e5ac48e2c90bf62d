package dashboard

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sudorandom/georisk/pkg/geomap"
)

func countColor(img *image.RGBA, c color.RGBA) int {
	n := 0
	for y := 0; y < img.Bounds().Dy(); y++ {
		for x := 0; x < img.Bounds().Dx(); x++ {
			if img.RGBAAt(x, y) == c {
				n++
			}
		}
	}
	return n
}

func TestDrawLineFast(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 10, 10))
	red := color.RGBA{255, 0, 0, 255}

	drawLineFast(img, 2, 5, 7, 5, red)
	assert.Equal(t, 6, countColor(img, red))
	assert.Equal(t, red, img.RGBAAt(2, 5))
	assert.Equal(t, red, img.RGBAAt(7, 5))

	// Pixels outside the image are clipped.
	img = image.NewRGBA(image.Rect(0, 0, 10, 10))
	drawLineFast(img, -5, 0, 4, 9, red)
	assert.Equal(t, red, img.RGBAAt(4, 9))
	assert.Equal(t, color.RGBA{}, img.RGBAAt(9, 0))
}

func TestRasterizeOutline(t *testing.T) {
	vp := geomap.NewViewport(220, 110)
	buf := geomap.BuildBoundary([][]geomap.GeoPoint{{{Lon: -90, Lat: 0}, {Lon: 90, Lat: 0}}})

	img := rasterizeOutline(vp, buf)

	cx, cy := vp.ToScreen(geomap.PlanePoint{})
	assert.Equal(t, ColorNews, img.RGBAAt(int(cx), int(cy)))
	assert.Equal(t, color.RGBA{}, img.RGBAAt(int(cx), int(cy)-10))
	assert.Greater(t, countColor(img, ColorNews), 10)
}

func TestRasterizeOutlineSkipsRunawaySegments(t *testing.T) {
	vp := geomap.NewViewport(100, 50)
	buf := geomap.BuildBoundary([][]geomap.GeoPoint{{{Lon: 0, Lat: 0}, {Lon: 1e9, Lat: 0}}})
	img := rasterizeOutline(vp, buf)
	assert.Equal(t, 0, countColor(img, ColorNews))
}

func TestRasterizeBackground(t *testing.T) {
	vp := geomap.NewViewport(200, 100)
	img := rasterizeBackground(vp)

	grid := blendOver(ColorNews, ColorBackground, gridOpacity)
	assert.Equal(t, color.RGBA{6, 15, 14, 255}, grid)
	assert.Greater(t, countColor(img, grid), 0)
	assert.Greater(t, countColor(img, ColorBackground), 0)
}

func TestDiscPixels(t *testing.T) {
	const size = 16
	px := discPixels(size)
	require.Len(t, px, size*size*4)

	at := func(x, y int) byte { return px[(y*size+x)*4+3] }
	assert.Equal(t, byte(255), at(size/2, size/2))
	assert.Equal(t, byte(0), at(0, 0))
	assert.Equal(t, byte(0), at(size-1, size-1))
}

func TestTickerState(t *testing.T) {
	var s tickerState
	measured := 0
	measure := func() float64 { measured++; return 50 }

	s.step(1, 0, 100, 10, measure)
	assert.Equal(t, 100.0, s.x)

	for range 15 {
		s.step(1, 0, 100, 10, measure)
	}
	// 100 - 15*10 = -50, the text's right edge is exactly at the left bound.
	assert.Equal(t, -50.0, s.x)

	s.step(1, 0, 100, 10, measure)
	assert.Equal(t, 100.0, s.x, "wraps once fully scrolled out")
	assert.Equal(t, 1, measured)

	s.step(1, 0, 100, 10, measure)
	s.step(2, 0, 100, 10, measure)
	assert.Equal(t, 100.0, s.x, "new text restarts at the right edge")
	assert.Equal(t, 2, measured)
}

func TestWritePNG(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "frames")
	img := image.NewRGBA(image.Rect(0, 0, 4, 3))
	img.Set(1, 1, ColorShip)

	name := captureName("snapshot", time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC))
	assert.Equal(t, "georisk-20260203-040506-snapshot.png", name)
	require.NoError(t, writePNG(dir, name, img))

	f, err := os.Open(filepath.Join(dir, name))
	require.NoError(t, err)
	defer f.Close()
	decoded, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 4, 3), decoded.Bounds())
	r, g, b, _ := decoded.At(1, 1).RGBA()
	assert.Equal(t, [3]uint32{0xffff, 0x4646, 0x4646}, [3]uint32{r, g, b})
}
