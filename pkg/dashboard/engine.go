package dashboard

import (
	"bytes"
	"image/color"
	"strings"
	"sync/atomic"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"github.com/rs/zerolog/log"
	"github.com/sudorandom/georisk/pkg/geomap"
	"github.com/sudorandom/georisk/pkg/snapshot"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
)

const (
	// MarkerRadius is the marker radius in plane units at scale 1.
	MarkerRadius  = 0.02
	MarkerOpacity = 0.9

	glowOpacity = 0.22
	glowScale   = 1.002

	markerTextureSize = 64
)

// Engine draws the dashboard. Update and Draw never wait on the network;
// they only read the pool and the display under their short locks.
type Engine struct {
	Width, Height   int
	FrameCaptureDir string
	// TickerSpeed is how far the ticker moves per update, in pixels.
	TickerSpeed float64
	// Done, when closed, ends the game loop.
	Done <-chan struct{}

	viewport geomap.Viewport
	pool     *geomap.Pool
	display  *Display
	animator *Animator

	bgImage      *ebiten.Image
	outlineImage *ebiten.Image
	markerImage  *ebiten.Image
	fontSource   *text.GoTextFaceSource
	monoSource   *text.GoTextFaceSource

	frame     Frame
	view      DisplayView
	ticker    tickerState
	instances [geomap.NumCategories][]geomap.Instance

	capturePending atomic.Bool
}

func NewEngine(width, height int, pool *geomap.Pool, display *Display, animator *Animator) *Engine {
	s, err := text.NewGoTextFaceSource(bytes.NewReader(goregular.TTF))
	if err != nil {
		log.Warn().Err(err).Str("component", "engine").Msg("Failed to load regular font")
	}
	m, err := text.NewGoTextFaceSource(bytes.NewReader(gomono.TTF))
	if err != nil {
		log.Warn().Err(err).Str("component", "engine").Msg("Failed to load mono font")
	}

	e := &Engine{
		Width:       width,
		Height:      height,
		TickerSpeed: 2,
		viewport:    geomap.NewViewport(width, height),
		pool:        pool,
		display:     display,
		animator:    animator,
		fontSource:  s,
		monoSource:  m,
	}
	for _, c := range geomap.Categories {
		e.instances[c] = make([]geomap.Instance, 0, pool.Capacity(c))
	}
	if e.Width > 2000 {
		e.TickerSpeed = 4
	}
	return e
}

// LoadData rasterizes the grid and the world outline and builds the marker
// texture. It must run before the game loop starts drawing.
func (e *Engine) LoadData(boundary geomap.VertexBuffer) {
	e.bgImage = ebiten.NewImageFromImage(rasterizeBackground(e.viewport))
	e.outlineImage = ebiten.NewImageFromImage(rasterizeOutline(e.viewport, boundary))
	e.markerImage = ebiten.NewImage(markerTextureSize, markerTextureSize)
	e.markerImage.WritePixels(discPixels(markerTextureSize))
	log.Info().Str("component", "engine").Int("segments", boundary.Segments()).Msg("World outline rasterized")
}

// RequestCapture asks for the next drawn frame to be written to
// FrameCaptureDir. It is safe to call from any goroutine.
func (e *Engine) RequestCapture(*snapshot.Snapshot) {
	if e.FrameCaptureDir != "" {
		e.capturePending.Store(true)
	}
}

func (e *Engine) Update() error {
	select {
	case <-e.Done:
		return ebiten.Termination
	default:
	}

	e.frame = e.animator.Step(time.Now())
	e.view = e.display.View()

	left, right := e.tickerBounds()
	e.ticker.step(e.view.Version, left, right, e.TickerSpeed, func() float64 {
		if e.fontSource == nil {
			return 0
		}
		w, _ := text.Measure(e.view.Ticker, &text.GoTextFace{Source: e.fontSource, Size: e.fontSize()}, 0)
		return w
	})
	return nil
}

func (e *Engine) Draw(screen *ebiten.Image) {
	if e.bgImage != nil {
		screen.DrawImage(e.bgImage, nil)
	}
	e.drawOutline(screen)
	e.drawMarkers(screen)
	e.drawMarkets(screen)
	e.drawTicker(screen)

	if e.capturePending.CompareAndSwap(true, false) {
		e.captureFrame(screen, "snapshot", time.Now())
	}
}

func (e *Engine) Layout(w, h int) (int, int) { return e.Width, e.Height }

func (e *Engine) drawOutline(screen *ebiten.Image) {
	if e.outlineImage == nil {
		return
	}
	cx, cy := float64(e.Width)/2, float64(e.Height)/2

	glow := &ebiten.DrawImageOptions{}
	glow.GeoM.Translate(-cx, -cy)
	glow.GeoM.Scale(glowScale, glowScale)
	glow.GeoM.Translate(cx, cy)
	glow.ColorScale.ScaleAlpha(glowOpacity)
	glow.Filter = ebiten.FilterLinear
	screen.DrawImage(e.outlineImage, glow)

	op := &ebiten.DrawImageOptions{}
	op.ColorScale.ScaleAlpha(float32(e.frame.OutlineOpacity))
	screen.DrawImage(e.outlineImage, op)
}

func (e *Engine) drawMarkers(screen *ebiten.Image) {
	if e.markerImage == nil {
		return
	}
	ppu := e.viewport.PixelsPerUnit()
	half := float64(markerTextureSize) / 2
	op := &ebiten.DrawImageOptions{}
	op.Filter = ebiten.FilterLinear

	for i := range e.instances {
		e.instances[i] = e.instances[i][:0]
	}
	e.pool.AppendAll(&e.instances)

	for _, c := range geomap.Categories {
		col := CategoryColors[c]
		r, g, b := float64(col.R)/255.0, float64(col.G)/255.0, float64(col.B)/255.0
		for _, inst := range e.instances[c] {
			if !inst.Active || inst.Scale <= 0 {
				continue
			}
			x, y := e.viewport.ToScreen(geomap.PlanePoint{X: inst.X, Y: inst.Y})
			scale := MarkerRadius * inst.Scale * ppu / half
			op.GeoM.Reset()
			op.GeoM.Translate(-half, -half)
			op.GeoM.Scale(scale, scale)
			op.GeoM.Translate(x, y)
			op.ColorScale.Reset()
			op.ColorScale.Scale(float32(r*MarkerOpacity), float32(g*MarkerOpacity), float32(b*MarkerOpacity), MarkerOpacity)
			screen.DrawImage(e.markerImage, op)
		}
	}
}

func (e *Engine) fontSize() float64 {
	if e.Width > 2000 {
		return 36
	}
	return 18
}

func (e *Engine) margin() float64 {
	if e.Width > 2000 {
		return 80
	}
	return 40
}

func (e *Engine) tickerBarHeight() float64 { return e.fontSize() * 2.4 }

// tickerBounds is the horizontal strip the headline text scrolls through,
// to the right of the clock.
func (e *Engine) tickerBounds() (left, right float64) {
	left = e.margin()
	if e.monoSource != nil && e.frame.Clock != "" {
		w, _ := text.Measure(e.frame.Clock, &text.GoTextFace{Source: e.monoSource, Size: e.fontSize() * 0.9}, 0)
		left += w + e.fontSize()*1.5
	}
	return left, float64(e.Width) - e.margin()
}

func (e *Engine) drawMarkets(screen *ebiten.Image) {
	if e.fontSource == nil || len(e.view.Pills) == 0 {
		return
	}
	fontSize := e.fontSize()
	face := &text.GoTextFace{Source: e.fontSource, Size: fontSize}
	pad := fontSize * 0.6
	x, y := e.margin(), e.margin()

	for _, p := range e.view.Pills {
		key, rest := p.Key+" ", p.Value+" "+p.Unit
		kw, _ := text.Measure(key, face, 0)
		rw, _ := text.Measure(rest, face, 0)
		boxW, boxH := kw+rw+2*pad, fontSize+2*pad

		vector.DrawFilledRect(screen, float32(x), float32(y), float32(boxW), float32(boxH), color.RGBA{0, 0, 0, 140}, false)
		vector.StrokeRect(screen, float32(x), float32(y), float32(boxW), float32(boxH), 1, color.RGBA{36, 42, 53, 255}, false)

		kop := &text.DrawOptions{}
		kop.GeoM.Translate(x+pad, y+pad)
		kop.ColorScale.ScaleWithColor(ColorNews)
		text.Draw(screen, key, face, kop)

		vop := &text.DrawOptions{}
		vop.GeoM.Translate(x+pad+kw, y+pad)
		vop.ColorScale.Scale(1, 1, 1, 0.9)
		text.Draw(screen, rest, face, vop)

		x += boxW + pad
	}
}

func (e *Engine) drawTicker(screen *ebiten.Image) {
	barH := e.tickerBarHeight()
	barY := float64(e.Height) - barH
	vector.DrawFilledRect(screen, 0, float32(barY), float32(e.Width), float32(barH), color.RGBA{0, 0, 0, 200}, false)
	vector.StrokeLine(screen, 0, float32(barY), float32(e.Width), float32(barY), 1, color.RGBA{0x66, 0xff, 0xee, 80}, false)

	fontSize := e.fontSize()
	textY := barY + (barH-fontSize)/2

	if e.monoSource != nil && e.frame.Clock != "" {
		cop := &text.DrawOptions{}
		cop.GeoM.Translate(e.margin(), textY)
		cop.ColorScale.Scale(1, 1, 1, 0.7)
		text.Draw(screen, e.frame.Clock, &text.GoTextFace{Source: e.monoSource, Size: fontSize * 0.9}, cop)
	}

	if e.fontSource == nil || strings.TrimSpace(e.view.Ticker) == "" {
		return
	}
	left, right := e.tickerBounds()
	if right <= left {
		return
	}
	clip := screen.SubImage(rectFrom(left, barY, right, barY+barH)).(*ebiten.Image)
	top := &text.DrawOptions{}
	top.GeoM.Translate(e.ticker.x, textY)
	top.ColorScale.Scale(1, 1, 1, 0.9)
	text.Draw(clip, e.view.Ticker, &text.GoTextFace{Source: e.fontSource, Size: fontSize}, top)
}

// tickerState scrolls the headline text from the right edge to the left and
// restarts it whenever the text changes.
type tickerState struct {
	version uint64
	started bool
	x       float64
	width   float64
}

func (s *tickerState) step(version uint64, left, right, speed float64, measure func() float64) {
	if !s.started || version != s.version {
		s.version, s.started = version, true
		s.width = measure()
		s.x = right
		return
	}
	s.x -= speed
	if s.x+s.width < left {
		s.x = right
	}
}
