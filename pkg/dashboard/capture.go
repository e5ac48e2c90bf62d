package dashboard

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/rs/zerolog/log"
)

func rectFrom(x0, y0, x1, y1 float64) image.Rectangle {
	return image.Rect(int(x0), int(y0), int(x1+0.5), int(y1+0.5))
}

func captureName(suffix string, timestamp time.Time) string {
	return fmt.Sprintf("georisk-%s-%s.png", timestamp.Format("20060102-150405"), suffix)
}

// captureFrame copies img to the CPU and writes it as a PNG in the
// background so the render loop is not held up by disk I/O.
func (e *Engine) captureFrame(img *ebiten.Image, suffix string, timestamp time.Time) {
	if e.FrameCaptureDir == "" {
		return
	}

	bounds := img.Bounds()
	rgba := image.NewRGBA(bounds)
	img.ReadPixels(rgba.Pix)

	go func() {
		if err := writePNG(e.FrameCaptureDir, captureName(suffix, timestamp), rgba); err != nil {
			log.Warn().Err(err).Str("component", "capture").Msg("Frame capture failed")
		}
	}()
}

func writePNG(dir, name string, img image.Image) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create capture directory: %w", err)
	}
	path := filepath.Join(dir, name)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create capture file: %w", err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			log.Warn().Err(err).Str("component", "capture").Msg("Error closing capture file")
		}
	}()

	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("encode capture: %w", err)
	}
	log.Info().Str("component", "capture").Str("path", path).Msg("Captured frame")
	return nil
}
