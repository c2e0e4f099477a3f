package debug

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"time"

	"github.com/HugoSmits86/nativewebp"
)

// ScreenshotCapture writes viewport captures as lossless WebP files.
type ScreenshotCapture struct {
	outputDir string
	prefix    string
	now       func() time.Time
}

// NewScreenshotCapture creates a capture handler writing prefix_<timestamp>.webp into outputDir.
func NewScreenshotCapture(outputDir, prefix string) *ScreenshotCapture {
	return &ScreenshotCapture{
		outputDir: outputDir,
		prefix:    prefix,
		now:       time.Now,
	}
}

// FlipRGBA converts bottom-up RGBA rows, as read back from OpenGL, to an image.
func FlipRGBA(pixels []byte, width, height int) (*image.RGBA, error) {
	if width <= 0 || height <= 0 || len(pixels) != width*height*4 {
		return nil, fmt.Errorf("pixel data size mismatch: expected %d, got %d", width*height*4, len(pixels))
	}
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	rowSize := width * 4
	for y := 0; y < height; y++ {
		src := (height - 1 - y) * rowSize
		dst := y * img.Stride
		copy(img.Pix[dst:dst+rowSize], pixels[src:src+rowSize])
	}
	return img, nil
}

// CaptureFromPixels flips and saves raw framebuffer pixels.
func (sc *ScreenshotCapture) CaptureFromPixels(pixels []byte, width, height int) (string, error) {
	img, err := FlipRGBA(pixels, width, height)
	if err != nil {
		return "", err
	}
	return sc.CaptureFromImage(img)
}

// CaptureFromImage saves img and returns the file name.
func (sc *ScreenshotCapture) CaptureFromImage(img image.Image) (string, error) {
	if sc.outputDir != "" {
		if err := os.MkdirAll(sc.outputDir, 0o755); err != nil {
			return "", fmt.Errorf("creating output dir: %w", err)
		}
	}
	filename := sc.GenerateFilename()
	f, err := os.Create(filename)
	if err != nil {
		return "", fmt.Errorf("creating file: %w", err)
	}
	defer f.Close()

	if err := nativewebp.Encode(f, img, nil); err != nil {
		return "", fmt.Errorf("encoding webp: %w", err)
	}
	return filename, nil
}

// GenerateFilename returns the next file name without saving.
func (sc *ScreenshotCapture) GenerateFilename() string {
	name := fmt.Sprintf("%s_%s.webp", sc.prefix, sc.now().Format("2006-01-02_15-04-05.000"))
	if sc.outputDir != "" {
		name = filepath.Join(sc.outputDir, name)
	}
	return name
}
