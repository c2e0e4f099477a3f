package assets

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"path"
	"strings"

	"github.com/ftrvxmtrx/tga"
	"golang.org/x/image/bmp"
	"golang.org/x/image/webp"

	"github.com/Faultbox/van-studio/internal/scene"
)

type textureCodec struct {
	name   string
	match  func([]byte) bool
	decode func(io.Reader) (image.Image, error)
}

// Formats are picked by signature. TGA has none and is picked by extension
// only; its package registers an empty magic with image.Decode.
var textureCodecs = []textureCodec{
	{"png", prefix("\x89PNG\r\n\x1a\n"), png.Decode},
	{"jpeg", prefix("\xff\xd8"), jpeg.Decode},
	{"webp", func(b []byte) bool {
		return len(b) >= 12 && string(b[:4]) == "RIFF" && string(b[8:12]) == "WEBP"
	}, webp.Decode},
	{"bmp", prefix("BM"), bmp.Decode},
}

func prefix(magic string) func([]byte) bool {
	return func(b []byte) bool { return bytes.HasPrefix(b, []byte(magic)) }
}

// decodeTexture decodes PNG, JPEG, WebP, BMP and TGA images.
func decodeTexture(data []byte, url string) (*scene.Texture, error) {
	format, decode := sniffTexture(data, url)
	if decode == nil {
		return nil, fmt.Errorf("decoding texture: unknown format")
	}
	img, err := decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding %s texture: %w", format, err)
	}
	b := img.Bounds()
	if b.Empty() {
		return nil, fmt.Errorf("empty %s texture", format)
	}
	return &scene.Texture{URL: url, Image: img, Width: b.Dx(), Height: b.Dy()}, nil
}

func sniffTexture(data []byte, url string) (string, func(io.Reader) (image.Image, error)) {
	for _, c := range textureCodecs {
		if c.match(data) {
			return c.name, c.decode
		}
	}
	if strings.EqualFold(path.Ext(stripQuery(url)), ".tga") {
		return "tga", tga.Decode
	}
	return "", nil
}
