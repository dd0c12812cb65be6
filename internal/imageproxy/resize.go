package imageproxy

import (
	"bytes"
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// MaxResizeWidth caps the ?w= parameter.
const MaxResizeWidth = 1600

// MaxResizePixels bounds the decoded size of images the proxy will scale.
// Larger images are served as fetched.
const MaxResizePixels = 40_000_000

var errNotResizable = errors.New("image format cannot be resized")

// resize scales an encoded image down to width pixels, keeping the aspect
// ratio and the source format. Images already narrower than width are
// returned untouched.
// The header is checked before decoding so a tiny file declaring huge
// dimensions never reaches the pixel allocation.
func resize(data []byte, width int) ([]byte, string, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", errNotResizable, err)
	}
	target, err := imaging.FormatFromExtension(format)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %s", errNotResizable, format)
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxResizePixels {
		return nil, "", fmt.Errorf("%w: %dx%d exceeds pixel limit", errNotResizable, cfg.Width, cfg.Height)
	}
	if cfg.Width <= width {
		return data, "image/" + format, nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", errNotResizable, err)
	}

	resized := imaging.Resize(img, width, 0, imaging.Lanczos)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, target, imaging.JPEGQuality(jpegQuality)); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), "image/" + format, nil
}

const jpegQuality = 85
