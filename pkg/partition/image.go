package partition

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/ledongthuc/pdf"
)

const (
	minImageSide  = 32
	maxImagePixel = 25_000_000
)

var errUnsupportedImage = errors.New("unsupported image encoding")

// isIcon reports images too small to carry content (bullets, rules, logos).
func isIcon(xobj pdf.Value) bool {
	w, h := xobj.Key("Width").Int64(), xobj.Key("Height").Int64()
	return w < minImageSide || h < minImageSide
}

func filterNames(v pdf.Value) []string {
	switch v.Kind() {
	case pdf.Name:
		return []string{v.Name()}
	case pdf.Array:
		names := make([]string, 0, v.Len())
		for i := 0; i < v.Len(); i++ {
			names = append(names, v.Index(i).Name())
		}
		return names
	}
	return nil
}

// components resolves the colour space to a channel count; 0 when unsupported.
func components(cs pdf.Value) int {
	switch cs.Kind() {
	case pdf.Name:
		switch cs.Name() {
		case "DeviceRGB":
			return 3
		case "DeviceGray":
			return 1
		}
	case pdf.Array:
		if cs.Len() > 1 && cs.Index(0).Name() == "ICCBased" {
			n := int(cs.Index(1).Key("N").Int64())
			if n == 1 || n == 3 {
				return n
			}
		}
	}
	return 0
}

// saveImage writes a Flate-compressed 8-bit RGB or gray image XObject as PNG.
// JPEG and other encodings cannot be decoded by the pdf reader and are skipped.
func saveImage(xobj pdf.Value, dir string) (string, error) {
	for _, f := range filterNames(xobj.Key("Filter")) {
		if f != "FlateDecode" {
			return "", fmt.Errorf("%w: filter %s", errUnsupportedImage, f)
		}
	}
	if bpc := xobj.Key("BitsPerComponent").Int64(); bpc != 8 {
		return "", fmt.Errorf("%w: %d bits per component", errUnsupportedImage, bpc)
	}
	n := components(xobj.Key("ColorSpace"))
	if n == 0 {
		return "", fmt.Errorf("%w: colour space", errUnsupportedImage)
	}

	w, h := int(xobj.Key("Width").Int64()), int(xobj.Key("Height").Int64())
	if w <= 0 || h <= 0 || w*h > maxImagePixel {
		return "", fmt.Errorf("%w: %dx%d", errUnsupportedImage, w, h)
	}

	rc := xobj.Reader()
	defer rc.Close()

	raw, err := io.ReadAll(io.LimitReader(rc, int64(w*h*n)))
	if err != nil {
		return "", fmt.Errorf("read image stream: %w", err)
	}

	img, err := decodeRaw(raw, w, h, n)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create image dir: %w", err)
	}
	path := filepath.Join(dir, uuid.NewString()+".png")
	out, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create image file: %w", err)
	}
	defer out.Close()

	if err := png.Encode(out, img); err != nil {
		return "", fmt.Errorf("encode png: %w", err)
	}
	return path, nil
}

func decodeRaw(raw []byte, w, h, n int) (image.Image, error) {
	if len(raw) < w*h*n {
		return nil, fmt.Errorf("%w: short pixel data (%d of %d bytes)", errUnsupportedImage, len(raw), w*h*n)
	}

	if n == 1 {
		img := image.NewGray(image.Rect(0, 0, w, h))
		copy(img.Pix, raw[:w*h])
		return img, nil
	}

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < w*h; i++ {
		img.Set(i%w, i/w, color.RGBA{R: raw[i*3], G: raw[i*3+1], B: raw[i*3+2], A: 0xff})
	}
	return img, nil
}
