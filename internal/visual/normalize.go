package visual

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"math"

	"golang.org/x/image/draw"
)

// Normalized is the re-encoded form of an extracted image.
type Normalized struct {
	Data   []byte // Encoded bytes
	Format string // "jpeg" or "png"
	Width  int    // Pixel width after normalization
	Height int    // Pixel height after normalization
}

// Normalizer re-encodes extracted images into JPEG or PNG, flattens
// transparency onto a white background, and downscales oversized images
// while preserving aspect ratio.
type Normalizer struct {
	MaxDimension int // Either dimension above this triggers a downscale
	JPEGQuality  int // Quality for JPEG re-encoding
}

// NewNormalizer creates a normalizer with the given limits.
func NewNormalizer(maxDimension, jpegQuality int) *Normalizer {
	return &Normalizer{MaxDimension: maxDimension, JPEGQuality: jpegQuality}
}

// Above this source pixel count the cheaper scaler is used to bound
// resampling cost on very large images.
const fastScaleArea = 4 << 20

// Normalize decodes an image and re-encodes it for storage. Opaque PNG input
// stays PNG; everything else becomes JPEG. Returns an error only when the
// data cannot be decoded or encoded at all.
func (n *Normalizer) Normalize(data []byte) (*Normalized, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}

	opaque := isOpaque(img)
	if !opaque {
		img = flattenOnWhite(img)
	}
	img = n.downscale(img)

	bounds := img.Bounds()
	out := &Normalized{Width: bounds.Dx(), Height: bounds.Dy()}

	var buf bytes.Buffer
	if format == "png" && opaque {
		if err := png.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("encoding png: %w", err)
		}
		out.Data = buf.Bytes()
		out.Format = "png"
		return out, nil
	}

	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: n.JPEGQuality}); err != nil {
		buf.Reset()
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 70}); err != nil {
			return nil, fmt.Errorf("encoding jpeg: %w", err)
		}
	}
	out.Data = buf.Bytes()
	out.Format = "jpeg"
	return out, nil
}

// Dimensions returns the pixel size of an encoded image without a full decode.
func Dimensions(data []byte) (int, int, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, err
	}
	return cfg.Width, cfg.Height, nil
}

func isOpaque(img image.Image) bool {
	if o, ok := img.(interface{ Opaque() bool }); ok {
		return o.Opaque()
	}
	return false
}

// flattenOnWhite composites the image over a white background, discarding
// any alpha channel.
func flattenOnWhite(img image.Image) image.Image {
	bounds := img.Bounds()
	canvas := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(canvas, canvas.Bounds(), img, bounds.Min, draw.Over)
	return canvas
}

// downscale shrinks images whose either dimension exceeds MaxDimension,
// preserving aspect ratio. Small images pass through untouched.
func (n *Normalizer) downscale(img image.Image) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= n.MaxDimension && h <= n.MaxDimension {
		return img
	}

	ratio := math.Min(float64(n.MaxDimension)/float64(w), float64(n.MaxDimension)/float64(h))
	newW := int(float64(w) * ratio)
	newH := int(float64(h) * ratio)
	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}

	var scaler draw.Scaler = draw.CatmullRom
	if w*h > fastScaleArea {
		scaler = draw.ApproxBiLinear
	}

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	scaler.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}
