package analysis

import (
	"bytes"
	"image"
	"image/jpeg"
	_ "image/png"
	"log"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	maxDimension = 1024
	jpegQuality  = 85
)

// NormalizeImage re-encodes an uploaded image for analysis: alpha and
// palette images are flattened to full color, both dimensions are bounded
// to 1024px preserving aspect ratio (never upscaled), and the result is
// JPEG at quality 85. Normalization never fails the pipeline: if the input
// cannot be decoded or re-encoded, the original bytes pass through.
func NormalizeImage(data []byte) []byte {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		log.Printf("Image preprocessing error: %v", err)
		return data
	}

	bounds := img.Bounds()
	width, height := fitWithin(bounds.Dx(), bounds.Dy(), maxDimension)

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	// White base flattens any alpha channel the same way a convert-to-RGB
	// pass would.
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: jpegQuality}); err != nil {
		log.Printf("Image preprocessing error: %v", err)
		return data
	}
	return buf.Bytes()
}

// fitWithin scales (w, h) down so neither side exceeds max, keeping the
// aspect ratio. Smaller images keep their size.
func fitWithin(w, h, max int) (int, int) {
	if w <= max && h <= max {
		return w, h
	}
	if w >= h {
		scaled := h * max / w
		if scaled < 1 {
			scaled = 1
		}
		return max, scaled
	}
	scaled := w * max / h
	if scaled < 1 {
		scaled = 1
	}
	return scaled, max
}
