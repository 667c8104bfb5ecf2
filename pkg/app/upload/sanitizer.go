package upload

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// Sanitizer re-encodes uploads so no EXIF or other metadata survives.
//
//go:generate mockery --name=Sanitizer --dir=. --output=./mocks --filename=upload_sanitizer_mock.go --case=underscore --with-expecter
type Sanitizer interface {
	// Sanitize returns a JPEG no wider than the configured width.
	Sanitize(data []byte) ([]byte, error)
}

type sanitizer struct {
	maxWidth  int
	quality   int
	maxPixels int
}

// NewSanitizer builds a Sanitizer. maxPixels caps width*height as declared
// in the image header; zero disables the cap.
func NewSanitizer(maxWidth, quality, maxPixels int) Sanitizer {
	return &sanitizer{maxWidth: maxWidth, quality: quality, maxPixels: maxPixels}
}

func (s *sanitizer) Sanitize(data []byte) ([]byte, error) {
	header, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, &ValidationError{Message: MsgUndecodable, cause: err}
	}
	if s.maxPixels > 0 && int64(header.Width)*int64(header.Height) > int64(s.maxPixels) {
		return nil, NewValidationError(MsgImageTooLarge)
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &ValidationError{Message: MsgUndecodable, cause: err}
	}

	bounds := src.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if s.maxWidth > 0 && width > s.maxWidth {
		height = height * s.maxWidth / width
		if height < 1 {
			height = 1
		}
		width = s.maxWidth
	}

	// Drawing onto a fresh RGBA drops everything but pixels. JPEG has no
	// alpha, so transparent areas land on white.
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)

	var out bytes.Buffer
	if err := jpeg.Encode(&out, dst, &jpeg.Options{Quality: s.quality}); err != nil {
		return nil, fmt.Errorf("failed to encode sanitized image: %w", err)
	}
	return out.Bytes(), nil
}
