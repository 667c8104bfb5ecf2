package ocr

import (
	"fmt"

	"github.com/otiai10/gosseract/v2"
)

//go:generate mockery --name=Engine --dir=. --output=./mocks --filename=ocr_engine_mock.go --case=underscore --with-expecter
type Engine interface {
	Text(image []byte) (string, error)
}

type tesseract struct {
	languages []string
}

// NewTesseract needs libtesseract at runtime. A gosseract client is built per
// call and never shared between goroutines.
func NewTesseract(languages ...string) Engine {
	if len(languages) == 0 {
		languages = []string{"eng"}
	}
	return &tesseract{languages: languages}
}

func (t *tesseract) Text(image []byte) (string, error) {
	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(t.languages...); err != nil {
		return "", fmt.Errorf("failed to set ocr language: %w", err)
	}
	if err := client.SetImageFromBytes(image); err != nil {
		return "", fmt.Errorf("failed to load image for ocr: %w", err)
	}
	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("ocr failed: %w", err)
	}
	return text, nil
}
