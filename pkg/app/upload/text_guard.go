package upload

import (
	"strings"
	"unicode"

	"github.com/ApexGov/inspector/pkg/infra/ocr"
	"github.com/arbovm/levenshtein"
	"github.com/sirupsen/logrus"
)

const fuzzyWordMinLength = 6

//go:generate mockery --name=Guard --dir=. --output=./mocks --filename=upload_guard_mock.go --case=underscore --with-expecter
type Guard interface {
	Check(image []byte) error
}

// TextGuard rejects images whose visible text reads like a prompt injection.
type TextGuard struct {
	engine ocr.Engine
	logger *logrus.Logger
}

func NewTextGuard(engine ocr.Engine, logger *logrus.Logger) *TextGuard {
	return &TextGuard{engine: engine, logger: logger}
}

// Check fails open when OCR itself fails.
func (g *TextGuard) Check(image []byte) error {
	text, err := g.engine.Text(image)
	if err != nil {
		g.logger.WithError(err).Warn("ocr failed, skipping text guard")
		return nil
	}
	if pattern, ok := MatchSuspiciousText(text); ok {
		g.logger.WithField("pattern", pattern).Warn("suspicious text found in image")
		return NewValidationError(MsgSuspiciousText)
	}
	return nil
}

// MatchSuspiciousText matches phrases as substrings and single words with a
// Levenshtein distance of at most one, for words long enough to make that safe.
func MatchSuspiciousText(text string) (string, bool) {
	lower := strings.ToLower(text)
	words := strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	for _, pattern := range SuspiciousPatterns {
		if strings.Contains(lower, pattern) {
			return pattern, true
		}
		if strings.Contains(pattern, " ") || len(pattern) < fuzzyWordMinLength {
			continue
		}
		for _, word := range words {
			if len(word) >= fuzzyWordMinLength && levenshtein.Distance(word, pattern) <= 1 {
				return pattern, true
			}
		}
	}
	return "", false
}
