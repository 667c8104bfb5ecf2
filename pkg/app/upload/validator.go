package upload

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const (
	MsgUnsupportedType    = "Only JPEG, PNG, and WebP images are allowed"
	MsgSuspiciousFilename = "Suspicious filename detected"
	MsgSuspiciousText     = "Suspicious text detected in image"
	MsgEmptyImage         = "Image is empty"
	MsgUndecodable        = "Image could not be decoded"
	MsgImageTooLarge      = "Image dimensions are too large"
	maxFileNameLength     = 100
)

// SuspiciousPatterns are phrases that mark a prompt-injection attempt.
var SuspiciousPatterns = []string{
	"ignore",
	"previous instructions",
	"system prompt",
	"admin",
	"bypass",
	"override",
}

var allowedTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// ValidationError carries a message that is safe to show to the uploader.
type ValidationError struct {
	Message string
	cause   error
}

func (e *ValidationError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return e.cause
}

func NewValidationError(message string) error {
	return &ValidationError{Message: message}
}

func IsValidationError(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

//go:generate mockery --name=Validator --dir=. --output=./mocks --filename=upload_validator_mock.go --case=underscore --with-expecter
type Validator interface {
	// Validate returns the sniffed MIME type of an acceptable upload.
	Validate(filename string, data []byte) (string, error)
}

type validator struct {
	maxBytes int
}

func NewValidator(maxBytes int) Validator {
	return &validator{maxBytes: maxBytes}
}

func (v *validator) Validate(filename string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", NewValidationError(MsgEmptyImage)
	}
	mime := mimetype.Detect(data)
	if !allowedTypes[mime.String()] {
		return "", NewValidationError(MsgUnsupportedType)
	}
	if len(data) > v.maxBytes {
		return "", NewValidationError(fmt.Sprintf("Image must be less than %s", formatSize(v.maxBytes)))
	}
	if HasSuspiciousPattern(filename) {
		return "", NewValidationError(MsgSuspiciousFilename)
	}
	return mime.String(), nil
}

// formatSize renders a byte cap in the largest whole unit.
func formatSize(n int) string {
	switch {
	case n >= 1<<20 && n%(1<<20) == 0:
		return fmt.Sprintf("%dMB", n>>20)
	case n >= 1<<10 && n%(1<<10) == 0:
		return fmt.Sprintf("%dKB", n>>10)
	default:
		return fmt.Sprintf("%d bytes", n)
	}
}

func HasSuspiciousPattern(text string) bool {
	lower := strings.ToLower(text)
	for _, pattern := range SuspiciousPatterns {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}

var (
	unsafeFileNameChars = regexp.MustCompile(`[^a-zA-Z0-9.-]`)
	repeatedDots        = regexp.MustCompile(`\.{2,}`)
)

// SanitizeFileName keeps [a-zA-Z0-9.-], collapses dot runs and caps the length.
func SanitizeFileName(name string) string {
	name = unsafeFileNameChars.ReplaceAllString(name, "_")
	name = repeatedDots.ReplaceAllString(name, ".")
	if len(name) > maxFileNameLength {
		name = name[:maxFileNameLength]
	}
	return name
}
