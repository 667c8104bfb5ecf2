package providers

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ApexGov/inspector/pkg/common"
)

var (
	ErrMissingAPIKey = errors.New("API key is required")
	ErrMissingModel  = errors.New("model is required")
	ErrMissingImage  = errors.New("image is required")
	ErrEmptyResponse = errors.New("no completions returned")
)

func FormatInstructions(instr []string) string {
	if len(instr) == 0 {
		return "[Instructions]\n"
	}

	var b strings.Builder
	b.WriteString("[Instructions]\n")
	for _, rule := range instr {
		if strings.TrimSpace(rule) == "" {
			continue
		}
		b.WriteString("- ")
		b.WriteString(rule)
		b.WriteByte('\n')
	}
	return b.String()
}

// UserText joins the formatted instructions and the prompt text.
func UserText(config *Config, prompt *VisionPrompt) string {
	if len(config.Instructions) == 0 {
		return prompt.Text
	}
	return FormatInstructions(config.Instructions) + "\n" + prompt.Text
}

// StripCodeFence removes a surrounding markdown fence such as ```json ... ```.
func StripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	if nl := strings.IndexByte(text, '\n'); nl >= 0 && !strings.ContainsAny(text[:nl], "{[") {
		text = text[nl+1:]
	} else {
		text = strings.TrimPrefix(text, "json")
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}

func DataURL(mimeType string, data []byte) string {
	return fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data))
}

func ValidatePrompt(prompt *VisionPrompt) error {
	if prompt == nil || len(prompt.Image) == 0 {
		return ErrMissingImage
	}
	if prompt.MIMEType == "" {
		return fmt.Errorf("%w: mime type is missing", ErrMissingImage)
	}
	return nil
}

// ResponseID prefers the trace id carried by the request context.
func ResponseID(ctx context.Context, provider string) string {
	if traceID, ok := ctx.Value(common.TraceIdKey).(string); ok && traceID != "" {
		return fmt.Sprintf("%s-%s", provider, traceID)
	}
	return fmt.Sprintf("%s-%d", provider, time.Now().UnixNano())
}
