package anthropic

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync"

	"github.com/ApexGov/inspector/pkg/infra/providers"
	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const (
	DefaultModel     = "claude-3-5-haiku-latest"
	defaultMaxTokens = 2048
)

type client struct {
	clientPool *sync.Map
	opts       []option.RequestOption
}

func NewAnthropicClient(opts ...option.RequestOption) providers.Client {
	return &client{
		clientPool: &sync.Map{},
		opts:       opts,
	}
}

func (c *client) Analyze(
	ctx context.Context,
	config *providers.Config,
	prompt *providers.VisionPrompt,
) (*providers.CompletionResponse, error) {
	if config.Credentials.ApiKey == "" {
		return nil, providers.ErrMissingAPIKey
	}
	if err := providers.ValidatePrompt(prompt); err != nil {
		return nil, err
	}

	anthropicClient := c.getOrCreateClient(config.Credentials.ApiKey)

	model := anthropic.Model(DefaultModel)
	if config.Model != "" {
		model = anthropic.Model(config.Model)
	}
	maxTokens := int64(defaultMaxTokens)
	if config.MaxTokens > 0 {
		maxTokens = int64(config.MaxTokens)
	}

	params := anthropic.MessageNewParams{
		Model:     model,
		MaxTokens: maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(
				anthropic.NewImageBlockBase64(prompt.MIMEType, base64.StdEncoding.EncodeToString(prompt.Image)),
				anthropic.NewTextBlock(providers.UserText(config, prompt)),
			),
		},
	}
	if config.SystemPrompt != "" {
		params.System = []anthropic.TextBlockParam{
			{
				Text: config.SystemPrompt,
				Type: "text",
			},
		}
	}
	if config.Temperature > 0 {
		params.Temperature = anthropic.Float(config.Temperature)
	}
	if config.TopP > 0 {
		params.TopP = anthropic.Float(config.TopP)
	}

	message, err := anthropicClient.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic request failed: %w", err)
	}

	var responseText string
	for _, content := range message.Content {
		if content.Type == "text" {
			responseText = content.Text
			break
		}
	}
	if responseText == "" {
		return nil, providers.ErrEmptyResponse
	}

	return &providers.CompletionResponse{
		ID:       message.ID,
		Model:    string(model),
		Response: providers.StripCodeFence(responseText),
		Usage: providers.Usage{
			PromptTokens:     int(message.Usage.InputTokens),
			CompletionTokens: int(message.Usage.OutputTokens),
			TotalTokens:      int(message.Usage.InputTokens + message.Usage.OutputTokens),
		},
	}, nil
}

func (c *client) getOrCreateClient(apiKey string) anthropic.Client {
	if clientVal, ok := c.clientPool.Load(apiKey); ok {
		if cli, ok := clientVal.(anthropic.Client); ok {
			return cli
		}
	}
	newClient := anthropic.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, c.opts...)...)
	actual, _ := c.clientPool.LoadOrStore(apiKey, newClient)
	if cli, ok := actual.(anthropic.Client); ok {
		return cli
	}
	return newClient
}
