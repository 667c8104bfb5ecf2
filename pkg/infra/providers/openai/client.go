package openai

import (
	"context"
	"fmt"
	"sync"

	"github.com/ApexGov/inspector/pkg/infra/providers"
	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"golang.org/x/sync/singleflight"
)

type client struct {
	clientPool *sync.Map
	sf         singleflight.Group
	opts       []option.RequestOption
}

// NewOpenaiClient accepts extra request options, for example a base URL for
// OpenAI compatible gateways.
func NewOpenaiClient(opts ...option.RequestOption) providers.Client {
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
	if config.Model == "" {
		return nil, providers.ErrMissingModel
	}
	if err := providers.ValidatePrompt(prompt); err != nil {
		return nil, err
	}

	openaiClient := c.getOrCreateClient(config.Credentials.ApiKey)

	var messages []openai.ChatCompletionMessageParamUnion
	if config.SystemPrompt != "" {
		messages = append(messages, openai.SystemMessage(config.SystemPrompt))
	}
	messages = append(messages, openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
		openai.TextContentPart(providers.UserText(config, prompt)),
		openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
			URL: providers.DataURL(prompt.MIMEType, prompt.Image),
		}),
	}))

	params := openai.ChatCompletionNewParams{
		Model:    config.Model,
		Messages: messages,
	}
	if config.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(config.MaxTokens))
	}
	if config.Temperature > 0 {
		params.Temperature = openai.Float(config.Temperature)
	}
	if config.TopP > 0 {
		params.TopP = openai.Float(config.TopP)
	}

	resp, err := openaiClient.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("OpenAI request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, providers.ErrEmptyResponse
	}

	return &providers.CompletionResponse{
		ID:       resp.ID,
		Model:    resp.Model,
		Response: providers.StripCodeFence(resp.Choices[0].Message.Content),
		Usage: providers.Usage{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:      int(resp.Usage.TotalTokens),
		},
	}, nil
}

func (c *client) getOrCreateClient(apiKey string) *openai.Client {
	if v, ok := c.clientPool.Load(apiKey); ok {
		if cli, ok := v.(*openai.Client); ok {
			return cli
		}
	}
	v, _, _ := c.sf.Do(apiKey, func() (any, error) {
		if v2, ok := c.clientPool.Load(apiKey); ok {
			return v2, nil
		}
		cli := openai.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, c.opts...)...)
		c.clientPool.Store(apiKey, &cli)
		return &cli, nil
	})
	if cli, ok := v.(*openai.Client); ok {
		return cli
	}
	cli := openai.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, c.opts...)...)
	return &cli
}
