package google

import (
	"context"
	"fmt"
	"sync"

	"github.com/ApexGov/inspector/pkg/infra/providers"
	"golang.org/x/sync/singleflight"
	"google.golang.org/genai"
)

const ProviderName = "google"

type client struct {
	clientPool *sync.Map
	sf         singleflight.Group
}

func NewGoogleClient() providers.Client {
	return &client{
		clientPool: &sync.Map{},
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

	genaiClient, err := c.getOrCreateClient(ctx, config.Credentials.ApiKey)
	if err != nil {
		return nil, err
	}

	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{InlineData: &genai.Blob{Data: prompt.Image, MIMEType: prompt.MIMEType}},
				{Text: providers.UserText(config, prompt)},
			},
		},
	}

	result, err := c.generate(ctx, genaiClient, config, contents)
	if err != nil {
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}

	responseText := providers.StripCodeFence(result.Text())
	if responseText == "" {
		return nil, providers.ErrEmptyResponse
	}

	resp := &providers.CompletionResponse{
		ID:       providers.ResponseID(ctx, ProviderName),
		Model:    config.Model,
		Response: responseText,
	}
	if result.UsageMetadata != nil {
		resp.Usage = providers.Usage{
			PromptTokens:     int(result.UsageMetadata.PromptTokenCount),
			CompletionTokens: int(result.UsageMetadata.CandidatesTokenCount),
			TotalTokens:      int(result.UsageMetadata.TotalTokenCount),
		}
	}
	return resp, nil
}

func (c *client) generate(
	ctx context.Context,
	genaiClient *genai.Client,
	config *providers.Config,
	contents []*genai.Content,
) (*genai.GenerateContentResponse, error) {
	genConfig := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	}
	if config.SystemPrompt != "" {
		genConfig.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: config.SystemPrompt}},
		}
	}
	if config.Temperature > 0 {
		genConfig.Temperature = float32Ptr(config.Temperature)
	}
	if config.TopP > 0 {
		genConfig.TopP = float32Ptr(config.TopP)
	}
	if config.MaxTokens > 0 {
		genConfig.MaxOutputTokens = int32(config.MaxTokens)
	}
	return genaiClient.Models.GenerateContent(ctx, config.Model, contents, genConfig)
}

func (c *client) getOrCreateClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	if v, ok := c.clientPool.Load(apiKey); ok {
		if cli, ok := v.(*genai.Client); ok {
			return cli, nil
		}
	}
	v, err, _ := c.sf.Do(apiKey, func() (any, error) {
		if v2, ok := c.clientPool.Load(apiKey); ok {
			return v2, nil
		}
		cli, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  apiKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create genai client: %w", err)
		}
		c.clientPool.Store(apiKey, cli)
		return cli, nil
	})
	if err != nil {
		return nil, err
	}
	cli, ok := v.(*genai.Client)
	if !ok {
		return nil, fmt.Errorf("invalid client type in pool")
	}
	return cli, nil
}

func float32Ptr(v float64) *float32 {
	f := float32(v)
	return &f
}
