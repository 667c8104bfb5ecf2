package azure

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/ApexGov/inspector/pkg/infra/httpx"
	"github.com/ApexGov/inspector/pkg/infra/providers"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
)

const (
	defaultAPIVersion = "2024-06-01"
	cognitiveScope    = "https://cognitiveservices.azure.com/.default"
)

var (
	ErrMissingAzureConfig = errors.New("azure configuration is required")
	ErrMissingEndpoint    = errors.New("azure endpoint is required")
)

// TokenSource returns a bearer token for the cognitive services scope.
type TokenSource func(ctx context.Context) (string, error)

type client struct {
	httpClient httpx.Client
	tokens     TokenSource
	credOnce   sync.Once
	cred       *azidentity.DefaultAzureCredential
	credErr    error
}

func NewAzureClient(httpClient httpx.Client) providers.Client {
	c := &client{httpClient: httpClient}
	c.tokens = c.defaultToken
	return c
}

// NewAzureClientWithTokenSource is used when identity tokens come from somewhere
// other than the default Azure credential chain.
func NewAzureClientWithTokenSource(httpClient httpx.Client, tokens TokenSource) providers.Client {
	return &client{httpClient: httpClient, tokens: tokens}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatRequest struct {
	Messages       []chatMessage     `json:"messages"`
	Temperature    *float64          `json:"temperature,omitempty"`
	TopP           *float64          `json:"top_p,omitempty"`
	MaxTokens      int               `json:"max_tokens,omitempty"`
	ResponseFormat map[string]string `json:"response_format,omitempty"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// Analyze calls an Azure OpenAI chat deployment. config.Model is the deployment
// name. Authentication is an api-key unless Azure.UseIdentity is set.
func (c *client) Analyze(
	ctx context.Context,
	config *providers.Config,
	prompt *providers.VisionPrompt,
) (*providers.CompletionResponse, error) {
	azureCfg := config.Credentials.Azure
	if azureCfg == nil {
		return nil, ErrMissingAzureConfig
	}
	if azureCfg.Endpoint == "" {
		return nil, ErrMissingEndpoint
	}
	if config.Model == "" {
		return nil, providers.ErrMissingModel
	}
	if err := providers.ValidatePrompt(prompt); err != nil {
		return nil, err
	}

	headerName, headerValue, err := c.authHeader(ctx, config)
	if err != nil {
		return nil, err
	}

	var messages []chatMessage
	if config.SystemPrompt != "" {
		messages = append(messages, chatMessage{Role: "system", Content: config.SystemPrompt})
	}
	messages = append(messages, chatMessage{
		Role: "user",
		Content: []contentPart{
			{Type: "text", Text: providers.UserText(config, prompt)},
			{Type: "image_url", ImageURL: &imageURL{URL: providers.DataURL(prompt.MIMEType, prompt.Image)}},
		},
	})

	reqBody := chatRequest{
		Messages:       messages,
		MaxTokens:      config.MaxTokens,
		ResponseFormat: map[string]string{"type": "json_object"},
	}
	if config.Temperature > 0 {
		reqBody.Temperature = &config.Temperature
	}
	if config.TopP > 0 {
		reqBody.TopP = &config.TopP
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	apiVersion := azureCfg.ApiVersion
	if apiVersion == "" {
		apiVersion = defaultAPIVersion
	}
	url := fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s",
		strings.TrimRight(azureCfg.Endpoint, "/"), config.Model, apiVersion)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(headerName, headerValue)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("non-200 status: %d\n%s", resp.StatusCode, string(respBody))
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return nil, providers.ErrEmptyResponse
	}

	id := parsed.ID
	if id == "" {
		id = providers.ResponseID(ctx, "azure")
	}
	model := parsed.Model
	if model == "" {
		model = config.Model
	}
	return &providers.CompletionResponse{
		ID:       id,
		Model:    model,
		Response: providers.StripCodeFence(parsed.Choices[0].Message.Content),
		Usage: providers.Usage{
			PromptTokens:     parsed.Usage.PromptTokens,
			CompletionTokens: parsed.Usage.CompletionTokens,
			TotalTokens:      parsed.Usage.TotalTokens,
		},
	}, nil
}

func (c *client) authHeader(ctx context.Context, config *providers.Config) (string, string, error) {
	if config.Credentials.Azure.UseIdentity {
		token, err := c.tokens(ctx)
		if err != nil {
			return "", "", fmt.Errorf("failed to get Azure AD token: %w", err)
		}
		return "Authorization", "Bearer " + token, nil
	}
	if config.Credentials.ApiKey == "" {
		return "", "", fmt.Errorf("%w: required when not using Azure identity", providers.ErrMissingAPIKey)
	}
	return "api-key", config.Credentials.ApiKey, nil
}

func (c *client) defaultToken(ctx context.Context) (string, error) {
	c.credOnce.Do(func() {
		c.cred, c.credErr = azidentity.NewDefaultAzureCredential(nil)
	})
	if c.credErr != nil {
		return "", fmt.Errorf("failed to create credential: %w", c.credErr)
	}
	token, err := c.cred.GetToken(ctx, policy.TokenRequestOptions{
		Scopes: []string{cognitiveScope},
	})
	if err != nil {
		return "", fmt.Errorf("failed to get token: %w", err)
	}
	return token.Token, nil
}
