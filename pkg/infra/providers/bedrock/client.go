package bedrock

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/ApexGov/inspector/pkg/infra/providers"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/credentials/stscreds"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"golang.org/x/sync/singleflight"
)

const (
	ProviderName               = "bedrock"
	ModelPrefixAnthropicClaude = "anthropic.claude"
	anthropicVersion           = "bedrock-2023-05-31"
	defaultRegion              = "us-east-1"
	defaultMaxTokens           = 2048
	roleSessionName            = "InspectorBedrockSession"
)

//go:generate mockery --name=RuntimeAPI --dir=. --output=./mocks --filename=runtime_api_mock.go --case=underscore --with-expecter
type RuntimeAPI interface {
	InvokeModel(
		ctx context.Context,
		params *bedrockruntime.InvokeModelInput,
		optFns ...func(*bedrockruntime.Options),
	) (*bedrockruntime.InvokeModelOutput, error)
}

// RuntimeFactory builds the runtime client for a set of credentials.
type RuntimeFactory func(ctx context.Context, creds *providers.AwsBedrock) (RuntimeAPI, error)

type claudeRequest struct {
	AnthropicVersion string          `json:"anthropic_version"`
	MaxTokens        int             `json:"max_tokens"`
	System           string          `json:"system,omitempty"`
	Messages         []claudeMessage `json:"messages"`
	Temperature      float64         `json:"temperature,omitempty"`
	TopP             float64         `json:"top_p,omitempty"`
}

type claudeMessage struct {
	Role    string          `json:"role"`
	Content []claudeContent `json:"content"`
}

type claudeContent struct {
	Type   string        `json:"type"`
	Text   string        `json:"text,omitempty"`
	Source *claudeSource `json:"source,omitempty"`
}

type claudeSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type claudeResponse struct {
	ID      string `json:"id"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

type client struct {
	clientPool *sync.Map
	sf         singleflight.Group
	factory    RuntimeFactory
}

func NewBedrockClient() providers.Client {
	return NewBedrockClientWithFactory(newRuntimeClient)
}

func NewBedrockClientWithFactory(factory RuntimeFactory) providers.Client {
	return &client{
		clientPool: &sync.Map{},
		factory:    factory,
	}
}

func (c *client) Analyze(
	ctx context.Context,
	cfg *providers.Config,
	prompt *providers.VisionPrompt,
) (*providers.CompletionResponse, error) {
	if cfg.Model == "" {
		return nil, providers.ErrMissingModel
	}
	if !strings.Contains(cfg.Model, ModelPrefixAnthropicClaude) {
		return nil, fmt.Errorf("bedrock model %s does not accept images, use an %s model", cfg.Model, ModelPrefixAnthropicClaude)
	}
	if cfg.Credentials.AwsBedrock == nil {
		return nil, fmt.Errorf("aws credentials are required")
	}
	if err := providers.ValidatePrompt(prompt); err != nil {
		return nil, err
	}

	runtime, err := c.getOrCreateClient(ctx, cfg.Credentials.AwsBedrock)
	if err != nil {
		return nil, fmt.Errorf("failed to create Bedrock client: %w", err)
	}

	body, err := json.Marshal(buildClaudeRequest(cfg, prompt))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := runtime.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(cfg.Model),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to invoke model: %w", err)
	}

	var parsed claudeResponse
	if err := json.Unmarshal(resp.Body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to unmarshal Claude response: %w", err)
	}
	var text string
	for _, content := range parsed.Content {
		if content.Type == "text" {
			text = content.Text
			break
		}
	}
	if text == "" {
		return nil, providers.ErrEmptyResponse
	}

	id := parsed.ID
	if id == "" {
		id = providers.ResponseID(ctx, ProviderName)
	}
	return &providers.CompletionResponse{
		ID:       id,
		Model:    cfg.Model,
		Response: providers.StripCodeFence(text),
		Usage: providers.Usage{
			PromptTokens:     parsed.Usage.InputTokens,
			CompletionTokens: parsed.Usage.OutputTokens,
			TotalTokens:      parsed.Usage.InputTokens + parsed.Usage.OutputTokens,
		},
	}, nil
}

func buildClaudeRequest(cfg *providers.Config, prompt *providers.VisionPrompt) *claudeRequest {
	maxTokens := defaultMaxTokens
	if cfg.MaxTokens > 0 {
		maxTokens = cfg.MaxTokens
	}
	return &claudeRequest{
		AnthropicVersion: anthropicVersion,
		MaxTokens:        maxTokens,
		System:           cfg.SystemPrompt,
		Temperature:      cfg.Temperature,
		TopP:             cfg.TopP,
		Messages: []claudeMessage{
			{
				Role: "user",
				Content: []claudeContent{
					{
						Type: "image",
						Source: &claudeSource{
							Type:      "base64",
							MediaType: prompt.MIMEType,
							Data:      base64.StdEncoding.EncodeToString(prompt.Image),
						},
					},
					{Type: "text", Text: providers.UserText(cfg, prompt)},
				},
			},
		},
	}
}

func (c *client) getOrCreateClient(ctx context.Context, creds *providers.AwsBedrock) (RuntimeAPI, error) {
	key := buildClientKey(creds)
	if v, ok := c.clientPool.Load(key); ok {
		if runtime, ok := v.(RuntimeAPI); ok {
			return runtime, nil
		}
	}
	v, err, _ := c.sf.Do(key, func() (any, error) {
		if v2, ok := c.clientPool.Load(key); ok {
			return v2, nil
		}
		runtime, err := c.factory(ctx, creds)
		if err != nil {
			return nil, err
		}
		c.clientPool.Store(key, runtime)
		return runtime, nil
	})
	if err != nil {
		return nil, err
	}
	runtime, ok := v.(RuntimeAPI)
	if !ok {
		return nil, fmt.Errorf("invalid client type in pool")
	}
	return runtime, nil
}

func buildClientKey(creds *providers.AwsBedrock) string {
	return fmt.Sprintf("%s:%s:%v:%s", creds.AccessKey, creds.Region, creds.UseRole, creds.RoleARN)
}

func newRuntimeClient(ctx context.Context, creds *providers.AwsBedrock) (RuntimeAPI, error) {
	awsCfg, err := buildAwsConfig(ctx, creds)
	if err != nil {
		return nil, err
	}
	return bedrockruntime.NewFromConfig(awsCfg), nil
}

// buildAwsConfig uses static keys when given, the default chain otherwise, and
// wraps either in an STS assume-role provider when a role is requested.
func buildAwsConfig(ctx context.Context, creds *providers.AwsBedrock) (aws.Config, error) {
	region := creds.Region
	if region == "" {
		region = defaultRegion
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if creds.AccessKey != "" && creds.SecretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(creds.AccessKey, creds.SecretKey, creds.SessionToken),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS config: %w", err)
	}

	if creds.UseRole && creds.RoleARN != "" {
		stsClient := sts.NewFromConfig(awsCfg)
		awsCfg.Credentials = aws.NewCredentialsCache(stscreds.NewAssumeRoleProvider(stsClient, creds.RoleARN,
			func(o *stscreds.AssumeRoleOptions) {
				o.RoleSessionName = roleSessionName
			},
		))
	}
	return awsCfg, nil
}
