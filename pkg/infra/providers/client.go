package providers

import (
	"context"
)

type Config struct {
	Credentials  Credentials `json:"credentials"`
	Model        string      `json:"model"`
	MaxTokens    int         `json:"max_tokens,omitempty"`
	Temperature  float64     `json:"temperature,omitempty"`
	TopP         float64     `json:"top_p,omitempty"`
	SystemPrompt string      `json:"system_prompt,omitempty"`
	Instructions []string    `json:"instructions,omitempty"`
}

type Credentials struct {
	ApiKey     string            `json:"api_key,omitempty"`
	AwsBedrock *AwsBedrock       `json:"aws_bedrock,omitempty"`
	Azure      *AzureCredentials `json:"azure,omitempty"`
}

type AwsBedrock struct {
	Region       string `json:"region"`
	AccessKey    string `json:"access_key"`
	SecretKey    string `json:"secret_key"`
	SessionToken string `json:"session_token,omitempty"`
	UseRole      bool   `json:"use_role"`
	RoleARN      string `json:"role_arn,omitempty"`
}

type AzureCredentials struct {
	Endpoint    string `json:"endpoint"`
	ApiVersion  string `json:"api_version,omitempty"`
	UseIdentity bool   `json:"use_identity"`
}

// VisionPrompt is a single user turn made of one image and its instruction text.
type VisionPrompt struct {
	Text     string
	Image    []byte
	MIMEType string
}

//go:generate mockery --name=Client --dir=. --output=./mocks --filename=client_mock.go --case=underscore --with-expecter
type Client interface {
	Analyze(ctx context.Context, config *Config, prompt *VisionPrompt) (*CompletionResponse, error)
}
