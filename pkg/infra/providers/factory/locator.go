package factory

import (
	"fmt"

	"github.com/ApexGov/inspector/pkg/infra/httpx"
	"github.com/ApexGov/inspector/pkg/infra/providers"
	"github.com/ApexGov/inspector/pkg/infra/providers/anthropic"
	"github.com/ApexGov/inspector/pkg/infra/providers/azure"
	"github.com/ApexGov/inspector/pkg/infra/providers/bedrock"
	"github.com/ApexGov/inspector/pkg/infra/providers/google"
	"github.com/ApexGov/inspector/pkg/infra/providers/openai"
)

const (
	ProviderOpenAI    = "openai"
	ProviderGoogle    = "google"
	ProviderAnthropic = "anthropic"
	ProviderBedrock   = "bedrock"
	ProviderAzure     = "azure"
)

//go:generate mockery --name=ProviderLocator --dir=. --output=./mocks --filename=provider_locator_mock.go --case=underscore --with-expecter

type ProviderLocator interface {
	Get(provider string) (providers.Client, error)
}

type providerLocator struct {
	httpClient httpx.Client
	clients    map[string]providers.Client
}

// NewProviderLocator builds each provider client once so their connection
// pools are shared between requests.
func NewProviderLocator(httpClient httpx.Client) ProviderLocator {
	return &providerLocator{
		httpClient: httpClient,
		clients: map[string]providers.Client{
			ProviderOpenAI:    openai.NewOpenaiClient(),
			ProviderGoogle:    google.NewGoogleClient(),
			ProviderAnthropic: anthropic.NewAnthropicClient(),
			ProviderBedrock:   bedrock.NewBedrockClient(),
			ProviderAzure:     azure.NewAzureClient(httpClient),
		},
	}
}

func (f *providerLocator) Get(provider string) (providers.Client, error) {
	client, ok := f.clients[provider]
	if !ok {
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
	return client, nil
}
