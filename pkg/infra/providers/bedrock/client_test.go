package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/ApexGov/inspector/pkg/infra/providers"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRuntime struct {
	input *bedrockruntime.InvokeModelInput
	body  string
	err   error
}

func (f *fakeRuntime) InvokeModel(
	_ context.Context,
	params *bedrockruntime.InvokeModelInput,
	_ ...func(*bedrockruntime.Options),
) (*bedrockruntime.InvokeModelOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &bedrockruntime.InvokeModelOutput{Body: []byte(f.body)}, nil
}

func testConfig() *providers.Config {
	return &providers.Config{
		Model:        "anthropic.claude-3-haiku-20240307-v1:0",
		SystemPrompt: "inspector",
		Temperature:  0.1,
		TopP:         0.3,
		Credentials: providers.Credentials{
			AwsBedrock: &providers.AwsBedrock{Region: "eu-west-1", AccessKey: "AKIA_TEST", SecretKey: "SECRET"},
		},
	}
}

func testPrompt() *providers.VisionPrompt {
	return &providers.VisionPrompt{Text: "scan", Image: []byte{0xff, 0xd8}, MIMEType: "image/jpeg"}
}

func TestAnalyze_InvokesClaudeWithImage(t *testing.T) {
	runtime := &fakeRuntime{body: `{"id":"msg_b","content":[{"type":"text","text":"{\"isAuthenticEvidence\":true}"}],"usage":{"input_tokens":4,"output_tokens":2}}`}
	c := NewBedrockClientWithFactory(func(context.Context, *providers.AwsBedrock) (RuntimeAPI, error) {
		return runtime, nil
	})

	resp, err := c.Analyze(context.Background(), testConfig(), testPrompt())
	require.NoError(t, err)
	assert.Equal(t, "msg_b", resp.ID)
	assert.Equal(t, `{"isAuthenticEvidence":true}`, resp.Response)
	assert.Equal(t, 6, resp.Usage.TotalTokens)

	var sent claudeRequest
	require.NoError(t, json.Unmarshal(runtime.input.Body, &sent))
	assert.Equal(t, "bedrock-2023-05-31", sent.AnthropicVersion)
	assert.Equal(t, "inspector", sent.System)
	require.Len(t, sent.Messages, 1)
	require.Len(t, sent.Messages[0].Content, 2)
	assert.Equal(t, "image", sent.Messages[0].Content[0].Type)
	assert.Equal(t, "/9g=", sent.Messages[0].Content[0].Source.Data)
	assert.Equal(t, "scan", sent.Messages[0].Content[1].Text)
}

func TestAnalyze_RejectsNonClaudeModel(t *testing.T) {
	c := NewBedrockClientWithFactory(func(context.Context, *providers.AwsBedrock) (RuntimeAPI, error) {
		return &fakeRuntime{}, nil
	})
	cfg := testConfig()
	cfg.Model = "amazon.titan-text-express-v1"
	_, err := c.Analyze(context.Background(), cfg, testPrompt())
	assert.ErrorContains(t, err, "does not accept images")
}

func TestAnalyze_InvokeError(t *testing.T) {
	c := NewBedrockClientWithFactory(func(context.Context, *providers.AwsBedrock) (RuntimeAPI, error) {
		return &fakeRuntime{err: errors.New("throttled")}, nil
	})
	_, err := c.Analyze(context.Background(), testConfig(), testPrompt())
	assert.ErrorContains(t, err, "throttled")
}

func TestGetOrCreateClient_SameKeyConcurrent_BuildsOnce(t *testing.T) {
	var builds int32
	c := NewBedrockClientWithFactory(func(context.Context, *providers.AwsBedrock) (RuntimeAPI, error) {
		atomic.AddInt32(&builds, 1)
		return &fakeRuntime{}, nil
	}).(*client)

	creds := testConfig().Credentials.AwsBedrock
	var wg sync.WaitGroup
	results := make([]RuntimeAPI, 20)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r, err := c.getOrCreateClient(context.Background(), creds)
			if err == nil {
				results[i] = r
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&builds))
	for _, r := range results[1:] {
		assert.Same(t, results[0], r)
	}
}

func TestBuildAwsConfig_StaticCredentials(t *testing.T) {
	cfg, err := buildAwsConfig(context.Background(), &providers.AwsBedrock{AccessKey: "AKIA_TEST", SecretKey: "SECRET"})
	require.NoError(t, err)
	assert.Equal(t, "us-east-1", cfg.Region)

	creds, err := cfg.Credentials.Retrieve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "AKIA_TEST", creds.AccessKeyID)
}
