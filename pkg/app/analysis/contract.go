package analysis

import (
	"context"
	"errors"
	"time"

	domainAnalysis "github.com/ApexGov/inspector/pkg/domain/analysis"
	"github.com/ApexGov/inspector/pkg/domain/regulation"
	"github.com/ApexGov/inspector/pkg/infra/detector"
	"github.com/ApexGov/inspector/pkg/infra/httpx"
	"github.com/ApexGov/inspector/pkg/infra/prometheus"
	"github.com/ApexGov/inspector/pkg/infra/providers"
	"github.com/sirupsen/logrus"
)

// Contract turns an image into an analysis result. Only a schema violation in
// the remote reply is returned as an error; every other failure resolves to
// the neutral fallback.
//
//go:generate mockery --name=Contract --dir=. --output=./mocks --filename=analysis_contract_mock.go --case=underscore --with-expecter
type Contract interface {
	Submit(ctx context.Context, req *domainAnalysis.Request) (*domainAnalysis.Result, error)
}

type Options struct {
	// ProviderName labels logs and metrics.
	ProviderName   string
	ProviderConfig providers.Config
	Breaker        httpx.CircuitBreaker
	// LocalDetector is tried first when set.
	LocalDetector detector.Client
	TimeProvider  func() time.Time
}

type contract struct {
	logger       *logrus.Logger
	corpus       *regulation.Corpus
	client       providers.Client
	providerName string
	config       providers.Config
	breaker      httpx.CircuitBreaker
	local        detector.Client
	timeProvider func() time.Time
}

func NewContract(
	logger *logrus.Logger,
	corpus *regulation.Corpus,
	client providers.Client,
	opts Options,
) Contract {
	c := &contract{
		logger:       logger,
		corpus:       corpus,
		client:       client,
		providerName: opts.ProviderName,
		config:       opts.ProviderConfig,
		breaker:      opts.Breaker,
		local:        opts.LocalDetector,
		timeProvider: opts.TimeProvider,
	}
	if c.timeProvider == nil {
		c.timeProvider = time.Now
	}
	if c.config.SystemPrompt == "" {
		c.config.SystemPrompt = SystemPrompt
	}
	if len(c.config.Instructions) == 0 {
		c.config.Instructions = Instructions
	}
	return c
}

func (c *contract) Submit(ctx context.Context, req *domainAnalysis.Request) (*domainAnalysis.Result, error) {
	if c.local != nil {
		if result := c.submitLocal(ctx, req); result != nil {
			return result, nil
		}
	}
	return c.submitRemote(ctx, req)
}

func (c *contract) submitLocal(ctx context.Context, req *domainAnalysis.Request) *domainAnalysis.Result {
	start := c.timeProvider()
	result, err := c.local.Detect(ctx, req.Image, req.MIMEType)
	c.observeLatency("local", start)
	if err != nil {
		c.logger.WithError(err).Warn("local detector failed, falling back to remote analysis")
		return nil
	}
	for i := range result.Issues {
		result.Issues[i] = EnrichIssue(result.Issues[i], c.corpus)
	}
	c.count(result.Source)
	return result
}

func (c *contract) submitRemote(ctx context.Context, req *domainAnalysis.Request) (*domainAnalysis.Result, error) {
	prompt := &providers.VisionPrompt{
		Text:     BuildPrompt(c.corpus, req.Location),
		Image:    req.Image,
		MIMEType: req.MIMEType,
	}

	start := c.timeProvider()
	resp, err := c.analyze(ctx, prompt)
	c.observeLatency("remote", start)
	if err != nil {
		c.logger.WithFields(logrus.Fields{
			"provider":     c.providerName,
			"breaker_open": httpx.IsOpen(err),
		}).WithError(err).Error("remote analysis failed, returning fallback")
		return c.fallback(), nil
	}

	result, err := Normalize(resp.Response, c.corpus)
	if err != nil {
		var violation *domainAnalysis.SchemaViolationError
		if errors.As(err, &violation) {
			prometheus.AnalysisSchemaViolationsTotal.WithLabelValues(c.providerName, violation.Field).Inc()
			c.logger.WithFields(logrus.Fields{
				"provider":    c.providerName,
				"response_id": resp.ID,
				"field":       violation.Field,
			}).Error("remote analysis reply violates schema")
			return nil, err
		}
		c.logger.WithFields(logrus.Fields{
			"provider":    c.providerName,
			"response_id": resp.ID,
		}).WithError(err).Warn("remote analysis reply unreadable, returning fallback")
		return c.fallback(), nil
	}

	c.logger.WithFields(logrus.Fields{
		"provider":    c.providerName,
		"model":       resp.Model,
		"response_id": resp.ID,
		"issues":      len(result.Issues),
		"tokens":      resp.Usage.TotalTokens,
	}).Info("remote analysis completed")
	c.count(result.Source)
	return result, nil
}

func (c *contract) analyze(ctx context.Context, prompt *providers.VisionPrompt) (*providers.CompletionResponse, error) {
	if c.client == nil {
		return nil, errors.New("no analysis provider configured")
	}
	var resp *providers.CompletionResponse
	call := func() error {
		var err error
		resp, err = c.client.Analyze(ctx, &c.config, prompt)
		return err
	}
	if c.breaker == nil {
		return resp, call()
	}
	err := c.breaker.Execute(call)
	return resp, err
}

func (c *contract) fallback() *domainAnalysis.Result {
	result := domainAnalysis.Fallback()
	c.count(result.Source)
	return result
}

func (c *contract) count(source domainAnalysis.Source) {
	prometheus.AnalysisSubmissionsTotal.WithLabelValues(string(source), c.providerName).Inc()
}

func (c *contract) observeLatency(channel string, start time.Time) {
	if !prometheus.Config.EnableLatency {
		return
	}
	elapsed := c.timeProvider().Sub(start)
	prometheus.AnalysisLatency.WithLabelValues(channel).Observe(float64(elapsed.Milliseconds()))
}
