package dependency_container

import (
	"context"
	"fmt"
	"time"

	appAnalysis "github.com/ApexGov/inspector/pkg/app/analysis"
	"github.com/ApexGov/inspector/pkg/app/quota"
	"github.com/ApexGov/inspector/pkg/app/report"
	"github.com/ApexGov/inspector/pkg/app/upload"
	"github.com/ApexGov/inspector/pkg/config"
	domainQuota "github.com/ApexGov/inspector/pkg/domain/quota"
	"github.com/ApexGov/inspector/pkg/domain/regulation"
	domainReport "github.com/ApexGov/inspector/pkg/domain/report"
	handlers "github.com/ApexGov/inspector/pkg/handlers/http"
	"github.com/ApexGov/inspector/pkg/infra/cache"
	"github.com/ApexGov/inspector/pkg/infra/database"
	"github.com/ApexGov/inspector/pkg/infra/detector"
	"github.com/ApexGov/inspector/pkg/infra/events"
	"github.com/ApexGov/inspector/pkg/infra/events/kafka"
	"github.com/ApexGov/inspector/pkg/infra/evidence"
	"github.com/ApexGov/inspector/pkg/infra/fingerprint"
	"github.com/ApexGov/inspector/pkg/infra/httpx"
	"github.com/ApexGov/inspector/pkg/infra/jobs"
	"github.com/ApexGov/inspector/pkg/infra/jwt"
	_ "github.com/ApexGov/inspector/pkg/infra/migrations"
	"github.com/ApexGov/inspector/pkg/infra/ocr"
	"github.com/ApexGov/inspector/pkg/infra/prometheus"
	"github.com/ApexGov/inspector/pkg/infra/providers"
	providersFactory "github.com/ApexGov/inspector/pkg/infra/providers/factory"
	"github.com/ApexGov/inspector/pkg/infra/repository"
	"github.com/ApexGov/inspector/pkg/middleware"
	"github.com/ApexGov/inspector/pkg/server"
	"github.com/ApexGov/inspector/pkg/version"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

const (
	quotaStoreMemory   = "memory"
	quotaStoreRedis    = "redis"
	quotaStorePostgres = "postgres"
	corsMaxAge         = "600"
	reportLocalTTL     = 5 * time.Minute
)

type Container struct {
	Cache               cache.Client
	DB                  *database.DB
	Corpus              *regulation.Corpus
	QuotaRepository     domainQuota.Repository
	ReportRepository    domainReport.Repository
	QuotaTracker        quota.Tracker
	AnalysisContract    appAnalysis.Contract
	ReportCreator       report.Creator
	ReportFinder        report.Finder
	EventPublisher      events.Publisher
	EvidenceStore       evidence.Store
	QuotaPurge          *jobs.QuotaPurge
	JWTManager          jwt.Manager
	MiddlewareTransport *middleware.Transport
	HandlerTransport    handlers.HandlerTransport
	HealthChecks        map[string]server.HealthCheck
}

type ContainerDI struct {
	Cfg    *config.Config
	Logger *logrus.Logger
}

func NewContainer(di ContainerDI) (*Container, error) {
	cfg, logger := di.Cfg, di.Logger
	c := &Container{HealthChecks: map[string]server.HealthCheck{}}

	corpus, err := regulation.Punjab()
	if err != nil {
		return nil, fmt.Errorf("failed to load regulation corpus: %w", err)
	}
	c.Corpus = corpus

	redisClient, err := c.connectRedis(cfg, logger)
	if err != nil {
		return nil, err
	}
	if err := c.connectDatabase(cfg, logger); err != nil {
		return nil, err
	}

	// quota
	c.QuotaRepository, err = newQuotaRepository(cfg.Quota.Store, redisClient, c.DB)
	if err != nil {
		return nil, err
	}
	c.QuotaTracker, err = quota.NewTracker(logger, domainQuota.Config{
		Key:    cfg.Quota.Key,
		Limit:  cfg.Quota.Limit,
		Window: cfg.Quota.Window,
	}, c.QuotaRepository, &quota.Options{SerializeChecks: cfg.Quota.SerializeChecks})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize quota tracker: %w", err)
	}
	if cfg.Quota.PurgeSchedule != "" {
		c.QuotaPurge, err = jobs.NewQuotaPurge(logger, c.QuotaRepository, cfg.Quota.PurgeSchedule, cfg.Quota.PurgeGrace)
		if err != nil {
			return nil, err
		}
	}

	// analysis
	c.AnalysisContract, err = newAnalysisContract(cfg, logger, corpus)
	if err != nil {
		return nil, err
	}

	// reports
	if c.DB != nil {
		c.ReportRepository = repository.NewReportRepository(c.DB.DB)
	} else {
		logger.Warn("database disabled, reports are kept in memory")
		c.ReportRepository = repository.NewMemoryReportRepository()
	}
	c.EvidenceStore, err = newEvidenceStore(cfg.Evidence)
	if err != nil {
		return nil, err
	}
	c.EventPublisher, err = newEventPublisher(cfg.Kafka)
	if err != nil {
		return nil, err
	}
	c.ReportCreator = report.NewCreator(logger, c.ReportRepository, report.CreatorOptions{
		Evidence:  c.EvidenceStore,
		Publisher: c.EventPublisher,
	})
	var sharedCache cache.Client
	localCache := cache.NewTTLMap(reportLocalTTL)
	if c.Cache != nil {
		sharedCache = c.Cache
		localCache = c.Cache.CreateTTLMap(cache.ReportTTLName, reportLocalTTL)
	}
	c.ReportFinder = report.NewFinder(logger, c.ReportRepository, localCache, sharedCache)

	// upload guard
	var guard upload.Guard
	if cfg.Upload.OCRGuard {
		guard = upload.NewTextGuard(ocr.NewTesseract(), logger)
	}

	// http
	c.JWTManager = jwt.NewJwtManager(&cfg.Server)
	c.MiddlewareTransport = &middleware.Transport{
		PanicRecoverMiddleware: middleware.NewPanicRecoverMiddleware(logger),
		CORSGlobalMiddleware:   middleware.NewCORSGlobalMiddleware(cfg.Server.CORSOrigins, corsMaxAge),
		FingerPrintMiddleware:  middleware.NewFingerPrintMiddleware(logger, fingerprint.NewResolver(cfg.Server.TrustProxy)),
		AdminAuthMiddleware:    middleware.NewAdminAuthMiddleware(logger, c.JWTManager),
	}
	if cfg.Metrics.Enabled {
		c.MiddlewareTransport.MetricsMiddleware = middleware.NewMetricsMiddleware(prometheus.Config)
	}
	c.HandlerTransport = handlers.HandlerTransport{
		AnalyzeHandler: handlers.NewAnalyzeHandler(
			logger,
			upload.NewValidator(cfg.Upload.MaxBytes),
			upload.NewSanitizer(cfg.Upload.MaxWidth, cfg.Upload.JPEGQuality, cfg.Upload.MaxPixels),
			c.QuotaTracker,
			c.AnalysisContract,
			c.ReportCreator,
			handlers.AnalyzeOptions{Guard: guard, Timeout: cfg.Analysis.Timeout},
		),
		GetQuotaHandler:        handlers.NewGetQuotaHandler(logger, c.QuotaTracker),
		ResetQuotaHandler:      handlers.NewResetQuotaHandler(logger, c.QuotaTracker),
		GetReportHandler:       handlers.NewGetReportHandler(logger, c.ReportFinder),
		ListRegulationsHandler: handlers.NewListRegulationsHandler(corpus),
		GetVersionHandler:      handlers.NewGetVersionHandler(),
	}

	logger.WithFields(logrus.Fields{
		"version":     version.Version,
		"quota_store": cfg.Quota.Store,
		"provider":    cfg.Analysis.Provider,
		"evidence":    cfg.Evidence.Provider,
		"kafka":       cfg.Kafka.Enabled,
		"ocr_guard":   cfg.Upload.OCRGuard,
	}).Info("dependency container initialized")
	return c, nil
}

// connectRedis returns nil when no redis host is configured.
func (c *Container) connectRedis(cfg *config.Config, logger *logrus.Logger) (*redis.Client, error) {
	if cfg.Redis.Host == "" {
		if cfg.Quota.Store == quotaStoreRedis {
			return nil, fmt.Errorf("quota store %q requires redis.host", quotaStoreRedis)
		}
		return nil, nil
	}
	redisClient, err := cache.Connect(cache.Config{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		TLS:      cfg.Redis.TLS,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cache: %w", err)
	}
	c.Cache = cache.NewClient(redisClient)
	c.HealthChecks["redis"] = func(ctx context.Context) error {
		return redisClient.Ping(ctx).Err()
	}
	return redisClient, nil
}

func (c *Container) connectDatabase(cfg *config.Config, logger *logrus.Logger) error {
	if !cfg.Database.Enabled {
		if cfg.Quota.Store == quotaStorePostgres {
			return fmt.Errorf("quota store %q requires database.enabled", quotaStorePostgres)
		}
		return nil
	}
	db, err := database.NewDB(logger, &database.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		DBName:   cfg.Database.DBName,
		SSLMode:  cfg.Database.SSLMode,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	c.DB = db
	c.HealthChecks["postgres"] = db.Ping
	return nil
}

func (c *Container) Close() {
	if c.QuotaPurge != nil {
		c.QuotaPurge.Stop()
	}
	if c.EventPublisher != nil {
		c.EventPublisher.Close()
	}
	if c.Cache != nil {
		_ = c.Cache.RedisClient().Close()
	}
	if c.DB != nil {
		_ = c.DB.Close()
	}
}

func newQuotaRepository(store string, redisClient *redis.Client, db *database.DB) (domainQuota.Repository, error) {
	switch store {
	case quotaStoreMemory:
		return repository.NewMemoryQuotaRepository(), nil
	case quotaStoreRedis:
		return repository.NewRedisQuotaRepository(redisClient, nil), nil
	case quotaStorePostgres:
		return repository.NewPostgresQuotaRepository(db.DB), nil
	default:
		return nil, fmt.Errorf("unknown quota store %q", store)
	}
}

func newAnalysisContract(cfg *config.Config, logger *logrus.Logger, corpus *regulation.Corpus) (appAnalysis.Contract, error) {
	ac := cfg.Analysis
	httpClient := httpx.NewFastHTTPClient(
		httpx.WithTimeout(90*time.Second),
		httpx.WithUserAgent("apexgov-inspector/"+version.Version),
	)
	onStateChange := func(name, from, to string) {
		logger.WithFields(logrus.Fields{
			"breaker": name,
			"from":    from,
			"to":      to,
		}).Warn("circuit breaker state changed")
	}

	client, err := providersFactory.NewProviderLocator(httpClient).Get(ac.Provider)
	if err != nil {
		return nil, err
	}

	var local detector.Client
	if ac.LocalURL != "" {
		local = detector.NewClient(
			ac.LocalURL,
			httpClient,
			httpx.NewCircuitBreaker("local-detector", ac.Breaker.Timeout, ac.Breaker.MaxFailures, onStateChange),
		)
	}

	return appAnalysis.NewContract(logger, corpus, client, appAnalysis.Options{
		ProviderName: ac.Provider,
		ProviderConfig: providers.Config{
			Credentials: providers.Credentials{
				ApiKey: ac.APIKey,
				AwsBedrock: &providers.AwsBedrock{
					Region:       ac.AWS.Region,
					AccessKey:    ac.AWS.AccessKeyID,
					SecretKey:    ac.AWS.SecretAccessKey,
					SessionToken: ac.AWS.SessionToken,
					UseRole:      ac.AWS.RoleARN != "",
					RoleARN:      ac.AWS.RoleARN,
				},
				Azure: &providers.AzureCredentials{
					Endpoint:    ac.Azure.Endpoint,
					ApiVersion:  ac.Azure.APIVersion,
					UseIdentity: ac.Azure.UseIdentity,
				},
			},
			Model:       ac.Model,
			MaxTokens:   ac.MaxTokens,
			Temperature: ac.Temperature,
			TopP:        ac.TopP,
		},
		Breaker:       httpx.NewCircuitBreaker("analysis-"+ac.Provider, ac.Breaker.Timeout, ac.Breaker.MaxFailures, onStateChange),
		LocalDetector: local,
	}), nil
}

func newEvidenceStore(cfg config.EvidenceConfig) (evidence.Store, error) {
	switch cfg.Provider {
	case evidence.ProviderNone:
		return evidence.NewNoopStore(), nil
	case evidence.ProviderAzure:
		return evidence.NewAzureStore(cfg.AzureAccountName, cfg.AzureAccountKey, cfg.Container)
	case evidence.ProviderS3:
		return evidence.NewS3Store(cfg.S3Endpoint, cfg.S3AccessKey, cfg.S3SecretKey, cfg.Container, cfg.S3UseSSL)
	default:
		return nil, fmt.Errorf("unknown evidence provider %q", cfg.Provider)
	}
}

func newEventPublisher(cfg config.KafkaConfig) (events.Publisher, error) {
	if !cfg.Enabled {
		return events.NewNoopPublisher(), nil
	}
	return kafka.NewPublisher(map[string]interface{}{
		"host":  cfg.Host,
		"port":  cfg.Port,
		"topic": cfg.Topic,
	})
}
