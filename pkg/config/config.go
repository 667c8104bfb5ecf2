package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ApexGov/inspector/pkg/common"
	"github.com/spf13/viper"
)

type MetricsConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	EnableLatency bool `mapstructure:"enable_latency"`
}

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Quota    QuotaConfig    `mapstructure:"quota"`
	Analysis AnalysisConfig `mapstructure:"analysis"`
	Upload   UploadConfig   `mapstructure:"upload"`
	Evidence EvidenceConfig `mapstructure:"evidence"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
}

type ServerConfig struct {
	Port        int      `mapstructure:"port"`
	MetricsPort int      `mapstructure:"metrics_port"`
	SecretKey   string   `mapstructure:"secret_key"`
	DocsURL     string   `mapstructure:"docs_url"`
	TrustProxy  bool     `mapstructure:"trust_proxy"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

type DatabaseConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	TLS      bool   `mapstructure:"tls"`
}

// QuotaConfig configures the upload quota. Store is one of memory, redis or postgres.
type QuotaConfig struct {
	Key             string        `mapstructure:"key"`
	Limit           int           `mapstructure:"limit"`
	Window          time.Duration `mapstructure:"window"`
	Store           string        `mapstructure:"store"`
	SerializeChecks bool          `mapstructure:"serialize_checks"`
	PurgeSchedule   string        `mapstructure:"purge_schedule"`
	PurgeGrace      time.Duration `mapstructure:"purge_grace"`
}

type AnalysisConfig struct {
	Provider    string        `mapstructure:"provider"`
	Model       string        `mapstructure:"model"`
	APIKey      string        `mapstructure:"api_key"`
	Temperature float64       `mapstructure:"temperature"`
	TopP        float64       `mapstructure:"top_p"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Timeout     time.Duration `mapstructure:"timeout"`
	LocalURL    string        `mapstructure:"local_url"`
	Breaker     BreakerConfig `mapstructure:"breaker"`
	AWS         AWSConfig     `mapstructure:"aws"`
	Azure       AzureConfig   `mapstructure:"azure"`
}

type BreakerConfig struct {
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxFailures uint32        `mapstructure:"max_failures"`
}

type AWSConfig struct {
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	SessionToken    string `mapstructure:"session_token"`
	RoleARN         string `mapstructure:"role_arn"`
}

type AzureConfig struct {
	Endpoint    string `mapstructure:"endpoint"`
	APIVersion  string `mapstructure:"api_version"`
	UseIdentity bool   `mapstructure:"use_identity"`
}

type UploadConfig struct {
	MaxBytes    int  `mapstructure:"max_bytes"`
	MaxWidth    int  `mapstructure:"max_width"`
	MaxPixels   int  `mapstructure:"max_pixels"`
	JPEGQuality int  `mapstructure:"jpeg_quality"`
	OCRGuard    bool `mapstructure:"ocr_guard"`
}

// EvidenceConfig selects where sanitized photos are archived. Provider is none, azure or s3.
type EvidenceConfig struct {
	Provider  string `mapstructure:"provider"`
	Container string `mapstructure:"container"`

	AzureAccountName string `mapstructure:"azure_account_name"`
	AzureAccountKey  string `mapstructure:"azure_account_key"`

	S3Endpoint  string `mapstructure:"s3_endpoint"`
	S3AccessKey string `mapstructure:"s3_access_key"`
	S3SecretKey string `mapstructure:"s3_secret_key"`
	S3UseSSL    bool   `mapstructure:"s3_use_ssl"`
}

type KafkaConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Host    string `mapstructure:"host"`
	Port    string `mapstructure:"port"`
	Topic   string `mapstructure:"topic"`
}

var globalConfig Config

func Load(configPath string) error {
	if err := loadConfigFile(configPath, "config", &globalConfig); err != nil {
		return fmt.Errorf("could not load main config file: %w", err)
	}
	setDefaultValues(&globalConfig)
	return nil
}

func loadConfigFile(configPath, fileName string, out interface{}) error {
	viper.SetConfigName(fileName)
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configPath)
	viper.AddConfigPath("./config")
	viper.AddConfigPath(".")

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			return fmt.Errorf("config file %s.yaml not found, using only environment variables", fileName)
		}
		return fmt.Errorf("error reading config file %s.yaml: %w", fileName, err)
	}

	if err := viper.Unmarshal(out); err != nil {
		return fmt.Errorf("failed to unmarshal %s config: %w", fileName, err)
	}

	return nil
}

func setDefaultValues(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.MetricsPort == 0 {
		cfg.Server.MetricsPort = 9090
	}
	if cfg.Server.DocsURL == "" {
		cfg.Server.DocsURL = fmt.Sprintf("http://localhost:%d/swagger.json", cfg.Server.Port)
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Quota.Key == "" {
		cfg.Quota.Key = common.DefaultQuotaKey
	}
	if cfg.Quota.Limit <= 0 {
		cfg.Quota.Limit = common.DefaultQuotaLimit
	}
	if cfg.Quota.Window <= 0 {
		cfg.Quota.Window = common.DefaultQuotaWindow
	}
	if cfg.Quota.Store == "" {
		cfg.Quota.Store = "memory"
	}
	if cfg.Quota.PurgeGrace <= 0 {
		cfg.Quota.PurgeGrace = time.Hour
	}
	if cfg.Analysis.Provider == "" {
		cfg.Analysis.Provider = common.DefaultAnalysisProvider
	}
	if cfg.Analysis.Model == "" && cfg.Analysis.Provider == common.DefaultAnalysisProvider {
		cfg.Analysis.Model = common.DefaultAnalysisModel
	}
	if cfg.Analysis.Temperature == 0 {
		cfg.Analysis.Temperature = 0.1
	}
	if cfg.Analysis.TopP == 0 {
		cfg.Analysis.TopP = 0.3
	}
	if cfg.Analysis.MaxTokens == 0 {
		cfg.Analysis.MaxTokens = 2048
	}
	if cfg.Analysis.Breaker.Timeout <= 0 {
		cfg.Analysis.Breaker.Timeout = 30 * time.Second
	}
	if cfg.Analysis.Breaker.MaxFailures == 0 {
		cfg.Analysis.Breaker.MaxFailures = 5
	}
	if cfg.Analysis.Azure.APIVersion == "" {
		cfg.Analysis.Azure.APIVersion = "2024-06-01"
	}
	if cfg.Upload.MaxBytes <= 0 {
		cfg.Upload.MaxBytes = common.DefaultMaxUploadBytes
	}
	if cfg.Upload.MaxWidth <= 0 {
		cfg.Upload.MaxWidth = common.DefaultMaxImageWidth
	}
	if cfg.Upload.MaxPixels <= 0 {
		cfg.Upload.MaxPixels = common.DefaultMaxImagePixels
	}
	if cfg.Upload.JPEGQuality <= 0 || cfg.Upload.JPEGQuality > 100 {
		cfg.Upload.JPEGQuality = common.DefaultJPEGQuality
	}
	if cfg.Evidence.Provider == "" {
		cfg.Evidence.Provider = "none"
	}
	if cfg.Evidence.Container == "" {
		cfg.Evidence.Container = "evidence"
	}
}

func GetConfig() *Config {
	return &globalConfig
}
