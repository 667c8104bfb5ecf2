package common

import "time"

const (
	DefaultQuotaKey    = "upload_limit"
	DefaultQuotaLimit  = 3
	DefaultQuotaWindow = 24 * time.Hour

	DefaultMaxUploadBytes = 10 * 1024 * 1024
	DefaultMaxImageWidth  = 800
	DefaultJPEGQuality    = 70
	DefaultMaxImagePixels = 40_000_000

	DefaultAnalysisProvider = "google"
	DefaultAnalysisModel    = "gemini-1.5-flash-latest"

	ClientIDHeader       = "X-Client-Id"
	AnalysisSourceHeader = "X-Analysis-Source"
	RateLimitPrefix      = "X-RateLimit"

	ReportCreatedEvent = "report.created"
)
