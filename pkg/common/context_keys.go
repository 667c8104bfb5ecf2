package common

type contextKey string

const (
	TraceIdKey              contextKey = "trace_id"
	FingerprintIdContextKey contextKey = "fingerprint_id"
	LatencyContextKey       contextKey = "__execution_time"
)
