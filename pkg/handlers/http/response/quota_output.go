package response

import "time"

type QuotaOutput struct {
	Limit     int       `json:"limit"`
	Remaining int       `json:"remaining"`
	ResetAt   time.Time `json:"reset_at"`
}

type QuotaExceededOutput struct {
	Error      string    `json:"error"`
	Remaining  int       `json:"remaining"`
	ResetAt    time.Time `json:"reset_at"`
	RetryAfter int64     `json:"retry_after"`
}
