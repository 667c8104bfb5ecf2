package request

import (
	"errors"
	"strings"
)

type ResetQuotaRequest struct {
	ClientID string `json:"client_id"`
}

func (r *ResetQuotaRequest) Validate() error {
	r.ClientID = strings.TrimSpace(r.ClientID)
	if r.ClientID == "" {
		return errors.New("client_id is required")
	}
	return nil
}
