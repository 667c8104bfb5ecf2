package evidence

import (
	"context"
	"fmt"
	"time"
)

const (
	ProviderNone  = "none"
	ProviderAzure = "azure"
	ProviderS3    = "s3"
)

// Store archives sanitized evidence photos.
//
//go:generate mockery --name=Store --dir=. --output=./mocks --filename=evidence_store_mock.go --case=underscore --with-expecter
type Store interface {
	// Put stores data under name and returns a locator for the object.
	Put(ctx context.Context, name string, data []byte, contentType string) (string, error)
}

// ObjectName lays evidence out by day: 2025/01/31/<report number>.jpg
func ObjectName(reportNumber string, at time.Time) string {
	return fmt.Sprintf("%s/%s.jpg", at.UTC().Format("2006/01/02"), reportNumber)
}

type noopStore struct{}

func NewNoopStore() Store {
	return noopStore{}
}

func (noopStore) Put(context.Context, string, []byte, string) (string, error) {
	return "", nil
}
