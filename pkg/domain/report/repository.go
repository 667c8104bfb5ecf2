package report

import "context"

//go:generate mockery --name=Repository --dir=. --output=./mocks --filename=report_repository_mock.go --case=underscore --with-expecter
type Repository interface {
	Save(ctx context.Context, report *Report) error
	// GetByNumber returns a domain not-found error when nothing matches.
	GetByNumber(ctx context.Context, number string) (*Report, error)
}
