package mocks

import "github.com/stretchr/testify/mock"

type Validator struct {
	mock.Mock
}

func (m *Validator) Validate(filename string, data []byte) (string, error) {
	args := m.Called(filename, data)
	return args.String(0), args.Error(1)
}
