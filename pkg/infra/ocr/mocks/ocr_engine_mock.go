package mocks

import "github.com/stretchr/testify/mock"

type Engine struct {
	mock.Mock
}

func (m *Engine) Text(image []byte) (string, error) {
	args := m.Called(image)
	return args.String(0), args.Error(1)
}
