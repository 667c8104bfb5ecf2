package mocks

import "github.com/stretchr/testify/mock"

type Sanitizer struct {
	mock.Mock
}

func (m *Sanitizer) Sanitize(data []byte) ([]byte, error) {
	args := m.Called(data)
	out, _ := args.Get(0).([]byte)
	return out, args.Error(1)
}
