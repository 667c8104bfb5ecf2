package mocks

import "github.com/stretchr/testify/mock"

type Guard struct {
	mock.Mock
}

func (m *Guard) Check(image []byte) error {
	args := m.Called(image)
	return args.Error(0)
}
