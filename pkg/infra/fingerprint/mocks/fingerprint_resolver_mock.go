package mocks

import (
	"github.com/ApexGov/inspector/pkg/infra/fingerprint"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/mock"
)

type Resolver struct {
	mock.Mock
}

func (m *Resolver) MakeFingerprint(ctx *fiber.Ctx) fingerprint.Fingerprint {
	args := m.Called(ctx)
	return args.Get(0).(fingerprint.Fingerprint)
}
