package server

import (
	"errors"
	"fmt"

	"github.com/ApexGov/inspector/pkg/config"
	"github.com/ApexGov/inspector/pkg/server/router"
	"github.com/sirupsen/logrus"
)

type (
	APIServerDI struct {
		Config       *config.Config
		Logger       *logrus.Logger
		Routers      []router.ServerRouter
		HealthChecks map[string]HealthCheck
	}
	APIServer struct {
		*BaseServer
	}
)

func NewAPIServer(di APIServerDI) *APIServer {
	s := &APIServer{BaseServer: NewBaseServer(di.Config, di.Logger)}
	for name, check := range di.HealthChecks {
		s.WithHealthCheck(name, check)
	}
	s.setupHealthCheck()
	s.WithRouters(di.Routers...)
	return s
}

func (s *APIServer) Run() error {
	s.setupMetricsEndpoint()
	addr := fmt.Sprintf(":%d", s.Config.Server.Port)
	s.Logger.WithField("addr", addr).Info("Starting inspection API server")
	return s.Router.Listen(addr)
}

func (s *APIServer) Shutdown() error {
	return errors.Join(s.Router.Shutdown(), s.shutdownMetrics())
}
