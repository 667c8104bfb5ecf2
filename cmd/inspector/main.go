package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ApexGov/inspector/pkg/config"
	"github.com/ApexGov/inspector/pkg/dependency_container"
	"github.com/ApexGov/inspector/pkg/infra/jwt"
	infraLogger "github.com/ApexGov/inspector/pkg/infra/logger"
	"github.com/ApexGov/inspector/pkg/infra/prometheus"
	"github.com/ApexGov/inspector/pkg/server"
	"github.com/ApexGov/inspector/pkg/server/router"
	"github.com/joho/godotenv"
)

func main() {
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil {
		log.Println("no .env file found, using system environment variables")
	}

	command := getCommand()
	logger := infraLogger.NewLogger(command)

	if err := config.Load(getConfigPath()); err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	cfg := config.GetConfig()

	if command == "token" {
		token, err := jwt.NewJwtManager(&cfg.Server).CreateToken(tokenSubject(), jwt.DefaultTokenTTL)
		if err != nil {
			logger.Fatalf("Failed to create admin token: %v", err)
		}
		fmt.Println(token)
		return
	}

	if cfg.Metrics.Enabled {
		prometheus.Initialize(prometheus.MetricsConfig{EnableLatency: cfg.Metrics.EnableLatency})
	}

	container, err := dependency_container.NewContainer(dependency_container.ContainerDI{
		Cfg:    cfg,
		Logger: logger,
	})
	if err != nil {
		logger.Fatalf("Failed to initialize dependencies: %v", err)
	}
	defer container.Close()

	if container.QuotaPurge != nil {
		container.QuotaPurge.Start()
	}

	srv := server.NewAPIServer(server.APIServerDI{
		Config: cfg,
		Logger: logger,
		Routers: []router.ServerRouter{
			router.NewAPIRouter(container.MiddlewareTransport, container.HandlerTransport, cfg.Server.DocsURL),
		},
		HealthChecks: container.HealthChecks,
	})

	go func() {
		if err := srv.Run(); err != nil {
			logger.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	logger.Info("shutting down server...")
	if err := srv.Shutdown(); err != nil {
		logger.WithError(err).Error("error shutting down server")
		container.Close()
		os.Exit(1)
	}
	logger.Info("server gracefully stopped")
}

// getCommand returns "serve" unless a subcommand is given.
func getCommand() string {
	if len(os.Args) > 1 {
		return os.Args[1]
	}
	return "serve"
}

func tokenSubject() string {
	if len(os.Args) > 2 {
		return os.Args[2]
	}
	return "operator"
}

func getConfigPath() string {
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		return path
	}
	return "./config"
}
