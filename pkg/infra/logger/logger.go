package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const defaultLogDir = "logs"

// NewLogger builds the JSON logger for a component. Entries go to
// logs/<component>.log through an async writer and are mirrored on stdout.
// Setting LOG_DIR to "-" disables the file output.
func NewLogger(component string) *logrus.Logger {
	logger := logrus.New()

	logger.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: time.RFC3339,
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime: "time",
			logrus.FieldKeyMsg:  "msg",
		},
	})
	logger.SetLevel(parseLevel(os.Getenv("LOG_LEVEL")))

	dir := os.Getenv("LOG_DIR")
	if dir == "" {
		dir = defaultLogDir
	}
	if dir == "-" {
		logger.SetOutput(os.Stdout)
		return logger
	}

	writer, err := newComponentWriter(dir, component)
	if err != nil {
		logger.SetOutput(os.Stdout)
		logger.WithError(err).Warn("file logging disabled")
		return logger
	}
	logger.SetOutput(writer)
	logger.AddHook(NewConsoleHook())

	return logger
}

func newComponentWriter(dir, component string) (*AsyncFileWriter, error) {
	name := strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == '.' {
			return '_'
		}
		return r
	}, component)
	if name == "" {
		name = "inspector"
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create logs directory: %w", err)
	}
	return NewAsyncFileWriter(filepath.Join(dir, name+".log"), 32*1024)
}

func parseLevel(raw string) logrus.Level {
	level, err := logrus.ParseLevel(strings.TrimSpace(raw))
	if err != nil {
		return logrus.InfoLevel
	}
	return level
}
