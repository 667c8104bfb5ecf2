package logger

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// ConsoleHook mirrors entries on the terminal. Warnings and above go to stderr.
type ConsoleHook struct {
	stdout io.Writer
	stderr io.Writer
}

func NewConsoleHook() *ConsoleHook {
	return &ConsoleHook{stdout: os.Stdout, stderr: os.Stderr}
}

func (h *ConsoleHook) Fire(entry *logrus.Entry) error {
	line, err := entry.Logger.Formatter.Format(entry)
	if err != nil {
		return err
	}
	out := h.stdout
	if entry.Level <= logrus.WarnLevel {
		out = h.stderr
	}
	_, err = out.Write(line)
	return err
}

func (h *ConsoleHook) Levels() []logrus.Level {
	return logrus.AllLevels
}
