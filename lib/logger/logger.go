package logger

import (
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"

	logFileName = "refgate.log"
)

// SetupLogger builds the process logger: text to stdout for local, to
// logDir/refgate.log otherwise. Exits on failure.
func SetupLogger(env, logDir string) *slog.Logger {
	var out io.Writer = os.Stdout
	if env != envLocal {
		logPath := filepath.Join(logDir, logFileName)
		logFile, err := os.OpenFile(logPath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
		if err != nil {
			log.Fatal("error opening log file: ", err)
		}
		log.Printf("env: %s; log file: %s", env, logPath)
		out = logFile
	}

	handler, err := NewHandler(env, out)
	if err != nil {
		log.Fatal(err)
	}
	return slog.New(handler)
}

func NewHandler(env string, out io.Writer) (slog.Handler, error) {
	switch env {
	case envLocal, envDev:
		return slog.NewTextHandler(out, &slog.HandlerOptions{Level: slog.LevelDebug}), nil
	case envProd:
		return slog.NewTextHandler(out, &slog.HandlerOptions{Level: slog.LevelInfo}), nil
	default:
		return nil, fmt.Errorf("invalid environment: %s", env)
	}
}

// ParseLevel maps debug/info/warn/error to a slog level; anything else is error.
func ParseLevel(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelError
	}
	return l
}
