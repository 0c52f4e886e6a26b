package simulate

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/okian/rollbot/pkg/logger"
)

const logFilePermission = 0o600

// SetupLogging initialises the logger to write to stdout and a log file.
// An empty logFile gets a timestamped name.
func SetupLogging(format, logFile string) (func() error, error) {
	if logFile == "" {
		logFile = "simulate_" + time.Now().Format("20060102_150405") + ".log"
	}
	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}
	if err := logger.Init(logger.WithFormat(format), logger.WithOutput(io.MultiWriter(os.Stdout, file))); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return file.Close, nil
}

// ShowHelp prints usage information for the simulator.
func ShowHelp() {
	_, _ = os.Stdout.WriteString(`rollbot simulator
=================

Drives a running rollbot over HTTP and checks the resulting economy.

Usage:
  go run ./cmd/simulate [options]

Options:
  -url string        Base URL of the service (default "http://localhost:9080")
  -channel string    Channel id the simulated users talk in (default "sim")
  -users int         Number of simulated users (default 20)
  -rolls int         $roll commands per user (default 8)
  -top int           Users fetched from the leaderboard (default 50)
  -workers int       Concurrent submitters (default CPU cores * 2)
  -timeout duration  HTTP request timeout (default 10s)
  -settle duration   Outbox quiet period treated as done (default 2s)
  -log string        Log file (default: simulate_TIMESTAMP.log)
  -verbose           Debug logging
  -help              Show this help message

The service must run with the outbox messenger and accept the channel.
`)
}
