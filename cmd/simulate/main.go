package main

import (
	"context"
	"flag"
	"os"
	"runtime"

	"github.com/okian/rollbot/internal/simulate"
	"github.com/okian/rollbot/pkg/logger"
)

const defaultWorkers = 2 // multiplier for runtime.NumCPU()

func main() {
	var (
		baseURL = flag.String("url", "http://localhost:9080", "Base URL of the service")
		channel = flag.String("channel", "sim", "Channel id the simulated users talk in")
		users   = flag.Int("users", simulate.DefaultUsers, "Number of simulated users")
		rolls   = flag.Int("rolls", simulate.DefaultRolls, "$roll commands per user")
		topN    = flag.Int("top", simulate.DefaultTopN, "Users fetched from the leaderboard")
		workers = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Concurrent submitters")
		timeout = flag.Duration("timeout", simulate.DefaultTimeout, "HTTP request timeout")
		settle  = flag.Duration("settle", simulate.DefaultSettle, "Outbox quiet period treated as done")
		logFile = flag.String("log", "", "Log file (default: simulate_TIMESTAMP.log)")
		verbose = flag.Bool("verbose", false, "Enable debug logging")
		help    = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		simulate.ShowHelp()
		return
	}

	closeLog, err := simulate.SetupLogging("text", *logFile)
	if err != nil {
		_, _ = os.Stderr.WriteString("failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = closeLog() }()
	if *verbose {
		_ = logger.SetLevelString("debug")
	}

	ctx, cancel := context.WithTimeout(context.Background(), simulate.DefaultMaxWait*3)
	defer cancel()

	_, err = simulate.Run(ctx, &simulate.Config{
		BaseURL:   *baseURL,
		ChannelID: *channel,
		Users:     *users,
		Rolls:     *rolls,
		TopN:      *topN,
		Workers:   *workers,
		Timeout:   *timeout,
		Settle:    *settle,
		MaxWait:   simulate.DefaultMaxWait,
		Verbose:   *verbose,
	})
	if err != nil {
		logger.Get().Error(ctx, "simulation failed", logger.Error(err))
		_ = closeLog()
		os.Exit(1)
	}
}
