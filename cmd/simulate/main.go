package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/okian/encore/internal/simulate"
	"github.com/okian/encore/pkg/logger"
)

// Default simulation constants.
const (
	defaultAttendees  = 25
	defaultSongs      = 30
	defaultRounds     = 5
	defaultTimeout    = 10 * time.Second
	defaultRunTimeout = 5 * time.Minute
)

func main() {
	var (
		baseURL   = flag.String("url", "http://localhost:9090", "Base URL of the service")
		attendees = flag.Int("attendees", defaultAttendees, "Number of virtual attendees")
		songs     = flag.Int("songs", defaultSongs, "Number of song requests to submit")
		rounds    = flag.Int("rounds", defaultRounds, "Number of mutate-and-refresh rounds")
		timeout   = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		verbose   = flag.Bool("verbose", false, "Enable verbose logging")
	)
	flag.Parse()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	cfg := &simulate.Config{
		BaseURL:   *baseURL,
		Attendees: *attendees,
		Songs:     *songs,
		Rounds:    *rounds,
		Timeout:   *timeout,
		Verbose:   *verbose,
	}

	if err := simulate.Run(ctx, cfg); err != nil {
		os.Stderr.WriteString("simulation failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}
