// Package simulate drives a running encore server with a synthetic crowd:
// virtual attendees submit, rank, reorder and poll, and the final snapshot
// is checked against the engine's ordering invariants.
package simulate

import "time"

// Default simulation constants.
const (
	defaultAttendees = 25
	defaultSongs     = 30
	defaultRounds    = 5
	defaultTimeout   = 10 * time.Second
)

// Config controls one simulation run.
type Config struct {
	// BaseURL of the target server, e.g. http://localhost:9090.
	BaseURL string
	// Attendees is the number of virtual attendees.
	Attendees int
	// Songs is the number of song requests submitted up front.
	Songs int
	// Rounds of mutate-then-refresh cycles to run.
	Rounds int
	// Timeout for individual HTTP requests.
	Timeout time.Duration
	// Verbose enables per-attendee logging.
	Verbose bool
}

// withDefaults fills zero fields.
func (c *Config) withDefaults() {
	if c.Attendees <= 0 {
		c.Attendees = defaultAttendees
	}
	if c.Songs <= 0 {
		c.Songs = defaultSongs
	}
	if c.Rounds <= 0 {
		c.Rounds = defaultRounds
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
}
