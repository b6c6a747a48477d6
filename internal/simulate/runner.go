package simulate

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/okian/encore/pkg/logger"
)

// Stats collects aggregate counters over one run.
type Stats struct {
	StartTime         time.Time
	EndTime           time.Time
	Duration          time.Duration
	RequestsSubmitted int
	RankActions       int
	ReorderActions    int
	RemoveActions     int
	Polls             int
	Failures          int
}

// Run executes a complete crowd simulation against a running server.
func Run(ctx context.Context, cfg *Config) error {
	cfg.withDefaults()
	stats := &Stats{StartTime: time.Now()}
	log := logger.Get()

	log.Info(ctx, "starting crowd simulation",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("attendees", cfg.Attendees),
		logger.Int("songs", cfg.Songs),
		logger.Int("rounds", cfg.Rounds),
		logger.String("timeout", cfg.Timeout.String()))

	c := newClient(cfg.BaseURL, cfg.Timeout)

	ev, err := c.createEvent(ctx, "simulated night "+time.Now().Format("2006-01-02 15:04:05"))
	if err != nil {
		return fmt.Errorf("create event: %w", err)
	}
	log.Info(ctx, "event created", logger.String("eventID", ev.ID))

	requestIDs, err := submitCatalog(ctx, c, ev.ID, cfg, stats)
	if err != nil {
		return fmt.Errorf("submit catalog: %w", err)
	}

	attendees := make([]*attendee, cfg.Attendees)
	for i := range attendees {
		attendees[i] = &attendee{
			id:  uuid.NewString(),
			rng: rand.New(rand.NewSource(int64(i) + 1)),
		}
	}

	depth := ev.Settings.RankingDepth
	for round := 0; round < cfg.Rounds; round++ {
		for _, a := range attendees {
			if err := a.act(ctx, c, ev.ID, requestIDs, depth, stats); err != nil {
				stats.Failures++
				if cfg.Verbose {
					log.Warn(ctx, "attendee action failed",
						logger.String("attendeeID", a.id), logger.Error(err))
				}
			}
		}

		view, err := c.rankings(ctx, ev.ID)
		if err != nil {
			return fmt.Errorf("poll round %d: %w", round, err)
		}
		stats.Polls++
		if cfg.Verbose {
			log.Info(ctx, "round complete",
				logger.Int("round", round),
				logger.Int("participants", view.TotalParticipants),
				logger.Any("activated", view.Activated),
				logger.Int("hiddenGems", len(view.HiddenGems)))
		}
	}

	final, err := c.refresh(ctx, ev.ID)
	if err != nil {
		return fmt.Errorf("final refresh: %w", err)
	}
	if err := Verify(final); err != nil {
		return fmt.Errorf("verification failed: %w", err)
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)

	log.Info(ctx, "simulation completed",
		logger.Int("requestsSubmitted", stats.RequestsSubmitted),
		logger.Int("rankActions", stats.RankActions),
		logger.Int("reorderActions", stats.ReorderActions),
		logger.Int("removeActions", stats.RemoveActions),
		logger.Int("polls", stats.Polls),
		logger.Int("failures", stats.Failures),
		logger.Int("participants", final.TotalParticipants),
		logger.Any("activated", final.Activated),
		logger.String("duration", stats.Duration.String()))
	return nil
}

// submitCatalog creates the song request pool for the event.
func submitCatalog(ctx context.Context, c *client, eventID string, cfg *Config, stats *Stats) ([]string, error) {
	ids := make([]string, 0, cfg.Songs)
	for i := 0; i < cfg.Songs; i++ {
		req, err := c.submitRequest(ctx, eventID,
			fmt.Sprintf("Track %02d", i+1),
			fmt.Sprintf("Artist %02d", i%7+1))
		if err != nil {
			return nil, err
		}
		ids = append(ids, req.ID)
		stats.RequestsSubmitted++
	}
	return ids, nil
}

// attendee is one virtual crowd member with a private action stream.
type attendee struct {
	id     string
	rng    *rand.Rand
	ranked []string
}

// act performs one randomized mutation for the attendee: add a song while
// under the depth cap, otherwise shuffle or drop one.
func (a *attendee) act(ctx context.Context, c *client, eventID string, pool []string, depth int, stats *Stats) error {
	switch {
	case len(a.ranked) < depth && a.rng.Intn(10) < 7:
		candidate := pool[a.rng.Intn(len(pool))]
		if a.contains(candidate) {
			return nil
		}
		if err := c.addToRanking(ctx, eventID, a.id, candidate); err != nil {
			return err
		}
		a.ranked = append(a.ranked, candidate)
		stats.RankActions++
	case len(a.ranked) >= 2 && a.rng.Intn(10) < 7:
		shuffled := append([]string(nil), a.ranked...)
		a.rng.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})
		if err := c.reorder(ctx, eventID, a.id, shuffled); err != nil {
			return err
		}
		a.ranked = shuffled
		stats.ReorderActions++
	case len(a.ranked) > 0:
		i := a.rng.Intn(len(a.ranked))
		victim := a.ranked[i]
		if err := c.removeFromRanking(ctx, eventID, a.id, victim); err != nil {
			return err
		}
		a.ranked = append(a.ranked[:i], a.ranked[i+1:]...)
		stats.RemoveActions++
	}
	return nil
}

func (a *attendee) contains(id string) bool {
	for _, r := range a.ranked {
		if r == id {
			return true
		}
	}
	return false
}
