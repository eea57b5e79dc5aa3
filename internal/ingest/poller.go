// internal/ingest/poller.go
//
// Polls the external comment source for one round and feeds new replies
// through the parser into the live game.
//
// Policies (all deliberate):
//   - Fixed cadence, no backoff: the upstream is flaky and the stream must
//     keep trying; a failed poll is logged and the next one happens on time.
//   - De-duplication by source id across the round's lifetime.
//   - At most ONE direction change is applied per poll, even when several
//     new valid commands arrive together — prevents the snake thrashing.
//   - Every new reply is recorded and broadcast as a comment regardless of
//     whether its command was applied.
//
// The poller is created per round and stops when its context is cancelled;
// a late response for a superseded round is discarded by the sink's
// round-id check, not here.

package ingest

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/chatplays/snakestream/internal/command"
	"github.com/chatplays/snakestream/internal/game"
)

// DefaultInterval is the poll cadence when none is configured.
const DefaultInterval = 3 * time.Second

const fetchLimit = 50

// Sink receives parsed comments. Implemented by the lifecycle controller.
type Sink interface {
	// RecordComment stores and broadcasts a comment.
	RecordComment(c game.Comment)
	// ApplyCommand steers the round identified by roundID.
	// Returns false when the round is gone or the steer was rejected.
	ApplyCommand(roundID string, c game.Comment) bool
}

// Poller drives ingestion for a single round.
type Poller struct {
	src      Source
	sink     Sink
	roundID  string
	interval time.Duration
	seen     map[string]struct{}
}

// NewPoller builds a poller bound to one round. interval <= 0 uses
// DefaultInterval.
func NewPoller(src Source, sink Sink, roundID string, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Poller{
		src:      src,
		sink:     sink,
		roundID:  roundID,
		interval: interval,
		seen:     make(map[string]struct{}),
	}
}

// Run polls until ctx is cancelled. Blocking; callers run it in a goroutine.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	log.Info().Str("gameId", p.roundID).Dur("interval", p.interval).Msg("comment polling started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("gameId", p.roundID).Msg("comment polling stopped")
			return
		case <-ticker.C:
			p.pollOnce(ctx)
		}
	}
}

// pollOnce performs a single fetch-parse-apply pass. Never panics or
// returns an error: every upstream failure degrades to "no new command
// this interval".
func (p *Poller) pollOnce(ctx context.Context) {
	replies, err := p.src.Fetch(ctx, fetchLimit)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		log.Warn().Err(err).Str("gameId", p.roundID).Msg("comment poll failed; retrying next interval")
		return
	}

	applied := false
	for _, r := range replies {
		if _, dup := p.seen[r.ID]; dup {
			continue
		}
		p.seen[r.ID] = struct{}{}

		c := command.NewComment(r.ID, r.Username, r.Text)
		if !r.CreatedAt.IsZero() {
			c.CreatedAt = r.CreatedAt
		}
		p.sink.RecordComment(c)

		if c.IsValid && !applied && p.sink.ApplyCommand(p.roundID, c) {
			applied = true
		}
	}
}
