// internal/lifecycle/controller.go
//
// Game lifecycle controller: owns the idle → active → ended → (restart)
// state machine for the single live round.
// Responsibilities:
//   - Create rounds and wire their tick loop and comment poller.
//   - Force-end the previous round before starting a new one (never two
//     active rounds, never an orphaned poller).
//   - Apply steering commands and record comments from both the HTTP API
//     and the ingestion poller.
//   - Auto-restart after game over so the stream stays playable 24/7.
//
// Concurrency: the in-memory round is mutated only inside store.WithRound
// critical sections, so a tick and a command application never interleave.
// Lifecycle transitions themselves are serialized by the controller mutex.
// Persistence is best-effort throughout — a dead database never stops play.

package lifecycle

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/chatplays/snakestream/internal/command"
	"github.com/chatplays/snakestream/internal/game"
	"github.com/chatplays/snakestream/internal/hub"
	"github.com/chatplays/snakestream/internal/ingest"
	"github.com/chatplays/snakestream/internal/store"
)

// DefaultRestartDelay is the pause between game over and the next round.
const DefaultRestartDelay = 2 * time.Second

const persistTimeout = 3 * time.Second

// Repo is the persistence collaborator. All calls are best-effort;
// the controller logs failures and plays on.
type Repo interface {
	CreateGame(ctx context.Context, r game.Round) error
	FinishGame(ctx context.Context, id string, score, level, moves int, duration time.Duration) error
	SaveComment(ctx context.Context, gameID string, c game.Comment) error
}

// Options tune the controller. Zero values pick the production defaults.
type Options struct {
	Source       ingest.Source // nil disables external comment polling
	PollInterval time.Duration
	RestartDelay time.Duration
	AutoRestart  bool
	TickInterval time.Duration // >0 overrides the level-based cadence
}

// Controller drives the lifecycle of the live round.
type Controller struct {
	store *store.Memory
	hub   *hub.Hub
	repo  Repo // may be nil
	opts  Options

	mu           sync.Mutex
	currentID    string
	finished     bool
	cancel       context.CancelFunc
	restartTimer *time.Timer
	restartGen   int // bumped on every explicit start/stop; stale timers check it
}

// New constructs a controller. repo may be nil (no persistence).
func New(st *store.Memory, h *hub.Hub, repo Repo, opts Options) *Controller {
	if opts.RestartDelay <= 0 {
		opts.RestartDelay = DefaultRestartDelay
	}
	return &Controller{store: st, hub: h, repo: repo, opts: opts}
}

// StartRound begins a new round, force-ending any round still active, and
// returns the new round's id.
func (c *Controller) StartRound() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.startLocked()
}

// startLocked is StartRound's body. Caller holds c.mu.
func (c *Controller) startLocked() string {
	c.restartGen++
	if c.restartTimer != nil {
		c.restartTimer.Stop()
		c.restartTimer = nil
	}
	c.finishLocked(c.currentID, false)

	r := game.NewRound()
	c.currentID = r.ID
	c.finished = false
	c.store.SetRound(r)

	if c.repo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		if err := c.repo.CreateGame(ctx, r.Clone()); err != nil {
			log.Warn().Err(err).Str("gameId", r.ID).Msg("persist new game")
		}
		cancel()
	}

	c.hub.Broadcast(hub.Event{Type: hub.EventGameStarted, Data: r.Clone()})
	log.Info().Str("gameId", r.ID).Msg("new game started")

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	go c.runTicks(ctx, r.ID, rng)
	if c.opts.Source != nil {
		p := ingest.NewPoller(c.opts.Source, c, r.ID, c.opts.PollInterval)
		go p.Run(ctx)
	}
	return r.ID
}

// Stop ends the current round without scheduling a restart. The generation
// bump also discards a restart timer that already fired but has not yet
// acquired the lock — Stop must win that race.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.restartGen++
	if c.restartTimer != nil {
		c.restartTimer.Stop()
		c.restartTimer = nil
	}
	c.finishLocked(c.currentID, false)
}

// restartRound runs from the auto-restart timer. gen was captured when the
// timer was scheduled; a mismatch means StartRound or Stop intervened and
// this restart is stale.
func (c *Controller) restartRound(gen int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.restartGen {
		return
	}
	c.startLocked()
}

// gameOver handles the transition triggered by the simulation.
func (c *Controller) gameOver(roundID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.finishLocked(roundID, true)
}

// finishLocked ends roundID if it is the current unfinished round: cancels
// its timers/pollers, broadcasts gameEnded, persists the result, and
// optionally schedules the auto-restart. Caller holds c.mu.
func (c *Controller) finishLocked(roundID string, scheduleRestart bool) {
	if roundID == "" || roundID != c.currentID || c.finished {
		return
	}
	c.finished = true
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}

	var final game.Round
	c.store.WithRound(func(r *game.Round) {
		r.IsActive = false
		final = r.Clone()
	})

	c.hub.Broadcast(hub.Event{Type: hub.EventGameEnded, Data: map[string]any{
		"gameId":     final.ID,
		"finalScore": final.Score,
		"level":      final.Level,
	}})
	log.Info().Str("gameId", final.ID).Int("score", final.Score).Int("level", final.Level).Msg("game ended")

	if c.repo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		dur := time.Since(final.StartedAt)
		if err := c.repo.FinishGame(ctx, final.ID, final.Score, final.Level, final.Moves, dur); err != nil {
			log.Warn().Err(err).Str("gameId", final.ID).Msg("persist finished game")
		}
		cancel()
	}

	if scheduleRestart && c.opts.AutoRestart {
		gen := c.restartGen
		c.restartTimer = time.AfterFunc(c.opts.RestartDelay, func() { c.restartRound(gen) })
	}
}

// runTicks advances the simulation until the round ends or is superseded.
// The round-id check inside each critical section discards stale loops.
func (c *Controller) runTicks(ctx context.Context, roundID string, rng *rand.Rand) {
	for {
		iv := c.opts.TickInterval
		if iv <= 0 {
			snap, ok := c.store.Snapshot()
			if !ok || snap.ID != roundID {
				return
			}
			iv = snap.TickInterval()
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(iv):
		}

		var res game.StepResult
		live := false
		c.store.WithRound(func(r *game.Round) {
			if r.ID != roundID || !r.IsActive {
				return
			}
			live = true
			res = r.Step(rng)
		})
		if !live {
			return
		}

		if res.GameOver {
			c.gameOver(roundID)
			return
		}
		if snap, ok := c.store.Snapshot(); ok && snap.ID == roundID {
			c.hub.Broadcast(hub.Event{Type: hub.EventGameState, Data: snap})
		}
	}
}

// RecordComment stores a comment in the bounded window, mirrors it to the
// database, and broadcasts it to viewers. Implements ingest.Sink.
func (c *Controller) RecordComment(cm game.Comment) {
	c.store.AppendComment(cm)

	if c.repo != nil {
		gameID := ""
		if snap, ok := c.store.Snapshot(); ok {
			gameID = snap.ID
		}
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		if err := c.repo.SaveComment(ctx, gameID, cm); err != nil {
			log.Warn().Err(err).Str("commentId", cm.ID).Msg("persist comment")
		}
		cancel()
	}

	c.hub.Broadcast(hub.Event{Type: hub.EventNewComment, Data: cm})
}

// ApplyCommand steers the identified round by a parsed comment.
// Rejected when the round is gone, inactive, or the command would reverse
// the snake into itself. Broadcasts commandReceived on success.
// Implements ingest.Sink.
func (c *Controller) ApplyCommand(roundID string, cm game.Comment) bool {
	if !cm.IsValid {
		return false
	}
	applied := false
	c.store.WithRound(func(r *game.Round) {
		if r.ID != roundID || !r.IsActive {
			return
		}
		applied = r.Steer(cm.Direction())
	})
	if !applied {
		return false
	}

	c.hub.Broadcast(hub.Event{Type: hub.EventCommandReceived, Data: map[string]any{
		"command":   cm.Command,
		"direction": strings.ToUpper(cm.Command),
		"comment":   cm,
	}})
	log.Info().Str("gameId", roundID).Str("direction", cm.Command).Str("user", cm.Username).Msg("command applied")
	return true
}

// SubmitComment handles a comment arriving through the HTTP API: build it,
// record it, and — when it parses and a round is live — steer the snake.
func (c *Controller) SubmitComment(username, text string) game.Comment {
	cm := command.NewComment("", username, text)
	c.RecordComment(cm)
	if cm.IsValid {
		if snap, ok := c.store.Snapshot(); ok && snap.IsActive {
			c.ApplyCommand(snap.ID, cm)
		}
	}
	return cm
}
