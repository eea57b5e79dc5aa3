// internal/game/engine.go
//
// Simulation step for a single snake round.
// Responsibilities:
//   - Create new rounds with the default snake/food/direction.
//   - Advance the snake one grid cell per tick, detect wall/self collisions.
//   - Grow the snake and respawn food on eat; track score and level.
//   - Apply steering with the no-instant-reversal guard.
//
// Notes:
//   - The engine is deterministic given the round state and the caller's RNG.
//   - Callers serialize all mutation; nothing here locks.

package game

import (
	"crypto/rand"
	"encoding/hex"
	mrand "math/rand"
	"time"
)

// Grid dimensions match the 800x600 canvas with 20px cells.
const (
	GridWidth  = 40
	GridHeight = 30
)

const (
	baseTick    = 300 * time.Millisecond
	minTick     = 100 * time.Millisecond
	tickPerLvl  = 20 * time.Millisecond
	foodPoints  = 10 // multiplied by the current level
	levelEveryN = 5  // level up each time length reaches a multiple of this
)

// NewRound constructs a fresh round in the canonical starting position:
// one-cell snake at (10,10), food at (15,15), heading right.
func NewRound() *Round {
	return &Round{
		ID:        randomID(),
		Snake:     []Cell{{X: 10, Y: 10}},
		Food:      Cell{X: 15, Y: 15},
		Direction: DirRight,
		Score:     0,
		Level:     1,
		IsActive:  true,
		StartedAt: time.Now().UTC(),
	}
}

// StepResult reports what happened during one tick.
type StepResult struct {
	Ate      bool
	GameOver bool
}

// Step advances the snake one cell in its current direction.
// On a wall or self collision the round is marked inactive and
// GameOver is set; the caller owns the resulting lifecycle transition.
func (r *Round) Step(rng *mrand.Rand) StepResult {
	if !r.IsActive || len(r.Snake) == 0 {
		return StepResult{}
	}

	head := r.Snake[0]
	switch r.Direction {
	case DirUp:
		head.Y--
	case DirDown:
		head.Y++
	case DirLeft:
		head.X--
	case DirRight:
		head.X++
	}

	// Wall collision.
	if head.X < 0 || head.X >= GridWidth || head.Y < 0 || head.Y >= GridHeight {
		r.IsActive = false
		return StepResult{GameOver: true}
	}

	// Self collision.
	for _, seg := range r.Snake {
		if seg == head {
			r.IsActive = false
			return StepResult{GameOver: true}
		}
	}

	r.Snake = append([]Cell{head}, r.Snake...)

	if head == r.Food {
		r.Score += foodPoints * r.Level
		if len(r.Snake)%levelEveryN == 0 {
			r.Level++
		}
		r.Food = r.spawnFood(rng)
		return StepResult{Ate: true}
	}

	// No food eaten: drop the tail to keep the length.
	r.Snake = r.Snake[:len(r.Snake)-1]
	return StepResult{}
}

// Steer sets a new direction if it is a real direction and not the exact
// reverse of the current heading. Returns true when applied.
func (r *Round) Steer(d Direction) bool {
	if !d.Valid() || d == r.Direction.Opposite() {
		return false
	}
	r.Direction = d
	r.Moves++
	return true
}

// TickInterval returns the simulation delay for the current level.
// Speed ramps up 20ms per level and bottoms out at 100ms.
func (r *Round) TickInterval() time.Duration {
	iv := baseTick - time.Duration(r.Level-1)*tickPerLvl
	if iv < minTick {
		iv = minTick
	}
	return iv
}

// Clone returns a deep copy safe to hand to readers and encoders.
func (r *Round) Clone() Round {
	cp := *r
	cp.Snake = make([]Cell, len(r.Snake))
	copy(cp.Snake, r.Snake)
	return cp
}

// spawnFood picks a random cell not occupied by the snake.
func (r *Round) spawnFood(rng *mrand.Rand) Cell {
	for {
		c := Cell{X: rng.Intn(GridWidth), Y: rng.Intn(GridHeight)}
		occupied := false
		for _, seg := range r.Snake {
			if seg == c {
				occupied = true
				break
			}
		}
		if !occupied {
			return c
		}
	}
}

// randomID returns a compact 16-hex-char identifier.
// Collisions are extremely unlikely given crypto/rand entropy.
func randomID() string {
	var b [8]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}
