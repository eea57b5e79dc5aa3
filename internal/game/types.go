// internal/game/types.go
//
// Core type definitions for the snake game.
// Defines:
//   - Direction: one of the four grid directions a comment can steer the snake.
//   - Cell: a single grid coordinate.
//   - Round: state for the single live play session.
//   - Comment: one ingested chat comment with its parsed command.

package game

import "time"

// Direction is a snake movement direction. Valid values are the Dir*
// constants; the zero value is not a direction.
type Direction string

const (
	DirUp    Direction = "up"
	DirDown  Direction = "down"
	DirLeft  Direction = "left"
	DirRight Direction = "right"
)

// Opposite returns the geometrically opposite direction.
// Steering into the opposite of the current direction would reverse the
// snake into its own body, so callers reject it.
func (d Direction) Opposite() Direction {
	switch d {
	case DirUp:
		return DirDown
	case DirDown:
		return DirUp
	case DirLeft:
		return DirRight
	case DirRight:
		return DirLeft
	}
	return ""
}

// Valid reports whether d is one of the four directions.
func (d Direction) Valid() bool {
	switch d {
	case DirUp, DirDown, DirLeft, DirRight:
		return true
	}
	return false
}

// Cell is one grid square. Origin is the top-left corner; Y grows downward
// (canvas convention, matched by the frontend renderer).
type Cell struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Round holds the state of the single live game session. The JSON shape is
// the wire shape pushed to viewers in "gameState"/"gameStarted" events.
//
// Invariants (maintained by Step/Steer, serialized by the store's lock):
//   - Snake is head-first, length >= 1, no duplicate cells.
//   - Food never coincides with a snake cell.
//   - Score and Level are monotonically non-decreasing within a round.
type Round struct {
	ID        string    `json:"gameId"`
	Snake     []Cell    `json:"snake"`
	Food      Cell      `json:"food"`
	Direction Direction `json:"direction"`
	Score     int       `json:"score"`
	Level     int       `json:"level"`
	Moves     int       `json:"moves"`
	IsActive  bool      `json:"isActive"`

	StartedAt time.Time `json:"-"` // for the persisted round duration
}

// Comment is one ingested chat/comment event. Immutable once built:
// Command and IsValid never change after parsing.
type Comment struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	OriginalText string    `json:"originalText"`
	Command      string    `json:"command"` // a Direction value, or "invalid"
	IsValid      bool      `json:"isValid"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Direction returns the parsed command as a Direction.
// Only meaningful when IsValid is true.
func (c Comment) Direction() Direction { return Direction(c.Command) }
