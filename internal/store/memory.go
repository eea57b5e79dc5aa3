// internal/store/memory.go
//
// In-memory game state store: the single authoritative live round plus a
// bounded ring of recent comments. This is the process's source of truth for
// live play; the SQLite repository is best-effort and mirrors it.
//
// Characteristics:
//   - At most one round at a time; replaced wholesale on restart.
//   - Comment ring holds the most recent N comments (FIFO eviction).
//   - Concurrency-safe via RWMutex. Composite round mutations go through
//     WithRound so a tick and a steering command can never interleave.
//   - State is lost when the process restarts.

package store

import (
	"sync"

	"github.com/chatplays/snakestream/internal/game"
)

// DefaultMaxComments bounds the retained comment window.
const DefaultMaxComments = 100

// Memory is the in-process store for the live round and recent comments.
type Memory struct {
	mu          sync.RWMutex
	round       *game.Round
	comments    []game.Comment // oldest first; evicted from the front
	maxComments int
}

// NewMemory constructs a store retaining up to maxComments comments.
// maxComments <= 0 falls back to DefaultMaxComments.
func NewMemory(maxComments int) *Memory {
	if maxComments <= 0 {
		maxComments = DefaultMaxComments
	}
	return &Memory{maxComments: maxComments}
}

// SetRound replaces the stored round (nil clears it).
func (m *Memory) SetRound(r *game.Round) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.round = r
}

// Snapshot returns a deep copy of the current round, if any.
// The copy is safe to encode or inspect without further locking.
func (m *Memory) Snapshot() (game.Round, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.round == nil {
		return game.Round{}, false
	}
	return m.round.Clone(), true
}

// WithRound runs fn on the stored round under the write lock, making the
// whole of fn one atomic state transition. Returns false (fn not called)
// when no round is stored.
func (m *Memory) WithRound(fn func(r *game.Round)) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.round == nil {
		return false
	}
	fn(m.round)
	return true
}

// AppendComment inserts a comment, evicting the oldest beyond capacity.
func (m *Memory) AppendComment(c game.Comment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.comments = append(m.comments, c)
	if n := len(m.comments) - m.maxComments; n > 0 {
		m.comments = append(m.comments[:0:0], m.comments[n:]...)
	}
}

// RecentComments returns up to limit comments, most recent first.
// limit <= 0 means "as many as retained".
func (m *Memory) RecentComments(limit int) []game.Comment {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := len(m.comments)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]game.Comment, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, m.comments[i])
	}
	return out
}
