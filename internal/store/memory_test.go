package store

import (
	"fmt"
	"testing"

	"github.com/chatplays/snakestream/internal/game"
)

func comment(i int) game.Comment {
	return game.Comment{ID: fmt.Sprintf("c%d", i), Username: "u", OriginalText: "up", Command: "up", IsValid: true}
}

func TestRecentCommentsOrderAndLimit(t *testing.T) {
	m := NewMemory(10)
	for i := 0; i < 5; i++ {
		m.AppendComment(comment(i))
	}

	got := m.RecentComments(3)
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	// Most recent first.
	for i, want := range []string{"c4", "c3", "c2"} {
		if got[i].ID != want {
			t.Errorf("got[%d].ID = %q, want %q", i, got[i].ID, want)
		}
	}

	if n := len(m.RecentComments(100)); n != 5 {
		t.Errorf("limit beyond size returned %d, want 5", n)
	}
}

func TestAppendCommentEvictsOldest(t *testing.T) {
	m := NewMemory(3)
	for i := 0; i < 5; i++ {
		m.AppendComment(comment(i))
	}
	got := m.RecentComments(10)
	if len(got) != 3 {
		t.Fatalf("len = %d, want capacity 3", len(got))
	}
	for i, want := range []string{"c4", "c3", "c2"} {
		if got[i].ID != want {
			t.Errorf("got[%d].ID = %q, want %q", i, got[i].ID, want)
		}
	}
}

func TestSnapshotDeepCopies(t *testing.T) {
	m := NewMemory(0)
	if _, ok := m.Snapshot(); ok {
		t.Fatal("empty store reported a round")
	}

	m.SetRound(game.NewRound())
	snap, ok := m.Snapshot()
	if !ok {
		t.Fatal("expected a round")
	}

	// Mutating the snapshot must not leak into the stored round.
	snap.Snake[0].X = 999
	again, _ := m.Snapshot()
	if again.Snake[0].X == 999 {
		t.Error("snapshot shares snake backing array with stored round")
	}
}

func TestWithRoundAtomicMutation(t *testing.T) {
	m := NewMemory(0)
	if m.WithRound(func(r *game.Round) {}) {
		t.Fatal("WithRound ran with no round stored")
	}

	m.SetRound(game.NewRound())
	ok := m.WithRound(func(r *game.Round) {
		r.Score = 42
		r.Level = 3
	})
	if !ok {
		t.Fatal("WithRound did not run")
	}
	snap, _ := m.Snapshot()
	if snap.Score != 42 || snap.Level != 3 {
		t.Errorf("mutation lost: score=%d level=%d", snap.Score, snap.Level)
	}
}
