package command

import (
	"testing"

	"github.com/chatplays/snakestream/internal/game"
)

func TestParseDirections(t *testing.T) {
	cases := []struct {
		text string
		want game.Direction
		ok   bool
	}{
		{"up", game.DirUp, true},
		{"DOWN", game.DirDown, true},
		{"please go left", game.DirLeft, true},
		{"please go right!!", game.DirRight, true},
		{"  Right  ", game.DirRight, true},
		// Substring matching is deliberate: "pump" contains "up".
		{"pump it up!", game.DirUp, true},
		{"DOWNTOWN", game.DirDown, true},
		// Priority order: up wins over right when both appear.
		{"up and to the right", game.DirUp, true},
		{"hello friends", "", false},
		{"", "", false},
		{"   ", "", false},
	}
	for _, c := range cases {
		got, ok := Parse(c.text)
		if ok != c.ok || got != c.want {
			t.Errorf("Parse(%q) = (%q, %v), want (%q, %v)", c.text, got, ok, c.want, c.ok)
		}
	}
}

func TestNewCommentValid(t *testing.T) {
	c := NewComment("abc", "alice", "go right")
	if c.ID != "abc" {
		t.Errorf("ID = %q, want abc", c.ID)
	}
	if !c.IsValid || c.Command != "right" {
		t.Errorf("got command=%q valid=%v, want right/true", c.Command, c.IsValid)
	}
	if c.Username != "alice" {
		t.Errorf("Username = %q", c.Username)
	}
	if c.CreatedAt.IsZero() {
		t.Error("CreatedAt not set")
	}
}

func TestNewCommentInvalid(t *testing.T) {
	c := NewComment("", "", "hello friends")
	if c.IsValid || c.Command != Invalid {
		t.Errorf("got command=%q valid=%v, want invalid/false", c.Command, c.IsValid)
	}
	if c.Username != AnonymousUser {
		t.Errorf("Username = %q, want %q", c.Username, AnonymousUser)
	}
	if c.ID == "" {
		t.Error("expected a generated id")
	}
}

func TestNewCommentIDsUnique(t *testing.T) {
	a := NewComment("", "x", "up")
	b := NewComment("", "x", "up")
	if a.ID == b.ID {
		t.Errorf("generated ids collide: %q", a.ID)
	}
}
