// internal/command/parser.go
//
// Free-text comment parsing.
// Responsibilities:
//   - Turn an arbitrary chat comment into a directional command, or nothing.
//   - Build immutable game.Comment values from raw username/text pairs.
//
// Parsing policy: case-insensitive substring match, fixed priority order
// up > down > left > right; the first keyword found anywhere in the text
// wins. This is deliberately permissive — "pump it up!" steers up. Total
// over any input, including the empty string.

package command

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"

	"github.com/chatplays/snakestream/internal/game"
)

// Invalid is the Comment.Command value for comments with no directional keyword.
const Invalid = "invalid"

// AnonymousUser is used when a comment arrives with no username.
const AnonymousUser = "Anonymous"

// keyword check order is fixed; earlier entries win on ambiguous text.
var keywords = []game.Direction{game.DirUp, game.DirDown, game.DirLeft, game.DirRight}

// Parse extracts a direction from free text.
// Returns (direction, true) if a keyword is present, ("", false) otherwise.
func Parse(text string) (game.Direction, bool) {
	lower := strings.ToLower(strings.TrimSpace(text))
	for _, d := range keywords {
		if strings.Contains(lower, string(d)) {
			return d, true
		}
	}
	return "", false
}

// NewComment builds a Comment from raw input, parsing the command eagerly.
// An empty id gets a generated one; an empty username becomes AnonymousUser.
// The returned value is complete and never mutated afterwards.
func NewComment(id, username, text string) game.Comment {
	if id == "" {
		id = genID()
	}
	if strings.TrimSpace(username) == "" {
		username = AnonymousUser
	}
	c := game.Comment{
		ID:           id,
		Username:     username,
		OriginalText: text,
		Command:      Invalid,
		CreatedAt:    time.Now().UTC(),
	}
	if d, ok := Parse(text); ok {
		c.Command = string(d)
		c.IsValid = true
	}
	return c
}

// genID returns a compact 16-hex-char crypto-random identifier.
func genID() string {
	var b [8]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}
