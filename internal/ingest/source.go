// internal/ingest/source.go
//
// HTTP client for the external comment source.
// The upstream contract is loose: replies are fetched by token/mint
// identifier and every field of a reply may be absent or spelled
// differently across API versions (text vs content, username vs
// user.username, created_at vs timestamp). Normalization happens here so
// the poller only ever sees complete SourceComment values.

package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const fetchTimeout = 5 * time.Second

// SourceComment is one normalized upstream reply.
type SourceComment struct {
	ID        string
	Username  string
	Text      string
	CreatedAt time.Time
}

// Source fetches the latest replies for the configured token.
type Source interface {
	Fetch(ctx context.Context, limit int) ([]SourceComment, error)
}

// HTTPSource talks to the real comment API.
type HTTPSource struct {
	baseURL string
	mint    string
	client  *http.Client
}

// NewHTTPSource builds a source for GET {baseURL}/replies/{mint}?limit=n.
func NewHTTPSource(baseURL, mint string) *HTTPSource {
	return &HTTPSource{
		baseURL: baseURL,
		mint:    mint,
		client:  &http.Client{Timeout: fetchTimeout},
	}
}

// rawReply mirrors the union of field spellings seen upstream.
type rawReply struct {
	ID        json.RawMessage `json:"id"` // string or number
	Text      string          `json:"text"`
	Content   string          `json:"content"`
	Username  string          `json:"username"`
	User      struct {
		Username string `json:"username"`
	} `json:"user"`
	CreatedAt string          `json:"created_at"`
	Timestamp json.RawMessage `json:"timestamp"` // RFC3339 string or unix millis
}

// Fetch retrieves and normalizes up to limit replies.
// Any transport, status, or decode problem is returned as an error; callers
// treat every error as recoverable.
func (s *HTTPSource) Fetch(ctx context.Context, limit int) ([]SourceComment, error) {
	u := fmt.Sprintf("%s/replies/%s?limit=%d", s.baseURL, url.PathEscape(s.mint), limit)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	res, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, 4096))
		return nil, fmt.Errorf("comment source: unexpected status %d", res.StatusCode)
	}

	var raw []rawReply
	if err := json.NewDecoder(res.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("comment source: decode: %w", err)
	}

	out := make([]SourceComment, 0, len(raw))
	for _, r := range raw {
		sc := normalize(r)
		if sc.Text == "" {
			continue // nothing to parse, nothing to show
		}
		out = append(out, sc)
	}
	return out, nil
}

// normalize flattens a raw reply into a SourceComment, synthesizing an id
// when the upstream omits one so de-duplication still works.
func normalize(r rawReply) SourceComment {
	sc := SourceComment{
		ID:       rawToString(r.ID),
		Username: r.Username,
		Text:     r.Text,
	}
	if sc.Text == "" {
		sc.Text = r.Content
	}
	if sc.Username == "" {
		sc.Username = r.User.Username
	}
	sc.CreatedAt = parseTimestamp(r.CreatedAt, r.Timestamp)
	if sc.ID == "" {
		sc.ID = syntheticID(sc.Username, sc.Text)
	}
	return sc
}

// rawToString accepts upstream ids that arrive as strings or numbers.
func rawToString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

// parseTimestamp tries created_at (RFC3339) first, then timestamp as either
// an RFC3339 string or unix milliseconds. Falls back to now.
func parseTimestamp(createdAt string, ts json.RawMessage) time.Time {
	if createdAt != "" {
		if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
			return t
		}
	}
	if len(ts) > 0 {
		var s string
		if err := json.Unmarshal(ts, &s); err == nil {
			if t, err := time.Parse(time.RFC3339, s); err == nil {
				return t
			}
		}
		var ms int64
		if err := json.Unmarshal(ts, &ms); err == nil && ms > 0 {
			return time.UnixMilli(ms).UTC()
		}
	}
	return time.Now().UTC()
}

// syntheticID derives a stable id from the comment contents.
func syntheticID(username, text string) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(username))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(text))
	return "synth-" + strconv.FormatUint(h.Sum64(), 16)
}
