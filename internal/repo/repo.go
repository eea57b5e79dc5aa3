// internal/repo/repo.go
//
// SQLite repository for rounds, comments, high scores, and aggregate stats.
// This is the durable mirror of the in-memory store: every write here is
// best-effort from the game's point of view — callers log failures and the
// round keeps running (the in-memory state is the source of truth for live
// play).
//
// Schema lives in ./sql and is applied by the migration runner in db.go.

package repo

import (
	"context"
	"database/sql"
	"time"

	"github.com/chatplays/snakestream/internal/game"
)

// Repo wraps the database handle.
type Repo struct {
	db *sql.DB
}

// New constructs a repository over an opened, migrated database.
func New(db *sql.DB) *Repo { return &Repo{db: db} }

// CreateGame inserts the row for a freshly started round and bumps the
// aggregate games counter.
func (r *Repo) CreateGame(ctx context.Context, g game.Round) error {
	now := time.Now().UTC().Format(time.RFC3339)
	if _, err := r.db.ExecContext(ctx, `
		INSERT INTO games (id, score, level, duration, moves, is_active, created_at)
		VALUES (?, 0, 1, 0, 0, 1, ?)`, g.ID, now); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, `
		UPDATE game_stats SET total_games = total_games + 1, updated_at = ?`, now)
	return err
}

// FinishGame closes out a round: final score/level/duration, the high-score
// row, and the rolling average score. Runs in one transaction.
func (r *Repo) FinishGame(ctx context.Context, id string, score, level, moves int, duration time.Duration) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC().Format(time.RFC3339)
	if _, err := tx.ExecContext(ctx, `
		UPDATE games SET score=?, level=?, duration=?, moves=?, is_active=0, ended_at=?
		WHERE id=?`, score, level, int(duration.Seconds()), moves, now, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO high_scores (id, game_id, player_name, score, level, created_at)
		VALUES (?, ?, 'chat', ?, ?, ?)`, id+"-hs", id, score, level, now); err != nil {
		return err
	}
	// Rolling average over finished rounds.
	if _, err := tx.ExecContext(ctx, `
		UPDATE game_stats SET
		  average_score = COALESCE((SELECT CAST(AVG(score) AS INTEGER) FROM games WHERE ended_at IS NOT NULL), 0),
		  updated_at = ?`, now); err != nil {
		return err
	}
	return tx.Commit()
}

// SaveComment mirrors one comment, attached to the round it arrived during
// (gameID may be empty when no round was live). Re-inserting the same source
// id is a no-op, matching the ingestion de-duplication.
func (r *Repo) SaveComment(ctx context.Context, gameID string, c game.Comment) error {
	var gid any
	if gameID != "" {
		gid = gameID
	}
	if _, err := r.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO comments (id, game_id, username, command, original_text, is_valid, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, gid, c.Username, c.Command, c.OriginalText, boolToInt(c.IsValid),
		c.CreatedAt.UTC().Format(time.RFC3339)); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, `
		UPDATE game_stats SET total_comments = total_comments + 1, updated_at = ?`,
		time.Now().UTC().Format(time.RFC3339))
	return err
}

// Stats is the aggregate row shape served by GET /api/stats.
type Stats struct {
	TotalGames    int `json:"totalGames"`
	TotalComments int `json:"totalComments"`
	AverageScore  int `json:"averageScore"`
}

// Stats reads the aggregate counters.
func (r *Repo) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	err := r.db.QueryRowContext(ctx, `
		SELECT total_games, total_comments, average_score FROM game_stats LIMIT 1`).
		Scan(&s.TotalGames, &s.TotalComments, &s.AverageScore)
	if err == sql.ErrNoRows {
		return Stats{}, nil
	}
	return s, err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
