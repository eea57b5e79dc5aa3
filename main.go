package main

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/chatplays/snakestream/internal/httpserver"
	"github.com/chatplays/snakestream/internal/hub"
	"github.com/chatplays/snakestream/internal/ingest"
	"github.com/chatplays/snakestream/internal/lifecycle"
	"github.com/chatplays/snakestream/internal/repo"
	"github.com/chatplays/snakestream/internal/store"
)

func main() {
	_ = godotenv.Load()
	if lvl, err := zerolog.ParseLevel(getEnv("LOG_LEVEL", "info")); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	db, err := openDB(getEnv("DB_PATH", "./data/app.db"))
	if err != nil {
		log.Fatal().Err(err).Msg("open database")
	}
	if err := migrate(db); err != nil {
		log.Fatal().Err(err).Msg("apply migrations")
	}

	st := store.NewMemory(store.DefaultMaxComments)
	h := hub.New(func() (hub.Event, bool) {
		snap, ok := st.Snapshot()
		if !ok {
			return hub.Event{}, false
		}
		return hub.Event{Type: hub.EventGameState, Data: snap}, true
	})
	rp := repo.New(db)

	// The external comment source is optional; without it the game is
	// driven purely by POST /api/comments.
	var src ingest.Source
	if base := os.Getenv("COMMENT_SOURCE_URL"); base != "" {
		mint := os.Getenv("COMMENT_SOURCE_MINT")
		if mint == "" {
			log.Fatal().Msg("COMMENT_SOURCE_URL set but COMMENT_SOURCE_MINT missing")
		}
		src = ingest.NewHTTPSource(base, mint)
	}

	ctrl := lifecycle.New(st, h, rp, lifecycle.Options{
		Source:       src,
		PollInterval: time.Duration(envInt("POLL_INTERVAL_SECONDS", 3)) * time.Second,
		RestartDelay: lifecycle.DefaultRestartDelay,
		AutoRestart:  true,
	})

	// Auto-start the first round shortly after boot: the stream should be
	// playable with no operator action.
	time.AfterFunc(time.Second, func() { ctrl.StartRound() })

	srv := httpserver.New(st, h, ctrl, rp, db)
	port := getEnv("PORT", "5000")
	log.Info().Str("port", port).Msg("starting snakestream server")
	if err := srv.Start(":" + port); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
