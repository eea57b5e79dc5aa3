// internal/httpserver/ws.go
//
// WebSocket upgrade for the viewer channel. Everything after the upgrade is
// owned by the hub: the client gets the current game state immediately and
// all subsequent events as they happen.

package httpserver

import (
	"net/http"
	"os"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/chatplays/snakestream/internal/hub"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Same policy as the CORS middleware: one configured origin, or
		// anything in development.
		origin := os.Getenv("CLIENT_ORIGIN")
		return origin == "" || r.Header.Get("Origin") == "" || r.Header.Get("Origin") == origin
	},
}

// handleWS upgrades the connection and hands it to the hub.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	c := hub.NewClient(conn)
	s.hub.Register(c)
	go c.WritePump(s.hub)
	go c.ReadPump(s.hub)
}
