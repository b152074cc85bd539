package handlers

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/anonto42/nano-community/backend/internal/middleware"
)

// RealtimeHub serves an upgraded connection until it closes.
type RealtimeHub interface {
	Serve(accountID uint, conn *websocket.Conn)
}

// RealtimeHandler upgrades authenticated clients to the notification stream
type RealtimeHandler struct {
	hub      RealtimeHub
	tokens   middleware.TokenParser
	upgrader websocket.Upgrader
}

// NewRealtimeHandler builds the handler. An empty origins list accepts any origin.
func NewRealtimeHandler(hub RealtimeHub, tokens middleware.TokenParser, origins []string) *RealtimeHandler {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}
	return &RealtimeHandler{
		hub:    hub,
		tokens: tokens,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return len(allowed) == 0 || allowed["*"] || origin == "" || allowed[origin]
			},
		},
	}
}

func (h *RealtimeHandler) RegisterRealtimeRoutes(g *echo.Group) {
	g.GET("/ws", h.Connect)
}

// Connect authenticates with ?token= since browsers cannot set headers on upgrade
func (h *RealtimeHandler) Connect(c echo.Context) error {
	token := c.QueryParam("token")
	if token == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing token")
	}
	accountID, err := h.tokens.ParseToken(token)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		middleware.LoggerFrom(c).Warn().Err(err).Uint("account_id", accountID).Msg("websocket upgrade failed")
		return nil
	}
	h.hub.Serve(accountID, conn)
	return nil
}
