package http

import (
	"net/http"

	"pharmaqueue/internal/adapters/in/http/ws"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
)

// RouterConfig carries what the router needs besides the board.
type RouterConfig struct {
	Hub            *ws.Hub
	Snapshot       ws.Snapshot
	AllowedOrigins []string
}

// NewRouter builds the echo instance serving the queue API and the event
// socket.
func NewRouter(server *Server, cfg RouterConfig, logger zerolog.Logger) *echo.Echo {
	logger = logger.With().Str("component", "http").Logger()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(recovery(logger))
	e.Use(echomw.RequestID())
	e.Use(requestLogger(logger))
	if len(cfg.AllowedOrigins) > 0 {
		e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
			AllowOrigins: cfg.AllowedOrigins,
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut},
			AllowHeaders: []string{echo.HeaderContentType, echo.HeaderXRequestID},
		}))
	}

	e.GET("/health", server.Health)

	api := e.Group("/api/v1")
	api.GET("/orders", server.GetOrders)
	api.GET("/orders/:id", server.GetOrder)
	api.GET("/stats", server.GetStats)
	api.GET("/connection", server.GetConnection)
	api.POST("/refresh", server.Refresh)
	api.POST("/reconnect", server.Reconnect)
	api.POST("/audio/prime", server.PrimeAudio)
	api.PUT("/allow-list", server.SetAllowList)
	api.POST("/orders/:id/claim", server.Claim)
	api.POST("/orders/:id/status", server.AdvanceStatus)
	api.POST("/orders/:id/checks", server.SubmitCheck)

	if cfg.Hub != nil {
		handler := ws.NewHandler(cfg.Hub, cfg.Snapshot, cfg.AllowedOrigins)
		e.GET("/ws", handler.HandleConnect)
	}

	return e
}
