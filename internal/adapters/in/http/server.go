package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"pharmaqueue/internal/core/application/feed"
	"pharmaqueue/internal/core/application/reconciler"
	"pharmaqueue/internal/core/application/synchronizer"
	"pharmaqueue/internal/core/application/usecases/commands"
	"pharmaqueue/internal/core/domain/model/order"
	"pharmaqueue/internal/core/domain/model/sla"

	"github.com/labstack/echo/v4"
)

var errInvalidOrderID = errors.New("order id must be a positive integer")

// Board is the session the HTTP surface drives.
type Board interface {
	Orders() []synchronizer.OrderView
	Order(orderID int64) (*order.Order, bool)
	Stats() reconciler.Stats
	Health() feed.Health
	LastSync() time.Time
	SLAFor(orderID int64) (sla.Status, bool)

	Refresh(ctx context.Context) synchronizer.Result[reconciler.Stats]
	Reconnect() synchronizer.Result[feed.Health]
	PrimeAudio(ctx context.Context) synchronizer.Result[bool]
	SetAllowList(ctx context.Context, statuses []order.Status) synchronizer.Result[reconciler.Stats]
	AdvanceStatus(ctx context.Context, orderID int64, to order.Status, reason string, metadata json.RawMessage) synchronizer.Result[commands.AdvanceStatusResult]
	Claim(ctx context.Context, orderID int64) synchronizer.Result[commands.ClaimOrderResult]
	SubmitCheck(ctx context.Context, orderID int64, notes string) synchronizer.Result[synchronizer.CheckOutcome]
}

// Server maps HTTP requests onto the board. Every mutation answers with the
// board's result envelope; the status code follows the error kind.
type Server struct {
	board Board
}

func NewServer(board Board) *Server {
	return &Server{board: board}
}

type ordersResponse struct {
	Orders   []synchronizer.OrderView `json:"orders"`
	Stats    reconciler.Stats         `json:"stats"`
	Health   feed.Health              `json:"health"`
	LastSync *time.Time               `json:"lastSync,omitempty"`
}

type orderResponse struct {
	Order *order.Order `json:"order"`
	SLA   sla.Status   `json:"sla"`
}

type connectionResponse struct {
	Health   feed.Health `json:"health"`
	LastSync *time.Time  `json:"lastSync,omitempty"`
}

type statusRequest struct {
	To       string          `json:"to"`
	Reason   string          `json:"reason"`
	Metadata json.RawMessage `json:"metadata"`
}

type checkRequest struct {
	Notes string `json:"notes"`
}

type allowListRequest struct {
	Statuses []string `json:"statuses"`
}

func (s *Server) lastSync() *time.Time {
	t := s.board.LastSync()
	if t.IsZero() {
		return nil
	}
	return &t
}

// Health handles GET /health.
func (s *Server) Health(c echo.Context) error {
	return c.String(http.StatusOK, "Healthy")
}

// GetOrders handles GET /api/v1/orders.
func (s *Server) GetOrders(c echo.Context) error {
	return c.JSON(http.StatusOK, ordersResponse{
		Orders:   s.board.Orders(),
		Stats:    s.board.Stats(),
		Health:   s.board.Health(),
		LastSync: s.lastSync(),
	})
}

// GetOrder handles GET /api/v1/orders/:id.
func (s *Server) GetOrder(c echo.Context) error {
	id, err := orderID(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	o, found := s.board.Order(id)
	if !found {
		return c.JSON(http.StatusNotFound, synchronizer.Result[any]{Error: "order is not in the queue", Kind: synchronizer.KindNotFound})
	}
	status, _ := s.board.SLAFor(id)
	return c.JSON(http.StatusOK, orderResponse{Order: o, SLA: status})
}

// GetStats handles GET /api/v1/stats.
func (s *Server) GetStats(c echo.Context) error {
	return c.JSON(http.StatusOK, s.board.Stats())
}

// GetConnection handles GET /api/v1/connection.
func (s *Server) GetConnection(c echo.Context) error {
	return c.JSON(http.StatusOK, connectionResponse{Health: s.board.Health(), LastSync: s.lastSync()})
}

// Refresh handles POST /api/v1/refresh.
func (s *Server) Refresh(c echo.Context) error {
	return respond(c, s.board.Refresh(c.Request().Context()))
}

// Reconnect handles POST /api/v1/reconnect.
func (s *Server) Reconnect(c echo.Context) error {
	return respond(c, s.board.Reconnect())
}

// PrimeAudio handles POST /api/v1/audio/prime.
func (s *Server) PrimeAudio(c echo.Context) error {
	return respond(c, s.board.PrimeAudio(c.Request().Context()))
}

// SetAllowList handles PUT /api/v1/allow-list.
func (s *Server) SetAllowList(c echo.Context) error {
	var req allowListRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	statuses, err := order.ParseStatuses(req.Statuses)
	if err != nil {
		return badRequest(c, err.Error())
	}
	return respond(c, s.board.SetAllowList(c.Request().Context(), statuses))
}

// Claim handles POST /api/v1/orders/:id/claim.
func (s *Server) Claim(c echo.Context) error {
	id, err := orderID(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	return respond(c, s.board.Claim(c.Request().Context(), id))
}

// AdvanceStatus handles POST /api/v1/orders/:id/status.
func (s *Server) AdvanceStatus(c echo.Context) error {
	id, err := orderID(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	var req statusRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	to, err := order.ParseStatus(req.To)
	if err != nil {
		return badRequest(c, err.Error())
	}
	return respond(c, s.board.AdvanceStatus(c.Request().Context(), id, to, req.Reason, req.Metadata))
}

// SubmitCheck handles POST /api/v1/orders/:id/checks.
func (s *Server) SubmitCheck(c echo.Context) error {
	id, err := orderID(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	var req checkRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	return respond(c, s.board.SubmitCheck(c.Request().Context(), id, req.Notes))
}

func orderID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errInvalidOrderID
	}
	return id, nil
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, synchronizer.Result[any]{Error: msg, Kind: synchronizer.KindValidation})
}

func respond[T any](c echo.Context, result synchronizer.Result[T]) error {
	return c.JSON(statusCode(result.Kind), result)
}

func statusCode(kind synchronizer.ErrorKind) int {
	switch kind {
	case synchronizer.KindNone:
		return http.StatusOK
	case synchronizer.KindValidation:
		return http.StatusBadRequest
	case synchronizer.KindNotFound:
		return http.StatusNotFound
	case synchronizer.KindTransitionRejected,
		synchronizer.KindDoubleCheckPending,
		synchronizer.KindClaimConflict,
		synchronizer.KindCheckRejected:
		return http.StatusConflict
	case synchronizer.KindRemote:
		return http.StatusBadGateway
	case synchronizer.KindUnavailable:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
