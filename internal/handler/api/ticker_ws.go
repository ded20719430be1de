package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	models "CandleScope/internal/domain/models"
	"CandleScope/internal/service/metrics"
	"CandleScope/internal/usecase"
	"CandleScope/internal/viewstate"
	xlogger "CandleScope/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const wsWriteTimeout = 10 * time.Second

// TickerWSHandler relays live ticker snapshots to browser clients over
// WebSocket. Each connection follows one symbol at a time; the client can
// switch symbols with an inbound message, which closes the old upstream
// subscription before opening the new one.
type TickerWSHandler struct {
	logger   *xlogger.Logger
	stats    *usecase.StatsUseCase
	view     *viewstate.Store
	upgrader websocket.Upgrader
}

func NewTickerWSHandler(logger *xlogger.Logger, stats *usecase.StatsUseCase, view *viewstate.Store) *TickerWSHandler {
	metrics.Register()
	return &TickerWSHandler{
		logger: logger,
		stats:  stats,
		view:   view,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

func (h *TickerWSHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws/ticker", h.Relay)
}

// switchMessage is the only inbound frame the relay understands.
type switchMessage struct {
	Symbol string `json:"symbol"`
}

func (h *TickerWSHandler) Relay(c echo.Context) error {
	symbol := strings.ToUpper(strings.TrimSpace(c.QueryParam("symbol")))
	if symbol == "" {
		symbol = h.view.Current().Symbol
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	metrics.WSConnections.Inc()
	defer metrics.WSConnections.Dec()

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()

	// inbound loop: symbol switches and client close
	switches := make(chan string, 1)
	go func() {
		defer cancel()
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var msg switchMessage
			if json.Unmarshal(data, &msg) != nil || msg.Symbol == "" {
				continue
			}
			select {
			case switches <- strings.ToUpper(msg.Symbol):
			default:
			}
		}
	}()

	for {
		done, err := h.follow(ctx, conn, symbol, switches)
		if err != nil {
			h.logger.Warn("ticker relay ended",
				xlogger.String("symbol", symbol),
				xlogger.Error(err),
			)
			metrics.WSErrors.Inc()
			return nil
		}
		if done == "" {
			return nil
		}
		symbol = done
	}
}

// follow relays one symbol until the context ends or the client switches.
// It returns the next symbol to follow, or "" when the connection is done.
func (h *TickerWSHandler) follow(ctx context.Context, conn *websocket.Conn, symbol string, switches <-chan string) (string, error) {
	live, err := h.stats.Live(ctx, symbol)
	if err != nil {
		return "", err
	}
	defer live.Close()

	if err := h.send(conn, symbol, live.Current()); err != nil {
		return "", err
	}

	updates := make(chan models.TickerStats, 1)
	nextCtx, stopNext := context.WithCancel(ctx)
	defer stopNext()
	go func() {
		for {
			snap, ok := live.Next(nextCtx)
			if !ok {
				close(updates)
				return
			}
			// latest wins: replace any undelivered snapshot
			select {
			case <-updates:
			default:
			}
			updates <- snap
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return "", nil
		case next := <-switches:
			if next == symbol {
				continue
			}
			return next, nil
		case snap, ok := <-updates:
			if !ok {
				return "", nil
			}
			if err := h.send(conn, symbol, snap); err != nil {
				return "", err
			}
		}
	}
}

func (h *TickerWSHandler) send(conn *websocket.Conn, symbol string, snapshot interface{}) error {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	if err := conn.WriteJSON(snapshot); err != nil {
		return err
	}
	metrics.WSMessages.WithLabelValues(symbol).Inc()
	return nil
}
