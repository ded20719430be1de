// Package api exposes the dashboard HTTP surface.
package api

import (
	"net/http"
	"strings"
	"time"

	"CandleScope/internal/binance"
	models "CandleScope/internal/domain/models"
	"CandleScope/internal/service/ratelimit"
	"CandleScope/internal/usecase"
	"CandleScope/internal/viewstate"
	xhttp "CandleScope/pkg/http"
	xlogger "CandleScope/pkg/logger"

	"github.com/labstack/echo/v4"
)

// MarketHandler serves the calendar, history, stats, view, and export
// endpoints.
type MarketHandler struct {
	logger *xlogger.Logger
	market *usecase.MarketDataUseCase
	stats  *usecase.StatsUseCase
	export *usecase.ExportUseCase
	view   *viewstate.Store
	rl     *ratelimit.Limiter
}

func NewMarketHandler(
	logger *xlogger.Logger,
	market *usecase.MarketDataUseCase,
	stats *usecase.StatsUseCase,
	export *usecase.ExportUseCase,
	view *viewstate.Store,
) *MarketHandler {
	return &MarketHandler{
		logger: logger,
		market: market,
		stats:  stats,
		export: export,
		view:   view,
		rl:     ratelimit.New(),
	}
}

func (h *MarketHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/calendar", h.Calendar)
	g.GET("/calendar/multi", h.MultiCalendar)
	g.GET("/history", h.History)
	g.GET("/stats/24hr", h.Stats24h)
	g.GET("/avgprice", h.AvgPrice)
	g.GET("/view", h.View)
	g.PATCH("/view", h.PatchView)
	g.POST("/view/navigate", h.Navigate)
	g.POST("/view/reset-filters", h.ResetFilters)
	g.POST("/view/reset-today", h.ResetToToday)
	g.POST("/export", h.Export)
	g.POST("/refresh", h.Refresh)
}

// marketError converts exchange failures into responses whose status and
// message match the failure class.
func marketError(c echo.Context, err error) error {
	if remote, ok := binance.AsRemote(err); ok {
		appErr := xhttp.NewAppError("remote_api_error", "", remote.UserMessage(), remoteStatus(remote))
		return xhttp.AppErrorResponse(c, appErr.WithParam("upstreamStatus", remote.Status))
	}
	if network, ok := binance.AsNetwork(err); ok {
		return xhttp.AppErrorResponse(c, xhttp.UnavailableError(network.UserMessage()))
	}
	return xhttp.AppErrorResponse(c, err)
}

func remoteStatus(e *binance.RemoteAPIError) int {
	switch {
	case e.Status == http.StatusTooManyRequests:
		return http.StatusTooManyRequests
	case e.Status >= 400 && e.Status < 500:
		return http.StatusBadRequest
	default:
		return http.StatusBadGateway
	}
}

func (h *MarketHandler) Calendar(c echo.Context) error {
	req := &models.CalendarRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.market.GetCalendar(c.Request().Context(), usecase.CalendarParams{
		Symbol: req.Symbol,
		Year:   req.Year,
		Month:  time.Month(req.Month),
		Metric: models.NormalizeMetric(req.Metric),
		Scheme: models.ColorScheme(req.Scheme),
	})
	if err != nil {
		h.logger.Error("calendar fetch failed", xlogger.String("symbol", req.Symbol), xlogger.Error(err))
		return marketError(c, err)
	}

	h.market.PrefetchAdjacent(req.Symbol, req.Year, time.Month(req.Month))
	return xhttp.SuccessResponse(c, res)
}

func (h *MarketHandler) MultiCalendar(c echo.Context) error {
	req := &models.MultiCalendarRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	symbols := splitSymbols(req.Symbols)
	if len(symbols) == 0 {
		return xhttp.BadRequestResponse(c, xhttp.BadRequestError("symbols must name at least one symbol"))
	}

	view := h.view.Current()
	res, err := h.market.GetMultiCalendar(c.Request().Context(), usecase.MultiCalendarParams{
		Symbols: symbols,
		Year:    req.Year,
		Month:   time.Month(req.Month),
		Metric:  view.Metric,
		Scheme:  view.ColorScheme,
	})
	if err != nil {
		h.logger.Error("multi calendar fetch failed", xlogger.Error(err))
		return marketError(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *MarketHandler) History(c echo.Context) error {
	req := &models.HistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.market.GetHistory(c.Request().Context(), req.Symbol, req.Days)
	if err != nil {
		h.logger.Error("history fetch failed", xlogger.String("symbol", req.Symbol), xlogger.Error(err))
		return marketError(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *MarketHandler) Stats24h(c echo.Context) error {
	req := &models.StatsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.stats.Get24h(c.Request().Context(), req.Symbol)
	if err != nil {
		h.logger.Error("stats fetch failed", xlogger.String("symbol", req.Symbol), xlogger.Error(err))
		return marketError(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *MarketHandler) AvgPrice(c echo.Context) error {
	req := &models.StatsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.stats.AvgPrice(c.Request().Context(), req.Symbol)
	if err != nil {
		h.logger.Error("avg price fetch failed", xlogger.String("symbol", req.Symbol), xlogger.Error(err))
		return marketError(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *MarketHandler) View(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.view.Current())
}

func (h *MarketHandler) PatchView(c echo.Context) error {
	req := &models.ViewPatchRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	state, _ := h.view.Patch(c.Request().Context(), *req)
	return xhttp.SuccessResponse(c, state)
}

func (h *MarketHandler) Navigate(c echo.Context) error {
	req := &models.NavigateRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	delta := 1
	if req.Direction == "prev" {
		delta = -1
	}
	state := h.view.NavigateMonth(delta)

	h.market.PrefetchAdjacent(state.Symbol, state.Year, time.Month(state.Month))
	return xhttp.SuccessResponse(c, state)
}

func (h *MarketHandler) ResetFilters(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.view.ResetFilters(c.Request().Context()))
}

func (h *MarketHandler) ResetToToday(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.view.ResetToToday())
}

func (h *MarketHandler) Export(c echo.Context) error {
	req := &models.ExportRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.export.Export(c.Request().Context(), *req)
	if err != nil {
		h.logger.Error("export failed", xlogger.String("symbol", req.Symbol), xlogger.Error(err))
		return marketError(c, err)
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+res.Filename+`"`)
	return c.Blob(http.StatusOK, res.ContentType, res.Data)
}

// Refresh drops cached views for a symbol so the next read refetches.
// Token bucket keeps a misbehaving client from hammering the exchange.
func (h *MarketHandler) Refresh(c echo.Context) error {
	req := &models.RefreshRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	if !h.rl.Allow(c.RealIP()+":refresh", 3, 0.5) {
		return xhttp.AppErrorResponse(c, xhttp.NewAppError(
			"rate_limited", "", "Too many refreshes. Try again shortly.", http.StatusTooManyRequests))
	}

	if err := h.market.Invalidate(c.Request().Context(), req.Symbol); err != nil {
		h.logger.Error("refresh failed", xlogger.String("symbol", req.Symbol), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.NoContentResponse(c)
}

func splitSymbols(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(strings.ToUpper(p)); s != "" {
			out = append(out, s)
		}
	}
	return out
}
