package api

import "github.com/labstack/echo/v4"

// Routes bundles the REST and WebSocket handlers into one registration.
type Routes struct {
	market *MarketHandler
	ticker *TickerWSHandler
}

func NewRoutes(market *MarketHandler, ticker *TickerWSHandler) *Routes {
	return &Routes{market: market, ticker: ticker}
}

func (r *Routes) RegisterRoutes(e *echo.Echo) {
	r.market.RegisterRoutes(e)
	r.ticker.RegisterRoutes(e)
}
