// Package binance talks to the Binance spot REST and WebSocket APIs.
package binance

import (
	"context"
	"encoding/json"
	"io"
	"strconv"
	"strings"
	"time"

	"CandleScope/internal/domain/models"
	drepo "CandleScope/internal/domain/repository"
	"CandleScope/pkg/config"
	httpclient "CandleScope/pkg/http"
	"CandleScope/pkg/logger"

	"github.com/cenkalti/backoff/v4"
)

const truncatedBodyLimit = 512

// Client implements the MarketAPI against api.binance.com. Transient
// failures (network, 429, 5xx) are retried with exponential backoff;
// deterministic 4xx answers are returned immediately.
type Client struct {
	baseURL string
	http    *httpclient.Client
	log     *logger.Logger
	metrics drepo.Metrics

	maxAttempts     int
	initialInterval time.Duration
	maxInterval     time.Duration
}

// NewClient builds a REST client from configuration.
func NewClient(cfg *config.Config, log *logger.Logger, metrics drepo.Metrics) *Client {
	return &Client{
		baseURL:         strings.TrimRight(cfg.Binance.BaseURL, "/"),
		http:            httpclient.NewClient(httpclient.WithTimeout(cfg.Binance.Timeout)),
		log:             log,
		metrics:         metrics,
		maxAttempts:     cfg.Binance.Retry.MaxAttempts,
		initialInterval: cfg.Binance.Retry.InitialInterval,
		maxInterval:     cfg.Binance.Retry.MaxInterval,
	}
}

// MonthlyKlines fetches the daily candles covering one calendar month.
func (c *Client) MonthlyKlines(ctx context.Context, symbol string, year int, month time.Month) ([]models.RawKline, error) {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)

	var klines []models.RawKline
	err := c.get(ctx, "/klines", map[string][]string{
		"symbol":    {symbol},
		"interval":  {"1d"},
		"startTime": {strconv.FormatInt(start.UnixMilli(), 10)},
		"endTime":   {strconv.FormatInt(end.UnixMilli()-1, 10)},
	}, &klines)
	if err != nil {
		return nil, err
	}
	return klines, nil
}

// RecentKlines fetches the most recent daily candles, newest last.
func (c *Client) RecentKlines(ctx context.Context, symbol string, limit int) ([]models.RawKline, error) {
	var klines []models.RawKline
	err := c.get(ctx, "/klines", map[string][]string{
		"symbol":   {symbol},
		"interval": {"1d"},
		"limit":    {strconv.Itoa(limit)},
	}, &klines)
	if err != nil {
		return nil, err
	}
	return klines, nil
}

// Ticker24h fetches the rolling 24-hour statistics for one symbol.
func (c *Client) Ticker24h(ctx context.Context, symbol string) (*models.TickerStats, error) {
	var stats models.TickerStats
	err := c.get(ctx, "/ticker/24hr", map[string][]string{
		"symbol": {symbol},
	}, &stats)
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

// AvgPrice fetches the current average price for one symbol.
func (c *Client) AvgPrice(ctx context.Context, symbol string) (*models.AvgPrice, error) {
	var avg models.AvgPrice
	err := c.get(ctx, "/avgPrice", map[string][]string{
		"symbol": {symbol},
	}, &avg)
	if err != nil {
		return nil, err
	}
	return &avg, nil
}

func (c *Client) get(ctx context.Context, endpoint string, params map[string][]string, dest interface{}) error {
	op := func() error {
		return c.getOnce(ctx, endpoint, params, dest)
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.initialInterval
	bo.MaxInterval = c.maxInterval

	policy := backoff.WithContext(
		backoff.WithMaxRetries(bo, uint64(c.maxAttempts-1)),
		ctx,
	)

	err := backoff.Retry(op, policy)
	if err != nil {
		c.metrics.RecordFetch(endpoint, "error")
		return err
	}
	c.metrics.RecordFetch(endpoint, "ok")
	return nil
}

func (c *Client) getOnce(ctx context.Context, endpoint string, params map[string][]string, dest interface{}) error {
	started := time.Now()
	resp, err := c.http.SendRequest(ctx, &httpclient.RequestOptions{
		Method:      httpclient.MethodGet,
		URL:         c.baseURL + endpoint,
		QueryParams: params,
	})
	if err != nil {
		c.metrics.RecordError("network")
		c.log.Warn("binance request failed",
			logger.String("endpoint", endpoint),
			logger.Error(err),
		)
		return &NetworkError{Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	c.metrics.RecordLatency("binance"+endpoint, time.Since(started).Seconds())

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, truncatedBodyLimit))
		remote := &RemoteAPIError{
			Status:   resp.StatusCode,
			Endpoint: endpoint,
			Body:     strings.TrimSpace(string(body)),
		}
		c.metrics.RecordError("remote_api")
		c.log.Warn("binance rejected request",
			logger.String("endpoint", endpoint),
			logger.Int("status", resp.StatusCode),
		)
		if remote.Retryable() {
			return remote
		}
		return backoff.Permanent(remote)
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		c.metrics.RecordError("decode")
		return backoff.Permanent(&NetworkError{Endpoint: endpoint, Err: err})
	}
	return nil
}
