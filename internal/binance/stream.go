package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"CandleScope/internal/domain/models"
	drepo "CandleScope/internal/domain/repository"
	"CandleScope/pkg/logger"

	"github.com/gorilla/websocket"
)

const (
	streamPingInterval = 30 * time.Second
	streamBuffer       = 256
)

// Dialer opens per-symbol ticker streams against the Binance WebSocket API.
type Dialer struct {
	baseURL string
	log     *logger.Logger
}

// NewDialer builds a stream dialer. baseURL is the /ws endpoint root,
// e.g. wss://stream.binance.com:9443/ws.
func NewDialer(baseURL string, log *logger.Logger) *Dialer {
	return &Dialer{
		baseURL: strings.TrimRight(baseURL, "/"),
		log:     log,
	}
}

// OpenTickerStream connects to the <symbol>@ticker stream. The returned
// stream belongs to the caller and must be closed when no longer needed.
func (d *Dialer) OpenTickerStream(ctx context.Context, symbol string) (drepo.TickerStream, error) {
	u := fmt.Sprintf("%s/%s@ticker", d.baseURL, strings.ToLower(symbol))
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		return nil, &NetworkError{Endpoint: "ws ticker", Err: err}
	}
	d.log.Info("ticker stream opened", logger.String("symbol", symbol))
	return &tickerStream{
		symbol: symbol,
		conn:   conn,
		log:    d.log,
	}, nil
}

// tickerStream is one live @ticker subscription.
type tickerStream struct {
	symbol string
	conn   *websocket.Conn
	log    *logger.Logger

	closeOnce sync.Once
	closeErr  error
}

// wsTicker is the subset of the Binance 24hr ticker payload we consume.
type wsTicker struct {
	Symbol        string `json:"s"`
	LastPrice     string `json:"c"`
	ChangePercent string `json:"P"`
	Volume        string `json:"v"`
}

// Read starts the read and keepalive loops. Both channels close when the
// stream ends; a single terminal error is delivered before closing.
func (s *tickerStream) Read(ctx context.Context) (<-chan *models.TickerUpdate, <-chan error) {
	updates := make(chan *models.TickerUpdate, streamBuffer)
	errs := make(chan error, 1)

	go func() {
		ticker := time.NewTicker(streamPingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				_ = s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
			}
		}
	}()

	go func() {
		defer close(updates)
		defer close(errs)
		for {
			if ctx.Err() != nil {
				return
			}
			_, b, err := s.conn.ReadMessage()
			if err != nil {
				if ctx.Err() == nil {
					errs <- &NetworkError{Endpoint: "ws ticker", Err: err}
				}
				return
			}
			var frame wsTicker
			if err := json.Unmarshal(b, &frame); err != nil {
				// non-ticker frames are expected noise
				continue
			}
			if frame.Symbol == "" {
				continue
			}
			u := &models.TickerUpdate{
				Symbol:             frame.Symbol,
				Price:              models.ParseDecimal(frame.LastPrice),
				PriceChangePercent: models.ParseDecimal(frame.ChangePercent),
				Volume:             models.ParseDecimal(frame.Volume),
			}
			select {
			case updates <- u:
			default:
				// drop on backpressure, latest-wins downstream
			}
		}
	}()

	return updates, errs
}

// Close terminates the subscription. Safe to call more than once.
func (s *tickerStream) Close() error {
	s.closeOnce.Do(func() {
		deadline := time.Now().Add(time.Second)
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		s.closeErr = s.conn.Close()
		s.log.Info("ticker stream closed", logger.String("symbol", s.symbol))
	})
	return s.closeErr
}
