// Package stream fans live ticker updates out to in-process subscribers.
package stream

import (
	"context"
	"sync"
	"time"

	"CandleScope/internal/domain/models"
	drepo "CandleScope/internal/domain/repository"
	"CandleScope/pkg/logger"

	"github.com/cenkalti/backoff/v4"
)

const subscriptionBuffer = 64

// Broker maintains at most one upstream ticker stream per symbol and fans
// its updates out to any number of subscribers. The upstream connection is
// opened on the first subscription and torn down when the last one closes.
type Broker struct {
	dialer  drepo.StreamDialer
	log     *logger.Logger
	metrics drepo.Metrics

	mu     sync.Mutex
	feeds  map[string]*feed
	closed bool
}

// NewBroker builds an idle broker.
func NewBroker(dialer drepo.StreamDialer, log *logger.Logger, metrics drepo.Metrics) *Broker {
	return &Broker{
		dialer:  dialer,
		log:     log,
		metrics: metrics,
		feeds:   make(map[string]*feed),
	}
}

// Subscription is one consumer's view of a symbol feed. Updates are
// delivered on C; slow consumers lose intermediate updates, never block
// the feed.
type Subscription struct {
	C <-chan *models.TickerUpdate

	ch     chan *models.TickerUpdate
	symbol string
	broker *Broker
	once   sync.Once
}

// Close detaches the subscription. The last subscriber of a symbol also
// closes the upstream stream.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.broker.unsubscribe(s)
	})
}

// Subscribe attaches a consumer to the symbol's feed, starting the feed if
// this is the first subscriber.
func (b *Broker) Subscribe(symbol string) (*Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, context.Canceled
	}

	f, ok := b.feeds[symbol]
	if !ok {
		ctx, cancel := context.WithCancel(context.Background())
		f = &feed{
			symbol: symbol,
			subs:   make(map[*Subscription]struct{}),
			cancel: cancel,
		}
		b.feeds[symbol] = f
		go b.run(ctx, f)
	}

	sub := &Subscription{
		ch:     make(chan *models.TickerUpdate, subscriptionBuffer),
		symbol: symbol,
		broker: b,
	}
	sub.C = sub.ch
	f.mu.Lock()
	f.subs[sub] = struct{}{}
	f.mu.Unlock()
	return sub, nil
}

// Close tears down every feed. Subscription channels are closed.
func (b *Broker) Close() {
	b.mu.Lock()
	b.closed = true
	feeds := make([]*feed, 0, len(b.feeds))
	for _, f := range b.feeds {
		feeds = append(feeds, f)
	}
	b.feeds = make(map[string]*feed)
	b.mu.Unlock()

	for _, f := range feeds {
		f.cancel()
		f.drop()
	}
}

type feed struct {
	symbol string
	cancel context.CancelFunc

	mu   sync.Mutex
	subs map[*Subscription]struct{}
}

func (f *feed) publish(u *models.TickerUpdate) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for sub := range f.subs {
		select {
		case sub.ch <- u:
		default:
		}
	}
}

func (f *feed) drop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for sub := range f.subs {
		close(sub.ch)
	}
	f.subs = make(map[*Subscription]struct{})
}

// unsubscribe holds both locks while deciding whether the feed is empty.
// Checking emptiness outside b.mu would let a concurrent Subscribe attach
// to a feed this call is about to tear down. Lock order matches Subscribe:
// b.mu before f.mu.
func (b *Broker) unsubscribe(sub *Subscription) {
	b.mu.Lock()
	f, ok := b.feeds[sub.symbol]
	if !ok {
		// broker closed, channel already closed by drop
		b.mu.Unlock()
		return
	}
	f.mu.Lock()
	if _, member := f.subs[sub]; member {
		delete(f.subs, sub)
		close(sub.ch)
	}
	last := len(f.subs) == 0
	if last {
		delete(b.feeds, sub.symbol)
	}
	f.mu.Unlock()
	b.mu.Unlock()
	if last {
		f.cancel()
	}
}

// run owns the upstream connection for one symbol, reconnecting with
// exponential backoff until the feed is cancelled.
func (b *Broker) run(ctx context.Context, f *feed) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = time.Second
	bo.MaxInterval = 30 * time.Second
	bo.MaxElapsedTime = 0

	for {
		if ctx.Err() != nil {
			return
		}

		stream, err := b.dialer.OpenTickerStream(ctx, f.symbol)
		if err != nil {
			b.log.Warn("ticker stream dial failed",
				logger.String("symbol", f.symbol),
				logger.Error(err),
			)
			b.metrics.RecordError("stream_dial")
			if !sleepCtx(ctx, bo.NextBackOff()) {
				return
			}
			continue
		}
		bo.Reset()

		updates, errs := stream.Read(ctx)
	consume:
		for {
			select {
			case <-ctx.Done():
				_ = stream.Close()
				return
			case u, ok := <-updates:
				if !ok {
					break consume
				}
				b.metrics.RecordLastPrice(u.Symbol, u.Price)
				f.publish(u)
			case err, ok := <-errs:
				if ok && err != nil {
					b.log.Warn("ticker stream interrupted",
						logger.String("symbol", f.symbol),
						logger.Error(err),
					)
					b.metrics.RecordError("stream_read")
				}
				break consume
			}
		}
		_ = stream.Close()

		if !sleepCtx(ctx, bo.NextBackOff()) {
			return
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
