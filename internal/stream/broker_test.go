package stream

import (
	"context"
	"sync"
	"testing"
	"time"

	"CandleScope/internal/domain/models"
	drepo "CandleScope/internal/domain/repository"
	"CandleScope/pkg/logger"
)

type fakeStream struct {
	updates chan *models.TickerUpdate
	errs    chan error
	closed  chan struct{}
	once    sync.Once
}

func newFakeStream() *fakeStream {
	return &fakeStream{
		updates: make(chan *models.TickerUpdate, 16),
		errs:    make(chan error, 1),
		closed:  make(chan struct{}),
	}
}

func (f *fakeStream) Read(ctx context.Context) (<-chan *models.TickerUpdate, <-chan error) {
	return f.updates, f.errs
}

func (f *fakeStream) Close() error {
	f.once.Do(func() { close(f.closed) })
	return nil
}

type fakeDialer struct {
	mu      sync.Mutex
	streams map[string][]*fakeStream
}

func newFakeDialer() *fakeDialer {
	return &fakeDialer{streams: make(map[string][]*fakeStream)}
}

func (d *fakeDialer) OpenTickerStream(ctx context.Context, symbol string) (drepo.TickerStream, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	s := newFakeStream()
	d.streams[symbol] = append(d.streams[symbol], s)
	return s, nil
}

func (d *fakeDialer) dials(symbol string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.streams[symbol])
}

func (d *fakeDialer) latest(symbol string) *fakeStream {
	d.mu.Lock()
	defer d.mu.Unlock()
	ss := d.streams[symbol]
	if len(ss) == 0 {
		return nil
	}
	return ss[len(ss)-1]
}

type noopMetrics struct{}

func (noopMetrics) RecordFetch(string, string)      {}
func (noopMetrics) RecordError(string)              {}
func (noopMetrics) RecordLastPrice(string, float64) {}
func (noopMetrics) RecordAnomaly(string, string)    {}
func (noopMetrics) RecordLatency(string, float64)   {}

func testBroker(t *testing.T) (*Broker, *fakeDialer) {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "console"})
	if err != nil {
		t.Fatal(err)
	}
	d := newFakeDialer()
	b := NewBroker(d, log, noopMetrics{})
	t.Cleanup(b.Close)
	return b, d
}

func waitDial(t *testing.T, d *fakeDialer, symbol string, n int) *fakeStream {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		if d.dials(symbol) >= n {
			return d.latest(symbol)
		}
		select {
		case <-deadline:
			t.Fatalf("dial %d for %s never happened", n, symbol)
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestBrokerFansOutToAllSubscribers(t *testing.T) {
	b, d := testBroker(t)

	s1, err := b.Subscribe("BTCUSDT")
	if err != nil {
		t.Fatal(err)
	}
	s2, err := b.Subscribe("BTCUSDT")
	if err != nil {
		t.Fatal(err)
	}
	defer s1.Close()
	defer s2.Close()

	up := waitDial(t, d, "BTCUSDT", 1)
	if got := d.dials("BTCUSDT"); got != 1 {
		t.Fatalf("dials = %d, want 1 shared upstream", got)
	}

	want := &models.TickerUpdate{Symbol: "BTCUSDT", Price: 42800}
	up.updates <- want

	for i, sub := range []*Subscription{s1, s2} {
		select {
		case got := <-sub.C:
			if got.Price != want.Price {
				t.Errorf("sub %d: price = %v", i, got.Price)
			}
		case <-time.After(time.Second):
			t.Fatalf("sub %d: no update", i)
		}
	}
}

func TestBrokerClosesUpstreamWithLastSubscriber(t *testing.T) {
	b, d := testBroker(t)

	s1, _ := b.Subscribe("ETHUSDT")
	s2, _ := b.Subscribe("ETHUSDT")
	up := waitDial(t, d, "ETHUSDT", 1)

	s1.Close()
	select {
	case <-up.closed:
		t.Fatal("upstream closed while a subscriber remained")
	case <-time.After(50 * time.Millisecond):
	}

	s2.Close()
	select {
	case <-up.closed:
	case <-time.After(2 * time.Second):
		t.Fatal("upstream not closed after last unsubscribe")
	}

	// channel of a closed subscription is closed
	if _, ok := <-s2.C; ok {
		t.Error("subscription channel still open")
	}
}

func TestBrokerReconnectsAfterStreamError(t *testing.T) {
	b, d := testBroker(t)

	sub, _ := b.Subscribe("SOLUSDT")
	defer sub.Close()

	first := waitDial(t, d, "SOLUSDT", 1)
	first.errs <- context.DeadlineExceeded
	close(first.updates)

	second := waitDial(t, d, "SOLUSDT", 2)
	second.updates <- &models.TickerUpdate{Symbol: "SOLUSDT", Price: 150}

	select {
	case got := <-sub.C:
		if got.Price != 150 {
			t.Errorf("price = %v", got.Price)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no update after reconnect")
	}
}

func TestBrokerPerSymbolIsolation(t *testing.T) {
	b, d := testBroker(t)

	btc, _ := b.Subscribe("BTCUSDT")
	eth, _ := b.Subscribe("ETHUSDT")
	defer btc.Close()
	defer eth.Close()

	upBTC := waitDial(t, d, "BTCUSDT", 1)
	waitDial(t, d, "ETHUSDT", 1)

	upBTC.updates <- &models.TickerUpdate{Symbol: "BTCUSDT", Price: 42800}

	select {
	case got := <-btc.C:
		if got.Symbol != "BTCUSDT" {
			t.Errorf("symbol = %s", got.Symbol)
		}
	case <-time.After(time.Second):
		t.Fatal("btc subscriber got nothing")
	}

	select {
	case got := <-eth.C:
		t.Errorf("eth subscriber received %v", got)
	case <-time.After(50 * time.Millisecond):
	}
}

// Churning subscribers on one symbol must never strand a live subscriber
// on a torn-down feed: every channel either receives or is closed.
func TestBrokerSubscribeUnsubscribeChurn(t *testing.T) {
	b, _ := testBroker(t)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				sub, err := b.Subscribe("BTCUSDT")
				if err != nil {
					t.Error(err)
					return
				}
				sub.Close()
				select {
				case _, ok := <-sub.C:
					if ok {
						continue
					}
				case <-time.After(2 * time.Second):
					t.Error("closed subscription's channel never closed")
					return
				}
			}
		}()
	}
	wg.Wait()

	// The broker must still serve the symbol afterwards.
	sub, err := b.Subscribe("BTCUSDT")
	if err != nil {
		t.Fatal(err)
	}
	defer sub.Close()
	select {
	case _, ok := <-sub.C:
		if !ok {
			t.Fatal("fresh subscription arrived closed")
		}
	default:
	}
}
