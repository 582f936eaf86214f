package sim

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"stockpulse/internal/domain"
)

const (
	// DefaultTickInterval is the cadence of live price perturbation.
	DefaultTickInterval = 2 * time.Second

	// tickVolatility scales per-tick noise (0.05% of the prior live price).
	tickVolatility = 0.0005
)

// Simulator perturbs the live price of the currently displayed instrument on
// a fixed cadence and fans ticks out to subscribers. At most one instrument
// ticks at a time: starting a new one cancels the previous loop first, and
// the cancellation is synchronous, so a late tick from a previous symbol can
// never leak into the new display.
type Simulator struct {
	interval time.Duration
	log      *slog.Logger

	mu      sync.Mutex
	symbol  string
	price   float64
	open    float64 // implied session open, the anchor for percent change
	changes float64 // latest recomputed percent change
	cancel  context.CancelFunc
	done    chan struct{}

	subsMu    sync.Mutex
	nextSubID int
	subs      map[int]chan domain.Tick
}

// NewSimulator creates a stopped simulator. interval <= 0 selects the
// default 2-second cadence.
func NewSimulator(interval time.Duration, log *slog.Logger) *Simulator {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	return &Simulator{
		interval: interval,
		log:      log,
		subs:     make(map[int]chan domain.Tick),
	}
}

// Start begins ticking for the snapshot's symbol, replacing any previous
// instrument. The previous tick loop has fully exited before Start returns.
func (s *Simulator) Start(snapshot domain.Snapshot) {
	s.stop()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	s.mu.Lock()
	s.symbol = snapshot.Symbol
	s.price = snapshot.Price
	s.open = snapshot.ImpliedOpen()
	s.changes = snapshot.ChangePercent
	s.cancel = cancel
	s.done = done
	s.mu.Unlock()

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	go s.run(ctx, done, rng)

	s.log.Debug("simulator started", "symbol", snapshot.Symbol, "price", snapshot.Price)
}

// Stop cancels the current tick loop, if any, and waits for it to exit.
func (s *Simulator) Stop() {
	s.stop()
}

func (s *Simulator) stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

// run is the tick loop for one instrument.
func (s *Simulator) run(ctx context.Context, done chan struct{}, rng *rand.Rand) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.publish(s.tick(rng))
		}
	}
}

// tick perturbs the live price and recomputes the percent change against the
// ORIGINAL implied open, not the previous tick, so the displayed change
// tracks cumulative drift from session open without compounding.
func (s *Simulator) tick(rng *rand.Rand) domain.Tick {
	s.mu.Lock()
	defer s.mu.Unlock()

	noise := (rng.Float64() - 0.5) * s.price * tickVolatility
	s.price += noise
	s.changes = (s.price - s.open) / s.open * 100

	return domain.Tick{
		Symbol:        s.symbol,
		Price:         s.price,
		ChangePercent: s.changes,
		Timestamp:     time.Now().UnixMilli(),
	}
}

// Current returns the latest live values, and false when nothing has been
// started yet.
func (s *Simulator) Current() (domain.Tick, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.symbol == "" {
		return domain.Tick{}, false
	}
	return domain.Tick{
		Symbol:        s.symbol,
		Price:         s.price,
		ChangePercent: s.changes,
		Timestamp:     time.Now().UnixMilli(),
	}, true
}

// publish fans a tick out to all subscribers with non-blocking sends. A slow
// subscriber drops ticks rather than stalling the loop.
func (s *Simulator) publish(t domain.Tick) {
	s.subsMu.Lock()
	for _, ch := range s.subs {
		select {
		case ch <- t:
		default:
		}
	}
	s.subsMu.Unlock()
}

// Subscribe creates a new subscription channel for tick events.
func (s *Simulator) Subscribe(bufSize int) (id int, ch <-chan domain.Tick) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	id = s.nextSubID
	s.nextSubID++
	c := make(chan domain.Tick, bufSize)
	s.subs[id] = c
	return id, c
}

// Unsubscribe removes a subscription and closes its channel.
func (s *Simulator) Unsubscribe(id int) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	if ch, ok := s.subs[id]; ok {
		close(ch)
		delete(s.subs, id)
	}
}
