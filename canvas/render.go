package canvas

import (
	"context"
	"sync"
	"time"
)

// DefaultFrameBudget is the redraw throttle (~60fps).
const DefaultFrameBudget = 16 * time.Millisecond

type PeriodicTickerChannelCreator interface {
	Create(duration time.Duration) <-chan time.Time
}

type ticker struct{}

func (t *ticker) Create(duration time.Duration) <-chan time.Time {
	return time.NewTicker(duration).C
}

func NewTickerGen() *ticker {
	return &ticker{}
}

// FrameScheduler decouples rendering from input handling: input marks the
// scene dirty, and the render callback runs at most once per frame budget,
// only when something changed. Bursts of pointer-move events therefore never
// force a redraw each.
type FrameScheduler struct {
	mu    sync.Mutex
	dirty bool

	budget  time.Duration
	tickers PeriodicTickerChannelCreator
}

func NewFrameScheduler(budget time.Duration, tickers PeriodicTickerChannelCreator) *FrameScheduler {
	if budget <= 0 {
		budget = DefaultFrameBudget
	}
	return &FrameScheduler{budget: budget, tickers: tickers}
}

func (fs *FrameScheduler) MarkDirty() {
	fs.mu.Lock()
	fs.dirty = true
	fs.mu.Unlock()
}

// Consume reports whether a redraw is due and clears the dirty flag.
func (fs *FrameScheduler) Consume() bool {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	was := fs.dirty
	fs.dirty = false
	return was
}

// Run drives render on the frame budget until ctx is done.
func (fs *FrameScheduler) Run(ctx context.Context, render func()) {
	frames := fs.tickers.Create(fs.budget)
	for {
		select {
		case <-ctx.Done():
			return
		case <-frames:
			if fs.Consume() {
				render()
			}
		}
	}
}
