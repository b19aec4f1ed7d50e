package slip

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"
)

// BreakerRenderer skips a renderer that keeps failing until the open timeout passes.
type BreakerRenderer struct {
	next Renderer
	cb   *gobreaker.CircuitBreaker[[]byte]
}

func NewBreakerRenderer(next Renderer, maxFailures uint32, openTimeout time.Duration) *BreakerRenderer {
	cb := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        next.Name(),
		MaxRequests: 1,
		Timeout:     openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("slip renderer breaker state changed", "renderer", name, "from", from.String(), "to", to.String())
		},
		// a cancelled request says nothing about the engine
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	})

	return &BreakerRenderer{next: next, cb: cb}
}

func (b *BreakerRenderer) Name() string { return b.next.Name() }

func (b *BreakerRenderer) Render(ctx context.Context, s *Slip) ([]byte, error) {
	return b.cb.Execute(func() ([]byte, error) {
		return b.next.Render(ctx, s)
	})
}

func (b *BreakerRenderer) State() gobreaker.State {
	return b.cb.State()
}
