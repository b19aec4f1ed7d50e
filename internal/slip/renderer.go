package slip

import (
	"context"
	"errors"
	"log/slog"
)

var (
	// ErrRenderingUnavailable is returned when no renderer in the chain produced a document.
	ErrRenderingUnavailable = errors.New("slip rendering unavailable")
	ErrEngineUnavailable    = errors.New("rendering engine unavailable")
)

type Renderer interface {
	Name() string
	Render(ctx context.Context, s *Slip) ([]byte, error)
}

// Chain tries its renderers in order and returns the first document produced.
type Chain struct {
	renderers []Renderer
}

func NewChain(renderers ...Renderer) *Chain {
	return &Chain{renderers: renderers}
}

func (c *Chain) Render(ctx context.Context, s *Slip) (*Document, error) {
	for _, r := range c.renderers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		content, err := r.Render(ctx, s)
		if err != nil {
			slog.DebugContext(ctx, "slip renderer failed, falling through",
				"renderer", r.Name(), "order_id", s.OrderID, "error", err)
			continue
		}
		return NewDocument(s.OrderID, content, s.PrintedAt), nil
	}

	slog.ErrorContext(ctx, "no slip renderer succeeded", "order_id", s.OrderID, "renderers", len(c.renderers))
	return nil, ErrRenderingUnavailable
}
