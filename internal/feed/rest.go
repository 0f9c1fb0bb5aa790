package feed

import (
	"context"
	"time"

	"go.uber.org/zap"

	"sports-arb-engine/internal/quotes"
)

// RESTSource polls a JSON endpoint returning quote messages.
type RESTSource struct {
	URL      string
	Headers  map[string]string
	Interval time.Duration
	Client   *RateLimitedClient
	Log      *zap.Logger
	OnError  func(stage string)
}

// Run polls immediately and then every Interval until ctx is cancelled.
// A failed poll is logged and retried on the next tick.
func (s *RESTSource) Run(ctx context.Context, out chan<- quotes.Quote) error {
	dec := decoder{log: s.Log, onError: s.OnError}
	interval := s.Interval
	if interval <= 0 {
		interval = 2 * time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := s.poll(ctx, dec, out); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *RESTSource) poll(ctx context.Context, dec decoder, out chan<- quotes.Quote) error {
	body, err := s.Client.Get(ctx, s.URL, s.Headers)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.Log.Warn("poll failed", zap.String("url", s.URL), zap.Error(err))
		dec.fail("poll")
		return nil
	}
	return dec.emit(ctx, body, out)
}
