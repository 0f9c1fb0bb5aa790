package feed

import (
	"context"
	"time"

	"go.uber.org/zap"

	"sports-arb-engine/internal/quotes"
)

// Source streams normalised quotes into out until ctx is cancelled or the
// source fails for good. Run returns ctx.Err() on cancellation.
type Source interface {
	Run(ctx context.Context, out chan<- quotes.Quote) error
}

// decoder turns raw payloads into quotes. Bad messages are logged and
// counted, never fatal.
type decoder struct {
	log     *zap.Logger
	onError func(stage string)
	now     func() time.Time
}

func (d decoder) fail(stage string) {
	if d.onError != nil {
		d.onError(stage)
	}
}

// emit decodes data and sends every valid quote to out. Quotes without a
// timestamp are stamped with the receive time.
func (d decoder) emit(ctx context.Context, data []byte, out chan<- quotes.Quote) error {
	msgs, err := DecodeMessages(data)
	if err != nil {
		d.log.Warn("invalid message", zap.Error(err))
		d.fail("decode")
		return nil
	}

	now := time.Now
	if d.now != nil {
		now = d.now
	}

	for _, m := range msgs {
		q, err := m.ToQuote()
		if err != nil {
			d.log.Warn("dropping quote", zap.Error(err))
			d.fail("convert")
			continue
		}
		if q.UpdatedAt.IsZero() {
			q.UpdatedAt = now()
		}

		select {
		case out <- q:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
