package feed

import (
	"context"
	"errors"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"sports-arb-engine/internal/quotes"
)

// DefaultReconnectDelay is used when WSSource.ReconnectDelay is zero.
const DefaultReconnectDelay = 3 * time.Second

// WSSource listens to a provider websocket and reconnects when the
// connection drops.
type WSSource struct {
	URL            string
	Log            *zap.Logger
	OnError        func(stage string)
	ReconnectDelay time.Duration
	Dialer         *websocket.Dialer
}

// Run keeps a connection open until ctx is cancelled.
func (s *WSSource) Run(ctx context.Context, out chan<- quotes.Quote) error {
	delay := s.ReconnectDelay
	if delay <= 0 {
		delay = DefaultReconnectDelay
	}
	dec := decoder{log: s.Log, onError: s.OnError}

	for {
		err := s.connectAndListen(ctx, dec, out)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			s.Log.Warn("connection closed", zap.String("url", s.URL), zap.Error(err))
			dec.fail("connect")
		}
		if err := sleep(ctx, delay); err != nil {
			return err
		}
	}
}

func (s *WSSource) connectAndListen(ctx context.Context, dec decoder, out chan<- quotes.Quote) error {
	dialer := s.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}

	conn, _, err := dialer.DialContext(ctx, s.URL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()
	s.Log.Info("connected to provider websocket", zap.String("url", s.URL))

	// ReadMessage ignores ctx; closing the conn unblocks it.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}

		if err := dec.emit(ctx, message, out); err != nil {
			return err
		}
	}
}
