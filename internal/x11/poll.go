package x11

import (
	"context"

	"github.com/jezek/xgb"
)

// Poll starts a separate goroutine which receives events from the X server
// and forwards them on the returned channel. Errors are forwarded on the
// second channel; ErrConnectionDied is sent once when the connection breaks,
// after which both channels are closed.
func (c *Client) Poll(ctx context.Context) (<-chan xgb.Event, <-chan error, error) {
	ch := make(chan xgb.Event, 256)
	errCh := make(chan error, 8)
	go c.poll(ctx, ch, errCh)
	return ch, errCh, nil
}

func (c *Client) poll(ctx context.Context, ch chan<- xgb.Event, errCh chan<- error) {
	defer close(ch)
	defer close(errCh)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		evt, err := c.conn.WaitForEvent()
		if evt == nil && err == nil {
			errCh <- ErrConnectionDied
			return
		}
		if err != nil {
			errCh <- err
			continue
		}
		ch <- evt
	}
}
