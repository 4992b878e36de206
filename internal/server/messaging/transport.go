package messaging

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned by Receive and Send after the transport was closed.
var ErrClosed = errors.New("transport closed")

// Delivery is one inbound message together with its reply channel.
type Delivery struct {
	// Reply publishes the answer to the sender of this message
	Reply       func(ctx context.Context, contentType string, body []byte) error
	ContentType string
	Body        []byte
}

// Transport is a source of deliveries. Implementations must allow
// concurrent Receive calls.
type Transport interface {
	Receive(ctx context.Context) (Delivery, error)
	Close() error
}

type reply struct {
	contentType string
	body        []byte
}

// ChannelTransport is an in-process Transport. Send blocks until the
// request has been answered.
type ChannelTransport struct {
	inbox  chan Delivery
	done   chan struct{}
	closer sync.Once
}

var _ Transport = (*ChannelTransport)(nil)

// NewChannelTransport creates a transport buffering up to buffer requests.
func NewChannelTransport(buffer int) *ChannelTransport {
	if buffer < 0 {
		buffer = 0
	}
	return &ChannelTransport{
		inbox: make(chan Delivery, buffer),
		done:  make(chan struct{}),
	}
}

// Receive waits for the next delivery.
func (t *ChannelTransport) Receive(ctx context.Context) (Delivery, error) {
	select {
	case <-ctx.Done():
		return Delivery{}, ctx.Err()
	case <-t.done:
		return Delivery{}, ErrClosed
	case d := <-t.inbox:
		return d, nil
	}
}

// Send publishes body and waits for the reply.
func (t *ChannelTransport) Send(ctx context.Context, contentType string, body []byte) ([]byte, string, error) {
	answer := make(chan reply, 1)
	d := Delivery{
		ContentType: contentType,
		Body:        body,
		Reply: func(ctx context.Context, contentType string, body []byte) error {
			select {
			case answer <- reply{contentType: contentType, body: body}:
				return nil
			default:
				return errors.New("message already answered")
			}
		},
	}

	select {
	case <-ctx.Done():
		return nil, "", ctx.Err()
	case <-t.done:
		return nil, "", ErrClosed
	case t.inbox <- d:
	}

	select {
	case <-ctx.Done():
		return nil, "", ctx.Err()
	case <-t.done:
		return nil, "", ErrClosed
	case r := <-answer:
		return r.body, r.contentType, nil
	}
}

// Close stops the transport. Pending Send calls return ErrClosed.
func (t *ChannelTransport) Close() error {
	t.closer.Do(func() {
		close(t.done)
	})
	return nil
}
