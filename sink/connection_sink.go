package sink

import (
	"collab-lab/contract"
	"collab-lab/domain/event"
	"collab-lab/errors"
	"context"
	"sync"

	"github.com/google/uuid"
)

var _ contract.EventSink = (*ConnectionSink)(nil)

// ConnectionSink is the outbound queue of one real-time connection.
// The gateway enqueues, the transport write pump drains Events.
type ConnectionSink struct {
	id     string
	events chan event.Event
	done   chan struct{}
	once   sync.Once
}

func NewConnectionSink(bufferSize int) *ConnectionSink {
	return &ConnectionSink{
		id:     uuid.NewString(),
		events: make(chan event.Event, bufferSize),
		done:   make(chan struct{}),
	}
}

func (s *ConnectionSink) ConnectionID() string {
	return s.id
}

// Consume never blocks: a full buffer drops the event.
// The events channel is never closed, a late Consume after Close can't panic.
func (s *ConnectionSink) Consume(ctx context.Context, e event.Event) error {
	select {
	case <-s.done:
		return errors.ErrSinkClosed
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	select {
	case s.events <- e:
		return nil
	default:
		return errors.ErrSinkFull
	}
}

func (s *ConnectionSink) Events() <-chan event.Event {
	return s.events
}

func (s *ConnectionSink) Done() <-chan struct{} {
	return s.done
}

// Close is idempotent.
func (s *ConnectionSink) Close() {
	s.once.Do(func() { close(s.done) })
}
