package runtime

import (
	"collab-lab/contract"
	"collab-lab/domain"
	"collab-lab/domain/event"
	"collab-lab/observability"
	"context"
	"log/slog"

	"github.com/samber/lo"
)

var _ contract.IDispatcher = (*Dispatcher)(nil)

// Dispatcher turns an audience (room, room minus sender, sender) into deliveries
// on connection handles.
//
// Delivery is best effort: no acknowledgement, no retry, no queueing for
// connections that are gone. A refused delivery is logged and counted, never returned.
type Dispatcher struct {
	log      *slog.Logger
	registry contract.IRegistry
	metrics  *observability.Metrics
}

func NewDispatcher(log *slog.Logger, registry contract.IRegistry, metrics *observability.Metrics) *Dispatcher {
	return &Dispatcher{log: log, registry: registry, metrics: metrics}
}

// ToRoom delivers to every participant registered in the session.
func (d *Dispatcher) ToRoom(ctx context.Context, sessionID domain.SessionID, e event.Event) {
	for _, member := range d.registry.ListParticipants(sessionID) {
		d.deliver(ctx, member.Sink, e)
	}
}

// ToRoomExceptSender delivers to every participant of the session but the originating connection.
func (d *Dispatcher) ToRoomExceptSender(ctx context.Context, sessionID domain.SessionID,
	sender contract.EventSink, e event.Event) {
	others := lo.Filter(d.registry.ListParticipants(sessionID), func(m contract.Member, _ int) bool {
		return m.Sink.ConnectionID() != sender.ConnectionID()
	})
	for _, member := range others {
		d.deliver(ctx, member.Sink, e)
	}
}

func (d *Dispatcher) ToSender(ctx context.Context, sink contract.EventSink, e event.Event) {
	d.deliver(ctx, sink, e)
}

func (d *Dispatcher) deliver(ctx context.Context, sink contract.EventSink, e event.Event) {
	if err := sink.Consume(ctx, e); err != nil {
		d.metrics.DroppedEvents.WithLabelValues(string(e.Name())).Inc()
		d.log.Warn("Event not delivered",
			"connection_id", sink.ConnectionID(),
			"event", e.Name(),
			"error", err)
		return
	}
	d.metrics.DeliveredEvents.WithLabelValues(string(e.Name())).Inc()
}
