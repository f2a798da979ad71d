package hub

import (
	"context"
	"log/slog"

	"ctchen222/minimax-tic-tac-toe/internal/events"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// runEventSubscriber forwards events published by any instance to the hub
// loop.
func (h *Hub) runEventSubscriber(ctx context.Context) {
	slog.InfoContext(ctx, "Event subscriber started", "channel", events.EventsChannel)
	pubsub := h.rdb.Subscribe(ctx, events.EventsChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Event subscriber stopped", "channel", events.EventsChannel)
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			select {
			case h.deliver <- []byte(msg.Payload):
			case <-ctx.Done():
				return
			}
		}
	}
}

// handleEvent applies an event to the local rooms of its session. It runs on
// the hub loop.
func (h *Hub) handleEvent(ctx context.Context, data []byte) {
	eventType, payload, err := events.ParseSessionEvent(data)
	if err != nil {
		slog.ErrorContext(ctx, "Could not unmarshal global event", "error", err)
		return
	}

	rooms := h.rooms[payload.SessionID]
	if len(rooms) == 0 {
		return
	}

	_, span := tracer.Start(ctx, "hub.handleEvent", trace.WithAttributes(
		attribute.String("event.type", eventType),
		attribute.String("session.id", payload.SessionID),
		attribute.Int("hub.rooms", len(rooms)),
	))
	defer span.End()

	switch eventType {
	case events.TypeSessionUpdated:
		for id, l := range rooms {
			if id != payload.OriginID {
				l.Refresh()
			}
		}
	case events.TypeSessionEnded:
		for _, l := range rooms {
			l.Close()
		}
	default:
		slog.WarnContext(ctx, "Unknown event type", "event.type", eventType)
		span.SetStatus(codes.Error, "Unknown event type")
	}
}
