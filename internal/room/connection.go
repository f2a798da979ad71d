package room

import (
	"context"
	"encoding/json"
	"log/slog"

	"ctchen222/minimax-tic-tac-toe/pkg/proto"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Send writes message to the client. It must only be called from the room
// loop.
func (r *Room) Send(ctx context.Context, message *proto.ServerToClientMessage) {
	_, span := tracer.Start(ctx, "room.Send", trace.WithAttributes(
		attribute.String("room.id", r.ID),
		attribute.String("message.type", message.Type),
	))
	defer span.End()

	data, err := json.Marshal(message)
	if err != nil {
		slog.ErrorContext(ctx, "error marshalling message", "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Error marshalling message")
		return
	}

	if err := r.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		slog.WarnContext(ctx, "error writing message to client", "room.id", r.ID, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Error writing message to client")
	}
}

// ReadPump pumps messages from the websocket connection to the room's
// incoming channel. A read error closes the room.
func (r *Room) ReadPump(ctx context.Context) {
	defer r.Close()

	for {
		_, msg, err := r.conn.ReadMessage()
		if err != nil {
			select {
			case <-r.Done:
			default:
				slog.InfoContext(ctx, "Client connection closed", "room.id", r.ID, "session.id", r.SessionID, "error", err)
			}
			return
		}

		select {
		case r.incoming <- msg:
		case <-r.Done:
			return
		}
	}
}
