package room

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"ctchen222/minimax-tic-tac-toe/internal/game"
	"ctchen222/minimax-tic-tac-toe/internal/session"
	"ctchen222/minimax-tic-tac-toe/internal/validator"
	"ctchen222/minimax-tic-tac-toe/pkg/proto"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	reasonInvalidMessage = "invalid message"
	reasonInternal       = "internal error"
)

// HandleMessage handles a message from the client. It acts as a dispatcher
// and returns the session after the change, or nil when nothing was applied.
func (r *Room) HandleMessage(ctx context.Context, rawMessage []byte) *session.Session {
	ctx, span := tracer.Start(ctx, "room.HandleMessage", trace.WithAttributes(
		attribute.String("room.id", r.ID),
		attribute.String("session.id", r.SessionID),
	))
	defer span.End()

	var message proto.ClientToServerMessage
	if err := json.Unmarshal(rawMessage, &message); err != nil {
		slog.WarnContext(ctx, "error unmarshalling message", "room.id", r.ID, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Error unmarshalling message")
		r.Send(ctx, proto.NewError(reasonInvalidMessage))
		return nil
	}

	if err := validator.GetValidator().Struct(message); err != nil {
		slog.WarnContext(ctx, "invalid message from client", "room.id", r.ID, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Invalid message format")
		r.Send(ctx, proto.NewError(reasonInvalidMessage))
		return nil
	}

	span.SetAttributes(attribute.String("message.type", message.Type))

	var (
		sess *session.Session
		err  error
	)
	switch message.Type {
	case proto.TypeMove:
		span.SetAttributes(attribute.Int("move.cell", *message.Cell))
		sess, err = r.service.Move(ctx, r.SessionID, *message.Cell)
	case proto.TypeRestart:
		sess, err = r.service.Restart(ctx, r.SessionID)
	case proto.TypeSetAI:
		sess, err = r.service.SetAI(ctx, r.SessionID, *message.Enabled)
	case proto.TypeState:
		sess, err = r.service.Get(ctx, r.SessionID)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Message rejected")
		r.replyError(ctx, err)
		return nil
	}

	r.Send(ctx, proto.NewUpdate(sess))
	if message.Type != proto.TypeState {
		r.notifier.Notify(ctx, r.SessionID, r.ID)
	}
	return sess
}

// playComputer applies the computer's reply once the delay has passed. It
// returns the session after the move, or nil when no move was made.
func (r *Room) playComputer(ctx context.Context) *session.Session {
	ctx, span := tracer.Start(ctx, "room.playComputer", trace.WithAttributes(
		attribute.String("room.id", r.ID),
		attribute.String("session.id", r.SessionID),
	))
	defer span.End()

	sess, cell, err := r.service.ComputerMove(ctx, r.SessionID)
	if errors.Is(err, session.ErrNotComputerTurn) {
		// Another connection of the session already moved for the computer.
		slog.DebugContext(ctx, "Computer move no longer needed", "room.id", r.ID)
		return nil
	}
	if err != nil {
		slog.ErrorContext(ctx, "Computer move failed", "room.id", r.ID, "session.id", r.SessionID, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Computer move failed")
		r.replyError(ctx, err)
		return nil
	}

	span.SetAttributes(attribute.Int("move.cell", cell))
	r.Send(ctx, proto.NewUpdate(sess))
	r.notifier.Notify(ctx, r.SessionID, r.ID)
	return sess
}

// sendState pushes the stored session to the client and returns it, or nil
// when it could not be loaded.
func (r *Room) sendState(ctx context.Context) *session.Session {
	sess, err := r.service.Get(ctx, r.SessionID)
	if err != nil {
		r.replyError(ctx, err)
		return nil
	}
	r.Send(ctx, proto.NewUpdate(sess))
	return sess
}

// replyError tells the client why its request failed. A session that no
// longer exists closes the room.
func (r *Room) replyError(ctx context.Context, err error) {
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		r.Send(ctx, proto.NewError(err.Error()))
		r.Close()
	case errors.Is(err, game.ErrInvalidCell),
		errors.Is(err, game.ErrCellOccupied),
		errors.Is(err, game.ErrGameOver),
		errors.Is(err, session.ErrComputerTurn):
		slog.InfoContext(ctx, "Rejected move", "room.id", r.ID, "reason", err)
		r.Send(ctx, proto.NewError(err.Error()))
	default:
		slog.ErrorContext(ctx, "Room request failed", "room.id", r.ID, "error", err)
		r.Send(ctx, proto.NewError(reasonInternal))
	}
}
