package hub

import (
	"context"
	"log/slog"

	"ctchen222/minimax-tic-tac-toe/internal/events"
	"ctchen222/minimax-tic-tac-toe/internal/room"

	"github.com/go-redis/redis/v8"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("hub")

// Listener is a live connection of a session that reacts to its changes.
type Listener interface {
	Refresh()
	Close()
}

type registration struct {
	sessionID string
	roomID    string
	listener  Listener
}

// Hub keeps track of the open rooms of every session and tells them when
// their session changes. With a Redis client the changes travel over Pub/Sub
// so rooms on other instances hear about them too; without one they are
// delivered in-process.
type Hub struct {
	rooms      map[string]map[string]Listener
	register   chan registration
	unregister chan registration
	deliver    chan []byte
	rdb        *redis.Client
	done       chan struct{}
}

// NewHub creates a new hub. rdb may be nil.
func NewHub(rdb *redis.Client) *Hub {
	return &Hub{
		rooms:      make(map[string]map[string]Listener),
		register:   make(chan registration),
		unregister: make(chan registration),
		deliver:    make(chan []byte, 64),
		rdb:        rdb,
		done:       make(chan struct{}),
	}
}

// Run starts the hub. It returns when ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	if h.rdb != nil {
		go h.runEventSubscriber(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Hub stopping", "rooms", h.roomCount())
			return

		case reg := <-h.register:
			if h.rooms[reg.sessionID] == nil {
				h.rooms[reg.sessionID] = make(map[string]Listener)
			}
			h.rooms[reg.sessionID][reg.roomID] = reg.listener
			slog.DebugContext(ctx, "Room registered", "session.id", reg.sessionID, "room.id", reg.roomID)

		case reg := <-h.unregister:
			if rooms, ok := h.rooms[reg.sessionID]; ok {
				delete(rooms, reg.roomID)
				if len(rooms) == 0 {
					delete(h.rooms, reg.sessionID)
				}
			}
			slog.DebugContext(ctx, "Room unregistered", "session.id", reg.sessionID, "room.id", reg.roomID)

		case data := <-h.deliver:
			h.handleEvent(ctx, data)
		}
	}
}

// Register adds a room of sessionID. It is a no-op once the hub has stopped.
func (h *Hub) Register(sessionID, roomID string, l Listener) {
	select {
	case h.register <- registration{sessionID: sessionID, roomID: roomID, listener: l}:
	case <-h.done:
	}
}

// Unregister removes a room added with Register.
func (h *Hub) Unregister(sessionID, roomID string) {
	select {
	case h.unregister <- registration{sessionID: sessionID, roomID: roomID}:
	case <-h.done:
	}
}

// Serve registers r, runs it until it stops and unregisters it.
func (h *Hub) Serve(ctx context.Context, r *room.Room) {
	h.Register(r.SessionID, r.ID, r)
	defer h.Unregister(r.SessionID, r.ID)
	r.Start(ctx)
}

// Notify tells every room of sessionID except originID to push the new state.
func (h *Hub) Notify(ctx context.Context, sessionID, originID string) {
	h.publish(ctx, events.TypeSessionUpdated, events.SessionPayload{SessionID: sessionID, OriginID: originID})
}

// NotifyEnded closes every room of sessionID.
func (h *Hub) NotifyEnded(ctx context.Context, sessionID string) {
	h.publish(ctx, events.TypeSessionEnded, events.SessionPayload{SessionID: sessionID})
}

func (h *Hub) publish(ctx context.Context, eventType string, payload events.SessionPayload) {
	ctx, span := tracer.Start(ctx, "hub.publish", trace.WithAttributes(
		attribute.String("event.type", eventType),
		attribute.String("session.id", payload.SessionID),
	))
	defer span.End()

	event, err := events.NewSessionEvent(eventType, payload)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to encode event", "event.type", eventType, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to encode event")
		return
	}

	if h.rdb != nil {
		if err := h.rdb.Publish(ctx, events.EventsChannel, event).Err(); err != nil {
			slog.ErrorContext(ctx, "Failed to publish event", "event.type", eventType, "session.id", payload.SessionID, "error", err)
			span.RecordError(err)
			span.SetStatus(codes.Error, "Failed to publish event")
		}
		return
	}

	select {
	case h.deliver <- event:
	case <-h.done:
	case <-ctx.Done():
	}
}

func (h *Hub) roomCount() int {
	n := 0
	for _, rooms := range h.rooms {
		n += len(rooms)
	}
	return n
}
