package room

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"ctchen222/minimax-tic-tac-toe/internal/session"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
)

const (
	heartbeatInterval = 10 * time.Second
	incomingBuffer    = 10
)

var tracer = otel.Tracer("room")

// Connection is the part of a websocket connection the room uses.
type Connection interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Notifier tells other rooms of the same session that its state changed.
type Notifier interface {
	Notify(ctx context.Context, sessionID, originID string)
}

// Room is one websocket connection bound to a session. All writes to the
// connection happen on the run goroutine.
type Room struct {
	ID        string
	SessionID string

	conn          Connection
	service       session.Service
	notifier      Notifier
	computerDelay time.Duration

	incoming  chan []byte
	refresh   chan struct{}
	Done      chan struct{}
	closeOnce sync.Once
}

// NewRoom creates a room for the session sessionID served over conn.
func NewRoom(id, sessionID string, conn Connection, service session.Service, notifier Notifier, computerDelay time.Duration) *Room {
	return &Room{
		ID:            id,
		SessionID:     sessionID,
		conn:          conn,
		service:       service,
		notifier:      notifier,
		computerDelay: computerDelay,
		incoming:      make(chan []byte, incomingBuffer),
		refresh:       make(chan struct{}, 1),
		Done:          make(chan struct{}),
	}
}

// Start launches the read pump and runs the room loop until the connection
// drops, Close is called or ctx is cancelled.
func (r *Room) Start(ctx context.Context) {
	go r.ReadPump(ctx)
	r.run(ctx)
}

// Close stops the room and closes its connection. It is safe to call more
// than once.
func (r *Room) Close() {
	r.closeOnce.Do(func() {
		close(r.Done)
		r.conn.Close()
	})
}

// Refresh asks the room to push the current session state to its client.
// Requests made while one is pending are merged.
func (r *Room) Refresh() {
	select {
	case r.refresh <- struct{}{}:
	default:
	}
}

// run is the main loop for the room.
func (r *Room) run(ctx context.Context) {
	timer := &computerTimer{t: time.NewTimer(r.computerDelay), delay: r.computerDelay}
	timer.stop()
	pingTicker := time.NewTicker(heartbeatInterval)

	defer func() {
		timer.stop()
		pingTicker.Stop()
		r.Close()
	}()

	// A room can open while the computer is to move, e.g. after a reload.
	timer.follow(r.sendState(ctx))

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Room context cancelled, stopping.", "room.id", r.ID)
			return

		case <-r.Done:
			slog.InfoContext(ctx, "Room run goroutine stopping.", "room.id", r.ID, "session.id", r.SessionID)
			return

		case msg := <-r.incoming:
			// A rejected message returns nil and leaves a pending reply alone.
			timer.follow(r.HandleMessage(ctx, msg))

		case <-timer.t.C:
			timer.pending = false
			timer.follow(r.playComputer(ctx))

		case <-r.refresh:
			timer.follow(r.sendState(ctx))

		case <-pingTicker.C:
			if err := r.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				slog.WarnContext(ctx, "Failed to send ping, assuming disconnect", "room.id", r.ID, "error", err)
				return
			}
		}
	}
}

// computerTimer delays the computer's reply. pending is true while a tick is
// armed and not yet received.
type computerTimer struct {
	t       *time.Timer
	delay   time.Duration
	pending bool
}

// follow arms the timer when sess waits for the computer and disarms it when
// it no longer does. A nil session keeps the current state.
func (c *computerTimer) follow(sess *session.Session) {
	if sess == nil {
		return
	}
	switch awaiting := sess.AwaitingComputer(); {
	case awaiting && !c.pending:
		c.t.Reset(c.delay)
		c.pending = true
	case !awaiting && c.pending:
		c.stop()
	}
}

// stop stops the timer and drains a pending tick so a later Reset starts clean.
func (c *computerTimer) stop() {
	if !c.t.Stop() {
		select {
		case <-c.t.C:
		default:
		}
	}
	c.pending = false
}
