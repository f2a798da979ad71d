package room_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"ctchen222/minimax-tic-tac-toe/internal/bot"
	"ctchen222/minimax-tic-tac-toe/internal/game"
	"ctchen222/minimax-tic-tac-toe/internal/repository"
	"ctchen222/minimax-tic-tac-toe/internal/room"
	"ctchen222/minimax-tic-tac-toe/internal/session"
	"ctchen222/minimax-tic-tac-toe/pkg/proto"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const waitTimeout = 2 * time.Second

var errConnClosed = errors.New("connection closed")

// fakeConn feeds queued client messages to the room and records what the
// room writes back.
type fakeConn struct {
	in     chan []byte
	out    chan []byte
	closed chan struct{}
	once   sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		in:     make(chan []byte, 10),
		out:    make(chan []byte, 50),
		closed: make(chan struct{}),
	}
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	select {
	case msg := <-c.in:
		return websocket.TextMessage, msg, nil
	case <-c.closed:
		return 0, nil, errConnClosed
	}
}

func (c *fakeConn) WriteMessage(messageType int, data []byte) error {
	if messageType != websocket.TextMessage {
		return nil
	}
	select {
	case <-c.closed:
		return errConnClosed
	default:
	}
	c.out <- data
	return nil
}

func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) send(t *testing.T, msg string) {
	t.Helper()
	c.in <- []byte(msg)
}

func (c *fakeConn) next(t *testing.T) proto.ServerToClientMessage {
	t.Helper()
	select {
	case data := <-c.out:
		var msg proto.ServerToClientMessage
		require.NoError(t, json.Unmarshal(data, &msg))
		return msg
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for a server message")
		return proto.ServerToClientMessage{}
	}
}

type notification struct {
	sessionID string
	originID  string
}

type recordingNotifier struct {
	mu    sync.Mutex
	calls []notification
}

func (n *recordingNotifier) Notify(_ context.Context, sessionID, originID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, notification{sessionID: sessionID, originID: originID})
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.calls)
}

type fixture struct {
	svc      session.Service
	sess     *session.Session
	conn     *fakeConn
	room     *room.Room
	notifier *recordingNotifier
	stopped  chan struct{}
}

func newService(t *testing.T) session.Service {
	t.Helper()
	computer, err := bot.NewComputer()
	require.NoError(t, err)
	return session.NewService(repository.NewMemorySessionRepository(time.Hour), computer)
}

// openRoom runs a room for sess until the test ends. The caller reads the
// greeting.
func openRoom(t *testing.T, svc session.Service, sess *session.Session, id string, delay time.Duration) *fixture {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	f := &fixture{
		svc:      svc,
		sess:     sess,
		conn:     newFakeConn(),
		notifier: &recordingNotifier{},
		stopped:  make(chan struct{}),
	}
	f.room = room.NewRoom(id, sess.ID, f.conn, svc, f.notifier, delay)

	go func() {
		defer close(f.stopped)
		f.room.Start(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-f.stopped
	})
	return f
}

func startRoom(t *testing.T, delay time.Duration) *fixture {
	t.Helper()

	svc := newService(t)
	sess, err := svc.Create(context.Background())
	require.NoError(t, err)
	f := openRoom(t, svc, sess, "conn-1", delay)

	// The room greets every connection with the current state.
	initial := f.conn.next(t)
	require.Equal(t, proto.TypeUpdate, initial.Type)
	require.Equal(t, game.PlayerX, initial.Next)
	return f
}

func TestRoom_HumanMove(t *testing.T) {
	f := startRoom(t, 10*time.Millisecond)

	f.conn.send(t, `{"type":"move","cell":4}`)

	msg := f.conn.next(t)
	assert.Equal(t, proto.TypeUpdate, msg.Type)
	assert.Equal(t, game.PlayerX, msg.Board[4])
	assert.Equal(t, game.PlayerO, msg.Next)
	assert.Equal(t, game.StatusInProgress, msg.Status)

	require.Eventually(t, func() bool { return f.notifier.count() == 1 }, waitTimeout, 5*time.Millisecond)
	assert.Equal(t, notification{sessionID: f.sess.ID, originID: "conn-1"}, f.notifier.calls[0])
}

func TestRoom_ComputerRepliesAfterDelay(t *testing.T) {
	delay := 50 * time.Millisecond
	f := startRoom(t, delay)

	f.conn.send(t, `{"type":"set_ai","enabled":true}`)
	msg := f.conn.next(t)
	assert.True(t, msg.UseAI)

	sent := time.Now()
	f.conn.send(t, `{"type":"move","cell":0}`)

	human := f.conn.next(t)
	assert.Equal(t, game.PlayerX, human.Board[0])
	assert.Equal(t, game.PlayerO, human.Next)

	computer := f.conn.next(t)
	assert.GreaterOrEqual(t, time.Since(sent), delay)
	assert.Equal(t, game.PlayerO, computer.Board[4])
	assert.Equal(t, game.PlayerX, computer.Next)
}

func TestRoom_RejectsMoveWhileComputerIsThinking(t *testing.T) {
	f := startRoom(t, time.Hour)

	f.conn.send(t, `{"type":"set_ai","enabled":true}`)
	f.conn.next(t)

	f.conn.send(t, `{"type":"move","cell":0}`)
	f.conn.next(t)

	f.conn.send(t, `{"type":"move","cell":1}`)
	msg := f.conn.next(t)
	assert.Equal(t, proto.TypeError, msg.Type)
	assert.Equal(t, session.ErrComputerTurn.Error(), msg.Reason)
}

func TestRoom_ComputerStillRepliesAfterRejectedMove(t *testing.T) {
	f := startRoom(t, 200*time.Millisecond)

	f.conn.send(t, `{"type":"set_ai","enabled":true}`)
	f.conn.next(t)

	f.conn.send(t, `{"type":"move","cell":0}`)
	f.conn.next(t)

	f.conn.send(t, `{"type":"move","cell":1}`)
	rejected := f.conn.next(t)
	require.Equal(t, proto.TypeError, rejected.Type)
	assert.Equal(t, session.ErrComputerTurn.Error(), rejected.Reason)

	computer := f.conn.next(t)
	assert.Equal(t, proto.TypeUpdate, computer.Type)
	assert.Equal(t, game.PlayerO, computer.Board[4])
	assert.Equal(t, game.Empty, computer.Board[1])
	assert.Equal(t, game.PlayerX, computer.Next)
}

func TestRoom_ReopenedRoomPlaysPendingComputerMove(t *testing.T) {
	first := startRoom(t, time.Hour)

	first.conn.send(t, `{"type":"set_ai","enabled":true}`)
	first.conn.next(t)
	first.conn.send(t, `{"type":"move","cell":0}`)
	first.conn.next(t)

	first.conn.Close()
	select {
	case <-first.stopped:
	case <-time.After(waitTimeout):
		t.Fatal("first room did not stop")
	}

	second := openRoom(t, first.svc, first.sess, "conn-2", 20*time.Millisecond)

	initial := second.conn.next(t)
	assert.Equal(t, game.PlayerO, initial.Next)

	computer := second.conn.next(t)
	assert.Equal(t, game.PlayerO, computer.Board[4])
	assert.Equal(t, game.PlayerX, computer.Next)
}

func TestRoom_RefreshArmsComputerMove(t *testing.T) {
	f := startRoom(t, 20*time.Millisecond)
	ctx := context.Background()

	_, err := f.svc.SetAI(ctx, f.sess.ID, true)
	require.NoError(t, err)
	_, err = f.svc.Move(ctx, f.sess.ID, 0)
	require.NoError(t, err)

	f.room.Refresh()
	refreshed := f.conn.next(t)
	assert.Equal(t, game.PlayerO, refreshed.Next)

	computer := f.conn.next(t)
	assert.Equal(t, game.PlayerO, computer.Board[4])
	assert.Equal(t, game.PlayerX, computer.Next)
}

func TestRoom_InvalidRequests(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		reason string
	}{
		{name: "Malformed JSON", raw: `{"type":`, reason: "invalid message"},
		{name: "Unknown type", raw: `{"type":"rematch"}`, reason: "invalid message"},
		{name: "Move without cell", raw: `{"type":"move"}`, reason: "invalid message"},
		{name: "Cell off the board", raw: `{"type":"move","cell":9}`, reason: "invalid cell: 9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := startRoom(t, time.Hour)

			f.conn.send(t, tt.raw)
			msg := f.conn.next(t)
			assert.Equal(t, proto.TypeError, msg.Type)
			assert.Equal(t, tt.reason, msg.Reason)
			assert.Zero(t, f.notifier.count())
		})
	}
}

func TestRoom_OccupiedCell(t *testing.T) {
	f := startRoom(t, time.Hour)

	f.conn.send(t, `{"type":"move","cell":4}`)
	f.conn.next(t)

	f.conn.send(t, `{"type":"move","cell":4}`)
	msg := f.conn.next(t)
	assert.Equal(t, proto.TypeError, msg.Type)
	assert.Equal(t, "cell already occupied: 4", msg.Reason)
}

func TestRoom_RestartKeepsScores(t *testing.T) {
	f := startRoom(t, time.Hour)

	for _, cell := range []int{0, 3, 1, 4, 2} {
		f.conn.send(t, fmt.Sprintf(`{"type":"move","cell":%d}`, cell))
		f.conn.next(t)
	}

	f.conn.send(t, `{"type":"restart"}`)
	msg := f.conn.next(t)
	assert.Equal(t, game.Board{}, *msg.Board)
	assert.Equal(t, game.PlayerX, msg.Next)
	assert.Equal(t, 1, msg.Scores.X)
}

func TestRoom_Refresh(t *testing.T) {
	f := startRoom(t, time.Hour)

	_, err := f.svc.Move(context.Background(), f.sess.ID, 8)
	require.NoError(t, err)

	f.room.Refresh()
	msg := f.conn.next(t)
	assert.Equal(t, game.PlayerX, msg.Board[8])
	assert.Zero(t, f.notifier.count())
}

func TestRoom_ClosesWhenSessionEnds(t *testing.T) {
	f := startRoom(t, time.Hour)

	require.NoError(t, f.svc.End(context.Background(), f.sess.ID))

	f.conn.send(t, `{"type":"state"}`)
	msg := f.conn.next(t)
	assert.Equal(t, proto.TypeError, msg.Type)
	assert.Equal(t, session.ErrSessionNotFound.Error(), msg.Reason)

	select {
	case <-f.stopped:
	case <-time.After(waitTimeout):
		t.Fatal("room did not stop after its session ended")
	}
}

func TestRoom_StopsWhenClientDisconnects(t *testing.T) {
	f := startRoom(t, time.Hour)

	f.conn.Close()

	select {
	case <-f.room.Done:
	case <-time.After(waitTimeout):
		t.Fatal("room did not stop after the client disconnected")
	}
}
