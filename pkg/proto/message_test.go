package proto

import (
	"encoding/json"
	"testing"
	"time"

	"ctchen222/minimax-tic-tac-toe/internal/game"
	"ctchen222/minimax-tic-tac-toe/internal/session"
	"ctchen222/minimax-tic-tac-toe/internal/validator"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUpdate_InProgress(t *testing.T) {
	sess := session.New("s1", time.Now())
	_, err := sess.Game.Place(4)
	require.NoError(t, err)

	msg := NewUpdate(sess)
	assert.Equal(t, TypeUpdate, msg.Type)
	assert.Equal(t, game.PlayerO, msg.Next)
	assert.Equal(t, game.StatusInProgress, msg.Status)
	assert.Equal(t, game.PlayerX, msg.Board[4])
	assert.Empty(t, msg.WinLine)

	// The message holds a copy of the board.
	sess.Game.Board[0] = game.PlayerO
	assert.Equal(t, game.Empty, msg.Board[0])
}

func TestNewUpdate_Won(t *testing.T) {
	sess := session.New("s1", time.Now())
	sess.UseAI = true
	for _, cell := range []int{0, 3, 1, 4, 2} {
		_, err := sess.Game.Place(cell)
		require.NoError(t, err)
	}

	data, err := json.Marshal(NewUpdate(sess))
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "won", got["status"])
	assert.Equal(t, "X", got["winner"])
	assert.Equal(t, []any{0.0, 1.0, 2.0}, got["win_line"])
	assert.Equal(t, true, got["use_ai"])
	assert.NotContains(t, got, "next")
}

func TestClientToServerMessage_Validation(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{name: "Move", raw: `{"type":"move","cell":0}`},
		{name: "Move without cell", raw: `{"type":"move"}`, wantErr: true},
		{name: "Restart", raw: `{"type":"restart"}`},
		{name: "Set AI", raw: `{"type":"set_ai","enabled":false}`},
		{name: "Set AI without flag", raw: `{"type":"set_ai"}`, wantErr: true},
		{name: "State", raw: `{"type":"state"}`},
		{name: "Unknown type", raw: `{"type":"rematch"}`, wantErr: true},
		{name: "Missing type", raw: `{}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var msg ClientToServerMessage
			require.NoError(t, json.Unmarshal([]byte(tt.raw), &msg))

			err := validator.GetValidator().Struct(msg)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
