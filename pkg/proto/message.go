package proto

import (
	"ctchen222/minimax-tic-tac-toe/internal/game"
	"ctchen222/minimax-tic-tac-toe/internal/session"
)

// Client message types.
const (
	TypeMove    = "move"
	TypeRestart = "restart"
	TypeSetAI   = "set_ai"
	TypeState   = "state"
)

// Server message types.
const (
	TypeUpdate = "update"
	TypeError  = "error"
)

// ClientToServerMessage represents a message from the client to the server.
type ClientToServerMessage struct {
	Type    string `json:"type" validate:"required,oneof=move restart set_ai state"`
	Cell    *int   `json:"cell,omitempty" validate:"required_if=Type move"`
	Enabled *bool  `json:"enabled,omitempty" validate:"required_if=Type set_ai"`
}

// ServerToClientMessage represents a message from the server to the client.
type ServerToClientMessage struct {
	Type    string          `json:"type" validate:"required"`
	Reason  string          `json:"reason,omitempty"`
	Board   *game.Board     `json:"board,omitempty"`
	Next    game.Mark       `json:"next,omitempty"`
	Status  game.Status     `json:"status,omitempty"`
	Winner  game.Mark       `json:"winner,omitempty"`
	WinLine []int           `json:"win_line,omitempty"`
	Scores  *session.Scores `json:"scores,omitempty"`
	UseAI   bool            `json:"use_ai"`
}

// NewUpdate describes the current state of sess. Next is empty once the game
// is over.
func NewUpdate(sess *session.Session) *ServerToClientMessage {
	g := sess.Game
	board := g.Board
	scores := sess.Scores

	msg := &ServerToClientMessage{
		Type:   TypeUpdate,
		Board:  &board,
		Status: g.Outcome.Status,
		Winner: g.Outcome.Winner,
		Scores: &scores,
		UseAI:  sess.UseAI,
	}
	if !g.Outcome.Finished() {
		msg.Next = g.Turn
	}
	if line, ok := g.WinLine(); ok {
		msg.WinLine = line[:]
	}
	return msg
}

// NewError builds an error reply carrying reason.
func NewError(reason string) *ServerToClientMessage {
	return &ServerToClientMessage{Type: TypeError, Reason: reason}
}
