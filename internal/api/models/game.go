package models

import (
	"ctchen222/minimax-tic-tac-toe/internal/game"
	"ctchen222/minimax-tic-tac-toe/internal/session"
)

// EvaluateRequest carries a board in row-major order.
type EvaluateRequest struct {
	Board []game.Mark `json:"board" binding:"required,len=9"`
}

// EvaluateResponse is the outcome of a board plus the line that decided it.
type EvaluateResponse struct {
	Status  game.Status `json:"status"`
	Winner  game.Mark   `json:"winner,omitempty"`
	WinLine []int       `json:"win_line,omitempty"`
}

// BestMoveRequest asks for the best cell for Player on Board.
type BestMoveRequest struct {
	Board  []game.Mark `json:"board" binding:"required,len=9"`
	Player game.Mark   `json:"player" binding:"required,mark"`
}

type BestMoveResponse struct {
	Cell int `json:"cell"`
}

// MoveRequest places the mark of the side to move on Cell.
type MoveRequest struct {
	Cell *int `json:"cell" binding:"required,cell"`
}

type SetAIRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

// SessionResponse is the client's view of a session.
type SessionResponse struct {
	ID      string         `json:"id"`
	Board   game.Board     `json:"board"`
	State   game.State     `json:"state"`
	Next    game.Mark      `json:"next,omitempty"`
	Status  game.Status    `json:"status"`
	Winner  game.Mark      `json:"winner,omitempty"`
	WinLine []int          `json:"win_line,omitempty"`
	Scores  session.Scores `json:"scores"`
	UseAI   bool           `json:"use_ai"`
}

// CreateSessionResponse returns the token that authenticates later requests.
type CreateSessionResponse struct {
	Token   string          `json:"token"`
	Session SessionResponse `json:"session"`
}

// MoveResponse is the session after a move. ComputerCell is set when the
// computer replied in the same request.
type MoveResponse struct {
	SessionResponse
	ComputerCell *int `json:"computer_cell,omitempty"`
}

// ToBoard converts a validated nine-cell slice into a board.
func ToBoard(cells []game.Mark) game.Board {
	var board game.Board
	copy(board[:], cells)
	return board
}

// NewSessionResponse builds the view of sess.
func NewSessionResponse(sess *session.Session) SessionResponse {
	g := sess.Game
	resp := SessionResponse{
		ID:     sess.ID,
		Board:  g.Board,
		State:  g.State(),
		Status: g.Outcome.Status,
		Winner: g.Outcome.Winner,
		Scores: sess.Scores,
		UseAI:  sess.UseAI,
	}
	if !g.Outcome.Finished() {
		resp.Next = g.Turn
	}
	if line, ok := g.WinLine(); ok {
		resp.WinLine = line[:]
	}
	return resp
}
