package game

import (
	"errors"
	"fmt"
)

// State is the phase of a game.
type State string

const (
	StateXTurn State = "x_turn"
	StateOTurn State = "o_turn"
	StateWon   State = "won"
	StateDraw  State = "draw"
)

var (
	ErrGameOver     = errors.New("game already finished")
	ErrInvalidCell  = errors.New("invalid cell")
	ErrCellOccupied = errors.New("cell already occupied")
)

type Game struct {
	Board   Board   `json:"board"`
	Turn    Mark    `json:"turn"`
	Outcome Outcome `json:"outcome"`
}

// NewGame returns an empty game with X to move.
func NewGame() *Game {
	return &Game{
		Board:   Board{},
		Turn:    PlayerX,
		Outcome: InProgress,
	}
}

// State derives the state machine phase from the outcome and turn.
func (g *Game) State() State {
	switch g.Outcome.Status {
	case StatusWon:
		return StateWon
	case StatusDraw:
		return StateDraw
	}
	if g.Turn == PlayerO {
		return StateOTurn
	}
	return StateXTurn
}

// Place puts the mark of the player to move on cell and evaluates the board.
// The turn only passes to the opponent while the game is still in progress.
func (g *Game) Place(cell int) (Outcome, error) {
	if g.Outcome.Finished() {
		return g.Outcome, ErrGameOver
	}
	if cell < 0 || cell >= BoardSize {
		return g.Outcome, fmt.Errorf("%w: %d", ErrInvalidCell, cell)
	}
	if g.Board[cell] != Empty {
		return g.Outcome, fmt.Errorf("%w: %d", ErrCellOccupied, cell)
	}

	g.Board[cell] = g.Turn
	g.Outcome = Evaluate(g.Board)
	if !g.Outcome.Finished() {
		g.Turn = g.Turn.Opponent()
	}
	return g.Outcome, nil
}

// Reset empties the board and hands the first move back to X.
func (g *Game) Reset() {
	*g = *NewGame()
}

// WinLine returns the completed line of a won game.
func (g *Game) WinLine() ([3]int, bool) {
	if g.Outcome.Status != StatusWon {
		return [3]int{}, false
	}
	return WinningLine(g.Board, g.Outcome.Winner)
}
