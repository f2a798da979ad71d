package game

import (
	"errors"
	"fmt"
)

// Mark represents the mark of a player (X, O) or an empty cell.
type Mark string

const (
	Empty   Mark = ""
	PlayerX Mark = "X"
	PlayerO Mark = "O"
)

// Opponent returns the other player's mark. Empty has no opponent.
func (m Mark) Opponent() Mark {
	switch m {
	case PlayerX:
		return PlayerO
	case PlayerO:
		return PlayerX
	default:
		return Empty
	}
}

// Valid reports whether m is one of Empty, PlayerX or PlayerO.
func (m Mark) Valid() bool {
	return m == Empty || m == PlayerX || m == PlayerO
}

// Board is the 3x3 grid in row-major order, cells 0 through 8.
type Board [BoardSize]Mark

const BoardSize = 9

// WinLines lists every row, column and diagonal.
var WinLines = [8][3]int{
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8},
	{0, 3, 6}, {1, 4, 7}, {2, 5, 8},
	{0, 4, 8}, {2, 4, 6},
}

var (
	ErrInvalidMark     = errors.New("invalid mark")
	ErrImpossibleBoard = errors.New("board is not reachable by alternating play")
)

// Status is the coarse result of a board.
type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusWon        Status = "won"
	StatusDraw       Status = "draw"
)

// Outcome is the result of evaluating a board. Winner is only set when
// Status is StatusWon.
type Outcome struct {
	Status Status `json:"status"`
	Winner Mark   `json:"winner,omitempty"`
}

var InProgress = Outcome{Status: StatusInProgress}

// Finished reports whether the outcome is terminal.
func (o Outcome) Finished() bool {
	return o.Status == StatusWon || o.Status == StatusDraw
}

// HasWon reports whether player occupies all three cells of any win line.
func HasWon(board Board, player Mark) bool {
	_, ok := WinningLine(board, player)
	return ok
}

// WinningLine returns the first win line completed by player.
func WinningLine(board Board, player Mark) ([3]int, bool) {
	if player == Empty {
		return [3]int{}, false
	}
	for _, line := range WinLines {
		if board[line[0]] == player && board[line[1]] == player && board[line[2]] == player {
			return line, true
		}
	}
	return [3]int{}, false
}

// IsFull reports whether no cell is empty.
func IsFull(board Board) bool {
	for _, cell := range board {
		if cell == Empty {
			return false
		}
	}
	return true
}

// EmptyCells returns the indexes of the empty cells in ascending order.
func EmptyCells(board Board) []int {
	cells := make([]int, 0, BoardSize)
	for i, cell := range board {
		if cell == Empty {
			cells = append(cells, i)
		}
	}
	return cells
}

// Evaluate reports whether the board is won, drawn or still in progress.
// A win is reported even when the board is also full.
func Evaluate(board Board) Outcome {
	for _, player := range [2]Mark{PlayerX, PlayerO} {
		if HasWon(board, player) {
			return Outcome{Status: StatusWon, Winner: player}
		}
	}
	if IsFull(board) {
		return Outcome{Status: StatusDraw}
	}
	return InProgress
}

// Validate checks a board received from outside the process. It accepts any
// board that alternating play could produce, whichever side moved first.
func Validate(board Board) error {
	var x, o int
	for i, cell := range board {
		switch cell {
		case PlayerX:
			x++
		case PlayerO:
			o++
		case Empty:
		default:
			return fmt.Errorf("%w: %q at cell %d", ErrInvalidMark, cell, i)
		}
	}

	if x-o > 1 || o-x > 1 {
		return fmt.Errorf("%w: %d X marks and %d O marks", ErrImpossibleBoard, x, o)
	}
	if HasWon(board, PlayerX) && HasWon(board, PlayerO) {
		return fmt.Errorf("%w: both players have a win line", ErrImpossibleBoard)
	}
	return nil
}
