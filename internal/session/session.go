package session

import (
	"context"
	"errors"
	"time"

	"ctchen222/minimax-tic-tac-toe/internal/game"
)

// ComputerMark is the side played by the computer opponent when AI is on.
const ComputerMark = game.PlayerO

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrComputerTurn    = errors.New("waiting for the computer to move")
	ErrNotComputerTurn = errors.New("it's not the computer's turn")
)

// Scores counts wins per mark for the lifetime of a session.
type Scores struct {
	X int `json:"X"`
	O int `json:"O"`
}

func (s *Scores) add(winner game.Mark) {
	switch winner {
	case game.PlayerX:
		s.X++
	case game.PlayerO:
		s.O++
	}
}

// Session is one browser's game: the board, the AI toggle and the score tally.
type Session struct {
	ID        string     `json:"id"`
	Game      *game.Game `json:"game"`
	UseAI     bool       `json:"use_ai"`
	Scores    Scores     `json:"scores"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// New creates a session with an empty game and AI disabled.
func New(id string, now time.Time) *Session {
	return &Session{
		ID:        id,
		Game:      game.NewGame(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// AwaitingComputer reports whether the next placement belongs to the computer.
func (s *Session) AwaitingComputer() bool {
	return s.UseAI && s.Game.Turn == ComputerMark && !s.Game.Outcome.Finished()
}

// place applies a move for the side to move and credits the winner.
func (s *Session) place(cell int) error {
	outcome, err := s.Game.Place(cell)
	if err != nil {
		return err
	}
	if outcome.Status == game.StatusWon {
		s.Scores.add(outcome.Winner)
	}
	return nil
}

//go:generate mockgen -destination=mocks/mocks.go -package=mocks . Repository,MoveCalculator

// Repository stores sessions. Update must apply fn atomically: concurrent
// updates of the same session never interleave.
type Repository interface {
	Create(ctx context.Context, s *Session) error
	FindByID(ctx context.Context, id string) (*Session, error)
	Update(ctx context.Context, id string, fn func(*Session) error) (*Session, error)
	Delete(ctx context.Context, id string) error
}

// MoveCalculator chooses a cell for mark on board.
type MoveCalculator interface {
	CalculateNextMove(ctx context.Context, board game.Board, mark game.Mark) (int, error)
}
