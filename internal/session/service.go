package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"ctchen222/minimax-tic-tac-toe/internal/game"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("session")

// Service defines the game operations available to a session's owner.
type Service interface {
	Create(ctx context.Context) (*Session, error)
	Get(ctx context.Context, id string) (*Session, error)
	Move(ctx context.Context, id string, cell int) (*Session, error)
	ComputerMove(ctx context.Context, id string) (*Session, int, error)
	Restart(ctx context.Context, id string) (*Session, error)
	SetAI(ctx context.Context, id string, enabled bool) (*Session, error)
	End(ctx context.Context, id string) error
}

type service struct {
	repo     Repository
	computer MoveCalculator
	now      func() time.Time
}

// NewService creates a new Service.
func NewService(repo Repository, computer MoveCalculator) Service {
	return &service{
		repo:     repo,
		computer: computer,
		now:      time.Now,
	}
}

// Create starts a new session with an empty board.
func (s *service) Create(ctx context.Context) (*Session, error) {
	ctx, span := tracer.Start(ctx, "session.Create")
	defer span.End()

	sess := New(uuid.New().String(), s.now().UTC())
	span.SetAttributes(attribute.String("session.id", sess.ID))

	if err := s.repo.Create(ctx, sess); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to create session")
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	slog.InfoContext(ctx, "Session created", "session.id", sess.ID)
	return sess, nil
}

// Get returns the session with the given id.
func (s *service) Get(ctx context.Context, id string) (*Session, error) {
	ctx, span := tracer.Start(ctx, "session.Get", trace.WithAttributes(
		attribute.String("session.id", id),
	))
	defer span.End()

	sess, err := s.repo.FindByID(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to find session")
		return nil, err
	}
	return sess, nil
}

// Move places the mark of the side to move on cell. While the computer is
// to move, human moves are refused.
func (s *service) Move(ctx context.Context, id string, cell int) (*Session, error) {
	ctx, span := tracer.Start(ctx, "session.Move", trace.WithAttributes(
		attribute.String("session.id", id),
		attribute.Int("move.cell", cell),
	))
	defer span.End()

	sess, err := s.repo.Update(ctx, id, func(sess *Session) error {
		if sess.AwaitingComputer() {
			return ErrComputerTurn
		}
		return s.place(ctx, sess, cell)
	})
	if err != nil {
		span.SetAttributes(attribute.Bool("move.valid", false))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Invalid move")
		return nil, err
	}
	span.SetAttributes(attribute.Bool("move.valid", true))
	return sess, nil
}

// ComputerMove lets the computer play its mark. It returns the chosen cell.
func (s *service) ComputerMove(ctx context.Context, id string) (*Session, int, error) {
	ctx, span := tracer.Start(ctx, "session.ComputerMove", trace.WithAttributes(
		attribute.String("session.id", id),
	))
	defer span.End()

	cell := -1
	sess, err := s.repo.Update(ctx, id, func(sess *Session) error {
		if !sess.AwaitingComputer() {
			return ErrNotComputerTurn
		}

		var err error
		cell, err = s.computer.CalculateNextMove(ctx, sess.Game.Board, ComputerMark)
		if err != nil {
			return fmt.Errorf("computer failed to choose a move: %w", err)
		}
		return s.place(ctx, sess, cell)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Computer move failed")
		return nil, -1, err
	}

	span.SetAttributes(attribute.Int("move.cell", cell))
	return sess, cell, nil
}

// Restart clears the board. Scores are kept.
func (s *service) Restart(ctx context.Context, id string) (*Session, error) {
	ctx, span := tracer.Start(ctx, "session.Restart", trace.WithAttributes(
		attribute.String("session.id", id),
	))
	defer span.End()

	sess, err := s.repo.Update(ctx, id, func(sess *Session) error {
		sess.Game.Reset()
		sess.UpdatedAt = s.now().UTC()
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to restart game")
		return nil, err
	}

	slog.InfoContext(ctx, "Game restarted", "session.id", id)
	return sess, nil
}

// SetAI toggles the computer opponent and restarts the game.
func (s *service) SetAI(ctx context.Context, id string, enabled bool) (*Session, error) {
	ctx, span := tracer.Start(ctx, "session.SetAI", trace.WithAttributes(
		attribute.String("session.id", id),
		attribute.Bool("session.use_ai", enabled),
	))
	defer span.End()

	sess, err := s.repo.Update(ctx, id, func(sess *Session) error {
		sess.UseAI = enabled
		sess.Game.Reset()
		sess.UpdatedAt = s.now().UTC()
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to toggle AI")
		return nil, err
	}

	slog.InfoContext(ctx, "AI opponent toggled", "session.id", id, "use_ai", enabled)
	return sess, nil
}

// End discards the session and its scores.
func (s *service) End(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "session.End", trace.WithAttributes(
		attribute.String("session.id", id),
	))
	defer span.End()

	if err := s.repo.Delete(ctx, id); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to end session")
		return err
	}

	slog.InfoContext(ctx, "Session ended", "session.id", id)
	return nil
}

func (s *service) place(ctx context.Context, sess *Session, cell int) error {
	mover := sess.Game.Turn
	if err := sess.place(cell); err != nil {
		return err
	}
	sess.UpdatedAt = s.now().UTC()

	switch outcome := sess.Game.Outcome; outcome.Status {
	case game.StatusWon:
		slog.InfoContext(ctx, "Game won", "session.id", sess.ID, "winner", outcome.Winner, "scores.x", sess.Scores.X, "scores.o", sess.Scores.O)
	case game.StatusDraw:
		slog.InfoContext(ctx, "Game drawn", "session.id", sess.ID)
	default:
		slog.DebugContext(ctx, "Move placed", "session.id", sess.ID, "mark", mover, "cell", cell)
	}
	return nil
}
