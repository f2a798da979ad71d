package service

import (
	"context"
	"fmt"
	"log/slog"

	"ctchen222/minimax-tic-tac-toe/internal/auth"
	"ctchen222/minimax-tic-tac-toe/internal/game"
	"ctchen222/minimax-tic-tac-toe/internal/session"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("api.service")

// Notifier tells open websocket rooms that a session changed.
type Notifier interface {
	Notify(ctx context.Context, sessionID, originID string)
	NotifyEnded(ctx context.Context, sessionID string)
}

// GameService defines the business logic behind the HTTP API.
type GameService interface {
	Evaluate(ctx context.Context, board game.Board) (game.Outcome, []int, error)
	BestMove(ctx context.Context, board game.Board, player game.Mark) (int, error)
	StartSession(ctx context.Context) (string, *session.Session, error)
	Authenticate(ctx context.Context, token string) (string, error)
	Session(ctx context.Context, id string) (*session.Session, error)
	Play(ctx context.Context, id string, cell int) (*session.Session, *int, error)
	Restart(ctx context.Context, id string) (*session.Session, error)
	SetAI(ctx context.Context, id string, enabled bool) (*session.Session, error)
	End(ctx context.Context, id string) error
}

type gameService struct {
	sessions session.Service
	computer session.MoveCalculator
	tokens   *auth.TokenIssuer
	notifier Notifier
}

// NewGameService creates a new GameService.
func NewGameService(sessions session.Service, computer session.MoveCalculator, tokens *auth.TokenIssuer, notifier Notifier) GameService {
	return &gameService{
		sessions: sessions,
		computer: computer,
		tokens:   tokens,
		notifier: notifier,
	}
}

// Evaluate classifies a client supplied board and returns its winning line.
func (s *gameService) Evaluate(ctx context.Context, board game.Board) (game.Outcome, []int, error) {
	_, span := tracer.Start(ctx, "api.Evaluate")
	defer span.End()

	if err := game.Validate(board); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Invalid board")
		return game.Outcome{}, nil, err
	}

	outcome := game.Evaluate(board)
	span.SetAttributes(attribute.String("game.status", string(outcome.Status)))

	var line []int
	if outcome.Status == game.StatusWon {
		if l, ok := game.WinningLine(board, outcome.Winner); ok {
			line = l[:]
		}
	}
	return outcome, line, nil
}

// BestMove returns the cell the computer would play for player.
func (s *gameService) BestMove(ctx context.Context, board game.Board, player game.Mark) (int, error) {
	ctx, span := tracer.Start(ctx, "api.BestMove", trace.WithAttributes(
		attribute.String("bot.mark", string(player)),
	))
	defer span.End()

	if err := game.Validate(board); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Invalid board")
		return -1, err
	}

	cell, err := s.computer.CalculateNextMove(ctx, board, player)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "No move available")
		return -1, err
	}
	return cell, nil
}

// StartSession creates a session and the token that grants access to it.
func (s *gameService) StartSession(ctx context.Context) (string, *session.Session, error) {
	sess, err := s.sessions.Create(ctx)
	if err != nil {
		return "", nil, err
	}

	token, err := s.tokens.Issue(sess.ID)
	if err != nil {
		return "", nil, fmt.Errorf("failed to issue token for session %s: %w", sess.ID, err)
	}
	return token, sess, nil
}

// Authenticate resolves a bearer token to its session id.
func (s *gameService) Authenticate(ctx context.Context, token string) (string, error) {
	id, err := s.tokens.Parse(token)
	if err != nil {
		slog.DebugContext(ctx, "Rejected session token", "error", err)
		return "", err
	}
	return id, nil
}

func (s *gameService) Session(ctx context.Context, id string) (*session.Session, error) {
	return s.sessions.Get(ctx, id)
}

// Play applies a human move. When the computer is then to move it replies
// straight away, and the cell it chose is returned.
func (s *gameService) Play(ctx context.Context, id string, cell int) (*session.Session, *int, error) {
	ctx, span := tracer.Start(ctx, "api.Play", trace.WithAttributes(
		attribute.String("session.id", id),
		attribute.Int("move.cell", cell),
	))
	defer span.End()

	sess, err := s.sessions.Move(ctx, id, cell)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Move rejected")
		return nil, nil, err
	}

	var computerCell *int
	if sess.AwaitingComputer() {
		var reply int
		sess, reply, err = s.sessions.ComputerMove(ctx, id)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "Computer move failed")
			// The human move is stored, so open rooms still need it.
			s.notifier.Notify(ctx, id, "")
			return nil, nil, err
		}
		computerCell = &reply
		span.SetAttributes(attribute.Int("bot.cell", reply))
	}

	s.notifier.Notify(ctx, id, "")
	return sess, computerCell, nil
}

func (s *gameService) Restart(ctx context.Context, id string) (*session.Session, error) {
	sess, err := s.sessions.Restart(ctx, id)
	if err != nil {
		return nil, err
	}
	s.notifier.Notify(ctx, id, "")
	return sess, nil
}

func (s *gameService) SetAI(ctx context.Context, id string, enabled bool) (*session.Session, error) {
	sess, err := s.sessions.SetAI(ctx, id, enabled)
	if err != nil {
		return nil, err
	}
	s.notifier.Notify(ctx, id, "")
	return sess, nil
}

func (s *gameService) End(ctx context.Context, id string) error {
	if err := s.sessions.End(ctx, id); err != nil {
		return err
	}
	s.notifier.NotifyEnded(ctx, id)
	return nil
}
