package bot

import (
	"context"
	"errors"
	"fmt"

	"ctchen222/minimax-tic-tac-toe/internal/game"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var (
	tracer = otel.Tracer("bot")
	meter  = otel.Meter("bot")
)

var (
	ErrNoAvailableMoves = errors.New("no available moves")
	ErrGameOver         = errors.New("game is already decided")
	ErrInvalidMark      = errors.New("bot mark must be X or O")
)

// Computer is the minimax opponent. It implements session.MoveCalculator.
type Computer struct {
	nodes metric.Int64Histogram
	moves metric.Int64Counter
}

// NewComputer creates a Computer reporting to the global meter provider.
func NewComputer() (*Computer, error) {
	nodes, err := meter.Int64Histogram("bot.search.nodes",
		metric.WithDescription("Positions visited by one minimax search"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create search nodes histogram: %w", err)
	}
	moves, err := meter.Int64Counter("bot.moves",
		metric.WithDescription("Moves chosen by the computer opponent"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create moves counter: %w", err)
	}
	return &Computer{nodes: nodes, moves: moves}, nil
}

// CalculateNextMove picks the minimax move for mark. Unlike SelectBestMove it
// reports finished boards as errors, since the board may come from a client.
func (c *Computer) CalculateNextMove(ctx context.Context, board game.Board, mark game.Mark) (int, error) {
	ctx, span := tracer.Start(ctx, "bot.CalculateNextMove", trace.WithAttributes(
		attribute.String("bot.mark", string(mark)),
	))
	defer span.End()

	if mark != game.PlayerX && mark != game.PlayerO {
		span.SetStatus(codes.Error, "Invalid bot mark")
		return -1, fmt.Errorf("%w: %q", ErrInvalidMark, mark)
	}
	if game.Evaluate(board).Finished() {
		if game.IsFull(board) {
			span.SetStatus(codes.Error, "No available moves")
			return -1, ErrNoAvailableMoves
		}
		span.SetStatus(codes.Error, "Game already decided")
		return -1, ErrGameOver
	}

	result := Search(board, mark)
	span.SetAttributes(
		attribute.Int("bot.cell", result.Cell),
		attribute.Int("bot.score", result.Score),
		attribute.Int("bot.nodes", result.Nodes),
	)

	markAttr := metric.WithAttributes(attribute.String("bot.mark", string(mark)))
	c.nodes.Record(ctx, int64(result.Nodes), markAttr)
	c.moves.Add(ctx, 1, markAttr)

	return result.Cell, nil
}
