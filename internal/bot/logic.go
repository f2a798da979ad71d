package bot

import (
	"math"

	"ctchen222/minimax-tic-tac-toe/internal/game"
)

const winScore = 10

// Result is the outcome of a full minimax search from one position.
type Result struct {
	Cell  int
	Score int
	Nodes int
}

// SelectBestMove returns the cell that minimax rates highest for player.
// Ties keep the lowest index. The board must have at least one empty cell.
func SelectBestMove(board game.Board, player game.Mark) int {
	return Search(board, player).Cell
}

// Search explores every continuation of board with player to move. The board
// is taken by value, so speculative placements never reach the caller.
func Search(board game.Board, player game.Mark) Result {
	s := searcher{self: player, opponent: player.Opponent()}
	best := Result{Cell: -1, Score: math.MinInt}

	for cell := range board {
		if board[cell] != game.Empty {
			continue
		}
		board[cell] = player
		score := s.score(&board, 0, false)
		board[cell] = game.Empty

		if score > best.Score {
			best.Cell = cell
			best.Score = score
		}
	}

	if best.Cell == -1 {
		panic("bot: SelectBestMove called on a board with no empty cell")
	}
	best.Nodes = s.nodes
	return best
}

type searcher struct {
	self, opponent game.Mark
	nodes          int
}

// score rates the position for s.self. Wins found deeper are worth less and
// losses found deeper cost less.
func (s *searcher) score(board *game.Board, depth int, maximizing bool) int {
	s.nodes++

	if game.HasWon(*board, s.self) {
		return winScore - depth
	}
	if game.HasWon(*board, s.opponent) {
		return depth - winScore
	}
	if game.IsFull(*board) {
		return 0
	}

	mark, best := s.opponent, math.MaxInt
	if maximizing {
		mark, best = s.self, math.MinInt
	}

	for cell := range board {
		if board[cell] != game.Empty {
			continue
		}
		board[cell] = mark
		score := s.score(board, depth+1, !maximizing)
		board[cell] = game.Empty

		if maximizing {
			best = max(best, score)
		} else {
			best = min(best, score)
		}
	}
	return best
}
