package response

import (
	"errors"
	"log/slog"
	"net/http"

	"ctchen222/minimax-tic-tac-toe/internal/auth"
	"ctchen222/minimax-tic-tac-toe/internal/bot"
	"ctchen222/minimax-tic-tac-toe/internal/game"
	"ctchen222/minimax-tic-tac-toe/internal/repository"
	"ctchen222/minimax-tic-tac-toe/internal/session"

	"github.com/gin-gonic/gin"
)

type Error struct {
	Success bool   `json:"success"`
	Code    int    `json:"code"`
	Extras  string `json:"extras"`
}

func (e Error) Error() string {
	return e.Extras
}

func NewError(success bool, code int, message string) Error {
	return Error{
		Success: success,
		Code:    code,
		Extras:  message,
	}
}

// BadRequest wraps a request decoding or binding failure.
func BadRequest(err error) Error {
	return NewError(false, http.StatusBadRequest, err.Error())
}

// StatusFromError maps the domain's sentinel errors to HTTP status codes.
func StatusFromError(err error) int {
	var apiErr Error
	switch {
	case errors.As(err, &apiErr):
		return apiErr.Code
	case errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, session.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, game.ErrInvalidCell),
		errors.Is(err, game.ErrInvalidMark),
		errors.Is(err, game.ErrImpossibleBoard),
		errors.Is(err, bot.ErrInvalidMark),
		errors.Is(err, bot.ErrGameOver),
		errors.Is(err, bot.ErrNoAvailableMoves):
		return http.StatusBadRequest
	case errors.Is(err, game.ErrCellOccupied),
		errors.Is(err, game.ErrGameOver),
		errors.Is(err, session.ErrComputerTurn),
		errors.Is(err, session.ErrNotComputerTurn),
		errors.Is(err, repository.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// FromError writes err with the status it maps to. Internal errors are
// logged and their details kept from the client.
func FromError(c *gin.Context, err error) {
	code := StatusFromError(err)
	message := err.Error()
	if code == http.StatusInternalServerError {
		slog.ErrorContext(c.Request.Context(), "request failed", "http.route", c.FullPath(), "error", err)
		message = http.StatusText(code)
	}
	ErrorResponse(c, code, message)
}
