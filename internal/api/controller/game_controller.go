package controller

import (
	"ctchen222/minimax-tic-tac-toe/internal/api/middleware"
	"ctchen222/minimax-tic-tac-toe/internal/api/models"
	"ctchen222/minimax-tic-tac-toe/internal/api/response"
	"ctchen222/minimax-tic-tac-toe/internal/api/service"

	"github.com/gin-gonic/gin"
)

// GameController handles board and session HTTP requests.
type GameController struct {
	gameService service.GameService
}

// NewGameController creates a new GameController.
func NewGameController(gameService service.GameService) *GameController {
	return &GameController{
		gameService: gameService,
	}
}

// Evaluate handles the board evaluation endpoint.
func (gc *GameController) Evaluate(c *gin.Context) {
	var req models.EvaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.FromError(c, response.BadRequest(err))
		return
	}

	outcome, line, err := gc.gameService.Evaluate(c.Request.Context(), models.ToBoard(req.Board))
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.SuccessResponse(c, models.EvaluateResponse{
		Status:  outcome.Status,
		Winner:  outcome.Winner,
		WinLine: line,
	})
}

// BestMove handles the move suggestion endpoint.
func (gc *GameController) BestMove(c *gin.Context) {
	var req models.BestMoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.FromError(c, response.BadRequest(err))
		return
	}

	cell, err := gc.gameService.BestMove(c.Request.Context(), models.ToBoard(req.Board), req.Player)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.SuccessResponse(c, models.BestMoveResponse{Cell: cell})
}

// CreateSession starts a session and hands out its token.
func (gc *GameController) CreateSession(c *gin.Context) {
	token, sess, err := gc.gameService.StartSession(c.Request.Context())
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.CreatedResponse(c, models.CreateSessionResponse{
		Token:   token,
		Session: models.NewSessionResponse(sess),
	})
}

// GetSession returns the caller's session.
func (gc *GameController) GetSession(c *gin.Context) {
	sess, err := gc.gameService.Session(c.Request.Context(), middleware.SessionID(c))
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.SuccessResponse(c, models.NewSessionResponse(sess))
}

// Move handles a human move and the computer's reply, if any.
func (gc *GameController) Move(c *gin.Context) {
	var req models.MoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.FromError(c, response.BadRequest(err))
		return
	}

	sess, computerCell, err := gc.gameService.Play(c.Request.Context(), middleware.SessionID(c), *req.Cell)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.SuccessResponse(c, models.MoveResponse{
		SessionResponse: models.NewSessionResponse(sess),
		ComputerCell:    computerCell,
	})
}

// Restart clears the board of the caller's session.
func (gc *GameController) Restart(c *gin.Context) {
	sess, err := gc.gameService.Restart(c.Request.Context(), middleware.SessionID(c))
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.SuccessResponse(c, models.NewSessionResponse(sess))
}

// SetAI toggles the computer opponent.
func (gc *GameController) SetAI(c *gin.Context) {
	var req models.SetAIRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.FromError(c, response.BadRequest(err))
		return
	}

	sess, err := gc.gameService.SetAI(c.Request.Context(), middleware.SessionID(c), *req.Enabled)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.SuccessResponse(c, models.NewSessionResponse(sess))
}

// EndSession discards the caller's session.
func (gc *GameController) EndSession(c *gin.Context) {
	if err := gc.gameService.End(c.Request.Context(), middleware.SessionID(c)); err != nil {
		response.FromError(c, err)
		return
	}

	response.SuccessResponse(c, gin.H{"message": "Session ended"})
}
