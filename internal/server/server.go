package server

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"ctchen222/minimax-tic-tac-toe/internal/api/controller"
	"ctchen222/minimax-tic-tac-toe/internal/api/middleware"
	"ctchen222/minimax-tic-tac-toe/internal/api/response"
	"ctchen222/minimax-tic-tac-toe/internal/api/service"
	"ctchen222/minimax-tic-tac-toe/internal/hub"
	"ctchen222/minimax-tic-tac-toe/internal/room"
	"ctchen222/minimax-tic-tac-toe/internal/session"
	"ctchen222/minimax-tic-tac-toe/internal/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("server")

// Options configures the parts of the server that come from config.
type Options struct {
	ComputerDelay time.Duration
	StaticDir     string
}

type Server struct {
	ctx            context.Context
	engine         *gin.Engine
	hub            *hub.Hub
	sessions       session.Service
	gameService    service.GameService
	gameController *controller.GameController
	upgrader       websocket.Upgrader
	opts           Options
}

// NewServer wires the routes. Rooms opened over websockets live until ctx is
// cancelled or their client leaves.
func NewServer(ctx context.Context, h *hub.Hub, sessions session.Service, gameService service.GameService, opts Options) (*Server, error) {
	if err := validator.RegisterWithGin(); err != nil {
		return nil, err
	}

	s := &Server{
		ctx:            ctx,
		engine:         gin.New(),
		hub:            h,
		sessions:       sessions,
		gameService:    gameService,
		gameController: controller.NewGameController(gameService),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		opts: opts,
	}
	s.registerHandlers()
	return s, nil
}

// Engine returns the HTTP handler.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerHandlers() {
	s.engine.Use(gin.Recovery())

	s.engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	api := s.engine.Group("/api/v1")
	{
		api.POST("/evaluate", s.gameController.Evaluate)
		api.POST("/best-move", s.gameController.BestMove)
		api.POST("/sessions", s.gameController.CreateSession)

		authed := api.Group("/session", middleware.RequireSession(s.gameService))
		authed.GET("", s.gameController.GetSession)
		authed.DELETE("", s.gameController.EndSession)
		authed.POST("/moves", s.gameController.Move)
		authed.POST("/restart", s.gameController.Restart)
		authed.PUT("/ai", s.gameController.SetAI)
	}

	s.engine.GET("/ws", middleware.RequireSession(s.gameService), s.handleWebSocket)

	if s.opts.StaticDir != "" {
		s.registerStatic(s.opts.StaticDir)
	}
}

// registerStatic serves the browser client. Unknown paths fall back to
// index.html.
func (s *Server) registerStatic(dir string) {
	index := filepath.Join(dir, "index.html")
	s.engine.NoRoute(func(c *gin.Context) {
		path := filepath.Join(dir, filepath.Clean("/"+c.Request.URL.Path))
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			c.File(path)
			return
		}
		c.File(index)
	})
}

// handleWebSocket upgrades the connection and runs a room for the caller's
// session until the client leaves.
func (s *Server) handleWebSocket(c *gin.Context) {
	sessionID := middleware.SessionID(c)
	ctx, span := tracer.Start(c.Request.Context(), "server.handleWebSocket", trace.WithAttributes(
		attribute.String("session.id", sessionID),
	))

	// The session must exist before the room is opened.
	if _, err := s.sessions.Get(ctx, sessionID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Unknown session")
		span.End()
		response.FromError(c, err)
		return
	}

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.WarnContext(ctx, "Failed to upgrade connection", "session.id", sessionID, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to upgrade connection")
		span.End()
		return
	}

	roomID := uuid.New().String()
	span.SetAttributes(attribute.String("room.id", roomID))
	span.End()

	slog.InfoContext(ctx, "Websocket connected", "session.id", sessionID, "room.id", roomID)
	r := room.NewRoom(roomID, sessionID, conn, s.sessions, s.hub, s.opts.ComputerDelay)
	s.hub.Serve(s.ctx, r)
	slog.InfoContext(ctx, "Websocket closed", "session.id", sessionID, "room.id", roomID)
}
