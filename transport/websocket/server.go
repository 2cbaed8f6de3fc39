package websocket

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jonxycate/juegos-parejas-backend/internal/entity"
	"github.com/jonxycate/juegos-parejas-backend/internal/repository"
)

const sessionCookieName = "user_session"

type coordinator interface {
	CreateRoom(ctx context.Context, playerID string) (*entity.Room, error)
	JoinRoom(ctx context.Context, roomID, playerID string) (*entity.Room, entity.Role, error)
	SelectGame(ctx context.Context, roomID, playerID string, kind entity.GameKind) (*entity.Room, error)
	Dispatch(ctx context.Context, roomID, actorID string, cmd entity.Command) (*entity.Room, error)
	NextRound(ctx context.Context, roomID, playerID string) (*entity.Room, error)
	SetConnected(ctx context.Context, roomID, playerID string, connected bool) (*entity.Room, error)
	GetRoom(ctx context.Context, roomID string) (*entity.Room, error)
	Subscribe(ctx context.Context, roomID string) (*repository.RoomSubscription, error)
}

type identity interface {
	EnsurePlayer(ctx context.Context, playerID string) (*entity.Player, error)
}

type Server struct {
	logger      *slog.Logger
	coordinator coordinator
	identity    identity

	upgrader websocket.Upgrader
	handlers map[string]func(ctx context.Context, client *Client, message *Message) error
}

func New(logger *slog.Logger, coordinator coordinator, identity identity) *Server {
	server := &Server{
		logger:      logger.With("component", "websocket"),
		coordinator: coordinator,
		identity:    identity,

		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(_ *http.Request) bool {
				return true
			},
		},

		handlers: make(map[string]func(context.Context, *Client, *Message) error),
	}

	server.handlers["connect"] = server.handleConnect
	server.handlers["room:create"] = server.handleCreateRoom
	server.handlers["room:join"] = server.handleJoinRoom
	server.handlers["game:select"] = server.handleSelectGame
	server.handlers["game:command"] = server.handleGameCommand
	server.handlers["game:next-round"] = server.handleNextRound

	return server
}

// Start - starts WebSocket server.
func (that *Server) Start(ctx context.Context, port string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		that.serveConnection(ctx, w, r)
	})

	srv := &http.Server{
		Addr:        ":" + port,
		Handler:     mux,
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 30 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// serveConnection resolves the session identity and upgrades the connection
// to WebSocket.
func (that *Server) serveConnection(ctx context.Context, writer http.ResponseWriter, req *http.Request) {
	log := that.logger.With("method", "serveConnection")

	sessionID := ""
	if cookie, err := req.Cookie(sessionCookieName); err == nil {
		sessionID = cookie.Value
	}

	player, err := that.identity.EnsurePlayer(ctx, sessionID)
	if err != nil {
		log.Error("failed to resolve identity", "error", err)
		http.Error(writer, "failed to resolve identity", http.StatusInternalServerError)
		return
	}

	if sessionID == "" {
		http.SetCookie(writer, &http.Cookie{
			Name:    sessionCookieName,
			Value:   player.ID,
			Expires: time.Now().Add(24 * time.Hour),
			Path:    "/",
		})
	}

	conn, err := that.upgrader.Upgrade(writer, req, nil)
	if err != nil {
		log.Error("failed to upgrade connection", "error", err)
		return
	}

	log.Info("WebSocket connection established", "player", player.ID)

	client := newClient(conn, that, player.ID)

	go client.writeLoop()
	client.readLoop(ctx)
}

// disconnected mirrors the drop into the room document and lets the other
// viewer see the peer go offline.
func (that *Server) disconnected(ctx context.Context, client *Client) {
	roomID := client.currentRoom()
	if roomID == "" {
		return
	}

	if _, err := that.coordinator.SetConnected(ctx, roomID, client.playerID, false); err != nil {
		that.logger.Debug("failed to mark player disconnected", "room", roomID, "error", err)
	}
}
