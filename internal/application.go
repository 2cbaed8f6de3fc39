package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonxycate/juegos-parejas-backend/internal/config"
	"github.com/jonxycate/juegos-parejas-backend/internal/game"
	"github.com/jonxycate/juegos-parejas-backend/internal/game/hangman"
	"github.com/jonxycate/juegos-parejas-backend/internal/game/memory"
	"github.com/jonxycate/juegos-parejas-backend/internal/repository"
	"github.com/jonxycate/juegos-parejas-backend/internal/repository/storage"
	"github.com/jonxycate/juegos-parejas-backend/internal/service"
	"github.com/jonxycate/juegos-parejas-backend/transport/rest"
	"github.com/jonxycate/juegos-parejas-backend/transport/websocket"
)

var ErrAddrNotFound = errors.New("redis address string is empty")

// RunApp - runs the application.
func RunApp(logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "app")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		log.Info("Received signal, shutting down", "signal", sig)
		cancel()
	}()

	redisAddrString := conf.Redis.GetRedisAddr()
	if redisAddrString == "" {
		return ErrAddrNotFound
	}

	redisStorage, err := storage.New(ctx, redisAddrString)
	if err != nil {
		return fmt.Errorf("could not connect to redis storage: %w", err)
	}

	defer func() {
		if err = redisStorage.Close(); err != nil {
			log.Error("could not close redis storage", "error", err)
		}
	}()

	sqliteStorage, err := storage.NewSQLiteStorage(conf.SQLiteStoragePath)
	if err != nil {
		return fmt.Errorf("could not open sqlite storage: %w", err)
	}
	if err = sqliteStorage.Init(ctx); err != nil {
		return fmt.Errorf("could not init sqlite storage: %w", err)
	}

	roomRepo := repository.NewRoomRepository(redisStorage.Connection)
	playerRepo := repository.NewPlayerRepository(redisStorage.Connection)
	userRepo := repository.NewUserRepository(sqliteStorage.Connection)

	engines := game.NewRegistry(
		hangman.New(),
		memory.New(conf.Game.MemoryPairs, conf.Game.TurnTTL(), conf.Game.RevealDelay()),
	)

	turnAuthority := service.NewTurnAuthority(logger)
	defer turnAuthority.Shutdown()

	coordinator := service.NewRoomCoordinator(logger, roomRepo, playerRepo, engines, turnAuthority, conf.Game.CommitRetries)
	turnAuthority.Bind(coordinator)

	identity := service.NewIdentityService(logger, playerRepo, userRepo)

	// run HTTP server
	httpErrCh := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "port", conf.HTTPPort)
		restServer := rest.New(logger, conf, identity)
		if httpErr := restServer.Start(ctx, conf.HTTPPort); httpErr != nil {
			log.Error("HTTP server error", "error", httpErr)
			httpErrCh <- httpErr
		}
	}()

	// run Websocket server
	wsErrCh := make(chan error, 1)
	go func() {
		log.Info("Starting WebSocket server", "port", conf.SocketPort)
		wsServer := websocket.New(logger, coordinator, identity)
		if wsErr := wsServer.Start(ctx, conf.SocketPort); wsErr != nil {
			log.Error("WebSocket server error", "error", wsErr)
			wsErrCh <- wsErr
		}
	}()

	select {
	case err = <-httpErrCh:
		return fmt.Errorf("HTTP server error: %w", err)
	case err = <-wsErrCh:
		return fmt.Errorf("WebSocket server error: %w", err)
	case <-ctx.Done():
		log.Info("Application context canceled, shutting down")
		return nil
	}
}
