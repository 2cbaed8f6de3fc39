package rest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"

	"github.com/jonxycate/juegos-parejas-backend/internal/config"
	"github.com/jonxycate/juegos-parejas-backend/internal/service"
)

type Server struct {
	logger *slog.Logger
	echo   *echo.Echo
}

func New(logger *slog.Logger, conf *config.Config, identity service.IdentityService) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(session.Middleware(sessions.NewCookieStore([]byte(conf.SessionSecret))))

	auth := NewAuth(logger, conf, identity)

	e.GET("/ping", pingHandler)
	e.POST("/auth/guest", auth.Guest)
	e.GET("/auth/google/login", auth.GoogleLogin)
	e.GET("/auth/google/callback", auth.GoogleCallback)
	e.PUT("/profile", auth.UpdateProfile)

	return &Server{
		logger: logger.With("component", "rest"),
		echo:   e,
	}
}

func (that *Server) Start(ctx context.Context, port string) error {
	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_ = that.echo.Shutdown(shutdownCtx)
	}()

	if err := that.echo.Start(":" + port); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

func pingHandler(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "pong")
}
