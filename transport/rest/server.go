package rest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// NewRouter - registers the HTTP routes.
func NewRouter(h Handlers) *echo.Echo {
	router := echo.New()
	router.HideBanner = true
	router.HidePort = true

	router.Use(middleware.Recover())

	router.GET("/ping", h.Ping)
	router.GET("/leaderboard", h.Leaderboard)
	router.GET("/players/:id", h.Profile)
	router.GET("/players/:id/matches", h.History)

	return router
}

// Start - serves the HTTP API until ctx is done.
func Start(ctx context.Context, port string, h Handlers) error {
	router := NewRouter(h)
	router.Server = &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_ = router.Shutdown(shutdownCtx)
	}()

	if err := router.StartServer(router.Server); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}
