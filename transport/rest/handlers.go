package rest

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/rocketscienceinc/arena-backend/internal/apperror"
	"github.com/rocketscienceinc/arena-backend/internal/entity"
)

type profileService interface {
	GetProfile(ctx context.Context, identity string) (entity.Profile, error)
}

type rankService interface {
	Leaderboard(ctx context.Context, limit int) ([]entity.LeaderboardEntry, error)
}

type matchService interface {
	History(ctx context.Context, identity string, limit int) ([]entity.MatchResult, error)
}

type Handlers interface {
	Ping(ctx echo.Context) error
	Leaderboard(ctx echo.Context) error
	Profile(ctx echo.Context) error
	History(ctx echo.Context) error
}

type handlers struct {
	logger *slog.Logger

	profiles profileService
	ranks    rankService
	matches  matchService
}

func NewHandlers(logger *slog.Logger, profiles profileService, ranks rankService, matches matchService) Handlers {
	return &handlers{
		logger:   logger.With("component", "rest"),
		profiles: profiles,
		ranks:    ranks,
		matches:  matches,
	}
}

func (that *handlers) Ping(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "pong")
}

func (that *handlers) Leaderboard(ctx echo.Context) error {
	log := that.logger.With("method", "Leaderboard")

	limit, err := queryLimit(ctx)
	if err != nil {
		return ctx.String(http.StatusBadRequest, "Invalid limit")
	}

	entries, err := that.ranks.Leaderboard(ctx.Request().Context(), limit)
	if err != nil {
		log.Error("failed to load leaderboard", "error", err)
		return ctx.String(http.StatusInternalServerError, "Internal Server Error")
	}

	if entries == nil {
		entries = []entity.LeaderboardEntry{}
	}

	return ctx.JSON(http.StatusOK, entries)
}

func (that *handlers) Profile(ctx echo.Context) error {
	log := that.logger.With("method", "Profile")

	identity := ctx.Param("id")

	profile, err := that.profiles.GetProfile(ctx.Request().Context(), identity)
	if errors.Is(err, apperror.ErrNotFound) {
		return ctx.String(http.StatusNotFound, "Player not found")
	}

	if err != nil {
		log.Error("failed to load profile", "identity", identity, "error", err)
		return ctx.String(http.StatusInternalServerError, "Internal Server Error")
	}

	return ctx.JSON(http.StatusOK, profile)
}

func (that *handlers) History(ctx echo.Context) error {
	log := that.logger.With("method", "History")

	limit, err := queryLimit(ctx)
	if err != nil {
		return ctx.String(http.StatusBadRequest, "Invalid limit")
	}

	identity := ctx.Param("id")

	results, err := that.matches.History(ctx.Request().Context(), identity, limit)
	if err != nil {
		log.Error("failed to load match history", "identity", identity, "error", err)
		return ctx.String(http.StatusInternalServerError, "Internal Server Error")
	}

	if results == nil {
		results = []entity.MatchResult{}
	}

	return ctx.JSON(http.StatusOK, results)
}

// queryLimit - reads the optional limit parameter, zero means the service default.
func queryLimit(ctx echo.Context) (int, error) {
	raw := ctx.QueryParam("limit")
	if raw == "" {
		return 0, nil
	}

	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0, errors.New("invalid limit")
	}

	return limit, nil
}
