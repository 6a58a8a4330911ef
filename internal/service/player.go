package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/rocketscienceinc/arena-backend/internal/apperror"
	"github.com/rocketscienceinc/arena-backend/internal/entity"
)

type ProfileService interface {
	LookupDisplayName(ctx context.Context, identity string) (string, error)
	Register(ctx context.Context, identity, displayName string) error
	GetProfile(ctx context.Context, identity string) (entity.Profile, error)
}

type playerRepo interface {
	Save(ctx context.Context, player *entity.Player) error
	Find(ctx context.Context, id string) (*entity.Player, error)
	Top(ctx context.Context, limit int) ([]entity.Player, error)
	ApplyAdjustment(ctx context.Context, id string, points, xp int) (*entity.RankAdjustment, error)
}

type playerCache interface {
	Save(ctx context.Context, player *entity.Player) error
	GetByID(ctx context.Context, id string) (*entity.Player, error)
	SetScore(ctx context.Context, id string, points int) error
	Top(ctx context.Context, limit int) ([]entity.LeaderboardEntry, error)
}

type matchRepo interface {
	Save(ctx context.Context, result entity.MatchResult) error
	ListByPlayer(ctx context.Context, id string, limit int) ([]entity.MatchResult, error)
	Stats(ctx context.Context, id string) (entity.MatchStats, error)
}

type profileService struct {
	logger *slog.Logger

	players playerRepo
	cache   playerCache
	matches matchRepo
}

func NewProfileService(logger *slog.Logger, players playerRepo, cache playerCache, matches matchRepo) ProfileService {
	return &profileService{
		logger:  logger.With("component", "profile_service"),
		players: players,
		cache:   cache,
		matches: matches,
	}
}

// LookupDisplayName reads through the cache. Unknown identities return apperror.ErrNotFound.
func (that *profileService) LookupDisplayName(ctx context.Context, identity string) (string, error) {
	player, err := findPlayer(ctx, that.logger, that.players, that.cache, identity)
	if err != nil {
		return "", err
	}

	return player.DisplayName, nil
}

// Register stores the display name carried by a verified identity.
func (that *profileService) Register(ctx context.Context, identity, displayName string) error {
	player := &entity.Player{ID: identity, DisplayName: displayName}

	if err := that.players.Save(ctx, player); err != nil {
		return fmt.Errorf("register player: %w", err)
	}

	stored, err := that.players.Find(ctx, identity)
	if err != nil {
		return fmt.Errorf("register player: %w", err)
	}

	if err = that.cache.Save(ctx, stored); err != nil {
		that.logger.Error("failed to cache player", "identity", identity, "error", err)
	}

	return nil
}

func (that *profileService) GetProfile(ctx context.Context, identity string) (entity.Profile, error) {
	player, err := that.players.Find(ctx, identity)
	if err != nil {
		return entity.Profile{}, fmt.Errorf("get profile: %w", err)
	}

	stats, err := that.matches.Stats(ctx, identity)
	if err != nil {
		return entity.Profile{}, fmt.Errorf("get match stats: %w", err)
	}

	return entity.NewProfile(player, stats), nil
}

// findPlayer tries the cache first and refills it from the store on a miss.
func findPlayer(ctx context.Context, logger *slog.Logger, players playerRepo, cache playerCache, identity string) (*entity.Player, error) {
	player, err := cache.GetByID(ctx, identity)
	if err == nil {
		return player, nil
	}

	if !errors.Is(err, apperror.ErrNotFound) {
		logger.Error("failed to read player cache", "identity", identity, "error", err)
	}

	player, err = players.Find(ctx, identity)
	if err != nil {
		return nil, fmt.Errorf("find player: %w", err)
	}

	if err = cache.Save(ctx, player); err != nil {
		logger.Error("failed to cache player", "identity", identity, "error", err)
	}

	return player, nil
}
