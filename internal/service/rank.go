package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rocketscienceinc/arena-backend/internal/entity"
)

const (
	DefaultLeaderboardSize = 10
	MaxLeaderboardSize     = 100
)

type RankService interface {
	ApplyRankAdjustment(ctx context.Context, identity string, points, xp int) error
	Leaderboard(ctx context.Context, limit int) ([]entity.LeaderboardEntry, error)
}

type rankService struct {
	logger *slog.Logger

	players playerRepo
	cache   playerCache
}

func NewRankService(logger *slog.Logger, players playerRepo, cache playerCache) RankService {
	return &rankService{
		logger:  logger.With("component", "rank_service"),
		players: players,
		cache:   cache,
	}
}

// ApplyRankAdjustment stores the change and mirrors the new score into the leaderboard.
// Only the store is authoritative, cache failures are logged.
func (that *rankService) ApplyRankAdjustment(ctx context.Context, identity string, points, xp int) error {
	log := that.logger.With("method", "ApplyRankAdjustment", "identity", identity)

	adjustment, err := that.players.ApplyAdjustment(ctx, identity, points, xp)
	if err != nil {
		return fmt.Errorf("apply rank adjustment: %w", err)
	}

	player := adjustment.Player

	if err = that.cache.SetScore(ctx, identity, player.RankPoints); err != nil {
		log.Error("failed to update leaderboard", "error", err)
	}

	if err = that.cache.Save(ctx, &player); err != nil {
		log.Error("failed to cache player", "error", err)
	}

	if adjustment.LevelChanged() {
		log.Info("level changed", "from", adjustment.PreviousLevel, "to", player.Level(), "xp", player.XP)
	}

	log.Debug("rank adjusted", "points", points, "xp", xp, "rankPoints", player.RankPoints, "tier", player.Tier())

	return nil
}

// Leaderboard serves the redis ranking and falls back to the store when it is unavailable or empty.
func (that *rankService) Leaderboard(ctx context.Context, limit int) ([]entity.LeaderboardEntry, error) {
	log := that.logger.With("method", "Leaderboard")

	switch {
	case limit <= 0:
		limit = DefaultLeaderboardSize
	case limit > MaxLeaderboardSize:
		limit = MaxLeaderboardSize
	}

	entries, err := that.cache.Top(ctx, limit)
	if err != nil {
		log.Error("failed to read leaderboard cache", "error", err)
	}

	if err != nil || len(entries) == 0 {
		return that.leaderboardFromStore(ctx, limit)
	}

	for i := range entries {
		player, findErr := findPlayer(ctx, that.logger, that.players, that.cache, entries[i].ID)
		if findErr != nil {
			entries[i].DisplayName = entity.GuestName(entries[i].ID)
			continue
		}

		entries[i].DisplayName = player.DisplayName
	}

	return entries, nil
}

func (that *rankService) leaderboardFromStore(ctx context.Context, limit int) ([]entity.LeaderboardEntry, error) {
	players, err := that.players.Top(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list top players: %w", err)
	}

	entries := make([]entity.LeaderboardEntry, 0, len(players))
	for i, player := range players {
		entries = append(entries, entity.LeaderboardEntry{
			Position:    i + 1,
			ID:          player.ID,
			DisplayName: player.DisplayName,
			RankPoints:  player.RankPoints,
			Tier:        player.Tier(),
		})
	}

	return entries, nil
}
