package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rocketscienceinc/arena-backend/internal/apperror"
	"github.com/rocketscienceinc/arena-backend/internal/entity"
)

const (
	playerKeyPrefix = "player:"
	leaderboardKey  = "leaderboard"
)

// PlayerCache keeps recently used profiles and the ranking sorted set in redis.
type PlayerCache interface {
	Save(ctx context.Context, player *entity.Player) error
	GetByID(ctx context.Context, id string) (*entity.Player, error)

	SetScore(ctx context.Context, id string, points int) error
	Top(ctx context.Context, limit int) ([]entity.LeaderboardEntry, error)
}

type redisPlayerCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewPlayerCache(client *redis.Client, ttl time.Duration) PlayerCache {
	return &redisPlayerCache{
		client: client,
		ttl:    ttl,
	}
}

func (that *redisPlayerCache) Save(ctx context.Context, player *entity.Player) error {
	playerJSON, err := json.Marshal(player)
	if err != nil {
		return fmt.Errorf("failed to marshal player: %w", err)
	}

	err = that.client.Set(ctx, playerKeyPrefix+player.ID, playerJSON, that.ttl).Err()
	if err != nil {
		return fmt.Errorf("failed to set player: %w", err)
	}

	return nil
}

func (that *redisPlayerCache) GetByID(ctx context.Context, id string) (*entity.Player, error) {
	response, err := that.client.Get(ctx, playerKeyPrefix+id).Result()

	if errors.Is(err, redis.Nil) {
		return nil, apperror.ErrNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get player by ID: %w", err)
	}

	var player entity.Player
	if err = json.Unmarshal([]byte(response), &player); err != nil {
		return nil, fmt.Errorf("failed to unmarshal player: %w", err)
	}

	return &player, nil
}

func (that *redisPlayerCache) SetScore(ctx context.Context, id string, points int) error {
	err := that.client.ZAdd(ctx, leaderboardKey, redis.Z{Score: float64(points), Member: id}).Err()
	if err != nil {
		return fmt.Errorf("failed to set leaderboard score: %w", err)
	}

	return nil
}

// Top returns the best ranked identities, display names are left to the caller.
func (that *redisPlayerCache) Top(ctx context.Context, limit int) ([]entity.LeaderboardEntry, error) {
	if limit <= 0 {
		return nil, nil
	}

	members, err := that.client.ZRevRangeWithScores(ctx, leaderboardKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read leaderboard: %w", err)
	}

	entries := make([]entity.LeaderboardEntry, 0, len(members))
	for i, member := range members {
		id, ok := member.Member.(string)
		if !ok {
			continue
		}

		points := int(member.Score)
		entries = append(entries, entity.LeaderboardEntry{
			Position:   i + 1,
			ID:         id,
			RankPoints: points,
			Tier:       entity.TierFor(points),
		})
	}

	return entries, nil
}
