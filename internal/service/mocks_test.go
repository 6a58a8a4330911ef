package service

import (
	"context"
	"io"
	"log/slog"

	"github.com/stretchr/testify/mock"

	"github.com/rocketscienceinc/arena-backend/internal/entity"
)

type mockPlayerRepo struct {
	mock.Mock
}

func (that *mockPlayerRepo) Save(ctx context.Context, player *entity.Player) error {
	return that.Called(ctx, player).Error(0)
}

func (that *mockPlayerRepo) Find(ctx context.Context, id string) (*entity.Player, error) {
	args := that.Called(ctx, id)
	player, _ := args.Get(0).(*entity.Player)
	return player, args.Error(1)
}

func (that *mockPlayerRepo) Top(ctx context.Context, limit int) ([]entity.Player, error) {
	args := that.Called(ctx, limit)
	players, _ := args.Get(0).([]entity.Player)
	return players, args.Error(1)
}

func (that *mockPlayerRepo) ApplyAdjustment(ctx context.Context, id string, points, xp int) (*entity.RankAdjustment, error) {
	args := that.Called(ctx, id, points, xp)
	adjustment, _ := args.Get(0).(*entity.RankAdjustment)
	return adjustment, args.Error(1)
}

type mockPlayerCache struct {
	mock.Mock
}

func (that *mockPlayerCache) Save(ctx context.Context, player *entity.Player) error {
	return that.Called(ctx, player).Error(0)
}

func (that *mockPlayerCache) GetByID(ctx context.Context, id string) (*entity.Player, error) {
	args := that.Called(ctx, id)
	player, _ := args.Get(0).(*entity.Player)
	return player, args.Error(1)
}

func (that *mockPlayerCache) SetScore(ctx context.Context, id string, points int) error {
	return that.Called(ctx, id, points).Error(0)
}

func (that *mockPlayerCache) Top(ctx context.Context, limit int) ([]entity.LeaderboardEntry, error) {
	args := that.Called(ctx, limit)
	entries, _ := args.Get(0).([]entity.LeaderboardEntry)
	return entries, args.Error(1)
}

type mockMatchRepo struct {
	mock.Mock
}

func (that *mockMatchRepo) Save(ctx context.Context, result entity.MatchResult) error {
	return that.Called(ctx, result).Error(0)
}

func (that *mockMatchRepo) ListByPlayer(ctx context.Context, id string, limit int) ([]entity.MatchResult, error) {
	args := that.Called(ctx, id, limit)
	results, _ := args.Get(0).([]entity.MatchResult)
	return results, args.Error(1)
}

func (that *mockMatchRepo) Stats(ctx context.Context, id string) (entity.MatchStats, error) {
	args := that.Called(ctx, id)
	return args.Get(0).(entity.MatchStats), args.Error(1)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
