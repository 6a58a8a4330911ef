package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rocketscienceinc/arena-backend/internal/entity"
)

const DefaultHistorySize = 20

type MatchService interface {
	RecordMatchResult(ctx context.Context, result entity.MatchResult) error
	History(ctx context.Context, identity string, limit int) ([]entity.MatchResult, error)
}

type matchService struct {
	logger  *slog.Logger
	matches matchRepo
}

func NewMatchService(logger *slog.Logger, matches matchRepo) MatchService {
	return &matchService{
		logger:  logger.With("component", "match_service"),
		matches: matches,
	}
}

func (that *matchService) RecordMatchResult(ctx context.Context, result entity.MatchResult) error {
	if err := that.matches.Save(ctx, result); err != nil {
		return fmt.Errorf("record match result: %w", err)
	}

	that.logger.Debug("match recorded", "roomID", result.RoomID, "mode", result.Mode, "reason", result.Reason)

	return nil
}

func (that *matchService) History(ctx context.Context, identity string, limit int) ([]entity.MatchResult, error) {
	if limit <= 0 || limit > DefaultHistorySize {
		limit = DefaultHistorySize
	}

	results, err := that.matches.ListByPlayer(ctx, identity, limit)
	if err != nil {
		return nil, fmt.Errorf("match history: %w", err)
	}

	return results, nil
}
