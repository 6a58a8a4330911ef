package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/rocketscienceinc/arena-backend/internal/entity"
)

type MatchRepository interface {
	Save(ctx context.Context, result entity.MatchResult) error
	ListByPlayer(ctx context.Context, id string, limit int) ([]entity.MatchResult, error)
	Stats(ctx context.Context, id string) (entity.MatchStats, error)
}

type matchRepository struct {
	conn   *sql.DB
	driver string
}

func NewMatchRepository(conn *sql.DB, driver string) MatchRepository {
	return &matchRepository{
		conn:   conn,
		driver: driver,
	}
}

func (that *matchRepository) Save(ctx context.Context, result entity.MatchResult) error {
	moves, err := json.Marshal(result.Moves)
	if err != nil {
		return fmt.Errorf("could not marshal moves: %w", err)
	}

	query := `INSERT INTO match_history
		(room_id, player1_id, player2_id, winner_id, game_type, mode, difficulty, reason, moves, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = that.conn.ExecContext(ctx, rebind(that.driver, query),
		result.RoomID,
		result.Player1ID,
		result.Player2ID,
		result.WinnerID,
		string(result.GameType),
		string(result.Mode),
		string(result.Difficulty),
		string(result.Reason),
		string(moves),
		result.FinishedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("can't save match: %w", err)
	}

	return nil
}

func (that *matchRepository) ListByPlayer(ctx context.Context, id string, limit int) ([]entity.MatchResult, error) {
	query := `SELECT room_id, player1_id, player2_id, winner_id, game_type, mode, difficulty, reason, moves, finished_at
		FROM match_history
		WHERE player1_id = ? OR player2_id = ?
		ORDER BY finished_at DESC, id DESC
		LIMIT ?`

	rows, err := that.conn.QueryContext(ctx, rebind(that.driver, query), id, id, limit)
	if err != nil {
		return nil, fmt.Errorf("can't list matches: %w", err)
	}
	defer rows.Close()

	var results []entity.MatchResult
	for rows.Next() {
		var (
			result   entity.MatchResult
			winnerID sql.NullString
			moves    string
		)

		err = rows.Scan(
			&result.RoomID,
			&result.Player1ID,
			&result.Player2ID,
			&winnerID,
			&result.GameType,
			&result.Mode,
			&result.Difficulty,
			&result.Reason,
			&moves,
			&result.FinishedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("can't scan match: %w", err)
		}

		if winnerID.Valid {
			result.WinnerID = &winnerID.String
		}

		if err = json.Unmarshal([]byte(moves), &result.Moves); err != nil {
			return nil, fmt.Errorf("could not unmarshal moves: %w", err)
		}

		results = append(results, result)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("can't list matches: %w", err)
	}

	return results, nil
}

func (that *matchRepository) Stats(ctx context.Context, id string) (entity.MatchStats, error) {
	query := `SELECT
		COALESCE(SUM(CASE WHEN winner_id = ? THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN winner_id IS NULL THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN winner_id IS NOT NULL AND winner_id <> ? THEN 1 ELSE 0 END), 0)
		FROM match_history
		WHERE player1_id = ? OR player2_id = ?`

	var stats entity.MatchStats

	err := that.conn.QueryRowContext(ctx, rebind(that.driver, query), id, id, id, id).
		Scan(&stats.Wins, &stats.Draws, &stats.Losses)
	if err != nil {
		return entity.MatchStats{}, fmt.Errorf("can't count matches: %w", err)
	}

	return stats, nil
}
