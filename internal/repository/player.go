package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rocketscienceinc/arena-backend/internal/apperror"
	"github.com/rocketscienceinc/arena-backend/internal/entity"
)

type PlayerRepository interface {
	Save(ctx context.Context, player *entity.Player) error
	Find(ctx context.Context, id string) (*entity.Player, error)
	Top(ctx context.Context, limit int) ([]entity.Player, error)

	// ApplyAdjustment adds the deltas to the stored player, creating a guest row
	// when the identity is unknown. Rank points never drop below zero.
	ApplyAdjustment(ctx context.Context, id string, points, xp int) (*entity.RankAdjustment, error)
}

type playerRepository struct {
	conn   *sql.DB
	driver string
	now    func() time.Time
}

func NewPlayerRepository(conn *sql.DB, driver string) PlayerRepository {
	return &playerRepository{
		conn:   conn,
		driver: driver,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (that *playerRepository) Save(ctx context.Context, player *entity.Player) error {
	query := `INSERT INTO players (id, display_name, rank_points, xp, level, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET display_name = excluded.display_name, updated_at = excluded.updated_at`

	_, err := that.conn.ExecContext(ctx, rebind(that.driver, query),
		player.ID, player.DisplayName, entity.ClampPoints(player.RankPoints), player.XP, player.Level(), that.now())
	if err != nil {
		return fmt.Errorf("can't save player: %w", err)
	}

	return nil
}

func (that *playerRepository) Find(ctx context.Context, id string) (*entity.Player, error) {
	query := `SELECT id, display_name, rank_points, xp FROM players WHERE id = ?`

	var player entity.Player

	err := that.conn.QueryRowContext(ctx, rebind(that.driver, query), id).
		Scan(&player.ID, &player.DisplayName, &player.RankPoints, &player.XP)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("can't find player: %w", err)
	}

	return &player, nil
}

func (that *playerRepository) Top(ctx context.Context, limit int) ([]entity.Player, error) {
	query := `SELECT id, display_name, rank_points, xp FROM players ORDER BY rank_points DESC, id LIMIT ?`

	rows, err := that.conn.QueryContext(ctx, rebind(that.driver, query), limit)
	if err != nil {
		return nil, fmt.Errorf("can't list players: %w", err)
	}
	defer rows.Close()

	var players []entity.Player
	for rows.Next() {
		var player entity.Player
		if err = rows.Scan(&player.ID, &player.DisplayName, &player.RankPoints, &player.XP); err != nil {
			return nil, fmt.Errorf("can't scan player: %w", err)
		}

		players = append(players, player)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("can't list players: %w", err)
	}

	return players, nil
}

func (that *playerRepository) ApplyAdjustment(ctx context.Context, id string, points, xp int) (*entity.RankAdjustment, error) {
	tx, err := that.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("can't begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	now := that.now()

	insert := `INSERT INTO players (id, display_name, rank_points, xp, level, updated_at)
		VALUES (?, ?, 0, 0, 1, ?) ON CONFLICT (id) DO NOTHING`
	if _, err = tx.ExecContext(ctx, rebind(that.driver, insert), id, entity.GuestName(id), now); err != nil {
		return nil, fmt.Errorf("can't create player: %w", err)
	}

	update := `UPDATE players SET
		rank_points = CASE WHEN rank_points + ? < 0 THEN 0 ELSE rank_points + ? END,
		xp = xp + ?,
		updated_at = ?
		WHERE id = ?`
	if _, err = tx.ExecContext(ctx, rebind(that.driver, update), points, points, xp, now, id); err != nil {
		return nil, fmt.Errorf("can't update player rank: %w", err)
	}

	var (
		player        entity.Player
		previousLevel int
	)

	query := `SELECT id, display_name, rank_points, xp, level FROM players WHERE id = ?`
	err = tx.QueryRowContext(ctx, rebind(that.driver, query), id).
		Scan(&player.ID, &player.DisplayName, &player.RankPoints, &player.XP, &previousLevel)
	if err != nil {
		return nil, fmt.Errorf("can't read player: %w", err)
	}

	adjustment := &entity.RankAdjustment{Player: player, PreviousLevel: previousLevel}

	if adjustment.LevelChanged() {
		level := player.Level()

		setLevel := `UPDATE players SET level = ? WHERE id = ?`
		if _, err = tx.ExecContext(ctx, rebind(that.driver, setLevel), level, id); err != nil {
			return nil, fmt.Errorf("can't update player level: %w", err)
		}

		logLevel := `INSERT INTO level_history (player_id, old_level, new_level, xp, changed_at) VALUES (?, ?, ?, ?, ?)`
		if _, err = tx.ExecContext(ctx, rebind(that.driver, logLevel), id, previousLevel, level, player.XP, now); err != nil {
			return nil, fmt.Errorf("can't log level change: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("can't commit rank adjustment: %w", err)
	}

	return adjustment, nil
}
