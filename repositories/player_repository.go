package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/litian80/tcg-manager-sub000/models"
)

type PlayerRepository interface {
	// Upsert inserts the player or, when the TOM id is already known,
	// refreshes the stored names. player.ID is set either way.
	Upsert(ctx context.Context, exec SQLExecutor, player *models.Player) error
}

type postgresPlayerRepository struct {
	db *sql.DB
}

func NewPostgresPlayerRepository(db *sql.DB) PlayerRepository {
	return &postgresPlayerRepository{db: db}
}

func (r *postgresPlayerRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresPlayerRepository) Upsert(ctx context.Context, exec SQLExecutor, player *models.Player) error {
	executor := r.getExecutor(exec)

	var query string
	if player.TomPlayerID == nil {
		query = `
			INSERT INTO players (tom_player_id, first_name, last_name)
			VALUES ($1, $2, $3)
			RETURNING id, created_at, updated_at`
	} else {
		query = `
			INSERT INTO players (tom_player_id, first_name, last_name)
			VALUES ($1, $2, $3)
			ON CONFLICT (tom_player_id) DO UPDATE SET
				first_name = EXCLUDED.first_name,
				last_name = EXCLUDED.last_name,
				updated_at = NOW()
			RETURNING id, created_at, updated_at`
	}

	err := executor.QueryRowContext(ctx, query, player.TomPlayerID, player.FirstName, player.LastName).
		Scan(&player.ID, &player.CreatedAt, &player.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert player: %w", err)
	}
	return nil
}
