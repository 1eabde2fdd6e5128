package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/litian80/tcg-manager-sub000/models"
)

var (
	ErrRosterEntryNotFound = errors.New("player is not in the tournament roster")
	ErrRosterConflict      = errors.New("player is already in the tournament roster")
	ErrRosterReference     = errors.New("roster references an unknown tournament or player")
)

type RosterRepository interface {
	// Add records membership and reports whether a new row was written.
	// An existing membership is left as is.
	Add(ctx context.Context, exec SQLExecutor, tournamentID, playerID int) (bool, error)
	Create(ctx context.Context, exec SQLExecutor, tournamentID, playerID int) error
	Remove(ctx context.Context, tournamentID, playerID int) error
	ListPlayers(ctx context.Context, exec SQLExecutor, tournamentID int) ([]models.Player, error)
}

type postgresRosterRepository struct {
	db *sql.DB
}

func NewPostgresRosterRepository(db *sql.DB) RosterRepository {
	return &postgresRosterRepository{db: db}
}

func (r *postgresRosterRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresRosterRepository) Add(ctx context.Context, exec SQLExecutor, tournamentID, playerID int) (bool, error) {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO tournament_players (tournament_id, player_id)
		VALUES ($1, $2)
		ON CONFLICT (tournament_id, player_id) DO NOTHING`
	result, err := executor.ExecContext(ctx, query, tournamentID, playerID)
	if err != nil {
		return false, r.handleRosterError(err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check affected rows: %w", err)
	}
	return n > 0, nil
}

func (r *postgresRosterRepository) Create(ctx context.Context, exec SQLExecutor, tournamentID, playerID int) error {
	executor := r.getExecutor(exec)
	query := `INSERT INTO tournament_players (tournament_id, player_id) VALUES ($1, $2)`
	_, err := executor.ExecContext(ctx, query, tournamentID, playerID)
	return r.handleRosterError(err)
}

func (r *postgresRosterRepository) Remove(ctx context.Context, tournamentID, playerID int) error {
	query := `DELETE FROM tournament_players WHERE tournament_id = $1 AND player_id = $2`
	result, err := r.db.ExecContext(ctx, query, tournamentID, playerID)
	if err != nil {
		return fmt.Errorf("failed to remove player %d from tournament %d: %w", playerID, tournamentID, err)
	}
	return checkAffectedRows(result, ErrRosterEntryNotFound)
}

func (r *postgresRosterRepository) ListPlayers(ctx context.Context, exec SQLExecutor, tournamentID int) ([]models.Player, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT p.id, p.tom_player_id, p.first_name, p.last_name, p.created_at, p.updated_at
		FROM tournament_players tp
		JOIN players p ON p.id = tp.player_id
		WHERE tp.tournament_id = $1
		ORDER BY p.last_name ASC, p.first_name ASC, p.id ASC`

	rows, err := executor.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list roster for tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	players := make([]models.Player, 0)
	for rows.Next() {
		var p models.Player
		if err := rows.Scan(&p.ID, &p.TomPlayerID, &p.FirstName, &p.LastName, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan roster player: %w", err)
		}
		players = append(players, p)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return players, nil
}

func (r *postgresRosterRepository) handleRosterError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Code {
		case "23505":
			return ErrRosterConflict
		case "23503":
			return ErrRosterReference
		}
	}
	return err
}
