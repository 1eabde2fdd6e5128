package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/litian80/tcg-manager-sub000/models"
)

type StandingRepository interface {
	DeleteByTournamentID(ctx context.Context, exec SQLExecutor, tournamentID int) error
	BatchCreate(ctx context.Context, tx *sql.Tx, standings []models.Standing) error
	ListByTournament(ctx context.Context, tournamentID int) ([]models.Standing, error)
}

type postgresStandingRepository struct {
	db *sql.DB
}

func NewPostgresStandingRepository(db *sql.DB) StandingRepository {
	return &postgresStandingRepository{db: db}
}

func (r *postgresStandingRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresStandingRepository) DeleteByTournamentID(ctx context.Context, exec SQLExecutor, tournamentID int) error {
	executor := r.getExecutor(exec)
	if _, err := executor.ExecContext(ctx, `DELETE FROM standings WHERE tournament_id = $1`, tournamentID); err != nil {
		return fmt.Errorf("failed to delete standings for tournament %d: %w", tournamentID, err)
	}
	return nil
}

func (r *postgresStandingRepository) BatchCreate(ctx context.Context, tx *sql.Tx, standings []models.Standing) error {
	if len(standings) == 0 {
		return nil
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO standings (tournament_id, player_tom_id, rank, points)
		VALUES ($1, $2, $3, $4)`)
	if err != nil {
		return fmt.Errorf("BatchCreate failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, s := range standings {
		if _, err = stmt.ExecContext(ctx, s.TournamentID, s.PlayerTomID, s.Rank, s.Points); err != nil {
			return fmt.Errorf("BatchCreate failed for player %s: %w", s.PlayerTomID, err)
		}
	}
	return nil
}

// ListByTournament joins the player row when the TOM id is known.
func (r *postgresStandingRepository) ListByTournament(ctx context.Context, tournamentID int) ([]models.Standing, error) {
	query := `
		SELECT s.id, s.tournament_id, s.player_tom_id, s.rank, s.points, s.created_at,
		       p.id, p.first_name, p.last_name
		FROM standings s
		LEFT JOIN players p ON p.tom_player_id = s.player_tom_id
		WHERE s.tournament_id = $1
		ORDER BY s.rank ASC, s.player_tom_id ASC`

	rows, err := r.db.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list standings for tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	standings := make([]models.Standing, 0)
	for rows.Next() {
		var s models.Standing
		var playerID sql.NullInt64
		var firstName, lastName sql.NullString
		if err := rows.Scan(
			&s.ID, &s.TournamentID, &s.PlayerTomID, &s.Rank, &s.Points, &s.CreatedAt,
			&playerID, &firstName, &lastName,
		); err != nil {
			return nil, fmt.Errorf("failed to scan standing: %w", err)
		}
		if playerID.Valid {
			tomID := s.PlayerTomID
			s.Player = &models.Player{
				ID:          int(playerID.Int64),
				TomPlayerID: &tomID,
				FirstName:   firstName.String,
				LastName:    lastName.String,
			}
		}
		standings = append(standings, s)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return standings, nil
}
