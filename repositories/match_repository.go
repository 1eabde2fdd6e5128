package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/litian80/tcg-manager-sub000/models"
)

type MatchRepository interface {
	DeleteByTournamentID(ctx context.Context, exec SQLExecutor, tournamentID int) error
	BatchCreate(ctx context.Context, tx *sql.Tx, matches []models.Match) error
	// ListByTournament returns matches by round then insertion order.
	// round <= 0 returns every round.
	ListByTournament(ctx context.Context, tournamentID int, round int) ([]models.Match, error)
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

func (r *postgresMatchRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresMatchRepository) DeleteByTournamentID(ctx context.Context, exec SQLExecutor, tournamentID int) error {
	executor := r.getExecutor(exec)
	if _, err := executor.ExecContext(ctx, `DELETE FROM matches WHERE tournament_id = $1`, tournamentID); err != nil {
		return fmt.Errorf("failed to delete matches for tournament %d: %w", tournamentID, err)
	}
	return nil
}

func (r *postgresMatchRepository) BatchCreate(ctx context.Context, tx *sql.Tx, matches []models.Match) error {
	if len(matches) == 0 {
		return nil
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO matches
		    (tournament_id, round_number, table_number, player1_tom_id, player2_tom_id, winner_tom_id,
		     outcome, is_finished, division, p1_display_record, p2_display_record)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`)
	if err != nil {
		return fmt.Errorf("BatchCreate failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, m := range matches {
		_, err = stmt.ExecContext(ctx,
			m.TournamentID, m.RoundNumber, m.TableNumber, m.Player1TomID, m.Player2TomID, m.WinnerTomID,
			m.Outcome, m.IsFinished, m.Division, m.P1DisplayRecord, m.P2DisplayRecord,
		)
		if err != nil {
			return fmt.Errorf("BatchCreate failed for round %d table %d: %w", m.RoundNumber, m.TableNumber, err)
		}
	}
	return nil
}

func (r *postgresMatchRepository) ListByTournament(ctx context.Context, tournamentID int, round int) ([]models.Match, error) {
	query := `
		SELECT id, tournament_id, round_number, table_number, player1_tom_id, player2_tom_id, winner_tom_id,
		       outcome, is_finished, division, p1_display_record, p2_display_record, created_at
		FROM matches
		WHERE tournament_id = $1`
	args := []interface{}{tournamentID}
	if round > 0 {
		query += " AND round_number = $2"
		args = append(args, round)
	}
	query += " ORDER BY round_number ASC, id ASC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches for tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	matches := make([]models.Match, 0)
	for rows.Next() {
		var m models.Match
		if err := rows.Scan(
			&m.ID, &m.TournamentID, &m.RoundNumber, &m.TableNumber, &m.Player1TomID, &m.Player2TomID, &m.WinnerTomID,
			&m.Outcome, &m.IsFinished, &m.Division, &m.P1DisplayRecord, &m.P2DisplayRecord, &m.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		matches = append(matches, m)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return matches, nil
}
