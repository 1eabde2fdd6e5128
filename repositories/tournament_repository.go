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
	ErrTournamentNotFound         = errors.New("tournament not found")
	ErrTournamentSanctionConflict = errors.New("sanction id is already used by another tournament")
)

type ListTournamentsFilter struct {
	Status    *models.TournamentStatus
	Published *bool
	// VisibleTo keeps published tournaments plus those owned by this user.
	VisibleTo *string
	Limit     int
	Offset    int
}

type TournamentRepository interface {
	Create(ctx context.Context, exec SQLExecutor, tournament *models.Tournament) error
	GetByID(ctx context.Context, id int) (*models.Tournament, error)
	GetBySanctionID(ctx context.Context, sanctionID string) (*models.Tournament, error)
	FindByIdentity(ctx context.Context, exec SQLExecutor, key models.TournamentIdentity) (*models.Tournament, error)
	List(ctx context.Context, filter ListTournamentsFilter) ([]models.Tournament, error)
	UpdateFromImport(ctx context.Context, exec SQLExecutor, id int, name string, status models.TournamentStatus, published *bool) error
	RaiseTotalRounds(ctx context.Context, exec SQLExecutor, id int, rounds int) error
	SetPublished(ctx context.Context, id int, published bool) error
}

type postgresTournamentRepository struct {
	db *sql.DB
}

func NewPostgresTournamentRepository(db *sql.DB) TournamentRepository {
	return &postgresTournamentRepository{db: db}
}

func (r *postgresTournamentRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const tournamentColumns = `
	id, name, date, city, country, tom_uid, organizer_popid, organizer_id,
	status, total_rounds, is_published, created_at, updated_at`

func scanTournament(row interface{ Scan(...interface{}) error }, t *models.Tournament) error {
	return row.Scan(
		&t.ID, &t.Name, &t.Date, &t.City, &t.Country, &t.SanctionID, &t.OrganizerPopID, &t.OrganizerID,
		&t.Status, &t.TotalRounds, &t.IsPublished, &t.CreatedAt, &t.UpdatedAt,
	)
}

func (r *postgresTournamentRepository) Create(ctx context.Context, exec SQLExecutor, t *models.Tournament) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO tournaments (
			name, date, city, country, tom_uid, organizer_popid, organizer_id,
			status, total_rounds, is_published
		) VALUES ($1, $2::date, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at`

	err := executor.QueryRowContext(ctx, query,
		t.Name, t.Date, t.City, t.Country, t.SanctionID, t.OrganizerPopID, t.OrganizerID,
		t.Status, t.TotalRounds, t.IsPublished,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)

	return r.handleTournamentError(err)
}

func (r *postgresTournamentRepository) findOne(ctx context.Context, exec SQLExecutor, query string, args ...interface{}) (*models.Tournament, error) {
	t := &models.Tournament{}
	err := scanTournament(r.getExecutor(exec).QueryRowContext(ctx, query, args...), t)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to scan tournament: %w", err)
	}
	return t, nil
}

func (r *postgresTournamentRepository) GetByID(ctx context.Context, id int) (*models.Tournament, error) {
	query := `SELECT ` + tournamentColumns + ` FROM tournaments WHERE id = $1`
	return r.findOne(ctx, nil, query, id)
}

func (r *postgresTournamentRepository) GetBySanctionID(ctx context.Context, sanctionID string) (*models.Tournament, error) {
	query := `SELECT ` + tournamentColumns + ` FROM tournaments WHERE tom_uid = $1`
	return r.findOne(ctx, nil, query, sanctionID)
}

// FindByIdentity matches all five natural-key columns; NULL matches NULL.
func (r *postgresTournamentRepository) FindByIdentity(ctx context.Context, exec SQLExecutor, key models.TournamentIdentity) (*models.Tournament, error) {
	query := `SELECT ` + tournamentColumns + `
		FROM tournaments
		WHERE tom_uid IS NOT DISTINCT FROM $1
		  AND city IS NOT DISTINCT FROM $2
		  AND country IS NOT DISTINCT FROM $3
		  AND organizer_popid IS NOT DISTINCT FROM $4
		  AND date = $5::date
		ORDER BY id ASC
		LIMIT 1`
	return r.findOne(ctx, exec, query, key.SanctionID, key.City, key.Country, key.OrganizerPopID, key.Date)
}

func (r *postgresTournamentRepository) List(ctx context.Context, filter ListTournamentsFilter) ([]models.Tournament, error) {
	query := `SELECT ` + tournamentColumns + ` FROM tournaments WHERE 1=1`

	args := []interface{}{}
	argID := 1

	if filter.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", argID)
		args = append(args, *filter.Status)
		argID++
	}
	if filter.Published != nil {
		query += fmt.Sprintf(" AND is_published = $%d", argID)
		args = append(args, *filter.Published)
		argID++
	}
	if filter.VisibleTo != nil {
		query += fmt.Sprintf(" AND (is_published OR organizer_id = $%d)", argID)
		args = append(args, *filter.VisibleTo)
		argID++
	}

	query += " ORDER BY date DESC, id DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argID)
		args = append(args, filter.Limit)
		argID++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argID)
		args = append(args, filter.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tournaments: %w", err)
	}
	defer rows.Close()

	tournaments := make([]models.Tournament, 0)
	for rows.Next() {
		var t models.Tournament
		if err := scanTournament(rows, &t); err != nil {
			return nil, fmt.Errorf("failed to scan tournament row: %w", err)
		}
		tournaments = append(tournaments, t)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return tournaments, nil
}

// UpdateFromImport refreshes the fields a TOM file is authoritative for.
// is_published only changes when published is set.
func (r *postgresTournamentRepository) UpdateFromImport(ctx context.Context, exec SQLExecutor, id int, name string, status models.TournamentStatus, published *bool) error {
	executor := r.getExecutor(exec)
	query := `
		UPDATE tournaments SET
			name = $1,
			status = $2,
			is_published = COALESCE($3, is_published),
			updated_at = NOW()
		WHERE id = $4`
	result, err := executor.ExecContext(ctx, query, name, status, published, id)
	if err != nil {
		return r.handleTournamentError(err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

// RaiseTotalRounds never lowers the stored round count.
func (r *postgresTournamentRepository) RaiseTotalRounds(ctx context.Context, exec SQLExecutor, id int, rounds int) error {
	executor := r.getExecutor(exec)
	query := `UPDATE tournaments SET total_rounds = GREATEST(total_rounds, $1), updated_at = NOW() WHERE id = $2`
	result, err := executor.ExecContext(ctx, query, rounds, id)
	if err != nil {
		return fmt.Errorf("failed to update total rounds for tournament %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) SetPublished(ctx context.Context, id int, published bool) error {
	query := `UPDATE tournaments SET is_published = $1, updated_at = NOW() WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, published, id)
	if err != nil {
		return fmt.Errorf("failed to update tournament visibility: %w", err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) handleTournamentError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" && pqErr.Constraint == "tournaments_tom_uid_key" {
		return ErrTournamentSanctionConflict
	}
	return err
}
