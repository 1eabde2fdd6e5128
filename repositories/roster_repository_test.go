package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/litian80/tcg-manager-sub000/models"
)

func TestPlayerRepository_UpsertByTomID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	tomID := "0042"
	mock.ExpectQuery(`ON CONFLICT \(tom_player_id\) DO UPDATE`).
		WithArgs(tomID, "Ash", "Ketchum").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(8, now, now))

	p := &models.Player{TomPlayerID: &tomID, FirstName: "Ash", LastName: "Ketchum"}
	require.NoError(t, NewPostgresPlayerRepository(db).Upsert(context.Background(), nil, p))
	assert.Equal(t, 8, p.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRosterRepository_AddIsIdempotent(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`ON CONFLICT \(tournament_id, player_id\) DO NOTHING`).
		WithArgs(1, 8).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`ON CONFLICT \(tournament_id, player_id\) DO NOTHING`).
		WithArgs(1, 8).
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewPostgresRosterRepository(db)
	added, err := repo.Add(context.Background(), nil, 1, 8)
	require.NoError(t, err)
	assert.True(t, added)

	added, err = repo.Add(context.Background(), nil, 1, 8)
	require.NoError(t, err)
	assert.False(t, added)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRosterRepository_CreateConflict(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO tournament_players`).
		WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectExec(`INSERT INTO tournament_players`).
		WillReturnError(&pq.Error{Code: "23503"})

	repo := NewPostgresRosterRepository(db)
	assert.ErrorIs(t, repo.Create(context.Background(), nil, 1, 2), ErrRosterConflict)
	assert.ErrorIs(t, repo.Create(context.Background(), nil, 1, 3), ErrRosterReference)
}

func TestRosterRepository_RemoveMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`DELETE FROM tournament_players`).WithArgs(1, 2).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, NewPostgresRosterRepository(db).Remove(context.Background(), 1, 2), ErrRosterEntryNotFound)
}

func TestRosterRepository_ListPlayers(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`JOIN players p ON p.id = tp.player_id`).WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "tom_player_id", "first_name", "last_name", "created_at", "updated_at"}).
			AddRow(2, "0042", "Ash", "Ketchum", now, now).
			AddRow(3, nil, "Misty", "Waterflower", now, now))

	players, err := NewPostgresRosterRepository(db).ListPlayers(context.Background(), nil, 1)
	require.NoError(t, err)
	require.Len(t, players, 2)
	assert.Equal(t, "0042", *players[0].TomPlayerID)
	assert.Nil(t, players[1].TomPlayerID)
}
