package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/litian80/tcg-manager-sub000/models"
	"github.com/litian80/tcg-manager-sub000/realtime"
	"github.com/litian80/tcg-manager-sub000/repositories"
	"github.com/litian80/tcg-manager-sub000/storage"
	"github.com/litian80/tcg-manager-sub000/tdf"
)

const importTDF = `<?xml version="1.0" encoding="UTF-8"?>
<tournament type="2" stage="1" version="1.80" gametype="TRADING_CARD_GAME" mode="LEAGUECHALLENGE">
	<data>
		<name>Auckland League Cup</name>
		<id>25-01-000001</id>
		<city>Auckland</city>
		<country>New Zealand</country>
		<organizer popid="1234567" name="Org"/>
		<startdate>07/02/2024</startdate>
	</data>
	<players>
		<player userid="1"><firstname>Ash</firstname><lastname>Ketchum</lastname></player>
		<player userid="2"><firstname>Misty</firstname><lastname></lastname></player>
		<player userid="3"><firstname>Brock</firstname><lastname>Harrison</lastname></player>
		<player><firstname>No</firstname><lastname>Id</lastname></player>
	</players>
	<pods>
		<pod category="2" stage="1">
			<rounds>
				<round number="2">
					<matches>
						<match outcome="0"><player1 userid="1"/><player2 userid="3"/><tablenumber>1</tablenumber></match>
					</matches>
				</round>
				<round number="1">
					<matches>
						<match outcome="1"><player1 userid="1"/><player2 userid="2"/><tablenumber>1</tablenumber></match>
						<match outcome="5"><player userid="3"/><tablenumber>0</tablenumber></match>
					</matches>
				</round>
			</rounds>
		</pod>
	</pods>
	%s
</tournament>`

const finishedStandings = `<standings>
		<pod category="2" type="finished">
			<player id="1" place="1"/>
			<player id="3" place="2"/>
			<player id="2" place="3"/>
		</pod>
	</standings>`

type importFixture struct {
	svc         ImportService
	mock        sqlmock.Sqlmock
	tournaments *fakeTournamentRepo
	players     *fakePlayerRepo
	roster      *fakeRosterRepo
	matches     *fakeMatchRepo
	standings   *fakeStandingRepo
	archive     *fakeArchive
	hub         *fakeHub
}

func newImportFixture(t *testing.T) *importFixture {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	f := &importFixture{
		mock:        mock,
		tournaments: newFakeTournamentRepo(),
		players:     newFakePlayerRepo(),
		matches:     newFakeMatchRepo(),
		standings:   newFakeStandingRepo(),
		archive:     &fakeArchive{},
		hub:         &fakeHub{},
	}
	f.roster = newFakeRosterRepo(f.players)
	f.svc = NewImportService(db, f.tournaments, f.players, f.roster, f.matches, f.standings, f.archive, f.hub, discardLogger())
	return f
}

func (f *importFixture) expectReplace(withStandings bool) {
	f.mock.ExpectBegin()
	f.mock.ExpectExec(`SELECT pg_advisory_xact_lock`).WillReturnResult(sqlmock.NewResult(0, 0))
	if withStandings {
		f.mock.ExpectExec(`SAVEPOINT import_standings`).WillReturnResult(sqlmock.NewResult(0, 0))
		f.mock.ExpectExec(`RELEASE SAVEPOINT import_standings`).WillReturnResult(sqlmock.NewResult(0, 0))
	}
	f.mock.ExpectCommit()
}

func tdfWith(standings string) []byte {
	return []byte(fmt.Sprintf(importTDF, standings))
}

func TestImport_CreatesTournamentAndReplaysRecords(t *testing.T) {
	f := newImportFixture(t)
	f.expectReplace(true)

	published := true
	res, err := f.svc.Import(context.Background(), ImportInput{Body: tdfWith(finishedStandings), Published: &published, UploadedBy: models.Principal{UserID: "user-1", Role: models.RoleOrganizer}})
	require.NoError(t, err)
	require.NoError(t, f.mock.ExpectationsWereMet())

	assert.True(t, res.Created)
	assert.NotEmpty(t, res.ImportID)
	assert.Equal(t, models.StatusCompleted, res.Status)
	assert.Equal(t, 2, res.TotalRounds)
	assert.Equal(t, 3, res.MatchCount)
	assert.Equal(t, 3, res.StandingCount)
	assert.Equal(t, 3, res.PlayersAdded)
	assert.Equal(t, "imports/key.tdf", res.ArchiveKey)

	require.Len(t, res.Warnings, 1)
	assert.Equal(t, tdf.WarningSkippedRecord, res.Warnings[0].Kind)

	stored, err := f.tournaments.GetByID(context.Background(), res.TournamentID)
	require.NoError(t, err)
	assert.Equal(t, "Auckland League Cup", stored.Name)
	assert.True(t, stored.IsPublished)
	assert.Equal(t, 2, stored.TotalRounds)
	assert.Equal(t, "user-1", *stored.OrganizerID)
	assert.Equal(t, "1234567", *stored.OrganizerPopID)

	misty, ok := f.players.tomPlayer("2")
	require.True(t, ok)
	assert.Equal(t, "Unknown", misty.LastName)

	matches := f.matches.stored[res.TournamentID]
	require.Len(t, matches, 3)
	assert.Equal(t, 1, matches[0].RoundNumber)
	assert.Equal(t, "1-0-0", matches[0].P1DisplayRecord)
	assert.Equal(t, "3", matches[1].Player1TomID)
	assert.Equal(t, "1-0-0", matches[1].P1DisplayRecord)
	assert.Nil(t, matches[1].Player2TomID)
	// Round 2 is in progress: records entering the match.
	assert.Equal(t, 2, matches[2].RoundNumber)
	assert.Equal(t, "1-0-0", matches[2].P1DisplayRecord)
	assert.Equal(t, "1-0-0", *matches[2].P2DisplayRecord)
	assert.False(t, matches[2].IsFinished)

	require.Len(t, f.hub.rooms, 1)
	assert.Equal(t, realtime.TournamentRoom(res.TournamentID), f.hub.rooms[0])
	assert.Equal(t, []storage.ArchiveKind{storage.ArchiveImport}, f.archive.stored)
}

func TestImport_ReimportResolvesSameTournament(t *testing.T) {
	f := newImportFixture(t)
	f.expectReplace(false)
	f.expectReplace(true)

	first, err := f.svc.Import(context.Background(), ImportInput{Body: tdfWith(""), UploadedBy: organizer})
	require.NoError(t, err)
	assert.Equal(t, models.StatusRunning, first.Status)
	assert.Zero(t, first.StandingCount)

	second, err := f.svc.Import(context.Background(), ImportInput{Body: tdfWith(finishedStandings), UploadedBy: organizer})
	require.NoError(t, err)
	require.NoError(t, f.mock.ExpectationsWereMet())

	assert.Equal(t, first.TournamentID, second.TournamentID)
	assert.False(t, second.Created)
	assert.Zero(t, second.PlayersAdded)
	assert.Equal(t, models.StatusCompleted, second.Status)
	assert.Len(t, f.matches.stored[first.TournamentID], 3)
	assert.Equal(t, 1, f.tournaments.updateCalls)

	list, err := f.tournaments.List(context.Background(), repositories.ListTournamentsFilter{})
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Equal(t, models.StatusCompleted, list[0].Status)
	// The publish flag was not supplied, so visibility is untouched.
	assert.False(t, list[0].IsPublished)
}

func TestImport_ReimportRequiresOwnership(t *testing.T) {
	f := newImportFixture(t)
	f.expectReplace(false)
	f.expectReplace(false)

	first, err := f.svc.Import(context.Background(), ImportInput{Body: tdfWith(""), UploadedBy: organizer})
	require.NoError(t, err)

	published := true
	_, err = f.svc.Import(context.Background(), ImportInput{
		Body:       tdfWith(finishedStandings),
		Published:  &published,
		UploadedBy: models.Principal{UserID: "org-2", Role: models.RoleOrganizer},
	})
	assert.ErrorIs(t, err, ErrForbiddenOperation)

	stored, err := f.tournaments.GetByID(context.Background(), first.TournamentID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRunning, stored.Status)
	assert.False(t, stored.IsPublished)
	assert.Zero(t, f.tournaments.updateCalls)

	// Admins may re-import any tournament.
	res, err := f.svc.Import(context.Background(), ImportInput{
		Body:       tdfWith(""),
		UploadedBy: models.Principal{UserID: "root", Role: models.RoleAdmin},
	})
	require.NoError(t, err)
	assert.Equal(t, first.TournamentID, res.TournamentID)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestImport_FailedReimportLeavesTournamentUntouched(t *testing.T) {
	f := newImportFixture(t)
	f.expectReplace(false)

	first, err := f.svc.Import(context.Background(), ImportInput{Body: tdfWith(""), UploadedBy: organizer})
	require.NoError(t, err)

	f.matches.insertErr = errors.New("disk full")
	f.mock.ExpectBegin()
	f.mock.ExpectExec(`SELECT pg_advisory_xact_lock`).WillReturnResult(sqlmock.NewResult(0, 0))
	f.mock.ExpectRollback()

	published := true
	_, err = f.svc.Import(context.Background(), ImportInput{Body: tdfWith(finishedStandings), Published: &published, UploadedBy: organizer})
	require.ErrorIs(t, err, ErrMatchPersistence)
	require.NoError(t, f.mock.ExpectationsWereMet())

	stored, err := f.tournaments.GetByID(context.Background(), first.TournamentID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRunning, stored.Status)
	assert.False(t, stored.IsPublished)
	assert.Zero(t, f.tournaments.updateCalls)
}

func TestImport_TotalRoundsNeverShrink(t *testing.T) {
	const roundOneOnly = `<?xml version="1.0" encoding="UTF-8"?>
<tournament version="1.80">
	<data>
		<name>Auckland League Cup</name>
		<id>25-01-000001</id>
		<city>Auckland</city>
		<country>New Zealand</country>
		<organizer popid="1234567" name="Org"/>
		<startdate>07/02/2024</startdate>
	</data>
	<players>
		<player userid="1"><firstname>Ash</firstname><lastname>Ketchum</lastname></player>
		<player userid="2"><firstname>Misty</firstname><lastname>Waterflower</lastname></player>
	</players>
	<pods>
		<pod category="2">
			<rounds>
				<round number="1">
					<matches>
						<match outcome="1"><player1 userid="1"/><player2 userid="2"/><tablenumber>1</tablenumber></match>
					</matches>
				</round>
			</rounds>
		</pod>
	</pods>
</tournament>`

	f := newImportFixture(t)
	f.expectReplace(false)
	f.expectReplace(false)

	first, err := f.svc.Import(context.Background(), ImportInput{Body: tdfWith(""), UploadedBy: organizer})
	require.NoError(t, err)
	require.Equal(t, 2, first.TotalRounds)

	second, err := f.svc.Import(context.Background(), ImportInput{Body: []byte(roundOneOnly), UploadedBy: organizer})
	require.NoError(t, err)
	require.NoError(t, f.mock.ExpectationsWereMet())

	assert.Equal(t, first.TournamentID, second.TournamentID)
	assert.Equal(t, 2, second.TotalRounds)
	assert.Equal(t, 1, second.MatchCount)

	stored, err := f.tournaments.GetByID(context.Background(), first.TournamentID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.TotalRounds)
}

func TestImport_RosterFailureIsPartial(t *testing.T) {
	f := newImportFixture(t)
	f.players.failFor["2"] = true
	f.expectReplace(false)

	res, err := f.svc.Import(context.Background(), ImportInput{Body: tdfWith("")})
	require.NoError(t, err)
	assert.Equal(t, 2, res.PlayersAdded)

	kinds := map[tdf.WarningKind]int{}
	for _, w := range res.Warnings {
		kinds[w.Kind]++
	}
	assert.Equal(t, 1, kinds[tdf.WarningPartialRosterFailure])
	assert.Equal(t, 3, res.MatchCount)
}

func TestImport_MatchInsertFailureIsFatal(t *testing.T) {
	f := newImportFixture(t)
	f.matches.insertErr = errors.New("disk full")

	f.mock.ExpectBegin()
	f.mock.ExpectExec(`SELECT pg_advisory_xact_lock`).WillReturnResult(sqlmock.NewResult(0, 0))
	f.mock.ExpectRollback()

	_, err := f.svc.Import(context.Background(), ImportInput{Body: tdfWith(finishedStandings)})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMatchPersistence)
	assert.NoError(t, f.mock.ExpectationsWereMet())
	assert.Empty(t, f.hub.rooms)
	assert.Empty(t, f.archive.stored)
}

func TestImport_StandingsFailureIsNonFatal(t *testing.T) {
	f := newImportFixture(t)
	f.standings.insertErr = errors.New("relation \"standings\" does not exist")

	f.mock.ExpectBegin()
	f.mock.ExpectExec(`SELECT pg_advisory_xact_lock`).WillReturnResult(sqlmock.NewResult(0, 0))
	f.mock.ExpectExec(`SAVEPOINT import_standings`).WillReturnResult(sqlmock.NewResult(0, 0))
	f.mock.ExpectExec(`ROLLBACK TO SAVEPOINT import_standings`).WillReturnResult(sqlmock.NewResult(0, 0))
	f.mock.ExpectCommit()

	res, err := f.svc.Import(context.Background(), ImportInput{Body: tdfWith(finishedStandings)})
	require.NoError(t, err)
	require.NoError(t, f.mock.ExpectationsWereMet())

	assert.Equal(t, 3, res.MatchCount)
	assert.Zero(t, res.StandingCount)
	var sawStorage bool
	for _, w := range res.Warnings {
		if w.Kind == tdf.WarningStorageUnavailable {
			sawStorage = true
		}
	}
	assert.True(t, sawStorage)
}

func TestImport_ArchiveFailureIsNonFatal(t *testing.T) {
	f := newImportFixture(t)
	f.archive.err = errors.New("bucket unavailable")
	f.expectReplace(false)

	res, err := f.svc.Import(context.Background(), ImportInput{Body: tdfWith("")})
	require.NoError(t, err)
	assert.Empty(t, res.ArchiveKey)
	assert.Equal(t, tdf.WarningStorageUnavailable, res.Warnings[len(res.Warnings)-1].Kind)
}

func TestImport_RejectsBadInput(t *testing.T) {
	f := newImportFixture(t)

	_, err := f.svc.Import(context.Background(), ImportInput{Body: []byte("<tournament>")})
	assert.ErrorIs(t, err, tdf.ErrMalformedInput)

	_, err = f.svc.Import(context.Background(), ImportInput{Body: []byte("<event/>")})
	assert.ErrorIs(t, err, tdf.ErrSchemaViolation)

	assert.NoError(t, f.mock.ExpectationsWereMet())
	assert.Empty(t, f.tournaments.byID)
}

func TestImport_SanctionIDHeldByDifferentTournament(t *testing.T) {
	f := newImportFixture(t)
	other := "25-01-000001"
	city := "Wellington"
	require.NoError(t, f.tournaments.Create(context.Background(), nil, &models.Tournament{Name: "Other", SanctionID: &other, City: &city}))

	_, err := f.svc.Import(context.Background(), ImportInput{Body: tdfWith("")})
	assert.ErrorIs(t, err, ErrSanctionIDConflict)
}
