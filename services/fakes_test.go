package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/litian80/tcg-manager-sub000/models"
	"github.com/litian80/tcg-manager-sub000/repositories"
	"github.com/litian80/tcg-manager-sub000/storage"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func sameKey(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

type fakeTournamentRepo struct {
	mu          sync.Mutex
	byID        map[int]*models.Tournament
	nextID      int
	createErr   error
	updateCalls int
	lastFilter  repositories.ListTournamentsFilter
}

func newFakeTournamentRepo() *fakeTournamentRepo {
	return &fakeTournamentRepo{byID: map[int]*models.Tournament{}, nextID: 1}
}

func (r *fakeTournamentRepo) Create(_ context.Context, _ repositories.SQLExecutor, t *models.Tournament) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	if t.SanctionID != nil {
		for _, o := range r.byID {
			if sameKey(o.SanctionID, t.SanctionID) {
				return repositories.ErrTournamentSanctionConflict
			}
		}
	}
	t.ID = r.nextID
	r.nextID++
	cp := *t
	r.byID[t.ID] = &cp
	return nil
}

func (r *fakeTournamentRepo) GetByID(_ context.Context, id int) (*models.Tournament, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.byID[id]
	if !ok {
		return nil, repositories.ErrTournamentNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *fakeTournamentRepo) GetBySanctionID(_ context.Context, sanctionID string) (*models.Tournament, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.byID {
		if t.SanctionID != nil && *t.SanctionID == sanctionID {
			cp := *t
			return &cp, nil
		}
	}
	return nil, repositories.ErrTournamentNotFound
}

func (r *fakeTournamentRepo) FindByIdentity(_ context.Context, _ repositories.SQLExecutor, key models.TournamentIdentity) (*models.Tournament, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id := 1; id < r.nextID; id++ {
		t, ok := r.byID[id]
		if !ok {
			continue
		}
		if sameKey(t.SanctionID, key.SanctionID) && sameKey(t.City, key.City) && sameKey(t.Country, key.Country) &&
			sameKey(t.OrganizerPopID, key.OrganizerPopID) && t.Date.Equal(key.Date) {
			cp := *t
			return &cp, nil
		}
	}
	return nil, repositories.ErrTournamentNotFound
}

func (r *fakeTournamentRepo) List(_ context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastFilter = filter
	out := []models.Tournament{}
	for id := 1; id < r.nextID; id++ {
		t, ok := r.byID[id]
		if !ok {
			continue
		}
		if filter.Published != nil && t.IsPublished != *filter.Published {
			continue
		}
		if filter.VisibleTo != nil && !t.IsPublished && derefString(t.OrganizerID) != *filter.VisibleTo {
			continue
		}
		out = append(out, *t)
	}
	return out, nil
}

func (r *fakeTournamentRepo) UpdateFromImport(_ context.Context, _ repositories.SQLExecutor, id int, name string, status models.TournamentStatus, published *bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.byID[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	r.updateCalls++
	t.Name = name
	t.Status = status
	if published != nil {
		t.IsPublished = *published
	}
	return nil
}

func (r *fakeTournamentRepo) RaiseTotalRounds(_ context.Context, _ repositories.SQLExecutor, id int, rounds int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.byID[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	if rounds > t.TotalRounds {
		t.TotalRounds = rounds
	}
	return nil
}

func (r *fakeTournamentRepo) SetPublished(_ context.Context, id int, published bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.byID[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	t.IsPublished = published
	return nil
}

type fakePlayerRepo struct {
	byTomID map[string]*models.Player
	nextID  int
	failFor map[string]bool
}

func newFakePlayerRepo() *fakePlayerRepo {
	return &fakePlayerRepo{byTomID: map[string]*models.Player{}, nextID: 100, failFor: map[string]bool{}}
}

func (r *fakePlayerRepo) Upsert(_ context.Context, _ repositories.SQLExecutor, p *models.Player) error {
	tomID := *p.TomPlayerID
	if r.failFor[tomID] {
		return errors.New("connection reset")
	}
	if existing, ok := r.byTomID[tomID]; ok {
		existing.FirstName, existing.LastName = p.FirstName, p.LastName
		p.ID = existing.ID
		return nil
	}
	p.ID = r.nextID
	r.nextID++
	cp := *p
	r.byTomID[tomID] = &cp
	return nil
}

func (r *fakePlayerRepo) byID(id int) (models.Player, bool) {
	for _, p := range r.byTomID {
		if p.ID == id {
			return *p, true
		}
	}
	return models.Player{}, false
}

func (r *fakePlayerRepo) tomPlayer(tomID string) (models.Player, bool) {
	p, ok := r.byTomID[tomID]
	if !ok {
		return models.Player{}, false
	}
	return *p, true
}

type rosterKey struct{ tournamentID, playerID int }

type fakeRosterRepo struct {
	members map[rosterKey]bool
	players *fakePlayerRepo
}

func newFakeRosterRepo(players *fakePlayerRepo) *fakeRosterRepo {
	return &fakeRosterRepo{members: map[rosterKey]bool{}, players: players}
}

func (r *fakeRosterRepo) Add(_ context.Context, _ repositories.SQLExecutor, tournamentID, playerID int) (bool, error) {
	k := rosterKey{tournamentID, playerID}
	if r.members[k] {
		return false, nil
	}
	r.members[k] = true
	return true, nil
}

func (r *fakeRosterRepo) Create(_ context.Context, _ repositories.SQLExecutor, tournamentID, playerID int) error {
	k := rosterKey{tournamentID, playerID}
	if r.members[k] {
		return repositories.ErrRosterConflict
	}
	r.members[k] = true
	return nil
}

func (r *fakeRosterRepo) Remove(_ context.Context, tournamentID, playerID int) error {
	k := rosterKey{tournamentID, playerID}
	if !r.members[k] {
		return repositories.ErrRosterEntryNotFound
	}
	delete(r.members, k)
	return nil
}

func (r *fakeRosterRepo) ListPlayers(_ context.Context, _ repositories.SQLExecutor, tournamentID int) ([]models.Player, error) {
	out := []models.Player{}
	for k := range r.members {
		if k.tournamentID != tournamentID {
			continue
		}
		p, ok := r.players.byID(k.playerID)
		if !ok {
			return nil, fmt.Errorf("player %d missing", k.playerID)
		}
		out = append(out, p)
	}
	return out, nil
}

type fakeMatchRepo struct {
	stored    map[int][]models.Match
	insertErr error
}

func newFakeMatchRepo() *fakeMatchRepo {
	return &fakeMatchRepo{stored: map[int][]models.Match{}}
}

func (r *fakeMatchRepo) DeleteByTournamentID(_ context.Context, _ repositories.SQLExecutor, tournamentID int) error {
	delete(r.stored, tournamentID)
	return nil
}

func (r *fakeMatchRepo) BatchCreate(_ context.Context, _ *sql.Tx, matches []models.Match) error {
	if r.insertErr != nil {
		return r.insertErr
	}
	for _, m := range matches {
		r.stored[m.TournamentID] = append(r.stored[m.TournamentID], m)
	}
	return nil
}

func (r *fakeMatchRepo) ListByTournament(_ context.Context, tournamentID int, round int) ([]models.Match, error) {
	out := []models.Match{}
	for _, m := range r.stored[tournamentID] {
		if round <= 0 || m.RoundNumber == round {
			out = append(out, m)
		}
	}
	return out, nil
}

type fakeStandingRepo struct {
	stored    map[int][]models.Standing
	insertErr error
}

func newFakeStandingRepo() *fakeStandingRepo {
	return &fakeStandingRepo{stored: map[int][]models.Standing{}}
}

func (r *fakeStandingRepo) DeleteByTournamentID(_ context.Context, _ repositories.SQLExecutor, tournamentID int) error {
	delete(r.stored, tournamentID)
	return nil
}

func (r *fakeStandingRepo) BatchCreate(_ context.Context, _ *sql.Tx, standings []models.Standing) error {
	if r.insertErr != nil {
		return r.insertErr
	}
	for _, s := range standings {
		r.stored[s.TournamentID] = append(r.stored[s.TournamentID], s)
	}
	return nil
}

func (r *fakeStandingRepo) ListByTournament(_ context.Context, tournamentID int) ([]models.Standing, error) {
	return append([]models.Standing{}, r.stored[tournamentID]...), nil
}

type fakeArchive struct {
	stored []storage.ArchiveKind
	err    error
}

func (a *fakeArchive) Store(_ context.Context, kind storage.ArchiveKind, tournamentID int, _ []byte) (*storage.UploadResult, error) {
	if a.err != nil {
		return nil, a.err
	}
	a.stored = append(a.stored, kind)
	return &storage.UploadResult{Key: string(kind) + "/key.tdf"}, nil
}

type fakeHub struct {
	rooms    []string
	messages []interface{}
}

func (h *fakeHub) BroadcastToRoom(roomID string, message interface{}) {
	h.rooms = append(h.rooms, roomID)
	h.messages = append(h.messages, message)
}
