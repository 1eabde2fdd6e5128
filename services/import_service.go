package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/litian80/tcg-manager-sub000/models"
	"github.com/litian80/tcg-manager-sub000/realtime"
	"github.com/litian80/tcg-manager-sub000/repositories"
	"github.com/litian80/tcg-manager-sub000/storage"
	"github.com/litian80/tcg-manager-sub000/tdf"
)

const standingsSavepoint = "import_standings"

// Broadcaster pushes a message to every viewer of a room.
type Broadcaster interface {
	BroadcastToRoom(roomID string, message interface{})
}

// Archiver stores a copy of a TDF file. Failures never fail the caller.
type Archiver interface {
	Store(ctx context.Context, kind storage.ArchiveKind, tournamentID int, data []byte) (*storage.UploadResult, error)
}

type ImportInput struct {
	Body []byte
	// Published, when set, overrides the tournament's visibility.
	Published *bool
	// UploadedBy becomes the organizer of a tournament created by this
	// import and must be able to manage an existing one.
	UploadedBy models.Principal
}

type ImportResult struct {
	ImportID      string                  `json:"import_id"`
	TournamentID  int                     `json:"tournament_id"`
	Created       bool                    `json:"created"`
	Status        models.TournamentStatus `json:"status"`
	TotalRounds   int                     `json:"total_rounds"`
	MatchCount    int                     `json:"match_count"`
	StandingCount int                     `json:"standing_count"`
	PlayersAdded  int                     `json:"players_added"`
	ArchiveKey    string                  `json:"archive_key,omitempty"`
	Warnings      []tdf.Warning           `json:"warnings"`
}

type ImportService interface {
	Import(ctx context.Context, in ImportInput) (*ImportResult, error)
}

type importService struct {
	db             *sql.DB
	tournamentRepo repositories.TournamentRepository
	playerRepo     repositories.PlayerRepository
	rosterRepo     repositories.RosterRepository
	matchRepo      repositories.MatchRepository
	standingRepo   repositories.StandingRepository
	archive        Archiver
	hub            Broadcaster
	logger         *slog.Logger
}

// NewImportService wires the import pipeline. archive and hub may be nil.
func NewImportService(
	db *sql.DB,
	tournamentRepo repositories.TournamentRepository,
	playerRepo repositories.PlayerRepository,
	rosterRepo repositories.RosterRepository,
	matchRepo repositories.MatchRepository,
	standingRepo repositories.StandingRepository,
	archive Archiver,
	hub Broadcaster,
	logger *slog.Logger,
) ImportService {
	return &importService{
		db:             db,
		tournamentRepo: tournamentRepo,
		playerRepo:     playerRepo,
		rosterRepo:     rosterRepo,
		matchRepo:      matchRepo,
		standingRepo:   standingRepo,
		archive:        archive,
		hub:            hub,
		logger:         logger,
	}
}

func (s *importService) Import(ctx context.Context, in ImportInput) (*ImportResult, error) {
	result := &ImportResult{ImportID: uuid.NewString(), Warnings: []tdf.Warning{}}
	log := s.logger.With(slog.String("import_id", result.ImportID))

	doc, err := tdf.Parse(in.Body)
	if err != nil {
		log.WarnContext(ctx, "rejected tournament file", slog.Any("error", err))
		return nil, fmt.Errorf("failed to read tournament file: %w", err)
	}
	log = log.With(slog.String("tdf_version", doc.Header.Version), slog.String("tdf_mode", doc.Header.Mode))

	result.Status = tdf.ClassifyStatus(doc.Standings)

	tournament, created, err := s.resolveTournament(ctx, doc, result.Status, in)
	if err != nil {
		log.ErrorContext(ctx, "failed to resolve tournament", slog.Any("error", err))
		return nil, err
	}
	result.TournamentID = tournament.ID
	result.Created = created
	log = log.With(slog.Int("tournament_id", tournament.ID))

	added, rosterWarnings := s.reconcileRoster(ctx, log, tournament.ID, doc.Players)
	result.PlayersAdded = added
	result.Warnings = append(result.Warnings, rosterWarnings...)

	known := make(map[string]bool, len(doc.Players))
	for _, p := range doc.Players {
		if p.UserID != "" {
			known[p.UserID] = true
		}
	}
	plan := tdf.BuildMatches(tournament.ID, doc.Pods, known)
	for _, w := range plan.Warnings {
		log.WarnContext(ctx, "match warning", slog.String("kind", string(w.Kind)), slog.String("message", w.Message))
	}
	result.Warnings = append(result.Warnings, plan.Warnings...)

	var standings []models.Standing
	if doc.Standings != nil {
		standings = tdf.DedupeStandings(tournament.ID, doc.Standings)
	}

	var refresh *importRefresh
	if !created {
		refresh = &importRefresh{name: doc.Data.Name, status: result.Status, published: in.Published}
	}
	storedStandings, err := s.replaceResults(ctx, log, tournament.ID, refresh, plan, standings, doc.Standings != nil)
	if err != nil {
		return nil, err
	}
	if refresh != nil {
		tournament.Name = refresh.name
		tournament.Status = refresh.status
		if refresh.published != nil {
			tournament.IsPublished = *refresh.published
		}
	}
	if doc.Standings != nil && !storedStandings {
		result.Warnings = append(result.Warnings, tdf.Warning{
			Kind:    tdf.WarningStorageUnavailable,
			Message: "standings could not be stored; matches were imported without them",
		})
	}

	result.MatchCount = len(plan.Matches)
	if storedStandings {
		result.StandingCount = len(standings)
	}
	result.TotalRounds = tournament.TotalRounds
	if plan.MaxRound > result.TotalRounds {
		result.TotalRounds = plan.MaxRound
	}

	if s.hub != nil {
		s.hub.BroadcastToRoom(realtime.TournamentRoom(tournament.ID), realtime.Message{
			Type:   realtime.EventTournamentImported,
			RoomID: realtime.TournamentRoom(tournament.ID),
			Payload: map[string]interface{}{
				"tournament_id": tournament.ID,
				"status":        result.Status,
				"total_rounds":  result.TotalRounds,
				"match_count":   result.MatchCount,
			},
		})
	}

	if s.archive != nil {
		res, err := s.archive.Store(ctx, storage.ArchiveImport, tournament.ID, in.Body)
		if err != nil {
			log.WarnContext(ctx, "failed to archive tournament file", slog.Any("error", err))
			result.Warnings = append(result.Warnings, tdf.Warning{
				Kind:    tdf.WarningStorageUnavailable,
				Message: "the uploaded file could not be archived",
			})
		} else {
			result.ArchiveKey = res.Key
		}
	}

	log.InfoContext(ctx, "tournament imported",
		slog.Bool("created", created),
		slog.String("status", string(result.Status)),
		slog.Int("matches", result.MatchCount),
		slog.Int("standings", result.StandingCount),
		slog.Int("warnings", len(result.Warnings)),
	)
	return result, nil
}

// resolveTournament finds the tournament by its five-field identity or
// creates it. An existing tournament is only returned to a caller who may
// manage it; its metadata is refreshed later together with the results.
func (s *importService) resolveTournament(ctx context.Context, doc *tdf.Document, status models.TournamentStatus, in ImportInput) (*models.Tournament, bool, error) {
	candidate := &models.Tournament{
		Name:           doc.Data.Name,
		Date:           doc.Data.StartDate,
		City:           nullableString(doc.Data.City),
		Country:        nullableString(doc.Data.Country),
		SanctionID:     nullableString(doc.Data.SanctionID),
		OrganizerPopID: nullableString(doc.Data.OrganizerPopID),
		OrganizerID:    nullableString(in.UploadedBy.UserID),
		Status:         status,
		IsPublished:    in.Published != nil && *in.Published,
	}

	existing, err := s.tournamentRepo.FindByIdentity(ctx, nil, candidate.Identity())
	switch {
	case err == nil:
		if !canManage(existing, in.UploadedBy) {
			return nil, false, ErrForbiddenOperation
		}
		return existing, false, nil
	case !errors.Is(err, repositories.ErrTournamentNotFound):
		return nil, false, fmt.Errorf("failed to look up tournament: %w", err)
	}

	if err := s.tournamentRepo.Create(ctx, nil, candidate); err != nil {
		if errors.Is(err, repositories.ErrTournamentSanctionConflict) {
			// Another import may have created the same tournament since the lookup.
			if again, findErr := s.tournamentRepo.FindByIdentity(ctx, nil, candidate.Identity()); findErr == nil {
				if !canManage(again, in.UploadedBy) {
					return nil, false, ErrForbiddenOperation
				}
				return again, false, nil
			}
			return nil, false, fmt.Errorf("%w: %s", ErrSanctionIDConflict, derefString(candidate.SanctionID))
		}
		return nil, false, fmt.Errorf("failed to create tournament: %w", err)
	}
	return candidate, true, nil
}

// importRefresh carries the fields a re-import overwrites on an existing
// tournament.
type importRefresh struct {
	name      string
	status    models.TournamentStatus
	published *bool
}

// reconcileRoster upserts every listed player and their membership. A
// failing player is reported and skipped.
func (s *importService) reconcileRoster(ctx context.Context, log *slog.Logger, tournamentID int, players []tdf.Player) (int, []tdf.Warning) {
	var warnings []tdf.Warning
	added := 0
	for _, p := range players {
		if p.UserID == "" {
			warnings = append(warnings, tdf.Warning{
				Kind:    tdf.WarningSkippedRecord,
				Message: fmt.Sprintf("skipping player %q %q without a userid", p.FirstName, p.LastName),
			})
			continue
		}

		tomID := p.UserID
		player := &models.Player{
			TomPlayerID: &tomID,
			FirstName:   orUnknown(p.FirstName),
			LastName:    orUnknown(p.LastName),
		}
		if err := s.playerRepo.Upsert(ctx, nil, player); err != nil {
			log.WarnContext(ctx, "failed to sync player", slog.String("tom_player_id", tomID), slog.Any("error", err))
			warnings = append(warnings, tdf.Warning{
				Kind:    tdf.WarningPartialRosterFailure,
				Message: fmt.Sprintf("player %s could not be saved", tomID),
			})
			continue
		}

		inserted, err := s.rosterRepo.Add(ctx, nil, tournamentID, player.ID)
		if err != nil {
			log.WarnContext(ctx, "failed to add player to roster", slog.String("tom_player_id", tomID), slog.Any("error", err))
			warnings = append(warnings, tdf.Warning{
				Kind:    tdf.WarningPartialRosterFailure,
				Message: fmt.Sprintf("player %s could not be added to the roster", tomID),
			})
			continue
		}
		if inserted {
			added++
		}
	}
	return added, warnings
}

// replaceResults swaps the tournament's matches (and standings, when the
// file has them) in one transaction under a per-tournament advisory lock.
// refresh, when set, is applied in the same transaction so a failed match
// write leaves the tournament untouched. It reports whether standings were
// written.
func (s *importService) replaceResults(ctx context.Context, log *slog.Logger, tournamentID int, refresh *importRefresh, plan tdf.MatchPlan, standings []models.Standing, replaceStandings bool) (storedStandings bool, txErr error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		} else if txErr != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				log.ErrorContext(ctx, "rollback failed", slog.Any("error", rbErr))
			}
			storedStandings = false
		} else if cErr := tx.Commit(); cErr != nil {
			txErr = fmt.Errorf("failed to commit import: %w", cErr)
			storedStandings = false
		}
	}()

	if txErr = repositories.LockTournament(ctx, tx, tournamentID); txErr != nil {
		return false, txErr
	}

	if err := s.matchRepo.DeleteByTournamentID(ctx, tx, tournamentID); err != nil {
		txErr = fmt.Errorf("%w: %w", ErrMatchPersistence, err)
		return false, txErr
	}
	if err := s.matchRepo.BatchCreate(ctx, tx, plan.Matches); err != nil {
		log.ErrorContext(ctx, "failed to insert matches", slog.Any("error", err))
		txErr = fmt.Errorf("%w: %w", ErrMatchPersistence, err)
		return false, txErr
	}

	if refresh != nil {
		if err := s.tournamentRepo.UpdateFromImport(ctx, tx, tournamentID, refresh.name, refresh.status, refresh.published); err != nil {
			txErr = fmt.Errorf("failed to update tournament %d: %w", tournamentID, err)
			return false, txErr
		}
	}

	if plan.MaxRound > 0 {
		if txErr = s.tournamentRepo.RaiseTotalRounds(ctx, tx, tournamentID, plan.MaxRound); txErr != nil {
			return false, txErr
		}
	}

	if !replaceStandings {
		return false, nil
	}
	err = repositories.WithSavepoint(ctx, tx, standingsSavepoint, func() error {
		if err := s.standingRepo.DeleteByTournamentID(ctx, tx, tournamentID); err != nil {
			return err
		}
		return s.standingRepo.BatchCreate(ctx, tx, standings)
	})
	if err != nil {
		log.WarnContext(ctx, "standings not stored", slog.Any("error", err))
		return false, nil
	}
	return true, nil
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}
