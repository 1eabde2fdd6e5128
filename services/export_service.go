package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/litian80/tcg-manager-sub000/models"
	"github.com/litian80/tcg-manager-sub000/repositories"
	"github.com/litian80/tcg-manager-sub000/storage"
	"github.com/litian80/tcg-manager-sub000/tdf"
)

type ExportService interface {
	Export(ctx context.Context, tournamentID int, principal models.Principal) (*tdf.ExportFile, error)
}

type exportService struct {
	tournamentRepo repositories.TournamentRepository
	rosterRepo     repositories.RosterRepository
	archive        Archiver
	logger         *slog.Logger
	now            func() time.Time
}

func NewExportService(
	tournamentRepo repositories.TournamentRepository,
	rosterRepo repositories.RosterRepository,
	archive Archiver,
	logger *slog.Logger,
) ExportService {
	return &exportService{
		tournamentRepo: tournamentRepo,
		rosterRepo:     rosterRepo,
		archive:        archive,
		logger:         logger,
		now:            time.Now,
	}
}

func (s *exportService) Export(ctx context.Context, tournamentID int, principal models.Principal) (*tdf.ExportFile, error) {
	var (
		tournament *models.Tournament
		players    []models.Player
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		t, err := s.tournamentRepo.GetByID(gctx, tournamentID)
		if err != nil {
			if errors.Is(err, repositories.ErrTournamentNotFound) {
				return ErrTournamentNotFound
			}
			return fmt.Errorf("failed to load tournament %d: %w", tournamentID, err)
		}
		tournament = t
		return nil
	})
	g.Go(func() error {
		list, err := s.rosterRepo.ListPlayers(gctx, nil, tournamentID)
		if err != nil {
			return fmt.Errorf("failed to load roster for tournament %d: %w", tournamentID, err)
		}
		players = list
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if !canManage(tournament, principal) {
		return nil, ErrForbiddenOperation
	}

	file, err := tdf.Synthesize(tournament, players, s.now())
	if err != nil {
		return nil, err
	}

	if s.archive != nil {
		if _, err := s.archive.Store(ctx, storage.ArchiveExport, tournamentID, []byte(file.XML)); err != nil {
			s.logger.WarnContext(ctx, "failed to archive exported file",
				slog.Int("tournament_id", tournamentID), slog.Any("error", err))
		}
	}

	s.logger.InfoContext(ctx, "tournament exported",
		slog.Int("tournament_id", tournamentID),
		slog.Int("players", len(players)),
		slog.String("filename", file.Filename))
	return file, nil
}
