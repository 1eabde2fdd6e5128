package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/litian80/tcg-manager-sub000/models"
	"github.com/litian80/tcg-manager-sub000/repositories"
)

type AddRosterPlayerInput struct {
	TomPlayerID string `json:"tom_player_id" validate:"required,max=20"`
	FirstName   string `json:"first_name" validate:"required,max=100"`
	LastName    string `json:"last_name" validate:"required,max=100"`
}

type RosterService interface {
	List(ctx context.Context, tournamentID int, viewer *models.Principal) ([]models.Player, error)
	Add(ctx context.Context, tournamentID int, input AddRosterPlayerInput, principal models.Principal) (*models.Player, error)
	Remove(ctx context.Context, tournamentID, playerID int, principal models.Principal) error
}

type rosterService struct {
	tournamentRepo repositories.TournamentRepository
	playerRepo     repositories.PlayerRepository
	rosterRepo     repositories.RosterRepository
}

func NewRosterService(
	tournamentRepo repositories.TournamentRepository,
	playerRepo repositories.PlayerRepository,
	rosterRepo repositories.RosterRepository,
) RosterService {
	return &rosterService{
		tournamentRepo: tournamentRepo,
		playerRepo:     playerRepo,
		rosterRepo:     rosterRepo,
	}
}

func (s *rosterService) tournament(ctx context.Context, id int) (*models.Tournament, error) {
	t, err := s.tournamentRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to get tournament %d: %w", id, err)
	}
	return t, nil
}

func (s *rosterService) List(ctx context.Context, tournamentID int, viewer *models.Principal) ([]models.Player, error) {
	t, err := s.tournament(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	if !canView(t, viewer) {
		return nil, ErrTournamentNotFound
	}
	players, err := s.rosterRepo.ListPlayers(ctx, nil, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list roster: %w", err)
	}
	return players, nil
}

// Add upserts the player by TOM id and adds them to the roster. Unlike the
// import path, an existing membership is reported as a conflict.
func (s *rosterService) Add(ctx context.Context, tournamentID int, input AddRosterPlayerInput, principal models.Principal) (*models.Player, error) {
	t, err := s.tournament(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	if !canManage(t, principal) {
		return nil, ErrForbiddenOperation
	}

	input.TomPlayerID = strings.TrimSpace(input.TomPlayerID)
	input.FirstName = strings.TrimSpace(input.FirstName)
	input.LastName = strings.TrimSpace(input.LastName)
	if err := validateInput(ctx, input); err != nil {
		return nil, err
	}

	tomID := input.TomPlayerID
	player := &models.Player{TomPlayerID: &tomID, FirstName: input.FirstName, LastName: input.LastName}
	if err := s.playerRepo.Upsert(ctx, nil, player); err != nil {
		return nil, fmt.Errorf("failed to save player: %w", err)
	}

	if err := s.rosterRepo.Create(ctx, nil, tournamentID, player.ID); err != nil {
		if errors.Is(err, repositories.ErrRosterConflict) {
			return nil, ErrAlreadyInRoster
		}
		return nil, fmt.Errorf("failed to add player to roster: %w", err)
	}
	return player, nil
}

func (s *rosterService) Remove(ctx context.Context, tournamentID, playerID int, principal models.Principal) error {
	t, err := s.tournament(ctx, tournamentID)
	if err != nil {
		return err
	}
	if !canManage(t, principal) {
		return ErrForbiddenOperation
	}
	if err := s.rosterRepo.Remove(ctx, tournamentID, playerID); err != nil {
		if errors.Is(err, repositories.ErrRosterEntryNotFound) {
			return ErrNotInRoster
		}
		return fmt.Errorf("failed to remove player from roster: %w", err)
	}
	return nil
}
