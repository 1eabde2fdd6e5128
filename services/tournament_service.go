package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/litian80/tcg-manager-sub000/models"
	"github.com/litian80/tcg-manager-sub000/repositories"
)

const (
	defaultCountry  = "New Zealand"
	inputDateLayout = "2006-01-02"
)

type CreateTournamentInput struct {
	Name           string `json:"name" validate:"required,max=200"`
	Date           string `json:"date" validate:"required,datetime=2006-01-02"`
	City           string `json:"city" validate:"required,max=100"`
	Country        string `json:"country" validate:"max=100"`
	SanctionID     string `json:"tom_uid" validate:"omitempty,sanction_id"`
	OrganizerPopID string `json:"organizer_popid" validate:"omitempty,max=20"`
}

type TournamentService interface {
	Create(ctx context.Context, input CreateTournamentInput, principal models.Principal) (*models.Tournament, error)
	// Reads take the caller, nil when anonymous. Unpublished tournaments
	// are only visible to whoever may manage them.
	GetByID(ctx context.Context, id int, viewer *models.Principal) (*models.Tournament, error)
	List(ctx context.Context, filter repositories.ListTournamentsFilter, viewer *models.Principal) ([]models.Tournament, error)
	SetPublished(ctx context.Context, id int, published bool, principal models.Principal) (*models.Tournament, error)
	ListMatches(ctx context.Context, id int, round int, viewer *models.Principal) ([]models.Match, error)
	ListStandings(ctx context.Context, id int, viewer *models.Principal) ([]models.Standing, error)
}

type tournamentService struct {
	tournamentRepo repositories.TournamentRepository
	matchRepo      repositories.MatchRepository
	standingRepo   repositories.StandingRepository
}

func NewTournamentService(
	tournamentRepo repositories.TournamentRepository,
	matchRepo repositories.MatchRepository,
	standingRepo repositories.StandingRepository,
) TournamentService {
	return &tournamentService{
		tournamentRepo: tournamentRepo,
		matchRepo:      matchRepo,
		standingRepo:   standingRepo,
	}
}

func (s *tournamentService) Create(ctx context.Context, input CreateTournamentInput, principal models.Principal) (*models.Tournament, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Date = strings.TrimSpace(input.Date)
	input.City = strings.TrimSpace(input.City)
	input.Country = strings.TrimSpace(input.Country)
	input.SanctionID = strings.TrimSpace(input.SanctionID)
	input.OrganizerPopID = strings.TrimSpace(input.OrganizerPopID)
	if err := validateInput(ctx, input); err != nil {
		return nil, err
	}
	date, err := time.Parse(inputDateLayout, input.Date)
	if err != nil {
		return nil, fmt.Errorf("%w: date must be YYYY-MM-DD", ErrValidationFailed)
	}

	name, city, country := input.Name, input.City, input.Country
	if country == "" {
		country = defaultCountry
	}

	sanctionID := nullableString(input.SanctionID)
	if sanctionID != nil {
		_, err := s.tournamentRepo.GetBySanctionID(ctx, *sanctionID)
		if err == nil {
			return nil, ErrSanctionIDConflict
		}
		if !errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, fmt.Errorf("failed to check sanction id: %w", err)
		}
	}

	t := &models.Tournament{
		Name:           name,
		Date:           date,
		City:           &city,
		Country:        &country,
		SanctionID:     sanctionID,
		OrganizerPopID: nullableString(input.OrganizerPopID),
		OrganizerID:    nullableString(principal.UserID),
		Status:         models.StatusRunning,
		TotalRounds:    0,
		IsPublished:    false,
	}
	if err := s.tournamentRepo.Create(ctx, nil, t); err != nil {
		if errors.Is(err, repositories.ErrTournamentSanctionConflict) {
			return nil, ErrSanctionIDConflict
		}
		return nil, fmt.Errorf("failed to create tournament: %w", err)
	}
	return t, nil
}

func (s *tournamentService) load(ctx context.Context, id int) (*models.Tournament, error) {
	t, err := s.tournamentRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to get tournament %d: %w", id, err)
	}
	return t, nil
}

func (s *tournamentService) GetByID(ctx context.Context, id int, viewer *models.Principal) (*models.Tournament, error) {
	t, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canView(t, viewer) {
		return nil, ErrTournamentNotFound
	}
	return t, nil
}

// List narrows filter to what viewer may see: anonymous callers only get
// published tournaments, organizers also get their own drafts.
func (s *tournamentService) List(ctx context.Context, filter repositories.ListTournamentsFilter, viewer *models.Principal) ([]models.Tournament, error) {
	if filter.Limit < 0 || filter.Offset < 0 {
		return nil, fmt.Errorf("%w: limit and offset must not be negative", ErrValidationFailed)
	}
	filter.VisibleTo = nil
	switch {
	case viewer == nil || viewer.UserID == "":
		published := true
		if filter.Published != nil && !*filter.Published {
			return []models.Tournament{}, nil
		}
		filter.Published = &published
	case viewer.Role != models.RoleAdmin:
		userID := viewer.UserID
		filter.VisibleTo = &userID
	}
	list, err := s.tournamentRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list tournaments: %w", err)
	}
	return list, nil
}

func (s *tournamentService) SetPublished(ctx context.Context, id int, published bool, principal models.Principal) (*models.Tournament, error) {
	t, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canManage(t, principal) {
		return nil, ErrForbiddenOperation
	}
	if err := s.tournamentRepo.SetPublished(ctx, id, published); err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to update visibility of tournament %d: %w", id, err)
	}
	t.IsPublished = published
	return t, nil
}

func (s *tournamentService) ListMatches(ctx context.Context, id int, round int, viewer *models.Principal) ([]models.Match, error) {
	if _, err := s.GetByID(ctx, id, viewer); err != nil {
		return nil, err
	}
	matches, err := s.matchRepo.ListByTournament(ctx, id, round)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	return matches, nil
}

func (s *tournamentService) ListStandings(ctx context.Context, id int, viewer *models.Principal) ([]models.Standing, error) {
	if _, err := s.GetByID(ctx, id, viewer); err != nil {
		return nil, err
	}
	standings, err := s.standingRepo.ListByTournament(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list standings: %w", err)
	}
	return standings, nil
}
