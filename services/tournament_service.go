package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/yash560/3not3-server/models"
	"github.com/yash560/3not3-server/repositories"
)

type CreateTournamentInput struct {
	Name     string `json:"name"`
	GameName string `json:"game_name"`
	GameMode string `json:"game_mode"`
	MaxTeams int    `json:"max_teams"`
}

type ListTournamentsFilter = repositories.ListTournamentsFilter

type TournamentService interface {
	CreateTournament(ctx context.Context, input CreateTournamentInput) (*models.Tournament, error)
	GetTournamentByID(ctx context.Context, id int) (*models.Tournament, error)
	ListTournaments(ctx context.Context, filter ListTournamentsFilter) ([]models.Tournament, error)
	UpdateTournamentStatus(ctx context.Context, id int, status models.TournamentStatus) (*models.Tournament, error)
	DeleteTournament(ctx context.Context, id int) error

	JoinTournament(ctx context.Context, tournamentID, teamID int) error
	LeaveTournament(ctx context.Context, tournamentID, teamID int) error
}

type tournamentService struct {
	transactor     repositories.Transactor
	tournamentRepo repositories.TournamentRepository
	teamRepo       repositories.TeamRepository
	roundRepo      repositories.RoundRepository
	logger         *slog.Logger
}

func NewTournamentService(
	transactor repositories.Transactor,
	tournamentRepo repositories.TournamentRepository,
	teamRepo repositories.TeamRepository,
	roundRepo repositories.RoundRepository,
	logger *slog.Logger,
) TournamentService {
	return &tournamentService{
		transactor:     transactor,
		tournamentRepo: tournamentRepo,
		teamRepo:       teamRepo,
		roundRepo:      roundRepo,
		logger:         logger,
	}
}

func (s *tournamentService) CreateTournament(ctx context.Context, input CreateTournamentInput) (*models.Tournament, error) {
	if input.Name == "" {
		return nil, ErrTournamentNameRequired
	}
	if input.GameName == "" {
		return nil, ErrTournamentGameRequired
	}
	if input.MaxTeams <= 0 {
		return nil, ErrTournamentInvalidCapacity
	}

	tournament := &models.Tournament{
		Name:     input.Name,
		GameName: input.GameName,
		GameMode: input.GameMode,
		MaxTeams: input.MaxTeams,
		Status:   models.StatusUpcoming,
	}
	if err := s.tournamentRepo.Create(ctx, tournament); err != nil {
		if errors.Is(err, repositories.ErrTournamentNameConflict) {
			return nil, ErrTournamentNameConflict
		}
		return nil, err
	}

	s.logger.Info("tournament created",
		slog.Int("tournament_id", tournament.ID),
		slog.String("name", tournament.Name))

	return tournament, nil
}

func (s *tournamentService) GetTournamentByID(ctx context.Context, id int) (*models.Tournament, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, mapTournamentRepoError(err)
	}

	teams, err := s.tournamentRepo.ListTeams(ctx, nil, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load roster for tournament %d: %w", id, err)
	}
	tournament.Teams = teams

	rounds, err := s.roundRepo.ListByTournament(ctx, nil, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load rounds for tournament %d: %w", id, err)
	}
	tournament.Rounds = rounds

	return tournament, nil
}

func (s *tournamentService) ListTournaments(ctx context.Context, filter ListTournamentsFilter) ([]models.Tournament, error) {
	return s.tournamentRepo.List(ctx, filter)
}

// validStatusTransitions encodes the tournament lifecycle:
// upcoming -> started -> inprogress -> completed.
var validStatusTransitions = map[models.TournamentStatus]models.TournamentStatus{
	models.StatusUpcoming:   models.StatusStarted,
	models.StatusStarted:    models.StatusInProgress,
	models.StatusInProgress: models.StatusCompleted,
}

func (s *tournamentService) UpdateTournamentStatus(ctx context.Context, id int, status models.TournamentStatus) (*models.Tournament, error) {
	switch status {
	case models.StatusUpcoming, models.StatusStarted, models.StatusInProgress, models.StatusCompleted:
	default:
		return nil, ErrTournamentInvalidStatus
	}

	tournament, err := s.tournamentRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, mapTournamentRepoError(err)
	}
	if tournament.Status != status {
		if validStatusTransitions[tournament.Status] != status {
			return nil, ErrTournamentInvalidTransition
		}
		if err := s.tournamentRepo.UpdateStatus(ctx, nil, id, status); err != nil {
			return nil, mapTournamentRepoError(err)
		}
		tournament.Status = status
	}
	return tournament, nil
}

func (s *tournamentService) DeleteTournament(ctx context.Context, id int) error {
	if err := s.tournamentRepo.Delete(ctx, id); err != nil {
		return mapTournamentRepoError(err)
	}
	s.logger.Info("tournament deleted", slog.Int("tournament_id", id))
	return nil
}

// JoinTournament adds a team to the roster. Registration is only open while
// the tournament is upcoming, the roster is capped at MaxTeams, and a team
// can register at most once.
func (s *tournamentService) JoinTournament(ctx context.Context, tournamentID, teamID int) error {
	return s.transactor.WithinTransaction(ctx, func(exec repositories.SQLExecutor) error {
		tournament, err := s.tournamentRepo.GetByID(ctx, exec, tournamentID)
		if err != nil {
			return mapTournamentRepoError(err)
		}
		if tournament.Status != models.StatusUpcoming {
			return ErrRegistrationClosed
		}

		if _, err := s.teamRepo.GetByID(ctx, exec, teamID); err != nil {
			if errors.Is(err, repositories.ErrTeamNotFound) {
				return ErrTeamNotFound
			}
			return err
		}

		count, err := s.tournamentRepo.CountTeams(ctx, exec, tournamentID)
		if err != nil {
			return err
		}
		if count >= tournament.MaxTeams {
			return ErrTournamentFull
		}

		if err := s.tournamentRepo.AddTeam(ctx, exec, tournamentID, teamID); err != nil {
			if errors.Is(err, repositories.ErrRosterTeamConflict) {
				return ErrTeamAlreadyRegistered
			}
			if errors.Is(err, repositories.ErrRosterInvalidTeam) {
				return ErrTeamNotFound
			}
			return err
		}
		return nil
	})
}

func (s *tournamentService) LeaveTournament(ctx context.Context, tournamentID, teamID int) error {
	if _, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID); err != nil {
		return mapTournamentRepoError(err)
	}
	if err := s.tournamentRepo.RemoveTeam(ctx, nil, tournamentID, teamID); err != nil {
		if errors.Is(err, repositories.ErrRosterTeamNotFound) {
			return ErrTeamNotFound
		}
		return err
	}
	return nil
}
