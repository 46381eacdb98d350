package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/yash560/3not3-server/brackets"
	"github.com/yash560/3not3-server/groups"
	"github.com/yash560/3not3-server/models"
	"github.com/yash560/3not3-server/repositories"
)

// maxVersionRetries bounds the internal retries on an optimistic-lock
// conflict before ErrConcurrentModification reaches the caller.
const maxVersionRetries = 3

type GroupSource string

const (
	SourceInitial   GroupSource = "initial"
	SourceTopScore  GroupSource = "top_score"
	SourceQualified GroupSource = "qualified"
)

type CreateRoundInput struct {
	Name            string `json:"name"`
	TeamsPerGroup   int    `json:"teams_per_group"`
	MatchesPerGroup int    `json:"matches_per_group"`
}

type GenerateGroupsInput struct {
	Source        GroupSource `json:"source"`
	TopN          int         `json:"top_n,omitempty"`
	TeamsPerGroup int         `json:"teams_per_group"`
	Shuffle       bool        `json:"shuffle,omitempty"`

	// AllowEmpty permits generation from an empty source list, leaving
	// the round with zero groups instead of failing.
	AllowEmpty bool `json:"allow_empty,omitempty"`
}

type UpdateGroupDetailsInput struct {
	MapName    *string `json:"map,omitempty"`
	Mode       *string `json:"mode,omitempty"`
	RoomID     *string `json:"room_id,omitempty"`
	RoomPass   *string `json:"room_pass,omitempty"`
	StreamLink *string `json:"stream_link,omitempty"`
	Note       *string `json:"note,omitempty"`
}

type SlotScoresInput struct {
	Points     *int  `json:"points,omitempty"`
	KillPoints *int  `json:"kill_points,omitempty"`
	RankPoints *int  `json:"rank_points,omitempty"`
	Qualified  *bool `json:"qualified,omitempty"`
}

type RoundService interface {
	CreateRound(ctx context.Context, tournamentID int, input CreateRoundInput) (*models.Round, error)
	GenerateGroups(ctx context.Context, tournamentID, roundNumber int, input GenerateGroupsInput) (*models.Round, error)
	DeleteRound(ctx context.Context, tournamentID, roundNumber int) error
	GetRoundGroups(ctx context.Context, tournamentID, roundNumber int) ([]models.Group, error)
	UpdateGroupDetails(ctx context.Context, groupID int, input UpdateGroupDetailsInput) (*models.Group, error)
	UpdateSlotScores(ctx context.Context, groupID, slot int, input SlotScoresInput) (*models.Group, error)
}

type roundService struct {
	transactor     repositories.Transactor
	tournamentRepo repositories.TournamentRepository
	roundRepo      repositories.RoundRepository
	groupRepo      repositories.GroupRepository
	hub            *brackets.Hub
	logger         *slog.Logger
}

func NewRoundService(
	transactor repositories.Transactor,
	tournamentRepo repositories.TournamentRepository,
	roundRepo repositories.RoundRepository,
	groupRepo repositories.GroupRepository,
	hub *brackets.Hub,
	logger *slog.Logger,
) RoundService {
	return &roundService{
		transactor:     transactor,
		tournamentRepo: tournamentRepo,
		roundRepo:      roundRepo,
		groupRepo:      groupRepo,
		hub:            hub,
		logger:         logger,
	}
}

func (s *roundService) CreateRound(ctx context.Context, tournamentID int, input CreateRoundInput) (*models.Round, error) {
	if input.TeamsPerGroup <= 0 {
		return nil, ErrRoundInvalidSpec
	}

	if _, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID); err != nil {
		return nil, mapTournamentRepoError(err)
	}

	round := &models.Round{
		TournamentID:    tournamentID,
		Name:            input.Name,
		TeamsPerGroup:   input.TeamsPerGroup,
		MatchesPerGroup: input.MatchesPerGroup,
	}

	err := s.transactor.WithinTransaction(ctx, func(exec repositories.SQLExecutor) error {
		count, err := s.roundRepo.CountByTournament(ctx, exec, tournamentID)
		if err != nil {
			return fmt.Errorf("failed to count rounds for tournament %d: %w", tournamentID, err)
		}
		round.RoundNumber = count + 1
		if round.Name == "" {
			round.Name = fmt.Sprintf("Round %d", round.RoundNumber)
		}
		return s.roundRepo.Create(ctx, exec, round)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("round created",
		slog.Int("tournament_id", tournamentID),
		slog.Int("round_number", round.RoundNumber))

	return round, nil
}

func (s *roundService) GenerateGroups(ctx context.Context, tournamentID, roundNumber int, input GenerateGroupsInput) (*models.Round, error) {
	if input.TeamsPerGroup <= 0 {
		return nil, ErrRoundInvalidSpec
	}
	switch input.Source {
	case SourceInitial, SourceTopScore, SourceQualified:
	default:
		return nil, ErrInvalidSource
	}
	if input.Source == SourceTopScore && input.TopN < 0 {
		return nil, ErrInvalidSource
	}

	var round *models.Round
	for attempt := 0; attempt < maxVersionRetries; attempt++ {
		generated, err := s.generateGroupsOnce(ctx, tournamentID, roundNumber, input)
		if errors.Is(err, repositories.ErrRoundVersionConflict) {
			s.logger.Warn("group generation version conflict, retrying",
				slog.Int("tournament_id", tournamentID),
				slog.Int("round_number", roundNumber),
				slog.Int("attempt", attempt+1))
			continue
		}
		if err != nil {
			return nil, err
		}
		round = generated
		break
	}
	if round == nil {
		return nil, ErrConcurrentModification
	}

	s.hub.BroadcastToRoom(tournamentRoom(tournamentID), brackets.WebSocketMessage{
		Type:    brackets.EventGroupsGenerated,
		Payload: round,
	})
	return round, nil
}

// generateGroupsOnce runs one attempt: resolve the source team list, build
// the partition, then atomically swap the round's group list guarded by the
// groups_version compare-and-swap.
func (s *roundService) generateGroupsOnce(ctx context.Context, tournamentID, roundNumber int, input GenerateGroupsInput) (*models.Round, error) {
	round, err := s.roundRepo.GetByNumber(ctx, nil, tournamentID, roundNumber)
	if err != nil {
		if errors.Is(err, repositories.ErrRoundNotFound) {
			return nil, ErrRoundNotFound
		}
		return nil, err
	}

	teamIDs, err := s.resolveSourceTeams(ctx, tournamentID, roundNumber, input)
	if err != nil {
		return nil, err
	}
	if len(teamIDs) == 0 && !input.AllowEmpty {
		return nil, ErrInvalidSource
	}

	if input.Shuffle {
		teamIDs = groups.Shuffle(teamIDs)
	}

	newGroups, err := groups.PartitionIntoGroups(teamIDs, input.TeamsPerGroup)
	if err != nil {
		return nil, ErrRoundInvalidSpec
	}

	err = s.transactor.WithinTransaction(ctx, func(exec repositories.SQLExecutor) error {
		if err := s.roundRepo.BumpGroupsVersion(ctx, exec, round.ID, round.GroupsVersion); err != nil {
			return err
		}
		// The previous generation of this round's groups is replaced,
		// not abandoned.
		if err := s.groupRepo.DeleteByRound(ctx, exec, round.ID); err != nil {
			return fmt.Errorf("failed to delete previous groups of round %d: %w", round.RoundNumber, err)
		}
		for i := range newGroups {
			newGroups[i].TournamentID = tournamentID
			newGroups[i].RoundID = round.ID
			if err := s.groupRepo.Create(ctx, exec, &newGroups[i]); err != nil {
				return fmt.Errorf("failed to create group %d: %w", newGroups[i].GroupNumber, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	round.GroupsVersion++
	round.Groups = newGroups

	s.logger.Info("groups generated",
		slog.Int("tournament_id", tournamentID),
		slog.Int("round_number", roundNumber),
		slog.String("source", string(input.Source)),
		slog.Int("group_count", len(newGroups)))

	return round, nil
}

func (s *roundService) resolveSourceTeams(ctx context.Context, tournamentID, roundNumber int, input GenerateGroupsInput) ([]int, error) {
	if input.Source == SourceInitial {
		if roundNumber != 1 {
			return nil, ErrInvalidSource
		}
		teams, err := s.tournamentRepo.ListTeams(ctx, nil, tournamentID)
		if err != nil {
			return nil, fmt.Errorf("failed to load tournament roster: %w", err)
		}
		teamIDs := make([]int, len(teams))
		for i, team := range teams {
			teamIDs[i] = team.ID
		}
		return teamIDs, nil
	}

	// Score and qualification sources read the previous round's groups.
	if roundNumber < 2 {
		return nil, ErrInvalidSource
	}
	prevRound, err := s.roundRepo.GetByNumber(ctx, nil, tournamentID, roundNumber-1)
	if err != nil {
		if errors.Is(err, repositories.ErrRoundNotFound) {
			return nil, ErrInvalidSource
		}
		return nil, err
	}
	prevGroups, err := s.groupRepo.ListByRound(ctx, nil, prevRound.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load groups of round %d: %w", prevRound.RoundNumber, err)
	}

	switch input.Source {
	case SourceTopScore:
		return groups.SelectTopByScore(prevGroups, input.TopN), nil
	case SourceQualified:
		return groups.SelectQualified(prevGroups), nil
	default:
		return nil, ErrInvalidSource
	}
}

func (s *roundService) DeleteRound(ctx context.Context, tournamentID, roundNumber int) error {
	err := s.transactor.WithinTransaction(ctx, func(exec repositories.SQLExecutor) error {
		round, err := s.roundRepo.GetByNumber(ctx, exec, tournamentID, roundNumber)
		if err != nil {
			if errors.Is(err, repositories.ErrRoundNotFound) {
				return ErrRoundNotFound
			}
			return err
		}
		if err := s.groupRepo.DeleteByRound(ctx, exec, round.ID); err != nil {
			return fmt.Errorf("failed to delete groups of round %d: %w", roundNumber, err)
		}
		if err := s.roundRepo.Delete(ctx, exec, round.ID); err != nil {
			return err
		}
		// Keep round numbers contiguous.
		return s.roundRepo.ShiftNumbersAfter(ctx, exec, tournamentID, roundNumber)
	})
	if err != nil {
		return err
	}

	s.logger.Info("round deleted",
		slog.Int("tournament_id", tournamentID),
		slog.Int("round_number", roundNumber))

	s.hub.BroadcastToRoom(tournamentRoom(tournamentID), brackets.WebSocketMessage{
		Type:    brackets.EventRoundDeleted,
		Payload: map[string]int{"round_number": roundNumber},
	})
	return nil
}

func (s *roundService) GetRoundGroups(ctx context.Context, tournamentID, roundNumber int) ([]models.Group, error) {
	round, err := s.roundRepo.GetByNumber(ctx, nil, tournamentID, roundNumber)
	if err != nil {
		if errors.Is(err, repositories.ErrRoundNotFound) {
			return nil, ErrRoundNotFound
		}
		return nil, err
	}
	return s.groupRepo.ListByRound(ctx, nil, round.ID)
}

func (s *roundService) UpdateGroupDetails(ctx context.Context, groupID int, input UpdateGroupDetailsInput) (*models.Group, error) {
	group, err := s.groupRepo.GetByID(ctx, nil, groupID)
	if err != nil {
		if errors.Is(err, repositories.ErrGroupNotFound) {
			return nil, ErrGroupNotFound
		}
		return nil, err
	}

	if input.MapName != nil {
		group.MapName = *input.MapName
	}
	if input.Mode != nil {
		group.Mode = *input.Mode
	}
	if input.RoomID != nil {
		group.RoomID = *input.RoomID
	}
	if input.RoomPass != nil {
		group.RoomPass = *input.RoomPass
	}
	if input.StreamLink != nil {
		group.StreamLink = *input.StreamLink
	}
	if input.Note != nil {
		group.Note = *input.Note
	}

	if err := s.groupRepo.UpdateDetails(ctx, nil, group); err != nil {
		return nil, err
	}
	return group, nil
}

func (s *roundService) UpdateSlotScores(ctx context.Context, groupID, slot int, input SlotScoresInput) (*models.Group, error) {
	group, err := s.groupRepo.GetByID(ctx, nil, groupID)
	if err != nil {
		if errors.Is(err, repositories.ErrGroupNotFound) {
			return nil, ErrGroupNotFound
		}
		return nil, err
	}

	var target *models.TeamSlot
	for i := range group.Slots {
		if group.Slots[i].Slot == slot {
			target = &group.Slots[i]
			break
		}
	}
	if target == nil {
		return nil, ErrGroupSlotNotFound
	}

	if input.Points != nil {
		target.Points = *input.Points
	}
	if input.KillPoints != nil {
		target.KillPoints = *input.KillPoints
	}
	if input.RankPoints != nil {
		target.RankPoints = *input.RankPoints
	}
	if input.Qualified != nil {
		target.Qualified = *input.Qualified
	}

	if err := s.groupRepo.UpdateSlotScores(ctx, nil, target); err != nil {
		if errors.Is(err, repositories.ErrGroupSlotNotFound) {
			return nil, ErrGroupSlotNotFound
		}
		return nil, err
	}
	return group, nil
}

func tournamentRoom(tournamentID int) string {
	return fmt.Sprintf("tournament_%d", tournamentID)
}

func mapTournamentRepoError(err error) error {
	if errors.Is(err, repositories.ErrTournamentNotFound) {
		return ErrTournamentNotFound
	}
	return err
}
