package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/yash560/3not3-server/brackets"
	"github.com/yash560/3not3-server/models"
	"github.com/yash560/3not3-server/repositories"
)

type CreateBracketInput struct {
	Name         string `json:"name,omitempty"`
	SeedOrdering string `json:"seed_ordering,omitempty"`
}

type OpponentUpdate struct {
	Score   *int    `json:"score,omitempty"`
	Result  *string `json:"result,omitempty"` // "win", "loss" or "draw"
	Forfeit bool    `json:"forfeit,omitempty"`
}

type UpdateMatchInput struct {
	Opponent1 *OpponentUpdate `json:"opponent1,omitempty"`
	Opponent2 *OpponentUpdate `json:"opponent2,omitempty"`
}

type BracketService interface {
	CreateBracket(ctx context.Context, tournamentID int, input CreateBracketInput) (*models.Bracket, error)
	GetBracket(ctx context.Context, bracketID int) (*models.Bracket, error)
	UpdateMatch(ctx context.Context, bracketID, matchNumber int, input UpdateMatchInput) (*models.Bracket, error)
}

type bracketService struct {
	transactor     repositories.Transactor
	tournamentRepo repositories.TournamentRepository
	teamRepo       repositories.TeamRepository
	bracketRepo    repositories.BracketRepository
	generator      brackets.Generator
	hub            *brackets.Hub
	logger         *slog.Logger
}

func NewBracketService(
	transactor repositories.Transactor,
	tournamentRepo repositories.TournamentRepository,
	teamRepo repositories.TeamRepository,
	bracketRepo repositories.BracketRepository,
	hub *brackets.Hub,
	logger *slog.Logger,
) BracketService {
	return &bracketService{
		transactor:     transactor,
		tournamentRepo: tournamentRepo,
		teamRepo:       teamRepo,
		bracketRepo:    bracketRepo,
		generator:      brackets.NewSingleEliminationGenerator(),
		hub:            hub,
		logger:         logger,
	}
}

// CreateBracket seeds a single-elimination tree from the tournament roster,
// in roster order, and persists the whole structure in one transaction.
func (s *bracketService) CreateBracket(ctx context.Context, tournamentID int, input CreateBracketInput) (*models.Bracket, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID)
	if err != nil {
		return nil, mapTournamentRepoError(err)
	}
	if tournament.BracketID != nil {
		return nil, ErrBracketAlreadyExists
	}

	teams, err := s.tournamentRepo.ListTeams(ctx, nil, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load roster for tournament %d: %w", tournamentID, err)
	}
	if len(teams) < 2 {
		return nil, ErrNotEnoughTeams
	}

	generated, err := s.generator.Generate(ctx, brackets.GenerateParams{
		Entrants:     len(teams),
		SeedOrdering: input.SeedOrdering,
		BalanceByes:  true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate bracket structure for tournament %d: %w", tournamentID, err)
	}

	name := input.Name
	if name == "" {
		name = tournament.Name
	}
	bracket := &models.Bracket{
		TournamentID: tournamentID,
		Name:         name,
	}

	err = s.transactor.WithinTransaction(ctx, func(exec repositories.SQLExecutor) error {
		if err := s.bracketRepo.Create(ctx, exec, bracket); err != nil {
			return fmt.Errorf("failed to create bracket: %w", err)
		}

		// Seed order is roster order: participant number i+1 is seed i+1.
		for i, team := range teams {
			participant := models.BracketParticipant{
				BracketID: bracket.ID,
				Number:    i + 1,
				Name:      team.Name,
				TeamID:    team.ID,
			}
			if err := s.bracketRepo.CreateParticipant(ctx, exec, &participant); err != nil {
				return fmt.Errorf("failed to create participant %d: %w", participant.Number, err)
			}
			bracket.Participants = append(bracket.Participants, participant)
		}

		for _, gm := range generated {
			match := models.BracketMatch{
				BracketID:    bracket.ID,
				MatchNumber:  gm.Number,
				Round:        gm.Round,
				OrderInRound: gm.OrderInRound,
				Participant1: gm.Seed1,
				Participant2: gm.Seed2,
				SourceMatch1: gm.SourceMatch1,
				SourceMatch2: gm.SourceMatch2,
				Status:       matchStatusFor(gm.Seed1, gm.Seed2),
				NextMatch:    gm.NextMatch,
				NextSlot:     gm.NextSlot,
			}
			if err := s.bracketRepo.CreateMatch(ctx, exec, &match); err != nil {
				return fmt.Errorf("failed to create match %d: %w", match.MatchNumber, err)
			}
			bracket.Matches = append(bracket.Matches, match)
		}

		return s.tournamentRepo.SetBracketID(ctx, exec, tournamentID, &bracket.ID)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("bracket created",
		slog.Int("tournament_id", tournamentID),
		slog.Int("bracket_id", bracket.ID),
		slog.Int("entrants", len(teams)),
		slog.Int("matches", len(bracket.Matches)))

	s.hub.BroadcastToRoom(tournamentRoom(tournamentID), brackets.WebSocketMessage{
		Type:    brackets.EventBracketCreated,
		Payload: bracket,
	})
	return bracket, nil
}

// GetBracket loads the bracket with participants and matches fetched in
// parallel.
func (s *bracketService) GetBracket(ctx context.Context, bracketID int) (*models.Bracket, error) {
	bracket, err := s.bracketRepo.GetByID(ctx, nil, bracketID)
	if err != nil {
		if errors.Is(err, repositories.ErrBracketNotFound) {
			return nil, ErrBracketNotFound
		}
		return nil, err
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		participants, err := s.bracketRepo.ListParticipants(gCtx, nil, bracketID)
		if err != nil {
			return fmt.Errorf("failed to load participants of bracket %d: %w", bracketID, err)
		}
		bracket.Participants = participants
		return nil
	})

	g.Go(func() error {
		matches, err := s.bracketRepo.ListMatches(gCtx, nil, bracketID)
		if err != nil {
			return fmt.Errorf("failed to load matches of bracket %d: %w", bracketID, err)
		}
		bracket.Matches = matches
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return bracket, nil
}

// UpdateMatch applies a match result: the match is completed, the winning
// team's wins and the losing team's losses each go up by one, and the winner
// is propagated into the downstream match slot. All of it happens in a single
// transaction guarded by the bracket version, so resubmitting an identical
// result is a no-op and team counters can never be double-incremented.
func (s *bracketService) UpdateMatch(ctx context.Context, bracketID, matchNumber int, input UpdateMatchInput) (*models.Bracket, error) {
	for attempt := 0; attempt < maxVersionRetries; attempt++ {
		bracket, err := s.updateMatchOnce(ctx, bracketID, matchNumber, input)
		if errors.Is(err, repositories.ErrBracketVersionConflict) {
			s.logger.Warn("match update version conflict, retrying",
				slog.Int("bracket_id", bracketID),
				slog.Int("match_number", matchNumber),
				slog.Int("attempt", attempt+1))
			continue
		}
		if err != nil {
			return nil, err
		}

		s.hub.BroadcastToRoom(tournamentRoom(bracket.TournamentID), brackets.WebSocketMessage{
			Type:    brackets.EventMatchUpdated,
			Payload: bracket,
		})
		return bracket, nil
	}
	return nil, ErrConcurrentModification
}

func (s *bracketService) updateMatchOnce(ctx context.Context, bracketID, matchNumber int, input UpdateMatchInput) (*models.Bracket, error) {
	bracket, err := s.bracketRepo.GetByID(ctx, nil, bracketID)
	if err != nil {
		if errors.Is(err, repositories.ErrBracketNotFound) {
			return nil, ErrBracketNotFound
		}
		return nil, err
	}

	match, err := s.bracketRepo.GetMatchByNumber(ctx, nil, bracketID, matchNumber)
	if err != nil {
		if errors.Is(err, repositories.ErrBracketMatchNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	if match.Participant1 == nil || match.Participant2 == nil {
		return nil, ErrMatchNotReady
	}

	winnerSlot, err := resolveWinnerSlot(input)
	if err != nil {
		return nil, err
	}

	winner, loser := *match.Participant1, *match.Participant2
	if winnerSlot == 2 {
		winner, loser = loser, winner
	}

	if match.Status == models.MatchStatusCompleted {
		if match.WinnerParticipant != nil && *match.WinnerParticipant == winner {
			// Identical resubmission: nothing to apply.
			return s.GetBracket(ctx, bracketID)
		}
		return nil, ErrMatchAlreadyCompleted
	}

	participants, err := s.bracketRepo.ListParticipants(ctx, nil, bracketID)
	if err != nil {
		return nil, err
	}
	winnerTeamID, err := teamIDForParticipant(participants, winner)
	if err != nil {
		return nil, err
	}
	loserTeamID, err := teamIDForParticipant(participants, loser)
	if err != nil {
		return nil, err
	}

	match.Score1, match.Score2 = scoresFromInput(input)
	match.Status = models.MatchStatusCompleted
	match.WinnerParticipant = &winner

	err = s.transactor.WithinTransaction(ctx, func(exec repositories.SQLExecutor) error {
		if err := s.bracketRepo.BumpVersion(ctx, exec, bracketID, bracket.Version); err != nil {
			return err
		}
		if err := s.bracketRepo.UpdateMatchResult(ctx, exec, match); err != nil {
			return err
		}
		if match.NextMatch != nil {
			if err := s.advanceWinner(ctx, exec, bracketID, *match.NextMatch, *match.NextSlot, winner); err != nil {
				return err
			}
		}
		if err := s.teamRepo.IncrementWins(ctx, exec, winnerTeamID); err != nil {
			return err
		}
		return s.teamRepo.IncrementLosses(ctx, exec, loserTeamID)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("match completed",
		slog.Int("bracket_id", bracketID),
		slog.Int("match_number", matchNumber),
		slog.Int("winner_participant", winner))

	return s.GetBracket(ctx, bracketID)
}

// advanceWinner writes the winner into the downstream opponent slot. The
// downstream match becomes ready once both of its opponents are known.
func (s *bracketService) advanceWinner(ctx context.Context, exec repositories.SQLExecutor, bracketID, nextMatchNumber, nextSlot, winner int) error {
	next, err := s.bracketRepo.GetMatchByNumber(ctx, exec, bracketID, nextMatchNumber)
	if err != nil {
		return fmt.Errorf("failed to load downstream match %d: %w", nextMatchNumber, err)
	}

	if nextSlot == 1 {
		next.Participant1 = &winner
	} else {
		next.Participant2 = &winner
	}
	status := matchStatusFor(next.Participant1, next.Participant2)

	return s.bracketRepo.SetMatchOpponent(ctx, exec, bracketID, nextMatchNumber, nextSlot, winner, status)
}

// resolveWinnerSlot determines which opponent slot won. A forfeit on one
// opponent hands the win to the other; explicit results must name exactly
// one winner; otherwise the higher score wins. Draws and ambiguous inputs
// are unsupported in a single-elimination tree.
func resolveWinnerSlot(input UpdateMatchInput) (int, error) {
	forfeit1 := input.Opponent1 != nil && input.Opponent1.Forfeit
	forfeit2 := input.Opponent2 != nil && input.Opponent2.Forfeit
	switch {
	case forfeit1 && forfeit2:
		return 0, ErrUnsupportedResult
	case forfeit1:
		return 2, nil
	case forfeit2:
		return 1, nil
	}

	result1 := resultOf(input.Opponent1)
	result2 := resultOf(input.Opponent2)
	if result1 == "draw" || result2 == "draw" {
		return 0, ErrUnsupportedResult
	}
	switch {
	case result1 == "win" && result2 == "win", result1 == "loss" && result2 == "loss":
		return 0, ErrUnsupportedResult
	case result1 == "win", result2 == "loss":
		return 1, nil
	case result2 == "win", result1 == "loss":
		return 2, nil
	}

	if input.Opponent1 == nil || input.Opponent2 == nil ||
		input.Opponent1.Score == nil || input.Opponent2.Score == nil {
		return 0, ErrUnsupportedResult
	}
	switch {
	case *input.Opponent1.Score > *input.Opponent2.Score:
		return 1, nil
	case *input.Opponent2.Score > *input.Opponent1.Score:
		return 2, nil
	default:
		// A drawn score cannot propagate a winner.
		return 0, ErrUnsupportedResult
	}
}

func resultOf(opponent *OpponentUpdate) string {
	if opponent == nil || opponent.Result == nil {
		return ""
	}
	return *opponent.Result
}

func scoresFromInput(input UpdateMatchInput) (*int, *int) {
	var score1, score2 *int
	if input.Opponent1 != nil {
		score1 = input.Opponent1.Score
	}
	if input.Opponent2 != nil {
		score2 = input.Opponent2.Score
	}
	return score1, score2
}

func matchStatusFor(participant1, participant2 *int) models.BracketMatchStatus {
	if participant1 != nil && participant2 != nil {
		return models.MatchStatusReady
	}
	return models.MatchStatusPending
}

func teamIDForParticipant(participants []models.BracketParticipant, number int) (int, error) {
	for _, p := range participants {
		if p.Number == number {
			return p.TeamID, nil
		}
	}
	return 0, fmt.Errorf("participant %d not found in bracket", number)
}
