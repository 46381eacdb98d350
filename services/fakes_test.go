package services

import (
	"context"
	"io"
	"log/slog"
	"sort"

	"github.com/yash560/3not3-server/models"
	"github.com/yash560/3not3-server/repositories"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeTransactor runs the callback directly, without a database. A nil
// executor makes the repositories fall back to their default handle, which
// the fakes ignore anyway.
type fakeTransactor struct {
	beginErr error
	calls    int
}

func (t *fakeTransactor) WithinTransaction(ctx context.Context, fn repositories.TxFn) error {
	if t.beginErr != nil {
		return t.beginErr
	}
	t.calls++
	return fn(nil)
}

type fakeTournamentRepo struct {
	tournaments map[int]*models.Tournament
	rosters     map[int][]models.Team
}

func newFakeTournamentRepo() *fakeTournamentRepo {
	return &fakeTournamentRepo{
		tournaments: make(map[int]*models.Tournament),
		rosters:     make(map[int][]models.Team),
	}
}

func (r *fakeTournamentRepo) Create(ctx context.Context, tournament *models.Tournament) error {
	tournament.ID = len(r.tournaments) + 1
	r.tournaments[tournament.ID] = tournament
	return nil
}

func (r *fakeTournamentRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Tournament, error) {
	tournament, ok := r.tournaments[id]
	if !ok {
		return nil, repositories.ErrTournamentNotFound
	}
	copied := *tournament
	return &copied, nil
}

func (r *fakeTournamentRepo) List(ctx context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, error) {
	var result []models.Tournament
	for _, tournament := range r.tournaments {
		result = append(result, *tournament)
	}
	return result, nil
}

func (r *fakeTournamentRepo) UpdateStatus(ctx context.Context, exec repositories.SQLExecutor, id int, status models.TournamentStatus) error {
	tournament, ok := r.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	tournament.Status = status
	return nil
}

func (r *fakeTournamentRepo) SetBracketID(ctx context.Context, exec repositories.SQLExecutor, id int, bracketID *int) error {
	tournament, ok := r.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	tournament.BracketID = bracketID
	return nil
}

func (r *fakeTournamentRepo) Delete(ctx context.Context, id int) error {
	if _, ok := r.tournaments[id]; !ok {
		return repositories.ErrTournamentNotFound
	}
	delete(r.tournaments, id)
	return nil
}

func (r *fakeTournamentRepo) AddTeam(ctx context.Context, exec repositories.SQLExecutor, tournamentID, teamID int) error {
	for _, team := range r.rosters[tournamentID] {
		if team.ID == teamID {
			return repositories.ErrRosterTeamConflict
		}
	}
	r.rosters[tournamentID] = append(r.rosters[tournamentID], models.Team{ID: teamID})
	return nil
}

func (r *fakeTournamentRepo) RemoveTeam(ctx context.Context, exec repositories.SQLExecutor, tournamentID, teamID int) error {
	roster := r.rosters[tournamentID]
	for i, team := range roster {
		if team.ID == teamID {
			r.rosters[tournamentID] = append(roster[:i], roster[i+1:]...)
			return nil
		}
	}
	return repositories.ErrRosterTeamNotFound
}

func (r *fakeTournamentRepo) ListTeams(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) ([]models.Team, error) {
	return append([]models.Team(nil), r.rosters[tournamentID]...), nil
}

func (r *fakeTournamentRepo) CountTeams(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) (int, error) {
	return len(r.rosters[tournamentID]), nil
}

type fakeTeamRepo struct {
	teams  map[int]*models.Team
	wins   map[int]int
	losses map[int]int
}

func newFakeTeamRepo() *fakeTeamRepo {
	return &fakeTeamRepo{
		teams:  make(map[int]*models.Team),
		wins:   make(map[int]int),
		losses: make(map[int]int),
	}
}

func (r *fakeTeamRepo) Create(ctx context.Context, team *models.Team) error {
	team.ID = len(r.teams) + 1
	r.teams[team.ID] = team
	return nil
}

func (r *fakeTeamRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Team, error) {
	team, ok := r.teams[id]
	if !ok {
		return nil, repositories.ErrTeamNotFound
	}
	copied := *team
	return &copied, nil
}

func (r *fakeTeamRepo) List(ctx context.Context, limit, offset int) ([]models.Team, error) {
	var result []models.Team
	for _, team := range r.teams {
		result = append(result, *team)
	}
	return result, nil
}

func (r *fakeTeamRepo) IncrementWins(ctx context.Context, exec repositories.SQLExecutor, id int) error {
	if _, ok := r.teams[id]; !ok {
		return repositories.ErrTeamNotFound
	}
	r.wins[id]++
	return nil
}

func (r *fakeTeamRepo) IncrementLosses(ctx context.Context, exec repositories.SQLExecutor, id int) error {
	if _, ok := r.teams[id]; !ok {
		return repositories.ErrTeamNotFound
	}
	r.losses[id]++
	return nil
}

func (r *fakeTeamRepo) Delete(ctx context.Context, id int) error {
	if _, ok := r.teams[id]; !ok {
		return repositories.ErrTeamNotFound
	}
	delete(r.teams, id)
	return nil
}

type fakeRoundRepo struct {
	rounds map[int]*models.Round
	nextID int

	// bumpErr, when set, is returned by every BumpGroupsVersion call.
	bumpErr error
}

func newFakeRoundRepo() *fakeRoundRepo {
	return &fakeRoundRepo{rounds: make(map[int]*models.Round)}
}

func (r *fakeRoundRepo) Create(ctx context.Context, exec repositories.SQLExecutor, round *models.Round) error {
	for _, existing := range r.rounds {
		if existing.TournamentID == round.TournamentID && existing.RoundNumber == round.RoundNumber {
			return repositories.ErrRoundNumberConflict
		}
	}
	r.nextID++
	round.ID = r.nextID
	round.GroupsVersion = 1
	copied := *round
	r.rounds[round.ID] = &copied
	return nil
}

func (r *fakeRoundRepo) GetByNumber(ctx context.Context, exec repositories.SQLExecutor, tournamentID, roundNumber int) (*models.Round, error) {
	for _, round := range r.rounds {
		if round.TournamentID == tournamentID && round.RoundNumber == roundNumber {
			copied := *round
			return &copied, nil
		}
	}
	return nil, repositories.ErrRoundNotFound
}

func (r *fakeRoundRepo) ListByTournament(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) ([]models.Round, error) {
	var result []models.Round
	for _, round := range r.rounds {
		if round.TournamentID == tournamentID {
			result = append(result, *round)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].RoundNumber < result[j].RoundNumber })
	return result, nil
}

func (r *fakeRoundRepo) CountByTournament(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) (int, error) {
	count := 0
	for _, round := range r.rounds {
		if round.TournamentID == tournamentID {
			count++
		}
	}
	return count, nil
}

func (r *fakeRoundRepo) Delete(ctx context.Context, exec repositories.SQLExecutor, id int) error {
	if _, ok := r.rounds[id]; !ok {
		return repositories.ErrRoundNotFound
	}
	delete(r.rounds, id)
	return nil
}

func (r *fakeRoundRepo) ShiftNumbersAfter(ctx context.Context, exec repositories.SQLExecutor, tournamentID, roundNumber int) error {
	for _, round := range r.rounds {
		if round.TournamentID == tournamentID && round.RoundNumber > roundNumber {
			round.RoundNumber--
		}
	}
	return nil
}

func (r *fakeRoundRepo) BumpGroupsVersion(ctx context.Context, exec repositories.SQLExecutor, roundID, expectedVersion int) error {
	if r.bumpErr != nil {
		return r.bumpErr
	}
	round, ok := r.rounds[roundID]
	if !ok {
		return repositories.ErrRoundNotFound
	}
	if round.GroupsVersion != expectedVersion {
		return repositories.ErrRoundVersionConflict
	}
	round.GroupsVersion++
	return nil
}

type fakeGroupRepo struct {
	groups map[int]*models.Group
	nextID int
}

func newFakeGroupRepo() *fakeGroupRepo {
	return &fakeGroupRepo{groups: make(map[int]*models.Group)}
}

func copyGroup(group *models.Group) *models.Group {
	copied := *group
	copied.Slots = append([]models.TeamSlot(nil), group.Slots...)
	return &copied
}

func (r *fakeGroupRepo) Create(ctx context.Context, exec repositories.SQLExecutor, group *models.Group) error {
	r.nextID++
	group.ID = r.nextID
	for i := range group.Slots {
		group.Slots[i].GroupID = group.ID
	}
	r.groups[group.ID] = copyGroup(group)
	return nil
}

func (r *fakeGroupRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Group, error) {
	group, ok := r.groups[id]
	if !ok {
		return nil, repositories.ErrGroupNotFound
	}
	return copyGroup(group), nil
}

func (r *fakeGroupRepo) ListByRound(ctx context.Context, exec repositories.SQLExecutor, roundID int) ([]models.Group, error) {
	var result []models.Group
	for _, group := range r.groups {
		if group.RoundID == roundID {
			result = append(result, *copyGroup(group))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].GroupNumber < result[j].GroupNumber })
	return result, nil
}

func (r *fakeGroupRepo) DeleteByRound(ctx context.Context, exec repositories.SQLExecutor, roundID int) error {
	for id, group := range r.groups {
		if group.RoundID == roundID {
			delete(r.groups, id)
		}
	}
	return nil
}

func (r *fakeGroupRepo) UpdateDetails(ctx context.Context, exec repositories.SQLExecutor, group *models.Group) error {
	stored, ok := r.groups[group.ID]
	if !ok {
		return repositories.ErrGroupNotFound
	}
	slots := stored.Slots
	*stored = *group
	stored.Slots = slots
	return nil
}

func (r *fakeGroupRepo) UpdateSlotScores(ctx context.Context, exec repositories.SQLExecutor, slot *models.TeamSlot) error {
	group, ok := r.groups[slot.GroupID]
	if !ok {
		return repositories.ErrGroupSlotNotFound
	}
	for i := range group.Slots {
		if group.Slots[i].Slot == slot.Slot {
			group.Slots[i] = *slot
			return nil
		}
	}
	return repositories.ErrGroupSlotNotFound
}

type fakeBracketRepo struct {
	brackets     map[int]*models.Bracket
	participants map[int][]models.BracketParticipant
	matches      map[int][]*models.BracketMatch
	nextID       int

	// bumpErr, when set, is returned by every BumpVersion call.
	bumpErr error
}

func newFakeBracketRepo() *fakeBracketRepo {
	return &fakeBracketRepo{
		brackets:     make(map[int]*models.Bracket),
		participants: make(map[int][]models.BracketParticipant),
		matches:      make(map[int][]*models.BracketMatch),
	}
}

func (r *fakeBracketRepo) Create(ctx context.Context, exec repositories.SQLExecutor, bracket *models.Bracket) error {
	r.nextID++
	bracket.ID = r.nextID
	bracket.Version = 1
	stored := *bracket
	stored.Participants = nil
	stored.Matches = nil
	r.brackets[bracket.ID] = &stored
	return nil
}

func (r *fakeBracketRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Bracket, error) {
	bracket, ok := r.brackets[id]
	if !ok {
		return nil, repositories.ErrBracketNotFound
	}
	copied := *bracket
	return &copied, nil
}

func (r *fakeBracketRepo) Delete(ctx context.Context, exec repositories.SQLExecutor, id int) error {
	if _, ok := r.brackets[id]; !ok {
		return repositories.ErrBracketNotFound
	}
	delete(r.brackets, id)
	delete(r.participants, id)
	delete(r.matches, id)
	return nil
}

func (r *fakeBracketRepo) CreateParticipant(ctx context.Context, exec repositories.SQLExecutor, participant *models.BracketParticipant) error {
	r.participants[participant.BracketID] = append(r.participants[participant.BracketID], *participant)
	return nil
}

func (r *fakeBracketRepo) ListParticipants(ctx context.Context, exec repositories.SQLExecutor, bracketID int) ([]models.BracketParticipant, error) {
	return append([]models.BracketParticipant(nil), r.participants[bracketID]...), nil
}

func (r *fakeBracketRepo) CreateMatch(ctx context.Context, exec repositories.SQLExecutor, match *models.BracketMatch) error {
	match.ID = len(r.matches[match.BracketID]) + 1
	copied := *match
	r.matches[match.BracketID] = append(r.matches[match.BracketID], &copied)
	return nil
}

func (r *fakeBracketRepo) ListMatches(ctx context.Context, exec repositories.SQLExecutor, bracketID int) ([]models.BracketMatch, error) {
	var result []models.BracketMatch
	for _, match := range r.matches[bracketID] {
		result = append(result, *match)
	}
	return result, nil
}

func (r *fakeBracketRepo) GetMatchByNumber(ctx context.Context, exec repositories.SQLExecutor, bracketID, matchNumber int) (*models.BracketMatch, error) {
	for _, match := range r.matches[bracketID] {
		if match.MatchNumber == matchNumber {
			copied := *match
			return &copied, nil
		}
	}
	return nil, repositories.ErrBracketMatchNotFound
}

func (r *fakeBracketRepo) UpdateMatchResult(ctx context.Context, exec repositories.SQLExecutor, match *models.BracketMatch) error {
	for _, stored := range r.matches[match.BracketID] {
		if stored.MatchNumber == match.MatchNumber {
			*stored = *match
			return nil
		}
	}
	return repositories.ErrBracketMatchNotFound
}

func (r *fakeBracketRepo) SetMatchOpponent(ctx context.Context, exec repositories.SQLExecutor, bracketID, matchNumber, slot, participantNumber int, status models.BracketMatchStatus) error {
	for _, stored := range r.matches[bracketID] {
		if stored.MatchNumber == matchNumber {
			number := participantNumber
			if slot == 1 {
				stored.Participant1 = &number
			} else {
				stored.Participant2 = &number
			}
			stored.Status = status
			return nil
		}
	}
	return repositories.ErrBracketMatchNotFound
}

func (r *fakeBracketRepo) BumpVersion(ctx context.Context, exec repositories.SQLExecutor, bracketID, expectedVersion int) error {
	if r.bumpErr != nil {
		return r.bumpErr
	}
	bracket, ok := r.brackets[bracketID]
	if !ok {
		return repositories.ErrBracketNotFound
	}
	if bracket.Version != expectedVersion {
		return repositories.ErrBracketVersionConflict
	}
	bracket.Version++
	return nil
}
