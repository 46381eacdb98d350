package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/yash560/3not3-server/models"
)

var (
	ErrTournamentNotFound     = errors.New("tournament not found")
	ErrTournamentNameConflict = errors.New("tournament name already exists")
	ErrRosterTeamConflict     = errors.New("team is already registered for this tournament")
	ErrRosterTeamNotFound     = errors.New("team is not registered for this tournament")
	ErrRosterInvalidTeam      = errors.New("invalid team reference")
)

type ListTournamentsFilter struct {
	GameName *string
	Status   *models.TournamentStatus
	Limit    int
	Offset   int
}

type TournamentRepository interface {
	Create(ctx context.Context, tournament *models.Tournament) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error)
	List(ctx context.Context, filter ListTournamentsFilter) ([]models.Tournament, error)
	UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.TournamentStatus) error
	SetBracketID(ctx context.Context, exec SQLExecutor, id int, bracketID *int) error
	Delete(ctx context.Context, id int) error

	AddTeam(ctx context.Context, exec SQLExecutor, tournamentID, teamID int) error
	RemoveTeam(ctx context.Context, exec SQLExecutor, tournamentID, teamID int) error
	ListTeams(ctx context.Context, exec SQLExecutor, tournamentID int) ([]models.Team, error)
	CountTeams(ctx context.Context, exec SQLExecutor, tournamentID int) (int, error)
}

type postgresTournamentRepository struct {
	db *sql.DB
}

func NewPostgresTournamentRepository(db *sql.DB) TournamentRepository {
	return &postgresTournamentRepository{db: db}
}

func (r *postgresTournamentRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresTournamentRepository) Create(ctx context.Context, t *models.Tournament) error {
	query := `
		INSERT INTO tournaments (name, game_name, game_mode, max_teams, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		t.Name, t.GameName, t.GameMode, t.MaxTeams, t.Status,
	).Scan(&t.ID, &t.CreatedAt)

	return r.handleTournamentError(err)
}

func (r *postgresTournamentRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT id, name, game_name, game_mode, max_teams, status, bracket_id, created_at
		FROM tournaments
		WHERE id = $1`

	t := &models.Tournament{}
	err := executor.QueryRowContext(ctx, query, id).Scan(
		&t.ID, &t.Name, &t.GameName, &t.GameMode, &t.MaxTeams, &t.Status, &t.BracketID, &t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	return t, nil
}

func (r *postgresTournamentRepository) List(ctx context.Context, filter ListTournamentsFilter) ([]models.Tournament, error) {
	query := `
		SELECT id, name, game_name, game_mode, max_teams, status, bracket_id, created_at
		FROM tournaments
		WHERE 1=1`

	args := []interface{}{}
	argID := 1

	if filter.GameName != nil {
		query += fmt.Sprintf(" AND game_name = $%d", argID)
		args = append(args, *filter.GameName)
		argID++
	}
	if filter.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", argID)
		args = append(args, *filter.Status)
		argID++
	}

	query += " ORDER BY created_at DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argID)
		args = append(args, filter.Limit)
		argID++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argID)
		args = append(args, filter.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tournaments := make([]models.Tournament, 0)
	for rows.Next() {
		var t models.Tournament
		if scanErr := rows.Scan(
			&t.ID, &t.Name, &t.GameName, &t.GameMode, &t.MaxTeams, &t.Status, &t.BracketID, &t.CreatedAt,
		); scanErr != nil {
			return nil, scanErr
		}
		tournaments = append(tournaments, t)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return tournaments, nil
}

func (r *postgresTournamentRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.TournamentStatus) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx, `UPDATE tournaments SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return r.handleTournamentError(err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) SetBracketID(ctx context.Context, exec SQLExecutor, id int, bracketID *int) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx, `UPDATE tournaments SET bracket_id = $1 WHERE id = $2`, bracketID, id)
	if err != nil {
		return fmt.Errorf("failed to set bracket for tournament %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM tournaments WHERE id = $1`, id)
	if err != nil {
		return r.handleTournamentError(err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) AddTeam(ctx context.Context, exec SQLExecutor, tournamentID, teamID int) error {
	executor := r.getExecutor(exec)
	query := `INSERT INTO tournament_teams (tournament_id, team_id) VALUES ($1, $2)`
	_, err := executor.ExecContext(ctx, query, tournamentID, teamID)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			switch pqErr.Code {
			case "23505":
				return ErrRosterTeamConflict
			case "23503":
				if pqErr.Constraint == "tournament_teams_team_id_fkey" {
					return ErrRosterInvalidTeam
				}
				return ErrTournamentNotFound
			}
		}
		return err
	}
	return nil
}

func (r *postgresTournamentRepository) RemoveTeam(ctx context.Context, exec SQLExecutor, tournamentID, teamID int) error {
	executor := r.getExecutor(exec)
	query := `DELETE FROM tournament_teams WHERE tournament_id = $1 AND team_id = $2`
	result, err := executor.ExecContext(ctx, query, tournamentID, teamID)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrRosterTeamNotFound)
}

// ListTeams returns the roster in registration order, which doubles as the
// natural seed order for bracket generation.
func (r *postgresTournamentRepository) ListTeams(ctx context.Context, exec SQLExecutor, tournamentID int) ([]models.Team, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT t.id, t.name, t.tag, t.logo_url, t.wins, t.losses, t.created_at
		FROM tournament_teams tt
		JOIN teams t ON t.id = tt.team_id
		WHERE tt.tournament_id = $1
		ORDER BY tt.registered_at ASC, t.id ASC`

	rows, err := executor.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	teams := make([]models.Team, 0)
	for rows.Next() {
		var team models.Team
		if scanErr := rows.Scan(
			&team.ID, &team.Name, &team.Tag, &team.LogoURL, &team.Wins, &team.Losses, &team.CreatedAt,
		); scanErr != nil {
			return nil, scanErr
		}
		teams = append(teams, team)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return teams, nil
}

func (r *postgresTournamentRepository) CountTeams(ctx context.Context, exec SQLExecutor, tournamentID int) (int, error) {
	executor := r.getExecutor(exec)
	var count int
	err := executor.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tournament_teams WHERE tournament_id = $1`, tournamentID,
	).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *postgresTournamentRepository) handleTournamentError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		if pqErr.Code == "23505" && pqErr.Constraint == "tournaments_name_key" {
			return ErrTournamentNameConflict
		}
	}
	return err
}
