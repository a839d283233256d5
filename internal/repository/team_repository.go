package repository

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/sla-tracker/internal/domain"
)

// TeamRepository manages persistence for teams.
type TeamRepository interface {
	// CreateWithDefaultPolicy inserts the team, its default SLA policy and
	// the policy link in one transaction. A team must never exist without
	// an active policy.
	CreateWithDefaultPolicy(ctx context.Context, team *domain.Team, policy *domain.SLAPolicy) error
	GetByID(ctx context.Context, id string) (*domain.Team, error)
	GetByEmail(ctx context.Context, email string) (*domain.Team, error)
	List(ctx context.Context) ([]domain.Team, error)
	// ConsumeTicketQuota increments tickets_used iff it is still below the
	// limit, as one conditional statement. Returns false when the quota is
	// exhausted. The check-and-increment must stay in the database; a
	// read-increment-write sequence loses updates under concurrent creates.
	ConsumeTicketQuota(ctx context.Context, teamID string) (bool, error)
}

type teamRepository struct {
	pool *pgxpool.Pool
}

// NewTeamRepository constructs repository.
func NewTeamRepository(pool *pgxpool.Pool) TeamRepository {
	return &teamRepository{pool: pool}
}

func (r *teamRepository) CreateWithDefaultPolicy(ctx context.Context, team *domain.Team, policy *domain.SLAPolicy) error {
	members, err := json.Marshal(team.Members)
	if err != nil {
		return err
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const insertTeam = `
        INSERT INTO teams (name, email, password_hash, members, subscription_plan, tickets_used, ticket_limit)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at, updated_at`
	if err := tx.QueryRow(ctx, insertTeam,
		team.Name,
		team.Email,
		team.PasswordHash,
		members,
		team.Plan,
		team.TicketsUsed,
		team.TicketLimit,
	).Scan(&team.ID, &team.CreatedAt, &team.UpdatedAt); err != nil {
		return err
	}

	policy.TeamID = team.ID
	const insertPolicy = `
        INSERT INTO sla_policies (team_id, name, p1_response_hours, p2_response_hours, p3_response_hours,
            p1_resolution_hours, p2_resolution_hours, p3_resolution_hours,
            business_hours_only, business_hours_start, business_hours_end, holidays)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
        RETURNING id, created_at, updated_at`
	if err := tx.QueryRow(ctx, insertPolicy,
		policy.TeamID,
		policy.Name,
		policy.P1ResponseHours,
		policy.P2ResponseHours,
		policy.P3ResponseHours,
		policy.P1ResolutionHours,
		policy.P2ResolutionHours,
		policy.P3ResolutionHours,
		policy.BusinessHoursOnly,
		policy.BusinessHours.Start,
		policy.BusinessHours.End,
		policy.Holidays,
	).Scan(&policy.ID, &policy.CreatedAt, &policy.UpdatedAt); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `UPDATE teams SET sla_policy_id=$1 WHERE id=$2`, policy.ID, team.ID); err != nil {
		return err
	}
	team.PolicyID = &policy.ID

	return tx.Commit(ctx)
}

func (r *teamRepository) GetByID(ctx context.Context, id string) (*domain.Team, error) {
	const query = teamSelect + ` WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *teamRepository) GetByEmail(ctx context.Context, email string) (*domain.Team, error) {
	const query = teamSelect + ` WHERE email=$1`
	return r.fetchSingle(ctx, query, email)
}

func (r *teamRepository) List(ctx context.Context) ([]domain.Team, error) {
	rows, err := r.pool.Query(ctx, teamSelect+` ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Team
	for rows.Next() {
		team, err := scanTeam(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *team)
	}
	return result, rows.Err()
}

func (r *teamRepository) ConsumeTicketQuota(ctx context.Context, teamID string) (bool, error) {
	const query = `
        UPDATE teams SET tickets_used = tickets_used + 1, updated_at = NOW()
        WHERE id=$1 AND tickets_used < ticket_limit`
	cmd, err := r.pool.Exec(ctx, query, teamID)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

const teamSelect = `
        SELECT id, name, email, password_hash, members, sla_policy_id,
               subscription_plan, tickets_used, ticket_limit, created_at, updated_at
        FROM teams`

func (r *teamRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Team, error) {
	row := r.pool.QueryRow(ctx, query, arg)
	return scanTeam(row)
}

func scanTeam(row pgx.Row) (*domain.Team, error) {
	var team domain.Team
	var members []byte
	if err := row.Scan(
		&team.ID,
		&team.Name,
		&team.Email,
		&team.PasswordHash,
		&members,
		&team.PolicyID,
		&team.Plan,
		&team.TicketsUsed,
		&team.TicketLimit,
		&team.CreatedAt,
		&team.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if len(members) > 0 {
		if err := json.Unmarshal(members, &team.Members); err != nil {
			return nil, err
		}
	}
	return &team, nil
}
