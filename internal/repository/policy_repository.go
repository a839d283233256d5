package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/sla-tracker/internal/domain"
)

// PolicyRepository manages persistence for SLA policies.
type PolicyRepository interface {
	GetByID(ctx context.Context, id string) (*domain.SLAPolicy, error)
	// GetActiveByTeam resolves the policy the team's sla_policy_id points at.
	// Other policy rows owned by the team do not govern new tickets.
	GetActiveByTeam(ctx context.Context, teamID string) (*domain.SLAPolicy, error)
	ListByTeam(ctx context.Context, teamID string) ([]domain.SLAPolicy, error)
	Update(ctx context.Context, policy *domain.SLAPolicy) error
}

type policyRepository struct {
	pool *pgxpool.Pool
}

// NewPolicyRepository constructs repository.
func NewPolicyRepository(pool *pgxpool.Pool) PolicyRepository {
	return &policyRepository{pool: pool}
}

const policyColumns = `
        p.id, p.team_id, p.name,
        p.p1_response_hours, p.p2_response_hours, p.p3_response_hours,
        p.p1_resolution_hours, p.p2_resolution_hours, p.p3_resolution_hours,
        p.business_hours_only, p.business_hours_start, p.business_hours_end,
        p.holidays, p.created_at, p.updated_at`

func (r *policyRepository) GetByID(ctx context.Context, id string) (*domain.SLAPolicy, error) {
	const query = `SELECT` + policyColumns + ` FROM sla_policies p WHERE p.id=$1`
	return scanPolicy(r.pool.QueryRow(ctx, query, id))
}

func (r *policyRepository) GetActiveByTeam(ctx context.Context, teamID string) (*domain.SLAPolicy, error) {
	const query = `SELECT` + policyColumns + `
        FROM sla_policies p
        JOIN teams t ON t.sla_policy_id = p.id
        WHERE t.id=$1`
	return scanPolicy(r.pool.QueryRow(ctx, query, teamID))
}

func (r *policyRepository) ListByTeam(ctx context.Context, teamID string) ([]domain.SLAPolicy, error) {
	const query = `SELECT` + policyColumns + ` FROM sla_policies p WHERE p.team_id=$1 ORDER BY p.created_at`
	rows, err := r.pool.Query(ctx, query, teamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.SLAPolicy
	for rows.Next() {
		policy, err := scanPolicy(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *policy)
	}
	return result, rows.Err()
}

func (r *policyRepository) Update(ctx context.Context, policy *domain.SLAPolicy) error {
	const query = `
        UPDATE sla_policies SET
            name=$1,
            p1_response_hours=$2, p2_response_hours=$3, p3_response_hours=$4,
            p1_resolution_hours=$5, p2_resolution_hours=$6, p3_resolution_hours=$7,
            business_hours_only=$8, business_hours_start=$9, business_hours_end=$10,
            holidays=$11, updated_at=NOW()
        WHERE id=$12`
	cmd, err := r.pool.Exec(ctx, query,
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
		policy.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanPolicy(row pgx.Row) (*domain.SLAPolicy, error) {
	var policy domain.SLAPolicy
	if err := row.Scan(
		&policy.ID,
		&policy.TeamID,
		&policy.Name,
		&policy.P1ResponseHours,
		&policy.P2ResponseHours,
		&policy.P3ResponseHours,
		&policy.P1ResolutionHours,
		&policy.P2ResolutionHours,
		&policy.P3ResolutionHours,
		&policy.BusinessHoursOnly,
		&policy.BusinessHours.Start,
		&policy.BusinessHours.End,
		&policy.Holidays,
		&policy.CreatedAt,
		&policy.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &policy, nil
}
