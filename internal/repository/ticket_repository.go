package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/sla-tracker/internal/domain"
)

// TicketFilter captures ticket query parameters.
type TicketFilter struct {
	TeamID          *string
	Statuses        []domain.TicketStatus
	ExcludeStatuses []domain.TicketStatus
	Priorities      []domain.TicketPriority
	CreatedFrom     *time.Time
	CreatedTo       *time.Time
	ResolvedFrom    *time.Time
	ResolvedTo      *time.Time
	// Unbreached selects tickets where neither breach flag is set.
	Unbreached bool
	// Limit <= 0 means no limit; aggregation reads whole windows.
	Limit  int
	Offset int
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	CountWithFilter(ctx context.Context, filter TicketFilter) (int, error)
	// UpdateMutable persists status and assignee; SLA snapshot fields and
	// milestone timestamps are never written through this path.
	UpdateMutable(ctx context.Context, ticket *domain.Ticket) error
	// RecordFirstResponse sets the milestone iff it is still unset, as one
	// conditional update. Returns false when another writer already won;
	// the caller treats that as a no-op, never an error.
	RecordFirstResponse(ctx context.Context, id string, at time.Time, minutes int, breached bool) (bool, error)
	// RecordResolution is symmetric with RecordFirstResponse for the
	// resolution milestone.
	RecordResolution(ctx context.Context, id string, at time.Time, minutes int, breached bool) (bool, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `
        id, team_id, ticket_number, title, description, priority, status, assigned_to,
        sla_policy_id, sla_response_target, sla_resolution_target,
        first_response_at, resolved_at, response_breached, resolution_breached,
        response_time_minutes, resolution_time_minutes, created_at, updated_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (team_id, ticket_number, title, description, priority, status, assigned_to,
            sla_policy_id, sla_response_target, sla_resolution_target)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		ticket.TeamID,
		ticket.TicketNumber,
		ticket.Title,
		ticket.Description,
		ticket.Priority,
		ticket.Status,
		ticket.AssignedTo,
		ticket.PolicyID,
		ticket.ResponseTargetHours,
		ticket.ResolutionTargetHours,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := `SELECT` + ticketColumns + ` FROM tickets WHERE id=$1`
	var ticket domain.Ticket
	if err := scanTicket(r.pool.QueryRow(ctx, query, id), &ticket); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	clauses, args := buildTicketClauses(filter)

	query := `SELECT` + ticketColumns + ` FROM tickets WHERE ` + strings.Join(clauses, " AND ") +
		` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", filter.Limit, max(filter.Offset, 0))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) CountWithFilter(ctx context.Context, filter TicketFilter) (int, error) {
	clauses, args := buildTicketClauses(filter)
	query := `SELECT COUNT(*) FROM tickets WHERE ` + strings.Join(clauses, " AND ")

	var count int
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *ticketRepository) UpdateMutable(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET status=$1, assigned_to=$2, updated_at=NOW()
        WHERE id=$3`
	cmd, err := r.pool.Exec(ctx, query, ticket.Status, ticket.AssignedTo, ticket.ID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) RecordFirstResponse(ctx context.Context, id string, at time.Time, minutes int, breached bool) (bool, error) {
	const query = `
        UPDATE tickets SET first_response_at=$2, response_time_minutes=$3,
            response_breached = response_breached OR $4, updated_at=NOW()
        WHERE id=$1 AND first_response_at IS NULL`
	cmd, err := r.pool.Exec(ctx, query, id, at, minutes, breached)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *ticketRepository) RecordResolution(ctx context.Context, id string, at time.Time, minutes int, breached bool) (bool, error) {
	const query = `
        UPDATE tickets SET resolved_at=$2, resolution_time_minutes=$3,
            resolution_breached = resolution_breached OR $4, updated_at=NOW()
        WHERE id=$1 AND resolved_at IS NULL`
	cmd, err := r.pool.Exec(ctx, query, id, at, minutes, breached)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func buildTicketClauses(filter TicketFilter) ([]string, []any) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.TeamID != nil {
		args = append(args, *filter.TeamID)
		clauses = append(clauses, fmt.Sprintf("team_id=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.ExcludeStatuses) > 0 {
		placeholders := make([]string, len(filter.ExcludeStatuses))
		for i, status := range filter.ExcludeStatuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status NOT IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Priorities) > 0 {
		placeholders := make([]string, len(filter.Priorities))
		for i, pr := range filter.Priorities {
			args = append(args, pr)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("priority IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		clauses = append(clauses, fmt.Sprintf("created_at < $%d", len(args)))
	}
	if filter.ResolvedFrom != nil {
		args = append(args, *filter.ResolvedFrom)
		clauses = append(clauses, fmt.Sprintf("resolved_at >= $%d", len(args)))
	}
	if filter.ResolvedTo != nil {
		args = append(args, *filter.ResolvedTo)
		clauses = append(clauses, fmt.Sprintf("resolved_at < $%d", len(args)))
	}
	if filter.Unbreached {
		clauses = append(clauses, "response_breached=FALSE AND resolution_breached=FALSE")
	}
	return clauses, args
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := scanTicket(rows, &ticket); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}

func scanTicket(row pgx.Row, ticket *domain.Ticket) error {
	return row.Scan(
		&ticket.ID,
		&ticket.TeamID,
		&ticket.TicketNumber,
		&ticket.Title,
		&ticket.Description,
		&ticket.Priority,
		&ticket.Status,
		&ticket.AssignedTo,
		&ticket.PolicyID,
		&ticket.ResponseTargetHours,
		&ticket.ResolutionTargetHours,
		&ticket.FirstResponseAt,
		&ticket.ResolvedAt,
		&ticket.ResponseBreached,
		&ticket.ResolutionBreached,
		&ticket.ResponseTimeMins,
		&ticket.ResolutionTimeMins,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	)
}
