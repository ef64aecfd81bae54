package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/quoth-dev/quoth-mcp/internal/model"
)

// AgentRepository provides CRUD for Agents, AgentProjectAssignments,
// AgentMessages, and AgentTasks — all scoped to an organization, per
// spec.md §4.11/§4.12's agent bus.
type AgentRepository struct {
	db *pgxpool.Pool
}

// NewAgentRepository creates a new AgentRepository.
func NewAgentRepository(db *pgxpool.Pool) *AgentRepository {
	return &AgentRepository{db: db}
}

const agentColumns = `id, organization_id, agent_name, display_name, instance, model, role, capabilities, status, last_seen_at, metadata`

func scanAgent(row pgx.Row) (*model.Agent, error) {
	var a model.Agent
	if err := row.Scan(&a.ID, &a.OrganizationID, &a.AgentName, &a.DisplayName, &a.Instance, &a.Model, &a.Role,
		&a.Capabilities, &a.Status, &a.LastSeenAt, &a.Metadata); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

// Register inserts a new agent, rejecting a duplicate agent_name within
// the same organization (§4.9 quoth_agent_register invariant: agent_name
// unique per organization).
func (r *AgentRepository) Register(ctx context.Context, a *model.Agent) error {
	a.ID = uuid.New()
	if a.Status == "" {
		a.Status = model.AgentActive
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO agents (id, organization_id, agent_name, display_name, instance, model, role, capabilities, status, last_seen_at, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		a.ID, a.OrganizationID, a.AgentName, a.DisplayName, a.Instance, a.Model, a.Role, a.Capabilities, a.Status, a.LastSeenAt, a.Metadata)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return err
	}
	return nil
}

// GetByID retrieves an agent scoped to an organization.
func (r *AgentRepository) GetByID(ctx context.Context, organizationID, id uuid.UUID) (*model.Agent, error) {
	row := r.db.QueryRow(ctx, `SELECT `+agentColumns+` FROM agents WHERE organization_id = $1 AND id = $2`, organizationID, id)
	return scanAgent(row)
}

// ListByOrganization returns every agent in an organization.
func (r *AgentRepository) ListByOrganization(ctx context.Context, organizationID uuid.UUID) ([]*model.Agent, error) {
	rows, err := r.db.Query(ctx, `SELECT `+agentColumns+` FROM agents WHERE organization_id = $1 ORDER BY agent_name`, organizationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Agent
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Update persists mutable agent fields (§4.9 quoth_agent_update).
func (r *AgentRepository) Update(ctx context.Context, a *model.Agent) error {
	_, err := r.db.Exec(ctx, `
		UPDATE agents SET display_name = $2, role = $3, capabilities = $4, status = $5, metadata = $6
		WHERE id = $1`,
		a.ID, a.DisplayName, a.Role, a.Capabilities, a.Status, a.Metadata)
	return err
}

// TouchLastSeen stamps last_seen_at. No agent bus path calls it.
func (r *AgentRepository) TouchLastSeen(ctx context.Context, id uuid.UUID) error {
	now := time.Now().UTC()
	_, err := r.db.Exec(ctx, `UPDATE agents SET last_seen_at = $2 WHERE id = $1`, id, now)
	return err
}

// Archive soft-deletes an agent by setting status=archived rather than
// removing the row, preserving message/task history (§4.9
// quoth_agent_remove).
func (r *AgentRepository) Archive(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `UPDATE agents SET status = $2 WHERE id = $1`, id, model.AgentArchived)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// AssignProject upserts an agent's role on a project (§4.9
// quoth_agent_assign_project).
func (r *AgentRepository) AssignProject(ctx context.Context, a model.AgentProjectAssignment) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO agent_project_assignments (agent_id, project_id, role, assigned_by)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (agent_id, project_id) DO UPDATE SET role = EXCLUDED.role, assigned_by = EXCLUDED.assigned_by`,
		a.AgentID, a.ProjectID, a.Role, a.AssignedBy)
	return err
}

// UnassignProject removes an agent's project assignment (§4.9
// quoth_agent_unassign_project).
func (r *AgentRepository) UnassignProject(ctx context.Context, agentID, projectID uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM agent_project_assignments WHERE agent_id = $1 AND project_id = $2`, agentID, projectID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// AssignmentsForAgent returns every project assignment an agent holds.
func (r *AgentRepository) AssignmentsForAgent(ctx context.Context, agentID uuid.UUID) ([]model.AgentProjectAssignment, error) {
	rows, err := r.db.Query(ctx, `SELECT agent_id, project_id, role, assigned_by FROM agent_project_assignments WHERE agent_id = $1`, agentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.AgentProjectAssignment
	for rows.Next() {
		var a model.AgentProjectAssignment
		if err := rows.Scan(&a.AgentID, &a.ProjectID, &a.Role, &a.AssignedBy); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

const messageColumns = `id, organization_id, from_agent_id, to_agent_id, type, priority, channel, reply_to, payload, signature, status, created_at, read_at`

func scanMessage(row pgx.Row) (*model.AgentMessage, error) {
	var m model.AgentMessage
	if err := row.Scan(&m.ID, &m.OrganizationID, &m.FromAgentID, &m.ToAgentID, &m.Type, &m.Priority, &m.Channel,
		&m.ReplyTo, &m.Payload, &m.Signature, &m.Status, &m.CreatedAt, &m.ReadAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

// SendMessage inserts a new signed envelope (§4.11 quoth_agent_message).
func (r *AgentRepository) SendMessage(ctx context.Context, m *model.AgentMessage) error {
	m.ID = uuid.New()
	m.Status = model.MessageStatusPending
	m.CreatedAt = time.Now().UTC()
	_, err := r.db.Exec(ctx, `
		INSERT INTO agent_messages (id, organization_id, from_agent_id, to_agent_id, type, priority, channel, reply_to, payload, signature, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		m.ID, m.OrganizationID, m.FromAgentID, m.ToAgentID, m.Type, m.Priority, m.Channel, m.ReplyTo, m.Payload, m.Signature, m.Status, m.CreatedAt)
	return err
}

// Inbox returns undelivered-or-unread messages addressed to an agent,
// oldest first, within its organization (§4.11 quoth_agent_inbox).
func (r *AgentRepository) Inbox(ctx context.Context, organizationID, agentID uuid.UUID, includeRead bool) ([]*model.AgentMessage, error) {
	query := `SELECT ` + messageColumns + ` FROM agent_messages WHERE organization_id = $1 AND to_agent_id = $2`
	if !includeRead {
		query += ` AND status != 'read'`
	}
	query += ` ORDER BY created_at ASC`

	rows, err := r.db.Query(ctx, query, organizationID, agentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.AgentMessage
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// MarkRead transitions a message to read, stamping read_at.
func (r *AgentRepository) MarkRead(ctx context.Context, id uuid.UUID) error {
	now := time.Now().UTC()
	_, err := r.db.Exec(ctx, `UPDATE agent_messages SET status = $2, read_at = $3 WHERE id = $1`, id, model.MessageStatusRead, now)
	return err
}

const taskColumns = `id, organization_id, assigned_to, created_by, title, description, priority, deadline, payload, status, result, started_at, completed_at`

func scanTask(row pgx.Row) (*model.AgentTask, error) {
	var t model.AgentTask
	if err := row.Scan(&t.ID, &t.OrganizationID, &t.AssignedTo, &t.CreatedBy, &t.Title, &t.Description, &t.Priority,
		&t.Deadline, &t.Payload, &t.Status, &t.Result, &t.StartedAt, &t.CompletedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

// CreateTask inserts a new delegated task (§4.12 quoth_task_create).
func (r *AgentRepository) CreateTask(ctx context.Context, t *model.AgentTask) error {
	t.ID = uuid.New()
	t.Status = model.TaskPending
	_, err := r.db.Exec(ctx, `
		INSERT INTO agent_tasks (id, organization_id, assigned_to, created_by, title, description, priority, deadline, payload, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		t.ID, t.OrganizationID, t.AssignedTo, t.CreatedBy, t.Title, t.Description, t.Priority, t.Deadline, t.Payload, t.Status)
	return err
}

// TasksForAgent returns every task assigned to an agent, highest priority
// first (priority 1 = highest).
func (r *AgentRepository) TasksForAgent(ctx context.Context, organizationID, agentID uuid.UUID) ([]*model.AgentTask, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+taskColumns+` FROM agent_tasks
		WHERE organization_id = $1 AND assigned_to = $2
		ORDER BY priority ASC, deadline ASC NULLS LAST`, organizationID, agentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.AgentTask
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// UpdateTaskStatus transitions a task's status, stamping started_at on the
// first move into in_progress and completed_at on entering a terminal
// state (done/failed/cancelled) (§4.12 quoth_task_update).
func (r *AgentRepository) UpdateTaskStatus(ctx context.Context, id uuid.UUID, status model.TaskStatus, result *string) error {
	now := time.Now().UTC()
	switch status {
	case model.TaskInProgress:
		_, err := r.db.Exec(ctx, `
			UPDATE agent_tasks SET status = $2, started_at = COALESCE(started_at, $3) WHERE id = $1`,
			id, status, now)
		return err
	case model.TaskDone, model.TaskFailed, model.TaskCancelled:
		_, err := r.db.Exec(ctx, `
			UPDATE agent_tasks SET status = $2, result = $3, completed_at = $4 WHERE id = $1`,
			id, status, result, now)
		return err
	default:
		_, err := r.db.Exec(ctx, `UPDATE agent_tasks SET status = $2 WHERE id = $1`, id, status)
		return err
	}
}
