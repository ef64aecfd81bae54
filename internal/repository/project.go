package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/quoth-dev/quoth-mcp/internal/model"
)

// ProjectRepository provides CRUD for Organizations, Projects, Users, and
// ProjectMembers.
type ProjectRepository struct {
	db *pgxpool.Pool
}

// NewProjectRepository creates a new ProjectRepository.
func NewProjectRepository(db *pgxpool.Pool) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// CreateOrganization inserts a new organization.
func (r *ProjectRepository) CreateOrganization(ctx context.Context, org *model.Organization) error {
	org.ID = uuid.New()
	org.CreatedAt = time.Now().UTC()
	_, err := r.db.Exec(ctx, `
		INSERT INTO organizations (id, slug, name, owner_user_id, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		org.ID, org.Slug, org.Name, org.OwnerUserID, org.CreatedAt)
	return err
}

// OrganizationForUser returns the first organization owned by userID, or
// ErrNotFound if the user owns none (used by project_create's
// "creates an organization if the user has none" branch).
func (r *ProjectRepository) OrganizationForUser(ctx context.Context, userID uuid.UUID) (*model.Organization, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, slug, name, owner_user_id, created_at
		FROM organizations WHERE owner_user_id = $1 ORDER BY created_at ASC LIMIT 1`, userID)
	var org model.Organization
	if err := row.Scan(&org.ID, &org.Slug, &org.Name, &org.OwnerUserID, &org.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &org, nil
}

// CreateProject inserts a new project and returns it with its generated ID.
func (r *ProjectRepository) CreateProject(ctx context.Context, p *model.Project) error {
	p.ID = uuid.New()
	p.CreatedAt = time.Now().UTC()
	if p.Tier == "" {
		p.Tier = model.TierFree
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO projects (id, slug, organization_id, owner_user_id, is_public, require_approval, tier, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		p.ID, p.Slug, p.OrganizationID, p.OwnerUserID, p.IsPublic, p.RequireApproval, p.Tier, p.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return err
	}
	return nil
}

// GetProject retrieves a project by id.
func (r *ProjectRepository) GetProject(ctx context.Context, id uuid.UUID) (*model.Project, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, slug, organization_id, owner_user_id, is_public, require_approval, tier, created_at
		FROM projects WHERE id = $1`, id)
	return scanProject(row)
}

// GetProjectBySlug retrieves a project by its unique slug.
func (r *ProjectRepository) GetProjectBySlug(ctx context.Context, slug string) (*model.Project, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, slug, organization_id, owner_user_id, is_public, require_approval, tier, created_at
		FROM projects WHERE slug = $1`, slug)
	return scanProject(row)
}

// UpdateProject updates the mutable fields of a project.
func (r *ProjectRepository) UpdateProject(ctx context.Context, p *model.Project) error {
	_, err := r.db.Exec(ctx, `
		UPDATE projects SET is_public = $2, require_approval = $3, tier = $4 WHERE id = $1`,
		p.ID, p.IsPublic, p.RequireApproval, p.Tier)
	return err
}

// DeleteProject removes a project and (via FK cascade) its documents,
// chunks, and proposals.
func (r *ProjectRepository) DeleteProject(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanProject(row pgx.Row) (*model.Project, error) {
	var p model.Project
	if err := row.Scan(&p.ID, &p.Slug, &p.OrganizationID, &p.OwnerUserID, &p.IsPublic, &p.RequireApproval, &p.Tier, &p.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// GetTier returns only the tier column for a project — the hot path used
// by the Tier & Usage Meter's cache-miss fill.
func (r *ProjectRepository) GetTier(ctx context.Context, projectID uuid.UUID) (model.Tier, error) {
	row := r.db.QueryRow(ctx, `SELECT tier FROM projects WHERE id = $1`, projectID)
	var tier model.Tier
	if err := row.Scan(&tier); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}
	return tier, nil
}

// GetUser retrieves a user by id.
func (r *ProjectRepository) GetUser(ctx context.Context, id uuid.UUID) (*model.User, error) {
	row := r.db.QueryRow(ctx, `SELECT id, email, default_project_id FROM users WHERE id = $1`, id)
	var u model.User
	if err := row.Scan(&u.ID, &u.Email, &u.DefaultProjectID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// MembershipsForUser returns every ProjectMember row for userID — the set
// of projects the Session Manager loads as available_projects (§4.8).
func (r *ProjectRepository) MembershipsForUser(ctx context.Context, userID uuid.UUID) ([]model.ProjectMember, error) {
	rows, err := r.db.Query(ctx, `
		SELECT project_id, user_id, role FROM project_members WHERE user_id = $1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.ProjectMember
	for rows.Next() {
		var m model.ProjectMember
		if err := rows.Scan(&m.ProjectID, &m.UserID, &m.Role); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Membership returns a user's role on a specific project, or ErrNotFound
// if they are not a member.
func (r *ProjectRepository) Membership(ctx context.Context, projectID, userID uuid.UUID) (*model.ProjectMember, error) {
	row := r.db.QueryRow(ctx, `
		SELECT project_id, user_id, role FROM project_members WHERE project_id = $1 AND user_id = $2`,
		projectID, userID)
	var m model.ProjectMember
	if err := row.Scan(&m.ProjectID, &m.UserID, &m.Role); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

// AddMember upserts a project membership, used when auto-assigning the
// creator of a new project as admin (§4.9 quoth_project_create).
func (r *ProjectRepository) AddMember(ctx context.Context, m model.ProjectMember) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO project_members (project_id, user_id, role)
		VALUES ($1, $2, $3)
		ON CONFLICT (project_id, user_id) DO UPDATE SET role = EXCLUDED.role`,
		m.ProjectID, m.UserID, m.Role)
	return err
}

// isUniqueViolation detects Postgres unique_violation (SQLSTATE 23505)
// without importing the full pgconn error-code table for one check.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "23505")
}
