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

// ProposalRepository provides CRUD and state transitions for Proposals.
type ProposalRepository struct {
	db *pgxpool.Pool
}

// NewProposalRepository creates a new ProposalRepository.
func NewProposalRepository(db *pgxpool.Pool) *ProposalRepository {
	return &ProposalRepository{db: db}
}

const proposalColumns = `id, project_id, document_id, file_path, original_content, proposed_content, reasoning, evidence_snippet, status, agent_id, signature, created_at`

func scanProposal(row pgx.Row) (*model.Proposal, error) {
	var p model.Proposal
	if err := row.Scan(&p.ID, &p.ProjectID, &p.DocumentID, &p.FilePath, &p.OriginalContent, &p.ProposedContent,
		&p.Reasoning, &p.EvidenceSnippet, &p.Status, &p.AgentID, &p.Signature, &p.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// Create inserts a new pending proposal (§4.10 quoth_propose_update's
// require_approval=true branch).
func (r *ProposalRepository) Create(ctx context.Context, p *model.Proposal) error {
	p.ID = uuid.New()
	p.Status = model.ProposalPending
	p.CreatedAt = time.Now().UTC()
	_, err := r.db.Exec(ctx, `
		INSERT INTO proposals (id, project_id, document_id, file_path, original_content, proposed_content, reasoning, evidence_snippet, status, agent_id, signature, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		p.ID, p.ProjectID, p.DocumentID, p.FilePath, p.OriginalContent, p.ProposedContent, p.Reasoning, p.EvidenceSnippet,
		p.Status, p.AgentID, p.Signature, p.CreatedAt)
	return err
}

// GetByID retrieves a proposal scoped to a project.
func (r *ProposalRepository) GetByID(ctx context.Context, projectID, id uuid.UUID) (*model.Proposal, error) {
	row := r.db.QueryRow(ctx, `SELECT `+proposalColumns+` FROM proposals WHERE project_id = $1 AND id = $2`, projectID, id)
	return scanProposal(row)
}

// ListPending returns every pending proposal for a project, newest first.
func (r *ProposalRepository) ListPending(ctx context.Context, projectID uuid.UUID) ([]*model.Proposal, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+proposalColumns+` FROM proposals
		WHERE project_id = $1 AND status = $2
		ORDER BY created_at DESC`, projectID, model.ProposalPending)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Proposal
	for rows.Next() {
		p, err := scanProposal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Resolve transitions a pending proposal to approved or rejected. It
// refuses to reopen a proposal already in a terminal state — the DAG has
// no back edges (§4.10 invariant: "no reopening").
func (r *ProposalRepository) Resolve(ctx context.Context, id uuid.UUID, status model.ProposalStatus) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE proposals SET status = $2
		WHERE id = $1 AND status = $3`,
		id, status, model.ProposalPending)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrConflict
	}
	return nil
}
