// Package proposal implements the Proposal Engine (C10): the
// propose_update branching logic and the pending→{approved,rejected}
// state machine, with no reopening. See spec.md §4.10.
package proposal

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	"github.com/google/uuid"

	"github.com/quoth-dev/quoth-mcp/internal/apperr"
	"github.com/quoth-dev/quoth-mcp/internal/indexer"
	"github.com/quoth-dev/quoth-mcp/internal/model"
	"github.com/quoth-dev/quoth-mcp/internal/repository"
)

// signatureLength is the truncated HMAC-SHA256 length used across the
// system's provenance signatures (agent bus envelopes, proposals).
const signatureLength = 16

// Engine wires C10 to the document store and the Indexer.
type Engine struct {
	store     *repository.Store
	indexer   *indexer.Indexer
	busSecret string
}

// New constructs an Engine.
func New(store *repository.Store, ix *indexer.Indexer, busSecret string) *Engine {
	return &Engine{store: store, indexer: ix, busSecret: busSecret}
}

// Outcome is the result of a propose_update call: either a direct-apply
// sync result, or a newly created pending proposal.
type Outcome struct {
	Applied     bool
	SyncResult  *indexer.Result
	ProposalID  uuid.UUID
	Status      model.ProposalStatus
}

// Propose runs the propose_update protocol (§4.10 steps 1-7).
func (e *Engine) Propose(ctx context.Context, projectID uuid.UUID, role model.Role, filePath, newContent, reasoning, evidence string, agentID *uuid.UUID) (*Outcome, error) {
	if role == model.RoleViewer {
		return nil, apperr.New(apperr.Forbidden, "viewers may not propose document changes")
	}

	project, err := e.store.Projects.GetProject(ctx, projectID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "failed to load project")
	}

	existing, err := e.store.Documents.ByProjectAndPath(ctx, projectID, filePath)
	isNew := err == repository.ErrNotFound
	if err != nil && !isNew {
		return nil, apperr.Wrap(apperr.Internal, err, "failed to look up document")
	}

	if !project.RequireApproval {
		result, err := e.indexer.Sync(ctx, projectID, filePath, newContent, agentID)
		if err != nil {
			return nil, err
		}
		return &Outcome{Applied: true, SyncResult: result}, nil
	}

	p := &model.Proposal{
		ProjectID:       projectID,
		FilePath:        filePath,
		ProposedContent: newContent,
		Reasoning:       reasoning,
		EvidenceSnippet: evidence,
		AgentID:         agentID,
	}

	if isNew {
		p.Reasoning = "[NEW DOCUMENT] " + reasoning
	} else {
		docID := existing.ID
		p.DocumentID = &docID
		original := existing.Content
		p.OriginalContent = &original
	}

	if agentID != nil {
		sig := e.signature(*agentID, newContent)
		p.Signature = &sig
	}

	if err := e.store.Proposals.Create(ctx, p); err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "failed to create proposal")
	}

	return &Outcome{Applied: false, ProposalID: p.ID, Status: model.ProposalPending}, nil
}

// signature computes HMAC-SHA256(bus_secret, agent_id || content)
// truncated to 16 hex chars, the provenance signature attached to agent-
// submitted proposals (§4.10).
func (e *Engine) signature(agentID uuid.UUID, content string) string {
	mac := hmac.New(sha256.New, []byte(e.busSecret))
	mac.Write([]byte(agentID.String()))
	mac.Write([]byte(content))
	return hex.EncodeToString(mac.Sum(nil))[:signatureLength]
}

// Approve transitions a pending proposal to approved and applies it via
// the Indexer.
func (e *Engine) Approve(ctx context.Context, projectID, proposalID uuid.UUID, approverRole model.Role) (*indexer.Result, error) {
	if approverRole != model.RoleAdmin {
		return nil, apperr.New(apperr.Forbidden, "only admins may approve proposals")
	}

	p, err := e.store.Proposals.GetByID(ctx, projectID, proposalID)
	if err != nil {
		if err == repository.ErrNotFound {
			return nil, apperr.New(apperr.NotFound, "proposal not found")
		}
		return nil, apperr.Wrap(apperr.Internal, err, "failed to load proposal")
	}
	if p.Status != model.ProposalPending {
		return nil, apperr.New(apperr.Conflict, "proposal is not pending")
	}

	if err := e.store.Proposals.Resolve(ctx, proposalID, model.ProposalApproved); err != nil {
		if err == repository.ErrConflict {
			return nil, apperr.New(apperr.Conflict, "proposal was already resolved")
		}
		return nil, apperr.Wrap(apperr.Internal, err, "failed to resolve proposal")
	}

	return e.indexer.Sync(ctx, projectID, p.FilePath, p.ProposedContent, p.AgentID)
}

// Reject transitions a pending proposal to rejected. Terminal: no
// reopening.
func (e *Engine) Reject(ctx context.Context, projectID, proposalID uuid.UUID, approverRole model.Role) error {
	if approverRole != model.RoleAdmin {
		return apperr.New(apperr.Forbidden, "only admins may reject proposals")
	}

	p, err := e.store.Proposals.GetByID(ctx, projectID, proposalID)
	if err != nil {
		if err == repository.ErrNotFound {
			return apperr.New(apperr.NotFound, "proposal not found")
		}
		return apperr.Wrap(apperr.Internal, err, "failed to load proposal")
	}
	if p.Status != model.ProposalPending {
		return apperr.New(apperr.Conflict, "proposal is not pending")
	}

	if err := e.store.Proposals.Resolve(ctx, proposalID, model.ProposalRejected); err != nil {
		if err == repository.ErrConflict {
			return apperr.New(apperr.Conflict, "proposal was already resolved")
		}
		return apperr.Wrap(apperr.Internal, err, "failed to resolve proposal")
	}
	return nil
}
