// Package repository implements the persistence layer against PostgreSQL
// via pgx, following the teacher's one-struct-per-entity-group pattern: a
// repository wraps a *pgxpool.Pool and exposes one exported method per
// query. Tenant isolation (project_id / organization_id predicates) is
// explicit in every query, per spec.md §6 ("the spec uses service-role
// access but preserves tenant isolation ... via explicit ... predicates").
package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a lookup by id/slug/path finds no row.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a unique constraint (slug, agent_name) is
// violated.
var ErrConflict = errors.New("conflict")

// Store groups every entity repository behind one handle constructed from
// a single pool, mirroring how cmd/registry/main.go wires one
// *pgxpool.Pool into several *XRepository values.
type Store struct {
	Projects   *ProjectRepository
	Documents  *DocumentRepository
	Chunks     *ChunkRepository
	Proposals  *ProposalRepository
	Agents     *AgentRepository
	Activity   *ActivityRepository
}

// NewStore constructs every repository against the same pool.
func NewStore(db *pgxpool.Pool) *Store {
	return &Store{
		Projects:  NewProjectRepository(db),
		Documents: NewDocumentRepository(db),
		Chunks:    NewChunkRepository(db),
		Proposals: NewProposalRepository(db),
		Agents:    NewAgentRepository(db),
		Activity:  NewActivityRepository(db),
	}
}
