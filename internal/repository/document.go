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

// DocumentRepository provides CRUD for Documents.
type DocumentRepository struct {
	db *pgxpool.Pool
}

// NewDocumentRepository creates a new DocumentRepository.
func NewDocumentRepository(db *pgxpool.Pool) *DocumentRepository {
	return &DocumentRepository{db: db}
}

const documentColumns = `id, project_id, file_path, title, content, checksum, doc_type, visibility, version, last_updated, agent_id`

func scanDocument(row pgx.Row) (*model.Document, error) {
	var d model.Document
	var docType *model.DocType
	if err := row.Scan(&d.ID, &d.ProjectID, &d.FilePath, &d.Title, &d.Content, &d.Checksum, &docType, &d.Visibility, &d.Version, &d.LastUpdated, &d.AgentID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	d.DocType = docType
	return &d, nil
}

// ByProjectAndPath looks up a document by its unique (project_id, file_path).
func (r *DocumentRepository) ByProjectAndPath(ctx context.Context, projectID uuid.UUID, filePath string) (*model.Document, error) {
	row := r.db.QueryRow(ctx, `SELECT `+documentColumns+` FROM documents WHERE project_id = $1 AND file_path = $2`, projectID, filePath)
	return scanDocument(row)
}

// ByID looks up a document by id, scoped to a project.
func (r *DocumentRepository) ByID(ctx context.Context, projectID, id uuid.UUID) (*model.Document, error) {
	row := r.db.QueryRow(ctx, `SELECT `+documentColumns+` FROM documents WHERE project_id = $1 AND id = $2`, projectID, id)
	return scanDocument(row)
}

// ByTitleOrPathExact looks up a document by exact file_path or exact title
// match within a project (§4.5 read_document).
func (r *DocumentRepository) ByTitleOrPathExact(ctx context.Context, projectID uuid.UUID, query string) (*model.Document, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+documentColumns+` FROM documents
		WHERE project_id = $1 AND (file_path = $2 OR title = $2) LIMIT 1`, projectID, query)
	return scanDocument(row)
}

// SearchByTitleOrPathFuzzy performs a case-insensitive substring match,
// limited to one result (§4.5 read_document's miss-fallback pass).
func (r *DocumentRepository) SearchByTitleOrPathFuzzy(ctx context.Context, projectID uuid.UUID, query string) (*model.Document, error) {
	like := "%" + strings.ToLower(query) + "%"
	row := r.db.QueryRow(ctx, `
		SELECT `+documentColumns+` FROM documents
		WHERE project_id = $1 AND (LOWER(file_path) LIKE $2 OR LOWER(title) LIKE $2)
		LIMIT 1`, projectID, like)
	return scanDocument(row)
}

// SearchSharedByTitleOrPath searches shared documents across every project
// in organizationID (§4.5 read_document scope=org second pass).
func (r *DocumentRepository) SearchSharedByTitleOrPath(ctx context.Context, organizationID uuid.UUID, query string) (*model.Document, error) {
	like := "%" + strings.ToLower(query) + "%"
	row := r.db.QueryRow(ctx, `
		SELECT d.id, d.project_id, d.file_path, d.title, d.content, d.checksum, d.doc_type, d.visibility, d.version, d.last_updated, d.agent_id
		FROM documents d
		JOIN projects p ON p.id = d.project_id
		WHERE p.organization_id = $1 AND d.visibility = 'shared'
		  AND (LOWER(d.file_path) LIKE $2 OR LOWER(d.title) LIKE $2)
		LIMIT 1`, organizationID, like)
	return scanDocument(row)
}

// Upsert inserts a new document or updates an existing one by
// (project_id, file_path), bumping version on update. Returns the
// post-write row. Callers run this inside a transaction alongside chunk
// mutation (spec.md §4.4 step 4 + §5's "upsert → delete orphans → insert").
func (r *DocumentRepository) Upsert(ctx context.Context, tx pgx.Tx, d *model.Document) error {
	now := time.Now().UTC()
	existing, err := r.txByProjectAndPath(ctx, tx, d.ProjectID, d.FilePath)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}

	if existing == nil {
		d.ID = uuid.New()
		d.Version = 1
		d.LastUpdated = now
		_, err := tx.Exec(ctx, `
			INSERT INTO documents (id, project_id, file_path, title, content, checksum, doc_type, visibility, version, last_updated, agent_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			d.ID, d.ProjectID, d.FilePath, d.Title, d.Content, d.Checksum, d.DocType, d.Visibility, d.Version, d.LastUpdated, d.AgentID)
		return err
	}

	d.ID = existing.ID
	d.Version = existing.Version + 1
	d.LastUpdated = now
	_, err = tx.Exec(ctx, `
		UPDATE documents SET title = $2, content = $3, checksum = $4, doc_type = $5, visibility = $6, version = $7, last_updated = $8, agent_id = $9
		WHERE id = $1`,
		d.ID, d.Title, d.Content, d.Checksum, d.DocType, d.Visibility, d.Version, d.LastUpdated, d.AgentID)
	return err
}

func (r *DocumentRepository) txByProjectAndPath(ctx context.Context, tx pgx.Tx, projectID uuid.UUID, filePath string) (*model.Document, error) {
	row := tx.QueryRow(ctx, `SELECT `+documentColumns+` FROM documents WHERE project_id = $1 AND file_path = $2`, projectID, filePath)
	return scanDocument(row)
}

// UpdateDocType persists an inferred doc_type back onto a document row,
// used by the coverage scan's auto-categorization (§4.14: "persisting the
// fix").
func (r *DocumentRepository) UpdateDocType(ctx context.Context, id uuid.UUID, docType model.DocType) error {
	_, err := r.db.Exec(ctx, `UPDATE documents SET doc_type = $2 WHERE id = $1`, id, docType)
	return err
}

// ListByProject returns every document in a project, used by coverage and
// health scans.
func (r *DocumentRepository) ListByProject(ctx context.Context, projectID uuid.UUID) ([]*model.Document, error) {
	rows, err := r.db.Query(ctx, `SELECT `+documentColumns+` FROM documents WHERE project_id = $1 ORDER BY file_path`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*model.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// BeginTx starts a transaction for the upsert→delete-orphans→insert
// sequence required by the Indexer (§4.4, §5).
func (r *DocumentRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return r.db.Begin(ctx)
}

// ListByDocType returns every document in a project with doc_type =
// 'template', the inventory quoth_list_templates and quoth_get_template
// draw from rather than a separate static template tree.
func (r *DocumentRepository) ListByDocType(ctx context.Context, projectID uuid.UUID, docType model.DocType) ([]*model.Document, error) {
	rows, err := r.db.Query(ctx, `SELECT `+documentColumns+` FROM documents WHERE project_id = $1 AND doc_type = $2 ORDER BY file_path`, projectID, docType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*model.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}
