package repository

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/quoth-dev/quoth-mcp/internal/model"
)

// ChunkRepository provides CRUD and ANN/keyword search for DocumentChunks.
type ChunkRepository struct {
	db *pgxpool.Pool
}

// NewChunkRepository creates a new ChunkRepository.
func NewChunkRepository(db *pgxpool.Pool) *ChunkRepository {
	return &ChunkRepository{db: db}
}

// StoredHashes returns the chunk_hash → id map for every chunk currently
// stored against documentID — the basis of the Indexer's diff (§4.4 step 6).
func (r *ChunkRepository) StoredHashes(ctx context.Context, documentID uuid.UUID) (map[string]uuid.UUID, error) {
	rows, err := r.db.Query(ctx, `SELECT chunk_hash, id FROM document_chunks WHERE document_id = $1`, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]uuid.UUID)
	for rows.Next() {
		var hash string
		var id uuid.UUID
		if err := rows.Scan(&hash, &id); err != nil {
			return nil, err
		}
		out[hash] = id
	}
	return out, rows.Err()
}

// DeleteByIDs removes the orphan chunk set (§4.4 step 8). Must be called
// within the same transaction as Upsert/Insert for the atomicity guarantee
// in spec.md §5.
func (r *ChunkRepository) DeleteByIDs(ctx context.Context, tx pgx.Tx, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := tx.Exec(ctx, `DELETE FROM document_chunks WHERE id = ANY($1)`, ids)
	return err
}

// Insert adds a new chunk row, preserving a caller-supplied stable ID when
// set (so write-once chunk identity holds across re-syncs); otherwise
// generates one.
func (r *ChunkRepository) Insert(ctx context.Context, tx pgx.Tx, c *model.DocumentChunk) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	meta, err := json.Marshal(c.Metadata)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO document_chunks (id, document_id, content_chunk, chunk_hash, embedding, embedding_model, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		c.ID, c.DocumentID, c.ContentChunk, c.ChunkHash, c.Embedding, c.EmbeddingModel, meta)
	return err
}

// CountByDocument returns the current number of chunk rows for a document.
func (r *ChunkRepository) CountByDocument(ctx context.Context, documentID uuid.UUID) (int, error) {
	row := r.db.QueryRow(ctx, `SELECT count(*) FROM document_chunks WHERE document_id = $1`, documentID)
	var n int
	err := row.Scan(&n)
	return n, err
}

// VectorCandidate is one row returned by the ANN stored procedures.
type VectorCandidate struct {
	ChunkID      uuid.UUID
	DocumentID   uuid.UUID
	Title        string
	FilePath     string
	ContentChunk string
	Metadata     model.ChunkMetadata
	Similarity   float64
	ChunkIndex   int
}

// MatchDocuments calls the match_documents(query_embedding, match_threshold,
// match_count, filter_project_id, filter_embedding_model) stored procedure
// required by spec.md §6, returning the nearest matchCount candidates
// above matchThreshold similarity for one project and one embedding model.
func (r *ChunkRepository) MatchDocuments(ctx context.Context, embedding []float32, matchThreshold float64, matchCount int, projectID uuid.UUID, embeddingModel string) ([]VectorCandidate, error) {
	rows, err := r.db.Query(ctx, `
		SELECT chunk_id, document_id, title, file_path, content_chunk, metadata, similarity
		FROM match_documents($1, $2, $3, $4, $5)`,
		embedding, matchThreshold, matchCount, projectID, embeddingModel)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCandidates(rows)
}

// MatchSharedDocuments calls match_shared_documents(query_embedding,
// organization_id, match_count, filter_embedding_model), an org-wide ANN
// search over shared documents. The retrieval pipeline does not call it,
// so quoth_search_index searches only the active project.
func (r *ChunkRepository) MatchSharedDocuments(ctx context.Context, embedding []float32, organizationID uuid.UUID, matchCount int, embeddingModel string) ([]VectorCandidate, error) {
	rows, err := r.db.Query(ctx, `
		SELECT chunk_id, document_id, title, file_path, content_chunk, metadata, similarity
		FROM match_shared_documents($1, $2, $3, $4)`,
		embedding, organizationID, matchCount, embeddingModel)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCandidates(rows)
}

func scanCandidates(rows pgx.Rows) ([]VectorCandidate, error) {
	var out []VectorCandidate
	for rows.Next() {
		var c VectorCandidate
		var metaRaw []byte
		if err := rows.Scan(&c.ChunkID, &c.DocumentID, &c.Title, &c.FilePath, &c.ContentChunk, &metaRaw, &c.Similarity); err != nil {
			return nil, err
		}
		_ = json.Unmarshal(metaRaw, &c.Metadata)
		c.ChunkIndex = c.Metadata.ChunkIndex
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetChunksByIDs calls get_chunks_by_ids(chunk_ids, filter_project_id), the
// required stored procedure behind quoth_read_chunks and the retrieval
// pipeline's chunk-granular read path.
func (r *ChunkRepository) GetChunksByIDs(ctx context.Context, ids []uuid.UUID, projectID uuid.UUID) ([]VectorCandidate, error) {
	rows, err := r.db.Query(ctx, `
		SELECT chunk_id, document_id, title, file_path, content_chunk, metadata, 1.0 AS similarity
		FROM get_chunks_by_ids($1, $2)`, ids, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCandidates(rows)
}

// KeywordSearch runs a full-text AND query against chunk content scoped to
// a project (§4.5 keyword_fallback). tokens must already be filtered to
// length > 2.
func (r *ChunkRepository) KeywordSearch(ctx context.Context, projectID uuid.UUID, tokens []string, limit int) ([]VectorCandidate, error) {
	tsQuery := toTSQuery(tokens)
	rows, err := r.db.Query(ctx, `
		SELECT dc.id, dc.document_id, d.title, d.file_path, dc.content_chunk, dc.metadata, 0.0
		FROM document_chunks dc
		JOIN documents d ON d.id = dc.document_id
		WHERE d.project_id = $1 AND to_tsvector('english', dc.content_chunk) @@ to_tsquery('english', $2)
		LIMIT $3`, projectID, tsQuery, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCandidates(rows)
}

// SubstringSearch degrades further than KeywordSearch when the full-text
// backend itself fails (§4.5 keyword_fallback: "on backend failure,
// degrade to a substring match on the first token").
func (r *ChunkRepository) SubstringSearch(ctx context.Context, projectID uuid.UUID, token string, limit int) ([]VectorCandidate, error) {
	like := "%" + token + "%"
	rows, err := r.db.Query(ctx, `
		SELECT dc.id, dc.document_id, d.title, d.file_path, dc.content_chunk, dc.metadata, 0.0
		FROM document_chunks dc
		JOIN documents d ON d.id = dc.document_id
		WHERE d.project_id = $1 AND dc.content_chunk ILIKE $2
		LIMIT $3`, projectID, like, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCandidates(rows)
}

func toTSQuery(tokens []string) string {
	q := ""
	for i, t := range tokens {
		if i > 0 {
			q += " & "
		}
		q += t
	}
	return q
}

// ErrNoDocument is returned by repository calls that require a document
// row to exist first.
var ErrNoDocument = errors.New("document does not exist")
