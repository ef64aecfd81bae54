// Package indexer implements the sync pipeline (§4.4): it turns one
// (file_path, content) pair into a document row plus a diffed set of
// embedded chunks, reusing only the chunks whose content hash is
// unchanged so chunk identity (and therefore external chunk_id
// references) survives a re-sync.
package indexer

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/quoth-dev/quoth-mcp/internal/apperr"
	"github.com/quoth-dev/quoth-mcp/internal/chunker"
	"github.com/quoth-dev/quoth-mcp/internal/embedding"
	"github.com/quoth-dev/quoth-mcp/internal/model"
	"github.com/quoth-dev/quoth-mcp/internal/repository"
)

// Indexer syncs documents into storage, diffing and re-embedding only the
// chunks whose content changed.
type Indexer struct {
	store    *repository.Store
	gateway  *embedding.Gateway
	log      *zap.Logger
	pacing   time.Duration // spacing between embed calls, 0 = burst
}

// New constructs an Indexer. pacing throttles embedding calls made during
// a single sync to avoid bursting the embedding provider (§4.4 step 9).
func New(store *repository.Store, gateway *embedding.Gateway, log *zap.Logger, pacing time.Duration) *Indexer {
	return &Indexer{store: store, gateway: gateway, log: log, pacing: pacing}
}

// Result summarizes one sync call. The proposal engine returns it for a
// direct-apply quoth_propose_update and for an approved proposal.
type Result struct {
	DocumentID    uuid.UUID
	Version       int
	ChunksTotal   int
	ChunksReused  int
	ChunksEmbedded int
	ChunksRemoved int
	DocType       *model.DocType
}

// Sync upserts a document and reconciles its chunk set. It runs entirely
// inside one transaction: document upsert, orphan chunk deletion, and new
// chunk insertion all commit together or not at all (§4.4 step 4, §5).
func (ix *Indexer) Sync(ctx context.Context, projectID uuid.UUID, filePath, content string, agentID *uuid.UUID) (*Result, error) {
	checksum := md5Hex(content)
	docType := inferDocType(filePath)

	existing, err := ix.store.Documents.ByProjectAndPath(ctx, projectID, filePath)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.Wrap(apperr.Internal, err, "failed to look up existing document")
	}
	if existing != nil && existing.Checksum == checksum {
		return &Result{
			DocumentID:  existing.ID,
			Version:     existing.Version,
			ChunksTotal: len(chunker.Chunk(filePath, content)),
			DocType:     existing.DocType,
		}, nil
	}

	tx, err := ix.store.Documents.BeginTx(ctx)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "failed to begin sync transaction")
	}
	defer tx.Rollback(ctx)

	doc := &model.Document{
		ProjectID: projectID,
		FilePath:  filePath,
		Title:     titleFromPath(filePath),
		Content:   content,
		Checksum:  checksum,
		DocType:   docType,
		AgentID:   agentID,
	}
	if err := ix.store.Documents.Upsert(ctx, tx, doc); err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "failed to upsert document")
	}

	existingHashes, err := ix.store.Chunks.StoredHashes(ctx, doc.ID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "failed to load existing chunk hashes")
	}

	rawChunks := chunker.Chunk(filePath, content)

	var keepIDs = make(map[uuid.UUID]bool)
	var toEmbed []chunker.Chunk
	for _, c := range rawChunks {
		if id, ok := existingHashes[c.Hash]; ok {
			keepIDs[id] = true
			continue
		}
		toEmbed = append(toEmbed, c)
	}

	var orphans []uuid.UUID
	for hash, id := range existingHashes {
		_ = hash
		if !keepIDs[id] {
			orphans = append(orphans, id)
		}
	}
	if err := ix.store.Chunks.DeleteByIDs(ctx, tx, orphans); err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "failed to delete orphan chunks")
	}

	embedded := 0
	for i, c := range toEmbed {
		if i > 0 && ix.pacing > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(ix.pacing):
			}
		}

		contentType := embedding.ContentType(c.Metadata.ContentType)
		vec, ct, err := ix.gateway.EmbedPassage(ctx, c.Content, contentType)
		if err != nil {
			ix.log.Warn("chunk embed failed during sync", zap.String("file_path", filePath), zap.Int("chunk_index", c.Metadata.ChunkIndex), zap.Error(err))
			return nil, err
		}
		c.Metadata.ContentType = string(ct)

		dc := &model.DocumentChunk{
			DocumentID:     doc.ID,
			ContentChunk:   c.Content,
			ChunkHash:      c.Hash,
			Embedding:      vec,
			EmbeddingModel: ix.gateway.ModelFor(ct),
			Metadata:       c.Metadata,
		}
		if err := ix.store.Chunks.Insert(ctx, tx, dc); err != nil {
			return nil, apperr.Wrap(apperr.Internal, err, "failed to insert chunk")
		}
		embedded++
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "failed to commit sync transaction")
	}

	return &Result{
		DocumentID:     doc.ID,
		Version:        doc.Version,
		ChunksTotal:    len(rawChunks),
		ChunksReused:   len(rawChunks) - embedded,
		ChunksEmbedded: embedded,
		ChunksRemoved:  len(orphans),
		DocType:        doc.DocType,
	}, nil
}

func md5Hex(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

func titleFromPath(filePath string) string {
	base := filepath.Base(filePath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// InferDocType auto-categorizes a document from its path, the rule the
// coverage scan and sync path share (§4.4 step 3, §4.14).
func InferDocType(filePath string) *model.DocType {
	return inferDocType(filePath)
}

func inferDocType(filePath string) *model.DocType {
	lower := strings.ToLower(filePath)
	var dt model.DocType
	switch {
	case strings.Contains(lower, "architecture") || strings.Contains(lower, "/adr"):
		dt = model.DocTypeArchitecture
	case strings.Contains(lower, "test") || strings.Contains(lower, "testing"):
		dt = model.DocTypeTestingPattern
	case strings.Contains(lower, "contract") || strings.Contains(lower, "api"):
		dt = model.DocTypeContract
	case strings.Contains(lower, "readme") || strings.Contains(lower, "meta"):
		dt = model.DocTypeMeta
	case strings.Contains(lower, "template"):
		dt = model.DocTypeTemplate
	default:
		return nil
	}
	return &dt
}
