// Package chunker implements the Chunker (C3): splitting a document into
// ordered, self-contained chunks. Code uses syntactic (declaration)
// boundaries; prose uses header boundaries. The chunker is pure — no I/O,
// no network calls — so it can run identically during sync and during
// tests.
package chunker

import (
	"crypto/md5"
	"encoding/hex"
	"path/filepath"
	"strings"

	"github.com/quoth-dev/quoth-mcp/internal/model"
)

// MinChunkLength is the minimum trimmed length a chunk must have to
// survive (spec.md §4.3): "Chunks shorter than 50 characters after
// trimming are discarded."
const MinChunkLength = 50

// Chunk is one self-contained fragment produced by Chunk, before it is
// embedded or compared against stored hashes.
type Chunk struct {
	Content  string
	Hash     string // md5(trimmed Content)
	Metadata model.ChunkMetadata
}

func hash(content string) string {
	sum := md5.Sum([]byte(content))
	return hex.EncodeToString(sum[:])
}

// languageByExt maps recognized source extensions to a language tag. Only
// extensions present here trigger the declaration-boundary code splitter
// (a line heuristic in code.go; no syntax tree is built); anything else is
// treated as prose.
var languageByExt = map[string]string{
	".go":   "go",
	".py":   "python",
	".js":   "javascript",
	".jsx":  "javascript",
	".ts":   "typescript",
	".tsx":  "typescript",
	".java": "java",
	".rb":   "ruby",
	".rs":   "rust",
	".c":    "c",
	".h":    "c",
	".cpp":  "cpp",
	".cc":   "cpp",
	".hpp":  "cpp",
	".cs":   "csharp",
	".php":  "php",
	".kt":   "kotlin",
	".swift": "swift",
}

// Chunk splits content into ordered chunks, selecting the declaration-
// boundary code splitter when filePath's extension identifies a recognized language,
// and the header-aware prose splitter otherwise.
func Chunk(filePath, content string) []Chunk {
	ext := strings.ToLower(filepath.Ext(filePath))

	var raw []Chunk
	if lang, ok := languageByExt[ext]; ok {
		raw = chunkCode(content, lang)
	} else {
		raw = chunkProse(content)
	}

	filtered := make([]Chunk, 0, len(raw))
	for _, c := range raw {
		trimmed := strings.TrimSpace(c.Content)
		if len(trimmed) < MinChunkLength {
			continue
		}
		c.Content = trimmed
		c.Hash = hash(trimmed)
		filtered = append(filtered, c)
	}

	if len(filtered) == 0 {
		whole := strings.TrimSpace(content)
		if whole == "" {
			return nil
		}
		return []Chunk{{
			Content:  whole,
			Hash:     hash(whole),
			Metadata: model.ChunkMetadata{ChunkIndex: 0},
		}}
	}

	for i := range filtered {
		filtered[i].Metadata.ChunkIndex = i
	}
	return filtered
}
