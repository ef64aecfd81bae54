package chunker_test

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/quoth-dev/quoth-mcp/internal/chunker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func md5hex(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

func TestChunk_Markdown_SplitsOnH2(t *testing.T) {
	content := strings.Repeat("x", 60) + "\n\n## Section A\n" + strings.Repeat("a", 60) + "\n\n## Section B\n" + strings.Repeat("b", 60)

	chunks := chunker.Chunk("docs/arch.md", content)
	require.Len(t, chunks, 3)
	assert.Contains(t, chunks[0].Content, strings.Repeat("x", 10))
	assert.True(t, strings.HasPrefix(chunks[1].Content, "## Section A"))
	assert.True(t, strings.HasPrefix(chunks[2].Content, "## Section B"))
	for i, c := range chunks {
		assert.Equal(t, i, c.Metadata.ChunkIndex)
		assert.Equal(t, md5hex(strings.TrimSpace(c.Content)), c.Hash)
	}
}

func TestChunk_Markdown_NoHeadings_SingleChunk(t *testing.T) {
	content := "Just a paragraph with no H2 headings at all, long enough to survive the minimum length filter easily."
	chunks := chunker.Chunk("docs/plain.md", content)
	require.Len(t, chunks, 1)
	assert.Equal(t, strings.TrimSpace(content), chunks[0].Content)
}

func TestChunk_Markdown_PreservesFrontmatter(t *testing.T) {
	content := "---\ndoc_type: architecture\n---\n\n# Title\n\nIntro paragraph that is long enough to not get filtered out by the length rule.\n\n## Details\n\n" + strings.Repeat("d", 60)

	chunks := chunker.Chunk("docs/with-fm.md", content)
	require.NotEmpty(t, chunks)
	assert.Contains(t, chunks[0].Content, "doc_type: architecture")
}

func TestChunk_DiscardsShortChunks(t *testing.T) {
	// Every surviving chunk must be at least MinChunkLength long (§8 boundary:
	// exactly 50 is kept, 49 is dropped), regardless of the splitter used.
	kept := strings.Repeat("k", 50)
	dropped := strings.Repeat("d", 30)
	content := kept + "\n\n## too short\n" + dropped

	chunks := chunker.Chunk("docs/short.md", content)
	for _, c := range chunks {
		assert.GreaterOrEqual(t, len(c.Content), chunker.MinChunkLength)
	}
}

func TestChunk_AllDiscarded_FallsBackToWholeDocument(t *testing.T) {
	content := "short"
	chunks := chunker.Chunk("docs/tiny.md", content)
	require.Len(t, chunks, 1)
	assert.Equal(t, "short", chunks[0].Content)
}

func TestChunk_Code_OneChunkPerTopLevelDecl(t *testing.T) {
	content := `package main

func add(a, b int) int {
	// adds two integers together and returns the sum
	return a + b
}

func subtract(a, b int) int {
	// subtracts b from a and returns the difference
	return a - b
}
`
	chunks := chunker.Chunk("pkg/math.go", content)
	require.Len(t, chunks, 2)
	assert.Equal(t, "go", chunks[0].Metadata.Language)
	assert.Greater(t, chunks[0].Metadata.StartLine, 0)
	assert.Contains(t, chunks[0].Content, "func add")
	assert.Contains(t, chunks[1].Content, "func subtract")
}

func TestChunk_IsPure(t *testing.T) {
	content := "## A\n" + strings.Repeat("a", 60)
	first := chunker.Chunk("docs/x.md", content)
	second := chunker.Chunk("docs/x.md", content)
	assert.Equal(t, first, second)
}
