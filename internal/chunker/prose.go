package chunker

import (
	"strings"

	"github.com/quoth-dev/quoth-mcp/internal/model"
)

// chunkProse splits markdown on level-2 headers. Content preceding the
// first "## " header is an implicit leading chunk; YAML frontmatter
// (delimited by "---" fences at the very top of the document) is kept
// attached to that leading chunk rather than split off on its own.
func chunkProse(content string) []Chunk {
	frontmatter, rest := splitFrontmatter(content)

	lines := strings.Split(rest, "\n")
	var sections [][]string
	var current []string
	for _, line := range lines {
		if strings.HasPrefix(line, "## ") {
			sections = append(sections, current)
			current = []string{line}
			continue
		}
		current = append(current, line)
	}
	sections = append(sections, current)

	chunks := make([]Chunk, 0, len(sections))
	for i, sec := range sections {
		body := strings.Join(sec, "\n")
		if i == 0 && frontmatter != "" {
			body = frontmatter + "\n" + body
		}
		if strings.TrimSpace(body) == "" {
			continue
		}
		chunks = append(chunks, Chunk{
			Content:  body,
			Metadata: model.ChunkMetadata{},
		})
	}
	return chunks
}

// splitFrontmatter peels off a leading "---\n...\n---" YAML block, if
// present, and returns it separately from the remaining body.
func splitFrontmatter(content string) (frontmatter, rest string) {
	trimmed := strings.TrimPrefix(content, "\xef\xbb\xbf") // tolerate a BOM
	if !strings.HasPrefix(trimmed, "---\n") && trimmed != "---" {
		return "", content
	}

	lines := strings.Split(trimmed, "\n")
	if len(lines) < 2 {
		return "", content
	}
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			return strings.Join(lines[:i+1], "\n"), strings.Join(lines[i+1:], "\n")
		}
	}
	return "", content
}
