package chunker

import (
	"regexp"
	"strings"

	"github.com/quoth-dev/quoth-mcp/internal/model"
)

// declStartRe matches the first line of a top-level declaration: a
// function, class, method, or similar construct. chunkCode treats a match
// at zero indentation as top level and a match at any deeper indentation
// as nested (methods); exported consts are matched by constStartRe. This is a
// line-boundary heuristic rather than a full parser — it finds where one
// declaration ends and the next begins without needing a grammar per
// language, which is what lets one chunker serve every recognized
// extension.
var declStartRe = regexp.MustCompile(
	`^(export\s+)?(public\s+|private\s+|protected\s+|static\s+)*(func|function|def|class|struct|interface|fn|impl)\s+\S`,
)

// constStartRe matches an exported top-level const/var declaration.
var constStartRe = regexp.MustCompile(`^(export\s+)?(const|var)\s+[A-Z]\w*\s*=`)

// chunkCode splits source into one chunk per top-level declaration. Each
// chunk records language, start_line, end_line, and parent_context (the
// enclosing declaration's name, when the chunk is nested — e.g. a method
// inside a class).
func chunkCode(content, language string) []Chunk {
	lines := strings.Split(content, "\n")

	type boundary struct {
		startLine int // 1-indexed
		context   string
	}
	var boundaries []boundary
	var currentContext string

	for i, line := range lines {
		trimmed := strings.TrimLeft(line, " \t")
		indent := len(line) - len(trimmed)

		if indent == 0 && (declStartRe.MatchString(trimmed) || constStartRe.MatchString(trimmed)) {
			boundaries = append(boundaries, boundary{startLine: i + 1, context: ""})
			currentContext = declName(trimmed)
			continue
		}
		if indent > 0 && declStartRe.MatchString(trimmed) {
			boundaries = append(boundaries, boundary{startLine: i + 1, context: currentContext})
		}
	}

	if len(boundaries) == 0 {
		return []Chunk{{
			Content:  content,
			Metadata: model.ChunkMetadata{Language: language, StartLine: 1, EndLine: len(lines)},
		}}
	}

	chunks := make([]Chunk, 0, len(boundaries)+1)
	if boundaries[0].startLine > 1 {
		lead := strings.Join(lines[:boundaries[0].startLine-1], "\n")
		if strings.TrimSpace(lead) != "" {
			chunks = append(chunks, Chunk{
				Content:  lead,
				Metadata: model.ChunkMetadata{Language: language, StartLine: 1, EndLine: boundaries[0].startLine - 1},
			})
		}
	}

	for i, b := range boundaries {
		end := len(lines)
		if i+1 < len(boundaries) {
			end = boundaries[i+1].startLine - 1
		}
		body := strings.Join(lines[b.startLine-1:end], "\n")
		chunks = append(chunks, Chunk{
			Content: body,
			Metadata: model.ChunkMetadata{
				Language:      language,
				StartLine:     b.startLine,
				EndLine:       end,
				ParentContext: b.context,
			},
		})
	}
	return chunks
}

// declName extracts the identifier following the declaration keyword, for
// use as ParentContext on nested chunks.
func declName(line string) string {
	fields := strings.Fields(line)
	for i, f := range fields {
		switch f {
		case "func", "function", "def", "class", "struct", "interface", "fn", "impl":
			if i+1 < len(fields) {
				name := fields[i+1]
				name = strings.TrimRight(name, "({:")
				return name
			}
		}
	}
	return ""
}
