// Package genesis implements Genesis Persona Delivery (C12): a fixed,
// parameterized prompt instructing the calling AI to adopt the "Genesis
// Architect" role. No code executes server-side; the prompt is a text
// artifact only. See spec.md §4.12.
package genesis

import "strings"

// Focus selects which variant of the Genesis prompt to emit.
type Focus string

const (
	FocusFullScan    Focus = "full_scan"
	FocusUpdateOnly  Focus = "update_only"
)

const basePrompt = `You are the Genesis Architect. Your task is to build this project's documentation index from the ground up.

Follow these steps, in order:
1. Scan the repository's structure and source files to understand what it does and how it is organized.
2. Deduce the system's architecture: its major components, how they communicate, and the design decisions that shape them.
3. Extract recurring patterns: testing conventions, API contracts, naming and error-handling idioms that future contributors should follow.
4. Submit one document per architectural concern via propose_update, each with a clear file_path, reasoning, and an evidence_snippet drawn from the actual source.

Write documentation for engineers who have never seen this codebase. Be concrete: cite file paths and real code, not generic advice.`

// Prompt returns the parameterized Genesis prompt text. focus injects an
// "update only" directive when set to FocusUpdateOnly; languageHint, if
// non-empty, injects a language context line.
func Prompt(focus Focus, languageHint string) string {
	var b strings.Builder
	b.WriteString(basePrompt)

	if focus == FocusUpdateOnly {
		b.WriteString("\n\nScope note: this is an update pass, not a full scan. Limit yourself to documents whose underlying code has changed since they were last written; leave unaffected documents untouched.")
	}

	if languageHint != "" {
		b.WriteString("\n\nLanguage context: this repository is primarily written in " + languageHint + ". Use its idioms and conventions when describing patterns.")
	}

	return b.String()
}
