package genesis_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/quoth-dev/quoth-mcp/internal/genesis"
)

func TestPromptFullScan(t *testing.T) {
	p := genesis.Prompt(genesis.FocusFullScan, "")
	assert.Contains(t, p, "Genesis Architect")
	assert.NotContains(t, p, "update pass")
	assert.NotContains(t, p, "Language context")
}

func TestPromptUpdateOnly(t *testing.T) {
	p := genesis.Prompt(genesis.FocusUpdateOnly, "")
	assert.Contains(t, p, "this is an update pass")
}

func TestPromptLanguageHint(t *testing.T) {
	p := genesis.Prompt(genesis.FocusFullScan, "Go")
	assert.True(t, strings.Contains(p, "primarily written in Go"))
}

func TestPromptBothOptions(t *testing.T) {
	p := genesis.Prompt(genesis.FocusUpdateOnly, "Rust")
	assert.Contains(t, p, "update pass")
	assert.Contains(t, p, "primarily written in Rust")
}
