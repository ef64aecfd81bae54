package indexer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/quoth-dev/quoth-mcp/internal/indexer"
	"github.com/quoth-dev/quoth-mcp/internal/model"
)

func TestInferDocType(t *testing.T) {
	cases := []struct {
		path string
		want *model.DocType
	}{
		{"docs/architecture/overview.md", dt(model.DocTypeArchitecture)},
		{"docs/adr/0001-use-postgres.md", dt(model.DocTypeArchitecture)},
		{"internal/search/testing_patterns.md", dt(model.DocTypeTestingPattern)},
		{"api/contract.md", dt(model.DocTypeContract)},
		{"README.md", dt(model.DocTypeMeta)},
		{"docs/templates/service.md", dt(model.DocTypeTemplate)},
		{"src/handler.go", nil},
	}
	for _, c := range cases {
		got := indexer.InferDocType(c.path)
		if c.want == nil {
			assert.Nil(t, got, "path=%s", c.path)
			continue
		}
		if assert.NotNil(t, got, "path=%s", c.path) {
			assert.Equal(t, *c.want, *got)
		}
	}
}

func dt(d model.DocType) *model.DocType { return &d }
