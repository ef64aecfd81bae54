package embedding_test

import (
	"testing"

	"github.com/quoth-dev/quoth-mcp/internal/embedding"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		text string
		want embedding.ContentType
	}{
		{
			name: "prose",
			text: "This document describes the billing workflow.\nIt has no code in it at all, just plain English sentences.",
			want: embedding.ContentText,
		},
		{
			name: "go function",
			text: "func add(a, b int) int {\n\treturn a + b\n}\n",
			want: embedding.ContentCode,
		},
		{
			name: "fenced code block",
			text: "```go\nfunc main() {}\n```",
			want: embedding.ContentCode,
		},
		{
			name: "indented python",
			text: "def handler(request):\n    if request.method == 'GET':\n        return respond(request)\n",
			want: embedding.ContentCode,
		},
		{
			name: "empty",
			text: "",
			want: embedding.ContentText,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, embedding.Classify(tc.text))
		})
	}
}
