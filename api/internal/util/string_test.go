package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripCodeFences(t *testing.T) {
	tests := map[string]string{
		"plain text":                          "plain text",
		"  ## Model Overview\n- x  ":          "## Model Overview\n- x",
		"```markdown\n## Model Overview\n```": "## Model Overview",
		"```\n## Parts List\n1x Pin```":       "## Parts List\n1x Pin",
		"```json\n{\"a\":1}\n```":             "{\"a\":1}",
		"```inline```":                        "inline",
	}
	for in, want := range tests {
		assert.Equal(t, want, StripCodeFences(in), in)
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 3))
	assert.Equal(t, "ab…", Truncate("abc", 2))
	assert.Equal(t, "1:17–…", Truncate("1:17–1:20", 5))
}
