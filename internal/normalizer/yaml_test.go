package normalizer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func yamlText(t *testing.T, raw string) string {
	t.Helper()
	v, err := ParseYAML(raw)
	require.NoError(t, err)
	return StableStringify(v)
}

func TestParseYAML_Mapping(t *testing.T) {
	raw := "name: demo\ncount: 3\nratio: 0.5\nenabled: true\nnothing: ~\ntags:\n  - b\n  - a\nquoted: \"42\"\n"

	want := strings.Join([]string{
		`{`,
		`  "count": 3,`,
		`  "enabled": true,`,
		`  "name": "demo",`,
		`  "nothing": null,`,
		`  "quoted": "42",`,
		`  "ratio": 0.5,`,
		`  "tags": [`,
		`    "b",`,
		`    "a"`,
		`  ]`,
		`}`,
		``,
	}, "\n")
	assert.Equal(t, want, yamlText(t, raw))
}

func TestParseYAML_SharedAnchorIsCircular(t *testing.T) {
	raw := "base: &b\n  x: 1\nfirst: *b\nsecond: *b\n"

	want := strings.Join([]string{
		`{`,
		`  "base": {`,
		`    "x": 1`,
		`  },`,
		`  "first": "[Circular]",`,
		`  "second": "[Circular]"`,
		`}`,
		``,
	}, "\n")
	assert.Equal(t, want, yamlText(t, raw))
}

func TestParseYAML_MergeKeys(t *testing.T) {
	raw := "defaults: &d\n  a: 1\n  b: 2\nitem:\n  <<: *d\n  b: 3\n"

	want := strings.Join([]string{
		`{`,
		`  "defaults": {`,
		`    "a": 1,`,
		`    "b": 2`,
		`  },`,
		`  "item": {`,
		`    "a": 1,`,
		`    "b": 3`,
		`  }`,
		`}`,
		``,
	}, "\n")
	assert.Equal(t, want, yamlText(t, raw))
}

func TestParseYAML_Timestamp(t *testing.T) {
	assert.Equal(t, "{\n  \"when\": \"2024-01-02T00:00:00.000Z\"\n}\n", yamlText(t, "when: 2024-01-02\n"))
}

func TestParseYAML_EmptyIsNull(t *testing.T) {
	assert.Equal(t, "null\n", yamlText(t, ""))
}

func TestParseYAML_Failures(t *testing.T) {
	for _, raw := range []string{
		"a: 1\n---\nb: 2\n",
		"a: [1, 2\n",
		"key: value\n  bad: indent\n",
	} {
		_, err := ParseYAML(raw)
		assert.Error(t, err, raw)
	}
}
