package normalizer

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStableStringify_SortsKeysAndIndents(t *testing.T) {
	v, err := ParseLenientJSON(`{"b":1,"a":[1,{"d":null,"c":"x"}],"e":{},"f":[]}`)
	require.NoError(t, err)

	want := strings.Join([]string{
		`{`,
		`  "a": [`,
		`    1,`,
		`    {`,
		`      "c": "x",`,
		`      "d": null`,
		`    }`,
		`  ],`,
		`  "b": 1,`,
		`  "e": {},`,
		`  "f": []`,
		`}`,
		``,
	}, "\n")
	assert.Equal(t, want, StableStringify(v))
}

func TestStableStringify_IndexKeysFirst(t *testing.T) {
	v, err := ParseLenientJSON(`{"b":1,"10":2,"2":3,"a":4,"01":5}`)
	require.NoError(t, err)

	out := StableStringify(v)
	order := []string{`"2"`, `"10"`, `"01"`, `"a"`, `"b"`}
	last := -1
	for _, key := range order {
		idx := strings.Index(out, key+":")
		require.GreaterOrEqual(t, idx, 0, key)
		assert.Greater(t, idx, last, "key %s out of order in %s", key, out)
		last = idx
	}
}

func TestStableStringify_CaseInsensitiveCollation(t *testing.T) {
	v, err := ParseLenientJSON(`{"c":1,"B":2,"a":3}`)
	require.NoError(t, err)

	assert.Equal(t, "{\n  \"a\": 3,\n  \"B\": 2,\n  \"c\": 1\n}\n", StableStringify(v))
}

func TestStableStringify_Scalars(t *testing.T) {
	assert.Equal(t, "null\n", StableStringify(Null()))
	assert.Equal(t, "true\n", StableStringify(Bool(true)))
	assert.Equal(t, "\"a\\\"b\\\\\\n\\u0001é\"\n", StableStringify(String("a\"b\\\n\x01é")))
}

func TestStableStringify_CycleAndSharedObjects(t *testing.T) {
	shared := NewObject()
	shared.Set("x", Number(1))

	root := NewObject()
	root.Set("first", ObjectValue(shared))
	root.Set("second", ObjectValue(shared))
	root.Set("self", ObjectValue(root))

	want := strings.Join([]string{
		`{`,
		`  "first": {`,
		`    "x": 1`,
		`  },`,
		`  "second": "[Circular]",`,
		`  "self": "[Circular]"`,
		`}`,
		``,
	}, "\n")
	assert.Equal(t, want, StableStringify(ObjectValue(root)))
}

func TestStableStringify_ArrayCycle(t *testing.T) {
	arr := Array(Number(1))
	arr.Items = append(arr.Items, arr)

	assert.Equal(t, "[\n  1,\n  \"[Circular]\"\n]\n", StableStringify(arr))
}

func TestStableStringify_RoundTrip(t *testing.T) {
	inputs := []string{
		`{"z":[3,2,1],"a":{"y":true,"x":null},"m":"text \"quoted\""}`,
		`[{"b":1.5,"a":-0.000001},[],{}]`,
		`"just a string"`,
		`{"10":1,"9":2,"nested":{"k":[{"b":2,"a":1}]}}`,
	}

	for _, in := range inputs {
		v, err := ParseLenientJSON(in)
		require.NoError(t, err)
		first := StableStringify(v)

		again, err := ParseLenientJSON(first)
		require.NoError(t, err)
		assert.Equal(t, first, StableStringify(again))
	}
}

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0"},
		{math.Copysign(0, -1), "0"},
		{1, "1"},
		{-2.5, "-2.5"},
		{1.5, "1.5"},
		{math.Nextafter(0.3, 1), "0.30000000000000004"},
		{1e21, "1e+21"},
		{1.5e300, "1.5e+300"},
		{1e20, "100000000000000000000"},
		{1e-7, "1e-7"},
		{1.25e-8, "1.25e-8"},
		{0.000001, "0.000001"},
		{123.456, "123.456"},
		{math.NaN(), "null"},
		{math.Inf(1), "null"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatNumber(tt.in))
		})
	}
}
