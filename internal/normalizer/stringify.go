package normalizer

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// CircularMarker replaces any object reached a second time while stringifying.
const CircularMarker = "[Circular]"

const indentUnit = "  "

// StableStringify renders v as 2-space indented JSON with every object's keys
// sorted, followed by a newline. Output is byte-stable for equal trees
// regardless of the source key order.
func StableStringify(v *Value) string {
	c := &canonicalizer{
		seen:     make(map[*Object]struct{}),
		onPath:   make(map[*Value]struct{}),
		collator: collate.New(language.Und),
	}
	sorted := c.canonicalize(v)

	var b strings.Builder
	encodeValue(&b, sorted, 0)
	b.WriteByte('\n')
	return b.String()
}

// canonicalizer rebuilds a tree with object keys in collation order and
// shared or cyclic objects replaced by CircularMarker. The seen set lives for
// the whole call.
type canonicalizer struct {
	seen     map[*Object]struct{}
	onPath   map[*Value]struct{}
	collator *collate.Collator
}

func (c *canonicalizer) canonicalize(v *Value) *Value {
	if v == nil {
		return Null()
	}

	switch v.Kind {
	case ArrayKind:
		if _, cyclic := c.onPath[v]; cyclic {
			return String(CircularMarker)
		}
		c.onPath[v] = struct{}{}
		defer delete(c.onPath, v)

		items := make([]*Value, len(v.Items))
		for i, item := range v.Items {
			items[i] = c.canonicalize(item)
		}
		return Array(items...)

	case ObjectKind:
		if v.Object == nil {
			return ObjectValue(NewObject())
		}
		if _, visited := c.seen[v.Object]; visited {
			return String(CircularMarker)
		}
		c.seen[v.Object] = struct{}{}

		keys := v.Object.Keys()
		sort.SliceStable(keys, func(i, j int) bool {
			return c.less(keys[i], keys[j])
		})

		out := NewObject()
		for _, key := range keys {
			child, _ := v.Object.Get(key)
			out.Set(key, c.canonicalize(child))
		}
		return ObjectValue(out)

	default:
		return v
	}
}

func (c *canonicalizer) less(a, b string) bool {
	if cmp := c.collator.CompareString(a, b); cmp != 0 {
		return cmp < 0
	}
	return a < b
}

func encodeValue(b *strings.Builder, v *Value, depth int) {
	switch v.Kind {
	case NullKind:
		b.WriteString("null")
	case BoolKind:
		b.WriteString(strconv.FormatBool(v.Bool))
	case NumberKind:
		b.WriteString(FormatNumber(v.Number))
	case StringKind:
		quoteString(b, v.Str)
	case ArrayKind:
		if len(v.Items) == 0 {
			b.WriteString("[]")
			return
		}
		b.WriteString("[\n")
		for i, item := range v.Items {
			writeIndent(b, depth+1)
			encodeValue(b, item, depth+1)
			if i < len(v.Items)-1 {
				b.WriteByte(',')
			}
			b.WriteByte('\n')
		}
		writeIndent(b, depth)
		b.WriteByte(']')
	case ObjectKind:
		keys := propertyOrder(v.Object.Keys())
		if len(keys) == 0 {
			b.WriteString("{}")
			return
		}
		b.WriteString("{\n")
		for i, key := range keys {
			child, _ := v.Object.Get(key)
			writeIndent(b, depth+1)
			quoteString(b, key)
			b.WriteString(": ")
			encodeValue(b, child, depth+1)
			if i < len(keys)-1 {
				b.WriteByte(',')
			}
			b.WriteByte('\n')
		}
		writeIndent(b, depth)
		b.WriteByte('}')
	}
}

func writeIndent(b *strings.Builder, depth int) {
	for i := 0; i < depth; i++ {
		b.WriteString(indentUnit)
	}
}

// propertyOrder puts array-index keys first in ascending numeric order and
// keeps the remaining keys in their given order.
func propertyOrder(keys []string) []string {
	type indexKey struct {
		key string
		n   uint32
	}
	var indices []indexKey
	rest := make([]string, 0, len(keys))
	for _, k := range keys {
		if n, ok := arrayIndex(k); ok {
			indices = append(indices, indexKey{key: k, n: n})
			continue
		}
		rest = append(rest, k)
	}
	if len(indices) == 0 {
		return rest
	}

	sort.Slice(indices, func(i, j int) bool { return indices[i].n < indices[j].n })
	out := make([]string, 0, len(keys))
	for _, ik := range indices {
		out = append(out, ik.key)
	}
	return append(out, rest...)
}

// arrayIndex reports whether k is a canonical array index (0..2^32-2).
func arrayIndex(k string) (uint32, bool) {
	if k == "" || len(k) > 10 || (len(k) > 1 && k[0] == '0') {
		return 0, false
	}
	n, err := strconv.ParseUint(k, 10, 32)
	if err != nil || n == math.MaxUint32 {
		return 0, false
	}
	return uint32(n), true
}

// FormatNumber formats f the way JavaScript prints numbers. Non-finite values
// render as null.
func FormatNumber(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "null"
	}
	if f == 0 {
		return "0"
	}
	if f == math.Trunc(f) && math.Abs(f) < 1e21 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}

	sign := ""
	if f < 0 {
		sign = "-"
	}
	sci := strconv.FormatFloat(math.Abs(f), 'e', -1, 64)
	mantissa, expPart, _ := strings.Cut(sci, "e")
	digits := strings.Replace(mantissa, ".", "", 1)
	exp, _ := strconv.Atoi(expPart)
	k, n := len(digits), exp+1

	switch {
	case k <= n && n <= 21:
		return sign + digits + strings.Repeat("0", n-k)
	case 0 < n && n <= 21:
		return sign + digits[:n] + "." + digits[n:]
	case -6 < n && n <= 0:
		return sign + "0." + strings.Repeat("0", -n) + digits
	}

	e := n - 1
	expSign := "+"
	if e < 0 {
		expSign = "-"
		e = -e
	}
	if k == 1 {
		return fmt.Sprintf("%s%se%s%d", sign, digits, expSign, e)
	}
	return fmt.Sprintf("%s%s.%se%s%d", sign, digits[:1], digits[1:], expSign, e)
}

func quoteString(b *strings.Builder, s string) {
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\b':
			b.WriteString(`\b`)
		case '\f':
			b.WriteString(`\f`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			if r < 0x20 {
				fmt.Fprintf(b, `\u%04x`, r)
				continue
			}
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
}
