package normalizer

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const isoTimestampLayout = "2006-01-02T15:04:05.000Z"

// ParseYAML reads the first and only document of raw into a Value tree.
// An empty stream is null. Aliases resolve to the anchored node's Value, so
// an anchor used twice yields one shared object.
func ParseYAML(raw string) (*Value, error) {
	dec := yaml.NewDecoder(strings.NewReader(raw))

	var doc yaml.Node
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return Null(), nil
		}
		return nil, err
	}

	var extra yaml.Node
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		if err != nil {
			return nil, err
		}
		return nil, errors.New("expected a single document in the stream")
	}

	b := &yamlBuilder{built: make(map[*yaml.Node]*Value)}
	return b.build(&doc)
}

type yamlBuilder struct {
	built map[*yaml.Node]*Value
}

func (b *yamlBuilder) build(n *yaml.Node) (*Value, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return Null(), nil
		}
		return b.build(n.Content[0])

	case yaml.AliasNode:
		if n.Alias == nil {
			return nil, fmt.Errorf("line %d: unresolved alias", n.Line)
		}
		return b.build(n.Alias)

	case yaml.SequenceNode:
		if v, ok := b.built[n]; ok {
			return v, nil
		}
		v := Array()
		b.built[n] = v
		for _, child := range n.Content {
			item, err := b.build(child)
			if err != nil {
				return nil, err
			}
			v.Items = append(v.Items, item)
		}
		return v, nil

	case yaml.MappingNode:
		return b.mapping(n)

	case yaml.ScalarNode:
		return scalarValue(n)

	default:
		return nil, fmt.Errorf("line %d: unexpected node kind %d", n.Line, n.Kind)
	}
}

func (b *yamlBuilder) mapping(n *yaml.Node) (*Value, error) {
	if v, ok := b.built[n]; ok {
		return v, nil
	}
	obj := NewObject()
	v := ObjectValue(obj)
	b.built[n] = v

	var merges []*yaml.Node
	for i := 0; i+1 < len(n.Content); i += 2 {
		keyNode, valueNode := n.Content[i], n.Content[i+1]
		if keyNode.Kind == yaml.ScalarNode && keyNode.ShortTag() == "!!merge" {
			merges = append(merges, valueNode)
			continue
		}

		key, err := keyString(keyNode)
		if err != nil {
			return nil, err
		}
		child, err := b.build(valueNode)
		if err != nil {
			return nil, err
		}
		obj.Set(key, child)
	}

	// Explicit keys win over merged ones; earlier merge sources win over later.
	for _, m := range merges {
		if err := b.merge(obj, m); err != nil {
			return nil, err
		}
	}
	return v, nil
}

func (b *yamlBuilder) merge(dst *Object, src *yaml.Node) error {
	for src.Kind == yaml.AliasNode && src.Alias != nil {
		src = src.Alias
	}

	switch src.Kind {
	case yaml.MappingNode:
		v, err := b.mapping(src)
		if err != nil {
			return err
		}
		for _, key := range v.Object.Keys() {
			if !dst.Has(key) {
				child, _ := v.Object.Get(key)
				dst.Set(key, child)
			}
		}
		return nil
	case yaml.SequenceNode:
		for _, item := range src.Content {
			if err := b.merge(dst, item); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("line %d: cannot merge a non-mapping value", src.Line)
	}
}

func keyString(n *yaml.Node) (string, error) {
	for n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	if n.Kind != yaml.ScalarNode {
		return "", fmt.Errorf("line %d: unsupported complex mapping key", n.Line)
	}

	v, err := scalarValue(n)
	if err != nil {
		return "", err
	}
	switch v.Kind {
	case NullKind:
		return "null", nil
	case BoolKind:
		if v.Bool {
			return "true", nil
		}
		return "false", nil
	case NumberKind:
		return numberKey(v.Number), nil
	default:
		return v.Str, nil
	}
}

// numberKey converts a numeric key the way property names are derived from
// numbers.
func numberKey(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	default:
		return FormatNumber(f)
	}
}

func scalarValue(n *yaml.Node) (*Value, error) {
	switch n.ShortTag() {
	case "!!null":
		return Null(), nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return nil, err
		}
		return Bool(b), nil
	case "!!int", "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return nil, err
		}
		return Number(f), nil
	case "!!timestamp":
		var t time.Time
		if err := n.Decode(&t); err != nil {
			return nil, err
		}
		return String(t.UTC().Format(isoTimestampLayout)), nil
	default:
		return String(n.Value), nil
	}
}
