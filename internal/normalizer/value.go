package normalizer

// ValueKind tags the variant held by a Value.
type ValueKind int

const (
	NullKind ValueKind = iota
	BoolKind
	NumberKind
	StringKind
	ArrayKind
	ObjectKind
)

// Value is the generic document tree produced by the JSON, YAML and XML
// readers. Objects are held by pointer so that shared or cyclic references
// keep their identity.
type Value struct {
	Kind   ValueKind
	Bool   bool
	Number float64
	Str    string
	Items  []*Value
	Object *Object
}

// Object is an insertion-ordered string-keyed map.
type Object struct {
	keys   []string
	fields map[string]*Value
}

// NewObject creates an empty object
func NewObject() *Object {
	return &Object{fields: make(map[string]*Value)}
}

// Set stores v under key. A repeated key keeps its first position and takes
// the latest value.
func (o *Object) Set(key string, v *Value) {
	if _, exists := o.fields[key]; !exists {
		o.keys = append(o.keys, key)
	}
	o.fields[key] = v
}

func (o *Object) Get(key string) (*Value, bool) {
	v, ok := o.fields[key]
	return v, ok
}

func (o *Object) Has(key string) bool {
	_, ok := o.fields[key]
	return ok
}

// Keys returns the keys in insertion order.
func (o *Object) Keys() []string {
	out := make([]string, len(o.keys))
	copy(out, o.keys)
	return out
}

func (o *Object) Len() int {
	return len(o.keys)
}

func Null() *Value { return &Value{Kind: NullKind} }

func Bool(b bool) *Value { return &Value{Kind: BoolKind, Bool: b} }

func Number(f float64) *Value { return &Value{Kind: NumberKind, Number: f} }

func String(s string) *Value { return &Value{Kind: StringKind, Str: s} }

func Array(items ...*Value) *Value { return &Value{Kind: ArrayKind, Items: items} }

func ObjectValue(o *Object) *Value { return &Value{Kind: ObjectKind, Object: o} }
