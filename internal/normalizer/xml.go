package normalizer

import (
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/antchfx/xmlquery"
)

const (
	xmlAttributePrefix = "@_"
	xmlTextKey         = "#text"
)

var (
	errNoRootElement = errors.New("xml document has no root element")

	xmlHexNumber     = regexp.MustCompile(`^[-+]?0x[a-fA-F0-9]+$`)
	xmlDecimalNumber = regexp.MustCompile(`^([-+])?(0*)(\.[0-9]+([eE]-?[0-9]+)?|[0-9]+(\.[0-9]+)?([eE]-?[0-9]+)?)$`)
)

// ParseXML converts an XML document into a Value tree: attributes become
// "@_name" string entries, text becomes "#text", repeated sibling elements
// become arrays and a text-only element collapses to its text value.
func ParseXML(raw string) (*Value, error) {
	doc, err := xmlquery.Parse(strings.NewReader(raw))
	if err != nil {
		return nil, err
	}
	if !hasXMLDeclaration(raw) {
		for c := doc.FirstChild; c != nil && c.Type != xmlquery.ElementNode; c = c.NextSibling {
			if c.Type == xmlquery.DeclarationNode && c.Data == "xml" {
				xmlquery.RemoveFromTree(c)
				break
			}
		}
	}

	var lastElement *xmlquery.Node
	for c := doc.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == xmlquery.ElementNode {
			lastElement = c
		}
	}
	if lastElement == nil {
		return nil, errNoRootElement
	}

	return xmlNodeValue(doc, lastElement), nil
}

// hasXMLDeclaration reports whether raw opens with an <?xml ...?>
// declaration. The parser adds one to documents that lack it.
func hasXMLDeclaration(raw string) bool {
	rest, ok := strings.CutPrefix(strings.TrimLeft(raw, " \t\r\n\ufeff"), "<?xml")
	return ok && rest != "" && (rest[0] == '?' || isXMLSpace(rest[0]))
}

func isXMLSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}

// xmlNodeValue converts n. Text after stopText is ignored; a nil stopText
// keeps all text.
func xmlNodeValue(n *xmlquery.Node, stopText *xmlquery.Node) *Value {
	obj := NewObject()
	for _, attr := range n.Attr {
		obj.Set(xmlAttributePrefix+xmlAttrName(attr), String(attr.Value))
	}
	hasAttributes := obj.Len() > 0

	var segments []*Value
	hasChildren := false
	textOpen := true

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case xmlquery.ElementNode:
			hasChildren = true
			appendXMLChild(obj, xmlNodeName(c), xmlNodeValue(c, nil))
		case xmlquery.DeclarationNode:
			hasChildren = true
			appendXMLChild(obj, "?"+c.Data, xmlDeclarationValue(c))
		case xmlquery.TextNode, xmlquery.CharDataNode:
			if textOpen && c.Data != "" {
				segments = append(segments, xmlTextValue(c.Data))
			}
		}
		if c == stopText {
			textOpen = false
		}
	}

	text := joinXMLText(segments)
	if !hasAttributes && !hasChildren {
		if text == nil {
			return String("")
		}
		return text
	}
	if text != nil {
		obj.Set(xmlTextKey, text)
	}
	return ObjectValue(obj)
}

func xmlDeclarationValue(n *xmlquery.Node) *Value {
	if len(n.Attr) == 0 {
		return String("")
	}
	obj := NewObject()
	for _, attr := range n.Attr {
		obj.Set(xmlAttributePrefix+xmlAttrName(attr), String(attr.Value))
	}
	return ObjectValue(obj)
}

func appendXMLChild(obj *Object, name string, v *Value) {
	existing, ok := obj.Get(name)
	if !ok {
		obj.Set(name, v)
		return
	}
	if existing.Kind == ArrayKind {
		existing.Items = append(existing.Items, v)
		return
	}
	obj.Set(name, Array(existing, v))
}

func xmlNodeName(n *xmlquery.Node) string {
	if n.Prefix != "" {
		return n.Prefix + ":" + n.Data
	}
	return n.Data
}

func xmlAttrName(a xmlquery.Attr) string {
	if a.Name.Space != "" {
		return a.Name.Space + ":" + a.Name.Local
	}
	return a.Name.Local
}

// joinXMLText returns the single text segment as-is, or the concatenation of
// several segments as a string.
func joinXMLText(segments []*Value) *Value {
	switch len(segments) {
	case 0:
		return nil
	case 1:
		return segments[0]
	}
	var b strings.Builder
	for _, s := range segments {
		b.WriteString(scalarText(s))
	}
	return String(b.String())
}

func scalarText(v *Value) string {
	switch v.Kind {
	case BoolKind:
		return strconv.FormatBool(v.Bool)
	case NumberKind:
		return FormatNumber(v.Number)
	default:
		return v.Str
	}
}

// xmlTextValue converts text without surrounding whitespace to a boolean or
// a number, and keeps everything else as a string. Hexadecimal integers and
// decimals with leading zeros are numbers; other decimals are numbers only
// when they print back without losing digits.
func xmlTextValue(s string) *Value {
	if s == "" || strings.TrimSpace(s) != s {
		return String(s)
	}
	switch s {
	case "true":
		return Bool(true)
	case "false":
		return Bool(false)
	}
	if f, ok := xmlNumber(s); ok {
		return Number(f)
	}
	return String(s)
}

func xmlNumber(s string) (float64, bool) {
	if xmlHexNumber.MatchString(s) {
		sign, digits, _ := strings.Cut(s, "0x")
		f, err := strconv.ParseFloat(sign+"0x"+digits+"p0", 64)
		return f, err == nil && !math.IsInf(f, 0)
	}

	m := xmlDecimalNumber.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}

	sign, leadingZeros, body := m[1], m[2], m[3]
	printed := FormatNumber(f)
	switch {
	case strings.ContainsAny(printed, "eE"), m[4] != "" || m[6] != "":
		return f, true
	case strings.Contains(s, "."):
		body = trimFractionZeros(body)
		return f, printed == body || sign != "" && printed == "-"+body
	case leadingZeros != "":
		return f, printed == body || printed == sign+body
	}
	return f, s == printed || s == sign+printed
}

// trimFractionZeros drops trailing fraction zeros and a dangling point, and
// gives a bare fraction its leading zero.
func trimFractionZeros(s string) string {
	if !strings.Contains(s, ".") {
		return s
	}
	s = strings.TrimRight(s, "0")
	switch {
	case s == ".":
		return "0"
	case s[0] == '.':
		return "0" + s
	case s[len(s)-1] == '.':
		return s[:len(s)-1]
	}
	return s
}
