package models

// FormatKind identifies how an input is reduced to canonical text.
type FormatKind string

const (
	KindText        FormatKind = "text"
	KindMarkdown    FormatKind = "markdown"
	KindJSON        FormatKind = "json"
	KindYAML        FormatKind = "yaml"
	KindXML         FormatKind = "xml"
	KindSpreadsheet FormatKind = "spreadsheet"
	KindDocument    FormatKind = "document"
	KindPDF         FormatKind = "pdf"
	KindSlideDeck   FormatKind = "slidedeck"
	KindUnsupported FormatKind = "unsupported"
)

// AllFormatKinds lists every kind in declaration order.
func AllFormatKinds() []FormatKind {
	return []FormatKind{
		KindText, KindMarkdown, KindJSON, KindYAML, KindXML,
		KindSpreadsheet, KindDocument, KindPDF, KindSlideDeck, KindUnsupported,
	}
}

// IsBinaryContainer reports whether the kind is decoded from a binary container.
func (k FormatKind) IsBinaryContainer() bool {
	switch k {
	case KindSpreadsheet, KindDocument, KindPDF:
		return true
	default:
		return false
	}
}

// IsTextExtractable reports whether the kind yields any canonical text.
func (k FormatKind) IsTextExtractable() bool {
	return k != KindSlideDeck && k != KindUnsupported
}

// ParsedInput is the Format Normalizer's output for one file.
type ParsedInput struct {
	Kind FormatKind `json:"kind"`
	Name string     `json:"name"`
	Size int64      `json:"size"`
	Text string     `json:"text"`
}

// Ref returns the name/size pair recorded in comparison results.
func (p ParsedInput) Ref() FileRef {
	return FileRef{Name: p.Name, Size: p.Size}
}
