package normalizer

import (
	"strings"

	"github.com/aleister1102/filecompare/internal/models"
)

var extensionKinds = map[string]models.FormatKind{
	"md":       models.KindMarkdown,
	"markdown": models.KindMarkdown,
	"json":     models.KindJSON,
	"yaml":     models.KindYAML,
	"yml":      models.KindYAML,
	"xml":      models.KindXML,
	"xlsx":     models.KindSpreadsheet,
	"xls":      models.KindSpreadsheet,
	"docx":     models.KindDocument,
	"pdf":      models.KindPDF,
	"pptx":     models.KindSlideDeck,
}

// FileExtension returns the lowercased text after the last dot of name, or
// "" when name has no dot.
func FileExtension(name string) string {
	idx := strings.LastIndexByte(name, '.')
	if idx < 0 {
		return ""
	}
	return strings.ToLower(name[idx+1:])
}

// DetectKind classifies a file by extension. Unknown and missing extensions
// are treated as plain text.
func DetectKind(name string) models.FormatKind {
	if kind, ok := extensionKinds[FileExtension(name)]; ok {
		return kind
	}
	return models.KindText
}
