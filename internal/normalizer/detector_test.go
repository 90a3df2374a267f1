package normalizer

import (
	"testing"

	"github.com/aleister1102/filecompare/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestDetectKind(t *testing.T) {
	tests := []struct {
		name string
		want models.FormatKind
	}{
		{"README.md", models.KindMarkdown},
		{"notes.Markdown", models.KindMarkdown},
		{"package.JSON", models.KindJSON},
		{"ci.yml", models.KindYAML},
		{"ci.yaml", models.KindYAML},
		{"pom.xml", models.KindXML},
		{"book.xlsx", models.KindSpreadsheet},
		{"legacy.xls", models.KindSpreadsheet},
		{"report.docx", models.KindDocument},
		{"paper.pdf", models.KindPDF},
		{"deck.pptx", models.KindSlideDeck},
		{"main.go", models.KindText},
		{"Makefile", models.KindText},
		{"archive.tar.gz", models.KindText},
		{"config.json.bak", models.KindText},
		{"trailingdot.", models.KindText},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectKind(tt.name))
		})
	}
}

func TestFileExtension(t *testing.T) {
	assert.Equal(t, "gz", FileExtension("a.tar.GZ"))
	assert.Equal(t, "", FileExtension("noext"))
	assert.Equal(t, "", FileExtension("dot."))
	assert.Equal(t, "env", FileExtension(".env"))
}
