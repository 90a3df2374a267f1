package normalizer

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aleister1102/filecompare/internal/common"
	"github.com/aleister1102/filecompare/internal/config"
	"github.com/aleister1102/filecompare/internal/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func newTestNormalizer() *Normalizer {
	return NewNormalizer(config.NewDefaultParserConfig(), zerolog.Nop())
}

func TestParseFile_MalformedJSONFallsBackToText(t *testing.T) {
	got, err := newTestNormalizer().ParseFile(context.Background(), "bad.json", []byte("{a:1,}"))
	require.NoError(t, err)

	assert.Equal(t, models.KindText, got.Kind)
	assert.Equal(t, "{a:1,}", got.Text)
	assert.Equal(t, "bad.json", got.Name)
	assert.Equal(t, int64(6), got.Size)
}

func TestParseFile_StructuredKinds(t *testing.T) {
	n := newTestNormalizer()
	ctx := context.Background()

	tests := []struct {
		name     string
		data     string
		wantKind models.FormatKind
		wantText string
	}{
		{"a.json", `{"b":2,"a":1}`, models.KindJSON, "{\n  \"a\": 1,\n  \"b\": 2\n}\n"},
		{"a.yaml", "b: 2\na: 1\n", models.KindYAML, "{\n  \"a\": 1,\n  \"b\": 2\n}\n"},
		{"a.xml", "<r><b>2</b><a>1</a></r>", models.KindXML, "{\n  \"r\": {\n    \"a\": 1,\n    \"b\": 2\n  }\n}\n"},
		{"bad.yaml", "a: [1\n", models.KindText, "a: [1\n"},
		{"bad.xml", "<a><b></a>", models.KindText, "<a><b></a>"},
		{"notes.md", "# Title\r\n", models.KindMarkdown, "# Title\r\n"},
		{"bom.txt", "\ufeffhello", models.KindText, "hello"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := n.ParseFile(ctx, tt.name, []byte(tt.data))
			require.NoError(t, err)
			assert.Equal(t, tt.wantKind, got.Kind)
			assert.Equal(t, tt.wantText, got.Text)
		})
	}
}

func TestParseFile_NonExtractableKinds(t *testing.T) {
	n := newTestNormalizer()

	got, err := n.ParseFile(context.Background(), "deck.pptx", []byte("PK\x03\x04 not really"))
	require.NoError(t, err)
	assert.Equal(t, models.KindSlideDeck, got.Kind)
	assert.Empty(t, got.Text)
	assert.Equal(t, int64(15), got.Size)

	got, err = n.ParseAs(context.Background(), models.KindUnsupported, "blob.bin", []byte{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, models.KindUnsupported, got.Kind)
	assert.Empty(t, got.Text)
}

func TestParseFile_MaxSize(t *testing.T) {
	n := NewNormalizer(config.ParserConfig{MaxFileSizeMB: 1}, zerolog.Nop())

	_, err := n.ParseFile(context.Background(), "big.txt", make([]byte, 1024*1024+1))
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrInvalidInput))
}

func TestParseFile_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestNormalizer().ParseFile(ctx, "a.txt", []byte("x"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseFile_CorruptContainers(t *testing.T) {
	n := newTestNormalizer()

	oleGarbage := append(append([]byte(nil), oleSignature...), make([]byte, 1024)...)
	tests := []struct {
		name string
		data []byte
	}{
		{"broken.docx", []byte("definitely not a container")},
		{"broken.xlsx", []byte("definitely not a container")},
		{"legacy.xls", []byte("definitely not a container")},
		{"zeroed.xls", oleGarbage},
		{"short.xls", oleSignature},
		{"broken.pdf", []byte("definitely not a container")},
	}

	for _, tt := range tests {
		name := tt.name
		t.Run(name, func(t *testing.T) {
			_, err := n.ParseFile(context.Background(), name, tt.data)
			require.Error(t, err)
			assert.True(t, errors.Is(err, common.ErrContainerDecode))

			var decodeErr *common.ContainerDecodeError
			require.True(t, errors.As(err, &decodeErr))
			assert.Equal(t, name, decodeErr.Name)
		})
	}
}

func buildDocx(t *testing.T, body string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` + body + `</w:body></w:document>`))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestParseFile_Document(t *testing.T) {
	data := buildDocx(t,
		`<w:p><w:pPr><w:tabs><w:tab w:val="left"/></w:tabs></w:pPr><w:r><w:t>Hello</w:t><w:tab/><w:t>World</w:t></w:r></w:p>`+
			`<w:p><w:r><w:t>Line</w:t><w:br/><w:t>two</w:t></w:r></w:p>`)

	got, err := newTestNormalizer().ParseFile(context.Background(), "doc.docx", data)
	require.NoError(t, err)
	assert.Equal(t, models.KindDocument, got.Kind)
	assert.Equal(t, "Hello\tWorld\n\nLine\ntwo\n\n", got.Text)
}

func TestParseFile_EmptyDocumentEndsWithNewline(t *testing.T) {
	got, err := newTestNormalizer().ParseFile(context.Background(), "empty.docx", buildDocx(t, ""))
	require.NoError(t, err)
	assert.Equal(t, "\n", got.Text)
}

func TestParseFile_DocumentMissingBody(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	_, err := zw.Create("other.xml")
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	_, err = newTestNormalizer().ParseFile(context.Background(), "nobody.docx", buf.Bytes())
	assert.ErrorIs(t, err, common.ErrContainerDecode)
}

func TestParseFile_Spreadsheet(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetCellValue("Sheet1", "A1", "name"))
	require.NoError(t, f.SetCellValue("Sheet1", "B1", "qty"))
	require.NoError(t, f.SetCellValue("Sheet1", "A2", "apple"))
	require.NoError(t, f.SetCellValue("Sheet1", "B2", 3))
	require.NoError(t, f.SetCellValue("Sheet1", "A3", "pear"))
	_, err := f.NewSheet("Other")
	require.NoError(t, err)
	require.NoError(t, f.SetCellValue("Other", "A1", "x"))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	got, err := newTestNormalizer().ParseFile(context.Background(), "book.xlsx", buf.Bytes())
	require.NoError(t, err)

	want := strings.Join([]string{
		"--- Sheet: Sheet1 ---",
		"name\tqty",
		"apple\t3",
		"pear\t",
		"",
		"--- Sheet: Other ---",
		"x",
		"",
	}, "\n")
	assert.Equal(t, models.KindSpreadsheet, got.Kind)
	assert.Equal(t, want, got.Text)
}

func TestParseFile_SpreadsheetRaggedRows(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetCellValue("Sheet1", "A1", "a"))
	require.NoError(t, f.SetCellValue("Sheet1", "C1", "c"))
	require.NoError(t, f.SetCellValue("Sheet1", "A3", "x"))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	got, err := newTestNormalizer().ParseFile(context.Background(), "ragged.xlsx", buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "--- Sheet: Sheet1 ---\na\t\tc\n\t\t\nx\t\t\n", got.Text)
}

func TestParseFile_LegacySpreadsheet(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("testdata", "table.xls"))
	require.NoError(t, err)

	got, err := newTestNormalizer().ParseFile(context.Background(), "table.xls", data)
	require.NoError(t, err)

	lines := []string{"--- Sheet: Table ---", "Code\tName\tDescription"}
	for i := 1; i <= 11; i++ {
		lines = append(lines, fmt.Sprintf("code%d\tname%d\tdescription%d", i, i, i))
	}
	lines = append(lines, "")
	assert.Equal(t, models.KindSpreadsheet, got.Kind)
	assert.Equal(t, strings.Join(lines, "\n"), got.Text)
}

func TestCheckOLEHeader(t *testing.T) {
	header := func(difStart, difCount uint32, sectors int) []byte {
		data := make([]byte, oleHeaderSize*(sectors+1))
		copy(data, oleSignature)
		binary.LittleEndian.PutUint32(data[0x44:], difStart)
		binary.LittleEndian.PutUint32(data[0x48:], difCount)
		return data
	}

	tests := []struct {
		name    string
		data    []byte
		wantErr bool
	}{
		{"no difat", header(oleEndOfChain, 0, 1), false},
		{"difat inside file", header(1, 1, 2), false},
		{"difat start without count", header(0, 0, 1), true},
		{"difat past end of file", header(5, 1, 2), true},
		{"truncated", oleSignature, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkOLEHeader(tt.data)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

// buildPDF writes a minimal two-page PDF. The second page uses a font whose
// ToUnicode CMap maps single byte codes to the letters of "Second page".
func buildPDF(t *testing.T) []byte {
	t.Helper()

	stream := func(body string) string {
		return fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(body), body)
	}
	cmap := strings.Join([]string{
		"/CIDInit /ProcSet findresource begin",
		"12 dict begin",
		"begincmap",
		"/CMapName /Test-UCS def",
		"1 begincodespacerange",
		"<00> <FF>",
		"endcodespacerange",
		"7 beginbfchar",
		"<01> <0053>",
		"<02> <0065>",
		"<03> <0063>",
		"<04> <006F>",
		"<05> <006E>",
		"<06> <0064>",
		"<07> <0020>",
		"endbfchar",
		"2 beginbfrange",
		"<08> <08> <0070>",
		"<09> <0A> [<0061> <0067>]",
		"endbfrange",
		"endcmap",
		"CMapName currentdict /CMap defineresource pop",
		"end",
		"end",
	}, "\n")

	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R 4 0 R] /Count 2 /MediaBox [0 0 612 792] >>",
		"<< /Type /Page /Parent 2 0 R /Resources << /Font << /F1 5 0 R >> >> /Contents 6 0 R >>",
		"<< /Type /Page /Parent 2 0 R /Resources << /Font << /F2 7 0 R >> >> /Contents 8 0 R >>",
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>",
		stream("BT /F1 12 Tf 72 712 Td (Hello   world) Tj [(Ker) -50 (ned)] TJ ET"),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /ToUnicode 9 0 R >>",
		stream("BT /F2 12 Tf 72 712 Td <0102030405060708090A02> Tj ET"),
		stream(cmap),
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

func TestParseFile_PDF(t *testing.T) {
	got, err := newTestNormalizer().ParseFile(context.Background(), "paper.pdf", buildPDF(t))
	require.NoError(t, err)

	assert.Equal(t, models.KindPDF, got.Kind)
	assert.Equal(t, "--- Page: 1 ---\nHello world Kerned\n\n--- Page: 2 ---\nSecond page\n", got.Text)
}

func TestContentTextRuns_ToUnicodeFonts(t *testing.T) {
	twoByte := parseToUnicodeCMap([]byte(
		"1 begincodespacerange <0000> <FFFF> endcodespacerange\n" +
			"1 beginbfchar <004C> <0069> endbfchar\n" +
			"1 beginbfrange <002B> <002D> <0048> endbfrange\n"))
	fonts := map[string]*toUnicodeCMap{"F1": twoByte}

	stream := []byte("BT /F1 12 Tf <002B004C> Tj [<002D>] TJ /F9 10 Tf (plain) Tj ET")
	assert.Equal(t, []string{"Hi", "J", "plain"}, contentTextRuns(stream, fonts))
}

func TestToUnicodeCMap_Decode(t *testing.T) {
	tests := []struct {
		name string
		cmap string
		raw  []byte
		want string
	}{
		{
			name: "range with array destination",
			cmap: "1 begincodespacerange <00> <FF> endcodespacerange 1 beginbfrange <41> <43> [<0078> <0079> <007A>] endbfrange",
			raw:  []byte("ABC"),
			want: "xyz",
		},
		{
			name: "codes split by lookup without codespace",
			cmap: "2 beginbfchar <0101> <00E9> <20> <0020> endbfchar",
			raw:  []byte{0x01, 0x01, 0x20, 0x01, 0x01},
			want: "é é",
		},
		{
			name: "unmapped single byte keeps its value",
			cmap: "1 begincodespacerange <00> <FF> endcodespacerange 1 beginbfchar <41> <03A9> endbfchar",
			raw:  []byte("AB"),
			want: "ΩB",
		},
		{
			name: "surrogate pair destination",
			cmap: "1 begincodespacerange <0000> <FFFF> endcodespacerange 1 beginbfchar <0001> <D83DDE00> endbfchar",
			raw:  []byte{0x00, 0x01},
			want: "\U0001F600",
		},
		{
			name: "mixed code lengths",
			cmap: "2 begincodespacerange <00> <7F> <8000> <FFFF> endcodespacerange 2 beginbfchar <41> <0061> <8001> <0062> endbfchar",
			raw:  []byte{0x41, 0x80, 0x01, 0x41},
			want: "aba",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseToUnicodeCMap([]byte(tt.cmap)).decode(tt.raw))
		})
	}
}

func TestParseToUnicodeCMap_EmptyProgram(t *testing.T) {
	m := parseToUnicodeCMap([]byte("/CIDInit /ProcSet findresource begin end"))
	assert.Empty(t, m.lengths)
	assert.Equal(t, "abc", m.decode([]byte("abc")))
}

func TestContentTextRuns(t *testing.T) {
	stream := []byte("BT\n/F1 12 Tf\n72 712 Td\n(Hello \\(world\\)) Tj\n[(Foo) -120 (Bar)] TJ\n<48690a> Tj\n% comment (ignored) Tj\n(\\101\\102) '\nET\n")

	runs := contentTextRuns(stream, nil)
	assert.Equal(t, []string{"Hello (world)", "FooBar", "Hi\n", "AB"}, runs)
	assert.Equal(t, "Hello (world) FooBar Hi AB", collapseWhitespace(strings.Join(runs, " ")))
}

func TestContentTextRuns_OperandsResetBetweenOperators(t *testing.T) {
	stream := []byte("(dangling) 1 0 0 1 0 0 cm\n/Span <</ActualText (x)>> BDC\nEMC\n")
	assert.Empty(t, contentTextRuns(stream, nil))
}

func TestPDFText(t *testing.T) {
	assert.Equal(t, "Hi", pdfText([]byte{0xFE, 0xFF, 0x00, 'H', 0x00, 'i'}))
	assert.Equal(t, "café", pdfText([]byte("café")))
	assert.Equal(t, "é", pdfText([]byte{0xE9}))
}
