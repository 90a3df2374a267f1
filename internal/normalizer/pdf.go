package normalizer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"golang.org/x/sync/errgroup"
)

// decodePDF renders each page in order as "--- Page: <n> ---", the page's
// text runs joined by single spaces with whitespace collapsed, and a blank
// separator line. Content streams and font maps are read sequentially; the
// text of each page is then extracted concurrently.
func decodePDF(ctx context.Context, data []byte) (string, error) {
	conf := model.NewDefaultConfiguration()
	pdfCtx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), conf)
	if err != nil {
		return "", fmt.Errorf("pdfcpu read: %w", err)
	}

	streams := make([][]byte, pdfCtx.PageCount)
	fonts := make([]map[string]*toUnicodeCMap, pdfCtx.PageCount)
	cmaps := make(map[types.IndirectRef]*toUnicodeCMap)
	for i := range streams {
		pageDict, _, attrs, err := pdfCtx.PageDict(i+1, false)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", i+1, err)
		}
		content, err := pdfCtx.PageContent(pageDict, i+1)
		if err != nil && !errors.Is(err, model.ErrNoContent) {
			return "", fmt.Errorf("page %d: %w", i+1, err)
		}
		streams[i] = content
		if attrs != nil {
			fonts[i] = pageFonts(pdfCtx, attrs.Resources, cmaps)
		}
	}

	pages := make([]string, len(streams))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := range streams {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			pages[i] = collapseWhitespace(strings.Join(contentTextRuns(streams[i], fonts[i]), " "))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}

	parts := make([]string, 0, len(pages)*3)
	for i, text := range pages {
		parts = append(parts, fmt.Sprintf("--- Page: %d ---", i+1), text, "")
	}
	return strings.Join(parts, "\n"), nil
}

// pageFonts maps the font resource names of a page to their ToUnicode CMaps.
// Fonts without a usable ToUnicode stream are left out. cache holds CMaps
// already parsed, keyed by stream object.
func pageFonts(pdfCtx *model.Context, resources types.Dict, cache map[types.IndirectRef]*toUnicodeCMap) map[string]*toUnicodeCMap {
	if resources == nil {
		return nil
	}
	obj, found := resources.Find("Font")
	if !found {
		return nil
	}
	fontDicts, err := pdfCtx.DereferenceDict(obj)
	if err != nil || fontDicts == nil {
		return nil
	}

	fonts := make(map[string]*toUnicodeCMap, len(fontDicts))
	for name, fontObj := range fontDicts {
		fontDict, err := pdfCtx.DereferenceDict(fontObj)
		if err != nil || fontDict == nil {
			continue
		}
		toUnicode, found := fontDict.Find("ToUnicode")
		if !found {
			continue
		}

		ref, isRef := toUnicode.(types.IndirectRef)
		cmap, cached := cache[ref]
		if !isRef || !cached {
			cmap = loadToUnicodeCMap(pdfCtx, toUnicode)
			if isRef {
				cache[ref] = cmap
			}
		}
		if cmap != nil {
			fonts[name] = cmap
		}
	}
	return fonts
}

func loadToUnicodeCMap(pdfCtx *model.Context, obj types.Object) *toUnicodeCMap {
	sd, _, err := pdfCtx.DereferenceStreamDict(obj)
	if err != nil || sd == nil {
		return nil
	}
	if err := sd.Decode(); err != nil {
		return nil
	}
	cmap := parseToUnicodeCMap(sd.Content)
	if len(cmap.lengths) == 0 {
		return nil
	}
	return cmap
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// contentTextRuns returns the strings shown by Tj, TJ, ' and " operators of a
// page content stream, one entry per operator. Strings are decoded through
// the CMap of the font selected by the last Tf; fonts missing from fonts are
// decoded as plain bytes.
func contentTextRuns(data []byte, fonts map[string]*toUnicodeCMap) []string {
	var (
		runs     []string
		operands [][]byte
		array    [][]byte
		inArray  bool
		lastName string
		font     *toUnicodeCMap
	)

	decode := func(raw []byte) string {
		if font == nil {
			return pdfText(raw)
		}
		return font.decode(raw)
	}

	for i := 0; i < len(data); {
		c := data[i]
		switch {
		case isPDFSpace(c):
			i++
		case c == '%':
			for i < len(data) && data[i] != '\n' && data[i] != '\r' {
				i++
			}
		case c == '(':
			raw, next := readLiteralString(data, i)
			i = next
			if inArray {
				array = append(array, raw)
			} else {
				operands = append(operands, raw)
			}
		case c == '<' && i+1 < len(data) && data[i+1] == '<', c == '>' && i+1 < len(data) && data[i+1] == '>':
			i += 2
		case c == '<':
			raw, next := readHexString(data, i)
			i = next
			if inArray {
				array = append(array, raw)
			} else {
				operands = append(operands, raw)
			}
		case c == '[':
			inArray, array = true, array[:0]
			i++
		case c == ']':
			inArray = false
			var joined []byte
			for _, piece := range array {
				joined = append(joined, piece...)
			}
			operands = append(operands, joined)
			i++
		case c == '/':
			i++
			start := i
			for i < len(data) && !isPDFSpace(data[i]) && !isPDFDelimiter(data[i]) {
				i++
			}
			lastName = string(data[start:i])
		case isPDFDelimiter(c):
			i++
		default:
			start := i
			for i < len(data) && !isPDFSpace(data[i]) && !isPDFDelimiter(data[i]) {
				i++
			}
			switch tok := string(data[start:i]); tok {
			case "Tj", "TJ", "'", `"`:
				if len(operands) > 0 {
					runs = append(runs, decode(operands[len(operands)-1]))
				}
				operands = operands[:0]
			case "Tf":
				font = fonts[lastName]
				operands = operands[:0]
			case "ID":
				i = skipInlineImage(data, i)
				operands = operands[:0]
			default:
				if isOperatorToken(tok) {
					operands = operands[:0]
				}
			}
		}
	}
	return runs
}

func readLiteralString(data []byte, start int) ([]byte, int) {
	var out []byte
	depth := 0
	i := start + 1
	for i < len(data) {
		c := data[i]
		switch c {
		case '\\':
			i++
			if i >= len(data) {
				return out, i
			}
			switch e := data[i]; e {
			case 'n':
				out = append(out, '\n')
			case 'r':
				out = append(out, '\r')
			case 't':
				out = append(out, '\t')
			case 'b':
				out = append(out, '\b')
			case 'f':
				out = append(out, '\f')
			case '\r', '\n':
				if e == '\r' && i+1 < len(data) && data[i+1] == '\n' {
					i++
				}
			default:
				if e >= '0' && e <= '7' {
					val := int(e - '0')
					for n := 0; n < 2 && i+1 < len(data) && data[i+1] >= '0' && data[i+1] <= '7'; n++ {
						i++
						val = val*8 + int(data[i]-'0')
					}
					out = append(out, byte(val))
				} else {
					out = append(out, e)
				}
			}
		case '(':
			depth++
			out = append(out, c)
		case ')':
			if depth == 0 {
				return out, i + 1
			}
			depth--
			out = append(out, c)
		default:
			out = append(out, c)
		}
		i++
	}
	return out, i
}

func readHexString(data []byte, start int) ([]byte, int) {
	var out []byte
	var hi byte
	half := false
	i := start + 1
	for ; i < len(data) && data[i] != '>'; i++ {
		v, ok := hexNibble(data[i])
		if !ok {
			continue
		}
		if half {
			out = append(out, hi<<4|v)
		} else {
			hi = v
		}
		half = !half
	}
	if half {
		out = append(out, hi<<4)
	}
	return out, i + 1
}

func hexNibble(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

// skipInlineImage jumps past inline image data up to and including the EI
// operator.
func skipInlineImage(data []byte, i int) int {
	for j := i; j+2 <= len(data); j++ {
		if data[j] == 'E' && data[j+1] == 'I' && isPDFSpace(data[j-1]) &&
			(j+2 == len(data) || isPDFSpace(data[j+2])) {
			return j + 2
		}
	}
	return len(data)
}

// pdfText decodes a string operand: UTF-16BE with BOM, UTF-8, or Latin-1.
func pdfText(raw []byte) string {
	if len(raw) >= 2 && raw[0] == 0xFE && raw[1] == 0xFF {
		units := make([]uint16, 0, (len(raw)-2)/2)
		for i := 2; i+1 < len(raw); i += 2 {
			units = append(units, uint16(raw[i])<<8|uint16(raw[i+1]))
		}
		return string(utf16.Decode(units))
	}
	if utf8.Valid(raw) {
		return string(raw)
	}
	runes := make([]rune, len(raw))
	for i, b := range raw {
		runes[i] = rune(b)
	}
	return string(runes)
}

func isPDFSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '\f', 0:
		return true
	}
	return false
}

func isPDFDelimiter(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func isOperatorToken(tok string) bool {
	if tok == "" {
		return false
	}
	c := tok[0]
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '*'
}
