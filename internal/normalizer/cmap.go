package normalizer

import (
	"sort"
	"unicode/utf16"
)

// toUnicodeCMap maps character codes of a PDF font to Unicode text, as read
// from the font's ToUnicode stream.
type toUnicodeCMap struct {
	spaces  []codespaceRange
	lengths []int
	chars   map[cmapCode]string
	ranges  []bfRange
}

type cmapCode struct {
	n    int
	code uint32
}

type codespaceRange struct {
	n      int
	lo, hi []byte
}

type bfRange struct {
	n      int
	lo, hi uint32
	base   []uint16
	values []string
}

type cmapToken struct {
	word  string
	hex   []byte
	array [][]byte
	kind  byte // 'w' word, 'n' name, 'h' hex string, 'a' array
}

// parseToUnicodeCMap reads the codespacerange, bfchar and bfrange sections
// of a CMap program. Anything else in the program is ignored.
func parseToUnicodeCMap(data []byte) *toUnicodeCMap {
	m := &toUnicodeCMap{chars: make(map[cmapCode]string)}
	seen := make(map[int]bool)
	addLength := func(n int) {
		if n > 0 && n <= 4 && !seen[n] {
			seen[n] = true
			m.lengths = append(m.lengths, n)
		}
	}

	var (
		section string
		pending []cmapToken
	)
	for _, tok := range cmapTokens(data) {
		if tok.kind == 'w' {
			switch tok.word {
			case "begincodespacerange", "beginbfchar", "beginbfrange":
				section, pending = tok.word, pending[:0]
			case "endcodespacerange", "endbfchar", "endbfrange":
				section, pending = "", pending[:0]
			}
			continue
		}
		if section == "" {
			continue
		}
		pending = append(pending, tok)

		switch section {
		case "begincodespacerange":
			if len(pending) < 2 {
				continue
			}
			lo, hi := pending[0].hex, pending[1].hex
			if len(lo) == len(hi) && len(lo) > 0 {
				m.spaces = append(m.spaces, codespaceRange{n: len(lo), lo: lo, hi: hi})
				addLength(len(lo))
			}
			pending = pending[:0]

		case "beginbfchar":
			if len(pending) < 2 {
				continue
			}
			src, dst := pending[0], pending[1]
			if src.kind == 'h' && dst.kind == 'h' && len(src.hex) > 0 && len(src.hex) <= 4 {
				m.chars[cmapCode{len(src.hex), codeValue(src.hex)}] = utf16BEText(dst.hex)
				addLength(len(src.hex))
			}
			pending = pending[:0]

		case "beginbfrange":
			if len(pending) < 3 {
				continue
			}
			lo, hi, dst := pending[0], pending[1], pending[2]
			pending = pending[:0]
			if lo.kind != 'h' || hi.kind != 'h' || len(lo.hex) != len(hi.hex) || len(lo.hex) == 0 || len(lo.hex) > 4 {
				continue
			}
			r := bfRange{n: len(lo.hex), lo: codeValue(lo.hex), hi: codeValue(hi.hex)}
			if r.hi < r.lo {
				continue
			}
			switch dst.kind {
			case 'h':
				r.base = utf16Units(dst.hex)
				if len(r.base) == 0 {
					continue
				}
			case 'a':
				for _, v := range dst.array {
					r.values = append(r.values, utf16BEText(v))
				}
			default:
				continue
			}
			m.ranges = append(m.ranges, r)
			addLength(r.n)
		}
	}

	sort.Ints(m.lengths)
	return m
}

// decode converts a shown string into text. Codes are split by the
// codespace ranges, or by the source code lengths when the CMap declares
// none. Unmapped one-byte codes fall back to their byte value; other
// unmapped codes are dropped.
func (m *toUnicodeCMap) decode(raw []byte) string {
	if len(m.lengths) == 0 {
		return pdfText(raw)
	}

	var out []rune
	for i := 0; i < len(raw); {
		n := m.codeLength(raw[i:])
		code := codeValue(raw[i : i+n])
		if text, ok := m.lookup(n, code); ok {
			out = append(out, []rune(text)...)
		} else if n == 1 {
			out = append(out, rune(raw[i]))
		}
		i += n
	}
	return string(out)
}

func (m *toUnicodeCMap) codeLength(b []byte) int {
	for _, n := range m.lengths {
		if n > len(b) {
			break
		}
		if len(m.spaces) == 0 {
			if _, ok := m.lookup(n, codeValue(b[:n])); ok {
				return n
			}
			continue
		}
		for _, s := range m.spaces {
			if s.n == n && inCodespace(b[:n], s) {
				return n
			}
		}
	}
	if len(m.spaces) == 0 {
		return min(m.lengths[0], len(b))
	}
	return 1
}

func (m *toUnicodeCMap) lookup(n int, code uint32) (string, bool) {
	if text, ok := m.chars[cmapCode{n, code}]; ok {
		return text, true
	}
	for _, r := range m.ranges {
		if r.n != n || code < r.lo || code > r.hi {
			continue
		}
		offset := code - r.lo
		if r.values != nil {
			if int(offset) < len(r.values) {
				return r.values[offset], true
			}
			return "", false
		}
		units := append([]uint16(nil), r.base...)
		units[len(units)-1] += uint16(offset)
		return string(utf16.Decode(units)), true
	}
	return "", false
}

func inCodespace(b []byte, s codespaceRange) bool {
	for i := range b {
		if b[i] < s.lo[i] || b[i] > s.hi[i] {
			return false
		}
	}
	return true
}

func codeValue(b []byte) uint32 {
	var v uint32
	for _, c := range b {
		v = v<<8 | uint32(c)
	}
	return v
}

func utf16Units(b []byte) []uint16 {
	units := make([]uint16, 0, len(b)/2+1)
	for i := 0; i+1 < len(b); i += 2 {
		units = append(units, uint16(b[i])<<8|uint16(b[i+1]))
	}
	if len(b)%2 == 1 {
		units = append(units, uint16(b[len(b)-1]))
	}
	return units
}

func utf16BEText(b []byte) string {
	return string(utf16.Decode(utf16Units(b)))
}

// cmapTokens splits a CMap program into words, hex strings and arrays of hex
// strings. Literal strings, comments and dictionary brackets are skipped.
func cmapTokens(data []byte) []cmapToken {
	var (
		tokens  []cmapToken
		array   [][]byte
		inArray bool
	)
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
			_, i = readLiteralString(data, i)
		case c == '<' && i+1 < len(data) && data[i+1] == '<', c == '>' && i+1 < len(data) && data[i+1] == '>':
			i += 2
		case c == '<':
			var raw []byte
			raw, i = readHexString(data, i)
			if inArray {
				array = append(array, raw)
			} else {
				tokens = append(tokens, cmapToken{kind: 'h', hex: raw})
			}
		case c == '[':
			inArray, array = true, nil
			i++
		case c == ']':
			if inArray {
				tokens = append(tokens, cmapToken{kind: 'a', array: array})
			}
			inArray = false
			i++
		case isPDFDelimiter(c) && c != '/':
			i++
		default:
			start, kind := i, byte('w')
			if c == '/' {
				kind = 'n'
				i++
			}
			for i < len(data) && !isPDFSpace(data[i]) && !isPDFDelimiter(data[i]) {
				i++
			}
			if !inArray {
				tokens = append(tokens, cmapToken{kind: kind, word: string(data[start:i])})
			}
		}
	}
	return tokens
}
