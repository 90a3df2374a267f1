package differ

import (
	"strings"

	"github.com/aleister1102/filecompare/internal/models"
)

var lineEndingReplacer = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// NormalizeText applies the comparison config to canonical text: line
// endings become \n, blank lines are dropped when IgnoreEmptyLines is set,
// non-empty text is terminated by a newline and, last, the text is
// lowercased unless CaseSensitive is set.
func NormalizeText(input string, cfg models.ComparisonConfig) string {
	text := lineEndingReplacer.Replace(input)

	if cfg.IgnoreEmptyLines {
		lines := strings.Split(text, "\n")
		kept := lines[:0]
		for _, line := range lines {
			if strings.TrimSpace(line) != "" {
				kept = append(kept, line)
			}
		}
		text = strings.Join(kept, "\n")
	}

	if text != "" && !strings.HasSuffix(text, "\n") {
		text += "\n"
	}

	if !cfg.CaseSensitive {
		text = strings.ToLower(text)
	}
	return text
}

// SplitLines splits text on \n and drops the empty segment after a final
// newline. Empty text has no lines.
func SplitLines(text string) []string {
	lines := strings.Split(text, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
