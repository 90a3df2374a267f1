package differ

import (
	"strings"

	"github.com/aleister1102/filecompare/internal/common"
	"github.com/aleister1102/filecompare/internal/models"
	"github.com/sergi/go-diff/diffmatchpatch"
)

const (
	surrogateMin = 0xD800
	surrogateMax = 0xDFFF
	maxLineRune  = 0x10FFFF
)

// DiffProcessor computes line-level edit scripts
type DiffProcessor struct {
	dmp *diffmatchpatch.DiffMatchPatch
}

// NewDiffProcessor creates a new diff processor
func NewDiffProcessor(config DiffConfig) *DiffProcessor {
	dmp := diffmatchpatch.New()
	dmp.DiffTimeout = config.DiffTimeout
	return &DiffProcessor{dmp: dmp}
}

// ProcessLines diffs two line slices. Each distinct line is encoded as one
// rune so the character diff operates on whole lines. Within a change hunk
// deleted lines precede added lines, and unchanged lines carry B's text.
func (dp *DiffProcessor) ProcessLines(linesA, linesB []string, ignoreWhitespace bool) ([]models.DiffLine, error) {
	enc := newLineEncoder(ignoreWhitespace)
	runesA, err := enc.encode(linesA)
	if err != nil {
		return nil, err
	}
	runesB, err := enc.encode(linesB)
	if err != nil {
		return nil, err
	}

	diffs := dp.dmp.DiffMainRunes(runesA, runesB, false)

	out := make([]models.DiffLine, 0, max(len(linesA), len(linesB)))
	var ia, ib int
	var pendingDeleted, pendingAdded []string

	flush := func() {
		for _, line := range pendingDeleted {
			out = append(out, deletedLine(len(out), line))
		}
		for _, line := range pendingAdded {
			out = append(out, addedLine(len(out), line))
		}
		pendingDeleted, pendingAdded = pendingDeleted[:0], pendingAdded[:0]
	}

	for _, d := range diffs {
		n := len([]rune(d.Text))
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			pendingDeleted = append(pendingDeleted, linesA[ia:ia+n]...)
			ia += n
		case diffmatchpatch.DiffInsert:
			pendingAdded = append(pendingAdded, linesB[ib:ib+n]...)
			ib += n
		case diffmatchpatch.DiffEqual:
			flush()
			for _, line := range linesB[ib : ib+n] {
				out = append(out, unchangedLine(len(out), line))
			}
			ia += n
			ib += n
		}
	}
	flush()

	return out, nil
}

func deletedLine(index int, text string) models.DiffLine {
	return models.DiffLine{Index: index, Left: &text, Type: models.LineDeleted}
}

func addedLine(index int, text string) models.DiffLine {
	return models.DiffLine{Index: index, Right: &text, Type: models.LineAdded}
}

func unchangedLine(index int, text string) models.DiffLine {
	left, right := text, text
	return models.DiffLine{Index: index, Left: &left, Right: &right, Type: models.LineUnchanged}
}

// lineEncoder assigns one rune per distinct comparison key. Surrogate code
// points are skipped since they do not survive string conversion.
type lineEncoder struct {
	ignoreWhitespace bool
	codes            map[string]rune
	next             rune
}

func newLineEncoder(ignoreWhitespace bool) *lineEncoder {
	return &lineEncoder{
		ignoreWhitespace: ignoreWhitespace,
		codes:            make(map[string]rune),
		next:             1,
	}
}

func (le *lineEncoder) encode(lines []string) ([]rune, error) {
	out := make([]rune, len(lines))
	for i, line := range lines {
		key := line
		if le.ignoreWhitespace {
			key = whitespaceKey(line)
		}
		code, ok := le.codes[key]
		if !ok {
			if le.next > maxLineRune {
				return nil, common.NewError("too many distinct lines to diff (limit %d)", maxLineRune-(surrogateMax-surrogateMin+1))
			}
			code = le.next
			le.codes[key] = code
			le.next++
			if le.next == surrogateMin {
				le.next = surrogateMax + 1
			}
		}
		out[i] = code
	}
	return out, nil
}

// whitespaceKey makes lines that differ only in leading, trailing or
// internal whitespace runs compare equal.
func whitespaceKey(line string) string {
	return strings.Join(strings.Fields(line), " ")
}

// DiffStatsCalculator calculates statistics from diff results
type DiffStatsCalculator struct{}

// NewDiffStatsCalculator creates a new diff stats calculator
func NewDiffStatsCalculator() *DiffStatsCalculator {
	return &DiffStatsCalculator{}
}

// CalculateStats counts line types and derives similarity as
// unchanged / max(1, totalA, totalB), clamped to [0, 1]. Two empty inputs
// therefore have similarity 0.
func (dsc *DiffStatsCalculator) CalculateStats(lines []models.DiffLine, totalA, totalB int) models.ComparisonStats {
	stats := models.ComparisonStats{TotalA: totalA, TotalB: totalB}

	for _, line := range lines {
		switch line.Type {
		case models.LineAdded:
			stats.Added++
		case models.LineDeleted:
			stats.Deleted++
		case models.LineUnchanged:
			stats.Unchanged++
		}
	}

	denom := max(1, totalA, totalB)
	stats.Similarity = min(1, max(0, float64(stats.Unchanged)/float64(denom)))
	return stats
}
