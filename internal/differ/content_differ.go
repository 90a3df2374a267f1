package differ

import (
	"github.com/aleister1102/filecompare/internal/common"
	"github.com/aleister1102/filecompare/internal/config"
	"github.com/aleister1102/filecompare/internal/models"
)

// ContentDiffer runs the normalize, diff and stats pipeline for one pair of
// canonical texts.
type ContentDiffer struct {
	processor       *DiffProcessor
	statsCalculator *DiffStatsCalculator
}

// ContentDifferBuilder provides a fluent interface for creating ContentDiffer
type ContentDifferBuilder struct {
	diffCfg DiffConfig
}

// NewContentDifferBuilder creates a new builder
func NewContentDifferBuilder() *ContentDifferBuilder {
	return &ContentDifferBuilder{
		diffCfg: DefaultDiffConfig(),
	}
}

// WithDiffConfig sets the diff configuration
func (b *ContentDifferBuilder) WithDiffConfig(cfg DiffConfig) *ContentDifferBuilder {
	b.diffCfg = cfg
	return b
}

// Build creates a new ContentDiffer instance
func (b *ContentDifferBuilder) Build() *ContentDiffer {
	return &ContentDiffer{
		processor:       NewDiffProcessor(b.diffCfg),
		statsCalculator: NewDiffStatsCalculator(),
	}
}

// NewContentDiffer creates a ContentDiffer with the default configuration
func NewContentDiffer() *ContentDiffer {
	return NewContentDifferBuilder().Build()
}

// Compare normalizes both texts with cfg, diffs them line by line and
// aggregates statistics. Every failure is a *common.CompareExecutionError.
func (cd *ContentDiffer) Compare(textA, textB string, cfg models.ComparisonConfig) (models.CompareOutput, error) {
	if err := config.ValidateComparisonConfig(cfg); err != nil {
		return models.CompareOutput{}, common.NewCompareExecutionError(err.Error())
	}

	linesA := SplitLines(NormalizeText(textA, cfg))
	linesB := SplitLines(NormalizeText(textB, cfg))

	lines, err := cd.processor.ProcessLines(linesA, linesB, cfg.IgnoreWhitespace)
	if err != nil {
		return models.CompareOutput{}, common.NewCompareExecutionError(err.Error())
	}

	return models.CompareOutput{
		Lines: lines,
		Stats: cd.statsCalculator.CalculateStats(lines, len(linesA), len(linesB)),
	}, nil
}

// ComputeDiff compares two texts with a default ContentDiffer.
func ComputeDiff(textA, textB string, cfg models.ComparisonConfig) (models.CompareOutput, error) {
	return NewContentDiffer().Compare(textA, textB, cfg)
}

// ChangedLineIndices returns the index of every added or deleted line.
func ChangedLineIndices(lines []models.DiffLine) []int {
	indices := make([]int, 0)
	for _, line := range lines {
		if line.Type != models.LineUnchanged {
			indices = append(indices, line.Index)
		}
	}
	return indices
}
