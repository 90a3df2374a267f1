package models

// Granularity is the unit a diff is computed over. Only line is supported.
type Granularity string

const (
	GranularityLine Granularity = "line"
)

// ComparisonConfig controls text normalization and line equality for one run.
type ComparisonConfig struct {
	IgnoreWhitespace bool        `json:"ignoreWhitespace" yaml:"ignore_whitespace" toml:"ignore_whitespace"`
	IgnoreEmptyLines bool        `json:"ignoreEmptyLines" yaml:"ignore_empty_lines" toml:"ignore_empty_lines"`
	CaseSensitive    bool        `json:"caseSensitive" yaml:"case_sensitive" toml:"case_sensitive"`
	Granularity      Granularity `json:"granularity" yaml:"granularity" toml:"granularity" validate:"omitempty,granularity"`
}

// DefaultComparisonConfig compares lines exactly and case-sensitively.
// Whitespace and empty-line leniency are opt-in.
func DefaultComparisonConfig() ComparisonConfig {
	return ComparisonConfig{
		IgnoreWhitespace: false,
		IgnoreEmptyLines: false,
		CaseSensitive:    true,
		Granularity:      GranularityLine,
	}
}

// DiffLineType tags a single output line.
type DiffLineType string

const (
	LineAdded     DiffLineType = "added"
	LineDeleted   DiffLineType = "deleted"
	LineUnchanged DiffLineType = "unchanged"
)

// DiffLine is one row of a line-level diff. Left is nil for added lines and
// Right is nil for deleted lines.
type DiffLine struct {
	Index int          `json:"index"`
	Left  *string      `json:"left"`
	Right *string      `json:"right"`
	Type  DiffLineType `json:"type"`
}

// ComparisonStats summarizes a diff.
type ComparisonStats struct {
	Added      int     `json:"added"`
	Deleted    int     `json:"deleted"`
	Unchanged  int     `json:"unchanged"`
	TotalA     int     `json:"totalA"`
	TotalB     int     `json:"totalB"`
	Similarity float64 `json:"similarity"`
}

// CompareOutput is what one comparison run hands back, regardless of where
// it executed.
type CompareOutput struct {
	Lines []DiffLine      `json:"lines"`
	Stats ComparisonStats `json:"stats"`
}

// FileRef identifies a compared file in a result record.
type FileRef struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// ComparisonResult is a completed comparison as handed to the history store.
type ComparisonResult struct {
	ID        string           `json:"id"`
	CreatedAt int64            `json:"createdAt"`
	FileA     FileRef          `json:"fileA"`
	FileB     FileRef          `json:"fileB"`
	Config    ComparisonConfig `json:"config"`
	Lines     []DiffLine       `json:"lines"`
	Stats     ComparisonStats  `json:"stats"`
}

// GetID returns the result id.
func (r ComparisonResult) GetID() string {
	return r.ID
}

// ComparisonStatus mirrors the phases a caller observes while comparing.
type ComparisonStatus string

const (
	StatusIdle      ComparisonStatus = "idle"
	StatusReading   ComparisonStatus = "reading"
	StatusParsing   ComparisonStatus = "parsing"
	StatusComparing ComparisonStatus = "comparing"
	StatusDone      ComparisonStatus = "done"
	StatusError     ComparisonStatus = "error"
)
