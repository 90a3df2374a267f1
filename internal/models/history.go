package models

import "context"

// MaxHistoryEntries caps the persisted history list.
const MaxHistoryEntries = 50

// HistoryStore persists completed comparisons, newest first.
type HistoryStore interface {
	// Save prepends r, drops any older record with the same id and truncates
	// the list to the store's cap.
	Save(ctx context.Context, r ComparisonResult) error
	// Load returns the stored list, newest first.
	Load(ctx context.Context) ([]ComparisonResult, error)
	// Clear removes every stored record.
	Clear(ctx context.Context) error
}

// HistoryRecord is the flat row written by columnar history backends.
type HistoryRecord struct {
	Position  int32  `parquet:"position"`
	ID        string `parquet:"id,zstd"`
	CreatedAt int64  `parquet:"created_at"`
	FileAName string `parquet:"file_a_name,zstd"`
	FileBName string `parquet:"file_b_name,zstd"`
	Payload   []byte `parquet:"payload,zstd"`
}

// MergeHistory applies the prepend, dedupe and cap rule shared by all stores.
func MergeHistory(existing []ComparisonResult, r ComparisonResult, limit int) []ComparisonResult {
	if limit <= 0 {
		limit = MaxHistoryEntries
	}
	next := make([]ComparisonResult, 0, len(existing)+1)
	next = append(next, r)
	for _, h := range existing {
		if h.ID != r.ID {
			next = append(next, h)
		}
	}
	if len(next) > limit {
		next = next[:limit]
	}
	return next
}

// IsValidHistoryEntry mirrors the loader's sanity check on stored records.
func IsValidHistoryEntry(r ComparisonResult) bool {
	return r.ID != "" && r.CreatedAt != 0
}
