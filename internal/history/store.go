package history

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/aleister1102/filecompare/internal/common"
	"github.com/aleister1102/filecompare/internal/config"
	"github.com/aleister1102/filecompare/internal/models"
	"github.com/rs/zerolog"
)

const (
	BackendSQLite  = "sqlite"
	BackendParquet = "parquet"
	BackendNone    = "none"
)

// Store is a HistoryStore holding resources that must be released.
type Store interface {
	models.HistoryStore
	Close() error
}

// NewStore opens the backend selected by cfg.Backend. An empty backend
// means sqlite.
func NewStore(cfg config.HistoryConfig, logger zerolog.Logger) (Store, error) {
	switch strings.ToLower(cfg.Backend) {
	case BackendSQLite, "":
		return NewSQLiteStore(cfg.SQLitePath, cfg.MaxEntries, logger)
	case BackendParquet:
		return NewParquetStore(cfg.ParquetPath, cfg.MaxEntries, logger)
	case BackendNone:
		return NoopStore{}, nil
	default:
		return nil, common.NewValidationError("history_config.backend", cfg.Backend, "unsupported history backend")
	}
}

// NoopStore discards everything it is given.
type NoopStore struct{}

func (NoopStore) Save(context.Context, models.ComparisonResult) error { return nil }

func (NoopStore) Load(context.Context) ([]models.ComparisonResult, error) {
	return []models.ComparisonResult{}, nil
}

func (NoopStore) Clear(context.Context) error { return nil }

func (NoopStore) Close() error { return nil }

func encodeResult(r models.ComparisonResult) ([]byte, error) {
	payload, err := json.Marshal(r)
	if err != nil {
		return nil, common.WrapErrorf(err, "failed to encode comparison result %s", r.ID)
	}
	return payload, nil
}

func decodeResult(payload []byte) (models.ComparisonResult, error) {
	var r models.ComparisonResult
	if err := json.Unmarshal(payload, &r); err != nil {
		return models.ComparisonResult{}, common.WrapError(err, "failed to decode comparison result")
	}
	return r, nil
}

// validEntries drops records that fail the loader's sanity check.
func validEntries(entries []models.ComparisonResult) []models.ComparisonResult {
	out := make([]models.ComparisonResult, 0, len(entries))
	for _, e := range entries {
		if models.IsValidHistoryEntry(e) {
			out = append(out, e)
		}
	}
	return out
}
