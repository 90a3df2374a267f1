package history

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"

	"github.com/aleister1102/filecompare/internal/common"
	"github.com/aleister1102/filecompare/internal/models"
	"github.com/parquet-go/parquet-go"
	"github.com/rs/zerolog"
)

// ParquetStore rewrites the whole history list into one Parquet file on
// every save.
type ParquetStore struct {
	mu          sync.Mutex
	path        string
	limit       int
	fileManager *common.FileManager
	logger      zerolog.Logger
}

// NewParquetStore creates a store backed by the file at path. The file is
// created on first save.
func NewParquetStore(path string, limit int, logger zerolog.Logger) (*ParquetStore, error) {
	if path == "" {
		return nil, common.NewValidationError("history_config.parquet_path", path, "cannot be empty")
	}
	if limit <= 0 {
		limit = models.MaxHistoryEntries
	}
	return &ParquetStore{
		path:        path,
		limit:       limit,
		fileManager: common.NewFileManager(logger),
		logger:      logger.With().Str("component", "ParquetHistoryStore").Logger(),
	}, nil
}

// Save moves r to the front of the list and trims the tail past the limit.
func (s *ParquetStore) Save(ctx context.Context, r models.ComparisonResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := models.MergeHistory(s.loadLocked(), r, s.limit)

	var buf bytes.Buffer
	writer := parquet.NewGenericWriter[models.HistoryRecord](&buf)
	for i, entry := range next {
		payload, err := encodeResult(entry)
		if err != nil {
			return err
		}
		record := models.HistoryRecord{
			Position:  int32(i),
			ID:        entry.ID,
			CreatedAt: entry.CreatedAt,
			FileAName: entry.FileA.Name,
			FileBName: entry.FileB.Name,
			Payload:   payload,
		}
		if _, err := writer.Write([]models.HistoryRecord{record}); err != nil {
			return fmt.Errorf("failed to write history record %s: %w", entry.ID, err)
		}
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("closing Parquet writer: %w", err)
	}

	if err := s.fileManager.WriteFileAtomic(s.path, buf.Bytes(), 0644); err != nil {
		return err
	}
	s.logger.Debug().Str("id", r.ID).Int("entries", len(next)).Msg("Saved comparison to history")
	return nil
}

// Load returns the stored list, newest first. A missing or unreadable file
// yields an empty list.
func (s *ParquetStore) Load(ctx context.Context) ([]models.ComparisonResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked(), nil
}

// Clear removes the history file.
func (s *ParquetStore) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return common.WrapErrorf(err, "failed to remove history file %s", s.path)
	}
	return nil
}

func (s *ParquetStore) Close() error { return nil }

func (s *ParquetStore) loadLocked() []models.ComparisonResult {
	records, err := s.readRecords()
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn().Err(err).Str("path", s.path).Msg("Unreadable history file, treating it as empty")
		}
		return []models.ComparisonResult{}
	}

	entries := make([]models.ComparisonResult, 0, len(records))
	for _, rec := range records {
		r, err := decodeResult(rec.Payload)
		if err != nil {
			s.logger.Warn().Err(err).Str("id", rec.ID).Msg("Corrupt history entry, treating history as empty")
			return []models.ComparisonResult{}
		}
		entries = append(entries, r)
	}
	entries = validEntries(entries)
	if len(entries) > s.limit {
		entries = entries[:s.limit]
	}
	return entries
}

func (s *ParquetStore) readRecords() ([]models.HistoryRecord, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}

	pqFile, err := parquet.OpenFile(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file '%s': %w", s.path, err)
	}

	reader := parquet.NewReader(pqFile)
	defer reader.Close()

	var records []models.HistoryRecord
	for {
		var record models.HistoryRecord
		if err := reader.Read(&record); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("error reading record from parquet file '%s': %w", s.path, err)
		}
		records = append(records, record)
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Position < records[j].Position
	})
	return records, nil
}
