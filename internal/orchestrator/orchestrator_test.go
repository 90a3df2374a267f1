package orchestrator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/aleister1102/filecompare/internal/common"
	"github.com/aleister1102/filecompare/internal/config"
	"github.com/aleister1102/filecompare/internal/dispatcher"
	"github.com/aleister1102/filecompare/internal/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingStore struct {
	mu      sync.Mutex
	saved   []models.ComparisonResult
	saveErr error
}

func (s *recordingStore) Save(_ context.Context, r models.ComparisonResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saved = models.MergeHistory(s.saved, r, 0)
	return nil
}

func (s *recordingStore) Load(context.Context) ([]models.ComparisonResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.ComparisonResult(nil), s.saved...), nil
}

func (s *recordingStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = nil
	return nil
}

type statusLog struct {
	mu       sync.Mutex
	statuses []models.ComparisonStatus
}

func (l *statusLog) record(s models.ComparisonStatus) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.statuses = append(l.statuses, s)
}

func newTestOrchestrator(t *testing.T, store models.HistoryStore, log *statusLog) *CompareOrchestrator {
	t.Helper()
	d := dispatcher.NewDispatcherBuilder(zerolog.Nop()).Build()
	t.Cleanup(func() { d.Close() })

	b := NewCompareOrchestratorBuilder(zerolog.Nop()).
		WithComparer(d).
		WithHistoryStore(store).
		WithClock(func() time.Time { return time.UnixMilli(1700000000123) }).
		WithIDGenerator(func() string { return "result-1" })
	if log != nil {
		b = b.WithStatusCallback(log.record)
	}
	o, err := b.Build()
	require.NoError(t, err)
	return o
}

func TestCompareFiles_BuildsAndPersistsResult(t *testing.T) {
	store := &recordingStore{}
	log := &statusLog{}
	o := newTestOrchestrator(t, store, log)

	result, err := o.CompareFiles(context.Background(),
		FileInput{Name: "a.json", Data: []byte(`{"b":1,"a":2}`)},
		FileInput{Name: "b.json", Data: []byte(`{"a":2,"b":1}`)},
		models.DefaultComparisonConfig(),
	)
	require.NoError(t, err)

	assert.Equal(t, "result-1", result.ID)
	assert.Equal(t, int64(1700000000123), result.CreatedAt)
	assert.Equal(t, models.FileRef{Name: "a.json", Size: 13}, result.FileA)
	assert.Equal(t, models.FileRef{Name: "b.json", Size: 13}, result.FileB)
	assert.Equal(t, 1.0, result.Stats.Similarity)
	assert.Equal(t, 0, result.Stats.Added+result.Stats.Deleted)

	assert.Equal(t, []models.ComparisonStatus{
		models.StatusReading, models.StatusParsing, models.StatusComparing, models.StatusDone,
	}, log.statuses)

	history, err := o.History(context.Background())
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, result, history[0])

	require.NoError(t, o.ClearHistory(context.Background()))
	history, err = o.History(context.Background())
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestCompareFiles_HistoryFailureIsNotFatal(t *testing.T) {
	store := &recordingStore{saveErr: errors.New("disk full")}
	o := newTestOrchestrator(t, store, nil)

	result, err := o.CompareFiles(context.Background(),
		FileInput{Name: "a.txt", Data: []byte("x\n")},
		FileInput{Name: "b.txt", Data: []byte("y\n")},
		models.DefaultComparisonConfig(),
	)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Stats.Added)
	assert.Equal(t, 1, result.Stats.Deleted)
}

func TestCompareFiles_ContainerErrorStops(t *testing.T) {
	store := &recordingStore{}
	log := &statusLog{}
	o := newTestOrchestrator(t, store, log)

	_, err := o.CompareFiles(context.Background(),
		FileInput{Name: "a.txt", Data: []byte("x")},
		FileInput{Name: "b.pdf", Data: []byte("not a pdf")},
		models.DefaultComparisonConfig(),
	)
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrContainerDecode))
	assert.Equal(t, models.StatusError, log.statuses[len(log.statuses)-1])
	assert.Empty(t, store.saved)
}

func TestCompareFiles_InvalidConfig(t *testing.T) {
	o := newTestOrchestrator(t, &recordingStore{}, nil)

	cfg := models.DefaultComparisonConfig()
	cfg.Granularity = "char"
	_, err := o.CompareFiles(context.Background(),
		FileInput{Name: "a.txt", Data: []byte("x")},
		FileInput{Name: "b.txt", Data: []byte("y")},
		cfg,
	)
	assert.True(t, errors.Is(err, common.ErrCompareExecution))
}

func TestCompareFilePaths(t *testing.T) {
	dir := t.TempDir()
	pathA := filepath.Join(dir, "left.yaml")
	pathB := filepath.Join(dir, "right.yml")
	require.NoError(t, os.WriteFile(pathA, []byte("b: 1\na: 2\n"), 0644))
	require.NoError(t, os.WriteFile(pathB, []byte("a: 2\nb: 3\n"), 0644))

	o := newTestOrchestrator(t, &recordingStore{}, nil)
	result, err := o.CompareFilePaths(context.Background(), pathA, pathB, models.DefaultComparisonConfig())
	require.NoError(t, err)

	assert.Equal(t, "left.yaml", result.FileA.Name)
	assert.Equal(t, "right.yml", result.FileB.Name)
	assert.Equal(t, 1, result.Stats.Added)
	assert.Equal(t, 1, result.Stats.Deleted)

	_, err = o.CompareFilePaths(context.Background(), filepath.Join(dir, "missing.txt"), pathB, models.DefaultComparisonConfig())
	assert.Error(t, err)
}

func TestCompareFilePaths_RespectsSizeLimit(t *testing.T) {
	dir := t.TempDir()
	big := filepath.Join(dir, "big.txt")
	require.NoError(t, os.WriteFile(big, make([]byte, 2*1024*1024), 0644))

	d := dispatcher.NewDispatcherBuilder(zerolog.Nop()).Build()
	defer d.Close()
	o, err := NewCompareOrchestratorBuilder(zerolog.Nop()).
		WithComparer(d).
		WithParserConfig(config.ParserConfig{MaxFileSizeMB: 1}).
		Build()
	require.NoError(t, err)

	_, err = o.CompareFilePaths(context.Background(), big, big, models.DefaultComparisonConfig())
	assert.True(t, errors.Is(err, common.ErrInvalidInput))
}

func TestParseFile(t *testing.T) {
	o := newTestOrchestrator(t, &recordingStore{}, nil)
	parsed, err := o.ParseFile(context.Background(), FileInput{Name: "deck.pptx", Data: []byte("PK")})
	require.NoError(t, err)
	assert.Equal(t, models.KindSlideDeck, parsed.Kind)
	assert.Equal(t, "", parsed.Text)
}

func TestBuild_RequiresComparer(t *testing.T) {
	_, err := NewCompareOrchestratorBuilder(zerolog.Nop()).Build()
	assert.Error(t, err)
}
