package orchestrator

import (
	"context"
	"path/filepath"
	"time"

	"github.com/aleister1102/filecompare/internal/common"
	"github.com/aleister1102/filecompare/internal/config"
	"github.com/aleister1102/filecompare/internal/models"
	"github.com/aleister1102/filecompare/internal/normalizer"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// FileInput is one side of a comparison as supplied by a caller.
type FileInput struct {
	Name string
	Data []byte
}

// Comparer runs the diff pipeline on normalized texts.
type Comparer interface {
	Compare(ctx context.Context, textA, textB string, cfg models.ComparisonConfig) (models.CompareOutput, error)
}

// StatusFunc observes the phases of a comparison.
type StatusFunc func(status models.ComparisonStatus)

// CompareOrchestrator turns two files into a persisted ComparisonResult.
type CompareOrchestrator struct {
	normalizer  *normalizer.Normalizer
	comparer    Comparer
	store       models.HistoryStore
	fileManager *common.FileManager
	maxFileSize int64
	onStatus    StatusFunc
	clock       func() time.Time
	newID       func() string
	logger      zerolog.Logger
}

// CompareOrchestratorBuilder provides a fluent interface for creating CompareOrchestrator
type CompareOrchestratorBuilder struct {
	normalizer   *normalizer.Normalizer
	comparer     Comparer
	store        models.HistoryStore
	parserConfig config.ParserConfig
	onStatus     StatusFunc
	clock        func() time.Time
	newID        func() string
	logger       zerolog.Logger
}

// NewCompareOrchestratorBuilder creates a new builder
func NewCompareOrchestratorBuilder(logger zerolog.Logger) *CompareOrchestratorBuilder {
	return &CompareOrchestratorBuilder{
		parserConfig: config.NewDefaultParserConfig(),
		clock:        time.Now,
		newID:        func() string { return uuid.New().String() },
		logger:       logger,
	}
}

// WithParserConfig sets the limits applied when reading and parsing files
func (b *CompareOrchestratorBuilder) WithParserConfig(cfg config.ParserConfig) *CompareOrchestratorBuilder {
	b.parserConfig = cfg
	return b
}

// WithNormalizer sets the format normalizer
func (b *CompareOrchestratorBuilder) WithNormalizer(n *normalizer.Normalizer) *CompareOrchestratorBuilder {
	b.normalizer = n
	return b
}

// WithComparer sets where comparisons execute
func (b *CompareOrchestratorBuilder) WithComparer(c Comparer) *CompareOrchestratorBuilder {
	b.comparer = c
	return b
}

// WithHistoryStore sets where completed results are persisted
func (b *CompareOrchestratorBuilder) WithHistoryStore(s models.HistoryStore) *CompareOrchestratorBuilder {
	b.store = s
	return b
}

// WithStatusCallback sets the phase observer
func (b *CompareOrchestratorBuilder) WithStatusCallback(fn StatusFunc) *CompareOrchestratorBuilder {
	b.onStatus = fn
	return b
}

// WithClock sets the time source for createdAt
func (b *CompareOrchestratorBuilder) WithClock(clock func() time.Time) *CompareOrchestratorBuilder {
	b.clock = clock
	return b
}

// WithIDGenerator sets the result id source
func (b *CompareOrchestratorBuilder) WithIDGenerator(fn func() string) *CompareOrchestratorBuilder {
	b.newID = fn
	return b
}

// Build creates a new CompareOrchestrator instance
func (b *CompareOrchestratorBuilder) Build() (*CompareOrchestrator, error) {
	if b.comparer == nil {
		return nil, common.NewValidationError("comparer", nil, "comparer cannot be nil")
	}

	n := b.normalizer
	if n == nil {
		n = normalizer.NewNormalizer(b.parserConfig, b.logger)
	}
	store := b.store
	if store == nil {
		store = noopHistory{}
	}
	clock := b.clock
	if clock == nil {
		clock = time.Now
	}
	newID := b.newID
	if newID == nil {
		newID = func() string { return uuid.New().String() }
	}

	return &CompareOrchestrator{
		normalizer:  n,
		comparer:    b.comparer,
		store:       store,
		fileManager: common.NewFileManager(b.logger),
		maxFileSize: b.parserConfig.MaxFileSizeBytes(),
		onStatus:    b.onStatus,
		clock:       clock,
		newID:       newID,
		logger:      b.logger.With().Str("component", "CompareOrchestrator").Logger(),
	}, nil
}

// CompareFilePaths reads both files from disk and compares them.
func (o *CompareOrchestrator) CompareFilePaths(ctx context.Context, pathA, pathB string, cfg models.ComparisonConfig) (models.ComparisonResult, error) {
	o.setStatus(models.StatusReading)

	inputs := make([]FileInput, 2)
	for i, path := range []string{pathA, pathB} {
		data, err := o.fileManager.ReadFile(path, common.FileReadOptions{MaxSize: o.maxFileSize})
		if err != nil {
			o.setStatus(models.StatusError)
			return models.ComparisonResult{}, err
		}
		inputs[i] = FileInput{Name: filepath.Base(path), Data: data}
	}

	return o.compare(ctx, inputs[0], inputs[1], cfg)
}

// CompareFiles parses a and b concurrently, diffs their canonical texts and
// persists the result. A history failure is logged and does not fail the
// comparison.
func (o *CompareOrchestrator) CompareFiles(ctx context.Context, a, b FileInput, cfg models.ComparisonConfig) (models.ComparisonResult, error) {
	o.setStatus(models.StatusReading)
	return o.compare(ctx, a, b, cfg)
}

// ParseFile normalizes a single input.
func (o *CompareOrchestrator) ParseFile(ctx context.Context, in FileInput) (models.ParsedInput, error) {
	return o.normalizer.ParseFile(ctx, in.Name, in.Data)
}

// History returns the persisted results, newest first.
func (o *CompareOrchestrator) History(ctx context.Context) ([]models.ComparisonResult, error) {
	return o.store.Load(ctx)
}

// ClearHistory removes every persisted result.
func (o *CompareOrchestrator) ClearHistory(ctx context.Context) error {
	return o.store.Clear(ctx)
}

func (o *CompareOrchestrator) compare(ctx context.Context, a, b FileInput, cfg models.ComparisonConfig) (models.ComparisonResult, error) {
	o.setStatus(models.StatusParsing)
	parsedA, parsedB, err := o.parseBoth(ctx, a, b)
	if err != nil {
		o.setStatus(models.StatusError)
		return models.ComparisonResult{}, err
	}

	o.setStatus(models.StatusComparing)
	out, err := o.comparer.Compare(ctx, parsedA.Text, parsedB.Text, cfg)
	if err != nil {
		o.setStatus(models.StatusError)
		return models.ComparisonResult{}, err
	}

	result := models.ComparisonResult{
		ID:        o.newID(),
		CreatedAt: o.clock().UnixMilli(),
		FileA:     parsedA.Ref(),
		FileB:     parsedB.Ref(),
		Config:    cfg,
		Lines:     out.Lines,
		Stats:     out.Stats,
	}

	if err := o.store.Save(ctx, result); err != nil {
		o.logger.Error().Err(err).Str("id", result.ID).Msg("Failed to save comparison to history")
	}

	o.logger.Debug().
		Str("id", result.ID).
		Str("file_a", a.Name).
		Str("file_b", b.Name).
		Float64("similarity", result.Stats.Similarity).
		Msg("Comparison complete")
	o.setStatus(models.StatusDone)
	return result, nil
}

func (o *CompareOrchestrator) parseBoth(ctx context.Context, a, b FileInput) (models.ParsedInput, models.ParsedInput, error) {
	var parsedA, parsedB models.ParsedInput

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		parsedA, err = o.normalizer.ParseFile(gctx, a.Name, a.Data)
		return err
	})
	g.Go(func() error {
		var err error
		parsedB, err = o.normalizer.ParseFile(gctx, b.Name, b.Data)
		return err
	})
	if err := g.Wait(); err != nil {
		return models.ParsedInput{}, models.ParsedInput{}, err
	}
	return parsedA, parsedB, nil
}

func (o *CompareOrchestrator) setStatus(status models.ComparisonStatus) {
	if o.onStatus != nil {
		o.onStatus(status)
	}
}

type noopHistory struct{}

func (noopHistory) Save(context.Context, models.ComparisonResult) error { return nil }

func (noopHistory) Load(context.Context) ([]models.ComparisonResult, error) {
	return []models.ComparisonResult{}, nil
}

func (noopHistory) Clear(context.Context) error { return nil }
