package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aleister1102/filecompare/internal/common"
	"github.com/aleister1102/filecompare/internal/config"
	"github.com/aleister1102/filecompare/internal/differ"
	"github.com/aleister1102/filecompare/internal/models"
	"github.com/aleister1102/filecompare/internal/rslimiter"
	"github.com/rs/zerolog"
)

// State is the lifecycle of the dispatcher's worker. It only moves forward:
// uninitialized to active or disabled, and active to disabled.
type State int32

const (
	StateUninitialized State = iota
	StateActive
	StateDisabled
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateActive:
		return "active"
	case StateDisabled:
		return "disabled"
	default:
		return "unknown"
	}
}

type result struct {
	resp Response
	err  error
}

func (r result) output() (models.CompareOutput, error) {
	if r.err != nil {
		return models.CompareOutput{}, r.err
	}
	if !r.resp.OK || r.resp.Payload == nil {
		return models.CompareOutput{}, common.NewCompareExecutionError(r.resp.Error)
	}
	return *r.resp.Payload, nil
}

// Dispatcher runs comparisons on a single background worker when one is
// available and in-process otherwise. Both paths return identical results.
type Dispatcher struct {
	mu       sync.Mutex
	initOnce sync.Once
	state    State
	worker   Worker
	pending  map[string]chan result

	factory WorkerFactory
	compare CompareFunc
	counter atomic.Uint64
	clock   func() time.Time
	logger  zerolog.Logger
}

// DispatcherBuilder provides a fluent interface for creating Dispatcher
type DispatcherBuilder struct {
	cfg     config.DispatcherConfig
	factory WorkerFactory
	compare CompareFunc
	clock   func() time.Time
	logger  zerolog.Logger
}

// NewDispatcherBuilder creates a new builder
func NewDispatcherBuilder(logger zerolog.Logger) *DispatcherBuilder {
	return &DispatcherBuilder{
		cfg:    config.NewDefaultDispatcherConfig(),
		clock:  time.Now,
		logger: logger,
	}
}

// WithConfig sets the dispatcher configuration
func (b *DispatcherBuilder) WithConfig(cfg config.DispatcherConfig) *DispatcherBuilder {
	b.cfg = cfg
	return b
}

// WithWorkerFactory replaces the goroutine-backed worker
func (b *DispatcherBuilder) WithWorkerFactory(factory WorkerFactory) *DispatcherBuilder {
	b.factory = factory
	return b
}

// WithCompareFunc replaces the comparison pipeline used by both paths
func (b *DispatcherBuilder) WithCompareFunc(compare CompareFunc) *DispatcherBuilder {
	b.compare = compare
	return b
}

// WithClock sets the time source used for correlation ids
func (b *DispatcherBuilder) WithClock(clock func() time.Time) *DispatcherBuilder {
	b.clock = clock
	return b
}

// Build creates a new Dispatcher instance
func (b *DispatcherBuilder) Build() *Dispatcher {
	logger := b.logger.With().Str("component", "Dispatcher").Logger()

	compare := b.compare
	if compare == nil {
		compare = differ.NewContentDiffer().Compare
	}
	factory := b.factory
	if factory == nil {
		factory = NewLocalWorkerFactory(compare, b.cfg.QueueSize, b.logger)
	}
	clock := b.clock
	if clock == nil {
		clock = time.Now
	}

	d := &Dispatcher{
		state:   StateUninitialized,
		pending: make(map[string]chan result),
		factory: factory,
		compare: compare,
		clock:   clock,
		logger:  logger,
	}
	if !b.cfg.WorkerEnabled {
		d.state = StateDisabled
	}
	return d
}

// State returns the current worker state
func (d *Dispatcher) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Compare diffs textA against textB. A failure inside the pipeline is a
// *common.CompareExecutionError; a worker crash while the request is pending
// is a *common.WorkerFaultError. If ctx ends first, ctx.Err() is returned
// and the late response is discarded.
func (d *Dispatcher) Compare(ctx context.Context, textA, textB string, cfg models.ComparisonConfig) (models.CompareOutput, error) {
	if err := ctx.Err(); err != nil {
		return models.CompareOutput{}, err
	}

	w := d.acquireWorker()
	if w == nil {
		return d.compareSync(textA, textB, cfg)
	}

	id := d.nextID()
	ch := make(chan result, 1)
	if !d.register(w, id, ch) {
		return d.compareSync(textA, textB, cfg)
	}

	req := Request{
		ID:      id,
		Type:    RequestTypeCompare,
		Payload: ComparePayload{TextA: textA, TextB: textB, Config: cfg},
	}
	if err := w.PostMessage(req); err != nil {
		d.fault(err)
	}

	select {
	case res := <-ch:
		return res.output()
	case <-ctx.Done():
		d.forget(id)
		return models.CompareOutput{}, ctx.Err()
	}
}

// Close stops the worker and permanently routes calls to the in-process
// path. Requests still pending are rejected.
func (d *Dispatcher) Close() error {
	d.initOnce.Do(func() {})

	d.mu.Lock()
	w := d.worker
	pending := d.takePendingLocked()
	d.worker = nil
	d.state = StateDisabled
	d.mu.Unlock()

	closedErr := common.NewWorkerFaultError("dispatcher closed")
	for _, ch := range pending {
		ch <- result{err: closedErr}
	}
	if w != nil {
		return w.Close()
	}
	return nil
}

func (d *Dispatcher) acquireWorker() Worker {
	d.initOnce.Do(d.initWorker)

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state != StateActive {
		return nil
	}
	return d.worker
}

func (d *Dispatcher) initWorker() {
	if d.State() != StateUninitialized {
		return
	}

	w, err := d.createWorker()

	d.mu.Lock()
	defer d.mu.Unlock()
	if err != nil {
		d.state = StateDisabled
		d.logger.Warn().Err(&common.WorkerUnavailableError{Err: err}).Msg("Compare worker unavailable, using in-process comparison")
		return
	}
	if d.state != StateUninitialized {
		_ = w.Close()
		return
	}
	d.worker = w
	d.state = StateActive
	d.logger.Debug().Msg("Compare worker started")
}

func (d *Dispatcher) createWorker() (w Worker, err error) {
	defer func() {
		if r := recover(); r != nil {
			w, err = nil, fmt.Errorf("worker factory panicked: %v", r)
		}
	}()

	w, err = d.factory(WorkerHandlers{
		OnMessage: d.onMessage,
		OnError:   d.fault,
	})
	if err == nil && w == nil {
		err = errors.New("worker factory returned no worker")
	}
	return w, err
}

func (d *Dispatcher) register(w Worker, id string, ch chan result) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state != StateActive || d.worker != w {
		return false
	}
	d.pending[id] = ch
	return true
}

func (d *Dispatcher) forget(id string) {
	d.mu.Lock()
	delete(d.pending, id)
	d.mu.Unlock()
}

func (d *Dispatcher) onMessage(resp Response) {
	d.mu.Lock()
	ch, ok := d.pending[resp.ID]
	if ok {
		delete(d.pending, resp.ID)
	}
	d.mu.Unlock()

	if !ok {
		d.logger.Debug().Str("id", resp.ID).Msg("Dropping response with unknown id")
		return
	}
	ch <- result{resp: resp}
}

// fault rejects every pending request, discards the worker and disables the
// worker path for good.
func (d *Dispatcher) fault(cause error) {
	d.mu.Lock()
	if d.state == StateDisabled && len(d.pending) == 0 {
		d.mu.Unlock()
		return
	}
	w := d.worker
	pending := d.takePendingLocked()
	d.worker = nil
	d.state = StateDisabled
	d.mu.Unlock()

	if w != nil {
		_ = w.Close()
	}

	faultErr := common.NewWorkerFaultError(cause.Error())
	d.logger.Error().
		Err(cause).
		Int("pending", len(pending)).
		Object("resources", rslimiter.GetResourceUsage()).
		Msg("Compare worker faulted, using in-process comparison from now on")

	for _, ch := range pending {
		ch <- result{err: faultErr}
	}
}

func (d *Dispatcher) takePendingLocked() map[string]chan result {
	pending := d.pending
	d.pending = make(map[string]chan result)
	return pending
}

func (d *Dispatcher) compareSync(textA, textB string, cfg models.ComparisonConfig) (out models.CompareOutput, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = models.CompareOutput{}, common.NewCompareExecutionError(fmt.Sprint(r))
		}
	}()

	out, err = d.compare(textA, textB, cfg)
	if err != nil {
		var execErr *common.CompareExecutionError
		if !errors.As(err, &execErr) {
			err = common.NewCompareExecutionError(err.Error())
		}
		return models.CompareOutput{}, err
	}
	return out, nil
}

// nextID combines a millisecond timestamp with a per-dispatcher counter.
func (d *Dispatcher) nextID() string {
	return fmt.Sprintf("%d-%d", d.clock().UnixMilli(), d.counter.Add(1))
}
