package dispatcher

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

var errWorkerStopped = errors.New("compare worker stopped")

// WorkerHandlers receive what a worker emits. OnMessage gets one call per
// answered request; OnError reports a worker-level fault after which the
// worker answers nothing more.
type WorkerHandlers struct {
	OnMessage func(Response)
	OnError   func(error)
}

// Worker accepts requests and answers them asynchronously through the
// handlers it was created with.
type Worker interface {
	PostMessage(req Request) error
	Close() error
}

// WorkerFactory creates a worker bound to handlers.
type WorkerFactory func(handlers WorkerHandlers) (Worker, error)

// LocalWorker executes requests one at a time on a dedicated goroutine.
type LocalWorker struct {
	requests  chan Request
	done      chan struct{}
	closeOnce sync.Once
	handlers  WorkerHandlers
	compare   CompareFunc
	logger    zerolog.Logger
}

// NewLocalWorkerFactory returns a factory for goroutine-backed workers with a
// request queue of queueSize.
func NewLocalWorkerFactory(compare CompareFunc, queueSize int, logger zerolog.Logger) WorkerFactory {
	return func(handlers WorkerHandlers) (Worker, error) {
		if compare == nil {
			return nil, errors.New("compare function is required")
		}
		if handlers.OnMessage == nil || handlers.OnError == nil {
			return nil, errors.New("worker handlers are required")
		}
		if queueSize < 1 {
			queueSize = 1
		}

		w := &LocalWorker{
			requests: make(chan Request, queueSize),
			done:     make(chan struct{}),
			handlers: handlers,
			compare:  compare,
			logger:   logger.With().Str("component", "CompareWorker").Logger(),
		}
		go w.run()
		return w, nil
	}
}

// PostMessage queues req, blocking while the queue is full.
func (w *LocalWorker) PostMessage(req Request) error {
	select {
	case <-w.done:
		return errWorkerStopped
	default:
	}

	select {
	case w.requests <- req:
		return nil
	case <-w.done:
		return errWorkerStopped
	}
}

// Close stops the worker goroutine. Queued requests are not answered.
func (w *LocalWorker) Close() error {
	w.closeOnce.Do(func() { close(w.done) })
	return nil
}

func (w *LocalWorker) run() {
	defer func() {
		if r := recover(); r != nil {
			_ = w.Close()
			w.handlers.OnError(fmt.Errorf("compare worker crashed: %v", r))
		}
	}()

	for {
		select {
		case <-w.done:
			return
		case req := <-w.requests:
			if req.Type != RequestTypeCompare {
				w.logger.Debug().Str("id", req.ID).Str("type", req.Type).Msg("Ignoring unknown request type")
				continue
			}
			w.handlers.OnMessage(w.execute(req))
		}
	}
}

// execute turns any failure of the compare pipeline, panics included, into
// an error response for that request only.
func (w *LocalWorker) execute(req Request) (resp Response) {
	defer func() {
		if r := recover(); r != nil {
			resp = Response{ID: req.ID, OK: false, Error: fmt.Sprint(r)}
		}
	}()

	out, err := w.compare(req.Payload.TextA, req.Payload.TextB, req.Payload.Config)
	if err != nil {
		return Response{ID: req.ID, OK: false, Error: err.Error()}
	}
	return Response{ID: req.ID, OK: true, Payload: &out}
}
