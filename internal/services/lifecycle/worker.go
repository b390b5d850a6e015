package lifecycle

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mcoot/partycoord/internal/model"
	"github.com/mcoot/partycoord/internal/publish"
	"github.com/mcoot/partycoord/internal/storage"
)

const (
	// DefaultQueueSize is the number of changes buffered before new ones are dropped
	DefaultQueueSize = 1024

	// writeTimeout bounds each storage and publish call
	writeTimeout = 5 * time.Second
)

// Worker applies party changes to the directory and publisher in the order they happened.
// Sessions hand changes over without blocking.
type Worker struct {
	storage   storage.Storage
	publisher publish.Publisher
	logger    *slog.Logger

	queue    chan model.PartyChange
	started  atomic.Bool
	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// New creates a Worker with the default queue size
func New(store storage.Storage, publisher publish.Publisher, logger *slog.Logger) *Worker {
	return NewWithQueueSize(store, publisher, logger, DefaultQueueSize)
}

// NewWithQueueSize creates a Worker with a custom queue size
func NewWithQueueSize(store storage.Storage, publisher publish.Publisher, logger *slog.Logger, size int) *Worker {
	return &Worker{
		storage:   store,
		publisher: publisher,
		logger:    logger.With(slog.String("component", "lifecycle")),
		queue:     make(chan model.PartyChange, size),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Notify queues a change; it is dropped with a warning when the queue is full
func (w *Worker) Notify(change model.PartyChange) {
	select {
	case w.queue <- change:
	default:
		w.logger.Warn("lifecycle change dropped - queue full",
			slog.String("kind", string(change.Kind)),
			slog.String("party_id", string(change.Summary.ID)))
	}
}

// Start runs the worker loop until Stop is called
func (w *Worker) Start(ctx context.Context) {
	if !w.started.CompareAndSwap(false, true) {
		return
	}
	go w.run(ctx)
}

// Stop drains queued changes and waits for the loop to exit
func (w *Worker) Stop(ctx context.Context) error {
	w.stopOnce.Do(func() { close(w.stop) })
	if !w.started.Load() {
		return nil
	}
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Worker) run(ctx context.Context) {
	defer close(w.done)
	w.logger.Info("lifecycle worker started")

	for {
		select {
		case change := <-w.queue:
			w.apply(ctx, change)
		case <-w.stop:
			w.drain(ctx)
			w.logger.Info("lifecycle worker stopped")
			return
		}
	}
}

func (w *Worker) drain(ctx context.Context) {
	for {
		select {
		case change := <-w.queue:
			w.apply(ctx, change)
		default:
			return
		}
	}
}

func (w *Worker) apply(ctx context.Context, change model.PartyChange) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
	defer cancel()

	summary := change.Summary
	var err error
	if change.Kind == model.ChangeClosed {
		err = w.storage.DeleteParty(ctx, summary.Code)
	} else {
		err = w.storage.SaveParty(ctx, &summary)
	}
	if err != nil {
		w.logger.Error("failed to update party directory",
			slog.String("kind", string(change.Kind)),
			slog.String("party_code", string(summary.Code)),
			slog.String("error", err.Error()))
	}

	if err := w.publisher.Publish(ctx, change); err != nil {
		w.logger.Error("failed to publish lifecycle event",
			slog.String("kind", string(change.Kind)),
			slog.String("party_id", string(summary.ID)),
			slog.String("error", err.Error()))
	}
}
