// Package index implements the single-writer facade over the embedded
// store: every mutation serializes through one mutex and one transaction,
// and every read goes through the same mutex so it never observes a
// partially-applied write.
package index

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kestrelhealth/pacsindex/cache"
	"github.com/kestrelhealth/pacsindex/logger"
	"github.com/kestrelhealth/pacsindex/notify"
	"github.com/kestrelhealth/pacsindex/store"
)

// Facade is the catalog index's public entry point. Exactly one Facade
// should exist per embedded store; its mutex is the only thing standing
// between callers and concurrent writes to a store that assumes a single
// writer.
type Facade struct {
	mu    sync.Mutex
	store *store.Store
	cache *cache.PublicIDCache
	hub   *notify.Hub
	sink  DeletionSink
	log   *logger.Logger

	flushSleep time.Duration
	stopCh     chan struct{}
	wg         sync.WaitGroup
}

// New wires a Facade around an already-open store. sink receives the
// committed side effects of cascade deletes; pass NopDeletionSink{} if the
// caller manages blob storage separately.
func New(st *store.Store, sink DeletionSink, log *logger.Logger, flushSleep time.Duration) *Facade {
	f := &Facade{
		store:      st,
		cache:      cache.New(),
		hub:        notify.New(log),
		sink:       sink,
		log:        log,
		flushSleep: flushSleep,
		stopCh:     make(chan struct{}),
	}

	f.wg.Add(1)
	go f.flushLoop()

	return f
}

// beginOperation tags ctx with a fresh correlation id and returns a logger
// carrying it, so every log line a single Store/DeleteResource call emits
// can be traced back to that one call.
func (f *Facade) beginOperation(ctx context.Context, name string) (context.Context, *logger.Logger) {
	ctx = logger.ContextWithOperationID(ctx, uuid.NewString())
	log := f.log.WithContext(ctx).WithFields(map[string]any{"op": name})
	return ctx, log
}

// OnChange registers a handler for committed change events.
func (f *Facade) OnChange(handler notify.ChangeHandler) {
	f.hub.OnChange(handler)
}

// OnExport registers a handler for committed export events.
func (f *Facade) OnExport(handler notify.ExportHandler) {
	f.hub.OnExport(handler)
}

// Close stops the background flusher and closes the underlying store.
func (f *Facade) Close() error {
	close(f.stopCh)
	f.wg.Wait()
	return f.store.Close()
}

// flushLoop periodically asks the store to flush buffered writes to stable
// storage, until Close is called.
func (f *Facade) flushLoop() {
	defer f.wg.Done()

	ticker := time.NewTicker(f.flushSleep)
	defer ticker.Stop()

	for {
		select {
		case <-f.stopCh:
			return
		case <-ticker.C:
			f.mu.Lock()
			err := f.store.Flush(context.Background())
			f.mu.Unlock()
			if err != nil {
				f.log.Error("background flush failed", "error", err)
			}
		}
	}
}
