// Package notify fans out change and export events to in-process
// listeners via a simple publish/subscribe hub.
package notify

import (
	"context"
	"sync"

	"github.com/kestrelhealth/pacsindex/catalog"
	"github.com/kestrelhealth/pacsindex/logger"
)

// ChangeHandler receives a committed change event.
type ChangeHandler func(ctx context.Context, event catalog.ChangeEvent)

// ExportHandler receives a committed export event.
type ExportHandler func(ctx context.Context, event catalog.ExportedEvent)

// Hub delivers change and export events to every registered handler. Each
// handler is run in its own goroutine per event; a slow or
// blocked handler only delays its own delivery, never the facade's writer.
type Hub struct {
	mu             sync.RWMutex
	changeHandlers []ChangeHandler
	exportHandlers []ExportHandler
	log            *logger.Logger
}

// New returns an empty Hub.
func New(log *logger.Logger) *Hub {
	return &Hub{log: log}
}

// OnChange registers a handler invoked for every committed change event.
func (h *Hub) OnChange(handler ChangeHandler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.changeHandlers = append(h.changeHandlers, handler)
}

// OnExport registers a handler invoked for every committed export event.
func (h *Hub) OnExport(handler ExportHandler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.exportHandlers = append(h.exportHandlers, handler)
}

// PublishChange delivers a change event to every registered handler.
func (h *Hub) PublishChange(ctx context.Context, event catalog.ChangeEvent) {
	h.mu.RLock()
	handlers := append([]ChangeHandler(nil), h.changeHandlers...)
	h.mu.RUnlock()

	for _, handler := range handlers {
		go func(handler ChangeHandler) {
			defer h.recoverAndLog("change handler")
			handler(ctx, event)
		}(handler)
	}
}

// PublishExport delivers an export event to every registered handler.
func (h *Hub) PublishExport(ctx context.Context, event catalog.ExportedEvent) {
	h.mu.RLock()
	handlers := append([]ExportHandler(nil), h.exportHandlers...)
	h.mu.RUnlock()

	for _, handler := range handlers {
		go func(handler ExportHandler) {
			defer h.recoverAndLog("export handler")
			handler(ctx, event)
		}(handler)
	}
}

func (h *Hub) recoverAndLog(what string) {
	if r := recover(); r != nil {
		h.log.Error("notify handler panicked", "handler", what, "panic", r)
	}
}
