package index

import (
	"context"

	"github.com/kestrelhealth/pacsindex/catalog"
	"github.com/kestrelhealth/pacsindex/store"
)

// GetChanges returns change events after since, up to max, and done, which
// is true when no events remain beyond what was returned.
func (f *Facade) GetChanges(ctx context.Context, since int64, max int) ([]catalog.ChangeEvent, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var events []catalog.ChangeEvent
	var done bool

	_, _, err := f.store.WithTx(ctx, func(ctx context.Context, tx *store.Tx) error {
		var err error
		events, done, err = tx.GetChanges(ctx, since, max)
		return err
	})
	return events, done, err
}

// GetLastChange returns the most recent change event, or nil if the log is
// empty.
func (f *Facade) GetLastChange(ctx context.Context) (*catalog.ChangeEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var event *catalog.ChangeEvent

	_, _, err := f.store.WithTx(ctx, func(ctx context.Context, tx *store.Tx) error {
		var err error
		event, err = tx.GetLastChange(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return event, nil
}
