package index

import (
	"context"

	"github.com/kestrelhealth/pacsindex/catalog"
	"github.com/kestrelhealth/pacsindex/store"
)

// GetGlobalProperty reads a process-wide property, such as the
// anonymization or modification sequence counters original_source/ keeps
// alongside the hierarchy.
func (f *Facade) GetGlobalProperty(ctx context.Context, key catalog.PropertyKey) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var value string
	var ok bool

	_, _, err := f.store.WithTx(ctx, func(ctx context.Context, tx *store.Tx) error {
		var err error
		value, ok, err = tx.GetGlobalProperty(ctx, key)
		return err
	})
	return value, ok, err
}

// SetGlobalProperty writes a process-wide property.
func (f *Facade) SetGlobalProperty(ctx context.Context, key catalog.PropertyKey, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	_, _, err := f.store.WithTx(ctx, func(ctx context.Context, tx *store.Tx) error {
		return tx.SetGlobalProperty(ctx, key, value)
	})
	return err
}
