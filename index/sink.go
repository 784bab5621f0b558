package index

import "github.com/kestrelhealth/pacsindex/catalog"

// DeletionSink receives the side effects of a cascade delete once its
// transaction has committed: which blob files to remove, and which
// ancestor (if any) survived the cascade. It is called after commit, never
// from inside the transaction, so a sink that fails or blocks cannot roll
// back metadata the caller has already been told is gone.
type DeletionSink interface {
	DeleteFile(uuid string)
	SignalRemainingAncestor(ancestor catalog.RemainingAncestor)
}

// NopDeletionSink discards every signal. Useful for callers that only want
// metadata deleted and manage blob storage out of band.
type NopDeletionSink struct{}

func (NopDeletionSink) DeleteFile(uuid string)                                   {}
func (NopDeletionSink) SignalRemainingAncestor(ancestor catalog.RemainingAncestor) {}
