package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kestrelhealth/pacsindex/idxerr"
)

// SumAttachmentSizes returns the total compressed and uncompressed bytes
// across every attachment, for ComputeStatistics.
func (tx *Tx) SumAttachmentSizes(ctx context.Context) (compressed, uncompressed uint64, err error) {
	var c, u sql.NullInt64
	err = tx.tx.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(compressed_size), 0), COALESCE(SUM(uncompressed_size), 0) FROM attachments`,
	).Scan(&c, &u)
	if err != nil {
		return 0, 0, idxerr.Wrap(idxerr.Storage, fmt.Errorf("sum attachment sizes: %w", err))
	}
	return uint64(c.Int64), uint64(u.Int64), nil
}
