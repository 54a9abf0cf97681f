// Package sheets defines the outbound port for the spreadsheet backup and its
// adapters. The worker appends one row per exported record; the adapter
// decides where the row lands.
package sheets

import "context"

// RowAppender appends one row to the backup sheet and returns a reference to
// where it landed.
type RowAppender interface {
	AppendRow(ctx context.Context, row []any) (rowRef string, err error)
}
