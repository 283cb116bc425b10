package sheets

import (
	"context"
	"sakelog/internal/core"
)

// Ports for outbound adapters.
type (
	// PostAppender writes one log entry to the backup spreadsheet, one
	// row per beverage snapshot. The backup is append-only; an updated
	// post is appended again with a higher version.
	PostAppender interface {
		AppendPost(ctx context.Context, post core.PostWithBeverages, version int64) error
	}
)
