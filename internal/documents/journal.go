package documents

import (
	"context"
	"time"
)

// Journal records each structured store so half-finished writes can be
// listed and repaired.
type Journal interface {
	Create(ctx context.Context, f Filing) error
	MarkComplete(ctx context.Context, fileID, sidecarFileID string, at time.Time) error
	MarkFailed(ctx context.Context, fileID, reason string, at time.Time) error
	GetByFileID(ctx context.Context, fileID string) (Filing, error)
	// ListOrphans returns sidecar_failed entries plus binary_written entries
	// created before staleBefore, oldest first.
	ListOrphans(ctx context.Context, staleBefore time.Time, limit int) ([]Filing, error)
}
