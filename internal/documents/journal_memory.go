package documents

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryJournal is an in-memory Journal.
type MemoryJournal struct {
	mu   sync.RWMutex
	data map[string]Filing // fileID -> filing
}

// NewMemoryJournal constructs a MemoryJournal.
func NewMemoryJournal() *MemoryJournal {
	return &MemoryJournal{data: make(map[string]Filing)}
}

func (j *MemoryJournal) Create(ctx context.Context, f Filing) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	j.data[f.FileID] = f
	return nil
}

func (j *MemoryJournal) MarkComplete(ctx context.Context, fileID, sidecarFileID string, at time.Time) error {
	return j.update(ctx, fileID, func(f *Filing) {
		f.Status = StatusComplete
		f.SidecarFileID = sidecarFileID
		f.LastError = ""
		f.UpdatedAt = at
	})
}

func (j *MemoryJournal) MarkFailed(ctx context.Context, fileID, reason string, at time.Time) error {
	return j.update(ctx, fileID, func(f *Filing) {
		f.Status = StatusSidecarFailed
		f.LastError = reason
		f.UpdatedAt = at
	})
}

func (j *MemoryJournal) update(ctx context.Context, fileID string, fn func(*Filing)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	f, ok := j.data[fileID]
	if !ok {
		return ErrNotFound
	}
	fn(&f)
	j.data[fileID] = f
	return nil
}

func (j *MemoryJournal) GetByFileID(ctx context.Context, fileID string) (Filing, error) {
	if err := ctx.Err(); err != nil {
		return Filing{}, err
	}
	j.mu.RLock()
	defer j.mu.RUnlock()
	f, ok := j.data[fileID]
	if !ok {
		return Filing{}, ErrNotFound
	}
	return f, nil
}

func (j *MemoryJournal) ListOrphans(ctx context.Context, staleBefore time.Time, limit int) ([]Filing, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	j.mu.RLock()
	out := make([]Filing, 0)
	for _, f := range j.data {
		switch {
		case f.Status == StatusSidecarFailed:
			out = append(out, f)
		case f.Status == StatusBinaryWritten && f.CreatedAt.Before(staleBefore):
			out = append(out, f)
		}
	}
	j.mu.RUnlock()

	sort.Slice(out, func(a, b int) bool {
		return out[a].CreatedAt.Before(out[b].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

var _ Journal = (*MemoryJournal)(nil)
