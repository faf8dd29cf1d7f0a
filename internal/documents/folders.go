package documents

import (
	"context"
	"time"

	"dashboard-backend/internal/cloudstore"
	"dashboard-backend/internal/shared/apperr"
	"dashboard-backend/internal/shared/metrics"
	"dashboard-backend/internal/shared/telemetry"
	"dashboard-backend/internal/shared/util"
)

const (
	defaultLockTTL  = 10 * time.Second
	defaultLockWait = 2 * time.Second
)

// Locker serializes folder creation across processes. Implementations may
// refuse or fail; Resolve then carries on without the lock.
type Locker interface {
	AcquireWait(ctx context.Context, name string, ttl, wait time.Duration) (bool, error)
	Release(ctx context.Context, name string) error
}

// Resolver finds or creates folders by name under a parent.
// Creation is not transactional: concurrent callers may each create a
// folder with the same name, and later lookups return the first listed.
type Resolver struct {
	Store    cloudstore.Store
	Locker   Locker
	LockTTL  time.Duration
	LockWait time.Duration
}

// FolderKey identifies a (parent, name) pair for locking and logs.
func FolderKey(name, parentID string) string {
	return util.HashKey(parentID + "/" + name)
}

// Find looks a folder up without creating it.
func (r *Resolver) Find(ctx context.Context, name, parentID string) (string, bool, error) {
	folders, err := r.Store.ListFolders(ctx, cloudstore.FolderQuery{Name: name, ParentID: parentID})
	if err != nil {
		return "", false, apperr.Upstream("documents.find_folder", err)
	}
	if len(folders) == 0 {
		return "", false, nil
	}
	return folders[0].ID, true, nil
}

// Resolve returns the id of the named folder, creating it if none exists.
func (r *Resolver) Resolve(ctx context.Context, name, parentID string) (string, error) {
	key := FolderKey(name, parentID)
	if r.Locker != nil {
		if release := r.lock(ctx, key); release != nil {
			defer release()
		}
	}

	id, found, err := r.Find(ctx, name, parentID)
	if err != nil {
		return "", err
	}
	if found {
		return id, nil
	}

	folder, err := r.Store.CreateFolder(ctx, name, parentID)
	if err != nil {
		return "", apperr.Upstream("documents.create_folder", err)
	}
	metrics.IncFolderCreated()
	telemetry.Info("documents.folder.created", map[string]any{
		"folder_id":  folder.ID,
		"name":       name,
		"parent_id":  parentID,
		"folder_key": key,
	})
	return folder.ID, nil
}

// lock returns a release func, or nil when the lock was not taken.
func (r *Resolver) lock(ctx context.Context, key string) func() {
	ttl, wait := r.LockTTL, r.LockWait
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	if wait <= 0 {
		wait = defaultLockWait
	}
	ok, err := r.Locker.AcquireWait(ctx, key, ttl, wait)
	if err != nil || !ok {
		fields := map[string]any{"folder_key": key}
		if err != nil {
			fields["error"] = err.Error()
		}
		telemetry.Warn("documents.folder.lock_skipped", fields)
		return nil
	}
	return func() {
		if err := r.Locker.Release(context.WithoutCancel(ctx), key); err != nil {
			telemetry.Warn("documents.folder.lock_release", map[string]any{"folder_key": key, "error": err.Error()})
		}
	}
}
