package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"dashboard-backend/internal/cloudstore"
)

type entry struct {
	file     cloudstore.File
	isFolder bool
	content  []byte
	seq      int64
}

// Store is an in-process cloudstore.Store for tests and ephemeral dev runs.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*entry
	seq     int64
	now     func() time.Time
}

// New creates an empty Store. now may be nil.
func New(now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{
		entries: make(map[string]*entry),
		now:     now,
	}
}

// ListFolders returns matching folders ordered by name.
func (s *Store) ListFolders(ctx context.Context, q cloudstore.FolderQuery) ([]cloudstore.Folder, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]*entry, 0)
	for _, e := range s.entries {
		if !e.isFolder {
			continue
		}
		if q.Name != "" && e.file.Name != q.Name {
			continue
		}
		if q.ParentID != "" && !hasParent(e.file, q.ParentID) {
			continue
		}
		matched = append(matched, e)
	}
	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].file.Name == matched[j].file.Name {
			return matched[i].seq < matched[j].seq
		}
		return matched[i].file.Name < matched[j].file.Name
	})

	out := make([]cloudstore.Folder, 0, len(matched))
	for _, e := range matched {
		out = append(out, toFolder(e.file))
	}
	return out, nil
}

// CreateFolder creates a folder; names are not unique.
func (s *Store) CreateFolder(ctx context.Context, name, parentID string) (cloudstore.Folder, error) {
	if err := ctx.Err(); err != nil {
		return cloudstore.Folder{}, err
	}
	f := s.put(cloudstore.FileSpec{Name: name, MimeType: cloudstore.FolderMimeType, ParentID: parentID}, nil, true)
	return toFolder(f), nil
}

// CreateFile stores the content of r under a new id.
func (s *Store) CreateFile(ctx context.Context, spec cloudstore.FileSpec, r io.Reader) (cloudstore.File, error) {
	if err := ctx.Err(); err != nil {
		return cloudstore.File{}, err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return cloudstore.File{}, fmt.Errorf("read content: %w", err)
	}
	return s.put(spec, data, false), nil
}

// GetFile returns metadata for a file or folder id.
func (s *Store) GetFile(ctx context.Context, id string) (cloudstore.File, error) {
	if err := ctx.Err(); err != nil {
		return cloudstore.File{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[id]
	if !ok {
		return cloudstore.File{}, cloudstore.ErrNotFound
	}
	return e.file, nil
}

// Download returns a reader over a copy of the stored content.
func (s *Store) Download(ctx context.Context, id string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[id]
	if !ok || e.isFolder {
		return nil, cloudstore.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(append([]byte(nil), e.content...))), nil
}

// ListFiles returns matching files, newest first.
func (s *Store) ListFiles(ctx context.Context, q cloudstore.FileQuery) ([]cloudstore.File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	needle := strings.ToLower(strings.TrimSpace(q.FullText))
	matched := make([]*entry, 0)
	for _, e := range s.entries {
		if e.isFolder {
			continue
		}
		if q.ParentID != "" && !hasParent(e.file, q.ParentID) {
			continue
		}
		if needle != "" && !matchesFullText(e, needle) {
			continue
		}
		matched = append(matched, e)
	}
	sort.SliceStable(matched, func(i, j int) bool {
		ti, tj := matched[i].file.ModifiedTime, matched[j].file.ModifiedTime
		if ti.Equal(tj) {
			return matched[i].seq > matched[j].seq
		}
		return ti.After(tj)
	})

	limit := q.PageSizeOrDefault()
	if len(matched) > limit {
		matched = matched[:limit]
	}
	out := make([]cloudstore.File, 0, len(matched))
	for _, e := range matched {
		out = append(out, e.file)
	}
	return out, nil
}

// Len reports how many entries (files and folders) are stored.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *Store) put(spec cloudstore.FileSpec, content []byte, folder bool) cloudstore.File {
	id := uuid.NewString()
	mimeType := spec.MimeType
	if folder {
		mimeType = cloudstore.FolderMimeType
	}
	f := cloudstore.File{
		ID:             id,
		Name:           spec.Name,
		MimeType:       mimeType,
		Description:    spec.Description,
		WebViewLink:    "memory://view/" + id,
		WebContentLink: "memory://content/" + id,
		ModifiedTime:   s.now().UTC(),
	}
	if spec.ParentID != "" {
		f.ParentIDs = []string{spec.ParentID}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	s.entries[id] = &entry{file: f, isFolder: folder, content: content, seq: s.seq}
	return f
}

func hasParent(f cloudstore.File, parentID string) bool {
	for _, p := range f.ParentIDs {
		if p == parentID {
			return true
		}
	}
	return false
}

func matchesFullText(e *entry, needle string) bool {
	if strings.Contains(strings.ToLower(e.file.Name), needle) {
		return true
	}
	if strings.Contains(strings.ToLower(e.file.Description), needle) {
		return true
	}
	if isTextual(e.file.MimeType) {
		return strings.Contains(strings.ToLower(string(e.content)), needle)
	}
	return false
}

func isTextual(mimeType string) bool {
	return strings.HasPrefix(mimeType, "text/") || strings.HasPrefix(mimeType, "application/json")
}

func toFolder(f cloudstore.File) cloudstore.Folder {
	folder := cloudstore.Folder{ID: f.ID, Name: f.Name}
	if len(f.ParentIDs) > 0 {
		folder.ParentID = f.ParentIDs[0]
	}
	return folder
}

var _ cloudstore.Store = (*Store)(nil)
