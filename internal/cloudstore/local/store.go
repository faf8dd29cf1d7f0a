package local

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"dashboard-backend/internal/cloudstore"
)

const (
	objectsDir = "objects"
	metaDir    = "meta"
)

// record is the on-disk metadata for one entry.
type record struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	MimeType     string    `json:"mimeType"`
	Description  string    `json:"description,omitempty"`
	ParentID     string    `json:"parentId,omitempty"`
	Folder       bool      `json:"folder"`
	ModifiedTime time.Time `json:"modifiedTime"`
}

// Store implements cloudstore.Store on the local filesystem. Content lives
// under <baseDir>/objects/<id>, metadata under <baseDir>/meta/<id>.json.
type Store struct {
	baseDir string
	mu      sync.Mutex
	now     func() time.Time
}

// New creates a store rooted at baseDir.
func New(baseDir string) *Store {
	return &Store{baseDir: baseDir, now: time.Now}
}

// ListFolders returns matching folders ordered by name.
func (s *Store) ListFolders(ctx context.Context, q cloudstore.FolderQuery) ([]cloudstore.Folder, error) {
	records, err := s.scan(ctx)
	if err != nil {
		return nil, err
	}
	var out []cloudstore.Folder
	for _, r := range records {
		if !r.Folder {
			continue
		}
		if q.Name != "" && r.Name != q.Name {
			continue
		}
		if q.ParentID != "" && r.ParentID != q.ParentID {
			continue
		}
		out = append(out, cloudstore.Folder{ID: r.ID, Name: r.Name, ParentID: r.ParentID})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// CreateFolder writes a folder metadata record.
func (s *Store) CreateFolder(ctx context.Context, name, parentID string) (cloudstore.Folder, error) {
	if err := ctx.Err(); err != nil {
		return cloudstore.Folder{}, err
	}
	r := record{
		ID:           uuid.NewString(),
		Name:         name,
		MimeType:     cloudstore.FolderMimeType,
		ParentID:     parentID,
		Folder:       true,
		ModifiedTime: s.now().UTC(),
	}
	if err := s.writeMeta(r); err != nil {
		return cloudstore.Folder{}, err
	}
	return cloudstore.Folder{ID: r.ID, Name: r.Name, ParentID: r.ParentID}, nil
}

// CreateFile writes content then metadata.
func (s *Store) CreateFile(ctx context.Context, spec cloudstore.FileSpec, r io.Reader) (cloudstore.File, error) {
	if err := ctx.Err(); err != nil {
		return cloudstore.File{}, err
	}
	rec := record{
		ID:           uuid.NewString(),
		Name:         spec.Name,
		MimeType:     spec.MimeType,
		Description:  spec.Description,
		ParentID:     spec.ParentID,
		ModifiedTime: s.now().UTC(),
	}

	dir := filepath.Join(s.baseDir, objectsDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return cloudstore.File{}, fmt.Errorf("mkdir: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(dir, rec.ID), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return cloudstore.File{}, fmt.Errorf("open file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return cloudstore.File{}, fmt.Errorf("write body: %w", err)
	}
	if err := f.Close(); err != nil {
		return cloudstore.File{}, fmt.Errorf("close file: %w", err)
	}

	if err := s.writeMeta(rec); err != nil {
		return cloudstore.File{}, err
	}
	return s.toFile(rec), nil
}

// GetFile reads the metadata record for id.
func (s *Store) GetFile(ctx context.Context, id string) (cloudstore.File, error) {
	if err := ctx.Err(); err != nil {
		return cloudstore.File{}, err
	}
	rec, err := s.readMeta(id)
	if err != nil {
		return cloudstore.File{}, err
	}
	return s.toFile(rec), nil
}

// Download opens the stored content for id.
func (s *Store) Download(ctx context.Context, id string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validateID(id); err != nil {
		return nil, err
	}
	f, err := os.Open(filepath.Join(s.baseDir, objectsDir, id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, cloudstore.ErrNotFound
		}
		return nil, err
	}
	return f, nil
}

// ListFiles scans metadata and returns matching files, newest first.
func (s *Store) ListFiles(ctx context.Context, q cloudstore.FileQuery) ([]cloudstore.File, error) {
	records, err := s.scan(ctx)
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(strings.TrimSpace(q.FullText))
	var matched []record
	for _, r := range records {
		if r.Folder {
			continue
		}
		if q.ParentID != "" && r.ParentID != q.ParentID {
			continue
		}
		if needle != "" && !s.matchesFullText(r, needle) {
			continue
		}
		matched = append(matched, r)
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].ModifiedTime.After(matched[j].ModifiedTime)
	})
	if limit := q.PageSizeOrDefault(); len(matched) > limit {
		matched = matched[:limit]
	}
	out := make([]cloudstore.File, 0, len(matched))
	for _, r := range matched {
		out = append(out, s.toFile(r))
	}
	return out, nil
}

func (s *Store) matchesFullText(r record, needle string) bool {
	if strings.Contains(strings.ToLower(r.Name), needle) || strings.Contains(strings.ToLower(r.Description), needle) {
		return true
	}
	if !strings.HasPrefix(r.MimeType, "text/") && !strings.HasPrefix(r.MimeType, "application/json") {
		return false
	}
	data, err := os.ReadFile(filepath.Join(s.baseDir, objectsDir, r.ID))
	if err != nil {
		return false
	}
	return bytes.Contains(bytes.ToLower(data), []byte(needle))
}

func (s *Store) scan(ctx context.Context) ([]record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(filepath.Join(s.baseDir, metaDir))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read meta dir: %w", err)
	}
	out := make([]record, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(s.baseDir, metaDir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read meta %s: %w", e.Name(), err)
		}
		var r record
		if err := json.Unmarshal(raw, &r); err != nil {
			return nil, fmt.Errorf("decode meta %s: %w", e.Name(), err)
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *Store) writeMeta(r record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Join(s.baseDir, metaDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	raw, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode meta: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, r.ID+".json"), raw, 0o644); err != nil {
		return fmt.Errorf("write meta: %w", err)
	}
	return nil
}

func (s *Store) readMeta(id string) (record, error) {
	if err := validateID(id); err != nil {
		return record{}, err
	}
	raw, err := os.ReadFile(filepath.Join(s.baseDir, metaDir, id+".json"))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return record{}, cloudstore.ErrNotFound
		}
		return record{}, fmt.Errorf("read meta: %w", err)
	}
	var r record
	if err := json.Unmarshal(raw, &r); err != nil {
		return record{}, fmt.Errorf("decode meta: %w", err)
	}
	return r, nil
}

func (s *Store) toFile(r record) cloudstore.File {
	f := cloudstore.File{
		ID:             r.ID,
		Name:           r.Name,
		MimeType:       r.MimeType,
		Description:    r.Description,
		WebViewLink:    "file://" + filepath.Join(s.baseDir, metaDir, r.ID+".json"),
		WebContentLink: "file://" + filepath.Join(s.baseDir, objectsDir, r.ID),
		ModifiedTime:   r.ModifiedTime,
	}
	if r.ParentID != "" {
		f.ParentIDs = []string{r.ParentID}
	}
	return f
}

func validateID(id string) error {
	clean := filepath.Clean(id)
	if id == "" || clean != id || strings.ContainsAny(id, `/\`) || strings.HasPrefix(clean, "..") {
		return cloudstore.ErrNotFound
	}
	return nil
}

var _ cloudstore.Store = (*Store)(nil)
