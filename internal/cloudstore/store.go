package cloudstore

import (
	"context"
	"errors"
	"io"
	"time"
)

// FolderMimeType marks folder entries, matching Google Drive's convention.
const FolderMimeType = "application/vnd.google-apps.folder"

// DefaultPageSize caps ListFiles results when the query does not set one.
const DefaultPageSize = 50

// ErrNotFound is returned when a file or folder id does not exist.
var ErrNotFound = errors.New("cloudstore: not found")

// Folder is a folder in the remote store.
type Folder struct {
	ID       string
	Name     string
	ParentID string
}

// File is a non-folder entry in the remote store.
type File struct {
	ID             string
	Name           string
	MimeType       string
	Description    string
	ParentIDs      []string
	WebViewLink    string
	WebContentLink string
	ModifiedTime   time.Time
}

// FileSpec describes a file to create.
type FileSpec struct {
	Name        string
	MimeType    string
	Description string
	ParentID    string
}

// FolderQuery selects non-trashed folders. Empty fields do not filter.
type FolderQuery struct {
	Name     string
	ParentID string
}

// FileQuery selects non-trashed, non-folder files. Results are ordered by
// modified time, newest first.
type FileQuery struct {
	FullText string
	ParentID string
	PageSize int
}

// Store is the subset of a cloud object store the filing pipeline needs.
type Store interface {
	// ListFolders returns matching folders ordered by name.
	ListFolders(ctx context.Context, q FolderQuery) ([]Folder, error)
	// CreateFolder creates a folder under parentID, or at the root if empty.
	CreateFolder(ctx context.Context, name, parentID string) (Folder, error)
	// CreateFile uploads r as a new file.
	CreateFile(ctx context.Context, spec FileSpec, r io.Reader) (File, error)
	// GetFile returns file metadata.
	GetFile(ctx context.Context, id string) (File, error)
	// Download opens the content of a file.
	Download(ctx context.Context, id string) (io.ReadCloser, error)
	// ListFiles returns matching files, newest first.
	ListFiles(ctx context.Context, q FileQuery) ([]File, error)
}

// PageSizeOrDefault normalizes q.PageSize.
func (q FileQuery) PageSizeOrDefault() int {
	if q.PageSize <= 0 {
		return DefaultPageSize
	}
	return q.PageSize
}
