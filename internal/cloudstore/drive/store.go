package drive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	gdrive "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"dashboard-backend/internal/cloudstore"
)

const (
	folderFields = "files(id, name, parents)"
	fileFields   = "id, name, mimeType, description, parents, webViewLink, webContentLink, modifiedTime"
)

// Store implements cloudstore.Store on Google Drive v3.
type Store struct {
	svc *gdrive.Service
}

// New builds a Drive-backed store from an authenticated HTTP client.
func New(ctx context.Context, httpClient *http.Client) (*Store, error) {
	if httpClient == nil {
		return nil, errors.New("drive: http client is required")
	}
	svc, err := gdrive.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("drive: new service: %w", err)
	}
	return &Store{svc: svc}, nil
}

// ListFolders lists non-trashed folders ordered by name.
func (s *Store) ListFolders(ctx context.Context, q cloudstore.FolderQuery) ([]cloudstore.Folder, error) {
	resp, err := s.svc.Files.List().
		Q(FolderQueryString(q)).
		Fields(folderFields).
		Spaces("drive").
		OrderBy("name").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("drive list folders: %w", err)
	}
	out := make([]cloudstore.Folder, 0, len(resp.Files))
	for _, f := range resp.Files {
		folder := cloudstore.Folder{ID: f.Id, Name: f.Name}
		if len(f.Parents) > 0 {
			folder.ParentID = f.Parents[0]
		}
		out = append(out, folder)
	}
	return out, nil
}

// CreateFolder creates a folder, optionally under parentID.
func (s *Store) CreateFolder(ctx context.Context, name, parentID string) (cloudstore.Folder, error) {
	meta := &gdrive.File{Name: name, MimeType: cloudstore.FolderMimeType}
	if parentID != "" {
		meta.Parents = []string{parentID}
	}
	created, err := s.svc.Files.Create(meta).Fields("id").Context(ctx).Do()
	if err != nil {
		return cloudstore.Folder{}, fmt.Errorf("drive create folder %q: %w", name, err)
	}
	return cloudstore.Folder{ID: created.Id, Name: name, ParentID: parentID}, nil
}

// CreateFile uploads r as a new Drive file.
func (s *Store) CreateFile(ctx context.Context, spec cloudstore.FileSpec, r io.Reader) (cloudstore.File, error) {
	meta := &gdrive.File{Name: spec.Name, Description: spec.Description}
	if spec.ParentID != "" {
		meta.Parents = []string{spec.ParentID}
	}
	created, err := s.svc.Files.Create(meta).
		Media(r, googleapi.ContentType(spec.MimeType)).
		Fields(fileFields).
		Context(ctx).
		Do()
	if err != nil {
		return cloudstore.File{}, fmt.Errorf("drive create file %q: %w", spec.Name, err)
	}
	return toFile(created), nil
}

// GetFile fetches file metadata.
func (s *Store) GetFile(ctx context.Context, id string) (cloudstore.File, error) {
	f, err := s.svc.Files.Get(id).Fields(fileFields).Context(ctx).Do()
	if err != nil {
		return cloudstore.File{}, mapError(fmt.Sprintf("drive get %s", id), err)
	}
	return toFile(f), nil
}

// Download opens the file content (alt=media).
func (s *Store) Download(ctx context.Context, id string) (io.ReadCloser, error) {
	resp, err := s.svc.Files.Get(id).Context(ctx).Download()
	if err != nil {
		return nil, mapError(fmt.Sprintf("drive download %s", id), err)
	}
	return resp.Body, nil
}

// ListFiles lists non-folder, non-trashed files newest first.
func (s *Store) ListFiles(ctx context.Context, q cloudstore.FileQuery) ([]cloudstore.File, error) {
	resp, err := s.svc.Files.List().
		Q(FileQueryString(q)).
		Fields("files(" + fileFields + ")").
		OrderBy("modifiedTime desc").
		PageSize(int64(q.PageSizeOrDefault())).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("drive list files: %w", err)
	}
	out := make([]cloudstore.File, 0, len(resp.Files))
	for _, f := range resp.Files {
		out = append(out, toFile(f))
	}
	return out, nil
}

// FolderQueryString renders a Drive search expression for folders.
func FolderQueryString(q cloudstore.FolderQuery) string {
	parts := []string{}
	if q.Name != "" {
		parts = append(parts, fmt.Sprintf("name='%s'", escape(q.Name)))
	}
	parts = append(parts, fmt.Sprintf("mimeType='%s'", cloudstore.FolderMimeType))
	if q.ParentID != "" {
		parts = append(parts, fmt.Sprintf("'%s' in parents", escape(q.ParentID)))
	}
	parts = append(parts, "trashed=false")
	return strings.Join(parts, " and ")
}

// FileQueryString renders a Drive search expression for files.
func FileQueryString(q cloudstore.FileQuery) string {
	expr := fmt.Sprintf("mimeType != '%s' and trashed = false", cloudstore.FolderMimeType)
	if q.FullText != "" {
		expr += fmt.Sprintf(" and fullText contains '%s'", escape(q.FullText))
	}
	if q.ParentID != "" {
		expr += fmt.Sprintf(" and '%s' in parents", escape(q.ParentID))
	}
	return expr
}

// escape quotes a value for a Drive query string literal.
func escape(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	return strings.ReplaceAll(v, `'`, `\'`)
}

func toFile(f *gdrive.File) cloudstore.File {
	out := cloudstore.File{
		ID:             f.Id,
		Name:           f.Name,
		MimeType:       f.MimeType,
		Description:    f.Description,
		ParentIDs:      f.Parents,
		WebViewLink:    f.WebViewLink,
		WebContentLink: f.WebContentLink,
	}
	if f.ModifiedTime != "" {
		if ts, err := time.Parse(time.RFC3339, f.ModifiedTime); err == nil {
			out.ModifiedTime = ts
		}
	}
	return out
}

func mapError(op string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusNotFound {
		return fmt.Errorf("%s: %w", op, cloudstore.ErrNotFound)
	}
	return fmt.Errorf("%s: %w", op, err)
}

var _ cloudstore.Store = (*Store)(nil)
