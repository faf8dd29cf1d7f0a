package documents

import (
	"time"

	"dashboard-backend/internal/cloudstore"
)

type storeResponse struct {
	Success     bool   `json:"success"`
	FileID      string `json:"fileId"`
	WebViewLink string `json:"webViewLink"`
	Metadata    Record `json:"metadata"`
}

type searchResponse struct {
	Results []Record `json:"results"`
}

// FileResponse is the outward-facing representation of a stored file.
type FileResponse struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	WebViewLink    string    `json:"webViewLink"`
	WebContentLink string    `json:"webContentLink"`
	ModifiedTime   time.Time `json:"modifiedTime"`
}

func toFileResponse(f cloudstore.File) FileResponse {
	return FileResponse{
		ID:             f.ID,
		Name:           f.Name,
		WebViewLink:    f.WebViewLink,
		WebContentLink: f.WebContentLink,
		ModifiedTime:   f.ModifiedTime,
	}
}

// FilingResponse is the outward-facing representation of a journal entry.
type FilingResponse struct {
	FileID        string    `json:"fileId"`
	FileName      string    `json:"fileName"`
	SidecarName   string    `json:"sidecarName"`
	FolderID      string    `json:"folderId"`
	SidecarFileID string    `json:"sidecarFileId,omitempty"`
	Status        string    `json:"status"`
	LastError     string    `json:"lastError,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func toFilingResponse(f Filing) FilingResponse {
	return FilingResponse{
		FileID:        f.FileID,
		FileName:      f.FileName,
		SidecarName:   f.SidecarName,
		FolderID:      f.FolderID,
		SidecarFileID: f.SidecarFileID,
		Status:        string(f.Status),
		LastError:     f.LastError,
		CreatedAt:     f.CreatedAt,
		UpdatedAt:     f.UpdatedAt,
	}
}
