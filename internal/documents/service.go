package documents

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"dashboard-backend/internal/cloudstore"
	"dashboard-backend/internal/shared/apperr"
	"dashboard-backend/internal/shared/metrics"
	"dashboard-backend/internal/shared/telemetry"
	"dashboard-backend/internal/shared/util"
)

const (
	searchPageSize    = cloudstore.DefaultPageSize
	defaultStaleAfter = 10 * time.Minute
	maxOrphans        = 100
	// Matches JavaScript's Date.toISOString, which clients already parse.
	isoMillis = "2006-01-02T15:04:05.000Z07:00"
)

var tracer = otel.Tracer("dashboard-backend/documents")

// Service files structured documents and answers index queries.
type Service struct {
	Cloud   cloudstore.Store
	Folders *Resolver
	Journal Journal
	Now     func() time.Time
	// StaleAfter is how long a binary may wait for its sidecar before the
	// journal reports it as an orphan.
	StaleAfter time.Duration
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// Store uploads the binary into Documents/<category folder>, then writes its
// sidecar next to it. The two writes are not atomic: when the sidecar fails
// the binary stays behind and the error carries its file id.
func (s *Service) Store(ctx context.Context, in StoreInput) (rec Record, err error) {
	ctx, span := tracer.Start(ctx, "documents.store")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if len(in.Image) == 0 {
		return Record{}, apperr.Validation("documents.store", "No image provided")
	}

	rec = in.Metadata
	now := s.now()
	// The record keeps reference_id exactly as sent; only object names use
	// the sanitized stem.
	stem := strings.TrimSpace(rec.ReferenceID)
	if stem == "" {
		stem = fmt.Sprintf("doc_%d", now.UnixMilli())
	}
	stem, err = util.SanitizeFileName(stem)
	if err != nil {
		return Record{}, apperr.Validation("documents.store", "Invalid reference_id")
	}

	category := rec.Category()
	span.SetAttributes(attribute.String("documents.category", string(category)))

	rootID, err := s.Folders.Resolve(ctx, RootFolderName, "")
	if err != nil {
		return Record{}, err
	}
	folderID, err := s.Folders.Resolve(ctx, category.FolderName(), rootID)
	if err != nil {
		return Record{}, err
	}

	mimeType := in.MimeType
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	fileName := stem + "_" + now.Format("2006-01-02") + ".jpg"
	bin, err := s.Cloud.CreateFile(ctx, cloudstore.FileSpec{
		Name:     fileName,
		MimeType: mimeType,
		ParentID: folderID,
	}, bytes.NewReader(in.Image))
	if err != nil {
		return Record{}, apperr.Upstream("documents.store.binary", err)
	}

	rec.FileID = bin.ID
	rec.FileName = fileName
	rec.UploadDate = now.Format(isoMillis)
	rec.WebViewLink = bin.WebViewLink
	rec.WebContentLink = bin.WebContentLink

	filing := Filing{
		ID:          uuid.NewString(),
		FileID:      bin.ID,
		FileName:    fileName,
		SidecarName: stem + SidecarSuffix,
		FolderID:    folderID,
		Record:      rec,
		Status:      StatusBinaryWritten,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.journal(ctx, "create", bin.ID, func(j Journal) error { return j.Create(ctx, filing) })

	sidecar, err := s.writeSidecar(ctx, filing.SidecarName, folderID, rec)
	if err != nil {
		metrics.IncSidecarFailure()
		telemetry.Error("documents.store.sidecar_failed", map[string]any{
			"file_id":      bin.ID,
			"sidecar_name": filing.SidecarName,
			"error":        err.Error(),
		})
		s.journal(ctx, "mark_failed", bin.ID, func(j Journal) error {
			return j.MarkFailed(context.WithoutCancel(ctx), bin.ID, err.Error(), s.now())
		})
		return Record{}, apperr.PartialFailure("documents.store.sidecar", bin.ID, err)
	}

	s.journal(ctx, "mark_complete", bin.ID, func(j Journal) error {
		return j.MarkComplete(ctx, bin.ID, sidecar.ID, s.now())
	})
	metrics.IncDocumentStored()
	telemetry.Info("documents.store.complete", map[string]any{
		"file_id":    bin.ID,
		"sidecar_id": sidecar.ID,
		"category":   string(category),
		"folder_id":  folderID,
	})
	return rec, nil
}

func (s *Service) writeSidecar(ctx context.Context, name, folderID string, rec Record) (cloudstore.File, error) {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return cloudstore.File{}, fmt.Errorf("marshal sidecar: %w", err)
	}
	return s.Cloud.CreateFile(ctx, cloudstore.FileSpec{
		Name:     name,
		MimeType: "application/json",
		ParentID: folderID,
	}, bytes.NewReader(data))
}

// Journal writes never fail a store; the cloud store is the source of truth.
func (s *Service) journal(ctx context.Context, op, fileID string, fn func(Journal) error) {
	if s.Journal == nil {
		return
	}
	if err := fn(s.Journal); err != nil {
		telemetry.Warn("documents.journal."+op, map[string]any{"file_id": fileID, "error": err.Error()})
	}
}

// Search lists sidecars matching q, newest first. It never creates folders:
// a type whose folder does not exist yet yields no results.
func (s *Service) Search(ctx context.Context, q SearchQuery) (results []Record, err error) {
	ctx, span := tracer.Start(ctx, "documents.search")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	fq := cloudstore.FileQuery{FullText: strings.TrimSpace(q.Query), PageSize: searchPageSize}
	if category, ok := ParseCategory(q.Type); ok {
		folderID, found, err := s.findCategoryFolder(ctx, category)
		if err != nil {
			return nil, err
		}
		if !found {
			return []Record{}, nil
		}
		fq.ParentID = folderID
	}

	files, err := s.Cloud.ListFiles(ctx, fq)
	if err != nil {
		return nil, apperr.Upstream("documents.search", err)
	}

	results = make([]Record, 0)
	for _, f := range files {
		if q.StartDate != nil && f.ModifiedTime.Before(*q.StartDate) {
			continue
		}
		if q.EndDate != nil && f.ModifiedTime.After(*q.EndDate) {
			continue
		}
		if !strings.HasSuffix(f.Name, SidecarSuffix) {
			continue
		}
		rec, err := s.readSidecar(ctx, f.ID)
		if err != nil {
			metrics.IncSidecarSkipped()
			telemetry.Error("documents.search.sidecar_skipped", map[string]any{"file_id": f.ID, "name": f.Name, "error": err.Error()})
			continue
		}
		results = append(results, rec)
	}
	span.SetAttributes(attribute.Int("documents.listed", len(files)), attribute.Int("documents.results", len(results)))
	return results, nil
}

func (s *Service) findCategoryFolder(ctx context.Context, c Category) (string, bool, error) {
	rootID, found, err := s.Folders.Find(ctx, RootFolderName, "")
	if err != nil || !found {
		return "", false, err
	}
	return s.Folders.Find(ctx, c.FolderName(), rootID)
}

func (s *Service) readSidecar(ctx context.Context, id string) (Record, error) {
	rc, err := s.Cloud.Download(ctx, id)
	if err != nil {
		return Record{}, err
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return Record{}, err
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, fmt.Errorf("decode sidecar: %w", err)
	}
	return rec, nil
}

// Get returns file metadata by id.
func (s *Service) Get(ctx context.Context, fileID string) (cloudstore.File, error) {
	if strings.TrimSpace(fileID) == "" {
		return cloudstore.File{}, apperr.Validation("documents.get", "fileId is required")
	}
	f, err := s.Cloud.GetFile(ctx, fileID)
	if err != nil {
		if errors.Is(err, cloudstore.ErrNotFound) {
			return cloudstore.File{}, apperr.NotFound("documents.get", err)
		}
		return cloudstore.File{}, apperr.Upstream("documents.get", err)
	}
	return f, nil
}

// ListOrphans returns binaries whose sidecar failed or never arrived.
func (s *Service) ListOrphans(ctx context.Context) ([]Filing, error) {
	if s.Journal == nil {
		return []Filing{}, nil
	}
	stale := s.StaleAfter
	if stale <= 0 {
		stale = defaultStaleAfter
	}
	return s.Journal.ListOrphans(ctx, s.now().Add(-stale), maxOrphans)
}

// Repair writes the missing sidecar for fileID from the journaled record.
// Completed filings are returned unchanged.
func (s *Service) Repair(ctx context.Context, fileID string) (Filing, error) {
	if s.Journal == nil {
		return Filing{}, ErrUnknownOrphan
	}
	f, err := s.Journal.GetByFileID(ctx, fileID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Filing{}, ErrUnknownOrphan
		}
		return Filing{}, err
	}
	if f.Status == StatusComplete {
		return f, nil
	}

	sidecar, err := s.writeSidecar(ctx, f.SidecarName, f.FolderID, f.Record)
	if err != nil {
		s.journal(ctx, "mark_failed", fileID, func(j Journal) error {
			return j.MarkFailed(context.WithoutCancel(ctx), fileID, err.Error(), s.now())
		})
		return Filing{}, apperr.Upstream("documents.repair", err)
	}
	now := s.now()
	if err := s.Journal.MarkComplete(ctx, fileID, sidecar.ID, now); err != nil {
		return Filing{}, err
	}
	f.Status = StatusComplete
	f.SidecarFileID = sidecar.ID
	f.LastError = ""
	f.UpdatedAt = now
	telemetry.Info("documents.repair.complete", map[string]any{"file_id": fileID, "sidecar_id": sidecar.ID})
	return f, nil
}
