package documents

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// PGJournal implements Journal using Postgres.
type PGJournal struct {
	DB *sql.DB
}

const filingColumns = `id, file_id, file_name, sidecar_name, folder_id, record, sidecar_file_id, status, last_error, created_at, updated_at`

// Create inserts a new filing.
func (j *PGJournal) Create(ctx context.Context, f Filing) error {
	const query = `
INSERT INTO filings (
    id,
    file_id,
    file_name,
    sidecar_name,
    folder_id,
    record,
    sidecar_file_id,
    status,
    last_error,
    created_at,
    updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	record, err := json.Marshal(f.Record)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	_, err = j.DB.ExecContext(
		ctx,
		query,
		f.ID,
		f.FileID,
		f.FileName,
		f.SidecarName,
		f.FolderID,
		record,
		f.SidecarFileID,
		string(f.Status),
		f.LastError,
		f.CreatedAt,
		f.UpdatedAt,
	)
	return err
}

// MarkComplete records a written sidecar.
func (j *PGJournal) MarkComplete(ctx context.Context, fileID, sidecarFileID string, at time.Time) error {
	const query = `
UPDATE filings
SET status = $1, sidecar_file_id = $2, last_error = '', updated_at = $3
WHERE file_id = $4`
	return j.exec(ctx, query, string(StatusComplete), sidecarFileID, at, fileID)
}

// MarkFailed records a failed sidecar write.
func (j *PGJournal) MarkFailed(ctx context.Context, fileID, reason string, at time.Time) error {
	const query = `
UPDATE filings
SET status = $1, last_error = $2, updated_at = $3
WHERE file_id = $4`
	return j.exec(ctx, query, string(StatusSidecarFailed), reason, at, fileID)
}

func (j *PGJournal) exec(ctx context.Context, query string, args ...any) error {
	res, err := j.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetByFileID fetches the filing for a binary.
func (j *PGJournal) GetByFileID(ctx context.Context, fileID string) (Filing, error) {
	query := `
SELECT ` + filingColumns + `
FROM filings
WHERE file_id = $1
LIMIT 1`
	f, err := scanFiling(j.DB.QueryRowContext(ctx, query, fileID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Filing{}, ErrNotFound
		}
		return Filing{}, err
	}
	return f, nil
}

// ListOrphans lists failed and stale in-flight filings, oldest first.
func (j *PGJournal) ListOrphans(ctx context.Context, staleBefore time.Time, limit int) ([]Filing, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
SELECT ` + filingColumns + `
FROM filings
WHERE status = $1 OR (status = $2 AND created_at < $3)
ORDER BY created_at ASC
LIMIT $4`

	rows, err := j.DB.QueryContext(ctx, query, string(StatusSidecarFailed), string(StatusBinaryWritten), staleBefore, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Filing, 0)
	for rows.Next() {
		f, err := scanFiling(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFiling(row rowScanner) (Filing, error) {
	var f Filing
	var record []byte
	var status string
	if err := row.Scan(
		&f.ID,
		&f.FileID,
		&f.FileName,
		&f.SidecarName,
		&f.FolderID,
		&record,
		&f.SidecarFileID,
		&status,
		&f.LastError,
		&f.CreatedAt,
		&f.UpdatedAt,
	); err != nil {
		return Filing{}, err
	}
	f.Status = FilingStatus(status)
	if len(record) > 0 {
		if err := json.Unmarshal(record, &f.Record); err != nil {
			return Filing{}, fmt.Errorf("decode record: %w", err)
		}
	}
	return f, nil
}

var _ Journal = (*PGJournal)(nil)
