package documents

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"dashboard-backend/internal/cloudstore"
	"dashboard-backend/internal/cloudstore/memory"
	"dashboard-backend/internal/shared/apperr"
	"dashboard-backend/internal/shared/telemetry"
)

var fixedNow = time.Date(2026, time.March, 4, 10, 30, 0, 0, time.UTC)

// flakyStore fails sidecar uploads while failSidecars is set.
type flakyStore struct {
	*memory.Store
	mu           sync.Mutex
	failSidecars bool
}

func (s *flakyStore) setFail(v bool) {
	s.mu.Lock()
	s.failSidecars = v
	s.mu.Unlock()
}

func (s *flakyStore) CreateFile(ctx context.Context, spec cloudstore.FileSpec, r io.Reader) (cloudstore.File, error) {
	s.mu.Lock()
	fail := s.failSidecars
	s.mu.Unlock()
	if fail && strings.HasSuffix(spec.Name, SidecarSuffix) {
		return cloudstore.File{}, errors.New("quota exceeded")
	}
	return s.Store.CreateFile(ctx, spec, r)
}

func newTestService(store cloudstore.Store) *Service {
	return &Service{
		Cloud:   store,
		Folders: &Resolver{Store: store},
		Journal: NewMemoryJournal(),
		Now:     func() time.Time { return fixedNow },
	}
}

func decodeRecord(t *testing.T, raw string) Record {
	t.Helper()
	var rec Record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		t.Fatalf("decode record: %v", err)
	}
	return rec
}

func TestStoreThenSearchRoundTrip(t *testing.T) {
	store := memory.New(nil)
	svc := newTestService(store)
	ctx := context.Background()

	meta := decodeRecord(t, `{"type":"bill","date":"2026-02-01","reference_id":"INV-77","amount":125.5,"notes":"electricity","vendor":"City Power"}`)
	rec, err := svc.Store(ctx, StoreInput{Image: []byte("jpeg-bytes"), MimeType: "image/jpeg", Metadata: meta})
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	if rec.FileName != "INV-77_2026-03-04.jpg" {
		t.Fatalf("unexpected file name %q", rec.FileName)
	}
	if rec.UploadDate != "2026-03-04T10:30:00.000Z" {
		t.Fatalf("unexpected upload date %q", rec.UploadDate)
	}
	if rec.FileID == "" || rec.WebViewLink == "" {
		t.Fatalf("expected server fields, got %+v", rec)
	}

	bin, err := store.GetFile(ctx, rec.FileID)
	if err != nil {
		t.Fatalf("get binary: %v", err)
	}
	bills, err := store.ListFolders(ctx, cloudstore.FolderQuery{Name: "Bills"})
	if err != nil || len(bills) != 1 {
		t.Fatalf("expected one Bills folder, got %v (%v)", bills, err)
	}
	if len(bin.ParentIDs) != 1 || bin.ParentIDs[0] != bills[0].ID {
		t.Fatalf("binary not filed under Bills: %v", bin.ParentIDs)
	}

	results, err := svc.Search(ctx, SearchQuery{Type: "bill"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	got := results[0]
	if got.FileID != rec.FileID || got.ReferenceID != "INV-77" || got.Notes != "electricity" {
		t.Fatalf("unexpected record: %+v", got)
	}
	if string(got.Extra["amount"]) != "125.5" {
		t.Fatalf("expected numeric amount preserved, got %s", got.Extra["amount"])
	}
	if string(got.Extra["vendor"]) != `"City Power"` {
		t.Fatalf("expected vendor preserved, got %s", got.Extra["vendor"])
	}

	byText, err := svc.Search(ctx, SearchQuery{Query: "City Power"})
	if err != nil || len(byText) != 1 {
		t.Fatalf("full-text search: %v, %d results", err, len(byText))
	}
}

func TestStoreDefaultsReferenceAndCategory(t *testing.T) {
	store := memory.New(nil)
	svc := newTestService(store)
	ctx := context.Background()

	rec, err := svc.Store(ctx, StoreInput{Image: []byte("x"), Metadata: Record{Type: "unknown-kind"}})
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	if rec.FileName != "doc_1772620200000_2026-03-04.jpg" {
		t.Fatalf("expected generated file stem, got %q", rec.FileName)
	}
	if rec.ReferenceID != "" {
		t.Fatalf("generated stem must not be written into the record, got %q", rec.ReferenceID)
	}
	if folders, _ := store.ListFolders(ctx, cloudstore.FolderQuery{Name: "Other Documents"}); len(folders) != 1 {
		t.Fatalf("expected Other Documents folder, got %v", folders)
	}
}

func TestStoreValidation(t *testing.T) {
	svc := newTestService(memory.New(nil))
	ctx := context.Background()

	if _, err := svc.Store(ctx, StoreInput{}); !apperr.IsValidation(err) {
		t.Fatalf("expected validation error for empty image, got %v", err)
	}
	_, err := svc.Store(ctx, StoreInput{Image: []byte("x"), Metadata: Record{ReferenceID: "../../etc"}})
	if !apperr.IsValidation(err) {
		t.Fatalf("expected validation error for bad reference, got %v", err)
	}
}

func TestStoreReusesFolders(t *testing.T) {
	store := memory.New(nil)
	svc := newTestService(store)
	ctx := context.Background()

	for _, ref := range []string{"a", "b", "c"} {
		if _, err := svc.Store(ctx, StoreInput{Image: []byte(ref), Metadata: Record{Type: "receipt", ReferenceID: ref}}); err != nil {
			t.Fatalf("store %s: %v", ref, err)
		}
	}
	roots, _ := store.ListFolders(ctx, cloudstore.FolderQuery{Name: RootFolderName})
	receipts, _ := store.ListFolders(ctx, cloudstore.FolderQuery{Name: "Receipts"})
	if len(roots) != 1 || len(receipts) != 1 {
		t.Fatalf("expected single folders, got roots=%d receipts=%d", len(roots), len(receipts))
	}
}

func TestSidecarFailureLeavesRepairableOrphan(t *testing.T) {
	store := &flakyStore{Store: memory.New(nil), failSidecars: true}
	svc := newTestService(store)
	ctx := context.Background()

	_, err := svc.Store(ctx, StoreInput{Image: []byte("jpeg"), Metadata: Record{Type: "tax", ReferenceID: "W2"}})
	e, ok := apperr.As(err)
	if !ok || e.Kind != apperr.KindPartialFailure {
		t.Fatalf("expected partial failure, got %v", err)
	}
	fileID, _ := e.Details["file_id"].(string)
	if fileID == "" {
		t.Fatalf("expected file_id in details, got %v", e.Details)
	}

	if _, err := svc.Get(ctx, fileID); err != nil {
		t.Fatalf("binary should be fetchable: %v", err)
	}
	results, err := svc.Search(ctx, SearchQuery{})
	if err != nil || len(results) != 0 {
		t.Fatalf("orphan must not be searchable: %v %v", results, err)
	}

	orphans, err := svc.ListOrphans(ctx)
	if err != nil || len(orphans) != 1 || orphans[0].FileID != fileID {
		t.Fatalf("expected orphan listed, got %v (%v)", orphans, err)
	}
	if orphans[0].Status != StatusSidecarFailed || !strings.Contains(orphans[0].LastError, "quota") {
		t.Fatalf("unexpected orphan: %+v", orphans[0])
	}

	store.setFail(false)
	repaired, err := svc.Repair(ctx, fileID)
	if err != nil {
		t.Fatalf("repair: %v", err)
	}
	if repaired.Status != StatusComplete || repaired.SidecarFileID == "" {
		t.Fatalf("unexpected repaired filing: %+v", repaired)
	}

	results, err = svc.Search(ctx, SearchQuery{Type: "tax"})
	if err != nil || len(results) != 1 || results[0].FileID != fileID {
		t.Fatalf("expected repaired record searchable, got %v (%v)", results, err)
	}
	if orphans, _ := svc.ListOrphans(ctx); len(orphans) != 0 {
		t.Fatalf("expected no orphans after repair, got %v", orphans)
	}

	again, err := svc.Repair(ctx, fileID)
	if err != nil || again.SidecarFileID != repaired.SidecarFileID {
		t.Fatalf("repair of complete filing should be a no-op: %+v %v", again, err)
	}
}

func TestRepairUnknownFile(t *testing.T) {
	svc := newTestService(memory.New(nil))
	if _, err := svc.Repair(context.Background(), "missing"); !errors.Is(err, ErrUnknownOrphan) {
		t.Fatalf("expected ErrUnknownOrphan, got %v", err)
	}
}

func TestSearchUnknownFolderIsReadOnly(t *testing.T) {
	store := memory.New(nil)
	svc := newTestService(store)
	ctx := context.Background()

	if _, err := svc.Store(ctx, StoreInput{Image: []byte("x"), Metadata: Record{Type: "bill", ReferenceID: "a"}}); err != nil {
		t.Fatalf("store: %v", err)
	}
	before := store.Len()
	results, err := svc.Search(ctx, SearchQuery{Type: "medical"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected no results, got %v", results)
	}
	if store.Len() != before {
		t.Fatalf("search created entries: before=%d after=%d", before, store.Len())
	}

	empty := memory.New(nil)
	if res, err := newTestService(empty).Search(ctx, SearchQuery{Type: "bill"}); err != nil || len(res) != 0 || empty.Len() != 0 {
		t.Fatalf("search on empty store: %v %v len=%d", res, err, empty.Len())
	}
}

func TestSearchDateFilters(t *testing.T) {
	clock := fixedNow
	store := memory.New(func() time.Time { return clock })
	svc := newTestService(store)
	ctx := context.Background()

	for i, ref := range []string{"jan", "feb", "mar"} {
		clock = time.Date(2026, time.Month(i+1), 15, 0, 0, 0, 0, time.UTC)
		if _, err := svc.Store(ctx, StoreInput{Image: []byte(ref), Metadata: Record{Type: "bill", ReferenceID: ref}}); err != nil {
			t.Fatalf("store %s: %v", ref, err)
		}
	}

	start := time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, time.February, 28, 0, 0, 0, 0, time.UTC)
	results, err := svc.Search(ctx, SearchQuery{StartDate: &start, EndDate: &end})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 1 || results[0].ReferenceID != "feb" {
		t.Fatalf("expected only feb, got %v", results)
	}

	results, err = svc.Search(ctx, SearchQuery{StartDate: &start})
	if err != nil || len(results) != 2 {
		t.Fatalf("expected feb and mar, got %v (%v)", results, err)
	}
	if results[0].ReferenceID != "mar" {
		t.Fatalf("expected newest first, got %s", results[0].ReferenceID)
	}
}

func TestSearchSkipsUnreadableSidecar(t *testing.T) {
	store := memory.New(nil)
	svc := newTestService(store)
	ctx := context.Background()

	if _, err := svc.Store(ctx, StoreInput{Image: []byte("x"), Metadata: Record{Type: "bill", ReferenceID: "good"}}); err != nil {
		t.Fatalf("store: %v", err)
	}
	if _, err := store.CreateFile(ctx, cloudstore.FileSpec{Name: "broken" + SidecarSuffix, MimeType: "application/json"}, strings.NewReader("{not json")); err != nil {
		t.Fatalf("create: %v", err)
	}

	results, err := svc.Search(ctx, SearchQuery{})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 1 || results[0].ReferenceID != "good" {
		t.Fatalf("expected only the readable sidecar, got %v", results)
	}
}

func TestGetMissingFile(t *testing.T) {
	svc := newTestService(memory.New(nil))
	_, err := svc.Get(context.Background(), "nope")
	if apperr.KindOf(err) != apperr.KindNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := svc.Get(context.Background(), " "); !apperr.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSearchReturnsSubmittedFieldsVerbatim(t *testing.T) {
	store := memory.New(nil)
	svc := newTestService(store)
	ctx := context.Background()

	submitted := `{"type":"bill","date":"2026-02-01","reference_id":"acct/7","amount":null,"notes":"","tags":["a"]}`
	rec, err := svc.Store(ctx, StoreInput{Image: []byte("jpeg"), Metadata: decodeRecord(t, submitted)})
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	if rec.FileName != "acct_7_2026-03-04.jpg" {
		t.Fatalf("expected sanitized file name, got %q", rec.FileName)
	}

	results, err := svc.Search(ctx, SearchQuery{Type: "bill"})
	if err != nil || len(results) != 1 {
		t.Fatalf("search: %v (%d results)", err, len(results))
	}
	out, err := json.Marshal(results[0])
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var want, got map[string]json.RawMessage
	if err := json.Unmarshal([]byte(submitted), &want); err != nil {
		t.Fatalf("decode submitted: %v", err)
	}
	if err := json.Unmarshal(out, &got); err != nil {
		t.Fatalf("decode searched: %v", err)
	}
	for k, v := range want {
		if !bytes.Equal(got[k], v) {
			t.Fatalf("key %q: submitted %s, searched %s", k, v, got[k])
		}
	}
	for _, k := range []string{"fileId", "fileName", "uploadDate", "webViewLink", "webContentLink"} {
		if _, ok := got[k]; !ok {
			t.Fatalf("missing server field %q in %s", k, out)
		}
	}
}

// journalDown fails every status update.
type journalDown struct {
	*MemoryJournal
}

func (journalDown) MarkFailed(ctx context.Context, fileID, reason string, at time.Time) error {
	return errors.New("journal down")
}

func TestRepairLogsJournalFailure(t *testing.T) {
	store := &flakyStore{Store: memory.New(nil), failSidecars: true}
	svc := newTestService(store)
	svc.Journal = journalDown{NewMemoryJournal()}
	ctx := context.Background()

	_, err := svc.Store(ctx, StoreInput{Image: []byte("jpeg"), Metadata: Record{Type: "bill", ReferenceID: "R9"}})
	e, ok := apperr.As(err)
	if !ok || e.Kind != apperr.KindPartialFailure {
		t.Fatalf("expected partial failure, got %v", err)
	}
	fileID := e.Details["file_id"].(string)

	var logs bytes.Buffer
	prev := telemetry.SetOutput(&logs)
	defer telemetry.SetOutput(prev)

	if _, err := svc.Repair(ctx, fileID); apperr.KindOf(err) != apperr.KindUpstream {
		t.Fatalf("expected upstream error, got %v", err)
	}
	if !strings.Contains(logs.String(), "documents.journal.mark_failed") || !strings.Contains(logs.String(), "journal down") {
		t.Fatalf("journal failure not logged: %s", logs.String())
	}
}
