package documents_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/gin-gonic/gin"

	"dashboard-backend/internal/bootstrap"
	"dashboard-backend/internal/cloudstore"
	"dashboard-backend/internal/cloudstore/memory"
	"dashboard-backend/internal/shared/config"
)

func newApp(t *testing.T, opts ...bootstrap.Option) *bootstrap.App {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Config{
		Port:            "0",
		CORSAllowOrigin: []string{"http://localhost:5173"},
		LocalStoreDir:   t.TempDir(),
		Env:             "dev",
		CloudStore:      "local",
	}
	app, err := bootstrap.Build(cfg, opts...)
	if err != nil {
		t.Fatalf("bootstrap build: %v", err)
	}
	t.Cleanup(app.Close)
	return app
}

func storeRequest(t *testing.T, image []byte, metadata string) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if image != nil {
		fw, err := writer.CreateFormFile("image", "scan.jpg")
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := fw.Write(image); err != nil {
			t.Fatalf("write file: %v", err)
		}
	}
	if metadata != "" {
		if err := writer.WriteField("metadata", metadata); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/documents/store", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func serve(router http.Handler, req *http.Request) *httptest.ResponseRecorder {
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

type errorBody struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code"`
}

func decodeError(t *testing.T, resp *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var out errorBody
	if err := json.Unmarshal(resp.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode error body: %v (%s)", err, resp.Body.String())
	}
	return out
}

func TestStoreSearchAndGet(t *testing.T) {
	router := newApp(t).Router

	resp := serve(router, storeRequest(t, []byte("jpeg"), `{"type":"insurance","reference_id":"POL-1","amount":300,"provider":"Acme"}`))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var stored struct {
		Success     bool           `json:"success"`
		FileID      string         `json:"fileId"`
		WebViewLink string         `json:"webViewLink"`
		Metadata    map[string]any `json:"metadata"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &stored); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !stored.Success || stored.FileID == "" {
		t.Fatalf("unexpected store response: %s", resp.Body.String())
	}
	if stored.Metadata["provider"] != "Acme" || stored.Metadata["amount"] != float64(300) || stored.Metadata["fileId"] != stored.FileID {
		t.Fatalf("metadata not echoed: %v", stored.Metadata)
	}

	resp = serve(router, httptest.NewRequest(http.MethodGet, "/api/documents/search?type=insurance&startDate=2000-01-01", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("search: expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var found struct {
		Results []map[string]any `json:"results"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &found); err != nil {
		t.Fatalf("decode search: %v", err)
	}
	if len(found.Results) != 1 || found.Results[0]["reference_id"] != "POL-1" {
		t.Fatalf("unexpected results: %s", resp.Body.String())
	}

	resp = serve(router, httptest.NewRequest(http.MethodGet, "/api/documents/search?type=medical", nil))
	if resp.Code != http.StatusOK || !strings.Contains(resp.Body.String(), `"results":[]`) {
		t.Fatalf("expected empty results, got %d: %s", resp.Code, resp.Body.String())
	}

	resp = serve(router, httptest.NewRequest(http.MethodGet, "/api/documents/"+stored.FileID, nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("get: expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var file struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &file); err != nil {
		t.Fatalf("decode file: %v", err)
	}
	if file.ID != stored.FileID || !strings.HasPrefix(file.Name, "POL-1_") {
		t.Fatalf("unexpected file: %+v", file)
	}
}

func TestStoreValidationErrors(t *testing.T) {
	router := newApp(t).Router

	cases := []struct {
		name    string
		req     *http.Request
		message string
	}{
		{"missing image", storeRequest(t, nil, `{"type":"bill"}`), "No image provided"},
		{"missing metadata", storeRequest(t, []byte("x"), ""), "metadata must be a JSON object"},
		{"bad metadata", storeRequest(t, []byte("x"), `{"type":`), "metadata must be a JSON object"},
		{"bad reference", storeRequest(t, []byte("x"), `{"reference_id":"../up"}`), "Invalid reference_id"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := serve(router, tc.req)
			if resp.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", resp.Code, resp.Body.String())
			}
			body := decodeError(t, resp)
			if body.Success || body.Error != tc.message || body.Code != "VALIDATION_ERROR" {
				t.Fatalf("unexpected body %+v", body)
			}
		})
	}
}

func TestSearchRejectsBadDates(t *testing.T) {
	router := newApp(t).Router
	for _, q := range []string{"startDate=yesterday", "endDate=2026-13-45"} {
		resp := serve(router, httptest.NewRequest(http.MethodGet, "/api/documents/search?"+q, nil))
		if resp.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", q, resp.Code)
		}
	}
}

func TestGetUnknownFileIsGeneric(t *testing.T) {
	router := newApp(t).Router
	resp := serve(router, httptest.NewRequest(http.MethodGet, "/api/documents/does-not-exist", nil))
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.Code)
	}
	if body := decodeError(t, resp); body.Error != "Failed to fetch document" {
		t.Fatalf("unexpected body %+v", body)
	}
}

type sidecarBreaker struct {
	*memory.Store
	broken atomic.Bool
}

func (s *sidecarBreaker) CreateFile(ctx context.Context, spec cloudstore.FileSpec, r io.Reader) (cloudstore.File, error) {
	if s.broken.Load() && strings.HasSuffix(spec.Name, "_metadata.json") {
		return cloudstore.File{}, errors.New("drive unavailable")
	}
	return s.Store.CreateFile(ctx, spec, r)
}

func TestSidecarFailureOrphanAndRepair(t *testing.T) {
	store := &sidecarBreaker{Store: memory.New(nil)}
	store.broken.Store(true)
	app := newApp(t, bootstrap.WithStore(store))
	router := app.Router

	resp := serve(router, storeRequest(t, []byte("jpeg"), `{"type":"receipt","reference_id":"LUNCH"}`))
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d: %s", resp.Code, resp.Body.String())
	}
	if body := decodeError(t, resp); body.Error != "Failed to store document" || strings.Contains(resp.Body.String(), "drive unavailable") {
		t.Fatalf("cause leaked or wrong message: %s", resp.Body.String())
	}

	resp = serve(router, httptest.NewRequest(http.MethodGet, "/api/documents/orphans", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("orphans: expected 200, got %d", resp.Code)
	}
	var listed struct {
		Orphans []struct {
			FileID string `json:"fileId"`
			Status string `json:"status"`
		} `json:"orphans"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &listed); err != nil {
		t.Fatalf("decode orphans: %v", err)
	}
	if len(listed.Orphans) != 1 || listed.Orphans[0].Status != "sidecar_failed" {
		t.Fatalf("unexpected orphans: %s", resp.Body.String())
	}
	fileID := listed.Orphans[0].FileID

	store.broken.Store(false)
	resp = serve(router, httptest.NewRequest(http.MethodPost, "/api/documents/orphans/"+fileID+"/repair", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("repair: expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	resp = serve(router, httptest.NewRequest(http.MethodGet, "/api/documents/search?type=receipt", nil))
	if !strings.Contains(resp.Body.String(), fileID) {
		t.Fatalf("repaired record missing from search: %s", resp.Body.String())
	}

	resp = serve(router, httptest.NewRequest(http.MethodPost, "/api/documents/orphans/unknown/repair", nil))
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown orphan, got %d", resp.Code)
	}
}
