package documents

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"dashboard-backend/internal/capture"
)

// Category is the storage vocabulary. It decides the destination folder and
// is distinct from capture.DocumentType, the classifier's vocabulary.
type Category string

const (
	CategoryBill      Category = "bill"
	CategoryInsurance Category = "insurance"
	CategoryPolicy    Category = "policy"
	CategoryReceipt   Category = "receipt"
	CategoryContract  Category = "contract"
	CategoryTax       Category = "tax"
	CategoryMedical   Category = "medical"
	CategoryOther     Category = "other"
)

// RootFolderName is the top-level folder every category folder lives under.
const RootFolderName = "Documents"

// SidecarSuffix marks metadata files; only these are visible to search.
const SidecarSuffix = "_metadata.json"

var categoryFolders = map[Category]string{
	CategoryBill:      "Bills",
	CategoryInsurance: "Insurance",
	CategoryPolicy:    "Policies",
	CategoryReceipt:   "Receipts",
	CategoryContract:  "Contracts",
	CategoryTax:       "Tax Documents",
	CategoryMedical:   "Medical Records",
	CategoryOther:     "Other Documents",
}

// Categories lists every storage category.
var Categories = []Category{
	CategoryBill, CategoryInsurance, CategoryPolicy, CategoryReceipt,
	CategoryContract, CategoryTax, CategoryMedical, CategoryOther,
}

// ParseCategory reports whether raw names a known category.
func ParseCategory(raw string) (Category, bool) {
	c := Category(strings.TrimSpace(raw))
	_, ok := categoryFolders[c]
	return c, ok
}

// FolderName returns the category folder; unknown categories file under Other Documents.
func (c Category) FolderName() string {
	if name, ok := categoryFolders[c]; ok {
		return name
	}
	return categoryFolders[CategoryOther]
}

var typeCategories = map[capture.DocumentType]Category{
	capture.TypeInvoice:  CategoryBill,
	capture.TypeReceipt:  CategoryReceipt,
	capture.TypeContract: CategoryContract,
	capture.TypeReport:   CategoryOther,
	capture.TypeLetter:   CategoryOther,
	capture.TypeDocument: CategoryOther,
}

// CategoryForType maps a classifier label onto the storage vocabulary.
func CategoryForType(t capture.DocumentType) Category {
	if c, ok := typeCategories[t]; ok {
		return c
	}
	return CategoryOther
}

// Record is a sidecar: the caller's metadata plus the server fields written
// at store time. Fields the caller sent that Record does not name, or named
// fields sent as non-strings, are kept in Extra and written back unchanged.
type Record struct {
	Type        string
	Date        string
	ReferenceID string
	Amount      string
	Notes       string

	FileID         string
	FileName       string
	UploadDate     string
	WebViewLink    string
	WebContentLink string

	Extra map[string]json.RawMessage

	// present holds named keys the caller sent, so "" survives a round trip.
	present map[string]bool
}

var recordKeys = []string{
	"type", "date", "reference_id", "amount", "notes",
	"fileId", "fileName", "uploadDate", "webViewLink", "webContentLink",
}

var serverKeys = map[string]bool{
	"fileId": true, "fileName": true, "uploadDate": true, "webViewLink": true, "webContentLink": true,
}

func (r *Record) fields() map[string]*string {
	return map[string]*string{
		"type":           &r.Type,
		"date":           &r.Date,
		"reference_id":   &r.ReferenceID,
		"amount":         &r.Amount,
		"notes":          &r.Notes,
		"fileId":         &r.FileID,
		"fileName":       &r.FileName,
		"uploadDate":     &r.UploadDate,
		"webViewLink":    &r.WebViewLink,
		"webContentLink": &r.WebContentLink,
	}
}

// MarshalJSON writes extras, then every named field that was sent or set.
// Server fields are always written.
func (r Record) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Extra)+len(recordKeys))
	for k, v := range r.Extra {
		out[k] = v
	}
	fields := r.fields()
	for _, k := range recordKeys {
		v := *fields[k]
		if v != "" || r.present[k] || serverKeys[k] {
			out[k] = v
		}
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts any JSON object. Only JSON strings bind to named
// fields; a numeric amount or a null stays raw in Extra.
func (r *Record) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		return errors.New("record must be a JSON object")
	}
	*r = Record{}
	fields := r.fields()
	for k, v := range raw {
		if dst, ok := fields[k]; ok && isJSONString(v) {
			if err := json.Unmarshal(v, dst); err != nil {
				return err
			}
			if r.present == nil {
				r.present = make(map[string]bool)
			}
			r.present[k] = true
			continue
		}
		if r.Extra == nil {
			r.Extra = make(map[string]json.RawMessage)
		}
		r.Extra[k] = v
	}
	return nil
}

func isJSONString(v json.RawMessage) bool {
	v = bytes.TrimSpace(v)
	return len(v) > 0 && v[0] == '"'
}

// Category resolves the record's type; missing or unknown types are CategoryOther.
func (r Record) Category() Category {
	if c, ok := ParseCategory(r.Type); ok {
		return c
	}
	return CategoryOther
}

// SearchQuery filters the document index. Zero values do not filter.
type SearchQuery struct {
	Query     string
	Type      string
	StartDate *time.Time
	EndDate   *time.Time
}

// StoreInput is a structured store request.
type StoreInput struct {
	Image    []byte
	MimeType string
	Metadata Record
}

// FilingStatus tracks the two-step write.
type FilingStatus string

const (
	StatusBinaryWritten FilingStatus = "binary_written"
	StatusComplete      FilingStatus = "complete"
	StatusSidecarFailed FilingStatus = "sidecar_failed"
)

// Filing is a journal entry for one structured store.
type Filing struct {
	ID            string
	FileID        string
	FileName      string
	SidecarName   string
	FolderID      string
	Record        Record
	SidecarFileID string
	Status        FilingStatus
	LastError     string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
