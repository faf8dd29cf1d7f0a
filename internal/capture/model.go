package capture

// DocumentType is the heuristic label the classifier assigns to OCR text.
type DocumentType string

const (
	TypeInvoice  DocumentType = "invoice"
	TypeReceipt  DocumentType = "receipt"
	TypeContract DocumentType = "contract"
	TypeReport   DocumentType = "report"
	TypeLetter   DocumentType = "letter"
	TypeDocument DocumentType = "document"
)

// DocumentTypes lists every label Classify can return, in rule order.
var DocumentTypes = []DocumentType{TypeInvoice, TypeReceipt, TypeContract, TypeReport, TypeLetter, TypeDocument}

// PlaceholderConfidence is reported with every extraction. It is a fixed
// value, not a measurement from the OCR engine.
const PlaceholderConfidence = 0.85

// CapturedImage is a decoded request payload. It lives for one request.
type CapturedImage struct {
	Data     []byte
	MimeType string
}

// IsPDF reports whether the payload is a PDF rather than a raster image.
func (c CapturedImage) IsPDF() bool {
	return c.MimeType == "application/pdf"
}

// ExtractedText is the OCR output plus its confidence.
type ExtractedText struct {
	Text       string
	Confidence float64
}

// Analysis is the full result of running OCR on a capture.
type Analysis struct {
	ExtractedText
	Keywords     []string
	DocumentType DocumentType
}

// FolderCandidate is a scored destination folder. Never persisted.
type FolderCandidate struct {
	ID     string
	Name   string
	Score  int
	Reason string
}

// UploadInput is an ad hoc capture upload.
type UploadInput struct {
	Data     []byte
	MimeType string
	FolderID string
	OCRText  string
}

// UploadResult describes the stored capture.
type UploadResult struct {
	FileID      string
	FileName    string
	WebViewLink string
	FolderName  string
}
