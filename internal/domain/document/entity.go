package document

import "time"

// Type tags what a document row holds within an encounter.
type Type int

const (
	TypeXRay     Type = 1
	TypeForm     Type = 2
	TypeAIReport Type = 3
)

func (t Type) String() string {
	switch t {
	case TypeXRay:
		return "x-ray"
	case TypeForm:
		return "form"
	case TypeAIReport:
		return "ai-report"
	default:
		return "unknown"
	}
}

// ScopeKey is the (encounter, type) pair inside which document ids are sequential.
type ScopeKey struct {
	RequestDetailID int64
	Type            Type
}

// Document is one row of the document table.
type Document struct {
	ID              int64     `json:"id"`
	DocumentID      int64     `json:"document_id"`
	RequestDetailID int64     `json:"request_detail_id"`
	Type            Type      `json:"document_type"`
	Observation     string    `json:"observation,omitempty"`
	File            string    `json:"document,omitempty"` // stored file path or object key
	CreatedAt       time.Time `json:"created_at"`
	UploadBy        int64     `json:"upload_by,omitempty"`
}

// Scope returns the allocation scope of the document.
func (d *Document) Scope() ScopeKey {
	return ScopeKey{RequestDetailID: d.RequestDetailID, Type: d.Type}
}
