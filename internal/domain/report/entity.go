package report

import (
	"errors"
	"time"

	"github.com/bryanwahyu/dental-xray-ai/internal/domain/document"
)

// ErrNotFound is the view/export failure for an unknown document id.
var ErrNotFound = errors.New("AI report not found")

// Sections is the four-field normalized view of an AI reply.
type Sections struct {
	Findings       string `json:"findings"`
	Diagnosis      string `json:"diagnosis"`
	Treatment      string `json:"treatment"`
	TechnicalNotes string `json:"technical_notes"`
}

// Empty reports whether no section was recognised.
func (s Sections) Empty() bool {
	return s.Findings == "" && s.Diagnosis == "" && s.Treatment == "" && s.TechnicalNotes == ""
}

// Record is the normalized result of one analysis.
type Record struct {
	Sections
	RawResponse string    `json:"raw_response"`
	Model       string    `json:"ai_model_used,omitempty"`
	AnalyzedAt  time.Time `json:"analysis_timestamp"`
}

// StoredReport is an AI report as persisted in the document table.
type StoredReport struct {
	Record
	DocumentID      int64         `json:"document_id"`
	RequestDetailID int64         `json:"request_detail_id"`
	PatientID       int64         `json:"patient_id,omitempty"`
	DocumentType    document.Type `json:"document_type"`
	CreatedAt       time.Time     `json:"created_at"`
}

// PatientView is the subset of patient data shown on a report.
type PatientView struct {
	ID          int64  `json:"id"`
	PatientCode string `json:"patient_id"`
	FirstName   string `json:"firstname"`
	LastName    string `json:"lastname"`
	Name        string `json:"name"`
	DateOfBirth string `json:"date_of_birth,omitempty"`
	Sex         string `json:"sex,omitempty"`
}

// DisplayReport is rebuilt on every view/export and never stored.
type DisplayReport struct {
	Report          *StoredReport `json:"report"`
	Patient         *PatientView  `json:"patient"`
	OriginalImage   *string       `json:"original_image"`
	OriginalFormURL *string       `json:"original_form_url"`
	Error           string        `json:"error,omitempty"`
}

// Markup is a DisplayReport with every text field escaped for HTML.
type Markup struct {
	DocumentID     int64
	HasPatient     bool
	PatientName    string
	PatientCode    string
	DateOfBirth    string
	Sex            string
	OriginalImage  string
	Findings       string
	Diagnosis      string
	Treatment      string
	TechnicalNotes string
	RawResponse    string
	Model          string
}
