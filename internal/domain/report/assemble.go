package report

import (
	"encoding/json"
	"fmt"
	"html"
	"time"

	"github.com/bryanwahyu/dental-xray-ai/internal/domain/document"
	"github.com/bryanwahyu/dental-xray-ai/internal/domain/patient"
)

// UnknownModel is shown when a report carries no model identifier.
const UnknownModel = "Unknown"

// AssembleForStorage prepares a report for insertion. DocumentID is left at
// zero; the repository assigns it when the row is written.
func AssembleForStorage(rec Record, requestDetailID, patientID int64, now time.Time) *StoredReport {
	if rec.AnalyzedAt.IsZero() {
		rec.AnalyzedAt = now
	}
	return &StoredReport{
		Record:          rec,
		RequestDetailID: requestDetailID,
		PatientID:       patientID,
		DocumentType:    document.TypeAIReport,
		CreatedAt:       dateOnly(now),
	}
}

// Observation serialises the report into the stored observation JSON.
func (r *StoredReport) Observation() (string, error) {
	obs := observation{
		RawResponse:     r.RawResponse,
		Findings:        r.Findings,
		Diagnosis:       r.Diagnosis,
		Treatment:       r.Treatment,
		TechnicalNotes:  r.TechnicalNotes,
		Model:           r.Model,
		PatientID:       flexInt(r.PatientID),
		RequestDetailID: flexInt(r.RequestDetailID),
	}
	if !r.AnalyzedAt.IsZero() {
		obs.AnalyzedAt = r.AnalyzedAt.UTC().Format(TimestampLayout)
	}
	b, err := json.Marshal(obs)
	if err != nil {
		return "", fmt.Errorf("encode observation: %w", err)
	}
	return string(b), nil
}

// Document converts the report into a document row ready for CreateNext.
func (r *StoredReport) Document() (*document.Document, error) {
	obs, err := r.Observation()
	if err != nil {
		return nil, err
	}
	return &document.Document{
		DocumentID:      r.DocumentID,
		RequestDetailID: r.RequestDetailID,
		Type:            document.TypeAIReport,
		Observation:     obs,
		CreatedAt:       r.CreatedAt,
	}, nil
}

// FromDocument rebuilds a stored report from its row. Plain-text observations
// of older rows go through the section parser.
func FromDocument(d *document.Document) *StoredReport {
	rec, obs := decodeObservation(d.Observation)
	detail := d.RequestDetailID
	if detail == 0 {
		detail = int64(obs.RequestDetailID)
	}
	return &StoredReport{
		Record:          rec,
		DocumentID:      d.DocumentID,
		RequestDetailID: detail,
		PatientID:       int64(obs.PatientID),
		DocumentType:    d.Type,
		CreatedAt:       d.CreatedAt,
	}
}

// FormURL is where the practice application shows the encounter's form.
func FormURL(requestDetailID int64) string {
	return fmt.Sprintf("document/form/%d", requestDetailID)
}

// AssembleForDisplay merges a stored report with its optional context. A nil
// patient or an empty image reference become null fields.
func AssembleForDisplay(stored *StoredReport, p *patient.Patient, originalImage string) DisplayReport {
	out := DisplayReport{Report: stored}
	if p != nil {
		out.Patient = patientView(p)
	}
	if originalImage != "" {
		img := originalImage
		out.OriginalImage = &img
	}
	if stored != nil && stored.RequestDetailID > 0 {
		form := FormURL(stored.RequestDetailID)
		out.OriginalFormURL = &form
	}
	return out
}

// NotFoundDisplay is the view result when the report does not resolve.
func NotFoundDisplay(err error) DisplayReport {
	return DisplayReport{Error: err.Error()}
}

func patientView(p *patient.Patient) *PatientView {
	v := &PatientView{
		ID:          p.ID,
		PatientCode: p.PatientCode,
		FirstName:   p.FirstName,
		LastName:    p.LastName,
		Name:        p.FullName(),
		Sex:         p.Sex,
	}
	if p.DateOfBirth != nil && !p.DateOfBirth.IsZero() {
		v.DateOfBirth = p.DateOfBirth.Format("2006-01-02")
	}
	return v
}

// Markup escapes every text field for inclusion in HTML.
func (d DisplayReport) Markup() Markup {
	m := Markup{Model: UnknownModel}
	if d.Report != nil {
		m.DocumentID = d.Report.DocumentID
		m.Findings = html.EscapeString(d.Report.Findings)
		m.Diagnosis = html.EscapeString(d.Report.Diagnosis)
		m.Treatment = html.EscapeString(d.Report.Treatment)
		m.TechnicalNotes = html.EscapeString(d.Report.TechnicalNotes)
		m.RawResponse = html.EscapeString(d.Report.RawResponse)
		if d.Report.Model != "" {
			m.Model = html.EscapeString(d.Report.Model)
		}
	}
	if d.Patient != nil {
		m.HasPatient = true
		m.PatientName = html.EscapeString(d.Patient.Name)
		m.PatientCode = html.EscapeString(d.Patient.PatientCode)
		m.DateOfBirth = html.EscapeString(d.Patient.DateOfBirth)
		m.Sex = html.EscapeString(d.Patient.Sex)
	}
	if d.OriginalImage != nil {
		m.OriginalImage = html.EscapeString(*d.OriginalImage)
	}
	return m
}

func dateOnly(t time.Time) time.Time {
	y, mo, d := t.Date()
	return time.Date(y, mo, d, 0, 0, 0, 0, t.Location())
}
