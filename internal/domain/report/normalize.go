package report

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// TimestampLayout is how analysis timestamps are written into observations.
const TimestampLayout = "2006-01-02 15:04:05"

// Canonical section headers, as requested from the model.
const (
	HeaderFindings       = "RADIOGRAPHIC FINDINGS"
	HeaderDiagnosis      = "DIAGNOSIS"
	HeaderTreatment      = "TREATMENT RECOMMENDATIONS"
	HeaderTechnicalNotes = "TECHNICAL NOTES"
)

type sectionRule struct {
	field   func(*Sections) *string
	headers []string // canonical first, then accepted synonyms in order of preference
}

var sectionRules = []sectionRule{
	{
		field:   func(s *Sections) *string { return &s.Findings },
		headers: []string{HeaderFindings, "FINDINGS", "RADIOGRAPHIC ANALYSIS", "IMAGE ANALYSIS"},
	},
	{
		field:   func(s *Sections) *string { return &s.Diagnosis },
		headers: []string{HeaderDiagnosis, "CLINICAL DIAGNOSIS", "DIAGNOSTIC IMPRESSION"},
	},
	{
		field:   func(s *Sections) *string { return &s.Treatment },
		headers: []string{HeaderTreatment, "TREATMENT PLAN", "RECOMMENDATIONS", "TREATMENT"},
	},
	{
		field:   func(s *Sections) *string { return &s.TechnicalNotes },
		headers: []string{HeaderTechnicalNotes, "TECHNICAL ASSESSMENT", "IMAGE QUALITY", "TECHNICAL"},
	},
}

// ParseSections splits a free-text reply into the four report sections. For
// each section the first header synonym yielding non-empty text wins; a
// section with no match stays empty.
func ParseSections(raw string) Sections {
	var s Sections
	for _, rule := range sectionRules {
		for _, h := range rule.headers {
			if v := Extract(raw, h); v != "" {
				*rule.field(&s) = v
				break
			}
		}
	}
	return s
}

// Normalize builds the normalized record of one inference reply.
func Normalize(raw, model string, at time.Time) Record {
	return Record{
		Sections:    ParseSections(raw),
		RawResponse: raw,
		Model:       model,
		AnalyzedAt:  at,
	}
}

// observation is the JSON document persisted in document.observation.
type observation struct {
	RawResponse     string  `json:"raw_response"`
	Findings        string  `json:"findings"`
	Diagnosis       string  `json:"diagnosis"`
	Treatment       string  `json:"treatment"`
	TechnicalNotes  string  `json:"technical_notes"`
	Model           string  `json:"ai_model_used"`
	AnalyzedAt      string  `json:"analysis_timestamp"`
	PatientID       flexInt `json:"patient_id,omitempty"`
	RequestDetailID flexInt `json:"request_detail_id,omitempty"`
}

// flexInt accepts numbers and numeric strings; anything else decodes to 0.
// Older rows were written with string ids.
type flexInt int64

func (f *flexInt) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		if fl, ferr := strconv.ParseFloat(s, 64); ferr == nil {
			n = int64(fl)
		}
	}
	*f = flexInt(n)
	return nil
}

// decodeObservation loads a stored observation. Structured JSON objects are
// taken as they are; anything else is treated as a plain-text reply and run
// through the section parser. It never fails.
func decodeObservation(stored string) (Record, observation) {
	trimmed := strings.TrimSpace(stored)
	var obs observation
	if strings.HasPrefix(trimmed, "{") && json.Unmarshal([]byte(trimmed), &obs) == nil {
		rec := Record{
			Sections: Sections{
				Findings:       strings.TrimSpace(obs.Findings),
				Diagnosis:      strings.TrimSpace(obs.Diagnosis),
				Treatment:      strings.TrimSpace(obs.Treatment),
				TechnicalNotes: strings.TrimSpace(obs.TechnicalNotes),
			},
			RawResponse: obs.RawResponse,
			Model:       obs.Model,
		}
		if ts, err := time.Parse(TimestampLayout, obs.AnalyzedAt); err == nil {
			rec.AnalyzedAt = ts
		}
		if rec.Sections.Empty() && rec.RawResponse != "" {
			rec.Sections = ParseSections(rec.RawResponse)
		}
		return rec, obs
	}
	return Record{Sections: ParseSections(stored), RawResponse: stored}, observation{}
}

// FromObservation returns the normalized record held by a stored observation.
func FromObservation(stored string) Record {
	rec, _ := decodeObservation(stored)
	return rec
}
