package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		header string
		want   string
	}{
		{
			name:   "middle section",
			text:   "RADIOGRAPHIC FINDINGS: mild decay\nDIAGNOSIS: caries\nTREATMENT RECOMMENDATIONS: filling",
			header: "DIAGNOSIS",
			want:   "caries",
		},
		{
			name:   "last section runs to end of text",
			text:   "DIAGNOSIS: caries\nTECHNICAL NOTES:  good quality \n\n",
			header: "TECHNICAL NOTES",
			want:   "good quality",
		},
		{
			name:   "multi-line body",
			text:   "DIAGNOSIS:\n- Primary: caries on 36\n- Secondary: none\nTREATMENT RECOMMENDATIONS: filling",
			header: "DIAGNOSIS",
			want:   "- Primary: caries on 36\n- Secondary: none",
		},
		{
			name:   "case-insensitive header",
			text:   "Diagnosis: caries\nTREATMENT: filling",
			header: "DIAGNOSIS",
			want:   "caries",
		},
		{
			name:   "missing header",
			text:   "RADIOGRAPHIC FINDINGS: mild decay",
			header: "DIAGNOSIS",
			want:   "",
		},
		{
			name:   "header word inside another body is ignored",
			text:   "RADIOGRAPHIC FINDINGS: pattern suggests diagnosis: early caries\nDIAGNOSIS: caries",
			header: "DIAGNOSIS",
			want:   "caries",
		},
		{
			name:   "first occurrence wins",
			text:   "DIAGNOSIS: first\nNOTES: x\nDIAGNOSIS: second",
			header: "DIAGNOSIS",
			want:   "first",
		},
		{
			name:   "longer header is not a prefix match",
			text:   "CLINICAL DIAGNOSIS: pulpitis\nTREATMENT: root canal",
			header: "DIAGNOSIS",
			want:   "",
		},
		{
			name:   "markdown decoration",
			text:   "## **RADIOGRAPHIC FINDINGS:** bone loss\n**DIAGNOSIS:** periodontitis",
			header: "RADIOGRAPHIC FINDINGS",
			want:   "bone loss",
		},
		{
			name:   "title-case known header bounds the section",
			text:   "FINDINGS: bone loss\nDiagnosis: periodontitis",
			header: "FINDINGS",
			want:   "bone loss",
		},
		{
			name:   "crlf line endings",
			text:   "FINDINGS: bone loss\r\nDIAGNOSIS: periodontitis\r\n",
			header: "DIAGNOSIS",
			want:   "periodontitis",
		},
		{
			name:   "numbered headers",
			text:   "1. RADIOGRAPHIC FINDINGS: bone loss\n2. DIAGNOSIS: periodontitis\n3. TREATMENT RECOMMENDATIONS: scaling",
			header: "DIAGNOSIS",
			want:   "periodontitis",
		},
		{
			name:   "numbered header ends the previous section",
			text:   "1. RADIOGRAPHIC FINDINGS: bone loss\n2) DIAGNOSIS: periodontitis",
			header: "RADIOGRAPHIC FINDINGS",
			want:   "bone loss",
		},
		{
			name:   "bold numbered headers",
			text:   "**1. RADIOGRAPHIC FINDINGS:** bone loss\n**2. DIAGNOSIS:** perio",
			header: "RADIOGRAPHIC FINDINGS",
			want:   "bone loss",
		},
		{
			name:   "bulleted header",
			text:   "- DIAGNOSIS: caries\n- TREATMENT PLAN: filling",
			header: "DIAGNOSIS",
			want:   "caries",
		},
		{
			name:   "inline header after a sentence",
			text:   "Report. RADIOGRAPHIC FINDINGS: mild decay",
			header: "RADIOGRAPHIC FINDINGS",
			want:   "mild decay",
		},
		{
			name:   "inline header stops at the next header line",
			text:   "Summary follows. DIAGNOSIS: caries\nTREATMENT: filling",
			header: "DIAGNOSIS",
			want:   "caries",
		},
		{
			name:   "inline header inside running prose is ignored",
			text:   "The pattern suggests diagnosis: early caries",
			header: "DIAGNOSIS",
			want:   "",
		},
		{
			name:   "stray leading bytes",
			text:   "\xff\xfeDIAGNOSIS: x",
			header: "DIAGNOSIS",
			want:   "x",
		},
		{
			name:   "byte order mark",
			text:   "\ufeffDIAGNOSIS: caries\nTREATMENT: filling",
			header: "DIAGNOSIS",
			want:   "caries",
		},
		{
			name:   "empty text",
			text:   "",
			header: "DIAGNOSIS",
			want:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Extract(tt.text, tt.header))
		})
	}
}

func TestExtract_AnyOrder(t *testing.T) {
	bodies := map[string]string{
		HeaderFindings:       "mild decay",
		HeaderDiagnosis:      "caries",
		HeaderTreatment:      "filling",
		HeaderTechnicalNotes: "good quality",
	}
	orders := [][]string{
		{HeaderFindings, HeaderDiagnosis, HeaderTreatment, HeaderTechnicalNotes},
		{HeaderTechnicalNotes, HeaderTreatment, HeaderDiagnosis, HeaderFindings},
		{HeaderDiagnosis, HeaderTechnicalNotes, HeaderFindings, HeaderTreatment},
	}
	for _, order := range orders {
		text := ""
		for _, h := range order {
			text += h + ": " + bodies[h] + "\n"
		}
		for h, want := range bodies {
			assert.Equal(t, want, Extract(text, h), "header %s in %v", h, order)
		}
	}
}

func TestIsHeaderLine(t *testing.T) {
	assert.True(t, isHeaderLine("PATIENT INFORMATION:"))
	assert.True(t, isHeaderLine("  ## NOTES: x"))
	assert.True(t, isHeaderLine("Treatment Plan: x"))
	assert.False(t, isHeaderLine("- Patient ID: 1"))
	assert.False(t, isHeaderLine("Tooth 36: caries"))
	assert.False(t, isHeaderLine("10:30 follow-up"))
	assert.False(t, isHeaderLine("no colon here"))

	assert.True(t, isHeaderLine("1. DIAGNOSIS: x"))
	assert.True(t, isHeaderLine("2) TREATMENT PLAN:"))
	assert.True(t, isHeaderLine("**3. TECHNICAL NOTES:** ok"))
	assert.True(t, isHeaderLine("- Diagnosis: caries"))
	assert.False(t, isHeaderLine("- NOTE: keep"))
	assert.False(t, isHeaderLine("3. Tooth 36: caries"))
}
