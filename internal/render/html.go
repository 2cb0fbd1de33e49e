package render

import (
	"bytes"
	"strings"
	"text/template"
	"time"

	"github.com/bryanwahyu/dental-xray-ai/internal/domain/report"
)

// GeneratedLayout is the "Generated on" stamp format.
const GeneratedLayout = "2006-01-02 15:04:05"

// Values in report.Markup are already HTML-escaped, so a plain text template
// is used; html/template would escape them a second time.
var reportTmpl = template.Must(template.New("report").Funcs(template.FuncMap{
	"nl2br": nl2br,
}).Parse(reportHTML))

type page struct {
	report.Markup
	GeneratedOn string
}

// ReportHTML renders a display report as a standalone HTML document.
func ReportHTML(d report.DisplayReport, generatedAt time.Time) (string, error) {
	var buf bytes.Buffer
	err := reportTmpl.Execute(&buf, page{Markup: d.Markup(), GeneratedOn: generatedAt.Format(GeneratedLayout)})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

func nl2br(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\n", "<br />\n")
}

const reportHTML = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>AI Dental Analysis Report</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        .header { text-align: center; border-bottom: 2px solid #333; padding-bottom: 20px; margin-bottom: 30px; }
        .section { margin-bottom: 20px; }
        .section h3 { color: #2c3e50; border-bottom: 1px solid #bdc3c7; padding-bottom: 5px; }
        .patient-info { background-color: #f8f9fa; padding: 15px; border-radius: 5px; }
        .image-container { text-align: center; margin: 20px 0; }
        .image-container img { max-width: 100%; max-height: 400px; border: 1px solid #ddd; }
        .report-content { line-height: 1.6; }
        .footer { margin-top: 30px; text-align: center; font-size: 12px; color: #7f8c8d; }
    </style>
</head>
<body>
    <div class="header">
        <h1>AI Dental Analysis Report</h1>
        <p>Generated on: {{.GeneratedOn}}</p>
    </div>
{{- if .HasPatient}}
    <div class="section">
        <h3>Patient Information</h3>
        <div class="patient-info">
            <p><strong>Name:</strong> {{.PatientName}}</p>
            <p><strong>Patient ID:</strong> {{.PatientCode}}</p>
            <p><strong>Date of Birth:</strong> {{.DateOfBirth}}</p>
            <p><strong>Gender:</strong> {{.Sex}}</p>
        </div>
    </div>
{{- end}}
{{- if .OriginalImage}}
    <div class="section">
        <h3>Original X-ray Image</h3>
        <div class="image-container">
            <img src="{{.OriginalImage}}" alt="X-ray Image">
        </div>
    </div>
{{- end}}
    <div class="section">
        <h3>AI Analysis Report</h3>
        <div class="report-content">
{{- if .Findings}}
            <h4>Radiographic Findings</h4>
            <p>{{nl2br .Findings}}</p>
{{- end}}
{{- if .Diagnosis}}
            <h4>Diagnosis</h4>
            <p>{{nl2br .Diagnosis}}</p>
{{- end}}
{{- if .Treatment}}
            <h4>Treatment Recommendations</h4>
            <p>{{nl2br .Treatment}}</p>
{{- end}}
{{- if .TechnicalNotes}}
            <h4>Technical Notes</h4>
            <p>{{nl2br .TechnicalNotes}}</p>
{{- end}}
{{- if .RawResponse}}
            <h4>Complete Analysis</h4>
            <p>{{nl2br .RawResponse}}</p>
{{- end}}
        </div>
    </div>

    <div class="footer">
        <p>This report was generated using AI analysis and should be reviewed by a qualified dental professional.</p>
        <p>AI Model: {{.Model}}</p>
    </div>
</body>
</html>
`
