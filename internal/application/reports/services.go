package reports

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/bryanwahyu/dental-xray-ai/internal/application"
	"github.com/bryanwahyu/dental-xray-ai/internal/domain/ai"
	"github.com/bryanwahyu/dental-xray-ai/internal/domain/document"
	"github.com/bryanwahyu/dental-xray-ai/internal/domain/imaging"
	"github.com/bryanwahyu/dental-xray-ai/internal/domain/patient"
	"github.com/bryanwahyu/dental-xray-ai/internal/domain/report"
	"github.com/bryanwahyu/dental-xray-ai/internal/platform/logger"
	"github.com/bryanwahyu/dental-xray-ai/internal/render"
)

const (
	// ExportFilenameLayout names exported files ai_report_YYYY-MM-DD_HH-MM-SS.html.
	ExportFilenameLayout = "2006-01-02_15-04-05"

	analyzeSuccessMessage = "AI analysis completed successfully"
	loadReportFailed      = "failed to load AI report"
	connectionSuccessful  = "Connection successful"
)

var errLoadReport = errors.New(loadReportFailed)

// Service implements the AI report use-cases.
// Safe for concurrent use; state lives in the collaborators.
type Service struct {
	Documents document.Repository
	Patients  patient.Repository
	Images    imaging.Loader
	AI        ai.Client
	Artifacts report.ArtifactStore // optional
	Clock     application.Clock
}

//
// ==== USE CASES ====
//

// AnalyzeCommand untuk satu analisa x-ray
type AnalyzeCommand struct {
	ImagePath       string `json:"image_path"`
	PatientID       int64  `json:"patient_id"`
	RequestDetailID int64  `json:"request_detail_id"`
}

type AnalyzeResult struct {
	Success    bool                 `json:"success"`
	DocumentID int64                `json:"document_id,omitempty"`
	Report     *report.StoredReport `json:"report,omitempty"`
	Message    string               `json:"message,omitempty"`
	Error      string               `json:"error,omitempty"`
	Code       Code                 `json:"code,omitempty"`
}

// Analyze validates the image, asks the model for a report, and stores it as
// the next AI report of the encounter. The inference call runs once.
func (s *Service) Analyze(ctx context.Context, cmd AnalyzeCommand) AnalyzeResult {
	log := logger.FromContext(ctx).With().
		Int64("patient_id", cmd.PatientID).
		Int64("request_detail_id", cmd.RequestDetailID).
		Logger()
	log.Debug().Str("image", cmd.ImagePath).Msg("starting ai analysis")

	stored, err := s.analyze(ctx, cmd)
	if err != nil {
		log.Error().Err(err).Msg("ai dental analysis failed")
		return AnalyzeResult{Error: publicMessage(err), Code: Classify(err)}
	}

	log.Info().Int64("document_id", stored.DocumentID).Str("model", stored.Model).Msg("ai analysis stored")
	return AnalyzeResult{
		Success:    true,
		DocumentID: stored.DocumentID,
		Report:     stored,
		Message:    analyzeSuccessMessage,
	}
}

func (s *Service) analyze(ctx context.Context, cmd AnalyzeCommand) (*report.StoredReport, error) {
	if cmd.PatientID <= 0 || cmd.RequestDetailID <= 0 {
		return nil, fmt.Errorf("%w: patient_id and request_detail_id are required", ErrInvalidInput)
	}

	img, err := s.Images.Load(ctx, cmd.ImagePath)
	if err != nil {
		return nil, err
	}

	p, err := s.Patients.ByID(ctx, cmd.PatientID)
	if err != nil {
		return nil, err
	}
	now := s.Clock.Now().UTC()

	completion, err := s.AI.AnalyzeXRay(ctx, ai.XRayRequest{Image: img, Patient: patientContext(p, now)})
	if err != nil {
		return nil, err
	}

	rec := report.Normalize(completion.Content, completion.Model, now)
	stored := report.AssembleForStorage(rec, cmd.RequestDetailID, p.ID, now)
	doc, err := stored.Document()
	if err != nil {
		return nil, err
	}
	if err := s.Documents.CreateNext(ctx, doc); err != nil {
		return nil, fmt.Errorf("store ai report: %w", err)
	}
	stored.DocumentID = doc.DocumentID
	return stored, nil
}

func patientContext(p *patient.Patient, now time.Time) ai.PatientContext {
	pc := ai.PatientContext{PatientID: p.ID, Name: p.FullName(), Age: "Unknown", Gender: p.Sex}
	if years, ok := p.Age(now); ok {
		pc.Age = strconv.Itoa(years)
	}
	return pc
}

// ViewResult is a DisplayReport plus the failure class for transports.
type ViewResult struct {
	report.DisplayReport
	Code Code `json:"-"`
}

// View loads an AI report with its patient and original image. Only a missing
// report fails; patient and image problems leave those fields null.
// requestDetailID 0 picks the newest report with that document id.
func (s *Service) View(ctx context.Context, documentID, requestDetailID int64) ViewResult {
	doc, err := s.Documents.GetAIReport(ctx, documentID, requestDetailID)
	if err != nil {
		if errors.Is(err, document.ErrNotFound) {
			return ViewResult{DisplayReport: report.NotFoundDisplay(report.ErrNotFound), Code: CodeNotFound}
		}
		logger.FromContext(ctx).Error().Err(err).Int64("document_id", documentID).Msg("load ai report")
		return ViewResult{DisplayReport: report.NotFoundDisplay(errLoadReport), Code: Classify(err)}
	}

	stored := report.FromDocument(doc)
	return ViewResult{DisplayReport: report.AssembleForDisplay(
		stored,
		s.patientFor(ctx, stored.PatientID),
		s.originalImage(ctx, stored.RequestDetailID),
	)}
}

type ExportResult struct {
	Success     bool   `json:"success"`
	HTMLContent string `json:"html_content,omitempty"`
	Filename    string `json:"filename,omitempty"`
	URL         string `json:"url,omitempty"`
	Error       string `json:"error,omitempty"`
	Code        Code   `json:"code,omitempty"`
}

// Export renders the report as HTML. With object storage configured the file
// is also archived and its link returned; archive failures do not fail the export.
func (s *Service) Export(ctx context.Context, documentID, requestDetailID int64) ExportResult {
	view := s.View(ctx, documentID, requestDetailID)
	if view.Error != "" {
		return ExportResult{Error: view.Error, Code: view.Code}
	}

	now := s.Clock.Now()
	html, err := render.ReportHTML(view.DisplayReport, now)
	if err != nil {
		logger.FromContext(ctx).Error().Err(err).Int64("document_id", documentID).Msg("render ai report")
		return ExportResult{Error: err.Error(), Code: CodeInternal}
	}
	res := ExportResult{
		Success:     true,
		HTMLContent: html,
		Filename:    "ai_report_" + now.Format(ExportFilenameLayout) + ".html",
	}

	if s.Artifacts != nil {
		key := fmt.Sprintf("reports/%d/%d/%s", view.Report.RequestDetailID, view.Report.DocumentID, res.Filename)
		url, err := s.Artifacts.PutObject(ctx, key, []byte(html), "text/html; charset=utf-8")
		if err != nil {
			logger.FromContext(ctx).Warn().Err(err).Str("key", key).Msg("archive exported report")
		} else {
			res.URL = url
		}
	}
	return res
}

type ConnectionResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Reply   string `json:"reply,omitempty"`
	Error   string `json:"error,omitempty"`
	Code    Code   `json:"code,omitempty"`
}

// TestConnection sends a short probe to the inference provider.
func (s *Service) TestConnection(ctx context.Context) ConnectionResult {
	reply, err := s.AI.Ping(ctx)
	if err != nil {
		logger.FromContext(ctx).Error().Err(err).Msg("ai connection test failed")
		return ConnectionResult{Error: err.Error(), Code: Classify(err)}
	}
	return ConnectionResult{Success: true, Message: connectionSuccessful, Reply: reply}
}

// ListReports returns the AI reports of an encounter, newest first.
// requestDetailID 0 lists every AI report.
func (s *Service) ListReports(ctx context.Context, requestDetailID int64) ([]*report.StoredReport, error) {
	docs, err := s.Documents.ListAIReports(ctx, requestDetailID)
	if err != nil {
		return nil, err
	}
	out := make([]*report.StoredReport, 0, len(docs))
	for _, d := range docs {
		out = append(out, report.FromDocument(d))
	}
	return out, nil
}

func (s *Service) Patient(ctx context.Context, id int64) (*patient.Patient, error) {
	return s.Patients.ByID(ctx, id)
}

func (s *Service) PatientByCode(ctx context.Context, code string) (*patient.Patient, error) {
	if code == "" {
		return nil, fmt.Errorf("%w: patient code is required", ErrInvalidInput)
	}
	return s.Patients.ByCode(ctx, code)
}

func (s *Service) SearchPatients(ctx context.Context, q patient.SearchQuery) ([]*patient.Patient, error) {
	return s.Patients.Search(ctx, q)
}

func (s *Service) patientFor(ctx context.Context, id int64) *patient.Patient {
	if id <= 0 {
		return nil
	}
	p, err := s.Patients.ByID(ctx, id)
	if err != nil {
		if !errors.Is(err, patient.ErrNotFound) {
			logger.FromContext(ctx).Warn().Err(err).Int64("patient_id", id).Msg("patient lookup for report")
		}
		return nil
	}
	return p
}

// originalImage resolves the encounter's radiograph: the first x-ray with a
// file, else the first form with one. Stored keys become browsable links when
// object storage is configured.
func (s *Service) originalImage(ctx context.Context, requestDetailID int64) string {
	if requestDetailID <= 0 {
		return ""
	}
	ref := ""
	for _, typ := range []document.Type{document.TypeXRay, document.TypeForm} {
		docs, err := s.Documents.ListByScope(ctx, document.ScopeKey{RequestDetailID: requestDetailID, Type: typ})
		if err != nil {
			logger.FromContext(ctx).Warn().Err(err).Int64("request_detail_id", requestDetailID).Msg("original image lookup")
			return ""
		}
		if ref = firstFile(docs); ref != "" {
			break
		}
	}
	if ref == "" || s.Artifacts == nil {
		return ref
	}
	link, err := s.Artifacts.Link(ctx, ref)
	if err != nil {
		logger.FromContext(ctx).Warn().Err(err).Str("ref", ref).Msg("link original image")
		return ""
	}
	return link
}

func firstFile(docs []*document.Document) string {
	for _, d := range docs {
		if d.File != "" {
			return d.File
		}
	}
	return ""
}
