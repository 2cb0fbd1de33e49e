package httpserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	appreports "github.com/bryanwahyu/dental-xray-ai/internal/application/reports"
	"github.com/bryanwahyu/dental-xray-ai/internal/domain/patient"
	"github.com/bryanwahyu/dental-xray-ai/internal/middleware"
	"github.com/bryanwahyu/dental-xray-ai/internal/platform/logger"
)

// Options configures the outer HTTP concerns around the service.
type Options struct {
	Logger         zerolog.Logger
	APIKeys        map[string]string
	CORSOrigins    []string
	Limiter        *middleware.RateLimiter // nil disables rate limiting
	HealthCheckers map[string]middleware.HealthChecker
}

type Router struct {
	svc *appreports.Service
}

func NewRouter(svc *appreports.Service, opts Options) http.Handler {
	r := &Router{svc: svc}
	mux := chi.NewRouter()

	mux.Use(chimw.Recoverer)
	mux.Use(middleware.RequestID(opts.Logger))
	mux.Use(middleware.LoggingMiddleware)
	mux.Use(middleware.MetricsMiddleware)
	if len(opts.CORSOrigins) > 0 {
		mux.Use(cors.Handler(cors.Options{
			AllowedOrigins:   opts.CORSOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-Key", middleware.RequestIDHeader},
			ExposedHeaders:   []string{middleware.RequestIDHeader, "Content-Disposition"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}
	mux.Use(middleware.APIKeyAuth(opts.APIKeys))

	mux.Get("/health", middleware.HealthHandler(opts.HealthCheckers))
	mux.Get("/ready", middleware.ReadinessHandler(opts.HealthCheckers))
	mux.Get("/live", middleware.LivenessHandler)
	mux.Get("/metrics", middleware.MetricsHandler)

	mux.Route("/v1", func(rt chi.Router) {
		rt.Group(func(limited chi.Router) {
			if opts.Limiter != nil {
				limited.Use(middleware.RateLimitMiddleware(opts.Limiter))
			}
			limited.Post("/reports/analyze", r.wrap(r.handleAnalyze))
			limited.Get("/ai/test", r.wrap(r.handleTestConnection))
		})
		rt.Get("/reports/{documentID}", r.wrap(r.handleView))
		rt.Get("/reports/{documentID}/download", r.wrap(r.handleDownload))
		rt.Get("/details/{detailID}/reports", r.wrap(r.handleListReports))
		rt.Get("/patients", r.wrap(r.handleSearchPatients))
		rt.Get("/patients/{id}", r.wrap(r.handleGetPatient))
		rt.Get("/patients/code/{code}", r.wrap(r.handleGetPatientByCode))
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

// errorBody is the JSON shape of every failed request that has no richer result.
type errorBody struct {
	Success bool            `json:"success"`
	Error   string          `json:"error"`
	Code    appreports.Code `json:"code"`
}

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if err := h(w, req); err != nil {
			code := appreports.Classify(err)
			status := statusFor(code)
			if status >= http.StatusInternalServerError {
				logger.FromContext(req.Context()).Error().Err(err).Str("path", req.URL.Path).Msg("request failed")
			}
			msg := err.Error()
			if code == appreports.CodeInternal {
				msg = "internal error"
			}
			writeJSON(w, status, errorBody{Error: msg, Code: code})
		}
	}
}

func statusFor(code appreports.Code) int {
	switch code {
	case "":
		return http.StatusOK
	case appreports.CodeInvalidInput:
		return http.StatusBadRequest
	case appreports.CodeNotFound:
		return http.StatusNotFound
	case appreports.CodeQuotaExceeded:
		return http.StatusTooManyRequests
	case appreports.CodeConnectionFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func invalid(err error) error {
	return fmt.Errorf("%w: %v", appreports.ErrInvalidInput, err)
}

// POST /v1/reports/analyze
// Body: {"image_path": "...", "patient_id": 8, "request_detail_id": 5}
func (r *Router) handleAnalyze(w http.ResponseWriter, req *http.Request) error {
	var body appreports.AnalyzeCommand
	if err := json.NewDecoder(http.MaxBytesReader(w, req.Body, 1<<16)).Decode(&body); err != nil {
		return invalid(fmt.Errorf("decode body: %w", err))
	}
	body.ImagePath = middleware.SanitizeString(body.ImagePath)
	if err := middleware.ValidateImagePath(body.ImagePath); err != nil {
		return invalid(err)
	}

	done := middleware.TrackAnalysis()
	res := r.svc.Analyze(req.Context(), body)
	done(res.Success)

	writeJSON(w, statusFor(res.Code), res)
	return nil
}

// GET /v1/reports/{documentID}?request_detail_id=
func (r *Router) handleView(w http.ResponseWriter, req *http.Request) error {
	docID, detailID, err := reportRef(req)
	if err != nil {
		return err
	}
	middleware.IncrementViews()
	view := r.svc.View(req.Context(), docID, detailID)
	writeJSON(w, statusFor(view.Code), view)
	return nil
}

// GET /v1/reports/{documentID}/download?request_detail_id=&format=json
// Serves the HTML file unless format=json asks for the export envelope.
func (r *Router) handleDownload(w http.ResponseWriter, req *http.Request) error {
	docID, detailID, err := reportRef(req)
	if err != nil {
		return err
	}
	middleware.IncrementExports()
	res := r.svc.Export(req.Context(), docID, detailID)
	if !res.Success || req.URL.Query().Get("format") == "json" {
		writeJSON(w, statusFor(res.Code), res)
		return nil
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", res.Filename))
	if res.URL != "" {
		w.Header().Set("X-Archive-URL", res.URL)
	}
	_, err = w.Write([]byte(res.HTMLContent))
	return err
}

// GET /v1/details/{detailID}/reports
func (r *Router) handleListReports(w http.ResponseWriter, req *http.Request) error {
	detailID, err := middleware.ValidateID("request_detail_id", chi.URLParam(req, "detailID"))
	if err != nil {
		return invalid(err)
	}
	list, err := r.svc.ListReports(req.Context(), detailID)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, map[string]any{"request_detail_id": detailID, "reports": list})
	return nil
}

// GET /v1/patients/{id}
func (r *Router) handleGetPatient(w http.ResponseWriter, req *http.Request) error {
	id, err := middleware.ValidateID("patient id", chi.URLParam(req, "id"))
	if err != nil {
		return invalid(err)
	}
	p, err := r.svc.Patient(req.Context(), id)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, p)
	return nil
}

// GET /v1/patients/code/{code}
func (r *Router) handleGetPatientByCode(w http.ResponseWriter, req *http.Request) error {
	code := chi.URLParam(req, "code")
	if err := middleware.ValidatePatientCode(code); err != nil {
		return invalid(err)
	}
	p, err := r.svc.PatientByCode(req.Context(), code)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, p)
	return nil
}

// GET /v1/patients?id=&firstname=&lastname=&limit=
func (r *Router) handleSearchPatients(w http.ResponseWriter, req *http.Request) error {
	q := req.URL.Query()
	id, err := middleware.ValidateOptionalID("id", q.Get("id"))
	if err != nil {
		return invalid(err)
	}
	limit, _ := strconv.Atoi(q.Get("limit"))

	list, err := r.svc.SearchPatients(req.Context(), patient.SearchQuery{
		ID:        id,
		FirstName: middleware.SanitizeString(q.Get("firstname")),
		LastName:  middleware.SanitizeString(q.Get("lastname")),
		Limit:     middleware.ValidateLimit(limit),
	})
	if err != nil {
		return err
	}
	if list == nil {
		list = []*patient.Patient{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"patients": list})
	return nil
}

// GET /v1/ai/test
func (r *Router) handleTestConnection(w http.ResponseWriter, req *http.Request) error {
	res := r.svc.TestConnection(req.Context())
	writeJSON(w, statusFor(res.Code), res)
	return nil
}

func reportRef(req *http.Request) (docID, detailID int64, err error) {
	docID, err = middleware.ValidateID("document_id", chi.URLParam(req, "documentID"))
	if err != nil {
		return 0, 0, invalid(err)
	}
	detailID, err = middleware.ValidateOptionalID("request_detail_id", req.URL.Query().Get("request_detail_id"))
	if err != nil {
		return 0, 0, invalid(err)
	}
	return docID, detailID, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
