package reports

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/dental-xray-ai/internal/application"
	"github.com/bryanwahyu/dental-xray-ai/internal/domain/ai"
	"github.com/bryanwahyu/dental-xray-ai/internal/domain/document"
	"github.com/bryanwahyu/dental-xray-ai/internal/domain/imaging"
	"github.com/bryanwahyu/dental-xray-ai/internal/domain/patient"
	"github.com/bryanwahyu/dental-xray-ai/internal/infra/db/memory"
)

type mockAI struct{ mock.Mock }

func (m *mockAI) AnalyzeXRay(ctx context.Context, req ai.XRayRequest) (ai.Completion, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(ai.Completion), args.Error(1)
}

func (m *mockAI) Ping(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

type fakeLoader struct{ err error }

func (f fakeLoader) Load(_ context.Context, ref string) (*imaging.Image, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &imaging.Image{Path: ref, MIMEType: "image/jpeg", Width: 10, Height: 10, Size: 3, Data: []byte{1, 2, 3}}, nil
}

type fakeStore struct {
	mu      sync.Mutex
	puts    map[string][]byte
	putErr  error
	linkErr error
}

func (f *fakeStore) PutObject(_ context.Context, key string, content []byte, _ string) (string, error) {
	if f.putErr != nil {
		return "", f.putErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.puts == nil {
		f.puts = map[string][]byte{}
	}
	f.puts[key] = content
	return "https://minio.local/" + key, nil
}

func (f *fakeStore) Link(_ context.Context, ref string) (string, error) {
	if f.linkErr != nil {
		return "", f.linkErr
	}
	return "https://minio.local/" + ref + "?sig", nil
}

var now = time.Date(2026, 4, 1, 15, 30, 45, 0, time.UTC)

const reply = "RADIOGRAPHIC FINDINGS: mild decay\nDIAGNOSIS: caries\nTREATMENT RECOMMENDATIONS: filling\nTECHNICAL NOTES: good quality"

func newService(t *testing.T) (*Service, *mockAI, *memory.DocumentRepository) {
	t.Helper()
	dob := time.Date(1988, 4, 2, 0, 0, 0, 0, time.UTC)
	client := &mockAI{}
	docs := memory.NewDocumentRepository()
	svc := &Service{
		Documents: docs,
		Patients: memory.NewPatientRepository(
			&patient.Patient{ID: 8, PatientCode: "CI-123", FirstName: "Ana", LastName: "Rojas", DateOfBirth: &dob, Sex: "F"},
		),
		Images: fakeLoader{},
		AI:     client,
		Clock:  application.FixedClock(now),
	}
	return svc, client, docs
}

func TestService_Analyze(t *testing.T) {
	svc, client, docs := newService(t)
	client.On("AnalyzeXRay", mock.Anything, mock.MatchedBy(func(req ai.XRayRequest) bool {
		return req.Patient.PatientID == 8 && req.Patient.Name == "Ana Rojas" && req.Patient.Age == "37" && req.Patient.Gender == "F"
	})).Return(ai.Completion{Content: reply, Model: "gpt-4o"}, nil)

	res := svc.Analyze(context.Background(), AnalyzeCommand{ImagePath: "uploads/x.jpg", PatientID: 8, RequestDetailID: 5})

	require.True(t, res.Success, res.Error)
	assert.EqualValues(t, 1, res.DocumentID)
	assert.Equal(t, "AI analysis completed successfully", res.Message)
	assert.Equal(t, "caries", res.Report.Diagnosis)
	assert.Equal(t, "gpt-4o", res.Report.Model)
	assert.Equal(t, now, res.Report.AnalyzedAt)
	client.AssertExpectations(t)

	stored, err := docs.GetAIReport(context.Background(), 1, 5)
	require.NoError(t, err)
	var obs map[string]any
	require.NoError(t, json.Unmarshal([]byte(stored.Observation), &obs))
	assert.Equal(t, "filling", obs["treatment"])
	assert.Equal(t, "2026-04-01 15:30:45", obs["analysis_timestamp"])
	assert.EqualValues(t, 8, obs["patient_id"])

	// second analysis of the same encounter gets the next id
	res = svc.Analyze(context.Background(), AnalyzeCommand{ImagePath: "uploads/x.jpg", PatientID: 8, RequestDetailID: 5})
	require.True(t, res.Success)
	assert.EqualValues(t, 2, res.DocumentID)
}

func TestService_AnalyzeFailures(t *testing.T) {
	tests := []struct {
		name     string
		cmd      AnalyzeCommand
		loader   imaging.Loader
		aiErr    error
		wantCode Code
		wantMsg  string
	}{
		{
			name:     "missing ids",
			cmd:      AnalyzeCommand{ImagePath: "x.jpg"},
			wantCode: CodeInvalidInput,
		},
		{
			name:     "invalid image",
			cmd:      AnalyzeCommand{ImagePath: "x.tiff", PatientID: 8, RequestDetailID: 5},
			loader:   fakeLoader{err: fmt.Errorf("%w: extension not allowed", imaging.ErrInvalidImage)},
			wantCode: CodeInvalidInput,
			wantMsg:  "invalid image file or format",
		},
		{
			name:     "unknown patient",
			cmd:      AnalyzeCommand{ImagePath: "x.jpg", PatientID: 99, RequestDetailID: 5},
			wantCode: CodeNotFound,
			wantMsg:  "patient not found",
		},
		{
			name:     "provider failure",
			cmd:      AnalyzeCommand{ImagePath: "x.jpg", PatientID: 8, RequestDetailID: 5},
			aiErr:    fmt.Errorf("%w: HTTP 500", ai.ErrProviderFailure),
			wantCode: CodeConnectionFailure,
			wantMsg:  "ai api request failed",
		},
		{
			name:     "quota",
			cmd:      AnalyzeCommand{ImagePath: "x.jpg", PatientID: 8, RequestDetailID: 5},
			aiErr:    ai.ErrQuotaExceeded,
			wantCode: CodeQuotaExceeded,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, client, docs := newService(t)
			if tt.loader != nil {
				svc.Images = tt.loader
			}
			client.On("AnalyzeXRay", mock.Anything, mock.Anything).Return(ai.Completion{}, tt.aiErr).Maybe()

			res := svc.Analyze(context.Background(), tt.cmd)

			assert.False(t, res.Success)
			assert.Equal(t, tt.wantCode, res.Code)
			assert.Contains(t, res.Error, tt.wantMsg)
			assert.Zero(t, res.DocumentID)

			// nothing is persisted on failure
			all, err := docs.ListAIReports(context.Background(), 0)
			require.NoError(t, err)
			assert.Empty(t, all)
		})
	}
}

func TestService_AnalyzeUnparseableReplyStillStored(t *testing.T) {
	svc, client, _ := newService(t)
	client.On("AnalyzeXRay", mock.Anything, mock.Anything).
		Return(ai.Completion{Content: "I cannot see a dental image here.", Model: "gpt-4o"}, nil)

	res := svc.Analyze(context.Background(), AnalyzeCommand{ImagePath: "x.jpg", PatientID: 8, RequestDetailID: 5})

	require.True(t, res.Success)
	assert.True(t, res.Report.Sections.Empty())
	assert.Equal(t, "I cannot see a dental image here.", res.Report.RawResponse)
}

func TestService_ConcurrentAnalyzeGetsDistinctIDs(t *testing.T) {
	svc, client, _ := newService(t)
	client.On("AnalyzeXRay", mock.Anything, mock.Anything).Return(ai.Completion{Content: reply, Model: "gpt-4o"}, nil)

	const n = 16
	var wg sync.WaitGroup
	ids := make([]int64, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids[i] = svc.Analyze(context.Background(), AnalyzeCommand{ImagePath: "x.jpg", PatientID: 8, RequestDetailID: 5}).DocumentID
		}(i)
	}
	wg.Wait()

	seen := map[int64]bool{}
	for _, id := range ids {
		assert.False(t, seen[id])
		seen[id] = true
	}
	assert.Len(t, seen, n)
}

func seedReport(t *testing.T, svc *Service, client *mockAI, detail int64) int64 {
	t.Helper()
	client.On("AnalyzeXRay", mock.Anything, mock.Anything).Return(ai.Completion{Content: reply, Model: "gpt-4o"}, nil).Once()
	res := svc.Analyze(context.Background(), AnalyzeCommand{ImagePath: "x.jpg", PatientID: 8, RequestDetailID: detail})
	require.True(t, res.Success, res.Error)
	return res.DocumentID
}

func TestService_View(t *testing.T) {
	svc, client, docs := newService(t)
	id := seedReport(t, svc, client, 5)
	docs.Put(&document.Document{DocumentID: 1, RequestDetailID: 5, Type: document.TypeXRay})
	docs.Put(&document.Document{DocumentID: 2, RequestDetailID: 5, Type: document.TypeXRay, File: "uploads/5/pano.jpg"})

	v := svc.View(context.Background(), id, 0)

	require.Empty(t, v.Error)
	assert.Empty(t, v.Code)
	assert.Equal(t, "caries", v.Report.Diagnosis)
	require.NotNil(t, v.Patient)
	assert.Equal(t, "Ana Rojas", v.Patient.Name)
	require.NotNil(t, v.OriginalImage)
	assert.Equal(t, "uploads/5/pano.jpg", *v.OriginalImage)
	require.NotNil(t, v.OriginalFormURL)
	assert.Equal(t, "document/form/5", *v.OriginalFormURL)
}

func TestService_ViewFallsBackToForm(t *testing.T) {
	svc, client, docs := newService(t)
	id := seedReport(t, svc, client, 5)
	docs.Put(&document.Document{DocumentID: 1, RequestDetailID: 5, Type: document.TypeForm, File: "forms/5.png"})
	store := &fakeStore{}
	svc.Artifacts = store

	v := svc.View(context.Background(), id, 5)
	require.NotNil(t, v.OriginalImage)
	assert.Equal(t, "https://minio.local/forms/5.png?sig", *v.OriginalImage)

	store.linkErr = errors.New("minio down")
	v = svc.View(context.Background(), id, 5)
	assert.Nil(t, v.OriginalImage)
	assert.Empty(t, v.Error)
}

func TestService_ViewMissingContext(t *testing.T) {
	svc, _, docs := newService(t)
	docs.Put(&document.Document{
		DocumentID:      4,
		RequestDetailID: 9,
		Type:            document.TypeAIReport,
		Observation:     "FINDINGS: bone loss\nDIAGNOSIS: periodontitis",
	})

	v := svc.View(context.Background(), 4, 0)

	require.Empty(t, v.Error)
	assert.Equal(t, "bone loss", v.Report.Findings)
	assert.Nil(t, v.Patient)
	assert.Nil(t, v.OriginalImage)
}

func TestService_ViewNotFound(t *testing.T) {
	svc, _, _ := newService(t)

	v := svc.View(context.Background(), 404, 0)

	assert.Equal(t, CodeNotFound, v.Code)
	b, err := json.Marshal(v)
	require.NoError(t, err)
	assert.JSONEq(t, `{"error":"AI report not found","report":null,"patient":null,"original_image":null,"original_form_url":null}`, string(b))
}

type brokenDocuments struct {
	*memory.DocumentRepository
	err error
}

func (b brokenDocuments) GetAIReport(context.Context, int64, int64) (*document.Document, error) {
	return nil, b.err
}

func (b brokenDocuments) CreateNext(context.Context, *document.Document) error {
	return b.err
}

func TestService_StoreErrorsStayInLogs(t *testing.T) {
	svc, client, docs := newService(t)
	svc.Documents = brokenDocuments{DocumentRepository: docs, err: errors.New("dial tcp 10.0.0.5:3306: connect: connection refused")}
	client.On("AnalyzeXRay", mock.Anything, mock.Anything).Return(ai.Completion{Content: reply, Model: "gpt-4o"}, nil).Maybe()

	v := svc.View(context.Background(), 1, 0)
	assert.Equal(t, CodeInternal, v.Code)
	assert.Equal(t, "failed to load AI report", v.Error)
	assert.Nil(t, v.Report)

	res := svc.Export(context.Background(), 1, 0)
	assert.False(t, res.Success)
	assert.NotContains(t, res.Error, "10.0.0.5")

	an := svc.Analyze(context.Background(), AnalyzeCommand{ImagePath: "x.jpg", PatientID: 8, RequestDetailID: 5})
	assert.False(t, an.Success)
	assert.Equal(t, CodeInternal, an.Code)
	assert.Equal(t, "internal error", an.Error)
}

func TestService_Export(t *testing.T) {
	svc, client, _ := newService(t)
	id := seedReport(t, svc, client, 5)

	res := svc.Export(context.Background(), id, 0)

	require.True(t, res.Success, res.Error)
	assert.Equal(t, "ai_report_2026-04-01_15-30-45.html", res.Filename)
	assert.Contains(t, res.HTMLContent, "<title>AI Dental Analysis Report</title>")
	assert.Contains(t, res.HTMLContent, "Ana Rojas")
	assert.Contains(t, res.HTMLContent, "AI Model: gpt-4o")
	assert.Empty(t, res.URL)
}

func TestService_ExportArchives(t *testing.T) {
	svc, client, _ := newService(t)
	id := seedReport(t, svc, client, 5)
	store := &fakeStore{}
	svc.Artifacts = store

	res := svc.Export(context.Background(), id, 0)
	require.True(t, res.Success)
	key := "reports/5/1/ai_report_2026-04-01_15-30-45.html"
	assert.Equal(t, "https://minio.local/"+key, res.URL)
	assert.True(t, strings.HasPrefix(string(store.puts[key]), "<!DOCTYPE html>"))

	store.putErr = errors.New("bucket gone")
	res = svc.Export(context.Background(), id, 0)
	assert.True(t, res.Success)
	assert.Empty(t, res.URL)
}

func TestService_ExportNotFound(t *testing.T) {
	svc, _, _ := newService(t)
	res := svc.Export(context.Background(), 404, 0)
	assert.False(t, res.Success)
	assert.Equal(t, "AI report not found", res.Error)
	assert.Equal(t, CodeNotFound, res.Code)
}

func TestService_TestConnection(t *testing.T) {
	svc, client, _ := newService(t)
	client.On("Ping", mock.Anything).Return("Connection successful", nil).Once()
	client.On("Ping", mock.Anything).Return("", fmt.Errorf("%w: HTTP 401", ai.ErrProviderFailure)).Once()

	ok := svc.TestConnection(context.Background())
	assert.True(t, ok.Success)
	assert.Equal(t, "Connection successful", ok.Message)

	bad := svc.TestConnection(context.Background())
	assert.False(t, bad.Success)
	assert.Equal(t, CodeConnectionFailure, bad.Code)
	assert.Contains(t, bad.Error, "HTTP 401")
}

func TestService_ListReports(t *testing.T) {
	svc, client, _ := newService(t)
	seedReport(t, svc, client, 5)
	seedReport(t, svc, client, 5)
	seedReport(t, svc, client, 6)

	got, err := svc.ListReports(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.EqualValues(t, 2, got[0].DocumentID)
	assert.Equal(t, "caries", got[0].Diagnosis)

	all, err := svc.ListReports(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestService_Patients(t *testing.T) {
	svc, _, _ := newService(t)

	p, err := svc.PatientByCode(context.Background(), "CI-123")
	require.NoError(t, err)
	assert.EqualValues(t, 8, p.ID)

	_, err = svc.PatientByCode(context.Background(), "")
	assert.Equal(t, CodeInvalidInput, Classify(err))

	_, err = svc.Patient(context.Background(), 99)
	assert.Equal(t, CodeNotFound, Classify(err))

	list, err := svc.SearchPatients(context.Background(), patient.SearchQuery{LastName: "roj"})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestClassify(t *testing.T) {
	assert.Equal(t, Code(""), Classify(nil))
	assert.Equal(t, CodeConnectionFailure, Classify(fmt.Errorf("call: %w", context.DeadlineExceeded)))
	assert.Equal(t, CodeConnectionFailure, Classify(ai.ErrInvalidResponse))
	assert.Equal(t, CodeNotFound, Classify(document.ErrNotFound))
	assert.Equal(t, CodeInternal, Classify(errors.New("disk full")))
}
