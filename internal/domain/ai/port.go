package ai

import (
	"context"

	"github.com/bryanwahyu/dental-xray-ai/internal/domain/imaging"
)

// PatientContext is what the prompt tells the model about the patient.
type PatientContext struct {
	PatientID int64
	Name      string
	Age       string
	Gender    string
}

// XRayRequest is one analysis call.
type XRayRequest struct {
	Image   *imaging.Image
	Patient PatientContext
}

// Completion is the raw reply of the model.
type Completion struct {
	Content string
	Model   string
}

type Client interface {
	AnalyzeXRay(ctx context.Context, req XRayRequest) (Completion, error)
	// Ping sends a short probe message and returns the model's reply.
	Ping(ctx context.Context) (string, error)
}
