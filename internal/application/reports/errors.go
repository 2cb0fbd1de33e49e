package reports

import (
	"context"
	"errors"

	"github.com/bryanwahyu/dental-xray-ai/internal/domain/ai"
	"github.com/bryanwahyu/dental-xray-ai/internal/domain/document"
	"github.com/bryanwahyu/dental-xray-ai/internal/domain/imaging"
	"github.com/bryanwahyu/dental-xray-ai/internal/domain/patient"
	"github.com/bryanwahyu/dental-xray-ai/internal/domain/report"
)

// ErrInvalidInput marks requests rejected before any collaborator is called.
var ErrInvalidInput = errors.New("invalid input")

// Code is the machine-readable failure class carried by every result.
type Code string

const (
	CodeInvalidInput      Code = "invalid_input"
	CodeNotFound          Code = "not_found"
	CodeConnectionFailure Code = "connection_failure"
	CodeQuotaExceeded     Code = "quota_exceeded"
	CodeInternal          Code = "internal"
)

// Classify maps an error chain onto a Code. nil maps to "".
func Classify(err error) Code {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidInput), errors.Is(err, imaging.ErrInvalidImage):
		return CodeInvalidInput
	case errors.Is(err, patient.ErrNotFound), errors.Is(err, report.ErrNotFound), errors.Is(err, document.ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ai.ErrQuotaExceeded):
		return CodeQuotaExceeded
	case errors.Is(err, ai.ErrProviderFailure), errors.Is(err, ai.ErrInvalidResponse),
		errors.Is(err, context.DeadlineExceeded):
		return CodeConnectionFailure
	default:
		return CodeInternal
	}
}

// internalMessage replaces store and driver text in results; the detail is logged.
const internalMessage = "internal error"

// publicMessage is the error text a result may carry for err.
func publicMessage(err error) string {
	if Classify(err) == CodeInternal {
		return internalMessage
	}
	return err.Error()
}
