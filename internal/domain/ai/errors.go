package ai

import "errors"

// ErrQuotaExceeded indicates the AI provider returned a quota/limit error (HTTP 429 or similar).
var ErrQuotaExceeded = errors.New("ai quota exceeded")

// ErrProviderFailure covers transport errors and non-200 replies from the provider.
var ErrProviderFailure = errors.New("ai api request failed")

// ErrInvalidResponse is returned when the reply carries no first-choice message.
var ErrInvalidResponse = errors.New("invalid ai response format")
