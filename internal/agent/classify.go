package agent

import (
	"errors"
	"net/http"
	"strings"

	"github.com/capitalize-ai/journey-analytics/internal/llm"
)

// FailureKind is the gateway's view of a provider error.
type FailureKind int

const (
	// FailureNone means the call succeeded.
	FailureNone FailureKind = iota
	// FailureRateLimit means the provider throttled the call; the gateway
	// backs off and moves to the next candidate.
	FailureRateLimit
	// FailureFatal is any other provider error; it propagates at once.
	FailureFatal
)

func (k FailureKind) String() string {
	switch k {
	case FailureNone:
		return "none"
	case FailureRateLimit:
		return "rate_limited"
	default:
		return "fatal"
	}
}

// rateLimitSignatures are matched case-sensitively against error text.
var rateLimitSignatures = []string{"429", "RESOURCE_EXHAUSTED"}

// Classify maps a provider error onto a FailureKind. An HTTP 429 status is
// recognised directly; otherwise the error text is matched against the
// known throttling signatures.
func Classify(err error) FailureKind {
	if err == nil {
		return FailureNone
	}
	if llm.StatusCode(err) == http.StatusTooManyRequests {
		return FailureRateLimit
	}
	var rl *RateLimitError
	if errors.As(err, &rl) {
		return FailureRateLimit
	}
	msg := err.Error()
	for _, sig := range rateLimitSignatures {
		if strings.Contains(msg, sig) {
			return FailureRateLimit
		}
	}
	if strings.Contains(strings.ToLower(msg), "rate_limit") {
		return FailureRateLimit
	}
	return FailureFatal
}

// RateLimitError marks an error as throttling regardless of its text.
type RateLimitError struct {
	Err error
}

func (e *RateLimitError) Error() string { return "rate limited: " + e.Err.Error() }
func (e *RateLimitError) Unwrap() error { return e.Err }
