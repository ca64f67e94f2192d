package llm

import (
	"errors"
	"net/http"
	"strings"

	openai "github.com/openai/openai-go"
	genai "google.golang.org/genai"
)

var (
	// ErrQuotaExceeded is the provider's "no more calls for now" signal.
	ErrQuotaExceeded = errors.New("llm: quota exceeded")
	// ErrEmptyResponse is returned when the model produced no text.
	ErrEmptyResponse = errors.New("llm: empty response")
)

// QuotaError wraps a provider error recognised as a quota or rate-limit
// failure. It matches ErrQuotaExceeded with errors.Is.
type QuotaError struct {
	Err error
}

func (e *QuotaError) Error() string {
	if e.Err == nil {
		return ErrQuotaExceeded.Error()
	}
	return e.Err.Error()
}
func (e *QuotaError) Unwrap() error { return e.Err }
func (e *QuotaError) Is(target error) bool {
	return target == ErrQuotaExceeded
}

// NewQuotaError marks err as a quota failure.
func NewQuotaError(err error) error {
	return &QuotaError{Err: err}
}

// quotaSignatures are matched against the lowercased error text when the
// provider gives us nothing typed to go on.
var quotaSignatures = []string{"quota", "rate limit", "ratelimit", "429", "resource_exhausted", "resource exhausted"}

// IsQuotaExceeded reports whether err is a quota or rate-limit failure.
func IsQuotaExceeded(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrQuotaExceeded) {
		return true
	}
	var gv genai.APIError
	if errors.As(err, &gv) && isQuotaStatus(gv.Code, gv.Status) {
		return true
	}
	var gp *genai.APIError
	if errors.As(err, &gp) && gp != nil && isQuotaStatus(gp.Code, gp.Status) {
		return true
	}
	var oe *openai.Error
	if errors.As(err, &oe) && oe != nil && oe.StatusCode == http.StatusTooManyRequests {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, sig := range quotaSignatures {
		if strings.Contains(msg, sig) {
			return true
		}
	}
	return false
}

func isQuotaStatus(code int, status string) bool {
	if code == http.StatusTooManyRequests {
		return true
	}
	return strings.Contains(strings.ToUpper(status), "RESOURCE_EXHAUSTED")
}

// classify tags provider errors so callers only need IsQuotaExceeded.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if IsQuotaExceeded(err) {
		var qe *QuotaError
		if errors.As(err, &qe) {
			return err
		}
		return NewQuotaError(err)
	}
	return err
}
