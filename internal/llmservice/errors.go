package llmservice

import (
	"context"
	"errors"
	"fmt"
	"net"
	"regexp"
	"strings"

	"github.com/googleapis/gax-go/v2/apierror"
	"google.golang.org/grpc/codes"

	"document-chatbot/internal/models"
)

// ErrorInfo reasons the Gemini API uses for rejected keys
var authReasons = []string{"API_KEY_INVALID", "API_KEY_SERVICE_BLOCKED", "API_KEY_HTTP_REFERRER_BLOCKED"}

// The message heuristics below only apply to providers without typed errors
// (openai, ollama).
var (
	authStatusRe      = regexp.MustCompile(`\b(401|403)\b`)
	transientStatusRe = regexp.MustCompile(`\b(408|429|500|502|503|504)\b`)

	authMarkers = []string{
		"unauthorized",
		"unauthenticated",
		"permission denied",
		"permission_denied",
		"api key not valid",
		"api_key_invalid",
		"invalid api key",
		"invalid_api_key",
		"incorrect api key",
		"missing the openai api key",
	}
	transientMarkers = []string{
		"rate limit",
		"resource_exhausted",
		"resource exhausted",
		"unavailable",
		"overloaded",
		"deadline exceeded",
		"timeout",
		"timed out",
		"connection refused",
		"connection reset",
		"unexpected eof",
	}
)

// ClassifyError maps a provider error onto the pipeline taxonomy: rejected
// credentials become models.ErrAuthentication, retryable failures become
// models.ErrTransient and everything else is wrapped in fallback. Google API
// errors are classified by their gRPC code, HTTP status and error reason.
// Errors that are already classified, and caller cancellation, pass through
// unchanged.
func ClassifyError(err error, fallback error) error {
	if err == nil {
		return nil
	}
	for _, known := range []error{models.ErrAuthentication, models.ErrTransient, models.ErrModelInvocation, models.ErrEmbedding} {
		if errors.Is(err, known) {
			return err
		}
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", models.ErrTransient, err)
	}
	var apiErr *apierror.APIError
	if errors.As(err, &apiErr) {
		if class := classifyAPIError(apiErr); class != nil {
			return fmt.Errorf("%w: %w", class, err)
		}
		return fmt.Errorf("%w: %w", fallback, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%w: %w", models.ErrTransient, err)
	}

	msg := strings.ToLower(err.Error())
	if authStatusRe.MatchString(msg) || containsAny(msg, authMarkers) {
		return fmt.Errorf("%w: %w", models.ErrAuthentication, err)
	}
	if transientStatusRe.MatchString(msg) || containsAny(msg, transientMarkers) {
		return fmt.Errorf("%w: %w", models.ErrTransient, err)
	}
	return fmt.Errorf("%w: %w", fallback, err)
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// classifyAPIError returns nil when the error is neither an auth nor a
// transient failure.
func classifyAPIError(apiErr *apierror.APIError) error {
	for _, reason := range authReasons {
		if apiErr.Reason() == reason {
			return models.ErrAuthentication
		}
	}
	if st := apiErr.GRPCStatus(); st != nil {
		switch st.Code() {
		case codes.Unauthenticated, codes.PermissionDenied:
			return models.ErrAuthentication
		case codes.Unavailable, codes.ResourceExhausted, codes.DeadlineExceeded, codes.Aborted:
			return models.ErrTransient
		}
	}
	switch code := apiErr.HTTPCode(); {
	case code == 401 || code == 403:
		return models.ErrAuthentication
	case code == 408 || code == 429 || code >= 500:
		return models.ErrTransient
	}
	return nil
}
