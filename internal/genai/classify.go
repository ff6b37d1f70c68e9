package genai

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/aws/smithy-go"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/apresai/shortsmith/internal/apperr"
)

// ClassifyStatus maps an upstream HTTP status and error body to a failure kind.
func ClassifyStatus(code int, body string) apperr.Kind {
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden,
		strings.Contains(body, "API key not valid"),
		strings.Contains(body, "PERMISSION_DENIED"):
		return apperr.UpstreamAuthError
	case code == http.StatusTooManyRequests,
		strings.Contains(body, "RESOURCE_EXHAUSTED"):
		return apperr.UpstreamQuotaExceeded
	default:
		return apperr.UpstreamGenericFailure
	}
}

// statusError builds the classified error for a non-200 HTTP reply. The body
// is kept only on the cause.
func statusError(backend string, code int, body string) *apperr.Error {
	kind := ClassifyStatus(code, body)
	return apperr.Wrap(kind, fmt.Errorf("%s status %d: %s", backend, code, truncate(body, 500)))
}

type httpStatusError interface {
	HTTPStatusCode() int
}

// Classify maps an SDK or transport error to a classified error. Errors that
// are already classified pass through unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}

	var anthErr *anthropic.Error
	if errors.As(err, &anthErr) {
		return apperr.Wrap(ClassifyStatus(anthErr.StatusCode, ""), err)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "AccessDeniedException", "UnrecognizedClientException", "ExpiredTokenException":
			return apperr.Wrap(apperr.UpstreamAuthError, err)
		case "ThrottlingException", "ServiceQuotaExceededException":
			return apperr.Wrap(apperr.UpstreamQuotaExceeded, err)
		}
	}
	var respErr httpStatusError
	if errors.As(err, &respErr) {
		return apperr.Wrap(ClassifyStatus(respErr.HTTPStatusCode(), ""), err)
	}

	if st, ok := status.FromError(err); ok {
		switch st.Code() {
		case codes.Unauthenticated, codes.PermissionDenied:
			return apperr.Wrap(apperr.UpstreamAuthError, err)
		case codes.ResourceExhausted:
			return apperr.Wrap(apperr.UpstreamQuotaExceeded, err)
		}
	}

	return apperr.Wrap(ClassifyStatus(0, err.Error()), err)
}

func truncate(s string, maxLen int) string {
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	return s
}
