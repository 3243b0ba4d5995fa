package llm

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrEmptyResponse is returned when the model answers with no content and
// no tool calls.
var ErrEmptyResponse = errors.New("model returned an empty response")

// APIError is a non-2xx answer from the model endpoint. Retry
// classification keys on the numeric status code.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("model API request failed with status %d: %s", e.Status, e.Body)
}

// Retryable reports whether a model-call failure is worth retrying.
// Client-class failures (4xx) are permanent for that call, with the
// exception of 429 rate limits. Everything else -- transport errors,
// 5xx -- is retried with backoff.
func Retryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if apiErr.Status == http.StatusTooManyRequests {
			return true
		}
		return apiErr.Status < 400 || apiErr.Status >= 500
	}
	return true
}
