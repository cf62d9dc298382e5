package fetch

import (
	"errors"
	"fmt"
	"net/http"
)

// TransientError marks a failure that is safe to retry: timeouts, connection
// errors, 5xx responses and rate limiting (429).
type TransientError struct {
	StatusCode int // 0 when the failure happened below HTTP
	Err        error
}

func (e *TransientError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("transient HTTP error: %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("transient error: %v", e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// FatalError marks a failure that must not be retried, such as a 4xx
// response other than 429 or a malformed request.
type FatalError struct {
	StatusCode int
	Err        error
}

func (e *FatalError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fatal HTTP error: %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fatal error: %v", e.Err)
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

func IsRateLimited(err error) bool {
	var te *TransientError
	return errors.As(err, &te) && te.StatusCode == http.StatusTooManyRequests
}
