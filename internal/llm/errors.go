package llm

import (
	"context"
	"errors"
	"regexp"
	"strconv"
)

// statusCode finds the HTTP status langchaingo providers put in their
// "API returned unexpected status code: NNN" errors.
var statusCode = regexp.MustCompile(`status code:?\s*(\d{3})`)

// permanentError marks a failure that repeating the call cannot fix.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying. Permanent(nil) is nil.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsRetryable reports whether a failed call may succeed if repeated.
// Errors marked Permanent, cancellation and configuration faults are not
// retryable; everything else, including timeouts, is.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var p *permanentError
	if errors.As(err, &p) {
		return false
	}
	switch {
	case errors.Is(err, context.Canceled),
		errors.Is(err, ErrMissingAPIKey),
		errors.Is(err, ErrUnknownProvider):
		return false
	}
	return true
}

// classify marks provider client errors as permanent. Rate limiting (429),
// request timeouts (408), conflicts (409) and server errors stay retryable.
func classify(err error) error {
	m := statusCode.FindStringSubmatch(err.Error())
	if m == nil {
		return err
	}
	code, _ := strconv.Atoi(m[1])
	switch {
	case code == 408, code == 409, code == 429:
		return err
	case code >= 400 && code < 500:
		return Permanent(err)
	}
	return err
}
