package places

import (
	"errors"
	"fmt"
)

var (
	ErrMissingAPIKey  = errors.New("places: missing api key")
	ErrNotFound       = errors.New("places: place not found")
	ErrInvalidRequest = errors.New("places: invalid request")
	ErrQuotaExceeded  = errors.New("places: query quota exceeded")
	ErrRequestDenied  = errors.New("places: request denied")
	ErrUnknown        = errors.New("places: unknown error")
)

// statusError maps a Places web-service status to an error. OK yields nil.
// ZERO_RESULTS is handled by the callers because searches treat it as an empty list.
func statusError(status, message string) error {
	var err error

	switch status {
	case "OK":
		return nil
	case "ZERO_RESULTS", "NOT_FOUND":
		err = ErrNotFound
	case "INVALID_REQUEST":
		err = ErrInvalidRequest
	case "OVER_QUERY_LIMIT":
		err = ErrQuotaExceeded
	case "REQUEST_DENIED":
		err = ErrRequestDenied
	default:
		err = ErrUnknown
	}

	if message != "" {
		return fmt.Errorf("%w: %s: %s", err, status, message)
	}

	return fmt.Errorf("%w: %s", err, status)
}
