package resolver

import (
	"errors"
	"fmt"
)

var (
	// ErrExpansionFailed is returned when a short link leads nowhere.
	ErrExpansionFailed = errors.New("short link expansion failed")
	// ErrNoIdentifierFound is returned when no place could be identified from the URL.
	ErrNoIdentifierFound = errors.New("no place identifier found")
	// ErrPlaceDetailsUnavailable is returned when the identified place has no details upstream.
	ErrPlaceDetailsUnavailable = errors.New("place details unavailable")
	// ErrUpstream is returned on quota, authorization or transport failures of the places service.
	ErrUpstream = errors.New("upstream error")
)

// ResolutionError describes why a URL could not be resolved.
// Kind is one of the package sentinel errors; Err is the underlying cause, if any.
type ResolutionError struct {
	Kind    error
	URL     string
	PlaceID string
	Err     error
}

func newError(kind error, rawURL string, cause error) *ResolutionError {
	return &ResolutionError{Kind: kind, URL: rawURL, Err: cause}
}

func (e *ResolutionError) Error() string {
	msg := e.Kind.Error()
	if e.PlaceID != "" {
		msg = fmt.Sprintf("%s (place %s)", msg, e.PlaceID)
	}

	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}

	return msg
}

func (e *ResolutionError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}

	return []error{e.Kind, e.Err}
}

// KindName returns a short label of the error kind, used for metrics and API bodies.
func KindName(err error) string {
	switch {
	case errors.Is(err, ErrExpansionFailed):
		return "expansion_failed"
	case errors.Is(err, ErrNoIdentifierFound):
		return "no_identifier_found"
	case errors.Is(err, ErrPlaceDetailsUnavailable):
		return "place_details_unavailable"
	case errors.Is(err, ErrUpstream):
		return "upstream_error"
	default:
		return "unknown"
	}
}

// Message returns the user facing text for a resolution failure.
func Message(err error) string {
	switch {
	case errors.Is(err, ErrExpansionFailed):
		return "Could not expand the short link. Open it in a browser and paste the full Google Maps URL."
	case errors.Is(err, ErrNoIdentifierFound):
		return "Could not identify a place in this URL. Use the Share button in Google Maps and paste the link."
	case errors.Is(err, ErrPlaceDetailsUnavailable):
		return "Google Maps has no details for this place."
	case errors.Is(err, ErrUpstream):
		return "Google Maps is not available right now. Try again later."
	default:
		return "Unexpected error while resolving the place."
	}
}
