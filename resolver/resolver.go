// Package resolver turns a Google Maps URL of any shape into a canonical place
// with its details.
//
// Resolution is a cascade: short links are expanded once, identifiers are
// read from the URL text, and when the URL only carries a name and a position
// the place is searched for around that position before falling back to a
// free-text search. The identified place is then fetched and post-processed
// into structured address, schedule and contact data.
package resolver

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/coffeed/coffeed-admin/gmaps"
	"github.com/coffeed/coffeed-admin/metrics"
	"github.com/coffeed/coffeed-admin/places"
)

const defaultPhotoMaxWidth = 1200

// LinkExpander follows a short link. It returns "" when no redirect happened.
type LinkExpander interface {
	Expand(ctx context.Context, shortURL string) (string, error)
}

type PlaceSearcher interface {
	NearbySearch(ctx context.Context, point gmaps.GeoPoint, radiusMeters float64, keyword string) ([]places.Candidate, error)
	TextSearch(ctx context.Context, query string, bias *places.Circle) ([]places.Candidate, error)
}

type PlaceDetailer interface {
	Details(ctx context.Context, placeID string) (*places.PlaceDetails, error)
}

// PhotoLinker builds a fetchable URL for a photo reference.
type PhotoLinker interface {
	PhotoURL(reference string, maxWidth int) string
}

// Services are the collaborators of a Resolver. Photos is optional.
type Services struct {
	Expander LinkExpander
	Search   PlaceSearcher
	Details  PlaceDetailer
	Photos   PhotoLinker
}

func (s Services) validate() error {
	var err error

	if s.Expander == nil {
		err = multierr.Append(err, errors.New("link expander is required"))
	}

	if s.Search == nil {
		err = multierr.Append(err, errors.New("place searcher is required"))
	}

	if s.Details == nil {
		err = multierr.Append(err, errors.New("place detailer is required"))
	}

	return err
}

type Resolver struct {
	services      Services
	phone         PhoneFormat
	photoMaxWidth int
	logger        *zap.Logger
}

type Option func(*Resolver)

func WithLogger(logger *zap.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

func WithPhoneFormat(f PhoneFormat) Option {
	return func(r *Resolver) {
		r.phone = f
	}
}

func WithPhotoMaxWidth(width int) Option {
	return func(r *Resolver) {
		if width > 0 {
			r.photoMaxWidth = width
		}
	}
}

// New creates a Resolver. The Resolver holds no mutable state and is safe for concurrent use.
func New(services Services, opts ...Option) (*Resolver, error) {
	if err := services.validate(); err != nil {
		return nil, err
	}

	r := &Resolver{
		services:      services,
		phone:         DefaultPhoneFormat,
		photoMaxWidth: defaultPhotoMaxWidth,
		logger:        zap.NewNop(),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r, nil
}

// match is an identified place and the strategy that identified it.
type match struct {
	placeID  string
	strategy string
	url      string
}

// Resolve identifies the place rawURL points at and fetches its details.
// Failures are *ResolutionError values.
func (r *Resolver) Resolve(ctx context.Context, rawURL string) (*ResolvedPlace, error) {
	start := time.Now()

	place, err := r.resolve(ctx, strings.TrimSpace(rawURL))

	metrics.PlaceResolutionDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.PlaceResolutionErrors.WithLabelValues(KindName(err)).Inc()
		r.logger.Info("place resolution failed", zap.String("url", rawURL), zap.Error(err))

		return nil, err
	}

	metrics.PlaceResolutions.WithLabelValues(place.Strategy).Inc()
	r.logger.Info("place resolved",
		zap.String("url", rawURL),
		zap.String("place_id", place.PlaceID),
		zap.String("strategy", place.Strategy),
	)

	return place, nil
}

func (r *Resolver) resolve(ctx context.Context, rawURL string) (*ResolvedPlace, error) {
	if rawURL == "" {
		return nil, newError(ErrNoIdentifierFound, rawURL, nil)
	}

	m, err := r.identify(ctx, rawURL, false)
	if err != nil {
		return nil, err
	}

	details, err := r.services.Details.Details(ctx, m.placeID)
	if err != nil {
		return nil, r.detailsError(rawURL, m.placeID, err)
	}

	if details == nil {
		return nil, &ResolutionError{Kind: ErrPlaceDetailsUnavailable, URL: rawURL, PlaceID: m.placeID}
	}

	return r.build(m, details), nil
}

// identify runs the extraction cascade. A short link is expanded and the
// expanded URL goes through the cascade once more with expanded set, so
// expansion happens at most once per resolution.
func (r *Resolver) identify(ctx context.Context, rawURL string, expanded bool) (match, error) {
	var id gmaps.Identifier
	if expanded {
		id = gmaps.ExtractPatternIdentifier(rawURL)
	} else {
		id = gmaps.ExtractIdentifier(rawURL)
	}

	switch id.Kind {
	case gmaps.KindNeedsExpansion:
		return r.expand(ctx, rawURL)
	case gmaps.KindPlaceID, gmaps.KindCustomerID:
		r.logger.Debug("identifier extracted",
			zap.String("strategy", string(id.Strategy)),
			zap.String("kind", id.Kind.String()),
		)

		return match{placeID: id.Value, strategy: string(id.Strategy), url: rawURL}, nil
	}

	return r.search(ctx, rawURL)
}

func (r *Resolver) expand(ctx context.Context, shortURL string) (match, error) {
	shortURL = gmaps.WithScheme(shortURL)

	expanded, err := r.services.Expander.Expand(ctx, shortURL)
	if err != nil {
		return match{}, newError(ErrExpansionFailed, shortURL, err)
	}

	expanded = strings.TrimSpace(expanded)
	if expanded == "" || expanded == shortURL {
		return match{}, newError(ErrExpansionFailed, shortURL, nil)
	}

	r.logger.Debug("short link expanded", zap.String("expanded", expanded))

	return r.identify(ctx, expanded, true)
}

func (r *Resolver) detailsError(rawURL, placeID string, err error) error {
	kind := ErrUpstream
	if errors.Is(err, places.ErrNotFound) || errors.Is(err, places.ErrInvalidRequest) {
		kind = ErrPlaceDetailsUnavailable
	}

	return &ResolutionError{Kind: kind, URL: rawURL, PlaceID: placeID, Err: err}
}
