package resolver

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/coffeed/coffeed-admin/gmaps"
	"github.com/coffeed/coffeed-admin/places"
)

const (
	textSearchBiasMeters = 500
	strategyTextSearch   = "text_search"
)

type nearbyTier struct {
	radiusMeters float64
	useKeyword   bool
}

// The first tier looks for the pin itself, the later ones widen the circle
// and filter by name.
var nearbyTiers = []nearbyTier{
	{radiusMeters: 15},
	{radiusMeters: 50, useKeyword: true},
	{radiusMeters: 200, useKeyword: true},
}

func (t nearbyTier) strategy() string {
	return fmt.Sprintf("nearby_%.0fm", t.radiusMeters)
}

// search identifies a place from the name and position embedded in the URL.
func (r *Resolver) search(ctx context.Context, rawURL string) (match, error) {
	name := gmaps.ExtractPlaceName(rawURL)
	if name == "" {
		r.logger.Debug("no place name in url")

		return match{}, newError(ErrNoIdentifierFound, rawURL, nil)
	}

	point, hasPoint := gmaps.ExtractGeoPoint(rawURL)
	if hasPoint {
		m, ok, err := r.nearby(ctx, rawURL, point, name)
		if err != nil {
			return match{}, err
		}

		if ok {
			return m, nil
		}
	}

	return r.textSearch(ctx, rawURL, name, point, hasPoint)
}

// nearby walks the radius tiers. A failed search ends the nearby phase and
// the caller falls through to the text search. Cancellation is returned.
func (r *Resolver) nearby(ctx context.Context, rawURL string, point gmaps.GeoPoint, name string) (match, bool, error) {
	for _, tier := range nearbyTiers {
		keyword := ""
		if tier.useKeyword {
			keyword = name
		}

		candidates, err := r.services.Search.NearbySearch(ctx, point, tier.radiusMeters, keyword)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return match{}, false, newError(ErrUpstream, rawURL, ctxErr)
			}

			r.logger.Warn("nearby search failed",
				zap.Float64("radius", tier.radiusMeters),
				zap.Error(err),
			)

			return match{}, false, nil
		}

		r.logger.Debug("nearby search",
			zap.Float64("radius", tier.radiusMeters),
			zap.Bool("keyword", tier.useKeyword),
			zap.Int("candidates", len(candidates)),
		)

		candidates = withPlaceID(candidates)
		if len(candidates) == 0 {
			continue
		}

		chosen := candidates[0]
		if len(candidates) > 1 {
			chosen = pickCandidate(candidates, name)
		}

		r.logger.Debug("nearby candidate chosen",
			zap.String("place_id", chosen.PlaceID),
			zap.Float64("distance_m", point.DistanceTo(chosen.Location)),
		)

		return match{placeID: chosen.PlaceID, strategy: tier.strategy(), url: rawURL}, true, nil
	}

	return match{}, false, nil
}

func (r *Resolver) textSearch(ctx context.Context, rawURL, name string, point gmaps.GeoPoint, hasPoint bool) (match, error) {
	var bias *places.Circle
	if hasPoint {
		bias = &places.Circle{Center: point, RadiusMeters: textSearchBiasMeters}
	}

	candidates, err := r.services.Search.TextSearch(ctx, name, bias)
	if err != nil {
		return match{}, newError(ErrUpstream, rawURL, err)
	}

	candidates = withPlaceID(candidates)

	r.logger.Debug("text search", zap.Bool("biased", hasPoint), zap.Int("candidates", len(candidates)))

	if len(candidates) == 0 {
		return match{}, newError(ErrNoIdentifierFound, rawURL, nil)
	}

	return match{placeID: candidates[0].PlaceID, strategy: strategyTextSearch, url: rawURL}, nil
}

// pickCandidate prefers an exact name match, then a name containing or
// contained in the wanted name, then the first result (the search returns
// the nearest first).
func pickCandidate(candidates []places.Candidate, name string) places.Candidate {
	want := normalizeName(name)

	for _, c := range candidates {
		if normalizeName(c.Name) == want {
			return c
		}
	}

	for _, c := range candidates {
		got := normalizeName(c.Name)
		if got == "" {
			continue
		}

		if strings.Contains(got, want) || strings.Contains(want, got) {
			return c
		}
	}

	return candidates[0]
}

func normalizeName(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func withPlaceID(candidates []places.Candidate) []places.Candidate {
	ans := make([]places.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.PlaceID != "" {
			ans = append(ans, c)
		}
	}

	return ans
}
