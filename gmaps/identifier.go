package gmaps

import (
	"net/url"
	"regexp"
	"strings"
)

type IdentifierKind int

const (
	KindNotFound IdentifierKind = iota
	// KindPlaceID is a modern place id (ChIJ...).
	KindPlaceID
	// KindCustomerID is a numeric customer id, encoded as "CID:<n>".
	KindCustomerID
	// KindNeedsExpansion marks a short link that has to be followed first.
	KindNeedsExpansion
)

func (k IdentifierKind) String() string {
	switch k {
	case KindPlaceID:
		return "place_id"
	case KindCustomerID:
		return "cid"
	case KindNeedsExpansion:
		return "needs_expansion"
	default:
		return "not_found"
	}
}

// Strategy names the extraction rule that produced an identifier.
type Strategy string

const (
	StrategyFeatureID     Strategy = "ftid"
	StrategyPlaceIDMarker Strategy = "place_id_marker"
	StrategyDataParam     Strategy = "data_param"
	StrategyCIDParam      Strategy = "cid_param"
	StrategyBarePlaceID   Strategy = "bare_place_id"
	StrategyShortLink     Strategy = "short_link"
)

type Identifier struct {
	Kind     IdentifierKind
	Value    string
	Strategy Strategy
}

const cidPrefix = "CID:"

// IsCID reports whether id is a numeric customer id produced by this package.
func IsCID(id string) bool {
	return strings.HasPrefix(id, cidPrefix)
}

// CIDNumber strips the "CID:" prefix.
func CIDNumber(id string) string {
	return strings.TrimPrefix(id, cidPrefix)
}

var (
	featureIDRegex     = regexp.MustCompile(`ftid=(0x[0-9a-fA-F]+:0x[0-9a-fA-F]+)`)
	placeIDMarkerRegex = regexp.MustCompile(`!1s(ChIJ[A-Za-z0-9_-]+)`)
	dataParamRegex     = regexp.MustCompile(`data=[^&]*(?:!|%21)1s(ChIJ[A-Za-z0-9_-]+)`)
	cidParamRegex      = regexp.MustCompile(`[?&]cid=(\d+)`)
	barePlaceIDRegex   = regexp.MustCompile(`ChIJ[A-Za-z0-9_-]+`)
)

type extractor func(raw string) (Identifier, bool)

// extractors run in priority order, the first match wins.
var extractors = []extractor{
	fromFeatureID,
	fromPlaceIDMarker,
	fromDataParam,
	fromCIDParam,
	fromBarePlaceID,
}

// ExtractIdentifier classifies a maps URL. Short links yield KindNeedsExpansion,
// everything else goes through ExtractPatternIdentifier.
func ExtractIdentifier(raw string) Identifier {
	if IsShortLink(raw) {
		return Identifier{Kind: KindNeedsExpansion, Value: raw, Strategy: StrategyShortLink}
	}

	return ExtractPatternIdentifier(raw)
}

// ExtractPatternIdentifier runs only the pattern rules and never asks for expansion.
func ExtractPatternIdentifier(raw string) Identifier {
	for _, extract := range extractors {
		if id, ok := extract(raw); ok {
			return id
		}
	}

	return Identifier{Kind: KindNotFound}
}

func fromFeatureID(raw string) (Identifier, bool) {
	m := featureIDRegex.FindStringSubmatch(raw)
	if m == nil {
		return Identifier{}, false
	}

	cid, ok := FeatureIDToCID(m[1])
	if !ok {
		return Identifier{}, false
	}

	return Identifier{Kind: KindCustomerID, Value: cidPrefix + cid, Strategy: StrategyFeatureID}, true
}

func fromPlaceIDMarker(raw string) (Identifier, bool) {
	m := placeIDMarkerRegex.FindStringSubmatch(raw)
	if m == nil {
		return Identifier{}, false
	}

	return Identifier{Kind: KindPlaceID, Value: m[1], Strategy: StrategyPlaceIDMarker}, true
}

func fromDataParam(raw string) (Identifier, bool) {
	m := dataParamRegex.FindStringSubmatch(raw)
	if m == nil {
		return Identifier{}, false
	}

	return Identifier{Kind: KindPlaceID, Value: m[1], Strategy: StrategyDataParam}, true
}

func fromCIDParam(raw string) (Identifier, bool) {
	m := cidParamRegex.FindStringSubmatch(raw)
	if m == nil {
		return Identifier{}, false
	}

	return Identifier{Kind: KindCustomerID, Value: cidPrefix + m[1], Strategy: StrategyCIDParam}, true
}

func fromBarePlaceID(raw string) (Identifier, bool) {
	m := barePlaceIDRegex.FindString(raw)
	if m == "" {
		return Identifier{}, false
	}

	return Identifier{Kind: KindPlaceID, Value: m, Strategy: StrategyBarePlaceID}, true
}

var shortLinkHosts = []string{
	"goo.gl",
	"maps.app.goo.gl",
	"g.co",
	"g.page",
}

// IsShortLink reports whether raw points at one of the known maps short-link hosts.
func IsShortLink(raw string) bool {
	host := hostOf(raw)
	if host == "" {
		return false
	}

	for _, h := range shortLinkHosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}

	return false
}

// IsMapsURL reports whether raw looks like a Google Maps link of any kind.
func IsMapsURL(raw string) bool {
	if IsShortLink(raw) {
		return true
	}

	host := hostOf(raw)
	if strings.HasPrefix(host, "maps.google.") {
		return true
	}

	return strings.Contains(strings.ToLower(raw), "google.com/maps")
}

// WithScheme returns raw trimmed, with https:// prepended when it has no scheme,
// so links pasted as "maps.app.goo.gl/abc" can be requested.
func WithScheme(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" || strings.Contains(s, "://") {
		return s
	}

	return "https://" + s
}

func hostOf(raw string) string {
	s := WithScheme(raw)
	if s == "" {
		return ""
	}

	u, err := url.Parse(s)
	if err != nil {
		return ""
	}

	return strings.ToLower(u.Hostname())
}

var (
	placeNameRegex  = regexp.MustCompile(`/place/([^/@?]+)`)
	queryParamRegex = regexp.MustCompile(`[?&]q=([^&]+)`)
)

// ExtractPlaceName returns the human readable place name carried by a maps URL,
// taken from the /place/<name> segment or, failing that, the q parameter.
func ExtractPlaceName(raw string) string {
	if m := placeNameRegex.FindStringSubmatch(raw); m != nil {
		if name := decodeComponent(m[1]); name != "" {
			return name
		}
	}

	if m := queryParamRegex.FindStringSubmatch(raw); m != nil {
		name, _, _ := strings.Cut(decodeComponent(m[1]), " - ")

		return strings.TrimSpace(name)
	}

	return ""
}

func decodeComponent(s string) string {
	s = strings.ReplaceAll(s, "+", " ")

	if decoded, err := url.PathUnescape(s); err == nil {
		s = decoded
	}

	return strings.TrimSpace(s)
}
