package places

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/coffeed/coffeed-admin/gmaps"
	"github.com/coffeed/coffeed-admin/metrics"
)

const (
	defaultBaseURL  = "https://maps.googleapis.com/maps/api/place"
	defaultLanguage = "es"
)

var detailsFields = strings.Join([]string{
	"place_id",
	"name",
	"formatted_address",
	"formatted_phone_number",
	"international_phone_number",
	"website",
	"url",
	"geometry",
	"opening_hours",
	"photos",
	"rating",
	"user_ratings_total",
	"reviews",
	"types",
}, ",")

// Client talks to the Google Places JSON web services.
type Client struct {
	apiKey     string
	baseURL    string
	language   string
	httpClient *http.Client
	logger     *zap.Logger
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func WithLanguage(language string) Option {
	return func(c *Client) {
		c.language = language
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a Places client for the given API key.
func NewClient(apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	c := &Client{
		apiKey:   apiKey,
		baseURL:  defaultBaseURL,
		language: defaultLanguage,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: zap.NewNop(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// NearbySearch lists places within radiusMeters of point. An empty keyword
// searches without a name filter. No match yields an empty slice.
func (c *Client) NearbySearch(ctx context.Context, point gmaps.GeoPoint, radiusMeters float64, keyword string) ([]Candidate, error) {
	params := url.Values{}
	params.Set("location", point.String())
	params.Set("radius", strconv.FormatFloat(radiusMeters, 'f', 0, 64))

	if keyword != "" {
		params.Set("keyword", keyword)
	}

	metrics.PlaceSearchRequests.WithLabelValues("nearby", params.Get("radius")).Inc()

	var resp searchResponse
	if err := c.get(ctx, "/nearbysearch/json", params, &resp); err != nil {
		return nil, fmt.Errorf("nearby search: %w", err)
	}

	if resp.Status == "ZERO_RESULTS" {
		return nil, nil
	}

	if err := statusError(resp.Status, resp.ErrorMessage); err != nil {
		return nil, fmt.Errorf("nearby search: %w", err)
	}

	return toCandidates(resp.Results), nil
}

// TextSearch finds places matching a free-text query, optionally biased to a circle.
func (c *Client) TextSearch(ctx context.Context, query string, bias *Circle) ([]Candidate, error) {
	params := url.Values{}
	params.Set("input", query)
	params.Set("inputtype", "textquery")
	params.Set("fields", "place_id,name,formatted_address,geometry")

	radius := ""
	if bias != nil {
		radius = strconv.FormatFloat(bias.RadiusMeters, 'f', 0, 64)
		params.Set("locationbias", "circle:"+radius+"@"+bias.Center.String())
	}

	metrics.PlaceSearchRequests.WithLabelValues("text", radius).Inc()

	return c.findPlace(ctx, params)
}

// Details fetches a place by place id. "CID:<n>" identifiers are first
// looked up to obtain the place id.
func (c *Client) Details(ctx context.Context, placeID string) (*PlaceDetails, error) {
	if gmaps.IsCID(placeID) {
		resolved, err := c.placeIDForCID(ctx, gmaps.CIDNumber(placeID))
		if err != nil {
			return nil, err
		}

		placeID = resolved
	}

	params := url.Values{}
	params.Set("place_id", placeID)
	params.Set("fields", detailsFields)

	metrics.PlaceSearchRequests.WithLabelValues("details", "").Inc()

	var resp detailsResponse
	if err := c.get(ctx, "/details/json", params, &resp); err != nil {
		return nil, fmt.Errorf("place details: %w", err)
	}

	if err := statusError(resp.Status, resp.ErrorMessage); err != nil {
		return nil, fmt.Errorf("place details: %w", err)
	}

	details := resp.Result.details()
	if details.PlaceID == "" {
		details.PlaceID = placeID
	}

	return details, nil
}

// PhotoURL builds a fetchable URL for a photo reference.
// The URL carries the API key, so it must not be logged.
func (c *Client) PhotoURL(reference string, maxWidth int) string {
	params := url.Values{}
	params.Set("maxwidth", strconv.Itoa(maxWidth))
	params.Set("photo_reference", reference)
	params.Set("key", c.apiKey)

	return c.baseURL + "/photo?" + params.Encode()
}

func (c *Client) placeIDForCID(ctx context.Context, cid string) (string, error) {
	params := url.Values{}
	params.Set("input", cid)
	params.Set("inputtype", "textquery")
	params.Set("fields", "place_id")

	metrics.PlaceSearchRequests.WithLabelValues("cid", "").Inc()

	candidates, err := c.findPlace(ctx, params)
	if err != nil {
		return "", fmt.Errorf("cid lookup: %w", err)
	}

	for i := range candidates {
		if candidates[i].PlaceID != "" {
			return candidates[i].PlaceID, nil
		}
	}

	return "", fmt.Errorf("cid lookup: %w: cid %s", ErrNotFound, cid)
}

func (c *Client) findPlace(ctx context.Context, params url.Values) ([]Candidate, error) {
	var resp searchResponse
	if err := c.get(ctx, "/findplacefromtext/json", params, &resp); err != nil {
		return nil, fmt.Errorf("find place: %w", err)
	}

	if resp.Status == "ZERO_RESULTS" {
		return nil, nil
	}

	if err := statusError(resp.Status, resp.ErrorMessage); err != nil {
		return nil, fmt.Errorf("find place: %w", err)
	}

	return toCandidates(resp.Candidates), nil
}

func (c *Client) get(ctx context.Context, endpoint string, params url.Values, out any) error {
	if c.language != "" {
		params.Set("language", c.language)
	}

	c.logger.Debug("places request", zap.String("endpoint", endpoint))

	params.Set("key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint+"?"+params.Encode(), http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// the url.Error message embeds the request URL and therefore the key
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}

		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: http status %d", ErrUnknown, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	return nil
}

func toCandidates(results []placeResult) []Candidate {
	ans := make([]Candidate, 0, len(results))
	for i := range results {
		ans = append(ans, results[i].candidate())
	}

	return ans
}
