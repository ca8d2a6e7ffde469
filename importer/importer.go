// Package importer turns a Google Maps link into a coffee shop ready for the
// dashboard form, and optionally stores it.
package importer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/coffeed/coffeed-admin/description"
	"github.com/coffeed/coffeed-admin/gmaps"
	"github.com/coffeed/coffeed-admin/metrics"
	"github.com/coffeed/coffeed-admin/models"
	"github.com/coffeed/coffeed-admin/resolver"
	"github.com/coffeed/coffeed-admin/tlmt"
	"github.com/coffeed/coffeed-admin/tlmt/gonoop"
)

const (
	photoKeyPrefix = "coffee-shops/"
	maxPhotoBytes  = 10 << 20
)

var (
	ErrInvalidURL             = errors.New("invalid Google Maps URL")
	ErrPersistenceUnavailable = errors.New("shop persistence is not configured")
)

type PlaceResolver interface {
	Resolve(ctx context.Context, rawURL string) (*resolver.ResolvedPlace, error)
}

type Describer interface {
	Describe(ctx context.Context, info description.ShopInfo) string
}

type ObjectStore interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader) (string, error)
}

type ShopStore interface {
	CreateShop(ctx context.Context, shop *models.ImportedShop) (string, error)
}

// Options control a single import.
type Options struct {
	Persist     bool
	RequestedBy string
}

type Importer struct {
	resolver   PlaceResolver
	describer  Describer
	objects    ObjectStore
	shops      ShopStore
	httpClient *http.Client
	telemetry  tlmt.Telemetry
	logger     *zap.Logger
}

type Option func(*Importer)

func WithObjectStore(store ObjectStore) Option {
	return func(im *Importer) {
		im.objects = store
	}
}

func WithShopStore(store ShopStore) Option {
	return func(im *Importer) {
		im.shops = store
	}
}

func WithHTTPClient(client *http.Client) Option {
	return func(im *Importer) {
		im.httpClient = client
	}
}

func WithTelemetry(t tlmt.Telemetry) Option {
	return func(im *Importer) {
		im.telemetry = t
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(im *Importer) {
		im.logger = logger
	}
}

func New(res PlaceResolver, describer Describer, opts ...Option) *Importer {
	im := &Importer{
		resolver:  res,
		describer: describer,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		telemetry: gonoop.New(),
		logger:    zap.NewNop(),
	}

	for _, opt := range opts {
		opt(im)
	}

	return im
}

// CanPersist reports whether imports can be stored.
func (im *Importer) CanPersist() bool {
	return im.shops != nil
}

// Import resolves rawURL and builds the shop payload. With opts.Persist the
// shop is written to the repository and its id is set.
func (im *Importer) Import(ctx context.Context, rawURL string, opts Options) (shop *models.ImportedShop, err error) {
	t0 := time.Now().UTC()
	strategy := ""

	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = outcomeOf(err)
		}

		metrics.ShopImports.WithLabelValues(outcome).Inc()

		params := map[string]any{
			"strategy":  strategy,
			"outcome":   outcome,
			"persisted": shop != nil && shop.ID != "",
			"duration":  time.Now().UTC().Sub(t0).String(),
		}

		_ = im.telemetry.Send(ctx, tlmt.NewEvent("place_import", params))
	}()

	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" || !gmaps.IsMapsURL(rawURL) {
		return nil, ErrInvalidURL
	}

	if opts.Persist && im.shops == nil {
		return nil, ErrPersistenceUnavailable
	}

	place, err := im.resolver.Resolve(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	strategy = place.Strategy

	shop = &models.ImportedShop{
		Name:          place.Name,
		Description:   im.describer.Describe(ctx, shopInfo(place)),
		Phone:         place.Phone,
		Website:       place.Website,
		GoogleMapsURL: place.GoogleMapsURL,
		PlaceID:       place.PlaceID,
		PlusCode:      place.PlusCode,
		Address:       place.Address,
		Schedule:      place.Schedule,
		Active:        true,
	}

	if shop.GoogleMapsURL == "" {
		shop.GoogleMapsURL = rawURL
	}

	// the Places photo URL carries the API key, so only a stored copy is exposed
	if place.ImageURL != "" && im.objects != nil {
		stored, err := im.copyPhoto(ctx, place.ImageURL)
		if err != nil {
			im.logger.Warn("photo copy failed", zap.String("place_id", place.PlaceID), zap.Error(err))
		} else {
			shop.ImageURL = stored
		}
	}

	if shop.ImageURL == "" && len(place.PhotoReferences) > 0 {
		shop.PhotoReference = place.PhotoReferences[0]
	}

	if opts.Persist {
		id, err := im.shops.CreateShop(ctx, shop)
		if err != nil {
			return nil, fmt.Errorf("failed to store shop: %w", err)
		}

		shop.ID = id
	}

	im.logger.Info("shop imported",
		zap.String("place_id", shop.PlaceID),
		zap.String("name", shop.Name),
		zap.String("strategy", strategy),
		zap.Bool("persisted", shop.ID != ""),
		zap.String("requested_by", opts.RequestedBy),
	)

	return shop, nil
}

// copyPhoto downloads the Google photo and stores it in the object store.
func (im *Importer) copyPhoto(ctx context.Context, photoURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, photoURL, http.NoBody)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := im.httpClient.Do(req)
	if err != nil {
		return "", errors.New("failed to download photo")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("photo download failed with status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxPhotoBytes+1))
	if err != nil {
		return "", fmt.Errorf("failed to read photo: %w", err)
	}

	if len(data) > maxPhotoBytes {
		return "", fmt.Errorf("photo exceeds %d bytes", maxPhotoBytes)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}

	key := photoKeyPrefix + uuid.NewString() + extensionFor(contentType)

	return im.objects.Upload(ctx, key, contentType, bytes.NewReader(data))
}

func extensionFor(contentType string) string {
	mediaType, _, _ := strings.Cut(contentType, ";")

	switch strings.TrimSpace(strings.ToLower(mediaType)) {
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ".jpg"
	}
}

func shopInfo(place *resolver.ResolvedPlace) description.ShopInfo {
	info := description.ShopInfo{
		Name:    place.Name,
		Address: place.FormattedAddress,
		Rating:  place.Rating,
	}

	for _, r := range place.Reviews {
		info.Reviews = append(info.Reviews, description.Review{Rating: r.Rating, Text: r.Text})
	}

	return info
}

func outcomeOf(err error) string {
	switch {
	case errors.Is(err, ErrInvalidURL):
		return "invalid_url"
	case errors.Is(err, ErrPersistenceUnavailable):
		return "persistence_unavailable"
	}

	var resErr *resolver.ResolutionError
	if errors.As(err, &resErr) {
		return resolver.KindName(err)
	}

	return "error"
}
