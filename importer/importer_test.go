package importer_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/coffeed/coffeed-admin/description"
	"github.com/coffeed/coffeed-admin/importer"
	"github.com/coffeed/coffeed-admin/models"
	"github.com/coffeed/coffeed-admin/places"
	"github.com/coffeed/coffeed-admin/resolver"
	"github.com/coffeed/coffeed-admin/tlmt"
)

type fakeResolver struct {
	place *resolver.ResolvedPlace
	err   error
	calls int
}

func (f *fakeResolver) Resolve(context.Context, string) (*resolver.ResolvedPlace, error) {
	f.calls++

	return f.place, f.err
}

type fakeDescriber struct {
	got description.ShopInfo
}

func (f *fakeDescriber) Describe(_ context.Context, info description.ShopInfo) string {
	f.got = info

	return "Una cafetería."
}

type fakeObjects struct {
	key         string
	contentType string
	body        string
	err         error
}

func (f *fakeObjects) Upload(_ context.Context, key, contentType string, body io.Reader) (string, error) {
	if f.err != nil {
		return "", f.err
	}

	data, _ := io.ReadAll(body)
	f.key, f.contentType, f.body = key, contentType, string(data)

	return "https://cdn.test/" + key, nil
}

type fakeShops struct {
	stored *models.ImportedShop
	err    error
}

func (f *fakeShops) CreateShop(_ context.Context, shop *models.ImportedShop) (string, error) {
	if f.err != nil {
		return "", f.err
	}

	f.stored = shop

	return "shop-1", nil
}

type recordingTelemetry struct {
	mu     sync.Mutex
	events []tlmt.Event
}

func (r *recordingTelemetry) Send(_ context.Context, ev tlmt.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, ev)

	return nil
}

func (r *recordingTelemetry) Close() error { return nil }

func resolvedPlace(imageURL string) *resolver.ResolvedPlace {
	return &resolver.ResolvedPlace{
		PlaceID:          "ChIJcafe",
		Strategy:         "place_id_marker",
		Name:             "Café Tres",
		FormattedAddress: "Av. Providencia 123, 7500000 Providencia, Región Metropolitana, Chile",
		Address:          models.Address{Street: "Av. Providencia 123", City: "Providencia", Country: "Chile"},
		Phone:            "+56912345678",
		Website:          "https://cafetres.cl",
		Rating:           4.5,
		Reviews:          []places.Review{{Rating: 5, Text: "rico"}},
		Schedule:         resolver.ParseOpeningHours(nil),
		PhotoReferences:  []string{"ref"},
		ImageURL:         imageURL,
	}
}

const mapsURL = "https://www.google.com/maps/place/Cafe/data=!1sChIJcafe"

func TestImportRejectsInvalidURL(t *testing.T) {
	res := &fakeResolver{}
	im := importer.New(res, &fakeDescriber{})

	for _, raw := range []string{"", "  ", "https://example.com/cafe", "cafe tres"} {
		_, err := im.Import(context.Background(), raw, importer.Options{})
		require.ErrorIs(t, err, importer.ErrInvalidURL)
	}

	require.Zero(t, res.calls)
}

func TestImportRequiresStoreToPersist(t *testing.T) {
	im := importer.New(&fakeResolver{place: resolvedPlace("")}, &fakeDescriber{})

	_, err := im.Import(context.Background(), mapsURL, importer.Options{Persist: true})
	require.ErrorIs(t, err, importer.ErrPersistenceUnavailable)
	require.False(t, im.CanPersist())
}

func TestImportBuildsShop(t *testing.T) {
	desc := &fakeDescriber{}
	tel := &recordingTelemetry{}
	im := importer.New(&fakeResolver{place: resolvedPlace("")}, desc,
		importer.WithTelemetry(tel),
		importer.WithLogger(zaptest.NewLogger(t)),
	)

	shop, err := im.Import(context.Background(), mapsURL, importer.Options{})
	require.NoError(t, err)

	require.Equal(t, "Café Tres", shop.Name)
	require.Equal(t, "Una cafetería.", shop.Description)
	require.Equal(t, "ChIJcafe", shop.PlaceID)
	require.Equal(t, mapsURL, shop.GoogleMapsURL)
	require.Len(t, shop.Schedule, 7)
	require.Empty(t, shop.ID)
	require.True(t, shop.Active)

	require.Equal(t, "Café Tres", desc.got.Name)
	require.Equal(t, 4.5, desc.got.Rating)
	require.Equal(t, []description.Review{{Rating: 5, Text: "rico"}}, desc.got.Reviews)

	require.Len(t, tel.events, 1)
	require.Equal(t, "place_import", tel.events[0].Name)
	require.Equal(t, "ok", tel.events[0].Properties["outcome"])
	require.Equal(t, "place_id_marker", tel.events[0].Properties["strategy"])
}

func TestImportCopiesPhoto(t *testing.T) {
	photos := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "ref", r.URL.Query().Get("photo_reference"))
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("png-bytes"))
	}))
	defer photos.Close()

	objects := &fakeObjects{}
	im := importer.New(&fakeResolver{place: resolvedPlace(photos.URL + "/photo?photo_reference=ref&key=secret")}, &fakeDescriber{},
		importer.WithObjectStore(objects),
	)

	shop, err := im.Import(context.Background(), mapsURL, importer.Options{})
	require.NoError(t, err)

	require.True(t, strings.HasPrefix(objects.key, "coffee-shops/"))
	require.True(t, strings.HasSuffix(objects.key, ".png"))
	require.Equal(t, "image/png", objects.contentType)
	require.Equal(t, "png-bytes", objects.body)
	require.Equal(t, "https://cdn.test/"+objects.key, shop.ImageURL)
	require.Empty(t, shop.PhotoReference)
}

func TestImportPhotoFailureDoesNotFail(t *testing.T) {
	photos := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer photos.Close()

	im := importer.New(&fakeResolver{place: resolvedPlace(photos.URL + "/photo?key=secret")}, &fakeDescriber{},
		importer.WithObjectStore(&fakeObjects{}),
	)

	shop, err := im.Import(context.Background(), mapsURL, importer.Options{})
	require.NoError(t, err)
	require.Empty(t, shop.ImageURL)
	require.Equal(t, "ref", shop.PhotoReference)
}

func TestImportWithoutObjectStoreHidesPhotoURL(t *testing.T) {
	im := importer.New(&fakeResolver{place: resolvedPlace("https://maps.googleapis.com/maps/api/place/photo?photo_reference=ref&key=secret")}, &fakeDescriber{})

	shop, err := im.Import(context.Background(), mapsURL, importer.Options{})
	require.NoError(t, err)
	require.Empty(t, shop.ImageURL)
	require.Equal(t, "ref", shop.PhotoReference)

	data, err := json.Marshal(shop)
	require.NoError(t, err)
	require.NotContains(t, string(data), "secret")
}

func TestImportPersists(t *testing.T) {
	shops := &fakeShops{}
	im := importer.New(&fakeResolver{place: resolvedPlace("")}, &fakeDescriber{}, importer.WithShopStore(shops))

	shop, err := im.Import(context.Background(), mapsURL, importer.Options{Persist: true, RequestedBy: "admin@coffeed.cl"})
	require.NoError(t, err)
	require.Equal(t, "shop-1", shop.ID)
	require.Same(t, shop, shops.stored)
}

func TestImportPersistError(t *testing.T) {
	im := importer.New(&fakeResolver{place: resolvedPlace("")}, &fakeDescriber{},
		importer.WithShopStore(&fakeShops{err: errors.New("duplicate key")}),
	)

	_, err := im.Import(context.Background(), mapsURL, importer.Options{Persist: true})
	require.ErrorContains(t, err, "duplicate key")
}

func TestImportResolutionError(t *testing.T) {
	tel := &recordingTelemetry{}
	resErr := &resolver.ResolutionError{Kind: resolver.ErrNoIdentifierFound, URL: mapsURL}
	im := importer.New(&fakeResolver{err: resErr}, &fakeDescriber{}, importer.WithTelemetry(tel))

	_, err := im.Import(context.Background(), mapsURL, importer.Options{})
	require.ErrorIs(t, err, resolver.ErrNoIdentifierFound)

	require.Len(t, tel.events, 1)
	require.Equal(t, "no_identifier_found", tel.events[0].Properties["outcome"])
}
