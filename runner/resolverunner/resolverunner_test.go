package resolverunner

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coffeed/coffeed-admin/importer"
	"github.com/coffeed/coffeed-admin/models"
	"github.com/coffeed/coffeed-admin/resolver"
)

type fakeImporter struct{}

func (fakeImporter) Import(_ context.Context, rawURL string, _ importer.Options) (*models.ImportedShop, error) {
	switch rawURL {
	case "https://example.com":
		return nil, importer.ErrInvalidURL
	case "https://maps.app.goo.gl/missing":
		return nil, &resolver.ResolutionError{Kind: resolver.ErrNoIdentifierFound, URL: rawURL}
	default:
		return &models.ImportedShop{Name: "Café Tres", GoogleMapsURL: rawURL}, nil
	}
}

func TestParseURLs(t *testing.T) {
	in := strings.NewReader("# shops\nhttps://maps.app.goo.gl/a\n\n  https://maps.app.goo.gl/b  \n")

	urls, err := parseURLs(in)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://maps.app.goo.gl/a", "https://maps.app.goo.gl/b"}, urls)
}

func TestProcess(t *testing.T) {
	urls := []string{
		"https://maps.app.goo.gl/a",
		"https://example.com",
		"https://maps.app.goo.gl/missing",
	}

	var buf bytes.Buffer

	failed, err := process(context.Background(), fakeImporter{}, urls, importer.Options{}, &buf)
	require.NoError(t, err)
	assert.Equal(t, 2, failed)

	results := map[string]Result{}

	scanner := bufio.NewScanner(&buf)
	for scanner.Scan() {
		var r Result
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &r))

		results[r.URL] = r
	}

	require.Len(t, results, 3)

	ok := results["https://maps.app.goo.gl/a"]
	require.NotNil(t, ok.Shop)
	assert.Equal(t, "Café Tres", ok.Shop.Name)
	assert.Nil(t, ok.Error)

	require.NotNil(t, results["https://example.com"].Error)
	assert.Equal(t, "invalid_url", results["https://example.com"].Error.Kind)

	require.NotNil(t, results["https://maps.app.goo.gl/missing"].Error)
	assert.Equal(t, "no_identifier_found", results["https://maps.app.goo.gl/missing"].Error.Kind)
}
