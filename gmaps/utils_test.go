package gmaps_test

import (
	"testing"

	"github.com/coffeed/coffeed-admin/gmaps"
)

func TestExtractDataIDFromURL(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		expected string
	}{
		{
			name:     "Blue Bottle Coffee",
			url:      "https://www.google.com/maps/place/Blue+Bottle+Coffee/data=!4m7!3m6!1s0x80858098babc2d4b:0xbeedd659cc698c92!8m2!3d37.7763342!4d-122.4232375!16s%2Fm%2F03p12r2!19sChIJSy28upiAhYARkoxpzFnW7b4?authuser=0&hl=en&rclk=1",
			expected: "0x80858098babc2d4b:0xbeedd659cc698c92",
		},
		{
			name:     "Kipriakon",
			url:      "https://www.google.com/maps/place/Kipriakon/data=!4m2!3m1!1s0x14e732fd76f0d90d:0xe5415928d6702b47!10m1!1e1",
			expected: "0x14e732fd76f0d90d:0xe5415928d6702b47",
		},
		{
			name:     "URL without DataID pattern",
			url:      "https://www.google.com/maps/search/coffee+shop/@37.7749,-122.4194,15z",
			expected: "",
		},
		{
			name:     "Empty URL",
			url:      "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := gmaps.ExtractDataIDFromURL(tt.url)
			if result != tt.expected {
				t.Errorf("ExtractDataIDFromURL(%q) = %q, expected %q", tt.url, result, tt.expected)
			}
		})
	}
}

func TestFeatureIDToCID(t *testing.T) {
	tests := []struct {
		name      string
		featureID string
		expected  string
		ok        bool
	}{
		{
			name:      "small value",
			featureID: "0x1:0xFF",
			expected:  "255",
			ok:        true,
		},
		{
			name:      "full width value",
			featureID: "0x14e732fd76f0d90d:0xe5415928d6702b47",
			expected:  "16519582940102929223",
			ok:        true,
		},
		{
			name:      "overflow",
			featureID: "0x1:0x1ffffffffffffffff",
			ok:        false,
		},
		{
			name:      "missing separator",
			featureID: "0x1",
			ok:        false,
		},
		{
			name:      "empty second part",
			featureID: "0x1:0x",
			ok:        false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, ok := gmaps.FeatureIDToCID(tt.featureID)
			if ok != tt.ok {
				t.Fatalf("FeatureIDToCID(%q) ok = %v, expected %v", tt.featureID, ok, tt.ok)
			}

			if result != tt.expected {
				t.Errorf("FeatureIDToCID(%q) = %q, expected %q", tt.featureID, result, tt.expected)
			}
		})
	}
}
