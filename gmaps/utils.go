package gmaps

import (
	"regexp"
	"strconv"
	"strings"
)

var dataIDRegex = regexp.MustCompile(`1s(0x[a-f0-9]+:0x[a-f0-9]+)`)

// ExtractDataIDFromURL extracts the DataID (0x[hex1]:0x[hex2]) from Google Maps URLs.
//
// Pattern: /maps/place/Name/data=!4m7!3m6!1s0x[hex1]:0x[hex2]!...
// Returns: "0x[hex1]:0x[hex2]" or empty string if not found
func ExtractDataIDFromURL(url string) string {
	matches := dataIDRegex.FindStringSubmatch(url)
	if len(matches) >= 2 {
		return matches[1]
	}

	return ""
}

// FeatureIDToCID converts a feature id or DataID ("0x<hex1>:0x<hex2>") to the
// decimal customer id, which is the second hex part read as an unsigned number.
//
// Example: "0x14e732fd76f0d90d:0xe5415928d6702b47" -> "16519582940102929223"
func FeatureIDToCID(featureID string) (string, bool) {
	_, second, ok := strings.Cut(featureID, ":")
	if !ok {
		return "", false
	}

	hex := strings.TrimPrefix(strings.TrimPrefix(second, "0x"), "0X")
	if hex == "" {
		return "", false
	}

	n, err := strconv.ParseUint(hex, 16, 64)
	if err != nil {
		return "", false
	}

	return strconv.FormatUint(n, 10), true
}
