package resolver

import (
	"regexp"
	"strings"

	"github.com/coffeed/coffeed-admin/models"
)

var postalPrefixRegex = regexp.MustCompile(`^(\d+)\s+`)

// ParseAddress splits a comma separated formatted address such as
// "Av. Providencia 123, 7500000 Providencia, Región Metropolitana, Chile".
// The postal code prefix of the city segment is moved to PostalCode.
func ParseAddress(formatted string) models.Address {
	if strings.TrimSpace(formatted) == "" {
		return models.Address{}
	}

	parts := strings.Split(formatted, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	at := func(i int) string {
		if i < len(parts) {
			return parts[i]
		}

		return ""
	}

	city := at(1)
	postal := ""

	if m := postalPrefixRegex.FindStringSubmatch(city); m != nil {
		postal = m[1]
		city = city[len(m[0]):]
	}

	return models.Address{
		Street:     at(0),
		City:       city,
		State:      at(2),
		Country:    parts[len(parts)-1],
		PostalCode: postal,
	}
}
