package gmaps

import (
	"math"
	"regexp"
	"strconv"

	olc "github.com/google/open-location-code/go"
)

// GeoPoint is a WGS84 latitude/longitude pair.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (p GeoPoint) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

func (p GeoPoint) IsZero() bool {
	return p.Lat == 0 && p.Lng == 0
}

// String renders the point as "lat,lng", the form the Places API expects.
func (p GeoPoint) String() string {
	return strconv.FormatFloat(p.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(p.Lng, 'f', -1, 64)
}

// DistanceTo returns the great-circle distance in meters.
func (p GeoPoint) DistanceTo(o GeoPoint) float64 {
	const R = 6371e3 // earth radius in meters

	plat := p.Lat * math.Pi / 180
	plng := p.Lng * math.Pi / 180

	olat := o.Lat * math.Pi / 180
	olng := o.Lng * math.Pi / 180

	dlat := olat - plat
	dlng := olng - plng

	a := math.Sin(dlat/2)*math.Sin(dlat/2) +
		math.Cos(plat)*math.Cos(olat)*
			math.Sin(dlng/2)*math.Sin(dlng/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return R * c
}

// PlusCode returns the 10 digit Open Location Code of the point.
func (p GeoPoint) PlusCode() string {
	if !p.Valid() || p.IsZero() {
		return ""
	}

	return olc.Encode(p.Lat, p.Lng, 10)
}

// coordinate patterns in priority order: the place pin first, the viewport last.
var geoPointPatterns = []*regexp.Regexp{
	regexp.MustCompile(`!8m2!3d(-?\d+(?:\.\d+)?)!4d(-?\d+(?:\.\d+)?)`),
	regexp.MustCompile(`!3d(-?\d+(?:\.\d+)?)!4d(-?\d+(?:\.\d+)?)`),
	regexp.MustCompile(`@(-?\d+(?:\.\d+)?),(-?\d+(?:\.\d+)?)`),
	regexp.MustCompile(`[?&]ll=(-?\d+(?:\.\d+)?),(-?\d+(?:\.\d+)?)`),
	regexp.MustCompile(`[?&]center=(-?\d+(?:\.\d+)?),(-?\d+(?:\.\d+)?)`),
}

// ExtractGeoPoint returns the first valid coordinate pair embedded in a maps URL.
func ExtractGeoPoint(raw string) (GeoPoint, bool) {
	for _, re := range geoPointPatterns {
		m := re.FindStringSubmatch(raw)
		if m == nil {
			continue
		}

		lat, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}

		lng, err := strconv.ParseFloat(m[2], 64)
		if err != nil {
			continue
		}

		p := GeoPoint{Lat: lat, Lng: lng}
		if p.Valid() {
			return p, true
		}
	}

	return GeoPoint{}, false
}
