package places

import "github.com/coffeed/coffeed-admin/gmaps"

// Circle biases a text search towards an area.
type Circle struct {
	Center       gmaps.GeoPoint
	RadiusMeters float64
}

// Candidate is a search hit.
type Candidate struct {
	PlaceID          string         `json:"placeId"`
	Name             string         `json:"name"`
	FormattedAddress string         `json:"formattedAddress,omitempty"`
	Location         gmaps.GeoPoint `json:"location"`
}

// PlaceDetails is the subset of the details response the importer needs.
type PlaceDetails struct {
	PlaceID                  string
	Name                     string
	FormattedAddress         string
	FormattedPhoneNumber     string
	InternationalPhoneNumber string
	Website                  string
	URL                      string
	Location                 gmaps.GeoPoint
	OpeningHours             *OpeningHours
	Photos                   []Photo
	Rating                   float64
	UserRatingsTotal         int
	Reviews                  []Review
	Types                    []string
}

type OpeningHours struct {
	Periods     []Period `json:"periods"`
	WeekdayText []string `json:"weekday_text"`
}

// Period is one opening interval. Close is nil for places open around the clock.
type Period struct {
	Open  DayTime  `json:"open"`
	Close *DayTime `json:"close,omitempty"`
}

// DayTime is a day index (0 = Sunday) and an "HHMM" time.
type DayTime struct {
	Day  int    `json:"day"`
	Time string `json:"time"`
}

type Photo struct {
	Reference string `json:"photo_reference"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
}

type Review struct {
	AuthorName string `json:"authorName"`
	Rating     int    `json:"rating"`
	Text       string `json:"text"`
}

// wire types of the legacy JSON web services

type geometry struct {
	Location struct {
		Lat float64 `json:"lat"`
		Lng float64 `json:"lng"`
	} `json:"location"`
}

func (g geometry) point() gmaps.GeoPoint {
	return gmaps.GeoPoint{Lat: g.Location.Lat, Lng: g.Location.Lng}
}

type placeResult struct {
	PlaceID                  string        `json:"place_id"`
	Name                     string        `json:"name"`
	FormattedAddress         string        `json:"formatted_address"`
	Vicinity                 string        `json:"vicinity"`
	FormattedPhoneNumber     string        `json:"formatted_phone_number"`
	InternationalPhoneNumber string        `json:"international_phone_number"`
	Website                  string        `json:"website"`
	URL                      string        `json:"url"`
	Geometry                 geometry      `json:"geometry"`
	OpeningHours             *OpeningHours `json:"opening_hours"`
	Photos                   []Photo       `json:"photos"`
	Rating                   float64       `json:"rating"`
	UserRatingsTotal         int           `json:"user_ratings_total"`
	Reviews                  []struct {
		AuthorName string `json:"author_name"`
		Rating     int    `json:"rating"`
		Text       string `json:"text"`
	} `json:"reviews"`
	Types []string `json:"types"`
}

func (p *placeResult) candidate() Candidate {
	address := p.FormattedAddress
	if address == "" {
		address = p.Vicinity
	}

	return Candidate{
		PlaceID:          p.PlaceID,
		Name:             p.Name,
		FormattedAddress: address,
		Location:         p.Geometry.point(),
	}
}

func (p *placeResult) details() *PlaceDetails {
	ans := PlaceDetails{
		PlaceID:                  p.PlaceID,
		Name:                     p.Name,
		FormattedAddress:         p.FormattedAddress,
		FormattedPhoneNumber:     p.FormattedPhoneNumber,
		InternationalPhoneNumber: p.InternationalPhoneNumber,
		Website:                  p.Website,
		URL:                      p.URL,
		Location:                 p.Geometry.point(),
		OpeningHours:             p.OpeningHours,
		Photos:                   p.Photos,
		Rating:                   p.Rating,
		UserRatingsTotal:         p.UserRatingsTotal,
		Types:                    p.Types,
	}

	for _, r := range p.Reviews {
		ans.Reviews = append(ans.Reviews, Review{AuthorName: r.AuthorName, Rating: r.Rating, Text: r.Text})
	}

	return &ans
}

type searchResponse struct {
	Status       string        `json:"status"`
	ErrorMessage string        `json:"error_message"`
	Results      []placeResult `json:"results"`
	Candidates   []placeResult `json:"candidates"`
}

type detailsResponse struct {
	Status       string      `json:"status"`
	ErrorMessage string      `json:"error_message"`
	Result       placeResult `json:"result"`
}
