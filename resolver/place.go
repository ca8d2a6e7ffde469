package resolver

import (
	"github.com/coffeed/coffeed-admin/gmaps"
	"github.com/coffeed/coffeed-admin/models"
	"github.com/coffeed/coffeed-admin/places"
)

// ResolvedPlace is an identified place with post-processed details.
type ResolvedPlace struct {
	PlaceID          string               `json:"placeId"`
	DataID           string               `json:"dataId,omitempty"`
	Strategy         string               `json:"strategy"`
	Name             string               `json:"name"`
	FormattedAddress string               `json:"formattedAddress"`
	Address          models.Address       `json:"address"`
	Phone            string               `json:"phone,omitempty"`
	Website          string               `json:"website,omitempty"`
	GoogleMapsURL    string               `json:"googleMapsUrl,omitempty"`
	Location         gmaps.GeoPoint       `json:"location"`
	PlusCode         string               `json:"plusCode,omitempty"`
	Rating           float64              `json:"rating,omitempty"`
	RatingsTotal     int                  `json:"ratingsTotal,omitempty"`
	Reviews          []places.Review      `json:"reviews,omitempty"`
	Types            []string             `json:"types,omitempty"`
	Schedule         []models.DaySchedule `json:"schedule"`
	PhotoReferences  []string             `json:"photoReferences,omitempty"`
	ImageURL         string               `json:"-"` // embeds the API key
}

func (r *Resolver) build(m match, d *places.PlaceDetails) *ResolvedPlace {
	placeID := d.PlaceID
	if placeID == "" {
		placeID = m.placeID
	}

	address := ParseAddress(d.FormattedAddress)
	address.Latitude = d.Location.Lat
	address.Longitude = d.Location.Lng

	phone := d.FormattedPhoneNumber
	if phone == "" {
		phone = d.InternationalPhoneNumber
	}

	p := ResolvedPlace{
		PlaceID:          placeID,
		DataID:           gmaps.ExtractDataIDFromURL(m.url),
		Strategy:         m.strategy,
		Name:             d.Name,
		FormattedAddress: d.FormattedAddress,
		Address:          address,
		Phone:            NormalizePhone(phone, r.phone),
		Website:          d.Website,
		GoogleMapsURL:    d.URL,
		Location:         d.Location,
		PlusCode:         d.Location.PlusCode(),
		Rating:           d.Rating,
		RatingsTotal:     d.UserRatingsTotal,
		Reviews:          d.Reviews,
		Types:            d.Types,
		Schedule:         ParseOpeningHours(d.OpeningHours),
	}

	for _, photo := range d.Photos {
		if photo.Reference != "" {
			p.PhotoReferences = append(p.PhotoReferences, photo.Reference)
		}
	}

	if len(p.PhotoReferences) > 0 && r.services.Photos != nil {
		p.ImageURL = r.services.Photos.PhotoURL(p.PhotoReferences[0], r.photoMaxWidth)
	}

	return &p
}
