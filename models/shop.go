package models

// APIError is the body returned by the web API on failure.
type APIError struct {
	Code    int    `json:"code"`
	Kind    string `json:"kind,omitempty"`
	Message string `json:"message"`
}

// Address is the structured form of a formatted address.
type Address struct {
	Street     string  `json:"street"`
	City       string  `json:"city"`
	State      string  `json:"state"`
	Country    string  `json:"country"`
	PostalCode string  `json:"postalCode"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
}

// DaySchedule is the opening time of a single weekday.
// DayOfWeek uses Sunday = 0, Monday = 1 ... Saturday = 6.
type DaySchedule struct {
	DayOfWeek int    `json:"dayOfWeek"`
	OpenTime  string `json:"openTime"`
	CloseTime string `json:"closeTime"`
	IsClosed  bool   `json:"isClosed"`
}

type ContactType string

const (
	ContactPhone ContactType = "phone"
	ContactWeb   ContactType = "web"
)

type Contact struct {
	Type  ContactType `json:"type"`
	Value string      `json:"value"`
}

// ImportedShop is the payload handed to the dashboard form after an import,
// and the unit persisted by the shop repository. ImageURL is only ever the
// object store copy; without one the Places photo is named by PhotoReference.
type ImportedShop struct {
	ID             string        `json:"id,omitempty"`
	Name           string        `json:"name"`
	Description    string        `json:"description"`
	Phone          string        `json:"phone,omitempty"`
	Website        string        `json:"website,omitempty"`
	GoogleMapsURL  string        `json:"googleMapsUrl,omitempty"`
	PlaceID        string        `json:"placeId"`
	PlusCode       string        `json:"plusCode,omitempty"`
	Address        Address       `json:"address"`
	Schedule       []DaySchedule `json:"schedule"`
	ImageURL       string        `json:"imageUrl,omitempty"`
	PhotoReference string        `json:"photoReference,omitempty"`
	Active         bool          `json:"active"`
}

// Contacts returns the contact rows derived from the phone and website.
func (s *ImportedShop) Contacts() []Contact {
	var contacts []Contact

	if s.Phone != "" {
		contacts = append(contacts, Contact{Type: ContactPhone, Value: s.Phone})
	}

	if s.Website != "" {
		contacts = append(contacts, Contact{Type: ContactWeb, Value: s.Website})
	}

	return contacts
}
