package domain

// Location is a WGS84 coordinate pair.
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Place is one point of interest returned by the places provider.
// Only ID is carried into the review stage; everything else is display data.
type Place struct {
	ID       string   `json:"place_id"`
	Name     string   `json:"name"`
	Rating   *float64 `json:"rating,omitempty"`
	Location Location `json:"location"`
}

type SearchQuery struct {
	Center Location
	Radius int      // meters
	Types  []string // optional category filter
}

// SearchPage is one decoded provider response.
type SearchPage struct {
	Places        []Place
	HasResults    bool // the "results" field was present in the payload
	NextPageToken string
	Status        string
	ErrorMessage  string
	Raw           []byte // response body as received
}
