package places

import "mapigator/internal/domain"

// Wire format of the Nearby Search response. Only the fields we surface are
// decoded; Results stays nil when the field is absent from the payload.
type nearbyResponse struct {
	Results       []placeResult `json:"results"`
	NextPageToken string        `json:"next_page_token"`
	Status        string        `json:"status"`
	ErrorMessage  string        `json:"error_message"`
}

type placeResult struct {
	PlaceID  string   `json:"place_id"`
	Name     string   `json:"name"`
	Rating   *float64 `json:"rating"`
	Geometry struct {
		Location struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"location"`
	} `json:"geometry"`
}

func mapPage(r nearbyResponse) domain.SearchPage {
	page := domain.SearchPage{
		HasResults:    r.Results != nil,
		NextPageToken: r.NextPageToken,
		Status:        r.Status,
		ErrorMessage:  r.ErrorMessage,
	}
	if len(r.Results) > 0 {
		page.Places = make([]domain.Place, 0, len(r.Results))
		for _, p := range r.Results {
			page.Places = append(page.Places, mapPlace(p))
		}
	}
	return page
}

func mapPlace(p placeResult) domain.Place {
	return domain.Place{
		ID:     p.PlaceID,
		Name:   p.Name,
		Rating: p.Rating,
		Location: domain.Location{
			Lat: p.Geometry.Location.Lat,
			Lng: p.Geometry.Location.Lng,
		},
	}
}
