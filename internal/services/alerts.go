package services

import "safeshe-backend-go/internal/models"

// NearbyAlerts returns demo alerts placed around (lat, lng). Nothing is
// read from or written to the store.
func NearbyAlerts(lat, lng float64) ([]models.AreaAlert, error) {
	if lat < -90 || lat > 90 {
		return nil, ErrBadRequest("lat must be between -90 and 90")
	}
	if lng < -180 || lng > 180 {
		return nil, ErrBadRequest("lng must be between -180 and 180")
	}
	return []models.AreaAlert{
		{
			Title:   "Well-lit route",
			Message: "Preferred street with active shops",
			Lat:     lat + 0.001,
			Lng:     lng + 0.001,
			RadiusM: 150,
			Level:   models.AlertLevelInfo,
		},
		{
			Title:   "Avoid underpass at night",
			Message: "Reports of harassment after 9pm",
			Lat:     lat - 0.0015,
			Lng:     lng - 0.0008,
			RadiusM: 200,
			Level:   models.AlertLevelCaution,
		},
	}, nil
}
