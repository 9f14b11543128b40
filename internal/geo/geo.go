// Package geo computes great-circle distances and obtains device positions.
package geo

import (
	"math"

	"queueaway/internal/models"
)

// EarthRadiusKm is the mean Earth radius used by Distance.
const EarthRadiusKm = 6371.0

// Distance returns the haversine distance between two points, in kilometres.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLon := toRadians(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusKm * c
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

// FilterWithinRadius keeps businesses within radiusKm of origin. Businesses without
// coordinates are always kept. A nil origin returns the input unchanged; a non-positive
// radius means the default radius.
func FilterWithinRadius(businesses []*models.Business, origin *models.Location, radiusKm float64) []*models.Business {
	if origin == nil {
		return businesses
	}
	if radiusKm <= 0 {
		radiusKm = models.DefaultRadiusKm
	}

	out := make([]*models.Business, 0, len(businesses))
	for _, b := range businesses {
		if !b.HasCoordinates() {
			out = append(out, b)
			continue
		}
		if Distance(origin.Latitude, origin.Longitude, *b.Latitude, *b.Longitude) <= radiusKm {
			out = append(out, b)
		}
	}
	return out
}
