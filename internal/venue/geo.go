package venue

import (
	"math"
	"sort"

	"github.com/twpayne/go-geom"

	"github.com/scenescout/extract-cli/internal/model"
)

const earthRadiusKm = 6371.0

// Point builds a WGS84 point for a venue coordinate pair.
func Point(lng, lat float64) *geom.Point {
	return geom.NewPointFlat(geom.XY, []float64{lng, lat}).SetSRID(4326)
}

// DistanceKm is the haversine great-circle distance between two WGS84
// points, in kilometers.
func DistanceKm(a, b *geom.Point) float64 {
	lng1, lat1 := a.X()*math.Pi/180, a.Y()*math.Pi/180
	lng2, lat2 := b.X()*math.Pi/180, b.Y()*math.Pi/180

	dLat := lat2 - lat1
	dLng := lng2 - lng1

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(h))
}

// NearbyVenue is a venue with its distance from a query point.
type NearbyVenue struct {
	Venue      model.KnownVenue `json:"venue"`
	DistanceKm float64          `json:"distance_km"`
}

// Nearby returns the venues with coordinates within radiusKm of the query
// point, nearest first. Venues without coordinates are skipped.
func Nearby(venues []model.KnownVenue, lng, lat, radiusKm float64) []NearbyVenue {
	origin := Point(lng, lat)

	var out []NearbyVenue
	for _, v := range venues {
		if v.Lat == nil || v.Lng == nil {
			continue
		}
		d := DistanceKm(origin, Point(*v.Lng, *v.Lat))
		if radiusKm > 0 && d > radiusKm {
			continue
		}
		out = append(out, NearbyVenue{Venue: v, DistanceKm: d})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].DistanceKm < out[j].DistanceKm })
	return out
}
