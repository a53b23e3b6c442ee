package geospatial

import (
	"math"

	"github.com/samirrijal/circlerun/internal/core/domain"
)

// EarthRadiusMeters is the mean Earth radius used by every helper here.
const EarthRadiusMeters = 6_371_000.0

// DistanceMeters returns the great-circle (Haversine) distance between a and b.
func DistanceMeters(a, b domain.Coordinate) float64 {
	dLat := toRad(b.Lat - a.Lat)
	dLon := toRad(b.Lon - a.Lon)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(a.Lat))*math.Cos(toRad(b.Lat))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return EarthRadiusMeters * c
}

// Offset moves from by the given east/north distances using an
// equirectangular approximation. It degrades near the poles, where
// cos(lat) approaches zero.
func Offset(from domain.Coordinate, metersEast, metersNorth float64) domain.Coordinate {
	dLat := metersNorth / EarthRadiusMeters
	dLon := metersEast / (EarthRadiusMeters * math.Cos(toRad(from.Lat)))

	return domain.Coordinate{
		Lat: from.Lat + toDeg(dLat),
		Lon: from.Lon + toDeg(dLon),
	}
}

// BearingDegrees returns the initial great-circle bearing from a to b in [0, 360).
func BearingDegrees(a, b domain.Coordinate) float64 {
	lat1, lat2 := toRad(a.Lat), toRad(b.Lat)
	dLon := toRad(b.Lon - a.Lon)

	y := math.Sin(dLon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLon)

	deg := math.Mod(toDeg(math.Atan2(y, x))+360, 360)
	if deg >= 360 {
		deg = 0
	}
	return deg
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}

func toDeg(rad float64) float64 {
	return rad * 180 / math.Pi
}
