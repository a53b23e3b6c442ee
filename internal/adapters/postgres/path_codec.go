package postgres

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/samirrijal/circlerun/internal/core/domain"
)

// Saved paths are stored as a flat object of indexed keys,
// {"count": n, "lat_0": .., "lng_0": .., ...}, which is the format the
// mobile app wrote to its favourites store.

func encodePath(coords []domain.Coordinate) ([]byte, error) {
	m := make(map[string]float64, 2*len(coords)+1)
	m["count"] = float64(len(coords))
	for i, c := range coords {
		m["lat_"+strconv.Itoa(i)] = c.Lat
		m["lng_"+strconv.Itoa(i)] = c.Lon
	}
	return json.Marshal(m)
}

func decodePath(data []byte) ([]domain.Coordinate, error) {
	var m map[string]float64
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode path: %w", err)
	}

	n, ok := m["count"]
	if !ok {
		// Without a count, read until the first missing index.
		n = float64(len(m) / 2)
	}

	coords := make([]domain.Coordinate, 0, int(n))
	for i := 0; i < int(n); i++ {
		lat, okLat := m["lat_"+strconv.Itoa(i)]
		lng, okLng := m["lng_"+strconv.Itoa(i)]
		if !okLat || !okLng {
			if !ok {
				break
			}
			return nil, fmt.Errorf("decode path: missing coordinate %d of %d", i, int(n))
		}
		coords = append(coords, domain.Coordinate{Lat: lat, Lon: lng})
	}
	return coords, nil
}
