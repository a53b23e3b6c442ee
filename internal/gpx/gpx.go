// Package gpx writes and reads loops as GPX 1.1 tracks.
package gpx

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/tkrajina/gpxgo/gpx"

	"github.com/samirrijal/circlerun/internal/core/domain"
)

const (
	Creator = "CircleRun"
	// fileTimeLayout is ISO 8601 basic format, safe in file names.
	fileTimeLayout = "20060102T150405Z"
)

// ErrEmptyTrack is returned when an imported file has fewer than two points.
var ErrEmptyTrack = errors.New("gpx: track has fewer than 2 points")

// TrackName is the default track name for a loop of distanceMiles.
func TrackName(distanceMiles float64) string {
	return fmt.Sprintf("CircleRoute_%.1fmi", distanceMiles)
}

// FileName returns "<name>_<timestamp>.gpx".
func FileName(name string, at time.Time) string {
	safe := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', ' ':
			return '_'
		}
		return r
	}, name)
	return safe + "_" + at.UTC().Format(fileTimeLayout) + ".gpx"
}

// Export renders coords as a single-track, single-segment GPX 1.1 document.
// An empty name falls back to TrackName(distanceMiles).
func Export(name string, coords []domain.Coordinate, distanceMiles float64, at time.Time) ([]byte, error) {
	if len(coords) < 2 {
		return nil, ErrEmptyTrack
	}
	if name == "" {
		name = TrackName(distanceMiles)
	}

	points := make([]gpx.GPXPoint, len(coords))
	for i, c := range coords {
		points[i] = gpx.GPXPoint{Point: gpx.Point{Latitude: c.Lat, Longitude: c.Lon}}
	}

	doc := &gpx.GPX{
		Version: "1.1",
		Creator: Creator,
		Name:    name,
		Time:    &at,
		Tracks: []gpx.GPXTrack{{
			Name:        name,
			Description: fmt.Sprintf("%.2f mi loop", distanceMiles),
			Type:        "running",
			Segments:    []gpx.GPXTrackSegment{{Points: points}},
		}},
	}
	return doc.ToXml(gpx.ToXmlParams{Version: "1.1", Indent: true})
}

// Imported is a track read back from GPX.
type Imported struct {
	Name        string
	Coordinates []domain.Coordinate
}

// Import reads the first track of a GPX document, joining its segments.
// A file without tracks falls back to its first route.
func Import(r io.Reader) (*Imported, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("gpx: read: %w", err)
	}
	doc, err := gpx.ParseBytes(bytes.TrimSpace(data))
	if err != nil {
		return nil, fmt.Errorf("gpx: parse: %w", err)
	}

	out := &Imported{Name: doc.Name}
	switch {
	case len(doc.Tracks) > 0:
		trk := doc.Tracks[0]
		if trk.Name != "" {
			out.Name = trk.Name
		}
		for _, seg := range trk.Segments {
			for _, p := range seg.Points {
				out.Coordinates = append(out.Coordinates, domain.Coordinate{Lat: p.Latitude, Lon: p.Longitude})
			}
		}
	case len(doc.Routes) > 0:
		rte := doc.Routes[0]
		if rte.Name != "" {
			out.Name = rte.Name
		}
		for _, p := range rte.Points {
			out.Coordinates = append(out.Coordinates, domain.Coordinate{Lat: p.Latitude, Lon: p.Longitude})
		}
	}

	if len(out.Coordinates) < 2 {
		return nil, ErrEmptyTrack
	}
	return out, nil
}
