package gpx_test

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/samirrijal/circlerun/internal/core/domain"
	"github.com/samirrijal/circlerun/internal/gpx"
)

var loopPath = []domain.Coordinate{
	{Lat: 37.7749, Lon: -122.4194},
	{Lat: 37.7760, Lon: -122.4180},
	{Lat: 37.7740, Lon: -122.4170},
	{Lat: 37.7749, Lon: -122.4194},
}

func TestTrackAndFileName(t *testing.T) {
	if got := gpx.TrackName(3.04); got != "CircleRoute_3.0mi" {
		t.Errorf("expected CircleRoute_3.0mi, got %s", got)
	}
	at := time.Date(2024, 5, 1, 7, 30, 0, 0, time.UTC)
	if got := gpx.FileName("CircleRoute_3.0mi", at); got != "CircleRoute_3.0mi_20240501T073000Z.gpx" {
		t.Errorf("unexpected file name %s", got)
	}
	if got := gpx.FileName("my loop/1", at); strings.ContainsAny(got, " /") {
		t.Errorf("expected unsafe characters replaced, got %s", got)
	}
}

func TestExportImport_RoundTrip(t *testing.T) {
	at := time.Date(2024, 5, 1, 7, 30, 0, 0, time.UTC)
	data, err := gpx.Export("", loopPath, 3.04, at)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	doc := string(data)
	for _, want := range []string{`creator="CircleRun"`, "CircleRoute_3.0mi", "<trkseg>"} {
		if !strings.Contains(doc, want) {
			t.Errorf("expected %q in document:\n%s", want, doc)
		}
	}

	imp, err := gpx.Import(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if imp.Name != "CircleRoute_3.0mi" {
		t.Errorf("expected track name back, got %q", imp.Name)
	}
	if len(imp.Coordinates) != len(loopPath) {
		t.Fatalf("expected %d points, got %d", len(loopPath), len(imp.Coordinates))
	}
	for i := range loopPath {
		if math.Abs(imp.Coordinates[i].Lat-loopPath[i].Lat) > 1e-7 || math.Abs(imp.Coordinates[i].Lon-loopPath[i].Lon) > 1e-7 {
			t.Errorf("point %d: expected %v, got %v", i, loopPath[i], imp.Coordinates[i])
		}
	}
}

func TestExport_TooShort(t *testing.T) {
	if _, err := gpx.Export("x", loopPath[:1], 0, time.Now()); !errors.Is(err, gpx.ErrEmptyTrack) {
		t.Errorf("expected ErrEmptyTrack, got %v", err)
	}
}

func TestImport_RouteFallbackAndErrors(t *testing.T) {
	route := `<?xml version="1.0" encoding="UTF-8"?>
<gpx version="1.1" creator="test" xmlns="http://www.topografix.com/GPX/1/1">
  <rte><name>Park loop</name>
    <rtept lat="43.263" lon="-2.935"></rtept>
    <rtept lat="43.266" lon="-2.930"></rtept>
  </rte>
</gpx>`
	imp, err := gpx.Import(strings.NewReader(route))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if imp.Name != "Park loop" || len(imp.Coordinates) != 2 {
		t.Errorf("unexpected import: %+v", imp)
	}

	empty := `<?xml version="1.0"?><gpx version="1.1" creator="test" xmlns="http://www.topografix.com/GPX/1/1"></gpx>`
	if _, err := gpx.Import(strings.NewReader(empty)); !errors.Is(err, gpx.ErrEmptyTrack) {
		t.Errorf("expected ErrEmptyTrack, got %v", err)
	}
	if _, err := gpx.Import(strings.NewReader("not xml")); err == nil {
		t.Error("expected parse error")
	}
}
