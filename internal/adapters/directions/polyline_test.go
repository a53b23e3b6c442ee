package directions_test

import (
	"math"
	"testing"

	"github.com/samirrijal/circlerun/internal/adapters/directions"
	"github.com/samirrijal/circlerun/internal/core/domain"
)

func TestDecodePolyline_GoogleReference(t *testing.T) {
	got, err := directions.DecodePolyline("_p~iF~ps|U_ulLnnqC_mqNvxq`@", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []domain.Coordinate{
		{Lat: 38.5, Lon: -120.2},
		{Lat: 40.7, Lon: -120.95},
		{Lat: 43.252, Lon: -126.453},
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d points, got %d", len(want), len(got))
	}
	for i := range want {
		if math.Abs(got[i].Lat-want[i].Lat) > 1e-9 || math.Abs(got[i].Lon-want[i].Lon) > 1e-9 {
			t.Errorf("point %d: expected %v, got %v", i, want[i], got[i])
		}
	}
}

func TestPolyline6_RoundTrip(t *testing.T) {
	in := []domain.Coordinate{
		{Lat: 37.774900, Lon: -122.419400},
		{Lat: 37.775123, Lon: -122.418765},
		{Lat: -33.856784, Lon: 151.215297},
	}
	enc := directions.EncodePolyline(in, directions.Precision6)
	out, err := directions.DecodePolyline(enc, directions.Precision6)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("expected %d points, got %d", len(in), len(out))
	}
	for i := range in {
		if math.Abs(out[i].Lat-in[i].Lat) > 1e-6 || math.Abs(out[i].Lon-in[i].Lon) > 1e-6 {
			t.Errorf("point %d: expected %v, got %v", i, in[i], out[i])
		}
	}
}

func TestDecodePolyline_Malformed(t *testing.T) {
	if _, err := directions.DecodePolyline("_p~iF~ps|U_", 5); err == nil {
		t.Error("expected error for truncated polyline")
	}
	if _, err := directions.DecodePolyline("_p~iF\x01", 5); err == nil {
		t.Error("expected error for invalid byte")
	}
	if got, err := directions.DecodePolyline("", 6); err != nil || len(got) != 0 {
		t.Errorf("expected empty result for empty input, got %v, %v", got, err)
	}
}
