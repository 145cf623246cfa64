package core

import (
	"math"
	"testing"

	"github.com/signalsfoundry/peerglobe/model"
)

func TestOffsetMetersMovesByDistance(t *testing.T) {
	origin := model.Coordinate{Lat: 48.8566, Lon: 2.3522}
	for _, bearing := range []float64{0, 45, 90, 180, 270, 333} {
		got := OffsetMeters(origin, bearing, 150)
		if d := DistanceMeters(origin, got); math.Abs(d-150) > 0.5 {
			t.Fatalf("OffsetMeters(bearing=%v) distance = %.3f m, want ~150", bearing, d)
		}
	}
}

func TestOffsetMetersNorthIncreasesLatitude(t *testing.T) {
	origin := model.Coordinate{Lat: 10, Lon: 20}
	north := OffsetMeters(origin, 0, 1000)
	if north.Lat <= origin.Lat || math.Abs(north.Lon-origin.Lon) > 1e-12 {
		t.Fatalf("north offset = %+v, want higher latitude and same longitude", north)
	}
	east := OffsetMeters(origin, 90, 1000)
	if east.Lon <= origin.Lon || math.Abs(east.Lat-origin.Lat) > 1e-9 {
		t.Fatalf("east offset = %+v, want higher longitude and same latitude", east)
	}
}

func TestWrapLongitude(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0, 0},
		{179.5, 179.5},
		{180, -180},
		{181, -179},
		{-181, 179},
		{540, -180},
	}
	for _, tc := range tests {
		if got := WrapLongitude(tc.in); math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("WrapLongitude(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestValidCoordinate(t *testing.T) {
	tests := []struct {
		name string
		c    model.Coordinate
		want bool
	}{
		{"origin", model.Coordinate{}, true},
		{"north pole", model.Coordinate{Lat: 90, Lon: 0}, true},
		{"lat too high", model.Coordinate{Lat: 90.1, Lon: 0}, false},
		{"lon too low", model.Coordinate{Lat: 0, Lon: -180.5}, false},
		{"nan", model.Coordinate{Lat: math.NaN(), Lon: 0}, false},
		{"inf", model.Coordinate{Lat: 0, Lon: math.Inf(1)}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := ValidCoordinate(tc.c); got != tc.want {
				t.Fatalf("ValidCoordinate(%+v) = %v, want %v", tc.c, got, tc.want)
			}
		})
	}
}

func TestDistanceKmAcrossHemispheres(t *testing.T) {
	london := model.Coordinate{Lat: 51.5074, Lon: -0.1278}
	sydney := model.Coordinate{Lat: -33.8688, Lon: 151.2093}
	got := DistanceKm(london, sydney)
	if got < 16900 || got > 17100 {
		t.Fatalf("DistanceKm(london, sydney) = %.0f, want ~17000", got)
	}
}
