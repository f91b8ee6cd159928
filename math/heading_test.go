// math/heading_test.go
// Copyright(c) 2025 Tactical Maneuvering Game contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package math

import (
	"testing"
)

func TestNormalizeHeading(t *testing.T) {
	for _, tc := range []struct{ h, want float32 }{
		{0, 0},
		{360, 0},
		{90, 90},
		{450, 90},
		{-90, 270},
		{-450, 270},
		{359.5, 359.5},
	} {
		if got := NormalizeHeading(tc.h); Abs(got-tc.want) > 1e-3 {
			t.Errorf("NormalizeHeading(%v) = %v, want %v", tc.h, got, tc.want)
		}
	}
}

func TestVelocityFromCourseSpeed(t *testing.T) {
	const k = KnotsToYardsPerSecond
	for _, tc := range []struct {
		course, speed float32
		want          [2]float32
	}{
		{0, 10, [2]float32{0, 10 * k}},    // north
		{90, 10, [2]float32{10 * k, 0}},   // east
		{180, 5, [2]float32{0, -5 * k}},   // south
		{270, 10, [2]float32{-10 * k, 0}}, // west
		{0, 0, [2]float32{0, 0}},
	} {
		v := VelocityFromCourseSpeed(tc.course, tc.speed)
		if Abs(v[0]-tc.want[0]) > 1e-3 || Abs(v[1]-tc.want[1]) > 1e-3 {
			t.Errorf("VelocityFromCourseSpeed(%v, %v) = %v, want %v", tc.course, tc.speed, v, tc.want)
		}
	}
}

func TestOffsetFromBearingDistance(t *testing.T) {
	for _, tc := range []struct {
		bearing, dist float32
		want          [2]float32
	}{
		{90, 10000, [2]float32{10000, 0}},
		{0, 500, [2]float32{0, 500}},
		{180, 500, [2]float32{0, -500}},
		{270, 100, [2]float32{-100, 0}},
	} {
		p := OffsetFromBearingDistance(tc.bearing, tc.dist)
		if Abs(p[0]-tc.want[0]) > 0.5 || Abs(p[1]-tc.want[1]) > 0.5 {
			t.Errorf("OffsetFromBearingDistance(%v, %v) = %v, want %v", tc.bearing, tc.dist, p, tc.want)
		}
	}
}

func TestBearingDistanceRoundTrip(t *testing.T) {
	origin := [2]float32{1000, -2500}
	for _, tc := range []struct{ bearing, dist float32 }{
		{37, 1234},
		{90, 10000},
		{213.5, 99},
		{359, 40000},
	} {
		p := Add2f(origin, OffsetFromBearingDistance(tc.bearing, tc.dist))
		bearing, dist := BearingDistance(origin, p)
		if Abs(NormalizeHeading(bearing-tc.bearing)) > 0.1 && Abs(NormalizeHeading(bearing-tc.bearing)-360) > 0.1 {
			t.Errorf("bearing %v -> %v after round trip", tc.bearing, bearing)
		}
		if Abs(dist-tc.dist) > 0.5 {
			t.Errorf("distance %v -> %v after round trip", tc.dist, dist)
		}
	}
}
