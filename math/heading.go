// math/heading.go
// Copyright(c) 2025 Tactical Maneuvering Game contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package math

///////////////////////////////////////////////////////////////////////////
// headings and planar navigation
//
// Positions are planar, in yards: +x east, +y north. Headings, courses,
// and bearings are degrees clockwise from north.

// NauticalMileYards is the length of one nautical mile in yards
// (1852m / 0.9144).
const NauticalMileYards = 2025.3718

// KnotsToYardsPerSecond converts a speed in knots to yards per second.
const KnotsToYardsPerSecond = NauticalMileYards / 3600

// Reduces it to [0,360).
func NormalizeHeading(h float32) float32 {
	if h < 0 {
		return NormalizeHeading(h + 360)
	}
	return Mod(h, 360)
}

// VelocityFromCourseSpeed decomposes a course in degrees and a speed in
// knots into a planar velocity in yards per second. Note that since
// courses are measured clockwise from north, the roles of sin and cos are
// swapped compared to the usual math convention of angles measured
// counter-clockwise from +x.
func VelocityFromCourseSpeed(courseDeg, speedKts float32) [2]float32 {
	v := speedKts * KnotsToYardsPerSecond
	return [2]float32{v * Sin(Radians(courseDeg)), v * Cos(Radians(courseDeg))}
}

// OffsetFromBearingDistance converts a bearing in degrees and a distance
// in yards to the planar offset from the observation point.
func OffsetFromBearingDistance(bearingDeg, distanceYds float32) [2]float32 {
	return [2]float32{distanceYds * Sin(Radians(bearingDeg)), distanceYds * Cos(Radians(bearingDeg))}
}

// BearingDistance returns the bearing and distance in yards from a to b.
func BearingDistance(a [2]float32, b [2]float32) (float32, float32) {
	v := Sub2f(b, a)
	// atan2() normally measures w.r.t. the +x axis with positive angles
	// counter-clockwise; passing (x,y) rather than (y,x) gives angles
	// w.r.t. +y and clockwise, which is what we want for bearings.
	return NormalizeHeading(Degrees(Atan2(v[0], v[1]))), Distance2f(a, b)
}
