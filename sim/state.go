// sim/state.go
// Copyright(c) 2025 Tactical Maneuvering Game contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sim

import (
	"time"
)

// SessionView is the client-visible description of an exercise; it never
// carries the owner token.
type SessionView struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	RangeYds  float32   `json:"range_yds"`
	OwnerID   TrackID   `json:"owner_id"`
	Started   bool      `json:"started"`
	Paused    bool      `json:"paused"`
}

// TrackState is the client-visible state of one track.
type TrackState struct {
	ID         TrackID    `json:"id"`
	Callsign   string     `json:"callsign"`
	Role       TrackRole  `json:"role"`
	Position   [2]float32 `json:"position"`
	CourseDeg  float32    `json:"course_deg"`
	HeadingDeg float32    `json:"heading_deg"`
	SpeedKts   float32    `json:"speed_kts"`
}

func makeTrackState(t Track) TrackState {
	return TrackState{
		ID:         t.ID,
		Callsign:   t.Callsign,
		Role:       t.Role,
		Position:   t.Position,
		CourseDeg:  t.CourseDeg,
		HeadingDeg: t.HeadingDeg,
		SpeedKts:   t.SpeedKts,
	}
}

// Snapshot is the complete authoritative state a client receives each
// update; building one has no side effects.
type Snapshot struct {
	ServerTimeMs int64        `json:"server_time_ms"`
	Session      SessionView  `json:"session"`
	Tracks       []TrackState `json:"tracks"`
}

// ScenarioStatus describes the NPC side of an exercise: spawns still
// waiting on their ready time plus the currently active NPC tracks.
type ScenarioStatus struct {
	Queue  []PendingSpawn `json:"queue"`
	Active []TrackState   `json:"active"`
}

// Placement positions one already-joined track relative to the exercise
// owner when a scenario starts. Course and speed are optional; nil leaves
// the track's current values alone.
type Placement struct {
	TrackID     TrackID  `json:"track_id"`
	BearingDeg  float32  `json:"bearing_deg"`
	DistanceYds float32  `json:"distance_yds"`
	CourseDeg   *float32 `json:"course_deg,omitempty"`
	SpeedKts    *float32 `json:"speed_kts,omitempty"`
}

func derefOr[T any](p *T, def T) T {
	if p != nil {
		return *p
	}
	return def
}
