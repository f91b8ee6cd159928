// sim/track.go
// Copyright(c) 2025 Tactical Maneuvering Game contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sim

import (
	"slices"
	"strings"
	"time"

	"github.com/SortaSovereign/Tactical-Maneuvering-Game/log"
	"github.com/SortaSovereign/Tactical-Maneuvering-Game/math"
	"github.com/SortaSovereign/Tactical-Maneuvering-Game/util"

	"github.com/google/uuid"
)

type TrackID string

type TrackRole int

const (
	RolePlayer TrackRole = iota
	RoleGuide
	RoleNPC
)

func (r TrackRole) String() string {
	return [...]string{"player", "guide", "npc"}[r]
}

// MaxCallsignLength bounds callsigns after normalization.
const MaxCallsignLength = 12

// MaxSpeedKts bounds track speeds; requested speeds are clamped, not
// rejected.
const MaxSpeedKts = 60

// Track is one simulated entity in an exercise: a human-controlled player,
// the exercise guide, or an NPC.
type Track struct {
	ID        TrackID
	SessionID string
	Callsign  string
	Role      TrackRole

	// Position is planar, in yards: +x east, +y north.
	Position   [2]float32
	CourseDeg  float32
	HeadingDeg float32 // mirrors CourseDeg for now; kept separate so they can diverge later
	SpeedKts   float32

	// LastUpdate is the instant through which Position is already
	// integrated; it never goes backwards.
	LastUpdate time.Time

	// LastNavSet is when the controlling connection last changed
	// course/speed; used to rate-limit control input.
	LastNavSet time.Time

	// Seq is assigned in creation order by the registry; listings and
	// recordings are ordered by it.
	Seq uint64
}

// Advance dead-reckons the track's position through now, assuming constant
// course and speed. It is a no-op if now is not after LastUpdate.
func (t *Track) Advance(now time.Time) {
	dt := now.Sub(t.LastUpdate).Seconds()
	if dt <= 0 {
		return
	}
	v := math.VelocityFromCourseSpeed(t.CourseDeg, t.SpeedKts)
	t.Position = math.Add2f(t.Position, math.Scale2f(v, float32(dt)))
	t.LastUpdate = now
}

// NormalizeCallsign uppercases, strips everything outside [A-Z0-9-], and
// truncates to MaxCallsignLength.
func NormalizeCallsign(s string) string {
	var sb strings.Builder
	for _, ch := range strings.ToUpper(s) {
		if (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9') || ch == '-' {
			sb.WriteRune(ch)
		}
	}
	cs := sb.String()
	if len(cs) > MaxCallsignLength {
		cs = cs[:MaxCallsignLength]
	}
	return cs
}

///////////////////////////////////////////////////////////////////////////
// TrackRegistry

// TrackRegistry owns every track record in the process, for all exercises.
// Lookups and listings hand out copies; all mutation goes through Create,
// Modify, and Remove so that normalization and uniqueness are enforced in
// one place.
type TrackRegistry struct {
	mu      util.LoggingMutex
	tracks  map[TrackID]*Track
	nextSeq uint64
	lg      *log.Logger
}

func NewTrackRegistry(lg *log.Logger) *TrackRegistry {
	return &TrackRegistry{
		tracks: make(map[TrackID]*Track),
		lg:     lg,
	}
}

// Create validates and registers the given track, assigning it an id if it
// doesn't have one. The callsign is normalized and must be unique
// (case-insensitively) among live tracks of the same session.
func (r *TrackRegistry) Create(t Track) (TrackID, error) {
	t.Callsign = NormalizeCallsign(t.Callsign)
	if t.Callsign == "" {
		return "", ErrInvalidCallsign
	}

	r.mu.Lock(r.lg)
	defer r.mu.Unlock(r.lg)

	if r.callsignTaken(t.SessionID, t.Callsign, t.ID) {
		return "", ErrCallsignTaken
	}

	if t.ID == "" {
		t.ID = TrackID(uuid.NewString())
	}
	t.CourseDeg = math.NormalizeHeading(t.CourseDeg)
	t.HeadingDeg = t.CourseDeg
	t.SpeedKts = math.Clamp(t.SpeedKts, 0, MaxSpeedKts)
	if t.LastUpdate.IsZero() {
		t.LastUpdate = time.Now()
	}
	r.nextSeq++
	t.Seq = r.nextSeq

	r.tracks[t.ID] = &t
	return t.ID, nil
}

// Get returns a copy of the track, if it exists.
func (r *TrackRegistry) Get(id TrackID) (Track, bool) {
	r.mu.Lock(r.lg)
	defer r.mu.Unlock(r.lg)

	if t, ok := r.tracks[id]; ok {
		return *t, true
	}
	return Track{}, false
}

// Remove deletes the track; removing an unknown id is a no-op so that
// duplicate disconnect notifications are harmless.
func (r *TrackRegistry) Remove(id TrackID) {
	r.mu.Lock(r.lg)
	defer r.mu.Unlock(r.lg)

	delete(r.tracks, id)
}

// Modify applies fn to the track under the registry lock and then
// re-establishes the kinematic invariants (normalized course, clamped
// speed, monotonic LastUpdate). fn must not call back into the registry.
func (r *TrackRegistry) Modify(id TrackID, fn func(*Track)) error {
	r.mu.Lock(r.lg)
	defer r.mu.Unlock(r.lg)

	t, ok := r.tracks[id]
	if !ok {
		return ErrTrackNotFound
	}

	lastUpdate := t.LastUpdate
	fn(t)

	t.CourseDeg = math.NormalizeHeading(t.CourseDeg)
	t.HeadingDeg = t.CourseDeg
	t.SpeedKts = math.Clamp(t.SpeedKts, 0, MaxSpeedKts)
	if t.LastUpdate.Before(lastUpdate) {
		t.LastUpdate = lastUpdate
	}
	return nil
}

// ListForSession returns copies of the session's live tracks in creation
// order.
func (r *TrackRegistry) ListForSession(sessionID string) []Track {
	r.mu.Lock(r.lg)
	defer r.mu.Unlock(r.lg)

	var tracks []Track
	for _, t := range r.tracks {
		if t.SessionID == sessionID {
			tracks = append(tracks, *t)
		}
	}
	slices.SortFunc(tracks, func(a, b Track) int { return int(a.Seq) - int(b.Seq) })
	return tracks
}

// CallsignTaken reports whether the (normalized) callsign is in use by a
// live track in the session, other than excluding.
func (r *TrackRegistry) CallsignTaken(sessionID, callsign string, excluding TrackID) bool {
	r.mu.Lock(r.lg)
	defer r.mu.Unlock(r.lg)

	return r.callsignTaken(sessionID, NormalizeCallsign(callsign), excluding)
}

// assumes r.mu is held and callsign is normalized
func (r *TrackRegistry) callsignTaken(sessionID, callsign string, excluding TrackID) bool {
	for id, t := range r.tracks {
		if id != excluding && t.SessionID == sessionID && strings.EqualFold(t.Callsign, callsign) {
			return true
		}
	}
	return false
}
