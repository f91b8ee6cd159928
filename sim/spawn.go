// sim/spawn.go
// Copyright(c) 2025 Tactical Maneuvering Game contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sim

import (
	"log/slog"
	"time"
)

// NPCSpec gives the initial state for an NPC track: absolute position in
// yards plus course and speed.
type NPCSpec struct {
	Callsign  string     `json:"callsign"`
	Position  [2]float32 `json:"position"`
	CourseDeg float32    `json:"course_deg"`
	SpeedKts  float32    `json:"speed_kts"`
}

// PendingSpawn is an NPC waiting in the spawn queue until its ready time.
type PendingSpawn struct {
	Spec    NPCSpec   `json:"spec"`
	ReadyAt time.Time `json:"ready_at"`
}

// enqueueNPC adds spec to the spawn queue with the given delay; a
// non-positive delay activates it immediately. The sim mutex must be held.
func (s *Sim) enqueueNPC(spec NPCSpec, delay time.Duration) error {
	if delay <= 0 {
		_, err := s.activateNPC(spec)
		return err
	}

	s.pending = append(s.pending, PendingSpawn{
		Spec:    spec,
		ReadyAt: time.Now().Add(delay),
	})
	s.lg.Info("queued NPC spawn", slog.String("callsign", spec.Callsign),
		slog.Duration("delay", delay))
	return nil
}

// activateNPC creates a live NPC track from spec. The sim mutex must be
// held.
func (s *Sim) activateNPC(spec NPCSpec) (TrackID, error) {
	id, err := s.registry.Create(Track{
		SessionID:  s.ID,
		Callsign:   spec.Callsign,
		Role:       RoleNPC,
		Position:   spec.Position,
		CourseDeg:  spec.CourseDeg,
		SpeedKts:   spec.SpeedKts,
		LastUpdate: time.Now(),
	})
	if err != nil {
		s.lg.Warn("unable to activate NPC", slog.String("callsign", spec.Callsign),
			slog.Any("error", err))
		return "", err
	}
	s.lg.Info("activated NPC", slog.String("callsign", spec.Callsign),
		slog.String("track", string(id)))
	return id, nil
}

// promoteReadySpawns moves every queued spawn whose ready time has passed
// into the active set. Promotion only happens while the scenario is
// running; ready times are compared against the wall clock even while
// paused, so a long pause releases overdue spawns in a burst at resume.
// Returns true if the queue or the active set changed. The sim mutex must
// be held.
func (s *Sim) promoteReadySpawns(now time.Time) bool {
	if !s.Started || s.Paused || len(s.pending) == 0 {
		return false
	}

	changed := false
	var still []PendingSpawn
	for _, p := range s.pending {
		if !p.ReadyAt.After(now) {
			// Activation removes the entry from the queue even if the
			// callsign has been taken in the meantime; retrying every
			// tick would just spam the log.
			s.activateNPC(p.Spec)
			changed = true
		} else {
			still = append(still, p)
		}
	}
	s.pending = still
	return changed
}
