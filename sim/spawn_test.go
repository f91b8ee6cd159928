// sim/spawn_test.go
// Copyright(c) 2025 Tactical Maneuvering Game contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sim

import (
	"testing"
	"time"
)

func TestSpawnQueueExclusivity(t *testing.T) {
	s, guide := makeTestSim(t)

	if err := s.Start(guide, nil, nil); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if err := s.AddNPC(guide, NPCSpec{Callsign: "NOW"}, 0); err != nil {
		t.Fatalf("AddNPC: %v", err)
	}
	if err := s.AddNPC(guide, NPCSpec{Callsign: "LATER"}, time.Hour); err != nil {
		t.Fatalf("AddNPC: %v", err)
	}

	status := s.GetScenarioStatus()
	if len(status.Active) != 1 || status.Active[0].Callsign != "NOW" {
		t.Errorf("zero-delay spawn not active: %+v", status.Active)
	}
	if len(status.Queue) != 1 || status.Queue[0].Spec.Callsign != "LATER" {
		t.Errorf("delayed spawn not queued: %+v", status.Queue)
	}

	// Not ready yet; a tick must not promote it.
	s.Update(time.Now())
	status = s.GetScenarioStatus()
	if len(status.Queue) != 1 || len(status.Active) != 1 {
		t.Errorf("premature promotion: %d queued, %d active", len(status.Queue), len(status.Active))
	}

	// Force the ready time into the past: exactly one promotion, and the
	// entry leaves the queue as it becomes active.
	s.mu.Lock(s.lg)
	s.pending[0].ReadyAt = time.Now().Add(-time.Second)
	s.mu.Unlock(s.lg)

	s.Update(time.Now())
	status = s.GetScenarioStatus()
	if len(status.Queue) != 0 {
		t.Errorf("promoted spawn still queued: %+v", status.Queue)
	}
	if len(status.Active) != 2 {
		t.Errorf("active after promotion: got %d, want 2", len(status.Active))
	}

	s.Update(time.Now())
	if status := s.GetScenarioStatus(); len(status.Active) != 2 {
		t.Errorf("second tick changed active set: %+v", status.Active)
	}
}

func TestNoPromotionBeforeStart(t *testing.T) {
	s, guide := makeTestSim(t)

	if err := s.AddNPC(guide, NPCSpec{Callsign: "TGT1"}, time.Millisecond); err != nil {
		t.Fatalf("AddNPC: %v", err)
	}

	s.Update(time.Now().Add(time.Second))
	status := s.GetScenarioStatus()
	if len(status.Queue) != 1 || len(status.Active) != 0 {
		t.Errorf("promotion before start: %d queued, %d active", len(status.Queue), len(status.Active))
	}
}

func TestSpawnBurstAfterResume(t *testing.T) {
	s, guide := makeTestSim(t)

	if err := s.Start(guide, nil, nil); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := s.SetPaused(guide, true); err != nil {
		t.Fatalf("SetPaused: %v", err)
	}

	// Both become ready (by wall clock) during the pause.
	if err := s.AddNPC(guide, NPCSpec{Callsign: "TGT1"}, time.Millisecond); err != nil {
		t.Fatalf("AddNPC: %v", err)
	}
	if err := s.AddNPC(guide, NPCSpec{Callsign: "TGT2"}, 2*time.Millisecond); err != nil {
		t.Fatalf("AddNPC: %v", err)
	}

	s.Update(time.Now().Add(time.Second))
	if status := s.GetScenarioStatus(); len(status.Queue) != 2 {
		t.Fatalf("promotion while paused: %+v", status)
	}

	if err := s.SetPaused(guide, false); err != nil {
		t.Fatalf("SetPaused: %v", err)
	}

	// One tick after resume releases all the overdue spawns together.
	s.Update(time.Now().Add(time.Second))
	status := s.GetScenarioStatus()
	if len(status.Queue) != 0 || len(status.Active) != 2 {
		t.Errorf("burst after resume: %d queued, %d active, want 0/2",
			len(status.Queue), len(status.Active))
	}
}

func TestSpawnCallsignCollision(t *testing.T) {
	s, guide := makeTestSim(t)

	if err := s.AddNPC(guide, NPCSpec{Callsign: "GUIDE"}, 0); err == nil {
		t.Errorf("NPC with taken callsign activated")
	}
}
