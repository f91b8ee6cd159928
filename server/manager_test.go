// server/manager_test.go
// Copyright(c) 2025 Tactical Maneuvering Game contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package server

import (
	"errors"
	"testing"
	"time"

	"github.com/SortaSovereign/Tactical-Maneuvering-Game/sim"
)

func makeTestManager(t *testing.T) *SessionManager {
	t.Helper()

	return NewSessionManager(Config{
		TickInterval:     2 * time.Second,
		NavMinInterval:   100 * time.Millisecond,
		RecorderCapacity: 100,
		SessionIdleLimit: 4 * time.Hour,
	}, nil)
}

func TestCreateAndJoin(t *testing.T) {
	sm := makeTestManager(t)

	id, token := sm.CreateSession("friday drill", 40000)
	if len(id) != sessionCodeLength {
		t.Errorf("session code %q: length %d, want %d", id, len(id), sessionCodeLength)
	}
	if token == "" {
		t.Errorf("empty owner token")
	}

	if _, _, err := sm.Join("NOSUCH", "ALPHA"); !errors.Is(err, sim.ErrSessionNotFound) {
		t.Errorf("join of unknown session: got %v, want ErrSessionNotFound", err)
	}

	conn, trackID, err := sm.Join(id, "ALPHA")
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	if conn == "" || trackID == "" {
		t.Fatalf("empty connection token or track id")
	}

	update, err := sm.GetStateUpdate(conn)
	if err != nil {
		t.Fatalf("GetStateUpdate: %v", err)
	}
	if update.Snapshot.Session.ID != id {
		t.Errorf("snapshot session: got %q, want %q", update.Snapshot.Session.ID, id)
	}
	if len(update.Snapshot.Tracks) != 1 || update.Snapshot.Tracks[0].ID != trackID {
		t.Errorf("snapshot tracks: %+v", update.Snapshot.Tracks)
	}

	if _, err := sm.GetStateUpdate("bogus"); !errors.Is(err, ErrInvalidConnectionToken) {
		t.Errorf("bogus token: got %v, want ErrInvalidConnectionToken", err)
	}
}

func TestClaimOwnerFlow(t *testing.T) {
	sm := makeTestManager(t)

	id, token := sm.CreateSession("drill", 40000)
	conn, trackID, err := sm.Join(id, "ALPHA")
	if err != nil {
		t.Fatalf("Join: %v", err)
	}

	if err := sm.ClaimOwner(conn, id, "wrong"); !errors.Is(err, sim.ErrBadToken) {
		t.Errorf("wrong token: got %v, want ErrBadToken", err)
	}
	if err := sm.ClaimOwner(conn, "NOSUCH", token); !errors.Is(err, sim.ErrSessionNotFound) {
		t.Errorf("wrong session: got %v, want ErrSessionNotFound", err)
	}
	if err := sm.ClaimOwner("bogus", id, token); !errors.Is(err, ErrInvalidConnectionToken) {
		t.Errorf("bogus connection: got %v, want ErrInvalidConnectionToken", err)
	}

	if err := sm.ClaimOwner(conn, id, token); err != nil {
		t.Fatalf("ClaimOwner: %v", err)
	}

	update, err := sm.GetStateUpdate(conn)
	if err != nil {
		t.Fatalf("GetStateUpdate: %v", err)
	}
	if update.Snapshot.Session.OwnerID != trackID {
		t.Errorf("owner: got %v, want %v", update.Snapshot.Session.OwnerID, trackID)
	}
}

func TestClaimRateLimit(t *testing.T) {
	sm := makeTestManager(t)

	id, token := sm.CreateSession("drill", 40000)
	conn, _, err := sm.Join(id, "ALPHA")
	if err != nil {
		t.Fatalf("Join: %v", err)
	}

	for range maxClaimAttemptsPerMinute {
		if err := sm.ClaimOwner(conn, id, "wrong"); !errors.Is(err, sim.ErrBadToken) {
			t.Fatalf("got %v, want ErrBadToken", err)
		}
	}

	// Over the limit even the correct token is refused, and opaquely so.
	if err := sm.ClaimOwner(conn, id, token); !errors.Is(err, sim.ErrBadToken) {
		t.Errorf("over-limit claim: got %v, want ErrBadToken", err)
	}

	// The limit is tied to the exercise, not the connection: rejoining
	// for a fresh connection token doesn't buy more attempts.
	conn2, _, err := sm.Join(id, "BRAVO")
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	if err := sm.ClaimOwner(conn2, id, token); !errors.Is(err, sim.ErrBadToken) {
		t.Errorf("claim after rejoin: got %v, want ErrBadToken", err)
	}

	// Other exercises have their own budgets.
	id2, token2 := sm.CreateSession("other drill", 40000)
	conn3, trackID3, err := sm.Join(id2, "ALPHA")
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	if err := sm.ClaimOwner(conn3, id2, token2); err != nil {
		t.Fatalf("claim in unaffected exercise: %v", err)
	}
	if update, err := sm.GetStateUpdate(conn3); err != nil {
		t.Fatalf("GetStateUpdate: %v", err)
	} else if update.Snapshot.Session.OwnerID != trackID3 {
		t.Errorf("owner: got %v, want %v", update.Snapshot.Session.OwnerID, trackID3)
	}
}

func TestSignOff(t *testing.T) {
	sm := makeTestManager(t)

	id, _ := sm.CreateSession("drill", 40000)
	conn, _, err := sm.Join(id, "ALPHA")
	if err != nil {
		t.Fatalf("Join: %v", err)
	}

	if err := sm.SignOff(conn); err != nil {
		t.Fatalf("SignOff: %v", err)
	}
	// Duplicate disconnect notifications are harmless.
	if err := sm.SignOff(conn); err != nil {
		t.Fatalf("second SignOff: %v", err)
	}

	if _, err := sm.GetStateUpdate(conn); !errors.Is(err, ErrInvalidConnectionToken) {
		t.Errorf("state update after sign off: got %v, want ErrInvalidConnectionToken", err)
	}

	// The callsign frees up immediately.
	if _, _, err := sm.Join(id, "ALPHA"); err != nil {
		t.Errorf("rejoin after sign off: %v", err)
	}
}

func TestPlayerLeftEventDelivery(t *testing.T) {
	sm := makeTestManager(t)

	id, _ := sm.CreateSession("drill", 40000)
	alpha, _, err := sm.Join(id, "ALPHA")
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	bravo, bravoTrack, err := sm.Join(id, "BRAVO")
	if err != nil {
		t.Fatalf("Join: %v", err)
	}

	// Drain anything pending, then have BRAVO leave.
	if _, err := sm.GetStateUpdate(alpha); err != nil {
		t.Fatalf("GetStateUpdate: %v", err)
	}
	if err := sm.SignOff(bravo); err != nil {
		t.Fatalf("SignOff: %v", err)
	}

	update, err := sm.GetStateUpdate(alpha)
	if err != nil {
		t.Fatalf("GetStateUpdate: %v", err)
	}
	found := false
	for _, ev := range update.Events {
		if ev.Type == sim.PlayerLeftEvent && ev.TrackID == bravoTrack {
			found = true
		}
	}
	if !found {
		t.Errorf("no player-left event delivered; events: %+v", update.Events)
	}
	if len(update.Snapshot.Tracks) != 1 {
		t.Errorf("tracks after sign off: %+v", update.Snapshot.Tracks)
	}
}

func TestErrorCodes(t *testing.T) {
	for _, tc := range []struct {
		err  error
		want string
	}{
		{nil, ""},
		{sim.ErrSessionNotFound, "SESSION_NOT_FOUND"},
		{sim.ErrNotOwner, "NOT_OWNER"},
		{sim.ErrBadToken, "BAD_TOKEN"},
		{sim.ErrCallsignTaken, "CALLSIGN_TAKEN"},
		{sim.ErrNPCNotFound, "NPC_NOT_FOUND"},
		{errors.New("boom"), "INTERNAL"},
	} {
		if got := ErrorCode(tc.err); got != tc.want {
			t.Errorf("ErrorCode(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}

func TestTryDecodeError(t *testing.T) {
	// Simulate the string flattening net/rpc does to errors.
	flattened := errors.New(sim.ErrNotOwner.Error())
	if got := TryDecodeError(flattened); !errors.Is(got, sim.ErrNotOwner) {
		t.Errorf("TryDecodeError: got %v, want ErrNotOwner", got)
	}

	other := errors.New("some other failure")
	if got := TryDecodeError(other); got != other {
		t.Errorf("TryDecodeError changed an unknown error: %v", got)
	}
	if TryDecodeError(nil) != nil {
		t.Errorf("TryDecodeError(nil) != nil")
	}
}
