// sim/sim.go
// Copyright(c) 2025 Tactical Maneuvering Game contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sim

import (
	"io"
	"log/slog"
	"time"

	"github.com/SortaSovereign/Tactical-Maneuvering-Game/log"
	"github.com/SortaSovereign/Tactical-Maneuvering-Game/math"
	"github.com/SortaSovereign/Tactical-Maneuvering-Game/util"

	"github.com/brunoga/deep"
)

const (
	MinRangeYds = 2000
	MaxRangeYds = 300000

	// DefaultNavMinInterval is the minimum spacing between accepted nav
	// updates for one track; extra updates inside the window are dropped.
	DefaultNavMinInterval = 100 * time.Millisecond
)

// Sim is one exercise: its configuration and lifecycle flags, the NPC
// spawn queue, the event stream its clients drain, and the optional
// recording. Track state itself lives in the shared TrackRegistry; the
// Sim is the only thing that mutates tracks of its session.
//
// All methods take the sim mutex, so each client operation and each
// scheduler tick is a single non-interleaved step.
type Sim struct {
	ID        string
	Name      string
	CreatedAt time.Time

	mu util.LoggingMutex
	lg *log.Logger

	registry *TrackRegistry

	RangeYds   float32
	OwnerToken string // secret; never included in snapshots
	OwnerID    TrackID
	Started    bool
	Paused     bool

	NavMinInterval time.Duration

	pending []PendingSpawn

	eventStream *EventStream
	recorder    *Recorder
	recording   bool
}

// Config gives an exercise's settings, fixed at creation.
type Config struct {
	ID         string
	Name       string
	RangeYds   float32
	OwnerToken string

	NavMinInterval   time.Duration // zero selects DefaultNavMinInterval
	RecorderCapacity int           // zero selects DefaultRecorderCapacity
}

func NewSim(config Config, registry *TrackRegistry, lg *log.Logger) *Sim {
	lg = lg.With(slog.String("session", config.ID))
	if config.NavMinInterval <= 0 {
		config.NavMinInterval = DefaultNavMinInterval
	}
	return &Sim{
		ID:             config.ID,
		Name:           config.Name,
		CreatedAt:      time.Now(),
		lg:             lg,
		registry:       registry,
		RangeYds:       math.Clamp(config.RangeYds, MinRangeYds, MaxRangeYds),
		OwnerToken:     config.OwnerToken,
		NavMinInterval: config.NavMinInterval,
		eventStream:    NewEventStream(lg),
		recorder:       NewRecorder(config.RecorderCapacity),
	}
}

// Subscribe returns an event subscription for one connected client;
// events are how scenario updates and departures reach clients between
// snapshots.
func (s *Sim) Subscribe() *EventsSubscription {
	return s.eventStream.Subscribe()
}

// Destroy tears the exercise down: every track of the session is removed
// and the event stream is shut down.
func (s *Sim) Destroy() {
	s.mu.Lock(s.lg)
	defer s.mu.Unlock(s.lg)

	for _, t := range s.registry.ListForSession(s.ID) {
		s.registry.Remove(t.ID)
	}
	s.eventStream.Destroy()
	s.lg.Info("destroyed exercise")
}

// GetTrack returns a copy of one of the exercise's tracks.
func (s *Sim) GetTrack(id TrackID) (Track, bool) {
	t, ok := s.registry.Get(id)
	if !ok || t.SessionID != s.ID {
		return Track{}, false
	}
	return t, true
}

// PostStatusMessage sends a free-text status line to the exercise's
// clients.
func (s *Sim) PostStatusMessage(text string) {
	s.eventStream.Post(Event{Type: StatusMessageEvent, WrittenText: text})
}

// TrackCount returns the number of live tracks in the exercise.
func (s *Sim) TrackCount() int {
	s.mu.Lock(s.lg)
	defer s.mu.Unlock(s.lg)

	return len(s.registry.ListForSession(s.ID))
}

///////////////////////////////////////////////////////////////////////////
// Joining and leaving

// Join creates a player track for a newly connected client. The callsign
// must be unique among the exercise's live tracks.
func (s *Sim) Join(callsign string) (TrackID, error) {
	s.mu.Lock(s.lg)
	defer s.mu.Unlock(s.lg)

	id, err := s.registry.Create(Track{
		SessionID:  s.ID,
		Callsign:   callsign,
		Role:       RolePlayer,
		LastUpdate: time.Now(),
	})
	if err != nil {
		return "", err
	}

	s.lg.Info("player joined", slog.String("callsign", callsign), slog.String("track", string(id)))
	s.eventStream.Post(Event{
		Type:        StatusMessageEvent,
		TrackID:     id,
		WrittenText: NormalizeCallsign(callsign) + " has joined the exercise",
	})
	return id, nil
}

// SignOff removes a departing client's track. Signing off an already
// removed track is a no-op, since disconnect can be reported more than
// once. If the departing track holds the guide seat, OwnerID is left in
// place: the seat stays reserved for a token reclaim.
func (s *Sim) SignOff(id TrackID) {
	s.mu.Lock(s.lg)
	defer s.mu.Unlock(s.lg)

	t, ok := s.registry.Get(id)
	if !ok || t.SessionID != s.ID {
		return
	}
	s.registry.Remove(id)

	s.lg.Info("player left", slog.String("callsign", t.Callsign), slog.String("track", string(id)))
	s.eventStream.Post(Event{Type: PlayerLeftEvent, TrackID: id, Callsign: t.Callsign})
	s.eventStream.Post(Event{
		Type:        StatusMessageEvent,
		TrackID:     id,
		WrittenText: t.Callsign + " has left the exercise",
	})
}

///////////////////////////////////////////////////////////////////////////
// Ownership

// ClaimOwner binds guide privileges to the presenting track if the token
// matches. A prior guide track, if still live, is demoted to a regular
// player. Failure is deliberately opaque: only ErrBadToken comes back, so
// a caller can't probe which part of the tuple was wrong.
func (s *Sim) ClaimOwner(id TrackID, token string) error {
	s.mu.Lock(s.lg)
	defer s.mu.Unlock(s.lg)

	t, ok := s.registry.Get(id)
	if !ok || t.SessionID != s.ID {
		return ErrTrackNotInSession
	}
	if token != s.OwnerToken {
		s.lg.Warn("owner claim with bad token", slog.String("track", string(id)))
		return ErrBadToken
	}

	if s.OwnerID != "" && s.OwnerID != id {
		s.registry.Modify(s.OwnerID, func(prev *Track) { prev.Role = RolePlayer })
	}
	s.registry.Modify(id, func(t *Track) { t.Role = RoleGuide })
	s.OwnerID = id

	s.lg.Info("owner claimed", slog.String("callsign", t.Callsign), slog.String("track", string(id)))
	s.eventStream.Post(Event{Type: OwnerChangedEvent, TrackID: id, Callsign: t.Callsign})
	s.eventStream.Post(Event{
		Type:        StatusMessageEvent,
		TrackID:     id,
		WrittenText: t.Callsign + " is now the exercise guide",
	})
	return nil
}

// requester must hold the guide seat; the sim mutex must be held.
func (s *Sim) checkOwner(requester TrackID) error {
	if s.OwnerID == "" || requester != s.OwnerID {
		return ErrNotOwner
	}
	return nil
}

///////////////////////////////////////////////////////////////////////////
// Owner-gated configuration

// SetRange sets the display range, clamped rather than rejected so a
// sloppy client request still lands on something usable.
func (s *Sim) SetRange(requester TrackID, rangeYds float32) error {
	s.mu.Lock(s.lg)
	defer s.mu.Unlock(s.lg)

	if err := s.checkOwner(requester); err != nil {
		return err
	}

	s.RangeYds = math.Clamp(rangeYds, MinRangeYds, MaxRangeYds)
	s.lg.Info("range set", slog.Any("range_yds", s.RangeYds))
	return nil
}

// SetPaused freezes or resumes integration. Both directions advance every
// live track's LastUpdate to now: on pause so the frozen interval never
// accumulates, on resume so the next tick integrates only post-resume
// time. Without this a resume would teleport everything.
func (s *Sim) SetPaused(requester TrackID, paused bool) error {
	s.mu.Lock(s.lg)
	defer s.mu.Unlock(s.lg)

	if err := s.checkOwner(requester); err != nil {
		return err
	}
	if s.Paused == paused {
		return nil
	}

	now := time.Now()
	for _, t := range s.registry.ListForSession(s.ID) {
		s.registry.Modify(t.ID, func(t *Track) { t.LastUpdate = now })
	}
	s.Paused = paused

	s.lg.Info("pause state changed", slog.Bool("paused", paused))
	s.eventStream.Post(Event{
		Type:        StatusMessageEvent,
		WrittenText: util.Select(paused, "The exercise is paused", "The exercise is resumed"),
	})
	return nil
}

///////////////////////////////////////////////////////////////////////////
// Scenario

// Start re-anchors the scenario around the owner's current position:
// each placement moves an already-joined track to the given bearing and
// distance from the owner, all previous NPCs are replaced by the given
// ones (positioned the same way), and the spawn queue is emptied. It runs
// under one mutex hold, so no tick or snapshot ever sees a half-placed
// scenario.
func (s *Sim) Start(requester TrackID, placements []Placement, npcs []NPCPlacement) error {
	s.mu.Lock(s.lg)
	defer s.mu.Unlock(s.lg)

	if err := s.checkOwner(requester); err != nil {
		return err
	}
	owner, ok := s.registry.Get(s.OwnerID)
	if !ok {
		return ErrTrackNotFound
	}

	now := time.Now()

	for _, t := range s.registry.ListForSession(s.ID) {
		if t.Role == RoleNPC {
			s.registry.Remove(t.ID)
		}
	}
	s.pending = nil

	for _, p := range placements {
		t, ok := s.registry.Get(p.TrackID)
		if !ok || t.SessionID != s.ID {
			// Membership may have changed since the owner built the
			// scenario; skip rather than fail the whole start.
			s.lg.Warn("placement for unknown track", slog.String("track", string(p.TrackID)))
			continue
		}
		pos := math.Add2f(owner.Position, math.OffsetFromBearingDistance(p.BearingDeg, p.DistanceYds))
		s.registry.Modify(p.TrackID, func(t *Track) {
			t.Position = pos
			t.CourseDeg = derefOr(p.CourseDeg, t.CourseDeg)
			t.SpeedKts = derefOr(p.SpeedKts, t.SpeedKts)
			t.LastUpdate = now
		})
	}

	for _, n := range npcs {
		s.activateNPC(NPCSpec{
			Callsign:  n.Callsign,
			Position:  math.Add2f(owner.Position, math.OffsetFromBearingDistance(n.BearingDeg, n.DistanceYds)),
			CourseDeg: n.CourseDeg,
			SpeedKts:  n.SpeedKts,
		})
	}

	for _, t := range s.registry.ListForSession(s.ID) {
		s.registry.Modify(t.ID, func(t *Track) { t.LastUpdate = now })
	}
	s.Started = true
	s.Paused = false

	s.lg.Info("scenario started", slog.Int("placements", len(placements)), slog.Int("npcs", len(npcs)))
	s.postScenarioUpdate()
	s.eventStream.Post(Event{Type: StatusMessageEvent, WrittenText: "The scenario has started"})
	return nil
}

// AddNPC spawns an NPC at an absolute position, after delay if non-zero.
func (s *Sim) AddNPC(requester TrackID, spec NPCSpec, delay time.Duration) error {
	s.mu.Lock(s.lg)
	defer s.mu.Unlock(s.lg)

	if err := s.checkOwner(requester); err != nil {
		return err
	}
	if err := s.enqueueNPC(spec, delay); err != nil {
		return err
	}
	s.postScenarioUpdate()
	return nil
}

// ClearScenario removes all NPC tracks, empties the spawn queue, and
// disarms the scenario.
func (s *Sim) ClearScenario(requester TrackID) error {
	s.mu.Lock(s.lg)
	defer s.mu.Unlock(s.lg)

	if err := s.checkOwner(requester); err != nil {
		return err
	}

	for _, t := range s.registry.ListForSession(s.ID) {
		if t.Role == RoleNPC {
			s.registry.Remove(t.ID)
		}
	}
	s.pending = nil
	s.Started = false

	s.lg.Info("scenario cleared")
	s.postScenarioUpdate()
	return nil
}

// NPCPlacement describes an NPC to create at scenario start, positioned
// by bearing and distance from the owner like player placements.
type NPCPlacement struct {
	Callsign    string  `json:"callsign"`
	BearingDeg  float32 `json:"bearing_deg"`
	DistanceYds float32 `json:"distance_yds"`
	CourseDeg   float32 `json:"course_deg"`
	SpeedKts    float32 `json:"speed_kts"`
}

///////////////////////////////////////////////////////////////////////////
// Nav updates

// SetNav updates a player track's course and/or speed. Updates are
// rate-limited per track; one inside the minimum interval is dropped
// without error, trading input latency for flood protection.
func (s *Sim) SetNav(id TrackID, courseDeg, speedKts *float32) error {
	s.mu.Lock(s.lg)
	defer s.mu.Unlock(s.lg)

	t, ok := s.registry.Get(id)
	if !ok || t.SessionID != s.ID {
		return ErrTrackNotInSession
	}

	now := time.Now()
	if now.Sub(t.LastNavSet) < s.NavMinInterval {
		s.lg.Debug("nav update rate-limited", slog.String("track", string(id)))
		return nil
	}

	return s.registry.Modify(id, func(t *Track) {
		t.CourseDeg = derefOr(courseDeg, t.CourseDeg)
		t.SpeedKts = derefOr(speedKts, t.SpeedKts)
		t.LastUpdate = now
		t.LastNavSet = now
	})
}

// SetNPCNav lets the guide steer an NPC track.
func (s *Sim) SetNPCNav(requester, npcID TrackID, courseDeg, speedKts *float32) error {
	s.mu.Lock(s.lg)
	defer s.mu.Unlock(s.lg)

	if err := s.checkOwner(requester); err != nil {
		return err
	}
	t, ok := s.registry.Get(npcID)
	if !ok || t.SessionID != s.ID || t.Role != RoleNPC {
		return ErrNPCNotFound
	}

	now := time.Now()
	return s.registry.Modify(npcID, func(t *Track) {
		t.CourseDeg = derefOr(courseDeg, t.CourseDeg)
		t.SpeedKts = derefOr(speedKts, t.SpeedKts)
		t.LastUpdate = now
	})
}

///////////////////////////////////////////////////////////////////////////
// Recording

// SetRecording toggles per-tick recording. Turning recording off keeps
// what has been captured so far, so it can still be exported.
func (s *Sim) SetRecording(requester TrackID, on bool) (bool, error) {
	s.mu.Lock(s.lg)
	defer s.mu.Unlock(s.lg)

	if err := s.checkOwner(requester); err != nil {
		return s.recording, err
	}
	s.recording = on
	s.lg.Info("recording", slog.Bool("on", on))
	return on, nil
}

// ExportRecording writes the captured recording as CSV.
func (s *Sim) ExportRecording(w io.Writer) error {
	s.mu.Lock(s.lg)
	defer s.mu.Unlock(s.lg)

	return s.recorder.WriteCSV(w)
}

///////////////////////////////////////////////////////////////////////////
// Tick

// Update is one scheduler tick: promote ready spawns, integrate dead
// reckoning through now (or, while paused or unstarted, advance
// LastUpdate with no motion so no time accumulates), and append to the
// recording if enabled.
func (s *Sim) Update(now time.Time) {
	s.mu.Lock(s.lg)
	defer s.mu.Unlock(s.lg)

	if s.promoteReadySpawns(now) {
		s.postScenarioUpdate()
	}

	run := s.Started && !s.Paused
	for _, t := range s.registry.ListForSession(s.ID) {
		s.registry.Modify(t.ID, func(t *Track) {
			if run {
				t.Advance(now)
			} else {
				t.LastUpdate = now
			}
		})
	}

	if s.recording {
		s.recorder.Append(now.UnixMilli(), s.registry.ListForSession(s.ID))
	}
}

///////////////////////////////////////////////////////////////////////////
// Read model

// GetSnapshot builds the client-visible state of the exercise. It never
// mutates anything and never includes the owner token.
func (s *Sim) GetSnapshot() Snapshot {
	s.mu.Lock(s.lg)
	defer s.mu.Unlock(s.lg)

	states := util.MapSlice(s.registry.ListForSession(s.ID), makeTrackState)

	return Snapshot{
		ServerTimeMs: time.Now().UnixMilli(),
		Session: SessionView{
			ID:        s.ID,
			Name:      s.Name,
			CreatedAt: s.CreatedAt,
			RangeYds:  s.RangeYds,
			OwnerID:   s.OwnerID,
			Started:   s.Started,
			Paused:    s.Paused,
		},
		Tracks: states,
	}
}

// GetScenarioStatus returns the spawn queue and active NPC set.
func (s *Sim) GetScenarioStatus() *ScenarioStatus {
	s.mu.Lock(s.lg)
	defer s.mu.Unlock(s.lg)

	return s.scenarioStatus()
}

// the sim mutex must be held
func (s *Sim) scenarioStatus() *ScenarioStatus {
	npcs := util.FilterSlice(s.registry.ListForSession(s.ID),
		func(t Track) bool { return t.Role == RoleNPC })
	return &ScenarioStatus{
		Queue:  deep.MustCopy(s.pending),
		Active: util.MapSlice(npcs, makeTrackState),
	}
}

// the sim mutex must be held
func (s *Sim) postScenarioUpdate() {
	s.eventStream.Post(Event{Type: ScenarioUpdateEvent, Scenario: s.scenarioStatus()})
}
