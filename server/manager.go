// server/manager.go
// Copyright(c) 2025 Tactical Maneuvering Game contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package server

import (
	"crypto/rand"
	"encoding/base64"
	"log/slog"
	"time"

	"github.com/SortaSovereign/Tactical-Maneuvering-Game/log"
	mrand "github.com/SortaSovereign/Tactical-Maneuvering-Game/rand"
	"github.com/SortaSovereign/Tactical-Maneuvering-Game/sim"
	"github.com/SortaSovereign/Tactical-Maneuvering-Game/util"

	"github.com/goforj/godump"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

const sessionCodeLength = 6

// Failed owner-claim attempts per exercise per minute before further
// claims against it are refused. Keying by exercise rather than by
// connection means rejoining for a fresh connection token doesn't reset
// the budget.
const maxClaimAttemptsPerMinute = 5

// SessionManager owns every exercise in the process, the connections
// attached to them, and the single scheduler loop that ticks them all.
type SessionManager struct {
	mu util.LoggingMutex
	lg *log.Logger

	config   Config
	registry *sim.TrackRegistry

	sessions    map[string]*simSession // by session code
	connections map[string]*connection // by connection token

	rng           *mrand.Rand
	claimAttempts *expirable.LRU[string, int] // failed claims by session code

	startTime time.Time
	done      chan struct{}
}

func NewSessionManager(config Config, lg *log.Logger) *SessionManager {
	return &SessionManager{
		lg:            lg,
		config:        config,
		registry:      sim.NewTrackRegistry(lg),
		sessions:      make(map[string]*simSession),
		connections:   make(map[string]*connection),
		rng:           mrand.Make(),
		claimAttempts: expirable.NewLRU[string, int](1024, nil, time.Minute),
		startTime:     time.Now(),
		done:          make(chan struct{}),
	}
}

// makeOwnerToken returns an unguessable secret for reclaiming the guide
// seat; connection tokens use the same shape.
func makeOwnerToken() string {
	b := make([]byte, 16)
	rand.Read(b)
	return base64.RawStdEncoding.EncodeToString(b)
}

///////////////////////////////////////////////////////////////////////////
// Session lifecycle

// CreateSession makes a new exercise and returns its code and the owner
// token. The creator still joins like everyone else and then claims the
// guide seat with the token.
func (sm *SessionManager) CreateSession(name string, rangeYds float32) (string, string) {
	sm.mu.Lock(sm.lg)
	defer sm.mu.Unlock(sm.lg)

	var id string
	for {
		id = sm.rng.SessionCode(sessionCodeLength)
		if _, ok := sm.sessions[id]; !ok {
			break
		}
	}
	token := makeOwnerToken()

	s := sim.NewSim(sim.Config{
		ID:               id,
		Name:             name,
		RangeYds:         rangeYds,
		OwnerToken:       token,
		NavMinInterval:   sm.config.NavMinInterval,
		RecorderCapacity: sm.config.RecorderCapacity,
	}, sm.registry, sm.lg)
	sm.sessions[id] = newSimSession(s)

	sm.lg.Info("created exercise", slog.String("session", id), slog.String("name", name))
	return id, token
}

// Join attaches a client to an exercise, creating its track and issuing
// the connection token everything else is addressed by.
func (sm *SessionManager) Join(sessionID, callsign string) (string, sim.TrackID, error) {
	sm.mu.Lock(sm.lg)
	defer sm.mu.Unlock(sm.lg)

	ss, ok := sm.sessions[sessionID]
	if !ok {
		return "", "", sim.ErrSessionNotFound
	}

	trackID, err := ss.sim.Join(callsign)
	if err != nil {
		return "", "", err
	}

	c := &connection{
		token:          makeOwnerToken(),
		session:        ss,
		trackID:        trackID,
		events:         ss.sim.Subscribe(),
		lastUpdateCall: time.Now(),
	}
	ss.addConnection(c)
	sm.connections[c.token] = c

	return c.token, trackID, nil
}

// LookupConnection resolves a connection token; nil if unknown.
func (sm *SessionManager) LookupConnection(token string) *connection {
	sm.mu.Lock(sm.lg)
	defer sm.mu.Unlock(sm.lg)

	return sm.connections[token]
}

// LookupSession resolves a session code; nil if unknown.
func (sm *SessionManager) LookupSession(id string) *sim.Sim {
	sm.mu.Lock(sm.lg)
	defer sm.mu.Unlock(sm.lg)

	if ss, ok := sm.sessions[id]; ok {
		return ss.sim
	}
	return nil
}

// SignOff detaches a connection and removes its track. Unknown tokens are
// ignored: disconnect notifications can race and repeat.
func (sm *SessionManager) SignOff(token string) error {
	sm.mu.Lock(sm.lg)
	c, ok := sm.connections[token]
	if ok {
		delete(sm.connections, token)
		c.session.removeConnection(token)
	}
	sm.mu.Unlock(sm.lg)

	if ok {
		c.events.Unsubscribe()
		c.session.sim.SignOff(c.trackID)
	}
	return nil
}

// ClaimOwner rebinds an exercise's guide seat to the calling connection's
// track. Failed attempts are rate-limited per exercise; failures are
// opaque.
func (sm *SessionManager) ClaimOwner(token, sessionID, ownerToken string) error {
	c := sm.LookupConnection(token)
	if c == nil {
		return ErrInvalidConnectionToken
	}
	if c.session.sim.ID != sessionID {
		return sim.ErrSessionNotFound
	}

	attempts, _ := sm.claimAttempts.Get(sessionID)
	if attempts >= maxClaimAttemptsPerMinute {
		sm.lg.Warn("too many owner claim attempts", slog.String("session", sessionID),
			slog.Any("connection", c))
		return sim.ErrBadToken
	}

	if err := c.session.sim.ClaimOwner(c.trackID, ownerToken); err != nil {
		sm.claimAttempts.Add(sessionID, attempts+1)
		return err
	}
	return nil
}

// StateUpdate is what a client's periodic poll returns: the full
// snapshot plus any events posted since its last poll.
type StateUpdate struct {
	Snapshot sim.Snapshot `json:"snapshot"`
	Events   []sim.Event  `json:"events,omitempty"`
}

// GetStateUpdate builds the poll response for one connection and marks it
// live for idle-culling purposes.
func (sm *SessionManager) GetStateUpdate(token string) (*StateUpdate, error) {
	sm.mu.Lock(sm.lg)
	c, ok := sm.connections[token]
	if ok {
		c.lastUpdateCall = time.Now()
		c.warnedIdle = false
	}
	sm.mu.Unlock(sm.lg)

	if !ok {
		return nil, ErrInvalidConnectionToken
	}
	return &StateUpdate{
		Snapshot: c.session.sim.GetSnapshot(),
		Events:   c.events.Get(),
	}, nil
}

///////////////////////////////////////////////////////////////////////////
// Scheduler

// RunUpdateLoop is the single fixed-cadence driver for all exercises; it
// runs until Stop is called.
func (sm *SessionManager) RunUpdateLoop() {
	defer sm.lg.CatchAndReportCrash()

	ticker := time.NewTicker(sm.config.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-sm.done:
			return
		case now := <-ticker.C:
			sm.updateAllSessions(now)
		}
	}
}

func (sm *SessionManager) Stop() {
	close(sm.done)
}

func (sm *SessionManager) updateAllSessions(now time.Time) {
	sm.mu.Lock(sm.lg)
	sessions := make([]*simSession, 0, len(sm.sessions))
	for _, ss := range sm.sessions {
		sessions = append(sessions, ss)
	}
	sm.mu.Unlock(sm.lg)

	for _, ss := range sessions {
		start := time.Now()
		ss.sim.Update(now)
		if elapsed := time.Since(start); elapsed > sm.config.TickInterval {
			sm.lg.Warn("slow session update", slog.String("session", ss.sim.ID),
				slog.Duration("elapsed", elapsed),
				slog.String("state", godump.DumpStr(ss.sim.GetSnapshot())))
		}

		for _, c := range sm.cullForSession(ss) {
			sm.SignOff(c.token)
		}
	}

	sm.reapIdleSessions()
}

func (sm *SessionManager) cullForSession(ss *simSession) []*connection {
	sm.mu.Lock(sm.lg)
	defer sm.mu.Unlock(sm.lg)

	return ss.cullIdleConnections(sm.lg)
}

// reapIdleSessions destroys exercises that have had no connections for
// longer than the configured idle limit.
func (sm *SessionManager) reapIdleSessions() {
	sm.mu.Lock(sm.lg)
	var reap []*simSession
	for id, ss := range sm.sessions {
		if !ss.emptySince.IsZero() && time.Since(ss.emptySince) > sm.config.SessionIdleLimit {
			delete(sm.sessions, id)
			reap = append(reap, ss)
		}
	}
	sm.mu.Unlock(sm.lg)

	for _, ss := range reap {
		sm.lg.Info("reaping idle exercise", slog.String("session", ss.sim.ID))
		ss.sim.Destroy()
	}
}
