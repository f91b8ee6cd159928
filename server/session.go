// server/session.go
// Copyright(c) 2025 Tactical Maneuvering Game contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package server

import (
	"log/slog"
	"time"

	"github.com/SortaSovereign/Tactical-Maneuvering-Game/log"
	"github.com/SortaSovereign/Tactical-Maneuvering-Game/sim"
)

const (
	// A connection that hasn't polled for state in this long gets a
	// warning posted to the exercise.
	idleConnectionWarning = 5 * time.Second
	// ...and after this long it is signed off outright.
	idleConnectionSignOff = 15 * time.Second
)

// connection is one client's standing in an exercise: its secret token,
// the track it controls, and the event subscription its state-update
// polls drain.
type connection struct {
	token   string
	session *simSession
	trackID sim.TrackID
	events  *sim.EventsSubscription

	lastUpdateCall time.Time
	warnedIdle     bool
}

func (c *connection) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("session", c.session.sim.ID),
		slog.String("track", string(c.trackID)),
		slog.Time("last_update_call", c.lastUpdateCall))
}

// simSession pairs an exercise with the connections currently attached
// to it.
type simSession struct {
	sim         *sim.Sim
	connections map[string]*connection

	// emptySince is set when the last connection leaves and cleared on
	// join; the manager tears down sessions that stay empty too long.
	emptySince time.Time
}

func newSimSession(s *sim.Sim) *simSession {
	return &simSession{
		sim:         s,
		connections: make(map[string]*connection),
		emptySince:  time.Now(),
	}
}

func (ss *simSession) addConnection(c *connection) {
	ss.connections[c.token] = c
	ss.emptySince = time.Time{}
}

func (ss *simSession) removeConnection(token string) {
	delete(ss.connections, token)
	if len(ss.connections) == 0 {
		ss.emptySince = time.Now()
	}
}

// cullIdleConnections returns the connections that have gone silent past
// the sign-off limit, posting a warning into the exercise for ones past
// the warning limit. The caller is responsible for actually signing the
// returned connections off.
func (ss *simSession) cullIdleConnections(lg *log.Logger) []*connection {
	var cull []*connection
	for _, c := range ss.connections {
		idle := time.Since(c.lastUpdateCall)
		if idle > idleConnectionSignOff {
			lg.Info("culling idle connection", slog.Any("connection", c),
				slog.Duration("idle", idle))
			cull = append(cull, c)
		} else if idle > idleConnectionWarning && !c.warnedIdle {
			c.warnedIdle = true
			if t, ok := ss.sim.GetTrack(c.trackID); ok {
				ss.sim.PostStatusMessage(t.Callsign + " appears to have lost their connection")
			}
		}
	}
	return cull
}
