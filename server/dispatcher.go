// server/dispatcher.go
// Copyright(c) 2025 Tactical Maneuvering Game contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package server

import (
	"time"

	"github.com/SortaSovereign/Tactical-Maneuvering-Game/sim"
)

// dispatcher is the closed set of commands a client can send, one RPC
// method per message. Everything past Join is addressed by the
// connection token issued there.
type dispatcher struct {
	sm *SessionManager
}

type CreateSessionArgs struct {
	Name     string  `json:"name"`
	RangeYds float32 `json:"range_yds"`
}

type CreateSessionResult struct {
	SessionID  string `json:"session_id"`
	OwnerToken string `json:"owner_token"`
}

const CreateSessionRPC = "Session.Create"

func (d *dispatcher) Create(args *CreateSessionArgs, result *CreateSessionResult) error {
	// The rpc package spawns a goroutine per request, so each method
	// needs its own crash handler.
	defer d.sm.lg.CatchAndReportCrash()

	result.SessionID, result.OwnerToken = d.sm.CreateSession(args.Name, args.RangeYds)
	return nil
}

type JoinArgs struct {
	SessionID string `json:"session_id"`
	Callsign  string `json:"callsign"`
}

type JoinResult struct {
	ConnectionToken string       `json:"connection_token"`
	TrackID         sim.TrackID  `json:"track_id"`
	Snapshot        sim.Snapshot `json:"snapshot"`
}

const JoinRPC = "Session.Join"

func (d *dispatcher) Join(args *JoinArgs, result *JoinResult) error {
	defer d.sm.lg.CatchAndReportCrash()

	token, trackID, err := d.sm.Join(args.SessionID, args.Callsign)
	if err != nil {
		return err
	}
	result.ConnectionToken = token
	result.TrackID = trackID
	result.Snapshot = d.sm.LookupSession(args.SessionID).GetSnapshot()
	return nil
}

type ClaimOwnerArgs struct {
	ConnectionToken string `json:"connection_token"`
	SessionID       string `json:"session_id"`
	OwnerToken      string `json:"owner_token"`
}

const ClaimOwnerRPC = "Session.ClaimOwner"

func (d *dispatcher) ClaimOwner(args *ClaimOwnerArgs, _ *struct{}) error {
	defer d.sm.lg.CatchAndReportCrash()

	return d.sm.ClaimOwner(args.ConnectionToken, args.SessionID, args.OwnerToken)
}

type SetRangeArgs struct {
	ConnectionToken string  `json:"connection_token"`
	RangeYds        float32 `json:"range_yds"`
}

const SetRangeRPC = "Session.SetRange"

func (d *dispatcher) SetRange(args *SetRangeArgs, _ *struct{}) error {
	defer d.sm.lg.CatchAndReportCrash()

	c := d.sm.LookupConnection(args.ConnectionToken)
	if c == nil {
		return ErrInvalidConnectionToken
	}
	return c.session.sim.SetRange(c.trackID, args.RangeYds)
}

type SetPausedArgs struct {
	ConnectionToken string `json:"connection_token"`
	Paused          bool   `json:"paused"`
}

const SetPausedRPC = "Session.SetPaused"

func (d *dispatcher) SetPaused(args *SetPausedArgs, _ *struct{}) error {
	defer d.sm.lg.CatchAndReportCrash()

	c := d.sm.LookupConnection(args.ConnectionToken)
	if c == nil {
		return ErrInvalidConnectionToken
	}
	return c.session.sim.SetPaused(c.trackID, args.Paused)
}

type StartArgs struct {
	ConnectionToken string             `json:"connection_token"`
	Placements      []sim.Placement    `json:"placements"`
	NPCs            []sim.NPCPlacement `json:"npcs"`
}

const StartRPC = "Session.Start"

func (d *dispatcher) Start(args *StartArgs, _ *struct{}) error {
	defer d.sm.lg.CatchAndReportCrash()

	c := d.sm.LookupConnection(args.ConnectionToken)
	if c == nil {
		return ErrInvalidConnectionToken
	}
	return c.session.sim.Start(c.trackID, args.Placements, args.NPCs)
}

type SetNavArgs struct {
	ConnectionToken string   `json:"connection_token"`
	CourseDeg       *float32 `json:"course_deg,omitempty"`
	SpeedKts        *float32 `json:"speed_kts,omitempty"`
}

const SetNavRPC = "Session.SetNav"

// SetNav has no acknowledgment semantics: rate-limited updates are
// dropped silently inside the sim, and the client never retries.
func (d *dispatcher) SetNav(args *SetNavArgs, _ *struct{}) error {
	defer d.sm.lg.CatchAndReportCrash()

	c := d.sm.LookupConnection(args.ConnectionToken)
	if c == nil {
		return ErrInvalidConnectionToken
	}
	return c.session.sim.SetNav(c.trackID, args.CourseDeg, args.SpeedKts)
}

type SetNPCNavArgs struct {
	ConnectionToken string      `json:"connection_token"`
	NPCID           sim.TrackID `json:"npc_id"`
	CourseDeg       *float32    `json:"course_deg,omitempty"`
	SpeedKts        *float32    `json:"speed_kts,omitempty"`
}

const SetNPCNavRPC = "Session.SetNPCNav"

func (d *dispatcher) SetNPCNav(args *SetNPCNavArgs, _ *struct{}) error {
	defer d.sm.lg.CatchAndReportCrash()

	c := d.sm.LookupConnection(args.ConnectionToken)
	if c == nil {
		return ErrInvalidConnectionToken
	}
	return c.session.sim.SetNPCNav(c.trackID, args.NPCID, args.CourseDeg, args.SpeedKts)
}

type AddNPCArgs struct {
	ConnectionToken string      `json:"connection_token"`
	Spec            sim.NPCSpec `json:"spec"`
	DelaySec        float32     `json:"delay_sec,omitempty"`
}

const AddNPCRPC = "Session.AddNPC"

func (d *dispatcher) AddNPC(args *AddNPCArgs, _ *struct{}) error {
	defer d.sm.lg.CatchAndReportCrash()

	c := d.sm.LookupConnection(args.ConnectionToken)
	if c == nil {
		return ErrInvalidConnectionToken
	}
	delay := time.Duration(args.DelaySec * float32(time.Second))
	return c.session.sim.AddNPC(c.trackID, args.Spec, delay)
}

const ClearScenarioRPC = "Session.ClearScenario"

func (d *dispatcher) ClearScenario(token string, _ *struct{}) error {
	defer d.sm.lg.CatchAndReportCrash()

	c := d.sm.LookupConnection(token)
	if c == nil {
		return ErrInvalidConnectionToken
	}
	return c.session.sim.ClearScenario(c.trackID)
}

type SetRecordingArgs struct {
	ConnectionToken string `json:"connection_token"`
	On              bool   `json:"on"`
}

const SetRecordingRPC = "Session.SetRecording"

func (d *dispatcher) SetRecording(args *SetRecordingArgs, on *bool) error {
	defer d.sm.lg.CatchAndReportCrash()

	c := d.sm.LookupConnection(args.ConnectionToken)
	if c == nil {
		return ErrInvalidConnectionToken
	}
	var err error
	*on, err = c.session.sim.SetRecording(c.trackID, args.On)
	return err
}

const GetStateUpdateRPC = "Session.GetStateUpdate"

func (d *dispatcher) GetStateUpdate(token string, update *StateUpdate) error {
	defer d.sm.lg.CatchAndReportCrash()

	u, err := d.sm.GetStateUpdate(token)
	if err != nil {
		return err
	}
	*update = *u
	return nil
}

const SignOffRPC = "Session.SignOff"

func (d *dispatcher) SignOff(token string, _ *struct{}) error {
	defer d.sm.lg.CatchAndReportCrash()

	return d.sm.SignOff(token)
}
