// server/errors.go
// Copyright(c) 2025 Tactical Maneuvering Game contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package server

import (
	"errors"

	"github.com/SortaSovereign/Tactical-Maneuvering-Game/sim"
)

var ErrInvalidConnectionToken = errors.New("Invalid connection token")

// errorStringToError maps error messages back to the corresponding
// sentinels: net/rpc flattens errors to strings on the wire, and clients
// want errors.Is to keep working on the far side.
var errorStringToError = map[string]error{
	ErrInvalidConnectionToken.Error(): ErrInvalidConnectionToken,
	sim.ErrBadToken.Error():           sim.ErrBadToken,
	sim.ErrCallsignTaken.Error():      sim.ErrCallsignTaken,
	sim.ErrInvalidCallsign.Error():    sim.ErrInvalidCallsign,
	sim.ErrNPCNotFound.Error():        sim.ErrNPCNotFound,
	sim.ErrNotOwner.Error():           sim.ErrNotOwner,
	sim.ErrSessionNotFound.Error():    sim.ErrSessionNotFound,
	sim.ErrTrackNotFound.Error():      sim.ErrTrackNotFound,
	sim.ErrTrackNotInSession.Error():  sim.ErrTrackNotInSession,
}

// TryDecodeError returns the sentinel corresponding to an error that has
// crossed the RPC boundary as a string, or the error unchanged if it
// isn't one of ours.
func TryDecodeError(err error) error {
	if err == nil {
		return nil
	}
	if known, ok := errorStringToError[err.Error()]; ok {
		return known
	}
	return err
}

// ErrorCode returns the protocol code carried in acknowledgments, or ""
// for nil.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, sim.ErrSessionNotFound):
		return "SESSION_NOT_FOUND"
	case errors.Is(err, sim.ErrNotOwner):
		return "NOT_OWNER"
	case errors.Is(err, sim.ErrBadToken):
		return "BAD_TOKEN"
	case errors.Is(err, sim.ErrCallsignTaken), errors.Is(err, sim.ErrInvalidCallsign):
		return "CALLSIGN_TAKEN"
	case errors.Is(err, sim.ErrNPCNotFound):
		return "NPC_NOT_FOUND"
	default:
		return "INTERNAL"
	}
}
