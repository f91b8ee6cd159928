// sim/errors.go
// Copyright(c) 2025 Tactical Maneuvering Game contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sim

import (
	"errors"
)

var (
	ErrBadToken          = errors.New("Owner token does not match")
	ErrCallsignTaken     = errors.New("Callsign already in use in this exercise")
	ErrInvalidCallsign   = errors.New("Invalid callsign")
	ErrNPCNotFound       = errors.New("No NPC track with that id")
	ErrNotOwner          = errors.New("Not the exercise owner")
	ErrSessionNotFound   = errors.New("No exercise with that id")
	ErrTrackNotFound     = errors.New("No track with that id")
	ErrTrackNotInSession = errors.New("Track does not belong to this exercise")
)
