// sim/recorder.go
// Copyright(c) 2025 Tactical Maneuvering Game contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sim

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/SortaSovereign/Tactical-Maneuvering-Game/util"
)

// DefaultRecorderCapacity bounds how many ticks a recording retains.
const DefaultRecorderCapacity = 1000

// RecordedTick is one scheduler tick's worth of track states.
type RecordedTick struct {
	ServerTimeMs int64
	Rows         []TrackState
}

// Recorder keeps a bounded history of per-tick track states for
// after-action review; once full, the oldest tick is dropped on append.
// It is not safe for concurrent use; callers serialize through the
// owning Sim.
type Recorder struct {
	capacity int
	ticks    []RecordedTick
}

func NewRecorder(capacity int) *Recorder {
	if capacity <= 0 {
		capacity = DefaultRecorderCapacity
	}
	return &Recorder{capacity: capacity}
}

func (r *Recorder) Append(serverTimeMs int64, tracks []Track) {
	rows := util.MapSlice(tracks, makeTrackState)

	if len(r.ticks) == r.capacity {
		copy(r.ticks, r.ticks[1:])
		r.ticks = r.ticks[:len(r.ticks)-1]
	}
	r.ticks = append(r.ticks, RecordedTick{ServerTimeMs: serverTimeMs, Rows: rows})
}

func (r *Recorder) NumTicks() int { return len(r.ticks) }

// Ticks returns a copy of the recorded history, oldest first.
func (r *Recorder) Ticks() []RecordedTick {
	return util.DuplicateSlice(r.ticks)
}

// WriteCSV exports the recording as a flat table, one row per track per
// tick, in tick order then track creation order within a tick.
func (r *Recorder) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"serverTimeMs", "id", "role", "callsign", "x", "y", "courseDeg", "speedKts"}); err != nil {
		return err
	}

	ff := func(v float32) string { return strconv.FormatFloat(float64(v), 'g', -1, 32) }
	for _, tick := range r.ticks {
		for _, row := range tick.Rows {
			rec := []string{
				strconv.FormatInt(tick.ServerTimeMs, 10),
				string(row.ID),
				row.Role.String(),
				row.Callsign,
				ff(row.Position[0]),
				ff(row.Position[1]),
				ff(row.CourseDeg),
				ff(row.SpeedKts),
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
	}

	cw.Flush()
	return cw.Error()
}
