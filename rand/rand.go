// rand/rand.go
// Copyright(c) 2025 Tactical Maneuvering Game contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package rand

import (
	"time"

	"github.com/MichaelTJones/pcg"
)

///////////////////////////////////////////////////////////////////////////
// Random numbers.

type Rand struct {
	r *pcg.PCG32
}

func Make() *Rand {
	r := &Rand{r: pcg.NewPCG32()}
	r.Seed(time.Now().UnixNano())
	return r
}

func (r *Rand) Seed(s int64) {
	r.r.Seed(uint64(s), 0xda3e39cb94b95bdb)
}

func (r *Rand) Intn(n int) int {
	return int(r.r.Bounded(uint32(n)))
}

func (r *Rand) Int31n(n int32) int32 {
	return int32(r.r.Bounded(uint32(n)))
}

func (r *Rand) Float32() float32 {
	return float32(r.r.Random()) / (1<<32 - 1)
}

func (r *Rand) Uint32() uint32 {
	return r.r.Random()
}

func ShuffleSlice[T any](s []T, r *Rand) {
	for i := len(s) - 1; i > 0; i-- {
		j := r.Intn(i + 1)
		s[i], s[j] = s[j], s[i]
	}
}

func SampleSlice[T any](s []T, r *Rand) T {
	return s[r.Intn(len(s))]
}

// sessionCodeAlphabet leaves out 0/O, 1/I/L and similar lookalikes since
// codes are read over voice channels and typed by hand.
const sessionCodeAlphabet = "ABCDEFGHJKMNPQRSTVWXYZ23456789"

// SessionCode returns an n-character human-typeable code.
func (r *Rand) SessionCode(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = sessionCodeAlphabet[r.Intn(len(sessionCodeAlphabet))]
	}
	return string(b)
}
