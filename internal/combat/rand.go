package combat

import (
	"encoding/binary"
	"hash/fnv"
	"math/rand"
)

// Rand wraps a seeded PRNG stream. It exists so the turn engine can hand
// out two independent streams per turn without either package reaching for
// global randomness or a wall clock.
type Rand struct {
	r *rand.Rand
}

// Direction identifies which attacker->defender stream a Rand belongs to.
type Direction string

const (
	DirectionAToB Direction = "A->B"
	DirectionBToA Direction = "B->A"
)

// NewStream derives a deterministic PRNG stream from
// (battleID, matchID, seed, turnIndex, direction). Identical inputs always
// produce an identical stream, in-process or across processes, and the
// A->B stream is independent of the B->A stream for the same turn —
// consuming one draws nothing from the other's sequence.
func NewStream(battleID, matchID string, seed int64, turnIndex int, direction Direction) *Rand {
	h := fnv.New64a()
	h.Write([]byte(battleID))
	h.Write([]byte{0})
	h.Write([]byte(matchID))
	h.Write([]byte{0})
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(seed))
	h.Write(buf[:])
	binary.LittleEndian.PutUint64(buf[:], uint64(int64(turnIndex)))
	h.Write(buf[:])
	h.Write([]byte(direction))

	seeded := int64(h.Sum64())
	if seeded == 0 {
		seeded = 1
	}
	return &Rand{r: rand.New(rand.NewSource(seeded))}
}

// Float64 draws the next uniform value in [0, 1) from the stream.
func (r *Rand) Float64() float64 { return r.r.Float64() }
