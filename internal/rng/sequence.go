// Package rng provides the deterministic random sequence consumed by level
// generation. Every value is drawn up front from a seeded source; draws then
// walk the buffer with a wrapping cursor so the order of draws fully
// determines a generated level.
package rng

import (
	"math"
	"math/rand"
	"time"

	"github.com/lawnchairsociety/levelforge/internal/logger"
)

// NoSeed asks for a sequence seeded from the wall clock.
const NoSeed int64 = -1

// DrawsPerRoom is the heuristic number of draws budgeted per room.
const DrawsPerRoom = 6

// Sequence is a fixed buffer of floats in [0,1) with a wrapping cursor.
// It is not safe for concurrent use.
type Sequence struct {
	values []float64
	cursor int
	draws  int
	wraps  int
}

// New fills a sequence of the given length from seed. A seed of NoSeed uses
// ambient entropy. Lengths below 1 are raised to 1.
func New(seed int64, length int) *Sequence {
	if seed == NoSeed {
		seed = time.Now().UnixNano()
	}
	if length < 1 {
		length = 1
	}

	src := rand.New(rand.NewSource(seed))
	values := make([]float64, length)
	for i := range values {
		values[i] = src.Float64()
	}

	return &Sequence{values: values}
}

// ForRooms sizes a sequence for roomAmount rooms.
func ForRooms(seed int64, roomAmount int) *Sequence {
	return New(seed, roomAmount*DrawsPerRoom)
}

// Next advances the cursor and returns the value under it.
func (s *Sequence) Next() float64 {
	s.cursor = (s.cursor + 1) % len(s.values)
	s.draws++
	if s.cursor == 0 {
		s.wraps++
		if s.wraps == 1 {
			logger.Debug("Random sequence wrapped, reusing values", "length", len(s.values), "draws", s.draws)
		}
	}
	return s.values[s.cursor]
}

// Float returns a value in [min, max).
func (s *Sequence) Float(min, max float64) float64 {
	return min + s.Next()*(max-min)
}

// Int returns an integer in [min, maxExclusive).
func (s *Sequence) Int(min, maxExclusive int) int {
	return int(math.Floor(float64(min) + s.Next()*float64(maxExclusive-min)))
}

// Len returns the buffer length
func (s *Sequence) Len() int {
	return len(s.values)
}

// Cursor returns the index of the last value read
func (s *Sequence) Cursor() int {
	return s.cursor
}

// Draws returns how many values have been read
func (s *Sequence) Draws() int {
	return s.draws
}

// Wraps returns how many times the cursor passed the end of the buffer.
// Any non-zero value means earlier values have been reused.
func (s *Sequence) Wraps() int {
	return s.wraps
}
