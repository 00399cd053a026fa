package rules

import (
	"math/rand"
	"time"
)

// Roller produces a pair of dice. The engine owns exactly one roller per
// game so a fixed seed reproduces an entire session.
type Roller interface {
	Roll() (int, int)
}

type randRoller struct {
	rng *rand.Rand
}

// NewRoller returns a uniform two-die roller. A zero seed is replaced by the
// current time.
func NewRoller(seed int64) Roller {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &randRoller{rng: rand.New(rand.NewSource(seed))}
}

func (r *randRoller) Roll() (int, int) {
	return r.rng.Intn(6) + 1, r.rng.Intn(6) + 1
}

// ScriptedRoller replays a fixed sequence of rolls, wrapping at the end.
// Used in tests and in replay verification.
type ScriptedRoller struct {
	Rolls [][2]int
	next  int
}

func (s *ScriptedRoller) Roll() (int, int) {
	if len(s.Rolls) == 0 {
		return 1, 2
	}
	roll := s.Rolls[s.next%len(s.Rolls)]
	s.next++
	return roll[0], roll[1]
}
