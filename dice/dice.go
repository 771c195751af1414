// Package dice rolls the two six-sided dice that drive movement.
//
// A Roller built from the same seed always produces the same sequence of
// rolls, which keeps tests deterministic. Production rollers are seeded from
// crypto/rand via NewSeed.
package dice

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand"
	"sync"
)

const (
	Sides = 6
	Count = 2

	// MinTotal and MaxTotal bound the sum of one roll.
	MinTotal = Count
	MaxTotal = Count * Sides
)

// Result is one throw of both dice.
type Result struct {
	Dice  []int `json:"dice"`
	Total int   `json:"total"`
}

type Roller interface {
	Roll() Result
}

// RandRoller is a Roller backed by math/rand. It is safe for concurrent use.
type RandRoller struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewRoller(seed int64) *RandRoller {
	return &RandRoller{rng: rand.New(rand.NewSource(seed))}
}

func (r *RandRoller) Roll() Result {
	r.mu.Lock()
	defer r.mu.Unlock()

	faces := make([]int, Count)
	total := 0
	for i := range faces {
		faces[i] = r.rng.Intn(Sides) + 1
		total += faces[i]
	}
	return Result{Dice: faces, Total: total}
}

// NewSeed generates a random seed using crypto/rand.
func NewSeed() (int64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}
	return int64(binary.LittleEndian.Uint64(b[:])), nil
}

// ValidTotal reports whether total is a possible sum of one roll.
func ValidTotal(total int) bool {
	return total >= MinTotal && total <= MaxTotal
}
