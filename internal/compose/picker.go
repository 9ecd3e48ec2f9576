package compose

import (
	"math/rand/v2"
	"sync"
	"time"
)

// Picker chooses an index in [0, n).
type Picker interface {
	Pick(n int) int
}

// RandPicker is a Picker backed by a seeded PCG source. It is safe for
// concurrent use.
type RandPicker struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandPicker returns a picker seeded with seed; seed 0 seeds from the
// clock.
func NewRandPicker(seed int64) *RandPicker {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &RandPicker{rng: rand.New(rand.NewPCG(uint64(seed), uint64(seed)>>1|1))}
}

// Pick implements Picker.
func (p *RandPicker) Pick(n int) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rng.IntN(n)
}

// FirstPicker always picks index 0.
type FirstPicker struct{}

// Pick implements Picker.
func (FirstPicker) Pick(int) int { return 0 }
