package scanner

import (
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/raysh454/spectra/internal/model"
)

// Bounds of the simulated defect data.
const (
	MinDefects    = 3
	MaxDefects    = 10
	MinPosition   = 10
	MaxPosition   = 90
	MinSize       = 2
	MaxSize       = 10
	MinConfidence = 0.7
	MaxConfidence = 0.99
)

// DefectSource produces the defects attached to a completed scan.
type DefectSource interface {
	Defects() []model.Defect
}

// DefectGenerator is a DefectSource backed by a seeded PCG generator. It is
// safe for concurrent use.
type DefectGenerator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

var _ DefectSource = (*DefectGenerator)(nil)

// NewDefectGenerator returns a generator seeded with seed. A zero seed picks
// a random one.
func NewDefectGenerator(seed uint64) *DefectGenerator {
	if seed == 0 {
		seed = rand.Uint64()
	}
	return &DefectGenerator{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Defects returns between MinDefects and MaxDefects defects numbered
// DEF001 upward.
func (g *DefectGenerator) Defects() []model.Defect {
	g.mu.Lock()
	defer g.mu.Unlock()

	n := g.between(MinDefects, MaxDefects)
	out := make([]model.Defect, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, model.Defect{
			ID:         fmt.Sprintf("DEF%03d", i+1),
			Type:       model.DefectTypes[g.rng.IntN(len(model.DefectTypes))],
			X:          g.between(MinPosition, MaxPosition),
			Y:          g.between(MinPosition, MaxPosition),
			Width:      g.between(MinSize, MaxSize),
			Height:     g.between(MinSize, MaxSize),
			Confidence: MinConfidence + g.rng.Float64()*(MaxConfidence-MinConfidence),
			Severity:   model.Severities[g.rng.IntN(len(model.Severities))],
		})
	}
	return out
}

// between returns a uniform int in [lo, hi].
func (g *DefectGenerator) between(lo, hi int) int {
	return lo + g.rng.IntN(hi-lo+1)
}
