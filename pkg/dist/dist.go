// Package dist defines the statistical distribution tags attached to
// tolerance contributors and a seedable sampler for Monte Carlo runs.
package dist

import (
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// Distribution selects the sampling law for a tolerance band.
type Distribution string

const (
	Normal     Distribution = "normal"
	Uniform    Distribution = "uniform"
	Triangular Distribution = "triangular"
)

// Norm returns the distribution with the default applied. An empty tag
// means Normal.
func (d Distribution) Norm() Distribution {
	if d == "" {
		return Normal
	}
	return d
}

// Valid reports whether d names a known distribution after defaulting.
func (d Distribution) Valid() bool {
	switch d.Norm() {
	case Normal, Uniform, Triangular:
		return true
	}
	return false
}

// Source draws reproducible samples. Equal seeds produce equal streams.
type Source struct {
	rng *rand.Rand
}

// NewSource returns a Source seeded with seed.
func NewSource(seed uint64) *Source {
	return &Source{rng: rand.New(rand.NewSource(seed))}
}

// Sample draws one value for a band of total width band centered at center.
// Normal treats the band as sigmaLevel standard deviations wide; Uniform and
// Triangular span the band exactly, with the triangular mode at the center.
func (s *Source) Sample(d Distribution, center, band, sigmaLevel float64) float64 {
	if band <= 0 {
		return center
	}
	switch d.Norm() {
	case Uniform:
		u := distuv.Uniform{Min: center - band/2, Max: center + band/2, Src: s.rng}
		return u.Rand()
	case Triangular:
		return s.triangular(center-band/2, center+band/2, center)
	default:
		n := distuv.Normal{Mu: center, Sigma: band / sigmaLevel, Src: s.rng}
		return n.Rand()
	}
}

// triangular is the inverse-transform draw for a triangular law on
// [min, max] with the given mode.
func (s *Source) triangular(min, max, mode float64) float64 {
	u := s.rng.Float64()
	fc := (mode - min) / (max - min)
	if u < fc {
		return min + math.Sqrt(u*(max-min)*(mode-min))
	}
	return max - math.Sqrt((1-u)*(max-min)*(max-mode))
}
