package torsor

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/gdtools/tolkit/pkg/dist"
	"github.com/gdtools/tolkit/pkg/feature"
	"github.com/gdtools/tolkit/pkg/stackup"
)

// BoundsSource tags where a contributor's torsor bounds came from.
type BoundsSource string

const (
	SourceGDT     BoundsSource = "gdt"
	SourceDerived BoundsSource = "derived"
)

// ChainContributor is one link in a 3D tolerance chain, built per analysis
// run from a 1D contributor and its feature.
type ChainContributor struct {
	Name         string
	FeatureID    string
	Class        feature.GeometryClass
	Position     [3]float64
	Bounds       feature.TorsorBounds
	Distribution dist.Distribution
	SigmaLevel   float64
	Source       BoundsSource
}

// Jacobian builds the 6x6 transport matrix for a feature at position r.
// The upper-right block is the skew matrix of r: a rotation at a distance
// produces a translation at the assembly origin.
func Jacobian(position [3]float64) *mat.Dense {
	rx, ry, rz := position[0], position[1], position[2]
	j := mat.NewDense(6, 6, nil)
	for i := 0; i < 6; i++ {
		j.Set(i, i, 1)
	}
	j.Set(0, 4, rz)
	j.Set(0, 5, -ry)
	j.Set(1, 3, -rz)
	j.Set(1, 5, rx)
	j.Set(2, 3, ry)
	j.Set(2, 4, -rx)
	return j
}

// intervalOrZero treats an unbounded DOF as exactly zero deviation.
func intervalOrZero(iv *feature.Interval) (float64, float64) {
	if iv == nil {
		return 0, 0
	}
	return iv[0], iv[1]
}

// PropagateWorstCase transports each contributor's extreme bounds through
// its Jacobian and sums signed extremes per DOF.
func PropagateWorstCase(chain []ChainContributor) feature.TorsorBounds {
	var lo, hi [6]float64
	for _, c := range chain {
		j := Jacobian(c.Position)
		for out := 0; out < 6; out++ {
			for in := 0; in < 6; in++ {
				jv := j.At(out, in)
				bMin, bMax := intervalOrZero(c.Bounds.DOF(in))
				a, b := jv*bMin, jv*bMax
				lo[out] += math.Min(a, b)
				hi[out] += math.Max(a, b)
			}
		}
	}
	var out feature.TorsorBounds
	for d := 0; d < 6; d++ {
		out.SetDOF(d, &feature.Interval{lo[d], hi[d]})
	}
	return out
}

// PropagateRSS transports bound centers and variances through the chain.
// Per contributor, sigma on a DOF is its bound range over the sigma level;
// variances add through squared Jacobian entries. The second return value
// is each contributor's variance share per DOF, in percent.
func PropagateRSS(chain []ChainContributor) (stackup.ResultTorsor, [][6]float64) {
	var mean, variance [6]float64
	individual := make([][6]float64, len(chain))

	for i, c := range chain {
		j := Jacobian(c.Position)
		for out := 0; out < 6; out++ {
			for in := 0; in < 6; in++ {
				jv := j.At(out, in)
				bMin, bMax := intervalOrZero(c.Bounds.DOF(in))
				mean[out] += jv * (bMin + bMax) / 2
				sigma := (bMax - bMin) / c.SigmaLevel
				v := jv * jv * sigma * sigma
				variance[out] += v
				individual[i][out] += v
			}
		}
	}

	var result stackup.ResultTorsor
	for d := 0; d < 6; d++ {
		st := result.DOF(d)
		st.RSSMean = mean[d]
		st.RSS3Sig = 3 * math.Sqrt(variance[d])
	}

	sensitivity := make([][6]float64, len(chain))
	for i := range chain {
		for d := 0; d < 6; d++ {
			if variance[d] > 0 {
				sensitivity[i][d] = individual[i][d] / variance[d] * 100
			}
		}
	}
	return result, sensitivity
}

// sampleTorsor draws one 6-vector within the contributor's bounds.
func sampleTorsor(src *dist.Source, c *ChainContributor) [6]float64 {
	var t [6]float64
	for d := 0; d < 6; d++ {
		bMin, bMax := intervalOrZero(c.Bounds.DOF(d))
		t[d] = src.Sample(c.Distribution, (bMin+bMax)/2, bMax-bMin, c.SigmaLevel)
	}
	return t
}

// MonteCarlo simulates the chain: per iteration each contributor's torsor
// is sampled, transported through its Jacobian, and summed. Equal seeds
// reproduce results.
func MonteCarlo(chain []ChainContributor, iterations int, seed uint64) stackup.ResultTorsor {
	src := dist.NewSource(seed)
	var sum, sumSq [6]float64

	jac := make([]*mat.Dense, len(chain))
	for i := range chain {
		jac[i] = Jacobian(chain[i].Position)
	}

	for it := 0; it < iterations; it++ {
		var total [6]float64
		for i := range chain {
			s := sampleTorsor(src, &chain[i])
			for out := 0; out < 6; out++ {
				for in := 0; in < 6; in++ {
					total[out] += jac[i].At(out, in) * s[in]
				}
			}
		}
		for d := 0; d < 6; d++ {
			sum[d] += total[d]
			sumSq[d] += total[d] * total[d]
		}
	}

	n := float64(iterations)
	var result stackup.ResultTorsor
	for d := 0; d < 6; d++ {
		m := sum[d] / n
		sd := math.Sqrt(math.Max(0, sumSq[d]/n-m*m))
		st := result.DOF(d)
		mm, ss := m, sd
		st.MCMean = &mm
		st.MCStdDev = &ss
	}
	return result
}

// ChainResult is the combined propagation output for one run.
type ChainResult struct {
	WC          feature.TorsorBounds
	Stats       stackup.ResultTorsor
	MC          *stackup.ResultTorsor
	Sensitivity [][6]float64
}

// AnalyzeChain runs worst-case and RSS propagation, plus Monte Carlo when
// requested, and merges everything into one ResultTorsor.
func AnalyzeChain(chain []ChainContributor, runMC bool, iterations int, seed uint64) ChainResult {
	wc := PropagateWorstCase(chain)
	stats, sensitivity := PropagateRSS(chain)

	for d := 0; d < 6; d++ {
		if iv := wc.DOF(d); iv != nil {
			st := stats.DOF(d)
			st.WCMin = iv[0]
			st.WCMax = iv[1]
		}
	}

	res := ChainResult{WC: wc, Stats: stats, Sensitivity: sensitivity}
	if runMC && len(chain) > 0 {
		mc := MonteCarlo(chain, iterations, seed)
		for d := 0; d < 6; d++ {
			st := stats.DOF(d)
			mcd := mc.DOF(d)
			st.MCMean = mcd.MCMean
			st.MCStdDev = mcd.MCStdDev
		}
		res.Stats = stats
		res.MC = &mc
	}
	return res
}
