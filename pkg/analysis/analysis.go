// Package analysis implements the 1D statistical engines over a tolerance
// chain: worst-case extremes, root-sum-square propagation with capability
// indices, and seedable Monte Carlo simulation.
package analysis

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/gdtools/tolkit/pkg/dist"
	"github.com/gdtools/tolkit/pkg/stackup"
)

// MarginalFraction of the target band: a passing result with less margin
// than this is classified marginal.
const MarginalFraction = 0.10

// NormalCDF is the standard normal cumulative distribution function.
func NormalCDF(z float64) float64 {
	return 0.5 * (1 + math.Erf(z/math.Sqrt2))
}

// Classify grades a margin against the target band.
func Classify(margin, band float64) stackup.Verdict {
	switch {
	case margin > band*MarginalFraction:
		return stackup.VerdictPass
	case margin > 0:
		return stackup.VerdictMarginal
	default:
		return stackup.VerdictFail
	}
}

// WorstCase sums the signed extreme contributions of the chain. GD&T
// position contributions do not widen the extremes; they are statistical
// and enter only the RSS and Monte Carlo bands.
func WorstCase(s *stackup.Stackup) (stackup.WorstCaseResult, error) {
	if err := s.Validate(); err != nil {
		return stackup.WorstCaseResult{}, fmt.Errorf("worst-case analysis: %w", err)
	}

	var nominal, min, max float64
	for _, c := range s.Contributors {
		nominal += c.SignedNominal()
		if c.Direction.Sign() > 0 {
			min += c.Nominal - c.MinusTol
			max += c.Nominal + c.PlusTol
		} else {
			min -= c.Nominal + c.PlusTol
			max -= c.Nominal - c.MinusTol
		}
	}

	margin := math.Min(s.Target.UpperLimit-max, min-s.Target.LowerLimit)
	return stackup.WorstCaseResult{
		Nominal: nominal,
		Min:     min,
		Max:     max,
		Margin:  margin,
		Verdict: Classify(margin, s.Target.Band()),
	}, nil
}

// RSS propagates contributor variances as a root-sum-of-squares. Each
// contributor's band maps to sigma_level standard deviations; asymmetric
// tolerances shift the process mean away from nominal. With MeanShiftK > 0
// the mean drifts k·σ toward the nearer limit (Bender) before margin and
// Cpk are computed.
func RSS(s *stackup.Stackup) (stackup.RSSResult, error) {
	if err := s.Validate(); err != nil {
		return stackup.RSSResult{}, fmt.Errorf("rss analysis: %w", err)
	}

	var mean, variance float64
	variances := make([]float64, len(s.Contributors))
	for i, c := range s.Contributors {
		mean += c.Direction.Sign() * c.ProcessMean()
		sigma := c.Band(s.IncludeGDT) / s.SigmaLevel
		variances[i] = sigma * sigma
		variance += variances[i]
	}
	sigma := math.Sqrt(variance)
	sigma3 := s.SigmaLevel / 2 * sigma

	res := stackup.RSSResult{
		Mean:   mean,
		Sigma:  sigma,
		Sigma3: sigma3,
	}

	cpkMean := mean
	if s.MeanShiftK > 0 && sigma > 0 {
		if s.Target.UpperLimit-mean < mean-s.Target.LowerLimit {
			cpkMean = mean + s.MeanShiftK*sigma
		} else {
			cpkMean = mean - s.MeanShiftK*sigma
		}
		res.ShiftedMean = &cpkMean
	}

	res.Margin = math.Min(
		s.Target.UpperLimit-(cpkMean+sigma3),
		(cpkMean-sigma3)-s.Target.LowerLimit,
	)
	res.Verdict = Classify(res.Margin, s.Target.Band())

	if sigma > 0 {
		cp := s.Target.Band() / (s.SigmaLevel * sigma)
		cpk := math.Min(s.Target.UpperLimit-cpkMean, cpkMean-s.Target.LowerLimit) /
			(s.SigmaLevel / 2 * sigma)
		res.Cp = &cp
		res.Cpk = &cpk
		res.YieldPercent = NormalCDF(3*cpk) * 100
	} else if cpkMean >= s.Target.LowerLimit && cpkMean <= s.Target.UpperLimit {
		res.YieldPercent = 100
	}

	res.Sensitivity = make([]stackup.SensitivityEntry, len(s.Contributors))
	for i, c := range s.Contributors {
		pct := 0.0
		if variance > 0 {
			pct = variances[i] / variance * 100
		}
		res.Sensitivity[i] = stackup.SensitivityEntry{Name: c.Name, ContributionPct: pct}
	}
	return res, nil
}

// MonteCarlo simulates the chain and discards the raw samples.
func MonteCarlo(s *stackup.Stackup, iterations int, seed uint64) (stackup.MonteCarloResult, error) {
	res, _, err := MonteCarloSamples(s, iterations, seed)
	return res, err
}

// MonteCarloSamples simulates the chain for the given iteration count and
// returns both the statistics and the raw sample vector in draw order, for
// histogram or CSV export. Equal seeds reproduce results exactly.
func MonteCarloSamples(s *stackup.Stackup, iterations int, seed uint64) (stackup.MonteCarloResult, []float64, error) {
	if err := s.Validate(); err != nil {
		return stackup.MonteCarloResult{}, nil, fmt.Errorf("monte carlo analysis: %w", err)
	}
	if iterations <= 0 {
		return stackup.MonteCarloResult{}, nil, fmt.Errorf("monte carlo analysis: iterations must be positive, got %d", iterations)
	}

	src := dist.NewSource(seed)
	samples := make([]float64, iterations)
	for i := range samples {
		var sum float64
		for _, c := range s.Contributors {
			v := src.Sample(c.Distribution, c.ProcessMean(), c.Band(s.IncludeGDT), s.SigmaLevel)
			sum += c.Direction.Sign() * v
		}
		samples[i] = sum
	}

	sorted := append([]float64(nil), samples...)
	sort.Float64s(sorted)

	n := float64(iterations)
	var mean float64
	for _, v := range sorted {
		mean += v
	}
	mean /= n
	var variance float64
	for _, v := range sorted {
		d := v - mean
		variance += d * d
	}
	variance /= n
	stdDev := math.Sqrt(variance)

	inSpec := 0
	for _, v := range sorted {
		if v >= s.Target.LowerLimit && v <= s.Target.UpperLimit {
			inSpec++
		}
	}

	res := stackup.MonteCarloResult{
		Iterations:    iterations,
		Seed:          seed,
		Mean:          mean,
		StdDev:        stdDev,
		Min:           sorted[0],
		Max:           sorted[iterations-1],
		Percentile025: sorted[int(n*0.025)],
		Percentile975: sorted[int(n*0.975)],
		YieldPercent:  float64(inSpec) / n * 100,
	}

	if stdDev > 0 {
		pp := s.Target.Band() / (6 * stdDev)
		ppk := math.Min(s.Target.UpperLimit-mean, mean-s.Target.LowerLimit) / (3 * stdDev)
		res.Pp = &pp
		res.Ppk = &ppk
	}

	margin := math.Min(s.Target.UpperLimit-res.Percentile975, res.Percentile025-s.Target.LowerLimit)
	res.Verdict = Classify(margin, s.Target.Band())
	return res, samples, nil
}

// TraceRow is one contributor's line in the RSS mean derivation trace.
type TraceRow struct {
	Index        int
	Name         string
	Direction    stackup.Direction
	Nominal      float64
	MeanOffset   float64
	ProcessMean  float64
	Contribution float64
	RunningMean  float64
}

// TraceRSS walks the chain in insertion order and reports how each
// contributor moves the process mean. Diagnostic only; the RSS result does
// not depend on order.
func TraceRSS(s *stackup.Stackup) []TraceRow {
	rows := make([]TraceRow, len(s.Contributors))
	running := 0.0
	for i, c := range s.Contributors {
		contribution := c.Direction.Sign() * c.ProcessMean()
		running += contribution
		rows[i] = TraceRow{
			Index:        i,
			Name:         c.Name,
			Direction:    c.Direction,
			Nominal:      c.Nominal,
			MeanOffset:   c.MeanOffset(),
			ProcessMean:  c.ProcessMean(),
			Contribution: contribution,
			RunningMean:  running,
		}
	}
	return rows
}

// Analyze runs all three 1D methods and stores the results on the stackup.
func Analyze(s *stackup.Stackup, iterations int, seed uint64) error {
	wc, err := WorstCase(s)
	if err != nil {
		return err
	}
	rss, err := RSS(s)
	if err != nil {
		return err
	}
	mc, err := MonteCarlo(s, iterations, seed)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	s.Results = stackup.AnalysisResults{
		WorstCase:  &wc,
		RSS:        &rss,
		MonteCarlo: &mc,
		AnalyzedAt: &now,
	}
	return nil
}
