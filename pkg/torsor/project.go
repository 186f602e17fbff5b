package torsor

import (
	"math"

	"github.com/gdtools/tolkit/pkg/analysis"
	"github.com/gdtools/tolkit/pkg/stackup"
)

// normalize returns the unit vector, defaulting to +X for a zero vector.
func normalize(v [3]float64) [3]float64 {
	l := math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
	if l < 1e-10 {
		return [3]float64{1, 0, 0}
	}
	return [3]float64{v[0] / l, v[1] / l, v[2] / l}
}

// Project collapses the translational DOFs of a result torsor onto a unit
// direction. Rotations are not projected; that needs a lever arm. The
// projected deviations are compared against the target limits re-expressed
// as deviations from nominal, so a zero-mean torsor maps to a centered
// capability calculation.
func Project(t *stackup.ResultTorsor, direction [3]float64, target stackup.Target, sigmaLevel float64) stackup.FunctionalProjection {
	d := normalize(direction)
	trans := [3]*stackup.TorsorStats{&t.U, &t.V, &t.W}

	var wcMin, wcMax, mean, variance float64
	for i, st := range trans {
		// Component sign flips which extreme worsens the projection.
		a, b := d[i]*st.WCMin, d[i]*st.WCMax
		wcMin += math.Min(a, b)
		wcMax += math.Max(a, b)
		mean += d[i] * st.RSSMean
		sigma := st.RSS3Sig / 3
		variance += d[i] * d[i] * sigma * sigma
	}
	sigma := math.Sqrt(variance)

	proj := stackup.FunctionalProjection{
		Direction: d,
		WCMin:     wcMin,
		WCMax:     wcMax,
		RSSMean:   mean,
		RSS3Sig:   3 * sigma,
	}

	if t.U.MCMean != nil && t.V.MCMean != nil && t.W.MCMean != nil {
		mcMean := d[0]**t.U.MCMean + d[1]**t.V.MCMean + d[2]**t.W.MCMean
		proj.MCMean = &mcMean
	}
	if t.U.MCStdDev != nil && t.V.MCStdDev != nil && t.W.MCStdDev != nil {
		su, sv, sw := *t.U.MCStdDev, *t.V.MCStdDev, *t.W.MCStdDev
		mcSigma := math.Sqrt(d[0]*d[0]*su*su + d[1]*d[1]*sv*sv + d[2]*d[2]*sw*sw)
		proj.MCStdDev = &mcSigma
	}

	// The torsor carries deviations from nominal, so the limits must too.
	devLSL := target.LowerLimit - target.Nominal
	devUSL := target.UpperLimit - target.Nominal

	if sigma > 0 {
		cp := (devUSL - devLSL) / (sigmaLevel * sigma)
		cpk := math.Min(devUSL-mean, mean-devLSL) / (sigmaLevel / 2 * sigma)
		yield := analysis.NormalCDF(3*cpk) * 100
		proj.Cp = &cp
		proj.Cpk = &cpk
		proj.YieldPercent = &yield
	}

	if wcMin >= devLSL && wcMax <= devUSL {
		proj.WCVerdict = stackup.VerdictPass
	} else {
		proj.WCVerdict = stackup.VerdictFail
	}
	return proj
}
