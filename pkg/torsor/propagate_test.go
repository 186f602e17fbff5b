package torsor

import (
	"math"
	"testing"

	"github.com/gdtools/tolkit/pkg/feature"
	"github.com/gdtools/tolkit/pkg/report"
	"github.com/gdtools/tolkit/pkg/stackup"
)

func approx(t *testing.T, name string, got, want, tol float64) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Errorf("%s = %v, want %v (tol %v)", name, got, want, tol)
	}
}

func TestJacobianAtOrigin(t *testing.T) {
	j := Jacobian([3]float64{0, 0, 0})
	for r := 0; r < 6; r++ {
		for c := 0; c < 6; c++ {
			want := 0.0
			if r == c {
				want = 1.0
			}
			if j.At(r, c) != want {
				t.Errorf("j[%d,%d] = %v, want %v", r, c, j.At(r, c), want)
			}
		}
	}
}

func TestJacobianOffsetCouplesRotationToTranslation(t *testing.T) {
	j := Jacobian([3]float64{10, 0, 0})
	approx(t, "j[1,5]", j.At(1, 5), 10, 1e-12)
	approx(t, "j[2,4]", j.At(2, 4), -10, 1e-12)
	approx(t, "j[0,4]", j.At(0, 4), 0, 1e-12)
}

func uContributor(half float64, pos [3]float64) ChainContributor {
	return ChainContributor{
		Name:       "c",
		Position:   pos,
		Bounds:     feature.TorsorBounds{U: feature.Symmetric(half)},
		SigmaLevel: 6,
	}
}

func TestPropagateWorstCaseSingle(t *testing.T) {
	wc := PropagateWorstCase([]ChainContributor{uContributor(0.1, [3]float64{0, 0, 0})})
	approx(t, "u min", wc.U[0], -0.1, 1e-12)
	approx(t, "u max", wc.U[1], 0.1, 1e-12)
	approx(t, "w min", wc.W[0], 0, 1e-12)
}

func TestRotationAtDistanceBecomesTranslation(t *testing.T) {
	c := ChainContributor{
		Name:       "tilted",
		Position:   [3]float64{10, 0, 0},
		Bounds:     feature.TorsorBounds{Beta: feature.Symmetric(0.01)},
		SigmaLevel: 6,
	}
	wc := PropagateWorstCase([]ChainContributor{c})
	// beta = ±0.01 rad at rx=10 sweeps w by j[2,4] = -10.
	approx(t, "w min", wc.W[0], -0.1, 1e-12)
	approx(t, "w max", wc.W[1], 0.1, 1e-12)
	approx(t, "beta min", wc.Beta[0], -0.01, 1e-12)
}

func TestPropagateRSSSigma(t *testing.T) {
	stats, sens := PropagateRSS([]ChainContributor{uContributor(0.1, [3]float64{0, 0, 0})})
	// sigma = range/sigma_level = 0.2/6, so 3 sigma = 0.1.
	approx(t, "u 3sigma", stats.U.RSS3Sig, 0.1, 1e-12)
	approx(t, "u mean", stats.U.RSSMean, 0, 1e-12)
	approx(t, "u sensitivity", sens[0][DofU], 100, 1e-9)

	stats2, sens2 := PropagateRSS([]ChainContributor{
		uContributor(0.1, [3]float64{0, 0, 0}),
		uContributor(0.1, [3]float64{0, 0, 0}),
	})
	approx(t, "two-contributor 3sigma", stats2.U.RSS3Sig, 0.1*math.Sqrt2, 1e-12)
	approx(t, "split sensitivity", sens2[0][DofU], 50, 1e-9)
	approx(t, "sensitivity sum", sens2[0][DofU]+sens2[1][DofU], 100, 1e-9)
}

func TestMonteCarloReproducibleAndConverges(t *testing.T) {
	chain := []ChainContributor{uContributor(0.1, [3]float64{0, 0, 0})}
	a := MonteCarlo(chain, 20000, 42)
	b := MonteCarlo(chain, 20000, 42)
	if *a.U.MCMean != *b.U.MCMean || *a.U.MCStdDev != *b.U.MCStdDev {
		t.Errorf("same seed must reproduce results")
	}
	approx(t, "mc mean", *a.U.MCMean, 0, 0.001)
	approx(t, "mc stddev", *a.U.MCStdDev, 0.2/6, 0.002)
}

func TestAnalyzeChainMergesAllMethods(t *testing.T) {
	chain := []ChainContributor{uContributor(0.1, [3]float64{0, 0, 0})}
	res := AnalyzeChain(chain, true, 5000, 7)
	approx(t, "wc min", res.Stats.U.WCMin, -0.1, 1e-12)
	approx(t, "wc max", res.Stats.U.WCMax, 0.1, 1e-12)
	approx(t, "rss 3sigma", res.Stats.U.RSS3Sig, 0.1, 1e-12)
	if res.Stats.U.MCMean == nil || res.MC == nil {
		t.Fatalf("monte carlo stats missing")
	}

	noMC := AnalyzeChain(chain, false, 0, 0)
	if noMC.Stats.U.MCMean != nil || noMC.MC != nil {
		t.Errorf("monte carlo stats should be absent when not requested")
	}
}

func TestDeriveBounds(t *testing.T) {
	b := DeriveBounds(0.25, []int{DofU, DofV, DofAlpha})
	approx(t, "u", b.U[1], 0.25, 1e-12)
	approx(t, "v", b.V[1], 0.25, 1e-12)
	// 0.25 over the 50mm reference length.
	approx(t, "alpha", b.Alpha[1], 0.005, 1e-12)
	if b.W != nil || b.Gamma != nil {
		t.Errorf("unselected DOFs should stay unbounded")
	}
}

func testStackup() (*stackup.Stackup, map[string]*feature.Feature) {
	s := stackup.New("3d", stackup.Target{Nominal: 67, LowerLimit: 65.5, UpperLimit: 68.5}, "")
	s.AddContributor(stackup.Contributor{
		Name: "hole", Direction: stackup.Positive, Nominal: 10, PlusTol: 0.1, MinusTol: 0.1,
		Feature: &stackup.FeatureRef{ID: "F-HOLE"},
	})
	s.AddContributor(stackup.Contributor{
		Name: "face", Direction: stackup.Positive, Nominal: 57, PlusTol: 0.2, MinusTol: 0.2,
		Feature: &stackup.FeatureRef{ID: "F-FACE"},
	})
	s.AddContributor(stackup.Contributor{
		Name: "loose", Direction: stackup.Negative, Nominal: 0, PlusTol: 0.05, MinusTol: 0.05,
	})

	features := map[string]*feature.Feature{
		"F-HOLE": {
			ID:            "F-HOLE",
			GeometryClass: feature.Cylindrical,
			Geometry:      &feature.Geometry3D{Origin: [3]float64{5, 0, 0}, Axis: [3]float64{0, 0, 1}},
			TorsorBounds: &feature.TorsorBounds{
				U: feature.Symmetric(0.125),
				V: feature.Symmetric(0.125),
			},
		},
		"F-FACE": {
			ID:            "F-FACE",
			GeometryClass: feature.Planar,
		},
	}
	return s, features
}

func TestBuildChainSourcesAndWarnings(t *testing.T) {
	s, features := testStackup()
	rep := report.NewReport()
	chain := BuildChain(s, features, ScanDatums(features), rep)

	if len(chain) != 2 {
		t.Fatalf("only feature-linked contributors belong in the chain, got %d", len(chain))
	}
	if chain[0].Source != SourceGDT {
		t.Errorf("stored torsor bounds should be used as GD&T source")
	}
	if chain[0].Position != [3]float64{5, 0, 0} {
		t.Errorf("position should come from feature geometry, got %v", chain[0].Position)
	}
	if chain[1].Source != SourceDerived {
		t.Errorf("feature without bounds should fall back to derived")
	}
	// F-FACE has no geometry: placed at origin with a warning.
	if chain[1].Position != [3]float64{0, 0, 0} {
		t.Errorf("missing geometry should default to origin")
	}
	if len(rep.Warnings) == 0 {
		t.Errorf("missing geometry should warn")
	}
	// Derived planar bounds: w gets half the 0.4 band.
	approx(t, "derived w", chain[1].Bounds.W[1], 0.2, 1e-12)
}

func TestBuildChainUnknownFeature(t *testing.T) {
	s, features := testStackup()
	s.Contributors[0].Feature.ID = "F-MISSING"
	rep := report.NewReport()
	chain := BuildChain(s, features, nil, rep)
	if len(chain) != 2 {
		t.Fatalf("unknown feature still joins the chain, got %d", len(chain))
	}
	if chain[0].Class != feature.Complex || chain[0].Position != [3]float64{0, 0, 0} {
		t.Errorf("unknown feature should degrade to complex at origin")
	}
	if len(rep.Warnings) == 0 {
		t.Errorf("unknown feature should warn")
	}
}

func TestAnalyze3DNothingToAnalyze(t *testing.T) {
	s := stackup.New("1d-only", stackup.Target{Nominal: 1, LowerLimit: 0, UpperLimit: 2}, "")
	s.AddContributor(stackup.Contributor{Name: "a", Direction: stackup.Positive, Nominal: 1})
	res, rep, err := Analyze3D(s, nil, 1000, 1)
	if err != nil {
		t.Fatalf("no feature references is an outcome, not an error: %v", err)
	}
	if res != nil {
		t.Errorf("expected nil results")
	}
	if len(rep.Info) == 0 {
		t.Errorf("report should say there was nothing to analyze")
	}
}

func TestAnalyze3DFullRun(t *testing.T) {
	s, features := testStackup()
	res, rep, err := Analyze3D(s, features, 5000, 9)
	if err != nil {
		t.Fatalf("analyze 3d: %v", err)
	}
	if res == nil || res.Torsor == nil || res.Projection == nil {
		t.Fatalf("missing results: %+v", res)
	}
	if len(res.Sensitivity) != 2 {
		t.Errorf("want sensitivity for 2 chain members, got %d", len(res.Sensitivity))
	}
	sum := res.Sensitivity[0].ContributionPct[DofU] + res.Sensitivity[1].ContributionPct[DofU]
	approx(t, "u sensitivity sum", sum, 100, 1e-6)
	if res.Torsor.U.MCMean == nil {
		t.Errorf("3d analysis always simulates")
	}
	if !rep.Valid {
		t.Errorf("warnings must not invalidate the run: %s", rep.Summary)
	}

	again, _, err := Analyze3D(s, features, 5000, 9)
	if err != nil {
		t.Fatalf("re-run: %v", err)
	}
	if *again.Torsor.U.MCMean != *res.Torsor.U.MCMean {
		t.Errorf("same seed must reproduce the simulation")
	}
}

func TestProjectOntoX(t *testing.T) {
	torsor := stackup.ResultTorsor{
		U: stackup.TorsorStats{WCMin: -0.3, WCMax: 0.3, RSSMean: 0.0, RSS3Sig: 0.15},
		V: stackup.TorsorStats{WCMin: -9, WCMax: 9, RSSMean: 1, RSS3Sig: 3},
	}
	target := stackup.Target{Nominal: 67, LowerLimit: 65.5, UpperLimit: 68.5}
	p := Project(&torsor, [3]float64{1, 0, 0}, target, 6)

	approx(t, "wc min", p.WCMin, -0.3, 1e-12)
	approx(t, "wc max", p.WCMax, 0.3, 1e-12)
	approx(t, "mean", p.RSSMean, 0, 1e-12)
	approx(t, "3sigma", p.RSS3Sig, 0.15, 1e-12)
	if p.Cp == nil || p.Cpk == nil {
		t.Fatalf("capability indices missing")
	}
	// Deviation limits are ±1.5 around nominal; sigma = 0.05.
	approx(t, "cp", *p.Cp, 3.0/(6*0.05), 1e-9)
	approx(t, "cpk", *p.Cpk, 1.5/(3*0.05), 1e-9)
	if p.WCVerdict != stackup.VerdictPass {
		t.Errorf("wc range inside deviation limits should pass")
	}
}

func TestProjectChecksDeviationLimits(t *testing.T) {
	torsor := stackup.ResultTorsor{
		U: stackup.TorsorStats{WCMin: -2, WCMax: 2, RSS3Sig: 0.3},
	}
	target := stackup.Target{Nominal: 67, LowerLimit: 65.5, UpperLimit: 68.5}
	p := Project(&torsor, [3]float64{1, 0, 0}, target, 6)
	// ±2 exceeds the ±1.5 deviation band even though 65 < 67±2 < 69 in
	// absolute terms would straddle the limits either way.
	if p.WCVerdict != stackup.VerdictFail {
		t.Errorf("wc range outside deviation limits should fail")
	}
}

func TestProjectDirectionHandling(t *testing.T) {
	torsor := stackup.ResultTorsor{
		U: stackup.TorsorStats{WCMin: -0.1, WCMax: 0.1, RSS3Sig: 0.06},
		V: stackup.TorsorStats{WCMin: -0.1, WCMax: 0.1, RSS3Sig: 0.06},
	}
	target := stackup.Target{Nominal: 0, LowerLimit: -1, UpperLimit: 1}

	p := Project(&torsor, [3]float64{0, 0, 0}, target, 6)
	if p.Direction != [3]float64{1, 0, 0} {
		t.Errorf("zero direction should default to +X, got %v", p.Direction)
	}

	diag := Project(&torsor, [3]float64{1, 1, 0}, target, 6)
	inv := 1 / math.Sqrt2
	approx(t, "normalized x", diag.Direction[0], inv, 1e-12)
	// Independent axes: variance adds through squared components.
	approx(t, "diag 3sigma", diag.RSS3Sig, 0.06, 1e-9)
	approx(t, "diag wc max", diag.WCMax, 0.2*inv, 1e-9)
}

func TestNegativeDirectionComponentFlipsExtremes(t *testing.T) {
	torsor := stackup.ResultTorsor{
		U: stackup.TorsorStats{WCMin: -0.1, WCMax: 0.3},
	}
	target := stackup.Target{Nominal: 0, LowerLimit: -1, UpperLimit: 1}
	p := Project(&torsor, [3]float64{-1, 0, 0}, target, 6)
	approx(t, "wc min", p.WCMin, -0.3, 1e-12)
	approx(t, "wc max", p.WCMax, 0.1, 1e-12)
}
