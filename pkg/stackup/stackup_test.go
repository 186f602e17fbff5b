package stackup

import (
	"math"
	"strings"
	"testing"
)

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestContributorBands(t *testing.T) {
	c := Contributor{Direction: Negative, Nominal: 3, PlusTol: 0.05, MinusTol: 0.1}
	if !almostEqual(c.ToleranceBand(), 0.15, 1e-12) {
		t.Errorf("band = %v, want 0.15", c.ToleranceBand())
	}
	if !almostEqual(c.SignedNominal(), -3, 1e-12) {
		t.Errorf("signed nominal = %v, want -3", c.SignedNominal())
	}
	if !almostEqual(c.MeanOffset(), -0.025, 1e-12) {
		t.Errorf("mean offset = %v, want -0.025", c.MeanOffset())
	}
	if !almostEqual(c.ProcessMean(), 2.975, 1e-12) {
		t.Errorf("process mean = %v, want 2.975", c.ProcessMean())
	}
}

func TestGdtContributionBonus(t *testing.T) {
	// hole at actual 10.05 against MMC size 10.0 earns 0.05 bonus
	g := GdtContributionWithBonus(0.25, 10.05, 10.0)
	if g.Bonus == nil || !almostEqual(*g.Bonus, 0.05, 1e-12) {
		t.Fatalf("bonus = %v, want 0.05", g.Bonus)
	}
	if !almostEqual(g.Effective(), 0.30, 1e-12) {
		t.Errorf("effective = %v, want 0.30", g.Effective())
	}

	plain := NewGdtContribution(0.25)
	if !almostEqual(plain.Effective(), 0.25, 1e-12) {
		t.Errorf("effective without bonus = %v, want 0.25", plain.Effective())
	}
}

func TestTotalToleranceBandIncludesGDT(t *testing.T) {
	g := NewGdtContribution(0.2)
	c := Contributor{PlusTol: 0.1, MinusTol: 0.1, GdtPosition: &g}
	if !almostEqual(c.Band(false), 0.2, 1e-12) {
		t.Errorf("dimensional band = %v, want 0.2", c.Band(false))
	}
	if !almostEqual(c.Band(true), 0.4, 1e-12) {
		t.Errorf("band with GD&T = %v, want 0.4", c.Band(true))
	}
}

func TestRevisionBumpsOnChainEdits(t *testing.T) {
	s := New("gap", Target{Name: "gap", Nominal: 1, LowerLimit: 0.5, UpperLimit: 1.5}, "")
	if s.Revision != 1 {
		t.Fatalf("fresh revision = %d, want 1", s.Revision)
	}
	s.AddContributor(Contributor{Name: "a", Direction: Positive, Nominal: 1})
	s.AddContributor(Contributor{Name: "b", Direction: Negative, Nominal: 0.5})
	if s.Revision != 3 {
		t.Errorf("revision after two adds = %d, want 3", s.Revision)
	}
	if err := s.RemoveContributor(0); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if s.Revision != 4 || len(s.Contributors) != 1 || s.Contributors[0].Name != "b" {
		t.Errorf("remove left revision %d, contributors %v", s.Revision, s.Contributors)
	}
	if err := s.RemoveContributor(5); err == nil {
		t.Errorf("out-of-range remove should fail")
	}
}

func TestValidate(t *testing.T) {
	base := func() *Stackup {
		s := New("t", Target{Nominal: 10, LowerLimit: 9, UpperLimit: 11}, "")
		s.AddContributor(Contributor{Name: "a", Direction: Positive, Nominal: 10, PlusTol: 0.1, MinusTol: 0.1})
		return s
	}

	if err := base().Validate(); err != nil {
		t.Fatalf("valid stackup rejected: %v", err)
	}

	s := base()
	s.Contributors = nil
	if err := s.Validate(); err == nil {
		t.Errorf("empty chain should be rejected")
	}

	s = base()
	s.SigmaLevel = 0
	if err := s.Validate(); err == nil {
		t.Errorf("zero sigma level should be rejected")
	}

	s = base()
	s.MeanShiftK = -1
	if err := s.Validate(); err == nil {
		t.Errorf("negative mean shift k should be rejected")
	}

	s = base()
	s.Contributors[0].MinusTol = -0.1
	if err := s.Validate(); err == nil {
		t.Errorf("negative tolerance magnitude should be rejected")
	}

	s = base()
	s.Contributors[0].Distribution = "weibull"
	if err := s.Validate(); err == nil {
		t.Errorf("unknown distribution should be rejected")
	}

	s = base()
	s.Target.UpperLimit, s.Target.LowerLimit = 9, 11
	if err := s.Validate(); err == nil {
		t.Errorf("inverted limits should be rejected")
	}
}

func TestDirectionDefaultsToX(t *testing.T) {
	s := New("t", Target{}, "")
	if s.Direction() != [3]float64{1, 0, 0} {
		t.Errorf("default direction = %v, want +X", s.Direction())
	}
	s.FunctionalDirection = &[3]float64{0, 0, 1}
	if s.Direction() != [3]float64{0, 0, 1} {
		t.Errorf("explicit direction lost")
	}
}

func TestNewID(t *testing.T) {
	id := NewID("TOL")
	if !strings.HasPrefix(id, "TOL-") || len(id) != 12 {
		t.Errorf("id %q should look like TOL-XXXXXXXX", id)
	}
	if NewID("TOL") == NewID("TOL") {
		t.Errorf("ids should be unique")
	}
}
