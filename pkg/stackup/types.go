// Package stackup defines the tolerance-chain entities: contributors,
// targets, and the stackup aggregate that the analysis engines consume.
package stackup

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gdtools/tolkit/pkg/dist"
)

// Engine defaults.
const (
	DefaultSigmaLevel = 6.0
	DefaultIterations = 10000
)

// Direction tells whether a contributor adds to or subtracts from the chain.
type Direction string

const (
	Positive Direction = "positive"
	Negative Direction = "negative"
)

// Sign returns +1 for positive contributors and -1 for negative ones.
func (d Direction) Sign() float64 {
	if d == Negative {
		return -1
	}
	return 1
}

// Valid reports whether d is a known direction.
func (d Direction) Valid() bool {
	return d == Positive || d == Negative
}

// FeatureRef links a contributor to a feature entity. The name fields are
// display caches; analysis reads tolerances from the contributor itself.
type FeatureRef struct {
	ID            string `yaml:"id" json:"id"`
	Name          string `yaml:"name,omitempty" json:"name,omitempty"`
	ComponentID   string `yaml:"component_id,omitempty" json:"component_id,omitempty"`
	ComponentName string `yaml:"component_name,omitempty" json:"component_name,omitempty"`
}

// GdtContribution is a 1D position-tolerance contribution attached to a
// contributor. Bonus tolerance from MMC/LMC departure widens the effective
// band when present.
type GdtContribution struct {
	PositionTol  float64  `yaml:"position_tolerance" json:"position_tolerance"`
	ActualSize   *float64 `yaml:"actual_size,omitempty" json:"actual_size,omitempty"`
	Bonus        *float64 `yaml:"bonus,omitempty" json:"bonus,omitempty"`
	EffectiveTol *float64 `yaml:"effective_tolerance,omitempty" json:"effective_tolerance,omitempty"`
}

// NewGdtContribution returns a contribution at the stated position tolerance
// with no bonus.
func NewGdtContribution(positionTol float64) GdtContribution {
	return GdtContribution{PositionTol: positionTol}
}

// GdtContributionWithBonus computes bonus tolerance from the departure of
// the actual size from the MMC size and folds it into the effective value.
func GdtContributionWithBonus(positionTol, actualSize, mmcSize float64) GdtContribution {
	bonus := actualSize - mmcSize
	if bonus < 0 {
		bonus = -bonus
	}
	eff := positionTol + bonus
	return GdtContribution{
		PositionTol:  positionTol,
		ActualSize:   &actualSize,
		Bonus:        &bonus,
		EffectiveTol: &eff,
	}
}

// Effective returns the effective position tolerance, including bonus.
func (g GdtContribution) Effective() float64 {
	if g.EffectiveTol != nil {
		return *g.EffectiveTol
	}
	return g.PositionTol
}

// Contributor is one link in the tolerance chain. PlusTol and MinusTol are
// magnitudes above and below nominal.
type Contributor struct {
	Name         string            `yaml:"name" json:"name"`
	Feature      *FeatureRef       `yaml:"feature,omitempty" json:"feature,omitempty"`
	Direction    Direction         `yaml:"direction" json:"direction"`
	Nominal      float64           `yaml:"nominal" json:"nominal"`
	PlusTol      float64           `yaml:"plus_tol" json:"plus_tol"`
	MinusTol     float64           `yaml:"minus_tol" json:"minus_tol"`
	Distribution dist.Distribution `yaml:"distribution,omitempty" json:"distribution,omitempty"`
	Source       string            `yaml:"source,omitempty" json:"source,omitempty"`
	GdtPosition  *GdtContribution  `yaml:"gdt_position,omitempty" json:"gdt_position,omitempty"`
}

// ToleranceBand is the dimensional band width: plus_tol + minus_tol.
func (c Contributor) ToleranceBand() float64 {
	return c.PlusTol + c.MinusTol
}

// TotalToleranceBand adds the effective GD&T position tolerance to the
// dimensional band.
func (c Contributor) TotalToleranceBand() float64 {
	band := c.ToleranceBand()
	if c.GdtPosition != nil {
		band += c.GdtPosition.Effective()
	}
	return band
}

// Band returns the dimensional band, widened by GD&T when includeGDT is set.
func (c Contributor) Band(includeGDT bool) float64 {
	if includeGDT {
		return c.TotalToleranceBand()
	}
	return c.ToleranceBand()
}

// SignedNominal is nominal with the chain direction applied.
func (c Contributor) SignedNominal() float64 {
	return c.Direction.Sign() * c.Nominal
}

// MeanOffset is the shift of the band center away from nominal caused by
// asymmetric tolerances.
func (c Contributor) MeanOffset() float64 {
	return (c.PlusTol - c.MinusTol) / 2
}

// ProcessMean is the center of the tolerance band.
func (c Contributor) ProcessMean() float64 {
	return c.Nominal + c.MeanOffset()
}

// Target is the measurement the chain must achieve.
type Target struct {
	Name       string  `yaml:"name" json:"name"`
	Nominal    float64 `yaml:"nominal" json:"nominal"`
	LowerLimit float64 `yaml:"lower_limit" json:"lower_limit"`
	UpperLimit float64 `yaml:"upper_limit" json:"upper_limit"`
	Units      string  `yaml:"units,omitempty" json:"units,omitempty"`
	Critical   bool    `yaml:"critical,omitempty" json:"critical,omitempty"`
}

// Band is the specification width: USL - LSL.
func (t Target) Band() float64 {
	return t.UpperLimit - t.LowerLimit
}

// Stackup is the persisted aggregate: a target, an ordered contributor
// chain, and the engine parameters plus cached results.
type Stackup struct {
	ID                  string             `yaml:"id" json:"id"`
	Title               string             `yaml:"title" json:"title"`
	Description         string             `yaml:"description,omitempty" json:"description,omitempty"`
	Target              Target             `yaml:"target" json:"target"`
	Contributors        []Contributor      `yaml:"contributors" json:"contributors"`
	SigmaLevel          float64            `yaml:"sigma_level" json:"sigma_level"`
	MeanShiftK          float64            `yaml:"mean_shift_k,omitempty" json:"mean_shift_k,omitempty"`
	IncludeGDT          bool               `yaml:"include_gdt,omitempty" json:"include_gdt,omitempty"`
	FunctionalDirection *[3]float64        `yaml:"functional_direction,omitempty" json:"functional_direction,omitempty"`
	Results             AnalysisResults    `yaml:"analysis_results,omitempty" json:"analysis_results,omitempty"`
	Results3D           *Analysis3DResults `yaml:"analysis_results_3d,omitempty" json:"analysis_results_3d,omitempty"`
	Tags                []string           `yaml:"tags,omitempty" json:"tags,omitempty"`
	Author              string             `yaml:"author,omitempty" json:"author,omitempty"`
	Created             time.Time          `yaml:"created" json:"created"`
	Revision            int                `yaml:"entity_revision" json:"entity_revision"`
}

// New creates a stackup with a fresh id and the default sigma level.
func New(title string, target Target, author string) *Stackup {
	return &Stackup{
		ID:         NewID("TOL"),
		Title:      title,
		Target:     target,
		SigmaLevel: DefaultSigmaLevel,
		Author:     author,
		Created:    time.Now().UTC(),
		Revision:   1,
	}
}

// AddContributor appends a contributor and bumps the revision.
func (s *Stackup) AddContributor(c Contributor) {
	s.Contributors = append(s.Contributors, c)
	s.Revision++
}

// RemoveContributor deletes the contributor at index i and bumps the
// revision.
func (s *Stackup) RemoveContributor(i int) error {
	if i < 0 || i >= len(s.Contributors) {
		return fmt.Errorf("contributor index %d out of range [0, %d)", i, len(s.Contributors))
	}
	s.Contributors = append(s.Contributors[:i], s.Contributors[i+1:]...)
	s.Revision++
	return nil
}

// Direction returns the functional direction, defaulting to +X.
func (s *Stackup) Direction() [3]float64 {
	if s.FunctionalDirection != nil {
		return *s.FunctionalDirection
	}
	return [3]float64{1, 0, 0}
}

// Validate rejects inputs the engines cannot analyze.
func (s *Stackup) Validate() error {
	if len(s.Contributors) == 0 {
		return fmt.Errorf("stackup %q has no contributors", s.Title)
	}
	if s.SigmaLevel <= 0 {
		return fmt.Errorf("sigma level must be positive, got %v", s.SigmaLevel)
	}
	if s.MeanShiftK < 0 {
		return fmt.Errorf("mean shift k must be non-negative, got %v", s.MeanShiftK)
	}
	if s.Target.UpperLimit < s.Target.LowerLimit {
		return fmt.Errorf("target upper limit %v below lower limit %v",
			s.Target.UpperLimit, s.Target.LowerLimit)
	}
	for i, c := range s.Contributors {
		if c.PlusTol < 0 || c.MinusTol < 0 {
			return fmt.Errorf("contributor %d (%s): tolerances must be non-negative magnitudes", i, c.Name)
		}
		if c.Direction != "" && !c.Direction.Valid() {
			return fmt.Errorf("contributor %d (%s): unknown direction %q", i, c.Name, c.Direction)
		}
		if !c.Distribution.Valid() {
			return fmt.Errorf("contributor %d (%s): unknown distribution %q", i, c.Name, c.Distribution)
		}
	}
	return nil
}

// NewID mints a prefixed entity id, e.g. "TOL-3F2A9C41".
func NewID(prefix string) string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return prefix + "-" + strings.ToUpper(raw[:8])
}
