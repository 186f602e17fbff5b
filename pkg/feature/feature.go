// Package feature defines the feature entity: dimensions with material
// conditions, GD&T control frames, 3D geometry, and torsor bounds.
package feature

import (
	"time"

	"github.com/gdtools/tolkit/pkg/dist"
	"github.com/gdtools/tolkit/pkg/stackup"
)

// GeometryClass tags the invariance class of a feature surface.
type GeometryClass string

const (
	Planar      GeometryClass = "planar"
	Cylindrical GeometryClass = "cylindrical"
	Spherical   GeometryClass = "spherical"
	Conical     GeometryClass = "conical"
	PointClass  GeometryClass = "point"
	LineClass   GeometryClass = "line"
	Complex     GeometryClass = "complex"
)

// Norm returns the class with the default applied. An untagged feature is
// treated as Complex (no invariance).
func (g GeometryClass) Norm() GeometryClass {
	if g == "" {
		return Complex
	}
	return g
}

// GdtSymbol names a geometric control per ASME Y14.5.
type GdtSymbol string

const (
	Position         GdtSymbol = "position"
	Flatness         GdtSymbol = "flatness"
	Perpendicularity GdtSymbol = "perpendicularity"
	Parallelism      GdtSymbol = "parallelism"
	Angularity       GdtSymbol = "angularity"
	Concentricity    GdtSymbol = "concentricity"
	Runout           GdtSymbol = "runout"
	TotalRunout      GdtSymbol = "total_runout"
	ProfileSurface   GdtSymbol = "profile_surface"
	ProfileLine      GdtSymbol = "profile_line"
	Circularity      GdtSymbol = "circularity"
	Cylindricity     GdtSymbol = "cylindricity"
	Straightness     GdtSymbol = "straightness"
	Symmetry         GdtSymbol = "symmetry"
)

// MaterialCondition is the modifier on a GD&T value.
type MaterialCondition string

const (
	MMC MaterialCondition = "mmc"
	LMC MaterialCondition = "lmc"
	RFS MaterialCondition = "rfs"
)

// GdtControl is one feature control frame.
type GdtControl struct {
	Symbol            GdtSymbol         `yaml:"symbol" json:"symbol"`
	Value             float64           `yaml:"value" json:"value"`
	MaterialCondition MaterialCondition `yaml:"material_condition,omitempty" json:"material_condition,omitempty"`
	DatumRefs         []string          `yaml:"datum_refs,omitempty" json:"datum_refs,omitempty"`
}

// Dimension is a sized dimension on a feature. Internal marks hole-like
// features, which flips the material condition sense.
type Dimension struct {
	Name         string            `yaml:"name" json:"name"`
	Nominal      float64           `yaml:"nominal" json:"nominal"`
	PlusTol      float64           `yaml:"plus_tol" json:"plus_tol"`
	MinusTol     float64           `yaml:"minus_tol" json:"minus_tol"`
	Units        string            `yaml:"units,omitempty" json:"units,omitempty"`
	Internal     bool              `yaml:"internal,omitempty" json:"internal,omitempty"`
	Distribution dist.Distribution `yaml:"distribution,omitempty" json:"distribution,omitempty"`
}

// MMC is the maximum material condition size. Internal features (holes) are
// at MMC when smallest; external features (shafts) when largest.
func (d Dimension) MMC() float64 {
	if d.Internal {
		return d.Nominal - d.MinusTol
	}
	return d.Nominal + d.PlusTol
}

// LMC is the least material condition size, the opposite extreme.
func (d Dimension) LMC() float64 {
	if d.Internal {
		return d.Nominal + d.PlusTol
	}
	return d.Nominal - d.MinusTol
}

// Band is the total tolerance band: plus_tol + minus_tol.
func (d Dimension) Band() float64 {
	return d.PlusTol + d.MinusTol
}

// Geometry3D places a feature in part coordinates.
type Geometry3D struct {
	Origin [3]float64 `yaml:"origin" json:"origin"`
	Axis   [3]float64 `yaml:"axis" json:"axis"`
	Length *float64   `yaml:"length,omitempty" json:"length,omitempty"`
}

// Interval is a [min, max] bound on one degree of freedom.
type Interval [2]float64

// Symmetric returns the interval [-half, half].
func Symmetric(half float64) *Interval {
	return &Interval{-half, half}
}

// TorsorBounds limits the small displacements of a feature: three
// translations (u, v, w) then three rotations (alpha, beta, gamma). A nil
// DOF is unbounded by any control and excluded from analysis.
type TorsorBounds struct {
	U     *Interval `yaml:"u,omitempty" json:"u,omitempty"`
	V     *Interval `yaml:"v,omitempty" json:"v,omitempty"`
	W     *Interval `yaml:"w,omitempty" json:"w,omitempty"`
	Alpha *Interval `yaml:"alpha,omitempty" json:"alpha,omitempty"`
	Beta  *Interval `yaml:"beta,omitempty" json:"beta,omitempty"`
	Gamma *Interval `yaml:"gamma,omitempty" json:"gamma,omitempty"`
}

// DOF returns the bound for DOF index i (0..5 = u,v,w,alpha,beta,gamma).
func (b *TorsorBounds) DOF(i int) *Interval {
	switch i {
	case 0:
		return b.U
	case 1:
		return b.V
	case 2:
		return b.W
	case 3:
		return b.Alpha
	case 4:
		return b.Beta
	default:
		return b.Gamma
	}
}

// SetDOF stores a bound at DOF index i.
func (b *TorsorBounds) SetDOF(i int, iv *Interval) {
	switch i {
	case 0:
		b.U = iv
	case 1:
		b.V = iv
	case 2:
		b.W = iv
	case 3:
		b.Alpha = iv
	case 4:
		b.Beta = iv
	default:
		b.Gamma = iv
	}
}

// HasAny reports whether any DOF carries a bound.
func (b *TorsorBounds) HasAny() bool {
	for i := 0; i < 6; i++ {
		if b.DOF(i) != nil {
			return true
		}
	}
	return false
}

// Feature is the persisted feature entity.
type Feature struct {
	ID            string        `yaml:"id" json:"id"`
	ComponentID   string        `yaml:"component_id,omitempty" json:"component_id,omitempty"`
	Title         string        `yaml:"title" json:"title"`
	Description   string        `yaml:"description,omitempty" json:"description,omitempty"`
	Dimensions    []Dimension   `yaml:"dimensions,omitempty" json:"dimensions,omitempty"`
	GDT           []GdtControl  `yaml:"gdt,omitempty" json:"gdt,omitempty"`
	GeometryClass GeometryClass `yaml:"geometry_class,omitempty" json:"geometry_class,omitempty"`
	Geometry      *Geometry3D   `yaml:"geometry_3d,omitempty" json:"geometry_3d,omitempty"`
	TorsorBounds  *TorsorBounds `yaml:"torsor_bounds,omitempty" json:"torsor_bounds,omitempty"`
	DatumLabel    string        `yaml:"datum_label,omitempty" json:"datum_label,omitempty"`
	Author        string        `yaml:"author,omitempty" json:"author,omitempty"`
	Created       time.Time     `yaml:"created" json:"created"`
	Revision      int           `yaml:"entity_revision" json:"entity_revision"`
}

// New creates a feature with a fresh id.
func New(title string, class GeometryClass, author string) *Feature {
	return &Feature{
		ID:            stackup.NewID("FEAT"),
		Title:         title,
		GeometryClass: class,
		Author:        author,
		Created:       time.Now().UTC(),
		Revision:      1,
	}
}

// PrimaryDimension is the dimension used for material-condition math.
func (f *Feature) PrimaryDimension() *Dimension {
	if len(f.Dimensions) == 0 {
		return nil
	}
	return &f.Dimensions[0]
}

// HasGDT reports whether any control frames are attached.
func (f *Feature) HasGDT() bool {
	return len(f.GDT) > 0
}

// PositionControl returns the position control frame, if present.
func (f *Feature) PositionControl() *GdtControl {
	for i := range f.GDT {
		if f.GDT[i].Symbol == Position {
			return &f.GDT[i]
		}
	}
	return nil
}

// IsDatum reports whether the feature carries a datum label.
func (f *Feature) IsDatum() bool {
	return f.DatumLabel != ""
}
