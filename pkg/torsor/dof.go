// Package torsor implements small-displacement-torsor tolerance analysis:
// DOF resolution from datum reference frames, Jacobian transport of
// per-feature bounds to the assembly origin, worst-case/RSS/Monte-Carlo
// propagation per DOF, and functional projection onto a direction.
package torsor

import "github.com/gdtools/tolkit/pkg/feature"

// DOF indices into a torsor: three translations then three rotations.
const (
	DofU = iota
	DofV
	DofW
	DofAlpha
	DofBeta
	DofGamma
)

// DOFNames for display, indexed by DOF.
var DOFNames = [6]string{"u", "v", "w", "α", "β", "γ"}

// InvarianceDOF returns the DOFs a surface of the given class can deviate
// in, per TTRS invariance theory. Complex surfaces have no default set.
func InvarianceDOF(class feature.GeometryClass) []int {
	switch class.Norm() {
	case feature.Planar:
		return []int{DofW, DofAlpha, DofBeta}
	case feature.Cylindrical:
		return []int{DofU, DofV, DofAlpha, DofBeta}
	case feature.Spherical, feature.PointClass:
		return []int{DofU, DofV, DofW}
	case feature.Conical:
		return []int{DofU, DofV, DofW, DofAlpha, DofBeta}
	case feature.LineClass:
		return []int{DofU, DofV}
	default:
		return nil
	}
}

// FreeDOF returns the complement of InvarianceDOF.
func FreeDOF(class feature.GeometryClass) []int {
	constrained := InvarianceDOF(class)
	var free []int
	for d := 0; d < 6; d++ {
		if !contains(constrained, d) {
			free = append(free, d)
		}
	}
	return free
}

// DatumFeature is the geometry of a labeled datum, used to build reference
// frames.
type DatumFeature struct {
	Label    string
	Class    feature.GeometryClass
	Position [3]float64
	Axis     *[3]float64
}

// DatumReferenceFrame accumulates DOF constraints from ordered datums per
// the 3-2-1 rule.
type DatumReferenceFrame struct {
	Primary     *DatumFeature
	Secondary   *DatumFeature
	Tertiary    *DatumFeature
	Constrained []int
}

// BuildDRF constructs a reference frame from ordered datum labels. Labels
// missing from the catalogue are skipped; references beyond the third are
// ignored.
func BuildDRF(refs []string, catalogue map[string]DatumFeature) DatumReferenceFrame {
	var drf DatumReferenceFrame
	slot := 0
	for _, label := range refs {
		d, ok := catalogue[label]
		if !ok {
			continue
		}
		switch slot {
		case 0:
			drf.Primary = &d
			drf.add(primaryDatumDOF(&d))
		case 1:
			drf.Secondary = &d
			drf.add(secondaryDatumDOF(&d, drf.Constrained))
		case 2:
			drf.Tertiary = &d
			drf.add(tertiaryDatumDOF(&d, drf.Constrained))
		default:
			return drf
		}
		slot++
	}
	return drf
}

func (drf *DatumReferenceFrame) add(dofs []int) {
	drf.Constrained = append(drf.Constrained, dofs...)
}

// Free returns the DOFs the frame leaves unconstrained.
func (drf *DatumReferenceFrame) Free() []int {
	var free []int
	for d := 0; d < 6; d++ {
		if !drf.IsConstrained(d) {
			free = append(free, d)
		}
	}
	return free
}

// IsConstrained reports whether the frame constrains the DOF.
func (drf *DatumReferenceFrame) IsConstrained(dof int) bool {
	return contains(drf.Constrained, dof)
}

// DatumCount returns how many datum slots are filled.
func (drf *DatumReferenceFrame) DatumCount() int {
	n := 0
	for _, d := range []*DatumFeature{drf.Primary, drf.Secondary, drf.Tertiary} {
		if d != nil {
			n++
		}
	}
	return n
}

// primaryDatumDOF: the primary datum constrains the full invariance set of
// its geometry class.
func primaryDatumDOF(d *DatumFeature) []int {
	if dofs := InvarianceDOF(d.Class); dofs != nil {
		return dofs
	}
	// Complex datum surfaces seat like a plane.
	return []int{DofW, DofAlpha, DofBeta}
}

// secondaryDatumDOF: up to two more DOFs not already constrained.
func secondaryDatumDOF(d *DatumFeature, already []int) []int {
	var candidates []int
	switch d.Class.Norm() {
	case feature.Planar:
		candidates = []int{DofU, DofGamma}
	case feature.Cylindrical:
		candidates = []int{DofU, DofV, DofGamma}
	case feature.LineClass:
		candidates = []int{DofU, DofV}
	case feature.PointClass, feature.Spherical:
		candidates = []int{DofU, DofV, DofW}
	case feature.Conical:
		candidates = []int{DofU, DofV}
	default:
		candidates = []int{DofU, DofGamma}
	}
	return takeUnconstrained(candidates, already, 2)
}

// tertiaryDatumDOF: one final DOF not already constrained.
func tertiaryDatumDOF(d *DatumFeature, already []int) []int {
	var candidates []int
	switch d.Class.Norm() {
	case feature.Planar:
		candidates = []int{DofV, DofU, DofGamma}
	case feature.PointClass:
		candidates = []int{DofU, DofV, DofW}
	case feature.Cylindrical:
		candidates = []int{DofU, DofV, DofW}
	case feature.LineClass:
		candidates = []int{DofU, DofV}
	default:
		candidates = []int{DofU, DofV, DofW, DofGamma}
	}
	return takeUnconstrained(candidates, already, 1)
}

func takeUnconstrained(candidates, already []int, limit int) []int {
	var out []int
	for _, d := range candidates {
		if len(out) == limit {
			break
		}
		if !contains(already, d) {
			out = append(out, d)
		}
	}
	return out
}

// ToleranceDOFs resolves which DOFs a callout applies to. With resolvable
// datum references the callout controls the DOFs its reference frame
// constrains; without any, it falls back to the toleranced feature's own
// invariance set. Pure and deterministic for a given catalogue.
func ToleranceDOFs(refs []string, catalogue map[string]DatumFeature, class feature.GeometryClass) []int {
	if len(refs) > 0 && len(catalogue) > 0 {
		drf := BuildDRF(refs, catalogue)
		if drf.DatumCount() > 0 {
			return drf.Constrained
		}
	}
	return InvarianceDOF(class)
}

// ScanDatums builds a datum catalogue from the features carrying a datum
// label. Features without geometry sit at the world origin.
func ScanDatums(features map[string]*feature.Feature) map[string]DatumFeature {
	catalogue := make(map[string]DatumFeature)
	for _, f := range features {
		if f.DatumLabel == "" {
			continue
		}
		d := DatumFeature{Label: f.DatumLabel, Class: f.GeometryClass.Norm()}
		if f.Geometry != nil {
			d.Position = f.Geometry.Origin
			axis := f.Geometry.Axis
			d.Axis = &axis
		}
		catalogue[f.DatumLabel] = d
	}
	return catalogue
}

func contains(s []int, v int) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}
