package feature

import "math"

// DefaultAngularLength is the lever arm assumed when a feature's geometry
// omits its length, for converting linear orientation tolerances to angular
// bounds.
const DefaultAngularLength = 10.0

// BoundsResult is the outcome of converting GD&T controls to torsor bounds.
type BoundsResult struct {
	Bounds   TorsorBounds
	Warnings []string
	HasBonus bool
}

// ComputeTorsorBounds converts a feature's GD&T controls into torsor bounds
// per ASME Y14.5 small-displacement semantics. When a control carries an MMC
// or LMC modifier and actualSize is known, departure from the material
// condition earns bonus tolerance. Controls merge to the widest bound per
// DOF. Without GD&T, the primary dimension provides a fallback bound.
func ComputeTorsorBounds(f *Feature, actualSize *float64) BoundsResult {
	res := BoundsResult{}
	class := f.GeometryClass.Norm()
	dim := f.PrimaryDimension()

	for i := range f.GDT {
		cb := boundsForControl(&f.GDT[i], class, f.Geometry, dim, actualSize)
		res.Bounds = MergeBounds(res.Bounds, cb.Bounds)
		res.HasBonus = res.HasBonus || cb.HasBonus
		res.Warnings = append(res.Warnings, cb.Warnings...)
	}

	if len(f.GDT) == 0 && dim != nil {
		res.Bounds = MergeBounds(res.Bounds, boundsFromDimension(dim, class, f.Geometry))
		res.Warnings = append(res.Warnings, "torsor bounds computed from dimensional tolerance (no GD&T)")
	}

	res.Warnings = append(res.Warnings, validateBoundsForClass(&res.Bounds, class)...)
	return res
}

func boundsForControl(gdt *GdtControl, class GeometryClass, geo *Geometry3D, dim *Dimension, actualSize *float64) BoundsResult {
	res := BoundsResult{}
	b := &res.Bounds

	eff := gdt.Value
	if dim != nil && actualSize != nil {
		switch gdt.MaterialCondition {
		case MMC:
			bonus := math.Abs(*actualSize - dim.MMC())
			res.HasBonus = bonus > 0
			eff += bonus
		case LMC:
			bonus := math.Abs(*actualSize - dim.LMC())
			res.HasBonus = bonus > 0
			eff += bonus
		}
	}

	// Angular bound from a linear tolerance over the feature length.
	angular := func() *Interval {
		if geo == nil {
			return nil
		}
		length := DefaultAngularLength
		if geo.Length != nil {
			length = *geo.Length
		}
		return Symmetric(eff / length)
	}

	switch gdt.Symbol {
	case Position:
		half := Symmetric(eff / 2)
		switch class {
		case Cylindrical, Conical:
			// Diametral zone: radius = tol/2 on u, v.
			b.U, b.V = half, half
		case Spherical, PointClass:
			b.U, b.V, b.W = half, half, half
		case Planar, LineClass:
			b.U, b.V = half, half
		default:
			b.U, b.V, b.W = half, half, half
		}

	case Perpendicularity, Parallelism, Angularity:
		if ab := angular(); ab != nil {
			b.Alpha, b.Beta = ab, ab
		} else {
			res.Warnings = append(res.Warnings,
				string(gdt.Symbol)+" control needs feature geometry for angular bounds")
		}

	case Flatness:
		b.W = Symmetric(eff / 2)

	case Concentricity:
		half := Symmetric(eff / 2)
		b.U, b.V = half, half

	case Runout:
		half := Symmetric(eff / 2)
		b.U, b.V = half, half
		if ab := angular(); ab != nil {
			b.Alpha, b.Beta = ab, ab
		}

	case TotalRunout:
		half := Symmetric(eff / 2)
		b.U, b.V, b.W = half, half, half
		if ab := angular(); ab != nil {
			b.Alpha, b.Beta = ab, ab
		}

	case ProfileSurface:
		half := Symmetric(eff / 2)
		switch class {
		case Planar:
			b.W = half
		case Cylindrical, Conical:
			b.U, b.V = half, half
		default:
			b.U, b.V, b.W = half, half, half
		}

	case ProfileLine, Circularity:
		half := Symmetric(eff / 2)
		b.U, b.V = half, half

	case Cylindricity:
		half := Symmetric(eff / 2)
		b.U, b.V = half, half
		if ab := angular(); ab != nil {
			b.Alpha, b.Beta = ab, ab
		}

	case Straightness:
		switch class {
		case Cylindrical, LineClass:
			// Straightness of an axis bends it.
			if ab := angular(); ab != nil {
				b.Alpha, b.Beta = ab, ab
			}
		default:
			b.W = Symmetric(eff / 2)
		}

	case Symmetry:
		b.U = Symmetric(eff / 2)

	default:
		res.Warnings = append(res.Warnings, "unknown GD&T symbol "+string(gdt.Symbol))
	}

	return res
}

// boundsFromDimension derives bounds from a size tolerance when no GD&T is
// present. Diametral classes halve the band again for the radius.
func boundsFromDimension(dim *Dimension, class GeometryClass, geo *Geometry3D) TorsorBounds {
	var b TorsorBounds
	half := dim.Band() / 2

	switch class {
	case Cylindrical, Conical:
		radial := Symmetric(half / 2)
		b.U, b.V = radial, radial
	case Spherical, PointClass:
		iv := Symmetric(half / 2)
		b.U, b.V, b.W = iv, iv, iv
	case Planar:
		b.W = Symmetric(half)
	case LineClass:
		iv := Symmetric(half / 2)
		b.U, b.V = iv, iv
	default:
		if geo != nil {
			b.W = Symmetric(half)
		} else {
			iv := Symmetric(half)
			b.U, b.V, b.W = iv, iv, iv
		}
	}
	return b
}

// MergeBounds combines two bound sets, taking the wider limits per DOF.
func MergeBounds(a, b TorsorBounds) TorsorBounds {
	var out TorsorBounds
	for i := 0; i < 6; i++ {
		out.SetDOF(i, mergeDOF(a.DOF(i), b.DOF(i)))
	}
	return out
}

func mergeDOF(a, b *Interval) *Interval {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	default:
		return &Interval{math.Min(a[0], b[0]), math.Max(a[1], b[1])}
	}
}

func validateBoundsForClass(b *TorsorBounds, class GeometryClass) []string {
	var warnings []string
	switch class {
	case Cylindrical:
		if b.U == nil || b.V == nil {
			warnings = append(warnings, "cylindrical feature missing radial (u, v) bounds")
		}
	case Planar:
		if b.W == nil && b.Alpha == nil && b.Beta == nil {
			warnings = append(warnings, "planar feature has no bounds, expected w, alpha, or beta")
		}
	case Spherical, PointClass:
		if b.U == nil && b.V == nil && b.W == nil {
			warnings = append(warnings, "point/sphere feature missing positional (u, v, w) bounds")
		}
	}
	return warnings
}

// BoundsApproxEqual reports whether two bound sets agree within epsilon on
// every DOF, including presence.
func BoundsApproxEqual(a, b *TorsorBounds, epsilon float64) bool {
	for i := 0; i < 6; i++ {
		av, bv := a.DOF(i), b.DOF(i)
		switch {
		case av == nil && bv == nil:
		case av == nil || bv == nil:
			return false
		case math.Abs(av[0]-bv[0]) >= epsilon || math.Abs(av[1]-bv[1]) >= epsilon:
			return false
		}
	}
	return true
}

// CheckStale compares stored bounds against a recomputation from GD&T.
// It returns false when the stored bounds have drifted.
func CheckStale(f *Feature, epsilon float64) (fresh bool, recomputed TorsorBounds) {
	res := ComputeTorsorBounds(f, nil)
	if f.TorsorBounds == nil {
		return !res.Bounds.HasAny(), res.Bounds
	}
	return BoundsApproxEqual(f.TorsorBounds, &res.Bounds, epsilon), res.Bounds
}
