package torsor

import (
	"fmt"
	"time"

	"github.com/gdtools/tolkit/pkg/feature"
	"github.com/gdtools/tolkit/pkg/report"
	"github.com/gdtools/tolkit/pkg/stackup"
)

// ReferenceLength is the lever arm, in millimeters, used to convert a
// linear half-tolerance into an angular bound when a contributor has no
// GD&T-sourced bounds. A deliberate modeling approximation: it is not
// scaled by feature size.
const ReferenceLength = 50.0

// DeriveBounds spreads a linear half-tolerance over the given DOFs:
// translations get ±halfTol directly, rotations get ±halfTol/ReferenceLength.
func DeriveBounds(halfTol float64, dofs []int) feature.TorsorBounds {
	var b feature.TorsorBounds
	angular := halfTol / ReferenceLength
	for _, d := range dofs {
		switch {
		case d >= DofU && d <= DofW:
			b.SetDOF(d, feature.Symmetric(halfTol))
		case d >= DofAlpha && d <= DofGamma:
			b.SetDOF(d, feature.Symmetric(angular))
		}
	}
	return b
}

// BuildChain assembles the 3D contributor chain for a stackup. Only
// contributors that reference a feature join the chain. Bounds come from
// the feature's stored GD&T torsor bounds when present, from a fresh GD&T
// conversion otherwise, and failing both are derived from the 1D tolerance
// over the resolved DOFs. Findings about bound sources and missing
// geometry land on rep.
func BuildChain(s *stackup.Stackup, features map[string]*feature.Feature, catalogue map[string]DatumFeature, rep *report.Report) []ChainContributor {
	var chain []ChainContributor
	for i, c := range s.Contributors {
		if c.Feature == nil {
			continue
		}
		path := fmt.Sprintf("contributors/%d", i)

		feat := features[c.Feature.ID]
		if feat == nil {
			rep.Warnf(report.LevelGeometry, path,
				"contributor %q references unknown feature %s; using world origin", c.Name, c.Feature.ID)
		}

		class := feature.Complex
		var position [3]float64
		var refs []string
		if feat != nil {
			class = feat.GeometryClass.Norm()
			if feat.Geometry != nil {
				position = feat.Geometry.Origin
			} else {
				rep.Warnf(report.LevelGeometry, path,
					"contributor %q feature %s has no 3D geometry; using world origin", c.Name, feat.ID)
			}
			if len(feat.GDT) > 0 {
				refs = feat.GDT[0].DatumRefs
			}
		}

		dofs := ToleranceDOFs(refs, catalogue, class)

		bounds, source := resolveBounds(c, feat, dofs, s.IncludeGDT)
		rep.Infof(report.LevelAnalysis, path, "contributor %q uses %s bounds", c.Name, source)

		chain = append(chain, ChainContributor{
			Name:         c.Name,
			FeatureID:    c.Feature.ID,
			Class:        class,
			Position:     position,
			Bounds:       bounds,
			Distribution: c.Distribution,
			SigmaLevel:   s.SigmaLevel,
			Source:       source,
		})
	}
	return chain
}

func resolveBounds(c stackup.Contributor, feat *feature.Feature, dofs []int, includeGDT bool) (feature.TorsorBounds, BoundsSource) {
	if feat != nil {
		if feat.TorsorBounds != nil && feat.TorsorBounds.HasAny() {
			return *feat.TorsorBounds, SourceGDT
		}
		if feat.HasGDT() {
			if res := feature.ComputeTorsorBounds(feat, nil); res.Bounds.HasAny() {
				return res.Bounds, SourceGDT
			}
		}
	}
	return DeriveBounds(c.Band(includeGDT)/2, dofs), SourceDerived
}

// Analyze3D runs the full torsor analysis for a stackup against a feature
// set. A chain that resolves to no contributors is a "nothing to analyze"
// outcome: the returned results are nil and the report says why. The 1D
// results on the stackup are untouched either way.
func Analyze3D(s *stackup.Stackup, features map[string]*feature.Feature, iterations int, seed uint64) (*stackup.Analysis3DResults, *report.Report, error) {
	rep := report.NewReport()
	if err := s.Validate(); err != nil {
		return nil, rep, fmt.Errorf("3d analysis: %w", err)
	}
	if iterations <= 0 {
		return nil, rep, fmt.Errorf("3d analysis: iterations must be positive, got %d", iterations)
	}

	catalogue := ScanDatums(features)
	if len(catalogue) > 0 {
		labels := make([]string, 0, len(catalogue))
		for l := range catalogue {
			labels = append(labels, l)
		}
		rep.Infof(report.LevelGeometry, "", "datum features available: %d", len(labels))
	}

	chain := BuildChain(s, features, catalogue, rep)
	if len(chain) == 0 {
		rep.Infof(report.LevelAnalysis, "", "no contributors reference features; nothing to analyze in 3D")
		return nil, rep, nil
	}

	result := AnalyzeChain(chain, true, iterations, seed)

	sensitivity := make([]stackup.Sensitivity3DEntry, len(chain))
	for i, c := range chain {
		sensitivity[i] = stackup.Sensitivity3DEntry{
			Name:            c.Name,
			FeatureID:       c.FeatureID,
			ContributionPct: result.Sensitivity[i],
		}
	}

	projection := Project(&result.Stats, s.Direction(), s.Target, s.SigmaLevel)

	stats := result.Stats
	return &stackup.Analysis3DResults{
		Torsor:      &stats,
		Projection:  &projection,
		Sensitivity: sensitivity,
		AnalyzedAt:  time.Now().UTC(),
	}, rep, nil
}
