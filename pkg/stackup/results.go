package stackup

import "time"

// Verdict classifies a result against the target limits.
type Verdict string

const (
	VerdictPass     Verdict = "pass"
	VerdictMarginal Verdict = "marginal"
	VerdictFail     Verdict = "fail"
)

// WorstCaseResult holds the signed-extreme analysis of the chain.
type WorstCaseResult struct {
	Nominal float64 `yaml:"nominal" json:"nominal"`
	Min     float64 `yaml:"min" json:"min"`
	Max     float64 `yaml:"max" json:"max"`
	Margin  float64 `yaml:"margin" json:"margin"`
	Verdict Verdict `yaml:"verdict" json:"verdict"`
}

// SensitivityEntry is one contributor's share of the chain variance.
type SensitivityEntry struct {
	Name            string  `yaml:"name" json:"name"`
	ContributionPct float64 `yaml:"contribution_pct" json:"contribution_pct"`
}

// RSSResult holds the root-sum-square analysis. Cp and Cpk are nil when the
// chain variance is zero. ShiftedMean is set only when a Bender mean shift
// was applied.
type RSSResult struct {
	Mean         float64            `yaml:"mean" json:"mean"`
	ShiftedMean  *float64           `yaml:"shifted_mean,omitempty" json:"shifted_mean,omitempty"`
	Sigma        float64            `yaml:"sigma" json:"sigma"`
	Sigma3       float64            `yaml:"three_sigma" json:"three_sigma"`
	Margin       float64            `yaml:"margin" json:"margin"`
	Cp           *float64           `yaml:"cp,omitempty" json:"cp,omitempty"`
	Cpk          *float64           `yaml:"cpk,omitempty" json:"cpk,omitempty"`
	YieldPercent float64            `yaml:"yield_percent" json:"yield_percent"`
	Verdict      Verdict            `yaml:"verdict" json:"verdict"`
	Sensitivity  []SensitivityEntry `yaml:"sensitivity,omitempty" json:"sensitivity,omitempty"`
}

// MonteCarloResult holds the simulation analysis. Pp and Ppk are nil when
// the empirical spread is zero.
type MonteCarloResult struct {
	Iterations    int      `yaml:"iterations" json:"iterations"`
	Seed          uint64   `yaml:"seed" json:"seed"`
	Mean          float64  `yaml:"mean" json:"mean"`
	StdDev        float64  `yaml:"std_dev" json:"std_dev"`
	Min           float64  `yaml:"min" json:"min"`
	Max           float64  `yaml:"max" json:"max"`
	Percentile025 float64  `yaml:"percentile_2_5" json:"percentile_2_5"`
	Percentile975 float64  `yaml:"percentile_97_5" json:"percentile_97_5"`
	Pp            *float64 `yaml:"pp,omitempty" json:"pp,omitempty"`
	Ppk           *float64 `yaml:"ppk,omitempty" json:"ppk,omitempty"`
	YieldPercent  float64  `yaml:"yield_percent" json:"yield_percent"`
	Verdict       Verdict  `yaml:"verdict" json:"verdict"`
}

// AnalysisResults caches the latest 1D runs on the stackup entity.
type AnalysisResults struct {
	WorstCase  *WorstCaseResult  `yaml:"worst_case,omitempty" json:"worst_case,omitempty"`
	RSS        *RSSResult        `yaml:"rss,omitempty" json:"rss,omitempty"`
	MonteCarlo *MonteCarloResult `yaml:"monte_carlo,omitempty" json:"monte_carlo,omitempty"`
	AnalyzedAt *time.Time        `yaml:"analyzed_at,omitempty" json:"analyzed_at,omitempty"`
}

// TorsorStats aggregates the per-method results for one degree of freedom.
// The Monte Carlo fields are nil when simulation was not run.
type TorsorStats struct {
	WCMin    float64  `yaml:"wc_min" json:"wc_min"`
	WCMax    float64  `yaml:"wc_max" json:"wc_max"`
	RSSMean  float64  `yaml:"rss_mean" json:"rss_mean"`
	RSS3Sig  float64  `yaml:"rss_three_sigma" json:"rss_three_sigma"`
	MCMean   *float64 `yaml:"mc_mean,omitempty" json:"mc_mean,omitempty"`
	MCStdDev *float64 `yaml:"mc_std_dev,omitempty" json:"mc_std_dev,omitempty"`
}

// ResultTorsor carries per-DOF statistics: three translations then three
// rotations.
type ResultTorsor struct {
	U     TorsorStats `yaml:"u" json:"u"`
	V     TorsorStats `yaml:"v" json:"v"`
	W     TorsorStats `yaml:"w" json:"w"`
	Alpha TorsorStats `yaml:"alpha" json:"alpha"`
	Beta  TorsorStats `yaml:"beta" json:"beta"`
	Gamma TorsorStats `yaml:"gamma" json:"gamma"`
}

// DOF returns the stats slot for the DOF index (0..5 = u,v,w,alpha,beta,gamma).
func (r *ResultTorsor) DOF(i int) *TorsorStats {
	switch i {
	case 0:
		return &r.U
	case 1:
		return &r.V
	case 2:
		return &r.W
	case 3:
		return &r.Alpha
	case 4:
		return &r.Beta
	default:
		return &r.Gamma
	}
}

// Sensitivity3DEntry is one contributor's variance share per DOF, in
// percent. DOFs with zero chain variance carry zero.
type Sensitivity3DEntry struct {
	Name            string     `yaml:"name" json:"name"`
	FeatureID       string     `yaml:"feature_id,omitempty" json:"feature_id,omitempty"`
	ContributionPct [6]float64 `yaml:"contribution_pct" json:"contribution_pct"`
}

// FunctionalProjection is the result torsor collapsed onto a unit direction.
// Capability fields are nil when the projected variance is zero.
type FunctionalProjection struct {
	Direction    [3]float64 `yaml:"direction" json:"direction"`
	WCMin        float64    `yaml:"wc_min" json:"wc_min"`
	WCMax        float64    `yaml:"wc_max" json:"wc_max"`
	RSSMean      float64    `yaml:"rss_mean" json:"rss_mean"`
	RSS3Sig      float64    `yaml:"rss_three_sigma" json:"rss_three_sigma"`
	MCMean       *float64   `yaml:"mc_mean,omitempty" json:"mc_mean,omitempty"`
	MCStdDev     *float64   `yaml:"mc_std_dev,omitempty" json:"mc_std_dev,omitempty"`
	Cp           *float64   `yaml:"cp,omitempty" json:"cp,omitempty"`
	Cpk          *float64   `yaml:"cpk,omitempty" json:"cpk,omitempty"`
	YieldPercent *float64   `yaml:"yield_percent,omitempty" json:"yield_percent,omitempty"`
	WCVerdict    Verdict    `yaml:"wc_verdict" json:"wc_verdict"`
}

// Analysis3DResults caches the latest torsor run on the stackup entity.
type Analysis3DResults struct {
	Torsor      *ResultTorsor         `yaml:"result_torsor,omitempty" json:"result_torsor,omitempty"`
	Projection  *FunctionalProjection `yaml:"functional_projection,omitempty" json:"functional_projection,omitempty"`
	Sensitivity []Sensitivity3DEntry  `yaml:"sensitivity,omitempty" json:"sensitivity,omitempty"`
	AnalyzedAt  time.Time             `yaml:"analyzed_at" json:"analyzed_at"`
}
