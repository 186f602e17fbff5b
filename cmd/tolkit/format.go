package main

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/gdtools/tolkit/pkg/analysis"
	"github.com/gdtools/tolkit/pkg/report"
	"github.com/gdtools/tolkit/pkg/stackup"
	"github.com/gdtools/tolkit/pkg/torsor"
)

var (
	passStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	marginalStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	failStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	headingStyle  = lipgloss.NewStyle().Bold(true).Underline(true)
)

func verdictText(v stackup.Verdict) string {
	switch v {
	case stackup.VerdictPass:
		return passStyle.Render("PASS")
	case stackup.VerdictMarginal:
		return marginalStyle.Render("MARGINAL")
	default:
		return failStyle.Render("FAIL")
	}
}

// fmtNum trims a value to at most four decimals without trailing zeros.
func fmtNum(v float64) string {
	s := strconv.FormatFloat(v, 'f', 4, 64)
	s = strings.TrimRight(s, "0")
	s = strings.TrimRight(s, ".")
	if s == "" || s == "-" {
		return "0"
	}
	return s
}

func fmtPtr(p *float64) string {
	if p == nil {
		return "n/a"
	}
	return fmtNum(*p)
}

func printStackupHeader(s *stackup.Stackup) {
	fmt.Println(headingStyle.Render(fmt.Sprintf("%s  %s", s.ID, s.Title)))
	units := s.Target.Units
	if units != "" {
		units = " " + units
	}
	fmt.Printf("Target %q: %s [%s, %s]%s\n",
		s.Target.Name, fmtNum(s.Target.Nominal),
		fmtNum(s.Target.LowerLimit), fmtNum(s.Target.UpperLimit), units)
}

func printWorstCase(wc *stackup.WorstCaseResult, target stackup.Target) {
	if wc == nil {
		return
	}
	fmt.Printf("\nWorst case\n")
	fmt.Printf("  Nominal: %-10s Range: [%s, %s]\n",
		fmtNum(wc.Nominal), fmtNum(wc.Min), fmtNum(wc.Max))
	fmt.Printf("  Margin:  %-10s Limits: [%s, %s]\n",
		fmtNum(wc.Margin), fmtNum(target.LowerLimit), fmtNum(target.UpperLimit))
	fmt.Printf("  Verdict: %s\n", verdictText(wc.Verdict))
}

func printRSS(rss *stackup.RSSResult, s *stackup.Stackup) {
	if rss == nil {
		return
	}
	fmt.Printf("\nRSS (sigma level %s)\n", fmtNum(s.SigmaLevel))
	fmt.Printf("  Mean:    %-10s Sigma: %-10s 3-sigma band: ±%s\n",
		fmtNum(rss.Mean), fmtNum(rss.Sigma), fmtNum(rss.Sigma3))
	if rss.ShiftedMean != nil {
		fmt.Printf("  Shifted mean (k=%s): %s\n", fmtNum(s.MeanShiftK), fmtNum(*rss.ShiftedMean))
	}
	fmt.Printf("  Cp: %-6s Cpk: %-6s Yield: %s%%\n",
		fmtPtr(rss.Cp), fmtPtr(rss.Cpk), fmtNum(rss.YieldPercent))
	fmt.Printf("  Margin:  %-10s Verdict: %s\n", fmtNum(rss.Margin), verdictText(rss.Verdict))
}

func printMonteCarlo(mc *stackup.MonteCarloResult) {
	if mc == nil {
		return
	}
	fmt.Printf("\nMonte Carlo (%d iterations, seed %d)\n", mc.Iterations, mc.Seed)
	fmt.Printf("  Mean:    %-10s StdDev: %-10s Range: [%s, %s]\n",
		fmtNum(mc.Mean), fmtNum(mc.StdDev), fmtNum(mc.Min), fmtNum(mc.Max))
	fmt.Printf("  95%% interval: [%s, %s]\n",
		fmtNum(mc.Percentile025), fmtNum(mc.Percentile975))
	fmt.Printf("  Pp: %-6s Ppk: %-6s Yield: %s%%\n",
		fmtPtr(mc.Pp), fmtPtr(mc.Ppk), fmtNum(mc.YieldPercent))
	fmt.Printf("  Verdict: %s\n", verdictText(mc.Verdict))
}

func printSensitivity(entries []stackup.SensitivityEntry) {
	fmt.Printf("\nSensitivity (share of chain variance)\n")
	for _, e := range entries {
		bar := strings.Repeat("█", int(e.ContributionPct/2+0.5))
		fmt.Printf("  %-24s %6.2f%% %s\n", truncate(e.Name, 24), e.ContributionPct, bar)
	}
}

func printTrace(rows []analysis.TraceRow) {
	fmt.Printf("\nRSS mean derivation\n")
	fmt.Printf("  %-3s %-24s %-9s %10s %10s %10s %12s %12s\n",
		"#", "NAME", "DIR", "NOMINAL", "OFFSET", "MEAN", "CONTRIB", "RUNNING")
	for _, r := range rows {
		fmt.Printf("  %-3d %-24s %-9s %10s %10s %10s %12s %12s\n",
			r.Index, truncate(r.Name, 24), r.Direction,
			fmtNum(r.Nominal), fmtNum(r.MeanOffset), fmtNum(r.ProcessMean),
			fmtNum(r.Contribution), fmtNum(r.RunningMean))
	}
}

const (
	histogramBins  = 24
	histogramWidth = 50
)

// printHistogram renders the Monte Carlo samples as a fixed-bin histogram.
// The bin range is widened to include the target limits so out-of-spec mass
// is always visible.
func printHistogram(samples []float64, target stackup.Target) {
	if len(samples) == 0 {
		return
	}
	lo, hi := samples[0], samples[0]
	for _, v := range samples {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	lo = math.Min(lo, target.LowerLimit)
	hi = math.Max(hi, target.UpperLimit)
	if hi == lo {
		hi = lo + 1
	}
	width := (hi - lo) / histogramBins

	counts := make([]int, histogramBins)
	for _, v := range samples {
		bin := int((v - lo) / width)
		if bin >= histogramBins {
			bin = histogramBins - 1
		}
		counts[bin]++
	}
	maxCount := 0
	for _, c := range counts {
		if c > maxCount {
			maxCount = c
		}
	}

	fmt.Printf("\nDistribution (%d samples)\n", len(samples))
	for i, c := range counts {
		left := lo + float64(i)*width
		right := left + width
		bar := strings.Repeat("█", c*histogramWidth/maxCount)
		mark := ""
		if target.LowerLimit >= left && target.LowerLimit < right {
			mark = " ◄ LSL"
		}
		if target.UpperLimit >= left && target.UpperLimit < right {
			mark += " ◄ USL"
		}
		fmt.Printf("  %10s │%s %d%s\n", fmtNum(left), bar, c, mark)
	}
}

func print3DResults(res *stackup.Analysis3DResults) {
	if res.Torsor == nil {
		return
	}
	fmt.Printf("\n3D torsor analysis\n")
	fmt.Printf("  %-4s %10s %10s %10s %10s %10s %10s\n",
		"DOF", "WC MIN", "WC MAX", "RSS MEAN", "RSS 3σ", "MC MEAN", "MC σ")
	for i := 0; i < 6; i++ {
		st := res.Torsor.DOF(i)
		fmt.Printf("  %-4s %10s %10s %10s %10s %10s %10s\n",
			torsor.DOFNames[i],
			fmtNum(st.WCMin), fmtNum(st.WCMax),
			fmtNum(st.RSSMean), fmtNum(st.RSS3Sig),
			fmtPtr(st.MCMean), fmtPtr(st.MCStdDev))
	}
	if p := res.Projection; p != nil {
		fmt.Printf("\nFunctional projection onto [%s, %s, %s]\n",
			fmtNum(p.Direction[0]), fmtNum(p.Direction[1]), fmtNum(p.Direction[2]))
		fmt.Printf("  WC deviation: [%s, %s]   RSS: %s ± %s\n",
			fmtNum(p.WCMin), fmtNum(p.WCMax), fmtNum(p.RSSMean), fmtNum(p.RSS3Sig))
		if p.MCMean != nil {
			fmt.Printf("  MC: %s ± %s\n", fmtPtr(p.MCMean), fmtPtr(p.MCStdDev))
		}
		yield := "n/a"
		if p.YieldPercent != nil {
			yield = fmtNum(*p.YieldPercent) + "%"
		}
		fmt.Printf("  Cp: %-6s Cpk: %-6s Yield: %s\n", fmtPtr(p.Cp), fmtPtr(p.Cpk), yield)
		fmt.Printf("  WC verdict: %s\n", verdictText(p.WCVerdict))
	}
}

func printSensitivity3D(entries []stackup.Sensitivity3DEntry) {
	fmt.Printf("\n3D sensitivity (share of variance per DOF)\n")
	fmt.Printf("  %-24s %7s %7s %7s %7s %7s %7s\n",
		"NAME", "u", "v", "w", "α", "β", "γ")
	for _, e := range entries {
		fmt.Printf("  %-24s %6.1f%% %6.1f%% %6.1f%% %6.1f%% %6.1f%% %6.1f%%\n",
			truncate(e.Name, 24),
			e.ContributionPct[0], e.ContributionPct[1], e.ContributionPct[2],
			e.ContributionPct[3], e.ContributionPct[4], e.ContributionPct[5])
	}
}

func printReport(rep *report.Report) {
	if len(rep.Errors) > 0 {
		fmt.Printf("\nERRORS (%d):\n", len(rep.Errors))
		for _, f := range rep.Errors {
			printFinding(f)
		}
	}
	if len(rep.Warnings) > 0 {
		fmt.Printf("\nWARNINGS (%d):\n", len(rep.Warnings))
		for _, f := range rep.Warnings {
			printFinding(f)
		}
	}
	if len(rep.Info) > 0 {
		fmt.Printf("\nINFO (%d):\n", len(rep.Info))
		for _, f := range rep.Info {
			printFinding(f)
		}
	}
	status := passStyle.Render("VALID")
	if !rep.Valid {
		status = failStyle.Render("INVALID")
	}
	fmt.Printf("\nResult: %s (%s)\n", status, rep.Summary)
}

func printFinding(f report.Finding) {
	path := ""
	if f.EntityPath != "" {
		path = " [" + f.EntityPath + "]"
	}
	fmt.Printf("  - (%s)%s %s\n", f.Level, path, f.Message)
	for _, s := range f.Suggestions {
		fmt.Printf("      suggestion: %s\n", s)
	}
}
