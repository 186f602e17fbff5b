package main

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/gdtools/tolkit/internal/store"
	"github.com/gdtools/tolkit/pkg/analysis"
	"github.com/gdtools/tolkit/pkg/feature"
	"github.com/gdtools/tolkit/pkg/report"
	"github.com/gdtools/tolkit/pkg/stackup"
	"github.com/gdtools/tolkit/pkg/torsor"
)

// staleEpsilon is the tolerance for comparing stored torsor bounds against a
// fresh GD&T conversion.
const staleEpsilon = 1e-9

func errUsage(msg string) error {
	return fmt.Errorf("usage: %s", msg)
}

func newLogger(verbose bool) *zap.Logger {
	if !verbose {
		return zap.NewNop()
	}
	log, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return log
}

func openStore(projectPath string, verbose bool) (*store.Store, error) {
	st, err := store.Open(projectPath, newLogger(verbose))
	if err != nil {
		return nil, fmt.Errorf("opening project: %w", err)
	}
	return st, nil
}

func runInit(projectPath string, verbose bool) error {
	if err := os.MkdirAll(projectPath, 0o755); err != nil {
		return fmt.Errorf("creating project root: %w", err)
	}
	st, err := openStore(projectPath, verbose)
	if err != nil {
		return err
	}
	if err := st.Init(); err != nil {
		return err
	}
	fmt.Printf("Initialized tolerance project in %s\n", st.Root())
	return nil
}

func applyOverrides(s *stackup.Stackup, opts analyzeOptions) {
	if opts.sigma > 0 {
		s.SigmaLevel = opts.sigma
	}
	if opts.meanShift >= 0 {
		s.MeanShiftK = opts.meanShift
	}
	if opts.noGDT {
		s.IncludeGDT = false
	}
}

func runAnalyze(projectPath string, verbose bool, id string, opts analyzeOptions) error {
	st, err := openStore(projectPath, verbose)
	if err != nil {
		return err
	}
	s, err := st.LoadStackup(id)
	if err != nil {
		return err
	}
	applyOverrides(s, opts)

	if err := analysis.Analyze(s, opts.iterations, opts.seed); err != nil {
		return err
	}

	printStackupHeader(s)
	printWorstCase(s.Results.WorstCase, s.Target)
	printRSS(s.Results.RSS, s)
	printMonteCarlo(s.Results.MonteCarlo)

	if opts.sensitivity {
		printSensitivity(s.Results.RSS.Sensitivity)
	}
	if opts.debug {
		printTrace(analysis.TraceRSS(s))
	}

	if opts.histogram || opts.csvPath != "" {
		// Same seed, so the samples reproduce the run above exactly.
		_, samples, err := analysis.MonteCarloSamples(s, opts.iterations, opts.seed)
		if err != nil {
			return err
		}
		if opts.histogram {
			printHistogram(samples, s.Target)
		}
		if opts.csvPath != "" {
			if err := writeSamplesCSV(opts.csvPath, samples); err != nil {
				return fmt.Errorf("writing samples: %w", err)
			}
			fmt.Printf("\nWrote %d samples to %s\n", len(samples), opts.csvPath)
		}
	}

	if opts.run3D {
		features, err := st.LoadFeatures()
		if err != nil {
			return err
		}
		res3d, rep, err := torsor.Analyze3D(s, features, opts.iterations, opts.seed)
		if err != nil {
			return err
		}
		printReport(rep)
		if res3d != nil {
			s.Results3D = res3d
			print3DResults(res3d)
			if opts.sensitivity {
				printSensitivity3D(res3d.Sensitivity)
			}
		}
	}

	if opts.save {
		if err := st.SaveStackup(s); err != nil {
			return err
		}
		fmt.Printf("\nSaved results to %s\n", s.ID)
	}
	return nil
}

func runAnalyzeAll(projectPath string, verbose bool, opts analyzeOptions) error {
	st, err := openStore(projectPath, verbose)
	if err != nil {
		return err
	}
	all, err := st.LoadStackups()
	if err != nil {
		return err
	}
	if len(all) == 0 {
		fmt.Println("No stackups in project.")
		return nil
	}

	var analyzed, skipped, failed int
	for _, s := range all {
		if len(s.Contributors) == 0 {
			fmt.Printf("%-14s %-28s skipped (no contributors)\n", s.ID, truncate(s.Title, 28))
			skipped++
			continue
		}
		applyOverrides(s, opts)
		if err := analysis.Analyze(s, opts.iterations, opts.seed); err != nil {
			fmt.Printf("%-14s %-28s FAILED: %v\n", s.ID, truncate(s.Title, 28), err)
			failed++
			continue
		}
		fmt.Printf("%-14s %-28s WC %-8s  RSS %-8s  MC %s\n",
			s.ID, truncate(s.Title, 28),
			verdictText(s.Results.WorstCase.Verdict),
			verdictText(s.Results.RSS.Verdict),
			verdictText(s.Results.MonteCarlo.Verdict))
		analyzed++
		if opts.save {
			if err := st.SaveStackup(s); err != nil {
				return err
			}
		}
	}
	fmt.Printf("\n%d analyzed, %d skipped, %d failed\n", analyzed, skipped, failed)
	if failed > 0 {
		os.Exit(1)
	}
	return nil
}

func runList(projectPath string, verbose bool) error {
	st, err := openStore(projectPath, verbose)
	if err != nil {
		return err
	}
	all, err := st.LoadStackups()
	if err != nil {
		return err
	}
	if len(all) == 0 {
		fmt.Println("No stackups in project.")
		return nil
	}

	fmt.Printf("%-14s %-30s %6s %10s %10s %10s\n",
		"ID", "TITLE", "CONTRIB", "WC", "RSS", "MC")
	for _, s := range all {
		fmt.Printf("%-14s %-30s %6d %10s %10s %10s\n",
			s.ID, truncate(s.Title, 30), len(s.Contributors),
			cachedVerdict(s.Results.WorstCase != nil, func() stackup.Verdict { return s.Results.WorstCase.Verdict }),
			cachedVerdict(s.Results.RSS != nil, func() stackup.Verdict { return s.Results.RSS.Verdict }),
			cachedVerdict(s.Results.MonteCarlo != nil, func() stackup.Verdict { return s.Results.MonteCarlo.Verdict }))
	}
	return nil
}

func cachedVerdict(ok bool, get func() stackup.Verdict) string {
	if !ok {
		return "-"
	}
	return verdictText(get())
}

func runShow(projectPath string, verbose bool, id string) error {
	st, err := openStore(projectPath, verbose)
	if err != nil {
		return err
	}
	s, err := st.LoadStackup(id)
	if err != nil {
		return err
	}

	printStackupHeader(s)
	fmt.Printf("Sigma level: %s   Mean shift k: %s   GD&T in bands: %v\n",
		fmtNum(s.SigmaLevel), fmtNum(s.MeanShiftK), s.IncludeGDT)

	fmt.Printf("\nContributors:\n")
	fmt.Printf("  %-3s %-24s %-9s %10s %8s %8s %-10s %8s\n",
		"#", "NAME", "DIR", "NOMINAL", "+TOL", "-TOL", "DIST", "GDT")
	for i, c := range s.Contributors {
		gdt := "-"
		if c.GdtPosition != nil {
			gdt = fmtNum(c.GdtPosition.Effective())
		}
		fmt.Printf("  %-3d %-24s %-9s %10s %8s %8s %-10s %8s\n",
			i, truncate(c.Name, 24), c.Direction, fmtNum(c.Nominal),
			fmtNum(c.PlusTol), fmtNum(c.MinusTol), string(c.Distribution.Norm()), gdt)
	}

	if s.Results.AnalyzedAt != nil {
		fmt.Printf("\nLast analyzed: %s\n", s.Results.AnalyzedAt.Format("2006-01-02 15:04:05 MST"))
		printWorstCase(s.Results.WorstCase, s.Target)
		printRSS(s.Results.RSS, s)
		printMonteCarlo(s.Results.MonteCarlo)
	} else {
		fmt.Println("\nNot yet analyzed.")
	}
	if s.Results3D != nil {
		print3DResults(s.Results3D)
	}
	return nil
}

func runValidateProject(projectPath string, verbose bool) error {
	st, err := openStore(projectPath, verbose)
	if err != nil {
		return err
	}
	rep := report.NewReport()

	stackups, err := st.LoadStackups()
	if err != nil {
		return err
	}
	for _, s := range stackups {
		if err := s.Validate(); err != nil {
			rep.AddError(report.Finding{
				Level:      report.LevelSchema,
				EntityPath: "stackups/" + s.ID,
				Message:    err.Error(),
			})
		}
	}

	features, err := st.LoadFeatures()
	if err != nil {
		return err
	}
	ids := make([]string, 0, len(features))
	for id := range features {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		f := features[id]
		path := "features/" + id
		if f.HasGDT() {
			res := feature.ComputeTorsorBounds(f, nil)
			for _, w := range res.Warnings {
				rep.Warnf(report.LevelGeometry, path, "%s", w)
			}
		}
		if f.TorsorBounds != nil {
			if fresh, _ := feature.CheckStale(f, staleEpsilon); !fresh {
				rep.Warnf(report.LevelGeometry, path,
					"stored torsor bounds no longer match the GD&T controls; recompute and save")
			}
		}
	}

	rep.Infof(report.LevelSchema, "", "checked %d stackups, %d features", len(stackups), len(features))
	printReport(rep)
	if !rep.Valid {
		os.Exit(1)
	}
	return nil
}

func writeSamplesCSV(path string, samples []float64) error {
	var b strings.Builder
	b.WriteString("index,value\n")
	for i, v := range samples {
		b.WriteString(strconv.Itoa(i))
		b.WriteByte(',')
		b.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
		b.WriteByte('\n')
	}
	return os.WriteFile(path, []byte(b.String()), 0o644)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}
