package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/gdtools/tolkit/pkg/stackup"
)

func main() {
	var projectPath string
	var verbose bool

	rootCmd := &cobra.Command{
		Use:   "tolkit",
		Short: "Statistical and geometric tolerance stackup analysis",
	}
	rootCmd.PersistentFlags().StringVarP(&projectPath, "project", "p", ".", "project root directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "structured logging to stderr")

	rootCmd.AddCommand(initCmd(&projectPath, &verbose))
	rootCmd.AddCommand(analyzeCmd(&projectPath, &verbose))
	rootCmd.AddCommand(listCmd(&projectPath, &verbose))
	rootCmd.AddCommand(showCmd(&projectPath, &verbose))
	rootCmd.AddCommand(validateCmd(&projectPath, &verbose))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func initCmd(projectPath *string, verbose *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the project directory layout",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runInit(*projectPath, *verbose)
		},
	}
}

// analyzeOptions carries every engine parameter explicitly; nothing is
// process-global.
type analyzeOptions struct {
	all         bool
	iterations  int
	seed        uint64
	sigma       float64
	meanShift   float64
	noGDT       bool
	run3D       bool
	sensitivity bool
	debug       bool
	histogram   bool
	csvPath     string
	save        bool
}

func analyzeCmd(projectPath *string, verbose *bool) *cobra.Command {
	var opts analyzeOptions

	cmd := &cobra.Command{
		Use:   "analyze [stackup-id]",
		Short: "Run worst-case, RSS, and Monte Carlo analysis on a stackup",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			if opts.all {
				return runAnalyzeAll(*projectPath, *verbose, opts)
			}
			if len(args) != 1 {
				return errUsage("analyze needs a stackup id or --all")
			}
			return runAnalyze(*projectPath, *verbose, args[0], opts)
		},
	}

	cmd.Flags().BoolVar(&opts.all, "all", false, "analyze every stackup in the project")
	cmd.Flags().IntVar(&opts.iterations, "iterations", stackup.DefaultIterations, "Monte Carlo iteration count")
	cmd.Flags().Uint64Var(&opts.seed, "seed", 42, "Monte Carlo random seed")
	cmd.Flags().Float64Var(&opts.sigma, "sigma", 0, "override sigma level (0 keeps the stackup's value)")
	cmd.Flags().Float64Var(&opts.meanShift, "mean-shift", -1, "override Bender mean-shift k (negative keeps the stackup's value)")
	cmd.Flags().BoolVar(&opts.noGDT, "no-gdt", false, "exclude GD&T contributions from statistical bands")
	cmd.Flags().BoolVar(&opts.run3D, "3d", false, "run 3D torsor analysis against project features")
	cmd.Flags().BoolVar(&opts.sensitivity, "sensitivity", false, "print variance-contribution breakdown")
	cmd.Flags().BoolVar(&opts.debug, "debug", false, "print the RSS mean derivation trace")
	cmd.Flags().BoolVar(&opts.histogram, "histogram", false, "render a Monte Carlo sample histogram")
	cmd.Flags().StringVar(&opts.csvPath, "csv", "", "write raw Monte Carlo samples to a CSV file")
	cmd.Flags().BoolVar(&opts.save, "save", false, "persist results back to the stackup file")
	return cmd
}

func listCmd(projectPath *string, verbose *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stackups with their last verdicts",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runList(*projectPath, *verbose)
		},
	}
}

func showCmd(projectPath *string, verbose *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "show [stackup-id]",
		Short: "Show a stackup's chain and cached results",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runShow(*projectPath, *verbose, args[0])
		},
	}
}

func validateCmd(projectPath *string, verbose *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate stackups and check feature torsor bounds for drift",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runValidateProject(*projectPath, *verbose)
		},
	}
}
