package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"loxmin/internal/driver"
)

var (
	passColor = color.New(color.FgGreen)
	failColor = color.New(color.FgRed, color.Bold)
)

func newCheckCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check [flags] <dir|file.lox>...",
		Short: "Run test scripts and compare their output",
		Long: `Run every script in parallel, one VM each, and compare the combined output
with the "// expect: ..." and "// expect runtime error: ..." comments in the script`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runCheck(cmd, args)
		},
	}
	cmd.Flags().IntP("jobs", "j", 0, "scripts to run in parallel (0 = GOMAXPROCS)")
	cmd.Flags().Bool("stress-gc", false, "collect garbage on every allocation")
	cmd.Flags().String("ui", "auto", "progress view (auto|on|off)")
	return cmd
}

func (a *app) runCheck(cmd *cobra.Command, args []string) error {
	jobs, err := cmd.Flags().GetInt("jobs")
	if err != nil {
		return fmt.Errorf("failed to get jobs flag: %w", err)
	}
	uiFlag, err := cmd.Flags().GetString("ui")
	if err != nil {
		return fmt.Errorf("failed to get ui flag: %w", err)
	}
	mode, err := readUIMode(uiFlag)
	if err != nil {
		return &exitError{code: driver.ExitUsage, err: err}
	}
	opts, err := a.vmOptions(cmd)
	if err != nil {
		return err
	}

	paths, err := driver.ListScripts(args)
	if err != nil {
		return &exitError{code: driver.ExitIOErr, err: err}
	}
	out := cmd.OutOrStdout()
	checkOpts := driver.CheckOptions{Jobs: jobs, VM: opts}
	useTUI := shouldUseTUI(mode, out)
	var results []driver.CheckResult
	if useTUI {
		results, err = runCheckWithUI(cmd.Context(), out, paths, checkOpts)
	} else {
		results, err = driver.Check(cmd.Context(), paths, checkOpts)
	}
	if err != nil {
		return err
	}

	failed := 0
	for i := range results {
		r := &results[i]
		if r.Passed() {
			// the progress view already counted passes
			if !quiet(cmd) && !useTUI {
				fmt.Fprintf(out, "%s %s (%.1f ms)\n", passColor.Sprint("PASS"), r.Path, float64(r.Duration.Microseconds())/1000)
			}
			continue
		}
		failed++
		fmt.Fprintf(out, "%s %s: %s\n", failColor.Sprint("FAIL"), r.Path, r.Mismatch())
	}
	fmt.Fprintf(out, "%d passed, %d failed\n", len(results)-failed, failed)
	if failed > 0 {
		return &exitError{code: 1}
	}
	return nil
}
