package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"loxmin/internal/config"
	"loxmin/internal/trace"
	"loxmin/internal/version"
	"loxmin/internal/vm"
)

// exitError carries a process exit code out of a command. A nil err means
// the failure was already reported.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

// app holds the state shared by every subcommand of one invocation.
type app struct {
	cfg      config.Config
	tracer   trace.Tracer
	cleanups []func()
}

// onFinish registers f to run when the invocation ends. Cleanups run in
// reverse order of registration.
func (a *app) onFinish(f func()) { a.cleanups = append(a.cleanups, f) }

func (a *app) finish() {
	for i := len(a.cleanups) - 1; i >= 0; i-- {
		a.cleanups[i]()
	}
	a.cleanups = nil
}

// newRootCmd builds the command tree. finish releases the tracer and must
// run after Execute, whatever it returned.
func newRootCmd() (rootCmd *cobra.Command, finish func()) {
	a := &app{tracer: trace.Nop}

	rootCmd = &cobra.Command{
		Use:           "loxmin",
		Short:         "Lox bytecode interpreter",
		Long:          `loxmin compiles Lox programs to bytecode and runs them on a garbage-collected stack VM`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.prepare(cmd, args)
		},
	}

	// global flags
	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	rootCmd.PersistentFlags().Bool("quiet", false, "suppress non-essential output")
	rootCmd.PersistentFlags().String("config", "", "path to loxmin.toml (default: search upwards from the script)")
	rootCmd.PersistentFlags().String("trace", "", "trace output file (- for stderr)")
	rootCmd.PersistentFlags().String("trace-level", "", "trace level (off|error|phase|detail|debug)")
	rootCmd.PersistentFlags().String("trace-mode", "", "trace storage mode (stream|ring|both)")
	rootCmd.PersistentFlags().String("cpu-profile", "", "write a Go CPU profile to this file")
	rootCmd.PersistentFlags().String("mem-profile", "", "write a Go heap profile to this file on exit")
	rootCmd.PersistentFlags().String("runtime-trace", "", "write a Go runtime trace to this file")

	rootCmd.AddCommand(
		newRunCmd(a),
		newReplCmd(a),
		newDisasmCmd(),
		newCompileCmd(),
		newCheckCmd(a),
		newVersionCmd(),
	)
	return rootCmd, a.finish
}

// main runs the CLI and exits with the status the command reported.
func main() {
	rootCmd, finish := newRootCmd()
	err := rootCmd.Execute()
	finish()
	if err != nil {
		var exitErr *exitError
		if errors.As(err, &exitErr) {
			if exitErr.err != nil {
				fmt.Fprintln(os.Stderr, exitErr.err)
			}
			os.Exit(exitErr.code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func (a *app) prepare(cmd *cobra.Command, args []string) error {
	colorMode, err := cmd.Flags().GetString("color")
	if err != nil {
		return fmt.Errorf("failed to get color flag: %w", err)
	}
	if err := applyColor(colorMode); err != nil {
		return err
	}

	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return &exitError{code: 64, err: err}
	}
	a.cfg = cfg

	if err := a.setupTracing(cmd); err != nil {
		return err
	}
	return a.setupProfiling(cmd)
}

func loadConfig(cmd *cobra.Command, args []string) (config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return config.Config{}, fmt.Errorf("failed to get config flag: %w", err)
	}
	if path != "" {
		return config.Load(path)
	}
	start := "."
	if len(args) > 0 {
		start = filepath.Dir(args[0])
	}
	return config.Discover(start)
}

// vmOptions merges the config with per-command flags.
func (a *app) vmOptions(cmd *cobra.Command) (vm.Options, error) {
	opts := a.cfg.VMOptions()
	if f := cmd.Flags().Lookup("stress-gc"); f != nil && f.Changed {
		stress, err := cmd.Flags().GetBool("stress-gc")
		if err != nil {
			return vm.Options{}, fmt.Errorf("failed to get stress-gc flag: %w", err)
		}
		opts.StressGC = stress
	}
	opts.Out = cmd.OutOrStdout()
	opts.Err = diagnosticWriter(cmd.ErrOrStderr())
	opts.Events = a.tracer
	return opts, nil
}

func quiet(cmd *cobra.Command) bool {
	q, err := cmd.Flags().GetBool("quiet")
	return err == nil && q
}

func applyColor(mode string) error {
	switch mode {
	case "on":
		color.NoColor = false
	case "off":
		color.NoColor = true
	case "auto", "":
		color.NoColor = os.Getenv("NO_COLOR") != "" || !isTerminal(os.Stderr)
	default:
		return &exitError{code: 64, err: fmt.Errorf("invalid --color %q (expected: auto|on|off)", mode)}
	}
	return nil
}

var diagnosticColor = color.New(color.FgRed)

// colorWriter paints everything written through it.
type colorWriter struct {
	w io.Writer
	c *color.Color
}

func (cw colorWriter) Write(p []byte) (int, error) {
	if _, err := cw.c.Fprint(cw.w, string(p)); err != nil {
		return 0, err
	}
	return len(p), nil
}

// diagnosticWriter wraps w so compile and runtime errors print in red.
func diagnosticWriter(w io.Writer) io.Writer {
	if color.NoColor {
		return w
	}
	return colorWriter{w: w, c: diagnosticColor}
}

// isTerminal reports whether f is a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
