package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"loxmin/internal/trace"
)

// setupTracing merges the [trace] table with the trace flags and attaches
// the resulting tracer to the command context.
func (a *app) setupTracing(cmd *cobra.Command) error {
	cfg, err := a.cfg.TraceConfig()
	if err != nil {
		return fmt.Errorf("invalid trace config: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("trace") {
		output, err := flags.GetString("trace")
		if err != nil {
			return fmt.Errorf("failed to get trace flag: %w", err)
		}
		cfg.OutputPath = output
		if cfg.Level == trace.LevelOff {
			cfg.Level = trace.LevelPhase
		}
	}
	if flags.Changed("trace-level") {
		levelStr, err := flags.GetString("trace-level")
		if err != nil {
			return fmt.Errorf("failed to get trace-level flag: %w", err)
		}
		if cfg.Level, err = trace.ParseLevel(levelStr); err != nil {
			return err
		}
	}
	if flags.Changed("trace-mode") {
		modeStr, err := flags.GetString("trace-mode")
		if err != nil {
			return fmt.Errorf("failed to get trace-mode flag: %w", err)
		}
		if cfg.Mode, err = trace.ParseMode(modeStr); err != nil {
			return err
		}
	}
	if cfg.Level == trace.LevelOff {
		cmd.SetContext(trace.WithTracer(cmd.Context(), trace.Nop))
		return nil
	}
	if cfg.OutputPath == "" || cfg.OutputPath == "-" {
		cfg.Output = cmd.ErrOrStderr()
	}

	tracer, err := trace.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to create tracer: %w", err)
	}
	a.tracer = tracer
	cmd.SetContext(trace.WithTracer(cmd.Context(), tracer))

	a.onFinish(func() {
		if ring := trace.RecorderOf(tracer); ring != nil && cfg.Mode == trace.ModeRing {
			if err := ring.Dump(cmd.ErrOrStderr(), cfg.Format); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "trace: dump error: %v\n", err)
			}
		}
		if err := tracer.Flush(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: flush error: %v\n", err)
		}
		if err := tracer.Close(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: close error: %v\n", err)
		}
	})
	return nil
}
