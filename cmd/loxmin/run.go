package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"loxmin/internal/driver"
	"loxmin/internal/observ"
	"loxmin/internal/trace"
	"loxmin/internal/vm"
)

func newRunCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [flags] <file.lox|file.loxc>",
		Short: "Compile and execute a Lox program",
		Long:  `Compile a Lox source file (or load a compiled image) and execute it on the VM`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runExecution(cmd, args[0])
		},
	}
	cmd.Flags().Bool("stress-gc", false, "collect garbage on every allocation")
	cmd.Flags().Bool("vm-trace", false, "trace every instruction with the value stack")
	cmd.Flags().Bool("timings", false, "print compile and run durations")
	cmd.Flags().Duration("heartbeat", 0, "emit a trace heartbeat at this interval (0 = off)")
	return cmd
}

func (a *app) runExecution(cmd *cobra.Command, path string) error {
	vmTrace, err := cmd.Flags().GetBool("vm-trace")
	if err != nil {
		return fmt.Errorf("failed to get vm-trace flag: %w", err)
	}
	timings, err := cmd.Flags().GetBool("timings")
	if err != nil {
		return fmt.Errorf("failed to get timings flag: %w", err)
	}
	interval, err := cmd.Flags().GetDuration("heartbeat")
	if err != nil {
		return fmt.Errorf("failed to get heartbeat flag: %w", err)
	}

	opts, err := a.vmOptions(cmd)
	if err != nil {
		return err
	}
	if vmTrace {
		opts.Trace = vm.NewTracer(cmd.ErrOrStderr())
	}

	ctx := cmd.Context()
	var timer *observ.Timer
	if timings {
		timer = observ.NewTimer()
		ctx = observ.WithTimer(ctx, timer)
	}

	heartbeat := trace.StartHeartbeat(a.tracer, interval)
	defer heartbeat.Stop()

	span := trace.Begin(a.tracer, trace.ScopeDriver, "loxmin run", 0).WithExtra("path", path)
	ctx = trace.WithParent(ctx, span)

	machine := vm.New(opts)
	defer machine.Free()

	res, err := driver.RunFile(ctx, machine, path)
	span.End(res.String())
	if err != nil {
		return &exitError{code: driver.ExitIOErr, err: err}
	}
	if timer != nil && !quiet(cmd) {
		fmt.Fprint(cmd.ErrOrStderr(), timer.Summary())
	}
	if code := driver.ExitCode(res); code != driver.ExitOK {
		return &exitError{code: code}
	}
	return nil
}
