package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"loxmin/internal/driver"
	"loxmin/internal/vm"
)

func newReplCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Start an interactive Lox session",
		Long:  `Read Lox one line at a time and run each line on the same VM, so globals persist between lines`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runREPL(cmd)
		},
	}
	cmd.Flags().Bool("stress-gc", false, "collect garbage on every allocation")
	return cmd
}

func (a *app) runREPL(cmd *cobra.Command) error {
	opts, err := a.vmOptions(cmd)
	if err != nil {
		return err
	}
	machine := vm.New(opts)
	defer machine.Free()

	in := cmd.InOrStdin()
	out := cmd.OutOrStdout()
	interactive := false
	if f, ok := in.(*os.File); ok && isTerminal(f) {
		interactive = true
	}

	sc := bufio.NewScanner(in)
	for {
		if interactive {
			fmt.Fprint(out, "> ")
		}
		if !sc.Scan() {
			if interactive {
				fmt.Fprintln(out)
			}
			break
		}
		line := sc.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		// errors are reported by the VM; the session goes on
		driver.Interpret(cmd.Context(), machine, []byte(line))
	}
	return sc.Err()
}
