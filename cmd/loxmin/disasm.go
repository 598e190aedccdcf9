package main

import (
	"errors"

	"github.com/spf13/cobra"

	"loxmin/internal/diag"
	"loxmin/internal/driver"
)

func newDisasmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "disasm <file.lox|file.loxc>",
		Short: "Print the bytecode of a Lox program",
		Long:  `Compile a Lox program and print the disassembly of the script and every function it defines`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			compile, err := driver.Load(cmd.Context(), args[0])
			if err != nil {
				return &exitError{code: driver.ExitIOErr, err: err}
			}
			return reportCompileError(cmd, driver.Disassemble(cmd.Context(), cmd.OutOrStdout(), compile))
		},
	}
}

// reportCompileError prints compile diagnostics in the diagnostic colour and
// converts them to exit status 65.
func reportCompileError(cmd *cobra.Command, err error) error {
	if err == nil {
		return nil
	}
	var derr *diag.Error
	if errors.As(err, &derr) {
		_, _ = diagnosticWriter(cmd.ErrOrStderr()).Write([]byte(derr.Bag.String()))
		return &exitError{code: driver.ExitDataErr}
	}
	return &exitError{code: driver.ExitDataErr, err: err}
}
