package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"loxmin/internal/driver"
	"loxmin/internal/image"
)

func newCompileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compile [flags] <file.lox>",
		Short: "Compile a Lox program to an image",
		Long:  `Compile a Lox source file and write the bytecode as a .loxc image that "loxmin run" can load`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return compileImage(cmd, args[0])
		},
	}
	cmd.Flags().StringP("output", "o", "", "image path (default: source path with .loxc)")
	return cmd
}

func compileImage(cmd *cobra.Command, path string) error {
	output, err := cmd.Flags().GetString("output")
	if err != nil {
		return fmt.Errorf("failed to get output flag: %w", err)
	}
	if output == "" {
		output = strings.TrimSuffix(path, filepath.Ext(path)) + image.Ext
	}

	src, err := os.ReadFile(path)
	if err != nil {
		return &exitError{code: driver.ExitIOErr, err: err}
	}
	img, err := driver.CompileImage(cmd.Context(), src, path)
	if err != nil {
		return reportCompileError(cmd, err)
	}
	if err := image.WriteFile(output, img); err != nil {
		return &exitError{code: driver.ExitIOErr, err: fmt.Errorf("write %s: %w", output, err)}
	}
	if !quiet(cmd) {
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", output)
	}
	return nil
}
