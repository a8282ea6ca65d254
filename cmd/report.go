package cmd

import (
	"bytes"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/surveyor/internal/project"
	"github.com/papapumpkin/surveyor/internal/report"
)

var reportCmd = &cobra.Command{
	Use:   "report BUDGET",
	Short: "Write a budget as an .xlsx workbook",
	Args:  cobra.ExactArgs(1),
	RunE:  runReport,
}

func init() {
	reportCmd.Flags().StringP("output", "o", "", "output file (default: <slug>.xlsx)")
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	output, _ := cmd.Flags().GetString("output")

	e, err := newEnv(cmd, false)
	if err != nil {
		return err
	}
	defer e.Close()

	b, err := e.loadBudget(cmd.Context(), args[0], cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	if output == "" {
		slug := project.Slug(b.Name)
		if slug == "" {
			slug = strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
		}
		output = slug + ".xlsx"
	}

	var buf bytes.Buffer
	if err := report.WriteXLSX(&buf, b); err != nil {
		return err
	}
	if err := writeOutput(cmd.OutOrStdout(), output, buf.Bytes()); err != nil {
		return err
	}
	if output != "-" {
		e.printer.Success("wrote %s", output)
	}
	return nil
}
