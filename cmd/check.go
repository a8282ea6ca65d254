package cmd

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/surveyor/internal/preflight"
	"github.com/papapumpkin/surveyor/internal/telemetry"
)

// errCheckFailed is returned when any file fails a pre-flight check.
var errCheckFailed = errors.New("pre-flight checks failed")

var checkCmd = &cobra.Command{
	Use:   "check FILE...",
	Short: "Run pre-flight checks (extension, size, record signature) without parsing",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	e, err := newEnv(cmd, false)
	if err != nil {
		return err
	}
	defer e.Close()

	chain := preflight.DefaultChain(e.cfg.MaxFileSizeBytes())
	failed := false
	for _, path := range args {
		f, err := preflight.FromPath(path)
		if err != nil {
			e.printer.Error(err.Error())
			failed = true
			continue
		}
		res, err := chain.Run(cmd.Context(), f)
		if err != nil {
			return err
		}
		e.printer.Preflight(path, res)
		if !res.Passed {
			failed = true
			e.emit(telemetry.Event{Kind: telemetry.KindPreflight, File: f.Name,
				Data: map[string]any{"failed": res.FirstFailure().Name}})
		}
	}
	if failed {
		return errCheckFailed
	}
	return nil
}
