package app

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/connectkit/internal/analyzer"
	"github.com/blackwell-systems/connectkit/internal/checker"
	"github.com/blackwell-systems/connectkit/internal/output"
)

var (
	checkJSON   bool
	checkStrict bool

	checkCmd = &cobra.Command{
		Use:   "check",
		Short: "Check installed @btc-connect versions and compatibility",
		Long: `Resolve the installed and latest versions of @btc-connect/core and its
UI bindings, then report:

  • Major version mismatches between core and a binding
  • Bindings more than two minor versions away from core
  • Missing peer dependencies (react-dom for React, vue for Vue)
  • Framework ranges the bindings are not known to support
  • Declared ranges below the minimum supported version
  • Install and update commands for missing or outdated packages

Registry or lookup failures leave single fields unknown instead of failing
the whole check.`,
		Example: `  # Check the current project
  connectkit check

  # Machine-readable output
  connectkit check --json

  # Exit with status 2 when any warning is reported
  connectkit check --strict`,
		RunE: runCheck,
	}
)

func init() {
	checkCmd.Flags().BoolVar(&checkJSON, "json", false, "print the report as JSON")
	checkCmd.Flags().BoolVar(&checkStrict, "strict", false, "exit with status 2 if any warning is reported")
	RootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	root, err := resolveRoot()
	if err != nil {
		return err
	}

	spinner := output.NewSpinner("Resolving package versions").WithTimeout(cfg.Timeouts.Registry)
	if !checkJSON {
		spinner.Start()
	}
	report, err := newChecker().Check(cmd.Context(), root)
	spinner.Stop()
	if err != nil {
		return fmt.Errorf("check aborted: %w", err)
	}

	if err := printReport(cmd, report); err != nil {
		return err
	}

	if checkStrict && analyzer.HasWarnings(report.Issues) {
		return &exitError{code: 2}
	}
	return nil
}

func printReport(cmd *cobra.Command, report *checker.Report) error {
	out := cmd.OutOrStdout()
	if checkJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	fmt.Fprint(out, output.RenderReport(report))
	return nil
}
