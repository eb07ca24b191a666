package app

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/connectkit/internal/output"
	"github.com/blackwell-systems/connectkit/internal/store"
)

var (
	historyLimit    int
	historyAll      bool
	historyInstalls bool
	historyJSON     bool

	historyCmd = &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show recorded checks and installs",
		Long: `List the checks and installs connectkit has recorded for this project,
newest first. Pass a run ID to show the packages and issues of one check.

History is written by 'check', 'install' and 'watch' unless history is
disabled in the config or --no-history is given. It is never read back to
influence a check.`,
		Example: `  # Recent checks for this project
  connectkit history

  # Every project, last 50 runs
  connectkit history --all --limit 50

  # Install attempts
  connectkit history --installs

  # Details of run 12
  connectkit history 12`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistory,
	}
)

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum number of entries (0 for all)")
	historyCmd.Flags().BoolVar(&historyAll, "all", false, "include every project")
	historyCmd.Flags().BoolVar(&historyInstalls, "installs", false, "list install attempts instead of checks")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "print entries as JSON")
	RootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	if history == nil {
		return fmt.Errorf("history is disabled")
	}

	root := ""
	if !historyAll {
		r, err := resolveRoot()
		if err != nil {
			return err
		}
		root = r
	}

	if len(args) == 1 {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid run ID %q", args[0])
		}
		run, err := history.GetRun(id)
		if err != nil {
			return fmt.Errorf("failed to load run %d: %w", id, err)
		}
		return printRun(cmd, run)
	}

	if historyInstalls {
		installs, err := history.ListInstalls(root, historyLimit)
		if err != nil {
			return fmt.Errorf("failed to list installs: %w", err)
		}
		if historyJSON {
			return writeJSON(cmd, installs)
		}
		fmt.Fprint(cmd.OutOrStdout(), output.RenderInstallTable(installs))
		return nil
	}

	runs, err := history.ListRuns(root, historyLimit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}
	if historyJSON {
		return writeJSON(cmd, runs)
	}
	fmt.Fprint(cmd.OutOrStdout(), output.RenderRunTable(runs))
	return nil
}

func printRun(cmd *cobra.Command, run *store.Run) error {
	if historyJSON {
		return writeJSON(cmd, run)
	}

	out := cmd.OutOrStdout()
	fmt.Fprint(out, output.RenderRunTable([]*store.Run{run}))
	fmt.Fprintln(out)
	for _, pkg := range run.Packages {
		fmt.Fprintf(out, "  %-22s declared=%-10s installed=%-10s latest=%s\n",
			pkg.Name, orDash(pkg.Declared), orDash(pkg.Installed), orDash(pkg.Latest))
	}
	if len(run.Issues) > 0 {
		fmt.Fprintln(out)
		for _, issue := range run.Issues {
			fmt.Fprintf(out, "  [%s] %s\n", issue.Severity, issue.Message)
		}
	}
	return nil
}

func writeJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
