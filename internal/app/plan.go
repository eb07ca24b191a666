package app

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/connectkit/internal/output"
)

var (
	planManager string
	planType    string
	planJSON    bool

	planCmd = &cobra.Command{
		Use:   "plan",
		Short: "Print the install command without running it",
		Long: `Build the install plan for the project: which @btc-connect packages
fit its framework and which package manager command installs them.

Every package is pinned to @latest. Use --manager and --type to override
detection.`,
		Example: `  # Plan for the current project
  connectkit plan

  # Plan a Vue install with yarn
  connectkit plan --type vue --manager yarn`,
		RunE: runPlan,
	}
)

func init() {
	planCmd.Flags().StringVar(&planManager, "manager", "", "package manager: bun, yarn, npm or pnpm (default: detect)")
	planCmd.Flags().StringVar(&planType, "type", "", "project type: react, vue, nextjs, nuxt, nuxt3, nodejs or core (default: detect)")
	planCmd.Flags().BoolVar(&planJSON, "json", false, "print the plan as JSON")
	RootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
	opts, err := parseOverrides(planManager, planType)
	if err != nil {
		return err
	}
	root, err := resolveRoot()
	if err != nil {
		return err
	}

	_, plan := newChecker().Plan(cmd.Context(), root, opts)

	out := cmd.OutOrStdout()
	if planJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(plan)
	}
	fmt.Fprint(out, output.RenderPlan(plan))
	return nil
}
