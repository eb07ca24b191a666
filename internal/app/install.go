package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/connectkit/internal/output"
)

var (
	installDryRun  bool
	installManager string
	installType    string

	installCmd = &cobra.Command{
		Use:   "install",
		Short: "Install the @btc-connect packages for this project",
		Long: `Detect the project type and package manager, then install
@btc-connect/core plus the UI binding for the framework (react for React and
Next.js, vue for Vue and Nuxt), all at @latest.

The install command runs once. If it fails, its output is shown and nothing
is retried. After a successful install, package.json is read again and the
declared ranges are checked against the minimum supported version.`,
		Example: `  # Preview without installing
  connectkit install --dry-run

  # Install with pnpm regardless of lockfile
  connectkit install --manager pnpm

  # Treat the project as Next.js
  connectkit install --type nextjs`,
		RunE: runInstall,
	}
)

func init() {
	installCmd.Flags().BoolVarP(&installDryRun, "dry-run", "n", false, "show the install command without running it")
	installCmd.Flags().StringVar(&installManager, "manager", "", "package manager: bun, yarn, npm or pnpm (default: detect)")
	installCmd.Flags().StringVar(&installType, "type", "", "project type: react, vue, nextjs, nuxt, nuxt3, nodejs or core (default: detect)")
	RootCmd.AddCommand(installCmd)
}

func runInstall(cmd *cobra.Command, args []string) error {
	opts, err := parseOverrides(installManager, installType)
	if err != nil {
		return err
	}
	opts.DryRun = installDryRun

	root, err := resolveRoot()
	if err != nil {
		return err
	}

	chk := newChecker()
	out := cmd.OutOrStdout()

	var spinner *output.Spinner
	if !opts.DryRun {
		spinner = output.NewSpinner("Installing @btc-connect packages").WithTimeout(cfg.Timeouts.Install)
		spinner.Start()
	}

	report, err := chk.Install(cmd.Context(), root, opts)
	if spinner != nil {
		spinner.Stop()
	}
	if report != nil {
		fmt.Fprint(out, output.RenderInstallReport(report))
	}
	if err != nil {
		return fmt.Errorf("install failed: %w", err)
	}

	if !opts.DryRun {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Run 'connectkit check' to verify compatibility.")
	}
	return nil
}
