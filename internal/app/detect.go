package app

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/connectkit/internal/output"
	"github.com/blackwell-systems/connectkit/internal/pkgmgr"
	"github.com/blackwell-systems/connectkit/internal/project"
)

var (
	detectJSON bool

	detectCmd = &cobra.Command{
		Use:   "detect",
		Short: "Show the project type, package manager and build setup",
		Long: `Read package.json and report what connectkit would work with.

Shows:
  • Project type (react, vue, nextjs, nuxt, nuxt3, nodejs or unknown)
  • Package manager and the lockfile it was picked from
  • Build and compiler config files found in the project
  • Directories that suggest server-side rendering

No registry lookups are made.`,
		Example: `  # Detect the project in the current directory
  connectkit detect

  # Detect another project, as JSON
  connectkit detect -C ../shop --json`,
		RunE: runDetect,
	}
)

func init() {
	detectCmd.Flags().BoolVar(&detectJSON, "json", false, "print the result as JSON")
	RootCmd.AddCommand(detectCmd)
}

// detection is the JSON shape of `connectkit detect`.
type detection struct {
	Root        string              `json:"root"`
	Name        string              `json:"name,omitempty"`
	Manifest    string              `json:"manifest"`
	Type        project.Type        `json:"type"`
	Manager     pkgmgr.Kind         `json:"manager"`
	Lockfile    string              `json:"lockfile,omitempty"`
	Environment project.Environment `json:"environment"`
}

func runDetect(cmd *cobra.Command, args []string) error {
	root, err := resolveRoot()
	if err != nil {
		return err
	}

	d, t, m := newChecker().Inspect(cmd.Context(), root)
	lockfile, _ := d.Lockfile()
	det := detection{
		Root:        root,
		Name:        d.Name(),
		Manifest:    d.Status().String(),
		Type:        t,
		Manager:     m,
		Lockfile:    lockfile,
		Environment: project.ScanEnvironment(root, t),
	}

	out := cmd.OutOrStdout()
	if detectJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(det)
	}

	if det.Name != "" {
		fmt.Fprintf(out, "Project:      %s\n", det.Name)
	}
	fmt.Fprintf(out, "package.json: %s\n", det.Manifest)
	fmt.Fprint(out, output.RenderEnvironment(det.Environment))

	manager := det.Manager.String()
	switch {
	case det.Lockfile != "":
		manager += " (from " + det.Lockfile + ")"
	case det.Manager.Known():
		manager += " (found on PATH)"
	default:
		manager += fmt.Sprintf(" (will use %s)", cfg.Manager())
	}
	fmt.Fprintf(out, "Manager:      %s\n", manager)
	return nil
}
