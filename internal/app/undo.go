package app

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/connectkit/internal/output"
	"github.com/blackwell-systems/connectkit/internal/snapshots"
)

var (
	undoFlagList bool
	undoFlagYes  bool
	undoFlagAll  bool
)

var undoCmd = &cobra.Command{
	Use:   "undo [snapshot-id | latest]",
	Short: "Restore package.json and lockfiles from a snapshot",
	Long: `Restore package.json and the lockfiles from a snapshot.

A snapshot is saved before every install. A failed install is rolled back
automatically; use undo to roll back one that succeeded. node_modules is
not touched, so run your package manager's install afterwards.

Arguments:
  snapshot-id  The numeric ID of the snapshot to restore
  latest       Restore the most recent snapshot for this project`,
	Example: `  connectkit undo --list           # List snapshots for this project
  connectkit undo latest           # Restore latest snapshot
  connectkit undo 42               # Restore snapshot ID 42
  connectkit undo 42 --yes         # Restore without confirmation`,
	Args: cobra.MaximumNArgs(1),
	RunE: runUndo,
}

func init() {
	undoCmd.Flags().BoolVar(&undoFlagList, "list", false, "list available snapshots")
	undoCmd.Flags().BoolVar(&undoFlagAll, "all", false, "with --list, show snapshots for every project")
	undoCmd.Flags().BoolVar(&undoFlagYes, "yes", false, "skip confirmation prompt")

	RootCmd.AddCommand(undoCmd)
}

func runUndo(cmd *cobra.Command, args []string) error {
	mgr, err := newSnapshots()
	if err != nil {
		return err
	}

	root, err := resolveRoot()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	if undoFlagList {
		filter := root
		if undoFlagAll {
			filter = ""
		}
		return listSnapshots(out, mgr, filter)
	}

	if len(args) == 0 {
		return fmt.Errorf("snapshot ID or 'latest' required\n\nUsage: connectkit undo [snapshot-id | latest]\n\nUse 'connectkit undo --list' to see available snapshots")
	}

	var snapshotID int64
	if strings.ToLower(args[0]) == "latest" {
		snaps, err := mgr.ListSnapshots(root)
		if err != nil {
			return err
		}
		if len(snaps) == 0 {
			return fmt.Errorf("no snapshots for %s\n\nSnapshots are created by 'connectkit install'", root)
		}
		snapshotID = snaps[0].ID
		fmt.Fprintf(out, "Using latest snapshot: ID %d\n", snapshotID)
	} else {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid snapshot ID: %s (must be a number or 'latest')", args[0])
		}
		snapshotID = id
	}

	data, err := mgr.LoadSnapshot(snapshotID)
	if err != nil {
		return fmt.Errorf("snapshot %d not found\n\nRun 'connectkit undo --list' to see available snapshots", snapshotID)
	}

	fmt.Fprintf(out, "\nSnapshot Details:\n")
	fmt.Fprintf(out, "  ID: %d\n", snapshotID)
	fmt.Fprintf(out, "  Created: %s\n", data.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(out, "  Project: %s\n", data.Root)
	fmt.Fprintf(out, "  Reason: %s\n", data.Reason)
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Files to restore:")
	for _, f := range data.Files {
		fmt.Fprintf(out, "  - %s\n", f.Name)
	}
	fmt.Fprintln(out)

	if !undoFlagYes && !confirmRestore(cmd.InOrStdin(), out, len(data.Files)) {
		fmt.Fprintln(out, "Restoration cancelled.")
		return nil
	}

	if err := mgr.RestoreSnapshot(snapshotID); err != nil {
		return fmt.Errorf("restoration completed with errors: %w", err)
	}

	fmt.Fprintf(out, "✓ Restored %d files from snapshot %d\n", len(data.Files), snapshotID)
	fmt.Fprintln(out, "\nRun your package manager's install to sync node_modules, then 'connectkit check'.")
	return nil
}

// listSnapshots displays the snapshots for root, or every project when root
// is empty.
func listSnapshots(out io.Writer, mgr *snapshots.Manager, root string) error {
	snaps, err := mgr.ListSnapshots(root)
	if err != nil {
		return err
	}

	if len(snaps) == 0 {
		fmt.Fprintln(out, "No snapshots available.")
		fmt.Fprintln(out, "\nSnapshots are created automatically by 'connectkit install'.")
		return nil
	}

	fmt.Fprintf(out, "\nAvailable snapshots:\n\n")
	fmt.Fprint(out, output.RenderSnapshotTable(snaps))
	fmt.Fprintf(out, "\nRestore with: connectkit undo <id>\n")
	return nil
}

// confirmRestore prompts the user to confirm restoration.
func confirmRestore(in io.Reader, out io.Writer, count int) bool {
	fmt.Fprintf(out, "Restore %d files? [y/N]: ", count)

	reader := bufio.NewReader(in)
	response, err := reader.ReadString('\n')
	if err != nil {
		return false
	}

	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}
