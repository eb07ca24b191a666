// Package output renders connectkit results for the terminal.
//
// This package includes:
//   - Tables for package records, issues, install plans and run history
//   - A spinner for registry lookups and installs
//   - Human-readable formatting for versions, durations and dates
//
// Colour is applied with lipgloss only when stdout is a terminal and
// NO_COLOR is unset.
package output

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/blackwell-systems/connectkit/internal/analyzer"
	"github.com/blackwell-systems/connectkit/internal/checker"
	"github.com/blackwell-systems/connectkit/internal/planner"
	"github.com/blackwell-systems/connectkit/internal/project"
	"github.com/blackwell-systems/connectkit/internal/semver"
	"github.com/blackwell-systems/connectkit/internal/store"
)

var (
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	headingStyle = lipgloss.NewStyle().Bold(true)
)

// IsColorEnabled returns true if colour should be emitted.
// It checks that os.Stdout is a TTY and that the NO_COLOR env var is not set.
func IsColorEnabled() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isatty.IsTerminal(os.Stdout.Fd())
}

// colorize renders text with style if colour is enabled, otherwise returns
// the plain text.
func colorize(style lipgloss.Style, text string) string {
	if IsColorEnabled() {
		return style.Render(text)
	}
	return text
}

// RenderRecordTable renders the version state of each package.
func RenderRecordTable(records []checker.Record) string {
	if len(records) == 0 {
		return "No packages checked.\n"
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("%-22s %-12s %-12s %-12s %s\n",
		"Package", "Declared", "Installed", "Latest", "Status"))
	sb.WriteString(strings.Repeat("─", 72))
	sb.WriteString("\n")

	for _, rec := range records {
		declared := rec.Declared
		if declared == "" {
			declared = "-"
		}

		sb.WriteString(fmt.Sprintf("%-22s %-12s %-12s %-12s %s\n",
			truncate(rec.Name, 22),
			truncate(declared, 12),
			formatVersion(rec.Installed),
			formatVersion(rec.Latest),
			recordStatus(rec)))
	}

	return sb.String()
}

func recordStatus(rec checker.Record) string {
	switch {
	case rec.Absent():
		return colorize(dimStyle, "not used")
	case rec.Installed == nil:
		return colorize(errorStyle, "not installed")
	case rec.Outdated():
		return colorize(warnStyle, "outdated")
	case rec.Latest == nil:
		return colorize(dimStyle, "installed (latest unknown)")
	default:
		return colorize(okStyle, "up to date")
	}
}

// formatVersion renders an optional version, "-" when absent.
func formatVersion(v *semver.Version) string {
	if v == nil {
		return "-"
	}
	return v.String()
}

// RenderIssues renders compatibility issues in the order given.
func RenderIssues(issues []analyzer.Issue) string {
	if len(issues) == 0 {
		return colorize(okStyle, "No compatibility issues found.") + "\n"
	}

	var sb strings.Builder
	for _, issue := range issues {
		sb.WriteString(fmt.Sprintf("  %s %s\n", severityLabel(issue.Severity), issue.Message))
	}
	return sb.String()
}

func severityLabel(s analyzer.Severity) string {
	switch s {
	case analyzer.SeverityWarning:
		return colorize(warnStyle, "⚠ warning")
	case analyzer.SeverityInfo:
		return colorize(dimStyle, "ℹ info   ")
	default:
		return string(s)
	}
}

// RenderPlan renders an install plan as the command a user could run.
func RenderPlan(plan planner.Plan) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Project type: %s\n", plan.Type))
	sb.WriteString(fmt.Sprintf("Manager:      %s\n", plan.Manager))
	sb.WriteString(fmt.Sprintf("Packages:     %s\n", strings.Join(plan.Packages, ", ")))
	sb.WriteString(fmt.Sprintf("Command:      %s\n", plan.String()))
	return sb.String()
}

// RenderRecommendations renders follow-up commands, one per line.
func RenderRecommendations(recs []analyzer.Recommendation) string {
	if len(recs) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, rec := range recs {
		sb.WriteString(fmt.Sprintf("  %-8s %s\n", rec.Action, strings.Join(rec.Command, " ")))
	}
	return sb.String()
}

// RenderEnvironment renders the project setup found by project.ScanEnvironment.
func RenderEnvironment(env project.Environment) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Project type: %s\n", env.Type))

	configs := "none"
	if len(env.ConfigFiles) > 0 {
		configs = strings.Join(env.ConfigFiles, ", ")
	}
	sb.WriteString(fmt.Sprintf("Config files: %s\n", configs))

	if env.SSR() {
		sb.WriteString(fmt.Sprintf("SSR:          yes (%s)\n", strings.Join(env.SSRIndicators, ", ")))
	} else {
		sb.WriteString("SSR:          no\n")
	}
	return sb.String()
}

// RenderReport renders a full check report.
func RenderReport(r *checker.Report) string {
	var sb strings.Builder

	name := r.Name
	if name == "" {
		name = r.Root
	}
	sb.WriteString(colorize(headingStyle, fmt.Sprintf("Project: %s", name)))
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("Type: %s   Manager: %s", r.Type, r.Manager))
	if r.Lockfile != "" {
		sb.WriteString(fmt.Sprintf(" (%s)", r.Lockfile))
	}
	sb.WriteString("\n")
	if r.Manifest != project.ManifestOK.String() {
		sb.WriteString(colorize(warnStyle, fmt.Sprintf("package.json %s; results are partial", r.Manifest)))
		sb.WriteString("\n")
	}
	sb.WriteString("\n")

	sb.WriteString(RenderRecordTable(r.Records))
	sb.WriteString("\n")

	sb.WriteString(colorize(headingStyle, "Compatibility"))
	sb.WriteString("\n")
	sb.WriteString(RenderIssues(r.Issues))

	if recs := RenderRecommendations(r.Recommendations); recs != "" {
		sb.WriteString("\n")
		sb.WriteString(colorize(headingStyle, "Recommendations"))
		sb.WriteString("\n")
		sb.WriteString(recs)
	}

	sb.WriteString("\n")
	sb.WriteString(RenderSummary(r.Summary))
	return sb.String()
}

// RenderSummary renders the one-line status footer.
func RenderSummary(s checker.Summary) string {
	line := fmt.Sprintf("%d/%d packages installed, %d warning(s), %d info",
		s.Installed, s.Total, s.Warnings, s.Infos)
	switch {
	case s.Warnings > 0:
		return colorize(warnStyle, line) + "\n"
	case s.Outdated:
		return colorize(warnStyle, line+", updates available") + "\n"
	default:
		return colorize(okStyle, line) + "\n"
	}
}

// RenderInstallReport renders the outcome of an install run.
func RenderInstallReport(r *checker.InstallReport) string {
	var sb strings.Builder

	if r.DryRun {
		sb.WriteString("Dry run: nothing was installed.\n\n")
		sb.WriteString(RenderPlan(r.Plan))
		return sb.String()
	}

	res := r.Result
	if res == nil {
		return RenderPlan(r.Plan)
	}

	if res.Success {
		sb.WriteString(colorize(okStyle, fmt.Sprintf("✓ %s (%s)", strings.Join(res.Command, " "), formatDuration(res.Duration))))
		sb.WriteString("\n")
	} else {
		sb.WriteString(colorize(errorStyle, fmt.Sprintf("✗ %s exited with code %d", strings.Join(res.Command, " "), res.ExitCode)))
		sb.WriteString("\n")
		if stderr := strings.TrimSpace(res.Stderr); stderr != "" {
			sb.WriteString(stderr)
			sb.WriteString("\n")
		}
		switch {
		case r.Restored:
			sb.WriteString(fmt.Sprintf("\npackage.json and lockfiles restored from snapshot %d.\n", r.SnapshotID))
		case r.SnapshotID != 0:
			sb.WriteString(colorize(warnStyle, fmt.Sprintf("\nRestore failed. Run 'connectkit undo %d' to retry.", r.SnapshotID)))
			sb.WriteString("\n")
		}
		return sb.String()
	}

	if len(r.Declared) > 0 {
		sb.WriteString("\nDeclared in package.json:\n")
		for _, name := range r.Plan.Packages {
			name = strings.TrimSuffix(name, "@latest")
			if rng, ok := r.Declared[name]; ok {
				sb.WriteString(fmt.Sprintf("  %s: %s\n", name, rng))
			}
		}
	}
	if len(r.Issues) > 0 {
		sb.WriteString("\nVersion reminders:\n")
		sb.WriteString(RenderIssues(r.Issues))
	}
	if r.SnapshotID != 0 {
		sb.WriteString(colorize(dimStyle, fmt.Sprintf("\nSnapshot %d saved. Run 'connectkit undo' to roll back.", r.SnapshotID)))
		sb.WriteString("\n")
	}
	return sb.String()
}

// RenderRunTable renders recorded check runs, newest first.
func RenderRunTable(runs []*store.Run) string {
	if len(runs) == 0 {
		return "No runs recorded.\n"
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("%-5s %-16s %-8s %-8s %-9s %s\n",
		"ID", "When", "Type", "Manager", "Warnings", "Project"))
	sb.WriteString(strings.Repeat("─", 72))
	sb.WriteString("\n")

	for _, run := range runs {
		sb.WriteString(fmt.Sprintf("%-5d %-16s %-8s %-8s %-9d %s\n",
			run.ID,
			formatRelativeTime(run.StartedAt),
			run.ProjectType,
			run.Manager,
			run.WarningCount,
			truncate(run.Root, 40)))
	}

	return sb.String()
}

// RenderInstallTable renders recorded install attempts, newest first.
func RenderInstallTable(installs []*store.Install) string {
	if len(installs) == 0 {
		return "No installs recorded.\n"
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("%-5s %-16s %-8s %-8s %s\n",
		"ID", "When", "Result", "Time", "Command"))
	sb.WriteString(strings.Repeat("─", 72))
	sb.WriteString("\n")

	for _, in := range installs {
		// Pad before colouring so escape codes don't break alignment.
		result := colorize(okStyle, fmt.Sprintf("%-8s", "ok"))
		if !in.Success {
			result = colorize(errorStyle, fmt.Sprintf("%-8s", fmt.Sprintf("exit %d", in.ExitCode)))
		}
		sb.WriteString(fmt.Sprintf("%-5d %-16s %s %-8s %s\n",
			in.ID,
			formatRelativeTime(in.RunAt),
			result,
			formatDuration(in.Duration),
			truncate(strings.Join(in.Command, " "), 60)))
	}

	return sb.String()
}

// RenderSnapshotTable renders saved snapshots, newest first.
func RenderSnapshotTable(snaps []*store.Snapshot) string {
	if len(snaps) == 0 {
		return "No snapshots saved.\n"
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("%-5s %-16s %-6s %s\n", "ID", "When", "Files", "Reason"))
	sb.WriteString(strings.Repeat("─", 72))
	sb.WriteString("\n")

	for _, snap := range snaps {
		sb.WriteString(fmt.Sprintf("%-5d %-16s %-6d %s\n",
			snap.ID,
			formatRelativeTime(snap.CreatedAt),
			snap.FileCount,
			truncate(snap.Reason, 44)))
	}

	return sb.String()
}

// formatDuration renders d rounded for display: "850ms", "12.3s", "2m5s".
func formatDuration(d time.Duration) string {
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	default:
		return d.Round(time.Second).String()
	}
}

// formatRelativeTime converts a timestamp to relative time (e.g., "2 days ago").
func formatRelativeTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}

	diff := time.Since(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return plural(int(diff.Minutes()), "minute")
	case diff < 24*time.Hour:
		return plural(int(diff.Hours()), "hour")
	case diff < 7*24*time.Hour:
		return plural(int(diff.Hours()/24), "day")
	case diff < 30*24*time.Hour:
		return plural(int(diff.Hours()/24/7), "week")
	case diff < 365*24*time.Hour:
		return plural(int(diff.Hours()/24/30), "month")
	default:
		return plural(int(diff.Hours()/24/365), "year")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s ago", unit)
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}

// truncate truncates a string to maxLen, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
