package checker

import (
	"strings"

	"github.com/blackwell-systems/connectkit/internal/pkgmgr"
	"github.com/blackwell-systems/connectkit/internal/store"
)

// StoreRecorder writes run history to a store.Store.
type StoreRecorder struct {
	Store *store.Store
}

// RecordRun implements Recorder.
func (s StoreRecorder) RecordRun(r *Report) error {
	run := &store.Run{
		StartedAt:      r.StartedAt,
		Root:           r.Root,
		ProjectType:    string(r.Type),
		Manager:        string(r.Manager),
		ManifestStatus: r.Manifest,
		WarningCount:   r.Summary.Warnings,
		InfoCount:      r.Summary.Infos,
	}
	for _, rec := range r.Records {
		pkg := store.RunPackage{Name: rec.Name, Declared: rec.Declared}
		if rec.Installed != nil {
			pkg.Installed = rec.Installed.String()
		}
		if rec.Latest != nil {
			pkg.Latest = rec.Latest.String()
		}
		run.Packages = append(run.Packages, pkg)
	}
	for _, issue := range r.Issues {
		run.Issues = append(run.Issues, store.RunIssue{
			Severity: string(issue.Severity),
			Kind:     string(issue.Kind),
			Packages: issue.Packages,
			Message:  issue.Message,
		})
	}

	_, err := s.Store.InsertRun(run)
	return err
}

// RecordInstall implements Recorder.
func (s StoreRecorder) RecordInstall(root string, res *pkgmgr.InstallResult) error {
	if res == nil {
		return nil
	}
	_, err := s.Store.InsertInstall(&store.Install{
		Root:     root,
		Command:  res.Command,
		Success:  res.Success,
		ExitCode: res.ExitCode,
		Duration: res.Duration,
		Stderr:   strings.TrimSpace(res.Stderr),
	})
	return err
}
