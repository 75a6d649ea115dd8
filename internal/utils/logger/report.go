package logger

import (
	"fmt"
	"os"
	"path/filepath"
)

// FetchReport accumulates the names of resources touched by a fetch pass
// so the CLI can leave a record next to the mirrored files.
type FetchReport struct {
	Title string
	Items []string
}

var GlobalFetchReport = FetchReport{Title: "FetchedResources"}

// Record appends one resource name to the report.
func (r *FetchReport) Record(name string) {
	r.Items = append(r.Items, name)
}

// WriteToDir writes the report as a plain list under dir, one entry per
// line, and resets the accumulated items. The title is sanitized for use
// in the filename, e.g. fetch-FetchedResources.txt.
func (r *FetchReport) WriteToDir(dir string) error {
	if len(r.Items) == 0 {
		return nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating report path: %w", err)
	}

	title := r.Title
	if title == "" {
		title = "untitled"
	}
	safeTitle := ""
	for _, c := range title {
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') {
			safeTitle += string(c)
		} else {
			safeTitle += "_"
		}
	}

	reportPath := filepath.Join(dir, fmt.Sprintf("fetch-%s.txt", safeTitle))

	f, err := os.OpenFile(reportPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("opening report file: %w", err)
	}
	defer f.Close()

	for _, item := range r.Items {
		if _, err := fmt.Fprintln(f, item); err != nil {
			return fmt.Errorf("writing report: %w", err)
		}
	}
	r.Items = nil
	if _, err := fmt.Fprintln(f); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	return nil
}
