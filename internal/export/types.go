// Package export renders report views to HTML and rasterizes them to PDF or
// PNG with headless Chrome.
package export

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"resourcemap/internal/projection"
)

// Format represents the export output format.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatPNG  Format = "png"
	FormatHTML Format = "html"
)

func ParseFormat(raw string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(raw))); f {
	case FormatPDF, FormatPNG, FormatHTML:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, raw)
}

// View names which projection an export shows.
type View string

const (
	ViewProject      View = "project"
	ViewOrganization View = "organization"
	ViewPeople       View = "people"
)

func ParseView(raw string) (View, error) {
	switch v := strings.ToLower(strings.TrimSpace(raw)); v {
	case "", "project", "projects":
		return ViewProject, nil
	case "organization", "org":
		return ViewOrganization, nil
	case "people", "person", "assignments":
		return ViewPeople, nil
	default:
		return "", fmt.Errorf("unknown view %q", raw)
	}
}

func (v View) Title() string {
	switch v {
	case ViewOrganization:
		return "Organization View"
	case ViewPeople:
		return "Person Assignments"
	}
	return "Project View"
}

// Request describes one export.
type Request struct {
	Title        string
	View         View
	Views        projection.Views
	GeneratedAt  time.Time
	IncludeRisks bool
}

// Nodes returns the node tree for the requested view.
func (r Request) Nodes() []projection.Node {
	switch r.View {
	case ViewOrganization:
		return projection.OrganizationNodes(r.Views.Organization)
	case ViewPeople:
		return projection.PersonNodes(r.Views.People)
	}
	return projection.ProjectNodes(r.Views.Projects)
}

// Result contains the export output.
type Result struct {
	Data     []byte
	Filename string
	MimeType string
}

var (
	// ErrBusy indicates an export of the same format is still running.
	ErrBusy = errors.New("export already in progress")
	// ErrDependencyMissing indicates headless Chrome is not available.
	ErrDependencyMissing = errors.New("export dependency missing")
	ErrUnsupportedFormat = errors.New("unsupported export format")
)
