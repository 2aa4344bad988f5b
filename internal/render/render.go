// Package render draws projections and task tables for the terminal.
package render

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/jedib0t/go-pretty/v6/list"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"resourcemap/internal/domain"
	"resourcemap/internal/editor"
	"resourcemap/internal/projection"
)

var kindColors = map[projection.NodeKind]text.Colors{
	projection.KindManager: {text.Bold, text.FgHiMagenta},
	projection.KindTeam:    {text.Bold, text.FgHiCyan},
	projection.KindProject: {text.Bold, text.FgHiBlue},
	projection.KindPerson:  {text.FgHiGreen},
	projection.KindTask:    {text.FgWhite},
}

// Tree writes nodes as an indented connected list. With color disabled the
// output is plain text, which is what tests and pipes get.
func Tree(w io.Writer, nodes []projection.Node, color bool) {
	if len(nodes) == 0 {
		fmt.Fprintln(w, "(empty)")
		return
	}
	l := list.NewWriter()
	l.SetStyle(list.StyleConnectedRounded)
	for _, n := range nodes {
		appendNode(l, n, color)
	}
	fmt.Fprintln(w, l.Render())
}

func appendNode(l list.Writer, n projection.Node, color bool) {
	l.AppendItem(nodeLabel(n, color))
	if n.Leaf() {
		return
	}
	l.Indent()
	for _, c := range n.Children {
		appendNode(l, c, color)
	}
	l.UnIndent()
}

func nodeLabel(n projection.Node, color bool) string {
	name := n.Name
	if name == "" {
		name = n.ID
	}
	if color {
		if c, ok := kindColors[n.Kind]; ok {
			name = c.Sprint(name)
		}
	}
	label := fmt.Sprintf("[%s] %s", n.Kind, name)
	if n.Detail != "" {
		label += " (" + n.Detail + ")"
	}
	return label
}

// Buckets writes the large projects first, then the small ones, under
// separate headings.
func Buckets(w io.Writer, b projection.Buckets, color bool) {
	fmt.Fprintf(w, "Large projects (more than %d tasks)\n", projection.SmallProjectTaskThreshold)
	Tree(w, projection.ProjectNodes(b.Large), color)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Small projects")
	Tree(w, projection.ProjectNodes(b.Small), color)
}

func TaskTable(w io.Writer, rows []editor.TaskRow) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"ID", "Task", "Project", "Assignee", "Status", "Progress", "ETA"})
	for _, r := range rows {
		project, person := "", ""
		if r.Project != nil {
			project = r.Project.Name
		}
		if r.Person != nil {
			person = r.Person.Name
		}
		tw.AppendRow(table.Row{r.ID, r.Name, project, person, r.Status, fmt.Sprintf("%d%%", r.Progress), r.ETA})
	}
	tw.AppendFooter(table.Row{"", fmt.Sprintf("%d tasks", len(rows))})
	tw.Render()
}

func SummaryTable(w io.Writer, s projection.Summary) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetTitle("Summary")
	tw.AppendHeader(table.Row{"Teams", "People", "Projects", "Tasks"})
	tw.AppendRow(table.Row{s.Teams, s.People, s.Projects, s.Tasks})
	tw.Render()
	if len(s.TasksPerProject) == 0 {
		return
	}
	pt := table.NewWriter()
	pt.SetOutputMirror(w)
	pt.AppendHeader(table.Row{"Project", "Tasks"})
	for _, p := range s.TasksPerProject {
		pt.AppendRow(table.Row{p.Name, p.Tasks})
	}
	pt.Render()
}

func ReportsTable(w io.Writer, reports []domain.ReportInfo) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"ID", "Title", "Source", "Created", "Projects", "Tasks"})
	for _, r := range reports {
		tw.AppendRow(table.Row{r.ID, r.Title, r.Source, r.CreatedAt, r.Counts.Projects, r.Counts.Tasks})
	}
	tw.Render()
}

func EventsTable(w io.Writer, events []domain.Event) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"ID", "Time", "Type", "Report", "Actor"})
	for _, e := range events {
		tw.AppendRow(table.Row{e.ID, e.TS, e.Type, e.ReportID, e.ActorID})
	}
	tw.Render()
}

var rendererCache sync.Map

// Markdown renders md for a terminal of the given width. Renderers are
// cached per width. On renderer failure the raw text is returned.
func Markdown(md string, width int) string {
	if strings.TrimSpace(md) == "" {
		return ""
	}
	if width <= 0 {
		width = 80
	}
	var r *glamour.TermRenderer
	if cached, ok := rendererCache.Load(width); ok {
		r = cached.(*glamour.TermRenderer)
	} else {
		created, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(width))
		if err != nil {
			return md
		}
		actual, _ := rendererCache.LoadOrStore(width, created)
		r = actual.(*glamour.TermRenderer)
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return out
}

// ErrorBanner writes err as a single highlighted line.
func ErrorBanner(w io.Writer, err error, color bool) {
	if err == nil {
		return
	}
	msg := " error: " + err.Error() + " "
	if color {
		msg = text.Colors{text.Bold, text.FgHiWhite, text.BgRed}.Sprint(msg)
	}
	fmt.Fprintln(w, msg)
}

func APIKeysTable(w io.Writer, keys []domain.APIKey) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"ID", "Actor", "Name", "Created"})
	for _, k := range keys {
		tw.AppendRow(table.Row{k.ID, k.ActorID, k.Name, k.CreatedAt})
	}
	tw.Render()
}
