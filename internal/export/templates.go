package export

import (
	"bytes"
	"embed"
	"html/template"
	"strings"
	"time"

	"resourcemap/internal/projection"
)

//go:embed templates/*.html
var templateFS embed.FS

var reportTemplate = template.Must(template.New("report.html").Funcs(template.FuncMap{
	"lower": strings.ToLower,
	"formatTime": func(t time.Time) string {
		return t.UTC().Format("2006-01-02 15:04 UTC")
	},
}).ParseFS(templateFS, "templates/report.html"))

// TemplateData holds data for report template rendering.
type TemplateData struct {
	Title        string
	ViewTitle    string
	GeneratedAt  time.Time
	Summary      projection.Summary
	Large        []projection.Node
	Small        []projection.Node
	Nodes        []projection.Node
	RiskAnalysis string
}

func templateData(req Request) TemplateData {
	data := TemplateData{
		Title:       req.Title,
		ViewTitle:   req.View.Title(),
		GeneratedAt: req.GeneratedAt,
		Summary:     req.Views.Summary,
	}
	if req.View == ViewProject || req.View == "" {
		data.Large = projection.ProjectNodes(req.Views.Buckets.Large)
		data.Small = projection.ProjectNodes(req.Views.Buckets.Small)
	} else {
		data.Nodes = req.Nodes()
	}
	if req.IncludeRisks {
		data.RiskAnalysis = req.Views.RiskAnalysis
	}
	return data
}

// RenderHTML renders the standalone report page for req.
func RenderHTML(req Request) (string, error) {
	if req.GeneratedAt.IsZero() {
		req.GeneratedAt = time.Now()
	}
	var buf bytes.Buffer
	if err := reportTemplate.Execute(&buf, templateData(req)); err != nil {
		return "", err
	}
	return buf.String(), nil
}
