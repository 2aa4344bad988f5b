package render

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resourcemap/internal/domain"
	"resourcemap/internal/editor"
	"resourcemap/internal/projection"
)

func sampleModel() domain.Model {
	return domain.Model{
		Teams:    []domain.Team{{ID: "t1", Name: "Platform", LeaderID: "p1"}},
		People:   []domain.Person{{ID: "p1", Name: "Ada", Role: "Lead", TeamIDs: []string{"t1"}}, {ID: "p2", Name: "Bob", ManagerID: "p1", TeamIDs: []string{"t1"}}},
		Projects: []domain.Project{{ID: "pr1", Name: "Billing"}},
		Tasks: []domain.Task{
			{ID: "k1", Name: "Invoices", ProjectID: "pr1", Status: domain.StatusInProgress, Progress: 40, ETA: "2026-03-01"},
		},
		Assignments: []domain.Assignment{{PersonID: "p2", TaskID: "k1"}},
	}
}

func TestTreePlain(t *testing.T) {
	views := projection.Build(sampleModel())
	var buf bytes.Buffer
	Tree(&buf, projection.ProjectNodes(views.Projects), false)
	out := buf.String()
	assert.Contains(t, out, "[project] Billing (1 task)")
	assert.Contains(t, out, "[task] Invoices")
	assert.Contains(t, out, "[person] Bob")
	assert.Less(t, strings.Index(out, "Billing"), strings.Index(out, "Invoices"))
	assert.Less(t, strings.Index(out, "Invoices"), strings.Index(out, "Bob"))
}

func TestTreeEmpty(t *testing.T) {
	var buf bytes.Buffer
	Tree(&buf, nil, false)
	assert.Equal(t, "(empty)\n", buf.String())
}

func TestBucketsHeadings(t *testing.T) {
	views := projection.Build(sampleModel())
	var buf bytes.Buffer
	Buckets(&buf, views.Buckets, false)
	out := buf.String()
	large := strings.Index(out, "Large projects")
	small := strings.Index(out, "Small projects")
	require.GreaterOrEqual(t, large, 0)
	require.Greater(t, small, large)
	assert.Greater(t, strings.Index(out, "Billing"), small)
}

func TestTaskTable(t *testing.T) {
	rows := editor.Rows(sampleModel(), editor.Query{})
	var buf bytes.Buffer
	TaskTable(&buf, rows)
	out := buf.String()
	assert.Contains(t, out, "Invoices")
	assert.Contains(t, out, "Billing")
	assert.Contains(t, out, "Bob")
	assert.Contains(t, out, "40%")
	assert.Contains(t, out, "1 tasks")
}

func TestSummaryAndReports(t *testing.T) {
	m := sampleModel()
	views := projection.Build(m)
	var buf bytes.Buffer
	SummaryTable(&buf, views.Summary)
	assert.Contains(t, buf.String(), "Billing")

	buf.Reset()
	rep := domain.Report{ID: "r1", Title: "Q1 plan", Source: domain.SourceText, CreatedAt: "2026-01-01T00:00:00.000Z", Model: m}
	ReportsTable(&buf, []domain.ReportInfo{rep.Info()})
	assert.Contains(t, buf.String(), "Q1 plan")
	assert.Contains(t, buf.String(), "r1")
}

func TestMarkdownEmpty(t *testing.T) {
	assert.Equal(t, "", Markdown("  \n", 80))
}

func TestMarkdownRendersText(t *testing.T) {
	out := Markdown("**Ada** is overloaded", 60)
	assert.Contains(t, out, "overloaded")
}

func TestErrorBannerPlain(t *testing.T) {
	var buf bytes.Buffer
	ErrorBanner(&buf, errors.New("boom"), false)
	assert.Equal(t, " error: boom \n", buf.String())
	buf.Reset()
	ErrorBanner(&buf, nil, false)
	assert.Empty(t, buf.String())
}
