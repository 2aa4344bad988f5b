package domain

import (
	"fmt"
	"strings"
)

// ValidationError lists every structural problem found in a model.
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 1 {
		return "invalid model: " + e.Issues[0]
	}
	return fmt.Sprintf("invalid model: %d issues: %s", len(e.Issues), strings.Join(e.Issues, "; "))
}

// Normalize replaces nil collections with empty ones, trims identifiers,
// canonicalizes task statuses and clamps progress into 0..100.
func (m *Model) Normalize() {
	if m.Teams == nil {
		m.Teams = []Team{}
	}
	if m.People == nil {
		m.People = []Person{}
	}
	if m.Projects == nil {
		m.Projects = []Project{}
	}
	if m.Tasks == nil {
		m.Tasks = []Task{}
	}
	if m.Assignments == nil {
		m.Assignments = []Assignment{}
	}
	for i := range m.Teams {
		t := &m.Teams[i]
		t.ID = strings.TrimSpace(t.ID)
		t.LeaderID = strings.TrimSpace(t.LeaderID)
	}
	for i := range m.People {
		p := &m.People[i]
		p.ID = strings.TrimSpace(p.ID)
		p.ManagerID = strings.TrimSpace(p.ManagerID)
		if p.TeamIDs == nil {
			p.TeamIDs = []string{}
		}
		for j := range p.TeamIDs {
			p.TeamIDs[j] = strings.TrimSpace(p.TeamIDs[j])
		}
	}
	for i := range m.Projects {
		p := &m.Projects[i]
		p.ID = strings.TrimSpace(p.ID)
		p.ProjectManagerID = strings.TrimSpace(p.ProjectManagerID)
	}
	for i := range m.Tasks {
		t := &m.Tasks[i]
		t.ID = strings.TrimSpace(t.ID)
		t.ProjectID = strings.TrimSpace(t.ProjectID)
		t.ETA = strings.TrimSpace(t.ETA)
		if strings.TrimSpace(string(t.Status)) == "" {
			t.Status = StatusInProgress
		} else if s, ok := ParseTaskStatus(string(t.Status)); ok {
			t.Status = s
		}
		if t.Progress < 0 {
			t.Progress = 0
		}
		if t.Progress > 100 {
			t.Progress = 100
		}
	}
	for i := range m.Assignments {
		a := &m.Assignments[i]
		a.PersonID = strings.TrimSpace(a.PersonID)
		a.TaskID = strings.TrimSpace(a.TaskID)
	}
}

// CoerceStatuses maps any status outside TaskStatuses to In-progress.
// Analysis output goes through it; edits are rejected instead.
func (m *Model) CoerceStatuses() {
	for i := range m.Tasks {
		if !m.Tasks[i].Status.Valid() {
			m.Tasks[i].Status = StatusInProgress
		}
	}
}

// ValidateRequired checks that every record carries its identifying fields.
// Values such as an unparseable ETA are left alone.
func (m Model) ValidateRequired() error {
	return issuesError(m.requiredIssues())
}

// Validate checks required fields and value ranges. Cross references are not
// checked: dangling ids are dropped by the projections instead.
func (m Model) Validate() error {
	return m.validate(nil)
}

// ValidateEdit is Validate for a model replacing prev. A task keeping the
// ETA or status it has in prev is not re-checked on that field, so values
// stored by analysis (an ETA of "TBD") do not block unrelated edits.
func (m Model) ValidateEdit(prev Model) error {
	kept := make(map[string]Task, len(prev.Tasks))
	for _, t := range prev.Tasks {
		if _, ok := kept[t.ID]; !ok {
			kept[t.ID] = t
		}
	}
	return m.validate(kept)
}

func (m Model) validate(kept map[string]Task) error {
	issues := m.requiredIssues()
	for i, t := range m.Tasks {
		old, had := kept[t.ID]
		if !t.Status.Valid() && !(had && old.Status == t.Status) {
			issues = append(issues, fmt.Sprintf("tasks[%d].status %q is not one of %v", i, t.Status, TaskStatuses))
		}
		if t.Progress < 0 || t.Progress > 100 {
			issues = append(issues, fmt.Sprintf("tasks[%d].progress %d out of range 0..100", i, t.Progress))
		}
		if _, ok := t.ETATime(); !ok && !(had && old.ETA == t.ETA) {
			issues = append(issues, fmt.Sprintf("tasks[%d].eta %q must be YYYY-MM-DD", i, t.ETA))
		}
	}
	return issuesError(issues)
}

func issuesError(issues []string) error {
	if len(issues) > 0 {
		return &ValidationError{Issues: issues}
	}
	return nil
}

func (m Model) requiredIssues() []string {
	var issues []string
	add := func(format string, args ...any) {
		issues = append(issues, fmt.Sprintf(format, args...))
	}
	for i, t := range m.Teams {
		if t.ID == "" {
			add("teams[%d].id is required", i)
		}
		if strings.TrimSpace(t.Name) == "" {
			add("teams[%d].name is required", i)
		}
	}
	for i, p := range m.People {
		if p.ID == "" {
			add("people[%d].id is required", i)
		}
		if strings.TrimSpace(p.Name) == "" {
			add("people[%d].name is required", i)
		}
	}
	for i, p := range m.Projects {
		if p.ID == "" {
			add("projects[%d].id is required", i)
		}
		if strings.TrimSpace(p.Name) == "" {
			add("projects[%d].name is required", i)
		}
	}
	for i, t := range m.Tasks {
		if t.ID == "" {
			add("tasks[%d].id is required", i)
		}
		if strings.TrimSpace(t.Name) == "" {
			add("tasks[%d].name is required", i)
		}
		if t.ProjectID == "" {
			add("tasks[%d].projectId is required", i)
		}
	}
	for i, a := range m.Assignments {
		if a.PersonID == "" || a.TaskID == "" {
			add("assignments[%d] requires personId and taskId", i)
		}
	}
	return issues
}
