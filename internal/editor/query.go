package editor

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"resourcemap/internal/domain"
)

type SortOrder string

const (
	SortNone SortOrder = ""
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// Next cycles asc -> desc -> none -> asc, like a column header toggle.
func (s SortOrder) Next() SortOrder {
	switch s {
	case SortAsc:
		return SortDesc
	case SortDesc:
		return SortNone
	}
	return SortAsc
}

func ParseSortOrder(raw string) (SortOrder, error) {
	switch SortOrder(strings.ToLower(strings.TrimSpace(raw))) {
	case SortNone, "none":
		return SortNone, nil
	case SortAsc:
		return SortAsc, nil
	case SortDesc:
		return SortDesc, nil
	}
	return SortNone, fmt.Errorf("%w: sort %q (want asc, desc or none)", ErrInvalidField, raw)
}

// Query filters the task table. Zero values match everything.
type Query struct {
	ProjectID string
	PersonID  string
	Search    string
	SortETA   SortOrder
}

// TaskRow is a task with its project and first assignee resolved.
type TaskRow struct {
	domain.Task
	Project *domain.Project `json:"project,omitempty"`
	Person  *domain.Person  `json:"person,omitempty"`
}

// Rows lists the draft's tasks matching q.
func (d *Draft) Rows(q Query) []TaskRow {
	return Rows(d.model, q)
}

// Rows lists tasks of m matching q. Search is a case-insensitive substring
// match over the task, project and assignee names. Without a sort the input
// order is kept; ETA ties are broken by task name.
func Rows(m domain.Model, q Query) []TaskRow {
	projects := make(map[string]domain.Project, len(m.Projects))
	for _, p := range m.Projects {
		if _, ok := projects[p.ID]; !ok {
			projects[p.ID] = p
		}
	}
	people := make(map[string]domain.Person, len(m.People))
	for _, p := range m.People {
		if _, ok := people[p.ID]; !ok {
			people[p.ID] = p
		}
	}
	assignee := make(map[string]string, len(m.Assignments))
	for _, a := range m.Assignments {
		if _, ok := assignee[a.TaskID]; !ok {
			assignee[a.TaskID] = a.PersonID
		}
	}

	search := strings.ToLower(strings.TrimSpace(q.Search))
	rows := []TaskRow{}
	for _, t := range m.Tasks {
		row := TaskRow{Task: t}
		if p, ok := projects[t.ProjectID]; ok {
			row.Project = &p
		}
		if p, ok := people[assignee[t.ID]]; ok {
			row.Person = &p
		}
		if q.ProjectID != "" && t.ProjectID != q.ProjectID {
			continue
		}
		if q.PersonID != "" && (row.Person == nil || row.Person.ID != q.PersonID) {
			continue
		}
		if search != "" && !row.matches(search) {
			continue
		}
		rows = append(rows, row)
	}
	if q.SortETA != SortNone {
		sortByETA(rows, q.SortETA)
	}
	return rows
}

func (r TaskRow) matches(lowerQuery string) bool {
	if strings.Contains(strings.ToLower(r.Name), lowerQuery) {
		return true
	}
	if r.Project != nil && strings.Contains(strings.ToLower(r.Project.Name), lowerQuery) {
		return true
	}
	return r.Person != nil && strings.Contains(strings.ToLower(r.Person.Name), lowerQuery)
}

// sortByETA orders rows by date. Rows whose ETA does not parse go last in
// either direction.
func sortByETA(rows []TaskRow, order SortOrder) {
	c := collate.New(language.Und)
	dates := make([]time.Time, len(rows))
	valid := make([]bool, len(rows))
	for i, r := range rows {
		dates[i], valid[i] = r.ETATime()
	}
	idx := make([]int, len(rows))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		i, j := idx[a], idx[b]
		if valid[i] != valid[j] {
			return valid[i]
		}
		if valid[i] && !dates[i].Equal(dates[j]) {
			if order == SortDesc {
				return dates[i].After(dates[j])
			}
			return dates[i].Before(dates[j])
		}
		return c.CompareString(rows[i].Name, rows[j].Name) < 0
	})
	sorted := make([]TaskRow, len(rows))
	for k, i := range idx {
		sorted[k] = rows[i]
	}
	copy(rows, sorted)
}
