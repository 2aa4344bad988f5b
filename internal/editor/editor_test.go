package editor

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resourcemap/internal/domain"
)

func sample() domain.Model {
	return domain.Model{
		People: []domain.Person{
			{ID: "p1", Name: "Alice", TeamIDs: []string{"t1"}},
			{ID: "p2", Name: "Bob", TeamIDs: []string{"t1"}},
		},
		Projects: []domain.Project{{ID: "web", Name: "Website"}, {ID: "app", Name: "Mobile App"}},
		Tasks: []domain.Task{
			{ID: "t1", Name: "Design", ProjectID: "web", Status: domain.StatusInProgress, ETA: "2024-03-01"},
			{ID: "t2", Name: "Build", ProjectID: "web", Status: domain.StatusInProgress, ETA: "2024-02-01"},
			{ID: "t3", Name: "Audit", ProjectID: "app", Status: domain.StatusOnHold, ETA: "2024-02-01"},
			{ID: "t4", Name: "Someday", ProjectID: "app", Status: domain.StatusOnHold, ETA: "later"},
		},
		Assignments: []domain.Assignment{
			{PersonID: "p1", TaskID: "t1"},
			{PersonID: "p2", TaskID: "t1"},
			{PersonID: "p2", TaskID: "t3"},
		},
	}
}

func names(rows []TaskRow) []string {
	out := []string{}
	for _, r := range rows {
		out = append(out, r.Name)
	}
	return out
}

func TestDraftDoesNotAliasSource(t *testing.T) {
	src := sample()
	d := New(src)
	require.NoError(t, d.SetTaskName("t1", "Redesign"))
	require.NoError(t, d.Assign("t2", "p1"))
	assert.Equal(t, "Design", src.Tasks[0].Name)
	assert.Len(t, src.Assignments, 3)
	assert.True(t, d.Dirty())

	committed := d.Commit()
	assert.False(t, d.Dirty())
	assert.Equal(t, "Redesign", committed.Tasks[0].Name)

	committed.Tasks[0].Name = "mutated"
	assert.Equal(t, "Redesign", d.Model().Tasks[0].Name)
}

func TestFieldEdits(t *testing.T) {
	d := New(sample())
	require.NoError(t, d.SetTaskStatus("t1", "done"))
	require.NoError(t, d.SetTaskProgress("t1", 100))
	require.NoError(t, d.SetTaskETA("t1", "2025-01-31"))
	require.NoError(t, d.SetTaskProject("t1", "app"))
	task := d.Model().Tasks[0]
	assert.Equal(t, domain.StatusDone, task.Status)
	assert.Equal(t, domain.Percent(100), task.Progress)
	assert.Equal(t, "2025-01-31", task.ETA)
	assert.Equal(t, "app", task.ProjectID)

	assert.ErrorIs(t, d.SetTaskProgress("t1", 101), ErrInvalidField)
	assert.ErrorIs(t, d.SetTaskETA("t1", "31/01/2025"), ErrInvalidField)
	assert.ErrorIs(t, d.SetTaskStatus("t1", "blocked"), ErrInvalidField)
	assert.ErrorIs(t, d.SetTaskName("t1", "  "), ErrInvalidField)
	assert.ErrorIs(t, d.SetTaskProject("t1", "nope"), ErrUnknownProject)
	assert.ErrorIs(t, d.SetTaskName("missing", "x"), ErrUnknownTask)
}

func TestAssignReplacesEveryAssignee(t *testing.T) {
	d := New(sample())
	require.NoError(t, d.Assign("t1", "p2"))
	var forT1 []domain.Assignment
	for _, a := range d.Model().Assignments {
		if a.TaskID == "t1" {
			forT1 = append(forT1, a)
		}
	}
	assert.Equal(t, []domain.Assignment{{PersonID: "p2", TaskID: "t1"}}, forT1)

	require.NoError(t, d.Assign("t1", ""))
	for _, a := range d.Model().Assignments {
		assert.NotEqual(t, "t1", a.TaskID)
	}
	assert.ErrorIs(t, d.Assign("t1", "ghost"), ErrUnknownPerson)
}

func TestAddTask(t *testing.T) {
	d := New(sample())
	task, err := d.AddTask(NewTask{Name: " Launch ", ProjectID: "web", ETA: "2024-06-01", PersonID: "p1"})
	require.NoError(t, err)
	assert.Regexp(t, `^task-[0-9a-f-]{36}$`, task.ID)
	assert.Equal(t, "Launch", task.Name)
	assert.Equal(t, domain.StatusInProgress, task.Status)
	assert.Equal(t, domain.Percent(0), task.Progress)

	m := d.Model()
	assert.Equal(t, task, m.Tasks[len(m.Tasks)-1])
	assert.Equal(t, domain.Assignment{PersonID: "p1", TaskID: task.ID}, m.Assignments[len(m.Assignments)-1])

	_, err = d.AddTask(NewTask{ProjectID: "web"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidField))
	assert.Contains(t, err.Error(), "name, eta required")

	_, err = d.AddTask(NewTask{Name: "x", ProjectID: "nope", ETA: "2024-01-01"})
	assert.ErrorIs(t, err, ErrUnknownProject)
}

func TestDeleteTaskDropsAssignments(t *testing.T) {
	d := New(sample())
	require.NoError(t, d.DeleteTask("t1"))
	m := d.Model()
	assert.Len(t, m.Tasks, 3)
	assert.Equal(t, []domain.Assignment{{PersonID: "p2", TaskID: "t3"}}, m.Assignments)
	assert.ErrorIs(t, d.DeleteTask("t1"), ErrUnknownTask)
}

func TestRowsFilterAndSearch(t *testing.T) {
	d := New(sample())
	rows := d.Rows(Query{})
	require.Len(t, rows, 4)
	require.NotNil(t, rows[0].Person)
	assert.Equal(t, "Alice", rows[0].Person.Name)
	assert.Equal(t, "Website", rows[0].Project.Name)
	assert.Nil(t, rows[1].Person)

	assert.Equal(t, []string{"Audit", "Someday"}, names(d.Rows(Query{ProjectID: "app"})))
	assert.Equal(t, []string{"Audit"}, names(d.Rows(Query{PersonID: "p2"})))
	assert.Equal(t, []string{"Audit", "Someday"}, names(d.Rows(Query{Search: "MOBILE"})))
	assert.Equal(t, []string{"Design"}, names(d.Rows(Query{Search: "alice"})))
	assert.Empty(t, d.Rows(Query{Search: "zzz"}))
}

func TestRowsSortByETA(t *testing.T) {
	d := New(sample())
	assert.Equal(t, []string{"Audit", "Build", "Design", "Someday"}, names(d.Rows(Query{SortETA: SortAsc})))
	assert.Equal(t, []string{"Design", "Audit", "Build", "Someday"}, names(d.Rows(Query{SortETA: SortDesc})))
	assert.Equal(t, []string{"Design", "Build", "Audit", "Someday"}, names(d.Rows(Query{})))
}

func TestSortOrderCycle(t *testing.T) {
	s := SortNone
	s = s.Next()
	assert.Equal(t, SortAsc, s)
	s = s.Next()
	assert.Equal(t, SortDesc, s)
	assert.Equal(t, SortNone, s.Next())

	got, err := ParseSortOrder("DESC")
	require.NoError(t, err)
	assert.Equal(t, SortDesc, got)
	_, err = ParseSortOrder("sideways")
	assert.Error(t, err)
}
