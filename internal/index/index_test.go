package index

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"resourcemap/internal/domain"
)

func fixture() domain.Model {
	return domain.Model{
		Teams: []domain.Team{{ID: "t1", Name: "Eng"}, {ID: "t1", Name: "Duplicate"}},
		People: []domain.Person{
			{ID: "boss", Name: "Boss"},
			{ID: "p1", Name: "Alice", TeamIDs: []string{"t1", "t1"}, ManagerID: "boss"},
			{ID: "p2", Name: "Bob", TeamIDs: []string{"t1"}, ManagerID: "p1"},
		},
		Projects: []domain.Project{{ID: "pr1", Name: "Website"}},
		Tasks: []domain.Task{
			{ID: "a", Name: "A", ProjectID: "pr1"},
			{ID: "b", Name: "B", ProjectID: "pr1"},
			{ID: "c", Name: "C", ProjectID: "gone"},
		},
		Assignments: []domain.Assignment{
			{PersonID: "p2", TaskID: "b"},
			{PersonID: "p1", TaskID: "b"},
			{PersonID: "p2", TaskID: "b"},
			{PersonID: "ghost", TaskID: "a"},
		},
	}
}

func TestPointLookups(t *testing.T) {
	ix := New(fixture())

	team, ok := ix.Team("t1")
	assert.True(t, ok)
	assert.Equal(t, "Eng", team.Name, "first occurrence wins")

	_, ok = ix.Person("ghost")
	assert.False(t, ok)
	_, ok = ix.Project("gone")
	assert.False(t, ok)
	task, ok := ix.Task("c")
	assert.True(t, ok)
	assert.Equal(t, "gone", task.ProjectID)
}

func TestReverseLookups(t *testing.T) {
	ix := New(fixture())

	tasks := ix.TasksByProject("pr1")
	assert.Equal(t, []string{"a", "b"}, taskIDs(tasks))

	byTask := ix.AssignmentsByTask("b")
	assert.Equal(t, []domain.Assignment{{PersonID: "p2", TaskID: "b"}, {PersonID: "p1", TaskID: "b"}}, byTask)

	assert.Len(t, ix.AssignmentsByPerson("p2"), 1)
	assert.Len(t, ix.PeopleByTeam("t1"), 2, "repeated team ids count once")
	assert.Len(t, ix.PeopleByManager("boss"), 1)
	assert.Empty(t, ix.PeopleByManager("nobody"))
}

func TestManagerChain(t *testing.T) {
	ix := New(fixture())
	chain, cyclic := ix.ManagerChain("p2")
	assert.False(t, cyclic)
	assert.Equal(t, []string{"p1", "boss"}, chain)

	chain, cyclic = ix.ManagerChain("boss")
	assert.False(t, cyclic)
	assert.Empty(t, chain)
}

func TestManagerChainDetectsCycle(t *testing.T) {
	ix := New(domain.Model{People: []domain.Person{
		{ID: "a", Name: "A", ManagerID: "b"},
		{ID: "b", Name: "B", ManagerID: "c"},
		{ID: "c", Name: "C", ManagerID: "a"},
		{ID: "self", Name: "Self", ManagerID: "self"},
	}})
	chain, cyclic := ix.ManagerChain("a")
	assert.True(t, cyclic)
	assert.Equal(t, []string{"b", "c"}, chain)

	_, cyclic = ix.ManagerChain("self")
	assert.True(t, cyclic)
}

func TestManagerChainStopsAtUnresolvedManager(t *testing.T) {
	ix := New(domain.Model{People: []domain.Person{{ID: "a", Name: "A", ManagerID: "missing"}}})
	chain, cyclic := ix.ManagerChain("a")
	assert.False(t, cyclic)
	assert.Equal(t, []string{"missing"}, chain)
}

func taskIDs(tasks []domain.Task) []string {
	out := make([]string, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t.ID)
	}
	return out
}
