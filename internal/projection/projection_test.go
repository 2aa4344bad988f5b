package projection

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resourcemap/internal/domain"
	"resourcemap/internal/index"
)

func roundTripModel() domain.Model {
	return domain.Model{
		Teams: []domain.Team{{ID: "t1", Name: "Eng", LeaderID: "p1"}},
		People: []domain.Person{
			{ID: "p1", Name: "Alice", TeamIDs: []string{"t1"}},
			{ID: "p2", Name: "Bob", TeamIDs: []string{"t1"}},
		},
		Projects: []domain.Project{{ID: "pr1", Name: "Website"}},
		Tasks: []domain.Task{
			{ID: "tk1", Name: "Design", ProjectID: "pr1", Status: domain.StatusInProgress, Progress: 0, ETA: "2024-01-01"},
		},
		Assignments: []domain.Assignment{{PersonID: "p2", TaskID: "tk1"}},
	}
}

func projectNames(ps []domain.Project) []string {
	out := []string{}
	for _, p := range ps {
		out = append(out, p.Name)
	}
	return out
}

func TestRoundTripScenario(t *testing.T) {
	m := roundTripModel()
	ix := index.New(m)

	tree := ProjectTree(m, ix)
	require.Len(t, tree, 1)
	assert.Equal(t, "Website", tree[0].Name)
	require.Len(t, tree[0].Tasks, 1)
	assert.Equal(t, "Design", tree[0].Tasks[0].Name)
	require.Len(t, tree[0].Tasks[0].People, 1)
	assert.Equal(t, "Bob", tree[0].Tasks[0].People[0].Name)

	org := OrganizationTree(m, ix)
	require.Len(t, org, 2)
	alice := org[0]
	assert.Equal(t, "Alice", alice.Manager.Name)
	require.Len(t, alice.Teams, 1)
	team := alice.Teams[0]
	assert.Equal(t, "Eng", team.Name)
	require.NotNil(t, team.Leader)
	assert.Equal(t, "Alice", team.Leader.Name)
	assert.Equal(t, []string{}, projectNames(team.Leader.Projects))
	require.Len(t, team.Members, 1)
	assert.Equal(t, "Bob", team.Members[0].Name)
	assert.Equal(t, []string{"Website"}, projectNames(team.Members[0].Projects))

	// Bob has no managerId either, but leads nothing.
	assert.Equal(t, "Bob", org[1].Manager.Name)
	assert.Empty(t, org[1].Teams)
}

func TestDanglingAssignmentsAreDropped(t *testing.T) {
	m := roundTripModel()
	m.Assignments = append(m.Assignments,
		domain.Assignment{PersonID: "ghost", TaskID: "tk1"},
		domain.Assignment{PersonID: "p1", TaskID: "missing"},
	)
	ix := index.New(m)

	require.NotPanics(t, func() { Build(m) })

	tree := ProjectTree(m, ix)
	require.Len(t, tree[0].Tasks[0].People, 1)
	assert.Equal(t, "p2", tree[0].Tasks[0].People[0].ID)

	for _, p := range PersonAssignmentTree(m, ix) {
		if p.ID == "p1" {
			assert.Empty(t, p.Projects)
		}
	}
	assert.Empty(t, PersonProjects(ix, "p1"))
	assert.Empty(t, PersonProjects(ix, "ghost"))
}

func TestOrphanTaskLeavesProjectEmpty(t *testing.T) {
	m := domain.Model{
		Projects: []domain.Project{{ID: "pr1", Name: "Website"}},
		Tasks:    []domain.Task{{ID: "tk1", Name: "Lost", ProjectID: "nowhere"}},
	}
	tree := ProjectTree(m, index.New(m))
	require.Len(t, tree, 1)
	assert.NotNil(t, tree[0].Tasks)
	assert.Empty(t, tree[0].Tasks)

	raw, err := json.Marshal(tree[0])
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"tasks":[]`)
}

func TestProjectionsAreDeterministic(t *testing.T) {
	m := roundTripModel()
	m.People = append(m.People,
		domain.Person{ID: "p3", Name: "Émile", TeamIDs: []string{"t1"}},
		domain.Person{ID: "p4", Name: "Zoe", TeamIDs: []string{"t1"}},
	)
	assert.Equal(t, Build(m), Build(m))
}

func TestMembersSortedWithLeaderApart(t *testing.T) {
	m := domain.Model{
		Teams: []domain.Team{{ID: "t1", Name: "Ops", LeaderID: "z"}},
		People: []domain.Person{
			{ID: "boss", Name: "Boss"},
			{ID: "z", Name: "Zed", TeamIDs: []string{"t1"}, ManagerID: "boss"},
			{ID: "c", Name: "carol", TeamIDs: []string{"t1"}, ManagerID: "z"},
			{ID: "e", Name: "Émile", TeamIDs: []string{"t1"}, ManagerID: "z"},
			{ID: "a", Name: "Aaron", TeamIDs: []string{"t1"}, ManagerID: "z"},
		},
	}
	org := OrganizationTree(m, index.New(m))
	require.Len(t, org, 1)
	require.Len(t, org[0].Teams, 1)
	team := org[0].Teams[0]
	assert.Equal(t, "Zed", team.Leader.Name)

	var names []string
	for _, p := range team.Members {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"Aaron", "carol", "Émile"}, names)

	nodes := OrganizationNodes(org)
	teamNode := nodes[0].Children[0]
	require.Len(t, teamNode.Children, 1)
	leader := teamNode.Children[0]
	assert.Equal(t, "Zed", leader.Name)
	require.Len(t, leader.Children, 3)
	assert.Equal(t, "Aaron", leader.Children[0].Name)
}

func TestTeamsAndManagersSortedByName(t *testing.T) {
	m := domain.Model{
		Teams: []domain.Team{
			{ID: "t2", Name: "Web", LeaderID: "l2"},
			{ID: "t1", Name: "Data", LeaderID: "l1"},
			{ID: "t3", Name: "Infra", LeaderID: "m2"},
		},
		People: []domain.Person{
			{ID: "m2", Name: "Yara"},
			{ID: "m1", Name: "Ben"},
			{ID: "l1", Name: "Leo", ManagerID: "m1"},
			{ID: "l2", Name: "Lia", ManagerID: "m1"},
		},
	}
	org := OrganizationTree(m, index.New(m))
	require.Len(t, org, 2)
	assert.Equal(t, "Ben", org[0].Manager.Name)
	require.Len(t, org[0].Teams, 2)
	assert.Equal(t, "Data", org[0].Teams[0].Name)
	assert.Equal(t, "Web", org[0].Teams[1].Name)
	assert.Equal(t, "Yara", org[1].Manager.Name)
	require.Len(t, org[1].Teams, 1)
	assert.Equal(t, "Infra", org[1].Teams[0].Name)
}

func TestManagementCycleLeavesNoManagerForTeam(t *testing.T) {
	m := domain.Model{
		Teams: []domain.Team{{ID: "t1", Name: "Loop", LeaderID: "a"}, {ID: "t2", Name: "Fine", LeaderID: "c"}},
		People: []domain.Person{
			{ID: "a", Name: "A", ManagerID: "b"},
			{ID: "b", Name: "B", ManagerID: "a"},
			{ID: "c", Name: "C"},
		},
	}
	org := OrganizationTree(m, index.New(m))
	require.Len(t, org, 1)
	assert.Equal(t, "C", org[0].Manager.Name)
	require.Len(t, org[0].Teams, 1)
	assert.Equal(t, "Fine", org[0].Teams[0].Name)
}

func TestAttributionRejectsCyclicLeader(t *testing.T) {
	m := domain.Model{
		People: []domain.Person{
			{ID: "a", Name: "A", ManagerID: "b"},
			{ID: "b", Name: "B", ManagerID: "a"},
			{ID: "c", Name: "C"},
			{ID: "d", Name: "D", ManagerID: "c"},
		},
	}
	ix := index.New(m)
	loop := TeamWithMembers{
		Team:   domain.Team{ID: "t1", Name: "Loop", LeaderID: "a"},
		Leader: &PersonWithProjects{Person: m.People[0]},
	}
	assert.False(t, attributedTo(ix, loop, "b"))

	fine := TeamWithMembers{
		Team:   domain.Team{ID: "t2", Name: "Fine", LeaderID: "d"},
		Leader: &PersonWithProjects{Person: m.People[3]},
	}
	assert.True(t, attributedTo(ix, fine, "c"))
	assert.False(t, attributedTo(ix, fine, "a"))
}

func TestTeamWithoutLeaderListsMembersDirectly(t *testing.T) {
	team := TeamWithMembers{
		Team:    domain.Team{ID: "t1", Name: "Floating"},
		Members: []PersonWithProjects{{Person: domain.Person{ID: "p1", Name: "Ann"}, Projects: []domain.Project{{ID: "x", Name: "X"}}}},
	}
	node := teamNode(team)
	require.Len(t, node.Children, 1)
	assert.Equal(t, KindPerson, node.Children[0].Kind)
	require.Len(t, node.Children[0].Children, 1)
	assert.Equal(t, KindProject, node.Children[0].Children[0].Kind)
}

func TestBucketThreshold(t *testing.T) {
	withTasks := func(id string, n int) ProjectWithTasks {
		return ProjectWithTasks{Project: domain.Project{ID: id}, Tasks: make([]TaskWithPeople, n)}
	}
	two, three := withTasks("two", 2), withTasks("three", 3)
	assert.False(t, IsLarge(two))
	assert.True(t, IsLarge(three))

	b := Bucket([]ProjectWithTasks{three, two, withTasks("zero", 0), withTasks("four", 4)})
	require.Len(t, b.Large, 2)
	assert.Equal(t, "three", b.Large[0].ID)
	assert.Equal(t, "four", b.Large[1].ID)
	require.Len(t, b.Small, 2)
	assert.Equal(t, "two", b.Small[0].ID)
	assert.Equal(t, "zero", b.Small[1].ID)
}

func TestPersonGroupingFirstSeenProjectOrder(t *testing.T) {
	m := domain.Model{
		People: []domain.Person{{ID: "z", Name: "Zoe"}, {ID: "a", Name: "Al"}, {ID: "idle", Name: "Idle"}},
		Projects: []domain.Project{
			{ID: "pa", Name: "Alpha"},
			{ID: "pb", Name: "Beta"},
		},
		Tasks: []domain.Task{
			{ID: "t1", Name: "One", ProjectID: "pa"},
			{ID: "t2", Name: "Two", ProjectID: "pb"},
			{ID: "t3", Name: "Three", ProjectID: "pa"},
			{ID: "t4", Name: "Orphan", ProjectID: "gone"},
		},
		Assignments: []domain.Assignment{
			{PersonID: "a", TaskID: "t2"},
			{PersonID: "a", TaskID: "t1"},
			{PersonID: "a", TaskID: "t4"},
			{PersonID: "a", TaskID: "t3"},
		},
	}
	people := PersonAssignmentTree(m, index.New(m))
	require.Len(t, people, 3)
	assert.Equal(t, "Al", people[0].Name)
	assert.Equal(t, "Idle", people[1].Name)
	assert.NotNil(t, people[1].Projects)
	assert.Empty(t, people[1].Projects)
	assert.Equal(t, "Zoe", people[2].Name)

	al := people[0].Projects
	require.Len(t, al, 2)
	assert.Equal(t, "Beta", al[0].Project.Name)
	assert.Equal(t, "Alpha", al[1].Project.Name)
	require.Len(t, al[1].Tasks, 2)
	assert.Equal(t, "One", al[1].Tasks[0].Name)
	assert.Equal(t, "Three", al[1].Tasks[1].Name)

	assert.Equal(t, []string{"Alpha", "Beta"}, projectNames(PersonProjects(index.New(m), "a")))
}

func TestSummaryCountsTasksPerProject(t *testing.T) {
	m := roundTripModel()
	m.Projects = append(m.Projects, domain.Project{ID: "pr2", Name: "Idle"})
	v := Build(m)
	assert.Equal(t, domain.Counts{Teams: 1, People: 2, Projects: 2, Tasks: 1}, v.Summary.Counts)
	assert.Equal(t, []ProjectLoad{
		{ProjectID: "pr1", Name: "Website", Tasks: 1},
		{ProjectID: "pr2", Name: "Idle", Tasks: 0},
	}, v.Summary.TasksPerProject)
	assert.Len(t, v.Buckets.Small, 2)
}

func TestProjectTreeShowsRepeatedProjectOnce(t *testing.T) {
	m := roundTripModel()
	m.Projects = append(m.Projects, domain.Project{ID: "pr2", Name: "Mobile"}, domain.Project{ID: "pr1", Name: "Website again"})

	tree := ProjectTree(m, index.New(m))
	require.Len(t, tree, 2)
	assert.Equal(t, "Website", tree[0].Name)
	assert.Len(t, tree[0].Tasks, 1)
	assert.Equal(t, "Mobile", tree[1].Name)
	assert.Empty(t, tree[1].Tasks)

	summary := Summarize(m, tree)
	require.Len(t, summary.TasksPerProject, 2)
}

func TestProjectNodesCarryKinds(t *testing.T) {
	m := roundTripModel()
	nodes := ProjectNodes(ProjectTree(m, index.New(m)))
	require.Len(t, nodes, 1)
	assert.Equal(t, KindProject, nodes[0].Kind)
	assert.Equal(t, "1 task", nodes[0].Detail)
	task := nodes[0].Children[0]
	assert.Equal(t, KindTask, task.Kind)
	assert.Equal(t, "In-progress, 0%, ETA 2024-01-01", task.Detail)
	require.Len(t, task.Children, 1)
	assert.Equal(t, KindPerson, task.Children[0].Kind)
	assert.True(t, task.Children[0].Leaf())
}
