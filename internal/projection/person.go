package projection

import (
	"resourcemap/internal/domain"
	"resourcemap/internal/index"
)

type ProjectTasks struct {
	Project domain.Project `json:"project"`
	Tasks   []domain.Task  `json:"tasks"`
}

type PersonAssignments struct {
	domain.Person
	Projects []ProjectTasks `json:"projects"`
}

// PersonAssignmentTree groups every person's assigned tasks by project.
// People are ordered by name and appear even without assignments. Projects
// follow the order in which the person's assignments first reach them; tasks
// follow assignment order.
func PersonAssignmentTree(m domain.Model, ix *index.Index) []PersonAssignments {
	c := newCollator()
	out := make([]PersonAssignments, 0, len(m.People))
	seen := make(map[string]bool, len(m.People))
	for _, p := range m.People {
		if seen[p.ID] {
			continue
		}
		seen[p.ID] = true
		out = append(out, PersonAssignments{Person: p, Projects: groupByProject(ix, p.ID)})
	}
	sortByName(c, out, func(p PersonAssignments) string { return p.Name })
	return out
}

func groupByProject(ix *index.Index, personID string) []ProjectTasks {
	groups := []ProjectTasks{}
	pos := map[string]int{}
	for _, a := range ix.AssignmentsByPerson(personID) {
		task, ok := ix.Task(a.TaskID)
		if !ok {
			continue
		}
		project, ok := ix.Project(task.ProjectID)
		if !ok {
			continue
		}
		i, ok := pos[project.ID]
		if !ok {
			i = len(groups)
			pos[project.ID] = i
			groups = append(groups, ProjectTasks{Project: project})
		}
		groups[i].Tasks = append(groups[i].Tasks, task)
	}
	return groups
}
