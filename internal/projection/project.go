package projection

import (
	"resourcemap/internal/domain"
	"resourcemap/internal/index"
)

type TaskWithPeople struct {
	domain.Task
	People []domain.Person `json:"people"`
}

type ProjectWithTasks struct {
	domain.Project
	Tasks []TaskWithPeople `json:"tasks"`
}

// ProjectTree builds the Project -> Task -> Person view. Projects keep input
// order and appear even without tasks. Tasks pointing at a missing project
// are left out, as are assignments whose person does not resolve. A repeated
// project id is shown once, at its first position.
func ProjectTree(m domain.Model, ix *index.Index) []ProjectWithTasks {
	out := make([]ProjectWithTasks, 0, len(m.Projects))
	seen := make(map[string]bool, len(m.Projects))
	for _, p := range m.Projects {
		if seen[p.ID] {
			continue
		}
		seen[p.ID] = true
		tasks := ix.TasksByProject(p.ID)
		node := ProjectWithTasks{Project: p, Tasks: make([]TaskWithPeople, 0, len(tasks))}
		for _, t := range tasks {
			node.Tasks = append(node.Tasks, TaskWithPeople{Task: t, People: assignedPeople(ix, t.ID)})
		}
		out = append(out, node)
	}
	return out
}

func assignedPeople(ix *index.Index, taskID string) []domain.Person {
	assignments := ix.AssignmentsByTask(taskID)
	people := make([]domain.Person, 0, len(assignments))
	for _, a := range assignments {
		if p, ok := ix.Person(a.PersonID); ok {
			people = append(people, p)
		}
	}
	return people
}
