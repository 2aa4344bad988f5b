// Package index builds read-only lookup tables over one domain.Model snapshot.
//
// An Index is built once per snapshot and never mutated afterwards; callers
// rebuild it whenever the model changes. Lookups that miss return ok=false
// (or an empty slice) instead of failing.
package index

import "resourcemap/internal/domain"

type Index struct {
	people   map[string]domain.Person
	projects map[string]domain.Project
	tasks    map[string]domain.Task
	teams    map[string]domain.Team

	tasksByProject      map[string][]domain.Task
	assignmentsByTask   map[string][]domain.Assignment
	assignmentsByPerson map[string][]domain.Assignment
	peopleByTeam        map[string][]domain.Person
	peopleByManager     map[string][]domain.Person
}

// New indexes m. When an id repeats, the first occurrence wins the point
// lookup; repeated (person, task) assignment pairs are kept once.
func New(m domain.Model) *Index {
	ix := &Index{
		people:              make(map[string]domain.Person, len(m.People)),
		projects:            make(map[string]domain.Project, len(m.Projects)),
		tasks:               make(map[string]domain.Task, len(m.Tasks)),
		teams:               make(map[string]domain.Team, len(m.Teams)),
		tasksByProject:      make(map[string][]domain.Task),
		assignmentsByTask:   make(map[string][]domain.Assignment),
		assignmentsByPerson: make(map[string][]domain.Assignment),
		peopleByTeam:        make(map[string][]domain.Person),
		peopleByManager:     make(map[string][]domain.Person),
	}
	for _, t := range m.Teams {
		if _, ok := ix.teams[t.ID]; !ok {
			ix.teams[t.ID] = t
		}
	}
	for _, p := range m.People {
		if _, ok := ix.people[p.ID]; ok {
			continue
		}
		ix.people[p.ID] = p
		seen := make(map[string]bool, len(p.TeamIDs))
		for _, teamID := range p.TeamIDs {
			if seen[teamID] {
				continue
			}
			seen[teamID] = true
			ix.peopleByTeam[teamID] = append(ix.peopleByTeam[teamID], p)
		}
		if p.ManagerID != "" {
			ix.peopleByManager[p.ManagerID] = append(ix.peopleByManager[p.ManagerID], p)
		}
	}
	for _, p := range m.Projects {
		if _, ok := ix.projects[p.ID]; !ok {
			ix.projects[p.ID] = p
		}
	}
	for _, t := range m.Tasks {
		if _, ok := ix.tasks[t.ID]; ok {
			continue
		}
		ix.tasks[t.ID] = t
		ix.tasksByProject[t.ProjectID] = append(ix.tasksByProject[t.ProjectID], t)
	}
	seen := make(map[domain.Assignment]bool, len(m.Assignments))
	for _, a := range m.Assignments {
		if seen[a] {
			continue
		}
		seen[a] = true
		ix.assignmentsByTask[a.TaskID] = append(ix.assignmentsByTask[a.TaskID], a)
		ix.assignmentsByPerson[a.PersonID] = append(ix.assignmentsByPerson[a.PersonID], a)
	}
	return ix
}

func (ix *Index) Person(id string) (domain.Person, bool) {
	p, ok := ix.people[id]
	return p, ok
}

func (ix *Index) Project(id string) (domain.Project, bool) {
	p, ok := ix.projects[id]
	return p, ok
}

func (ix *Index) Task(id string) (domain.Task, bool) {
	t, ok := ix.tasks[id]
	return t, ok
}

func (ix *Index) Team(id string) (domain.Team, bool) {
	t, ok := ix.teams[id]
	return t, ok
}

// TasksByProject returns the project's tasks in input order.
func (ix *Index) TasksByProject(projectID string) []domain.Task {
	return ix.tasksByProject[projectID]
}

// AssignmentsByTask returns the task's distinct assignments in input order.
func (ix *Index) AssignmentsByTask(taskID string) []domain.Assignment {
	return ix.assignmentsByTask[taskID]
}

// AssignmentsByPerson returns the person's distinct assignments in input order.
func (ix *Index) AssignmentsByPerson(personID string) []domain.Assignment {
	return ix.assignmentsByPerson[personID]
}

// PeopleByTeam returns every person listing teamID, in input order.
func (ix *Index) PeopleByTeam(teamID string) []domain.Person {
	return ix.peopleByTeam[teamID]
}

// PeopleByManager returns the direct reports of managerID, in input order.
func (ix *Index) PeopleByManager(managerID string) []domain.Person {
	return ix.peopleByManager[managerID]
}

// ManagerChain walks managerId links upward from personID. The returned chain
// starts with personID's manager and ends at the first id that either has no
// manager or does not resolve. cyclic is true when the walk revisits an id; the chain
// then stops just before the repeat.
func (ix *Index) ManagerChain(personID string) (chain []string, cyclic bool) {
	visited := map[string]bool{personID: true}
	current, ok := ix.people[personID]
	for ok && current.ManagerID != "" {
		next := current.ManagerID
		if visited[next] {
			return chain, true
		}
		visited[next] = true
		chain = append(chain, next)
		current, ok = ix.people[next]
	}
	return chain, false
}
