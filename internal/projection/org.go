package projection

import (
	"golang.org/x/text/collate"

	"resourcemap/internal/domain"
	"resourcemap/internal/index"
)

type PersonWithProjects struct {
	domain.Person
	Projects []domain.Project `json:"projects"`
}

type TeamWithMembers struct {
	domain.Team
	Leader  *PersonWithProjects  `json:"leader,omitempty"`
	Members []PersonWithProjects `json:"members"`
}

type ManagerWithTeams struct {
	Manager PersonWithProjects `json:"manager"`
	Teams   []TeamWithMembers  `json:"teams"`
}

// OrganizationTree builds the Manager -> Team -> Person -> Project view.
//
// Department managers are people without a managerId. A team belongs to
// manager M when its leader reports to M or is M. Teams without a resolvable
// leader, and teams whose leader sits in a management cycle, are not
// attributed to anyone. Managers, their teams and team members are ordered by
// name; a team's leader is kept apart from its members.
func OrganizationTree(m domain.Model, ix *index.Index) []ManagerWithTeams {
	c := newCollator()

	people := make(map[string]PersonWithProjects, len(m.People))
	for _, p := range m.People {
		if _, ok := people[p.ID]; ok {
			continue
		}
		people[p.ID] = withProjects(c, ix, p)
	}

	teams := make([]TeamWithMembers, 0, len(m.Teams))
	for _, t := range m.Teams {
		teams = append(teams, teamWithMembers(c, ix, people, t))
	}

	var out []ManagerWithTeams
	seen := make(map[string]bool, len(m.People))
	for _, p := range m.People {
		if p.ManagerID != "" || seen[p.ID] {
			continue
		}
		seen[p.ID] = true
		mgr := ManagerWithTeams{Manager: people[p.ID], Teams: []TeamWithMembers{}}
		for _, t := range teams {
			if attributedTo(ix, t, p.ID) {
				mgr.Teams = append(mgr.Teams, t)
			}
		}
		sortByName(c, mgr.Teams, func(t TeamWithMembers) string { return t.Name })
		out = append(out, mgr)
	}
	sortByName(c, out, func(mw ManagerWithTeams) string { return mw.Manager.Name })
	if out == nil {
		out = []ManagerWithTeams{}
	}
	return out
}

// PersonProjects returns the distinct projects reachable from personID
// through assignments, ordered by name.
func PersonProjects(ix *index.Index, personID string) []domain.Project {
	p, ok := ix.Person(personID)
	if !ok {
		return []domain.Project{}
	}
	return withProjects(newCollator(), ix, p).Projects
}

func withProjects(c *collate.Collator, ix *index.Index, p domain.Person) PersonWithProjects {
	projects := []domain.Project{}
	seen := map[string]bool{}
	for _, a := range ix.AssignmentsByPerson(p.ID) {
		task, ok := ix.Task(a.TaskID)
		if !ok || seen[task.ProjectID] {
			continue
		}
		seen[task.ProjectID] = true
		if project, ok := ix.Project(task.ProjectID); ok {
			projects = append(projects, project)
		}
	}
	sortByName(c, projects, func(p domain.Project) string { return p.Name })
	return PersonWithProjects{Person: p, Projects: projects}
}

func teamWithMembers(c *collate.Collator, ix *index.Index, people map[string]PersonWithProjects, t domain.Team) TeamWithMembers {
	out := TeamWithMembers{Team: t, Members: []PersonWithProjects{}}
	if t.LeaderID != "" {
		if leader, ok := people[t.LeaderID]; ok {
			out.Leader = &leader
		}
	}
	for _, p := range ix.PeopleByTeam(t.ID) {
		if p.ID == t.LeaderID {
			continue
		}
		out.Members = append(out.Members, people[p.ID])
	}
	sortByName(c, out.Members, func(p PersonWithProjects) string { return p.Name })
	return out
}

// attributedTo reports whether t belongs under managerID: its leader is the
// manager or reports to them. OrganizationTree only passes department
// managers, who have no manager, so a leader on a management cycle already
// fails the first check there; the chain walk guards other callers.
func attributedTo(ix *index.Index, t TeamWithMembers, managerID string) bool {
	if t.Leader == nil {
		return false
	}
	if t.Leader.ID != managerID && t.Leader.ManagerID != managerID {
		return false
	}
	_, cyclic := ix.ManagerChain(t.Leader.ID)
	return !cyclic
}
