package projection

import "resourcemap/internal/domain"

// ProjectLoad is the number of resolvable tasks a project carries.
type ProjectLoad struct {
	ProjectID string `json:"projectId"`
	Name      string `json:"name"`
	Tasks     int    `json:"tasks"`
}

type Summary struct {
	domain.Counts
	TasksPerProject []ProjectLoad `json:"tasksPerProject"`
}

// Summarize counts entities and tasks per project, in project order.
func Summarize(m domain.Model, projects []ProjectWithTasks) Summary {
	s := Summary{Counts: m.Counts(), TasksPerProject: make([]ProjectLoad, 0, len(projects))}
	for _, p := range projects {
		s.TasksPerProject = append(s.TasksPerProject, ProjectLoad{ProjectID: p.ID, Name: p.Name, Tasks: len(p.Tasks)})
	}
	return s
}
