// Package editor holds the task edit buffer: an isolated draft of a model
// that collects edits until it is committed as a whole.
package editor

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"resourcemap/internal/domain"
)

var (
	ErrUnknownTask    = errors.New("unknown task")
	ErrUnknownProject = errors.New("unknown project")
	ErrUnknownPerson  = errors.New("unknown person")
	ErrInvalidField   = errors.New("invalid field")
)

// Draft is a private copy of a model. Edits never reach the source model;
// Commit hands back the edited copy for wholesale replacement.
type Draft struct {
	model domain.Model
	dirty bool
	newID func() string
}

func New(m domain.Model) *Draft {
	return &Draft{model: m.Clone(), newID: func() string { return "task-" + uuid.NewString() }}
}

// Dirty reports whether the draft has edits that were not committed.
func (d *Draft) Dirty() bool { return d.dirty }

// Model returns a copy of the current draft state.
func (d *Draft) Model() domain.Model { return d.model.Clone() }

// Reset discards all edits and starts over from m.
func (d *Draft) Reset(m domain.Model) {
	d.model = m.Clone()
	d.dirty = false
}

// Commit returns the edited model and marks the draft clean.
func (d *Draft) Commit() domain.Model {
	d.dirty = false
	return d.model.Clone()
}

func (d *Draft) task(id string) (*domain.Task, error) {
	for i := range d.model.Tasks {
		if d.model.Tasks[i].ID == id {
			return &d.model.Tasks[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownTask, id)
}

func (d *Draft) hasProject(id string) bool {
	for _, p := range d.model.Projects {
		if p.ID == id {
			return true
		}
	}
	return false
}

func (d *Draft) hasPerson(id string) bool {
	for _, p := range d.model.People {
		if p.ID == id {
			return true
		}
	}
	return false
}

func (d *Draft) SetTaskName(taskID, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: task name is required", ErrInvalidField)
	}
	t, err := d.task(taskID)
	if err != nil {
		return err
	}
	t.Name = name
	d.dirty = true
	return nil
}

func (d *Draft) SetTaskStatus(taskID, status string) error {
	s, ok := domain.ParseTaskStatus(status)
	if !ok {
		return fmt.Errorf("%w: status %q (want In-progress, Done, On-hold or Cancelled)", ErrInvalidField, status)
	}
	t, err := d.task(taskID)
	if err != nil {
		return err
	}
	t.Status = s
	d.dirty = true
	return nil
}

func (d *Draft) SetTaskProgress(taskID string, progress int) error {
	if progress < 0 || progress > 100 {
		return fmt.Errorf("%w: progress %d is outside 0..100", ErrInvalidField, progress)
	}
	t, err := d.task(taskID)
	if err != nil {
		return err
	}
	t.Progress = domain.Percent(progress)
	d.dirty = true
	return nil
}

func (d *Draft) SetTaskETA(taskID, eta string) error {
	eta = strings.TrimSpace(eta)
	if _, err := time.Parse(domain.ETALayout, eta); err != nil {
		return fmt.Errorf("%w: eta %q is not YYYY-MM-DD", ErrInvalidField, eta)
	}
	t, err := d.task(taskID)
	if err != nil {
		return err
	}
	t.ETA = eta
	d.dirty = true
	return nil
}

func (d *Draft) SetTaskProject(taskID, projectID string) error {
	if !d.hasProject(projectID) {
		return fmt.Errorf("%w: %s", ErrUnknownProject, projectID)
	}
	t, err := d.task(taskID)
	if err != nil {
		return err
	}
	t.ProjectID = projectID
	d.dirty = true
	return nil
}

// Assign makes personID the only assignee of taskID. An empty personID
// leaves the task unassigned.
func (d *Draft) Assign(taskID, personID string) error {
	if _, err := d.task(taskID); err != nil {
		return err
	}
	if personID != "" && !d.hasPerson(personID) {
		return fmt.Errorf("%w: %s", ErrUnknownPerson, personID)
	}
	kept := make([]domain.Assignment, 0, len(d.model.Assignments)+1)
	for _, a := range d.model.Assignments {
		if a.TaskID != taskID {
			kept = append(kept, a)
		}
	}
	if personID != "" {
		kept = append(kept, domain.Assignment{PersonID: personID, TaskID: taskID})
	}
	d.model.Assignments = kept
	d.dirty = true
	return nil
}

// NewTask carries the fields a user supplies for a new task.
type NewTask struct {
	Name      string `json:"name"`
	ProjectID string `json:"projectId"`
	ETA       string `json:"eta"`
	PersonID  string `json:"personId,omitempty"`
}

// AddTask appends a task that starts In-progress at 0%, optionally
// assigned to one person.
func (d *Draft) AddTask(in NewTask) (domain.Task, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.ETA = strings.TrimSpace(in.ETA)
	var missing []string
	if in.Name == "" {
		missing = append(missing, "name")
	}
	if in.ProjectID == "" {
		missing = append(missing, "project")
	}
	if in.ETA == "" {
		missing = append(missing, "eta")
	}
	if len(missing) > 0 {
		return domain.Task{}, fmt.Errorf("%w: %s required", ErrInvalidField, strings.Join(missing, ", "))
	}
	if _, err := time.Parse(domain.ETALayout, in.ETA); err != nil {
		return domain.Task{}, fmt.Errorf("%w: eta %q is not YYYY-MM-DD", ErrInvalidField, in.ETA)
	}
	if !d.hasProject(in.ProjectID) {
		return domain.Task{}, fmt.Errorf("%w: %s", ErrUnknownProject, in.ProjectID)
	}
	if in.PersonID != "" && !d.hasPerson(in.PersonID) {
		return domain.Task{}, fmt.Errorf("%w: %s", ErrUnknownPerson, in.PersonID)
	}
	t := domain.Task{
		ID:        d.newID(),
		Name:      in.Name,
		ProjectID: in.ProjectID,
		Status:    domain.StatusInProgress,
		Progress:  0,
		ETA:       in.ETA,
	}
	d.model.Tasks = append(d.model.Tasks, t)
	if in.PersonID != "" {
		d.model.Assignments = append(d.model.Assignments, domain.Assignment{PersonID: in.PersonID, TaskID: t.ID})
	}
	d.dirty = true
	return t, nil
}

// DeleteTask removes a task together with its assignments.
func (d *Draft) DeleteTask(taskID string) error {
	if _, err := d.task(taskID); err != nil {
		return err
	}
	tasks := make([]domain.Task, 0, len(d.model.Tasks))
	for _, t := range d.model.Tasks {
		if t.ID != taskID {
			tasks = append(tasks, t)
		}
	}
	assignments := make([]domain.Assignment, 0, len(d.model.Assignments))
	for _, a := range d.model.Assignments {
		if a.TaskID != taskID {
			assignments = append(assignments, a)
		}
	}
	d.model.Tasks = tasks
	d.model.Assignments = assignments
	d.dirty = true
	return nil
}
