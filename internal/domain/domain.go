package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"
)

// ETALayout is the calendar date layout used for task ETAs.
const ETALayout = "2006-01-02"

type TaskStatus string

const (
	StatusInProgress TaskStatus = "In-progress"
	StatusDone       TaskStatus = "Done"
	StatusOnHold     TaskStatus = "On-hold"
	StatusCancelled  TaskStatus = "Cancelled"
)

// TaskStatuses lists every valid status in display order.
var TaskStatuses = []TaskStatus{StatusInProgress, StatusDone, StatusOnHold, StatusCancelled}

func (s TaskStatus) Valid() bool {
	for _, v := range TaskStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// ParseTaskStatus accepts the canonical spelling plus loose variants
// ("in progress", "ON_HOLD", "canceled").
func ParseTaskStatus(raw string) (TaskStatus, bool) {
	key := strings.ToLower(strings.TrimSpace(raw))
	key = strings.NewReplacer(" ", "", "-", "", "_", "").Replace(key)
	switch key {
	case "inprogress":
		return StatusInProgress, true
	case "done":
		return StatusDone, true
	case "onhold":
		return StatusOnHold, true
	case "cancelled", "canceled":
		return StatusCancelled, true
	}
	return TaskStatus(raw), false
}

type Team struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	LeaderID string `json:"leaderId,omitempty"`
}

type Person struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	TeamIDs   []string `json:"teamIds"`
	Role      string   `json:"role,omitempty"`
	ManagerID string   `json:"managerId,omitempty"`
}

// InTeam reports whether the person lists teamID among their teams.
func (p Person) InTeam(teamID string) bool {
	for _, id := range p.TeamIDs {
		if id == teamID {
			return true
		}
	}
	return false
}

type Project struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	ProjectManagerID string `json:"projectManagerId,omitempty"`
}

type Task struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	ProjectID string     `json:"projectId"`
	Status    TaskStatus `json:"status" enum:"In-progress,Done,On-hold,Cancelled"`
	Progress  Percent    `json:"progress" minimum:"0" maximum:"100"`
	ETA       string     `json:"eta" format:"date"`
}

// Percent is a completion percentage. It decodes fractional JSON numbers,
// which structuring models emit for "number" typed fields, by rounding.
type Percent int

func (p *Percent) UnmarshalJSON(data []byte) error {
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("progress: %w", err)
	}
	*p = Percent(math.Round(f))
	return nil
}

// ETATime parses the task ETA; ok is false when it is not a calendar date.
func (t Task) ETATime() (time.Time, bool) {
	ts, err := time.Parse(ETALayout, strings.TrimSpace(t.ETA))
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}

// Assignment joins a person to a task. A repeated pair is redundant.
type Assignment struct {
	PersonID string `json:"personId"`
	TaskID   string `json:"taskId"`
}

// Model is the normalized snapshot produced by one analysis run.
type Model struct {
	Teams        []Team       `json:"teams"`
	People       []Person     `json:"people"`
	Projects     []Project    `json:"projects"`
	Tasks        []Task       `json:"tasks"`
	Assignments  []Assignment `json:"assignments"`
	RiskAnalysis string       `json:"riskAnalysis"`
}

// Clone returns a copy that shares no backing arrays with m.
func (m Model) Clone() Model {
	out := Model{
		Teams:        cloneSlice(m.Teams),
		People:       cloneSlice(m.People),
		Projects:     cloneSlice(m.Projects),
		Tasks:        cloneSlice(m.Tasks),
		Assignments:  cloneSlice(m.Assignments),
		RiskAnalysis: m.RiskAnalysis,
	}
	for i := range out.People {
		out.People[i].TeamIDs = cloneSlice(out.People[i].TeamIDs)
	}
	return out
}

func cloneSlice[T any](s []T) []T {
	if s == nil {
		return nil
	}
	return append(make([]T, 0, len(s)), s...)
}

// Counts summarizes collection sizes.
type Counts struct {
	Teams    int `json:"teams"`
	People   int `json:"people"`
	Projects int `json:"projects"`
	Tasks    int `json:"tasks"`
}

func (m Model) Counts() Counts {
	return Counts{
		Teams:    len(m.Teams),
		People:   len(m.People),
		Projects: len(m.Projects),
		Tasks:    len(m.Tasks),
	}
}
