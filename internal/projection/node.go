package projection

import (
	"fmt"

	"resourcemap/internal/domain"
)

// NodeKind tags what a Node stands for so renderers never have to guess
// from the node's fields.
type NodeKind string

const (
	KindProject NodeKind = "project"
	KindTask    NodeKind = "task"
	KindPerson  NodeKind = "person"
	KindTeam    NodeKind = "team"
	KindManager NodeKind = "manager"
)

// Node is the render-neutral shape shared by every projection.
type Node struct {
	Kind     NodeKind `json:"kind"`
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Detail   string   `json:"detail,omitempty"`
	Children []Node   `json:"children,omitempty"`
}

// Leaf reports whether n has no children.
func (n Node) Leaf() bool { return len(n.Children) == 0 }

func ProjectNodes(projects []ProjectWithTasks) []Node {
	out := make([]Node, 0, len(projects))
	for _, p := range projects {
		node := Node{Kind: KindProject, ID: p.ID, Name: p.Name, Detail: taskCount(len(p.Tasks))}
		for _, t := range p.Tasks {
			tn := taskNode(t.Task)
			for _, person := range t.People {
				tn.Children = append(tn.Children, personNode(person))
			}
			node.Children = append(node.Children, tn)
		}
		out = append(out, node)
	}
	return out
}

// OrganizationNodes flattens the organization tree. A team leader carries
// the other members as children; every other person carries projects.
func OrganizationNodes(managers []ManagerWithTeams) []Node {
	out := make([]Node, 0, len(managers))
	for _, m := range managers {
		node := Node{Kind: KindManager, ID: m.Manager.ID, Name: m.Manager.Name, Detail: roleOr(m.Manager.Person, "Department manager")}
		for _, t := range m.Teams {
			node.Children = append(node.Children, teamNode(t))
		}
		out = append(out, node)
	}
	return out
}

func PersonNodes(people []PersonAssignments) []Node {
	out := make([]Node, 0, len(people))
	for _, p := range people {
		node := personNode(p.Person)
		for _, g := range p.Projects {
			pn := Node{Kind: KindProject, ID: g.Project.ID, Name: g.Project.Name, Detail: taskCount(len(g.Tasks))}
			for _, t := range g.Tasks {
				pn.Children = append(pn.Children, taskNode(t))
			}
			node.Children = append(node.Children, pn)
		}
		out = append(out, node)
	}
	return out
}

func teamNode(t TeamWithMembers) Node {
	node := Node{Kind: KindTeam, ID: t.ID, Name: t.Name}
	members := make([]Node, 0, len(t.Members))
	for _, m := range t.Members {
		members = append(members, personWithProjectsNode(m))
	}
	if t.Leader == nil {
		node.Children = members
		return node
	}
	leader := personNode(t.Leader.Person)
	leader.Detail = roleOr(t.Leader.Person, "Team leader")
	if len(members) > 0 {
		leader.Children = members
	} else {
		leader.Children = projectLeaves(t.Leader.Projects)
	}
	node.Children = []Node{leader}
	return node
}

func personWithProjectsNode(p PersonWithProjects) Node {
	node := personNode(p.Person)
	node.Children = projectLeaves(p.Projects)
	return node
}

func projectLeaves(projects []domain.Project) []Node {
	var out []Node
	for _, p := range projects {
		out = append(out, Node{Kind: KindProject, ID: p.ID, Name: p.Name})
	}
	return out
}

func taskNode(t domain.Task) Node {
	return Node{
		Kind:   KindTask,
		ID:     t.ID,
		Name:   t.Name,
		Detail: fmt.Sprintf("%s, %d%%, ETA %s", t.Status, t.Progress, t.ETA),
	}
}

func personNode(p domain.Person) Node {
	return Node{Kind: KindPerson, ID: p.ID, Name: p.Name, Detail: p.Role}
}

func roleOr(p domain.Person, fallback string) string {
	if p.Role != "" {
		return p.Role
	}
	return fallback
}

func taskCount(n int) string {
	if n == 1 {
		return "1 task"
	}
	return fmt.Sprintf("%d tasks", n)
}
