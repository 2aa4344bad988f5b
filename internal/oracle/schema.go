package oracle

import (
	"encoding/json"
	"fmt"

	"resourcemap/internal/domain"
)

func str(desc string) map[string]any {
	return map[string]any{"type": "string", "description": desc}
}

func object(props map[string]any, required ...string) map[string]any {
	return map[string]any{"type": "object", "properties": props, "required": required}
}

func array(desc string, items map[string]any) map[string]any {
	return map[string]any{"type": "array", "description": desc, "items": items}
}

func statusEnum() []string {
	out := make([]string, 0, len(domain.TaskStatuses))
	for _, s := range domain.TaskStatuses {
		out = append(out, string(s))
	}
	return out
}

// responseSchema describes domain.Model as the JSON Schema sent in the
// structured-output response format.
func responseSchema() map[string]any {
	return object(map[string]any{
		"teams": array("List of all teams.", object(map[string]any{
			"id":       str("Unique ID for the team, e.g., 'team-engineering'"),
			"name":     str("Name of the team, e.g., 'Engineering'"),
			"leaderId": str("The ID of the person who is the leader of this team."),
		}, "id", "name")),
		"people": array("List of all people, including their roles, teams, and reporting structure.", object(map[string]any{
			"id":        str("Unique ID for the person, e.g., 'person-alice'"),
			"name":      str("Name of the person, e.g., 'Alice'"),
			"teamIds":   array("An array of team IDs this person belongs to. A person can be in multiple teams.", map[string]any{"type": "string"}),
			"role":      str("The person's role or title, e.g., 'Department Manager', 'Team Leader'."),
			"managerId": str("The ID of the person's manager. Omit if they are a top-level leader/department manager."),
		}, "id", "name", "teamIds")),
		"projects": array("List of all projects.", object(map[string]any{
			"id":               str("Unique ID for the project, e.g., 'proj-website'"),
			"name":             str("Name of the project, e.g., 'New Website'"),
			"projectManagerId": str("The ID of the person who is the manager of this project."),
		}, "id", "name")),
		"tasks": array("List of all tasks within projects.", object(map[string]any{
			"id":        str("Unique ID for the task, e.g., 'task-backend'"),
			"name":      str("Name of the task, e.g., 'Backend Development'"),
			"projectId": str("ID of the project this task belongs to."),
			"status": map[string]any{
				"type":        "string",
				"description": "The current status of the task.",
				"enum":        statusEnum(),
			},
			"progress": map[string]any{"type": "number", "description": "The completion progress of the task, from 0 to 100."},
			"eta":      str("The estimated completion date for the task, in 'YYYY-MM-DD' format."),
		}, "id", "name", "projectId", "status", "progress", "eta")),
		"assignments": array("Mapping of people to tasks.", object(map[string]any{
			"personId": str("ID of the person assigned."),
			"taskId":   str("ID of the task assigned."),
		}, "personId", "taskId")),
		"riskAnalysis": str("A brief analysis of resource allocation, highlighting potential risks like overallocation, underutilization, or skill gaps based on the provided data. Should be formatted in markdown."),
	}, requiredCollections...)
}

var requiredCollections = []string{"teams", "people", "projects", "tasks", "assignments", "riskAnalysis"}

const promptPreamble = `Analyze the following resource assignment data and structure it into a single JSON object. ` +
	`Ensure all IDs are unique and descriptive (e.g., 'team-alpha', 'person-john', 'proj-x', 'task-1'). ` +
	`A person can belong to multiple teams, so 'teamIds' must be an array. ` +
	`Identify team leaders and department managers, populating 'leaderId', 'role', and 'managerId' fields correctly. ` +
	`A department manager will not have a 'managerId'. ` +
	`For each project, identify a suitable project manager and assign their ID to 'projectManagerId'. ` +
	`For each task, infer a status (defaulting to 'In-progress'), a progress percentage (defaulting to 0), ` +
	`and an estimated completion date (ETA) in 'YYYY-MM-DD' format. ` +
	`Also, provide a resource risk analysis. The JSON object must conform to this schema: `

// Prompt builds the instruction sent to either provider.
func Prompt(text string) (string, error) {
	schema, err := json.Marshal(responseSchema())
	if err != nil {
		return "", fmt.Errorf("marshal response schema: %w", err)
	}
	return promptPreamble + string(schema) + "\n\nData:\n" + text, nil
}
