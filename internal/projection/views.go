package projection

import (
	"resourcemap/internal/domain"
	"resourcemap/internal/index"
)

// Views holds every projection of one model snapshot.
type Views struct {
	Projects     []ProjectWithTasks  `json:"projects"`
	Buckets      Buckets             `json:"buckets"`
	Organization []ManagerWithTeams  `json:"organization"`
	People       []PersonAssignments `json:"people"`
	Summary      Summary             `json:"summary"`
	RiskAnalysis string              `json:"riskAnalysis"`
}

// Build indexes m once and derives every view from it.
func Build(m domain.Model) Views {
	ix := index.New(m)
	projects := ProjectTree(m, ix)
	return Views{
		Projects:     projects,
		Buckets:      Bucket(projects),
		Organization: OrganizationTree(m, ix),
		People:       PersonAssignmentTree(m, ix),
		Summary:      Summarize(m, projects),
		RiskAnalysis: m.RiskAnalysis,
	}
}
