package domain

// Source records where a report's input text came from.
type Source string

const (
	SourceText        Source = "text"
	SourceSpreadsheet Source = "spreadsheet"
)

// Report is one persisted analysis run.
type Report struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Source    Source `json:"source" enum:"text,spreadsheet"`
	CreatedAt string `json:"created_at" format:"date-time"`
	UpdatedAt string `json:"updated_at" format:"date-time"`
	Model     Model  `json:"model"`
}

// ReportInfo is a Report without its model, for listings.
type ReportInfo struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Source    Source `json:"source" enum:"text,spreadsheet"`
	CreatedAt string `json:"created_at" format:"date-time"`
	UpdatedAt string `json:"updated_at" format:"date-time"`
	Counts    Counts `json:"counts"`
}

func (r Report) Info() ReportInfo {
	return ReportInfo{ID: r.ID, Title: r.Title, Source: r.Source, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt, Counts: r.Model.Counts()}
}

type Event struct {
	ID       int64  `json:"id"`
	TS       string `json:"ts" format:"date-time"`
	Type     string `json:"type"`
	ReportID string `json:"report_id,omitempty"`
	ActorID  string `json:"actor_id"`
	Payload  string `json:"payload_json"`
}

const (
	EventReportAnalyzed  = "report.analyzed"
	EventReportCommitted = "report.committed"
	EventReportDeleted   = "report.deleted"
	EventReportExported  = "report.exported"
)

// APIKey authenticates automation against the HTTP API. Only the hash of
// the secret is stored.
type APIKey struct {
	ID        string `json:"id"`
	ActorID   string `json:"actor_id"`
	Name      string `json:"name,omitempty"`
	KeyHash   string `json:"-"`
	CreatedAt string `json:"created_at" format:"date-time"`
}
