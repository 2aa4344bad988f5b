package server

import (
	"encoding/json"

	"resourcemap/internal/domain"
)

type HealthResponse struct {
	Status    string `json:"status" example:"ok"`
	Analyzing bool   `json:"analyzing"`
}

type AnalyzeRequest struct {
	Text  string `json:"text" minLength:"1" doc:"Free-form description of teams, people, projects and tasks"`
	Title string `json:"title,omitempty" doc:"Report title; derived from the text when empty"`
}

type AnalyzeSpreadsheetRequest struct {
	Filename string `json:"filename" minLength:"1" example:"roster.xlsx" doc:"Used to pick the reader (.xlsx, .xlsm or .csv)"`
	Content  []byte `json:"content" contentEncoding:"base64" doc:"Base64 encoded file content"`
	Title    string `json:"title,omitempty"`
}

type paginatedReports struct {
	Items []domain.ReportInfo `json:"items"`
}

type EventResponse struct {
	ID       int64           `json:"id"`
	TS       string          `json:"ts" format:"date-time"`
	Type     string          `json:"type" example:"report.analyzed"`
	ReportID string          `json:"report_id,omitempty"`
	ActorID  string          `json:"actor_id"`
	Payload  json.RawMessage `json:"payload,omitempty"`
}

type paginatedEvents struct {
	Items      []EventResponse `json:"items"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

type paginatedTasks struct {
	Items []TaskRowResponse `json:"items"`
}

// TaskRowResponse flattens editor.TaskRow for the wire.
type TaskRowResponse struct {
	domain.Task
	ProjectName string `json:"projectName,omitempty"`
	PersonID    string `json:"personId,omitempty"`
	PersonName  string `json:"personName,omitempty"`
}

func eventResponse(e domain.Event) EventResponse {
	resp := EventResponse{ID: e.ID, TS: e.TS, Type: e.Type, ReportID: e.ReportID, ActorID: e.ActorID}
	if e.Payload != "" && json.Valid([]byte(e.Payload)) {
		resp.Payload = json.RawMessage(e.Payload)
	}
	return resp
}
