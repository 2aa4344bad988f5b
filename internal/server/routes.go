package server

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"resourcemap/internal/domain"
	"resourcemap/internal/editor"
	"resourcemap/internal/engine"
	"resourcemap/internal/export"
	"resourcemap/internal/projection"
)

var errorStatuses = []int{
	http.StatusBadRequest,
	http.StatusUnauthorized,
	http.StatusNotFound,
	http.StatusConflict,
	http.StatusInternalServerError,
}

type reportPath struct {
	ReportID string `path:"report_id"`
}

type reportOutput struct {
	Body domain.Report `json:"body"`
}

func registerAnalyze(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "analyze",
		Method:        http.MethodPost,
		Path:          "/analyze",
		Summary:       "Structure free text into a new report",
		DefaultStatus: http.StatusCreated,
		Errors:        append(errorStatuses, http.StatusBadGateway, http.StatusServiceUnavailable),
	}, func(ctx context.Context, input *struct {
		Body AnalyzeRequest `json:"body"`
	}) (*reportOutput, error) {
		actor, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		rep, err := e.Analyze(ctx, engine.AnalyzeRequest{
			Text:    input.Body.Text,
			Title:   input.Body.Title,
			Source:  domain.SourceText,
			ActorID: actor,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &reportOutput{Body: rep}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "analyze-spreadsheet",
		Method:        http.MethodPost,
		Path:          "/analyze/spreadsheet",
		Summary:       "Flatten a spreadsheet and structure it into a new report",
		DefaultStatus: http.StatusCreated,
		Errors:        append(errorStatuses, http.StatusBadGateway, http.StatusServiceUnavailable),
	}, func(ctx context.Context, input *struct {
		Body AnalyzeSpreadsheetRequest `json:"body"`
	}) (*reportOutput, error) {
		actor, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		rep, err := e.AnalyzeSpreadsheet(ctx, input.Body.Filename, bytes.NewReader(input.Body.Content), input.Body.Title, actor)
		if err != nil {
			return nil, handleError(err)
		}
		return &reportOutput{Body: rep}, nil
	})
}

func registerReports(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-reports",
		Method:      http.MethodGet,
		Path:        "/reports",
		Summary:     "List reports, newest first",
		Errors:      errorStatuses,
	}, func(ctx context.Context, input *struct {
		Limit int `query:"limit" default:"50"`
	}) (*struct {
		Body paginatedReports `json:"body"`
	}, error) {
		items, err := e.ListReports(ctx, normalizeLimit(input.Limit))
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body paginatedReports `json:"body"`
		}{Body: paginatedReports{Items: items}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-report",
		Method:      http.MethodGet,
		Path:        "/reports/{report_id}",
		Summary:     "Get a report with its model",
		Errors:      errorStatuses,
	}, func(ctx context.Context, input *reportPath) (*reportOutput, error) {
		rep, err := e.Report(ctx, input.ReportID)
		if err != nil {
			return nil, handleError(err)
		}
		return &reportOutput{Body: rep}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-report",
		Method:        http.MethodDelete,
		Path:          "/reports/{report_id}",
		Summary:       "Delete a report",
		DefaultStatus: http.StatusNoContent,
		Errors:        errorStatuses,
	}, func(ctx context.Context, input *reportPath) (*struct{}, error) {
		actor, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.DeleteReport(ctx, input.ReportID, actor); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "commit-model",
		Method:      http.MethodPut,
		Path:        "/reports/{report_id}/model",
		Summary:     "Replace a report's model wholesale",
		Errors:      errorStatuses,
	}, func(ctx context.Context, input *struct {
		ReportID string       `path:"report_id"`
		Body     domain.Model `json:"body"`
	}) (*reportOutput, error) {
		actor, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		rep, err := e.Commit(ctx, input.ReportID, input.Body, actor)
		if err != nil {
			return nil, handleError(err)
		}
		return &reportOutput{Body: rep}, nil
	})
}

func registerViews(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "get-view",
		Method:      http.MethodGet,
		Path:        "/reports/{report_id}/views/{view}",
		Summary:     "Get one projection of a report",
		Description: "Nodes are returned for the tree views when format=nodes.",
		Errors:      errorStatuses,
	}, func(ctx context.Context, input *struct {
		ReportID string `path:"report_id"`
		View     string `path:"view" enum:"project,organization,people,buckets,summary,all"`
		Format   string `query:"format" enum:"tree,nodes" default:"tree"`
	}) (*struct {
		Body any `json:"body"`
	}, error) {
		rv, err := e.Views(ctx, input.ReportID)
		if err != nil {
			return nil, handleError(err)
		}
		body, err := selectView(rv, input.View, input.Format == "nodes")
		if err != nil {
			return nil, err
		}
		return &struct {
			Body any `json:"body"`
		}{Body: body}, nil
	})
}

func selectView(rv engine.ReportViews, view string, nodes bool) (any, error) {
	switch view {
	case "project":
		if nodes {
			return projection.ProjectNodes(rv.Projects), nil
		}
		return rv.Projects, nil
	case "organization":
		if nodes {
			return projection.OrganizationNodes(rv.Organization), nil
		}
		return rv.Organization, nil
	case "people":
		if nodes {
			return projection.PersonNodes(rv.People), nil
		}
		return rv.People, nil
	case "buckets":
		return rv.Buckets, nil
	case "summary":
		return rv.Summary, nil
	case "all":
		return rv, nil
	}
	return nil, newAPIError(http.StatusBadRequest, "bad_request", fmt.Sprintf("unknown view %q", view), nil)
}

func registerTasks(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-tasks",
		Method:      http.MethodGet,
		Path:        "/reports/{report_id}/tasks",
		Summary:     "List a report's tasks with project and assignee",
		Errors:      errorStatuses,
	}, func(ctx context.Context, input *struct {
		ReportID  string `path:"report_id"`
		ProjectID string `query:"project_id"`
		PersonID  string `query:"person_id"`
		Search    string `query:"q"`
		Sort      string `query:"sort_eta" enum:"asc,desc,none"`
	}) (*struct {
		Body paginatedTasks `json:"body"`
	}, error) {
		order, err := editor.ParseSortOrder(input.Sort)
		if err != nil {
			return nil, handleError(err)
		}
		rows, err := e.Tasks(ctx, input.ReportID, editor.Query{
			ProjectID: input.ProjectID,
			PersonID:  input.PersonID,
			Search:    input.Search,
			SortETA:   order,
		})
		if err != nil {
			return nil, handleError(err)
		}
		resp := paginatedTasks{Items: make([]TaskRowResponse, 0, len(rows))}
		for _, r := range rows {
			item := TaskRowResponse{Task: r.Task}
			if r.Project != nil {
				item.ProjectName = r.Project.Name
			}
			if r.Person != nil {
				item.PersonID = r.Person.ID
				item.PersonName = r.Person.Name
			}
			resp.Items = append(resp.Items, item)
		}
		return &struct {
			Body paginatedTasks `json:"body"`
		}{Body: resp}, nil
	})
}

type exportOutput struct {
	ContentType        string `header:"Content-Type"`
	ContentDisposition string `header:"Content-Disposition"`
	Body               []byte
}

func registerExport(api huma.API, e engine.Engine, x *export.Exporter) {
	huma.Register(api, huma.Operation{
		OperationID: "export-report",
		Method:      http.MethodGet,
		Path:        "/reports/{report_id}/export/{format}",
		Summary:     "Render a report view as PDF, PNG or HTML",
		Errors:      append(errorStatuses, http.StatusServiceUnavailable),
	}, func(ctx context.Context, input *struct {
		ReportID string `path:"report_id"`
		Format   string `path:"format" enum:"pdf,png,html"`
		View     string `query:"view" enum:"project,organization,people" default:"project"`
		Risks    bool   `query:"risks" default:"true"`
	}) (*exportOutput, error) {
		actor, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		format, err := export.ParseFormat(input.Format)
		if err != nil {
			return nil, handleError(err)
		}
		view, err := export.ParseView(input.View)
		if err != nil {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", err.Error(), nil)
		}
		rv, err := e.Views(ctx, input.ReportID)
		if err != nil {
			return nil, handleError(err)
		}
		res, err := x.Export(ctx, format, export.Request{
			Title:        rv.Report.Title,
			View:         view,
			Views:        rv.Views,
			GeneratedAt:  time.Now(),
			IncludeRisks: input.Risks,
		})
		if err != nil {
			return nil, handleError(err)
		}
		if err := e.RecordExport(ctx, input.ReportID, string(format), res.Filename, actor); err != nil {
			return nil, handleError(err)
		}
		return &exportOutput{
			ContentType:        res.MimeType,
			ContentDisposition: fmt.Sprintf("attachment; filename=%q", res.Filename),
			Body:               res.Data,
		}, nil
	})
}

func registerEvents(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-events",
		Method:      http.MethodGet,
		Path:        "/events",
		Summary:     "List recent events",
		Errors:      []int{http.StatusBadRequest, http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		ReportID string `query:"report_id"`
		Type     string `query:"type" enum:"report.analyzed,report.committed,report.deleted,report.exported"`
		Limit    int    `query:"limit" default:"50"`
		Cursor   string `query:"cursor"`
	}) (*struct {
		Body paginatedEvents `json:"body"`
	}, error) {
		limit := normalizeLimit(input.Limit)
		var cursorID int64
		if input.Cursor != "" {
			parsed, err := strconv.ParseInt(input.Cursor, 10, 64)
			if err != nil {
				return nil, newAPIError(http.StatusBadRequest, "bad_request", "invalid cursor", map[string]any{"cursor": input.Cursor})
			}
			cursorID = parsed
		}
		items, err := e.Repo.LatestEvents(ctx, limit+1, cursorID, input.ReportID, input.Type)
		if err != nil {
			return nil, handleError(err)
		}
		resp := paginatedEvents{Items: []EventResponse{}}
		if len(items) > limit {
			items = items[:limit]
			resp.NextCursor = fmt.Sprintf("%d", items[limit-1].ID)
		}
		for _, evt := range items {
			resp.Items = append(resp.Items, eventResponse(evt))
		}
		return &struct {
			Body paginatedEvents `json:"body"`
		}{Body: resp}, nil
	})
}
