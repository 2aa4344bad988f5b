// Package resourcemapsdk is a small client for the resource map HTTP API.
package resourcemapsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"resourcemap/internal/domain"
	"resourcemap/internal/projection"
)

// Client is a minimal resource map HTTP API client.
type Client struct {
	BaseURL     string
	BasePath    string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults. Analysis waits on a language
// model, so the default timeout is generous.
func New(baseURL, token string) *Client {
	return &Client{
		BaseURL:     baseURL,
		BasePath:    "/v0",
		BearerToken: token,
		Timeout:     3 * time.Minute,
	}
}

type (
	Model      = domain.Model
	Report     = domain.Report
	ReportInfo = domain.ReportInfo
	Node       = projection.Node
)

// Views is every projection of one report, as served by the "all" view.
type Views struct {
	Report ReportInfo `json:"report"`
	projection.Views
}

// Event represents a log entry.
type Event struct {
	ID       int64          `json:"id"`
	TS       string         `json:"ts"`
	Type     string         `json:"type"`
	ReportID string         `json:"report_id"`
	ActorID  string         `json:"actor_id"`
	Payload  map[string]any `json:"payload"`
}

// PaginatedEvents wraps list responses with cursors.
type PaginatedEvents struct {
	Items      []Event `json:"items"`
	NextCursor string  `json:"next_cursor"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Body       string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error: status=%d code=%s message=%s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// Analyze structures text into a new report.
func (c *Client) Analyze(ctx context.Context, text, title string) (Report, error) {
	var resp Report
	err := c.do(ctx, http.MethodPost, "analyze", map[string]any{"text": text, "title": title}, &resp)
	return resp, err
}

// AnalyzeSpreadsheet uploads a .xlsx, .xlsm or .csv file for analysis.
func (c *Client) AnalyzeSpreadsheet(ctx context.Context, filename string, content []byte, title string) (Report, error) {
	body := map[string]any{"filename": filename, "content": content, "title": title}
	var resp Report
	err := c.do(ctx, http.MethodPost, "analyze/spreadsheet", body, &resp)
	return resp, err
}

func (c *Client) ListReports(ctx context.Context, limit int) ([]ReportInfo, error) {
	endpoint := "reports"
	if limit > 0 {
		endpoint = fmt.Sprintf("%s?limit=%d", endpoint, limit)
	}
	var resp struct {
		Items []ReportInfo `json:"items"`
	}
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp.Items, err
}

func (c *Client) Report(ctx context.Context, id string) (Report, error) {
	var resp Report
	err := c.do(ctx, http.MethodGet, "reports/"+url.PathEscape(id), nil, &resp)
	return resp, err
}

func (c *Client) DeleteReport(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "reports/"+url.PathEscape(id), nil, nil)
}

// Views fetches every projection of a report in one call.
func (c *Client) Views(ctx context.Context, id string) (Views, error) {
	var resp Views
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("reports/%s/views/all", url.PathEscape(id)), nil, &resp)
	return resp, err
}

// ViewNodes fetches the node tree of the project, organization or people view.
func (c *Client) ViewNodes(ctx context.Context, id, view string) ([]Node, error) {
	var resp []Node
	endpoint := fmt.Sprintf("reports/%s/views/%s?format=nodes", url.PathEscape(id), url.PathEscape(view))
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// CommitModel replaces the report's model wholesale.
func (c *Client) CommitModel(ctx context.Context, id string, m Model) (Report, error) {
	var resp Report
	err := c.do(ctx, http.MethodPut, fmt.Sprintf("reports/%s/model", url.PathEscape(id)), m, &resp)
	return resp, err
}

// Export downloads a rendered view. format is pdf, png or html.
func (c *Client) Export(ctx context.Context, id, format, view string) ([]byte, error) {
	endpoint := fmt.Sprintf("reports/%s/export/%s", url.PathEscape(id), url.PathEscape(format))
	if view != "" {
		endpoint += "?view=" + url.QueryEscape(view)
	}
	var buf bytes.Buffer
	err := c.do(ctx, http.MethodGet, endpoint, nil, &buf)
	return buf.Bytes(), err
}

// Events returns recent events.
func (c *Client) Events(ctx context.Context, limit int) ([]Event, error) {
	page, err := c.EventsPage(ctx, limit, "")
	return page.Items, err
}

// EventsPage returns a paginated event listing.
func (c *Client) EventsPage(ctx context.Context, limit int, cursor string) (PaginatedEvents, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", fmt.Sprintf("%d", limit))
	}
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	endpoint := "events"
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}
	var resp PaginatedEvents
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(b)}
		var env struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if json.Unmarshal(b, &env) == nil {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
		}
		return apiErr
	}
	switch dst := out.(type) {
	case nil:
		return nil
	case *bytes.Buffer:
		_, err := io.Copy(dst, resp.Body)
		return err
	default:
		return json.NewDecoder(resp.Body).Decode(out)
	}
}

func (c *Client) base() string {
	basePath := strings.Trim(c.BasePath, "/")
	if basePath == "" {
		return strings.TrimRight(c.BaseURL, "/")
	}
	return strings.TrimRight(c.BaseURL, "/") + "/" + basePath
}
