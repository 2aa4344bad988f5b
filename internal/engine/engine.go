package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"resourcemap/internal/config"
	"resourcemap/internal/domain"
	"resourcemap/internal/editor"
	"resourcemap/internal/events"
	"resourcemap/internal/ingest"
	"resourcemap/internal/oracle"
	"resourcemap/internal/projection"
	"resourcemap/internal/repo"
)

// ErrBusy is returned when an analysis is requested while another one is
// still waiting on the oracle. Requests are not queued.
var ErrBusy = errors.New("an analysis is already in progress")

// InputError reports input rejected before the oracle is called.
type InputError struct {
	Message string
	Err     error
}

func (e *InputError) Error() string { return e.Message }
func (e *InputError) Unwrap() error { return e.Err }

func inputErrorf(err error, format string, args ...any) *InputError {
	return &InputError{Message: fmt.Sprintf(format, args...), Err: err}
}

type Engine struct {
	DB     *sql.DB
	Repo   repo.Repo
	Events events.Writer
	Config *config.Config
	Oracle oracle.Oracle
	Logger *slog.Logger
	Now    func() time.Time

	busy *atomic.Bool
}

func New(db *sql.DB, cfg *config.Config, o oracle.Oracle) Engine {
	if cfg == nil {
		cfg = config.Default()
	}
	return Engine{
		DB:     db,
		Repo:   repo.Repo{DB: db},
		Events: events.Writer{},
		Config: cfg,
		Oracle: o,
		Logger: slog.Default(),
		Now:    time.Now,
		busy:   new(atomic.Bool),
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// timestampLayout has a fixed width so stored timestamps sort as strings.
const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

func (e Engine) timestamp() string {
	return e.now().UTC().Format(timestampLayout)
}

func (e Engine) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}

// Busy reports whether an analysis is in flight.
func (e Engine) Busy() bool {
	return e.busy != nil && e.busy.Load()
}

type AnalyzeRequest struct {
	Text    string
	Title   string
	Source  domain.Source
	ActorID string
}

// Analyze structures req.Text through the oracle and stores the result as a
// new report. Empty input is rejected before the oracle is reached, and a
// failed oracle call leaves the store untouched.
func (e Engine) Analyze(ctx context.Context, req AnalyzeRequest) (domain.Report, error) {
	if strings.TrimSpace(req.Text) == "" {
		return domain.Report{}, inputErrorf(nil, "please enter some data to analyze")
	}
	if e.Oracle == nil {
		return domain.Report{}, errors.New("oracle not configured")
	}
	if e.busy == nil {
		return domain.Report{}, errors.New("engine not initialised; use engine.New")
	}
	if !e.busy.CompareAndSwap(false, true) {
		return domain.Report{}, ErrBusy
	}
	defer e.busy.Store(false)

	if req.Source == "" {
		req.Source = domain.SourceText
	}
	start := e.now()
	model, err := e.Oracle.Structure(ctx, req.Text)
	if err != nil {
		e.logger().Error("analysis failed", "err", err, "source", req.Source)
		return domain.Report{}, err
	}
	model.Normalize()

	ts := e.timestamp()
	rep := domain.Report{
		ID:        uuid.NewString(),
		Title:     reportTitle(req.Title, req.Text),
		Source:    req.Source,
		CreatedAt: ts,
		UpdatedAt: ts,
		Model:     model,
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Report{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertReport(ctx, tx, rep); err != nil {
		return domain.Report{}, fmt.Errorf("insert report: %w", err)
	}
	counts := model.Counts()
	if err := e.Events.Append(ctx, tx, domain.EventReportAnalyzed, rep.ID, actorOr(req.ActorID), events.Payload{
		"title":    rep.Title,
		"source":   rep.Source,
		"teams":    counts.Teams,
		"people":   counts.People,
		"projects": counts.Projects,
		"tasks":    counts.Tasks,
	}); err != nil {
		return domain.Report{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Report{}, err
	}
	e.logger().Info("analysis stored", "report", rep.ID, "tasks", counts.Tasks, "elapsed", e.now().Sub(start))
	return rep, nil
}

// AnalyzeSpreadsheet flattens a spreadsheet and analyzes the text.
func (e Engine) AnalyzeSpreadsheet(ctx context.Context, filename string, r io.Reader, title, actorID string) (domain.Report, error) {
	if !ingest.Supported(filename) {
		return domain.Report{}, inputErrorf(ingest.ErrUnsupported, "unsupported file %q; use .xlsx or .csv", filepath.Base(filename))
	}
	text, err := ingest.Flatten(filename, r)
	if err != nil {
		return domain.Report{}, inputErrorf(err, "%v", err)
	}
	if strings.TrimSpace(text) == "" {
		return domain.Report{}, inputErrorf(nil, "the spreadsheet %q contains no data", filepath.Base(filename))
	}
	if title == "" {
		title = filepath.Base(filename)
	}
	return e.Analyze(ctx, AnalyzeRequest{Text: text, Title: title, Source: domain.SourceSpreadsheet, ActorID: actorID})
}

func (e Engine) Report(ctx context.Context, id string) (domain.Report, error) {
	return e.Repo.GetReport(ctx, id)
}

func (e Engine) ListReports(ctx context.Context, limit int) ([]domain.ReportInfo, error) {
	return e.Repo.ListReports(ctx, limit)
}

// ReportViews bundles a report's metadata with every projection of its model.
type ReportViews struct {
	Report domain.ReportInfo `json:"report"`
	projection.Views
}

func (e Engine) Views(ctx context.Context, reportID string) (ReportViews, error) {
	rep, err := e.Repo.GetReport(ctx, reportID)
	if err != nil {
		return ReportViews{}, err
	}
	return ReportViews{Report: rep.Info(), Views: projection.Build(rep.Model)}, nil
}

// Tasks lists the report's task table filtered by q.
func (e Engine) Tasks(ctx context.Context, reportID string, q editor.Query) ([]editor.TaskRow, error) {
	rep, err := e.Repo.GetReport(ctx, reportID)
	if err != nil {
		return nil, err
	}
	return editor.Rows(rep.Model, q), nil
}

// Commit replaces a report's model wholesale. There is no merge and no
// conflict detection; the last commit wins. ETA and status values are
// checked strictly unless a task carries them over unchanged.
func (e Engine) Commit(ctx context.Context, reportID string, m domain.Model, actorID string) (domain.Report, error) {
	m = m.Clone()
	m.Normalize()
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Report{}, err
	}
	defer tx.Rollback()
	prev, err := e.Repo.GetReportTx(ctx, tx, reportID)
	if err != nil {
		return domain.Report{}, err
	}
	if err := m.ValidateEdit(prev.Model); err != nil {
		return domain.Report{}, inputErrorf(err, "%v", err)
	}
	ts := e.timestamp()
	if err := e.Repo.ReplaceModel(ctx, tx, reportID, m, ts); err != nil {
		return domain.Report{}, err
	}
	counts := m.Counts()
	if err := e.Events.Append(ctx, tx, domain.EventReportCommitted, reportID, actorOr(actorID), events.Payload{
		"tasks":       counts.Tasks,
		"assignments": len(m.Assignments),
	}); err != nil {
		return domain.Report{}, err
	}
	rep, err := e.Repo.GetReportTx(ctx, tx, reportID)
	if err != nil {
		return domain.Report{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Report{}, err
	}
	return rep, nil
}

// CommitDraft stores d and marks it clean. A clean draft is a no-op.
func (e Engine) CommitDraft(ctx context.Context, reportID string, d *editor.Draft, actorID string) (domain.Report, error) {
	if !d.Dirty() {
		return e.Repo.GetReport(ctx, reportID)
	}
	rep, err := e.Commit(ctx, reportID, d.Model(), actorID)
	if err != nil {
		return domain.Report{}, err
	}
	d.Commit()
	return rep, nil
}

func (e Engine) DeleteReport(ctx context.Context, reportID, actorID string) error {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := e.Repo.DeleteReport(ctx, tx, reportID); err != nil {
		return err
	}
	if err := e.Events.Append(ctx, tx, domain.EventReportDeleted, reportID, actorOr(actorID), nil); err != nil {
		return err
	}
	return tx.Commit()
}

// RecordExport appends a report.exported event.
func (e Engine) RecordExport(ctx context.Context, reportID, format, filename, actorID string) error {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := e.Events.Append(ctx, tx, domain.EventReportExported, reportID, actorOr(actorID), events.Payload{
		"format":   format,
		"filename": filename,
	}); err != nil {
		return err
	}
	return tx.Commit()
}

func actorOr(id string) string {
	if strings.TrimSpace(id) == "" {
		return "local-user"
	}
	return id
}

const maxTitleRunes = 60

// reportTitle prefers the explicit title, then the first non-empty input
// line, shortened to maxTitleRunes.
func reportTitle(title, text string) string {
	if t := strings.TrimSpace(title); t != "" {
		return t
	}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if utf8.RuneCountInString(line) > maxTitleRunes {
			r := []rune(line)
			return strings.TrimSpace(string(r[:maxTitleRunes])) + "..."
		}
		return line
	}
	return "Untitled report"
}
