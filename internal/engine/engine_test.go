package engine_test

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"resourcemap/internal/config"
	"resourcemap/internal/db"
	"resourcemap/internal/domain"
	"resourcemap/internal/editor"
	"resourcemap/internal/engine"
	"resourcemap/internal/migrate"
	"resourcemap/internal/oracle"
	"resourcemap/internal/repo"
)

type fakeOracle struct {
	model   domain.Model
	err     error
	calls   int32
	gotText string
	block   chan struct{}
	started chan struct{}
}

func (f *fakeOracle) Structure(ctx context.Context, text string) (domain.Model, error) {
	atomic.AddInt32(&f.calls, 1)
	f.gotText = text
	if f.started != nil {
		close(f.started)
	}
	if f.block != nil {
		<-f.block
	}
	if f.err != nil {
		return domain.Model{}, f.err
	}
	return f.model.Clone(), nil
}

func sampleModel() domain.Model {
	return domain.Model{
		Teams: []domain.Team{{ID: "t1", Name: "Eng", LeaderID: "p1"}},
		People: []domain.Person{
			{ID: "p1", Name: "Alice", TeamIDs: []string{"t1"}},
			{ID: "p2", Name: "Bob", TeamIDs: []string{"t1"}},
		},
		Projects: []domain.Project{{ID: "pr1", Name: "Website"}},
		Tasks: []domain.Task{
			{ID: "tk1", Name: "Design", ProjectID: "pr1", Status: domain.StatusInProgress, ETA: "2024-01-01"},
		},
		Assignments:  []domain.Assignment{{PersonID: "p2", TaskID: "tk1"}},
		RiskAnalysis: "Bob carries everything.",
	}
}

type testEnv struct {
	Engine engine.Engine
	Oracle *fakeOracle
	Ctx    context.Context
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: dir})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	ctx := context.Background()
	if err := migrate.Migrate(ctx, conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	fake := &fakeOracle{model: sampleModel()}
	eng := engine.New(conn, config.Default(), fake)
	eng.Now = func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }
	return testEnv{Engine: eng, Oracle: fake, Ctx: ctx}
}

func TestAnalyzeRejectsEmptyInput(t *testing.T) {
	env := newTestEnv(t)
	for _, text := range []string{"", "   \n\t "} {
		_, err := env.Engine.Analyze(env.Ctx, engine.AnalyzeRequest{Text: text})
		var inErr *engine.InputError
		if !errors.As(err, &inErr) {
			t.Fatalf("expected input error for %q, got %v", text, err)
		}
	}
	if n := atomic.LoadInt32(&env.Oracle.calls); n != 0 {
		t.Fatalf("oracle called %d times for empty input", n)
	}
}

func TestAnalyzeStoresReportAndEvent(t *testing.T) {
	env := newTestEnv(t)
	rep, err := env.Engine.Analyze(env.Ctx, engine.AnalyzeRequest{Text: "Alice leads Eng.\nBob designs the website.", ActorID: "tester"})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if rep.Title != "Alice leads Eng." || rep.Source != domain.SourceText {
		t.Fatalf("unexpected report: %+v", rep)
	}
	stored, err := env.Engine.Repo.LatestReport(env.Ctx)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if stored.ID != rep.ID || len(stored.Model.Tasks) != 1 || stored.Model.RiskAnalysis != "Bob carries everything." {
		t.Fatalf("stored report mismatch: %+v", stored)
	}
	evts, err := env.Engine.Repo.LatestEvents(env.Ctx, 10, 0, rep.ID, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(evts) != 1 || evts[0].Type != domain.EventReportAnalyzed || evts[0].ActorID != "tester" {
		t.Fatalf("unexpected events: %+v", evts)
	}
}

func TestAnalyzeOracleFailureLeavesStoreUntouched(t *testing.T) {
	env := newTestEnv(t)
	env.Oracle.err = &oracle.Error{Kind: oracle.KindStatus, Message: "Gemini request failed with status 500"}
	_, err := env.Engine.Analyze(env.Ctx, engine.AnalyzeRequest{Text: "data"})
	var oerr *oracle.Error
	if !errors.As(err, &oerr) {
		t.Fatalf("expected oracle error, got %v", err)
	}
	if _, err := env.Engine.Repo.LatestReport(env.Ctx); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected no report, got %v", err)
	}
	if env.Engine.Busy() {
		t.Fatalf("busy flag not reset after failure")
	}
}

func TestAnalyzeSingleFlight(t *testing.T) {
	env := newTestEnv(t)
	env.Oracle.block = make(chan struct{})
	env.Oracle.started = make(chan struct{})
	done := make(chan error, 1)
	go func() {
		_, err := env.Engine.Analyze(env.Ctx, engine.AnalyzeRequest{Text: "first"})
		done <- err
	}()
	<-env.Oracle.started
	if !env.Engine.Busy() {
		t.Fatalf("expected busy while oracle runs")
	}
	if _, err := env.Engine.Analyze(env.Ctx, engine.AnalyzeRequest{Text: "second"}); !errors.Is(err, engine.ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
	close(env.Oracle.block)
	if err := <-done; err != nil {
		t.Fatalf("first analysis: %v", err)
	}
	if n := atomic.LoadInt32(&env.Oracle.calls); n != 1 {
		t.Fatalf("expected one oracle call, got %d", n)
	}
}

func TestAnalyzeSpreadsheet(t *testing.T) {
	env := newTestEnv(t)
	rep, err := env.Engine.AnalyzeSpreadsheet(env.Ctx, "team.csv", strings.NewReader("name,team\nAlice,Eng\n"), "", "tester")
	if err != nil {
		t.Fatalf("analyze spreadsheet: %v", err)
	}
	if rep.Title != "team.csv" || rep.Source != domain.SourceSpreadsheet {
		t.Fatalf("unexpected report: %+v", rep)
	}
	if env.Oracle.gotText != "Sheet: Sheet1\nname, team\nAlice, Eng" {
		t.Fatalf("unexpected oracle input %q", env.Oracle.gotText)
	}

	_, err = env.Engine.AnalyzeSpreadsheet(env.Ctx, "notes.pdf", strings.NewReader("x"), "", "tester")
	var inErr *engine.InputError
	if !errors.As(err, &inErr) {
		t.Fatalf("expected input error for pdf, got %v", err)
	}
	_, err = env.Engine.AnalyzeSpreadsheet(env.Ctx, "empty.csv", strings.NewReader("\n,\n"), "", "tester")
	if !errors.As(err, &inErr) {
		t.Fatalf("expected input error for empty csv, got %v", err)
	}
}

func TestViewsAndCommit(t *testing.T) {
	env := newTestEnv(t)
	rep, err := env.Engine.Analyze(env.Ctx, engine.AnalyzeRequest{Text: "data", Title: "Q1"})
	if err != nil {
		t.Fatal(err)
	}
	views, err := env.Engine.Views(env.Ctx, rep.ID)
	if err != nil {
		t.Fatalf("views: %v", err)
	}
	if len(views.Projects) != 1 || len(views.Projects[0].Tasks[0].People) != 1 || views.Report.Title != "Q1" {
		t.Fatalf("unexpected views: %+v", views)
	}

	d := editor.New(rep.Model)
	if _, err := d.AddTask(editor.NewTask{Name: "Launch", ProjectID: "pr1", ETA: "2024-02-01", PersonID: "p1"}); err != nil {
		t.Fatal(err)
	}
	committed, err := env.Engine.CommitDraft(env.Ctx, rep.ID, d, "tester")
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if d.Dirty() || len(committed.Model.Tasks) != 2 {
		t.Fatalf("commit did not persist: %+v", committed.Model.Tasks)
	}
	rows, err := env.Engine.Tasks(env.Ctx, rep.ID, editor.Query{PersonID: "p1"})
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].Name != "Launch" {
		t.Fatalf("unexpected rows: %+v", rows)
	}
	evts, err := env.Engine.Repo.LatestEvents(env.Ctx, 10, 0, rep.ID, domain.EventReportCommitted)
	if err != nil || len(evts) != 1 {
		t.Fatalf("expected one commit event: %v %+v", err, evts)
	}
}

func TestCommitRejectsInvalidModel(t *testing.T) {
	env := newTestEnv(t)
	rep, err := env.Engine.Analyze(env.Ctx, engine.AnalyzeRequest{Text: "data"})
	if err != nil {
		t.Fatal(err)
	}
	bad := rep.Model.Clone()
	bad.Tasks[0].ETA = "soon"
	_, err = env.Engine.Commit(env.Ctx, rep.ID, bad, "tester")
	var inErr *engine.InputError
	if !errors.As(err, &inErr) {
		t.Fatalf("expected input error, got %v", err)
	}
	if _, err := env.Engine.Commit(env.Ctx, "missing", rep.Model, "tester"); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCommitKeepsAnalysisETAsButChecksEdits(t *testing.T) {
	env := newTestEnv(t)
	env.Oracle.model.Tasks[0].ETA = "TBD"
	rep, err := env.Engine.Analyze(env.Ctx, engine.AnalyzeRequest{Text: "data"})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if rep.Model.Tasks[0].ETA != "TBD" {
		t.Fatalf("expected ETA stored as written, got %q", rep.Model.Tasks[0].ETA)
	}

	d := editor.New(rep.Model)
	if err := d.SetTaskProgress("tk1", 40); err != nil {
		t.Fatal(err)
	}
	if _, err := env.Engine.CommitDraft(env.Ctx, rep.ID, d, "tester"); err != nil {
		t.Fatalf("commit with carried-over ETA: %v", err)
	}

	changed := rep.Model.Clone()
	changed.Tasks[0].ETA = "next sprint"
	_, err = env.Engine.Commit(env.Ctx, rep.ID, changed, "tester")
	var inErr *engine.InputError
	if !errors.As(err, &inErr) {
		t.Fatalf("expected input error for edited ETA, got %v", err)
	}
}

func TestDeleteReport(t *testing.T) {
	env := newTestEnv(t)
	rep, err := env.Engine.Analyze(env.Ctx, engine.AnalyzeRequest{Text: "data"})
	if err != nil {
		t.Fatal(err)
	}
	if err := env.Engine.DeleteReport(env.Ctx, rep.ID, "tester"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := env.Engine.Report(env.Ctx, rep.ID); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
	if err := env.Engine.DeleteReport(env.Ctx, rep.ID, "tester"); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
	evts, err := env.Engine.Repo.EventsAfter(env.Ctx, 10, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(evts) != 2 || evts[1].Type != domain.EventReportDeleted {
		t.Fatalf("unexpected events: %+v", evts)
	}
}

func TestListReportsNewestFirst(t *testing.T) {
	env := newTestEnv(t)
	first, _ := env.Engine.Analyze(env.Ctx, engine.AnalyzeRequest{Text: "one"})
	second, _ := env.Engine.Analyze(env.Ctx, engine.AnalyzeRequest{Text: "two"})
	list, err := env.Engine.ListReports(env.Ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].ID != second.ID || list[1].ID != first.ID {
		t.Fatalf("unexpected order: %+v", list)
	}
	if list[0].Counts.Tasks != 1 {
		t.Fatalf("counts missing: %+v", list[0])
	}
}

func TestAPIKeyRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	secret, key, err := env.Engine.CreateAPIKey(env.Ctx, "ci-bot", "pipeline")
	if err != nil {
		t.Fatalf("create key: %v", err)
	}
	if !strings.HasPrefix(secret, "rmk_") || key.KeyHash == secret {
		t.Fatalf("unexpected key material %q / %q", secret, key.KeyHash)
	}
	got, err := env.Engine.AuthenticateAPIKey(env.Ctx, secret)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if got.ID != key.ID || got.ActorID != "ci-bot" || got.Name != "pipeline" {
		t.Fatalf("unexpected key %+v", got)
	}
	if _, err := env.Engine.AuthenticateAPIKey(env.Ctx, secret+"x"); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected not found for wrong secret, got %v", err)
	}
	if err := env.Engine.Repo.DeleteAPIKey(env.Ctx, key.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := env.Engine.AuthenticateAPIKey(env.Ctx, secret); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected revoked key to fail, got %v", err)
	}
	if _, _, err := env.Engine.CreateAPIKey(env.Ctx, " ", ""); err == nil {
		t.Fatalf("expected error for empty actor")
	}
}
