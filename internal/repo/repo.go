package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"resourcemap/internal/domain"
)

type Repo struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const reportColumns = `id,title,source,model_json,created_at,updated_at`

func scanReport(row *sql.Row) (domain.Report, error) {
	var r domain.Report
	var raw string
	err := row.Scan(&r.ID, &r.Title, &r.Source, &raw, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return r, ErrNotFound
	}
	if err != nil {
		return r, err
	}
	if err := json.Unmarshal([]byte(raw), &r.Model); err != nil {
		return r, fmt.Errorf("decode model of report %s: %w", r.ID, err)
	}
	return r, nil
}

func encodeModel(m domain.Model) (string, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("encode model: %w", err)
	}
	return string(data), nil
}

func (r Repo) InsertReport(ctx context.Context, tx *sql.Tx, rep domain.Report) error {
	raw, err := encodeModel(rep.Model)
	if err != nil {
		return err
	}
	_, err = r.q(tx).ExecContext(ctx, `INSERT INTO reports(id,title,source,model_json,created_at,updated_at) VALUES (?,?,?,?,?,?)`,
		rep.ID, rep.Title, rep.Source, raw, rep.CreatedAt, rep.UpdatedAt)
	return err
}

func (r Repo) GetReport(ctx context.Context, id string) (domain.Report, error) {
	return scanReport(r.DB.QueryRowContext(ctx, `SELECT `+reportColumns+` FROM reports WHERE id=?`, id))
}

func (r Repo) GetReportTx(ctx context.Context, tx *sql.Tx, id string) (domain.Report, error) {
	return scanReport(tx.QueryRowContext(ctx, `SELECT `+reportColumns+` FROM reports WHERE id=?`, id))
}

// LatestReport returns the most recently created report.
func (r Repo) LatestReport(ctx context.Context) (domain.Report, error) {
	return scanReport(r.DB.QueryRowContext(ctx, `SELECT `+reportColumns+` FROM reports ORDER BY created_at DESC, rowid DESC LIMIT 1`))
}

// ListReports returns reports newest first.
func (r Repo) ListReports(ctx context.Context, limit int) ([]domain.ReportInfo, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.DB.QueryContext(ctx, `SELECT `+reportColumns+` FROM reports ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []domain.ReportInfo{}
	for rows.Next() {
		var rep domain.Report
		var raw string
		if err := rows.Scan(&rep.ID, &rep.Title, &rep.Source, &raw, &rep.CreatedAt, &rep.UpdatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(raw), &rep.Model); err != nil {
			return nil, fmt.Errorf("decode model of report %s: %w", rep.ID, err)
		}
		res = append(res, rep.Info())
	}
	return res, rows.Err()
}

// ReplaceModel swaps the stored model wholesale. There is no field merge.
func (r Repo) ReplaceModel(ctx context.Context, tx *sql.Tx, id string, m domain.Model, updatedAt string) error {
	raw, err := encodeModel(m)
	if err != nil {
		return err
	}
	res, err := r.q(tx).ExecContext(ctx, `UPDATE reports SET model_json=?, updated_at=? WHERE id=?`, raw, updatedAt, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) DeleteReport(ctx context.Context, tx *sql.Tx, id string) error {
	res, err := r.q(tx).ExecContext(ctx, `DELETE FROM reports WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) q(tx *sql.Tx) querier {
	if tx != nil {
		return tx
	}
	return r.DB
}

// LatestEvents returns the newest events first. A zero cursor starts from
// the most recent event; otherwise only events older than cursor are read.
func (r Repo) LatestEvents(ctx context.Context, limit int, cursor int64, reportID, evtType string) ([]domain.Event, error) {
	if limit <= 0 {
		limit = 20
	}
	clauses := []string{"1=1"}
	var args []any
	if reportID != "" {
		clauses = append(clauses, "report_id=?")
		args = append(args, reportID)
	}
	if evtType != "" {
		clauses = append(clauses, "type=?")
		args = append(args, evtType)
	}
	if cursor > 0 {
		clauses = append(clauses, "id<?")
		args = append(args, cursor)
	}
	query := fmt.Sprintf(`SELECT id,ts,type,report_id,actor_id,payload_json FROM events WHERE %s ORDER BY id DESC LIMIT ?`, strings.Join(clauses, " AND "))
	args = append(args, limit)
	return r.queryEvents(ctx, query, args...)
}

// EventsAfter returns events with IDs greater than the cursor in ascending order.
func (r Repo) EventsAfter(ctx context.Context, limit int, cursor int64) ([]domain.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	return r.queryEvents(ctx, `SELECT id,ts,type,report_id,actor_id,payload_json FROM events WHERE id>? ORDER BY id ASC LIMIT ?`, cursor, limit)
}

// LatestEventID returns the most recent event ID, or 0 when there are none.
func (r Repo) LatestEventID(ctx context.Context) (int64, error) {
	var id int64
	if err := r.DB.QueryRowContext(ctx, `SELECT COALESCE(MAX(id),0) FROM events`).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func (r Repo) queryEvents(ctx context.Context, query string, args ...any) ([]domain.Event, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []domain.Event{}
	for rows.Next() {
		var e domain.Event
		var reportID, payload sql.NullString
		if err := rows.Scan(&e.ID, &e.TS, &e.Type, &reportID, &e.ActorID, &payload); err != nil {
			return nil, err
		}
		e.ReportID = reportID.String
		e.Payload = payload.String
		res = append(res, e)
	}
	return res, rows.Err()
}
