package export

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"time"

	"resourcemap/internal/config"
)

// Exporter runs one export per format at a time. A second request for a
// format that is still rendering fails with ErrBusy.
type Exporter struct {
	cfg      config.Export
	logger   *slog.Logger
	lookPath func(string) (string, error)

	mu   sync.Mutex
	busy map[Format]bool
}

func New(cfg config.Export, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{cfg: cfg, logger: logger, lookPath: exec.LookPath, busy: map[Format]bool{}}
}

func (e *Exporter) acquire(f Format) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.busy[f] {
		return false
	}
	e.busy[f] = true
	return true
}

func (e *Exporter) release(f Format) {
	e.mu.Lock()
	delete(e.busy, f)
	e.mu.Unlock()
}

// Busy reports whether an export of format f is running.
func (e *Exporter) Busy(f Format) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.busy[f]
}

// Export renders req in format f. Failures are logged and returned; they
// never touch the report itself.
func (e *Exporter) Export(ctx context.Context, f Format, req Request) (*Result, error) {
	if _, err := ParseFormat(string(f)); err != nil {
		return nil, err
	}
	if !e.acquire(f) {
		return nil, fmt.Errorf("%w: %s", ErrBusy, f)
	}
	defer e.release(f)

	start := time.Now()
	res, err := e.export(ctx, f, req)
	if err != nil {
		e.logger.Error("export failed", "format", f, "view", req.View, "err", err)
		return nil, err
	}
	e.logger.Info("export finished", "format", f, "view", req.View, "bytes", len(res.Data), "elapsed", time.Since(start))
	return res, nil
}

func (e *Exporter) export(ctx context.Context, f Format, req Request) (*Result, error) {
	html, err := RenderHTML(req)
	if err != nil {
		return nil, fmt.Errorf("render html: %w", err)
	}
	base := Filename(req.Title, req.View)
	if f == FormatHTML {
		return &Result{Data: []byte(html), Filename: base + ".html", MimeType: "text/html; charset=utf-8"}, nil
	}
	execPath, err := findChrome(e.cfg.ChromePath, e.lookPath)
	if err != nil {
		return nil, err
	}
	r := chromeRenderer{execPath: execPath, timeout: e.cfg.Timeout}
	switch f {
	case FormatPDF:
		data, err := r.pdf(ctx, html, e.cfg.PageSize)
		if err != nil {
			return nil, err
		}
		return &Result{Data: data, Filename: base + ".pdf", MimeType: "application/pdf"}, nil
	default:
		data, err := r.png(ctx, html)
		if err != nil {
			return nil, err
		}
		return &Result{Data: data, Filename: base + ".png", MimeType: "image/png"}, nil
	}
}

// Filename builds a safe download name from the report title and view.
func Filename(title string, view View) string {
	if view == "" {
		view = ViewProject
	}
	return sanitizeFilename(title) + "-" + string(view)
}

func sanitizeFilename(title string) string {
	var sb strings.Builder
	for _, r := range title {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			sb.WriteRune(r)
		case r == ' ':
			sb.WriteByte('-')
		}
	}
	result := sb.String()
	if len(result) > 50 {
		result = result[:50]
	}
	if result == "" {
		result = "resource-report"
	}
	return result
}
