package export

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// Portrait page sizes in inches, width first. printToPDF swaps them when
// landscape is set.
var pageSizes = map[string][2]float64{
	"A4":     {8.27, 11.69},
	"LETTER": {8.5, 11},
}

var chromeCandidates = []string{"chromium-browser", "chromium", "google-chrome", "google-chrome-stable"}

// findChrome returns the configured browser, or the first candidate found
// on PATH.
func findChrome(configured string, lookPath func(string) (string, error)) (string, error) {
	if configured != "" {
		if p, err := lookPath(configured); err == nil {
			return p, nil
		}
		return "", fmt.Errorf("%w: chrome not found at %s", ErrDependencyMissing, configured)
	}
	for _, name := range chromeCandidates {
		if p, err := lookPath(name); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: chromium not installed", ErrDependencyMissing)
}

// percentEncodeForDataURL encodes s for a data URL. Spaces become %20, not +.
func percentEncodeForDataURL(s string) string {
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		b := s[i]
		switch {
		case b >= 'a' && b <= 'z', b >= 'A' && b <= 'Z', b >= '0' && b <= '9',
			b == '-', b == '_', b == '.', b == '~':
			sb.WriteByte(b)
		default:
			fmt.Fprintf(&sb, "%%%02X", b)
		}
	}
	return sb.String()
}

type chromeRenderer struct {
	execPath string
	timeout  time.Duration
}

func (c chromeRenderer) run(ctx context.Context, html string, action chromedp.Action) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.ExecPath(c.execPath),
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.WindowSize(1600, 1000),
	)
	allocCtx, cancel := chromedp.NewExecAllocator(ctx, opts...)
	defer cancel()
	taskCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	dataURL := "data:text/html;charset=utf-8," + percentEncodeForDataURL(html)
	return chromedp.Run(taskCtx,
		chromedp.Navigate(dataURL),
		chromedp.WaitReady("body"),
		action,
	)
}

// pdfParams prints onto landscape pages of the named size, A4 when unknown.
func pdfParams(pageSize string) *page.PrintToPDFParams {
	size, ok := pageSizes[strings.ToUpper(pageSize)]
	if !ok {
		size = pageSizes["A4"]
	}
	return page.PrintToPDF().
		WithLandscape(true).
		WithPrintBackground(true).
		WithPaperWidth(size[0]).
		WithPaperHeight(size[1]).
		WithMarginTop(0.4).
		WithMarginBottom(0.4).
		WithMarginLeft(0.4).
		WithMarginRight(0.4)
}

func (c chromeRenderer) pdf(ctx context.Context, html, pageSize string) ([]byte, error) {
	var out []byte
	err := c.run(ctx, html, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		out, _, err = pdfParams(pageSize).Do(ctx)
		return err
	}))
	if err != nil {
		return nil, fmt.Errorf("chrome pdf generation failed: %w", err)
	}
	return out, nil
}

// png captures the whole page. Quality 100 makes chromedp emit PNG.
func (c chromeRenderer) png(ctx context.Context, html string) ([]byte, error) {
	var out []byte
	if err := c.run(ctx, html, chromedp.FullScreenshot(&out, 100)); err != nil {
		return nil, fmt.Errorf("chrome screenshot failed: %w", err)
	}
	return out, nil
}
