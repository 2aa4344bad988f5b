package app

import (
	"context"
	"errors"
	"fmt"

	"resourcemap/internal/domain"
	"resourcemap/internal/repo"
)

// ResolveReport picks the active report. It prefers the override and falls
// back to the most recently analyzed report.
func ResolveReport(ctx context.Context, override string, r repo.Repo) (domain.Report, error) {
	if override != "" {
		rep, err := r.GetReport(ctx, override)
		if errors.Is(err, repo.ErrNotFound) {
			return domain.Report{}, fmt.Errorf("report %s: %w", override, err)
		}
		return rep, err
	}
	rep, err := r.LatestReport(ctx)
	if errors.Is(err, repo.ErrNotFound) {
		return domain.Report{}, fmt.Errorf("no reports yet; run rmap analyze first: %w", err)
	}
	return rep, err
}
