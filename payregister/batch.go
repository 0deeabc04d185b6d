package payregister

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// =============================================================================
// BATCH REPORT - Per-unit failure isolation
// =============================================================================

// BatchReport is the aggregate outcome of a multi-employee operation.
type BatchReport struct {
	Total   int      `json:"total"`
	Success int      `json:"success"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors"`
}

// UnitResult is the outcome of one unit of a batch. Label prefixes the error
// message in the report.
type UnitResult struct {
	Label string
	Err   error
}

// Fold builds a report from unit results, in order.
func Fold(results []UnitResult) BatchReport {
	report := BatchReport{Total: len(results), Errors: []string{}}
	for _, r := range results {
		if r.Err == nil {
			report.Success++
			continue
		}
		report.Failed++
		if r.Label == "" {
			report.Errors = append(report.Errors, r.Err.Error())
		} else {
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", r.Label, r.Err))
		}
	}
	return report
}

// RunBatch runs fn for each of n units on at most workers goroutines. Unit
// errors are collected, never propagated, so one failure cannot stop the
// others. Results are returned in unit order.
func RunBatch(ctx context.Context, n, workers int, fn func(ctx context.Context, i int) UnitResult) []UnitResult {
	if workers < 1 {
		workers = 1
	}
	results := make([]UnitResult, n)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i] = UnitResult{Err: err}
				return nil
			}
			results[i] = fn(ctx, i)
			return nil
		})
	}
	_ = g.Wait()
	return results
}
