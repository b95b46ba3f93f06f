package core

import (
	"context"

	"github.com/huangsam/examlens/schema"
	"golang.org/x/sync/errgroup"
)

// AnalyzeBatch analyses independent exams in parallel with at most 'workers'
// goroutines. Results keep the input order.
func AnalyzeBatch(ctx context.Context, inputs []ExamInput, workers int) ([]schema.ExamAnalysis, error) {
	results := make([]schema.ExamAnalysis, len(inputs))
	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i, in := range inputs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = AnalyzeExam(in)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
