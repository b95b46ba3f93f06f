package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestAnalyzeBatch tests parallel analysis of independent exams.
func TestAnalyzeBatch(t *testing.T) {
	before, after := demoInputs(t)

	t.Run("keeps input order", func(t *testing.T) {
		results, err := AnalyzeBatch(context.Background(), []ExamInput{before, after, before}, 2)
		require.NoError(t, err)
		require.Len(t, results, 3)
		assert.Equal(t, MidtermTag, results[0].Tag)
		assert.Equal(t, FinalTag, results[1].Tag)
		assert.Equal(t, results[0], results[2])
	})

	t.Run("matches sequential analysis", func(t *testing.T) {
		results, err := AnalyzeBatch(context.Background(), []ExamInput{after}, 0)
		require.NoError(t, err)
		assert.Equal(t, AnalyzeExam(after), results[0])
	})

	t.Run("canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := AnalyzeBatch(ctx, []ExamInput{before}, 1)
		assert.ErrorIs(t, err, context.Canceled)
	})
}
