package benchmark

import (
	"bytes"
	"encoding/csv"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/MeKo-Tech/footprint/internal/refine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSuite(t *testing.T) {
	suite := NewSuite()
	assert.Empty(t, suite.benchmarks)

	suite.Add("test_benchmark", func() error {
		time.Sleep(1 * time.Millisecond)
		return nil
	})

	assert.Len(t, suite.benchmarks, 1)
	assert.Equal(t, "test_benchmark", suite.benchmarks[0].Name)
}

func TestSuiteRun(t *testing.T) {
	suite := NewSuite()
	suite.Add("success_test", func() error {
		time.Sleep(1 * time.Millisecond)
		return nil
	})
	calls := 0
	suite.Add("error_test", func() error {
		calls++
		if calls == 2 {
			return errors.New("test error")
		}
		return nil
	})

	result := suite.Run("success_test", 5)
	assert.Equal(t, "success_test", result.Name)
	assert.Equal(t, 5, result.Iterations)
	require.NoError(t, result.Error)
	assert.GreaterOrEqual(t, result.PerOp(), time.Millisecond)

	// Iterations count only the completed runs.
	result = suite.Run("error_test", 3)
	require.Error(t, result.Error)
	assert.Equal(t, 1, result.Iterations)
	assert.Contains(t, result.String(), "ERROR - test error")

	result = suite.Run("non_existent", 1)
	require.Error(t, result.Error)
	assert.Contains(t, result.Error.Error(), "not found")
}

func TestSuiteRunAll(t *testing.T) {
	suite := NewSuite()
	suite.Add("fast_test", func() error {
		time.Sleep(1 * time.Millisecond)
		return nil
	})
	suite.Add("slow_test", func() error {
		time.Sleep(5 * time.Millisecond)
		return nil
	})

	results := suite.RunAll(3)
	require.Len(t, results, 2)
	assert.Equal(t, results, suite.Results())
	assert.Greater(t, results[1].Duration, results[0].Duration)

	var buf bytes.Buffer
	suite.PrintResults(&buf)
	assert.Contains(t, buf.String(), "fast_test: 3 iterations")
	assert.Contains(t, buf.String(), "slow_test: 3 iterations")
}

func TestResult_ZeroIterations(t *testing.T) {
	var r Result
	assert.Zero(t, r.PerOp())
	assert.Zero(t, r.AllocatedPerOp())
}

func TestRefineBenchmark(t *testing.T) {
	b := NewRefineBenchmark(refine.DefaultConfig(), 64, 96)

	results, err := b.Run(2)
	require.NoError(t, err)
	require.Len(t, results, 2)

	for _, r := range results {
		require.NoError(t, r.Error)
		assert.Equal(t, 2, r.Iterations)
		assert.Equal(t, r.Buildings, r.Removed, "every speck is removed")
		assert.Positive(t, r.Foreground)
		for _, s := range StageOrder {
			assert.Contains(t, r.Stages, s)
		}
	}
	assert.Equal(t, 4, results[0].Buildings)
	assert.Equal(t, 9, results[1].Buildings)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, results))
	rows, err := csv.NewReader(strings.NewReader(buf.String())).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "size", rows[0][0])
	assert.Equal(t, "thin_ms", rows[0][7])
	assert.Equal(t, "64", rows[1][0])
	assert.Equal(t, "4", rows[1][5])
}

func TestRefineBenchmark_Invalid(t *testing.T) {
	_, err := NewRefineBenchmark(refine.DefaultConfig(), 64).Run(0)
	require.Error(t, err)

	_, err = NewRefineBenchmark(refine.DefaultConfig(), -1).Run(1)
	require.Error(t, err)

	_, err = NewRefineBenchmark(refine.Config{EdgeThreshold: 300}, 64).Run(1)
	require.Error(t, err)
}
