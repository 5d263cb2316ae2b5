package audit

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fairreview/internal/review"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleResult(tier review.RiskTier, issues int) review.RunResult {
	var res review.RunResult
	res.Analysis.RiskTier = tier
	res.Analysis.TotalIssues = issues
	res.Analysis.Confidence = 0.9
	return res
}

func TestSaveAndGet(t *testing.T) {
	s := openTestStore(t)

	rec, err := s.Save(sampleResult(review.TierHigh, 2), "# Report")
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)

	got, err := s.Get(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, "high", got.RiskTier)
	assert.Equal(t, 2, got.TotalIssues)
	assert.Equal(t, "# Report", got.ReportMarkdown)
	assert.Contains(t, got.ResultJSON, `"riskTier":"high"`)
}

func TestGetMissing(t *testing.T) {
	s := openTestStore(t)

	_, err := s.Get("no-such-id")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListNewestFirst(t *testing.T) {
	s := openTestStore(t)

	first, err := s.Save(sampleResult(review.TierLow, 0), "a")
	require.NoError(t, err)
	second, err := s.Save(sampleResult(review.TierMedium, 1), "b")
	require.NoError(t, err)

	recs, err := s.List(10)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, second.ID, recs[0].ID)
	assert.Equal(t, first.ID, recs[1].ID)
}

func TestListLimit(t *testing.T) {
	s := openTestStore(t)

	for i := 0; i < 5; i++ {
		_, err := s.Save(sampleResult(review.TierNone, 0), "r")
		require.NoError(t, err)
	}
	recs, err := s.List(3)
	require.NoError(t, err)
	assert.Len(t, recs, 3)
}
