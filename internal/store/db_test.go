package store

import (
	"errors"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"loan-risk/internal/scoring"
)

func openTestDB(t *testing.T) *Database {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "loan-risk.db"), true)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestSaveAndGetAssessment(t *testing.T) {
	db := openTestDB(t)

	items := []scoring.ContributionItem{
		{Feature: "int_rate", Value: 0.3},
		{Feature: "annual_inc", Value: -0.1},
		{Feature: "loan_amnt", Value: 0.05},
	}
	a := &Assessment{Probability: 0.42, Percentage: 42, Tier: string(scoring.TierMedium)}
	require.NoError(t, a.SetExplanation(items))
	require.NoError(t, a.SetApplication(map[string]any{"grade": "B"}))
	require.NoError(t, db.SaveAssessment(a))
	require.NotEmpty(t, a.ID)

	loaded, err := db.GetAssessment(a.ID)
	require.NoError(t, err)
	assert.Equal(t, items, loaded.Explanation())
	assert.InDelta(t, 0.42, loaded.Probability, 1e-12)

	var app map[string]any
	require.NoError(t, loaded.DecodeApplication(&app))
	assert.Equal(t, "B", app["grade"])
}

func TestGetAssessmentUnknown(t *testing.T) {
	db := openTestDB(t)

	_, err := db.GetAssessment("not-a-uuid")
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))

	_, err = db.GetAssessment("7f1b8a8e-7d0e-4b7a-9a43-0e5c2b3f9d11")
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func TestEmptyExplanationRoundTrip(t *testing.T) {
	db := openTestDB(t)

	a := &Assessment{Probability: 0.1}
	require.NoError(t, a.SetExplanation(nil))
	require.NoError(t, db.SaveAssessment(a))

	loaded, err := db.GetAssessment(a.ID)
	require.NoError(t, err)
	assert.NotNil(t, loaded.Explanation())
	assert.Empty(t, loaded.Explanation())
}

func TestListAndPurgeAssessments(t *testing.T) {
	db := openTestDB(t)

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		a := &Assessment{Probability: float64(i) / 10, CreatedAt: base.Add(time.Duration(i) * time.Minute)}
		require.NoError(t, db.SaveAssessment(a))
	}

	rows, total, err := db.ListAssessments(0, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	require.Len(t, rows, 2)
	assert.InDelta(t, 0.4, rows[0].Probability, 1e-12)
	assert.InDelta(t, 0.3, rows[1].Probability, 1e-12)

	removed, err := db.PurgeBefore(base.Add(150 * time.Second))
	require.NoError(t, err)
	assert.Equal(t, int64(3), removed)

	count, err := db.CountAssessments()
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestSetExplanationRejectsNonFiniteValues(t *testing.T) {
	a := &Assessment{ExplanationJSON: `[{"feature":"dti","value":0.2}]`}

	err := a.SetExplanation([]scoring.ContributionItem{{Feature: "dti", Value: math.Inf(1)}})
	require.Error(t, err)
	assert.Equal(t, []scoring.ContributionItem{{Feature: "dti", Value: 0.2}}, a.Explanation())

	err = a.SetApplication(map[string]any{"loan_amnt": math.NaN()})
	require.Error(t, err)
	assert.Empty(t, a.ApplicationJSON)
}
