package predict

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loan-risk/internal/scoring"
)

func sampleApplication() LoanApplication {
	return LoanApplication{
		LoanAmount:         12000,
		InterestRate:       13.5,
		Installment:        407.2,
		AnnualIncome:       58000,
		DebtToIncome:       17.3,
		Grade:              "C",
		EmploymentLength:   "10+ years",
		HomeOwnership:      "MORTGAGE",
		VerificationStatus: "Verified",
		Purpose:            "debt_consolidation",
		Title:              "Debt consolidation",
	}
}

func newFakeService(t *testing.T, status int, body string, hits *int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			atomic.AddInt32(hits, 1)
		}
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/predict", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var got map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		for _, field := range []string{"loan_amnt", "int_rate", "installment", "annual_inc", "dti", "grade", "emp_length", "home_ownership", "verification_status", "purpose", "title"} {
			assert.Contains(t, got, field)
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
}

func TestPredictDecodesResponse(t *testing.T) {
	srv := newFakeService(t, http.StatusOK, `{
		"default_probability": 0.4567,
		"explanation": [
			{"feature": "num__int_rate", "value": 0.21},
			{"feature": "cat__grade_A", "value": -0.08},
			{"feature": "dti", "value": 0}
		]
	}`, nil)
	defer srv.Close()

	client, err := NewClient(Config{BaseURL: srv.URL, CacheTTL: -1})
	require.NoError(t, err)

	result, err := client.Predict(context.Background(), sampleApplication())
	require.NoError(t, err)
	assert.InDelta(t, 0.4567, result.DefaultProbability, 1e-12)
	assert.Equal(t, []scoring.ContributionItem{
		{Feature: "int_rate", Value: 0.21},
		{Feature: "grade_A", Value: -0.08},
		{Feature: "dti", Value: 0},
	}, result.Explanation)
}

func TestPredictNonSuccessStatus(t *testing.T) {
	srv := newFakeService(t, http.StatusInternalServerError, `{"error":"boom"}`, nil)
	defer srv.Close()

	client, err := NewClient(Config{BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = client.Predict(context.Background(), sampleApplication())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrServiceStatus)
}

func TestPredictMalformedResponse(t *testing.T) {
	cases := map[string]string{
		"not json":           `<html>`,
		"missing prob":       `{"explanation": []}`,
		"string prob":        `{"default_probability": "0.4"}`,
		"explanation object": `{"default_probability": 0.4, "explanation": {"feature": "dti"}}`,
		"feature not string": `{"default_probability": 0.4, "explanation": [{"feature": 3, "value": 1}]}`,
		"value missing":      `{"default_probability": 0.4, "explanation": [{"feature": "dti"}]}`,
		"value not number":   `{"default_probability": 0.4, "explanation": [{"feature": "dti", "value": "high"}]}`,
		"value null":         `{"default_probability": 0.4, "explanation": [{"feature": "dti", "value": null}]}`,
		"prob overflow":      `{"default_probability": 1e400, "explanation": []}`,
		"negative overflow":  `{"default_probability": -1e400, "explanation": []}`,
		"value overflow":     `{"default_probability": 0.4, "explanation": [{"feature": "dti", "value": 1e400}]}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			srv := newFakeService(t, http.StatusOK, body, nil)
			defer srv.Close()

			client, err := NewClient(Config{BaseURL: srv.URL, CacheTTL: -1})
			require.NoError(t, err)
			_, err = client.Predict(context.Background(), sampleApplication())
			assert.ErrorIs(t, err, ErrMalformedResponse)
		})
	}
}

func TestPredictMissingExplanationIsEmpty(t *testing.T) {
	srv := newFakeService(t, http.StatusOK, `{"default_probability": 0.1}`, nil)
	defer srv.Close()

	client, err := NewClient(Config{BaseURL: srv.URL, CacheTTL: -1})
	require.NoError(t, err)
	result, err := client.Predict(context.Background(), sampleApplication())
	require.NoError(t, err)
	assert.NotNil(t, result.Explanation)
	assert.Empty(t, result.Explanation)
}

func TestPredictTruncatesExplanations(t *testing.T) {
	srv := newFakeService(t, http.StatusOK, `{"default_probability": 0.3, "explanation": [
		{"feature": "a", "value": 5}, {"feature": "b", "value": 4}, {"feature": "c", "value": 3}
	]}`, nil)
	defer srv.Close()

	client, err := NewClient(Config{BaseURL: srv.URL, CacheTTL: -1, MaxExplanations: 2})
	require.NoError(t, err)
	result, err := client.Predict(context.Background(), sampleApplication())
	require.NoError(t, err)
	require.Len(t, result.Explanation, 2)
	assert.Equal(t, "a", result.Explanation[0].Feature)
	assert.Equal(t, "b", result.Explanation[1].Feature)
}

func TestPredictCachesIdenticalApplications(t *testing.T) {
	var hits int32
	srv := newFakeService(t, http.StatusOK, `{"default_probability": 0.7, "explanation": [{"feature": "dti", "value": 0.2}]}`, &hits)
	defer srv.Close()

	client, err := NewClient(Config{BaseURL: srv.URL, CacheTTL: time.Minute})
	require.NoError(t, err)

	first, err := client.Predict(context.Background(), sampleApplication())
	require.NoError(t, err)
	first.Explanation[0].Feature = "mutated"

	second, err := client.Predict(context.Background(), sampleApplication())
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
	assert.Equal(t, "dti", second.Explanation[0].Feature)

	other := sampleApplication()
	other.LoanAmount = 5000
	_, err = client.Predict(context.Background(), other)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestResponseCacheExpires(t *testing.T) {
	now := time.Unix(1000, 0)
	cache := newResponseCache(time.Minute, 0)
	cache.now = func() time.Time { return now }

	cache.store("k", PredictionResult{DefaultProbability: 0.2})
	_, ok := cache.load("k")
	assert.True(t, ok)

	now = now.Add(2 * time.Minute)
	_, ok = cache.load("k")
	assert.False(t, ok)
}

func TestResponseCacheIsBounded(t *testing.T) {
	now := time.Unix(1000, 0)
	cache := newResponseCache(time.Minute, 64)
	cache.now = func() time.Time { return now }

	for i := 0; i < 1000; i++ {
		cache.store(fmt.Sprintf("application-%d", i), PredictionResult{DefaultProbability: 0.1})
		now = now.Add(time.Hour)
	}
	assert.Equal(t, 64, cache.size())

	_, ok := cache.load("application-0")
	assert.False(t, ok)
}

func TestResponseCacheEvictsLeastRecentlyUsed(t *testing.T) {
	cache := newResponseCache(time.Minute, 2)

	cache.store("a", PredictionResult{DefaultProbability: 0.1})
	cache.store("b", PredictionResult{DefaultProbability: 0.2})
	_, ok := cache.load("a")
	require.True(t, ok)

	cache.store("c", PredictionResult{DefaultProbability: 0.3})
	_, ok = cache.load("b")
	assert.False(t, ok)
	_, ok = cache.load("a")
	assert.True(t, ok)
	assert.Equal(t, 2, cache.size())
}

func TestPredictRejectsNonFiniteNumbers(t *testing.T) {
	var hits int32
	srv := newFakeService(t, http.StatusOK, `{"default_probability":1e400,"explanation":[{"feature":"dti","value":1e400}]}`, &hits)
	defer srv.Close()

	client, err := NewClient(Config{BaseURL: srv.URL, CacheTTL: time.Minute})
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		result, err := client.Predict(context.Background(), sampleApplication())
		require.ErrorIs(t, err, ErrMalformedResponse)
		assert.Zero(t, result.DefaultProbability)
	}
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
	assert.Equal(t, 0, client.cache.size())
}

func TestNewClientRejectsBadScheme(t *testing.T) {
	_, err := NewClient(Config{BaseURL: "ftp://example.com"})
	assert.Error(t, err)

	client, err := NewClient(Config{})
	require.NoError(t, err)
	assert.Equal(t, DefaultBaseURL+"/predict", client.Endpoint())
}
