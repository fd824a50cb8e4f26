package predict

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"loan-risk/internal/scoring"
)

// Predictor produces default predictions for loan applications.
type Predictor interface {
	Enabled() bool
	Predict(ctx context.Context, app LoanApplication) (PredictionResult, error)
}

// Config drives prediction client behaviour.
type Config struct {
	BaseURL         string
	Timeout         time.Duration
	CacheTTL        time.Duration
	CacheSize       int
	MaxExplanations int
}

const (
	DefaultBaseURL   = "http://127.0.0.1:5000"
	DefaultCacheSize = 1024
	defaultTimeout   = 30 * time.Second
	defaultCacheTTL  = 10 * time.Minute
)

var (
	// ErrDisabled is returned when no prediction endpoint is configured.
	ErrDisabled = errors.New("prediction client disabled")
	// ErrServiceStatus wraps non-2xx responses from the prediction service.
	ErrServiceStatus = errors.New("prediction service returned an error status")
	// ErrMalformedResponse is returned when the body does not match the response contract.
	ErrMalformedResponse = errors.New("malformed prediction response")
)

// transformer prefixes emitted by the upstream preprocessing pipeline
var featurePrefixes = []string{"cat__", "num__"}

// Client calls the remote /predict endpoint.
type Client struct {
	httpClient      *http.Client
	endpoint        string
	maxExplanations int
	cache           *responseCache
}

// NewClient constructs a Client. A zero Config targets the local development service.
func NewClient(cfg Config) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		return nil, fmt.Errorf("prediction base url %q must be http(s)", baseURL)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	var cache *responseCache
	switch {
	case cfg.CacheTTL == 0:
		cache = newResponseCache(defaultCacheTTL, cfg.CacheSize)
	case cfg.CacheTTL > 0:
		cache = newResponseCache(cfg.CacheTTL, cfg.CacheSize)
	}

	return &Client{
		httpClient:      &http.Client{Timeout: timeout},
		endpoint:        baseURL + "/predict",
		maxExplanations: cfg.MaxExplanations,
		cache:           cache,
	}, nil
}

// Endpoint returns the full prediction URL.
func (c *Client) Endpoint() string {
	if c == nil {
		return ""
	}
	return c.endpoint
}

// Enabled reports whether the client can make outbound calls.
func (c *Client) Enabled() bool {
	return c != nil && c.endpoint != ""
}

// Predict submits the application and decodes the returned probability and contributions.
func (c *Client) Predict(ctx context.Context, app LoanApplication) (PredictionResult, error) {
	if !c.Enabled() {
		return PredictionResult{}, ErrDisabled
	}

	body, err := json.Marshal(app)
	if err != nil {
		return PredictionResult{}, fmt.Errorf("marshal application: %w", err)
	}

	key := string(body)
	if cached, ok := c.cache.load(key); ok {
		logrus.WithField("endpoint", c.endpoint).Debug("prediction served from cache")
		return cached, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return PredictionResult{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return PredictionResult{}, fmt.Errorf("prediction request: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return PredictionResult{}, fmt.Errorf("read prediction response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return PredictionResult{}, fmt.Errorf("%w: status %d", ErrServiceStatus, resp.StatusCode)
	}

	result, err := decodeResult(payload)
	if err != nil {
		return PredictionResult{}, err
	}
	if c.maxExplanations > 0 && len(result.Explanation) > c.maxExplanations {
		result.Explanation = result.Explanation[:c.maxExplanations]
	}

	c.cache.store(key, result)
	return result.clone(), nil
}

func decodeResult(payload []byte) (PredictionResult, error) {
	if !gjson.ValidBytes(payload) {
		return PredictionResult{}, fmt.Errorf("%w: invalid json", ErrMalformedResponse)
	}
	parsed := gjson.ParseBytes(payload)
	if !parsed.IsObject() {
		return PredictionResult{}, fmt.Errorf("%w: root must be an object", ErrMalformedResponse)
	}

	prob := parsed.Get("default_probability")
	if prob.Type != gjson.Number {
		return PredictionResult{}, fmt.Errorf("%w: default_probability missing or not a number", ErrMalformedResponse)
	}
	if !finite(prob.Float()) {
		return PredictionResult{}, fmt.Errorf("%w: default_probability %s is out of range", ErrMalformedResponse, prob.Raw)
	}

	explanation := parsed.Get("explanation")
	if explanation.Exists() && explanation.Type != gjson.Null && !explanation.IsArray() {
		return PredictionResult{}, fmt.Errorf("%w: explanation must be an array", ErrMalformedResponse)
	}

	items := make([]scoring.ContributionItem, 0)
	var itemErr error
	idx := 0
	explanation.ForEach(func(_, value gjson.Result) bool {
		feature := value.Get("feature")
		if feature.Type != gjson.String {
			itemErr = fmt.Errorf("%w: explanation[%d].feature must be a string", ErrMalformedResponse, idx)
			return false
		}
		contribution := value.Get("value")
		if contribution.Type != gjson.Number {
			itemErr = fmt.Errorf("%w: explanation[%d].value must be a number", ErrMalformedResponse, idx)
			return false
		}
		if !finite(contribution.Float()) {
			itemErr = fmt.Errorf("%w: explanation[%d].value %s is out of range", ErrMalformedResponse, idx, contribution.Raw)
			return false
		}
		idx++
		items = append(items, scoring.ContributionItem{
			Feature: normalizeFeature(feature.String()),
			Value:   contribution.Float(),
		})
		return true
	})
	if itemErr != nil {
		return PredictionResult{}, itemErr
	}

	return PredictionResult{
		DefaultProbability: prob.Float(),
		Explanation:        items,
	}, nil
}

func finite(f float64) bool {
	return !math.IsInf(f, 0) && !math.IsNaN(f)
}

func normalizeFeature(feature string) string {
	for _, prefix := range featurePrefixes {
		feature = strings.TrimPrefix(feature, prefix)
	}
	return feature
}
