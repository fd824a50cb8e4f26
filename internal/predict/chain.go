package predict

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
)

type predictorChain struct {
	primary  Predictor
	fallback Predictor
}

// WithFallback returns a predictor that tries primary first and falls back to
// the second service when the primary is unavailable or fails.
func WithFallback(primary, fallback Predictor) Predictor {
	if primary == nil {
		return fallback
	}
	if fallback == nil {
		return primary
	}
	return &predictorChain{primary: primary, fallback: fallback}
}

func (c *predictorChain) Enabled() bool {
	if c == nil {
		return false
	}
	return (c.primary != nil && c.primary.Enabled()) || (c.fallback != nil && c.fallback.Enabled())
}

func (c *predictorChain) Predict(ctx context.Context, app LoanApplication) (PredictionResult, error) {
	if c == nil {
		return PredictionResult{}, ErrDisabled
	}
	var primaryErr error
	if c.primary != nil && c.primary.Enabled() {
		result, err := c.primary.Predict(ctx, app)
		if err == nil {
			return result, nil
		}
		primaryErr = err
		if ctx.Err() != nil {
			return PredictionResult{}, err
		}
		logrus.WithError(err).Warn("primary prediction service failed, trying fallback")
	}
	if c.fallback != nil && c.fallback.Enabled() {
		result, err := c.fallback.Predict(ctx, app)
		if err != nil {
			return PredictionResult{}, errors.Join(primaryErr, err)
		}
		return result, nil
	}
	if primaryErr != nil {
		return PredictionResult{}, primaryErr
	}
	return PredictionResult{}, ErrDisabled
}
