package scoring

import (
	"math"
	"math/big"
	"strconv"

	"github.com/shopspring/decimal"
)

// RiskTier buckets a default probability into a coarse band.
type RiskTier string

const (
	TierLow    RiskTier = "LOW"
	TierMedium RiskTier = "MEDIUM"
	TierHigh   RiskTier = "HIGH"
)

// Percentage thresholds. Bands are half-open: a reading equal to a threshold
// belongs to the band above it.
const (
	MediumThreshold = 20.0
	HighThreshold   = 50.0
)

// GaugeMaxRotation is the rotation of a completely filled half-circle gauge.
const GaugeMaxRotation = 180.0

// Label returns the display label for the tier.
func (t RiskTier) Label() string {
	switch t {
	case TierLow:
		return "Low Risk"
	case TierMedium:
		return "Medium Risk"
	case TierHigh:
		return "High Risk"
	}
	return ""
}

// ColorToken returns the themeable color reference for the tier. The hosting
// page defines the actual colors.
func (t RiskTier) ColorToken() string {
	switch t {
	case TierLow:
		return "var(--low-risk-color)"
	case TierMedium:
		return "var(--medium-risk-color)"
	case TierHigh:
		return "var(--high-risk-color)"
	}
	return ""
}

// TierForPercentage selects the tier for a percentage in [0,100].
func TierForPercentage(percentage float64) RiskTier {
	if percentage < MediumThreshold {
		return TierLow
	}
	if percentage < HighThreshold {
		return TierMedium
	}
	return TierHigh
}

// GaugeReading is everything the presentation layer needs to draw the gauge.
type GaugeReading struct {
	Probability float64  `json:"probability"`
	Percentage  float64  `json:"percentage"`
	Rotation    float64  `json:"rotation"`
	DisplayText string   `json:"display_text"`
	Tier        RiskTier `json:"tier"`
	TierLabel   string   `json:"tier_label"`
	Color       string   `json:"color"`
}

// NewGauge maps a default probability onto the half-circle gauge. Values
// outside [0,1] are not clamped.
func NewGauge(probability float64) GaugeReading {
	percentage := probability * 100
	rotation := (percentage / 100) * GaugeMaxRotation
	tier := TierForPercentage(percentage)

	return GaugeReading{
		Probability: probability,
		Percentage:  percentage,
		Rotation:    rotation,
		DisplayText: formatPercentage(percentage),
		Tier:        tier,
		TierLabel:   tier.Label(),
		Color:       tier.ColorToken(),
	}
}

// formatPercentage rounds the exact binary value half away from zero, so
// 1.00499999999999989 (0.01005 * 100) shows as "1.00%" and 0.125 as "0.13%".
func formatPercentage(percentage float64) string {
	if math.IsInf(percentage, 0) || math.IsNaN(percentage) {
		return strconv.FormatFloat(percentage, 'f', 2, 64) + "%"
	}
	return exactDecimal(percentage).StringFixed(2) + "%"
}

// exactDecimal converts f without the shortest-representation step of
// decimal.NewFromFloat: f = mant * 2^exp = mant * 5^-exp * 10^exp.
func exactDecimal(f float64) decimal.Decimal {
	frac, exp := math.Frexp(f)
	mant := big.NewInt(int64(math.Ldexp(frac, 53)))
	exp -= 53
	if exp >= 0 {
		return decimal.NewFromBigInt(mant.Lsh(mant, uint(exp)), 0)
	}
	pow := new(big.Int).Exp(big.NewInt(5), big.NewInt(int64(-exp)), nil)
	return decimal.NewFromBigInt(mant.Mul(mant, pow), int32(exp))
}
