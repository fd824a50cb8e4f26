package scoring

import (
	"math"
	"testing"
)

func TestTierForPercentage(t *testing.T) {
	tests := []struct {
		name       string
		percentage float64
		expected   RiskTier
	}{
		{"zero", 0, TierLow},
		{"just below medium", 19.999, TierLow},
		{"medium boundary", 20, TierMedium},
		{"just below high", 49.999, TierMedium},
		{"high boundary", 50, TierHigh},
		{"full", 100, TierHigh},
		{"out of range", 140, TierHigh},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := TierForPercentage(tc.percentage); got != tc.expected {
				t.Fatalf("expected %s got %s", tc.expected, got)
			}
		})
	}
}

func TestNewGauge(t *testing.T) {
	tests := []struct {
		name        string
		probability float64
		text        string
		tier        RiskTier
		color       string
	}{
		{"low", 0.05, "5.00%", TierLow, "var(--low-risk-color)"},
		{"two decimals", 0.4567, "45.67%", TierMedium, "var(--medium-risk-color)"},
		{"half", 0.5, "50.00%", TierHigh, "var(--high-risk-color)"},
		{"zero", 0, "0.00%", TierLow, "var(--low-risk-color)"},
		{"certain", 1, "100.00%", TierHigh, "var(--high-risk-color)"},
		{"binary value just below a tie", 0.01005, "1.00%", TierLow, "var(--low-risk-color)"},
		{"exact tie rounds away from zero", 0.00125, "0.13%", TierLow, "var(--low-risk-color)"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			reading := NewGauge(tc.probability)
			if reading.DisplayText != tc.text {
				t.Fatalf("expected text %q got %q", tc.text, reading.DisplayText)
			}
			if reading.Tier != tc.tier {
				t.Fatalf("expected tier %s got %s", tc.tier, reading.Tier)
			}
			if reading.Color != tc.color {
				t.Fatalf("expected color %s got %s", tc.color, reading.Color)
			}
			if reading.TierLabel != tc.tier.Label() {
				t.Fatalf("expected label %s got %s", tc.tier.Label(), reading.TierLabel)
			}
		})
	}
}

func TestGaugeRotation(t *testing.T) {
	prev := -1.0
	for i := 0; i <= 1000; i++ {
		p := float64(i) / 1000
		reading := NewGauge(p)
		if math.Abs(reading.Rotation-180*p) > 1e-9 {
			t.Fatalf("p=%v expected rotation %v got %v", p, 180*p, reading.Rotation)
		}
		if reading.Rotation < prev {
			t.Fatalf("rotation decreased at p=%v: %v < %v", p, reading.Rotation, prev)
		}
		if reading.Rotation < 0 || reading.Rotation > GaugeMaxRotation {
			t.Fatalf("rotation %v out of bounds", reading.Rotation)
		}
		prev = reading.Rotation
	}
}

func TestFormatPercentageNonFinite(t *testing.T) {
	tests := []struct {
		name       string
		percentage float64
		expected   string
	}{
		{"positive infinity", math.Inf(1), "+Inf%"},
		{"negative infinity", math.Inf(-1), "-Inf%"},
		{"not a number", math.NaN(), "NaN%"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := formatPercentage(tc.percentage); got != tc.expected {
				t.Fatalf("expected %q got %q", tc.expected, got)
			}
		})
	}
}

func TestExactDecimal(t *testing.T) {
	tests := []struct {
		name     string
		value    float64
		expected string
	}{
		{"zero", 0, "0"},
		{"integer", 1024, "1024"},
		{"power of two fraction", 0.125, "0.125"},
		{"negative", -2.5, "-2.5"},
		{"large", 1 << 60, "1152921504606846976"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := exactDecimal(tc.value).String(); got != tc.expected {
				t.Fatalf("expected %s got %s", tc.expected, got)
			}
		})
	}
}
