package scoring

import (
	"fmt"
	"html"
	"strings"
)

// ContributionItem is one feature's signed influence on the predicted risk.
type ContributionItem struct {
	Feature string  `json:"feature"`
	Value   float64 `json:"value"`
}

// Direction reports which way a contribution pushed the prediction.
type Direction string

const (
	DirectionIncreased Direction = "increased"
	DirectionDecreased Direction = "decreased"
)

// DirectionOf classifies a contribution value. Zero counts as decreased.
func DirectionOf(value float64) Direction {
	if value > 0 {
		return DirectionIncreased
	}
	return DirectionDecreased
}

var featureDescriptions = map[string]string{
	"loan_amnt":               "A high loan amount",
	"annual_inc":              "A high annual income",
	"int_rate":                "A high interest rate",
	"dti":                     "A high debt-to-income ratio",
	"grade_A":                 "An excellent loan grade (A)",
	"grade_B":                 "A good loan grade (B)",
	"grade_C":                 "An average loan grade (C)",
	"grade_D":                 "A below-average loan grade (D)",
	"emp_length_10+ years":    "A long employment history",
	"home_ownership_MORTGAGE": "Having a mortgage",
}

// DescribeFeature returns the readable phrase for a feature identifier,
// falling back to the identifier with underscores replaced by spaces.
func DescribeFeature(feature string) string {
	if desc, ok := featureDescriptions[feature]; ok {
		return desc
	}
	return strings.ReplaceAll(feature, "_", " ")
}

// FeatureDescriptions returns a copy of the known feature dictionary.
func FeatureDescriptions() map[string]string {
	out := make(map[string]string, len(featureDescriptions))
	for k, v := range featureDescriptions {
		out[k] = v
	}
	return out
}

// Sentence is a single formatted explanation line.
type Sentence struct {
	Feature     string    `json:"feature"`
	Value       float64   `json:"value"`
	Description string    `json:"description"`
	Direction   Direction `json:"direction"`
}

// Markdown renders the sentence with the description in bold.
func (s Sentence) Markdown() string {
	return fmt.Sprintf("**%s** %s the predicted risk.", s.Description, s.Direction)
}

// HTML renders the sentence with the description wrapped in <strong>.
func (s Sentence) HTML() string {
	return fmt.Sprintf("<strong>%s</strong> %s the predicted risk.", html.EscapeString(s.Description), s.Direction)
}

// String returns the sentence without emphasis.
func (s Sentence) String() string {
	return fmt.Sprintf("%s %s the predicted risk.", s.Description, s.Direction)
}

// FormatExplanation produces one sentence per contribution, in input order.
func FormatExplanation(items []ContributionItem) []Sentence {
	sentences := make([]Sentence, 0, len(items))
	for _, item := range items {
		sentences = append(sentences, Sentence{
			Feature:     item.Feature,
			Value:       item.Value,
			Description: DescribeFeature(item.Feature),
			Direction:   DirectionOf(item.Value),
		})
	}
	return sentences
}

// MarkdownLines is a convenience over FormatExplanation for text outputs.
func MarkdownLines(items []ContributionItem) []string {
	sentences := FormatExplanation(items)
	lines := make([]string, 0, len(sentences))
	for _, s := range sentences {
		lines = append(lines, s.Markdown())
	}
	return lines
}
