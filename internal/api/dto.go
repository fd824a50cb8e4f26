package api

import (
	"time"

	"loan-risk/internal/predict"
	"loan-risk/internal/scoring"
	"loan-risk/internal/store"
)

// PredictResponse is returned after a successful assessment.
type PredictResponse struct {
	AssessmentID string               `json:"assessment_id"`
	Gauge        scoring.GaugeReading `json:"gauge"`
	Explanations int                  `json:"explanation_count"`
}

// AssessmentDTO is the API representation of a stored assessment.
type AssessmentDTO struct {
	ID               string                   `json:"id"`
	Application      *predict.LoanApplication `json:"application,omitempty"`
	Gauge            scoring.GaugeReading     `json:"gauge"`
	ProcessingTimeMs int64                    `json:"processing_time_ms"`
	CreatedAt        time.Time                `json:"created_at"`
}

// AssessmentsResponse holds a page of assessments.
type AssessmentsResponse struct {
	Items []AssessmentDTO `json:"items"`
	Total int64           `json:"total"`
}

// SentenceDTO is one explanation sentence in every supported markup.
type SentenceDTO struct {
	Feature     string            `json:"feature"`
	Value       float64           `json:"value"`
	Description string            `json:"description"`
	Direction   scoring.Direction `json:"direction"`
	Text        string            `json:"text"`
	Markdown    string            `json:"markdown"`
	HTML        string            `json:"html"`
}

// ExplanationResponse lists the formatted sentences for an assessment.
type ExplanationResponse struct {
	AssessmentID string        `json:"assessment_id"`
	Sentences    []SentenceDTO `json:"sentences"`
}

// TierDTO describes one risk band.
type TierDTO struct {
	Tier       scoring.RiskTier `json:"tier"`
	Label      string           `json:"label"`
	ColorToken string           `json:"color_token"`
	Color      string           `json:"color"`
	MinPercent float64          `json:"min_percent"`
}

// AssessmentFromModel converts the persistence model, recomputing the gauge from the stored probability.
func AssessmentFromModel(model store.Assessment) AssessmentDTO {
	dto := AssessmentDTO{
		ID:               model.ID,
		Gauge:            scoring.NewGauge(model.Probability),
		ProcessingTimeMs: model.ProcessingTimeMs,
		CreatedAt:        model.CreatedAt,
	}
	var app predict.LoanApplication
	if model.ApplicationJSON != "" {
		if err := model.DecodeApplication(&app); err == nil {
			dto.Application = &app
		}
	}
	return dto
}

// SentencesFromItems formats contributions for the API.
func SentencesFromItems(items []scoring.ContributionItem) []SentenceDTO {
	sentences := scoring.FormatExplanation(items)
	out := make([]SentenceDTO, 0, len(sentences))
	for _, s := range sentences {
		out = append(out, SentenceDTO{
			Feature:     s.Feature,
			Value:       s.Value,
			Description: s.Description,
			Direction:   s.Direction,
			Text:        s.String(),
			Markdown:    s.Markdown(),
			HTML:        s.HTML(),
		})
	}
	return out
}
