package store

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"loan-risk/internal/scoring"
)

// Assessment is one completed prediction for a submitted loan application. It
// holds the contribution list until the explanation is requested.
type Assessment struct {
	ID               string    `gorm:"primaryKey;size:36"`
	ApplicationJSON  string    `gorm:"type:text"`
	Grade            string    `gorm:"size:8;index"`
	Purpose          string    `gorm:"size:64"`
	Tier             string    `gorm:"size:16;index"`
	ExplanationJSON  string    `gorm:"type:text"`
	CreatedAt        time.Time `gorm:"index"`
	LoanAmount       float64
	Probability      float64
	Percentage       float64
	ProcessingTimeMs int64
}

// SetExplanation persists the contribution list as JSON. The record is left
// unchanged when the list cannot be encoded.
func (a *Assessment) SetExplanation(items []scoring.ContributionItem) error {
	if items == nil {
		a.ExplanationJSON = "[]"
		return nil
	}
	payload, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode explanation: %w", err)
	}
	a.ExplanationJSON = string(payload)
	return nil
}

// Explanation returns the stored contributions in their original order.
func (a *Assessment) Explanation() []scoring.ContributionItem {
	if strings.TrimSpace(a.ExplanationJSON) == "" {
		return []scoring.ContributionItem{}
	}
	var out []scoring.ContributionItem
	if err := json.Unmarshal([]byte(a.ExplanationJSON), &out); err != nil || out == nil {
		return []scoring.ContributionItem{}
	}
	return out
}

// SetApplication stores the submitted form values.
func (a *Assessment) SetApplication(app any) error {
	payload, err := json.Marshal(app)
	if err != nil {
		return fmt.Errorf("encode application: %w", err)
	}
	a.ApplicationJSON = string(payload)
	return nil
}

// DecodeApplication unmarshals the stored form values into dst.
func (a *Assessment) DecodeApplication(dst any) error {
	if strings.TrimSpace(a.ApplicationJSON) == "" {
		return nil
	}
	return json.Unmarshal([]byte(a.ApplicationJSON), dst)
}
