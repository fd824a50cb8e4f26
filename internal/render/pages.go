package render

import (
	"embed"
	"html/template"

	"loan-risk/internal/predict"
	"loan-risk/internal/scoring"
)

//go:embed templates/*.html templates/style.css
var assets embed.FS

// Templates parses the embedded page templates.
func Templates() (*template.Template, error) {
	return template.ParseFS(assets, "templates/*.html")
}

// Stylesheet returns the embedded page stylesheet.
func Stylesheet() ([]byte, error) {
	return assets.ReadFile("templates/style.css")
}

// FormOptions lists the select choices on the application form.
type FormOptions struct {
	Grades               []string
	EmploymentLengths    []string
	HomeOwnerships       []string
	VerificationStatuses []string
	Purposes             []string
}

// DefaultFormOptions mirrors the categories the prediction model was trained on.
func DefaultFormOptions() FormOptions {
	return FormOptions{
		Grades:            []string{"A", "B", "C", "D", "E", "F", "G"},
		EmploymentLengths: []string{"< 1 year", "1 year", "2 years", "3 years", "4 years", "5 years", "6 years", "7 years", "8 years", "9 years", "10+ years"},
		HomeOwnerships:    []string{"RENT", "OWN", "MORTGAGE", "OTHER"},
		VerificationStatuses: []string{
			"Not Verified", "Source Verified", "Verified",
		},
		Purposes: []string{
			"debt_consolidation", "credit_card", "home_improvement", "major_purchase",
			"small_business", "car", "medical", "moving", "vacation", "house", "wedding", "other",
		},
	}
}

// FormView feeds index.html.
type FormView struct {
	Error   string
	Options FormOptions
	Values  predict.LoanApplication
}

// NewFormView prepares the form with sensible starting values.
func NewFormView(values *predict.LoanApplication, errMsg string) FormView {
	view := FormView{Error: errMsg, Options: DefaultFormOptions()}
	if values != nil {
		view.Values = *values
		return view
	}
	view.Values = predict.LoanApplication{
		LoanAmount:         10000,
		InterestRate:       12.5,
		Installment:        335,
		AnnualIncome:       60000,
		DebtToIncome:       15,
		Grade:              "B",
		EmploymentLength:   "10+ years",
		HomeOwnership:      "MORTGAGE",
		VerificationStatus: "Verified",
		Purpose:            "debt_consolidation",
	}
	return view
}

// ResultView feeds result.html.
type ResultView struct {
	AssessmentID string
	Fill         *GaugeFill
	Text         *TextNode
	Label        *TextNode
	Rendered     bool
}

// NewResultView applies the reading to fresh gauge elements.
func NewResultView(assessmentID string, reading scoring.GaugeReading) ResultView {
	view := ResultView{
		AssessmentID: assessmentID,
		Fill:         &GaugeFill{},
		Text:         &TextNode{},
		Label:        &TextNode{},
	}
	view.Rendered = ApplyGauge(view.Fill, view.Text, view.Label, reading)
	return view
}

// ExplanationView feeds explanation.html.
type ExplanationView struct {
	AssessmentID string
	DisplayText  string
	List         *SentenceList
}

// NewExplanationView formats the contributions into a fresh sentence list.
func NewExplanationView(assessmentID string, reading scoring.GaugeReading, items []scoring.ContributionItem) ExplanationView {
	view := ExplanationView{
		AssessmentID: assessmentID,
		DisplayText:  reading.DisplayText,
		List:         &SentenceList{},
	}
	ApplyExplanation(view.List, scoring.FormatExplanation(items))
	return view
}
