package predict

import "loan-risk/internal/scoring"

// LoanApplication is the request body accepted by the prediction service.
type LoanApplication struct {
	LoanAmount         float64 `json:"loan_amnt" form:"loan_amnt" binding:"required,gt=0"`
	InterestRate       float64 `json:"int_rate" form:"int_rate" binding:"gte=0"`
	Installment        float64 `json:"installment" form:"installment" binding:"gte=0"`
	AnnualIncome       float64 `json:"annual_inc" form:"annual_inc" binding:"gte=0"`
	DebtToIncome       float64 `json:"dti" form:"dti" binding:"gte=0"`
	Grade              string  `json:"grade" form:"grade" binding:"required"`
	EmploymentLength   string  `json:"emp_length" form:"emp_length" binding:"required"`
	HomeOwnership      string  `json:"home_ownership" form:"home_ownership" binding:"required"`
	VerificationStatus string  `json:"verification_status" form:"verification_status" binding:"required"`
	Purpose            string  `json:"purpose" form:"purpose" binding:"required"`
	Title              string  `json:"title" form:"title"`
}

// PredictionResult is the decoded prediction service response.
type PredictionResult struct {
	DefaultProbability float64                    `json:"default_probability"`
	Explanation        []scoring.ContributionItem `json:"explanation"`
}

func (r PredictionResult) clone() PredictionResult {
	out := PredictionResult{DefaultProbability: r.DefaultProbability}
	out.Explanation = make([]scoring.ContributionItem, len(r.Explanation))
	copy(out.Explanation, r.Explanation)
	return out
}
