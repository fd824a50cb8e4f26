package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"loan-risk/internal/predict"
	"loan-risk/internal/scoring"
	"loan-risk/internal/store"
)

func main() {
	var (
		baseURL     = flag.String("predict-url", envOr("LOAN_RISK_PREDICT_BASE_URL", predict.DefaultBaseURL), "Prediction service base URL")
		timeout     = flag.Duration("timeout", 30*time.Second, "Prediction request timeout")
		maxItems    = flag.Int("max-explanations", 0, "Keep only the first N contributions (0 keeps all)")
		dbPath      = flag.String("db", "", "Optional SQLite database to record the assessment in")
		history     = flag.Int("history", 0, "List the N most recent assessments from -db instead of predicting")
		loanAmount  = flag.Float64("loan-amnt", 10000, "Requested loan amount")
		intRate     = flag.Float64("int-rate", 12.5, "Interest rate in percent")
		installment = flag.Float64("installment", 335, "Monthly installment")
		annualInc   = flag.Float64("annual-inc", 60000, "Annual income")
		dti         = flag.Float64("dti", 15, "Debt-to-income ratio")
		grade       = flag.String("grade", "B", "Loan grade (A-G)")
		empLength   = flag.String("emp-length", "10+ years", "Employment length")
		ownership   = flag.String("home-ownership", "MORTGAGE", "Home ownership (RENT, OWN, MORTGAGE, OTHER)")
		verified    = flag.String("verification-status", "Verified", "Income verification status")
		purpose     = flag.String("purpose", "debt_consolidation", "Loan purpose")
		title       = flag.String("title", "", "Free-text loan title")
	)
	flag.Parse()

	var db *store.Database
	if strings.TrimSpace(*dbPath) != "" {
		opened, err := store.Open(*dbPath, true)
		if err != nil {
			logrus.Fatalf("open database: %v", err)
		}
		db = opened
		defer func() {
			if cerr := db.Close(); cerr != nil {
				logrus.WithError(cerr).Warn("close database")
			}
		}()
	}

	if *history > 0 {
		if db == nil {
			logrus.Fatal("-history requires -db")
		}
		if err := printHistory(os.Stdout, db, *history); err != nil {
			logrus.Fatalf("list assessments: %v", err)
		}
		return
	}

	client, err := predict.NewClient(predict.Config{
		BaseURL:         *baseURL,
		Timeout:         *timeout,
		CacheTTL:        -1,
		MaxExplanations: *maxItems,
	})
	if err != nil {
		logrus.Fatalf("prediction client: %v", err)
	}

	app := predict.LoanApplication{
		LoanAmount:         *loanAmount,
		InterestRate:       *intRate,
		Installment:        *installment,
		AnnualIncome:       *annualInc,
		DebtToIncome:       *dti,
		Grade:              strings.ToUpper(strings.TrimSpace(*grade)),
		EmploymentLength:   *empLength,
		HomeOwnership:      strings.ToUpper(strings.TrimSpace(*ownership)),
		VerificationStatus: *verified,
		Purpose:            *purpose,
		Title:              *title,
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout+5*time.Second)
	defer cancel()

	start := time.Now()
	result, err := client.Predict(ctx, app)
	if err != nil {
		logrus.WithError(err).WithField("endpoint", client.Endpoint()).Error("prediction failed")
		fmt.Fprintln(os.Stderr, "Error: Could not get a prediction. Please ensure the API server is running.")
		os.Exit(1)
	}

	reading := scoring.NewGauge(result.DefaultProbability)
	printAssessment(os.Stdout, reading, result.Explanation)

	if db != nil {
		record := &store.Assessment{
			Grade:            app.Grade,
			Purpose:          app.Purpose,
			LoanAmount:       app.LoanAmount,
			Probability:      reading.Probability,
			Percentage:       reading.Percentage,
			Tier:             string(reading.Tier),
			ProcessingTimeMs: time.Since(start).Milliseconds(),
		}
		if err := record.SetApplication(app); err != nil {
			logrus.Fatalf("encode assessment: %v", err)
		}
		if err := record.SetExplanation(result.Explanation); err != nil {
			logrus.Fatalf("encode assessment: %v", err)
		}
		if err := db.SaveAssessment(record); err != nil {
			logrus.Fatalf("save assessment: %v", err)
		}
		logrus.WithField("assessment", record.ID).Info("assessment recorded")
	}
}

func printAssessment(w io.Writer, reading scoring.GaugeReading, items []scoring.ContributionItem) {
	fmt.Fprintf(w, "Default probability: %s (%s)\n", reading.DisplayText, reading.TierLabel)
	fmt.Fprintf(w, "Gauge rotation: %.2f deg\n", reading.Rotation)
	lines := scoring.MarkdownLines(items)
	if len(lines) == 0 {
		return
	}
	fmt.Fprintln(w, "Explanation:")
	for _, line := range lines {
		fmt.Fprintf(w, "  - %s\n", line)
	}
}

func printHistory(w io.Writer, db *store.Database, limit int) error {
	rows, total, err := db.ListAssessments(0, limit)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%d of %d assessments\n", len(rows), total)
	for _, row := range rows {
		reading := scoring.NewGauge(row.Probability)
		fmt.Fprintf(w, "%s  %s  %-11s  grade=%s  amount=%.0f  %s\n",
			row.CreatedAt.Format(time.RFC3339), row.ID, reading.TierLabel, row.Grade, row.LoanAmount, reading.DisplayText)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
