package models

import (
	"encoding/json"
	"strings"
	"time"
)

// MonthlySummary holds one statement month of aggregated figures.
// Null numbers from the backend decode as zero.
type MonthlySummary struct {
	TotalDeposits             float64 `json:"total_deposits"`
	TotalWithdrawals          float64 `json:"total_withdrawals"`
	AverageBalance            float64 `json:"average_balance"`
	NetSavings                float64 `json:"net_savings"`
	RentMortgagePayments      float64 `json:"rent_mortgage_payments"`
	UtilityPayments           float64 `json:"utility_payments"`
	LoanPayments              float64 `json:"loan_payments"`
	RentMortgageToIncomeRatio float64 `json:"rent_mortgage_to_income_ratio"`
	UtilitiesToIncomeRatio    float64 `json:"utilities_to_income_ratio"`
	LoanToIncomeRatio         float64 `json:"loan_to_income_ratio"`
	YearMonth                 string  `json:"YearMonth"`
}

// Period returns the summary month as YYYY-MM, or "" when the backend did
// not send a parseable date.
func (m MonthlySummary) Period() string {
	ym := strings.TrimSpace(m.YearMonth)
	for _, layout := range []string{"2006-01-02", "2006-01", time.RFC3339} {
		if t, err := time.Parse(layout, ym); err == nil {
			return t.Format("2006-01")
		}
	}
	return ""
}

// Transaction is one categorized statement line.
type Transaction struct {
	Date        string  `json:"Date"`
	Description string  `json:"Description"`
	Amount      float64 `json:"Amount"`
	Category    string  `json:"Category"`
}

// UnmarshalJSON accepts the backend's Transaction_Details as the description.
func (t *Transaction) UnmarshalJSON(data []byte) error {
	type plain Transaction
	var raw struct {
		plain
		Details string `json:"Transaction_Details"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*t = Transaction(raw.plain)
	if t.Description == "" {
		t.Description = raw.Details
	}
	return nil
}

// StatementAnalysis is the backend's full analysis of one statement.
type StatementAnalysis struct {
	CountryCode            string           `json:"country_code"`
	BankName               string           `json:"bank_name"`
	StatementYear          int              `json:"statement_year"`
	StatementPDFBlob       string           `json:"statement_pdf_blob"`
	MonthlyDepositMean     float64          `json:"monthly_deposit_mean"`
	MonthlyWithdrawalMean  float64          `json:"monthly_withdrawal_mean"`
	MonthlyRentMean        float64          `json:"monthly_rent_mean"`
	MonthlyUtilitiesMean   float64          `json:"monthly_utilities_mean"`
	MonthlyLoanPaymentMean float64          `json:"monthly_loan_payment_mean"`
	MonthlyBalanceMean     float64          `json:"monthly_balance_mean"`
	MonthlySummary         []MonthlySummary `json:"monthly_summary"`
	Transactions           []Transaction    `json:"transactions"`
	ForAgainst             string           `json:"for_against"`
	ReasonsFor             []string         `json:"reasons_for,omitempty"`
	ReasonsAgainst         []string         `json:"reasons_against,omitempty"`
	LoanDecision           *LoanDecision    `json:"loan_decision" validate:"required,oneof=0 1"`
}

// Approved reports whether the backend approved the loan.
func (s *StatementAnalysis) Approved() bool {
	return s != nil && s.LoanDecision != nil && *s.LoanDecision == DecisionApproved
}

// HasStructuredReasons reports whether the backend sent pre-split reasons.
func (s *StatementAnalysis) HasStructuredReasons() bool {
	return len(s.ReasonsFor) > 0 || len(s.ReasonsAgainst) > 0
}

// FetchResponse is the prediction endpoint's envelope. The ref is required
// later to confirm the decision.
type FetchResponse struct {
	StatementAnalysis    *StatementAnalysis `json:"statement_analysis" validate:"required"`
	StatementAnalysisRef string             `json:"statement_analysis_ref" validate:"required,notblank"`
}

// UnmarshalJSON also accepts "statement_ref", which older backends emit.
func (f *FetchResponse) UnmarshalJSON(data []byte) error {
	type plain FetchResponse
	var raw struct {
		plain
		StatementRef string `json:"statement_ref"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*f = FetchResponse(raw.plain)
	if f.StatementAnalysisRef == "" {
		f.StatementAnalysisRef = raw.StatementRef
	}
	return nil
}
