package report

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/loan-portal/internal/models"
)

func decision(d models.LoanDecision) *models.LoanDecision { return &d }

func sampleAnalysis() *models.StatementAnalysis {
	return &models.StatementAnalysis{
		CountryCode:        "US",
		BankName:           "Chase",
		StatementYear:      2023,
		StatementPDFBlob:   "statements/abc-statement.pdf",
		MonthlyDepositMean: 4200,
		MonthlySummary: []models.MonthlySummary{
			{TotalDeposits: 4000, TotalWithdrawals: 500, AverageBalance: 1200, RentMortgagePayments: 1500, UtilityPayments: 120, LoanPayments: 300, NetSavings: 3500, RentMortgageToIncomeRatio: 0.375, YearMonth: "2023-01-01"},
			{TotalDeposits: 4400, TotalWithdrawals: 5700, AverageBalance: 900, NetSavings: -1300},
		},
		Transactions: []models.Transaction{
			{Date: "2023-01-05", Description: "RENT", Amount: -1500, Category: "Payments - Rent"},
		},
		ForAgainst:   "Reasons for: - Stable income Reasons against: - **High** rent",
		LoanDecision: decision(models.DecisionApproved),
	}
}

func TestDerive_WithdrawalsNegated(t *testing.T) {
	a := &models.StatementAnalysis{
		MonthlySummary: []models.MonthlySummary{{TotalDeposits: 1000, TotalWithdrawals: 500}},
		LoanDecision:   decision(models.DecisionDeclined),
	}
	r, err := Derive(a)
	require.NoError(t, err)
	require.Len(t, r.DepositsWithdrawals, 1)
	assert.Equal(t, 1, r.DepositsWithdrawals[0].Month)
	assert.Equal(t, 1000.0, r.DepositsWithdrawals[0].Deposits)
	assert.Equal(t, -500.0, r.DepositsWithdrawals[0].Withdrawals)
}

func TestDerive_Series(t *testing.T) {
	r, err := Derive(sampleAnalysis())
	require.NoError(t, err)

	require.Len(t, r.Expenses, 2)
	assert.Equal(t, ExpensePoint{Month: 1, Label: "2023-01", RentMortgage: -1500, Utilities: -120, Loans: -300}, r.Expenses[0])
	assert.Equal(t, "Month 2", r.Expenses[1].Label)

	require.Len(t, r.Balance, 2)
	assert.Equal(t, 1200.0, r.Balance[0].AverageBalance)
	assert.Equal(t, 2, r.Balance[1].Month)
}

func TestDerive_PreservesOrder(t *testing.T) {
	a := sampleAnalysis()
	r, err := Derive(a)
	require.NoError(t, err)
	for i, p := range r.DepositsWithdrawals {
		assert.Equal(t, a.MonthlySummary[i].TotalDeposits, p.Deposits)
		assert.Equal(t, i+1, p.Month)
	}
}

func TestDerive_DecisionAndCards(t *testing.T) {
	r, err := Derive(sampleAnalysis())
	require.NoError(t, err)
	assert.True(t, r.Decision.Approved)
	assert.Equal(t, HeadlineApproved, r.Decision.Headline)
	assert.Equal(t, Card{Label: "Bank Name", Value: "Chase"}, r.Summary[0])
	assert.Equal(t, Card{Label: "Monthly Deposit Mean", Value: "$4,200.00"}, r.Summary[1])

	a := sampleAnalysis()
	a.LoanDecision = decision(models.DecisionDeclined)
	r, err = Derive(a)
	require.NoError(t, err)
	assert.False(t, r.Decision.Approved)
	assert.Equal(t, HeadlineDeclined, r.Decision.Headline)
}

func TestDerive_MonthRowsFormatted(t *testing.T) {
	r, err := Derive(sampleAnalysis())
	require.NoError(t, err)
	require.Len(t, r.Months, 2)
	assert.Equal(t, "$4,000.00", r.Months[0].Deposits)
	assert.Equal(t, "37.5%", r.Months[0].RentRatio)
	assert.Equal(t, "-$1,300.00", r.Months[1].NetSavings)
}

func TestDerive_Reasons(t *testing.T) {
	r, err := Derive(sampleAnalysis())
	require.NoError(t, err)
	require.Len(t, r.Reasons.Supporting, 1)
	assert.Equal(t, "Stable income", r.Reasons.Supporting[0].Text)
	require.Len(t, r.Reasons.Opposing, 1)
	assert.True(t, r.Reasons.Opposing[0].Segments[0].Emphasis)
}

func TestDerive_StructuredReasonsWin(t *testing.T) {
	a := sampleAnalysis()
	a.ReasonsFor = []string{"structured"}
	r, err := Derive(a)
	require.NoError(t, err)
	require.Len(t, r.Reasons.Supporting, 1)
	assert.Equal(t, "structured", r.Reasons.Supporting[0].Text)
	assert.Empty(t, r.Reasons.Opposing)
}

func TestDerive_Transactions(t *testing.T) {
	r, err := Derive(sampleAnalysis())
	require.NoError(t, err)
	require.Len(t, r.Transactions, 1)
	assert.Equal(t, "-$1,500.00", r.Transactions[0].Amount)
	assert.True(t, r.Transactions[0].Negative)
}

func TestDerive_NilAnalysis(t *testing.T) {
	_, err := Derive(nil)
	assert.Error(t, err)
}

func TestBarListForMonth(t *testing.T) {
	a := sampleAnalysis()
	r, err := Derive(a)
	require.NoError(t, err)

	items, err := r.BarListForMonth(1)
	require.NoError(t, err)
	require.Len(t, items, 6)
	assert.Equal(t, "Withdrawals", items[1].Name)
	assert.Equal(t, 5700.0, items[1].Value)
	assert.Equal(t, "Net Savings", items[5].Name)
	assert.Equal(t, -1300.0, items[5].Value)
	assert.Equal(t, "-$1,300.00", items[5].Display)
	assert.True(t, items[5].Negative)
	assert.Equal(t, r.Months[1].NetSavings, items[5].Display)

	// source sequence untouched
	assert.Equal(t, -1300.0, a.MonthlySummary[1].NetSavings)
}

func TestBarListForMonth_ShortfallKeepsSign(t *testing.T) {
	a := &models.StatementAnalysis{
		CountryCode: "US",
		MonthlySummary: []models.MonthlySummary{
			{TotalDeposits: 1000, TotalWithdrawals: -1200, NetSavings: -200, YearMonth: "2023-03-01"},
		},
		LoanDecision: decision(models.DecisionDeclined),
	}
	r, err := Derive(a)
	require.NoError(t, err)

	items, err := r.BarListForMonth(0)
	require.NoError(t, err)
	assert.Equal(t, 1200.0, items[1].Value)
	assert.False(t, items[1].Negative)
	assert.Equal(t, -200.0, items[5].Value)
	assert.Equal(t, "-$200.00", items[5].Display)
	assert.True(t, items[5].Negative)
	assert.Equal(t, r.Months[0].NetSavings, items[5].Display)
}

func TestBarLists_EveryMonth(t *testing.T) {
	r, err := Derive(sampleAnalysis())
	require.NoError(t, err)

	lists := r.BarLists()
	require.Len(t, lists, 2)
	second, err := r.BarListForMonth(1)
	require.NoError(t, err)
	assert.Equal(t, second, lists[1])
}

func TestBarListForMonth_OutOfRange(t *testing.T) {
	r, err := Derive(sampleAnalysis())
	require.NoError(t, err)

	for _, idx := range []int{-1, 2, 99} {
		_, err := r.BarListForMonth(idx)
		assert.True(t, errors.Is(err, ErrMonthOutOfRange), "index %d", idx)
	}
}

func TestClampMonth(t *testing.T) {
	r, err := Derive(sampleAnalysis())
	require.NoError(t, err)
	assert.Equal(t, 0, r.ClampMonth(-5))
	assert.Equal(t, 1, r.ClampMonth(1))
	assert.Equal(t, 1, r.ClampMonth(10))
	assert.Equal(t, 2, r.MonthCount())

	empty, err := Derive(&models.StatementAnalysis{})
	require.NoError(t, err)
	assert.Equal(t, 0, empty.ClampMonth(3))
	_, err = empty.BarListForMonth(0)
	assert.ErrorIs(t, err, ErrMonthOutOfRange)
}
