// Package report derives display-ready chart series, tables and cards from a
// statement analysis.
package report

import (
	"errors"
	"fmt"

	"github.com/bobmcallan/loan-portal/internal/common"
	"github.com/bobmcallan/loan-portal/internal/models"
	"github.com/bobmcallan/loan-portal/internal/reasons"
)

// ErrMonthOutOfRange is returned when a month index does not address a
// summary in the statement.
var ErrMonthOutOfRange = errors.New("month index out of range")

const (
	HeadlineApproved = "Congrats! Your loan is approved."
	HeadlineDeclined = "Unfortunately, we are not able to approve your loan at this time."
)

// FlowPoint is one month of the deposits/withdrawals chart.
type FlowPoint struct {
	Month       int     `json:"month"`
	Label       string  `json:"label"`
	Deposits    float64 `json:"deposits"`
	Withdrawals float64 `json:"withdrawals"`
}

// ExpensePoint is one month of the expense categories chart.
type ExpensePoint struct {
	Month        int     `json:"month"`
	Label        string  `json:"label"`
	RentMortgage float64 `json:"rent_mortgage"`
	Utilities    float64 `json:"utilities"`
	Loans        float64 `json:"loans"`
}

// BalancePoint is one month of the balance trend chart.
type BalancePoint struct {
	Month          int     `json:"month"`
	Label          string  `json:"label"`
	AverageBalance float64 `json:"average_balance"`
}

// BarItem is one bar of the per-month breakdown. Negative is set when the
// value is a shortfall rather than an amount.
type BarItem struct {
	Name     string  `json:"name"`
	Value    float64 `json:"value"`
	Display  string  `json:"display"`
	Negative bool    `json:"negative"`
}

// Decision is the rendered verdict.
type Decision struct {
	Approved bool   `json:"approved"`
	Headline string `json:"headline"`
}

// Card is a labelled headline figure.
type Card struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// MonthRow is one row of the monthly table, pre-formatted.
type MonthRow struct {
	Month          int    `json:"month"`
	Label          string `json:"label"`
	Deposits       string `json:"deposits"`
	Withdrawals    string `json:"withdrawals"`
	AverageBalance string `json:"average_balance"`
	NetSavings     string `json:"net_savings"`
	RentMortgage   string `json:"rent_mortgage"`
	Utilities      string `json:"utilities"`
	Loans          string `json:"loans"`
	RentRatio      string `json:"rent_ratio"`
	UtilitiesRatio string `json:"utilities_ratio"`
	LoanRatio      string `json:"loan_ratio"`
}

// TransactionRow is one pre-formatted transaction.
type TransactionRow struct {
	Date        string `json:"date"`
	Description string `json:"description"`
	Amount      string `json:"amount"`
	Category    string `json:"category"`
	Negative    bool   `json:"negative"`
}

// Report is the complete view model for one statement.
type Report struct {
	BankName            string           `json:"bank_name"`
	CountryCode         string           `json:"country_code"`
	StatementYear       int              `json:"statement_year"`
	StorageKey          string           `json:"storage_key"`
	Decision            Decision         `json:"decision"`
	Summary             []Card           `json:"summary"`
	DepositsWithdrawals []FlowPoint      `json:"deposits_withdrawals"`
	Expenses            []ExpensePoint   `json:"expenses"`
	Balance             []BalancePoint   `json:"balance"`
	Months              []MonthRow       `json:"months"`
	Reasons             reasons.Reasons  `json:"reasons"`
	Transactions        []TransactionRow `json:"transactions"`

	summaries []models.MonthlySummary
}

// Derive builds a Report using the default reason text parser.
func Derive(a *models.StatementAnalysis) (*Report, error) {
	return DeriveWith(a, reasons.NewTextParser())
}

// DeriveWith builds a Report, parsing free-text reasons with p when the
// analysis carries no structured reasons.
func DeriveWith(a *models.StatementAnalysis, p reasons.Parser) (*Report, error) {
	if a == nil {
		return nil, fmt.Errorf("derive report: nil analysis")
	}

	summaries := make([]models.MonthlySummary, len(a.MonthlySummary))
	copy(summaries, a.MonthlySummary)

	r := &Report{
		BankName:            a.BankName,
		CountryCode:         a.CountryCode,
		StatementYear:       a.StatementYear,
		StorageKey:          a.StatementPDFBlob,
		Decision:            decisionFor(a),
		DepositsWithdrawals: make([]FlowPoint, 0, len(summaries)),
		Expenses:            make([]ExpensePoint, 0, len(summaries)),
		Balance:             make([]BalancePoint, 0, len(summaries)),
		Months:              make([]MonthRow, 0, len(summaries)),
		Transactions:        make([]TransactionRow, 0, len(a.Transactions)),
		summaries:           summaries,
	}

	money := func(v float64) string { return common.FormatMoneyForCountry(v, a.CountryCode) }

	for i, m := range summaries {
		month := i + 1
		label := monthLabel(m, month)
		r.DepositsWithdrawals = append(r.DepositsWithdrawals, FlowPoint{
			Month:       month,
			Label:       label,
			Deposits:    m.TotalDeposits,
			Withdrawals: -m.TotalWithdrawals,
		})
		r.Expenses = append(r.Expenses, ExpensePoint{
			Month:        month,
			Label:        label,
			RentMortgage: -m.RentMortgagePayments,
			Utilities:    -m.UtilityPayments,
			Loans:        -m.LoanPayments,
		})
		r.Balance = append(r.Balance, BalancePoint{
			Month:          month,
			Label:          label,
			AverageBalance: m.AverageBalance,
		})
		r.Months = append(r.Months, MonthRow{
			Month:          month,
			Label:          label,
			Deposits:       money(m.TotalDeposits),
			Withdrawals:    money(m.TotalWithdrawals),
			AverageBalance: money(m.AverageBalance),
			NetSavings:     money(m.NetSavings),
			RentMortgage:   money(m.RentMortgagePayments),
			Utilities:      money(m.UtilityPayments),
			Loans:          money(m.LoanPayments),
			RentRatio:      common.FormatRatio(m.RentMortgageToIncomeRatio),
			UtilitiesRatio: common.FormatRatio(m.UtilitiesToIncomeRatio),
			LoanRatio:      common.FormatRatio(m.LoanToIncomeRatio),
		})
	}

	r.Summary = []Card{
		{Label: "Bank Name", Value: a.BankName},
		{Label: "Monthly Deposit Mean", Value: money(a.MonthlyDepositMean)},
		{Label: "Monthly Withdrawal Mean", Value: money(a.MonthlyWithdrawalMean)},
		{Label: "Monthly Balance Mean", Value: money(a.MonthlyBalanceMean)},
		{Label: "Monthly Rent Mean", Value: money(a.MonthlyRentMean)},
		{Label: "Monthly Utilities Mean", Value: money(a.MonthlyUtilitiesMean)},
		{Label: "Monthly Loan Payment Mean", Value: money(a.MonthlyLoanPaymentMean)},
	}

	if a.HasStructuredReasons() {
		r.Reasons = reasons.FromStructured(a.ReasonsFor, a.ReasonsAgainst)
	} else if p != nil {
		r.Reasons = p.Parse(a.ForAgainst)
	}

	for _, t := range a.Transactions {
		r.Transactions = append(r.Transactions, TransactionRow{
			Date:        t.Date,
			Description: t.Description,
			Amount:      money(t.Amount),
			Category:    t.Category,
			Negative:    t.Amount < 0,
		})
	}

	return r, nil
}

func decisionFor(a *models.StatementAnalysis) Decision {
	if a.Approved() {
		return Decision{Approved: true, Headline: HeadlineApproved}
	}
	return Decision{Approved: false, Headline: HeadlineDeclined}
}

func monthLabel(m models.MonthlySummary, month int) string {
	if p := m.Period(); p != "" {
		return p
	}
	return fmt.Sprintf("Month %d", month)
}

// MonthCount returns the number of statement months.
func (r *Report) MonthCount() int {
	return len(r.summaries)
}

// ClampMonth maps any index into the valid range. It returns 0 when the
// statement has no months.
func (r *Report) ClampMonth(index int) int {
	switch {
	case len(r.summaries) == 0, index < 0:
		return 0
	case index >= len(r.summaries):
		return len(r.summaries) - 1
	default:
		return index
	}
}

// BarListForMonth returns the breakdown of the month at the zero-based
// index. Deposits and outflows are magnitudes so bars are comparable; net
// savings keeps its sign.
func (r *Report) BarListForMonth(index int) ([]BarItem, error) {
	if index < 0 || index >= len(r.summaries) {
		return nil, fmt.Errorf("%w: %d not in [0,%d)", ErrMonthOutOfRange, index, len(r.summaries))
	}
	m := r.summaries[index]
	items := []BarItem{
		r.magnitude("Deposits", m.TotalDeposits),
		r.magnitude("Withdrawals", m.TotalWithdrawals),
		r.magnitude("Rent / Mortgage", m.RentMortgagePayments),
		r.magnitude("Utilities", m.UtilityPayments),
		r.magnitude("Loan Payments", m.LoanPayments),
		{
			Name:     "Net Savings",
			Value:    m.NetSavings,
			Display:  common.FormatMoneyForCountry(m.NetSavings, r.CountryCode),
			Negative: m.NetSavings < 0,
		},
	}
	return items, nil
}

// BarLists returns the breakdown of every month, in statement order.
func (r *Report) BarLists() [][]BarItem {
	out := make([][]BarItem, 0, len(r.summaries))
	for i := range r.summaries {
		items, _ := r.BarListForMonth(i)
		out = append(out, items)
	}
	return out
}

func (r *Report) magnitude(name string, v float64) BarItem {
	if v < 0 {
		v = -v
	}
	return BarItem{Name: name, Value: v, Display: common.FormatMoneyForCountry(v, r.CountryCode)}
}
