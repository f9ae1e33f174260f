// Package calculators holds the deterministic finance formulas whose
// results are handed to the language model as exact numbers.
//
// All functions are pure, never error and round their outputs.
package calculators

import (
	"math"

	"github.com/custodia-labs/finlit/internal/core/domain"
)

// Debt ratio band limits, inclusive upper bounds in percent.
const (
	healthyLimit  = 30
	moderateLimit = 40
	highLimit     = 50
)

// Budget shares of the 50/30/20 rule.
const (
	needsShare   = 0.50
	wantsShare   = 0.30
	savingsShare = 0.20
)

// CompoundInterest projects principal growing at an annual rate
// (percent, compounded yearly) plus a monthly contribution
// compounded monthly at rate/12. Years is clamped to
// domain.MaxProjectionYears.
func CompoundInterest(principal, rate float64, years int, monthly float64) domain.CompoundInterestResult {
	years = domain.ClampYears(years)
	growth := principal * math.Pow(1+rate/100, float64(years))

	months := float64(years * 12)
	var contributions float64
	if monthly > 0 {
		mr := rate / 100 / 12
		if mr == 0 {
			contributions = monthly * months
		} else {
			contributions = monthly * ((math.Pow(1+mr, months) - 1) / mr)
		}
	}

	final := growth + contributions
	contributed := principal + monthly*months

	return domain.CompoundInterestResult{
		Inputs: domain.CompoundInterestInputs{
			Principal: principal,
			Rate:      rate,
			Years:     years,
			Monthly:   monthly,
		},
		FinalAmount:      round(final, 2),
		TotalContributed: round(contributed, 2),
		InterestEarned:   round(final-contributed, 2),
	}
}

// Budget splits a monthly income by the 50/30/20 rule.
func Budget(income float64) domain.BudgetResult {
	return domain.BudgetResult{
		Income:  income,
		Needs:   round(income*needsShare, 2),
		Wants:   round(income*wantsShare, 2),
		Savings: round(income*savingsShare, 2),
	}
}

// DebtRatio computes monthly debt payments as a percentage of income
// and bands the unrounded ratio.
func DebtRatio(income, debt float64) domain.DebtRatioResult {
	var ratio float64
	if income > 0 {
		ratio = debt / income * 100
	}

	status, advice := debtBand(ratio)
	return domain.DebtRatioResult{
		Income: income,
		Debt:   debt,
		Ratio:  round(ratio, 1),
		Status: status,
		Advice: advice,
	}
}

func debtBand(ratio float64) (status, advice string) {
	switch {
	case ratio <= healthyLimit:
		return domain.DebtStatusHealthy, "Your debt level is manageable."
	case ratio <= moderateLimit:
		return domain.DebtStatusModerate, "Be cautious about taking new debt."
	case ratio <= highLimit:
		return domain.DebtStatusHigh, "Prioritize debt repayment."
	default:
		return domain.DebtStatusCritical, "Consider seeking financial counseling (AKPK)."
	}
}

// Run dispatches a classification to its calculator.
// Returns nil when the classification is not a calculation.
func Run(c domain.Classification) *domain.CalculationResult {
	switch c.Kind {
	case domain.CalculationCompoundInterest:
		r := CompoundInterest(c.Principal, c.Rate, c.Years, c.Monthly)
		return &domain.CalculationResult{Kind: c.Kind, CompoundInterest: &r}
	case domain.CalculationBudget:
		r := Budget(c.Income)
		return &domain.CalculationResult{Kind: c.Kind, Budget: &r}
	case domain.CalculationDebtRatio:
		r := DebtRatio(c.Income, c.Debt)
		return &domain.CalculationResult{Kind: c.Kind, DebtRatio: &r}
	default:
		return nil
	}
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
