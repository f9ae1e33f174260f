package domain

import (
	"encoding/json"
	"fmt"
)

// CalculationKind identifies which calculator a query was routed to.
type CalculationKind string

const (
	// CalculationNone means the query needs no calculation.
	CalculationNone CalculationKind = ""

	// CalculationCompoundInterest grows a principal with optional monthly contributions.
	CalculationCompoundInterest CalculationKind = "compound_interest"

	// CalculationBudget splits income using the 50/30/20 rule.
	CalculationBudget CalculationKind = "budget"

	// CalculationDebtRatio assesses debt payments against income.
	CalculationDebtRatio CalculationKind = "debt_ratio"
)

// String returns the string representation.
func (k CalculationKind) String() string {
	if k == CalculationNone {
		return "none"
	}
	return string(k)
}

// MaxProjectionYears caps the horizon of a compound interest projection.
const MaxProjectionYears = 100

// ClampYears bounds years to [0, MaxProjectionYears].
func ClampYears(years int) int {
	return min(max(years, 0), MaxProjectionYears)
}

// Classification is the router's verdict on a query, with any
// parameters it extracted. Only the fields relevant to Kind are set.
type Classification struct {
	Kind CalculationKind

	Principal float64
	Rate      float64
	Years     int
	Monthly   float64

	Income float64
	Debt   float64
}

// IsCalculation returns true if a calculator should run.
func (c Classification) IsCalculation() bool {
	return c.Kind != CalculationNone
}

// CompoundInterestInputs are the parameters of a compound interest calculation.
type CompoundInterestInputs struct {
	Principal float64 `json:"principal"`
	Rate      float64 `json:"rate"`
	Years     int     `json:"years"`
	Monthly   float64 `json:"monthly"`
}

// CompoundInterestResult is the outcome of a compound interest calculation.
type CompoundInterestResult struct {
	Inputs           CompoundInterestInputs `json:"inputs"`
	FinalAmount      float64                `json:"final_amount"`
	TotalContributed float64                `json:"total_contributed"`
	InterestEarned   float64                `json:"interest_earned"`
}

// BudgetResult is a 50/30/20 split of income.
type BudgetResult struct {
	Income  float64 `json:"income"`
	Needs   float64 `json:"needs_50pct"`
	Wants   float64 `json:"wants_30pct"`
	Savings float64 `json:"savings_20pct"`
}

// Debt ratio status bands.
const (
	DebtStatusHealthy  = "HEALTHY"
	DebtStatusModerate = "MODERATE"
	DebtStatusHigh     = "HIGH"
	DebtStatusCritical = "CRITICAL"
)

// DebtRatioResult is a debt-to-income assessment.
type DebtRatioResult struct {
	Income float64 `json:"income"`
	Debt   float64 `json:"debt_payments"`
	Ratio  float64 `json:"ratio"`
	Status string  `json:"status"`
	Advice string  `json:"advice"`
}

// CalculationResult holds exactly one calculator outcome, selected by Kind.
type CalculationResult struct {
	Kind             CalculationKind
	CompoundInterest *CompoundInterestResult
	Budget           *BudgetResult
	DebtRatio        *DebtRatioResult
}

type compoundWire struct {
	Calculation string                 `json:"calculation"`
	Inputs      CompoundInterestInputs `json:"inputs"`
	Result      struct {
		FinalAmount      float64 `json:"final_amount"`
		TotalContributed float64 `json:"total_contributed"`
		InterestEarned   float64 `json:"interest_earned"`
	} `json:"result"`
}

type budgetWire struct {
	Calculation string  `json:"calculation"`
	Income      float64 `json:"income"`
	Breakdown   struct {
		Needs   float64 `json:"needs_50pct"`
		Wants   float64 `json:"wants_30pct"`
		Savings float64 `json:"savings_20pct"`
	} `json:"breakdown"`
}

type debtWire struct {
	Calculation string `json:"calculation"`
	DebtRatioResult
}

// MarshalJSON encodes the selected result in the layout embedded in prompts.
func (r CalculationResult) MarshalJSON() ([]byte, error) {
	switch {
	case r.Kind == CalculationCompoundInterest && r.CompoundInterest != nil:
		w := compoundWire{Calculation: "compound_interest", Inputs: r.CompoundInterest.Inputs}
		w.Result.FinalAmount = r.CompoundInterest.FinalAmount
		w.Result.TotalContributed = r.CompoundInterest.TotalContributed
		w.Result.InterestEarned = r.CompoundInterest.InterestEarned
		return json.Marshal(w)
	case r.Kind == CalculationBudget && r.Budget != nil:
		w := budgetWire{Calculation: "50_30_20_budget", Income: r.Budget.Income}
		w.Breakdown.Needs = r.Budget.Needs
		w.Breakdown.Wants = r.Budget.Wants
		w.Breakdown.Savings = r.Budget.Savings
		return json.Marshal(w)
	case r.Kind == CalculationDebtRatio && r.DebtRatio != nil:
		return json.Marshal(debtWire{Calculation: "debt_to_income", DebtRatioResult: *r.DebtRatio})
	default:
		return nil, fmt.Errorf("%w: empty calculation result of kind %q", ErrInvalidInput, r.Kind)
	}
}
