package services

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/custodia-labs/finlit/internal/core/domain"
	"github.com/custodia-labs/finlit/internal/core/ports/driving"
)

// Ensure QueryRouter implements the interface.
var _ driving.QueryRouter = (*QueryRouter)(nil)

var (
	percentPattern = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*%`)
	yearsPattern   = regexp.MustCompile(`(\d+)\s*(?:year|yr)`)
)

// QueryRouter sends queries to calculators using lexical triggers.
// It never fails: a query that does not carry enough amounts for its
// calculator is classified as needing no calculation.
type QueryRouter struct {
	rules  domain.RouterRules
	amount *regexp.Regexp
}

// NewQueryRouter compiles the routing rules.
func NewQueryRouter(rules domain.RouterRules) (*QueryRouter, error) {
	amount, err := regexp.Compile(rules.AmountPattern)
	if err != nil {
		return nil, fmt.Errorf("%w: router amount pattern: %v", domain.ErrConfiguration, err)
	}
	if amount.NumSubexp() < 1 {
		return nil, fmt.Errorf("%w: router amount pattern needs a capture group", domain.ErrConfiguration)
	}
	return &QueryRouter{rules: rules, amount: amount}, nil
}

// Classify extracts the calculation kind and its parameters.
func (r *QueryRouter) Classify(query string) domain.Classification {
	q := strings.ToLower(query)
	amounts := r.amounts(q)

	if containsAny(q, r.rules.CompoundTriggers) {
		c := domain.Classification{
			Kind:      domain.CalculationCompoundInterest,
			Principal: r.rules.DefaultPrincipal,
			Rate:      r.rules.DefaultRate,
			Years:     r.rules.DefaultYears,
		}
		if len(amounts) > 0 {
			c.Principal = amounts[0]
		}
		if len(amounts) > 1 {
			c.Monthly = amounts[1]
		}
		if m := percentPattern.FindStringSubmatch(q); m != nil {
			if rate, err := strconv.ParseFloat(m[1], 64); err == nil {
				c.Rate = rate
			}
		}
		if m := yearsPattern.FindStringSubmatch(q); m != nil {
			if years, err := strconv.Atoi(m[1]); err == nil {
				c.Years = domain.ClampYears(years)
			}
		}
		return c
	}

	if containsAny(q, r.rules.BudgetTriggers) && len(amounts) >= 1 {
		return domain.Classification{Kind: domain.CalculationBudget, Income: amounts[0]}
	}

	if containsAny(q, r.rules.DebtTriggers) && len(amounts) >= 2 {
		return domain.Classification{Kind: domain.CalculationDebtRatio, Income: amounts[0], Debt: amounts[1]}
	}

	return domain.Classification{Kind: domain.CalculationNone}
}

// amounts returns every currency amount in q, in order of appearance.
func (r *QueryRouter) amounts(q string) []float64 {
	var out []float64
	for _, m := range r.amount.FindAllStringSubmatch(q, -1) {
		v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
		if err != nil {
			continue
		}
		out = append(out, v)
	}
	return out
}

func containsAny(s string, terms []string) bool {
	for _, t := range terms {
		if t != "" && strings.Contains(s, strings.ToLower(t)) {
			return true
		}
	}
	return false
}
