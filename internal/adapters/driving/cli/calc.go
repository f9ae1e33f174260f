package cli

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/finlit/internal/calculators"
	"github.com/custodia-labs/finlit/internal/core/domain"
)

var (
	calcJSON      bool
	calcPrincipal float64
	calcRate      float64
	calcYears     int
	calcMonthly   float64
)

var calcCmd = &cobra.Command{
	Use:   "calc",
	Short: "Run a financial calculator",
	Long: `Runs one of the exact calculators used to ground answers. No model or
knowledge base is needed.`,
}

var calcCompoundCmd = &cobra.Command{
	Use:   "compound",
	Short: "Compound interest with optional monthly contributions",
	Long: `Grows a principal at an annual rate compounded yearly, plus monthly
contributions compounded monthly.

Example:
  finlit calc compound --principal 1000 --rate 5 --years 10 --monthly 100`,
	Args: cobra.NoArgs,
	RunE: runCalcCompound,
}

var calcBudgetCmd = &cobra.Command{
	Use:   "budget <monthly-income>",
	Short: "Split income with the 50/30/20 rule",
	Args:  cobra.ExactArgs(1),
	RunE:  runCalcBudget,
}

var calcDebtCmd = &cobra.Command{
	Use:   "debt <monthly-income> <monthly-debt-payments>",
	Short: "Debt-to-income ratio and assessment",
	Args:  cobra.ExactArgs(2),
	RunE:  runCalcDebt,
}

func init() {
	calcCmd.PersistentFlags().BoolVar(&calcJSON, "json", false, "output the result as JSON")

	calcCompoundCmd.Flags().Float64VarP(&calcPrincipal, "principal", "p", 1000, "starting amount")
	calcCompoundCmd.Flags().Float64VarP(&calcRate, "rate", "r", 5, "annual interest rate in percent")
	calcCompoundCmd.Flags().IntVarP(&calcYears, "years", "y", 10, "number of years")
	calcCompoundCmd.Flags().Float64VarP(&calcMonthly, "monthly", "m", 0, "monthly contribution")

	calcCmd.AddCommand(calcCompoundCmd)
	calcCmd.AddCommand(calcBudgetCmd)
	calcCmd.AddCommand(calcDebtCmd)
	rootCmd.AddCommand(calcCmd)
}

// parseAmount accepts plain numbers with optional thousands separators
// and an optional RM prefix.
func parseAmount(raw string) (float64, error) {
	s := strings.TrimSpace(strings.ToLower(raw))
	s = strings.TrimPrefix(s, "rm")
	s = strings.ReplaceAll(s, ",", "")
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not an amount", domain.ErrInvalidInput, raw)
	}
	if v < 0 {
		return 0, fmt.Errorf("%w: amount must not be negative, got %s", domain.ErrInvalidInput, raw)
	}
	return v, nil
}

func printCalcJSON(cmd *cobra.Command, result *domain.CalculationResult) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	cmd.Println(string(data))
	return nil
}

func runCalcCompound(cmd *cobra.Command, _ []string) error {
	if calcPrincipal < 0 || calcMonthly < 0 || calcYears < 0 {
		return fmt.Errorf("%w: principal, monthly and years must not be negative", domain.ErrInvalidInput)
	}

	r := calculators.CompoundInterest(calcPrincipal, calcRate, calcYears, calcMonthly)
	if calcJSON {
		return printCalcJSON(cmd, &domain.CalculationResult{Kind: domain.CalculationCompoundInterest, CompoundInterest: &r})
	}

	cmd.Printf("Principal:          RM%.2f\n", r.Inputs.Principal)
	cmd.Printf("Annual rate:        %g%%\n", r.Inputs.Rate)
	cmd.Printf("Years:              %d\n", r.Inputs.Years)
	cmd.Printf("Monthly deposit:    RM%.2f\n", r.Inputs.Monthly)
	cmd.Println()
	cmd.Printf("Final amount:       RM%.2f\n", r.FinalAmount)
	cmd.Printf("Total contributed:  RM%.2f\n", r.TotalContributed)
	cmd.Printf("Interest earned:    RM%.2f\n", r.InterestEarned)
	return nil
}

func runCalcBudget(cmd *cobra.Command, args []string) error {
	income, err := parseAmount(args[0])
	if err != nil {
		return err
	}

	r := calculators.Budget(income)
	if calcJSON {
		return printCalcJSON(cmd, &domain.CalculationResult{Kind: domain.CalculationBudget, Budget: &r})
	}

	cmd.Printf("Monthly income:     RM%.2f\n", r.Income)
	cmd.Println()
	cmd.Printf("Needs (50%%):        RM%.2f\n", r.Needs)
	cmd.Printf("Wants (30%%):        RM%.2f\n", r.Wants)
	cmd.Printf("Savings (20%%):      RM%.2f\n", r.Savings)
	return nil
}

func runCalcDebt(cmd *cobra.Command, args []string) error {
	income, err := parseAmount(args[0])
	if err != nil {
		return err
	}
	debt, err := parseAmount(args[1])
	if err != nil {
		return err
	}

	r := calculators.DebtRatio(income, debt)
	if calcJSON {
		return printCalcJSON(cmd, &domain.CalculationResult{Kind: domain.CalculationDebtRatio, DebtRatio: &r})
	}

	cmd.Printf("Monthly income:     RM%.2f\n", r.Income)
	cmd.Printf("Debt payments:      RM%.2f\n", r.Debt)
	cmd.Println()
	cmd.Printf("Debt-to-income:     %.1f%% (%s)\n", r.Ratio, r.Status)
	cmd.Println(r.Advice)
	return nil
}
