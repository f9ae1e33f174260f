package services

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/custodia-labs/finlit/internal/core/domain"
	"github.com/custodia-labs/finlit/internal/core/ports/driven"
)

// Prompt section headers.
const (
	CalculationHeader = "CALCULATION RESULT (Exact - use these numbers):"
	FactsHeader       = "VERIFIED FACTS FROM KNOWLEDGE BASE:"
	QuestionLabel     = "User Question:"
	responseCue       = "Your response (using ONLY the verified facts above):"
)

// NoInformationInstruction replaces the facts section whenever retrieval
// found nothing. It is not user-editable.
const NoInformationInstruction = `NO RELEVANT INFORMATION FOUND IN KNOWLEDGE BASE.
You MUST respond with: "I don't have specific information about this topic in my knowledge base. Please try asking about budgeting, saving, debt management, investment, insurance, tax, or retirement planning in Malaysia."`

// ResponseFormat closes every grounded prompt. It is not user-editable.
const ResponseFormat = `RESPONSE FORMAT:
- Brief introduction
- Present facts with citations: "According to [source], ..."
- If calculation provided, show the exact numbers
- End with one practical tip from the sources`

// CalculationUnavailable stands in for a calculation whose result cannot
// be encoded.
const CalculationUnavailable = "The calculation could not be computed for these inputs. Do not estimate any figures."

// PromptBuilder assembles grounded prompts. It holds no per-query state
// and is safe for concurrent use.
type PromptBuilder struct {
	rules string
}

// NewPromptBuilder loads the rules header from store.
func NewPromptBuilder(store driven.PromptStore) (*PromptBuilder, error) {
	rules, err := store.Load(driven.PromptGroundedRules)
	if err != nil {
		return nil, fmt.Errorf("load prompt %s: %w", driven.PromptGroundedRules, err)
	}
	return &PromptBuilder{rules: strings.TrimSpace(rules)}, nil
}

// Build returns the prompt for query. A failed retrieval is treated
// exactly like an empty one.
func (b *PromptBuilder) Build(query string, calc *domain.CalculationResult, retrieval domain.RetrievalResult) string {
	var sb strings.Builder

	sb.WriteString(b.rules)
	sb.WriteString("\n\n")

	if calc != nil {
		sb.WriteString(CalculationHeader)
		sb.WriteByte('\n')
		if data, err := json.MarshalIndent(calc, "", "  "); err == nil {
			sb.Write(data)
		} else {
			sb.WriteString(CalculationUnavailable)
		}
		sb.WriteString("\n\n")
	}

	if retrieval.CanAnswer() {
		sb.WriteString(FactsHeader)
		sb.WriteByte('\n')
		for i, hit := range retrieval.Hits {
			fmt.Fprintf(&sb, "FACT %d [Source: %s]:\n%s\n\n", i+1, hit.Source(), strings.TrimSpace(hit.Text))
		}
	} else {
		sb.WriteString(NoInformationInstruction)
		sb.WriteString("\n\n")
	}

	sb.WriteString(QuestionLabel)
	sb.WriteByte(' ')
	sb.WriteString(query)
	sb.WriteString("\n\n")

	sb.WriteString(ResponseFormat)
	sb.WriteString("\n\n")
	sb.WriteString(responseCue)

	return sb.String()
}
