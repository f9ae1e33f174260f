package domain

import "iter"

// Answer is the response to a user query. Fragments yields the generated
// text as it arrives; it is nil for canned replies, which use Text.
type Answer struct {
	// Query is the user question.
	Query string

	// Prompt is the grounded prompt sent to the generator.
	Prompt string

	// Text is set for canned replies that bypass generation.
	Text string

	// Fragments streams generated text. Stop ranging to cancel generation.
	Fragments iter.Seq2[string, error]

	// Sources are the citations, in retrieval order.
	Sources []Citation

	// FoundCount is the number of passages the answer is grounded on.
	FoundCount int

	// Calculation is set when the query was routed to a calculator.
	Calculation *CalculationResult

	// Greeting is true when the query was answered with the greeting reply.
	Greeting bool
}
