package driven

// PromptStore provides access to prompt templates.
// Implementations may load prompts from files or embed them in the binary.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	// If the prompt is not found, implementations should return a sensible default
	// or an error, depending on whether the prompt is required.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	Reload()
}

// Well-known prompt names used throughout the application.
// These constants define the contract between prompt consumers and providers.
const (
	// PromptGroundedRules opens every grounded prompt: the assistant role
	// and the strict evidence-only rules. No format placeholders.
	PromptGroundedRules = "grounded_rules"

	// PromptGreeting is the canned reply to a greeting.
	PromptGreeting = "greeting"
)
