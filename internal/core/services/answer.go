package services

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/custodia-labs/finlit/internal/calculators"
	"github.com/custodia-labs/finlit/internal/core/domain"
	"github.com/custodia-labs/finlit/internal/core/ports/driven"
	"github.com/custodia-labs/finlit/internal/core/ports/driving"
	"github.com/custodia-labs/finlit/internal/logger"
)

// Ensure AnswerService implements the interface.
var _ driving.AnswerService = (*AnswerService)(nil)

var greetings = []string{
	"hi", "hello", "hey", "hiya",
	"good morning", "good afternoon", "good evening", "yo",
}

// IsGreeting reports whether query is a bare greeting: one of the known
// greetings, or a message of at most two words starting with one.
func IsGreeting(query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return false
	}
	if slices.Contains(greetings, q) {
		return true
	}
	if len(strings.Fields(q)) > 2 {
		return false
	}
	for _, g := range greetings {
		if strings.HasPrefix(q, g) {
			return true
		}
	}
	return false
}

// AnswerConfig holds the per-query parameters of the answer service.
type AnswerConfig struct {
	Retrieval  domain.RetrievalOptions
	Generation driven.GenerateOptions
}

// AnswerConfigFor derives the answer parameters from application settings.
func AnswerConfigFor(settings *domain.AppSettings) AnswerConfig {
	return AnswerConfig{
		Retrieval: settings.Retrieval.Options(),
		Generation: driven.GenerateOptions{
			MaxTokens:   settings.LLM.MaxTokens,
			Temperature: settings.LLM.Temperature,
		},
	}
}

// AnswerService answers questions from retrieved evidence and exact
// calculations only.
type AnswerService struct {
	router    driving.QueryRouter
	searcher  driving.SearchService
	prompts   *PromptBuilder
	generator driven.Generator
	greeting  string
	config    AnswerConfig
}

// NewAnswerService creates an answer service. The generator may be nil,
// in which case only greetings can be answered.
func NewAnswerService(
	router driving.QueryRouter,
	searcher driving.SearchService,
	prompts *PromptBuilder,
	promptStore driven.PromptStore,
	generator driven.Generator,
	config AnswerConfig,
) (*AnswerService, error) {
	greeting, err := promptStore.Load(driven.PromptGreeting)
	if err != nil {
		return nil, fmt.Errorf("load prompt %s: %w", driven.PromptGreeting, err)
	}
	return &AnswerService{
		router:    router,
		searcher:  searcher,
		prompts:   prompts,
		generator: generator,
		greeting:  strings.TrimSpace(greeting),
		config:    config,
	}, nil
}

// Answer classifies the query, runs any calculation, retrieves evidence,
// builds the grounded prompt and opens the generation stream. Greetings
// get the canned reply without retrieval or generation.
func (s *AnswerService) Answer(ctx context.Context, query string) (*domain.Answer, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: empty question", domain.ErrInvalidInput)
	}

	if IsGreeting(query) {
		return &domain.Answer{Query: query, Text: s.greeting, Greeting: true}, nil
	}

	if s.generator == nil {
		return nil, domain.ErrLLMUnavailable
	}

	classification := s.router.Classify(query)
	calc := calculators.Run(classification)
	if calc != nil {
		logger.Debug("routed to %s calculator", calc.Kind)
	}

	retrieval := s.searcher.Search(ctx, query, s.config.Retrieval)

	answer := &domain.Answer{
		Query:       query,
		Prompt:      s.prompts.Build(query, calc, retrieval),
		Calculation: calc,
	}
	if retrieval.CanAnswer() {
		answer.FoundCount = len(retrieval.Hits)
		answer.Sources = retrieval.Citations()
	}
	logger.Debug("grounded on %d passages", answer.FoundCount)

	answer.Fragments = s.generator.Stream(ctx, answer.Prompt, s.config.Generation)
	return answer, nil
}
