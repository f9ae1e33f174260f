// Package cli is the command-line driving adapter for finlit.
package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/finlit/internal/connectors/filesystem"
	"github.com/custodia-labs/finlit/internal/core/domain"
	"github.com/custodia-labs/finlit/internal/core/ports/driving"
	"github.com/custodia-labs/finlit/internal/logger"
)

// version is set at build time.
var version = "dev"

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "finlit",
	Short: "Grounded financial literacy assistant",
	Long: `finlit answers personal finance questions from a curated PDF library.

Answers are grounded in passages retrieved from the indexed documents and in
exact calculations. When the library has nothing relevant, finlit says so
instead of guessing.

Typical workflow:
  finlit ingest pdfs          # PDFs -> chunk files
  finlit clean                # drop chunks left without usable text
  finlit index                # chunk files -> vector store
  finlit ask "How do I start an emergency fund?"`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print progress and diagnostics to stderr")
}

// Need selects the services a command requires.
type Need uint8

// Service requirements.
const (
	// NeedStore opens the store holding the vector collection and
	// the ingest ledger.
	NeedStore Need = 1 << iota

	// NeedAI creates and validates the embedding and generation services.
	NeedAI
)

// Has reports whether n includes other.
func (n Need) Has(other Need) bool {
	return n&other != 0
}

// Watcher reports settled changes to PDFs in a directory.
type Watcher interface {
	Watch(ctx context.Context, dir string) (<-chan filesystem.Change, error)
}

// Services are the application services driven by the commands.
// Services not requested through Need may be nil.
type Services struct {
	Ingest  driving.IngestService
	Index   driving.IndexService
	Search  driving.SearchService
	Answer  driving.AnswerService
	Watcher Watcher

	// Close releases the resources held by the services.
	Close func() error
}

// Wiring builds the services a command needs from settings.
type Wiring func(ctx context.Context, settings *domain.AppSettings, need Need) (*Services, error)

var (
	settingsService driving.SettingsService
	wire            Wiring
)

// Execute runs the root command with the given settings service and wiring.
func Execute(ctx context.Context, settings driving.SettingsService, w Wiring, buildVersion string) error {
	settingsService = settings
	wire = w
	if buildVersion != "" {
		version = buildVersion
	}
	return rootCmd.ExecuteContext(ctx)
}

// openServices builds the services for one command. override, when set,
// adjusts the stored settings for this invocation only.
func openServices(cmd *cobra.Command, need Need, override func(*domain.AppSettings)) (*Services, error) {
	if settingsService == nil || wire == nil {
		return nil, errors.New("services not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return nil, err
	}
	if override != nil {
		override(settings)
	}

	svc, err := wire(cmd.Context(), settings, need)
	if err != nil {
		return nil, err
	}
	if svc.Close == nil {
		svc.Close = func() error { return nil }
	}
	return svc, nil
}

// closeServices releases svc, logging rather than returning any error.
func closeServices(svc *Services) {
	if err := svc.Close(); err != nil {
		logger.Warn("closing services: %v", err)
	}
}
