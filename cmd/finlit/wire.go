package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/finlit/internal/adapters/driven/ai"
	"github.com/custodia-labs/finlit/internal/adapters/driven/storage/jsonl"
	"github.com/custodia-labs/finlit/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/finlit/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/finlit/internal/adapters/driving/cli"
	"github.com/custodia-labs/finlit/internal/connectors/filesystem"
	"github.com/custodia-labs/finlit/internal/core/domain"
	"github.com/custodia-labs/finlit/internal/core/ports/driven"
	"github.com/custodia-labs/finlit/internal/core/services"
	"github.com/custodia-labs/finlit/internal/normalisers/pdf"
	"github.com/custodia-labs/finlit/internal/postprocessors"
)

// application holds what outlives a single command.
type application struct {
	prompts driven.PromptStore

	// initAI creates the model services. Replaced in tests.
	initAI func(*domain.AppSettings) (driven.EmbeddingService, driven.Generator, func())
}

func initModels(settings *domain.AppSettings) (driven.EmbeddingService, driven.Generator, func()) {
	result := ai.Initialise(settings)
	return result.EmbeddingService, result.Generator, result.Close
}

// wire builds the services for one command from settings.
func (a *application) wire(_ context.Context, settings *domain.AppSettings, need cli.Need) (*cli.Services, error) {
	var closers []func() error
	closeAll := func() error {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			errs = append(errs, closers[i]())
		}
		return errors.Join(errs...)
	}

	var (
		vectors driven.VectorStore
		ledger  driven.IngestLedger
	)
	if need.Has(cli.NeedStore) {
		switch settings.Store.Backend {
		case domain.StoreBackendMemory:
			vectors = memory.NewVectorStore()
			ledger = memory.NewIngestLedger()
		default:
			store, err := sqlite.NewStore(settings.Store.DataDir)
			if err != nil {
				return nil, fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
			}
			closers = append(closers, store.Close)
			vectors = store.VectorStore(settings.Store.Collection)
			ledger = store.IngestLedger()
		}
	}

	var (
		embedder  driven.EmbeddingService
		generator driven.Generator
	)
	if need.Has(cli.NeedAI) {
		initAI := a.initAI
		if initAI == nil {
			initAI = initModels
		}
		var release func()
		embedder, generator, release = initAI(settings)
		closers = append(closers, func() error {
			release()
			return nil
		})
	}

	pipelineConfig := domain.PipelineConfigFor(settings.Chunking)
	registry := postprocessors.NewRegistry()
	postprocessors.RegisterDefaults(registry)
	pipeline, err := postprocessors.BuildPipeline(registry, pipelineConfig)
	if err != nil {
		_ = closeAll()
		return nil, err
	}

	chunkFiles := jsonl.New()
	connector := filesystem.New()
	closers = append(closers, connector.Close)

	ingest := services.NewIngestService(
		pdf.New(settings.Extraction),
		pipeline,
		pipelineConfig,
		chunkFiles,
		connector,
		ledger,
	)
	index := services.NewIndexService(vectors, embedder, chunkFiles, settings.Embedding.BatchSize)
	retriever := services.NewRetriever(vectors, embedder, settings.Retrieval.Expansions)

	router, err := services.NewQueryRouter(settings.Router)
	if err != nil {
		_ = closeAll()
		return nil, err
	}
	prompts, err := services.NewPromptBuilder(a.prompts)
	if err != nil {
		_ = closeAll()
		return nil, err
	}
	answer, err := services.NewAnswerService(router, retriever, prompts, a.prompts, generator,
		services.AnswerConfigFor(settings))
	if err != nil {
		_ = closeAll()
		return nil, err
	}

	return &cli.Services{
		Ingest:  ingest,
		Index:   index,
		Search:  retriever,
		Answer:  answer,
		Watcher: connector,
		Close:   closeAll,
	}, nil
}
