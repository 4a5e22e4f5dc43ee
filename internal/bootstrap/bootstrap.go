// Package bootstrap wires configuration, infrastructure clients and
// usecases into a runnable application.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/feedbacklab/feedback-analyzer/internal/config"
	"github.com/feedbacklab/feedback-analyzer/internal/core/ports"
	"github.com/feedbacklab/feedback-analyzer/internal/core/usecase"
	"github.com/feedbacklab/feedback-analyzer/internal/corpus"
	"github.com/feedbacklab/feedback-analyzer/internal/infrastructure/chunking"
	"github.com/feedbacklab/feedback-analyzer/internal/infrastructure/llm/openai"
	"github.com/feedbacklab/feedback-analyzer/internal/infrastructure/rerank/cohere"
	"github.com/feedbacklab/feedback-analyzer/internal/infrastructure/resilience"
	"github.com/feedbacklab/feedback-analyzer/internal/infrastructure/vector/qdrant"
	"github.com/feedbacklab/feedback-analyzer/internal/infrastructure/websearch/tavily"
	"github.com/feedbacklab/feedback-analyzer/internal/retrieval"
)

type App struct {
	Config config.Config
	Logger *slog.Logger

	Corpus  *corpus.Corpus
	Parents *retrieval.ParentBlockStore
	Factory *retrieval.Factory

	Generator ports.Generator
	Embedder  ports.Embedder

	IndexUC   *usecase.IndexCorpusUseCase
	AnalyzeUC ports.FeedbackAnalyzer
	DatasetUC ports.DatasetInspector
}

func New(_ context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	exec := resilience.NewExecutor(resilience.DefaultConfig())

	llmClient, err := openai.New(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIGenModel, cfg.OpenAIEmbedModel, cfg.OpenAIRPS, exec)
	if err != nil {
		return nil, fmt.Errorf("init openai client: %w", err)
	}
	generator := openai.NewGenerator(llmClient)
	embedder := openai.NewEmbedder(llmClient)

	index := qdrant.New(cfg.QdrantURL, cfg.QdrantCollection)

	var reranker ports.Reranker
	if cfg.CohereAPIKey != "" {
		client, err := cohere.New(cfg.CohereAPIKey, cfg.CohereRerankModel, "")
		if err != nil {
			return nil, fmt.Errorf("init cohere client: %w", err)
		}
		reranker = client
	}

	var web ports.WebSearcher
	if cfg.TavilyAPIKey != "" {
		client, err := tavily.New(cfg.TavilyAPIKey, "")
		if err != nil {
			return nil, fmt.Errorf("init tavily client: %w", err)
		}
		web = client
	}

	crp, err := corpus.Load(cfg.CorpusPath)
	if err != nil {
		return nil, fmt.Errorf("load corpus: %w", err)
	}

	parents := retrieval.NewParentBlockStore()
	indexUC := usecase.NewIndexCorpusUseCase(
		chunking.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap),
		chunking.NewSplitter(cfg.ParentChunkSize, cfg.ChunkOverlap),
		chunking.NewSplitter(cfg.ChildChunkSize, cfg.ChunkOverlap/2),
		embedder,
		index,
		parents,
	)

	factory := retrieval.NewFactory(embedder, index, generator, parents, reranker, retrieval.Params{
		TopK:             cfg.RetrievalTopK,
		RerankCandidates: cfg.RerankCandidates,
		MultiQueryCount:  cfg.MultiQueryCount,
		RRFK:             cfg.FusionRRFK,
	})

	defaultStrategy, err := factory.Create(cfg.DefaultStrategy)
	if err != nil {
		return nil, fmt.Errorf("build default strategy %q: %w", cfg.DefaultStrategy, err)
	}

	analyzeUC := usecase.NewAnalyzeUseCase(generator, defaultStrategy, web, usecase.AnalyzeLimits{
		ToolTimeout:      time.Duration(cfg.EvalCallTimeoutSec) * time.Second,
		WebSearchResults: cfg.WebSearchMaxResults,
	})

	return &App{
		Config:    cfg,
		Logger:    logger,
		Corpus:    crp,
		Parents:   parents,
		Factory:   factory,
		Generator: generator,
		Embedder:  embedder,
		IndexUC:   indexUC,
		AnalyzeUC: analyzeUC,
		DatasetUC: usecase.NewDatasetInfoUseCase(cfg.CorpusPath),
	}, nil
}

// IndexCorpus runs the startup indexing pipeline over the loaded corpus.
func (a *App) IndexCorpus(ctx context.Context) (int, error) {
	count, usage, err := a.IndexUC.Index(ctx, a.Corpus.Records())
	if err != nil {
		return 0, err
	}
	a.Logger.Info("corpus indexed",
		"records", a.Corpus.Count(),
		"passages", count,
		"embed_tokens", usage.PromptTokens,
		"embed_cost_usd", usage.CostUSD,
	)
	return count, nil
}
