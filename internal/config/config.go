package config

import (
	"os"
	"strconv"
)

type Config struct {
	APIPort  string
	LogLevel string

	CorpusPath string

	OpenAIAPIKey     string
	OpenAIBaseURL    string
	OpenAIGenModel   string
	OpenAIEmbedModel string
	OpenAIRPS        float64

	QdrantURL        string
	QdrantCollection string

	CohereAPIKey      string
	CohereRerankModel string

	TavilyAPIKey        string
	WebSearchMaxResults int

	ChunkSize       int
	ChunkOverlap    int
	ParentChunkSize int
	ChildChunkSize  int

	RetrievalTopK    int
	RerankCandidates int
	MultiQueryCount  int
	FusionRRFK       int
	DefaultStrategy  string

	GoldenSize      int
	GoldenSeed      int64
	GoldenCachePath string

	EvalConcurrency    int
	EvalCallTimeoutSec int
	EvalPriorityMetric string
}

func Load() Config {
	return Config{
		APIPort:  mustEnv("API_PORT", "8080"),
		LogLevel: mustEnv("LOG_LEVEL", "info"),

		CorpusPath: mustEnv("CORPUS_PATH", "./data/feedback_corpus.csv"),

		OpenAIAPIKey:     mustEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:    mustEnv("OPENAI_BASE_URL", ""),
		OpenAIGenModel:   mustEnv("OPENAI_GEN_MODEL", "gpt-4o-mini"),
		OpenAIEmbedModel: mustEnv("OPENAI_EMBED_MODEL", "text-embedding-3-small"),
		OpenAIRPS:        mustEnvFloat("OPENAI_REQUESTS_PER_SECOND", 5),

		QdrantURL:        mustEnv("QDRANT_URL", "http://localhost:6333"),
		QdrantCollection: mustEnv("QDRANT_COLLECTION", "feedback_chunks"),

		CohereAPIKey:      mustEnv("COHERE_API_KEY", ""),
		CohereRerankModel: mustEnv("COHERE_RERANK_MODEL", "rerank-english-v3.0"),

		TavilyAPIKey:        mustEnv("TAVILY_API_KEY", ""),
		WebSearchMaxResults: mustEnvInt("WEB_SEARCH_MAX_RESULTS", 3),

		ChunkSize:       mustEnvInt("CHUNK_SIZE", 1000),
		ChunkOverlap:    mustEnvInt("CHUNK_OVERLAP", 100),
		ParentChunkSize: mustEnvInt("PARENT_CHUNK_SIZE", 2000),
		ChildChunkSize:  mustEnvInt("CHILD_CHUNK_SIZE", 400),

		RetrievalTopK:    mustEnvInt("RETRIEVAL_TOP_K", 10),
		RerankCandidates: mustEnvInt("RERANK_CANDIDATES", 20),
		MultiQueryCount:  mustEnvInt("MULTI_QUERY_COUNT", 3),
		FusionRRFK:       mustEnvInt("FUSION_RRF_K", 60),
		DefaultStrategy:  mustEnv("DEFAULT_STRATEGY", "naive"),

		GoldenSize:      mustEnvInt("GOLDEN_DATASET_SIZE", 12),
		GoldenSeed:      int64(mustEnvInt("GOLDEN_DATASET_SEED", 42)),
		GoldenCachePath: mustEnv("GOLDEN_DATASET_CACHE", "./data/golden_dataset.json"),

		EvalConcurrency:    mustEnvInt("EVAL_CONCURRENCY", 4),
		EvalCallTimeoutSec: mustEnvInt("EVAL_CALL_TIMEOUT_SECONDS", 60),
		EvalPriorityMetric: mustEnv("EVAL_PRIORITY_METRIC", "answer_relevancy"),
	}
}

func mustEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func mustEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func mustEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}
