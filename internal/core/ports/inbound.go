package ports

import (
	"context"

	"github.com/feedbacklab/feedback-analyzer/internal/core/domain"
)

// FeedbackAnalyzer is the inbound contract for answering natural-language
// questions about the feedback corpus.
type FeedbackAnalyzer interface {
	Analyze(ctx context.Context, query string) (*domain.Answer, error)
}

// DatasetInspector reports corpus load state for the dataset-info endpoint.
type DatasetInspector interface {
	DatasetInfo(ctx context.Context) (domain.DatasetInfo, error)
}
