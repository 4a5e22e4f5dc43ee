package usecase

import (
	"context"

	"github.com/feedbacklab/feedback-analyzer/internal/core/domain"
	"github.com/feedbacklab/feedback-analyzer/internal/corpus"
)

// DatasetInfoUseCase reports the corpus file state. It stats the file on
// every call so the endpoint reflects live changes to the CSV.
type DatasetInfoUseCase struct {
	path string
}

func NewDatasetInfoUseCase(path string) *DatasetInfoUseCase {
	return &DatasetInfoUseCase{path: path}
}

func (uc *DatasetInfoUseCase) DatasetInfo(_ context.Context) (domain.DatasetInfo, error) {
	return corpus.Describe(uc.path), nil
}
