package eval

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/feedbacklab/feedback-analyzer/internal/core/domain"
)

// WriteWorkbook exports the comparison to an XLSX workbook with a
// per-strategy sheet and a per-run sheet.
func WriteWorkbook(path string, ranked []domain.StrategyAggregate, runs []domain.ScoredRun) error {
	f := excelize.NewFile()
	defer f.Close()

	const comparisonSheet = "Comparison"
	if err := f.SetSheetName("Sheet1", comparisonSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	compHeader := []any{"Rank", "Strategy", "Context Recall", "Faithfulness", "Answer Relevancy",
		"Context Precision", "Avg Latency (s)", "Total Cost (USD)", "Questions", "Failure Rate", "Error"}
	if err := f.SetSheetRow(comparisonSheet, "A1", &compHeader); err != nil {
		return fmt.Errorf("write comparison header: %w", err)
	}
	for i, agg := range ranked {
		row := []any{i + 1, agg.Strategy, agg.ContextRecall, agg.Faithfulness, agg.AnswerRelevancy,
			agg.ContextPrecision, agg.AvgLatencySeconds, agg.TotalCostUSD, agg.NumQuestions,
			agg.FailureRate, agg.Err}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("comparison row cell: %w", err)
		}
		if err := f.SetSheetRow(comparisonSheet, cell, &row); err != nil {
			return fmt.Errorf("write comparison row: %w", err)
		}
	}

	const runsSheet = "Runs"
	if _, err := f.NewSheet(runsSheet); err != nil {
		return fmt.Errorf("create runs sheet: %w", err)
	}
	runsHeader := []any{"Strategy", "Question", "Faithfulness", "Answer Relevancy", "Context Precision",
		"Context Recall", "Latency (s)", "Cost (USD)", "Error"}
	if err := f.SetSheetRow(runsSheet, "A1", &runsHeader); err != nil {
		return fmt.Errorf("write runs header: %w", err)
	}
	for i, run := range runs {
		errText := ""
		if run.Err != nil {
			errText = run.Err.Error()
		}
		row := []any{run.Strategy, run.Question, run.Faithfulness, run.AnswerRelevancy,
			run.ContextPrecision, run.ContextRecall, run.LatencySeconds, run.CostUSD, errText}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("runs row cell: %w", err)
		}
		if err := f.SetSheetRow(runsSheet, cell, &row); err != nil {
			return fmt.Errorf("write runs row: %w", err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook %s: %w", path, err)
	}
	return nil
}
