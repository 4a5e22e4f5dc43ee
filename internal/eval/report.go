package eval

import (
	"fmt"
	"strings"

	"github.com/feedbacklab/feedback-analyzer/internal/core/domain"
)

// RenderMarkdown renders the comparison report. Pure function of its
// inputs: identical aggregates produce byte-identical output.
func RenderMarkdown(ranked []domain.StrategyAggregate, priority domain.Metric) string {
	var b strings.Builder

	b.WriteString("# Retrieval Strategy Comparison\n\n")
	fmt.Fprintf(&b, "Ranked by **%s**, ties broken by lower average latency, then lower total cost.\n", priority)
	b.WriteString("Metric means cover successful runs only; failures are reflected in the failure rate column.\n\n")

	b.WriteString("| Rank | Strategy | Context Recall | Faithfulness | Answer Relevancy | Context Precision | Avg Latency (s) | Total Cost (USD) | Questions | Failure Rate | Error |\n")
	b.WriteString("|---|---|---|---|---|---|---|---|---|---|---|\n")
	for i, agg := range ranked {
		if agg.Succeeded == 0 {
			fmt.Fprintf(&b, "| %d | %s | - | - | - | - | - | - | %d | %.2f | %s |\n",
				i+1, agg.Strategy, agg.NumQuestions, agg.FailureRate, cell(agg.Err))
			continue
		}
		fmt.Fprintf(&b, "| %d | %s | %.4f | %.4f | %.4f | %.4f | %.3f | $%.4f | %d | %.2f | %s |\n",
			i+1, agg.Strategy,
			agg.ContextRecall, agg.Faithfulness, agg.AnswerRelevancy, agg.ContextPrecision,
			agg.AvgLatencySeconds, agg.TotalCostUSD,
			agg.NumQuestions, agg.FailureRate, cell(agg.Err))
	}

	if best, ok := first(ranked); ok {
		b.WriteString("\n## Recommendation\n\n")
		fmt.Fprintf(&b, "**%s** ranks first on %s (%.4f).\n", best.Strategy, priority, best.MetricValue(priority))
	}

	writeHighlights(&b, ranked, priority)
	return b.String()
}

func writeHighlights(b *strings.Builder, ranked []domain.StrategyAggregate, priority domain.Metric) {
	best, ok := first(ranked)
	if !ok {
		return
	}

	fastest, cheapest := best, best
	for _, agg := range ranked {
		if agg.Succeeded == 0 {
			continue
		}
		if agg.AvgLatencySeconds < fastest.AvgLatencySeconds {
			fastest = agg
		}
		if agg.TotalCostUSD < cheapest.TotalCostUSD {
			cheapest = agg
		}
	}

	b.WriteString("\n## Performance Highlights\n\n")
	fmt.Fprintf(b, "- Best overall: **%s** (%s %.4f)\n", best.Strategy, priority, best.MetricValue(priority))
	fmt.Fprintf(b, "- Fastest: **%s** (%.3f s avg)\n", fastest.Strategy, fastest.AvgLatencySeconds)
	fmt.Fprintf(b, "- Cheapest: **%s** ($%.4f total)\n", cheapest.Strategy, cheapest.TotalCostUSD)

	b.WriteString("\n## Speed vs Quality\n\n")
	b.WriteString("| Strategy | Avg Latency (s) | " + headerTitle(priority) + " |\n")
	b.WriteString("|---|---|---|\n")
	for _, agg := range ranked {
		if agg.Succeeded == 0 {
			continue
		}
		fmt.Fprintf(b, "| %s | %.3f | %.4f |\n", agg.Strategy, agg.AvgLatencySeconds, agg.MetricValue(priority))
	}
}

func first(ranked []domain.StrategyAggregate) (domain.StrategyAggregate, bool) {
	for _, agg := range ranked {
		if agg.Succeeded > 0 {
			return agg, true
		}
	}
	return domain.StrategyAggregate{}, false
}

func cell(s string) string {
	if s == "" {
		return "-"
	}
	return strings.ReplaceAll(s, "|", "\\|")
}

func headerTitle(m domain.Metric) string {
	words := strings.Split(string(m), "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}
