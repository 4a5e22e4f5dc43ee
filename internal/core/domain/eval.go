package domain

// GoldenExample is one ground-truth triple of the evaluation dataset.
// Immutable once generated; reference context is always traceable to
// records of the active corpus snapshot.
type GoldenExample struct {
	ID               string    `json:"id"`
	Question         string    `json:"question"`
	ReferenceAnswer  string    `json:"reference_answer"`
	ReferenceContext []Passage `json:"reference_context"`
}

// ScoredRun is the outcome of evaluating one (strategy, question) pair.
type ScoredRun struct {
	Strategy         string
	Question         string
	GeneratedAnswer  string
	LatencySeconds   float64
	CostUSD          float64
	Faithfulness     float64
	AnswerRelevancy  float64
	ContextPrecision float64
	ContextRecall    float64
	Err              error
}

// StrategyAggregate is derived from the ScoredRun sequence on every report
// generation; the runs stay authoritative. Metric means cover successful
// runs only, failures show up in FailureRate.
type StrategyAggregate struct {
	Strategy          string
	ContextRecall     float64
	Faithfulness      float64
	AnswerRelevancy   float64
	ContextPrecision  float64
	AvgLatencySeconds float64
	TotalCostUSD      float64
	NumQuestions      int
	Succeeded         int
	Failed            int
	FailureRate       float64
	Err               string
}

type Metric string

const (
	MetricFaithfulness     Metric = "faithfulness"
	MetricAnswerRelevancy  Metric = "answer_relevancy"
	MetricContextPrecision Metric = "context_precision"
	MetricContextRecall    Metric = "context_recall"
)

func (m Metric) Valid() bool {
	switch m {
	case MetricFaithfulness, MetricAnswerRelevancy, MetricContextPrecision, MetricContextRecall:
		return true
	}
	return false
}

// MetricValue reads the named quality metric off the aggregate, used for
// priority-metric ranking.
func (a StrategyAggregate) MetricValue(m Metric) float64 {
	switch m {
	case MetricFaithfulness:
		return a.Faithfulness
	case MetricContextPrecision:
		return a.ContextPrecision
	case MetricContextRecall:
		return a.ContextRecall
	default:
		return a.AnswerRelevancy
	}
}
