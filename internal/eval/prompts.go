package eval

import (
	"fmt"
	"strings"

	"github.com/feedbacklab/feedback-analyzer/internal/core/domain"
)

func buildGoldenPrompt(record domain.FeedbackRecord) string {
	var b strings.Builder
	b.WriteString("You create evaluation data for a customer feedback question-answering system.\n")
	b.WriteString("Read the feedback record below and produce one question a product manager\n")
	b.WriteString("could ask that this record answers, plus the grounded answer.\n")
	b.WriteString(`Return strict JSON object: {"question": "...", "answer": "..."}. No markdown.` + "\n\n")
	fmt.Fprintf(&b, "Source: %s\nSentiment: %s\nFeedback:\n%s\n", record.Source, record.Sentiment, record.Text)
	return b.String()
}

func buildAnswerPrompt(question string, passages []domain.Passage) string {
	var b strings.Builder
	b.WriteString("You analyze customer feedback. Answer the question using only the feedback excerpts below.\n")
	b.WriteString("If the excerpts do not contain the answer, say so plainly.\n\n")
	if len(passages) == 0 {
		b.WriteString("No feedback excerpts were found.\n")
	}
	for i, p := range passages {
		fmt.Fprintf(&b, "[%d] (source: %s, sentiment: %s)\n%s\n\n", i+1, p.Source, p.Sentiment, p.Text)
	}
	fmt.Fprintf(&b, "Question: %s\nAnswer:", question)
	return b.String()
}

func buildClaimsPrompt(text string) string {
	return fmt.Sprintf(`Break the following answer into short standalone factual claims.
Return strict JSON object: {"claims": ["...", "..."]}. Skip greetings and hedges.

Answer:
%s`, text)
}

func buildClaimVerdictsPrompt(claims []string, passages []domain.Passage) string {
	var b strings.Builder
	b.WriteString("For each numbered claim, decide whether it is supported by the context excerpts.\n")
	b.WriteString(`Return strict JSON object: {"verdicts": [true, false, ...]} with one boolean per claim, in order.` + "\n\n")
	b.WriteString("Context:\n")
	for _, p := range passages {
		b.WriteString(p.Text)
		b.WriteString("\n---\n")
	}
	b.WriteString("\nClaims:\n")
	for i, c := range claims {
		fmt.Fprintf(&b, "%d. %s\n", i+1, c)
	}
	return b.String()
}

func buildRelevancePrompt(question, referenceAnswer string, passages []domain.Passage) string {
	var b strings.Builder
	b.WriteString("For each numbered excerpt, decide whether it is useful for answering the question,\n")
	b.WriteString("given the reference answer.\n")
	b.WriteString(`Return strict JSON object: {"verdicts": [true, false, ...]} with one boolean per excerpt, in order.` + "\n\n")
	fmt.Fprintf(&b, "Question: %s\nReference answer: %s\n\nExcerpts:\n", question, referenceAnswer)
	for i, p := range passages {
		fmt.Fprintf(&b, "%d. %s\n", i+1, p.Text)
	}
	return b.String()
}
