package domain

import "fmt"

// Passage is a unit of retrievable text derived from one or more feedback
// records. ParentID is set on child chunks that belong to a larger parent
// block (used by the parent-document strategy).
type Passage struct {
	ID         string  `json:"id"`
	RecordID   string  `json:"record_id"`
	ParentID   string  `json:"parent_id,omitempty"`
	ChunkIndex int     `json:"chunk_index"`
	Source     string  `json:"source,omitempty"`
	Sentiment  string  `json:"sentiment,omitempty"`
	Text       string  `json:"text"`
	Score      float64 `json:"score"`
}

// Key is the passage identity used for deduplication across retrieval
// paths. Two passages retrieved via different query wordings merge when
// they point at the same underlying chunk, not when their text matches.
func (p Passage) Key() string {
	if p.ID != "" {
		return p.ID
	}
	if p.RecordID != "" && p.ChunkIndex >= 0 {
		return fmt.Sprintf("%s:%d", p.RecordID, p.ChunkIndex)
	}
	return p.Text
}

// Answer is the analyze response. Route names the tool that produced
// it: feedback_search or web_search.
type Answer struct {
	Text       string      `json:"text"`
	Route      string      `json:"route"`
	Sources    []Passage   `json:"sources,omitempty"`
	WebSources []WebResult `json:"web_sources,omitempty"`
	Usage      Usage       `json:"usage"`
}

type WebResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
}

// Usage records the token counts and estimated monetary cost of one or
// more external model calls.
type Usage struct {
	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	CostUSD          float64 `json:"cost_usd"`
}

func (u *Usage) Add(other Usage) {
	u.PromptTokens += other.PromptTokens
	u.CompletionTokens += other.CompletionTokens
	u.CostUSD += other.CostUSD
}
