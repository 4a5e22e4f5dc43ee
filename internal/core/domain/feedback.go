package domain

type Sentiment string

const (
	SentimentPositive Sentiment = "Positive"
	SentimentNegative Sentiment = "Negative"
	SentimentNeutral  Sentiment = "Neutral"
)

type FeedbackSource string

const (
	SourceSupportTicket  FeedbackSource = "Support Ticket"
	SourceAppStoreReview FeedbackSource = "App Store Review"
	SourceSurvey         FeedbackSource = "Survey"
	SourceTwitterMention FeedbackSource = "Twitter Mention"
)

// FeedbackRecord is one row of the feedback corpus. Records are immutable
// once loaded; all consumers get read-only access.
type FeedbackRecord struct {
	ID        string         `json:"id"`
	Source    FeedbackSource `json:"source"`
	Date      string         `json:"date"`
	UserID    string         `json:"user_id,omitempty"`
	Text      string         `json:"text"`
	Sentiment Sentiment      `json:"sentiment"`
}

type DatasetStatus string

const (
	DatasetLoaded       DatasetStatus = "Loaded"
	DatasetDisconnected DatasetStatus = "Disconnected"
)

type DatasetInfo struct {
	Filename    string        `json:"filename"`
	RecordCount int           `json:"record_count"`
	LastUpdated string        `json:"last_updated"`
	FileSize    string        `json:"file_size"`
	Status      DatasetStatus `json:"status"`
}
