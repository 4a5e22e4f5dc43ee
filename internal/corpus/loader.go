// Package corpus loads the feedback corpus from its CSV source and exposes
// it as a read-only record sequence.
package corpus

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/feedbacklab/feedback-analyzer/internal/core/domain"
)

// Corpus is an immutable snapshot of the feedback CSV. Fair strategy
// comparison requires every evaluation participant to see the same
// snapshot, so records are loaded once and never mutated.
type Corpus struct {
	path     string
	records  []domain.FeedbackRecord
	loadedAt time.Time
}

func Load(path string) (*Corpus, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open corpus csv: %w", err)
	}
	defer f.Close()

	records, err := parseCSV(f)
	if err != nil {
		return nil, fmt.Errorf("parse corpus csv %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "load corpus", fmt.Errorf("no feedback records in %s", path))
	}

	return &Corpus{
		path:     path,
		records:  records,
		loadedAt: time.Now(),
	}, nil
}

// Records returns the loaded sequence. Callers must treat it as read-only.
func (c *Corpus) Records() []domain.FeedbackRecord {
	return c.records
}

func (c *Corpus) Count() int {
	return len(c.records)
}

func (c *Corpus) Path() string {
	return c.path
}

func parseCSV(r io.Reader) ([]domain.FeedbackRecord, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	textCol, ok := columns["feedback_text"]
	if !ok {
		return nil, fmt.Errorf("missing feedback_text column")
	}

	field := func(row []string, name string) string {
		idx, ok := columns[name]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	var out []domain.FeedbackRecord
	line := 1
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if textCol >= len(row) || strings.TrimSpace(row[textCol]) == "" {
			continue
		}

		id := field(row, "feedback_id")
		if id == "" {
			id = fmt.Sprintf("FB-%03d", len(out)+1)
		}
		out = append(out, domain.FeedbackRecord{
			ID:        id,
			Source:    domain.FeedbackSource(field(row, "source")),
			Date:      field(row, "date"),
			UserID:    field(row, "user_id"),
			Text:      strings.TrimSpace(row[textCol]),
			Sentiment: domain.Sentiment(field(row, "sentiment")),
		})
	}
	return out, nil
}

// Describe stats the corpus file without loading it, tolerating a missing
// file so the dataset-info endpoint can report a disconnected state.
func Describe(path string) domain.DatasetInfo {
	info := domain.DatasetInfo{
		Filename: fileBase(path),
		Status:   domain.DatasetDisconnected,
	}

	stat, err := os.Stat(path)
	if err != nil {
		return info
	}

	f, err := os.Open(path)
	if err != nil {
		return info
	}
	defer f.Close()

	records, err := parseCSV(f)
	if err != nil {
		return info
	}

	info.RecordCount = len(records)
	info.LastUpdated = stat.ModTime().Format("2006-01-02 15:04:05")
	info.FileSize = formatSize(stat.Size())
	info.Status = domain.DatasetLoaded
	return info
}

func fileBase(path string) string {
	if idx := strings.LastIndexByte(path, '/'); idx >= 0 {
		return path[idx+1:]
	}
	return path
}

func formatSize(size int64) string {
	switch {
	case size < 1024:
		return fmt.Sprintf("%d B", size)
	case size < 1024*1024:
		return fmt.Sprintf("%.1f KB", float64(size)/1024)
	default:
		return fmt.Sprintf("%.1f MB", float64(size)/(1024*1024))
	}
}
