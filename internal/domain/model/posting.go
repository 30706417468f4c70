package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type ProcessingState string

const (
	ProcessingStatePending    ProcessingState = "pending"
	ProcessingStateProcessing ProcessingState = "processing"
	ProcessingStateCompleted  ProcessingState = "completed"
	ProcessingStateFailed     ProcessingState = "failed"
)

// rank orders states so that transitions never move backwards.
// completed and failed are both terminal and may replace each other.
func (s ProcessingState) rank() int {
	switch s {
	case ProcessingStatePending:
		return 0
	case ProcessingStateProcessing:
		return 1
	case ProcessingStateCompleted, ProcessingStateFailed:
		return 2
	}
	return -1
}

// CanTransitionTo reports whether moving from s to next is a forward
// transition. An explicit reset bypasses this check at the repository level.
func (s ProcessingState) CanTransitionTo(next ProcessingState) bool {
	return next.rank() >= s.rank()
}

func (s ProcessingState) Valid() bool { return s.rank() >= 0 }

// Salary is a partially-known compensation range. Every field is
// independently optional; merges must never null out a known field.
type Salary struct {
	Min      *int64  `json:"min,omitempty"`
	Max      *int64  `json:"max,omitempty"`
	Currency *string `json:"currency,omitempty"`
	Period   *string `json:"period,omitempty"` // "year", "month", "hour"
}

func (s Salary) Empty() bool {
	return s.Min == nil && s.Max == nil && s.Currency == nil && s.Period == nil
}

// Posting is a discovered job listing. URL is the natural key; re-discovery
// of the same URL merges into the existing row.
type Posting struct {
	ID              string
	Title           string
	URL             string
	SourceMessageID *string
	Salary          Salary
	Description     *string
	Embedding       []float32
	EmbeddingModel  string
	Blacklisted     bool
	State           ProcessingState
	CreatedAt       time.Time
	LastSeenAt      time.Time
}

func NewPosting(title, url string, sourceMessageID *string) *Posting {
	now := time.Now().UTC()
	return &Posting{
		ID:              uuid.NewString(),
		Title:           strings.TrimSpace(title),
		URL:             url,
		SourceMessageID: sourceMessageID,
		State:           ProcessingStatePending,
		CreatedAt:       now,
		LastSeenAt:      now,
	}
}

// HasEmbedding reports whether the posting carries a vector produced by the
// given model. Vectors under a different model tag are not comparable and
// count as absent.
func (p *Posting) HasEmbedding(modelTag string) bool {
	return len(p.Embedding) > 0 && p.EmbeddingModel == modelTag
}

// EmbeddingInput is the text the embedding is computed from.
func (p *Posting) EmbeddingInput() string {
	if p.Description != nil && *p.Description != "" {
		return p.Title + "\n\n" + *p.Description
	}
	return p.Title
}

// PostingFilter narrows List queries from the presentation layer.
type PostingFilter struct {
	State       *ProcessingState
	Blacklisted *bool
	Search      string
	Limit       int
	Offset      int
}
