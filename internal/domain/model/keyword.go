package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Keyword is a blacklist term. Its embedding is computed asynchronously
// after insertion, so Embedding is empty until the pipeline catches up.
type Keyword struct {
	ID             string
	Text           string
	Embedding      []float32
	EmbeddingModel string
	CreatedAt      time.Time
}

func NewKeyword(text string) *Keyword {
	return &Keyword{
		ID:        uuid.NewString(),
		Text:      strings.TrimSpace(text),
		CreatedAt: time.Now().UTC(),
	}
}

func (k *Keyword) HasEmbedding(modelTag string) bool {
	return len(k.Embedding) > 0 && k.EmbeddingModel == modelTag
}

// ParseKeywordList splits a newline-delimited blacklist submission into
// unique, trimmed, non-empty terms, preserving first-seen order.
func ParseKeywordList(raw string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, line := range strings.Split(raw, "\n") {
		t := strings.TrimSpace(line)
		if t == "" {
			continue
		}
		key := strings.ToLower(t)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, t)
	}
	return out
}
