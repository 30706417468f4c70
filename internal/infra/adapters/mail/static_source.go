// File: internal/infra/adapters/mail/static_source.go
package mail

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"jobsieve/internal/domain/model"
	"jobsieve/internal/domain/ports/adapter"
)

var (
	_ adapter.MailSource = (*StaticSource)(nil)
	_ adapter.MailSource = (*NoopSource)(nil)
)

// StaticSource reads messages from a JSON file on disk. It stands in for
// the real provider in dev mode and in end-to-end runs; messages are
// filtered by receipt time just like a live source would.
type StaticSource struct {
	path string
}

func NewStaticSource(path string) *StaticSource {
	return &StaticSource{path: path}
}

type staticMessage struct {
	ProviderID string    `json:"provider_id"`
	Subject    string    `json:"subject"`
	Body       string    `json:"body"`
	ReceivedAt time.Time `json:"received_at"`
}

func (s *StaticSource) FetchJobRelated(_ context.Context, since time.Time) ([]*model.SourceMessage, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read mail fixture: %w", err)
	}
	var raw []staticMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("parse mail fixture: %w", err)
	}
	out := make([]*model.SourceMessage, 0, len(raw))
	for _, m := range raw {
		if m.ProviderID == "" || !m.ReceivedAt.After(since) {
			continue
		}
		out = append(out, &model.SourceMessage{
			ProviderID: m.ProviderID,
			Subject:    m.Subject,
			Body:       m.Body,
			ReceivedAt: m.ReceivedAt,
		})
	}
	return out, nil
}

// NoopSource returns no messages. Used when no mail provider is wired.
type NoopSource struct{}

func (NoopSource) FetchJobRelated(context.Context, time.Time) ([]*model.SourceMessage, error) {
	return nil, nil
}
