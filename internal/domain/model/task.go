package model

import (
	"time"

	"github.com/oklog/ulid/v2"
)

type TaskKind string

const (
	TaskKindExtract      TaskKind = "extract_from_message"
	TaskKindEnrich       TaskKind = "enrich"
	TaskKindEmbedKeyword TaskKind = "compute_keyword_embedding"
)

func AllTaskKinds() []TaskKind {
	return []TaskKind{TaskKindExtract, TaskKindEnrich, TaskKindEmbedKeyword}
}

// Task is one unit of queued work. Exactly one of the subject IDs is set,
// depending on Kind. Delivery is at-least-once; handlers must be idempotent.
type Task struct {
	ID        string   `json:"id"`
	Kind      TaskKind `json:"kind"`
	MessageID string   `json:"message_id,omitempty"`
	PostingID string   `json:"posting_id,omitempty"`
	KeywordID string   `json:"keyword_id,omitempty"`

	Attempt    int       `json:"attempt"`
	LastError  string    `json:"last_error,omitempty"`
	EnqueuedAt time.Time `json:"enqueued_at"`

	// Raw is the exact wire payload this task was dequeued as. The queue
	// needs it to remove the entry from the processing list on ack.
	Raw string `json:"-"`
}

func newTask(kind TaskKind) *Task {
	return &Task{
		ID:         ulid.Make().String(),
		Kind:       kind,
		EnqueuedAt: time.Now().UTC(),
	}
}

func NewExtractTask(messageID string) *Task {
	t := newTask(TaskKindExtract)
	t.MessageID = messageID
	return t
}

func NewEnrichTask(postingID string) *Task {
	t := newTask(TaskKindEnrich)
	t.PostingID = postingID
	return t
}

func NewEmbedKeywordTask(keywordID string) *Task {
	t := newTask(TaskKindEmbedKeyword)
	t.KeywordID = keywordID
	return t
}
