package model

import "time"

type EventType string

const (
	EventPostingRemoved EventType = "posting_removed"
	EventScanFinished   EventType = "scan_finished"
)

// Event is what the presentation layer sees on the event stream.
type Event struct {
	Type      EventType    `json:"type"`
	PostingID string       `json:"id,omitempty"`
	Title     string       `json:"title,omitempty"`
	Reason    string       `json:"reason,omitempty"`
	Scan      *ScanSummary `json:"scan,omitempty"`
	At        time.Time    `json:"at"`
}

// ScanSummary reports one scan cycle without aborting on per-item failures.
type ScanSummary struct {
	Processed int `json:"processed"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
	Enqueued  int `json:"enqueued"`
}
