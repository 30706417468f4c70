package model

import "time"

// SourceMessage is an email the provider flagged as job related. The core
// only reads Subject/Body to discover postings and flips Scanned exactly
// once; the message itself is owned by the mail collaborator.
type SourceMessage struct {
	ID         string
	ProviderID string // provider-side message id, unique
	Subject    string
	Body       string
	ReceivedAt time.Time
	Scanned    bool
}
