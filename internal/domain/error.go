package domain

import "errors"

var (
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrInvalidExecContext = errors.New("invalid executor context")
	ErrReadDatabaseRow    = errors.New("failed to read database row")

	// ErrDimensionMismatch is returned when two vectors of different
	// lengths are compared. Callers treat it as a per-item validation
	// failure, never fatal to a batch.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrModelMismatch is returned when a stored vector was produced by a
	// different embedding model than the one configured; such vectors are
	// not comparable and need recomputation.
	ErrModelMismatch = errors.New("embedding model mismatch")

	// ErrQueueEmpty is returned by a non-blocking or timed-out dequeue.
	ErrQueueEmpty = errors.New("queue empty")

	// ErrScanInProgress is returned when a scan is requested while another
	// one holds the scan lock.
	ErrScanInProgress = errors.New("scan already in progress")

	// ErrCrawlForbidden is returned when platform policy forbids fetching
	// a posting's page. Enrichment continues embedding-only.
	ErrCrawlForbidden = errors.New("platform policy forbids crawling")
)
