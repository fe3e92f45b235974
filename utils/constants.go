package utils

import (
	"time"
)

// CORS and security constants
const (
	// CORSMaxAge is the maximum age for CORS preflight requests (24 hours)
	CORSMaxAge = 86400
)

// Verification constants
const (
	// MinRequiredDocumentTypes is the minimum number of distinct document types per submission
	MinRequiredDocumentTypes = 2

	// DefaultQueuePageSize is the review queue page size used when none is given
	DefaultQueuePageSize = 10

	// MaxQueuePageSize caps admin listing page sizes
	MaxQueuePageSize = 100

	// MaxDocumentSize is the largest accepted verification document (10MB)
	MaxDocumentSize = int64(10 * 1024 * 1024)

	// DefaultBatchConcurrency bounds parallel decisions inside one batch
	DefaultBatchConcurrency = 8

	// DocumentReminderWindow is how far ahead of expiry owners are reminded
	DocumentReminderWindow = 30 * 24 * time.Hour

	// AccountLockTTL bounds how long a distributed account lock may be held
	AccountLockTTL = 30 * time.Second
)
