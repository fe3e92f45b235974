package models

// ReviewQueueFilter selects professional accounts by status, role and free text.
// SearchText matches display name or email, case-insensitively, as a substring.
type ReviewQueueFilter struct {
	Status     ProfessionalStatus
	Roles      []Role
	SearchText string
}

// ReviewQueueEntry is one account of the review queue together with its profile
type ReviewQueueEntry struct {
	Account       Account
	Profile       ProfessionalProfile
	DocumentCount int64
}
