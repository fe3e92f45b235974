// Package businessflow contains the verification workflow and the admin review use cases
package businessflow

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/amirphl/vetverify/models"
	"github.com/google/uuid"
)

// Business flow error constants
var (
	// Account-related errors
	ErrAccountNotFound     = errors.New("account not found")
	ErrNotProfessional     = errors.New("account role has no professional profile")
	ErrProfileNotFound     = errors.New("professional profile not found")
	ErrAccountSuspended    = errors.New("account is suspended")
	ErrAdminRequired       = errors.New("admin privileges required")
	ErrInvalidAccountID    = errors.New("invalid account id")
	ErrEmptyAccountIDs     = errors.New("at least one account id is required")
	ErrTooManyAccountIDs   = errors.New("too many account ids in one batch")
	ErrAccountBusy         = errors.New("another decision for this account is in progress")
	ErrInvalidPreferences  = errors.New("invalid notification preferences")
	ErrNotificationMissing = errors.New("notification not found")
	ErrStreamUnavailable   = errors.New("notification stream not available")

	// Workflow errors
	ErrValidation          = errors.New("validation failed")
	ErrDocumentsIncomplete = errors.New("required documents are incomplete")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrInvalidDecision     = errors.New("decision must be approved or rejected")
	ErrPartialBatchFailure = errors.New("batch decision partially failed")

	// Document errors
	ErrDocumentNotFound    = errors.New("document not found")
	ErrInvalidDocumentType = errors.New("invalid document type")
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrFileTooLarge        = errors.New("file too large")
	ErrEmptyFile           = errors.New("file is empty")
	ErrStorageUnavailable  = errors.New("document storage not configured")

	// Filter errors
	ErrInvalidPage     = errors.New("page must be at least 1")
	ErrInvalidPageSize = errors.New("page size must be between 1 and 100")
	ErrInvalidRole     = errors.New("role filter must be veterinarian, vendor or all")
)

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func NewBusinessErrorf(code, message string, err error, args ...any) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: fmt.Sprintf(message, args...),
		Err:     err,
	}
}

// FieldError describes one rejected input field
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError is returned when submitted data is missing or malformed
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return ErrValidation.Error()
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Message)
	}
	return fmt.Sprintf("%s: %s", ErrValidation.Error(), strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func newValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: message}}}
}

// DocumentsIncompleteError lists the document types still missing from a submission
type DocumentsIncompleteError struct {
	Missing  []models.DocumentType
	Uploaded int
	Required int
}

func (e *DocumentsIncompleteError) Error() string {
	if len(e.Missing) > 0 {
		names := make([]string, 0, len(e.Missing))
		for _, m := range e.Missing {
			names = append(names, string(m))
		}
		return fmt.Sprintf("%s: missing %s", ErrDocumentsIncomplete.Error(), strings.Join(names, ", "))
	}
	return fmt.Sprintf("%s: %d of %d document types uploaded", ErrDocumentsIncomplete.Error(), e.Uploaded, e.Required)
}

func (e *DocumentsIncompleteError) Unwrap() error { return ErrDocumentsIncomplete }

// InvalidTransitionError reports a status change the state machine does not allow
type InvalidTransitionError struct {
	AccountID uuid.UUID
	From      models.ProfessionalStatus
	To        models.ProfessionalStatus
}

func (e *InvalidTransitionError) Error() string {
	from := string(e.From)
	if from == "" {
		from = "unsubmitted"
	}
	return fmt.Sprintf("%s: account %s cannot move from %s to %s", ErrInvalidTransition.Error(), e.AccountID, from, e.To)
}

func (e *InvalidTransitionError) Unwrap() error { return ErrInvalidTransition }

// BatchDecisionResult splits a batch into the accounts that were decided and the ones that failed
type BatchDecisionResult struct {
	Succeeded []uuid.UUID
	Failed    map[uuid.UUID]error
}

// FailedIDs returns the failed account ids in a stable order
func (r *BatchDecisionResult) FailedIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(r.Failed))
	for id := range r.Failed {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}

// PartialBatchFailure is returned when at least one account of a batch failed
type PartialBatchFailure struct {
	Result *BatchDecisionResult
}

func (e *PartialBatchFailure) Error() string {
	return fmt.Sprintf("%s: %d succeeded, %d failed", ErrPartialBatchFailure.Error(), len(e.Result.Succeeded), len(e.Result.Failed))
}

func (e *PartialBatchFailure) Unwrap() error { return ErrPartialBatchFailure }

func IsAccountNotFound(err error) bool {
	return errors.Is(err, ErrAccountNotFound)
}

func IsNotProfessional(err error) bool {
	return errors.Is(err, ErrNotProfessional)
}

func IsProfileNotFound(err error) bool {
	return errors.Is(err, ErrProfileNotFound)
}

func IsAccountSuspended(err error) bool {
	return errors.Is(err, ErrAccountSuspended)
}

func IsAdminRequired(err error) bool {
	return errors.Is(err, ErrAdminRequired)
}

func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

func IsDocumentsIncomplete(err error) bool {
	return errors.Is(err, ErrDocumentsIncomplete)
}

func IsInvalidTransition(err error) bool {
	return errors.Is(err, ErrInvalidTransition)
}

func IsPartialBatchFailure(err error) bool {
	return errors.Is(err, ErrPartialBatchFailure)
}

func IsDocumentNotFound(err error) bool {
	return errors.Is(err, ErrDocumentNotFound)
}

func IsNotificationMissing(err error) bool {
	return errors.Is(err, ErrNotificationMissing)
}

// AsValidation extracts field details from a validation failure
func AsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	ok := errors.As(err, &ve)
	return ve, ok
}

// AsDocumentsIncomplete extracts the missing document types
func AsDocumentsIncomplete(err error) (*DocumentsIncompleteError, bool) {
	var de *DocumentsIncompleteError
	ok := errors.As(err, &de)
	return de, ok
}

// AsPartialBatchFailure extracts the per-account outcome of a batch
func AsPartialBatchFailure(err error) (*PartialBatchFailure, bool) {
	var pe *PartialBatchFailure
	ok := errors.As(err, &pe)
	return pe, ok
}

// ErrorMessage maps a workflow error to the message shown to users
func ErrorMessage(err error) string {
	var (
		ve *ValidationError
		de *DocumentsIncompleteError
		te *InvalidTransitionError
		be *BusinessError
	)
	switch {
	case errors.As(err, &ve):
		return ve.Error()
	case errors.As(err, &de):
		return de.Error()
	case errors.As(err, &te):
		return te.Error()
	case errors.Is(err, ErrAccountNotFound):
		return "Account not found"
	case errors.Is(err, ErrAccountBusy):
		return "Another decision for this account is in progress, try again"
	case errors.As(err, &be):
		return be.Message
	case err == nil:
		return ""
	default:
		return "Unexpected error"
	}
}
