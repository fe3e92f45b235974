// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/amirphl/vetverify/app/dto"
	"github.com/amirphl/vetverify/app/middleware"
	businessflow "github.com/amirphl/vetverify/business_flow"
	"github.com/amirphl/vetverify/utils"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

const defaultRequestTimeout = 30 * time.Second

func getValidationErrorMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return err.Field() + " is required"
	case "email":
		return "Invalid email format"
	case "min":
		return err.Field() + " must contain at least " + err.Param() + " items"
	case "max":
		return err.Field() + " must be at most " + err.Param() + " characters"
	case "len":
		return err.Field() + " must be exactly " + err.Param() + " characters"
	case "oneof":
		return err.Field() + " must be one of: " + err.Param()
	case "uuid":
		return err.Field() + " must be a valid UUID"
	case "url":
		return err.Field() + " must be a valid URL"
	case "numeric":
		return err.Field() + " must contain only numbers"
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", err.Field(), err.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", err.Field(), err.Param())
	default:
		return err.Field() + " is invalid"
	}
}

func validationMessages(err error) []string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return []string{err.Error()}
	}
	out := make([]string, 0, len(ve))
	for _, fe := range ve {
		out = append(out, getValidationErrorMessage(fe))
	}
	return out
}

// responder carries the response and request context helpers shared by every handler
type responder struct {
	validator *validator.Validate
}

func newResponder() responder {
	return responder{validator: validator.New()}
}

func (h responder) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h responder) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// validate runs struct validation and writes the error response on failure
func (h responder) validate(c fiber.Ctx, req any) (bool, error) {
	if err := h.validator.Struct(req); err != nil {
		return false, h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationMessages(err))
	}
	return true, nil
}

func (h responder) createRequestContext(c fiber.Ctx, endpoint string) (context.Context, context.CancelFunc) {
	return h.createRequestContextWithTimeout(c, endpoint, defaultRequestTimeout)
}

func (h responder) createRequestContextWithTimeout(c fiber.Ctx, endpoint string, timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	ctx = context.WithValue(ctx, utils.RequestIDKey, requestID(c))
	ctx = context.WithValue(ctx, utils.UserAgentKey, c.Get("User-Agent"))
	ctx = context.WithValue(ctx, utils.IPAddressKey, c.IP())
	ctx = context.WithValue(ctx, utils.EndpointKey, endpoint)
	ctx = context.WithValue(ctx, utils.TimeoutKey, timeout)
	ctx = context.WithValue(ctx, utils.CancelFuncKey, cancel)
	return ctx, cancel
}

func (h responder) metadata(c fiber.Ctx) *businessflow.ClientMetadata {
	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	metadata.SetRequestID(requestID(c))
	return metadata
}

// accountUUID reads the authenticated account. ok is false after the error response was written.
func (h responder) accountUUID(c fiber.Ctx) (uuid.UUID, bool, error) {
	id, ok := middleware.GetAccountUUIDFromContext(c)
	if !ok {
		return uuid.Nil, false, h.ErrorResponse(c, fiber.StatusUnauthorized, "Account ID not found in context", "MISSING_ACCOUNT_ID", nil)
	}
	return id, true, nil
}

// FlowError writes the response for an error returned by a business flow
func (h responder) FlowError(c fiber.Ctx, err error, fallbackMessage, fallbackCode string) error {
	var be *businessflow.BusinessError
	if !errors.As(err, &be) {
		return h.ErrorResponse(c, fiber.StatusInternalServerError, fallbackMessage, fallbackCode, nil)
	}

	status := statusForCode(be.Code)
	var details any
	if status < fiber.StatusInternalServerError {
		details = errorDetails(err)
	} else {
		// Internal causes are logged by the flow, not returned
		return h.ErrorResponse(c, status, fallbackMessage, be.Code, nil)
	}
	return h.ErrorResponse(c, status, be.Message, be.Code, details)
}

func errorDetails(err error) any {
	if ve, ok := businessflow.AsValidation(err); ok {
		return ve.Fields
	}
	if de, ok := businessflow.AsDocumentsIncomplete(err); ok {
		return fiber.Map{
			"missing":  de.Missing,
			"uploaded": de.Uploaded,
			"required": de.Required,
		}
	}
	if pe, ok := businessflow.AsPartialBatchFailure(err); ok {
		return toBatchResponse("", pe.Result)
	}
	return businessflow.ErrorMessage(err)
}

func statusForCode(code string) int {
	switch code {
	case "INVALID_ACCOUNT_ID", "ACCOUNT_IDS_REQUIRED", "TOO_MANY_ACCOUNT_IDS", "INVALID_DECISION",
		"INVALID_PAGE", "INVALID_PAGE_SIZE", "INVALID_ROLE", "INVALID_PREFERENCES", "NOTHING_SELECTED",
		"PROFILE_VALIDATION_FAILED", "DOCUMENT_VALIDATION_FAILED", "DOCUMENTS_INCOMPLETE", "REASON_REQUIRED",
		"EMPTY_FILE", "UNSUPPORTED_FILE_TYPE", "NOT_PROFESSIONAL":
		return fiber.StatusBadRequest
	case "FILE_TOO_LARGE":
		return fiber.StatusRequestEntityTooLarge
	case "ADMIN_REQUIRED", "ACCOUNT_SUSPENDED":
		return fiber.StatusForbidden
	case "ACCOUNT_NOT_FOUND", "PROFILE_NOT_FOUND", "DOCUMENT_NOT_FOUND", "NOTIFICATION_NOT_FOUND":
		return fiber.StatusNotFound
	case "INVALID_STATUS_TRANSITION", "ACCOUNT_BUSY":
		return fiber.StatusConflict
	case "PARTIAL_BATCH_FAILURE":
		return fiber.StatusMultiStatus
	case "STORAGE_UNAVAILABLE", "STREAM_UNAVAILABLE":
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

func requestID(c fiber.Ctx) string {
	if id, ok := c.Locals("requestid").(string); ok && id != "" {
		return id
	}
	return c.Get("X-Request-ID")
}

func parseUintParam(c fiber.Ctx, name string) (uint, bool) {
	v, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil || v == 0 {
		return 0, false
	}
	return uint(v), true
}

func parseUUIDs(values []string) ([]uuid.UUID, error) {
	out := make([]uuid.UUID, 0, len(values))
	for _, v := range values {
		id, err := utils.ParseUUID(v)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}

func toBatchResponse(message string, result *businessflow.BatchDecisionResult) dto.BatchDecisionResponse {
	resp := dto.BatchDecisionResponse{
		Message:   message,
		Succeeded: make([]string, 0, len(result.Succeeded)),
		Failed:    make([]dto.BatchFailureDTO, 0, len(result.Failed)),
	}
	for _, id := range result.Succeeded {
		resp.Succeeded = append(resp.Succeeded, id.String())
	}
	for _, id := range result.FailedIDs() {
		err := result.Failed[id]
		code := "DECISION_FAILED"
		var be *businessflow.BusinessError
		if errors.As(err, &be) {
			code = be.Code
		}
		resp.Failed = append(resp.Failed, dto.BatchFailureDTO{
			AccountID: id.String(),
			Code:      code,
			Message:   businessflow.ErrorMessage(err),
		})
	}
	return resp
}
