package handlers

import (
	"context"
	"errors"
	"strings"

	"github.com/amirphl/vetverify/app/dto"
	businessflow "github.com/amirphl/vetverify/business_flow"
	"github.com/amirphl/vetverify/models"
	"github.com/amirphl/vetverify/utils"
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

type VerificationHandlerInterface interface {
	SubmitProfile(c fiber.Ctx) error
	UpdateProfile(c fiber.Ctx) error
	GetMyStatus(c fiber.Ctx) error
	RecordDecision(c fiber.Ctx) error
	BatchRecordDecision(c fiber.Ctx) error
	SuspendAccount(c fiber.Ctx) error
	ReinstateAccount(c fiber.Ctx) error
	GetAccountStatus(c fiber.Ctx) error
	Reconcile(c fiber.Ctx) error
}

type VerificationHandler struct {
	responder
	flow businessflow.VerificationFlow
}

func NewVerificationHandler(flow businessflow.VerificationFlow) *VerificationHandler {
	return &VerificationHandler{responder: newResponder(), flow: flow}
}

var errOneProfile = errors.New("exactly one of veterinarian or vendor must be provided")

func profileVariant(vet *models.VeterinarianDetails, vendor *models.VendorDetails) (models.ProfileVariant, error) {
	switch {
	case vet != nil && vendor == nil:
		return vet, nil
	case vendor != nil && vet == nil:
		return vendor, nil
	default:
		return nil, errOneProfile
	}
}

func toDocumentUploads(reqs []dto.DocumentUploadRequest) []businessflow.DocumentUpload {
	out := make([]businessflow.DocumentUpload, 0, len(reqs))
	for _, r := range reqs {
		d := businessflow.DocumentUpload{
			Type:        models.DocumentType(strings.ToLower(strings.TrimSpace(r.Type))),
			URL:         r.URL,
			Progress:    r.Progress,
			ExpiresAt:   utils.TimeToUTCPtr(r.ExpiresAt),
			Checksum:    r.Checksum,
			SizeBytes:   r.SizeBytes,
			ContentType: r.ContentType,
		}
		if msg := strings.TrimSpace(utils.Deref(r.Error)); msg != "" {
			d.Err = errors.New(msg)
		}
		out = append(out, d)
	}
	return out
}

// SubmitProfile submits the professional profile and documents for review
// @Summary Submit professional profile
// @Description Submit the veterinarian or vendor profile with the uploaded documents. Allowed for accounts that never submitted or were rejected.
// @Tags Verification
// @Accept json
// @Produce json
// @Param request body dto.SubmitProfileRequest true "Profile and documents"
// @Success 201 {object} dto.APIResponse{data=dto.SubmitProfileResponse} "Profile submitted"
// @Failure 400 {object} dto.APIResponse "Validation failed or documents incomplete"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 404 {object} dto.APIResponse "Account not found"
// @Failure 409 {object} dto.APIResponse "Status does not allow submission"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/verification/profile [post]
func (h *VerificationHandler) SubmitProfile(c fiber.Ctx) error {
	var req dto.SubmitProfileRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if ok, err := h.validate(c, &req); !ok {
		return err
	}

	profile, err := profileVariant(req.Veterinarian, req.Vendor)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", []string{err.Error()})
	}

	accountUUID, ok, err := h.accountUUID(c)
	if !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/verification/profile")
	defer cancel()

	submission := businessflow.ProfileSubmission{Profile: profile, Documents: toDocumentUploads(req.Documents)}
	result, err := h.flow.SubmitProfile(ctx, accountUUID, submission, h.metadata(c))
	if err != nil {
		return h.FlowError(c, err, "Failed to submit profile", "SUBMIT_PROFILE_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusCreated, "Profile submitted for review", dto.SubmitProfileResponse{
		Message: "Your profile is pending review",
		Profile: businessflow.ToProfileDTO(result, accountUUID),
	})
}

// UpdateProfile edits the profile data without changing the verification status
// @Summary Update professional profile
// @Description Edit the profile of a submitted account. Suspended accounts cannot edit.
// @Tags Verification
// @Accept json
// @Produce json
// @Param request body dto.UpdateProfileRequest true "Profile"
// @Success 200 {object} dto.APIResponse{data=dto.ProfessionalProfileDTO} "Profile updated"
// @Failure 400 {object} dto.APIResponse "Validation failed"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 403 {object} dto.APIResponse "Account suspended"
// @Failure 404 {object} dto.APIResponse "Profile not found"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/verification/profile [put]
func (h *VerificationHandler) UpdateProfile(c fiber.Ctx) error {
	var req dto.UpdateProfileRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	profile, err := profileVariant(req.Veterinarian, req.Vendor)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", []string{err.Error()})
	}

	accountUUID, ok, err := h.accountUUID(c)
	if !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/verification/profile")
	defer cancel()

	result, err := h.flow.UpdateProfile(ctx, accountUUID, profile, h.metadata(c))
	if err != nil {
		return h.FlowError(c, err, "Failed to update profile", "UPDATE_PROFILE_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Profile updated successfully", businessflow.ToProfileDTO(result, accountUUID))
}

// GetMyStatus returns the caller's verification status, profile, documents and decisions
// @Summary Get own verification status
// @Tags Verification
// @Produce json
// @Success 200 {object} dto.APIResponse{data=dto.VerificationStatusResponse} "Status retrieved"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 404 {object} dto.APIResponse "Account not found"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/verification/status [get]
func (h *VerificationHandler) GetMyStatus(c fiber.Ctx) error {
	accountUUID, ok, err := h.accountUUID(c)
	if !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/verification/status")
	defer cancel()

	result, err := h.flow.GetVerificationStatus(ctx, accountUUID)
	if err != nil {
		return h.FlowError(c, err, "Failed to get verification status", "GET_STATUS_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Verification status retrieved successfully", result)
}

// GetAccountStatus returns the verification status of any account
// @Summary Get account verification status (admin)
// @Tags Admin Verification
// @Produce json
// @Param account_uuid path string true "Account UUID"
// @Success 200 {object} dto.APIResponse{data=dto.VerificationStatusResponse} "Status retrieved"
// @Failure 400 {object} dto.APIResponse "Invalid account id"
// @Failure 403 {object} dto.APIResponse "Admin privileges required"
// @Failure 404 {object} dto.APIResponse "Account not found"
// @Router /api/v1/admin/verification/accounts/{account_uuid} [get]
func (h *VerificationHandler) GetAccountStatus(c fiber.Ctx) error {
	accountUUID, err := utils.ParseUUID(c.Params("account_uuid"))
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid account id", "INVALID_ACCOUNT_ID", nil)
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/admin/verification/accounts/{account_uuid}")
	defer cancel()

	result, err := h.flow.GetVerificationStatus(ctx, accountUUID)
	if err != nil {
		return h.FlowError(c, err, "Failed to get verification status", "GET_STATUS_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Verification status retrieved successfully", result)
}

// RecordDecision approves or rejects one pending account
// @Summary Decide a pending account (admin)
// @Tags Admin Verification
// @Accept json
// @Produce json
// @Param account_uuid path string true "Account UUID"
// @Param request body dto.DecisionRequest true "Decision"
// @Success 200 {object} dto.APIResponse{data=dto.DecisionResponse} "Decision recorded"
// @Failure 400 {object} dto.APIResponse "Validation failed"
// @Failure 403 {object} dto.APIResponse "Admin privileges required"
// @Failure 404 {object} dto.APIResponse "Account not found"
// @Failure 409 {object} dto.APIResponse "Account is not pending"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/admin/verification/accounts/{account_uuid}/decision [post]
func (h *VerificationHandler) RecordDecision(c fiber.Ctx) error {
	accountUUID, err := utils.ParseUUID(c.Params("account_uuid"))
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid account id", "INVALID_ACCOUNT_ID", nil)
	}

	var req dto.DecisionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if ok, err := h.validate(c, &req); !ok {
		return err
	}

	adminUUID, ok, err := h.accountUUID(c)
	if !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/admin/verification/accounts/{account_uuid}/decision")
	defer cancel()

	decision := businessflow.Decision{
		Status:   models.ProfessionalStatus(req.Status),
		Reason:   req.Reason,
		Comments: req.Comments,
	}
	account, err := h.flow.RecordDecision(ctx, adminUUID, accountUUID, decision, h.metadata(c))
	if err != nil {
		return h.FlowError(c, err, "Failed to record decision", "DECISION_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Decision recorded successfully", dto.DecisionResponse{
		Message:     "Account " + req.Status,
		AccountUUID: account.UUID.String(),
		Status:      string(account.CurrentStatus()),
	})
}

// BatchRecordDecision applies one decision to many accounts
// @Summary Decide many pending accounts (admin)
// @Description Every account is decided independently. A 207 response lists the accounts that failed.
// @Tags Admin Verification
// @Accept json
// @Produce json
// @Param request body dto.BatchDecisionRequest true "Batch decision"
// @Success 200 {object} dto.APIResponse{data=dto.BatchDecisionResponse} "All accounts decided"
// @Success 207 {object} dto.APIResponse "Some accounts failed, error details list them"
// @Failure 400 {object} dto.APIResponse "Validation failed"
// @Failure 403 {object} dto.APIResponse "Admin privileges required"
// @Router /api/v1/admin/verification/decisions [post]
func (h *VerificationHandler) BatchRecordDecision(c fiber.Ctx) error {
	var req dto.BatchDecisionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if ok, err := h.validate(c, &req); !ok {
		return err
	}

	ids, err := parseUUIDs(req.AccountIDs)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid account id", "INVALID_ACCOUNT_ID", err.Error())
	}

	adminUUID, ok, err := h.accountUUID(c)
	if !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/admin/verification/decisions")
	defer cancel()

	decision := businessflow.Decision{
		Status:   models.ProfessionalStatus(req.Status),
		Reason:   req.Reason,
		Comments: req.Comments,
	}
	result, err := h.flow.BatchRecordDecision(ctx, adminUUID, ids, decision, h.metadata(c))
	if err != nil {
		return h.FlowError(c, err, "Failed to record decisions", "BATCH_DECISION_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Decisions recorded successfully", toBatchResponse("All accounts decided", result))
}

// SuspendAccount suspends an approved account
// @Summary Suspend an approved account (admin)
// @Tags Admin Verification
// @Accept json
// @Produce json
// @Param account_uuid path string true "Account UUID"
// @Param request body dto.AccountActionRequest false "Reason"
// @Success 200 {object} dto.APIResponse{data=dto.DecisionResponse} "Account suspended"
// @Failure 403 {object} dto.APIResponse "Admin privileges required"
// @Failure 404 {object} dto.APIResponse "Account not found"
// @Failure 409 {object} dto.APIResponse "Account is not approved"
// @Router /api/v1/admin/verification/accounts/{account_uuid}/suspend [post]
func (h *VerificationHandler) SuspendAccount(c fiber.Ctx) error {
	return h.accountAction(c, "/api/v1/admin/verification/accounts/{account_uuid}/suspend", h.flow.SuspendAccount, "Account suspended successfully")
}

// ReinstateAccount moves a suspended account back to approved
// @Summary Reinstate a suspended account (admin)
// @Tags Admin Verification
// @Accept json
// @Produce json
// @Param account_uuid path string true "Account UUID"
// @Param request body dto.AccountActionRequest false "Reason"
// @Success 200 {object} dto.APIResponse{data=dto.DecisionResponse} "Account reinstated"
// @Failure 403 {object} dto.APIResponse "Admin privileges required"
// @Failure 404 {object} dto.APIResponse "Account not found"
// @Failure 409 {object} dto.APIResponse "Account is not suspended"
// @Router /api/v1/admin/verification/accounts/{account_uuid}/reinstate [post]
func (h *VerificationHandler) ReinstateAccount(c fiber.Ctx) error {
	return h.accountAction(c, "/api/v1/admin/verification/accounts/{account_uuid}/reinstate", h.flow.ReinstateAccount, "Account reinstated successfully")
}

type accountActionFunc func(ctx context.Context, adminUUID, accountUUID uuid.UUID, details businessflow.ActionDetails, metadata *businessflow.ClientMetadata) (*models.Account, error)

func (h *VerificationHandler) accountAction(c fiber.Ctx, endpoint string, action accountActionFunc, message string) error {
	accountUUID, err := utils.ParseUUID(c.Params("account_uuid"))
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid account id", "INVALID_ACCOUNT_ID", nil)
	}

	var req dto.AccountActionRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
		}
		if ok, err := h.validate(c, &req); !ok {
			return err
		}
	}

	adminUUID, ok, err := h.accountUUID(c)
	if !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, endpoint)
	defer cancel()

	account, err := action(ctx, adminUUID, accountUUID, businessflow.ActionDetails{Reason: req.Reason, Comments: req.Comments}, h.metadata(c))
	if err != nil {
		return h.FlowError(c, err, "Failed to update account status", "STATUS_UPDATE_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, message, dto.DecisionResponse{
		Message:     message,
		AccountUUID: account.UUID.String(),
		Status:      string(account.CurrentStatus()),
	})
}

// Reconcile repairs accounts whose stored status disagrees with the decision log
// @Summary Reconcile verification statuses (admin)
// @Tags Admin Verification
// @Produce json
// @Success 200 {object} dto.APIResponse{data=dto.ReconcileResponse} "Reconciliation finished"
// @Failure 403 {object} dto.APIResponse "Admin privileges required"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/admin/verification/reconcile [post]
func (h *VerificationHandler) Reconcile(c fiber.Ctx) error {
	ctx, cancel := h.createRequestContextWithTimeout(c, "/api/v1/admin/verification/reconcile", 2*defaultRequestTimeout)
	defer cancel()

	report, err := h.flow.ReconcileStatuses(ctx)
	if err != nil {
		return h.FlowError(c, err, "Failed to reconcile statuses", "RECONCILE_FAILED")
	}

	resp := dto.ReconcileResponse{Checked: report.Checked, Repaired: make([]string, 0, len(report.Repaired))}
	for _, id := range report.Repaired {
		resp.Repaired = append(resp.Repaired, id.String())
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Reconciliation finished", resp)
}
