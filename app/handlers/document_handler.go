package handlers

import (
	"github.com/amirphl/vetverify/app/dto"
	"github.com/amirphl/vetverify/app/services"
	businessflow "github.com/amirphl/vetverify/business_flow"
	"github.com/amirphl/vetverify/logger"
	"github.com/amirphl/vetverify/models"
	"github.com/gofiber/fiber/v3"
)

type DocumentHandlerInterface interface {
	Upload(c fiber.Ctx) error
	Review(c fiber.Ctx) error
	SignedLink(c fiber.Ctx) error
}

type DocumentHandler struct {
	responder
	flow businessflow.DocumentFlow
}

func NewDocumentHandler(flow businessflow.DocumentFlow) *DocumentHandler {
	return &DocumentHandler{responder: newResponder(), flow: flow}
}

// Upload stores one verification document and returns its URL for the profile submission
// @Summary Upload verification document
// @Description Upload a license, degree or registration scan (jpg/jpeg/png/pdf, <=10MB)
// @Tags Documents
// @Accept mpfd
// @Produce json
// @Param file formData file true "Document file"
// @Success 201 {object} dto.APIResponse{data=dto.DocumentUploadResponse} "Upload successful"
// @Failure 400 {object} dto.APIResponse "Invalid file"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 403 {object} dto.APIResponse "Account suspended"
// @Failure 413 {object} dto.APIResponse "File too large"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Failure 503 {object} dto.APIResponse "Storage not configured"
// @Router /api/v1/verification/documents [post]
func (h *DocumentHandler) Upload(c fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil || fileHeader == nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "file is required", "INVALID_FILE", nil)
	}

	file, err := fileHeader.Open()
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "invalid file", "INVALID_FILE", err.Error())
	}
	defer file.Close()

	accountUUID, ok, err := h.accountUUID(c)
	if !ok {
		return err
	}

	ctx, cancel := h.createRequestContextWithTimeout(c, "/api/v1/verification/documents", 2*defaultRequestTimeout)
	defer cancel()

	log := logger.WithContext(ctx)
	progress := func(p services.UploadProgress) {
		log.Debug("document upload progress", "file", fileHeader.Filename, "percent", p.Percent)
	}

	result, err := h.flow.Upload(ctx, accountUUID, businessflow.DocumentFile{
		FileName:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Size:        fileHeader.Size,
		Body:        file,
	}, progress, h.metadata(c))
	if err != nil {
		return h.FlowError(c, err, "Failed to upload document", "UPLOAD_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusCreated, "Upload successful", result)
}

// Review approves or rejects one verification document
// @Summary Review a document (admin)
// @Description Rejection requires a reason. The account status is not changed.
// @Tags Admin Verification
// @Accept json
// @Produce json
// @Param id path int true "Document ID"
// @Param request body dto.DocumentReviewRequest true "Review"
// @Success 200 {object} dto.APIResponse{data=dto.DocumentReviewResponse} "Document reviewed"
// @Failure 400 {object} dto.APIResponse "Validation failed"
// @Failure 403 {object} dto.APIResponse "Admin privileges required"
// @Failure 404 {object} dto.APIResponse "Document not found"
// @Router /api/v1/admin/verification/documents/{id}/review [post]
func (h *DocumentHandler) Review(c fiber.Ctx) error {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid document id", "INVALID_DOCUMENT_ID", nil)
	}

	var req dto.DocumentReviewRequest
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

	ctx, cancel := h.createRequestContext(c, "/api/v1/admin/verification/documents/{id}/review")
	defer cancel()

	doc, err := h.flow.Review(ctx, adminUUID, id, models.DocumentVerificationStatus(req.Status), req.Reason, h.metadata(c))
	if err != nil {
		return h.FlowError(c, err, "Failed to review document", "DOCUMENT_REVIEW_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Document reviewed successfully", dto.DocumentReviewResponse{
		Message:  "Document " + req.Status,
		Document: businessflow.ToDocumentDTO(doc),
	})
}

// SignedLink returns a short-lived download link for a document
// @Summary Get document download link
// @Description Owners see their own documents, admins see every document
// @Tags Documents
// @Produce json
// @Param id path int true "Document ID"
// @Success 200 {object} dto.APIResponse{data=dto.DocumentLinkResponse} "Link created"
// @Failure 400 {object} dto.APIResponse "Invalid document id"
// @Failure 404 {object} dto.APIResponse "Document not found"
// @Router /api/v1/verification/documents/{id}/link [get]
func (h *DocumentHandler) SignedLink(c fiber.Ctx) error {
	id, ok := parseUintParam(c, "id")
	if !ok {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid document id", "INVALID_DOCUMENT_ID", nil)
	}

	accountUUID, ok, err := h.accountUUID(c)
	if !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/verification/documents/{id}/link")
	defer cancel()

	link, err := h.flow.SignedLink(ctx, accountUUID, id)
	if err != nil {
		return h.FlowError(c, err, "Failed to create download link", "SIGN_URL_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Link created successfully", link)
}
