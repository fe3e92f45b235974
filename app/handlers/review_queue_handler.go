package handlers

import (
	"github.com/amirphl/vetverify/app/dto"
	businessflow "github.com/amirphl/vetverify/business_flow"
	"github.com/amirphl/vetverify/models"
	"github.com/gofiber/fiber/v3"
)

type ReviewQueueHandlerInterface interface {
	List(c fiber.Ctx) error
	DecideSelected(c fiber.Ctx) error
	ExportApproved(c fiber.Ctx) error
}

type ReviewQueueHandler struct {
	responder
	flow businessflow.ReviewQueueFlow
}

func NewReviewQueueHandler(flow businessflow.ReviewQueueFlow) *ReviewQueueHandler {
	return &ReviewQueueHandler{responder: newResponder(), flow: flow}
}

// List returns the pending professionals in submission order
// @Summary List the review queue (admin)
// @Description Pending veterinarians and vendors, oldest submission first. Search matches name or email.
// @Tags Admin Review Queue
// @Produce json
// @Param search query string false "Case-insensitive name or email fragment"
// @Param role query string false "veterinarian, vendor or all"
// @Param page query int false "Page number (default 1)"
// @Param page_size query int false "Page size (default 10, max 100)"
// @Success 200 {object} dto.APIResponse{data=dto.ReviewQueueResponse} "Queue retrieved"
// @Failure 400 {object} dto.APIResponse "Invalid filter"
// @Failure 403 {object} dto.APIResponse "Admin privileges required"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/admin/review-queue [get]
func (h *ReviewQueueHandler) List(c fiber.Ctx) error {
	var req dto.ReviewQueueRequest
	if err := c.Bind().Query(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid query parameters", "INVALID_REQUEST", err.Error())
	}
	if ok, err := h.validate(c, &req); !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/admin/review-queue")
	defer cancel()

	filter := businessflow.QueueFilter{SearchText: req.Search, Role: req.Role}
	result, err := h.flow.List(ctx, filter, req.Page, req.PageSize)
	if err != nil {
		return h.FlowError(c, err, "Failed to list review queue", "QUEUE_FETCH_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Review queue retrieved successfully", result)
}

// DecideSelected applies one decision to the selected rows of a filtered queue view
// @Summary Decide selected queue rows (admin)
// @Description With select_all every row of the filtered view is selected, minus deselected. Rows outside the view are ignored.
// @Tags Admin Review Queue
// @Accept json
// @Produce json
// @Param request body dto.SelectionDecisionRequest true "Selection and decision"
// @Success 200 {object} dto.APIResponse{data=dto.BatchDecisionResponse} "Selected accounts decided"
// @Success 207 {object} dto.APIResponse "Some accounts failed, error details list them"
// @Failure 400 {object} dto.APIResponse "Nothing selected or validation failed"
// @Failure 403 {object} dto.APIResponse "Admin privileges required"
// @Router /api/v1/admin/review-queue/decisions [post]
func (h *ReviewQueueHandler) DecideSelected(c fiber.Ctx) error {
	var req dto.SelectionDecisionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if ok, err := h.validate(c, &req); !ok {
		return err
	}

	selected, err := parseUUIDs(req.Selected)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid account id", "INVALID_ACCOUNT_ID", err.Error())
	}
	deselected, err := parseUUIDs(req.Deselected)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid account id", "INVALID_ACCOUNT_ID", err.Error())
	}

	adminUUID, ok, err := h.accountUUID(c)
	if !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/admin/review-queue/decisions")
	defer cancel()

	filter := businessflow.QueueFilter{SearchText: req.Search, Role: req.Role}
	sel := businessflow.NewSelection()
	if req.SelectAll {
		if err := h.flow.SelectAll(ctx, sel, filter); err != nil {
			return h.FlowError(c, err, "Failed to select queue rows", "QUEUE_FETCH_FAILED")
		}
	}
	sel.SelectAll(selected)
	for _, id := range deselected {
		sel.Deselect(id)
	}

	decision := businessflow.Decision{
		Status:   models.ProfessionalStatus(req.Status),
		Reason:   req.Reason,
		Comments: req.Comments,
	}
	result, err := h.flow.DecideSelected(ctx, adminUUID, sel, filter, decision, h.metadata(c))
	if err != nil {
		return h.FlowError(c, err, "Failed to record decisions", "BATCH_DECISION_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Decisions recorded successfully", toBatchResponse("All selected accounts decided", result))
}

// ExportApproved downloads the approved professionals as CSV or Excel
// @Summary Export approved professionals (admin)
// @Tags Admin Review Queue
// @Produce text/csv
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param format query string false "csv (default) or xlsx"
// @Success 200 {file} file "Export file"
// @Failure 400 {object} dto.APIResponse "Unknown format"
// @Failure 403 {object} dto.APIResponse "Admin privileges required"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/admin/review-queue/approved/export [get]
func (h *ReviewQueueHandler) ExportApproved(c fiber.Ctx) error {
	adminUUID, ok, err := h.accountUUID(c)
	if !ok {
		return err
	}

	ctx, cancel := h.createRequestContextWithTimeout(c, "/api/v1/admin/review-queue/approved/export", 2*defaultRequestTimeout)
	defer cancel()

	var file *businessflow.ExportFile
	switch format := c.Query("format", "csv"); format {
	case "csv":
		file, err = h.flow.ExportApprovedCSV(ctx, adminUUID, h.metadata(c))
	case "xlsx", "excel":
		file, err = h.flow.ExportApprovedExcel(ctx, adminUUID, h.metadata(c))
	default:
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Format must be csv or xlsx", "INVALID_FORMAT", nil)
	}
	if err != nil {
		return h.FlowError(c, err, "Failed to export approved professionals", "EXPORT_FAILED")
	}

	c.Set("Content-Type", file.ContentType)
	c.Set("Content-Disposition", "attachment; filename="+file.FileName)
	return c.Status(fiber.StatusOK).Send(file.Content)
}
