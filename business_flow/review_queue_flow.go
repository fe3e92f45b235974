package businessflow

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/amirphl/vetverify/app/dto"
	"github.com/amirphl/vetverify/config"
	"github.com/amirphl/vetverify/models"
	"github.com/amirphl/vetverify/repository"
	"github.com/amirphl/vetverify/utils"
	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
)

// QueueFilter narrows the review queue. An empty Role or "all" keeps both professional roles.
type QueueFilter struct {
	SearchText string
	Role       string
}

func (f QueueFilter) toModel(status models.ProfessionalStatus) (models.ReviewQueueFilter, error) {
	out := models.ReviewQueueFilter{Status: status, SearchText: strings.TrimSpace(f.SearchText)}
	switch role := strings.ToLower(strings.TrimSpace(f.Role)); role {
	case "", "all":
		out.Roles = []models.Role{models.RoleVeterinarian, models.RoleVendor}
	case string(models.RoleVeterinarian), string(models.RoleVendor):
		out.Roles = []models.Role{models.Role(role)}
	default:
		return out, ErrInvalidRole
	}
	return out, nil
}

// Selection is the set of account ids an admin picked in the queue view
type Selection struct {
	ids   map[uuid.UUID]struct{}
	order []uuid.UUID
}

// NewSelection creates an empty selection
func NewSelection() *Selection {
	return &Selection{ids: make(map[uuid.UUID]struct{})}
}

// SelectOne adds id to the selection
func (s *Selection) SelectOne(id uuid.UUID) {
	if _, ok := s.ids[id]; ok {
		return
	}
	s.ids[id] = struct{}{}
	s.order = append(s.order, id)
}

// SelectAll adds every id of a view
func (s *Selection) SelectAll(ids []uuid.UUID) {
	for _, id := range ids {
		s.SelectOne(id)
	}
}

// Deselect removes id from the selection
func (s *Selection) Deselect(id uuid.UUID) {
	if _, ok := s.ids[id]; !ok {
		return
	}
	delete(s.ids, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// DeselectAll clears the selection
func (s *Selection) DeselectAll() {
	clear(s.ids)
	s.order = nil
}

// Contains reports whether id is selected
func (s *Selection) Contains(id uuid.UUID) bool {
	_, ok := s.ids[id]
	return ok
}

// Len returns the number of selected ids
func (s *Selection) Len() int {
	return len(s.ids)
}

// IDs returns the selected ids in selection order
func (s *Selection) IDs() []uuid.UUID {
	return append([]uuid.UUID{}, s.order...)
}

// Actionable keeps only the selected ids present in active, in selection order
func (s *Selection) Actionable(active []uuid.UUID) []uuid.UUID {
	present := make(map[uuid.UUID]struct{}, len(active))
	for _, id := range active {
		present[id] = struct{}{}
	}
	out := make([]uuid.UUID, 0, len(s.order))
	for _, id := range s.order {
		if _, ok := present[id]; ok {
			out = append(out, id)
		}
	}
	return out
}

// ExportFile is a generated download
type ExportFile struct {
	FileName    string
	ContentType string
	Content     []byte
	Rows        int
}

// ReviewQueueFlow lists pending professionals and exports approved ones
type ReviewQueueFlow interface {
	List(ctx context.Context, filter QueueFilter, page, pageSize int) (*dto.ReviewQueueResponse, error)
	SelectAll(ctx context.Context, sel *Selection, filter QueueFilter) error
	DecideSelected(ctx context.Context, adminUUID uuid.UUID, sel *Selection, filter QueueFilter, decision Decision, metadata *ClientMetadata) (*BatchDecisionResult, error)
	ExportApprovedCSV(ctx context.Context, adminUUID uuid.UUID, metadata *ClientMetadata) (*ExportFile, error)
	ExportApprovedExcel(ctx context.Context, adminUUID uuid.UUID, metadata *ClientMetadata) (*ExportFile, error)
}

// ReviewQueueFlowImpl implements ReviewQueueFlow
type ReviewQueueFlowImpl struct {
	queueRepo    repository.ReviewQueueRepository
	accountRepo  repository.AccountRepository
	auditRepo    repository.AuditLogRepository
	verification VerificationFlow
	pageSize     int
}

// NewReviewQueueFlow creates the review queue projector
func NewReviewQueueFlow(
	queueRepo repository.ReviewQueueRepository,
	accountRepo repository.AccountRepository,
	auditRepo repository.AuditLogRepository,
	verification VerificationFlow,
	cfg config.VerificationConfig,
) ReviewQueueFlow {
	pageSize := cfg.QueuePageSize
	if pageSize <= 0 || pageSize > utils.MaxQueuePageSize {
		pageSize = utils.DefaultQueuePageSize
	}
	return &ReviewQueueFlowImpl{
		queueRepo:    queueRepo,
		accountRepo:  accountRepo,
		auditRepo:    auditRepo,
		verification: verification,
		pageSize:     pageSize,
	}
}

// List returns one page of pending professionals. Pages past the end are empty but keep the total.
func (f *ReviewQueueFlowImpl) List(ctx context.Context, filter QueueFilter, page, pageSize int) (*dto.ReviewQueueResponse, error) {
	if page == 0 {
		page = 1
	}
	if page < 1 {
		return nil, NewBusinessError("INVALID_PAGE", "Page must be at least 1", ErrInvalidPage)
	}
	if pageSize == 0 {
		pageSize = f.pageSize
	}
	if pageSize < 1 || pageSize > utils.MaxQueuePageSize {
		return nil, NewBusinessError("INVALID_PAGE_SIZE", "Page size must be between 1 and 100", ErrInvalidPageSize)
	}
	mf, err := filter.toModel(models.ProfessionalStatusPending)
	if err != nil {
		return nil, NewBusinessError("INVALID_ROLE", "Role must be veterinarian, vendor or all", err)
	}

	total, err := f.queueRepo.Count(ctx, mf)
	if err != nil {
		return nil, NewBusinessError("QUEUE_COUNT_FAILED", "Failed to count review queue", err)
	}

	items := []dto.ReviewQueueItemDTO{}
	offset := (page - 1) * pageSize
	if int64(offset) < total {
		entries, err := f.queueRepo.List(ctx, mf, pageSize, offset)
		if err != nil {
			return nil, NewBusinessError("QUEUE_FETCH_FAILED", "Failed to fetch review queue", err)
		}
		for _, e := range entries {
			items = append(items, toQueueItem(e))
		}
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	return &dto.ReviewQueueResponse{
		Items:      items,
		TotalCount: total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}, nil
}

// SelectAll adds every account of the filtered view to sel
func (f *ReviewQueueFlowImpl) SelectAll(ctx context.Context, sel *Selection, filter QueueFilter) error {
	ids, err := f.activeIDs(ctx, filter)
	if err != nil {
		return err
	}
	sel.SelectAll(ids)
	return nil
}

// DecideSelected applies decision to the selected accounts still present in the filtered view
func (f *ReviewQueueFlowImpl) DecideSelected(ctx context.Context, adminUUID uuid.UUID, sel *Selection, filter QueueFilter, decision Decision, metadata *ClientMetadata) (*BatchDecisionResult, error) {
	active, err := f.activeIDs(ctx, filter)
	if err != nil {
		return nil, err
	}
	ids := sel.Actionable(active)
	if len(ids) == 0 {
		return nil, NewBusinessError("NOTHING_SELECTED", "No selected account is in the current view", ErrEmptyAccountIDs)
	}

	result, err := f.verification.BatchRecordDecision(ctx, adminUUID, ids, decision, metadata)
	if result != nil {
		for _, id := range result.Succeeded {
			sel.Deselect(id)
		}
	}
	return result, err
}

func (f *ReviewQueueFlowImpl) activeIDs(ctx context.Context, filter QueueFilter) ([]uuid.UUID, error) {
	mf, err := filter.toModel(models.ProfessionalStatusPending)
	if err != nil {
		return nil, NewBusinessError("INVALID_ROLE", "Role must be veterinarian, vendor or all", err)
	}
	entries, err := f.queueRepo.List(ctx, mf, 0, 0)
	if err != nil {
		return nil, NewBusinessError("QUEUE_FETCH_FAILED", "Failed to fetch review queue", err)
	}
	ids := make([]uuid.UUID, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.Account.UUID)
	}
	return ids, nil
}

var exportHeader = []string{"role", "name", "license_number", "status"}

// approvedSnapshot reads every approved professional in one query
func (f *ReviewQueueFlowImpl) approvedSnapshot(ctx context.Context) ([][]string, error) {
	mf, _ := QueueFilter{}.toModel(models.ProfessionalStatusApproved)
	entries, err := f.queueRepo.List(ctx, mf, 0, 0)
	if err != nil {
		return nil, NewBusinessError("EXPORT_FAILED", "Failed to read approved accounts", err)
	}
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{
			string(e.Account.Role),
			e.Profile.DisplayName,
			e.Profile.LicenseNumber,
			string(e.Account.CurrentStatus()),
		})
	}
	return rows, nil
}

// ExportApprovedCSV writes a point-in-time CSV of approved professionals
func (f *ReviewQueueFlowImpl) ExportApprovedCSV(ctx context.Context, adminUUID uuid.UUID, metadata *ClientMetadata) (*ExportFile, error) {
	admin, err := requireAdmin(ctx, f.accountRepo, adminUUID)
	if err != nil {
		return nil, err
	}
	rows, err := f.approvedSnapshot(ctx)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(exportHeader); err != nil {
		return nil, NewBusinessError("EXPORT_FAILED", "Failed to write export", err)
	}
	if err := w.WriteAll(rows); err != nil {
		return nil, NewBusinessError("EXPORT_FAILED", "Failed to write export", err)
	}

	file := &ExportFile{
		FileName:    exportFileName("csv"),
		ContentType: "text/csv",
		Content:     buf.Bytes(),
		Rows:        len(rows),
	}
	f.auditExport(ctx, admin, file, metadata)
	return file, nil
}

// ExportApprovedExcel writes the same snapshot as ExportApprovedCSV as an xlsx workbook
func (f *ReviewQueueFlowImpl) ExportApprovedExcel(ctx context.Context, adminUUID uuid.UUID, metadata *ClientMetadata) (*ExportFile, error) {
	admin, err := requireAdmin(ctx, f.accountRepo, adminUUID)
	if err != nil {
		return nil, err
	}
	rows, err := f.approvedSnapshot(ctx)
	if err != nil {
		return nil, err
	}

	xl := excelize.NewFile()
	defer func() { _ = xl.Close() }()

	const sheet = "Approved"
	if err := xl.SetSheetName(xl.GetSheetName(0), sheet); err != nil {
		return nil, NewBusinessError("EXPORT_FAILED", "Failed to build workbook", err)
	}
	header := make([]any, len(exportHeader))
	for i, h := range exportHeader {
		header[i] = h
	}
	if err := xl.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, NewBusinessError("EXPORT_FAILED", "Failed to build workbook", err)
	}
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, NewBusinessError("EXPORT_FAILED", "Failed to build workbook", err)
		}
		values := []any{r[0], r[1], r[2], r[3]}
		if err := xl.SetSheetRow(sheet, cell, &values); err != nil {
			return nil, NewBusinessError("EXPORT_FAILED", "Failed to build workbook", err)
		}
	}

	buf, err := xl.WriteToBuffer()
	if err != nil {
		return nil, NewBusinessError("EXPORT_FAILED", "Failed to write workbook", err)
	}

	file := &ExportFile{
		FileName:    exportFileName("xlsx"),
		ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		Content:     buf.Bytes(),
		Rows:        len(rows),
	}
	f.auditExport(ctx, admin, file, metadata)
	return file, nil
}

func (f *ReviewQueueFlowImpl) auditExport(ctx context.Context, admin *models.Account, file *ExportFile, metadata *ClientMetadata) {
	msg := fmt.Sprintf("Exported %d approved professionals to %s", file.Rows, file.FileName)
	_ = createAuditLog(ctx, f.auditRepo, auditEntry{
		adminID: &admin.ID, action: models.AuditActionApprovedExported,
		description: msg, success: true,
		extra: map[string]any{"rows": file.Rows, "format": file.ContentType},
	}, metadata)
}

func exportFileName(ext string) string {
	return fmt.Sprintf("approved-professionals-%s.%s", utils.UTCNow().Format("20060102-150405"), ext)
}

func toQueueItem(e *models.ReviewQueueEntry) dto.ReviewQueueItemDTO {
	return dto.ReviewQueueItemDTO{
		AccountUUID:   e.Account.UUID.String(),
		Email:         e.Account.Email,
		Role:          string(e.Account.Role),
		DisplayName:   e.Profile.DisplayName,
		LicenseNumber: e.Profile.LicenseNumber,
		Phone:         e.Profile.Phone,
		Status:        string(e.Account.CurrentStatus()),
		DocumentCount: int(e.DocumentCount),
		SubmittedAt:   e.Profile.SubmittedAt,
	}
}
