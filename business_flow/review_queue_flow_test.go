package businessflow

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"

	"github.com/amirphl/vetverify/models"
	"github.com/amirphl/vetverify/utils"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func accountUUIDs(items []string) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(items))
	for _, s := range items {
		out = append(out, uuid.MustParse(s))
	}
	return out
}

func TestReviewQueueList(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	admin := env.newAdmin(t)

	sharmaVet := env.submitVet(t, "aisha@example.com", "Dr. Aisha Sharma")
	sharmaShop := env.submitVendor(t, "sharma.pets@example.com", "Happy Tails")
	kumar := env.submitVet(t, "ravi@example.com", "Dr. Ravi Kumar")
	approved := env.submitVet(t, "done@example.com", "Dr. Already Approved")
	env.approve(t, admin, approved)
	env.newAccount(t, "new@example.com", models.RoleVeterinarian)

	itemIDs := func(t *testing.T, filter QueueFilter, page, pageSize int) []uuid.UUID {
		t.Helper()
		resp, err := env.reviewQueue.List(ctx, filter, page, pageSize)
		require.NoError(t, err)
		var out []string
		for _, it := range resp.Items {
			out = append(out, it.AccountUUID)
		}
		return accountUUIDs(out)
	}

	t.Run("OnlyPendingInSubmissionOrder", func(t *testing.T) {
		resp, err := env.reviewQueue.List(ctx, QueueFilter{}, 1, 10)
		require.NoError(t, err)
		assert.Equal(t, int64(3), resp.TotalCount)
		assert.Equal(t, 1, resp.TotalPages)
		require.Len(t, resp.Items, 3)

		assert.Equal(t, []uuid.UUID{sharmaVet.UUID, sharmaShop.UUID, kumar.UUID}, itemIDs(t, QueueFilter{}, 1, 10))
		for _, it := range resp.Items {
			assert.Equal(t, "pending", it.Status)
			assert.Equal(t, 2, it.DocumentCount)
		}
	})

	t.Run("SearchMatchesNameOrEmail", func(t *testing.T) {
		got := itemIDs(t, QueueFilter{SearchText: "  SHARMA "}, 1, 10)
		assert.Equal(t, []uuid.UUID{sharmaVet.UUID, sharmaShop.UUID}, got)

		got = itemIDs(t, QueueFilter{SearchText: "ravi@"}, 1, 10)
		assert.Equal(t, []uuid.UUID{kumar.UUID}, got)

		resp, err := env.reviewQueue.List(ctx, QueueFilter{SearchText: "nobody"}, 1, 10)
		require.NoError(t, err)
		assert.Empty(t, resp.Items)
		assert.Equal(t, int64(0), resp.TotalCount)
	})

	t.Run("RoleFilter", func(t *testing.T) {
		assert.Equal(t, []uuid.UUID{sharmaShop.UUID}, itemIDs(t, QueueFilter{Role: "vendor"}, 1, 10))
		assert.Equal(t, []uuid.UUID{sharmaVet.UUID, kumar.UUID}, itemIDs(t, QueueFilter{Role: "Veterinarian"}, 1, 10))
		assert.Len(t, itemIDs(t, QueueFilter{Role: "all"}, 1, 10), 3)
		assert.Equal(t, []uuid.UUID{sharmaVet.UUID}, itemIDs(t, QueueFilter{Role: "veterinarian", SearchText: "sharma"}, 1, 10))

		_, err := env.reviewQueue.List(ctx, QueueFilter{Role: "pet_parent"}, 1, 10)
		assert.ErrorIs(t, err, ErrInvalidRole)
	})

	t.Run("Pagination", func(t *testing.T) {
		assert.Equal(t, []uuid.UUID{sharmaVet.UUID, sharmaShop.UUID}, itemIDs(t, QueueFilter{}, 1, 2))
		assert.Equal(t, []uuid.UUID{kumar.UUID}, itemIDs(t, QueueFilter{}, 2, 2))

		resp, err := env.reviewQueue.List(ctx, QueueFilter{}, 3, 2)
		require.NoError(t, err)
		assert.Empty(t, resp.Items)
		assert.NotNil(t, resp.Items)
		assert.Equal(t, int64(3), resp.TotalCount)
		assert.Equal(t, 2, resp.TotalPages)
	})

	t.Run("Defaults", func(t *testing.T) {
		resp, err := env.reviewQueue.List(ctx, QueueFilter{}, 0, 0)
		require.NoError(t, err)
		assert.Equal(t, 1, resp.Page)
		assert.Equal(t, env.cfg.QueuePageSize, resp.PageSize)
	})

	t.Run("InvalidPaging", func(t *testing.T) {
		_, err := env.reviewQueue.List(ctx, QueueFilter{}, -1, 10)
		assert.ErrorIs(t, err, ErrInvalidPage)

		_, err = env.reviewQueue.List(ctx, QueueFilter{}, 1, 101)
		assert.ErrorIs(t, err, ErrInvalidPageSize)
	})

	t.Run("RepeatedReadsAgree", func(t *testing.T) {
		first, err := env.reviewQueue.List(ctx, QueueFilter{SearchText: "sharma"}, 1, 10)
		require.NoError(t, err)
		second, err := env.reviewQueue.List(ctx, QueueFilter{SearchText: "sharma"}, 1, 10)
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})
}

func TestSelection(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()

	sel := NewSelection()
	sel.SelectOne(a)
	sel.SelectOne(b)
	sel.SelectOne(a)
	assert.Equal(t, 2, sel.Len())
	assert.Equal(t, []uuid.UUID{a, b}, sel.IDs())

	sel.SelectAll([]uuid.UUID{b, c})
	assert.Equal(t, []uuid.UUID{a, b, c}, sel.IDs())

	sel.Deselect(b)
	sel.Deselect(uuid.New())
	assert.False(t, sel.Contains(b))
	assert.Equal(t, []uuid.UUID{a, c}, sel.IDs())

	// Rows that left the view are not actionable
	assert.Equal(t, []uuid.UUID{c}, sel.Actionable([]uuid.UUID{c, b}))

	sel.DeselectAll()
	assert.Equal(t, 0, sel.Len())
	assert.Empty(t, sel.IDs())
}

func TestDecideSelected(t *testing.T) {
	ctx := context.Background()

	t.Run("SelectAllThenDeselectOne", func(t *testing.T) {
		env := newTestEnv(t)
		admin := env.newAdmin(t)
		a := env.submitVet(t, "a@example.com", "Dr. A")
		b := env.submitVet(t, "b@example.com", "Dr. B")
		shop := env.submitVendor(t, "shop@example.com", "Shop")

		filter := QueueFilter{Role: "veterinarian"}
		sel := NewSelection()
		require.NoError(t, env.reviewQueue.SelectAll(ctx, sel, filter))
		assert.Equal(t, []uuid.UUID{a.UUID, b.UUID}, sel.IDs())

		sel.Deselect(b.UUID)
		// Outside the filtered view
		sel.SelectOne(shop.UUID)

		result, err := env.reviewQueue.DecideSelected(ctx, admin.UUID, sel, filter,
			Decision{Status: models.ProfessionalStatusApproved}, testMetadata())
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{a.UUID}, result.Succeeded)

		assert.Equal(t, models.ProfessionalStatusApproved, env.reload(t, a).CurrentStatus())
		assert.Equal(t, models.ProfessionalStatusPending, env.reload(t, b).CurrentStatus())
		assert.Equal(t, models.ProfessionalStatusPending, env.reload(t, shop).CurrentStatus())

		// Decided rows leave the selection
		assert.Equal(t, []uuid.UUID{shop.UUID}, sel.IDs())
	})

	t.Run("NothingActionable", func(t *testing.T) {
		env := newTestEnv(t)
		admin := env.newAdmin(t)
		shop := env.submitVendor(t, "shop@example.com", "Shop")

		sel := NewSelection()
		sel.SelectOne(shop.UUID)
		_, err := env.reviewQueue.DecideSelected(ctx, admin.UUID, sel, QueueFilter{Role: "veterinarian"},
			Decision{Status: models.ProfessionalStatusApproved}, testMetadata())
		assert.ErrorIs(t, err, ErrEmptyAccountIDs)
		assert.Equal(t, "NOTHING_SELECTED", businessCode(t, err))
	})
}

func TestExportApproved(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	admin := env.newAdmin(t)

	vet := env.submitVet(t, "vet@example.com", "Dr. Aisha Sharma")
	shop := env.submitVendor(t, "shop@example.com", "Happy Tails, Pets & More")
	env.submitVet(t, "pending@example.com", "Dr. Still Pending")
	env.approve(t, admin, vet)
	env.approve(t, admin, shop)

	want := [][]string{
		{"role", "name", "license_number", "status"},
		{"veterinarian", "Dr. Aisha Sharma", "VCI-12345", "approved"},
		{"vendor", "Happy Tails, Pets & More", "BL-99887", "approved"},
	}

	t.Run("CSV", func(t *testing.T) {
		file, err := env.reviewQueue.ExportApprovedCSV(ctx, admin.UUID, testMetadata())
		require.NoError(t, err)
		assert.Equal(t, 2, file.Rows)
		assert.Equal(t, "text/csv", file.ContentType)
		assert.Contains(t, file.FileName, ".csv")

		records, err := csv.NewReader(bytes.NewReader(file.Content)).ReadAll()
		require.NoError(t, err)
		assert.Equal(t, want, records)
	})

	t.Run("Excel", func(t *testing.T) {
		file, err := env.reviewQueue.ExportApprovedExcel(ctx, admin.UUID, testMetadata())
		require.NoError(t, err)
		assert.Equal(t, 2, file.Rows)

		xl, err := excelize.OpenReader(bytes.NewReader(file.Content))
		require.NoError(t, err)
		defer func() { _ = xl.Close() }()

		rows, err := xl.GetRows("Approved")
		require.NoError(t, err)
		assert.Equal(t, want, rows)
	})

	t.Run("RequiresAdmin", func(t *testing.T) {
		_, err := env.reviewQueue.ExportApprovedCSV(ctx, vet.UUID, testMetadata())
		assert.True(t, IsAdminRequired(err))
	})

	t.Run("ExportIsAudited", func(t *testing.T) {
		logs, err := env.audit.ListByAction(ctx, models.AuditActionApprovedExported, 0, 0)
		require.NoError(t, err)
		assert.Len(t, logs, 2)
	})
}

func TestExportIsPointInTime(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	admin := env.newAdmin(t)

	vet := env.submitVet(t, "vet@example.com", "Dr. Aisha Sharma")
	shop := env.submitVendor(t, "shop@example.com", "Happy Tails")
	env.approve(t, admin, vet)
	env.approve(t, admin, shop)

	first, err := env.reviewQueue.ExportApprovedCSV(ctx, admin.UUID, testMetadata())
	require.NoError(t, err)
	require.Equal(t, 2, first.Rows)
	snapshot := bytes.Clone(first.Content)

	_, err = env.verification.SuspendAccount(ctx, admin.UUID, shop.UUID, ActionDetails{Reason: utils.ToPtr("Expired trade license")}, testMetadata())
	require.NoError(t, err)

	assert.Equal(t, 2, first.Rows)
	assert.Equal(t, snapshot, first.Content)
	records, err := csv.NewReader(bytes.NewReader(first.Content)).ReadAll()
	require.NoError(t, err)
	assert.Len(t, records, 3)

	second, err := env.reviewQueue.ExportApprovedCSV(ctx, admin.UUID, testMetadata())
	require.NoError(t, err)
	assert.Equal(t, 1, second.Rows)
	assert.NotContains(t, string(second.Content), "Happy Tails")
}
