package businessflow

import (
	"testing"

	"github.com/amirphl/vetverify/models"
	"github.com/stretchr/testify/assert"
)

func TestNextStatus(t *testing.T) {
	const (
		pending   = models.ProfessionalStatusPending
		approved  = models.ProfessionalStatusApproved
		rejected  = models.ProfessionalStatusRejected
		suspended = models.ProfessionalStatusSuspended
	)

	tests := []struct {
		from   models.ProfessionalStatus
		action models.ReviewAction
		to     models.ProfessionalStatus
		ok     bool
	}{
		{unsubmitted, models.ReviewActionSubmit, pending, true},
		{rejected, models.ReviewActionSubmit, pending, true},
		{pending, models.ReviewActionSubmit, pending, false},
		{approved, models.ReviewActionSubmit, pending, false},
		{suspended, models.ReviewActionSubmit, pending, false},

		{pending, models.ReviewActionApprove, approved, true},
		{unsubmitted, models.ReviewActionApprove, approved, false},
		{approved, models.ReviewActionApprove, approved, false},
		{rejected, models.ReviewActionApprove, approved, false},
		{suspended, models.ReviewActionApprove, approved, false},

		{pending, models.ReviewActionReject, rejected, true},
		{rejected, models.ReviewActionReject, rejected, false},
		{approved, models.ReviewActionReject, rejected, false},

		{approved, models.ReviewActionSuspend, suspended, true},
		{pending, models.ReviewActionSuspend, suspended, false},
		{suspended, models.ReviewActionSuspend, suspended, false},

		{suspended, models.ReviewActionReinstate, approved, true},
		{approved, models.ReviewActionReinstate, approved, false},
		{rejected, models.ReviewActionReinstate, approved, false},
	}

	for _, tt := range tests {
		name := string(tt.action) + "From_" + string(tt.from)
		if tt.from == unsubmitted {
			name = string(tt.action) + "From_unsubmitted"
		}
		t.Run(name, func(t *testing.T) {
			to, ok := nextStatus(tt.from, tt.action)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.to, to)
		})
	}

	t.Run("UnknownAction", func(t *testing.T) {
		_, ok := nextStatus(pending, models.ReviewAction("archive"))
		assert.False(t, ok)
	})
}

func TestActionForDecision(t *testing.T) {
	action, ok := actionForDecision(models.ProfessionalStatusApproved)
	assert.True(t, ok)
	assert.Equal(t, models.ReviewActionApprove, action)

	action, ok = actionForDecision(models.ProfessionalStatusRejected)
	assert.True(t, ok)
	assert.Equal(t, models.ReviewActionReject, action)

	for _, s := range []models.ProfessionalStatus{models.ProfessionalStatusPending, models.ProfessionalStatusSuspended, ""} {
		_, ok := actionForDecision(s)
		assert.False(t, ok, "status %q", s)
	}
}

func TestCanSelfEdit(t *testing.T) {
	assert.True(t, canSelfEdit(models.ProfessionalStatusPending))
	assert.True(t, canSelfEdit(models.ProfessionalStatusApproved))
	assert.True(t, canSelfEdit(models.ProfessionalStatusRejected))
	assert.False(t, canSelfEdit(models.ProfessionalStatusSuspended))
	assert.False(t, canSelfEdit(unsubmitted))
}
