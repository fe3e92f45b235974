package businessflow

import (
	"github.com/amirphl/vetverify/models"
)

// unsubmitted is the state of an account that never submitted a profile
const unsubmitted models.ProfessionalStatus = ""

var allowedTransitions = map[models.ReviewAction]struct {
	from []models.ProfessionalStatus
	to   models.ProfessionalStatus
}{
	models.ReviewActionSubmit: {
		from: []models.ProfessionalStatus{unsubmitted, models.ProfessionalStatusRejected},
		to:   models.ProfessionalStatusPending,
	},
	models.ReviewActionApprove: {
		from: []models.ProfessionalStatus{models.ProfessionalStatusPending},
		to:   models.ProfessionalStatusApproved,
	},
	models.ReviewActionReject: {
		from: []models.ProfessionalStatus{models.ProfessionalStatusPending},
		to:   models.ProfessionalStatusRejected,
	},
	models.ReviewActionSuspend: {
		from: []models.ProfessionalStatus{models.ProfessionalStatusApproved},
		to:   models.ProfessionalStatusSuspended,
	},
	models.ReviewActionReinstate: {
		from: []models.ProfessionalStatus{models.ProfessionalStatusSuspended},
		to:   models.ProfessionalStatusApproved,
	},
}

// nextStatus returns the status reached by applying action from the current status
func nextStatus(current models.ProfessionalStatus, action models.ReviewAction) (models.ProfessionalStatus, bool) {
	t, ok := allowedTransitions[action]
	if !ok {
		return "", false
	}
	for _, from := range t.from {
		if from == current {
			return t.to, true
		}
	}
	return t.to, false
}

// actionForDecision maps an admin disposition onto its review action
func actionForDecision(status models.ProfessionalStatus) (models.ReviewAction, bool) {
	switch status {
	case models.ProfessionalStatusApproved:
		return models.ReviewActionApprove, true
	case models.ProfessionalStatusRejected:
		return models.ReviewActionReject, true
	}
	return "", false
}

// canSelfEdit reports whether a professional may change profile data in this status
func canSelfEdit(current models.ProfessionalStatus) bool {
	switch current {
	case models.ProfessionalStatusPending, models.ProfessionalStatusApproved, models.ProfessionalStatusRejected:
		return true
	}
	return false
}
