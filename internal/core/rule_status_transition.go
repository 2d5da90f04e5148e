package core

import (
	"context"
	"fmt"

	"bookcore/pkg/domain"
)

// NewStatusTransitionRule returns the rule blocking illegal appointment
// status changes. The engine operations reject bad transitions up front with
// typed errors; this rule is the backstop for any direct update path.
func NewStatusTransitionRule() domain.Rule {
	return statusTransitionRule{}
}

type statusTransitionRule struct{}

var allowedTransitions = map[domain.AppointmentStatus]map[domain.AppointmentStatus]struct{}{
	domain.StatusPending: {
		domain.StatusConfirmed: {},
		domain.StatusCancelled: {},
	},
	domain.StatusConfirmed: {
		domain.StatusCancelled: {},
	},
	// cancelled is terminal; completed is derived and never stored.
	domain.StatusCancelled: {},
}

func (statusTransitionRule) Name() string { return "status_transition" }

func (statusTransitionRule) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, change := range changes {
		if change.Entity != domain.EntityAppointment {
			continue
		}
		after, ok := change.After.(domain.Appointment)
		if !ok {
			continue
		}
		if _, valid := allowedTransitions[after.Status]; !valid {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "status_transition",
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("appointment %s is set to invalid status %s", after.ID, after.Status),
				Entity:   domain.EntityAppointment,
				EntityID: after.ID,
			})
			continue
		}
		if change.Action != domain.ActionUpdate {
			continue
		}
		before, ok := change.Before.(domain.Appointment)
		if !ok || before.Status == after.Status {
			continue
		}
		if _, allowed := allowedTransitions[before.Status][after.Status]; !allowed {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "status_transition",
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("appointment %s cannot move from %s to %s", after.ID, before.Status, after.Status),
				Entity:   domain.EntityAppointment,
				EntityID: after.ID,
			})
		}
	}
	return res, nil
}
