package core

import (
	"context"
	"fmt"

	"bookcore/pkg/domain"
)

// NewSlotConflictRule returns the in-transaction rule enforcing that no two
// active appointments occupy the same (provider, date, time) tuple.
func NewSlotConflictRule() domain.Rule {
	return slotConflictRule{}
}

type slotConflictRule struct{}

func (slotConflictRule) Name() string { return "slot_conflict" }

func (slotConflictRule) Evaluate(_ context.Context, view domain.RuleView, _ []domain.Change) (domain.Result, error) {
	type slotKey struct {
		provider string
		date     string
		time     string
	}
	occupants := make(map[slotKey][]string)
	for _, appt := range view.ListAppointments() {
		if !appt.Active() {
			continue
		}
		key := slotKey{provider: appt.ProviderID, date: appt.Date, time: appt.Time}
		occupants[key] = append(occupants[key], appt.ID)
	}

	res := domain.Result{}
	for key, ids := range occupants {
		if len(ids) < 2 {
			continue
		}
		for _, id := range ids {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "slot_conflict",
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("provider %s has %d active appointments at %s %s", key.provider, len(ids), key.date, key.time),
				Entity:   domain.EntityAppointment,
				EntityID: id,
			})
		}
	}
	return res, nil
}
