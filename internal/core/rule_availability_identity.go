package core

import (
	"context"
	"fmt"

	"bookcore/pkg/domain"
)

// NewAvailabilityIdentityRule returns the rule enforcing at most one
// availability record per (provider, date) pair. PutAvailability already
// replaces wholesale; the rule guards the invariant itself.
func NewAvailabilityIdentityRule() domain.Rule {
	return availabilityIdentityRule{}
}

type availabilityIdentityRule struct{}

func (availabilityIdentityRule) Name() string { return "availability_identity" }

func (availabilityIdentityRule) Evaluate(_ context.Context, view domain.RuleView, _ []domain.Change) (domain.Result, error) {
	type dayKey struct {
		provider string
		date     string
	}
	records := make(map[dayKey][]string)
	for _, a := range view.ListAvailabilities() {
		key := dayKey{provider: a.ProviderID, date: a.Date}
		records[key] = append(records[key], a.ID)
	}

	res := domain.Result{}
	for key, ids := range records {
		if len(ids) < 2 {
			continue
		}
		for _, id := range ids {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "availability_identity",
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("provider %s has %d availability records for %s", key.provider, len(ids), key.date),
				Entity:   domain.EntityAvailability,
				EntityID: id,
			})
		}
	}
	return res, nil
}
