package core

import (
	"context"
	"fmt"
	"sort"

	"bookcore/pkg/domain"
)

// SetAvailability declares the open slots of a provider for one calendar
// date. Any prior declaration for the same date is replaced wholesale, not
// merged; booking history is untouched.
func (s *Service) SetAvailability(ctx context.Context, providerID, date string, slots []string) (Availability, Result, error) {
	ctx, finish := s.begin(ctx, "set_availability", EntityAvailability)
	var saved Availability
	var res Result
	err := func() error {
		if !domain.ValidDate(date) {
			return fmt.Errorf("invalid date %q", date)
		}
		for _, slot := range slots {
			if !domain.ValidSlot(slot) {
				return fmt.Errorf("invalid slot %q", slot)
			}
		}
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			provider, ok := tx.Snapshot().FindUser(providerID)
			if !ok || provider.Role != RoleProvider {
				return domain.InvalidReferenceError{Field: "provider_id", ID: providerID}
			}
			var txErr error
			saved, txErr = tx.PutAvailability(Availability{
				ProviderID: providerID,
				Date:       date,
				Slots:      slots,
			})
			return txErr
		})
		return err
	}()
	finish(saved.ID, err)
	return saved, res, err
}

// availableSlots computes the declared slot list for a (provider, date) pair
// minus the times held by active appointments, preserving declared order.
// It runs against a view so booking checks and listing reads share one
// implementation.
func availableSlots(view TransactionView, providerID, date string) []string {
	declared, ok := view.FindAvailability(providerID, date)
	if !ok {
		return nil
	}
	booked := make(map[string]struct{})
	for _, appt := range view.ListAppointments() {
		if appt.ProviderID == providerID && appt.Date == date && appt.Active() {
			booked[appt.Time] = struct{}{}
		}
	}
	out := make([]string, 0, len(declared.Slots))
	for _, slot := range declared.Slots {
		if _, taken := booked[slot]; !taken {
			out = append(out, slot)
		}
	}
	return out
}

// AvailableSlots returns the bookable slots for a provider on a date. The
// subtraction is recomputed on every call; cancelling an appointment frees
// its slot on the next read without invalidation logic.
func (s *Service) AvailableSlots(ctx context.Context, providerID, date string) ([]string, error) {
	var out []string
	err := s.store.View(ctx, func(view TransactionView) error {
		out = availableSlots(view, providerID, date)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ProviderAvailabilities lists a provider's declarations sorted by date.
func (s *Service) ProviderAvailabilities(_ context.Context, providerID string) []Availability {
	var out []Availability
	for _, a := range s.store.ListAvailabilities() {
		if a.ProviderID == providerID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}
