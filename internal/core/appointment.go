package core

import (
	"context"
	"sort"
	"time"

	"bookcore/pkg/domain"
)

// CreateAppointmentInput carries the fields accepted at booking time.
type CreateAppointmentInput struct {
	PatientID  string
	ProviderID string
	CompanyID  string
	ServiceID  string
	Date       string
	Time       string
	Notes      string
}

// CreateAppointment books a slot. The reference triple must be mutually
// consistent (the provider offers the service, the service belongs to the
// company) and the requested time must currently be free. The existence
// check and the insert run inside one store transaction, so concurrent
// bookings for the same slot cannot both commit; the slot conflict rule
// re-checks the final state as a backstop.
func (s *Service) CreateAppointment(ctx context.Context, input CreateAppointmentInput) (Appointment, Result, error) {
	ctx, finish := s.begin(ctx, "create_appointment", EntityAppointment)
	var created Appointment
	var res Result
	err := func() error {
		if _, err := domain.CombineDateTime(input.Date, input.Time); err != nil {
			return err
		}
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			view := tx.Snapshot()
			patient, ok := view.FindUser(input.PatientID)
			if !ok {
				return domain.InvalidReferenceError{Field: "patient_id", ID: input.PatientID}
			}
			provider, ok := view.FindUser(input.ProviderID)
			if !ok || provider.Role != RoleProvider {
				return domain.InvalidReferenceError{Field: "provider_id", ID: input.ProviderID}
			}
			company, ok := view.FindCompany(input.CompanyID)
			if !ok {
				return domain.InvalidReferenceError{Field: "company_id", ID: input.CompanyID}
			}
			service, ok := view.FindService(input.ServiceID)
			if !ok || service.CompanyID != company.ID {
				return domain.InvalidReferenceError{Field: "service_id", ID: input.ServiceID}
			}
			if !provider.OffersService(service.ID) {
				return domain.InvalidReferenceError{Field: "service_id", ID: input.ServiceID}
			}

			free := false
			for _, slot := range availableSlots(view, input.ProviderID, input.Date) {
				if slot == input.Time {
					free = true
					break
				}
			}
			if !free {
				return domain.SlotUnavailableError{ProviderID: input.ProviderID, Date: input.Date, Time: input.Time}
			}

			var txErr error
			created, txErr = tx.CreateAppointment(Appointment{
				PatientID:    input.PatientID,
				ProviderID:   input.ProviderID,
				CompanyID:    input.CompanyID,
				ServiceID:    input.ServiceID,
				Date:         input.Date,
				Time:         input.Time,
				Notes:        input.Notes,
				PatientName:  patient.Name,
				ProviderName: provider.Name,
				CompanyName:  company.Name,
				ServiceName:  service.Name,
				Status:       StatusPending,
			})
			return txErr
		})
		return err
	}()
	finish(created.ID, err)
	s.warnOnViolations("create_appointment", res)
	return created, res, err
}

// ConfirmAppointment moves a pending appointment to confirmed and records
// the confirmation timestamp.
func (s *Service) ConfirmAppointment(ctx context.Context, id string) (Appointment, Result, error) {
	ctx, finish := s.begin(ctx, "confirm_appointment", EntityAppointment)
	now := s.nowFn()
	var updated Appointment
	res, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		var txErr error
		updated, txErr = tx.UpdateAppointment(id, func(a *Appointment) error {
			if from := a.DerivedStatus(now); from != StatusPending {
				return domain.InvalidTransitionError{ID: id, From: from, To: StatusConfirmed}
			}
			a.Status = StatusConfirmed
			a.ConfirmedAt = &now
			return nil
		})
		return txErr
	})
	finish(id, err)
	return updated, res, err
}

// CancelAppointment moves a pending or confirmed appointment to cancelled,
// records the cancellation timestamp, and thereby releases the slot for the
// next AvailableSlots read.
func (s *Service) CancelAppointment(ctx context.Context, id string) (Appointment, Result, error) {
	ctx, finish := s.begin(ctx, "cancel_appointment", EntityAppointment)
	now := s.nowFn()
	var updated Appointment
	res, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		var txErr error
		updated, txErr = tx.UpdateAppointment(id, func(a *Appointment) error {
			switch from := a.DerivedStatus(now); from {
			case StatusPending, StatusConfirmed:
			default:
				return domain.InvalidTransitionError{ID: id, From: from, To: StatusCancelled}
			}
			a.Status = StatusCancelled
			a.CancelledAt = &now
			return nil
		})
		return txErr
	})
	finish(id, err)
	return updated, res, err
}

// GetAppointment retrieves an appointment by id.
func (s *Service) GetAppointment(_ context.Context, id string) (Appointment, error) {
	a, ok := s.store.GetAppointment(id)
	if !ok {
		return Appointment{}, domain.NotFoundError{Entity: EntityAppointment, ID: id}
	}
	return a, nil
}

// forActor reports whether the appointment belongs to the actor on either
// the patient or the provider side.
func forActor(a Appointment, actorID string) bool {
	return a.PatientID == actorID || a.ProviderID == actorID
}

func startsAt(a Appointment) time.Time {
	at, err := a.StartsAt()
	if err != nil {
		return time.Time{}
	}
	return at
}

func sortAscending(appts []Appointment) {
	sort.Slice(appts, func(i, j int) bool { return startsAt(appts[i]).Before(startsAt(appts[j])) })
}

// TodayForProvider lists a provider's non-cancelled appointments for the
// current date, ordered by time ascending.
func (s *Service) TodayForProvider(_ context.Context, providerID string) []Appointment {
	today := s.nowFn().Format(domain.DateLayout)
	var out []Appointment
	for _, a := range s.store.ListAppointments() {
		if a.ProviderID == providerID && a.Date == today && a.Active() {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Time < out[j].Time })
	return out
}

// Upcoming lists an actor's non-cancelled appointments strictly after now,
// ordered by date and time ascending. Recomputed on every call: the passage
// of time alone moves an appointment to Past without any stored transition.
func (s *Service) Upcoming(_ context.Context, actorID string) []Appointment {
	now := s.nowFn()
	var out []Appointment
	for _, a := range s.store.ListAppointments() {
		if forActor(a, actorID) && a.Active() && startsAt(a).After(now) {
			out = append(out, a)
		}
	}
	sortAscending(out)
	return out
}

// Past lists an actor's non-cancelled appointments at or before now, ordered
// by date and time descending. Together with Upcoming it partitions the
// actor's non-cancelled appointments with no overlap and no gap.
func (s *Service) Past(_ context.Context, actorID string) []Appointment {
	now := s.nowFn()
	var out []Appointment
	for _, a := range s.store.ListAppointments() {
		if forActor(a, actorID) && a.Active() && !startsAt(a).After(now) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return startsAt(out[i]).After(startsAt(out[j])) })
	return out
}

// PendingForProvider lists a provider's pending appointments regardless of
// date, ordered by date and time ascending.
func (s *Service) PendingForProvider(_ context.Context, providerID string) []Appointment {
	var out []Appointment
	for _, a := range s.store.ListAppointments() {
		if a.ProviderID == providerID && a.Status == StatusPending {
			out = append(out, a)
		}
	}
	sortAscending(out)
	return out
}

// CancelledForPatient lists a patient's cancelled appointments.
func (s *Service) CancelledForPatient(_ context.Context, patientID string) []Appointment {
	var out []Appointment
	for _, a := range s.store.ListAppointments() {
		if a.PatientID == patientID && a.Status == StatusCancelled {
			out = append(out, a)
		}
	}
	sortAscending(out)
	return out
}
