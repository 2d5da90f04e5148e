package core

import (
	"context"
	"testing"
	"time"

	"bookcore/pkg/domain"
)

var testNow = time.Date(2026, 3, 16, 12, 0, 0, 0, time.UTC)

// fixture is a populated in-memory service: one admin with a clinic, one
// provider offering one service with declared slots on 2026-03-20, and one
// patient. The service clock is pinned to testNow.
type fixture struct {
	svc      *Service
	admin    User
	provider User
	patient  User
	company  Company
	service  ServiceOffering
}

func newFixture(t *testing.T, opts ...ServiceOption) *fixture {
	t.Helper()
	ctx := context.Background()
	opts = append([]ServiceOption{WithClock(func() time.Time { return testNow })}, opts...)
	svc := NewInMemoryService(NewDefaultRulesEngine(), opts...)
	f := &fixture{svc: svc}

	var err error
	f.admin, _, err = svc.RegisterUser(ctx, RegisterUserInput{
		Email: "admin@clinic.test", Password: "pw-admin", Name: "Admin", Role: RoleAdmin,
	})
	if err != nil {
		t.Fatalf("register admin: %v", err)
	}
	f.company, _, err = svc.CreateCompany(ctx, Company{
		Name: "Clinic", Category: domain.CategoryHealth, Address: "1 Main St", AdminID: f.admin.ID,
	})
	if err != nil {
		t.Fatalf("create company: %v", err)
	}
	f.service, _, err = svc.CreateService(ctx, ServiceOffering{
		CompanyID: f.company.ID, Name: "Consultation", DurationMinutes: 30,
	})
	if err != nil {
		t.Fatalf("create service: %v", err)
	}
	companyID := f.company.ID
	f.provider, _, err = svc.RegisterUser(ctx, RegisterUserInput{
		Email: "provider@clinic.test", Password: "pw-provider", Name: "Provider",
		Role: RoleProvider, Specialty: "General", ServiceIDs: []string{f.service.ID}, CompanyID: &companyID,
	})
	if err != nil {
		t.Fatalf("register provider: %v", err)
	}
	f.patient, _, err = svc.RegisterUser(ctx, RegisterUserInput{
		Email: "patient@example.test", Password: "pw-patient", Name: "Patient",
	})
	if err != nil {
		t.Fatalf("register patient: %v", err)
	}
	if _, _, err := svc.SetAvailability(ctx, f.provider.ID, "2026-03-20", []string{"08:00", "08:30", "09:00"}); err != nil {
		t.Fatalf("set availability: %v", err)
	}
	return f
}

func (f *fixture) book(t *testing.T, date, slot string) Appointment {
	t.Helper()
	a, _, err := f.svc.CreateAppointment(context.Background(), CreateAppointmentInput{
		PatientID:  f.patient.ID,
		ProviderID: f.provider.ID,
		CompanyID:  f.company.ID,
		ServiceID:  f.service.ID,
		Date:       date,
		Time:       slot,
	})
	if err != nil {
		t.Fatalf("book %s %s: %v", date, slot, err)
	}
	return a
}
