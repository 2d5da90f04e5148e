package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"bookcore/internal/core"
	"bookcore/pkg/domain"
)

type gateFixture struct {
	gate     *Gate
	svc      *core.Service
	admin    core.User
	provider core.User
	patient  core.User
	company  core.Company
	service  core.ServiceOffering
	date     string
}

func register(t *testing.T, svc *core.Service, input core.RegisterUserInput) core.User {
	t.Helper()
	u, _, err := svc.RegisterUser(context.Background(), input)
	if err != nil {
		t.Fatalf("register %s: %v", input.Email, err)
	}
	return u
}

// newGateFixture builds a gate over a populated service. Appointment dates
// are computed relative to the wall clock because token validation uses it.
func newGateFixture(t *testing.T) *gateFixture {
	t.Helper()
	ctx := context.Background()
	svc := core.NewInMemoryService(core.NewDefaultRulesEngine())
	f := &gateFixture{
		svc:  svc,
		gate: NewGate(svc, []byte("test-secret")),
		date: time.Now().UTC().AddDate(0, 0, 2).Format(domain.DateLayout),
	}

	f.admin = register(t, svc, core.RegisterUserInput{Email: "admin@clinic.test", Password: "pw-admin", Name: "Admin", Role: core.RoleAdmin})
	var err error
	f.company, _, err = svc.CreateCompany(ctx, core.Company{Name: "Clinic", Category: domain.CategoryHealth, AdminID: f.admin.ID})
	if err != nil {
		t.Fatalf("create company: %v", err)
	}
	f.service, _, err = svc.CreateService(ctx, core.ServiceOffering{CompanyID: f.company.ID, Name: "Consultation"})
	if err != nil {
		t.Fatalf("create service: %v", err)
	}
	companyID := f.company.ID
	f.provider = register(t, svc, core.RegisterUserInput{
		Email: "provider@clinic.test", Password: "pw-provider", Name: "Provider",
		Role: core.RoleProvider, ServiceIDs: []string{f.service.ID}, CompanyID: &companyID,
	})
	f.patient = register(t, svc, core.RegisterUserInput{Email: "patient@example.test", Password: "pw-patient", Name: "Patient"})

	if _, _, err := svc.SetAvailability(ctx, f.provider.ID, f.date, []string{"08:00", "08:30", "09:00"}); err != nil {
		t.Fatalf("set availability: %v", err)
	}
	return f
}

func (f *gateFixture) login(t *testing.T, email, password string) string {
	t.Helper()
	sess, err := f.gate.Login(context.Background(), email, password)
	if err != nil {
		t.Fatalf("login %s: %v", email, err)
	}
	return sess.Token
}

func TestNewGateFromEnv(t *testing.T) {
	f := newGateFixture(t)
	t.Setenv(EnvSecret, "env-secret")
	t.Setenv(EnvTTL, "2h")
	gate := NewGateFromEnv(f.svc)

	sess, err := gate.Login(context.Background(), "patient@example.test", "pw-patient")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if got := sess.ExpiresAt.Sub(sess.IssuedAt); got != 2*time.Hour {
		t.Fatalf("configured lifetime not applied: %v", got)
	}
}

func TestLoginAndCurrentActor(t *testing.T) {
	f := newGateFixture(t)
	ctx := context.Background()

	token := f.login(t, "patient@example.test", "pw-patient")
	actor, err := f.gate.CurrentActor(ctx, token)
	if err != nil {
		t.Fatalf("current actor: %v", err)
	}
	if actor.ID != f.patient.ID {
		t.Fatalf("got actor %s", actor.ID)
	}

	var credErr domain.InvalidCredentialsError
	if _, err := f.gate.Login(ctx, "patient@example.test", "wrong"); !errors.As(err, &credErr) {
		t.Fatalf("wrong password: got %v", err)
	}
	if _, err := f.gate.Login(ctx, "nobody@example.test", "pw-patient"); !errors.As(err, &credErr) {
		t.Fatalf("unknown email: got %v", err)
	}
	if _, err := f.gate.CurrentActor(ctx, "forged.token.value"); !errors.As(err, &credErr) {
		t.Fatalf("forged token: got %v", err)
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	f := newGateFixture(t)
	ctx := context.Background()
	token := f.login(t, "patient@example.test", "pw-patient")

	f.gate.Logout(token)
	var credErr domain.InvalidCredentialsError
	if _, err := f.gate.CurrentActor(ctx, token); !errors.As(err, &credErr) {
		t.Fatalf("revoked token still valid: %v", err)
	}
	// Revoking again is harmless.
	f.gate.Logout(token)
}

func TestUpdateProfileTouchesOwnRecordOnly(t *testing.T) {
	f := newGateFixture(t)
	ctx := context.Background()
	token := f.login(t, "patient@example.test", "pw-patient")

	updated, err := f.gate.UpdateProfile(ctx, token, func(u *core.User) error {
		u.Phone = "555-0042"
		return nil
	})
	if err != nil {
		t.Fatalf("update profile: %v", err)
	}
	if updated.ID != f.patient.ID || updated.Phone != "555-0042" {
		t.Fatalf("got %+v", updated)
	}
}

func TestSaveCompanyCreatesThenUpdates(t *testing.T) {
	f := newGateFixture(t)
	ctx := context.Background()

	admin2 := register(t, f.svc, core.RegisterUserInput{Email: "admin2@spa.test", Password: "pw", Name: "Admin Two", Role: core.RoleAdmin})
	token := f.login(t, "admin2@spa.test", "pw")

	created, err := f.gate.SaveCompany(ctx, token, core.Company{Name: "Aqua Spa", Category: domain.CategoryBeauty})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.AdminID != admin2.ID {
		t.Fatalf("admin not attached: %+v", created)
	}

	updated, err := f.gate.SaveCompany(ctx, token, core.Company{Name: "Aqua Spa & Wellness", Category: domain.CategoryBeauty})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.ID != created.ID || updated.Name != "Aqua Spa & Wellness" {
		t.Fatalf("second save did not update in place: %+v", updated)
	}

	// Patients may not manage companies.
	patientToken := f.login(t, "patient@example.test", "pw-patient")
	var forbidden domain.ForbiddenError
	if _, err := f.gate.SaveCompany(ctx, patientToken, core.Company{Name: "X", Category: domain.CategoryHealth}); !errors.As(err, &forbidden) {
		t.Fatalf("got %v", err)
	}
}

func TestServiceManagementRequiresOwnership(t *testing.T) {
	f := newGateFixture(t)
	ctx := context.Background()

	adminToken := f.login(t, "admin@clinic.test", "pw-admin")
	sv, err := f.gate.CreateService(ctx, adminToken, core.ServiceOffering{CompanyID: f.company.ID, Name: "Follow-up"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := f.gate.UpdateService(ctx, adminToken, sv.ID, func(s *core.ServiceOffering) error {
		s.DurationMinutes = 20
		return nil
	}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := f.gate.DeleteService(ctx, adminToken, sv.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	// A different admin owns nothing here.
	register(t, f.svc, core.RegisterUserInput{Email: "other@admin.test", Password: "pw", Name: "Other Admin", Role: core.RoleAdmin})
	otherToken := f.login(t, "other@admin.test", "pw")
	var forbidden domain.ForbiddenError
	if _, err := f.gate.CreateService(ctx, otherToken, core.ServiceOffering{CompanyID: f.company.ID, Name: "X"}); !errors.As(err, &forbidden) {
		t.Fatalf("foreign create: got %v", err)
	}
	if err := f.gate.DeleteService(ctx, otherToken, f.service.ID); !errors.As(err, &forbidden) {
		t.Fatalf("foreign delete: got %v", err)
	}
}

func TestRegisterEmployeeAttachesToOwnCompany(t *testing.T) {
	f := newGateFixture(t)
	ctx := context.Background()
	adminToken := f.login(t, "admin@clinic.test", "pw-admin")

	employee, err := f.gate.RegisterEmployee(ctx, adminToken, core.RegisterUserInput{
		Email: "new.provider@clinic.test", Password: "pw", Name: "New Provider", Specialty: "Dermatology",
	})
	if err != nil {
		t.Fatalf("register employee: %v", err)
	}
	if employee.Role != core.RoleProvider {
		t.Fatalf("got role %s", employee.Role)
	}
	if employee.CompanyID == nil || *employee.CompanyID != f.company.ID {
		t.Fatalf("not attached to company: %+v", employee.CompanyID)
	}

	patientToken := f.login(t, "patient@example.test", "pw-patient")
	var forbidden domain.ForbiddenError
	if _, err := f.gate.RegisterEmployee(ctx, patientToken, core.RegisterUserInput{Email: "x@y.z", Password: "pw"}); !errors.As(err, &forbidden) {
		t.Fatalf("got %v", err)
	}
}

func TestAvailabilityAndBookingFlow(t *testing.T) {
	f := newGateFixture(t)
	ctx := context.Background()

	providerToken := f.login(t, "provider@clinic.test", "pw-provider")
	if _, err := f.gate.SetAvailability(ctx, providerToken, f.date, []string{"10:00", "10:30"}); err != nil {
		t.Fatalf("set availability: %v", err)
	}

	patientToken := f.login(t, "patient@example.test", "pw-patient")
	var forbidden domain.ForbiddenError
	if _, err := f.gate.SetAvailability(ctx, patientToken, f.date, []string{"11:00"}); !errors.As(err, &forbidden) {
		t.Fatalf("patient set availability: got %v", err)
	}

	booked, err := f.gate.BookAppointment(ctx, patientToken, core.CreateAppointmentInput{
		ProviderID: f.provider.ID, CompanyID: f.company.ID, ServiceID: f.service.ID,
		Date: f.date, Time: "10:00",
	})
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	if booked.PatientID != f.patient.ID {
		t.Fatalf("booking not attributed to the actor: %s", booked.PatientID)
	}

	// The patient may not confirm; the provider may.
	if _, err := f.gate.ConfirmAppointment(ctx, patientToken, booked.ID); !errors.As(err, &forbidden) {
		t.Fatalf("patient confirm: got %v", err)
	}
	confirmed, err := f.gate.ConfirmAppointment(ctx, providerToken, booked.ID)
	if err != nil {
		t.Fatalf("provider confirm: %v", err)
	}
	if confirmed.Status != core.StatusConfirmed {
		t.Fatalf("got %s", confirmed.Status)
	}

	// The patient may cancel their own booking.
	cancelled, err := f.gate.CancelAppointment(ctx, patientToken, booked.ID)
	if err != nil {
		t.Fatalf("patient cancel: %v", err)
	}
	if cancelled.Status != core.StatusCancelled {
		t.Fatalf("got %s", cancelled.Status)
	}
}

func TestAdminManagesCompanyAppointments(t *testing.T) {
	f := newGateFixture(t)
	ctx := context.Background()

	patientToken := f.login(t, "patient@example.test", "pw-patient")
	booked, err := f.gate.BookAppointment(ctx, patientToken, core.CreateAppointmentInput{
		ProviderID: f.provider.ID, CompanyID: f.company.ID, ServiceID: f.service.ID,
		Date: f.date, Time: "08:00",
	})
	if err != nil {
		t.Fatalf("book: %v", err)
	}

	// The owning admin may confirm; an unrelated admin may not.
	register(t, f.svc, core.RegisterUserInput{Email: "other@admin.test", Password: "pw", Name: "Other Admin", Role: core.RoleAdmin})
	otherToken := f.login(t, "other@admin.test", "pw")
	var forbidden domain.ForbiddenError
	if _, err := f.gate.ConfirmAppointment(ctx, otherToken, booked.ID); !errors.As(err, &forbidden) {
		t.Fatalf("foreign admin confirm: got %v", err)
	}

	adminToken := f.login(t, "admin@clinic.test", "pw-admin")
	if _, err := f.gate.ConfirmAppointment(ctx, adminToken, booked.ID); err != nil {
		t.Fatalf("owning admin confirm: %v", err)
	}
	if _, err := f.gate.CancelAppointment(ctx, adminToken, booked.ID); err != nil {
		t.Fatalf("owning admin cancel: %v", err)
	}
}
