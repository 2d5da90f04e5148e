package core

import (
	"context"
	"errors"
	"testing"

	"bookcore/pkg/domain"
)

func TestRegisterUserRejectsDuplicateEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	before := len(f.svc.Store().ListUsers())
	_, _, err := f.svc.RegisterUser(ctx, RegisterUserInput{
		Email: "patient@example.test", Password: "other", Name: "Other",
	})
	var dup domain.DuplicateEmailError
	if !errors.As(err, &dup) {
		t.Fatalf("got %v want DuplicateEmailError", err)
	}
	if after := len(f.svc.Store().ListUsers()); after != before {
		t.Fatalf("user count changed from %d to %d on rejected registration", before, after)
	}
}

func TestRegisterUserEmailIsCaseSensitive(t *testing.T) {
	f := newFixture(t)
	if _, _, err := f.svc.RegisterUser(context.Background(), RegisterUserInput{
		Email: "Patient@example.test", Password: "pw", Name: "Other Case",
	}); err != nil {
		t.Fatalf("differently cased email rejected: %v", err)
	}
}

func TestRegisterUserDefaultsToPatientRole(t *testing.T) {
	f := newFixture(t)
	u, _, err := f.svc.RegisterUser(context.Background(), RegisterUserInput{
		Email: "new@example.test", Password: "pw", Name: "New",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if u.Role != RolePatient {
		t.Fatalf("got role %s", u.Role)
	}
	if u.PasswordHash == "pw" || u.PasswordHash == "" {
		t.Fatal("password stored without hashing")
	}
}

func TestUpdateUserRejectsEmailCollision(t *testing.T) {
	f := newFixture(t)
	_, _, err := f.svc.UpdateUser(context.Background(), f.patient.ID, func(u *User) error {
		u.Email = "admin@clinic.test"
		return nil
	})
	var dup domain.DuplicateEmailError
	if !errors.As(err, &dup) {
		t.Fatalf("got %v want DuplicateEmailError", err)
	}
}

func TestCreateCompanyValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Admin reference must exist and carry the admin role.
	if _, _, err := f.svc.CreateCompany(ctx, Company{Name: "X", Category: domain.CategoryHealth, AdminID: f.patient.ID}); err == nil {
		t.Fatal("patient accepted as company admin")
	}
	if _, _, err := f.svc.CreateCompany(ctx, Company{Name: "X", Category: domain.CategoryHealth, AdminID: "missing"}); err == nil {
		t.Fatal("dangling admin reference accepted")
	}
	// One company per admin.
	if _, _, err := f.svc.CreateCompany(ctx, Company{Name: "Second", Category: domain.CategoryHealth, AdminID: f.admin.ID}); err == nil {
		t.Fatal("second company for the same admin accepted")
	}
	// Category must be known.
	admin2, _, err := f.svc.RegisterUser(ctx, RegisterUserInput{Email: "a2@clinic.test", Password: "pw", Name: "A2", Role: RoleAdmin})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, _, err := f.svc.CreateCompany(ctx, Company{Name: "X", Category: "plumbing", AdminID: admin2.ID}); err == nil {
		t.Fatal("unknown category accepted")
	}
}

func TestSearchCompanies(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin2, _, err := f.svc.RegisterUser(ctx, RegisterUserInput{Email: "spa@clinic.test", Password: "pw", Name: "Spa Admin", Role: RoleAdmin})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, _, err := f.svc.CreateCompany(ctx, Company{Name: "Aqua Spa", Category: domain.CategoryBeauty, Address: "2 Shore Rd", AdminID: admin2.ID}); err != nil {
		t.Fatalf("create company: %v", err)
	}

	cases := []struct {
		query string
		want  int
	}{
		{"", 2},
		{"clinic", 1},
		{"CLINIC", 1},
		{"beauty", 1},
		{"shore", 1},
		{"nothing-matches", 0},
	}
	for _, tc := range cases {
		if got := len(f.svc.SearchCompanies(ctx, tc.query)); got != tc.want {
			t.Errorf("SearchCompanies(%q) = %d results, want %d", tc.query, got, tc.want)
		}
	}

	all := f.svc.SearchCompanies(ctx, "")
	if all[0].Name != "Aqua Spa" || all[1].Name != "Clinic" {
		t.Fatalf("results not sorted by name: %s, %s", all[0].Name, all[1].Name)
	}
}

func TestServiceDefaultsAndDeletion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sv, _, err := f.svc.CreateService(ctx, ServiceOffering{CompanyID: f.company.ID, Name: "Quick Check"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if sv.DurationMinutes != domain.DefaultServiceDuration {
		t.Fatalf("got duration %d", sv.DurationMinutes)
	}

	if _, _, err := f.svc.CreateService(ctx, ServiceOffering{CompanyID: "missing", Name: "X"}); err == nil {
		t.Fatal("dangling company reference accepted")
	}

	// Deleting a service leaves the provider's offering list and booked
	// appointments untouched.
	a := f.book(t, "2026-03-20", "08:00")
	if _, err := f.svc.DeleteService(ctx, f.service.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := f.svc.GetService(ctx, f.service.ID); err == nil {
		t.Fatal("deleted service still readable")
	}
	provider, err := f.svc.GetUser(ctx, f.provider.ID)
	if err != nil {
		t.Fatalf("get provider: %v", err)
	}
	if !provider.OffersService(f.service.ID) {
		t.Fatal("provider offering list was cascaded")
	}
	kept, err := f.svc.GetAppointment(ctx, a.ID)
	if err != nil {
		t.Fatalf("get appointment: %v", err)
	}
	if kept.ServiceName != "Consultation" {
		t.Fatalf("snapshotted service name lost: %q", kept.ServiceName)
	}
}

func TestEmployeeQueries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	companyID := f.company.ID
	if _, _, err := f.svc.RegisterUser(ctx, RegisterUserInput{
		Email: "second@clinic.test", Password: "pw", Name: "Another Provider",
		Role: RoleProvider, CompanyID: &companyID,
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	byCompany := f.svc.EmployeesByCompany(ctx, f.company.ID)
	if len(byCompany) != 2 {
		t.Fatalf("got %d employees want 2", len(byCompany))
	}
	if byCompany[0].Name != "Another Provider" {
		t.Fatalf("employees not sorted by name: %s first", byCompany[0].Name)
	}

	byService := f.svc.EmployeesByService(ctx, f.service.ID)
	if len(byService) != 1 || byService[0].ID != f.provider.ID {
		t.Fatalf("service offering filter wrong: %v", byService)
	}
}

func TestCompanyByAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	got, err := f.svc.CompanyByAdmin(ctx, f.admin.ID)
	if err != nil || got.ID != f.company.ID {
		t.Fatalf("got %v %v", got, err)
	}
	if _, err := f.svc.CompanyByAdmin(ctx, f.patient.ID); err == nil {
		t.Fatal("expected not found for non-admin")
	}
}
