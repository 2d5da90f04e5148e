package core

import (
	"context"
	"fmt"

	"bookcore/pkg/domain"
)

// SeedDemoData loads a small demo data set: one organization admin with a
// health clinic, three services, two providers with a week of availability,
// and one patient. It is idempotent; a store that already holds users is
// left untouched.
func (s *Service) SeedDemoData(ctx context.Context) error {
	if len(s.store.ListUsers()) > 0 {
		s.logger.Info("seed skipped", "reason", "users present")
		return nil
	}

	admin, _, err := s.RegisterUser(ctx, RegisterUserInput{
		Email:    "admin@brightcare.example",
		Password: "admin-password",
		Name:     "Dana Whitfield",
		Phone:    "555-0100",
		Role:     RoleAdmin,
	})
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}

	company, _, err := s.CreateCompany(ctx, Company{
		Name:        "BrightCare Clinic",
		Category:    domain.CategoryHealth,
		Address:     "12 Harbor Street",
		Phone:       "555-0101",
		Email:       "contact@brightcare.example",
		Description: "General practice and physiotherapy.",
		AdminID:     admin.ID,
	})
	if err != nil {
		return fmt.Errorf("seed company: %w", err)
	}

	type serviceSpec struct {
		name     string
		desc     string
		duration int
	}
	var serviceIDs []string
	for _, sp := range []serviceSpec{
		{"General Consultation", "Standard check-up appointment.", 30},
		{"Physiotherapy Session", "Guided rehabilitation session.", 45},
		{"Vaccination", "Routine immunization.", 30},
	} {
		sv, _, err := s.CreateService(ctx, ServiceOffering{
			CompanyID:       company.ID,
			Name:            sp.name,
			Description:     sp.desc,
			DurationMinutes: sp.duration,
		})
		if err != nil {
			return fmt.Errorf("seed service %q: %w", sp.name, err)
		}
		serviceIDs = append(serviceIDs, sv.ID)
	}

	type providerSpec struct {
		email     string
		name      string
		specialty string
		services  []string
	}
	providers := []providerSpec{
		{"m.okafor@brightcare.example", "Dr. Maya Okafor", "General Medicine", []string{serviceIDs[0], serviceIDs[2]}},
		{"j.lindqvist@brightcare.example", "Jonas Lindqvist", "Physiotherapy", []string{serviceIDs[1]}},
	}
	slots := []string{"09:00", "09:30", "10:00", "10:30", "11:00", "14:00", "14:30", "15:00"}
	for _, ps := range providers {
		companyID := company.ID
		provider, _, err := s.RegisterUser(ctx, RegisterUserInput{
			Email:      ps.email,
			Password:   "provider-password",
			Name:       ps.name,
			Phone:      "555-0102",
			Role:       RoleProvider,
			Specialty:  ps.specialty,
			ServiceIDs: ps.services,
			CompanyID:  &companyID,
		})
		if err != nil {
			return fmt.Errorf("seed provider %q: %w", ps.name, err)
		}
		for day := 0; day < 7; day++ {
			date := s.nowFn().AddDate(0, 0, day).Format(domain.DateLayout)
			if _, _, err := s.SetAvailability(ctx, provider.ID, date, slots); err != nil {
				return fmt.Errorf("seed availability %s %s: %w", ps.name, date, err)
			}
		}
	}

	if _, _, err := s.RegisterUser(ctx, RegisterUserInput{
		Email:    "alex.morgan@example.com",
		Password: "patient-password",
		Name:     "Alex Morgan",
		Phone:    "555-0103",
		Role:     RolePatient,
	}); err != nil {
		return fmt.Errorf("seed patient: %w", err)
	}

	s.logger.Info("seed complete", "company", company.Name, "providers", len(providers), "services", len(serviceIDs))
	return nil
}
