package core

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"bookcore/internal/auth"
	"bookcore/pkg/domain"
)

// RegisterUserInput carries the fields accepted at registration. The password
// arrives in plaintext and is stored only as a bcrypt hash.
type RegisterUserInput struct {
	Email      string
	Password   string
	Name       string
	Phone      string
	Role       Role
	Specialty  string
	ServiceIDs []string
	CompanyID  *string
}

func validRole(r Role) bool {
	switch r {
	case RolePatient, RoleProvider, RoleAdmin:
		return true
	}
	return false
}

func validCategory(c CompanyCategory) bool {
	switch c {
	case domain.CategoryHealth, domain.CategoryBeauty, domain.CategorySport, domain.CategoryServices:
		return true
	}
	return false
}

// RegisterUser creates a new user. The email must not already exist in the
// user collection; comparison is exact and case-sensitive.
func (s *Service) RegisterUser(ctx context.Context, input RegisterUserInput) (User, Result, error) {
	ctx, finish := s.begin(ctx, "register_user", EntityUser)
	var created User
	var res Result
	err := func() error {
		role := input.Role
		if role == "" {
			role = RolePatient
		}
		if !validRole(role) {
			return fmt.Errorf("unknown role %q", input.Role)
		}
		hash, err := auth.HashPassword(input.Password)
		if err != nil {
			return fmt.Errorf("hash password: %w", err)
		}
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			for _, existing := range tx.Snapshot().ListUsers() {
				if existing.Email == input.Email {
					return domain.DuplicateEmailError{Email: input.Email}
				}
			}
			var txErr error
			created, txErr = tx.CreateUser(User{
				Email:        input.Email,
				PasswordHash: hash,
				Name:         input.Name,
				Phone:        input.Phone,
				Role:         role,
				Specialty:    input.Specialty,
				ServiceIDs:   input.ServiceIDs,
				CompanyID:    input.CompanyID,
			})
			return txErr
		})
		return err
	}()
	finish(created.ID, err)
	s.warnOnViolations("register_user", res)
	return created, res, err
}

// UpdateUser mutates a user's profile fields. Changing the email to one held
// by another user fails with DuplicateEmailError.
func (s *Service) UpdateUser(ctx context.Context, id string, mutator func(*User) error) (User, Result, error) {
	ctx, finish := s.begin(ctx, "update_user", EntityUser)
	var updated User
	res, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		var txErr error
		updated, txErr = tx.UpdateUser(id, mutator)
		if txErr != nil {
			return txErr
		}
		for _, other := range tx.Snapshot().ListUsers() {
			if other.ID != id && other.Email == updated.Email {
				return domain.DuplicateEmailError{Email: updated.Email}
			}
		}
		return nil
	})
	finish(id, err)
	return updated, res, err
}

// GetUser retrieves a user by id.
func (s *Service) GetUser(_ context.Context, id string) (User, error) {
	u, ok := s.store.GetUser(id)
	if !ok {
		return User{}, domain.NotFoundError{Entity: EntityUser, ID: id}
	}
	return u, nil
}

// UserByEmail retrieves a user by exact email match.
func (s *Service) UserByEmail(_ context.Context, email string) (User, error) {
	u, ok := s.store.FindUserByEmail(email)
	if !ok {
		return User{}, domain.NotFoundError{Entity: EntityUser, ID: email}
	}
	return u, nil
}

// CreateCompany persists a new company for an administrator. One
// administrator owns at most one company.
func (s *Service) CreateCompany(ctx context.Context, company Company) (Company, Result, error) {
	ctx, finish := s.begin(ctx, "create_company", EntityCompany)
	var created Company
	res, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		if !validCategory(company.Category) {
			return fmt.Errorf("unknown company category %q", company.Category)
		}
		view := tx.Snapshot()
		admin, ok := view.FindUser(company.AdminID)
		if !ok || admin.Role != RoleAdmin {
			return domain.InvalidReferenceError{Field: "admin_id", ID: company.AdminID}
		}
		for _, existing := range view.ListCompanies() {
			if existing.AdminID == company.AdminID {
				return fmt.Errorf("administrator %s already owns company %s", company.AdminID, existing.ID)
			}
		}
		var txErr error
		created, txErr = tx.CreateCompany(company)
		return txErr
	})
	finish(created.ID, err)
	return created, res, err
}

// UpdateCompany mutates a company record.
func (s *Service) UpdateCompany(ctx context.Context, id string, mutator func(*Company) error) (Company, Result, error) {
	ctx, finish := s.begin(ctx, "update_company", EntityCompany)
	var updated Company
	res, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		var txErr error
		updated, txErr = tx.UpdateCompany(id, mutator)
		if txErr != nil {
			return txErr
		}
		if !validCategory(updated.Category) {
			return fmt.Errorf("unknown company category %q", updated.Category)
		}
		return nil
	})
	finish(id, err)
	return updated, res, err
}

// GetCompany retrieves a company by id.
func (s *Service) GetCompany(_ context.Context, id string) (Company, error) {
	c, ok := s.store.GetCompany(id)
	if !ok {
		return Company{}, domain.NotFoundError{Entity: EntityCompany, ID: id}
	}
	return c, nil
}

// CompanyByAdmin finds the company owned by the given administrator.
func (s *Service) CompanyByAdmin(_ context.Context, adminID string) (Company, error) {
	for _, c := range s.store.ListCompanies() {
		if c.AdminID == adminID {
			return c, nil
		}
	}
	return Company{}, domain.NotFoundError{Entity: EntityCompany, ID: adminID}
}

// SearchCompanies returns companies whose name, category, or address contains
// the query, case-insensitively, sorted by name.
func (s *Service) SearchCompanies(_ context.Context, query string) []Company {
	q := strings.ToLower(query)
	var out []Company
	for _, c := range s.store.ListCompanies() {
		if strings.Contains(strings.ToLower(c.Name), q) ||
			strings.Contains(strings.ToLower(string(c.Category)), q) ||
			strings.Contains(strings.ToLower(c.Address), q) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// CreateService persists a new service offering for a company.
func (s *Service) CreateService(ctx context.Context, service ServiceOffering) (ServiceOffering, Result, error) {
	ctx, finish := s.begin(ctx, "create_service", EntityService)
	var created ServiceOffering
	if service.DurationMinutes <= 0 {
		service.DurationMinutes = domain.DefaultServiceDuration
	}
	res, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		if _, ok := tx.Snapshot().FindCompany(service.CompanyID); !ok {
			return domain.InvalidReferenceError{Field: "company_id", ID: service.CompanyID}
		}
		var txErr error
		created, txErr = tx.CreateService(service)
		return txErr
	})
	finish(created.ID, err)
	return created, res, err
}

// UpdateService mutates a service record.
func (s *Service) UpdateService(ctx context.Context, id string, mutator func(*ServiceOffering) error) (ServiceOffering, Result, error) {
	ctx, finish := s.begin(ctx, "update_service", EntityService)
	var updated ServiceOffering
	res, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		var txErr error
		updated, txErr = tx.UpdateService(id, mutator)
		return txErr
	})
	finish(id, err)
	return updated, res, err
}

// DeleteService removes a service. Provider offerings keep the dangling id
// and historical appointments keep their snapshotted names.
func (s *Service) DeleteService(ctx context.Context, id string) (Result, error) {
	ctx, finish := s.begin(ctx, "delete_service", EntityService)
	res, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		return tx.DeleteService(id)
	})
	finish(id, err)
	return res, err
}

// GetService retrieves a service by id.
func (s *Service) GetService(_ context.Context, id string) (ServiceOffering, error) {
	sv, ok := s.store.GetService(id)
	if !ok {
		return ServiceOffering{}, domain.NotFoundError{Entity: EntityService, ID: id}
	}
	return sv, nil
}

// ServicesByCompany lists a company's offerings sorted by name.
func (s *Service) ServicesByCompany(_ context.Context, companyID string) []ServiceOffering {
	var out []ServiceOffering
	for _, sv := range s.store.ListServices() {
		if sv.CompanyID == companyID {
			out = append(out, sv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// EmployeesByCompany lists the providers attached to a company.
func (s *Service) EmployeesByCompany(_ context.Context, companyID string) []User {
	var out []User
	for _, u := range s.store.ListUsers() {
		if u.Role == RoleProvider && u.CompanyID != nil && *u.CompanyID == companyID {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// EmployeesByService lists the providers offering a given service.
func (s *Service) EmployeesByService(_ context.Context, serviceID string) []User {
	var out []User
	for _, u := range s.store.ListUsers() {
		if u.Role == RoleProvider && u.OffersService(serviceID) {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
