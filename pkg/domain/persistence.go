package domain

import "context"

// TransactionView provides read-only access to snapshot data. Rules and
// transactional reads share the same view surface.
type TransactionView = RuleView

// Transaction exposes the domain operations that a persistence implementation
// must support within an atomic scope.
type Transaction interface {
	Snapshot() TransactionView
	CreateUser(User) (User, error)
	UpdateUser(id string, mutator func(*User) error) (User, error)
	CreateCompany(Company) (Company, error)
	UpdateCompany(id string, mutator func(*Company) error) (Company, error)
	CreateService(Service) (Service, error)
	UpdateService(id string, mutator func(*Service) error) (Service, error)
	DeleteService(id string) error
	// PutAvailability replaces any prior record for the same (provider, date)
	// pair and inserts the given one.
	PutAvailability(Availability) (Availability, error)
	CreateAppointment(Appointment) (Appointment, error)
	UpdateAppointment(id string, mutator func(*Appointment) error) (Appointment, error)
}

// PersistentStore is a minimal abstraction over durable backends. It mirrors
// the subset of store capabilities used directly by higher layers.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)
	View(ctx context.Context, fn func(TransactionView) error) error
	GetUser(id string) (User, bool)
	FindUserByEmail(email string) (User, bool)
	ListUsers() []User
	GetCompany(id string) (Company, bool)
	ListCompanies() []Company
	GetService(id string) (Service, bool)
	ListServices() []Service
	GetAvailability(providerID, date string) (Availability, bool)
	ListAvailabilities() []Availability
	GetAppointment(id string) (Appointment, bool)
	ListAppointments() []Appointment
}
