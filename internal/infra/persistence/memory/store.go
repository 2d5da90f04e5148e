// Package memory provides an in-memory implementation of the core persistence
// contract. Transactions operate on a cloned copy of the state, run rule
// evaluation over the result, and swap the state atomically on commit.
package memory

import (
	"context"
	"sync"
	"time"

	"bookcore/pkg/domain"

	"github.com/google/uuid"
)

var _ domain.PersistentStore = (*Store)(nil)

type (
	// User aliases the domain entity for brevity inside this package.
	User         = domain.User
	Company      = domain.Company
	Service      = domain.Service
	Availability = domain.Availability
	Appointment  = domain.Appointment
	Change       = domain.Change
	Result       = domain.Result
	RulesEngine  = domain.RulesEngine
	Transaction  = domain.Transaction
	// TransactionView is the read-only snapshot surface shared with rules.
	TransactionView = domain.TransactionView
)

type memoryState struct {
	users          map[string]User
	companies      map[string]Company
	services       map[string]Service
	availabilities map[string]Availability
	appointments   map[string]Appointment
}

func newMemoryState() memoryState {
	return memoryState{
		users:          make(map[string]User),
		companies:      make(map[string]Company),
		services:       make(map[string]Service),
		availabilities: make(map[string]Availability),
		appointments:   make(map[string]Appointment),
	}
}

// Snapshot is the serializable whole-state form exchanged with durable
// drivers: one array per collection, keyed by the collection names the
// drivers use as buckets.
type Snapshot struct {
	Users          []User         `json:"users"`
	Companies      []Company      `json:"companies"`
	Services       []Service      `json:"services"`
	Availabilities []Availability `json:"availabilities"`
	Appointments   []Appointment  `json:"appointments"`
}

func snapshotFromMemoryState(state memoryState) Snapshot {
	s := Snapshot{}
	for _, u := range state.users {
		s.Users = append(s.Users, cloneUser(u))
	}
	for _, c := range state.companies {
		s.Companies = append(s.Companies, c)
	}
	for _, sv := range state.services {
		s.Services = append(s.Services, sv)
	}
	for _, a := range state.availabilities {
		s.Availabilities = append(s.Availabilities, cloneAvailability(a))
	}
	for _, a := range state.appointments {
		s.Appointments = append(s.Appointments, a)
	}
	return s
}

func memoryStateFromSnapshot(s Snapshot) memoryState {
	state := newMemoryState()
	for _, u := range s.Users {
		state.users[u.ID] = cloneUser(u)
	}
	for _, c := range s.Companies {
		state.companies[c.ID] = c
	}
	for _, sv := range s.Services {
		state.services[sv.ID] = sv
	}
	for _, a := range s.Availabilities {
		state.availabilities[a.ID] = cloneAvailability(a)
	}
	for _, a := range s.Appointments {
		state.appointments[a.ID] = a
	}
	return state
}

func (s memoryState) clone() memoryState {
	cloned := newMemoryState()
	for k, v := range s.users {
		cloned.users[k] = cloneUser(v)
	}
	for k, v := range s.companies {
		cloned.companies[k] = v
	}
	for k, v := range s.services {
		cloned.services[k] = v
	}
	for k, v := range s.availabilities {
		cloned.availabilities[k] = cloneAvailability(v)
	}
	for k, v := range s.appointments {
		cloned.appointments[k] = v
	}
	return cloned
}

func cloneUser(u User) User {
	cp := u
	cp.ServiceIDs = append([]string(nil), u.ServiceIDs...)
	if u.CompanyID != nil {
		id := *u.CompanyID
		cp.CompanyID = &id
	}
	return cp
}

func cloneAvailability(a Availability) Availability {
	cp := a
	cp.Slots = append([]string(nil), a.Slots...)
	return cp
}

func cloneAppointment(a Appointment) Appointment {
	cp := a
	if a.ConfirmedAt != nil {
		t := *a.ConfirmedAt
		cp.ConfirmedAt = &t
	}
	if a.CancelledAt != nil {
		t := *a.CancelledAt
		cp.CancelledAt = &t
	}
	return cp
}

// Store provides an in-memory transactional store for the booking domain.
type Store struct {
	mu     sync.RWMutex
	state  memoryState
	engine *RulesEngine
	nowFn  func() time.Time
}

// NewStore constructs an in-memory store backed by the provided rules engine.
func NewStore(engine *RulesEngine) *Store {
	if engine == nil {
		engine = domain.NewRulesEngine()
	}
	return &Store{
		state:  newMemoryState(),
		engine: engine,
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) newID() string {
	return uuid.NewString()
}

// ExportState returns a serializable snapshot of the current state.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshotFromMemoryState(s.state)
}

// ImportState replaces the current state with the supplied snapshot.
func (s *Store) ImportState(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = memoryStateFromSnapshot(snapshot)
}

// RulesEngine returns the engine evaluated on every transaction.
func (s *Store) RulesEngine() *RulesEngine {
	return s.engine
}

// SetNowFunc overrides the clock used for record timestamps.
func (s *Store) SetNowFunc(fn func() time.Time) {
	if fn != nil {
		s.nowFn = fn
	}
}

type transaction struct {
	store   *Store
	state   memoryState
	changes []Change
	now     time.Time
}

type transactionView struct {
	state *memoryState
}

func newTransactionView(state *memoryState) TransactionView {
	return transactionView{state: state}
}

func (v transactionView) ListUsers() []User {
	out := make([]User, 0, len(v.state.users))
	for _, u := range v.state.users {
		out = append(out, cloneUser(u))
	}
	return out
}

func (v transactionView) ListCompanies() []Company {
	out := make([]Company, 0, len(v.state.companies))
	for _, c := range v.state.companies {
		out = append(out, c)
	}
	return out
}

func (v transactionView) ListServices() []Service {
	out := make([]Service, 0, len(v.state.services))
	for _, s := range v.state.services {
		out = append(out, s)
	}
	return out
}

func (v transactionView) ListAvailabilities() []Availability {
	out := make([]Availability, 0, len(v.state.availabilities))
	for _, a := range v.state.availabilities {
		out = append(out, cloneAvailability(a))
	}
	return out
}

func (v transactionView) ListAppointments() []Appointment {
	out := make([]Appointment, 0, len(v.state.appointments))
	for _, a := range v.state.appointments {
		out = append(out, cloneAppointment(a))
	}
	return out
}

func (v transactionView) FindUser(id string) (User, bool) {
	u, ok := v.state.users[id]
	if !ok {
		return User{}, false
	}
	return cloneUser(u), true
}

func (v transactionView) FindCompany(id string) (Company, bool) {
	c, ok := v.state.companies[id]
	return c, ok
}

func (v transactionView) FindService(id string) (Service, bool) {
	s, ok := v.state.services[id]
	return s, ok
}

func (v transactionView) FindAvailability(providerID, date string) (Availability, bool) {
	for _, a := range v.state.availabilities {
		if a.ProviderID == providerID && a.Date == date {
			return cloneAvailability(a), true
		}
	}
	return Availability{}, false
}

func (v transactionView) FindAppointment(id string) (Appointment, bool) {
	a, ok := v.state.appointments[id]
	if !ok {
		return Appointment{}, false
	}
	return cloneAppointment(a), true
}

// RunInTransaction executes fn within a transactional copy of the store state.
// The cloned state is committed only when fn succeeds and no registered rule
// reports a blocking violation.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx Transaction) error) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{
		store: s,
		state: s.state.clone(),
		now:   s.nowFn(),
	}

	if err := fn(tx); err != nil {
		return Result{}, err
	}

	var result Result
	if s.engine != nil {
		view := newTransactionView(&tx.state)
		res, err := s.engine.Evaluate(ctx, view, tx.changes)
		if err != nil {
			return Result{}, err
		}
		result = res
		if res.HasBlocking() {
			return res, domain.RuleViolationError{Result: res}
		}
	}

	s.state = tx.state
	return result, nil
}

// View executes fn against a read-only snapshot of the store state.
func (s *Store) View(_ context.Context, fn func(TransactionView) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := s.state.clone()
	return fn(newTransactionView(&snapshot))
}

func (tx *transaction) recordChange(change Change) {
	tx.changes = append(tx.changes, change)
}

// Snapshot exposes the transactional state to callers needing reads that are
// consistent with pending mutations.
func (tx *transaction) Snapshot() TransactionView {
	return newTransactionView(&tx.state)
}

// CreateUser stores a new user within the transaction.
func (tx *transaction) CreateUser(u User) (User, error) {
	if u.ID == "" {
		u.ID = tx.store.newID()
	}
	if _, exists := tx.state.users[u.ID]; exists {
		return User{}, domain.StoreIOError{Op: "create user", Err: errDuplicateID(u.ID)}
	}
	u.CreatedAt = tx.now
	u.UpdatedAt = tx.now
	tx.state.users[u.ID] = cloneUser(u)
	tx.recordChange(Change{Entity: domain.EntityUser, Action: domain.ActionCreate, After: cloneUser(u)})
	return cloneUser(u), nil
}

// UpdateUser mutates a user using the provided mutator function.
func (tx *transaction) UpdateUser(id string, mutator func(*User) error) (User, error) {
	current, ok := tx.state.users[id]
	if !ok {
		return User{}, domain.NotFoundError{Entity: domain.EntityUser, ID: id}
	}
	before := cloneUser(current)
	if err := mutator(&current); err != nil {
		return User{}, err
	}
	current.ID = before.ID
	current.CreatedAt = before.CreatedAt
	current.UpdatedAt = tx.now
	tx.state.users[id] = cloneUser(current)
	tx.recordChange(Change{Entity: domain.EntityUser, Action: domain.ActionUpdate, Before: before, After: cloneUser(current)})
	return cloneUser(current), nil
}

// CreateCompany stores a new company within the transaction.
func (tx *transaction) CreateCompany(c Company) (Company, error) {
	if c.ID == "" {
		c.ID = tx.store.newID()
	}
	if _, exists := tx.state.companies[c.ID]; exists {
		return Company{}, domain.StoreIOError{Op: "create company", Err: errDuplicateID(c.ID)}
	}
	c.CreatedAt = tx.now
	c.UpdatedAt = tx.now
	tx.state.companies[c.ID] = c
	tx.recordChange(Change{Entity: domain.EntityCompany, Action: domain.ActionCreate, After: c})
	return c, nil
}

// UpdateCompany mutates a company record.
func (tx *transaction) UpdateCompany(id string, mutator func(*Company) error) (Company, error) {
	current, ok := tx.state.companies[id]
	if !ok {
		return Company{}, domain.NotFoundError{Entity: domain.EntityCompany, ID: id}
	}
	before := current
	if err := mutator(&current); err != nil {
		return Company{}, err
	}
	current.ID = before.ID
	current.CreatedAt = before.CreatedAt
	current.UpdatedAt = tx.now
	tx.state.companies[id] = current
	tx.recordChange(Change{Entity: domain.EntityCompany, Action: domain.ActionUpdate, Before: before, After: current})
	return current, nil
}

// CreateService stores a new service within the transaction.
func (tx *transaction) CreateService(sv Service) (Service, error) {
	if sv.ID == "" {
		sv.ID = tx.store.newID()
	}
	if _, exists := tx.state.services[sv.ID]; exists {
		return Service{}, domain.StoreIOError{Op: "create service", Err: errDuplicateID(sv.ID)}
	}
	if sv.DurationMinutes <= 0 {
		sv.DurationMinutes = domain.DefaultServiceDuration
	}
	sv.CreatedAt = tx.now
	sv.UpdatedAt = tx.now
	tx.state.services[sv.ID] = sv
	tx.recordChange(Change{Entity: domain.EntityService, Action: domain.ActionCreate, After: sv})
	return sv, nil
}

// UpdateService mutates a service record.
func (tx *transaction) UpdateService(id string, mutator func(*Service) error) (Service, error) {
	current, ok := tx.state.services[id]
	if !ok {
		return Service{}, domain.NotFoundError{Entity: domain.EntityService, ID: id}
	}
	before := current
	if err := mutator(&current); err != nil {
		return Service{}, err
	}
	current.ID = before.ID
	current.CreatedAt = before.CreatedAt
	current.UpdatedAt = tx.now
	tx.state.services[id] = current
	tx.recordChange(Change{Entity: domain.EntityService, Action: domain.ActionUpdate, Before: before, After: current})
	return current, nil
}

// DeleteService removes a service record. Provider offerings and historical
// appointments are left untouched.
func (tx *transaction) DeleteService(id string) error {
	current, ok := tx.state.services[id]
	if !ok {
		return domain.NotFoundError{Entity: domain.EntityService, ID: id}
	}
	delete(tx.state.services, id)
	tx.recordChange(Change{Entity: domain.EntityService, Action: domain.ActionDelete, Before: current})
	return nil
}

// PutAvailability replaces any declaration for the same (provider, date) pair
// and inserts the supplied record.
func (tx *transaction) PutAvailability(a Availability) (Availability, error) {
	for id, existing := range tx.state.availabilities {
		if existing.ProviderID == a.ProviderID && existing.Date == a.Date {
			delete(tx.state.availabilities, id)
			tx.recordChange(Change{Entity: domain.EntityAvailability, Action: domain.ActionDelete, Before: cloneAvailability(existing)})
		}
	}
	if a.ID == "" {
		a.ID = tx.store.newID()
	}
	a.CreatedAt = tx.now
	a.UpdatedAt = tx.now
	tx.state.availabilities[a.ID] = cloneAvailability(a)
	tx.recordChange(Change{Entity: domain.EntityAvailability, Action: domain.ActionCreate, After: cloneAvailability(a)})
	return cloneAvailability(a), nil
}

// CreateAppointment stores a new appointment within the transaction.
func (tx *transaction) CreateAppointment(a Appointment) (Appointment, error) {
	if a.ID == "" {
		a.ID = tx.store.newID()
	}
	if _, exists := tx.state.appointments[a.ID]; exists {
		return Appointment{}, domain.StoreIOError{Op: "create appointment", Err: errDuplicateID(a.ID)}
	}
	a.CreatedAt = tx.now
	a.UpdatedAt = tx.now
	tx.state.appointments[a.ID] = cloneAppointment(a)
	tx.recordChange(Change{Entity: domain.EntityAppointment, Action: domain.ActionCreate, After: cloneAppointment(a)})
	return cloneAppointment(a), nil
}

// UpdateAppointment mutates an appointment record.
func (tx *transaction) UpdateAppointment(id string, mutator func(*Appointment) error) (Appointment, error) {
	current, ok := tx.state.appointments[id]
	if !ok {
		return Appointment{}, domain.NotFoundError{Entity: domain.EntityAppointment, ID: id}
	}
	before := cloneAppointment(current)
	if err := mutator(&current); err != nil {
		return Appointment{}, err
	}
	current.ID = before.ID
	current.CreatedAt = before.CreatedAt
	current.UpdatedAt = tx.now
	tx.state.appointments[id] = cloneAppointment(current)
	tx.recordChange(Change{Entity: domain.EntityAppointment, Action: domain.ActionUpdate, Before: before, After: cloneAppointment(current)})
	return cloneAppointment(current), nil
}

// GetUser retrieves a user by id.
func (s *Store) GetUser(id string) (User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.state.users[id]
	if !ok {
		return User{}, false
	}
	return cloneUser(u), true
}

// FindUserByEmail scans for an exact email match.
func (s *Store) FindUserByEmail(email string) (User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.state.users {
		if u.Email == email {
			return cloneUser(u), true
		}
	}
	return User{}, false
}

// ListUsers returns all users.
func (s *Store) ListUsers() []User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]User, 0, len(s.state.users))
	for _, u := range s.state.users {
		out = append(out, cloneUser(u))
	}
	return out
}

// GetCompany retrieves a company by id.
func (s *Store) GetCompany(id string) (Company, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.state.companies[id]
	return c, ok
}

// ListCompanies returns all companies.
func (s *Store) ListCompanies() []Company {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Company, 0, len(s.state.companies))
	for _, c := range s.state.companies {
		out = append(out, c)
	}
	return out
}

// GetService retrieves a service by id.
func (s *Store) GetService(id string) (Service, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sv, ok := s.state.services[id]
	return sv, ok
}

// ListServices returns all services.
func (s *Store) ListServices() []Service {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Service, 0, len(s.state.services))
	for _, sv := range s.state.services {
		out = append(out, sv)
	}
	return out
}

// GetAvailability retrieves the declaration for a (provider, date) pair.
func (s *Store) GetAvailability(providerID, date string) (Availability, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.state.availabilities {
		if a.ProviderID == providerID && a.Date == date {
			return cloneAvailability(a), true
		}
	}
	return Availability{}, false
}

// ListAvailabilities returns all availability records.
func (s *Store) ListAvailabilities() []Availability {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Availability, 0, len(s.state.availabilities))
	for _, a := range s.state.availabilities {
		out = append(out, cloneAvailability(a))
	}
	return out
}

// GetAppointment retrieves an appointment by id.
func (s *Store) GetAppointment(id string) (Appointment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.state.appointments[id]
	if !ok {
		return Appointment{}, false
	}
	return cloneAppointment(a), true
}

// ListAppointments returns all appointments.
func (s *Store) ListAppointments() []Appointment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Appointment, 0, len(s.state.appointments))
	for _, a := range s.state.appointments {
		out = append(out, cloneAppointment(a))
	}
	return out
}

type errDuplicateID string

func (e errDuplicateID) Error() string {
	return "duplicate id " + string(e)
}
