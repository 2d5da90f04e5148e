// Package domain defines the core persistent entities, value types, and
// rule evaluation primitives used by bookcore.
package domain

import (
	"fmt"
	"time"
)

// EntityType identifies the type of record stored in the core domain.
type EntityType string

// Supported entity type identifiers used in Change records and persistence buckets.
const (
	// EntityUser identifies a user record (patient, provider, or administrator).
	EntityUser EntityType = "user"
	// EntityCompany identifies an organization record.
	EntityCompany EntityType = "company"
	// EntityService identifies a bookable service offering record.
	EntityService EntityType = "service"
	// EntityAvailability identifies a provider's per-date slot declaration.
	EntityAvailability EntityType = "availability"
	// EntityAppointment identifies a booked appointment record.
	EntityAppointment EntityType = "appointment"
)

// Role distinguishes the three actor kinds sharing the user collection.
type Role string

// Canonical user roles.
const (
	RolePatient  Role = "patient"
	RoleProvider Role = "provider"
	RoleAdmin    Role = "admin"
)

// CompanyCategory enumerates the organization categories shown in the catalog.
type CompanyCategory string

// Canonical company categories.
const (
	CategoryHealth   CompanyCategory = "health"
	CategoryBeauty   CompanyCategory = "beauty"
	CategorySport    CompanyCategory = "sport"
	CategoryServices CompanyCategory = "services"
)

// AppointmentStatus enumerates persisted appointment lifecycle states.
type AppointmentStatus string

// Canonical appointment statuses. StatusCompleted is derived from clock
// comparison and never written to storage.
const (
	StatusPending   AppointmentStatus = "pending"
	StatusConfirmed AppointmentStatus = "confirmed"
	StatusCancelled AppointmentStatus = "cancelled"
	StatusCompleted AppointmentStatus = "completed"
)

// Date and slot layouts shared by availability declarations and appointments.
const (
	DateLayout = "2006-01-02"
	SlotLayout = "15:04"
)

// ValidDate reports whether date is a canonical DateLayout label.
// time.Parse alone is too lenient: it accepts unpadded fields, and a mix of
// "2026-3-2" and "2026-03-02" keys would break exact-match slot subtraction
// and lexicographic ordering. The round trip through Format pins the form.
func ValidDate(date string) bool {
	t, err := time.Parse(DateLayout, date)
	return err == nil && t.Format(DateLayout) == date
}

// ValidSlot reports whether slot is a canonical SlotLayout label.
func ValidSlot(slot string) bool {
	t, err := time.Parse(SlotLayout, slot)
	return err == nil && t.Format(SlotLayout) == slot
}

// CombineDateTime parses an ISO date and a slot label into one instant (UTC).
// Both labels must be in canonical form.
func CombineDateTime(date, slot string) (time.Time, error) {
	t, err := time.Parse(DateLayout+" "+SlotLayout, date+" "+slot)
	if err != nil {
		return time.Time{}, fmt.Errorf("combine %q %q: %w", date, slot, err)
	}
	if t.Format(DateLayout) != date || t.Format(SlotLayout) != slot {
		return time.Time{}, fmt.Errorf("combine %q %q: non-canonical label", date, slot)
	}
	return t, nil
}

// Base contains common fields for all domain records.
type Base struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// User represents a patient, provider, or administrator identity.
type User struct {
	Base
	Email        string `json:"email"`
	PasswordHash string `json:"password_hash"`
	Name         string `json:"name"`
	Phone        string `json:"phone"`
	Role         Role   `json:"role"`

	// Provider-only fields.
	Specialty  string   `json:"specialty,omitempty"`
	ServiceIDs []string `json:"service_ids,omitempty"`
	CompanyID  *string  `json:"company_id,omitempty"`
}

// OffersService reports whether a provider lists the service among its offerings.
func (u User) OffersService(serviceID string) bool {
	for _, id := range u.ServiceIDs {
		if id == serviceID {
			return true
		}
	}
	return false
}

// Company represents an organization owned by a single administrator.
type Company struct {
	Base
	Name        string          `json:"name"`
	Category    CompanyCategory `json:"category"`
	Address     string          `json:"address"`
	Phone       string          `json:"phone"`
	Email       string          `json:"email"`
	Description string          `json:"description"`
	AdminID     string          `json:"admin_id"`
}

// Service represents a bookable offering of a company.
type Service struct {
	Base
	CompanyID       string `json:"company_id"`
	Name            string `json:"name"`
	Description     string `json:"description"`
	DurationMinutes int    `json:"duration_minutes"`
}

// DefaultServiceDuration is applied when a service is created without an
// explicit duration.
const DefaultServiceDuration = 30

// Availability is a provider's declared open slots for one calendar date.
// At most one record exists per (provider, date) pair; saving replaces the
// prior slot list wholesale.
type Availability struct {
	Base
	ProviderID string   `json:"provider_id"`
	Date       string   `json:"date"`
	Slots      []string `json:"slots"`
}

// Appointment is the central booking record. Display names are snapshotted at
// creation time so history stays readable after catalog edits or deletions.
type Appointment struct {
	Base
	PatientID  string `json:"patient_id"`
	ProviderID string `json:"provider_id"`
	CompanyID  string `json:"company_id"`
	ServiceID  string `json:"service_id"`
	Date       string `json:"date"`
	Time       string `json:"time"`
	Notes      string `json:"notes,omitempty"`

	PatientName  string `json:"patient_name"`
	ProviderName string `json:"provider_name"`
	CompanyName  string `json:"company_name"`
	ServiceName  string `json:"service_name"`

	Status      AppointmentStatus `json:"status"`
	ConfirmedAt *time.Time        `json:"confirmed_at,omitempty"`
	CancelledAt *time.Time        `json:"cancelled_at,omitempty"`
}

// Active reports whether the appointment still consumes its slot.
func (a Appointment) Active() bool {
	return a.Status != StatusCancelled
}

// StartsAt resolves the appointment's date and time into one instant.
func (a Appointment) StartsAt() (time.Time, error) {
	return CombineDateTime(a.Date, a.Time)
}

// DerivedStatus resolves the effective status against a reference instant:
// a non-cancelled appointment whose start is at or before now reads as
// completed without any stored transition.
func (a Appointment) DerivedStatus(now time.Time) AppointmentStatus {
	if a.Status == StatusCancelled {
		return StatusCancelled
	}
	at, err := a.StartsAt()
	if err == nil && !at.After(now) {
		return StatusCompleted
	}
	return a.Status
}

// Action enumerates mutation kinds recorded in Change entries.
type Action string

// Mutation kinds.
const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Change captures a single mutation applied within a transaction for rule
// evaluation. Before and After hold cloned entity values.
type Change struct {
	Entity EntityType
	Action Action
	Before any
	After  any
}

// Severity captures rule outcomes.
type Severity string

// Rule evaluation severities determine commit behavior and logging.
const (
	// SeverityBlock blocks transaction commit.
	SeverityBlock Severity = "block"
	// SeverityWarn logs a warning but allows commit.
	SeverityWarn Severity = "warn"
	SeverityLog  Severity = "log"
)

// Violation describes a single rule finding.
type Violation struct {
	Rule     string
	Severity Severity
	Message  string
	Entity   EntityType
	EntityID string
}

// Result aggregates violations produced by rule evaluation.
type Result struct {
	Violations []Violation
}

// Merge appends the violations of another result.
func (r *Result) Merge(other Result) {
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking returns true if the result contains blocking violations.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// RuleViolationError is returned when a transaction is aborted by blocking violations.
type RuleViolationError struct {
	Result Result
}

func (e RuleViolationError) Error() string {
	return "transaction blocked by rules"
}
