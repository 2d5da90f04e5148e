package domain

import "fmt"

// DuplicateEmailError reports a registration attempt with an email that is
// already present in the user collection. Comparison is exact and
// case-sensitive.
type DuplicateEmailError struct {
	Email string
}

func (e DuplicateEmailError) Error() string {
	return fmt.Sprintf("email %q is already registered", e.Email)
}

// InvalidCredentialsError reports a failed login or an unusable session token.
type InvalidCredentialsError struct{}

func (InvalidCredentialsError) Error() string {
	return "invalid credentials"
}

// ForbiddenError reports an ownership or role check failure.
type ForbiddenError struct {
	ActorID  string
	Entity   EntityType
	EntityID string
}

func (e ForbiddenError) Error() string {
	return fmt.Sprintf("actor %s may not act on %s %s", e.ActorID, e.Entity, e.EntityID)
}

// InvalidReferenceError reports a dangling or mutually inconsistent foreign id.
type InvalidReferenceError struct {
	Field string
	ID    string
}

func (e InvalidReferenceError) Error() string {
	return fmt.Sprintf("invalid reference %s=%q", e.Field, e.ID)
}

// SlotUnavailableError reports a booking attempt for a slot that is not
// currently free, whether lost to a race or never declared.
type SlotUnavailableError struct {
	ProviderID string
	Date       string
	Time       string
}

func (e SlotUnavailableError) Error() string {
	return fmt.Sprintf("slot %s %s for provider %s is not available", e.Date, e.Time, e.ProviderID)
}

// InvalidTransitionError reports an illegal appointment status change.
type InvalidTransitionError struct {
	ID   string
	From AppointmentStatus
	To   AppointmentStatus
}

func (e InvalidTransitionError) Error() string {
	return fmt.Sprintf("appointment %s cannot move from %s to %s", e.ID, e.From, e.To)
}

// NotFoundError reports an unknown record id.
type NotFoundError struct {
	Entity EntityType
	ID     string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// StoreIOError wraps an underlying persistence failure. It is the only error
// kind a caller should retry transparently.
type StoreIOError struct {
	Op  string
	Err error
}

func (e StoreIOError) Error() string {
	return fmt.Sprintf("store i/o during %s: %v", e.Op, e.Err)
}

func (e StoreIOError) Unwrap() error {
	return e.Err
}
