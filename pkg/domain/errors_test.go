package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorTaxonomy(t *testing.T) {
	wrapped := fmt.Errorf("operation failed: %w", SlotUnavailableError{ProviderID: "p1", Date: "2026-03-20", Time: "08:00"})
	var slotErr SlotUnavailableError
	if !errors.As(wrapped, &slotErr) {
		t.Fatal("SlotUnavailableError not recoverable through wrapping")
	}
	if slotErr.ProviderID != "p1" {
		t.Fatalf("got provider %q", slotErr.ProviderID)
	}

	var dupErr DuplicateEmailError
	if !errors.As(DuplicateEmailError{Email: "a@b.c"}, &dupErr) {
		t.Fatal("DuplicateEmailError not matched")
	}

	var transErr InvalidTransitionError
	err := InvalidTransitionError{ID: "a1", From: StatusCancelled, To: StatusConfirmed}
	if !errors.As(err, &transErr) || transErr.From != StatusCancelled {
		t.Fatalf("InvalidTransitionError not matched: %v", err)
	}
}

func TestStoreIOErrorUnwrap(t *testing.T) {
	cause := errors.New("disk full")
	err := StoreIOError{Op: "persist", Err: cause}
	if !errors.Is(err, cause) {
		t.Fatal("StoreIOError should unwrap to its cause")
	}
}

func TestErrorMessages(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{DuplicateEmailError{Email: "a@b.c"}, `email "a@b.c" is already registered`},
		{InvalidCredentialsError{}, "invalid credentials"},
		{NotFoundError{Entity: EntityAppointment, ID: "a1"}, "appointment a1 not found"},
		{InvalidReferenceError{Field: "service_id", ID: "s9"}, `invalid reference service_id="s9"`},
	}
	for _, tc := range cases {
		if got := tc.err.Error(); got != tc.want {
			t.Errorf("got %q want %q", got, tc.want)
		}
	}
}
