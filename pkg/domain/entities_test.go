package domain

import (
	"testing"
	"time"
)

func TestCombineDateTime(t *testing.T) {
	at, err := CombineDateTime("2026-03-20", "08:30")
	if err != nil {
		t.Fatalf("combine: %v", err)
	}
	want := time.Date(2026, 3, 20, 8, 30, 0, 0, time.UTC)
	if !at.Equal(want) {
		t.Fatalf("got %v want %v", at, want)
	}

	for _, tc := range []struct{ date, slot string }{
		{"2026-3-20", "08:30"},
		{"2026-03-20", "8:30"},
		{"20-03-2026", "08:30"},
		{"2026-03-20", "08:30:00"},
		{"2026-03-2", "08:30"},
		{"", ""},
	} {
		if _, err := CombineDateTime(tc.date, tc.slot); err == nil {
			t.Errorf("CombineDateTime(%q, %q) accepted malformed input", tc.date, tc.slot)
		}
	}
}

func TestValidDateAndSlotRequireCanonicalForm(t *testing.T) {
	for _, date := range []string{"2026-03-02", "2026-12-31"} {
		if !ValidDate(date) {
			t.Errorf("ValidDate(%q) = false", date)
		}
	}
	for _, date := range []string{"2026-3-2", "2026-03-2", "02-03-2026", "2026-03-02T00:00", ""} {
		if ValidDate(date) {
			t.Errorf("ValidDate(%q) = true", date)
		}
	}
	for _, slot := range []string{"08:30", "00:00", "23:59"} {
		if !ValidSlot(slot) {
			t.Errorf("ValidSlot(%q) = false", slot)
		}
	}
	for _, slot := range []string{"8:30", "08:5", "08:30:00", "8am", ""} {
		if ValidSlot(slot) {
			t.Errorf("ValidSlot(%q) = true", slot)
		}
	}
}

func TestDerivedStatus(t *testing.T) {
	now := time.Date(2026, 3, 20, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		name   string
		status AppointmentStatus
		date   string
		slot   string
		want   AppointmentStatus
	}{
		{"pending future", StatusPending, "2026-03-21", "09:00", StatusPending},
		{"confirmed future", StatusConfirmed, "2026-03-21", "09:00", StatusConfirmed},
		{"pending past", StatusPending, "2026-03-19", "09:00", StatusCompleted},
		{"confirmed past", StatusConfirmed, "2026-03-19", "09:00", StatusCompleted},
		{"starts exactly now", StatusConfirmed, "2026-03-20", "12:00", StatusCompleted},
		{"cancelled past stays cancelled", StatusCancelled, "2026-03-19", "09:00", StatusCancelled},
		{"cancelled future stays cancelled", StatusCancelled, "2026-03-21", "09:00", StatusCancelled},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := Appointment{Status: tc.status, Date: tc.date, Time: tc.slot}
			if got := a.DerivedStatus(now); got != tc.want {
				t.Fatalf("got %s want %s", got, tc.want)
			}
		})
	}
}

func TestAppointmentActive(t *testing.T) {
	if (Appointment{Status: StatusCancelled}).Active() {
		t.Fatal("cancelled appointment should not hold its slot")
	}
	for _, st := range []AppointmentStatus{StatusPending, StatusConfirmed} {
		if !(Appointment{Status: st}).Active() {
			t.Fatalf("%s appointment should hold its slot", st)
		}
	}
}

func TestOffersService(t *testing.T) {
	u := User{ServiceIDs: []string{"a", "b"}}
	if !u.OffersService("a") || !u.OffersService("b") {
		t.Fatal("listed services should be offered")
	}
	if u.OffersService("c") {
		t.Fatal("unlisted service should not be offered")
	}
}

func TestResultMergeAndHasBlocking(t *testing.T) {
	var r Result
	if r.HasBlocking() {
		t.Fatal("empty result should not block")
	}
	r.Merge(Result{Violations: []Violation{{Rule: "x", Severity: SeverityWarn}}})
	if r.HasBlocking() {
		t.Fatal("warn should not block")
	}
	r.Merge(Result{Violations: []Violation{{Rule: "y", Severity: SeverityBlock}}})
	if !r.HasBlocking() {
		t.Fatal("block violation should block")
	}
	if len(r.Violations) != 2 {
		t.Fatalf("got %d violations want 2", len(r.Violations))
	}
}
