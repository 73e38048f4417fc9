package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestParseBloodType(t *testing.T) {
	tests := []struct {
		in   string
		want BloodType
		ok   bool
	}{
		{"A+", APos, true},
		{" ab- ", ABNeg, true},
		{"o-", ONeg, true},
		{"C+", "", false},
		{"", "", false},
		{"AB", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseBloodType(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Fatalf("ParseBloodType(%q) = (%q,%v); want (%q,%v)", tt.in, got, ok, tt.want, tt.ok)
		}
	}
	if BloodType("ab+").Valid() {
		t.Fatalf("Valid must be exact; lowercase is not a stored value")
	}
}

func TestUrgencyAndStatusHelpers(t *testing.T) {
	if !UrgencyCritical.IsEmergency() || !UrgencyUrgent.IsEmergency() || UrgencyNormal.IsEmergency() || UrgencyLow.IsEmergency() {
		t.Fatalf("IsEmergency mismatch")
	}
	if Urgency("soon").Valid() {
		t.Fatalf("unknown urgency reported valid")
	}
	if !RequestPending.Open() || !RequestActive.Open() || RequestFulfilled.Open() || RequestCancelled.Open() {
		t.Fatalf("Open mismatch")
	}
	if !ResponseNotified.Awaiting() || !ResponsePending.Awaiting() || ResponseAccepted.Awaiting() {
		t.Fatalf("Awaiting mismatch")
	}
}

func TestErrorTaxonomy(t *testing.T) {
	v := NewValidationError("blood_type", "unknown blood type %q", "C+")
	if !errors.Is(v, ErrValidation) || errors.Is(v, ErrDependency) {
		t.Fatalf("validation error classification wrong: %v", v)
	}
	if v.Error() != `invalid blood_type: unknown blood type "C+"` {
		t.Fatalf("unexpected message %q", v.Error())
	}

	root := errors.New("connection refused")
	d := &DependencyError{Op: "load donors", Err: root}
	wrapped := fmt.Errorf("match: %w", d)
	if !errors.Is(wrapped, ErrDependency) || !errors.Is(wrapped, root) {
		t.Fatalf("dependency error should match sentinel and cause")
	}

	agg := &DispatchError{RequestID: "r1", Failures: []ItemFailure{{DonorID: "d1", Err: root}}}
	if !errors.Is(agg, ErrNoNotifications) {
		t.Fatalf("dispatch error should match ErrNoNotifications")
	}
	if agg.Error() == "" {
		t.Fatalf("empty message")
	}
}
