package caseengine

import "testing"

func TestDeriveStatus(t *testing.T) {
	tests := []struct {
		name  string
		steps []string
		want  string
	}{
		{"empty leaves unchanged", nil, ""},
		{"all verified resolves", []string{StepVerified, StepVerified}, "resolved"},
		{"mix of verified and waived resolves", []string{StepVerified, StepWaived}, "resolved"},
		{"any rejected waits on supplier", []string{StepVerified, StepRejected}, "waiting_supplier"},
		{"any submitted waits internally", []string{StepSubmitted, StepPending}, "waiting_internal"},
		{"rejected takes priority over submitted", []string{StepRejected, StepSubmitted}, "waiting_supplier"},
		{"all pending leaves unchanged", []string{StepPending, StepPending}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DeriveStatus(tt.steps); got != tt.want {
				t.Errorf("DeriveStatus(%v) = %q, want %q", tt.steps, got, tt.want)
			}
		})
	}
}
