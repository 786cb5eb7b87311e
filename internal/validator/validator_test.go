package validator

import "testing"

type sample struct {
	Period string `validate:"omitempty,yearmonth"`
	Name   string `validate:"notblank"`
	Month  int    `validate:"month"`
	Status string `validate:"statusfilter"`
}

func TestCustomRules(t *testing.T) {
	ok := sample{Period: "2025-03", Name: "Yusuf", Month: 12, Status: "pending_verification"}
	if err := Validate.Struct(ok); err != nil {
		t.Fatalf("valid struct rejected: %v", err)
	}

	tests := []struct {
		name string
		s    sample
	}{
		{"bad period", sample{Period: "2025-13", Name: "x", Month: 1}},
		{"blank name", sample{Name: "   ", Month: 1}},
		{"month zero", sample{Name: "x", Month: 0}},
		{"month thirteen", sample{Name: "x", Month: 13}},
		{"unknown status", sample{Name: "x", Month: 1, Status: "overdue"}},
	}
	for _, tt := range tests {
		if err := Validate.Struct(tt.s); err == nil {
			t.Errorf("%s: expected error", tt.name)
		}
	}
}
