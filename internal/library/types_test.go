package library

import (
	"testing"
	"time"
)

func TestLoanReturned(t *testing.T) {
	ts := "2025-03-01T10:00:00Z"
	empty := " "
	cases := []struct {
		name string
		loan Loan
		want bool
	}{
		{"active", Loan{}, false},
		{"flag only", Loan{IsReturned: true}, true},
		{"timestamp only", Loan{ReturnedAt: &ts}, true},
		{"blank timestamp", Loan{ReturnedAt: &empty}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.loan.Returned(); got != tc.want {
				t.Fatalf("Returned() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestParseTimeLayouts(t *testing.T) {
	if got := parseTime("2025-12-13T10:11:12Z"); !got.Equal(time.Date(2025, 12, 13, 10, 11, 12, 0, time.UTC)) {
		t.Fatalf("parseTime RFC3339 = %v", got)
	}
	if got := parseTime("2025-12-13T10:11:12.123456"); got.IsZero() {
		t.Fatalf("parseTime backend layout returned zero")
	}
	if got := parseTime("2025-12-13"); got.Year() != 2025 || got.Month() != time.December {
		t.Fatalf("parseTime date-only = %v", got)
	}
	if got := parseTime("garbage"); !got.IsZero() {
		t.Fatalf("parseTime garbage = %v, want zero", got)
	}
}

func TestUserFullNameFallsBackToUsername(t *testing.T) {
	if got := (User{Username: "ana"}).FullName(); got != "ana" {
		t.Fatalf("FullName = %q, want ana", got)
	}
	if got := (User{Username: "ana", FirstName: "Ana", LastName: "Pérez"}).FullName(); got != "Ana Pérez" {
		t.Fatalf("FullName = %q, want Ana Pérez", got)
	}
}

func TestRoleValid(t *testing.T) {
	if !RoleStudent.Valid() || !RoleLibrarian.Valid() || Role("admin").Valid() {
		t.Fatalf("Role.Valid mismatch")
	}
}
