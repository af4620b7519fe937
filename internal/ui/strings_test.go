package ui

import (
	"testing"
	"time"
)

func TestTruncate(t *testing.T) {
	cases := []struct {
		in    string
		limit int
		want  string
	}{
		{"  short  ", 10, "short"},
		{"exactly", 7, "exactly"},
		{"a longer title", 8, "a lon..."},
		{"abcd", 2, "ab"},
		{"anything", 0, "anything"},
	}
	for _, tc := range cases {
		if got := truncate(tc.in, tc.limit); got != tc.want {
			t.Fatalf("truncate(%q, %d) = %q, want %q", tc.in, tc.limit, got, tc.want)
		}
	}
}

func TestTruncateMiddle(t *testing.T) {
	if got := truncateMiddle("  ", 10); got != "" {
		t.Fatalf("truncateMiddle blank = %q, want empty", got)
	}
	if got := truncateMiddle("abcd", 2); got != "ab" {
		t.Fatalf("truncateMiddle limit<=3 = %q, want ab", got)
	}
	got := truncateMiddle("https://library.example.edu/api", 11)
	if got != "https…u/api" {
		t.Fatalf("truncateMiddle = %q, want https…u/api", got)
	}
}

func TestFitPadsAndTruncates(t *testing.T) {
	if got := fit("ab", 4); got != "ab  " {
		t.Fatalf("fit pad = %q", got)
	}
	if got := fit("abcdefgh", 6); got != "abc..." {
		t.Fatalf("fit truncate = %q", got)
	}
}

func TestDaysLabel(t *testing.T) {
	cases := map[int]string{0: "0 days", 1: "1 day", -1: "-1 day", 14: "14 days"}
	for in, want := range cases {
		if got := daysLabel(in); got != want {
			t.Fatalf("daysLabel(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestStockLabel(t *testing.T) {
	cases := map[int]string{0: "0 copies", 1: "1 copy", 3: "3 copies", 1200: "1,200 copies"}
	for in, want := range cases {
		if got := stockLabel(in); got != want {
			t.Fatalf("stockLabel(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestDateHelpersHandleZero(t *testing.T) {
	if got := shortDate(time.Time{}); got != "-" {
		t.Fatalf("shortDate(zero) = %q", got)
	}
	if got := relativeTime(time.Time{}); got != "unknown" {
		t.Fatalf("relativeTime(zero) = %q", got)
	}
	d := time.Date(2024, 3, 5, 12, 0, 0, 0, time.Local)
	if got := shortDate(d); got != "Mar 5, 2024" {
		t.Fatalf("shortDate = %q", got)
	}
}
