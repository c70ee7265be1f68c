package core

import (
	"errors"
	"testing"
)

func TestParsePeriod(t *testing.T) {
	cases := []struct {
		label string
		want  Period
		ok    bool
	}{
		{"FEB2026", Period{2, 2026}, true},
		{"jan2024", Period{1, 2024}, true},
		{" DEC1999 ", Period{12, 1999}, true},
		{"FEBRUARY2026", Period{}, false},
		{"FEB26", Period{}, false},
		{"XXX2026", Period{}, false},
		{"FEB20X6", Period{}, false},
		{"", Period{}, false},
	}
	for _, tc := range cases {
		got, err := ParsePeriod(tc.label)
		if tc.ok && err != nil {
			t.Fatalf("ParsePeriod(%q): unexpected error %v", tc.label, err)
		}
		if !tc.ok {
			if err == nil {
				t.Fatalf("ParsePeriod(%q): expected error", tc.label)
			}
			if !errors.Is(err, ErrPeriodFormat) {
				t.Fatalf("ParsePeriod(%q): error %v is not ErrPeriodFormat", tc.label, err)
			}
			continue
		}
		if got != tc.want {
			t.Fatalf("ParsePeriod(%q) = %+v, want %+v", tc.label, got, tc.want)
		}
	}
}

func TestPeriodString(t *testing.T) {
	if s := (Period{Month: 2, Year: 2026}).String(); s != "FEB2026" {
		t.Fatalf("String() = %q", s)
	}
	if s := (Period{Month: 11, Year: 999}).String(); s != "NOV0999" {
		t.Fatalf("String() = %q", s)
	}
}

func TestParseFormatRoundTrip(t *testing.T) {
	for m := 1; m <= 12; m++ {
		p := Period{Month: m, Year: 2026}
		got, err := ParsePeriod(p.String())
		if err != nil {
			t.Fatalf("round trip %v: %v", p, err)
		}
		if got != p {
			t.Fatalf("round trip %v: got %v", p, got)
		}
	}
}

func TestCompareDesc(t *testing.T) {
	cases := []struct {
		a, b Period
		want int
	}{
		{Period{1, 2026}, Period{12, 2025}, -1},
		{Period{3, 2025}, Period{4, 2025}, 1},
		{Period{7, 2025}, Period{7, 2025}, 0},
		{Period{12, 2024}, Period{1, 2025}, 1},
	}
	for i, tc := range cases {
		if got := CompareDesc(tc.a, tc.b); got != tc.want {
			t.Fatalf("case %d: CompareDesc(%v,%v) = %d, want %d", i, tc.a, tc.b, got, tc.want)
		}
	}
}

func TestSortPeriodsDesc(t *testing.T) {
	periods := []Period{{3, 2025}, {1, 2026}, {12, 2025}, {2, 2026}}
	SortPeriodsDesc(periods)
	want := []Period{{2, 2026}, {1, 2026}, {12, 2025}, {3, 2025}}
	for i := range want {
		if periods[i] != want[i] {
			t.Fatalf("position %d: got %v, want %v", i, periods[i], want[i])
		}
	}
}

func TestPeriodPrevious(t *testing.T) {
	if p := (Period{1, 2026}).Previous(); p != (Period{12, 2025}) {
		t.Fatalf("Previous() = %v", p)
	}
	if p := (Period{6, 2025}).Previous(); p != (Period{5, 2025}) {
		t.Fatalf("Previous() = %v", p)
	}
}
