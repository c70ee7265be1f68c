package core

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Period identifies a calendar month, the grouping key for monthly target tables.
type Period struct {
	Month int // 1-12
	Year  int
}

var ErrPeriodFormat = errors.New("invalid period label")

var monthLabels = [12]string{
	"JAN", "FEB", "MAR", "APR", "MAY", "JUN",
	"JUL", "AUG", "SEP", "OCT", "NOV", "DEC",
}

// CurrentPeriod returns the period for the current wall-clock month.
func CurrentPeriod() Period {
	now := time.Now()
	return Period{Month: int(now.Month()), Year: now.Year()}
}

// PeriodOf builds a period from a point in time.
func PeriodOf(t time.Time) Period {
	return Period{Month: int(t.Month()), Year: t.Year()}
}

// ParsePeriod parses a MMMYYYY label (e.g. "FEB2026"). The label must be
// exactly a three-letter month abbreviation followed by a four-digit year.
func ParsePeriod(label string) (Period, error) {
	s := strings.ToUpper(strings.TrimSpace(label))
	if len(s) != 7 {
		return Period{}, fmt.Errorf("%w: %q", ErrPeriodFormat, label)
	}
	month := 0
	for i, m := range monthLabels {
		if s[:3] == m {
			month = i + 1
			break
		}
	}
	if month == 0 {
		return Period{}, fmt.Errorf("%w: unknown month in %q", ErrPeriodFormat, label)
	}
	year, err := strconv.Atoi(s[3:])
	if err != nil || year < 1000 || year > 9999 {
		return Period{}, fmt.Errorf("%w: bad year in %q", ErrPeriodFormat, label)
	}
	return Period{Month: month, Year: year}, nil
}

func (p Period) Validate() error {
	if p.Month < 1 || p.Month > 12 {
		return ErrInvalidMonth
	}
	if p.Year < 1000 || p.Year > 9999 {
		return ErrInvalidYear
	}
	return nil
}

// String renders the MMMYYYY label.
func (p Period) String() string {
	if p.Month < 1 || p.Month > 12 {
		return fmt.Sprintf("???%04d", p.Year)
	}
	return fmt.Sprintf("%s%04d", monthLabels[p.Month-1], p.Year)
}

func (p Period) IsZero() bool {
	return p.Month == 0 && p.Year == 0
}

// Previous returns the period one month earlier.
func (p Period) Previous() Period {
	if p.Month == 1 {
		return Period{Month: 12, Year: p.Year - 1}
	}
	return Period{Month: p.Month - 1, Year: p.Year}
}

// CompareDesc orders periods most-recent-first: -1 when a is more recent
// than b, 1 when older, 0 when equal.
func CompareDesc(a, b Period) int {
	if a.Year != b.Year {
		if a.Year > b.Year {
			return -1
		}
		return 1
	}
	if a.Month != b.Month {
		if a.Month > b.Month {
			return -1
		}
		return 1
	}
	return 0
}

// SortPeriodsDesc sorts in place, most recent first.
func SortPeriodsDesc(periods []Period) {
	sort.SliceStable(periods, func(i, j int) bool {
		return CompareDesc(periods[i], periods[j]) < 0
	})
}
