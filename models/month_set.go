package models

import (
	"strings"
	"time"
)

// MonthSet is a set of calendar months stored as a bitmask
type MonthSet uint16

// NewMonthSet builds a set from the given months, ignoring values outside January..December.
func NewMonthSet(months ...time.Month) MonthSet {
	var s MonthSet
	for _, m := range months {
		s = s.With(m)
	}
	return s
}

// With returns a copy of the set including m
func (s MonthSet) With(m time.Month) MonthSet {
	if m < time.January || m > time.December {
		return s
	}
	return s | 1<<uint(m)
}

// Contains reports whether m is in the set
func (s MonthSet) Contains(m time.Month) bool {
	if m < time.January || m > time.December {
		return false
	}
	return s&(1<<uint(m)) != 0
}

// Months returns the members in calendar order
func (s MonthSet) Months() []time.Month {
	months := make([]time.Month, 0, 12)
	for m := time.January; m <= time.December; m++ {
		if s.Contains(m) {
			months = append(months, m)
		}
	}
	return months
}

// Len returns the number of months in the set
func (s MonthSet) Len() int {
	return len(s.Months())
}

func (s MonthSet) String() string {
	names := make([]string, 0, 12)
	for _, m := range s.Months() {
		names = append(names, m.String()[:3])
	}
	return "[" + strings.Join(names, " ") + "]"
}
