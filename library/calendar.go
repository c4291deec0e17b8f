package library

import (
	"fmt"
	"time"
)

// Date is a calendar day without a time component. Day and month ranges are
// not validated; callers are expected to pass real Gregorian dates.
type Date struct {
	Day   int `json:"day"`
	Month int `json:"month"`
	Year  int `json:"year"`
}

var monthDays = [12]int{31, 28, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}

func IsLeapYear(year int) bool {
	return (year%4 == 0 && year%100 != 0) || year%400 == 0
}

// DaysInMonth returns the length of month in year, 29 for a leap February.
func DaysInMonth(month, year int) int {
	if month == 2 && IsLeapYear(year) {
		return 29
	}
	return monthDays[month-1]
}

// Serial counts days from 0001-01-01, which has serial 1.
func (d Date) Serial() int {
	days := d.Day
	for y := 1; y < d.Year; y++ {
		if IsLeapYear(y) {
			days += 366
		} else {
			days += 365
		}
	}
	for m := 1; m < d.Month; m++ {
		days += DaysInMonth(m, d.Year)
	}
	return days
}

// DaysBetween is negative when to precedes from.
func DaysBetween(from, to Date) int {
	return to.Serial() - from.Serial()
}

// AddDays returns the date n days after d. n must not be negative.
func AddDays(d Date, n int) Date {
	d.Day += n
	for {
		dim := DaysInMonth(d.Month, d.Year)
		if d.Day <= dim {
			return d
		}
		d.Day -= dim
		d.Month++
		if d.Month > 12 {
			d.Month = 1
			d.Year++
		}
	}
}

// DateOf truncates t to its calendar day in t's location.
func DateOf(t time.Time) Date {
	return Date{Day: t.Day(), Month: int(t.Month()), Year: t.Year()}
}

// Today reads the current local date from clock, or from time.Now when clock is nil.
func Today(clock func() time.Time) Date {
	if clock == nil {
		clock = time.Now
	}
	return DateOf(clock().Local())
}

func (d Date) Before(other Date) bool { return d.Serial() < other.Serial() }

func (d Date) IsZero() bool { return d == Date{} }

func (d Date) String() string {
	return fmt.Sprintf("%02d-%02d-%04d", d.Day, d.Month, d.Year)
}
