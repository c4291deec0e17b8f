package library

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsLeapYear(t *testing.T) {
	cases := map[int]bool{
		2000: true,
		1900: false,
		2024: true,
		2023: false,
		2100: false,
		2400: true,
	}
	for year, want := range cases {
		assert.Equal(t, want, IsLeapYear(year), "year %d", year)
	}
}

func TestDaysInMonth(t *testing.T) {
	want := []int{31, 28, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}
	for m := 1; m <= 12; m++ {
		assert.Equal(t, want[m-1], DaysInMonth(m, 2023), "month %d", m)
	}
	assert.Equal(t, 29, DaysInMonth(2, 2024))
	assert.Equal(t, 29, DaysInMonth(2, 2000))
	assert.Equal(t, 28, DaysInMonth(2, 1900))
}

func TestDaysInMonthMatchesTimePackage(t *testing.T) {
	for year := 1896; year <= 2104; year++ {
		for month := 1; month <= 12; month++ {
			last := time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
			if got := DaysInMonth(month, year); got != last {
				t.Fatalf("DaysInMonth(%d, %d) = %d, want %d", month, year, got, last)
			}
		}
	}
}

func TestSerial(t *testing.T) {
	assert.Equal(t, 1, Date{Day: 1, Month: 1, Year: 1}.Serial())
	assert.Equal(t, 366, Date{Day: 1, Month: 1, Year: 2}.Serial())
	assert.Equal(t, 1, DaysBetween(Date{Day: 31, Month: 12, Year: 2023}, Date{Day: 1, Month: 1, Year: 2024}))
}

func TestDaysBetweenNegative(t *testing.T) {
	a := Date{Day: 10, Month: 3, Year: 2024}
	b := Date{Day: 1, Month: 3, Year: 2024}
	assert.Equal(t, -9, DaysBetween(a, b))
	assert.Equal(t, 9, DaysBetween(b, a))
}

func TestAddDays(t *testing.T) {
	tests := []struct {
		name string
		from Date
		n    int
		want Date
	}{
		{"same month", Date{1, 1, 2024}, 14, Date{15, 1, 2024}},
		{"leap february", Date{20, 2, 2024}, 14, Date{5, 3, 2024}},
		{"common february", Date{20, 2, 2023}, 14, Date{6, 3, 2023}},
		{"year end", Date{25, 12, 2023}, 14, Date{8, 1, 2024}},
		{"zero", Date{29, 2, 2024}, 0, Date{29, 2, 2024}},
		{"many months", Date{1, 1, 2023}, 365, Date{1, 1, 2024}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AddDays(tt.from, tt.n))
		})
	}
}

func TestAddDaysRoundTrip(t *testing.T) {
	starts := []Date{{1, 1, 1999}, {28, 2, 2000}, {31, 12, 1900}, {15, 6, 2024}, {29, 2, 2024}}
	for _, d := range starts {
		for n := 0; n <= 1500; n += 7 {
			if got := DaysBetween(d, AddDays(d, n)); got != n {
				t.Fatalf("DaysBetween(%s, AddDays(%s, %d)) = %d", d, d, n, got)
			}
		}
	}
}

func TestToday(t *testing.T) {
	clock := func() time.Time { return time.Date(2024, time.February, 29, 10, 30, 0, 0, time.Local) }
	assert.Equal(t, Date{Day: 29, Month: 2, Year: 2024}, Today(clock))
	assert.False(t, Today(nil).IsZero())
}

func TestDateString(t *testing.T) {
	assert.Equal(t, "05-03-2024", Date{Day: 5, Month: 3, Year: 2024}.String())
}
