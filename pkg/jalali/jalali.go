// Package jalali converts Gregorian dates to the Jalali (Solar Hijri)
// calendar and derives school-year buckets from them. The conversion is the
// standard day-count arithmetic over the 33-year cycle; it is pure and total
// for any Gregorian date from year 622 onward.
package jalali

import "time"

// Date is a Jalali calendar date. Month is 1..12, Day is 1..31.
type Date struct {
	Year  int `json:"year"`
	Month int `json:"month"`
	Day   int `json:"day"`
}

// MonthNames lists the Jalali month names indexed by month-1.
var MonthNames = [12]string{
	"فروردین", "اردیبهشت", "خرداد", "تیر", "مرداد", "شهریور",
	"مهر", "آبان", "آذر", "دی", "بهمن", "اسفند",
}

var gregorianDayOffsets = [12]int{0, 31, 59, 90, 120, 151, 181, 212, 243, 273, 304, 334}

// FromGregorian converts a Gregorian (year, month, day) triple.
func FromGregorian(gy, gm, gd int) Date {
	jy := 979
	if gy <= 1600 {
		jy = 0
		gy -= 621
	} else {
		gy -= 1600
	}
	gy2 := gy
	if gm > 2 {
		gy2 = gy + 1
	}
	days := 365*gy + (gy2+3)/4 - (gy2+99)/100 + (gy2+399)/400 - 80 + gd + gregorianDayOffsets[gm-1]
	jy += 33 * (days / 12053)
	days %= 12053
	jy += 4 * (days / 1461)
	days %= 1461
	if days > 365 {
		jy += (days - 1) / 365
		days = (days - 1) % 365
	}
	if days < 186 {
		return Date{Year: jy, Month: 1 + days/31, Day: days%31 + 1}
	}
	return Date{Year: jy, Month: 7 + (days-186)/30, Day: (days-186)%30 + 1}
}

// FromTime converts the calendar date of t in its own location.
func FromTime(t time.Time) Date {
	y, m, d := t.Date()
	return FromGregorian(y, int(m), d)
}

// SchoolYear returns the starting Jalali year of the school year containing d.
// A school year runs from month 7 (Mehr) of year Y through month 6
// (Shahrivar) of year Y+1.
func (d Date) SchoolYear() int {
	if d.Month >= 7 {
		return d.Year
	}
	return d.Year - 1
}

// InSchoolYear reports whether d falls inside the school year starting at
// Jalali year startYear.
func (d Date) InSchoolYear(startYear int) bool {
	return d.SchoolYear() == startYear
}

// SchoolYearWindow returns a coarse Gregorian interval [from, to) that fully
// contains the school year starting at Jalali year startYear. The bounds are
// deliberately wide; callers still filter exactly with InSchoolYear.
func SchoolYearWindow(startYear int) (time.Time, time.Time) {
	from := time.Date(startYear+621, time.September, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(startYear+622, time.October, 1, 0, 0, 0, 0, time.UTC)
	return from, to
}

// MonthName returns the Jalali month name, or an empty string for an
// out-of-range month.
func (d Date) MonthName() string {
	if d.Month < 1 || d.Month > 12 {
		return ""
	}
	return MonthNames[d.Month-1]
}
