// Package lunar converts between the Vietnamese lunisolar calendar and the
// Gregorian calendar using astronomical new-moon and solar-term computation
// at UTC+7.
package lunar

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrInvalidDate is returned when a lunar date does not exist.
var ErrInvalidDate = errors.New("invalid lunar date")

const (
	// Vietnamese calendar is computed at UTC+7.
	timeZone = 7.0

	MinYear = 1900
	MaxYear = 2199

	synodicMonth = 29.530588853
	epochNewMoon = 2415021.076998695
)

// Date is a day in the lunisolar calendar. Leap marks the intercalary month.
type Date struct {
	Year  int
	Month int
	Day   int
	Leap  bool
}

func (d Date) String() string {
	if d.Leap {
		return fmt.Sprintf("%02d/%02d(nhuận)/%d", d.Day, d.Month, d.Year)
	}
	return fmt.Sprintf("%02d/%02d/%d", d.Day, d.Month, d.Year)
}

// SolarDate is a Gregorian civil date.
type SolarDate struct {
	Year  int
	Month time.Month
	Day   int
}

// In returns midnight of the date in loc.
func (s SolarDate) In(loc *time.Location) time.Time {
	return time.Date(s.Year, s.Month, s.Day, 0, 0, 0, 0, loc)
}

func (s SolarDate) String() string {
	return fmt.Sprintf("%02d/%02d/%d", s.Day, int(s.Month), s.Year)
}

// ToSolar converts a lunar date to its Gregorian date.
func ToSolar(d Date) (SolarDate, error) {
	if d.Year < MinYear || d.Year > MaxYear || d.Month < 1 || d.Month > 12 || d.Day < 1 || d.Day > 30 {
		return SolarDate{}, fmt.Errorf("%w: %s", ErrInvalidDate, d)
	}

	jd, ok := lunarToJD(d.Day, d.Month, d.Year, d.Leap)
	if !ok {
		return SolarDate{}, fmt.Errorf("%w: %s has no leap month", ErrInvalidDate, d)
	}

	// A day past the end of the month lands in the next month.
	if back := jdToLunar(jd); back != d {
		return SolarDate{}, fmt.Errorf("%w: %s", ErrInvalidDate, d)
	}

	y, m, day := jdToDate(jd)
	return SolarDate{Year: y, Month: time.Month(m), Day: day}, nil
}

// ToLunar converts the calendar date of t to the lunar calendar.
func ToLunar(t time.Time) Date {
	return jdToLunar(jdFromDate(t.Day(), int(t.Month()), t.Year()))
}

func jdFromDate(dd, mm, yy int) int {
	a := (14 - mm) / 12
	y := yy + 4800 - a
	m := mm + 12*a - 3
	jd := dd + (153*m+2)/5 + 365*y + y/4 - y/100 + y/400 - 32045
	if jd < 2299161 {
		jd = dd + (153*m+2)/5 + 365*y + y/4 - 32083
	}
	return jd
}

func jdToDate(jd int) (year, month, day int) {
	var b, c int
	if jd > 2299160 {
		a := jd + 32044
		b = (4*a + 3) / 146097
		c = a - (b*146097)/4
	} else {
		c = jd + 32082
	}
	d := (4*c + 3) / 1461
	e := c - (1461*d)/4
	m := (5*e + 2) / 153
	day = e - (153*m+2)/5 + 1
	month = m + 3 - 12*(m/10)
	year = b*100 + d - 4800 + m/10
	return year, month, day
}

// newMoon returns the Julian day of the k-th new moon after 1900-01-01.
func newMoon(k int) float64 {
	kf := float64(k)
	t := kf / 1236.85
	t2 := t * t
	t3 := t2 * t
	dr := math.Pi / 180

	jd1 := 2415020.75933 + 29.53058868*kf + 0.0001178*t2 - 0.000000155*t3
	jd1 += 0.00033 * math.Sin((166.56+132.87*t-0.009173*t2)*dr)
	m := 359.2242 + 29.10535608*kf - 0.0000333*t2 - 0.00000347*t3
	mpr := 306.0253 + 385.81691806*kf + 0.0107306*t2 + 0.00001236*t3
	f := 21.2964 + 390.67050646*kf - 0.0016528*t2 - 0.00000239*t3

	c1 := (0.1734-0.000393*t)*math.Sin(m*dr) + 0.0021*math.Sin(2*dr*m)
	c1 = c1 - 0.4068*math.Sin(mpr*dr) + 0.0161*math.Sin(dr*2*mpr)
	c1 = c1 - 0.0004*math.Sin(dr*3*mpr)
	c1 = c1 + 0.0104*math.Sin(dr*2*f) - 0.0051*math.Sin(dr*(m+mpr))
	c1 = c1 - 0.0074*math.Sin(dr*(m-mpr)) + 0.0004*math.Sin(dr*(2*f+m))
	c1 = c1 - 0.0004*math.Sin(dr*(2*f-m)) - 0.0006*math.Sin(dr*(2*f+mpr))
	c1 = c1 + 0.0010*math.Sin(dr*(2*f-mpr)) + 0.0005*math.Sin(dr*(2*mpr+m))

	var deltaT float64
	if t < -11 {
		deltaT = 0.001 + 0.000839*t + 0.0002261*t2 - 0.00000845*t3 - 0.000000081*t*t3
	} else {
		deltaT = -0.000278 + 0.000265*t + 0.000262*t2
	}
	return jd1 + c1 - deltaT
}

// sunLongitude returns the sun's ecliptic longitude in radians, normalized to [0, 2π).
func sunLongitude(jdn float64) float64 {
	t := (jdn - 2451545.0) / 36525
	t2 := t * t
	dr := math.Pi / 180

	m := 357.52910 + 35999.05030*t - 0.0001559*t2 - 0.00000048*t*t2
	l0 := 280.46645 + 36000.76983*t + 0.0003032*t2
	dl := (1.914600 - 0.004817*t - 0.000014*t2) * math.Sin(dr*m)
	dl += (0.019993-0.000101*t)*math.Sin(dr*2*m) + 0.000290*math.Sin(dr*3*m)

	l := (l0 + dl) * dr
	return l - 2*math.Pi*math.Floor(l/(2*math.Pi))
}

// sunSector returns which of the 12 major solar terms (0..11) the local day falls in.
func sunSector(dayNumber int) int {
	return int(math.Floor(sunLongitude(float64(dayNumber)-0.5-timeZone/24) / math.Pi * 6))
}

func newMoonDay(k int) int {
	return int(math.Floor(newMoon(k) + 0.5 + timeZone/24))
}

// lunarMonth11 returns the Julian day starting the 11th lunar month of year yy,
// the month containing the winter solstice.
func lunarMonth11(yy int) int {
	off := float64(jdFromDate(31, 12, yy)) - 2415021
	k := int(math.Floor(off / synodicMonth))
	nm := newMoonDay(k)
	if sunSector(nm) >= 9 {
		nm = newMoonDay(k - 1)
	}
	return nm
}

// leapMonthOffset returns the offset, from month 11 starting at a11, of the
// first month without a major solar term.
func leapMonthOffset(a11 int) int {
	k := int(math.Floor((float64(a11)-epochNewMoon)/synodicMonth + 0.5))
	i := 1
	arc := sunSector(newMoonDay(k + i))
	for {
		last := arc
		i++
		arc = sunSector(newMoonDay(k + i))
		if arc == last || i >= 14 {
			break
		}
	}
	return i - 1
}

func jdToLunar(dayNumber int) Date {
	k := int(math.Floor((float64(dayNumber) - epochNewMoon) / synodicMonth))
	monthStart := newMoonDay(k + 1)
	if monthStart > dayNumber {
		monthStart = newMoonDay(k)
	}

	yy, _, _ := jdToDate(dayNumber)
	a11 := lunarMonth11(yy)
	b11 := a11
	var lunarYear int
	if a11 >= monthStart {
		lunarYear = yy
		a11 = lunarMonth11(yy - 1)
	} else {
		lunarYear = yy + 1
		b11 = lunarMonth11(yy + 1)
	}

	lunarDay := dayNumber - monthStart + 1
	diff := (monthStart - a11) / 29
	leap := false
	lunarMonth := diff + 11
	if b11-a11 > 365 {
		leapDiff := leapMonthOffset(a11)
		if diff >= leapDiff {
			lunarMonth = diff + 10
			if diff == leapDiff {
				leap = true
			}
		}
	}
	if lunarMonth > 12 {
		lunarMonth -= 12
	}
	if lunarMonth >= 11 && diff < 4 {
		lunarYear--
	}
	return Date{Year: lunarYear, Month: lunarMonth, Day: lunarDay, Leap: leap}
}

func lunarToJD(lunarDay, lunarMonth, lunarYear int, leap bool) (int, bool) {
	var a11, b11 int
	if lunarMonth < 11 {
		a11 = lunarMonth11(lunarYear - 1)
		b11 = lunarMonth11(lunarYear)
	} else {
		a11 = lunarMonth11(lunarYear)
		b11 = lunarMonth11(lunarYear + 1)
	}

	k := int(math.Floor(0.5 + (float64(a11)-epochNewMoon)/synodicMonth))
	off := lunarMonth - 11
	if off < 0 {
		off += 12
	}
	if b11-a11 > 365 {
		leapOff := leapMonthOffset(a11)
		leapMonth := leapOff - 2
		if leapMonth < 0 {
			leapMonth += 12
		}
		if leap && lunarMonth != leapMonth {
			return 0, false
		}
		if leap || off >= leapOff {
			off++
		}
	} else if leap {
		return 0, false
	}

	return newMoonDay(k+off) + lunarDay - 1, true
}
