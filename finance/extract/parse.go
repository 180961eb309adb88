package extract

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// SentinelYear is assigned to dates written without a year. It is replaced
// by the current year before the date leaves this package.
const SentinelYear = 1900

var (
	thousand = decimal.NewFromInt(1_000)
	million  = decimal.NewFromInt(1_000_000)

	numberPattern  = regexp.MustCompile(`^(\d+(?:[.,]\d+)*)\s*(.*)$`)
	dottedThousand = regexp.MustCompile(`^\d{1,3}(?:\.\d{3})+$`)
	tokenDate      = regexp.MustCompile(`^(\d{1,2})[/.-](\d{1,2})(?:[/.-](\d{2,4}))?$`)
)

// ParseAmount normalizes a MONEY span such as "50k", "2 triệu" or "1.500.000đ".
func ParseAmount(s string) (decimal.Decimal, bool) {
	m := numberPattern.FindStringSubmatch(strings.TrimSpace(strings.ToLower(s)))
	if m == nil {
		return decimal.Zero, false
	}

	number := strings.ReplaceAll(m[1], ",", "")
	if dottedThousand.MatchString(number) {
		number = strings.ReplaceAll(number, ".", "")
	}
	amount, err := decimal.NewFromString(number)
	if err != nil {
		return decimal.Zero, false
	}

	switch m[2] {
	case "k", "nghìn", "ngàn":
		amount = amount.Mul(thousand)
	case "tr", "triệu":
		amount = amount.Mul(million)
	case "", "đ", "đồng", "vnd", "vnđ":
	default:
		return decimal.Zero, false
	}
	return amount, true
}

// CivilDate is a calendar day with no time zone. It may hold lunar fields,
// so it is only range-checked, not validated against a calendar.
type CivilDate struct {
	Year  int
	Month int
	Day   int
}

// In returns midnight of the date in loc, or false when the day does not
// exist in the Gregorian calendar.
func (d CivilDate) In(loc *time.Location) (time.Time, bool) {
	t := time.Date(d.Year, time.Month(d.Month), d.Day, 0, 0, 0, 0, loc)
	if t.Year() != d.Year || int(t.Month()) != d.Month || t.Day() != d.Day {
		return time.Time{}, false
	}
	return t, true
}

// OptionalDate is a CivilDate that may be absent.
type OptionalDate struct {
	date CivilDate
	ok   bool
}

func SomeDate(d CivilDate) OptionalDate {
	return OptionalDate{date: d, ok: true}
}

// Get returns the date and whether one is present.
func (o OptionalDate) Get() (CivilDate, bool) {
	return o.date, o.ok
}

func (o OptionalDate) IsSet() bool {
	return o.ok
}

// ParseDate parses a day-first date span. A missing year resolves to now's year.
func ParseDate(s string, now time.Time) (CivilDate, bool) {
	s = strings.TrimSpace(strings.ToLower(s))

	var day, month, year string
	if m := wordDatePattern.FindStringSubmatch(s); m != nil && m[0] == s {
		day, month, year = m[1], m[2], m[3]
	} else if m := tokenDate.FindStringSubmatch(s); m != nil {
		day, month, year = m[1], m[2], m[3]
	} else {
		return CivilDate{}, false
	}

	d, _ := strconv.Atoi(day)
	mo, _ := strconv.Atoi(month)
	y := SentinelYear
	if year != "" {
		y, _ = strconv.Atoi(year)
		if len(year) == 2 {
			y += 2000
		}
	}
	if y == SentinelYear {
		y = now.Year()
	}

	if d < 1 || d > 31 || mo < 1 || mo > 12 {
		return CivilDate{}, false
	}
	return CivilDate{Year: y, Month: mo, Day: d}, true
}
