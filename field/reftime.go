package field

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/soniakeys/meeus/v3/julian"

	"github.com/weathercore/blockwatch/xerr"
)

// ParseReferenceTime parses a "yyyy ddd hh:mm:ss" day-of-year reference
// time, the convention synoptic archives commonly label a frame with
// (grounded on the teacher's own GSF reference-time parser,
// decode/params.go's parse_reftime, which decodes the same "yyyy/ddd
// hh:mm:ss" shape). julian.DayOfYearToCalendar converts the day-of-year
// component to a month/day pair, accounting for julian.LeapYearGregorian.
func ParseReferenceTime(s string) (time.Time, error) {
	fields := strings.Fields(s)
	if len(fields) != 3 {
		return time.Time{}, fmt.Errorf("reference time %q: want \"yyyy ddd hh:mm:ss\": %w", s, xerr.ErrFormat)
	}

	year, err := strconv.Atoi(fields[0])
	if err != nil {
		return time.Time{}, fmt.Errorf("reference time %q: bad year: %w", s, xerr.ErrFormat)
	}
	doy, err := strconv.Atoi(fields[1])
	if err != nil {
		return time.Time{}, fmt.Errorf("reference time %q: bad day-of-year: %w", s, xerr.ErrFormat)
	}

	month, day := julian.DayOfYearToCalendar(doy, julian.LeapYearGregorian(year))

	hms := strings.Split(fields[2], ":")
	if len(hms) != 3 {
		return time.Time{}, fmt.Errorf("reference time %q: bad hh:mm:ss: %w", s, xerr.ErrFormat)
	}
	var clock [3]int
	for i, v := range hms {
		clock[i], err = strconv.Atoi(v)
		if err != nil {
			return time.Time{}, fmt.Errorf("reference time %q: bad hh:mm:ss: %w", s, xerr.ErrFormat)
		}
	}

	return time.Date(year, time.Month(month), day, clock[0], clock[1], clock[2], 0, time.UTC), nil
}
