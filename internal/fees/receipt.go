package fees

import (
	"fmt"
	"time"
)

const (
	dayKeyLayout = "20060102"
	dateLayout   = "2006-01-02"
)

// DayKey is the calendar day of t in the institution's zone as YYYYMMDD.
func DayKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(dayKeyLayout)
}

// FormatReceipt renders a receipt number such as 20260923-0001.
func FormatReceipt(dayKey string, seq int64) string {
	return fmt.Sprintf("%s-%04d", dayKey, seq)
}

// ParsePaidDate interprets a payment date: blank means now, a bare
// YYYY-MM-DD means local midnight in loc, anything else must be RFC 3339.
func ParsePaidDate(raw string, now time.Time, loc *time.Location) (time.Time, error) {
	if raw == "" {
		return now, nil
	}
	if len(raw) == len(dateLayout) {
		if t, err := time.ParseInLocation(dateLayout, raw, loc); err == nil {
			return t, nil
		}
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", raw)
	}
	return t, nil
}

// DayBounds returns the inclusive start and exclusive end of a local day.
func DayBounds(date string, loc *time.Location) (time.Time, time.Time, error) {
	start, err := time.ParseInLocation(dateLayout, date, loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid date %q", date)
	}
	return start, start.AddDate(0, 0, 1), nil
}
