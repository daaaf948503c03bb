package model

import "time"

// DateLayout is the calendar-day granularity every engine works at.
const DateLayout = "2006-01-02"

func ValidDate(s string) bool {
	_, err := time.Parse(DateLayout, s)
	return err == nil
}

// ParseDate resolves a calendar day to local midnight. Risk arithmetic
// normalizes both sides to midnight before taking differences.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.Local)
}

func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}
