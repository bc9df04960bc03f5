package models

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
)

// text layouts accepted in sensor_data.datetime, tried in order
var readingTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"2006-01-02",
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
	"02/01/2006",
}

// ReadingTime scans the datetime column whatever the writer stored: a
// driver time, text in one of the known layouts, or unix seconds. Text
// without a zone is read as UTC. NULL scans as invalid.
type ReadingTime struct {
	Time  time.Time
	Valid bool
}

func ParseReadingTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range readingTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized reading datetime %q", s)
}

func (rt *ReadingTime) Scan(value any) error {
	switch v := value.(type) {
	case nil:
		*rt = ReadingTime{}
		return nil
	case time.Time:
		*rt = ReadingTime{Time: v.UTC(), Valid: true}
		return nil
	case int64:
		*rt = ReadingTime{Time: time.Unix(v, 0).UTC(), Valid: true}
		return nil
	case string:
		return rt.scanText(v)
	case []byte:
		return rt.scanText(string(v))
	default:
		return fmt.Errorf("unsupported reading datetime type %T", value)
	}
}

func (rt ReadingTime) Value() (driver.Value, error) {
	if !rt.Valid {
		return nil, nil
	}
	return rt.Time, nil
}

func (rt *ReadingTime) scanText(s string) error {
	t, err := ParseReadingTime(s)
	if err != nil {
		return err
	}
	*rt = ReadingTime{Time: t, Valid: true}
	return nil
}
