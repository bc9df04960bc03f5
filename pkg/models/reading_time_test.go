package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadingTime_Scan(t *testing.T) {
	noon := time.Date(2024, 10, 16, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		value any
		want  time.Time
		valid bool
	}{
		{name: "nil", value: nil},
		{name: "driver time", value: noon.In(time.FixedZone("CET", 3600)), want: noon, valid: true},
		{name: "unix seconds", value: noon.Unix(), want: noon, valid: true},
		{name: "day first text", value: "16/10/2024 12:00", want: noon, valid: true},
		{name: "day first bytes", value: []byte("16/10/2024 12:00:00"), want: noon, valid: true},
		{name: "sqlite text", value: "2024-10-16 12:00:00", want: noon, valid: true},
		{name: "sqlite text with zone", value: "2024-10-16 13:00:00+01:00", want: noon, valid: true},
		{name: "rfc3339", value: "2024-10-16T12:00:00Z", want: noon, valid: true},
		{name: "date only", value: "2024-10-16", want: noon.Truncate(24 * time.Hour), valid: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var rt ReadingTime
			require.NoError(t, rt.Scan(tt.value))
			assert.Equal(t, tt.valid, rt.Valid)
			assert.True(t, tt.want.Equal(rt.Time), "got %v", rt.Time)
		})
	}
}

func TestReadingTime_ScanRejectsUnknown(t *testing.T) {
	var rt ReadingTime
	assert.Error(t, rt.Scan("yesterday"))
	assert.Error(t, rt.Scan(3.5))
	assert.False(t, rt.Valid)
}

func TestStoredReading_NullNumbersAreZero(t *testing.T) {
	var stored StoredReading
	require.NoError(t, stored.Datetime.Scan("16/10/2024 12:00"))
	stored.Household = "SMITH"
	require.NoError(t, stored.Energy.Scan(2.5))

	reading := stored.Reading()
	assert.Equal(t, "SMITH", reading.Household)
	assert.Equal(t, 2.5, reading.Energy)
	assert.Zero(t, reading.Temperature)
	assert.Zero(t, reading.Person)
}

func TestReadingTime_Value(t *testing.T) {
	value, err := ReadingTime{}.Value()
	require.NoError(t, err)
	assert.Nil(t, value)

	noon := time.Date(2024, 10, 16, 12, 0, 0, 0, time.UTC)
	value, err = ReadingTime{Time: noon, Valid: true}.Value()
	require.NoError(t, err)
	assert.Equal(t, noon, value)
}
