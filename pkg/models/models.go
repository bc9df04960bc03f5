package models

import (
	"database/sql"
	"time"
)

type Household struct {
	ID            int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Name          string `gorm:"column:household_name;uniqueIndex" json:"name"`
	CurrentPerson int    `gorm:"column:current_person" json:"current_person"`
}

func (Household) TableName() string {
	return "households"
}

// HouseholdSummary is the {id, name} projection returned by listings.
type HouseholdSummary struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func (h Household) Summary() HouseholdSummary {
	return HouseholdSummary{ID: h.ID, Name: h.Name}
}

// ActiveHousehold is the single-row pointer to the household in focus. The
// name is cached at activation time. The pair is stored as given, with no
// constraint tying it to a live household.
type ActiveHousehold struct {
	HouseholdID int64  `gorm:"column:household_id;index" json:"id"`
	Name        string `gorm:"column:name" json:"name"`
}

func (ActiveHousehold) TableName() string {
	return "active_household"
}

// SensorReading is one raw row of the externally populated sensor_data table.
// Household holds the canonical household name.
type SensorReading struct {
	Datetime    time.Time `gorm:"column:datetime;index:idx_sensor_household_datetime,priority:2" json:"datetime"`
	Household   string    `gorm:"column:household;index:idx_sensor_household_datetime,priority:1" json:"household"`
	Temperature float64   `gorm:"column:temperature" json:"temperature"`
	Energy      float64   `gorm:"column:energy" json:"energy"`
	Person      float64   `gorm:"column:person" json:"person"`
}

func (SensorReading) TableName() string {
	return "sensor_data"
}

// StoredReading is a sensor_data row as read back. Rows come from writers
// outside this service, so the datetime may be text and the numeric columns
// may be NULL.
type StoredReading struct {
	Datetime    ReadingTime     `gorm:"column:datetime"`
	Household   string          `gorm:"column:household"`
	Temperature sql.NullFloat64 `gorm:"column:temperature"`
	Energy      sql.NullFloat64 `gorm:"column:energy"`
	Person      sql.NullFloat64 `gorm:"column:person"`
}

func (StoredReading) TableName() string {
	return "sensor_data"
}

// Reading converts the row, treating NULL numbers as zero.
func (r StoredReading) Reading() SensorReading {
	return SensorReading{
		Datetime:    r.Datetime.Time,
		Household:   r.Household,
		Temperature: r.Temperature.Float64,
		Energy:      r.Energy.Float64,
		Person:      r.Person.Float64,
	}
}

// AggregatedReading is one row per distinct datetime with the numeric fields
// summed over every raw row sharing it. Never persisted.
type AggregatedReading struct {
	Datetime    time.Time `json:"datetime"`
	Household   string    `json:"household"`
	Temperature float64   `json:"temperature"`
	Energy      float64   `json:"energy"`
	Person      float64   `json:"person"`
}
