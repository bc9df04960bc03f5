package household

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"liyu1981.xyz/household-energy-service/pkg/common"
	"liyu1981.xyz/household-energy-service/pkg/models"
	_ "liyu1981.xyz/household-energy-service/pkg/testing"
)

func TestIngestReading(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, core, _, _ := GetMockCoreWithMemorySqliteDialector(t, false, false)
	defer ctrl.Finish()

	_, err := core.Registry.Register("Smith", 2)
	require.NoError(t, err)

	local := time.Date(2024, 1, 15, 12, 0, 0, 0, time.FixedZone("CET", 3600))
	err = core.Ingestor.IngestReading("smith", &models.SensorReading{
		Datetime:    local,
		Household:   "ignored",
		Temperature: 21.5,
		Energy:      0.4,
		Person:      2,
	})
	require.NoError(t, err)

	var rows []models.SensorReading
	require.NoError(t, core.Db.Conn.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, "SMITH", rows[0].Household)
	assert.True(t, rows[0].Datetime.Equal(local))
	assert.Equal(t, 21.5, rows[0].Temperature)
}

func TestIngestReading_UnknownHousehold(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, core, _, _ := GetMockCoreWithMemorySqliteDialector(t, false, false)
	defer ctrl.Finish()

	err := core.Ingestor.IngestReading("nobody", &models.SensorReading{Datetime: at(10, 0)})
	assert.ErrorIs(t, err, ErrHouseholdNotFound)

	var count int64
	require.NoError(t, core.Db.Conn.Model(&models.SensorReading{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestIngestReading_SameInstantAggregates(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, core, _, _ := GetMockCoreWithMemorySqliteDialector(t, false, false)
	defer ctrl.Finish()

	_, err := core.Registry.Register("Smith", 2)
	require.NoError(t, err)

	utc := at(10, 0)
	require.NoError(t, core.Ingestor.IngestReading("SMITH", &models.SensorReading{Datetime: utc, Energy: 1}))
	require.NoError(t, core.Ingestor.IngestReading("SMITH", &models.SensorReading{Datetime: utc.In(time.FixedZone("JST", 9*3600)), Energy: 2}))

	readings, err := core.Aggregator.Aggregate("SMITH")
	require.NoError(t, err)
	require.Len(t, readings, 1)
	assert.Equal(t, 3.0, readings[0].Energy)
}
