package household

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"liyu1981.xyz/household-energy-service/pkg/cache"
	"liyu1981.xyz/household-energy-service/pkg/common"
	"liyu1981.xyz/household-energy-service/pkg/db"
	"liyu1981.xyz/household-energy-service/pkg/household/mocks"
	"liyu1981.xyz/household-energy-service/pkg/models"
	_ "liyu1981.xyz/household-energy-service/pkg/testing"
)

func TestAggregate_SumsPerDatetime(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, core, _, _ := GetMockCoreWithMemorySqliteDialector(t, false, false)
	defer ctrl.Finish()

	t1, t2 := at(10, 0), at(10, 5)
	seedReadings(t, core,
		models.SensorReading{Datetime: t1, Household: "H", Temperature: 10, Energy: 2, Person: 1},
		models.SensorReading{Datetime: t1, Household: "H", Temperature: 5, Energy: 3, Person: 0},
		models.SensorReading{Datetime: t2, Household: "H", Temperature: 7, Energy: 1, Person: 2},
	)

	readings, err := core.Aggregator.Aggregate("h")
	require.NoError(t, err)
	require.Len(t, readings, 2)

	assert.True(t, readings[0].Datetime.Equal(t1))
	assert.Equal(t, "H", readings[0].Household)
	assert.Equal(t, 15.0, readings[0].Temperature)
	assert.Equal(t, 5.0, readings[0].Energy)
	assert.Equal(t, 1.0, readings[0].Person)

	assert.True(t, readings[1].Datetime.Equal(t2))
	assert.Equal(t, "H", readings[1].Household)
	assert.Equal(t, 7.0, readings[1].Temperature)
	assert.Equal(t, 1.0, readings[1].Energy)
	assert.Equal(t, 2.0, readings[1].Person)
}

func TestAggregate_IgnoresOtherHouseholds(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, core, _, _ := GetMockCoreWithMemorySqliteDialector(t, false, false)
	defer ctrl.Finish()

	seedReadings(t, core,
		models.SensorReading{Datetime: at(10, 0), Household: "SMITH", Temperature: 1, Energy: 1, Person: 1},
		models.SensorReading{Datetime: at(10, 0), Household: "JONES", Temperature: 100, Energy: 100, Person: 100},
	)

	readings, err := core.Aggregator.Aggregate("Smith")
	require.NoError(t, err)
	require.Len(t, readings, 1)
	assert.Equal(t, 1.0, readings[0].Energy)
}

func TestAggregate_Empty(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, core, _, _ := GetMockCoreWithMemorySqliteDialector(t, false, false)
	defer ctrl.Finish()

	readings, err := core.Aggregator.Aggregate("nobody")
	require.NoError(t, err)
	assert.NotNil(t, readings)
	assert.Empty(t, readings)
}

func TestAggregate_GroupCountMatchesDistinctDatetimes(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, core, _, _ := GetMockCoreWithMemorySqliteDialector(t, false, false)
	defer ctrl.Finish()

	var rows []models.SensorReading
	totalEnergy := 0.0
	for i := range 30 {
		energy := float64(i)
		totalEnergy += energy
		rows = append(rows, models.SensorReading{
			Datetime:  at(12, i%7),
			Household: "SMITH",
			Energy:    energy,
		})
	}
	seedReadings(t, core, rows...)

	readings, err := core.Aggregator.Aggregate("SMITH")
	require.NoError(t, err)
	assert.Len(t, readings, 7)

	sum := 0.0
	for i, r := range readings {
		sum += r.Energy
		if i > 0 {
			assert.True(t, readings[i-1].Datetime.Before(r.Datetime))
		}
	}
	assert.Equal(t, totalEnergy, sum)
}

func TestAggregateBetween(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, core, _, _ := GetMockCoreWithMemorySqliteDialector(t, false, false)
	defer ctrl.Finish()

	seedReadings(t, core,
		models.SensorReading{Datetime: at(9, 0), Household: "SMITH", Energy: 1},
		models.SensorReading{Datetime: at(10, 0), Household: "SMITH", Energy: 2},
		models.SensorReading{Datetime: at(10, 0), Household: "SMITH", Energy: 3},
		models.SensorReading{Datetime: at(11, 0), Household: "SMITH", Energy: 4},
		models.SensorReading{Datetime: at(12, 0), Household: "SMITH", Energy: 5},
	)

	tests := []struct {
		name     string
		from, to time.Time
		energies []float64
	}{
		{name: "open", energies: []float64{1, 5, 4, 5}},
		{name: "inclusive bounds", from: at(10, 0), to: at(11, 0), energies: []float64{5, 4}},
		{name: "from only", from: at(11, 0), energies: []float64{4, 5}},
		{name: "to only", to: at(9, 30), energies: []float64{1}},
		{name: "non-UTC bound", from: at(10, 0).In(time.FixedZone("CET", 3600)), to: at(10, 0), energies: []float64{5}},
		{name: "empty window", from: at(13, 0), to: at(14, 0), energies: []float64{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			readings, err := core.Aggregator.AggregateBetween("smith", tt.from, tt.to)
			require.NoError(t, err)
			got := common.Mapper(readings, func(r models.AggregatedReading) float64 { return r.Energy })
			assert.Equal(t, tt.energies, got)
		})
	}
}

func TestGroupByDatetime_HouseholdFromLastRow(t *testing.T) {
	t1 := at(8, 0)
	rows := []models.SensorReading{
		{Datetime: at(9, 0), Household: "B", Energy: 1},
		{Datetime: t1, Household: "A", Energy: 1},
		{Datetime: t1.In(time.FixedZone("X", 7200)), Household: "C", Energy: 2},
	}

	readings := GroupByDatetime(rows)
	require.Len(t, readings, 2)
	assert.True(t, readings[0].Datetime.Equal(t1))
	assert.Equal(t, "C", readings[0].Household)
	assert.Equal(t, 3.0, readings[0].Energy)
	assert.Equal(t, "B", readings[1].Household)

	assert.Empty(t, GroupByDatetime(nil))
}

func getCoreWithCache(t *testing.T, aggregateCache AggregateCache) *Core {
	store, err := db.Open(db.UseMemorySqliteDialector())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	return NewCore(store, aggregateCache)
}

func TestAggregate_UsesCache(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockCache := mocks.NewMockAggregateCache(ctrl)
	core := getCoreWithCache(t, mockCache)

	cached := []models.AggregatedReading{{Datetime: at(1, 0), Household: "SMITH", Energy: 42}}
	mockCache.EXPECT().Get(gomock.Any(), "SMITH", "0:0").Return(cached, true, nil)

	readings, err := core.Aggregator.Aggregate("smith")
	require.NoError(t, err)
	assert.Equal(t, cached, readings)
}

func TestAggregate_CacheMissStoresResult(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockCache := mocks.NewMockAggregateCache(ctrl)
	core := getCoreWithCache(t, mockCache)

	seedReadings(t, core, models.SensorReading{Datetime: at(10, 0), Household: "SMITH", Energy: 3})

	gomock.InOrder(
		mockCache.EXPECT().Get(gomock.Any(), "SMITH", "1:1").Return(nil, false, nil),
		mockCache.EXPECT().Set(gomock.Any(), "SMITH", "1:1", gomock.Len(1)).Return(nil),
	)

	readings, err := core.Aggregator.Aggregate("Smith")
	require.NoError(t, err)
	require.Len(t, readings, 1)
	assert.Equal(t, 3.0, readings[0].Energy)
}

func TestAggregate_CacheFailureFallsBackToStorage(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockCache := mocks.NewMockAggregateCache(ctrl)
	core := getCoreWithCache(t, mockCache)

	seedReadings(t, core, models.SensorReading{Datetime: at(10, 0), Household: "SMITH", Energy: 3})

	mockCache.EXPECT().Get(gomock.Any(), "SMITH", gomock.Any()).Return(nil, false, errors.New("connection refused"))
	mockCache.EXPECT().Set(gomock.Any(), "SMITH", gomock.Any(), gomock.Any()).Return(errors.New("connection refused"))

	readings, err := core.Aggregator.Aggregate("SMITH")
	require.NoError(t, err)
	require.Len(t, readings, 1)
}

func TestAggregate_RangeBypassesCache(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// no expectations: any cache call fails the test
	mockCache := mocks.NewMockAggregateCache(ctrl)
	core := getCoreWithCache(t, mockCache)

	readings, err := core.Aggregator.AggregateBetween("SMITH", at(0, 0), at(23, 0))
	require.NoError(t, err)
	assert.Empty(t, readings)
}

func TestAggregate_RedisCacheInvalidatedOnIngestAndDelete(t *testing.T) {
	common.SetTestLoggerNop()

	mr := miniredis.RunT(t)
	client := cache.NewRedisClient(cache.RedisOptions{Addr: mr.Addr()})
	aggregateCache := cache.NewAggregateCache(client, time.Minute)
	t.Cleanup(func() { _ = aggregateCache.Close() })

	core := getCoreWithCache(t, aggregateCache)

	id, err := core.Registry.Register("Smith", 2)
	require.NoError(t, err)

	readings, err := core.Aggregator.Aggregate("SMITH")
	require.NoError(t, err)
	assert.Empty(t, readings)

	_, found, err := aggregateCache.Get(context.Background(), "SMITH", "0:0")
	require.NoError(t, err)
	assert.True(t, found)

	require.NoError(t, core.Ingestor.IngestReading("smith", &models.SensorReading{Datetime: at(10, 0), Energy: 2}))

	_, found, err = aggregateCache.Get(context.Background(), "SMITH", "0:0")
	require.NoError(t, err)
	assert.False(t, found)

	readings, err = core.Aggregator.Aggregate("SMITH")
	require.NoError(t, err)
	require.Len(t, readings, 1)

	require.NoError(t, core.Registry.Delete(id))

	readings, err = core.Aggregator.Aggregate("SMITH")
	require.NoError(t, err)
	assert.Empty(t, readings)
}

func newRedisAggregateCache(t *testing.T) *cache.AggregateCache {
	mr := miniredis.RunT(t)
	client := cache.NewRedisClient(cache.RedisOptions{Addr: mr.Addr()})
	aggregateCache := cache.NewAggregateCache(client, time.Minute)
	t.Cleanup(func() { _ = aggregateCache.Close() })
	return aggregateCache
}

func TestAggregate_CacheSeesRowsFromOtherWriters(t *testing.T) {
	common.SetTestLoggerNop()

	core := getCoreWithCache(t, newRedisAggregateCache(t))

	seedReadings(t, core, models.SensorReading{Datetime: at(10, 0), Household: "SMITH", Energy: 1})

	readings, err := core.Aggregator.Aggregate("SMITH")
	require.NoError(t, err)
	require.Len(t, readings, 1)

	// written straight to the table, bypassing IngestReading
	seedReadings(t, core, models.SensorReading{Datetime: at(11, 0), Household: "SMITH", Energy: 2})

	readings, err = core.Aggregator.Aggregate("SMITH")
	require.NoError(t, err)
	require.Len(t, readings, 2)
	assert.Equal(t, 2.0, readings[1].Energy)

	require.NoError(t, core.Db.Conn.Exec(`DELETE FROM sensor_data WHERE energy = 1`).Error)

	readings, err = core.Aggregator.Aggregate("SMITH")
	require.NoError(t, err)
	require.Len(t, readings, 1)
	assert.Equal(t, 2.0, readings[0].Energy)
}

func TestAggregate_CacheEntryFromOlderRowsIsRebuilt(t *testing.T) {
	common.SetTestLoggerNop()

	aggregateCache := newRedisAggregateCache(t)
	core := getCoreWithCache(t, aggregateCache)

	seedReadings(t, core, models.SensorReading{Datetime: at(10, 0), Household: "SMITH", Energy: 1})

	// an entry written back late by a reader that saw fewer rows
	require.NoError(t, aggregateCache.Set(context.Background(), "SMITH", "0:0", []models.AggregatedReading{}))

	readings, err := core.Aggregator.Aggregate("SMITH")
	require.NoError(t, err)
	require.Len(t, readings, 1)

	cached, found, err := aggregateCache.Get(context.Background(), "SMITH", "1:1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, readings, cached)
}

func useExternalSensorTable(t *testing.T, core *Core, statements ...string) {
	require.NoError(t, core.Db.Conn.Exec(`DROP TABLE sensor_data`).Error)
	require.NoError(t, core.Db.Conn.Exec(
		`CREATE TABLE sensor_data (datetime TEXT, household TEXT, temperature REAL, energy REAL, person REAL)`,
	).Error)
	for _, statement := range statements {
		require.NoError(t, core.Db.Conn.Exec(statement).Error)
	}
}

func TestAggregate_TextDatetimeTable(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, core, _, _ := GetMockCoreWithMemorySqliteDialector(t, false, false)
	defer ctrl.Finish()

	useExternalSensorTable(t, core,
		`INSERT INTO sensor_data VALUES ('16/10/2024 12:00', 'SMITH', 10, 2, 1)`,
		`INSERT INTO sensor_data VALUES ('16/10/2024 12:00', 'SMITH', 5, 3, 0)`,
		`INSERT INTO sensor_data VALUES ('16/10/2024 13:00', 'SMITH', 7, 1, 2)`,
		`INSERT INTO sensor_data VALUES ('16/10/2024 13:00', 'JONES', 100, 100, 100)`,
	)

	noon := time.Date(2024, 10, 16, 12, 0, 0, 0, time.UTC)

	readings, err := core.Aggregator.Aggregate("smith")
	require.NoError(t, err)
	require.Len(t, readings, 2)

	assert.True(t, readings[0].Datetime.Equal(noon))
	assert.Equal(t, "SMITH", readings[0].Household)
	assert.Equal(t, 15.0, readings[0].Temperature)
	assert.Equal(t, 5.0, readings[0].Energy)
	assert.Equal(t, 1.0, readings[0].Person)

	assert.True(t, readings[1].Datetime.Equal(noon.Add(time.Hour)))
	assert.Equal(t, 7.0, readings[1].Temperature)

	readings, err = core.Aggregator.AggregateBetween("SMITH", noon.Add(30*time.Minute), time.Time{})
	require.NoError(t, err)
	require.Len(t, readings, 1)
	assert.Equal(t, 1.0, readings[0].Energy)
}

func TestAggregate_TextDatetimeTableWithNulls(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, core, _, _ := GetMockCoreWithMemorySqliteDialector(t, false, false)
	defer ctrl.Finish()

	useExternalSensorTable(t, core,
		`INSERT INTO sensor_data VALUES ('2024-10-16 12:00:00', 'SMITH', NULL, 2, 1)`,
		`INSERT INTO sensor_data VALUES (NULL, 'SMITH', 1, 1, 1)`,
	)

	readings, err := core.Aggregator.Aggregate("SMITH")
	require.NoError(t, err)
	require.Len(t, readings, 1)
	assert.Zero(t, readings[0].Temperature)
	assert.Equal(t, 2.0, readings[0].Energy)
}

func TestAggregate_UnreadableDatetimeIsStorageError(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, core, _, _ := GetMockCoreWithMemorySqliteDialector(t, false, false)
	defer ctrl.Finish()

	useExternalSensorTable(t, core,
		`INSERT INTO sensor_data VALUES ('yesterday', 'SMITH', 1, 1, 1)`,
	)

	_, err := core.Aggregator.Aggregate("SMITH")
	require.Error(t, err)
	assert.True(t, db.IsStorageError(err))
}
