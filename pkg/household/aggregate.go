package household

import (
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"
	"liyu1981.xyz/household-energy-service/pkg/common"
	"liyu1981.xyz/household-energy-service/pkg/metrics"
	"liyu1981.xyz/household-energy-service/pkg/models"
)

func aggregationLogger() *zap.Logger {
	return common.GetLoggerWith(
		common.LoggerNameHouseholdCore,
		zap.String(common.LoggerFieldCategory, common.LoggerCategoryAggregation),
	)
}

func (c *Core) aggregate(household string) ([]models.AggregatedReading, error) {
	canonical := common.CanonicalName(household)

	if c.Cache == nil {
		return c.aggregateBetween(canonical, time.Time{}, time.Time{})
	}

	// taken before the rows are read, so an entry can only be tagged older
	// than its content and is recomputed on the next call
	version, err := c.readingsVersion(canonical)
	if err != nil {
		return nil, c.storageFailure("aggregate", err)
	}

	if cached, ok := c.cachedAggregate(canonical, version); ok {
		return cached, nil
	}

	readings, err := c.aggregateBetween(canonical, time.Time{}, time.Time{})
	if err != nil {
		return nil, err
	}

	c.storeAggregate(canonical, version, readings)
	return readings, nil
}

// readingsVersion identifies the current set of a household's raw rows. Any
// insert or delete by any writer changes it.
func (c *Core) readingsVersion(household string) (string, error) {
	var marker struct {
		RowCount  int64
		LastRowID int64
	}
	err := c.Db.Conn.Model(&models.StoredReading{}).
		Select("COUNT(*) AS row_count, COALESCE(MAX(rowid), 0) AS last_row_id").
		Where("household = ?", household).
		Scan(&marker).Error
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d:%d", marker.RowCount, marker.LastRowID), nil
}

// aggregateBetween groups the household's rows with from <= datetime <= to.
// A zero bound leaves that side open. Bounds are applied after the datetime
// column is parsed, since external writers may store it as text.
func (c *Core) aggregateBetween(household string, from, to time.Time) ([]models.AggregatedReading, error) {
	started := time.Now()
	defer func() {
		metrics.Get().AggregationDuration.Observe(time.Since(started).Seconds())
	}()

	canonical := common.CanonicalName(household)

	var stored []models.StoredReading
	if err := c.Db.Conn.Where("household = ?", canonical).Order("rowid").Find(&stored).Error; err != nil {
		return nil, c.storageFailure("aggregate", err)
	}

	rows := make([]models.SensorReading, 0, len(stored))
	for _, row := range stored {
		if !row.Datetime.Valid {
			continue
		}
		if !from.IsZero() && row.Datetime.Time.Before(from) {
			continue
		}
		if !to.IsZero() && row.Datetime.Time.After(to) {
			continue
		}
		rows = append(rows, row.Reading())
	}

	readings := GroupByDatetime(rows)

	aggregationLogger().Debug("Aggregated sensor readings",
		zap.String(common.LoggerFieldHousehold, canonical),
		zap.Int("rows", len(stored)),
		zap.Int("matched", len(rows)),
		zap.Int("groups", len(readings)),
	)

	return readings, nil
}

// GroupByDatetime folds rows sharing the same instant into one reading with
// temperature, energy and person summed. Household comes from the last row
// of each group in input order. Output is sorted by datetime ascending.
func GroupByDatetime(rows []models.SensorReading) []models.AggregatedReading {
	positions := make(map[int64]int, len(rows))
	grouped := make([]models.AggregatedReading, 0, len(rows))

	for _, row := range rows {
		key := row.Datetime.UnixNano()
		pos, seen := positions[key]
		if !seen {
			pos = len(grouped)
			positions[key] = pos
			grouped = append(grouped, models.AggregatedReading{Datetime: row.Datetime})
		}

		acc := &grouped[pos]
		acc.Household = row.Household
		acc.Temperature += row.Temperature
		acc.Energy += row.Energy
		acc.Person += row.Person
	}

	slices.SortStableFunc(grouped, func(a, b models.AggregatedReading) int {
		return a.Datetime.Compare(b.Datetime)
	})
	return grouped
}

func (c *Core) cachedAggregate(household, version string) ([]models.AggregatedReading, bool) {
	if c.Cache == nil {
		return nil, false
	}

	ctx, cancel := cacheContext()
	defer cancel()

	readings, found, err := c.Cache.Get(ctx, household, version)
	if err != nil {
		aggregationLogger().Warn("Aggregation cache unavailable", zap.String(common.LoggerFieldHousehold, household), zap.Error(err))
		return nil, false
	}
	if !found {
		metrics.Get().AggregationCacheHits.WithLabelValues(metrics.ResultMiss).Inc()
		return nil, false
	}

	metrics.Get().AggregationCacheHits.WithLabelValues(metrics.ResultHit).Inc()
	return readings, true
}

func (c *Core) storeAggregate(household, version string, readings []models.AggregatedReading) {
	if c.Cache == nil {
		return
	}

	ctx, cancel := cacheContext()
	defer cancel()

	if err := c.Cache.Set(ctx, household, version, readings); err != nil {
		aggregationLogger().Warn("Failed to cache aggregation", zap.String(common.LoggerFieldHousehold, household), zap.Error(err))
	}
}

func (c *Core) invalidateAggregate(household string) {
	if c.Cache == nil {
		return
	}

	ctx, cancel := cacheContext()
	defer cancel()

	if err := c.Cache.Invalidate(ctx, household); err != nil {
		aggregationLogger().Warn("Failed to invalidate cached aggregation", zap.String(common.LoggerFieldHousehold, household), zap.Error(err))
	}
}

type IAggregatorImpl struct {
	core *Core
}

func (ia *IAggregatorImpl) Aggregate(household string) ([]models.AggregatedReading, error) {
	return ia.core.aggregate(household)
}

func (ia *IAggregatorImpl) AggregateBetween(household string, from, to time.Time) ([]models.AggregatedReading, error) {
	return ia.core.aggregateBetween(household, from, to)
}

func (c *Core) GetIAggregator() IAggregator {
	return &IAggregatorImpl{core: c}
}
