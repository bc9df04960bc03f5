package household

import (
	"go.uber.org/zap"
	"liyu1981.xyz/household-energy-service/pkg/common"
	"liyu1981.xyz/household-energy-service/pkg/metrics"
	"liyu1981.xyz/household-energy-service/pkg/models"
)

// ingestReading appends one raw row for a registered household. Readings are
// keyed by the canonical household name.
func (c *Core) ingestReading(household string, input *models.SensorReading) error {
	logger := common.GetLoggerWith(
		common.LoggerNameHouseholdCore,
		zap.String(common.LoggerFieldCategory, common.LoggerCategoryIngest),
	)

	target, err := c.findByName(household)
	if err != nil {
		return err
	}
	if target == nil {
		return ErrHouseholdNotFound
	}

	reading := models.SensorReading{
		Datetime:    input.Datetime.UTC(),
		Household:   target.Name,
		Temperature: input.Temperature,
		Energy:      input.Energy,
		Person:      input.Person,
	}

	logger.Debug("Received reading for household", zap.Reflect("reading", reading))

	if err := c.Db.Conn.Create(&reading).Error; err != nil {
		return c.storageFailure("ingest", err)
	}

	metrics.Get().ReadingsIngested.Inc()
	logger.Info("Stored reading for household", zap.Reflect("reading", reading))

	c.invalidateAggregate(target.Name)
	return nil
}

type IIngestorImpl struct {
	core *Core
}

func (ii *IIngestorImpl) IngestReading(household string, input *models.SensorReading) error {
	return ii.core.ingestReading(household, input)
}

func (c *Core) GetIIngestor() IIngestor {
	return &IIngestorImpl{core: c}
}
