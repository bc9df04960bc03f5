package household

import (
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"liyu1981.xyz/household-energy-service/pkg/common"
	"liyu1981.xyz/household-energy-service/pkg/metrics"
	"liyu1981.xyz/household-energy-service/pkg/models"
)

func (c *Core) getActive() (*models.ActiveHousehold, error) {
	var rows []models.ActiveHousehold
	if err := c.Db.Conn.Limit(1).Find(&rows).Error; err != nil {
		return nil, c.storageFailure("get_active", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// setActive replaces the singleton row. The pair is stored as given; callers
// that need a live household go through Activate.
func (c *Core) setActive(id int64, name string) error {
	logger := common.GetLoggerWith(
		common.LoggerNameHouseholdCore,
		zap.String(common.LoggerFieldCategory, common.LoggerCategoryTracker),
	)

	active := models.ActiveHousehold{
		HouseholdID: id,
		Name:        name,
	}

	err := c.Db.Conn.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM active_household").Error; err != nil {
			return err
		}
		return tx.Omit(clause.Associations).Create(&active).Error
	})
	if err != nil {
		return c.storageFailure("set_active", err)
	}

	metrics.Get().ActivationsTotal.Inc()
	logger.Info("Active household replaced", zap.Reflect("active", active))

	return nil
}

type ITrackerImpl struct {
	core *Core
}

func (it *ITrackerImpl) GetActive() (*models.ActiveHousehold, error) {
	return it.core.getActive()
}

func (it *ITrackerImpl) SetActive(id int64, name string) error {
	return it.core.setActive(id, name)
}

func (c *Core) GetITracker() ITracker {
	return &ITrackerImpl{core: c}
}
