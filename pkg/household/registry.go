package household

import (
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"liyu1981.xyz/household-energy-service/pkg/common"
	"liyu1981.xyz/household-energy-service/pkg/db"
	"liyu1981.xyz/household-energy-service/pkg/metrics"
	"liyu1981.xyz/household-energy-service/pkg/models"
)

func registryLogger() *zap.Logger {
	return common.GetLoggerWith(
		common.LoggerNameHouseholdCore,
		zap.String(common.LoggerFieldCategory, common.LoggerCategoryRegistry),
	)
}

func (c *Core) register(name string, personCount int) (int64, error) {
	logger := registryLogger()

	if strings.TrimSpace(name) == "" {
		return 0, ErrEmptyName
	}
	canonical := common.CanonicalName(name)

	household := models.Household{
		Name:          canonical,
		CurrentPerson: personCount,
	}

	logger.Info("Received household registration", zap.Reflect("household", household))

	err := c.Db.Conn.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Household{}).Where("household_name = ?", canonical).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return &DuplicateNameError{Name: canonical}
		}

		if err := tx.Create(&household).Error; err != nil {
			// lost a race with a concurrent registration of the same name
			if db.IsUniqueViolation(err) {
				return &DuplicateNameError{Name: canonical}
			}
			return err
		}
		return nil
	})

	if IsDuplicateName(err) {
		metrics.Get().RegistrationsTotal.WithLabelValues(metrics.ResultDuplicate).Inc()
		logger.Info("Household name already registered", zap.String(common.LoggerFieldHousehold, canonical))
		return 0, err
	}
	if err != nil {
		metrics.Get().RegistrationsTotal.WithLabelValues(metrics.ResultError).Inc()
		return 0, c.storageFailure("register", err)
	}

	metrics.Get().RegistrationsTotal.WithLabelValues(metrics.ResultOK).Inc()
	logger.Info("Registered household", zap.Reflect("household", household))

	return household.ID, nil
}

// delete removes the household, its readings and the active pointer in one
// transaction. Unknown ids are a no-op.
func (c *Core) delete(id int64) error {
	logger := registryLogger()

	var deleted *models.Household

	err := c.Db.Conn.Transaction(func(tx *gorm.DB) error {
		var found []models.Household
		if err := tx.Where("id = ?", id).Limit(1).Find(&found).Error; err != nil {
			return err
		}
		if len(found) == 0 {
			return nil
		}
		household := found[0]

		if err := tx.Where("household = ?", household.Name).Delete(&models.SensorReading{}).Error; err != nil {
			return err
		}
		if err := tx.Where("household_id = ?", household.ID).Delete(&models.ActiveHousehold{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.Household{}, household.ID).Error; err != nil {
			return err
		}

		deleted = &household
		return nil
	})
	if err != nil {
		return c.storageFailure("delete", err)
	}

	if deleted == nil {
		logger.Info("Delete of unknown household ignored", zap.Int64(common.LoggerFieldHouseholdID, id))
		return nil
	}

	metrics.Get().DeletionsTotal.Inc()
	logger.Info("Deleted household", zap.Reflect("household", *deleted))

	c.invalidateAggregate(deleted.Name)
	c.Limiters.Forget(deleted.Name)
	return nil
}

func (c *Core) list() ([]models.HouseholdSummary, error) {
	var households []models.Household
	if err := c.Db.Conn.Select("id", "household_name").Order("id").Find(&households).Error; err != nil {
		return nil, c.storageFailure("list", err)
	}
	return common.Mapper(households, models.Household.Summary), nil
}

func (c *Core) findByName(name string) (*models.Household, error) {
	canonical := common.CanonicalName(name)
	if canonical == "" {
		return nil, nil
	}

	var found []models.Household
	if err := c.Db.Conn.Where("household_name = ?", canonical).Limit(1).Find(&found).Error; err != nil {
		return nil, c.storageFailure("find_by_name", err)
	}
	if len(found) == 0 {
		return nil, nil
	}
	return &found[0], nil
}

func (c *Core) findIDByName(name string) (int64, bool, error) {
	household, err := c.findByName(name)
	if err != nil || household == nil {
		return 0, false, err
	}
	return household.ID, true, nil
}

type IRegistryImpl struct {
	core *Core
}

func (ir *IRegistryImpl) Register(name string, personCount int) (int64, error) {
	return ir.core.register(name, personCount)
}

func (ir *IRegistryImpl) Delete(id int64) error {
	return ir.core.delete(id)
}

func (ir *IRegistryImpl) List() ([]models.HouseholdSummary, error) {
	return ir.core.list()
}

func (ir *IRegistryImpl) FindByName(name string) (*models.Household, error) {
	return ir.core.findByName(name)
}

func (ir *IRegistryImpl) FindIDByName(name string) (int64, bool, error) {
	return ir.core.findIDByName(name)
}

func (c *Core) GetIRegistry() IRegistry {
	return &IRegistryImpl{core: c}
}
