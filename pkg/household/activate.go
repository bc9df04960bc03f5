package household

import (
	"go.uber.org/zap"
	"liyu1981.xyz/household-energy-service/pkg/common"
	"liyu1981.xyz/household-energy-service/pkg/models"
)

// Activate looks the household up by name and makes it the active one,
// so the tracker only ever receives a live id/name pair.
func (c *Core) Activate(name string) (*models.ActiveHousehold, error) {
	household, err := c.Registry.FindByName(name)
	if err != nil {
		return nil, err
	}
	if household == nil {
		return nil, ErrHouseholdNotFound
	}

	if err := c.Tracker.SetActive(household.ID, household.Name); err != nil {
		return nil, err
	}

	common.GetLoggerWith(
		common.LoggerNameHouseholdCore,
		zap.String(common.LoggerFieldCategory, common.LoggerCategoryActivation),
	).Info("Activated household", zap.Int64(common.LoggerFieldHouseholdID, household.ID), zap.String(common.LoggerFieldHousehold, household.Name))

	return &models.ActiveHousehold{HouseholdID: household.ID, Name: household.Name}, nil
}
